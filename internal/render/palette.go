package render

import (
	"math"

	"github.com/wcharczuk/go-chart/v2/drawing"
)

// Sequential colormaps are sampled from their anchor stops; qualitative
// palettes cycle.
var colormaps = map[string][]string{
	"coolwarm": {"3b4cc0", "6788ee", "9abbff", "c9d7f0", "edd1c2", "f7a889", "e26952", "b40426"},
	"viridis":  {"440154", "482878", "3e4989", "31688e", "26828e", "1f9e89", "35b779", "6ece58", "b5de2b", "fde725"},
	"YlGnBu":   {"ffffd9", "edf8b1", "c7e9b4", "7fcdbb", "41b6c4", "1d91c0", "225ea8", "253494", "081d58"},
}

var qualitative = map[string][]string{
	"Set2": {"66c2a5", "fc8d62", "8da0cb", "e78ac3", "a6d854", "ffd92f", "e5c494", "b3b3b3"},
}

var named = map[string]string{
	"blue":  "0000ff",
	"red":   "ff0000",
	"gray":  "808080",
	"black": "000000",
}

const defaultColor = "1f77b4"

// namedColor resolves a style color name, falling back to the default series color.
func namedColor(name string) drawing.Color {
	if hex, ok := named[name]; ok {
		return drawing.ColorFromHex(hex)
	}
	return drawing.ColorFromHex(defaultColor)
}

// colorAt samples colormap name at v in [0,1].
func colorAt(name string, v float64) drawing.Color {
	stops, ok := colormaps[name]
	if !ok {
		return drawing.ColorFromHex(defaultColor)
	}
	if math.IsNaN(v) || v < 0 {
		v = 0
	} else if v > 1 {
		v = 1
	}
	pos := v * float64(len(stops)-1)
	i := int(math.Floor(pos))
	if i >= len(stops)-1 {
		return drawing.ColorFromHex(stops[len(stops)-1])
	}
	a, b := drawing.ColorFromHex(stops[i]), drawing.ColorFromHex(stops[i+1])
	w := pos - float64(i)
	mix := func(x, y uint8) uint8 { return uint8(math.Round(float64(x)*(1-w) + float64(y)*w)) }
	return drawing.Color{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: 255}
}

// paletteColors returns n colors of a named palette. Colormaps are sampled
// evenly end to end; qualitative palettes repeat.
func paletteColors(name string, n int) []drawing.Color {
	out := make([]drawing.Color, n)
	if q, ok := qualitative[name]; ok {
		for i := range out {
			out[i] = drawing.ColorFromHex(q[i%len(q)])
		}
		return out
	}
	for i := range out {
		if n == 1 {
			out[i] = colorAt(name, 0.5)
			continue
		}
		out[i] = colorAt(name, float64(i)/float64(n-1))
	}
	return out
}

// textOn picks black or white text for legibility on a fill color.
func textOn(c drawing.Color) drawing.Color {
	lum := 0.2126*float64(c.R) + 0.7152*float64(c.G) + 0.0722*float64(c.B)
	if lum < 128 {
		return drawing.ColorWhite
	}
	return drawing.ColorBlack
}
