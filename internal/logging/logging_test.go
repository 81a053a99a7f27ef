package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestJSONHandler(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(Options{Level: "debug", Format: "json", Output: &buf})
	if err != nil {
		t.Fatal(err)
	}
	log.Debug("loaded table", "rows", 3)
	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("not json: %q", buf.String())
	}
	if rec["msg"] != "loaded table" || rec["rows"] != float64(3) {
		t.Fatalf("record = %v", rec)
	}
}

func TestTextHandlerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(Options{Level: "warn", Output: &buf})
	if err != nil {
		t.Fatal(err)
	}
	log.Info("hidden")
	log.Warn("shown", "kind", "heatmap")
	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") || !strings.Contains(out, "kind=heatmap") {
		t.Fatalf("output = %q", out)
	}
}

func TestRejectsUnknownSettings(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected format error")
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatal("expected level error")
	}
	if l, _ := ParseLevel("WARNING"); l != slog.LevelWarn {
		t.Fatalf("level = %v", l)
	}
}
