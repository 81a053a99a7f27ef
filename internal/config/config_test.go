package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.ListenAddr != ":8501" || c.MaxUploadMB != 50 || c.MaxRows != 1000000 || c.SheetIndex != 1 {
		t.Fatalf("defaults: %+v", c)
	}
	if c.ChartWidth != 960 || c.ChartHeight != 640 || c.ImageFormat != "svg" || c.LogFormat != "text" {
		t.Fatalf("defaults: %+v", c)
	}
}

func TestSaveThenLoadRoundTrip(t *testing.T) {
	p := filepath.Join(t.TempDir(), "config.yaml")
	c, err := Load(p)
	if err != nil {
		t.Fatal(err)
	}
	for k, v := range map[string]string{"listen_addr": "127.0.0.1:9000", "sheet_name": "Data", "image_format": "PNG", "max_rows": "10"} {
		if err := c.Set(k, v); err != nil {
			t.Fatalf("Set(%s): %v", k, err)
		}
	}
	if err := Save(c, p); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(p)
	if err != nil {
		t.Fatal(err)
	}
	if got.ListenAddr != "127.0.0.1:9000" || got.SheetName != "Data" || got.ImageFormat != "png" || got.MaxRows != 10 {
		t.Fatalf("reloaded: %+v", got)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte("listen_addr: \":7000\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SHEETVIZ_LISTEN_ADDR", ":7100")
	c, err := Load(p)
	if err != nil {
		t.Fatal(err)
	}
	if c.ListenAddr != ":7100" {
		t.Fatalf("listen_addr = %q", c.ListenAddr)
	}
}

func TestSetValidates(t *testing.T) {
	c := &Global{}
	bad := map[string]string{
		"max_upload_mb": "0",
		"sheet_index":   "x",
		"image_format":  "gif",
		"log_format":    "xml",
		"log_level":     "loud",
		"nope":          "1",
	}
	for k, v := range bad {
		if err := c.Set(k, v); err == nil {
			t.Errorf("Set(%s, %s) accepted", k, v)
		}
	}
	if err := c.Set("session_secret", "supersecretvalue"); err != nil {
		t.Fatal(err)
	}
	if got, _ := c.Get("session_secret"); got != "sup****lue" {
		t.Fatalf("masked secret = %q", got)
	}
	if string(c.Secret()) != "supersecretvalue" {
		t.Fatal("configured secret not used")
	}
	if len((&Global{}).Secret()) < 32 {
		t.Fatal("generated secret too short")
	}
}
