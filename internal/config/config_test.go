package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, "airsense.json", `{
		"listen": ":9090",
		"serial_port": "/dev/ttyAMA0",
		"baud_rate": 115200,
		"parity": "E",
		"series_bound": 1200,
		"raw_log_bound": 500
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Listen == nil || *cfg.Listen != ":9090" {
		t.Errorf("Listen = %v, want :9090", cfg.Listen)
	}
	if cfg.SerialPort == nil || *cfg.SerialPort != "/dev/ttyAMA0" {
		t.Errorf("SerialPort = %v, want /dev/ttyAMA0", cfg.SerialPort)
	}
	if cfg.SeriesBound == nil || *cfg.SeriesBound != 1200 {
		t.Errorf("SeriesBound = %v, want 1200", cfg.SeriesBound)
	}

	opts := cfg.PortOptions()
	if opts.BaudRate != 115200 || opts.Parity != "E" {
		t.Errorf("PortOptions() = %+v", opts)
	}
	// Unset fields stay zero for serialmux to normalize.
	if opts.DataBits != 0 || opts.StopBits != 0 {
		t.Errorf("PortOptions() = %+v, want zero data/stop bits", opts)
	}
}

func TestLoadPartial(t *testing.T) {
	path := writeConfig(t, "partial.json", `{"listen": ":9191"}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.SerialPort != nil || cfg.SeriesBound != nil {
		t.Errorf("omitted fields not nil: %+v", cfg)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	path := writeConfig(t, "typo.json", `{"listne": ":9090"}`)
	if _, err := Load(path); err == nil {
		t.Error("Load() accepted unknown field")
	}
}

func TestLoadRejectsNonJSONExtension(t *testing.T) {
	path := writeConfig(t, "config.yaml", `{}`)
	if _, err := Load(path); err == nil {
		t.Error("Load() accepted non-.json extension")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Error("Load() accepted missing file")
	}
}
