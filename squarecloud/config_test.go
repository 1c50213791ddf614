package squarecloud

import (
	"archive/zip"
	"bytes"
	"errors"
	"testing"
)

func TestParseConfigFile(t *testing.T) {
	text := `MAIN=main.go
MEMORY=256
VERSION=recommended
DISPLAY_NAME=My App
SUBDOMAIN=my-app
AUTORESTART=true`

	cfg, err := ParseConfigFile(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Main != "main.go" || cfg.Memory != 256 || cfg.Version != "recommended" {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if cfg.DisplayName != "My App" || cfg.Subdomain != "my-app" || !cfg.Autorestart {
		t.Errorf("unexpected config: %+v", cfg)
	}
}

func TestParseConfigFile_CaseInsensitiveKeys(t *testing.T) {
	cfg, err := ParseConfigFile("main=index.js\nmemory=512\nversion=latest\ndisplay_name=x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Main != "index.js" || cfg.Memory != 512 {
		t.Errorf("unexpected config: %+v", cfg)
	}
}

func TestParseConfigFile_MissingRequiredKey(t *testing.T) {
	_, err := ParseConfigFile("MAIN=main.go\nVERSION=latest\nDISPLAY_NAME=x")

	var missing *MissingKeyError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingKeyError, got %v", err)
	}
	if missing.Key != "MEMORY" {
		t.Errorf("Key = %q, want MEMORY", missing.Key)
	}
}

func TestParseConfigFile_BadMemory(t *testing.T) {
	if _, err := ParseConfigFile("MAIN=a\nMEMORY=lots\nVERSION=latest\nDISPLAY_NAME=x"); err == nil {
		t.Fatal("expected error for non-integer MEMORY")
	}
}

func TestParseConfigFile_BadVersion(t *testing.T) {
	if _, err := ParseConfigFile("MAIN=a\nMEMORY=256\nVERSION=newest\nDISPLAY_NAME=x"); err == nil {
		t.Fatal("expected error for invalid VERSION")
	}
}

func TestConfigFile_RoundTrip(t *testing.T) {
	cfg := &ConfigFile{
		Main:        "main.go",
		Memory:      256,
		Version:     "latest",
		DisplayName: "My App",
		Start:       "go run main.go",
	}

	parsed, err := ParseConfigFile(cfg.String())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *parsed != *cfg {
		t.Errorf("round trip mismatch: %+v != %+v", parsed, cfg)
	}
}

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()

	buf := &bytes.Buffer{}
	w := zip.NewWriter(buf)
	for name, content := range files {
		f, err := w.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := f.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestParseArchiveConfig(t *testing.T) {
	data := buildZip(t, map[string]string{
		"squarecloud.app": "MAIN=main.go\nMEMORY=256\nVERSION=recommended\nDISPLAY_NAME=bot",
		"main.go":         "package main",
	})

	cfg, err := ParseArchiveConfig(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DisplayName != "bot" {
		t.Errorf("DisplayName = %q", cfg.DisplayName)
	}
}

func TestParseArchiveConfig_MissingManifest(t *testing.T) {
	data := buildZip(t, map[string]string{"main.go": "package main"})

	if _, err := ParseArchiveConfig(data); !errors.Is(err, ErrMissingConfig) {
		t.Fatalf("expected ErrMissingConfig, got %v", err)
	}
}

func TestParseArchiveConfig_NestedManifestDoesNotCount(t *testing.T) {
	data := buildZip(t, map[string]string{"sub/squarecloud.app": "MAIN=a"})

	if _, err := ParseArchiveConfig(data); !errors.Is(err, ErrMissingConfig) {
		t.Fatalf("expected ErrMissingConfig, got %v", err)
	}
}

func TestParseArchiveConfig_NotAZip(t *testing.T) {
	if _, err := ParseArchiveConfig([]byte("definitely not a zip")); err == nil {
		t.Fatal("expected error for invalid archive")
	}
}
