package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/RyanBlaney/trackiq/export"
	"github.com/RyanBlaney/trackiq/internal/testsupport"
)

func writeTestConfig(t *testing.T, base string) string {
	t.Helper()
	path := filepath.Join(base, "config.toml")
	content := fmt.Sprintf(`
[paths]
upload_dir = %q
database_path = %q

[logging]
level = "error"
`, filepath.Join(base, "uploads"), filepath.Join(base, "data", "trackiq.db"))
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestConfigInitWritesSample(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	target := filepath.Join(t.TempDir(), "trackiq.toml")

	out, err := runCLI(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, target) {
		t.Fatalf("unexpected output %q", out)
	}
	if _, err := runCLI(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected error when config exists without --overwrite")
	}
	if _, err := runCLI(t, "--config", target, "config", "validate"); err != nil {
		t.Fatalf("config validate: %v", err)
	}
}

func TestExtractStoreListExport(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	base := t.TempDir()
	cfgPath := writeTestConfig(t, base)

	const sr = 22050
	wavPath := filepath.Join(base, "tone.wav")
	testsupport.WriteWAV(t, wavPath, testsupport.SineWave(440, sr, sr, 0.5), sr)

	out, err := runCLI(t, "--config", cfgPath, "extract", "--store", "--format", "json", wavPath)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	var results []struct {
		Filename string             `json:"filename"`
		ID       int64              `json:"id"`
		Features map[string]float64 `json:"features"`
	}
	if err := json.Unmarshal([]byte(out), &results); err != nil {
		t.Fatalf("decode extract output %q: %v", out, err)
	}
	if len(results) != 1 || results[0].Filename != "tone.wav" || results[0].ID == 0 {
		t.Fatalf("unexpected extract results %+v", results)
	}
	if len(results[0].Features) != 15 {
		t.Fatalf("expected 15 features, got %d", len(results[0].Features))
	}

	if _, err := runCLI(t, "--config", cfgPath, "extract", "--store", wavPath); err == nil {
		t.Fatal("expected duplicate error on second store")
	}

	out, err = runCLI(t, "--config", cfgPath, "records", "list")
	if err != nil {
		t.Fatalf("records list: %v", err)
	}
	if !strings.Contains(out, "tone.wav") {
		t.Fatalf("list output missing filename: %q", out)
	}

	out, err = runCLI(t, "--config", cfgPath, "records", "show", "tone.wav")
	if err != nil {
		t.Fatalf("records show: %v", err)
	}
	if !strings.Contains(out, "spectral_centroid") {
		t.Fatalf("show output missing features: %q", out)
	}

	parquetPath := filepath.Join(base, "features.parquet")
	if _, err := runCLI(t, "--config", cfgPath, "records", "export", "--out", parquetPath); err != nil {
		t.Fatalf("records export: %v", err)
	}
	f, err := os.Open(parquetPath)
	if err != nil {
		t.Fatalf("open export: %v", err)
	}
	defer f.Close()
	rows, err := export.ReadParquet(f)
	if err != nil {
		t.Fatalf("ReadParquet: %v", err)
	}
	if len(rows) != 1 || rows[0].Filename != "tone.wav" {
		t.Fatalf("unexpected exported rows %+v", rows)
	}

	if _, err := runCLI(t, "--config", cfgPath, "records", "delete", fmt.Sprint(results[0].ID)); err != nil {
		t.Fatalf("records delete: %v", err)
	}
	out, err = runCLI(t, "--config", cfgPath, "records", "list", "--format", "json")
	if err != nil {
		t.Fatalf("records list json: %v", err)
	}
	if strings.TrimSpace(out) != "[]" {
		t.Fatalf("expected empty list after delete, got %q", out)
	}
}

func TestExtractRejectsUnknownFormat(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfgPath := writeTestConfig(t, t.TempDir())
	if _, err := runCLI(t, "--config", cfgPath, "extract", "--format", "xml", "a.wav"); err == nil {
		t.Fatal("expected error for unknown format")
	}
}
