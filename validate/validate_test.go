package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func hasMessage(result ValidationResult, substr string) bool {
	for _, e := range result.Errors {
		if strings.Contains(e, substr) {
			return true
		}
	}
	return false
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		body     string
		valid    bool
		contains string
	}{
		{
			name: "valid medium",
			file: "medium.json",
			body: `{
				"name": "medium",
				"description": "4x4 grid",
				"grid_size": 4,
				"mismatch_delay_ms": 1000,
				"messages": {"moves": "Moves: %d", "timer": "Time: %02d:%02d", "game_over": "Won in %d moves and %d seconds"}
			}`,
			valid:    true,
			contains: "✓ Pairs: 8 (A..H)",
		},
		{
			name:     "odd card count",
			file:     "odd.json",
			body:     `{"name": "odd", "description": "3x3", "grid_size": 3}`,
			contains: "9 cards",
		},
		{
			name:     "default messages",
			file:     "tiny.json",
			body:     `{"name": "tiny", "description": "2x2", "grid_size": 2}`,
			valid:    true,
			contains: "built-in defaults",
		},
		{
			name:     "invalid json",
			file:     "broken.json",
			body:     `{"name": "broken",`,
			contains: "Invalid JSON",
		},
		{
			name:     "unknown key",
			file:     "typo.json",
			body:     `{"name": "typo", "description": "x", "grid_size": 4, "grid_sise": 4}`,
			contains: "grid_sise",
		},
		{
			name:     "grid too large",
			file:     "huge.json",
			body:     `{"name": "huge", "description": "x", "grid_size": 9}`,
			contains: "grid_size must be between",
		},
		{
			name:     "missing description",
			file:     "bare.json",
			body:     `{"name": "bare", "grid_size": 4}`,
			contains: "description is required",
		},
		{
			name:     "bad moves format",
			file:     "moves.json",
			body:     `{"name": "moves", "description": "x", "grid_size": 4, "messages": {"moves": "Moves"}}`,
			contains: "messages.moves",
		},
		{
			name:     "negative delay",
			file:     "delay.json",
			body:     `{"name": "delay", "description": "x", "grid_size": 4, "mismatch_delay_ms": -5}`,
			contains: "cannot be negative",
		},
		{
			name:     "name mismatch",
			file:     "hard.json",
			body:     `{"name": "expert", "description": "x", "grid_size": 6}`,
			contains: "does not match file name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, t.TempDir(), tt.file, tt.body)
			result := validateConfig(path)

			if result.Valid != tt.valid {
				t.Errorf("Expected valid=%v, got %v (%v)", tt.valid, result.Valid, result.Errors)
			}
			if !hasMessage(result, tt.contains) {
				t.Errorf("Expected message containing %q, got %v", tt.contains, result.Errors)
			}
			if result.File != tt.file {
				t.Errorf("Expected file %s, got %s", tt.file, result.File)
			}
		})
	}
}

func TestValidateConfig_MissingFile(t *testing.T) {
	result := validateConfig(filepath.Join(t.TempDir(), "nope.json"))
	if result.Valid || !hasMessage(result, "Failed to read file") {
		t.Errorf("Expected read failure, got %+v", result)
	}
}

func TestRepositoryConfigsAreValid(t *testing.T) {
	files, err := findConfigs([]string{"../configs"})
	if err != nil {
		t.Fatalf("findConfigs failed: %v", err)
	}
	if len(files) < 3 {
		t.Fatalf("Expected at least 3 configs, got %d", len(files))
	}
	for _, f := range files {
		if result := validateConfig(f); !result.Valid {
			t.Errorf("%s: %v", result.File, result.Errors)
		}
	}
}

func TestFindConfigs(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "a.json", "{}")
	writeConfig(t, dir, "b.json", "{}")
	writeConfig(t, dir, "notes.txt", "")
	single := writeConfig(t, t.TempDir(), "c.json", "{}")

	files, err := findConfigs([]string{dir, single})
	if err != nil {
		t.Fatalf("findConfigs failed: %v", err)
	}
	if len(files) != 3 {
		t.Errorf("Expected 3 files, got %v", files)
	}

	if _, err := findConfigs([]string{filepath.Join(dir, "missing")}); err == nil {
		t.Error("Expected error for missing path")
	}
}

func TestReport(t *testing.T) {
	var buf bytes.Buffer
	ok := report(&buf, []ValidationResult{
		{File: "good.json", Valid: true, Errors: []string{"✓ Name: good"}},
		{File: "bad.json", Valid: false, Errors: []string{"grid_size must be between 2 and 7, got 9"}},
	})
	if ok {
		t.Error("Expected report to fail with an invalid result")
	}
	out := buf.String()
	for _, want := range []string{"✅ VALID", "❌ INVALID", "❌ grid_size", "Some configurations have errors"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in output:\n%s", want, out)
		}
	}
}

func TestCommand(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "easy.json", `{"name": "easy", "description": "2x2", "grid_size": 2}`)

	var buf bytes.Buffer
	if err := newCommand(&buf).Run(context.Background(), []string{"validate", "--config-dir", dir}); err != nil {
		t.Fatalf("Expected success, got %v", err)
	}
	if !strings.Contains(buf.String(), "All configurations are valid") {
		t.Errorf("Unexpected output:\n%s", buf.String())
	}

	bad := writeConfig(t, dir, "bad.json", `{"name": "bad"}`)
	buf.Reset()
	err := newCommand(&buf).Run(context.Background(), []string{"validate", bad})
	if !errors.Is(err, errInvalid) {
		t.Errorf("Expected errInvalid, got %v", err)
	}

	err = newCommand(&buf).Run(context.Background(), []string{"validate", t.TempDir()})
	if err == nil || !strings.Contains(err.Error(), "no config files") {
		t.Errorf("Expected no config files error, got %v", err)
	}
}
