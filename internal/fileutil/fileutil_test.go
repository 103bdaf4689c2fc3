package fileutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWriteJSONRoundTripAndNoTempLeftovers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "value.json")
	in := map[string]int{"progress": 80}
	if err := WriteJSON(path, in); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	var out map[string]int
	if err := ReadJSON(path, &out); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if out["progress"] != 80 {
		t.Fatalf("unexpected value %v", out)
	}
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the final file, got %d entries", len(entries))
	}
}

func TestReadJSONMissing(t *testing.T) {
	var out map[string]any
	err := ReadJSON(filepath.Join(t.TempDir(), "missing.json"), &out)
	if !IsNotExist(err) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
	if Exists(filepath.Join(t.TempDir(), "missing.json")) {
		t.Fatal("expected Exists to be false")
	}
}
