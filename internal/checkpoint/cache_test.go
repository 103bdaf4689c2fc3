package checkpoint

import (
	"os"
	"path/filepath"
	"testing"

	"scribe/internal/logging"
	"scribe/internal/transcript"
)

func TestStoreAndLoad(t *testing.T) {
	cache := New(t.TempDir(), logging.NewNop())
	key := Key{SourceID: "dQw4w9WgXcQ", Mode: "local", Backend: "whisperx:large-v3-turbo"}

	var missing []transcript.Segment
	if cache.Load(key, StageRaw, &missing) {
		t.Fatal("expected miss on empty cache")
	}

	segments := []transcript.Segment{{Start: 0, End: 1.5, Text: "hello"}}
	if err := cache.Store(key, StageRaw, segments); err != nil {
		t.Fatalf("Store: %v", err)
	}
	var loaded []transcript.Segment
	if !cache.Load(key, StageRaw, &loaded) {
		t.Fatal("expected hit after store")
	}
	if len(loaded) != 1 || loaded[0].Text != "hello" || loaded[0].End != 1.5 {
		t.Fatalf("unexpected segments: %+v", loaded)
	}
	if filepath.Base(cache.Path(key, StageRaw)) != "dQw4w9WgXcQ_local_whisperx_large-v3-turbo_raw.json" {
		t.Fatalf("unexpected path %s", cache.Path(key, StageRaw))
	}

	other := key
	other.Mode = "cloud"
	if cache.Load(other, StageRaw, &loaded) {
		t.Fatal("expected mode to be part of the key")
	}
}

func TestLoadTreatsCorruptFileAsMiss(t *testing.T) {
	cache := New(t.TempDir(), logging.NewNop())
	key := Key{SourceID: "abc", Mode: "local", Backend: "b"}
	if err := os.WriteFile(cache.Path(key, StageRepaired), []byte("{broken"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	var out []transcript.Segment
	if cache.Load(key, StageRepaired, &out) {
		t.Fatal("expected corrupt checkpoint to be a miss")
	}
}

func TestInvalidateRemovesAllStages(t *testing.T) {
	cache := New(t.TempDir(), logging.NewNop())
	key := Key{SourceID: "abc", Mode: "local", Backend: "b"}
	for _, stage := range []Stage{StageRaw, StageRepaired} {
		if err := cache.Store(key, stage, []int{1}); err != nil {
			t.Fatalf("Store %s: %v", stage, err)
		}
	}
	if err := cache.Invalidate(key); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	var out []int
	if cache.Load(key, StageRaw, &out) || cache.Load(key, StageRepaired, &out) {
		t.Fatal("expected all stages removed")
	}
}

func TestDisabledCache(t *testing.T) {
	cache := New("", nil)
	if err := cache.Store(Key{SourceID: "x"}, StageRaw, 1); err != nil {
		t.Fatalf("Store on disabled cache: %v", err)
	}
	var out int
	if cache.Load(Key{SourceID: "x"}, StageRaw, &out) {
		t.Fatal("disabled cache must always miss")
	}
}
