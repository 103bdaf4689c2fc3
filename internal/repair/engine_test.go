package repair

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"scribe/internal/backend"
	"scribe/internal/logging"
	"scribe/internal/transcript"
)

type fakeExtractor struct {
	windows [][2]float64
	err     error
}

func (f *fakeExtractor) ExtractWindow(_ context.Context, _ string, start, end float64, dest string) error {
	f.windows = append(f.windows, [2]float64{start, end})
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(dest, []byte("wav"), 0o644)
}

type fakeTranscriber struct {
	name  string
	calls int
	err   error
	out   []transcript.Segment
}

func (f *fakeTranscriber) Transcribe(context.Context, string, backend.Options) ([]transcript.Segment, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.out, nil
}

func (f *fakeTranscriber) Name() string { return f.name }

func writeAudio(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audio.m4a")
	if err := os.WriteFile(path, []byte("audio"), 0o644); err != nil {
		t.Fatalf("write audio: %v", err)
	}
	return path
}

func gapTranscript() []transcript.Segment {
	return []transcript.Segment{
		{Start: 0, End: 2, Text: "第一句话在这里"},
		{Start: 2, End: 4, Text: "第二句话在这里"},
		{Start: 10, End: 12, Text: "第三句话在这里"},
		{Start: 12, End: 14, Text: "第四句话在这里"},
		{Start: 14, End: 16, Text: "第五句话在这里"},
	}
}

func TestSelectionRoutesByTagsAndRound(t *testing.T) {
	sel := DefaultSelection(backend.KindWhisperX)
	if got := sel.Choose([]string{"gap_6.0s"}, 1); got != backend.KindSenseVoice {
		t.Fatalf("round 1 gap: got %s", got)
	}
	if got := sel.Choose([]string{TagTooShort, "low_density_0.5cps"}, 2); got != backend.KindWhisperSmall {
		t.Fatalf("round 2 density: got %s", got)
	}
	if got := sel.Choose([]string{TagRepeatCycle}, 1); got != backend.KindWhisperBase {
		t.Fatalf("hallucination: got %s", got)
	}
	if got := DefaultSelection(backend.KindWhisperBase).Choose([]string{TagCharRepeat}, 1); got == backend.KindWhisperBase {
		t.Fatal("selection must never return the primary backend")
	}
	got := sel.Candidates([]string{TagCharRepeat}, 1)
	want := []backend.Kind{backend.KindWhisperBase, backend.KindWhisperSmall, backend.KindSenseVoice}
	if len(got) != len(want) {
		t.Fatalf("candidates: got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("candidates: got %v want %v", got, want)
		}
	}
}

func TestEngineAppendsShiftedAlternatives(t *testing.T) {
	sense := &fakeTranscriber{name: "sensevoice:small", out: []transcript.Segment{{Start: 0.5, End: 2, Text: "恢复的文本"}}}
	reg := backend.NewRegistry()
	reg.Register(backend.KindSenseVoice, sense)
	reg.Register(backend.KindWhisperBase, &fakeTranscriber{name: "whisperx:base"})
	extractor := &fakeExtractor{}

	opts := DefaultOptions()
	opts.Iterations = 1
	engine := NewEngine(opts, DefaultSelection(backend.KindWhisperX), reg, extractor, logging.NewNop())

	segments := gapTranscript()
	originals := transcript.Clone(segments)
	result, err := engine.Run(context.Background(), segments, Request{AudioPath: writeAudio(t), MediaDuration: 16})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Ranges != 1 || result.Repaired != 1 || result.Unresolved != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if len(extractor.windows) != 1 || extractor.windows[0] != [2]float64{1.5, 14.5} {
		t.Fatalf("unexpected windows: %v", extractor.windows)
	}
	for i := 1; i <= 3; i++ {
		alts := segments[i].Alternatives
		if len(alts) != 1 || alts[0].Backend != "sensevoice" || alts[0].Round != 1 {
			t.Fatalf("segment %d: unexpected alternatives %+v", i, alts)
		}
		if alts[0].Segments[0].Start != 2 {
			t.Fatalf("expected shifted start 2, got %v", alts[0].Segments[0].Start)
		}
	}
	if len(segments[0].Alternatives) != 0 || len(segments[4].Alternatives) != 0 {
		t.Fatal("segments outside the range must not receive alternatives")
	}
	for i := range segments {
		if segments[i].Text != originals[i].Text {
			t.Fatalf("segment %d text changed", i)
		}
	}
}

func TestEngineMarksUnresolvedWithoutLosingText(t *testing.T) {
	reg := backend.NewRegistry()
	reg.Register(backend.KindSenseVoice, &fakeTranscriber{name: "sensevoice", err: errors.New("cuda driver crashed")})

	engine := NewEngine(DefaultOptions(), DefaultSelection(backend.KindWhisperX), reg, &fakeExtractor{}, logging.NewNop())
	segments := gapTranscript()
	originals := transcript.Clone(segments)

	result, err := engine.Run(context.Background(), segments, Request{AudioPath: writeAudio(t), MediaDuration: 16})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Unresolved == 0 {
		t.Fatalf("expected unresolved ranges, got %+v", result)
	}
	for i := 1; i <= 3; i++ {
		if !segments[i].Unresolved || segments[i].RepairError == "" {
			t.Fatalf("segment %d not marked unresolved: %+v", i, segments[i])
		}
		if segments[i].Text != originals[i].Text {
			t.Fatalf("segment %d text changed", i)
		}
	}
}

func TestEngineEscalatesOnSecondRound(t *testing.T) {
	sense := &fakeTranscriber{name: "sensevoice", out: []transcript.Segment{{Start: 0, End: 1, Text: "一"}}}
	small := &fakeTranscriber{name: "whisperx:small", out: []transcript.Segment{{Start: 0, End: 1, Text: "二"}}}
	reg := backend.NewRegistry()
	reg.Register(backend.KindSenseVoice, sense)
	reg.Register(backend.KindWhisperSmall, small)

	opts := DefaultOptions()
	opts.Iterations = 2
	engine := NewEngine(opts, DefaultSelection(backend.KindWhisperX), reg, &fakeExtractor{}, logging.NewNop())
	segments := gapTranscript()
	result, err := engine.Run(context.Background(), segments, Request{AudioPath: writeAudio(t)})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Rounds != 2 || sense.calls != 1 || small.calls != 1 {
		t.Fatalf("expected one call per round: result=%+v sense=%d small=%d", result, sense.calls, small.calls)
	}
	alts := segments[2].Alternatives
	if len(alts) != 2 || alts[0].Backend != "sensevoice" || alts[1].Backend != "whisper_small" {
		t.Fatalf("expected alternatives from both rounds, got %+v", alts)
	}
}

func TestEngineSkipsBackendRunningThePrimaryModel(t *testing.T) {
	base := &fakeTranscriber{name: "whisperx:base", out: []transcript.Segment{{Start: 0, End: 1, Text: "同"}}}
	small := &fakeTranscriber{name: "whisperx:small", out: []transcript.Segment{{Start: 0, End: 1, Text: "大家"}}}
	reg := backend.NewRegistry()
	reg.Register(backend.KindWhisperBase, base)
	reg.Register(backend.KindWhisperSmall, small)

	opts := DefaultOptions()
	opts.Iterations = 1
	engine := NewEngine(opts, DefaultSelection(backend.KindWhisperX), reg, &fakeExtractor{}, logging.NewNop())
	segments := []transcript.Segment{
		{Start: 0, End: 2, Text: "你好大家今天"},
		{Start: 2, End: 4, Text: "哈哈哈哈哈哈"},
		{Start: 4, End: 6, Text: "我们继续讲课"},
	}
	result, err := engine.Run(context.Background(), segments, Request{AudioPath: writeAudio(t), MediaDuration: 6, PrimaryBackend: "whisperx:base"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Repaired == 0 || base.calls != 0 || small.calls == 0 {
		t.Fatalf("expected the range to avoid the primary model: result=%+v base=%d small=%d", result, base.calls, small.calls)
	}
	alts := segments[1].Alternatives
	if len(alts) != 1 || alts[0].Backend != "whisper_small" {
		t.Fatalf("unexpected alternatives %+v", alts)
	}
}

func TestEngineStopsEarlyOnCleanTranscript(t *testing.T) {
	tr := &fakeTranscriber{name: "base"}
	reg := backend.NewRegistry()
	reg.Register(backend.KindWhisperBase, tr)
	engine := NewEngine(DefaultOptions(), DefaultSelection(backend.KindWhisperX), reg, &fakeExtractor{}, logging.NewNop())

	segments := []transcript.Segment{
		{Start: 0, End: 2, Text: "你好大家今天"},
		{Start: 2, End: 4, Text: "我们继续讲课"},
	}
	result, err := engine.Run(context.Background(), segments, Request{AudioPath: writeAudio(t)})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Rounds != 0 || tr.calls != 0 {
		t.Fatalf("expected no repair work, got %+v calls=%d", result, tr.calls)
	}
}

func TestEngineSkipsWhenAudioMissing(t *testing.T) {
	engine := NewEngine(DefaultOptions(), DefaultSelection(backend.KindWhisperX), backend.NewRegistry(), &fakeExtractor{}, logging.NewNop())
	segments := gapTranscript()
	result, err := engine.Run(context.Background(), segments, Request{AudioPath: filepath.Join(t.TempDir(), "gone.m4a")})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !result.Skipped {
		t.Fatal("expected repair to be skipped")
	}
	if len(segments[2].QualityIssues) != 0 {
		t.Fatal("skipped repair should not scan segments")
	}
}
