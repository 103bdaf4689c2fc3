package correction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"scribe/internal/logging"
	"scribe/internal/services"
	"scribe/internal/services/llm"
	"scribe/internal/transcript"
)

type scriptedCorrector struct {
	contexts []string
	fail     map[int]bool
	calls    int
}

func (s *scriptedCorrector) Correct(_ context.Context, chunk []transcript.Segment, trailing string, _ Hints) ([]transcript.Paragraph, llm.Usage, error) {
	s.calls++
	s.contexts = append(s.contexts, trailing)
	usage := llm.Usage{PromptTokens: 100, CompletionTokens: 10, TotalTokens: 110}
	if s.fail[s.calls] {
		return nil, usage, services.Wrap(services.ErrCorrectionBackend, "correction", "parse", "", errors.New("bad json"))
	}
	texts := make([]string, 0, len(chunk))
	for _, seg := range chunk {
		texts = append(texts, strings.ToUpper(seg.Text))
	}
	return []transcript.Paragraph{{Start: chunk[0].Start, Text: strings.Join(texts, " ")}}, usage, nil
}

func numberedSegments(n int) []transcript.Segment {
	segments := make([]transcript.Segment, n)
	for i := range segments {
		segments[i] = transcript.Segment{Start: float64(i * 5), End: float64(i*5 + 4), Text: fmt.Sprintf("s%d", i)}
	}
	return segments
}

func TestProcessCarriesTrailingContext(t *testing.T) {
	corrector := &scriptedCorrector{}
	proc := NewProcessor(Options{Enabled: true, ChunkSegments: 2, ContextChars: 5, FallbackWindow: 30}, corrector, logging.NewNop())

	result, err := proc.Process(context.Background(), numberedSegments(5), Hints{})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if result.Chunks != 3 || result.FallbackChunks != 0 {
		t.Fatalf("unexpected chunk counts: %+v", result)
	}
	want := []string{"", "S0 S1", "S2 S3"}
	for i, w := range want {
		if corrector.contexts[i] != w {
			t.Fatalf("chunk %d context = %q, want %q", i, corrector.contexts[i], w)
		}
	}
	if result.Usage.PromptTokens != 300 || result.Usage.CompletionTokens != 30 {
		t.Fatalf("unexpected usage: %+v", result.Usage)
	}
	if len(result.Paragraphs) != 3 || result.Paragraphs[2].Text != "S4" {
		t.Fatalf("unexpected paragraphs: %+v", result.Paragraphs)
	}
}

func TestProcessFallsBackPerChunk(t *testing.T) {
	corrector := &scriptedCorrector{fail: map[int]bool{2: true}}
	proc := NewProcessor(Options{Enabled: true, ChunkSegments: 2, ContextChars: 100, FallbackWindow: 30}, corrector, logging.NewNop())

	result, err := proc.Process(context.Background(), numberedSegments(6), Hints{})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if result.FallbackChunks != 1 {
		t.Fatalf("expected one fallback chunk, got %d", result.FallbackChunks)
	}
	if result.Paragraphs[1].Text != "s2 s3" {
		t.Fatalf("expected fallback grouping for chunk 2, got %+v", result.Paragraphs[1])
	}
	// The fallback output becomes the context of the next chunk.
	if corrector.contexts[2] != "s2 s3" {
		t.Fatalf("unexpected context after fallback: %q", corrector.contexts[2])
	}
	if result.Usage.TotalTokens != 330 {
		t.Fatalf("expected usage from failed chunk to count, got %+v", result.Usage)
	}
}

func TestProcessDisabledGroupsByTime(t *testing.T) {
	proc := NewProcessor(Options{Enabled: false}, &scriptedCorrector{}, logging.NewNop())
	result, err := proc.Process(context.Background(), numberedSegments(3), Hints{})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if result.FallbackChunks != 1 || len(result.Paragraphs) != 1 || result.Paragraphs[0].Text != "s0 s1 s2" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestTrailingContextUsesRunes(t *testing.T) {
	got := TrailingContext([]transcript.Paragraph{{Text: "你好世界"}, {Text: "再见"}}, 3)
	if got != "再见" {
		t.Fatalf("unexpected context %q", got)
	}
	if got := TrailingContext(nil, 10); got != "" {
		t.Fatalf("expected empty context, got %q", got)
	}
}

func TestLLMCorrectorAgainstServer(t *testing.T) {
	var prompt string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		prompt = req.Messages[len(req.Messages)-1].Content
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{
				"content": `{"paragraphs":[{"start":0,"text":"Hello there."}]}`,
			}}},
			"usage": map[string]any{"prompt_tokens": 50, "completion_tokens": 5, "total_tokens": 55},
		})
	}))
	defer server.Close()

	client := llm.NewClient(llm.Config{APIKey: "k", BaseURL: server.URL, Model: "m"})
	corrector := NewLLMCorrector(client)
	chunk := []transcript.Segment{{
		Start: 0, End: 3, Text: "helo helo helo",
		Alternatives: []transcript.Candidate{{Backend: "whisper_base", Round: 1, Segments: []transcript.Segment{{Start: 0, End: 3, Text: "hello there"}}}},
	}}
	paragraphs, usage, err := corrector.Correct(context.Background(), chunk, "earlier text", Hints{Title: "Greetings", Language: "zh"})
	if err != nil {
		t.Fatalf("Correct: %v", err)
	}
	if len(paragraphs) != 1 || paragraphs[0].Text != "Hello there." || usage.TotalTokens != 55 {
		t.Fatalf("unexpected output: %+v %+v", paragraphs, usage)
	}
	for _, want := range []string{"Title: Greetings", "Language: Chinese", "earlier text", "[0.0] helo helo helo", "alt[whisper_base]: hello there"} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestLLMCorrectorUnparsable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"content": `{"summary":"nope"}`}}},
		})
	}))
	defer server.Close()

	corrector := NewLLMCorrector(llm.NewClient(llm.Config{APIKey: "k", BaseURL: server.URL, Model: "m"}))
	_, _, err := corrector.Correct(context.Background(), numberedSegments(1), "", Hints{})
	if !errors.Is(err, services.ErrCorrectionBackend) {
		t.Fatalf("expected ErrCorrectionBackend, got %v", err)
	}
}
