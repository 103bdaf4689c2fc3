package summary

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"scribe/internal/logging"
	"scribe/internal/services/llm"
)

func TestDedupKeywords(t *testing.T) {
	got := DedupKeywords([]string{" Go ", "go", "", "SQLite", "sqlite", "Straße", "STRASSE", "cobra"}, 3)
	want := []string{"Go", "SQLite", "Straße"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("DedupKeywords = %v, want %v", got, want)
	}
}

func TestSummarizeParsesResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{
				"content": "```json\n{\"summary\":\" A talk. \",\"keywords\":[\"Go\",\"go\",\"queues\"]}\n```",
			}}},
			"usage": map[string]any{"prompt_tokens": 12, "completion_tokens": 3, "total_tokens": 15},
		})
	}))
	defer server.Close()

	s := NewSummarizer(llm.NewClient(llm.Config{APIKey: "k", BaseURL: server.URL, Model: "m"}), logging.NewNop())
	got := s.Summarize(context.Background(), "some transcript", "Title", "")
	if got.Summary != "A talk." || !reflect.DeepEqual(got.Keywords, []string{"Go", "queues"}) {
		t.Fatalf("unexpected result: %+v", got)
	}
	if got.Usage.TotalTokens != 15 {
		t.Fatalf("unexpected usage: %+v", got.Usage)
	}
}

func TestSummarizeDegradesOnFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	s := NewSummarizer(llm.NewClient(llm.Config{APIKey: "k", BaseURL: server.URL, Model: "m"}), logging.NewNop())
	got := s.Summarize(context.Background(), "text", "", "")
	if got.Summary != "" || len(got.Keywords) != 0 {
		t.Fatalf("expected empty result, got %+v", got)
	}
	if empty := NewSummarizer(nil, nil).Summarize(context.Background(), "text", "", ""); empty.Summary != "" {
		t.Fatalf("expected empty result without client, got %+v", empty)
	}
}

func TestComputeUsage(t *testing.T) {
	pricing := Pricing{WhisperPerMinute: 0.006, LLMPromptPerMillion: 0.15, LLMCompletionPerMillion: 0.6}
	tokens := llm.Usage{PromptTokens: 10000, CompletionTokens: 2000, TotalTokens: 12000}

	cloud := ComputeUsage(600.456, true, tokens, pricing)
	if cloud.Duration != 600.46 {
		t.Fatalf("unexpected duration %v", cloud.Duration)
	}
	if cloud.WhisperCost != 0.060046 {
		t.Fatalf("unexpected whisper cost %v", cloud.WhisperCost)
	}
	if cloud.LLMCost != 0.0027 {
		t.Fatalf("unexpected llm cost %v", cloud.LLMCost)
	}
	if cloud.TotalCost != 0.062746 || cloud.Currency != "USD" {
		t.Fatalf("unexpected total %+v", cloud)
	}

	local := ComputeUsage(600, false, tokens, pricing)
	if local.WhisperCost != 0 || local.TotalCost != 0.0027 {
		t.Fatalf("local mode must not bill transcription: %+v", local)
	}
}
