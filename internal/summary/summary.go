package summary

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/text/cases"

	"scribe/internal/logging"
	"scribe/internal/services"
	"scribe/internal/services/llm"
)

const (
	defaultMaxInputRunes = 12000
	maxKeywords          = 10
)

const systemPrompt = `You summarize transcripts. Reply with JSON only: {"summary":"<= 3 sentences in the transcript's language","keywords":["up to 10 short keywords"]}`

// Completer is the chat completion capability the summarizer needs.
type Completer interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (llm.Completion, error)
}

// Result holds the derived summary fields.
type Result struct {
	Summary  string    `json:"summary"`
	Keywords []string  `json:"keywords"`
	Usage    llm.Usage `json:"-"`
}

// Summarizer produces summaries through a chat completion backend.
type Summarizer struct {
	client        Completer
	maxInputRunes int
	logger        *slog.Logger
}

// NewSummarizer wraps client. A nil client yields empty summaries.
func NewSummarizer(client Completer, logger *slog.Logger) *Summarizer {
	return &Summarizer{
		client:        client,
		maxInputRunes: defaultMaxInputRunes,
		logger:        logging.NewComponentLogger(logger, "summary"),
	}
}

// Summarize returns the summary and keywords for text. Backend failures are
// logged and produce an empty Result carrying whatever usage was reported.
func (s *Summarizer) Summarize(ctx context.Context, text, title, description string) Result {
	text = strings.TrimSpace(text)
	if s == nil || s.client == nil || text == "" {
		return Result{}
	}
	logger := logging.WithContext(ctx, s.logger)

	completion, err := s.client.CompleteJSON(ctx, systemPrompt, buildPrompt(text, title, description, s.maxInputRunes))
	if err != nil {
		s.warn(logger, services.Wrap(services.ErrCorrectionBackend, "summary", "llm", "", err))
		return Result{Usage: completion.Usage}
	}
	var payload struct {
		Summary  string   `json:"summary"`
		Keywords []string `json:"keywords"`
	}
	if err := llm.DecodeJSON(completion.Content, &payload); err != nil {
		s.warn(logger, services.Wrap(services.ErrCorrectionBackend, "summary", "parse", "", err))
		return Result{Usage: completion.Usage}
	}
	return Result{
		Summary:  strings.TrimSpace(payload.Summary),
		Keywords: DedupKeywords(payload.Keywords, maxKeywords),
		Usage:    completion.Usage,
	}
}

func (s *Summarizer) warn(logger *slog.Logger, err error) {
	logging.WarnWithContext(logger, "summary generation failed", "summary_failed",
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check the [llm] endpoint, key, and model"),
		logging.String(logging.FieldImpact, "report has empty summary and keywords"),
	)
}

func buildPrompt(text, title, description string, limit int) string {
	var b strings.Builder
	if title = strings.TrimSpace(title); title != "" {
		fmt.Fprintf(&b, "Title: %s\n", title)
	}
	if description = strings.TrimSpace(description); description != "" {
		fmt.Fprintf(&b, "Description: %s\n", description)
	}
	runes := []rune(text)
	if limit > 0 && len(runes) > limit {
		runes = runes[:limit]
	}
	b.WriteString("Transcript:\n")
	b.WriteString(string(runes))
	return b.String()
}

// DedupKeywords trims keywords, drops empties and case-insensitive duplicates
// (first spelling wins), and keeps at most limit entries.
func DedupKeywords(keywords []string, limit int) []string {
	folder := cases.Fold()
	seen := make(map[string]struct{}, len(keywords))
	out := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		key := folder.String(kw)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, kw)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
