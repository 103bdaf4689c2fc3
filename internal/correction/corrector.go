package correction

import (
	"context"
	"fmt"
	"strings"

	"scribe/internal/language"
	"scribe/internal/services"
	"scribe/internal/services/llm"
	"scribe/internal/transcript"
)

// Hints carries task metadata that helps the corrector fix names and terms.
type Hints struct {
	Title       string
	Description string
	Language    string
}

// Corrector turns one chunk of segments into corrected paragraphs. Usage is
// reported even when the response cannot be used.
type Corrector interface {
	Correct(ctx context.Context, chunk []transcript.Segment, trailingContext string, hints Hints) ([]transcript.Paragraph, llm.Usage, error)
}

// Completer is the chat completion capability the LLM corrector needs.
type Completer interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (llm.Completion, error)
}

const systemPrompt = `You clean up machine transcripts. You receive timestamped lines in the form "[start] text".
Lines may be followed by "alt[backend]: text", an alternate recognition of the same audio; prefer it when the original line is garbled or repetitive.
Merge the fragments into coherent natural paragraphs, keep each paragraph's start time in seconds, fix obvious misrecognitions and stutters using context, and never change the meaning.
Respond with JSON only: {"paragraphs":[{"start":<seconds>,"text":"...","sentences":[{"start":<seconds>,"text":"..."}]}]}`

// LLMCorrector corrects chunks through a chat completion endpoint.
type LLMCorrector struct {
	client Completer
}

// NewLLMCorrector wraps a chat completion client.
func NewLLMCorrector(client Completer) *LLMCorrector {
	return &LLMCorrector{client: client}
}

// Correct sends the chunk and parses the paragraphs from the response.
func (c *LLMCorrector) Correct(ctx context.Context, chunk []transcript.Segment, trailingContext string, hints Hints) ([]transcript.Paragraph, llm.Usage, error) {
	if c == nil || c.client == nil {
		return nil, llm.Usage{}, services.Wrap(services.ErrCorrectionBackend, "correction", "llm", "client unavailable", nil)
	}
	completion, err := c.client.CompleteJSON(ctx, systemPrompt, buildUserPrompt(chunk, trailingContext, hints))
	if err != nil {
		return nil, completion.Usage, services.Wrap(services.ErrCorrectionBackend, "correction", "llm", "", err)
	}
	paragraphs, err := ParseParagraphs(completion.Content)
	if err != nil {
		return nil, completion.Usage, services.Wrap(services.ErrCorrectionBackend, "correction", "parse", "", err)
	}
	return paragraphs, completion.Usage, nil
}

func buildUserPrompt(chunk []transcript.Segment, trailingContext string, hints Hints) string {
	var b strings.Builder
	if title := strings.TrimSpace(hints.Title); title != "" {
		fmt.Fprintf(&b, "Title: %s\n", title)
	}
	if desc := strings.TrimSpace(hints.Description); desc != "" {
		fmt.Fprintf(&b, "Description: %s\n", desc)
	}
	if name := language.DisplayName(hints.Language); name != "" {
		fmt.Fprintf(&b, "Language: %s\n", name)
	}
	if ctxText := strings.TrimSpace(trailingContext); ctxText != "" {
		fmt.Fprintf(&b, "Previous corrected text (context only, do not repeat):\n%s\n", ctxText)
	}
	b.WriteString("Transcript:\n")
	for _, seg := range chunk {
		fmt.Fprintf(&b, "[%.1f] %s\n", seg.Start, strings.TrimSpace(seg.Text))
		if backend, alt := latestAlternative(seg); alt != "" {
			fmt.Fprintf(&b, "alt[%s]: %s\n", backend, alt)
		}
	}
	return b.String()
}

// latestAlternative returns the text of the newest candidate that overlaps seg.
func latestAlternative(seg transcript.Segment) (string, string) {
	if len(seg.Alternatives) == 0 {
		return "", ""
	}
	candidate := seg.Alternatives[len(seg.Alternatives)-1]
	var parts []string
	for _, alt := range candidate.Segments {
		if alt.End < seg.Start || alt.Start > seg.End {
			continue
		}
		if text := strings.TrimSpace(alt.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return candidate.Backend, strings.Join(parts, " ")
}
