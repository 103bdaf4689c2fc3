package correction

import (
	"context"
	"log/slog"
	"strings"

	"scribe/internal/config"
	"scribe/internal/logging"
	"scribe/internal/services/llm"
	"scribe/internal/transcript"
)

const (
	defaultChunkSegments  = 120
	defaultContextChars   = 400
	defaultFallbackWindow = 30.0
)

// Options controls chunking and fallback.
type Options struct {
	Enabled        bool
	ChunkSegments  int
	ContextChars   int
	FallbackWindow float64
}

// OptionsFromConfig maps the [correction] section.
func OptionsFromConfig(cfg config.Correction) Options {
	return Options{
		Enabled:        cfg.Enabled,
		ChunkSegments:  cfg.ChunkSegments,
		ContextChars:   cfg.ContextChars,
		FallbackWindow: float64(cfg.FallbackWindow),
	}
}

// Result is the outcome of correcting a transcript.
type Result struct {
	Paragraphs     []transcript.Paragraph
	Usage          llm.Usage
	Chunks         int
	FallbackChunks int
}

// Processor runs chunked correction with per-chunk fallback.
type Processor struct {
	opts      Options
	corrector Corrector
	logger    *slog.Logger
}

// NewProcessor builds a processor. A nil corrector groups every chunk by time.
func NewProcessor(opts Options, corrector Corrector, logger *slog.Logger) *Processor {
	if opts.ChunkSegments <= 0 {
		opts.ChunkSegments = defaultChunkSegments
	}
	if opts.ContextChars < 0 {
		opts.ContextChars = defaultContextChars
	}
	if opts.FallbackWindow <= 0 {
		opts.FallbackWindow = defaultFallbackWindow
	}
	return &Processor{
		opts:      opts,
		corrector: corrector,
		logger:    logging.NewComponentLogger(logger, "correction"),
	}
}

// Process corrects segments chunk by chunk. Only context cancellation returns
// an error; corrector failures degrade the affected chunk to GroupByTime.
func (p *Processor) Process(ctx context.Context, segments []transcript.Segment, hints Hints) (Result, error) {
	logger := logging.WithContext(ctx, p.logger)
	var result Result
	previous := ""
	for _, chunk := range Chunks(segments, p.opts.ChunkSegments) {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Chunks++
		paragraphs := p.correctChunk(ctx, logger, chunk, previous, hints, &result)
		result.Paragraphs = append(result.Paragraphs, paragraphs...)
		previous = TrailingContext(paragraphs, p.opts.ContextChars)
	}
	return result, nil
}

func (p *Processor) correctChunk(ctx context.Context, logger *slog.Logger, chunk []transcript.Segment, previous string, hints Hints, result *Result) []transcript.Paragraph {
	if !p.opts.Enabled || p.corrector == nil {
		result.FallbackChunks++
		return GroupByTime(chunk, p.opts.FallbackWindow)
	}
	paragraphs, usage, err := p.corrector.Correct(ctx, chunk, previous, hints)
	result.Usage.Add(usage)
	if err != nil {
		result.FallbackChunks++
		logging.WarnWithContext(logger, "chunk correction failed; grouping by time", "correction_fallback",
			logging.Int("chunk", result.Chunks),
			logging.Int("segments", len(chunk)),
			logging.TimeSpan("window", chunk[0].Start, chunk[len(chunk)-1].End),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the [llm] endpoint, key, and model"),
			logging.String(logging.FieldImpact, "chunk keeps uncorrected text in time-based paragraphs"),
		)
		return GroupByTime(chunk, p.opts.FallbackWindow)
	}
	logger.Debug("chunk corrected",
		logging.Int("chunk", result.Chunks),
		logging.Int("paragraphs", len(paragraphs)),
		logging.Int("prompt_tokens", usage.PromptTokens),
		logging.Int("completion_tokens", usage.CompletionTokens),
	)
	return paragraphs
}

// Chunks splits segments into consecutive groups of at most size.
func Chunks(segments []transcript.Segment, size int) [][]transcript.Segment {
	if size <= 0 {
		size = defaultChunkSegments
	}
	var chunks [][]transcript.Segment
	for start := 0; start < len(segments); start += size {
		end := start + size
		if end > len(segments) {
			end = len(segments)
		}
		chunks = append(chunks, segments[start:end])
	}
	return chunks
}

// TrailingContext returns the last limit runes of the paragraphs' joined text.
func TrailingContext(paragraphs []transcript.Paragraph, limit int) string {
	if limit <= 0 || len(paragraphs) == 0 {
		return ""
	}
	parts := make([]string, 0, len(paragraphs))
	for _, p := range paragraphs {
		if text := strings.TrimSpace(p.Text); text != "" {
			parts = append(parts, text)
		}
	}
	runes := []rune(strings.Join(parts, " "))
	if len(runes) > limit {
		runes = runes[len(runes)-limit:]
	}
	return strings.TrimSpace(string(runes))
}
