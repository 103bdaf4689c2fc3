package worker

import (
	"log/slog"
	"time"

	"scribe/internal/backend"
	"scribe/internal/checkpoint"
	"scribe/internal/config"
	"scribe/internal/correction"
	"scribe/internal/media"
	"scribe/internal/queue"
	"scribe/internal/repair"
	"scribe/internal/results"
	"scribe/internal/services/llm"
	"scribe/internal/services/openai"
	"scribe/internal/services/sensevoice"
	"scribe/internal/services/whisperx"
	"scribe/internal/summary"
)

// BuildRegistry constructs every transcription backend from configuration.
func BuildRegistry(cfg *config.Config) *backend.Registry {
	registry := backend.NewRegistry()
	tc := cfg.Transcription
	whisperFor := func(model string) *whisperx.Service {
		return whisperx.NewService(whisperx.Config{
			Model:       model,
			CUDAEnabled: tc.CUDAEnabled,
			VADMethod:   tc.VADMethod,
			HFToken:     tc.HFToken,
			Language:    tc.Language,
		})
	}
	registry.Register(backend.KindWhisperX, whisperFor(tc.Model))
	registry.Register(backend.KindWhisperBase, whisperFor(tc.FallbackModel))
	registry.Register(backend.KindWhisperSmall, whisperFor(tc.EscalationModel))
	registry.Register(backend.KindSenseVoice, sensevoice.NewService(sensevoice.Config{
		Command:     tc.SenseVoiceCommand,
		Model:       tc.SenseVoiceModel,
		CUDAEnabled: tc.CUDAEnabled,
	}))
	registry.Register(backend.KindCloud, openai.New(openai.Config{
		APIKey:  cfg.Cloud.APIKey,
		BaseURL: cfg.Cloud.BaseURL,
		Model:   cfg.Cloud.Model,
		Timeout: time.Duration(cfg.Cloud.TimeoutSeconds) * time.Second,
	}))
	return registry
}

// NewFromConfig builds a Runner for mode with the full production stack. The
// store is only used to mark completion and record diagnostics.
func NewFromConfig(cfg *config.Config, mode queue.Mode, store TaskStore, logger *slog.Logger) (*Runner, error) {
	sink, err := results.NewFileSink(cfg.Paths.ResultsDir)
	if err != nil {
		return nil, err
	}
	registry := BuildRegistry(cfg)

	var completer *llm.Client
	if llmCfg := cfg.GetLLM(); llmCfg.APIKey != "" {
		completer = llm.NewClient(llm.Config{
			APIKey:         llmCfg.APIKey,
			BaseURL:        llmCfg.BaseURL,
			Model:          llmCfg.Model,
			Referer:        llmCfg.Referer,
			Title:          llmCfg.Title,
			TimeoutSeconds: llmCfg.TimeoutSeconds,
		})
	}

	deps := Dependencies{
		Fetcher:    media.NewFetcher(cfg, logger),
		Prober:     media.NewProber(cfg),
		Backends:   registry,
		Repairer:   repair.NewEngine(repair.OptionsFromConfig(cfg.Repair), repair.DefaultSelection(primaryKind(mode)), registry, media.NewExtractor(cfg), logger),
		Corrector:  correction.NewProcessor(correction.OptionsFromConfig(cfg.Correction), correctorFor(completer), logger),
		Summarizer: summary.NewSummarizer(completerOrNil(completer), logger),
		Cache:      checkpoint.New(cfg.Paths.CacheDir, logger),
		Sink:       sink,
		Store:      store,
		Logger:     logger,
	}
	return NewRunner(deps, Settings{
		RepairEnabled: cfg.Repair.Enabled,
		Language:      cfg.Transcription.Language,
		TempDir:       cfg.Paths.TempDir,
		Pricing:       summary.PricingFromConfig(cfg.Pricing),
	}), nil
}

// A typed nil *llm.Client must not reach the interfaces, or nil checks fail.
func correctorFor(client *llm.Client) correction.Corrector {
	if client == nil {
		return nil
	}
	return correction.NewLLMCorrector(client)
}

func completerOrNil(client *llm.Client) summary.Completer {
	if client == nil {
		return nil
	}
	return client
}
