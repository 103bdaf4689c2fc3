package config

import (
	"errors"
	"fmt"
	"sort"

	"scribe/internal/language"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateScheduler(); err != nil {
		return err
	}
	if err := c.validateRepair(); err != nil {
		return err
	}
	if err := c.validateTranscription(); err != nil {
		return err
	}
	if err := c.validateCorrection(); err != nil {
		return err
	}
	if err := c.validatePricing(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateScheduler() error {
	if err := ensurePositiveMap(map[string]int{
		"scheduler.idle_interval":        c.Scheduler.IdleInterval,
		"scheduler.error_retry_interval": c.Scheduler.ErrorRetryInterval,
		"scheduler.reaper_interval":      c.Scheduler.ReaperInterval,
		"scheduler.processing_timeout":   c.Scheduler.ProcessingTimeout,
		"scheduler.queued_timeout":       c.Scheduler.QueuedTimeout,
		"scheduler.worker_slots":         c.Scheduler.WorkerSlots,
	}); err != nil {
		return err
	}
	if c.Scheduler.MaxRetries < 0 {
		return errors.New("scheduler.max_retries must be zero or positive")
	}
	if c.Scheduler.QueuedTimeout <= c.Scheduler.ProcessingTimeout {
		return errors.New("scheduler.queued_timeout must be greater than scheduler.processing_timeout")
	}
	if c.Scheduler.WorkerNice < 0 || c.Scheduler.WorkerNice > 19 {
		return errors.New("scheduler.worker_nice must be between 0 and 19")
	}
	switch c.Scheduler.DefaultMode {
	case "local", "cloud":
	default:
		return fmt.Errorf("scheduler.default_mode: unsupported value %q", c.Scheduler.DefaultMode)
	}
	return nil
}

func (c *Config) validateRepair() error {
	if c.Repair.Iterations < 1 {
		return errors.New("repair.iterations must be at least 1")
	}
	if c.Repair.GapThreshold <= 0 {
		return errors.New("repair.gap_threshold must be positive")
	}
	if c.Repair.MinCPS <= 0 {
		return errors.New("repair.min_cps must be positive")
	}
	if c.Repair.DensityMinDuration <= 0 {
		return errors.New("repair.density_min_duration must be positive")
	}
	if c.Repair.MergeTolerance < 1 {
		return errors.New("repair.merge_tolerance must be at least 1")
	}
	if c.Repair.Expand < 0 {
		return errors.New("repair.expand must be zero or positive")
	}
	if c.Repair.Padding < 0 {
		return errors.New("repair.padding must be zero or positive")
	}
	if c.Repair.RepeatMinCount < 2 {
		return errors.New("repair.repeat_min_count must be at least 2")
	}
	if c.Repair.PunctRatio <= 0 || c.Repair.PunctRatio >= 1 {
		return errors.New("repair.punct_ratio must be between 0 and 1")
	}
	return ensurePositiveMap(map[string]int{
		"repair.punctuation_limit": c.Repair.PunctuationLimit,
		"repair.char_repeat_limit": c.Repair.CharRepeatLimit,
		"repair.min_text_length":   c.Repair.MinTextLength,
	})
}

func (c *Config) validateTranscription() error {
	switch c.Transcription.VADMethod {
	case "silero", "pyannote":
	default:
		return fmt.Errorf("transcription.vad_method: unsupported value %q", c.Transcription.VADMethod)
	}
	if c.Transcription.Language != "" && language.ToISO2(c.Transcription.Language) == "" {
		return fmt.Errorf("transcription.language: unrecognized language %q (use an ISO 639-1 code)", c.Transcription.Language)
	}
	if c.Transcription.FallbackModel == c.Transcription.Model {
		return errors.New("transcription.fallback_model must differ from transcription.model")
	}
	if c.Transcription.EscalationModel == c.Transcription.Model {
		return errors.New("transcription.escalation_model must differ from transcription.model")
	}
	return nil
}

func (c *Config) validateCorrection() error {
	return ensurePositiveMap(map[string]int{
		"correction.chunk_segments":  c.Correction.ChunkSegments,
		"correction.fallback_window": c.Correction.FallbackWindow,
		"llm.timeout_seconds":        c.LLM.TimeoutSeconds,
		"cloud.timeout_seconds":      c.Cloud.TimeoutSeconds,
		"media.download_attempts":    c.Media.DownloadAttempts,
	})
}

func (c *Config) validatePricing() error {
	if c.Pricing.WhisperPerMinute < 0 || c.Pricing.LLMPromptPerMillion < 0 || c.Pricing.LLMCompletionPerMillion < 0 {
		return errors.New("pricing values must be zero or positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must be zero or positive")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if values[key] <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
