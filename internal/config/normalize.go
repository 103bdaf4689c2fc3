package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"scribe/internal/language"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeScheduler()
	c.normalizeTranscription()
	c.normalizeCloud()
	c.normalizeLLM()
	c.normalizeMedia()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}

	derived := []struct {
		key   string
		value *string
		name  string
	}{
		{"paths.results_dir", &c.Paths.ResultsDir, "results"},
		{"paths.cache_dir", &c.Paths.CacheDir, "cache"},
		{"paths.downloads_dir", &c.Paths.DownloadsDir, "downloads"},
		{"paths.temp_dir", &c.Paths.TempDir, "temp"},
		{"paths.log_dir", &c.Paths.LogDir, "logs"},
	}
	for _, entry := range derived {
		if strings.TrimSpace(*entry.value) == "" {
			*entry.value = filepath.Join(c.Paths.DataDir, entry.name)
		}
		if *entry.value, err = expandPath(*entry.value); err != nil {
			return fmt.Errorf("%s: %w", entry.key, err)
		}
	}
	return nil
}

func (c *Config) normalizeScheduler() {
	c.Scheduler.WorkerBinary = strings.TrimSpace(c.Scheduler.WorkerBinary)
	c.Scheduler.DefaultMode = strings.ToLower(strings.TrimSpace(c.Scheduler.DefaultMode))
	if c.Scheduler.DefaultMode == "" {
		c.Scheduler.DefaultMode = defaultMode
	}
}

func (c *Config) normalizeTranscription() {
	c.Transcription.Model = strings.TrimSpace(c.Transcription.Model)
	if c.Transcription.Model == "" {
		c.Transcription.Model = defaultTranscriptionModel
	}
	c.Transcription.Language = strings.TrimSpace(c.Transcription.Language)
	if code := language.ToISO2(c.Transcription.Language); code != "" {
		c.Transcription.Language = code
	}
	c.Transcription.VADMethod = strings.ToLower(strings.TrimSpace(c.Transcription.VADMethod))
	if c.Transcription.VADMethod == "" {
		c.Transcription.VADMethod = defaultVADMethod
	}
	if c.Transcription.HFToken == "" {
		if value, ok := os.LookupEnv("HUGGING_FACE_HUB_TOKEN"); ok {
			c.Transcription.HFToken = value
		} else if value, ok := os.LookupEnv("HF_TOKEN"); ok {
			c.Transcription.HFToken = value
		}
	}
	if strings.TrimSpace(c.Transcription.FallbackModel) == "" {
		c.Transcription.FallbackModel = defaultFallbackModel
	}
	if strings.TrimSpace(c.Transcription.EscalationModel) == "" {
		c.Transcription.EscalationModel = defaultEscalationModel
	}
	if strings.TrimSpace(c.Transcription.SenseVoiceCommand) == "" {
		c.Transcription.SenseVoiceCommand = defaultSenseVoiceCommand
	}
}

func (c *Config) normalizeCloud() {
	if c.Cloud.APIKey == "" {
		if value, ok := os.LookupEnv("OPENAI_API_KEY"); ok {
			c.Cloud.APIKey = value
		}
	}
	c.Cloud.BaseURL = strings.TrimSpace(c.Cloud.BaseURL)
	if c.Cloud.BaseURL == "" {
		c.Cloud.BaseURL = defaultCloudBaseURL
	}
	if strings.TrimSpace(c.Cloud.Model) == "" {
		c.Cloud.Model = defaultCloudModel
	}
}

func (c *Config) normalizeLLM() {
	if c.LLM.APIKey == "" {
		if value, ok := os.LookupEnv("SCRIBE_LLM_API_KEY"); ok {
			c.LLM.APIKey = value
		} else if value, ok := os.LookupEnv("OPENAI_API_KEY"); ok {
			c.LLM.APIKey = value
		}
	}
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	if strings.TrimSpace(c.LLM.Model) == "" {
		c.LLM.Model = defaultLLMModel
	}
}

func (c *Config) normalizeMedia() {
	c.Media.FFmpegBinary = strings.TrimSpace(c.Media.FFmpegBinary)
	c.Media.FFprobeBinary = strings.TrimSpace(c.Media.FFprobeBinary)
	c.Media.YTDLPBinary = strings.TrimSpace(c.Media.YTDLPBinary)
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
