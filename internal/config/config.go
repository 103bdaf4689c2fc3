package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir      string `toml:"data_dir"`
	ResultsDir   string `toml:"results_dir"`
	CacheDir     string `toml:"cache_dir"`
	DownloadsDir string `toml:"downloads_dir"`
	TempDir      string `toml:"temp_dir"`
	LogDir       string `toml:"log_dir"`
}

// Scheduler contains claim loop, dispatch, and reaper settings. Durations are in seconds.
type Scheduler struct {
	IdleInterval       int    `toml:"idle_interval"`
	ErrorRetryInterval int    `toml:"error_retry_interval"`
	ReaperInterval     int    `toml:"reaper_interval"`
	ProcessingTimeout  int    `toml:"processing_timeout"`
	QueuedTimeout      int    `toml:"queued_timeout"`
	MaxRetries         int    `toml:"max_retries"`
	WorkerSlots        int    `toml:"worker_slots"`
	WorkerBinary       string `toml:"worker_binary"`
	WorkerNice         int    `toml:"worker_nice"`
	DefaultMode        string `toml:"default_mode"`
}

// Repair contains the quality-repair thresholds.
type Repair struct {
	Enabled            bool    `toml:"enabled"`
	Iterations         int     `toml:"iterations"`
	GapThreshold       float64 `toml:"gap_threshold"`
	MinCPS             float64 `toml:"min_cps"`
	DensityMinDuration float64 `toml:"density_min_duration"`
	MergeTolerance     int     `toml:"merge_tolerance"`
	Expand             int     `toml:"expand"`
	Padding            float64 `toml:"padding"`
	RepeatMinCount     int     `toml:"repeat_min_count"`
	PunctuationLimit   int     `toml:"punctuation_limit"`
	CharRepeatLimit    int     `toml:"char_repeat_limit"`
	PunctRatio         float64 `toml:"punct_ratio"`
	MinTextLength      int     `toml:"min_text_length"`
}

// Transcription contains the local speech recognition settings.
type Transcription struct {
	Model             string `toml:"model"`
	Language          string `toml:"language"`
	CUDAEnabled       bool   `toml:"cuda_enabled"`
	VADMethod         string `toml:"vad_method"`
	HFToken           string `toml:"hf_token"`
	FallbackModel     string `toml:"fallback_model"`
	EscalationModel   string `toml:"escalation_model"`
	SenseVoiceCommand string `toml:"sensevoice_command"`
	SenseVoiceModel   string `toml:"sensevoice_model"`
}

// Cloud contains the hosted speech-to-text settings used by the "cloud" mode.
type Cloud struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// LLM contains the chat completion connection settings used for correction and summaries.
type LLM struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	Referer        string `toml:"referer"`
	Title          string `toml:"title"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Correction contains chunked correction settings.
type Correction struct {
	Enabled        bool `toml:"enabled"`
	ChunkSegments  int  `toml:"chunk_segments"`
	ContextChars   int  `toml:"context_chars"`
	FallbackWindow int  `toml:"fallback_window"`
}

// Pricing contains the unit prices used for usage accounting (USD).
type Pricing struct {
	WhisperPerMinute        float64 `toml:"whisper_per_minute"`
	LLMPromptPerMillion     float64 `toml:"llm_prompt_per_million"`
	LLMCompletionPerMillion float64 `toml:"llm_completion_per_million"`
}

// Media contains external media tool settings.
type Media struct {
	FFmpegBinary     string `toml:"ffmpeg_binary"`
	FFprobeBinary    string `toml:"ffprobe_binary"`
	YTDLPBinary      string `toml:"ytdlp_binary"`
	DownloadAttempts int    `toml:"download_attempts"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for Scribe.
//
// Configuration sections by subsystem:
//   - Paths: data, results, cache, downloads, temp, and log directories
//   - Scheduler: claim loop timing, reaper cutoffs, retry cap, worker dispatch
//   - Repair: quality-repair detector thresholds and iteration count
//   - Transcription: local recognizer models and fallbacks
//   - Cloud: hosted speech-to-text
//   - LLM: chat completion endpoint for correction and summaries
//   - Correction: chunk sizing and fallback grouping
//   - Pricing: usage cost accounting
//   - Media: ffmpeg, ffprobe, and yt-dlp binaries
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	Scheduler     Scheduler     `toml:"scheduler"`
	Repair        Repair        `toml:"repair"`
	Transcription Transcription `toml:"transcription"`
	Cloud         Cloud         `toml:"cloud"`
	LLM           LLM           `toml:"llm"`
	Correction    Correction    `toml:"correction"`
	Pricing       Pricing       `toml:"pricing"`
	Media         Media         `toml:"media"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("scribe.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates every directory the scheduler and worker write into.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{
		c.Paths.DataDir,
		c.Paths.ResultsDir,
		c.Paths.CacheDir,
		c.Paths.DownloadsDir,
		c.Paths.TempDir,
		c.Paths.LogDir,
	} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// QueueDBPath returns the task store database location.
func (c *Config) QueueDBPath() string {
	return filepath.Join(c.Paths.DataDir, "queue.db")
}

// SchedulerLockPath returns the single-instance lock file for the scheduler.
func (c *Config) SchedulerLockPath() string {
	return filepath.Join(c.Paths.LogDir, "scheduler.lock")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// LLMConfig contains the resolved chat completion settings.
type LLMConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	Referer        string
	Title          string
	TimeoutSeconds int
}

// GetLLM returns the shared LLM connection settings.
func (c *Config) GetLLM() LLMConfig {
	return LLMConfig{
		APIKey:         strings.TrimSpace(c.LLM.APIKey),
		BaseURL:        strings.TrimSpace(c.LLM.BaseURL),
		Model:          strings.TrimSpace(c.LLM.Model),
		Referer:        strings.TrimSpace(c.LLM.Referer),
		Title:          strings.TrimSpace(c.LLM.Title),
		TimeoutSeconds: c.LLM.TimeoutSeconds,
	}
}

// FFmpegBinary returns the ffmpeg executable used for audio window extraction.
func (c *Config) FFmpegBinary() string {
	if value := strings.TrimSpace(c.Media.FFmpegBinary); value != "" {
		return value
	}
	return defaultFFmpegBinary
}

// FFprobeBinary returns the ffprobe executable used for media duration probing.
func (c *Config) FFprobeBinary() string {
	if value := strings.TrimSpace(c.Media.FFprobeBinary); value != "" {
		return value
	}
	return defaultFFprobeBinary
}

// YTDLPBinary returns the downloader executable used for remote sources.
func (c *Config) YTDLPBinary() string {
	if value := strings.TrimSpace(c.Media.YTDLPBinary); value != "" {
		return value
	}
	return defaultYTDLPBinary
}
