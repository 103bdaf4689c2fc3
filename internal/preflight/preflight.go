package preflight

import (
	"context"

	"scribe/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the directory and service checks for cfg. Binary checks are
// reported separately by CheckSystemDeps.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Results directory", cfg.Paths.ResultsDir),
		CheckDirectoryAccess("Cache directory", cfg.Paths.CacheDir),
		CheckDirectoryAccess("Downloads directory", cfg.Paths.DownloadsDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}

	// Correction degrades to time-window grouping without a key, so only
	// probe the endpoint when one is configured.
	if cfg.Correction.Enabled && cfg.GetLLM().APIKey != "" {
		results = append(results, CheckLLM(ctx, "Correction LLM", cfg.GetLLM()))
	}

	if cfg.Scheduler.DefaultMode == "cloud" {
		results = append(results, CheckCloudKey(cfg))
	}

	return results
}

// Failed returns the checks that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
