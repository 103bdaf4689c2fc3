package repair

import "scribe/internal/config"

// Options holds the detector and range thresholds.
type Options struct {
	Iterations         int
	GapThreshold       float64
	MinCPS             float64
	DensityMinDuration float64
	MergeTolerance     int
	Expand             int
	Padding            float64
	RepeatMinCount     int
	PunctuationLimit   int
	CharRepeatLimit    int
	PunctRatio         float64
	MinTextLength      int
}

// OptionsFromConfig copies the [repair] section.
func OptionsFromConfig(cfg config.Repair) Options {
	return Options{
		Iterations:         cfg.Iterations,
		GapThreshold:       cfg.GapThreshold,
		MinCPS:             cfg.MinCPS,
		DensityMinDuration: cfg.DensityMinDuration,
		MergeTolerance:     cfg.MergeTolerance,
		Expand:             cfg.Expand,
		Padding:            cfg.Padding,
		RepeatMinCount:     cfg.RepeatMinCount,
		PunctuationLimit:   cfg.PunctuationLimit,
		CharRepeatLimit:    cfg.CharRepeatLimit,
		PunctRatio:         cfg.PunctRatio,
		MinTextLength:      cfg.MinTextLength,
	}
}

// DefaultOptions returns the shipped thresholds.
func DefaultOptions() Options {
	defaults := config.Default()
	return OptionsFromConfig(defaults.Repair)
}
