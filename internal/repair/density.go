package repair

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"scribe/internal/transcript"
)

// Tag prefixes produced by the gap/density detector.
const (
	gapTagPrefix     = "gap_"
	densityTagPrefix = "low_density_"
)

// Flag attaches one issue tag to a segment index.
type Flag struct {
	Index int
	Tag   string
}

// DetectGapsAndDensity checks each segment against its predecessor. A silence
// longer than GapThreshold or a long segment whose characters-per-second rate
// falls below MinCPS flags the current index.
func DetectGapsAndDensity(segments []transcript.Segment, opts Options) []Flag {
	var flags []Flag
	for i := 1; i < len(segments); i++ {
		prev, cur := segments[i-1], segments[i]

		if gap := cur.Start - prev.End; gap > opts.GapThreshold {
			flags = append(flags, Flag{Index: i, Tag: fmt.Sprintf("%s%.1fs", gapTagPrefix, gap)})
		}

		duration := cur.End - cur.Start
		chars := utf8.RuneCountInString(strings.TrimSpace(cur.Text))
		if duration > opts.DensityMinDuration && chars > 0 {
			if cps := float64(chars) / duration; cps < opts.MinCPS {
				flags = append(flags, Flag{Index: i, Tag: fmt.Sprintf("%s%.1fcps", densityTagPrefix, cps)})
			}
		}
	}
	return flags
}

// IsContinuityTag reports whether tag came from the gap/density detector.
func IsContinuityTag(tag string) bool {
	return strings.HasPrefix(tag, gapTagPrefix) || strings.HasPrefix(tag, densityTagPrefix)
}
