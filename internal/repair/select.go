package repair

import "scribe/internal/backend"

// Selection picks re-transcription backends for issue ranges.
type Selection struct {
	// Primary produced the original transcript and is never chosen.
	Primary backend.Kind
	// Continuity maps a round number to the backend used for gap and density
	// issues. Rounds past the end of the slice reuse the last entry.
	Continuity []backend.Kind
	// Hallucination handles ranges with only pattern tags.
	Hallucination backend.Kind
}

// DefaultSelection routes continuity issues to SenseVoice on the first round
// and to the escalation whisper model afterwards.
func DefaultSelection(primary backend.Kind) Selection {
	return Selection{
		Primary:       primary,
		Continuity:    []backend.Kind{backend.KindSenseVoice, backend.KindWhisperSmall},
		Hallucination: backend.KindWhisperBase,
	}
}

// Choose returns the backend for a range with the given tags on a 1-based round.
func (s Selection) Choose(tags []string, round int) backend.Kind {
	return s.Candidates(tags, round)[0]
}

// Candidates lists backends for a range in preference order: the routed choice
// first, then the remaining fallbacks. Primary is excluded unless nothing else
// is configured.
func (s Selection) Candidates(tags []string, round int) []backend.Kind {
	kind := s.Hallucination
	if hasContinuityTag(tags) && len(s.Continuity) > 0 {
		idx := round - 1
		if idx < 0 {
			idx = 0
		}
		if idx >= len(s.Continuity) {
			idx = len(s.Continuity) - 1
		}
		kind = s.Continuity[idx]
	}
	order := []backend.Kind{kind, s.Hallucination, backend.KindWhisperBase, backend.KindWhisperSmall, backend.KindSenseVoice}
	out := make([]backend.Kind, 0, len(order))
	seen := make(map[backend.Kind]bool, len(order))
	for _, alt := range order {
		if alt == s.Primary || seen[alt] {
			continue
		}
		seen[alt] = true
		out = append(out, alt)
	}
	if len(out) == 0 {
		return []backend.Kind{kind}
	}
	return out
}

func hasContinuityTag(tags []string) bool {
	for _, tag := range tags {
		if IsContinuityTag(tag) {
			return true
		}
	}
	return false
}
