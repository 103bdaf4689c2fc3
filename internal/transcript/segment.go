package transcript

import (
	"sort"
	"strings"
)

// Word is a sub-segment timing entry.
type Word struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Segment is one recognized utterance. Repair appends tags and alternatives
// but never rewrites Text.
type Segment struct {
	Start         float64     `json:"start"`
	End           float64     `json:"end"`
	Text          string      `json:"text"`
	Words         []Word      `json:"words,omitempty"`
	QualityIssues []string    `json:"quality_issues,omitempty"`
	Alternatives  []Candidate `json:"alternative_candidates,omitempty"`
	Unresolved    bool        `json:"unresolved,omitempty"`
	RepairError   string      `json:"repair_error,omitempty"`
}

// Candidate is an alternate segment list produced by re-transcribing a window.
type Candidate struct {
	Backend  string    `json:"backend"`
	Round    int       `json:"round"`
	Segments []Segment `json:"segments"`
}

// IssueRange is a contiguous, inclusive span of flagged segments.
type IssueRange struct {
	StartIndex int      `json:"start_index"`
	EndIndex   int      `json:"end_index"`
	StartTime  float64  `json:"start_time"`
	EndTime    float64  `json:"end_time"`
	Tags       []string `json:"issue_tags"`
}

// Sentence is one line inside a corrected paragraph.
type Sentence struct {
	Start float64 `json:"start"`
	Text  string  `json:"text"`
}

// Paragraph is a corrected, segmented block of the final report.
type Paragraph struct {
	Start     float64    `json:"start"`
	Text      string     `json:"text"`
	Sentences []Sentence `json:"sentences,omitempty"`
}

// Duration returns the end time of the last segment.
func Duration(segments []Segment) float64 {
	if len(segments) == 0 {
		return 0
	}
	return segments[len(segments)-1].End
}

// Normalize orders segments by start, repairs inverted bounds, and trims text.
func Normalize(segments []Segment) []Segment {
	out := make([]Segment, 0, len(segments))
	for _, seg := range segments {
		seg.Text = strings.TrimSpace(seg.Text)
		if seg.End < seg.Start {
			seg.End = seg.Start
		}
		out = append(out, seg)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

// Shift returns a copy of segments with every timestamp moved by offset.
func Shift(segments []Segment, offset float64) []Segment {
	out := make([]Segment, len(segments))
	for i, seg := range segments {
		seg.Start += offset
		seg.End += offset
		if len(seg.Words) > 0 {
			words := make([]Word, len(seg.Words))
			for j, w := range seg.Words {
				w.Start += offset
				w.End += offset
				words[j] = w
			}
			seg.Words = words
		}
		out[i] = seg
	}
	return out
}

// Clone deep-copies segments so callers can mutate the result freely.
func Clone(segments []Segment) []Segment {
	if segments == nil {
		return nil
	}
	out := make([]Segment, len(segments))
	for i, seg := range segments {
		seg.Words = append([]Word(nil), seg.Words...)
		seg.QualityIssues = append([]string(nil), seg.QualityIssues...)
		if len(seg.Alternatives) > 0 {
			alts := make([]Candidate, len(seg.Alternatives))
			for j, alt := range seg.Alternatives {
				alt.Segments = Clone(alt.Segments)
				alts[j] = alt
			}
			seg.Alternatives = alts
		}
		out[i] = seg
	}
	return out
}

// PlainText joins non-empty segment texts with a single space.
func PlainText(segments []Segment) string {
	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		if text := strings.TrimSpace(seg.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}
