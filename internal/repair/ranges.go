package repair

import (
	"sort"

	"scribe/internal/transcript"
)

// Span is an inclusive index interval.
type Span struct {
	Start int
	End   int
}

// MergeAndExpand groups flagged indices into spans. Consecutive indices at most
// tolerance apart join one span; each span then grows by expand on both sides,
// clipped to [0, total-1]. Spans that overlap after expansion are merged, so the
// output is sorted and non-overlapping. Out-of-range indices are ignored.
func MergeAndExpand(indices []int, total, tolerance, expand int) []Span {
	if total <= 0 || len(indices) == 0 {
		return nil
	}
	unique := make([]int, 0, len(indices))
	seen := make(map[int]struct{}, len(indices))
	for _, idx := range indices {
		if idx < 0 || idx >= total {
			continue
		}
		if _, ok := seen[idx]; ok {
			continue
		}
		seen[idx] = struct{}{}
		unique = append(unique, idx)
	}
	if len(unique) == 0 {
		return nil
	}
	sort.Ints(unique)
	if tolerance < 1 {
		tolerance = 1
	}
	if expand < 0 {
		expand = 0
	}

	var merged []Span
	current := Span{Start: unique[0], End: unique[0]}
	for _, idx := range unique[1:] {
		if idx <= current.End+tolerance {
			current.End = idx
			continue
		}
		merged = append(merged, current)
		current = Span{Start: idx, End: idx}
	}
	merged = append(merged, current)

	out := make([]Span, 0, len(merged))
	for _, span := range merged {
		span.Start = max(0, span.Start-expand)
		span.End = min(total-1, span.End+expand)
		if n := len(out); n > 0 && span.Start <= out[n-1].End {
			out[n-1].End = max(out[n-1].End, span.End)
			continue
		}
		out = append(out, span)
	}
	return out
}

// BuildRanges converts spans into issue ranges carrying segment times and the
// union of the covered segments' quality tags.
func BuildRanges(segments []transcript.Segment, spans []Span) []transcript.IssueRange {
	ranges := make([]transcript.IssueRange, 0, len(spans))
	for _, span := range spans {
		if span.Start < 0 || span.End >= len(segments) || span.Start > span.End {
			continue
		}
		var tags []string
		seen := make(map[string]struct{})
		for i := span.Start; i <= span.End; i++ {
			for _, tag := range segments[i].QualityIssues {
				if _, ok := seen[tag]; ok {
					continue
				}
				seen[tag] = struct{}{}
				tags = append(tags, tag)
			}
		}
		ranges = append(ranges, transcript.IssueRange{
			StartIndex: span.Start,
			EndIndex:   span.End,
			StartTime:  segments[span.Start].Start,
			EndTime:    segments[span.End].End,
			Tags:       tags,
		})
	}
	return ranges
}

// AudioWindow pads a range into an audio window clipped to [0, mediaDuration].
// A non-positive mediaDuration leaves the upper bound unclipped.
func AudioWindow(r transcript.IssueRange, padding, mediaDuration float64) (start, end float64) {
	start = max(0, r.StartTime-padding)
	end = r.EndTime + padding
	if mediaDuration > 0 && end > mediaDuration {
		end = mediaDuration
	}
	if end < start {
		end = start
	}
	return start, end
}
