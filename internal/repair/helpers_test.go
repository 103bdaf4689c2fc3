package repair

import "scribe/internal/transcript"

type transcriptSegment struct {
	Start float64
	End   float64
	Text  string
}

type transcriptSegments []transcriptSegment

func (s transcriptSegments) segments() []transcript.Segment {
	out := make([]transcript.Segment, len(s))
	for i, seg := range s {
		out[i] = transcript.Segment{Start: seg.Start, End: seg.End, Text: seg.Text}
	}
	return out
}
