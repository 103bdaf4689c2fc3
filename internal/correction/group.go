package correction

import (
	"strings"

	"scribe/internal/transcript"
)

// GroupByTime merges segments into paragraphs of roughly window seconds. A new
// paragraph starts when a segment begins more than window seconds after the
// current paragraph's start.
func GroupByTime(segments []transcript.Segment, window float64) []transcript.Paragraph {
	if len(segments) == 0 {
		return nil
	}
	if window <= 0 {
		window = defaultFallbackWindow
	}
	var paragraphs []transcript.Paragraph
	current := transcript.Paragraph{Start: segments[0].Start}
	for _, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if seg.Start-current.Start > window {
			paragraphs = append(paragraphs, current)
			current = transcript.Paragraph{Start: seg.Start}
		}
		if text == "" {
			continue
		}
		if current.Text == "" {
			current.Text = text
		} else {
			current.Text += " " + text
		}
		current.Sentences = append(current.Sentences, transcript.Sentence{Start: seg.Start, Text: text})
	}
	return append(paragraphs, current)
}
