package repair

import (
	"slices"
	"testing"
)

func TestDetectHallucinations(t *testing.T) {
	opts := DefaultOptions()
	tests := []struct {
		name string
		text string
		want []string
		not  []string
	}{
		{"char repeat", "用用用用", []string{TagCharRepeat, TagRepeatCycle}, []string{TagTooShort}},
		{"excess punctuation", "？！？！？！？！？！？！", []string{TagExcessPunctuation, TagMostlyPunctuation}, nil},
		{"too short", " 嗯 ", []string{TagTooShort}, []string{TagCharRepeat}},
		{"empty is too short", "", []string{TagTooShort}, nil},
		{"cycle with separators", "谢谢！谢谢！谢谢！", []string{TagRepeatCycle}, []string{TagCharRepeat}},
		{"mostly punctuation", "a...!!!,,,", []string{TagMostlyPunctuation}, nil},
		{"clean sentence", "今天我们来讲一下调度器的设计", nil, []string{TagRepeatCycle, TagExcessPunctuation, TagTooShort, TagCharRepeat, TagMostlyPunctuation}},
		{"clean english", "the scheduler claims one task at a time", nil, []string{TagRepeatCycle, TagCharRepeat}},
		{"three runes is not char repeat", "啊啊啊", []string{TagRepeatCycle}, []string{TagCharRepeat}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetectHallucinations(tt.text, opts)
			for _, tag := range tt.want {
				if !slices.Contains(got, tag) {
					t.Fatalf("expected %s in %v", tag, got)
				}
			}
			for _, tag := range tt.not {
				if slices.Contains(got, tag) {
					t.Fatalf("did not expect %s in %v", tag, got)
				}
			}
			if tt.want == nil && len(got) != 0 {
				t.Fatalf("expected no tags, got %v", got)
			}
		})
	}
}

func TestExcessPunctuationBoundary(t *testing.T) {
	opts := DefaultOptions()
	if slices.Contains(DetectHallucinations("好的?好的!真的?对!是!", opts), TagExcessPunctuation) {
		t.Fatal("five marks should not exceed the limit")
	}
	if !slices.Contains(DetectHallucinations("好的?好的!真的?对!是!嗯?", opts), TagExcessPunctuation) {
		t.Fatal("six marks should exceed the limit")
	}
}

func TestDetectGapsAndDensity(t *testing.T) {
	opts := DefaultOptions()
	flags := DetectGapsAndDensity(transcriptSegments{
		{Start: 0, End: 2, Text: "hello"},
		{Start: 8, End: 9, Text: "world"},
	}.segments(), opts)
	if len(flags) != 1 || flags[0].Index != 1 || flags[0].Tag != "gap_6.0s" {
		t.Fatalf("unexpected flags: %+v", flags)
	}

	flags = DetectGapsAndDensity(transcriptSegments{
		{Start: 0, End: 1, Text: "intro"},
		{Start: 1, End: 11, Text: "hey"},
	}.segments(), opts)
	if len(flags) != 1 || flags[0].Index != 1 || flags[0].Tag != "low_density_0.3cps" {
		t.Fatalf("unexpected density flags: %+v", flags)
	}

	flags = DetectGapsAndDensity(transcriptSegments{
		{Start: 0, End: 1, Text: "a"},
		{Start: 1, End: 10, Text: ""},
	}.segments(), opts)
	if len(flags) != 0 {
		t.Fatalf("empty text should not be density-flagged: %+v", flags)
	}
}
