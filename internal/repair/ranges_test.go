package repair

import (
	"math/rand"
	"reflect"
	"testing"

	"scribe/internal/transcript"
)

func TestMergeAndExpandExamples(t *testing.T) {
	tests := []struct {
		name    string
		indices []int
		total   int
		want    []Span
	}{
		{"single", []int{3}, 10, []Span{{2, 4}}},
		{"clipped at start", []int{0}, 10, []Span{{0, 1}}},
		{"clipped at end", []int{9}, 10, []Span{{8, 9}}},
		{"one unflagged between", []int{3, 5}, 10, []Span{{2, 6}}},
		{"two unflagged between", []int{2, 5}, 10, []Span{{1, 6}}},
		{"far apart", []int{1, 8}, 10, []Span{{0, 2}, {7, 9}}},
		{"duplicates and disorder", []int{6, 3, 3, 6}, 10, []Span{{2, 7}}},
		{"out of range ignored", []int{-1, 12, 4}, 10, []Span{{3, 5}}},
		{"empty", nil, 10, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MergeAndExpand(tt.indices, tt.total, 2, 1)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("MergeAndExpand(%v) = %v, want %v", tt.indices, got, tt.want)
			}
		})
	}
}

func TestMergeAndExpandProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for iter := 0; iter < 500; iter++ {
		total := 1 + rng.Intn(40)
		indices := make([]int, rng.Intn(12))
		for i := range indices {
			indices[i] = rng.Intn(total)
		}
		tolerance := 1 + rng.Intn(3)
		expand := rng.Intn(3)

		first := MergeAndExpand(indices, total, tolerance, expand)
		second := MergeAndExpand(indices, total, tolerance, expand)
		if !reflect.DeepEqual(first, second) {
			t.Fatalf("non-deterministic output for %v", indices)
		}
		for i, span := range first {
			if span.Start < 0 || span.Start > span.End || span.End > total-1 {
				t.Fatalf("span %v out of bounds for total %d", span, total)
			}
			if i > 0 && span.Start <= first[i-1].End {
				t.Fatalf("overlapping spans %v and %v", first[i-1], span)
			}
		}
		for _, idx := range indices {
			covered := false
			for _, span := range first {
				if idx >= span.Start && idx <= span.End {
					covered = true
				}
			}
			if !covered {
				t.Fatalf("flagged index %d not covered by %v", idx, first)
			}
		}
	}
}

func TestBuildRangesAndAudioWindow(t *testing.T) {
	segments := []transcript.Segment{
		{Start: 0, End: 1},
		{Start: 1, End: 2, QualityIssues: []string{TagTooShort}},
		{Start: 2, End: 3, QualityIssues: []string{"gap_4.0s", TagTooShort}},
		{Start: 3, End: 4},
	}
	ranges := BuildRanges(segments, []Span{{1, 3}})
	if len(ranges) != 1 {
		t.Fatalf("expected one range, got %d", len(ranges))
	}
	r := ranges[0]
	if r.StartTime != 1 || r.EndTime != 4 {
		t.Fatalf("unexpected times: %+v", r)
	}
	if !reflect.DeepEqual(r.Tags, []string{TagTooShort, "gap_4.0s"}) {
		t.Fatalf("unexpected tag union: %v", r.Tags)
	}

	start, end := AudioWindow(transcript.IssueRange{StartTime: 0.2, EndTime: 9.8}, 0.5, 10)
	if start != 0 || end != 10 {
		t.Fatalf("expected clipped window, got %v-%v", start, end)
	}
	start, end = AudioWindow(transcript.IssueRange{StartTime: 2, EndTime: 4}, 0.5, 0)
	if start != 1.5 || end != 4.5 {
		t.Fatalf("unexpected padded window %v-%v", start, end)
	}
}
