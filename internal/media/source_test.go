package media

import "testing"

func TestSourceID(t *testing.T) {
	tests := []struct {
		ref  string
		want string
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://youtu.be/dQw4w9WgXcQ?t=10", "dQw4w9WgXcQ"},
		{"https://example.com/a", "cd69b81ea00"},
		{"/media/lectures/week-01.mp3", "week-01"},
		{"talk.m4a", "talk"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := SourceID(tt.ref); got != tt.want {
			t.Fatalf("SourceID(%q) = %q, want %q", tt.ref, got, tt.want)
		}
	}
}

func TestSourceIDHashIsStable(t *testing.T) {
	ref := "https://podcasts.example.org/episode?id=42"
	first := SourceID(ref)
	if len(first) != 11 {
		t.Fatalf("expected 11 character id, got %q", first)
	}
	if SourceID(ref) != first {
		t.Fatal("expected deterministic id")
	}
}
