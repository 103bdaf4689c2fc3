package language

import "testing"

func TestToISO2(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"zh", "zh"},
		{"ZH", "zh"},
		{"zho", "zh"},
		{"chi", "zh"},
		{"mandarin", "zh"},
		{"zh-CN", "zh"},
		{"pt_BR", "pt"},
		{"English", "en"},
		{"fre", "fr"},
		// 2-letter codes pass through even if unknown
		{"xx", "xx"},
		{"klingon", ""},
		{"", ""},
		{"  ", ""},
	}
	for _, tt := range tests {
		if got := ToISO2(tt.input); got != tt.expected {
			t.Errorf("ToISO2(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"zh", "Chinese"},
		{"jpn", "Japanese"},
		{"en-US", "English"},
		{"xx", "XX"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := DisplayName(tt.input); got != tt.expected {
			t.Errorf("DisplayName(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}
