package repair

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// Hallucination tags.
const (
	TagRepeatCycle       = "repeat_cycle"
	TagExcessPunctuation = "excess_punctuation"
	TagTooShort          = "too_short"
	TagCharRepeat        = "char_repeat"
	TagMostlyPunctuation = "mostly_punctuation"
)

const (
	maxCycleUnit = 4
	// Texts this short are already covered by too_short.
	mostlyPunctuationMinRunes = 4
)

// DetectHallucinations returns every hallucination tag matching text.
func DetectHallucinations(text string, opts Options) []string {
	runes := []rune(width.Fold.String(norm.NFC.String(strings.TrimSpace(text))))

	var tags []string
	if hasRepeatCycle(runes, opts.RepeatMinCount) {
		tags = append(tags, TagRepeatCycle)
	}
	if countTerminal(runes) > opts.PunctuationLimit {
		tags = append(tags, TagExcessPunctuation)
	}
	if len(runes) < opts.MinTextLength {
		tags = append(tags, TagTooShort)
	}
	if longestRun(runes) > opts.CharRepeatLimit {
		tags = append(tags, TagCharRepeat)
	}
	if len(runes) >= mostlyPunctuationMinRunes && float64(countContent(runes)) < opts.PunctRatio*float64(len(runes)) {
		tags = append(tags, TagMostlyPunctuation)
	}
	return tags
}

// hasRepeatCycle reports whether a unit of 1-4 runes occurs at least minCount
// times in a row, optionally separated by terminal punctuation or whitespace.
func hasRepeatCycle(runes []rune, minCount int) bool {
	if minCount < 2 {
		minCount = 2
	}
	n := len(runes)
	for i := 0; i < n; i++ {
		for size := 1; size <= maxCycleUnit && i+size <= n; size++ {
			unit := runes[i : i+size]
			if isBlankUnit(unit) {
				continue
			}
			count := 1
			j := i + size
			for {
				if matchesAt(runes, j, unit) {
					count++
					j += size
					continue
				}
				k := j
				for k < n && isCycleSeparator(runes[k]) {
					k++
				}
				if k == j || !matchesAt(runes, k, unit) {
					break
				}
				count++
				j = k + size
			}
			if count >= minCount {
				return true
			}
		}
	}
	return false
}

func matchesAt(runes []rune, pos int, unit []rune) bool {
	if pos+len(unit) > len(runes) {
		return false
	}
	for i, r := range unit {
		if runes[pos+i] != r {
			return false
		}
	}
	return true
}

func isBlankUnit(unit []rune) bool {
	for _, r := range unit {
		if !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

// Full-width marks are folded to ASCII before these checks run.
func isTerminal(r rune) bool {
	return r == '?' || r == '!'
}

func isCycleSeparator(r rune) bool {
	return isTerminal(r) || unicode.IsSpace(r)
}

func countTerminal(runes []rune) int {
	count := 0
	for _, r := range runes {
		if isTerminal(r) {
			count++
		}
	}
	return count
}

func longestRun(runes []rune) int {
	longest, current := 0, 0
	for i, r := range runes {
		if i > 0 && r == runes[i-1] {
			current++
		} else {
			current = 1
		}
		if current > longest {
			longest = current
		}
	}
	return longest
}

func countContent(runes []rune) int {
	count := 0
	for _, r := range runes {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r) {
			count++
		}
	}
	return count
}
