package memory

import (
	"regexp"
	"strings"
	"time"
)

// Filler removal runs phrases before single words so that "i think"
// is dropped as a unit instead of leaving a dangling "i".
var (
	todayPattern     = regexp.MustCompile(`(?i)\btoday\b`)
	yesterdayPattern = regexp.MustCompile(`(?i)\byesterday\b`)
	fillerPhrases    = regexp.MustCompile(`(?i)\b(i think|i believe|sort of|kind of|pretty much|you know)\b`)
	fillerWords      = regexp.MustCompile(`(?i)\b(basically|actually|just|really|very)\b`)
	sentenceEnd      = func(r rune) bool { return r == '.' || r == '!' || r == '?' }
)

// nowFunc is a package-level var to allow test injection of the clock.
var nowFunc = time.Now

// Normalize compresses free text while preserving meaning: relative
// dates become absolute ISO dates, filler words are dropped, whitespace
// is collapsed and exact-duplicate sentences are removed.
func (s *Store) Normalize(text string) string {
	return Normalize(text)
}

// Normalize is the store-independent normalization pipeline.
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	now := nowFunc()
	text = todayPattern.ReplaceAllString(text, now.Format("2006-01-02"))
	text = yesterdayPattern.ReplaceAllString(text, now.AddDate(0, 0, -1).Format("2006-01-02"))

	text = fillerPhrases.ReplaceAllString(text, "")
	text = fillerWords.ReplaceAllString(text, "")

	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return ""
	}

	terminated := sentenceEnd(rune(text[len(text)-1]))

	var fragments []string
	seen := make(map[string]bool)
	for _, frag := range splitSentences(text) {
		frag = strings.TrimRight(strings.TrimSpace(frag), ".!?")
		if frag == "" || seen[frag] {
			continue
		}
		seen[frag] = true
		fragments = append(fragments, frag)
	}

	out := strings.Join(fragments, ". ")
	if terminated && out != "" {
		out += "."
	}
	return out
}

// splitSentences breaks text at a terminator followed by a space or end
// of input. A '.' inside a token (file paths, version numbers) never
// ends a sentence. Callers pass whitespace-collapsed text, so a plain
// space check is enough.
func splitSentences(text string) []string {
	var parts []string
	start := 0
	for i := 0; i < len(text); i++ {
		if !sentenceEnd(rune(text[i])) {
			continue
		}
		if i+1 < len(text) && text[i+1] != ' ' {
			continue
		}
		parts = append(parts, text[start:i])
		start = i + 1
	}
	if start < len(text) {
		parts = append(parts, text[start:])
	}
	return parts
}
