// Package segment provides sentence boundary detection over transcribed
// text. The listening orchestrator uses span counts as a proxy for "the
// speaker has finished": a transcript with a terminating period appended
// splits into more than one span only when the transcript already closed a
// sentence.
package segment

import "strings"

// Segmenter splits text into sentence-like spans.
type Segmenter interface {
	Segment(text string) []string
}

// Rule is an English rule-based Segmenter. Spans end at '.', '!' or '?'
// (optionally followed by closing quotes) before whitespace or end of input.
// A small abbreviation list suppresses false boundaries after titles.
type Rule struct {
	abbreviations map[string]struct{}
}

// NewRule creates a rule-based segmenter with the default abbreviation list.
func NewRule() *Rule {
	abbrevs := []string{
		"mr", "mrs", "ms", "dr", "prof", "sr", "jr", "st",
		"vs", "etc", "inc", "ltd", "co", "corp",
		"jan", "feb", "mar", "apr", "jun", "jul", "aug", "sep", "sept", "oct", "nov", "dec",
	}
	m := make(map[string]struct{}, len(abbrevs))
	for _, a := range abbrevs {
		m[a] = struct{}{}
	}
	return &Rule{abbreviations: m}
}

const terminals = ".!?"

// Segment implements Segmenter.
func (r *Rule) Segment(text string) []string {
	var (
		spans []string
		start int
	)

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		if !strings.ContainsRune(terminals, runes[i]) {
			continue
		}

		if runes[i] == '.' && r.isAbbreviation(runes, start, i) {
			continue
		}

		// Closing quotes belong to the ending sentence.
		end := i + 1
		for end < len(runes) && isClosingQuote(runes[end]) {
			end++
		}

		// Only a whitespace gap (or end of input) closes the span; "3.14"
		// stays whole.
		if end < len(runes) && !isSpace(runes[end]) {
			i = end - 1
			continue
		}

		if span := strings.TrimSpace(string(runes[start:end])); span != "" {
			spans = append(spans, span)
		}
		start = end
		i = end - 1
	}

	if tail := strings.TrimSpace(string(runes[start:])); tail != "" {
		spans = append(spans, tail)
	}
	return spans
}

// isAbbreviation reports whether the period at pos terminates a known
// abbreviation rather than a sentence.
func (r *Rule) isAbbreviation(runes []rune, start, pos int) bool {
	wordStart := pos
	for wordStart > start && !isSpace(runes[wordStart-1]) {
		wordStart--
	}
	word := strings.ToLower(strings.Trim(string(runes[wordStart:pos]), `"'()[]`))
	if word == "" {
		return false
	}
	if len(word) == 1 && word[0] >= 'a' && word[0] <= 'z' {
		return true // single-letter initial
	}
	_, ok := r.abbreviations[word]
	return ok
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

func isClosingQuote(r rune) bool {
	switch r {
	case '"', '\'', ')', ']', '”', '’':
		return true
	}
	return false
}
