// Package text splits input text into token-bounded segments at sentence
// boundaries.
package text

import "strings"

// Segment is a contiguous slice of the input text, small enough (by token
// count) to synthesize as one unit.
type Segment struct {
	Index      int
	Text       string
	TokenCount int
}

// CountFunc reports the number of encoding tokens in s. It must be
// deterministic; Split calls it repeatedly on overlapping candidates.
type CountFunc func(s string) int

// Split divides text into ordered segments, greedily packing consecutive
// sentence units while the running token count stays within budget.
// A single unit whose own token count already exceeds the budget becomes an
// oversized segment by itself; it is never subdivided, dropped, or truncated.
// If budget <= 0 the whole text is returned as one segment.
func Split(text string, budget int, count CountFunc) []Segment {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	if budget <= 0 {
		return []Segment{{Index: 0, Text: trimmed, TokenCount: count(trimmed)}}
	}

	var segments []Segment
	emit := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" {
			return
		}
		segments = append(segments, Segment{
			Index:      len(segments),
			Text:       s,
			TokenCount: count(s),
		})
	}

	current := ""
	for _, unit := range splitUnits(text) {
		candidate := current + unit
		if count(candidate) > budget {
			emit(current)
			current = unit
		} else {
			current = candidate
		}
	}
	emit(current)

	return segments
}

// isBoundary reports whether r terminates a sentence-like unit. Full-width
// variants cover Japanese prose; a newline also counts so paragraph breaks
// never end up mid-segment.
func isBoundary(r rune) bool {
	switch r {
	case '.', '!', '?', '。', '．', '！', '？', '\n':
		return true
	}
	return false
}

// splitUnits cuts text after each boundary rune, keeping the terminator
// attached to the preceding unit. Whitespace-only pieces are folded into the
// preceding unit so the separation between sentences survives; concatenating
// units reconstructs the input up to leading whitespace.
func splitUnits(text string) []string {
	var units []string
	start := 0

	appendUnit := func(u string) {
		if strings.TrimSpace(u) == "" {
			if len(units) > 0 {
				units[len(units)-1] += u
			}
			return
		}
		units = append(units, u)
	}

	for i, r := range text {
		if !isBoundary(r) {
			continue
		}
		end := i + len(string(r))
		appendUnit(text[start:end])
		start = end
	}

	// Trailing text after the last terminator (if any).
	if start < len(text) {
		appendUnit(text[start:])
	}

	return units
}
