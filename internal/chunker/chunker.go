// Package chunker splits long texts into pieces a translation endpoint
// accepts in a single request, keeping sentences and paragraphs intact
// where it can.
package chunker

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Split breaks text into pieces of at most limit runes. A cut is placed, in
// order of preference, after a blank line, after sentence-ending punctuation
// followed by whitespace, at a word boundary, or hard at the limit.
// Pieces are trimmed and empty pieces are dropped. A limit ≤ 0 disables
// splitting.
func Split(text string, limit int) []string {
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	var pieces []string
	rest := []rune(strings.TrimSpace(text))
	for len(rest) > limit {
		cut := cutPoint(rest[:limit])
		if piece := strings.TrimSpace(string(rest[:cut])); piece != "" {
			pieces = append(pieces, piece)
		}
		rest = []rune(strings.TrimSpace(string(rest[cut:])))
	}
	if piece := strings.TrimSpace(string(rest)); piece != "" {
		pieces = append(pieces, piece)
	}
	return pieces
}

// Join reassembles translated pieces produced by Split.
func Join(pieces []string) string {
	return strings.Join(pieces, " ")
}

// cutPoint returns the rune index at which window should be cut. It is
// always ≥ 1 so Split makes progress.
func cutPoint(window []rune) int {
	for i := len(window) - 1; i > 0; i-- {
		if window[i] == '\n' && (window[i-1] == '\n' || (i >= 3 && string(window[i-3:i+1]) == "\r\n\r\n")) {
			return i + 1
		}
	}

	for i := len(window) - 2; i > 0; i-- {
		switch window[i] {
		case '.', '!', '?':
			if unicode.IsSpace(window[i+1]) {
				return i + 1
			}
		}
	}

	for i := len(window) - 1; i > 0; i-- {
		if unicode.IsSpace(window[i]) {
			return i
		}
	}

	return len(window)
}
