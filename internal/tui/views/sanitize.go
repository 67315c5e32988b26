package views

import (
	"strings"
	"unicode"
)

// sanitizeForTerminal drops runes in peer-supplied text that tcell cannot lay
// out or that would reach the terminal as control sequences. Newlines and
// tabs survive; use sanitizeLine for single-row cells.
func sanitizeForTerminal(s string) string {
	return strings.Map(terminalRune, s)
}

// sanitizeLine is sanitizeForTerminal for table cells and headers, where a
// line break would spill into the next row.
func sanitizeLine(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return ' '
		}
		return terminalRune(r)
	}, s)
}

// terminalRune maps r to itself, or to -1 when it must be dropped.
func terminalRune(r rune) rune {
	switch {
	case r == '\n' || r == '\t':
		return r
	// C0, DEL and C1, which covers ESC and CSI.
	case unicode.IsControl(r):
		return -1
	// Skin tone modifiers turn one emoji into two cells of garbage.
	case r >= 0x1F3FB && r <= 0x1F3FF:
		return -1
	// Zero width joiner.
	case r == 0x200D:
		return -1
	// Variation selectors and their supplement.
	case r >= 0xFE00 && r <= 0xFE0F, r >= 0xE0100 && r <= 0xE01EF:
		return -1
	// Bidi embeddings, overrides and isolates can reorder the rest of the row.
	case r >= 0x202A && r <= 0x202E, r >= 0x2066 && r <= 0x2069:
		return -1
	}
	return r
}
