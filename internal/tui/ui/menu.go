package ui

import (
	"fmt"

	"github.com/rivo/tview"
)

// Menu displays keyboard shortcut hints in columns of at most rows entries.
type Menu struct {
	*tview.TextView
	theme *Theme
	rows  int
}

// NewMenu creates a new menu hint bar.
func NewMenu(theme *Theme, rows int) *Menu {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(0, 0, 2, 0)

	return &Menu{
		TextView: tv,
		theme:    theme,
		rows:     max(rows, 1),
	}
}

// Update renders menu hints, filling each column top to bottom.
func (m *Menu) Update(hints []MenuHint) {
	m.Clear()

	keyColor := ColorTag(m.theme.MenuKeyColor)
	numColor := ColorTag(m.theme.NumericKeyColor)

	for row := range m.rows {
		for i := row; i < len(hints); i += m.rows {
			h := hints[i]
			kc := keyColor
			if h.Numeric {
				kc = numColor
			}
			_, _ = fmt.Fprintf(m, "[%s::b]%-9s[-:-:-] %-14s", kc, "<"+h.Key+">", h.Description)
		}
		_, _ = fmt.Fprintln(m)
	}
}
