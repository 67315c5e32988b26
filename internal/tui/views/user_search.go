package views

import (
	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/pollchat/internal/tui/ui"
	"github.com/matheus3301/pollchat/internal/wire"
	"github.com/rivo/tview"
)

// UserSearch finds users to start a chat with.
type UserSearch struct {
	*tview.Flex
	theme   *ui.Theme
	input   *tview.InputField
	results *tview.Table
	onQuery func(query string)
	data    []wire.UserSummary
}

// NewUserSearch creates a new user search view.
func NewUserSearch(theme *ui.Theme) *UserSearch {
	input := tview.NewInputField().
		SetLabel(" Find user: ").
		SetFieldWidth(0)
	input.SetBorderColor(theme.BorderColor)
	input.SetBackgroundColor(theme.BgColor)
	input.SetFieldBackgroundColor(theme.BgColor)
	input.SetFieldTextColor(theme.FgColor)
	input.SetLabelColor(theme.MenuKeyColor)

	results := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false).
		SetFixed(1, 0)
	results.SetBorder(true)
	results.SetBorderColor(theme.BorderColor)
	results.SetBackgroundColor(theme.BgColor)
	results.SetTitle(" Users ")
	results.SetTitleColor(theme.TitleColor)
	results.SetSelectedStyle(tcell.StyleDefault.
		Foreground(theme.TableCursorFg).
		Background(theme.TableCursorBg))

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(input, 1, 0, true).
		AddItem(results, 0, 1, false)

	us := &UserSearch{
		Flex:    flex,
		theme:   theme,
		input:   input,
		results: results,
	}
	input.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEnter && us.onQuery != nil {
			us.onQuery(us.input.GetText())
		}
	})
	return us
}

// Name implements Component.
func (us *UserSearch) Name() string { return "New chat" }

// Focus implements Component.
func (us *UserSearch) Focus() tview.Primitive { return us.input }

// Hints implements Component.
func (us *UserSearch) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Enter", Description: "Search/Open"},
		{Key: "Tab", Description: "Results"},
		{Key: "Esc", Description: "Back"},
	}
}

// SetOnQuery sets the callback when a search query is submitted. An empty
// query lists everyone.
func (us *UserSearch) SetOnQuery(fn func(query string)) {
	us.onQuery = fn
}

// Reset clears the input and results.
func (us *UserSearch) Reset() {
	us.input.SetText("")
	us.Update(nil)
}

// Update refreshes search results.
func (us *UserSearch) Update(users []wire.UserSummary) {
	us.data = users
	us.results.Clear()

	for col, h := range []string{" USER", " EMAIL", " STATUS"} {
		us.results.SetCell(0, col, tview.NewTableCell(h).
			SetSelectable(false).
			SetTextColor(us.theme.TableHeaderFg).
			SetBackgroundColor(us.theme.TableHeaderBg).
			SetAttributes(tcell.AttrBold))
	}

	for i, u := range users {
		row := i + 1
		status, color := "offline", us.theme.OfflineColor
		if u.Online {
			status, color = "online", us.theme.OnlineColor
		}
		us.results.SetCell(row, 0, tview.NewTableCell(" "+tview.Escape(sanitizeLine(u.Username))).SetExpansion(1).SetTextColor(us.theme.FgColor))
		us.results.SetCell(row, 1, tview.NewTableCell(" "+tview.Escape(u.Email)).SetExpansion(1).SetTextColor(us.theme.FgColor))
		us.results.SetCell(row, 2, tview.NewTableCell(" "+status).SetTextColor(color))
	}
}

// SelectedUser returns the id of the selected result.
func (us *UserSearch) SelectedUser() string {
	row, _ := us.results.GetSelection()
	idx := row - 1
	if idx >= 0 && idx < len(us.data) {
		return us.data[idx].ID
	}
	return ""
}

// Input returns the search input field.
func (us *UserSearch) Input() *tview.InputField {
	return us.input
}

// Results returns the results table.
func (us *UserSearch) Results() *tview.Table {
	return us.results
}
