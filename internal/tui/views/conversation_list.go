package views

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/pollchat/internal/tui/ui"
	"github.com/matheus3301/pollchat/internal/wire"
	"github.com/rivo/tview"
)

// ConversationList is the main chat list view.
type ConversationList struct {
	*tview.Table
	theme   *ui.Theme
	chats   []wire.Chat
	visible []wire.Chat
	me      string
	filter  string
}

// NewConversationList creates a new conversation list table.
func NewConversationList(theme *ui.Theme) *ConversationList {
	table := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false).
		SetFixed(1, 0)
	table.SetBorder(true)
	table.SetBorderColor(theme.BorderColor)
	table.SetBackgroundColor(theme.BgColor)
	table.SetSelectedStyle(tcell.StyleDefault.
		Foreground(theme.TableCursorFg).
		Background(theme.TableCursorBg))
	table.SetTitle(" Conversations ")
	table.SetTitleColor(theme.TitleColor)

	return &ConversationList{
		Table: table,
		theme: theme,
	}
}

// Name implements Component.
func (cl *ConversationList) Name() string { return "Conversations" }

// Focus implements Component.
func (cl *ConversationList) Focus() tview.Primitive { return cl.Table }

// Hints implements Component.
func (cl *ConversationList) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Enter", Description: "Open"},
		{Key: "/", Description: "Filter"},
		{Key: "n", Description: "New chat"},
		{Key: ":", Description: "Command"},
		{Key: "?", Description: "Help"},
		{Key: "q", Description: "Quit"},
		{Key: "1-9", Description: "Jump", Numeric: true},
	}
}

// Update refreshes the list. me is the local user id, used to name each chat
// after the other participant. The selection stays on the same chat.
func (cl *ConversationList) Update(chats []wire.Chat, me string) {
	selected := cl.SelectedChat()
	cl.chats = chats
	cl.me = me
	cl.render()
	cl.selectChat(selected)
}

// SetFilter sets the active filter text and re-renders.
func (cl *ConversationList) SetFilter(filter string) {
	cl.filter = filter
	cl.render()
}

// ClearFilter clears the active filter.
func (cl *ConversationList) ClearFilter() {
	cl.SetFilter("")
}

func (cl *ConversationList) title(c wire.Chat) (string, bool) {
	if other := c.Other(cl.me); other != nil {
		return other.Username, other.Online
	}
	return c.ID, false
}

func (cl *ConversationList) render() {
	cl.Clear()

	headers := []struct {
		text string
		exp  int
	}{
		{" NAME", 1},
		{" LAST MESSAGE", 2},
		{" TIME", 0},
	}
	for col, h := range headers {
		cl.SetCell(0, col, tview.NewTableCell(h.text).
			SetSelectable(false).
			SetTextColor(cl.theme.TableHeaderFg).
			SetBackgroundColor(cl.theme.TableHeaderBg).
			SetAttributes(tcell.AttrBold).
			SetExpansion(h.exp))
	}

	cl.visible = cl.visible[:0]
	for _, chat := range cl.chats {
		name, online := cl.title(chat)
		last, lastAt := "", chat.UpdatedAt
		if chat.LastMessage != nil {
			last = preview(chat.LastMessage.Content)
			if chat.LastMessage.SenderName != "" {
				last = chat.LastMessage.SenderName + ": " + last
			}
			lastAt = chat.LastMessage.Timestamp
		}
		if cl.filter != "" && !containsFold(name, cl.filter) && !containsFold(last, cl.filter) {
			continue
		}
		cl.visible = append(cl.visible, chat)
		row := len(cl.visible)

		dot := tview.NewTableCell(" ○ " + tview.Escape(sanitizeLine(name))).SetExpansion(1).SetTextColor(cl.theme.FgColor)
		if online {
			dot.SetText(" ● " + tview.Escape(sanitizeLine(name))).SetTextColor(cl.theme.OnlineColor)
		}
		cl.SetCell(row, 0, dot)
		cl.SetCell(row, 1, tview.NewTableCell(" "+tview.Escape(sanitizeLine(last))).SetExpansion(2).SetTextColor(cl.theme.FgColor))
		cl.SetCell(row, 2, tview.NewTableCell(formatTimestamp(lastAt)).SetTextColor(cl.theme.FgColor).SetAlign(tview.AlignRight))
	}

	if cl.filter != "" {
		cl.SetTitle(fmt.Sprintf(" Conversations (%d/%d) filter: %s ", len(cl.visible), len(cl.chats), tview.Escape(cl.filter)))
	} else {
		cl.SetTitle(fmt.Sprintf(" Conversations (%d) ", len(cl.chats)))
	}
}

// SelectedChat returns the id of the currently selected chat.
func (cl *ConversationList) SelectedChat() string {
	row, _ := cl.GetSelection()
	return cl.ChatByIndex(row)
}

// ChatByIndex returns the id of the Nth visible conversation (1-based).
func (cl *ConversationList) ChatByIndex(n int) string {
	if n < 1 || n > len(cl.visible) {
		return ""
	}
	return cl.visible[n-1].ID
}

func (cl *ConversationList) selectChat(id string) {
	if id == "" {
		return
	}
	for i, c := range cl.visible {
		if c.ID == id {
			cl.Select(i+1, 0)
			return
		}
	}
}
