package views

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/pollchat/internal/tui/ui"
	"github.com/matheus3301/pollchat/internal/wire"
	"github.com/rivo/tview"
)

// MessageThread displays messages and a composer for a single chat.
type MessageThread struct {
	*tview.Flex
	theme    *ui.Theme
	messages *tview.TextView
	composer *tview.InputField
	chatName string
	chatID   string
	onSend   func(text string)
}

// NewMessageThread creates a new message thread view.
func NewMessageThread(theme *ui.Theme) *MessageThread {
	messages := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWordWrap(true)
	messages.SetBorder(true)
	messages.SetBorderColor(theme.BorderColor)
	messages.SetBackgroundColor(theme.BgColor)
	messages.SetTextColor(theme.FgColor)
	messages.SetTitle(" Messages ")
	messages.SetTitleColor(theme.TitleColor)

	composer := tview.NewInputField().
		SetLabel(" > ").
		SetFieldWidth(0)
	composer.SetBorder(true)
	composer.SetBorderColor(theme.BorderColor)
	composer.SetBackgroundColor(theme.BgColor)
	composer.SetFieldBackgroundColor(theme.BgColor)
	composer.SetFieldTextColor(theme.FgColor)
	composer.SetLabelColor(theme.MenuKeyColor)
	composer.SetTitle(" Compose (i to focus) ")
	composer.SetTitleColor(theme.TitleColor)

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(messages, 0, 1, true).
		AddItem(composer, 3, 0, false)

	mt := &MessageThread{
		Flex:     flex,
		theme:    theme,
		messages: messages,
		composer: composer,
	}

	composer.SetDoneFunc(func(key tcell.Key) {
		if key != tcell.KeyEnter || mt.onSend == nil {
			return
		}
		if text := strings.TrimSpace(composer.GetText()); text != "" {
			mt.onSend(text)
			composer.SetText("")
		}
	})

	return mt
}

// Name implements Component.
func (mt *MessageThread) Name() string {
	if mt.chatName != "" {
		return mt.chatName
	}
	return "Messages"
}

// Focus implements Component.
func (mt *MessageThread) Focus() tview.Primitive { return mt.messages }

// Hints implements Component.
func (mt *MessageThread) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "i", Description: "Compose"},
		{Key: "d", Description: "Details"},
		{Key: "Esc", Description: "Back"},
		{Key: ":", Description: "Command"},
		{Key: "?", Description: "Help"},
	}
}

// SetChat records which chat is shown and updates the title.
func (mt *MessageThread) SetChat(chatID, name string) {
	mt.chatID = chatID
	mt.chatName = name
	mt.messages.SetTitle(fmt.Sprintf(" %s ", tview.Escape(name)))
}

// ChatID returns the id of the chat shown.
func (mt *MessageThread) ChatID() string {
	return mt.chatID
}

// SetOnSend sets the callback when a message is sent.
func (mt *MessageThread) SetOnSend(fn func(text string)) {
	mt.onSend = fn
}

// Update renders msgs, which are in chronological order. me is the local
// user id; its messages carry a delivery indicator.
func (mt *MessageThread) Update(msgs []wire.Message, me string) {
	mt.messages.Clear()
	_, _ = fmt.Fprint(mt.messages, mt.render(msgs, me))
	mt.messages.ScrollToEnd()
}

func (mt *MessageThread) render(msgs []wire.Message, me string) string {
	var b strings.Builder
	for _, m := range msgs {
		sender, color := m.SenderID, mt.theme.PeerMessageColor
		if m.Sender != nil && m.Sender.Username != "" {
			sender = m.Sender.Username
		}
		ticks := ""
		if m.SenderID == me {
			sender, color = "You", mt.theme.OwnMessageColor
			ticks = fmt.Sprintf(" [%s]%s[-]", ui.ColorTag(mt.theme.StatusColor(m.Status)), statusTicks(m.Status))
		}
		body := tview.Escape(sanitizeForTerminal(m.Content))
		if wire.IsImage(m.Content) {
			body = "[::u]" + body + "[::-] [::d](image)[-:-:-]"
		}
		fmt.Fprintf(&b, "[%s::b]%s[-:-:-] [::d]%s[-:-:-]%s\n%s\n\n",
			ui.ColorTag(color), tview.Escape(sanitizeLine(sender)),
			formatTimestamp(m.Timestamp), ticks, body)
	}
	return b.String()
}

// Messages returns the messages text view (for focus management).
func (mt *MessageThread) Messages() *tview.TextView {
	return mt.messages
}

// Composer returns the composer input field (for focus management).
func (mt *MessageThread) Composer() *tview.InputField {
	return mt.composer
}
