package views

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/matheus3301/pollchat/internal/tui/ui"
	"github.com/matheus3301/pollchat/internal/wire"
)

var (
	alice = wire.UserSummary{ID: "u1", Username: "alice"}
	bob   = wire.UserSummary{ID: "u2", Username: "bob", Online: true}
	carol = wire.UserSummary{ID: "u3", Username: "carol"}
)

func TestSanitizeForTerminal(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"hello", "hello"},
		{"👍🏻", "👍"},
		{"👨‍👩", "👨👩"},
		{"❤️", "❤"},
		{"a\x1b[2Jb", "a[2Jb"},
		{"bell\a\u0085", "bell"},
		{"x\u202Ecba", "xcba"},
		{"one\ntwo\tthree", "one\ntwo\tthree"},
		{"cr\r\n", "cr\n"},
	}
	for _, tt := range tests {
		if got := sanitizeForTerminal(tt.in); got != tt.want {
			t.Errorf("sanitizeForTerminal(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitizeLine(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"alice", "alice"},
		{"ali\nce", "ali ce"},
		{"a\tb\r", "a b"},
		{"\x1b]0;pwned\a👍🏽", "]0;pwned👍"},
	}
	for _, tt := range tests {
		if got := sanitizeLine(tt.in); got != tt.want {
			t.Errorf("sanitizeLine(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPreview(t *testing.T) {
	if got := preview("https://cdn.example.com/a.PNG?x=1"); got != "[image]" {
		t.Errorf("image preview = %q", got)
	}
	if got := preview("two\n lines"); got != "two lines" {
		t.Errorf("text preview = %q", got)
	}
}

func TestConversationListFilter(t *testing.T) {
	cl := NewConversationList(ui.DefaultTheme())
	chats := []wire.Chat{
		{ID: "c1", Participants: []wire.UserSummary{alice, bob}, LastMessage: &wire.LastMessage{Content: "lunch?", SenderName: "bob"}},
		{ID: "c2", Participants: []wire.UserSummary{alice, carol}},
	}
	cl.Update(chats, "u1")

	if got := cl.ChatByIndex(2); got != "c2" {
		t.Errorf("ChatByIndex(2) = %q", got)
	}
	cl.SetFilter("LUNCH")
	if got := cl.ChatByIndex(1); got != "c1" || cl.ChatByIndex(2) != "" {
		t.Errorf("filtered rows: %q %q", got, cl.ChatByIndex(2))
	}
	cl.SetFilter("car")
	if got := cl.ChatByIndex(1); got != "c2" {
		t.Errorf("filter by participant = %q", got)
	}
	cl.ClearFilter()
	if cl.ChatByIndex(0) != "" || cl.ChatByIndex(3) != "" {
		t.Error("out of range index returned a chat")
	}
}

func TestConversationListKeepsSelection(t *testing.T) {
	cl := NewConversationList(ui.DefaultTheme())
	c1 := wire.Chat{ID: "c1", Participants: []wire.UserSummary{alice, bob}, UpdatedAt: time.Unix(1, 0)}
	c2 := wire.Chat{ID: "c2", Participants: []wire.UserSummary{alice, carol}, UpdatedAt: time.Unix(2, 0)}
	cl.Update([]wire.Chat{c2, c1}, "u1")
	cl.Select(2, 0)
	if cl.SelectedChat() != "c1" {
		t.Fatalf("selected = %q", cl.SelectedChat())
	}

	c1.UpdatedAt = time.Unix(3, 0)
	cl.Update([]wire.Chat{c1, c2}, "u1")
	if cl.SelectedChat() != "c1" {
		t.Errorf("selection moved to %q after reorder", cl.SelectedChat())
	}
}

func TestMessageThreadRender(t *testing.T) {
	mt := NewMessageThread(ui.DefaultTheme())
	out := mt.render([]wire.Message{
		{ID: "m1", SenderID: "u2", Sender: &bob, Content: "hi [red]", Status: wire.StatusSeen},
		{ID: "m2", SenderID: "u1", Sender: &alice, Content: "hey", Status: wire.StatusDelivered},
	}, "u1")

	if !strings.Contains(out, "bob") || !strings.Contains(out, "You") {
		t.Errorf("senders missing: %q", out)
	}
	if strings.Count(out, "✓✓") != 1 {
		t.Errorf("only own messages carry ticks: %q", out)
	}
	if strings.Contains(out, "hi [red]") {
		t.Error("message content not escaped")
	}
}

func TestStatusBarLine(t *testing.T) {
	sb := NewStatusBar(ui.DefaultTheme())
	sb.SetIdentity("main", "alice")
	sb.SetTier("fast")
	if !strings.Contains(sb.line(), "offline") || !strings.Contains(sb.line(), "never") {
		t.Errorf("initial line = %q", sb.line())
	}

	sb.SyncFailed(errors.New("connection refused"))
	if !strings.Contains(sb.line(), "connection refused") {
		t.Errorf("failure not shown: %q", sb.line())
	}
	sb.SyncSucceeded(time.Now())
	line := sb.line()
	if !strings.Contains(line, "online") || strings.Contains(line, "connection refused") || !strings.Contains(line, "poll: fast") {
		t.Errorf("line = %q", line)
	}
}
