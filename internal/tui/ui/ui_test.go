package ui

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"testing"

	"github.com/matheus3301/pollchat/internal/wire"
	"github.com/rivo/tview"
)

func TestPagesPushPop(t *testing.T) {
	p := NewPages()
	for _, name := range []string{"Chats", "Thread", "Details"} {
		p.AddPage(name, tview.NewBox(), true, false)
	}
	var seen [][]string
	p.SetOnChange(func(stack []string) { seen = append(seen, stack) })

	p.Reset("Chats")
	p.Push("Thread")
	p.Push("Details")
	if got := p.Stack(); !slices.Equal(got, []string{"Chats", "Thread", "Details"}) {
		t.Fatalf("stack = %v", got)
	}

	p.Push("Thread")
	if got := p.Stack(); !slices.Equal(got, []string{"Chats", "Thread"}) {
		t.Errorf("pushing an open page should unwind to it, stack = %v", got)
	}
	if got := p.Pop(); got != "Thread" {
		t.Errorf("Pop() = %q", got)
	}
	if got := p.Pop(); got != "" || p.Current() != "Chats" {
		t.Errorf("root page popped: %q, current %q", got, p.Current())
	}
	if len(seen) != 5 {
		t.Errorf("onChange calls = %d, want 5", len(seen))
	}
}

func TestPromptHistory(t *testing.T) {
	p := NewPrompt(DefaultTheme())
	p.Activate(PromptCommand)
	p.remember("chat bob")
	p.remember("users")
	p.remember("users")
	p.Activate(PromptCommand)

	if got := p.step(-1); got != "users" {
		t.Errorf("up = %q, want users", got)
	}
	if got := p.step(-1); got != "chat bob" {
		t.Errorf("up = %q, want chat bob", got)
	}
	if got := p.step(-1); got != "chat bob" {
		t.Errorf("up past oldest = %q", got)
	}
	p.step(1)
	if got := p.step(1); got != "" {
		t.Errorf("down past newest = %q, want empty", got)
	}

	p.Activate(PromptFilter)
	p.remember("alice")
	if len(p.history) != 2 {
		t.Errorf("filters should not enter history: %v", p.history)
	}
}

func TestFlashErrLevels(t *testing.T) {
	f := NewFlashModel()

	f.Err(fmt.Errorf("sync: %w", wire.ErrTransient))
	if m := f.GetMessage(); m == nil || m.Level != FlashWarn {
		t.Errorf("transient flash = %+v, want warn", m)
	}
	f.Err(errors.New("boom"))
	if m := f.GetMessage(); m == nil || m.Level != FlashErr || m.Text != "boom" {
		t.Errorf("error flash = %+v", m)
	}
}

func TestMenuColumns(t *testing.T) {
	m := NewMenu(DefaultTheme(), 2)
	m.Update([]MenuHint{{Key: "a", Description: "one"}, {Key: "b", Description: "two"}, {Key: "c", Description: "three"}})
	lines := strings.Split(strings.TrimRight(m.GetText(true), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("menu lines = %q", lines)
	}
	if !strings.Contains(lines[0], "<a>") || !strings.Contains(lines[0], "<c>") || !strings.Contains(lines[1], "<b>") {
		t.Errorf("menu = %q", lines)
	}
}
