package keys

import (
	"testing"

	"github.com/gdamore/tcell/v2"
)

func TestHandleEventPrefersView(t *testing.T) {
	r := NewRegistry()
	var got string
	r.AddGlobal(&Action{Name: "quit", Key: tcell.KeyRune, Rune: 'q', Handler: func() { got = "global" }})
	r.AddView("Thread", &Action{Name: "back", Key: tcell.KeyRune, Rune: 'q', Handler: func() { got = "view" }})

	if !r.HandleEvent("Thread", tcell.NewEventKey(tcell.KeyRune, 'q', tcell.ModNone)) || got != "view" {
		t.Errorf("Thread q -> %q, want view", got)
	}
	if !r.HandleEvent("Chats", tcell.NewEventKey(tcell.KeyRune, 'q', tcell.ModNone)) || got != "global" {
		t.Errorf("Chats q -> %q, want global", got)
	}
	if r.HandleEvent("Chats", tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModNone)) {
		t.Error("unbound key handled")
	}
}

func TestVisibleOrderAndReplace(t *testing.T) {
	r := NewRegistry()
	r.AddGlobal(&Action{Name: "help", Label: "?", Visible: true})
	r.AddGlobal(&Action{Name: "hidden"})
	r.AddView("Chats", &Action{Name: "open", Label: "Enter", Visible: true})
	r.AddView("Chats", &Action{Name: "open", Label: "o", Visible: true})

	got := r.Visible("Chats")
	if len(got) != 2 || got[0].Label != "o" || got[1].Name != "help" {
		t.Errorf("Visible = %+v", got)
	}
}
