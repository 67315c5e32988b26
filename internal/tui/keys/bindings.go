// Package keys maps key events to named actions per page.
package keys

import "github.com/gdamore/tcell/v2"

// Action represents a keybinding action.
type Action struct {
	Name        string
	Key         tcell.Key
	Rune        rune
	Label       string // key as shown in the menu, e.g. "Enter"
	Description string
	Handler     func()
	Visible     bool
}

// Matches returns true if the event matches this action.
func (a *Action) Matches(ev *tcell.EventKey) bool {
	if a.Key != tcell.KeyRune {
		return ev.Key() == a.Key
	}
	return ev.Key() == tcell.KeyRune && ev.Rune() == a.Rune
}

// Registry holds keybindings organized by scope, in registration order.
type Registry struct {
	global []*Action
	views  map[string][]*Action
}

// NewRegistry creates a new keybinding registry.
func NewRegistry() *Registry {
	return &Registry{views: make(map[string][]*Action)}
}

// AddGlobal registers a binding active on every page. A binding with the same
// name replaces the earlier one.
func (r *Registry) AddGlobal(action *Action) {
	r.global = upsert(r.global, action)
}

// AddView registers a binding for one page.
func (r *Registry) AddView(view string, action *Action) {
	r.views[view] = upsert(r.views[view], action)
}

func upsert(list []*Action, a *Action) []*Action {
	for i, cur := range list {
		if cur.Name == a.Name {
			list[i] = a
			return list
		}
	}
	return append(list, a)
}

// Visible returns the visible bindings for a page, page bindings first.
func (r *Registry) Visible(view string) []*Action {
	var out []*Action
	for _, a := range r.views[view] {
		if a.Visible {
			out = append(out, a)
		}
	}
	for _, a := range r.global {
		if a.Visible {
			out = append(out, a)
		}
	}
	return out
}

// HandleEvent dispatches a key event to the matching action in the given view.
// Page bindings shadow global ones. Returns true if a handler matched.
func (r *Registry) HandleEvent(view string, ev *tcell.EventKey) bool {
	for _, scope := range [][]*Action{r.views[view], r.global} {
		for _, a := range scope {
			if a.Matches(ev) {
				a.Handler()
				return true
			}
		}
	}
	return false
}
