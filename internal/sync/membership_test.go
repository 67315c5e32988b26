package sync

import (
	"slices"
	"testing"
	"time"
)

func TestMembershipJoinLeave(t *testing.T) {
	m := NewMembership()
	m.Join("b")
	m.Join("a")
	m.Join("a")
	m.Join("")
	if got := m.Snapshot().Members; !slices.Equal(got, []string{"a", "b"}) {
		t.Fatalf("members = %v", got)
	}

	m.SetFocus("a")
	m.Leave("a")
	m.Leave("a")
	s := m.Snapshot()
	if s.Has("a") || !s.Has("b") {
		t.Errorf("members after leave = %v", s.Members)
	}
	if s.Focus != "a" {
		t.Errorf("leave cleared focus: %q", s.Focus)
	}
}

func TestSelectTier(t *testing.T) {
	tests := []struct {
		name    string
		visible bool
		state   State
		want    Tier
	}{
		{"focused member", true, State{Members: []string{"A", "B"}, Focus: "A"}, TierFast},
		{"no focus", true, State{Members: []string{"A", "B"}}, TierBackground},
		{"focus not joined", true, State{Members: []string{"B"}, Focus: "A"}, TierBackground},
		{"hidden", false, State{Members: []string{"A"}, Focus: "A"}, TierSuspended},
		{"empty", true, State{}, TierBackground},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SelectTier(tt.visible, tt.state); got != tt.want {
				t.Errorf("SelectTier = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestIntervalsDefaults(t *testing.T) {
	iv := Intervals{Fast: 10 * time.Millisecond}.withDefaults()
	if iv.Fast != 10*time.Millisecond || iv.Background != 3*time.Second || iv.Recheck != time.Second {
		t.Errorf("intervals = %+v", iv)
	}
	if iv.For(TierSuspended) != iv.Recheck {
		t.Error("suspended tier should use the recheck interval")
	}
}

func TestCursorAdvancesForwardOnly(t *testing.T) {
	c := NewCursor(at(10))
	if c.Advance(at(5)) || c.Advance(at(10)) {
		t.Error("cursor moved backward or sideways")
	}
	if !c.Advance(at(11)) || !c.Get().Equal(at(11)) {
		t.Errorf("cursor = %v, want %v", c.Get(), at(11))
	}
}
