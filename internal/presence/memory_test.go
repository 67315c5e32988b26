package presence

import (
	"context"
	"testing"
)

func TestMemorySetOnlineIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	steps := []struct {
		online      bool
		wantChanged bool
	}{
		{true, true},
		{true, false},
		{false, true},
		{false, false},
	}
	for i, st := range steps {
		changed, err := s.SetOnline(ctx, "u1", st.online)
		if err != nil {
			t.Fatal(err)
		}
		if changed != st.wantChanged {
			t.Errorf("step %d: changed = %v, want %v", i, changed, st.wantChanged)
		}
	}
}

func TestMemoryOnlineLookup(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	for _, id := range []string{"u2", "u1"} {
		if _, err := s.SetOnline(ctx, id, true); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.Online(ctx, []string{"u1", "u3"})
	if err != nil {
		t.Fatal(err)
	}
	if !got["u1"] || got["u3"] {
		t.Errorf("Online = %v", got)
	}

	ids, err := s.ListOnline(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 2 || ids[0] != "u1" || ids[1] != "u2" {
		t.Errorf("ListOnline = %v, want [u1 u2]", ids)
	}
}

func TestOpenWithoutURLUsesMemory(t *testing.T) {
	s, err := Open(context.Background(), "  ")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = s.Close() }()
	if _, ok := s.(*Memory); !ok {
		t.Errorf("Open(\"\") = %T, want *Memory", s)
	}
}
