package sync

import (
	"slices"
	"testing"

	"github.com/matheus3301/pollchat/internal/wire"
)

func ids(msgs []wire.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.ID
	}
	return out
}

func TestMergeOrdersAndDeduplicates(t *testing.T) {
	a := []wire.Message{msg("m3", "c1", 3), msg("m1", "c1", 1)}
	b := []wire.Message{msg("m2", "c1", 2), msg("m1", "c1", 1)}

	got := ids(Merge(a, b))
	want := []string{"m1", "m2", "m3"}
	if !slices.Equal(got, want) {
		t.Fatalf("Merge = %v, want %v", got, want)
	}
}

func TestMergeTiesBrokenByID(t *testing.T) {
	got := ids(Merge([]wire.Message{msg("b", "c1", 5), msg("a", "c1", 5), msg("c", "c1", 4)}))
	want := []string{"c", "a", "b"}
	if !slices.Equal(got, want) {
		t.Errorf("Merge = %v, want %v", got, want)
	}
}

func TestMergeLaterBatchWins(t *testing.T) {
	old := msg("m1", "c1", 1)
	updated := old
	updated.Status = wire.StatusSeen

	got := Merge([]wire.Message{old}, []wire.Message{updated})
	if len(got) != 1 || got[0].Status != wire.StatusSeen {
		t.Errorf("Merge = %+v, want one seen message", got)
	}
}

func TestMergeIsIdempotent(t *testing.T) {
	batch := []wire.Message{msg("m2", "c1", 2), msg("m1", "c1", 1), msg("m3", "c1", 2)}
	once := Merge(batch)
	twice := Merge(once, batch)
	if !slices.Equal(ids(once), ids(twice)) {
		t.Errorf("merging again changed the result: %v vs %v", ids(once), ids(twice))
	}

	reversed := slices.Clone(batch)
	slices.Reverse(reversed)
	if !slices.Equal(ids(Merge(reversed)), ids(once)) {
		t.Error("input order changed the result")
	}
	if batch[0].ID != "m2" {
		t.Error("Merge modified its input")
	}
}

func TestThreadIgnoresOtherChats(t *testing.T) {
	th := NewThread("c1", []wire.Message{msg("m1", "c1", 1), msg("x", "c2", 1)})
	th.HandleMessage(MessageEvent{ChatID: "c2", Message: msg("y", "c2", 2)})
	th.HandleMessage(MessageEvent{ChatID: "c1", Message: msg("m2", "c1", 2)})
	th.Add(msg("m0", "c1", 0))

	if got := ids(th.Messages()); !slices.Equal(got, []string{"m0", "m1", "m2"}) {
		t.Errorf("thread = %v", got)
	}
}

func TestInboxKeepsNewestSummary(t *testing.T) {
	in := NewInbox([]wire.Chat{{ID: "c1", UpdatedAt: at(10)}, {ID: "c2", UpdatedAt: at(20)}})

	in.HandleChat(ChatEvent{ChatID: "c1", Chat: wire.Chat{ID: "c1", UpdatedAt: at(5)}})
	if c, _ := in.Get("c1"); !c.UpdatedAt.Equal(at(10)) {
		t.Errorf("older summary replaced newer one: %v", c.UpdatedAt)
	}

	in.HandleChat(ChatEvent{ChatID: "c1", Chat: wire.Chat{ID: "c1", UpdatedAt: at(30)}})
	var order []string
	for _, c := range in.Chats() {
		order = append(order, c.ID)
	}
	if !slices.Equal(order, []string{"c1", "c2"}) {
		t.Errorf("Chats order = %v, want [c1 c2]", order)
	}
	if !slices.Equal(in.IDs(), []string{"c1", "c2"}) {
		t.Errorf("IDs = %v", in.IDs())
	}
}
