package domain

import "testing"

func TestSortOrderStable(t *testing.T) {
	ts := &TurnState{
		Order: []TurnEntry{
			{ID: "goblin", Initiative: 19, Kind: EntryMonster},
			{ID: "wolf", Initiative: 12, Kind: EntryMonster},
			{ID: "rat", Initiative: 3, Kind: EntryMonster},
			{ID: "aria", Initiative: 19, Kind: EntryPlayer},
		},
	}
	ts.SortOrder()

	want := []string{"goblin", "aria", "wolf", "rat"}
	for i, id := range want {
		if ts.Order[i].ID != id {
			t.Fatalf("order[%d] = %s, want %s", i, ts.Order[i].ID, id)
		}
	}
}

func TestCurrentOutOfRange(t *testing.T) {
	ts := &TurnState{}
	if _, ok := ts.Current(); ok {
		t.Fatal("expected no current entry on empty order")
	}
	ts.Order = []TurnEntry{{ID: "a"}}
	ts.Cursor = 1
	if _, ok := ts.Current(); ok {
		t.Fatal("expected no current entry with cursor past the end")
	}
	ts.Cursor = 0
	if cur, ok := ts.Current(); !ok || cur.ID != "a" {
		t.Fatalf("expected current entry a, got %+v ok=%v", cur, ok)
	}
}

func TestAppendLogCap(t *testing.T) {
	var log []string
	for i := 0; i < 11; i++ {
		log = AppendLog(log, string(rune('A'+i)))
	}
	if len(log) != LogCap {
		t.Fatalf("expected %d entries, got %d", LogCap, len(log))
	}
	if log[0] != "B" {
		t.Fatalf("expected oldest entry A to be evicted, got first %q", log[0])
	}
	if log[len(log)-1] != "K" {
		t.Fatalf("expected newest entry K last, got %q", log[len(log)-1])
	}
}
