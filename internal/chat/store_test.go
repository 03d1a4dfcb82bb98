package chat

import (
	"context"
	"fmt"
	"sync"
	"testing"
)

func TestMemoryStoreAppendAndHistoryOrder(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	contents := []string{"first", "second", "third", "emoji ✈️", `{"nested":"json"}`}
	for _, c := range contents {
		if _, err := s.Append(ctx, "trip-1", "a@example.com", c); err != nil {
			t.Fatalf("Append(%q): %v", c, err)
		}
	}

	msgs, err := s.AllHistory(ctx, "trip-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != len(contents) {
		t.Fatalf("AllHistory returned %d messages, want %d", len(msgs), len(contents))
	}
	for i, m := range msgs {
		if m.Content != contents[i] {
			t.Errorf("message %d content = %q, want %q", i, m.Content, contents[i])
		}
		if m.Author != "a@example.com" {
			t.Errorf("message %d author = %q", i, m.Author)
		}
		if i > 0 {
			prev := msgs[i-1]
			if m.Timestamp.Before(prev.Timestamp) {
				t.Errorf("message %d timestamp went backwards", i)
			}
			if m.Seq <= prev.Seq {
				t.Errorf("message %d seq %d not after %d", i, m.Seq, prev.Seq)
			}
		}
	}
}

func TestMemoryStoreRecentHistoryLimit(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	for i := 0; i < 120; i++ {
		if _, err := s.Append(ctx, "trip-1", "a@example.com", fmt.Sprintf("msg-%d", i)); err != nil {
			t.Fatal(err)
		}
	}

	msgs, err := s.RecentHistory(ctx, "trip-1", 50)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 50 {
		t.Fatalf("RecentHistory returned %d messages, want 50", len(msgs))
	}
	// The most recent 50, still ascending.
	if msgs[0].Content != "msg-70" || msgs[49].Content != "msg-119" {
		t.Errorf("window = [%s .. %s], want [msg-70 .. msg-119]", msgs[0].Content, msgs[49].Content)
	}
}

func TestMemoryStoreRecentHistoryShortRoom(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	s.Append(ctx, "trip-1", "a@example.com", "only one")

	msgs, err := s.RecentHistory(ctx, "trip-1", 50)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(msgs))
	}
}

func TestMemoryStoreUnknownRoomIsEmpty(t *testing.T) {
	s := NewMemoryStore()
	msgs, err := s.AllHistory(context.Background(), "trip-404")
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 0 {
		t.Fatalf("got %d messages for unknown room", len(msgs))
	}
}

func TestMemoryStoreRoomsAreIndependent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	s.Append(ctx, "trip-1", "a@example.com", "one")
	s.Append(ctx, "trip-2", "b@example.com", "two")

	one, _ := s.AllHistory(ctx, "trip-1")
	two, _ := s.AllHistory(ctx, "trip-2")
	if len(one) != 1 || len(two) != 1 {
		t.Fatalf("cross-room leak: %d/%d", len(one), len(two))
	}
	if one[0].Seq != 1 || two[0].Seq != 1 {
		t.Error("seq should start at 1 independently per room")
	}
}

func TestMemoryStoreConcurrentAppendsStayOrdered(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	const writers = 8
	const perWriter = 50
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				if _, err := s.Append(ctx, "trip-1", fmt.Sprintf("w%d@example.com", w), "x"); err != nil {
					t.Error(err)
					return
				}
			}
		}(w)
	}
	wg.Wait()

	msgs, err := s.AllHistory(ctx, "trip-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != writers*perWriter {
		t.Fatalf("got %d messages, want %d", len(msgs), writers*perWriter)
	}
	for i := 1; i < len(msgs); i++ {
		if msgs[i].Seq != msgs[i-1].Seq+1 {
			t.Fatalf("seq gap at %d: %d then %d", i, msgs[i-1].Seq, msgs[i].Seq)
		}
		if msgs[i].Timestamp.Before(msgs[i-1].Timestamp) {
			t.Fatalf("timestamp regression at %d", i)
		}
	}
}
