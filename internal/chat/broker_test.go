package chat

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
)

type fakeMember struct {
	name   string
	got    chan *Message
	jammed bool
	kicked atomic.Bool
}

func newFakeMember(name string) *fakeMember {
	return &fakeMember{name: name, got: make(chan *Message, 64)}
}

func (f *fakeMember) deliver(m *Message) bool {
	if f.jammed {
		return false
	}
	select {
	case f.got <- m:
		return true
	default:
		return false
	}
}

func (f *fakeMember) kick(reason string) { f.kicked.Store(true) }

func (f *fakeMember) id() string { return f.name }

func testBroker() *Broker {
	return NewBroker(zerolog.Nop())
}

func TestBrokerFanOutIncludesSender(t *testing.T) {
	b := testBroker()
	a := newFakeMember("a")
	c := newFakeMember("c")
	b.Join("trip-1", a)
	b.Join("trip-1", c)

	msg := &Message{RoomKey: "trip-1", Author: "a@example.com", Content: "hello"}
	b.Publish("trip-1", msg)

	for _, m := range []*fakeMember{a, c} {
		select {
		case got := <-m.got:
			if got.Content != "hello" {
				t.Errorf("member %s got %q, want %q", m.name, got.Content, "hello")
			}
		default:
			t.Errorf("member %s received nothing", m.name)
		}
	}
}

func TestBrokerRoomsAreIsolated(t *testing.T) {
	b := testBroker()
	one := newFakeMember("one")
	two := newFakeMember("two")
	b.Join("trip-1", one)
	b.Join("trip-2", two)

	b.Publish("trip-1", &Message{RoomKey: "trip-1", Content: "only room one"})

	if len(one.got) != 1 {
		t.Errorf("room one member got %d messages, want 1", len(one.got))
	}
	if len(two.got) != 0 {
		t.Errorf("room two member got %d messages, want 0", len(two.got))
	}
}

func TestBrokerJoinIsIdempotent(t *testing.T) {
	b := testBroker()
	m := newFakeMember("m")
	b.Join("trip-1", m)
	b.Join("trip-1", m)

	if n := b.Members("trip-1"); n != 1 {
		t.Fatalf("Members = %d, want 1", n)
	}

	b.Publish("trip-1", &Message{Content: "once"})
	if len(m.got) != 1 {
		t.Errorf("got %d deliveries, want 1", len(m.got))
	}
}

func TestBrokerLeaveDropsEmptyRoom(t *testing.T) {
	b := testBroker()
	m := newFakeMember("m")
	b.Join("trip-1", m)
	b.Leave("trip-1", m)

	if n := b.Members("trip-1"); n != 0 {
		t.Fatalf("Members = %d, want 0", n)
	}
	b.mu.RLock()
	_, exists := b.rooms["trip-1"]
	b.mu.RUnlock()
	if exists {
		t.Error("empty room entry was not dropped")
	}

	// Leaving again, or leaving a room that never existed, must be a no-op.
	b.Leave("trip-1", m)
	b.Leave("never-created", m)
}

func TestBrokerPublishToUnknownRoomIsNoOp(t *testing.T) {
	b := testBroker()
	b.Publish("trip-404", &Message{Content: "void"})
}

func TestBrokerSlowMemberIsEvictedAndIsolated(t *testing.T) {
	b := testBroker()
	slow := newFakeMember("slow")
	slow.jammed = true
	healthy := newFakeMember("healthy")
	b.Join("trip-1", slow)
	b.Join("trip-1", healthy)

	b.Publish("trip-1", &Message{Content: "still flows"})

	if !slow.kicked.Load() {
		t.Error("jammed member was not kicked")
	}
	if len(healthy.got) != 1 {
		t.Errorf("healthy member got %d messages, want 1", len(healthy.got))
	}
	if n := b.Members("trip-1"); n != 1 {
		t.Errorf("Members = %d after eviction, want 1", n)
	}
}

func TestBrokerDisconnectDoesNotCorruptMembership(t *testing.T) {
	b := testBroker()
	a := newFakeMember("a")
	c := newFakeMember("c")
	d := newFakeMember("d")
	b.Join("trip-1", a)
	b.Join("trip-1", c)
	b.Join("trip-1", d)

	b.Leave("trip-1", a)
	b.Publish("trip-1", &Message{Content: "after leave"})

	if len(a.got) != 0 {
		t.Error("departed member still received a delivery")
	}
	if len(c.got) != 1 || len(d.got) != 1 {
		t.Error("remaining members missed the delivery")
	}

	// Membership keeps working after the departure.
	e := newFakeMember("e")
	b.Join("trip-1", e)
	if n := b.Members("trip-1"); n != 3 {
		t.Errorf("Members = %d, want 3", n)
	}
}

func TestBrokerShutdownKicksEveryoneAndRefusesJoins(t *testing.T) {
	b := testBroker()
	a := newFakeMember("a")
	c := newFakeMember("c")
	b.Join("trip-1", a)
	b.Join("trip-2", c)

	b.Shutdown()

	if !a.kicked.Load() || !c.kicked.Load() {
		t.Error("members were not kicked on shutdown")
	}
	if b.Join("trip-3", newFakeMember("late")) {
		t.Error("Join succeeded after shutdown")
	}
	b.Shutdown() // second call is a no-op
}

func TestBrokerConcurrentChurn(t *testing.T) {
	b := testBroker()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			room := fmt.Sprintf("trip-%d", n%4)
			m := newFakeMember(fmt.Sprintf("m%d", n))
			for j := 0; j < 100; j++ {
				b.Join(room, m)
				b.Publish(room, &Message{Content: "x"})
				// Drain so the bounded inbox never jams the member.
				for len(m.got) > 0 {
					<-m.got
				}
				b.Leave(room, m)
			}
		}(i)
	}
	wg.Wait()
}
