package chat

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/01Freebird10/Smart-trip/internal/metrics"
)

// member is the broker's non-owning view of a connection. deliver must not
// block: it reports false when the member's queue is full, and the broker
// evicts the member rather than stall the rest of the room.
type member interface {
	deliver(msg *Message) bool
	kick(reason string)
	id() string
}

// Broker keeps the membership table and fans published messages out to every
// current member of a room. Rooms exist implicitly: the first Join creates
// the entry, the last Leave drops it. Each room has its own lock, so traffic
// in one room never contends with another, and Publish snapshots the member
// set before delivering so membership churn is never blocked by slow writes.
type Broker struct {
	mu     sync.RWMutex
	rooms  map[string]*room
	closed bool
	log    zerolog.Logger
}

type room struct {
	mu      sync.RWMutex
	members map[member]struct{}
}

func NewBroker(log zerolog.Logger) *Broker {
	return &Broker{
		rooms: make(map[string]*room),
		log:   log.With().Str("component", "broker").Logger(),
	}
}

// Join adds the connection to the room's membership set. Idempotent.
// Returns false if the broker is shutting down. Membership mutation happens
// under the table lock so a Join can never land in a room entry a concurrent
// last-member Leave is dropping.
func (b *Broker) Join(roomKey string, m member) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return false
	}
	rm, ok := b.rooms[roomKey]
	if !ok {
		rm = &room{members: make(map[member]struct{})}
		b.rooms[roomKey] = rm
	}
	rm.mu.Lock()
	rm.members[m] = struct{}{}
	rm.mu.Unlock()
	return true
}

// Leave removes the connection; a no-op for unknown rooms or non-members.
// The room entry is dropped once its membership set empties.
func (b *Broker) Leave(roomKey string, m member) {
	b.mu.Lock()
	defer b.mu.Unlock()
	rm, ok := b.rooms[roomKey]
	if !ok {
		return
	}
	rm.mu.Lock()
	delete(rm.members, m)
	empty := len(rm.members) == 0
	rm.mu.Unlock()
	if empty {
		delete(b.rooms, roomKey)
	}
}

// Publish delivers msg to the members joined at call time. A member whose
// queue is full is evicted and closed; its failure never reaches the
// publisher or the other members. Publishing to an absent room is a no-op.
func (b *Broker) Publish(roomKey string, msg *Message) {
	b.mu.RLock()
	rm, ok := b.rooms[roomKey]
	b.mu.RUnlock()
	if !ok {
		return
	}

	rm.mu.RLock()
	snapshot := make([]member, 0, len(rm.members))
	for m := range rm.members {
		snapshot = append(snapshot, m)
	}
	rm.mu.RUnlock()

	for _, m := range snapshot {
		if !m.deliver(msg) {
			metrics.DeliveriesDropped.Inc()
			b.log.Warn().
				Str("room", roomKey).
				Str("session", m.id()).
				Msg("member too slow, evicting")
			b.Leave(roomKey, m)
			m.kick("outbound queue overflow")
		}
	}
}

// Members reports the current size of a room's membership set.
func (b *Broker) Members(roomKey string) int {
	b.mu.RLock()
	rm, ok := b.rooms[roomKey]
	b.mu.RUnlock()
	if !ok {
		return 0
	}
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return len(rm.members)
}

// Shutdown closes every member and refuses further joins. Safe to call once
// the HTTP listener has stopped accepting upgrades.
func (b *Broker) Shutdown() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	rooms := b.rooms
	b.rooms = make(map[string]*room)
	b.mu.Unlock()

	for _, rm := range rooms {
		rm.mu.RLock()
		snapshot := make([]member, 0, len(rm.members))
		for m := range rm.members {
			snapshot = append(snapshot, m)
		}
		rm.mu.RUnlock()
		for _, m := range snapshot {
			m.kick("server shutting down")
		}
	}
}
