package chat

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps per-room logs in process memory. It backs tests and
// provides a second Store backend with the same ordering contract as
// Postgres: per-room serialized appends, non-decreasing timestamps,
// strictly increasing seq.
type MemoryStore struct {
	mu    sync.RWMutex
	rooms map[string]*roomLog
	ids   int64
}

type roomLog struct {
	mu       sync.Mutex
	messages []*Message
	lastTS   time.Time
	seq      int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rooms: make(map[string]*roomLog)}
}

func (s *MemoryStore) room(roomKey string, create bool) *roomLog {
	s.mu.RLock()
	log, ok := s.rooms[roomKey]
	s.mu.RUnlock()
	if ok || !create {
		return log
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if log, ok = s.rooms[roomKey]; ok {
		return log
	}
	log = &roomLog{}
	s.rooms[roomKey] = log
	return log
}

func (s *MemoryStore) Append(ctx context.Context, roomKey, author, content string) (*Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, &PersistenceError{RoomKey: roomKey, Err: err}
	}

	log := s.room(roomKey, true)
	log.mu.Lock()
	defer log.mu.Unlock()

	ts := time.Now()
	if ts.Before(log.lastTS) {
		ts = log.lastTS
	}
	log.lastTS = ts
	log.seq++

	s.mu.Lock()
	s.ids++
	id := s.ids
	s.mu.Unlock()

	msg := &Message{
		ID:        id,
		RoomKey:   roomKey,
		Author:    author,
		Content:   content,
		Seq:       log.seq,
		Timestamp: ts,
	}
	log.messages = append(log.messages, msg)
	return msg, nil
}

func (s *MemoryStore) RecentHistory(ctx context.Context, roomKey string, limit int) ([]*Message, error) {
	msgs, err := s.AllHistory(ctx, roomKey)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return msgs, nil
}

func (s *MemoryStore) AllHistory(ctx context.Context, roomKey string) ([]*Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	log := s.room(roomKey, false)
	if log == nil {
		return nil, nil
	}

	log.mu.Lock()
	defer log.mu.Unlock()
	// Appends only ever extend the slice, so a copy is a consistent snapshot.
	out := make([]*Message, len(log.messages))
	copy(out, log.messages)
	return out, nil
}
