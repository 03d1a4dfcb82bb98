package chat

import "context"

// Store is the durable, append-only per-room message log. Append must be
// linearizable per room: timestamps are non-decreasing and seq strictly
// increases within a room, so every reader observes one committed order.
// Both history calls return messages ascending by timestamp then seq and
// reflect every Append that returned successfully (read-after-write).
type Store interface {
	Append(ctx context.Context, roomKey, author, content string) (*Message, error)
	RecentHistory(ctx context.Context, roomKey string, limit int) ([]*Message, error)
	AllHistory(ctx context.Context, roomKey string) ([]*Message, error)
}
