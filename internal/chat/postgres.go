package chat

import (
	"context"
	"database/sql"
)

// PostgresStore persists messages in the shared messages table. The per-room
// advisory lock serializes appends for one room so seq assignment and commit
// order agree, without blocking appends to other rooms.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, roomKey, author, content string) (*Message, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, &PersistenceError{RoomKey: roomKey, Err: err}
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", roomKey); err != nil {
		return nil, &PersistenceError{RoomKey: roomKey, Err: err}
	}

	msg := &Message{RoomKey: roomKey, Author: author, Content: content}
	query := `
		INSERT INTO messages (room_key, author, content, seq, created_at)
		VALUES (
			$1, $2, $3,
			(SELECT COALESCE(MAX(seq), 0) + 1 FROM messages WHERE room_key = $1),
			GREATEST(
				CURRENT_TIMESTAMP,
				COALESCE((SELECT MAX(created_at) FROM messages WHERE room_key = $1), CURRENT_TIMESTAMP)
			)
		)
		RETURNING id, seq, created_at
	`
	err = tx.QueryRowContext(ctx, query, roomKey, author, content).
		Scan(&msg.ID, &msg.Seq, &msg.Timestamp)
	if err != nil {
		return nil, &PersistenceError{RoomKey: roomKey, Err: err}
	}

	if err := tx.Commit(); err != nil {
		return nil, &PersistenceError{RoomKey: roomKey, Err: err}
	}
	return msg, nil
}

func (s *PostgresStore) RecentHistory(ctx context.Context, roomKey string, limit int) ([]*Message, error) {
	// Newest N, then flipped back to ascending so replay order matches the
	// full-history contract.
	query := `
		SELECT id, room_key, author, content, seq, created_at FROM (
			SELECT id, room_key, author, content, seq, created_at
			FROM messages
			WHERE room_key = $1
			ORDER BY created_at DESC, seq DESC
			LIMIT $2
		) recent
		ORDER BY created_at ASC, seq ASC
	`
	return s.queryMessages(ctx, query, roomKey, limit)
}

func (s *PostgresStore) AllHistory(ctx context.Context, roomKey string) ([]*Message, error) {
	query := `
		SELECT id, room_key, author, content, seq, created_at
		FROM messages
		WHERE room_key = $1
		ORDER BY created_at ASC, seq ASC
	`
	return s.queryMessages(ctx, query, roomKey)
}

func (s *PostgresStore) queryMessages(ctx context.Context, query string, args ...any) ([]*Message, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []*Message
	for rows.Next() {
		msg := &Message{}
		if err := rows.Scan(&msg.ID, &msg.RoomKey, &msg.Author, &msg.Content, &msg.Seq, &msg.Timestamp); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}
