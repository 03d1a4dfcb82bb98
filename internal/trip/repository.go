package trip

import (
	"context"
	"database/sql"
	"fmt"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// CreateTrip inserts the trip and enrolls the owner as its first member.
func (r *Repository) CreateTrip(ctx context.Context, name string, ownerID int) (*Trip, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	t := &Trip{Name: name, OwnerID: ownerID}
	err = tx.QueryRowContext(ctx,
		"INSERT INTO trips (name, owner_id) VALUES ($1, $2) RETURNING id, created_at",
		name, ownerID,
	).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO trip_members (trip_id, user_id) VALUES ($1, $2)",
		t.ID, ownerID,
	)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("create trip: %w", err)
	}
	return t, nil
}

func (r *Repository) ListByUser(ctx context.Context, userID int) ([]Trip, error) {
	query := `
		SELECT t.id, t.name, t.owner_id, t.created_at
		FROM trips t
		JOIN trip_members m ON m.trip_id = t.id
		WHERE m.user_id = $1
		ORDER BY t.created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trips []Trip
	for rows.Next() {
		var t Trip
		if err := rows.Scan(&t.ID, &t.Name, &t.OwnerID, &t.CreatedAt); err != nil {
			return nil, err
		}
		trips = append(trips, t)
	}
	return trips, rows.Err()
}

// IsMember reports whether the identity (user email) belongs to the trip.
func (r *Repository) IsMember(ctx context.Context, identity string, tripID int) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM trip_members m
			JOIN users u ON u.id = m.user_id
			WHERE m.trip_id = $1 AND u.email = $2
		)
	`
	var member bool
	err := r.db.QueryRowContext(ctx, query, tripID, identity).Scan(&member)
	return member, err
}
