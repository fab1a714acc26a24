package hostel

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Notification is one delivered message for a person's inbox.
type Notification struct {
	ID        string     `json:"id"`
	PersonID  string     `json:"person_id"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// InsertNotification writes an inbox row; called by the worker.
func (r *Repository) InsertNotification(ctx context.Context, n Notification) (Notification, error) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO notifications (id, person_id, title, body)
		VALUES ($1,$2,$3,$4)
		RETURNING created_at
	`, n.ID, n.PersonID, n.Title, n.Body)
	if err := row.Scan(&n.CreatedAt); err != nil {
		return Notification{}, err
	}
	return n, nil
}

// ListNotifications returns a person's inbox, newest first.
func (r *Repository) ListNotifications(ctx context.Context, personID string, limit int) ([]Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, person_id, title, body, read_at, created_at
		FROM notifications WHERE person_id = $1
		ORDER BY created_at DESC LIMIT $2
	`, personID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.PersonID, &n.Title, &n.Body, &n.ReadAt, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
