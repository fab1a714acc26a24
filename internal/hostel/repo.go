package hostel

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Repository persists leave requests in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const leaveColumns = `id, person_id, kind, reason, from_date, to_date, document_url,
	status, decided_by, decided_at, note, created_at`

// Insert writes a new pending request.
func (r *Repository) Insert(ctx context.Context, lr LeaveRequest) (LeaveRequest, error) {
	if lr.ID == "" {
		lr.ID = uuid.NewString()
	}
	lr.Status = StatusPending
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO leave_requests (id, person_id, kind, reason, from_date, to_date, document_url, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING created_at
	`, lr.ID, lr.PersonID, lr.Kind, lr.Reason, lr.FromDate, lr.ToDate, lr.DocumentURL, lr.Status)
	if err := row.Scan(&lr.CreatedAt); err != nil {
		return LeaveRequest{}, err
	}
	return lr, nil
}

// Get returns one request, or (nil, nil).
func (r *Repository) Get(ctx context.Context, id string) (*LeaveRequest, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+leaveColumns+` FROM leave_requests WHERE id = $1
	`, id)
	var lr LeaveRequest
	if err := row.Scan(&lr.ID, &lr.PersonID, &lr.Kind, &lr.Reason, &lr.FromDate, &lr.ToDate,
		&lr.DocumentURL, &lr.Status, &lr.DecidedBy, &lr.DecidedAt, &lr.Note, &lr.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &lr, nil
}

// List returns requests filtered by person and/or status.
func (r *Repository) List(ctx context.Context, personID, status string, limit int) ([]LeaveRequest, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + leaveColumns + ` FROM leave_requests WHERE 1=1`
	args := []any{}
	if personID != "" {
		args = append(args, personID)
		query += ` AND person_id = $1`
	}
	if status != "" {
		args = append(args, status)
		query += ` AND status = $` + itoa(len(args))
	}
	args = append(args, limit)
	query += ` ORDER BY created_at DESC LIMIT $` + itoa(len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []LeaveRequest
	for rows.Next() {
		var lr LeaveRequest
		if err := rows.Scan(&lr.ID, &lr.PersonID, &lr.Kind, &lr.Reason, &lr.FromDate, &lr.ToDate,
			&lr.DocumentURL, &lr.Status, &lr.DecidedBy, &lr.DecidedAt, &lr.Note, &lr.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, lr)
	}
	return out, rows.Err()
}

// Decide moves a pending request to approved or declined. The WHERE clause
// on status makes a second decision a no-op at the store level.
func (r *Repository) Decide(ctx context.Context, id, status, decidedBy string, note *string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE leave_requests
		SET status = $2, decided_by = $3, decided_at = $4, note = $5
		WHERE id = $1 AND status = $6
	`, id, status, decidedBy, time.Now().UTC(), note, StatusPending)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func itoa(i int) string { return strconv.Itoa(i) }
