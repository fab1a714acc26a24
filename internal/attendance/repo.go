package attendance

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository persists attendance data in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// ListDay returns a person's records for one attendance day, unsorted.
func (r *Repository) ListDay(ctx context.Context, personID, day string) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, person_id, device_serial, day, type, punched_at, raw_line, created_at
		FROM attendance_records
		WHERE person_id = $1 AND day = $2
	`, personID, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.PersonID, &rec.DeviceSerial, &rec.Day, &rec.Type,
			&rec.PunchedAt, &rec.RawLine, &rec.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Insert appends a new record.
func (r *Repository) Insert(ctx context.Context, rec Record) (Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO attendance_records (id, person_id, device_serial, day, type, punched_at, raw_line)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING created_at
	`, rec.ID, rec.PersonID, rec.DeviceSerial, rec.Day, rec.Type, rec.PunchedAt, rec.RawLine)
	if err := row.Scan(&rec.CreatedAt); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// ListRange returns records filtered by person and day for the admin API.
func (r *Repository) ListRange(ctx context.Context, personID, fromDay, toDay string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, person_id, device_serial, day, type, punched_at, raw_line, created_at
		FROM attendance_records
		WHERE person_id = $1 AND day >= $2 AND day <= $3
		ORDER BY punched_at DESC
		LIMIT $4
	`, personID, fromDay, toDay, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.PersonID, &rec.DeviceSerial, &rec.Day, &rec.Type,
			&rec.PunchedAt, &rec.RawLine, &rec.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// GetSummary returns the rollup for one person/day, or (nil, nil).
func (r *Repository) GetSummary(ctx context.Context, personID, day string) (*DaySummary, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT person_id, day, first_in, last_out, present, recorded_at
		FROM attendance_summaries
		WHERE person_id = $1 AND day = $2
	`, personID, day)
	var s DaySummary
	if err := row.Scan(&s.PersonID, &s.Day, &s.FirstIn, &s.LastOut, &s.Present, &s.RecordedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// UpsertSummary writes the rollup row for one person/day.
func (r *Repository) UpsertSummary(ctx context.Context, s DaySummary) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO attendance_summaries (person_id, day, first_in, last_out, present, recorded_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (person_id, day) DO UPDATE SET
			first_in = EXCLUDED.first_in,
			last_out = EXCLUDED.last_out,
			present = EXCLUDED.present,
			recorded_at = EXCLUDED.recorded_at
	`, s.PersonID, s.Day, s.FirstIn, s.LastOut, s.Present, time.Now().UTC())
	return err
}
