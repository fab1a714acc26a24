package devices

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Defaults applied when a terminal has no registry row (or pushed no serial).
const (
	DefaultMinOutGapSeconds       = 14400
	DefaultDuplicateWindowSeconds = 300
)

// Device is one registered biometric terminal.
type Device struct {
	Serial                 string     `json:"serial"`
	Location               *string    `json:"location,omitempty"`
	MinOutGapSeconds       int        `json:"min_out_gap_seconds"`
	DuplicateWindowSeconds int        `json:"duplicate_window_seconds"`
	LastSeenAt             *time.Time `json:"last_seen_at,omitempty"`
	CreatedAt              time.Time  `json:"created_at"`
}

// Config is the subset of device settings the punch classifier consumes.
type Config struct {
	MinOutGapSeconds       int
	DuplicateWindowSeconds int
}

// DefaultConfig returns the classifier settings for unknown devices.
func DefaultConfig() Config {
	return Config{
		MinOutGapSeconds:       DefaultMinOutGapSeconds,
		DuplicateWindowSeconds: DefaultDuplicateWindowSeconds,
	}
}

// Registry resolves per-device classifier settings.
type Registry interface {
	ConfigFor(ctx context.Context, serial string) (*Config, error)
}

// Repository persists devices in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Upsert ensures a device record exists, keeping any tuned settings.
func (r *Repository) Upsert(ctx context.Context, serial string, location *string) error {
	if serial == "" {
		return errors.New("device serial required")
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO devices (serial, location, min_out_gap_seconds, duplicate_window_seconds)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (serial) DO UPDATE SET
			location = COALESCE(EXCLUDED.location, devices.location)
	`, serial, location, DefaultMinOutGapSeconds, DefaultDuplicateWindowSeconds)
	return err
}

// TouchLastSeen records the terminal as alive; called on every push.
func (r *Repository) TouchLastSeen(ctx context.Context, serial string) error {
	if serial == "" {
		return nil
	}
	_, err := r.db.ExecContext(ctx, `
		UPDATE devices SET last_seen_at = NOW() WHERE serial = $1
	`, serial)
	return err
}

// ConfigFor returns the device's classifier settings, or nil when unregistered.
func (r *Repository) ConfigFor(ctx context.Context, serial string) (*Config, error) {
	if serial == "" {
		return nil, nil
	}
	row := r.db.QueryRowContext(ctx, `
		SELECT min_out_gap_seconds, duplicate_window_seconds
		FROM devices WHERE serial = $1
	`, serial)
	var cfg Config
	if err := row.Scan(&cfg.MinOutGapSeconds, &cfg.DuplicateWindowSeconds); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &cfg, nil
}

// UpdateConfig tunes a device's classifier windows.
func (r *Repository) UpdateConfig(ctx context.Context, serial string, cfg Config) error {
	if cfg.MinOutGapSeconds <= 0 || cfg.DuplicateWindowSeconds <= 0 {
		return errors.New("gap and window must be positive")
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE devices
		SET min_out_gap_seconds = $2, duplicate_window_seconds = $3
		WHERE serial = $1
	`, serial, cfg.MinOutGapSeconds, cfg.DuplicateWindowSeconds)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.New("device not registered")
	}
	return nil
}

// List returns all registered devices.
func (r *Repository) List(ctx context.Context) ([]Device, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT serial, location, min_out_gap_seconds, duplicate_window_seconds, last_seen_at, created_at
		FROM devices ORDER BY serial
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Device
	for rows.Next() {
		var d Device
		if err := rows.Scan(&d.Serial, &d.Location, &d.MinOutGapSeconds, &d.DuplicateWindowSeconds, &d.LastSeenAt, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
