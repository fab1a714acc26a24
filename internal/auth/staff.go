package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Staff is an administrative account (warden, office staff).
type Staff struct {
	ID           string
	Email        string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
}

// ErrBadCredentials is returned for unknown emails and wrong passwords alike.
var ErrBadCredentials = errors.New("invalid email or password")

// StaffRepository reads staff accounts from Postgres.
type StaffRepository struct {
	db *sql.DB
}

// NewStaffRepository creates a repo.
func NewStaffRepository(db *sql.DB) *StaffRepository {
	return &StaffRepository{db: db}
}

// Authenticate checks the password and returns the account.
func (r *StaffRepository) Authenticate(ctx context.Context, email, password string) (*Staff, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash, role, created_at
		FROM staff_accounts WHERE email = $1
	`, email)
	var s Staff
	if err := row.Scan(&s.ID, &s.Email, &s.PasswordHash, &s.Role, &s.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBadCredentials
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(s.PasswordHash), []byte(password)) != nil {
		return nil, ErrBadCredentials
	}
	return &s, nil
}

// SaveRefreshToken stores a refresh token for rotation checks.
func (r *StaffRepository) SaveRefreshToken(ctx context.Context, staffID, token string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO refresh_tokens (staff_id, token, expires_at)
		VALUES ($1, $2, $3)
	`, staffID, token, expiresAt)
	return err
}

// RevokeRefreshToken marks a token revoked.
func (r *StaffRepository) RevokeRefreshToken(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE refresh_tokens SET revoked = TRUE WHERE token = $1`, token)
	return err
}
