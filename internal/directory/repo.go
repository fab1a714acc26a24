package directory

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Repository persists the person directory in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// fieldColumns whitelists the columns a PIN may be resolved against.
var fieldColumns = map[Field]string{
	FieldDevicePIN:   "device_pin",
	FieldStudentNo:   "student_no",
	FieldEmployeeNo:  "employee_no",
	FieldBiometricID: "biometric_id",
}

const personColumns = `id, email, name, device_pin, student_no, employee_no, biometric_id,
	enrollment_status, devices_seen, enrolled_at, created_at`

// FindByField returns the person whose column matches value, or (nil, nil).
func (r *Repository) FindByField(ctx context.Context, field Field, value string) (*Person, error) {
	col, ok := fieldColumns[field]
	if !ok {
		return nil, errors.New("directory: unknown lookup field " + string(field))
	}
	row := r.db.QueryRowContext(ctx, `
		SELECT `+personColumns+`
		FROM persons WHERE `+col+` = $1
		LIMIT 1
	`, value)
	return scanPerson(row)
}

// Get returns a person by id.
func (r *Repository) Get(ctx context.Context, id string) (*Person, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+personColumns+` FROM persons WHERE id = $1
	`, id)
	return scanPerson(row)
}

// GetByEmail returns a person by their external identifier.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*Person, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+personColumns+` FROM persons WHERE email = $1
	`, email)
	return scanPerson(row)
}

// List returns the directory ordered by email.
func (r *Repository) List(ctx context.Context, limit, offset int) ([]Person, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+personColumns+` FROM persons ORDER BY email LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Person
	for rows.Next() {
		p, err := scanPersonRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// Upsert creates or updates a person keyed by email. New people start pending.
func (r *Repository) Upsert(ctx context.Context, p Person) (Person, error) {
	if p.Email == "" {
		return Person{}, errors.New("email required")
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.EnrollmentStatus == "" {
		p.EnrollmentStatus = EnrollmentPending
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO persons (id, email, name, device_pin, student_no, employee_no, biometric_id, enrollment_status, devices_seen)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (email) DO UPDATE SET
			name = COALESCE(EXCLUDED.name, persons.name),
			device_pin = COALESCE(EXCLUDED.device_pin, persons.device_pin),
			student_no = COALESCE(EXCLUDED.student_no, persons.student_no),
			employee_no = COALESCE(EXCLUDED.employee_no, persons.employee_no),
			biometric_id = COALESCE(EXCLUDED.biometric_id, persons.biometric_id),
			updated_at = NOW()
		RETURNING id, enrollment_status, created_at
	`, p.ID, p.Email, p.Name, p.DevicePIN, p.StudentNo, p.EmployeeNo, p.BiometricID,
		p.EnrollmentStatus, joinSerials(p.DevicesSeen))
	if err := row.Scan(&p.ID, &p.EnrollmentStatus, &p.CreatedAt); err != nil {
		return Person{}, err
	}
	return p, nil
}

// SetDevicePIN assigns the terminal PIN and opens an enrollment task.
func (r *Repository) SetDevicePIN(ctx context.Context, personID, pin string) error {
	if pin == "" {
		return errors.New("pin required")
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE persons
		SET device_pin = $2, enrollment_status = $3, updated_at = NOW()
		WHERE id = $1
	`, personID, pin, EnrollmentPending)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.New("person not found")
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO enrollment_tasks (person_id)
		VALUES ($1)
		ON CONFLICT (person_id) DO UPDATE SET completed_at = NULL
	`, personID)
	return err
}

// UpdateEnrollment sets the enrollment status and seen-devices set.
func (r *Repository) UpdateEnrollment(ctx context.Context, personID, status string, devicesSeen []string) error {
	var enrolledAt interface{}
	if status == EnrollmentActive {
		enrolledAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		UPDATE persons
		SET enrollment_status = $2, devices_seen = $3,
			enrolled_at = COALESCE(enrolled_at, $4), updated_at = NOW()
		WHERE id = $1
	`, personID, status, joinSerials(devicesSeen), enrolledAt)
	return err
}

// CompleteEnrollmentTask closes any outstanding task for the person.
func (r *Repository) CompleteEnrollmentTask(ctx context.Context, personID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE enrollment_tasks SET completed_at = NOW()
		WHERE person_id = $1 AND completed_at IS NULL
	`, personID)
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPerson(row *sql.Row) (*Person, error) {
	p, err := scanInto(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

func scanPersonRows(rows *sql.Rows) (*Person, error) {
	return scanInto(rows)
}

func scanInto(s scanner) (*Person, error) {
	var p Person
	var seen sql.NullString
	if err := s.Scan(&p.ID, &p.Email, &p.Name, &p.DevicePIN, &p.StudentNo, &p.EmployeeNo,
		&p.BiometricID, &p.EnrollmentStatus, &seen, &p.EnrolledAt, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.DevicesSeen = splitSerials(seen.String)
	return &p, nil
}

// devices_seen is a comma-joined text column; serials never contain commas.
func joinSerials(serials []string) string {
	return strings.Join(serials, ",")
}

func splitSerials(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
