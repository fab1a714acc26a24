package directory

import "time"

// Enrollment states for a person on the biometric terminals.
const (
	EnrollmentPending = "pending"
	EnrollmentActive  = "active"
)

// Person is one resident or staff member known to the directory.
type Person struct {
	ID               string     `json:"id"`
	Email            string     `json:"email"`
	Name             *string    `json:"name,omitempty"`
	DevicePIN        *string    `json:"device_pin,omitempty"`
	StudentNo        *string    `json:"student_no,omitempty"`
	EmployeeNo       *string    `json:"employee_no,omitempty"`
	BiometricID      *string    `json:"biometric_id,omitempty"`
	EnrollmentStatus string     `json:"enrollment_status"`
	DevicesSeen      []string   `json:"devices_seen,omitempty"`
	EnrolledAt       *time.Time `json:"enrolled_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// Active reports whether the person's enrollment has been confirmed by a scan.
func (p *Person) Active() bool {
	return p != nil && p.EnrollmentStatus == EnrollmentActive
}

// HasDevice reports whether serial is already in the seen-devices set.
func (p *Person) HasDevice(serial string) bool {
	for _, s := range p.DevicesSeen {
		if s == serial {
			return true
		}
	}
	return false
}
