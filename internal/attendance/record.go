package attendance

import "time"

// Punch types. A person's day holds at most one IN/OUT pair.
const (
	PunchIn  = "IN"
	PunchOut = "OUT"
)

// Record is one classified punch. Records are append-only; corrections
// happen downstream, never by rewriting history.
type Record struct {
	ID           string    `json:"id"`
	PersonID     string    `json:"person_id"`
	DeviceSerial string    `json:"device_serial"`
	Day          string    `json:"day"` // YYYY-MM-DD in the device zone
	Type         string    `json:"type"`
	PunchedAt    time.Time `json:"punched_at"`
	RawLine      string    `json:"raw_line"`
	CreatedAt    time.Time `json:"created_at"`
}

// DaySummary is the per person/day rollup maintained by the worker.
type DaySummary struct {
	PersonID   string     `json:"person_id"`
	Day        string     `json:"day"`
	FirstIn    *time.Time `json:"first_in,omitempty"`
	LastOut    *time.Time `json:"last_out,omitempty"`
	Present    bool       `json:"present"`
	RecordedAt time.Time  `json:"recorded_at"`
}

// DayOf formats t's calendar date in loc, the attendance-day boundary.
func DayOf(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01-02")
}
