package adms

import (
	"sort"
	"time"

	"hosteld/internal/attendance"
	"hosteld/internal/devices"
)

// DayState is the per person/day punch state machine. Only two forward
// transitions exist: Empty→Open via IN, Open→Closed via OUT. Everything
// else is absorbed as a skip — noisy sensors and uncontrolled device
// clocks make unexpected events routine, not exceptional.
type DayState int

const (
	DayEmpty DayState = iota
	DayOpen
	DayClosed
)

// Skip reasons returned for inert scans.
const (
	SkipDuplicate   = "duplicate"
	SkipGapTooShort = "gap_too_short"
	SkipAlreadyOut  = "already_out"
)

// Decision is the classifier verdict for one scan: a punch type or a skip.
type Decision struct {
	Type string // attendance.PunchIn or attendance.PunchOut when Skip is empty
	Skip string // one of the Skip* reasons
}

// Skipped reports whether the scan produced no record.
func (d Decision) Skipped() bool { return d.Skip != "" }

// StateOf derives the day state from a person's records for the day and
// returns the most recent record by creation instant, if any.
func StateOf(records []attendance.Record) (DayState, *attendance.Record) {
	if len(records) == 0 {
		return DayEmpty, nil
	}
	sorted := append([]attendance.Record(nil), records...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})
	last := sorted[0]
	if last.Type == attendance.PunchOut {
		return DayClosed, &last
	}
	return DayOpen, &last
}

// Step is the pure transition function. elapsedSeconds is the whole-second
// distance from the last record's creation instant to the scan; it is
// ignored for DayEmpty. First match in the ladder wins:
//
//  1. empty day → IN, unconditionally
//  2. elapsed < duplicate window → skip(duplicate), whatever the last type
//  3. last IN, elapsed ≥ min out gap → OUT
//  4. last IN, elapsed < min out gap → skip(gap_too_short)
//  5. last OUT → skip(already_out)
//
// Negative or zero elapsed is "very small" and lands in the duplicate branch.
func Step(state DayState, lastType string, elapsedSeconds int64, cfg devices.Config) (DayState, Decision) {
	switch {
	case state == DayEmpty:
		return DayOpen, Decision{Type: attendance.PunchIn}
	case elapsedSeconds < int64(cfg.DuplicateWindowSeconds):
		return state, Decision{Skip: SkipDuplicate}
	case lastType == attendance.PunchIn && elapsedSeconds >= int64(cfg.MinOutGapSeconds):
		return DayClosed, Decision{Type: attendance.PunchOut}
	case lastType == attendance.PunchIn:
		return state, Decision{Skip: SkipGapTooShort}
	default:
		return state, Decision{Skip: SkipAlreadyOut}
	}
}

// Classify runs the ladder for one scan against the day's stored records.
func Classify(records []attendance.Record, at time.Time, cfg devices.Config) Decision {
	state, last := StateOf(records)
	var lastType string
	var elapsed int64
	if last != nil {
		lastType = last.Type
		elapsed = int64(at.Sub(last.CreatedAt) / time.Second)
	}
	_, decision := Step(state, lastType, elapsed, cfg)
	return decision
}
