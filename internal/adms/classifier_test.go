package adms

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"hosteld/internal/attendance"
	"hosteld/internal/devices"
)

func rec(typ string, createdAt time.Time) attendance.Record {
	return attendance.Record{Type: typ, PunchedAt: createdAt, CreatedAt: createdAt}
}

func TestClassifyLadder(t *testing.T) {
	cfg := devices.DefaultConfig()
	base := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		records  []attendance.Record
		at       time.Time
		wantType string
		wantSkip string
	}{
		{
			name:     "first punch of the day is IN",
			records:  nil,
			at:       base,
			wantType: attendance.PunchIn,
		},
		{
			name:     "second scan inside duplicate window",
			records:  []attendance.Record{rec(attendance.PunchIn, base)},
			at:       base.Add(120 * time.Second),
			wantSkip: SkipDuplicate,
		},
		{
			name:     "OUT attempt before the minimum gap",
			records:  []attendance.Record{rec(attendance.PunchIn, base)},
			at:       base.Add(2 * time.Hour),
			wantSkip: SkipGapTooShort,
		},
		{
			name:     "OUT after the minimum gap",
			records:  []attendance.Record{rec(attendance.PunchIn, base)},
			at:       base.Add(5 * time.Hour),
			wantType: attendance.PunchOut,
		},
		{
			name: "scan after the day closed",
			records: []attendance.Record{
				rec(attendance.PunchIn, base),
				rec(attendance.PunchOut, base.Add(5*time.Hour)),
			},
			at:       base.Add(7 * time.Hour),
			wantSkip: SkipAlreadyOut,
		},
		{
			name: "closed day still suppresses rapid re-scans as duplicates",
			records: []attendance.Record{
				rec(attendance.PunchIn, base),
				rec(attendance.PunchOut, base.Add(5*time.Hour)),
			},
			at:       base.Add(5*time.Hour + 30*time.Second),
			wantSkip: SkipDuplicate,
		},
		{
			name:     "scan exactly at the duplicate window boundary is not a duplicate",
			records:  []attendance.Record{rec(attendance.PunchIn, base)},
			at:       base.Add(300 * time.Second),
			wantSkip: SkipGapTooShort,
		},
		{
			name:     "scan exactly at the gap boundary is OUT",
			records:  []attendance.Record{rec(attendance.PunchIn, base)},
			at:       base.Add(14400 * time.Second),
			wantType: attendance.PunchOut,
		},
		{
			name:     "device clock moved backwards lands in the duplicate branch",
			records:  []attendance.Record{rec(attendance.PunchIn, base)},
			at:       base.Add(-10 * time.Minute),
			wantSkip: SkipDuplicate,
		},
		{
			name:     "zero elapsed lands in the duplicate branch",
			records:  []attendance.Record{rec(attendance.PunchIn, base)},
			at:       base,
			wantSkip: SkipDuplicate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Classify(tt.records, tt.at, cfg)
			if tt.wantSkip != "" {
				assert.True(t, d.Skipped())
				assert.Equal(t, tt.wantSkip, d.Skip)
			} else {
				assert.False(t, d.Skipped())
				assert.Equal(t, tt.wantType, d.Type)
			}
		})
	}
}

func TestClassifyUsesMostRecentRecord(t *testing.T) {
	cfg := devices.DefaultConfig()
	base := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)

	// Records arrive unsorted from the store; the OUT is newest.
	records := []attendance.Record{
		rec(attendance.PunchOut, base.Add(5*time.Hour)),
		rec(attendance.PunchIn, base),
	}
	d := Classify(records, base.Add(10*time.Hour), cfg)
	assert.Equal(t, SkipAlreadyOut, d.Skip)

	records = []attendance.Record{
		rec(attendance.PunchIn, base),
		rec(attendance.PunchOut, base.Add(5*time.Hour)),
	}
	d = Classify(records, base.Add(10*time.Hour), cfg)
	assert.Equal(t, SkipAlreadyOut, d.Skip)
}

func TestStepTransitions(t *testing.T) {
	cfg := devices.Config{MinOutGapSeconds: 14400, DuplicateWindowSeconds: 300}

	state, d := Step(DayEmpty, "", 0, cfg)
	assert.Equal(t, DayOpen, state)
	assert.Equal(t, attendance.PunchIn, d.Type)

	state, d = Step(DayOpen, attendance.PunchIn, 20000, cfg)
	assert.Equal(t, DayClosed, state)
	assert.Equal(t, attendance.PunchOut, d.Type)

	// Skips never advance the state.
	state, _ = Step(DayOpen, attendance.PunchIn, 100, cfg)
	assert.Equal(t, DayOpen, state)
	state, _ = Step(DayOpen, attendance.PunchIn, 7200, cfg)
	assert.Equal(t, DayOpen, state)
	state, _ = Step(DayClosed, attendance.PunchOut, 7200, cfg)
	assert.Equal(t, DayClosed, state)
}

func TestClassifyScenarioDay(t *testing.T) {
	// One person's day as the terminal sees it: IN at 09:00, noise at 09:02,
	// failed OUT at 11:00, OUT at 14:00, inert scan at 16:00.
	cfg := devices.DefaultConfig()
	day := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	var records []attendance.Record

	scan := func(h, m int) Decision {
		at := day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute)
		d := Classify(records, at, cfg)
		if !d.Skipped() {
			records = append(records, rec(d.Type, at))
		}
		return d
	}

	assert.Equal(t, attendance.PunchIn, scan(9, 0).Type)
	assert.Equal(t, SkipDuplicate, scan(9, 2).Skip)
	assert.Equal(t, SkipGapTooShort, scan(11, 0).Skip)
	assert.Equal(t, attendance.PunchOut, scan(14, 0).Type)
	assert.Equal(t, SkipAlreadyOut, scan(16, 0).Skip)
	assert.Len(t, records, 2)
}
