package adms

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLine(t *testing.T) {
	p := NewParser(time.UTC)

	tests := []struct {
		name     string
		line     string
		wantKind string
		wantPIN  string
		wantAt   string
	}{
		{
			name:     "PUNCH-first tab-delimited",
			line:     "PUNCH\t1093\t2025-01-10 09:00:00\t0\t1\t0",
			wantKind: KindScan,
			wantPIN:  "1093",
			wantAt:   "2025-01-10 09:00:00",
		},
		{
			name:     "plain tab-delimited attendance line",
			line:     "1093\t2025-01-10 09:00:00\t1\t0\t0",
			wantKind: KindScan,
			wantPIN:  "1093",
			wantAt:   "2025-01-10 09:00:00",
		},
		{
			name:     "whitespace-delimited splits the timestamp in two",
			line:     "1093 2025-01-10 09:00:00 1 0",
			wantKind: KindScan,
			wantPIN:  "1093",
			wantAt:   "2025-01-10 09:00:00",
		},
		{
			name:     "user template announcement",
			line:     "USER PIN=1093\tName=Asha\tPri=0",
			wantKind: KindAnnouncement,
			wantPIN:  "1093",
		},
		{
			name:     "user line without PIN token",
			line:     "USER Name=Asha",
			wantKind: KindSkip,
		},
		{
			name:     "operation log",
			line:     "OPLOG 1\t2025-01-10 09:00:00",
			wantKind: KindSkip,
		},
		{
			name:     "not attendance shaped",
			line:     "GETREQUEST",
			wantKind: KindSkip,
		},
		{
			name:     "too few fields",
			line:     "1093 2025-01-10",
			wantKind: KindSkip,
		},
		{
			name:     "garbage timestamp",
			line:     "1093\tnot-a-timestamp\t1",
			wantKind: KindSkip,
		},
		{
			name:     "month out of range",
			line:     "1093\t2025-13-01 09:00:00\t1",
			wantKind: KindSkip,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.ParseLine("SN123", tt.line)
			assert.Equal(t, tt.wantKind, got.Kind)
			switch tt.wantKind {
			case KindScan:
				require.NotNil(t, got.Scan)
				assert.Equal(t, tt.wantPIN, got.Scan.PIN)
				assert.Equal(t, tt.wantAt, got.Scan.At.Format("2006-01-02 15:04:05"))
				assert.Equal(t, "SN123", got.Scan.DeviceSerial)
				assert.Equal(t, tt.line, got.Scan.RawLine)
			case KindAnnouncement:
				assert.Equal(t, tt.wantPIN, got.PIN)
			case KindSkip:
				assert.NotEmpty(t, got.Why)
			}
		})
	}
}

func TestParseBody(t *testing.T) {
	p := NewParser(time.UTC)

	body := "PUNCH\t1093\t2025-01-10 09:00:00\t0\t1\t0\r\n" +
		"USER PIN=2000\tName=New\r\n" +
		"\r\n" +
		"garbage-line\n" +
		"1094\t2025-01-10 09:05:00\t1\n"

	lines := p.ParseBody("SN123", body)
	require.Len(t, lines, 4) // blank line dropped entirely

	assert.Equal(t, KindScan, lines[0].Kind)
	assert.Equal(t, "1093", lines[0].Scan.PIN)
	assert.Equal(t, KindAnnouncement, lines[1].Kind)
	assert.Equal(t, "2000", lines[1].PIN)
	assert.Equal(t, KindSkip, lines[2].Kind)
	assert.Equal(t, KindScan, lines[3].Kind)
	assert.Equal(t, "1094", lines[3].Scan.PIN)
}

func TestParserUsesDeviceZone(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	p := NewParser(loc)

	got := p.ParseLine("SN1", "1093\t2025-01-10 09:00:00\t1")
	if assert.Equal(t, KindScan, got.Kind) {
		assert.Equal(t, loc, got.Scan.At.Location())
	}
}
