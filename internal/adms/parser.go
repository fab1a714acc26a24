// Package adms implements the intake side of the push protocol spoken by
// eSSL/ZKTeco-style fingerprint terminals: the line parser, the punch
// classifier and the HTTP endpoints the device talks to.
package adms

import (
	"bufio"
	"regexp"
	"strings"
	"time"
)

// Timestamp layout the terminals emit. Naive local time in the device zone.
const timeLayout = "2006-01-02 15:04:05"

// Line kinds produced by the parser.
const (
	KindScan         = "scan"
	KindAnnouncement = "announcement"
	KindSkip         = "skip"
)

// ScanEvent is one attendance-shaped line, still unresolved.
type ScanEvent struct {
	DeviceSerial string
	PIN          string
	At           time.Time
	RawLine      string
}

// ParsedLine is the outcome of parsing one payload line.
type ParsedLine struct {
	Kind string
	Scan *ScanEvent // KindScan
	PIN  string     // KindAnnouncement: PIN the device announced a template for
	Why  string     // KindSkip: diagnostic reason
}

var pinToken = regexp.MustCompile(`PIN=(\d+)`)

// Parser turns raw device payloads into scan events. Device timestamps carry
// no zone, so the parser pins them to the configured deployment location.
type Parser struct {
	loc *time.Location
}

// NewParser creates a parser for the given device zone.
func NewParser(loc *time.Location) *Parser {
	if loc == nil {
		loc = time.Local
	}
	return &Parser{loc: loc}
}

// ParseBody splits a push payload into lines and parses each one. A bad line
// never fails the batch; it becomes a KindSkip entry.
func (p *Parser) ParseBody(serial, body string) []ParsedLine {
	var out []ParsedLine
	sc := bufio.NewScanner(strings.NewReader(body))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		out = append(out, p.ParseLine(serial, line))
	}
	return out
}

// ParseLine applies the shape rules in order and classifies one line.
func (p *Parser) ParseLine(serial, line string) ParsedLine {
	// User-template announcements are acknowledged but never attendance.
	if strings.HasPrefix(line, "USER") {
		if m := pinToken.FindStringSubmatch(line); m != nil {
			return ParsedLine{Kind: KindAnnouncement, PIN: m[1]}
		}
		return ParsedLine{Kind: KindSkip, Why: "user line without PIN token"}
	}
	if strings.HasPrefix(line, "OPLOG") {
		return ParsedLine{Kind: KindSkip, Why: "operation log"}
	}
	if !strings.Contains(line, "\t") && !strings.Contains(line, " ") && !strings.Contains(line, "PUNCH") {
		return ParsedLine{Kind: KindSkip, Why: "not attendance shaped"}
	}

	hadTab := strings.Contains(line, "\t")
	fields := strings.Split(line, "\t")
	if len(fields) < 3 {
		fields = strings.Fields(line)
	}
	if len(fields) < 3 {
		return ParsedLine{Kind: KindSkip, Why: "too few fields"}
	}

	var pin, stamp string
	switch {
	case fields[0] == "PUNCH":
		pin, stamp = fields[1], fields[2]
	case hadTab:
		pin, stamp = fields[0], fields[1]
	default:
		// The whitespace splitter cut the timestamp in two.
		pin, stamp = fields[0], fields[1]+" "+fields[2]
	}

	at, err := time.ParseInLocation(timeLayout, stamp, p.loc)
	if err != nil {
		return ParsedLine{Kind: KindSkip, Why: "bad timestamp " + stamp}
	}

	return ParsedLine{Kind: KindScan, Scan: &ScanEvent{
		DeviceSerial: serial,
		PIN:          pin,
		At:           at,
		RawLine:      line,
	}}
}
