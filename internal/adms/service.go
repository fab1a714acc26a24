package adms

import (
	"context"
	"log"

	"hosteld/internal/attendance"
	"hosteld/internal/devices"
	"hosteld/internal/directory"
	"hosteld/internal/locks"
)

// Intake runs the scan pipeline: parse, resolve, activate, classify, record.
type Intake struct {
	parser    *Parser
	resolver  *directory.Resolver
	activator *directory.Activator
	store     attendance.Store
	recorder  *attendance.Recorder
	registry  devices.Registry
	locker    locks.PersonLocker
	fallback  devices.Config
}

// NewIntake wires the pipeline. registry may be nil (defaults always apply);
// locker nil means no per-person serialization.
func NewIntake(parser *Parser, resolver *directory.Resolver, activator *directory.Activator,
	store attendance.Store, recorder *attendance.Recorder, registry devices.Registry,
	locker locks.PersonLocker, fallback devices.Config) *Intake {
	if locker == nil {
		locker = locks.Nop{}
	}
	if fallback.MinOutGapSeconds <= 0 {
		fallback.MinOutGapSeconds = devices.DefaultMinOutGapSeconds
	}
	if fallback.DuplicateWindowSeconds <= 0 {
		fallback.DuplicateWindowSeconds = devices.DefaultDuplicateWindowSeconds
	}
	return &Intake{
		parser:    parser,
		resolver:  resolver,
		activator: activator,
		store:     store,
		recorder:  recorder,
		registry:  registry,
		locker:    locker,
		fallback:  fallback,
	}
}

// Process handles one pushed payload. Lines run strictly in order: the
// classification of line N must see the record line N−1 just wrote. An
// unparseable line or unknown PIN only drops that line; a storage failure
// aborts the batch so the device retries the whole payload.
func (in *Intake) Process(ctx context.Context, serial, body string) error {
	cfg, err := in.deviceConfig(ctx, serial)
	if err != nil {
		return err
	}

	for _, parsed := range in.parser.ParseBody(serial, body) {
		switch parsed.Kind {
		case KindAnnouncement:
			log.Printf("device %q announced template for PIN %s", serial, parsed.PIN)
		case KindSkip:
			parseSkipsTotal.Inc()
			log.Printf("device %q line skipped: %s", serial, parsed.Why)
		case KindScan:
			if err := in.processScan(ctx, parsed.Scan, cfg); err != nil {
				return err
			}
		}
	}
	return nil
}

func (in *Intake) processScan(ctx context.Context, scan *ScanEvent, cfg devices.Config) error {
	person, err := in.resolver.Resolve(ctx, scan.PIN)
	if err != nil {
		return err
	}
	if person == nil {
		unknownPINsTotal.Inc()
		log.Printf("device %q: no person for PIN %s, dropping scan", scan.DeviceSerial, scan.PIN)
		return nil
	}

	// Activation precedes classification: the first scan both confirms the
	// enrollment and counts as a normal punch.
	if err := in.activator.Activate(ctx, person, scan.DeviceSerial); err != nil {
		return err
	}

	release, err := in.locker.Acquire(ctx, person.ID)
	if err != nil {
		return err
	}
	defer release()

	day := attendance.DayOf(scan.At, scan.At.Location())
	records, err := in.store.ListDay(ctx, person.ID, day)
	if err != nil {
		return err
	}

	decision := Classify(records, scan.At, cfg)
	if decision.Skipped() {
		punchesTotal.WithLabelValues(decision.Skip).Inc()
		log.Printf("person %s scan at %s skipped: %s", person.ID, scan.At.Format(timeLayout), decision.Skip)
		return nil
	}

	rec, err := in.recorder.Record(ctx, attendance.Record{
		PersonID:     person.ID,
		DeviceSerial: scan.DeviceSerial,
		Day:          day,
		Type:         decision.Type,
		PunchedAt:    scan.At,
		RawLine:      scan.RawLine,
	})
	if err != nil {
		return err
	}
	punchesTotal.WithLabelValues(rec.Type).Inc()
	log.Printf("person %s punched %s at %s on %q", person.ID, rec.Type, scan.At.Format(timeLayout), scan.DeviceSerial)
	return nil
}

func (in *Intake) deviceConfig(ctx context.Context, serial string) (devices.Config, error) {
	if in.registry == nil || serial == "" {
		return in.fallback, nil
	}
	cfg, err := in.registry.ConfigFor(ctx, serial)
	if err != nil {
		return devices.Config{}, err
	}
	if cfg == nil {
		return in.fallback, nil
	}
	return *cfg, nil
}
