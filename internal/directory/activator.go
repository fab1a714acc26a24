package directory

import (
	"context"
	"log"
)

// EnrollmentStore is the mutation surface the activator needs.
type EnrollmentStore interface {
	UpdateEnrollment(ctx context.Context, personID, status string, devicesSeen []string) error
	CompleteEnrollmentTask(ctx context.Context, personID string) error
}

// Activator flips a person from pending to active on their first real scan.
type Activator struct {
	store EnrollmentStore
}

// NewActivator creates an activator.
func NewActivator(store EnrollmentStore) *Activator {
	return &Activator{store: store}
}

// Activate confirms the enrollment and records the device serial. Safe to
// call on every scan: once active with the serial already seen it does
// nothing. The caller classifies the same scan afterwards, so the first
// scan is both the activation trigger and a normal attendance event.
func (a *Activator) Activate(ctx context.Context, p *Person, deviceSerial string) error {
	if p == nil {
		return nil
	}
	if p.Active() && (deviceSerial == "" || p.HasDevice(deviceSerial)) {
		return nil
	}

	seen := p.DevicesSeen
	if deviceSerial != "" && !p.HasDevice(deviceSerial) {
		seen = append(append([]string(nil), seen...), deviceSerial)
	}

	wasPending := !p.Active()
	if err := a.store.UpdateEnrollment(ctx, p.ID, EnrollmentActive, seen); err != nil {
		return err
	}
	p.EnrollmentStatus = EnrollmentActive
	p.DevicesSeen = seen

	if wasPending {
		if err := a.store.CompleteEnrollmentTask(ctx, p.ID); err != nil {
			// Task completion is bookkeeping; the scan still counts.
			log.Printf("complete enrollment task for %s failed: %v", p.ID, err)
		}
		log.Printf("enrollment activated for %s on device %q", p.ID, deviceSerial)
	}
	return nil
}
