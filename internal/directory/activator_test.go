package directory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEnrollmentStore struct {
	updates   int
	completes int
	lastSeen  []string
}

func (f *fakeEnrollmentStore) UpdateEnrollment(ctx context.Context, personID, status string, devicesSeen []string) error {
	f.updates++
	f.lastSeen = devicesSeen
	return nil
}

func (f *fakeEnrollmentStore) CompleteEnrollmentTask(ctx context.Context, personID string) error {
	f.completes++
	return nil
}

func TestActivateFirstScan(t *testing.T) {
	store := &fakeEnrollmentStore{}
	p := &Person{ID: "p1", EnrollmentStatus: EnrollmentPending}

	require.NoError(t, NewActivator(store).Activate(context.Background(), p, "SN1"))

	assert.Equal(t, EnrollmentActive, p.EnrollmentStatus)
	assert.Equal(t, []string{"SN1"}, p.DevicesSeen)
	assert.Equal(t, 1, store.updates)
	assert.Equal(t, 1, store.completes)
}

func TestActivateIdempotent(t *testing.T) {
	store := &fakeEnrollmentStore{}
	p := &Person{ID: "p1", EnrollmentStatus: EnrollmentActive, DevicesSeen: []string{"SN1"}}

	a := NewActivator(store)
	require.NoError(t, a.Activate(context.Background(), p, "SN1"))
	require.NoError(t, a.Activate(context.Background(), p, "SN1"))

	assert.Equal(t, []string{"SN1"}, p.DevicesSeen)
	assert.Zero(t, store.updates)
	assert.Zero(t, store.completes)
}

func TestActivateActivePersonOnNewDevice(t *testing.T) {
	store := &fakeEnrollmentStore{}
	p := &Person{ID: "p1", EnrollmentStatus: EnrollmentActive, DevicesSeen: []string{"SN1"}}

	require.NoError(t, NewActivator(store).Activate(context.Background(), p, "SN2"))

	// The seen-devices set grows but the task is not re-completed.
	assert.Equal(t, []string{"SN1", "SN2"}, p.DevicesSeen)
	assert.Equal(t, 1, store.updates)
	assert.Zero(t, store.completes)
}

func TestActivateWithoutSerial(t *testing.T) {
	store := &fakeEnrollmentStore{}
	p := &Person{ID: "p1", EnrollmentStatus: EnrollmentPending}

	require.NoError(t, NewActivator(store).Activate(context.Background(), p, ""))

	assert.Equal(t, EnrollmentActive, p.EnrollmentStatus)
	assert.Empty(t, p.DevicesSeen)
	assert.Equal(t, 1, store.completes)
}
