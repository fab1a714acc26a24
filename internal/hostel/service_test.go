package hostel

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hosteld/internal/queue"
)

type fakeLeaveStore struct {
	requests map[string]*LeaveRequest
	nextID   int
}

func newFakeLeaveStore() *fakeLeaveStore {
	return &fakeLeaveStore{requests: map[string]*LeaveRequest{}}
}

func (f *fakeLeaveStore) Insert(ctx context.Context, lr LeaveRequest) (LeaveRequest, error) {
	f.nextID++
	lr.ID = fmt.Sprintf("req-%d", f.nextID)
	lr.Status = StatusPending
	lr.CreatedAt = time.Now()
	stored := lr
	f.requests[lr.ID] = &stored
	return lr, nil
}

func (f *fakeLeaveStore) Get(ctx context.Context, id string) (*LeaveRequest, error) {
	lr, ok := f.requests[id]
	if !ok {
		return nil, nil
	}
	copied := *lr
	return &copied, nil
}

func (f *fakeLeaveStore) Decide(ctx context.Context, id, status, decidedBy string, note *string) (bool, error) {
	lr, ok := f.requests[id]
	if !ok || lr.Status != StatusPending {
		return false, nil
	}
	now := time.Now()
	lr.Status = status
	lr.DecidedBy = &decidedBy
	lr.DecidedAt = &now
	lr.Note = note
	return true, nil
}

func validRequest() LeaveRequest {
	return LeaveRequest{
		PersonID: "p1",
		Kind:     KindLeave,
		Reason:   "family function",
		FromDate: "2025-01-10",
		ToDate:   "2025-01-12",
	}
}

func TestSubmitValidation(t *testing.T) {
	svc := NewService(newFakeLeaveStore(), nil)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*LeaveRequest)
		ok     bool
	}{
		{"valid leave", func(lr *LeaveRequest) {}, true},
		{"valid outing", func(lr *LeaveRequest) { lr.Kind = KindOuting; lr.ToDate = lr.FromDate }, true},
		{"missing person", func(lr *LeaveRequest) { lr.PersonID = "" }, false},
		{"bad kind", func(lr *LeaveRequest) { lr.Kind = "vacation" }, false},
		{"reversed dates", func(lr *LeaveRequest) { lr.ToDate = "2025-01-01" }, false},
		{"missing reason", func(lr *LeaveRequest) { lr.Reason = "" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lr := validRequest()
			tt.mutate(&lr)
			saved, err := svc.Submit(ctx, lr)
			if tt.ok {
				require.NoError(t, err)
				assert.Equal(t, StatusPending, saved.Status)
				assert.NotEmpty(t, saved.ID)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestDecideApprovesOnceAndNotifies(t *testing.T) {
	store := newFakeLeaveStore()
	q := queue.NewInMemory(4)
	svc := NewService(store, q)
	ctx := context.Background()

	saved, err := svc.Submit(ctx, validRequest())
	require.NoError(t, err)

	decided, err := svc.Decide(ctx, saved.ID, StatusApproved, "warden-1", nil)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, decided.Status)
	require.NotNil(t, decided.DecidedBy)
	assert.Equal(t, "warden-1", *decided.DecidedBy)

	msgs, err := q.Consume(ctx)
	require.NoError(t, err)
	msg := <-msgs
	assert.Equal(t, queue.TypeNotify, msg.Type)
	var body NotifyMsg
	require.NoError(t, json.Unmarshal(msg.Body, &body))
	assert.Equal(t, "p1", body.PersonID)
	assert.Contains(t, body.Body, "approved")

	// A second decision hits the immutability rule.
	_, err = svc.Decide(ctx, saved.ID, StatusDeclined, "warden-2", nil)
	assert.ErrorIs(t, err, ErrAlreadyDecided)

	final, err := store.Get(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, final.Status)
}

func TestDecideValidation(t *testing.T) {
	svc := NewService(newFakeLeaveStore(), nil)
	ctx := context.Background()

	_, err := svc.Decide(ctx, "whatever", "escalated", "warden-1", nil)
	assert.Error(t, err)

	_, err = svc.Decide(ctx, "missing", StatusApproved, "warden-1", nil)
	assert.ErrorIs(t, err, ErrNotFound)
}
