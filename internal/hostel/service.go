package hostel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"hosteld/internal/queue"
)

// ErrAlreadyDecided is returned when approving or declining a decided request.
var ErrAlreadyDecided = errors.New("request already decided")

// ErrNotFound is returned for unknown request ids.
var ErrNotFound = errors.New("request not found")

// NotifyMsg is the body of a queue.TypeNotify message; the worker turns it
// into a notification row for the student.
type NotifyMsg struct {
	PersonID string `json:"person_id"`
	Title    string `json:"title"`
	Body     string `json:"body"`
}

// Store is the persistence surface the workflow needs.
type Store interface {
	Insert(ctx context.Context, lr LeaveRequest) (LeaveRequest, error)
	Get(ctx context.Context, id string) (*LeaveRequest, error)
	Decide(ctx context.Context, id, status, decidedBy string, note *string) (bool, error)
}

// Service runs the leave workflow on top of the repository.
type Service struct {
	repo Store
	q    queue.Queue
}

// NewService creates a service. q may be nil in tests.
func NewService(repo Store, q queue.Queue) *Service {
	return &Service{repo: repo, q: q}
}

// Submit validates and stores a new pending request.
func (s *Service) Submit(ctx context.Context, lr LeaveRequest) (LeaveRequest, error) {
	if lr.PersonID == "" {
		return LeaveRequest{}, errors.New("person required")
	}
	if lr.Kind != KindLeave && lr.Kind != KindOuting {
		return LeaveRequest{}, errors.New("kind must be leave or outing")
	}
	if lr.FromDate == "" || lr.ToDate == "" || lr.ToDate < lr.FromDate {
		return LeaveRequest{}, errors.New("invalid date range")
	}
	if lr.Reason == "" {
		return LeaveRequest{}, errors.New("reason required")
	}
	return s.repo.Insert(ctx, lr)
}

// Decide approves or declines a pending request and emits a notification.
func (s *Service) Decide(ctx context.Context, id, status, decidedBy string, note *string) (*LeaveRequest, error) {
	if status != StatusApproved && status != StatusDeclined {
		return nil, errors.New("status must be approved or declined")
	}
	moved, err := s.repo.Decide(ctx, id, status, decidedBy, note)
	if err != nil {
		return nil, err
	}
	lr, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if lr == nil {
		return nil, ErrNotFound
	}
	if !moved {
		return nil, ErrAlreadyDecided
	}

	s.notify(ctx, NotifyMsg{
		PersonID: lr.PersonID,
		Title:    fmt.Sprintf("%s request %s", lr.Kind, lr.Status),
		Body:     fmt.Sprintf("Your %s request for %s to %s was %s.", lr.Kind, lr.FromDate, lr.ToDate, lr.Status),
	})
	return lr, nil
}

// notify is fire and forget; delivery failures never fail the decision.
func (s *Service) notify(ctx context.Context, msg NotifyMsg) {
	if s.q == nil {
		return
	}
	body, _ := json.Marshal(msg)
	if err := s.q.Publish(ctx, queue.Message{Type: queue.TypeNotify, Body: body}); err != nil {
		log.Printf("notify publish failed for %s: %v", msg.PersonID, err)
	}
}
