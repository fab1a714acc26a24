package attendance

import (
	"context"
	"encoding/json"
	"log"

	"hosteld/internal/queue"
)

// Store is the persistence surface the recorder and the punch pipeline need.
type Store interface {
	ListDay(ctx context.Context, personID, day string) ([]Record, error)
	Insert(ctx context.Context, rec Record) (Record, error)
}

// SummaryMsg is the body of a queue.TypeSummary message.
type SummaryMsg struct {
	PersonID string `json:"person_id"`
	Day      string `json:"day"`
}

// Recorder appends classified punches and nudges the summary worker.
type Recorder struct {
	store Store
	q     queue.Queue
}

// NewRecorder creates a recorder. q may be nil in tests.
func NewRecorder(store Store, q queue.Queue) *Recorder {
	return &Recorder{store: store, q: q}
}

// Record persists one classified punch. The summary message is fire and
// forget: a publish failure is logged and never reaches the device ack.
func (r *Recorder) Record(ctx context.Context, rec Record) (Record, error) {
	saved, err := r.store.Insert(ctx, rec)
	if err != nil {
		return Record{}, err
	}
	if r.q != nil {
		body, _ := json.Marshal(SummaryMsg{PersonID: saved.PersonID, Day: saved.Day})
		if err := r.q.Publish(ctx, queue.Message{Type: queue.TypeSummary, Body: body}); err != nil {
			log.Printf("summary publish failed for %s/%s: %v", saved.PersonID, saved.Day, err)
		}
	}
	return saved, nil
}

// RecomputeSummary rebuilds the rollup for one person/day from the records.
// Called by the worker; best effort by contract.
func (repo *Repository) RecomputeSummary(ctx context.Context, personID, day string) error {
	records, err := repo.ListDay(ctx, personID, day)
	if err != nil {
		return err
	}
	s := DaySummary{PersonID: personID, Day: day}
	for i := range records {
		rec := records[i]
		switch rec.Type {
		case PunchIn:
			if s.FirstIn == nil || rec.PunchedAt.Before(*s.FirstIn) {
				t := rec.PunchedAt
				s.FirstIn = &t
			}
		case PunchOut:
			if s.LastOut == nil || rec.PunchedAt.After(*s.LastOut) {
				t := rec.PunchedAt
				s.LastOut = &t
			}
		}
	}
	s.Present = s.FirstIn != nil
	return repo.UpsertSummary(ctx, s)
}
