package attendance

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hosteld/internal/queue"
)

type fakeStore struct {
	records []Record
	fail    bool
}

func (f *fakeStore) ListDay(ctx context.Context, personID, day string) ([]Record, error) {
	return f.records, nil
}

func (f *fakeStore) Insert(ctx context.Context, rec Record) (Record, error) {
	if f.fail {
		return Record{}, errors.New("insert failed")
	}
	rec.ID = "rec-1"
	rec.CreatedAt = time.Now()
	f.records = append(f.records, rec)
	return rec, nil
}

type failingQueue struct{}

func (failingQueue) Publish(ctx context.Context, msg queue.Message) error {
	return errors.New("queue down")
}

func (failingQueue) Consume(ctx context.Context) (<-chan queue.Message, error) {
	return nil, errors.New("queue down")
}

func TestRecordPersistsAndPublishesSummary(t *testing.T) {
	store := &fakeStore{}
	q := queue.NewInMemory(1)
	r := NewRecorder(store, q)

	rec, err := r.Record(context.Background(), Record{
		PersonID: "p1",
		Day:      "2025-01-10",
		Type:     PunchIn,
	})
	require.NoError(t, err)
	assert.Equal(t, "rec-1", rec.ID)
	require.Len(t, store.records, 1)

	msgs, err := q.Consume(context.Background())
	require.NoError(t, err)
	msg := <-msgs
	assert.Equal(t, queue.TypeSummary, msg.Type)
	var body SummaryMsg
	require.NoError(t, json.Unmarshal(msg.Body, &body))
	assert.Equal(t, "p1", body.PersonID)
	assert.Equal(t, "2025-01-10", body.Day)
}

func TestRecordSurvivesQueueFailure(t *testing.T) {
	store := &fakeStore{}
	r := NewRecorder(store, failingQueue{})

	_, err := r.Record(context.Background(), Record{PersonID: "p1", Day: "2025-01-10", Type: PunchIn})
	assert.NoError(t, err)
	assert.Len(t, store.records, 1)
}

func TestRecordPropagatesStoreFailure(t *testing.T) {
	r := NewRecorder(&fakeStore{fail: true}, nil)

	_, err := r.Record(context.Background(), Record{PersonID: "p1"})
	assert.Error(t, err)
}

func TestDayOf(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	// 23:30 UTC on the 9th is already the 10th in IST.
	at := time.Date(2025, 1, 9, 23, 30, 0, 0, time.UTC)
	assert.Equal(t, "2025-01-10", DayOf(at, ist))
	assert.Equal(t, "2025-01-09", DayOf(at, time.UTC))
}
