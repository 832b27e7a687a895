// Package tracker keeps the client side of a benchmark: the tracked URL set,
// the measurement log, the saved record history and the averages computed
// over them.
package tracker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shyim/lighthouse-bench/internal/models"
	"github.com/shyim/lighthouse-bench/internal/state"
)

type Tracker struct {
	URLs    *URLSet
	Log     *MeasurementLog
	Records *RecordHistory

	mu      sync.Mutex
	round   RoundBuffer
	roundMu sync.Mutex
	now     func() time.Time
}

func New(store state.Store) *Tracker {
	return &Tracker{
		URLs:    &URLSet{store: store},
		Log:     &MeasurementLog{store: store},
		Records: &RecordHistory{store: store},
		now:     time.Now,
	}
}

// SetClock replaces the clock used for record timestamps.
func (t *Tracker) SetClock(now func() time.Time) {
	t.now = now
}

// RemoveURL stops tracking u and purges its measurements from the log.
// Saved records are left untouched.
func (t *Tracker) RemoveURL(ctx context.Context, u string) (bool, error) {
	removed, err := t.URLs.Remove(ctx, u)
	if err != nil {
		return false, err
	}
	if err := t.Log.RemoveByURL(ctx, u); err != nil {
		return removed, fmt.Errorf("failed to purge measurements of %s: %w", u, err)
	}
	return removed, nil
}

// CalculateAverage is the log-based average for u.
func (t *Tracker) CalculateAverage(ctx context.Context, u string) (models.Average, error) {
	all, err := t.Log.All(ctx)
	if err != nil {
		return models.Average{}, err
	}
	return LogAverage(u, all), nil
}

// CalculateAverages is the log-based average for every tracked URL, in
// tracking order. URLs without measurements have Count 0.
func (t *Tracker) CalculateAverages(ctx context.Context) ([]models.Average, error) {
	urls, err := t.URLs.List(ctx)
	if err != nil {
		return nil, err
	}
	all, err := t.Log.All(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]models.Average, 0, len(urls))
	for _, u := range urls {
		out = append(out, LogAverage(u, all))
	}
	return out, nil
}

// CalculateRecordAverages is the record-based average for every tracked URL
// present in at least one saved record.
func (t *Tracker) CalculateRecordAverages(ctx context.Context) ([]models.Average, error) {
	urls, err := t.URLs.List(ctx)
	if err != nil {
		return nil, err
	}
	records, err := t.Records.All(ctx)
	if err != nil {
		return nil, err
	}
	return RecordAverages(urls, records), nil
}

// PendingCount is the number of URLs in the unsaved round buffer.
func (t *Tracker) PendingCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.round.Len()
}

// SaveRound commits the round buffer as the next record and clears it.
func (t *Tracker) SaveRound(ctx context.Context) (models.Record, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.round.Len() == 0 {
		return models.Record{}, ErrEmptyRound
	}

	rec, err := t.Records.Append(ctx, t.round.Snapshot(), t.now().UTC())
	if err != nil {
		return models.Record{}, err
	}
	t.round.Reset()
	return rec, nil
}

// DeleteRecord removes record n and renumbers the rest.
func (t *Tracker) DeleteRecord(ctx context.Context, n int) error {
	return t.Records.Delete(ctx, n)
}

// ResetRecords clears the record history. Callers confirm with the user first.
func (t *Tracker) ResetRecords(ctx context.Context) error {
	return t.Records.Reset(ctx)
}
