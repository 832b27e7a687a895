package tracker

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/shyim/lighthouse-bench/internal/models"
	"github.com/shyim/lighthouse-bench/internal/state"
)

var (
	ErrEmptyRound      = errors.New("no measurements in the current round")
	ErrRecordNotFound  = errors.New("record not found")
	ErrRoundInProgress = errors.New("a measurement round is already running")
)

// RoundBuffer holds the latest figures per URL of the round in progress. It
// is never persisted.
type RoundBuffer struct {
	order  []string
	latest map[string]models.Metrics
}

func (b *RoundBuffer) Reset() {
	b.order = nil
	b.latest = nil
}

func (b *RoundBuffer) Add(r models.MeasurementResult) {
	if b.latest == nil {
		b.latest = make(map[string]models.Metrics)
	}
	if _, ok := b.latest[r.URL]; !ok {
		b.order = append(b.order, r.URL)
	}
	b.latest[r.URL] = r.Metrics
}

func (b *RoundBuffer) Len() int {
	return len(b.order)
}

func (b *RoundBuffer) Snapshot() []models.RecordEntry {
	out := make([]models.RecordEntry, 0, len(b.order))
	for _, u := range b.order {
		out = append(out, models.RecordEntry{URL: u, Metrics: b.latest[u]})
	}
	return out
}

// RecordHistory is the ordered list of saved records, numbered 1..N by
// position.
type RecordHistory struct {
	store state.Store
}

func (h *RecordHistory) All(ctx context.Context) ([]models.Record, error) {
	return load[models.Record](ctx, h.store, state.Records)
}

// Append saves entries as record number len+1.
func (h *RecordHistory) Append(ctx context.Context, entries []models.RecordEntry, savedAt time.Time) (models.Record, error) {
	records, err := h.All(ctx)
	if err != nil {
		return models.Record{}, err
	}

	rec := models.Record{
		RecordNumber: len(records) + 1,
		SavedAt:      savedAt,
		Measurements: entries,
	}
	if err := save(ctx, h.store, state.Records, append(records, rec)); err != nil {
		return models.Record{}, err
	}
	return rec, nil
}

// Delete removes record n. Survivors keep their stored order and are
// renumbered 1..N-1 by position.
func (h *RecordHistory) Delete(ctx context.Context, n int) error {
	records, err := h.All(ctx)
	if err != nil {
		return err
	}

	idx := slices.IndexFunc(records, func(r models.Record) bool { return r.RecordNumber == n })
	if idx < 0 {
		return fmt.Errorf("%w: %d", ErrRecordNotFound, n)
	}

	records = slices.Delete(records, idx, idx+1)
	for i := range records {
		records[i].RecordNumber = i + 1
	}

	return save(ctx, h.store, state.Records, records)
}

// Reset drops every record. It cannot be undone.
func (h *RecordHistory) Reset(ctx context.Context) error {
	return save[models.Record](ctx, h.store, state.Records, nil)
}
