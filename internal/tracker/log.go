package tracker

import (
	"context"
	"slices"

	"github.com/shyim/lighthouse-bench/internal/models"
	"github.com/shyim/lighthouse-bench/internal/state"
)

// MeasurementLog is the append-only history of every measurement. Repeated
// measurements of a URL are kept independently.
type MeasurementLog struct {
	store state.Store
}

func (l *MeasurementLog) Append(ctx context.Context, r models.MeasurementResult) error {
	all, err := l.All(ctx)
	if err != nil {
		return err
	}
	return save(ctx, l.store, state.Measurements, append(all, r))
}

func (l *MeasurementLog) All(ctx context.Context) ([]models.MeasurementResult, error) {
	return load[models.MeasurementResult](ctx, l.store, state.Measurements)
}

// RemoveByURL purges every measurement of u.
func (l *MeasurementLog) RemoveByURL(ctx context.Context, u string) error {
	all, err := l.All(ctx)
	if err != nil {
		return err
	}
	kept := slices.DeleteFunc(all, func(r models.MeasurementResult) bool { return r.URL == u })
	return save(ctx, l.store, state.Measurements, kept)
}
