package tracker

import (
	"context"
	"fmt"

	"github.com/shyim/lighthouse-bench/internal/models"
	"github.com/shyim/lighthouse-bench/internal/urlcheck"
	"github.com/sirupsen/logrus"
)

// Measurer audits a single URL. Implementations may block for the length of
// a full browser run.
type Measurer interface {
	Measure(ctx context.Context, url, presetKey string) (models.MeasurementResult, error)
}

// RoundEvent reports the outcome of one URL of a round.
type RoundEvent struct {
	Index  int // 1-based
	Total  int
	URL    string
	Result models.MeasurementResult
	Err    error
}

// RoundSummary is the outcome of a whole round.
type RoundSummary struct {
	Total     int
	Succeeded int
	Failures  []RoundEvent
}

// RunRound measures every tracked URL one after another with presetKey.
// Each successful result is appended to the log and added to the round
// buffer as soon as it arrives. A failing URL is reported through onEvent
// and the round moves on. Cancellation is honored between URLs only.
func (t *Tracker) RunRound(ctx context.Context, m Measurer, presetKey string, onEvent func(RoundEvent)) (RoundSummary, error) {
	if !t.roundMu.TryLock() {
		return RoundSummary{}, ErrRoundInProgress
	}
	defer t.roundMu.Unlock()

	urls, err := t.URLs.List(ctx)
	if err != nil {
		return RoundSummary{}, err
	}

	t.mu.Lock()
	t.round.Reset()
	t.mu.Unlock()

	summary := RoundSummary{Total: len(urls)}
	for i, u := range urls {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		ev := RoundEvent{Index: i + 1, Total: len(urls), URL: u}

		if _, verr := urlcheck.Normalize(u); verr != nil {
			ev.Err = verr
		} else {
			ev.Result, ev.Err = m.Measure(ctx, u, presetKey)
		}

		if ev.Err != nil {
			logrus.WithFields(logrus.Fields{"url": u, "preset": presetKey}).Errorf("Measurement failed: %v", ev.Err)
			summary.Failures = append(summary.Failures, ev)
			notify(onEvent, ev)
			continue
		}

		if err := t.Log.Append(ctx, ev.Result); err != nil {
			return summary, fmt.Errorf("failed to persist measurement of %s: %w", u, err)
		}
		t.mu.Lock()
		t.round.Add(ev.Result)
		t.mu.Unlock()

		summary.Succeeded++
		notify(onEvent, ev)
	}

	return summary, nil
}

func notify(onEvent func(RoundEvent), ev RoundEvent) {
	if onEvent != nil {
		onEvent(ev)
	}
}
