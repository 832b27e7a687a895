package tracker

import (
	"math"

	"github.com/shyim/lighthouse-bench/internal/models"
)

// accumulator sums figures and rounds each mean on its own. Sums are never
// rounded.
type accumulator struct {
	count                int
	score, lcp, fcp, tbt int64
}

func (a *accumulator) add(m models.Metrics) {
	a.count++
	a.score += int64(m.Score)
	a.lcp += int64(m.LCPMs)
	a.fcp += int64(m.FCPMs)
	a.tbt += int64(m.TBTMs)
}

func (a *accumulator) average(u string) models.Average {
	if a.count == 0 {
		return models.Average{URL: u}
	}
	return models.Average{
		URL:   u,
		Count: a.count,
		Score: mean(a.score, a.count),
		LCPMs: mean(a.lcp, a.count),
		FCPMs: mean(a.fcp, a.count),
		TBTMs: mean(a.tbt, a.count),
	}
}

// mean rounds half away from zero.
func mean(sum int64, count int) int {
	return int(math.Round(float64(sum) / float64(count)))
}

// LogAverage averages every logged measurement of u, committed to a record
// or not. Count is 0 when u has no measurements.
func LogAverage(u string, log []models.MeasurementResult) models.Average {
	var acc accumulator
	for _, r := range log {
		if r.URL == u {
			acc.add(r.Metrics)
		}
	}
	return acc.average(u)
}

// RecordAverages averages each URL over the saved records that contain it,
// using at most the first matching entry per record. URLs found in no
// record are left out of the result.
func RecordAverages(urls []string, records []models.Record) []models.Average {
	out := make([]models.Average, 0, len(urls))
	for _, u := range urls {
		var acc accumulator
		for _, rec := range records {
			for _, e := range rec.Measurements {
				if e.URL == u {
					acc.add(e.Metrics)
					break
				}
			}
		}
		if acc.count > 0 {
			out = append(out, acc.average(u))
		}
	}
	return out
}
