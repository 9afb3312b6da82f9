// Package anomaly flags days whose valid transaction volume for a merchant
// moves sharply against that merchant's previous data-bearing day.
package anomaly

import (
	"sort"

	"cloud.google.com/go/civil"

	"receipt-qa/internal/domain"
)

// DefaultThreshold is the smallest absolute day-over-day change reported.
const DefaultThreshold = 2

// Detector aggregates valid receipts per merchant and day.
type Detector struct {
	threshold int
}

// NewDetector creates a detector. A threshold below 1 falls back to DefaultThreshold.
func NewDetector(threshold int) *Detector {
	if threshold < 1 {
		threshold = DefaultThreshold
	}
	return &Detector{threshold: threshold}
}

// Threshold returns the configured threshold.
func (d *Detector) Threshold() int {
	return d.threshold
}

type dayKey struct {
	merchant string
	date     civil.Date
}

// Aggregate counts valid receipts per (merchant, date), ordered by merchant
// then date.
func (d *Detector) Aggregate(receipts []domain.CleanedReceipt) []domain.DailyAggregate {
	counts := make(map[dayKey]int)
	for _, r := range receipts {
		if !r.Valid || !r.Date.Valid {
			continue
		}
		counts[dayKey{merchant: r.Merchant, date: r.Date.Date}]++
	}

	aggregates := make([]domain.DailyAggregate, 0, len(counts))
	for k, c := range counts {
		aggregates = append(aggregates, domain.DailyAggregate{Merchant: k.merchant, Date: k.date, Count: c})
	}
	sort.Slice(aggregates, func(i, j int) bool {
		if aggregates[i].Merchant != aggregates[j].Merchant {
			return aggregates[i].Merchant < aggregates[j].Merchant
		}
		return aggregates[i].Date.Before(aggregates[j].Date)
	})
	return aggregates
}

// Detect compares every daily aggregate with the previous existing day of the
// same merchant, which need not be the previous calendar day. A merchant's
// first day has nothing to compare with and is never reported.
func (d *Detector) Detect(receipts []domain.CleanedReceipt) []domain.AnomalySignal {
	aggregates := d.Aggregate(receipts)

	signals := make([]domain.AnomalySignal, 0)
	for i := 1; i < len(aggregates); i++ {
		prev, cur := aggregates[i-1], aggregates[i]
		if prev.Merchant != cur.Merchant {
			continue
		}
		delta := cur.Count - prev.Count
		if abs(delta) < d.threshold {
			continue
		}
		signals = append(signals, domain.AnomalySignal{
			Merchant:  cur.Merchant,
			Date:      cur.Date,
			Count:     cur.Count,
			PrevCount: prev.Count,
			Delta:     delta,
		})
	}
	return signals
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
