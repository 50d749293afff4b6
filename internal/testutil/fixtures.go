// Package testutil builds cycle-history fixtures for tests.
package testutil

import (
	"time"

	"github.com/HerbHall/cycleinsight/pkg/analytics"
)

// DefaultFlows is the flow log of every period NewHistory creates.
var DefaultFlows = []string{"M", "H", "M", "L", "L"}

// HistoryOption adjusts a fixture history.
type HistoryOption func(*analytics.CycleHistory)

// NewHistory returns n regular 28-day cycles, each opening with a period
// logged as DefaultFlows. Override fields with options, applied in order.
func NewHistory(n int, opts ...HistoryOption) analytics.CycleHistory {
	h := analytics.CycleHistory{
		CycleLengths:    make([]int, n),
		PeriodDurations: make([]int, n),
		FlowLogs:        make([][]string, n),
	}
	for i := range n {
		h.CycleLengths[i] = 28
		h.PeriodDurations[i] = len(DefaultFlows)
		h.FlowLogs[i] = append([]string(nil), DefaultFlows...)
	}
	for _, opt := range opts {
		opt(&h)
	}
	return h
}

// WithCycleLengths overwrites the leading cycle lengths.
func WithCycleLengths(lengths ...int) HistoryOption {
	return func(h *analytics.CycleHistory) {
		copy(h.CycleLengths, lengths)
	}
}

// WithLatest sets the length of the most recent cycle.
func WithLatest(days int) HistoryOption {
	return func(h *analytics.CycleHistory) {
		if n := len(h.CycleLengths); n > 0 {
			h.CycleLengths[n-1] = days
		}
	}
}

// WithFlows logs labels, one per day, for every period and sets each period
// duration to match.
func WithFlows(labels ...string) HistoryOption {
	return func(h *analytics.CycleHistory) {
		for i := range h.FlowLogs {
			h.FlowLogs[i] = append([]string(nil), labels...)
			h.PeriodDurations[i] = len(labels)
		}
	}
}

// DailyLogs expands h into one entry per day starting at start: each cycle
// opens with its period days, labeled in order from its flow log, and the
// remaining days are logged inactive. Every period must be shorter than its
// cycle for the periods to stay distinct.
func DailyLogs(h analytics.CycleHistory, start time.Time) []analytics.DailyEntry {
	var out []analytics.DailyEntry
	day := start.UTC().Truncate(24 * time.Hour)
	for i, length := range h.CycleLengths {
		for d := range length {
			e := analytics.DailyEntry{Date: day, PeriodActive: d < h.PeriodDurations[i]}
			if e.PeriodActive && d < len(h.FlowLogs[i]) {
				e.Flow = h.FlowLogs[i][d]
			}
			out = append(out, e)
			day = day.AddDate(0, 0, 1)
		}
	}
	return out
}
