// Package history turns raw daily log entries into the aligned cycle history
// consumed by the analyzer.
package history

import (
	"slices"
	"time"

	"github.com/HerbHall/cycleinsight/pkg/analytics"
)

// period is a run of consecutive period-active days.
type period struct {
	start time.Time
	days  int
	flows []string
}

// day truncates t to its UTC calendar date.
func day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func daysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}

// Derive sorts entries by date and groups consecutive period-active days into
// periods. A calendar gap or an inactive day ends a period.
//
// Cycle i runs from the start of period i to the start of period i+1. The
// latest cycle runs from the latest period start through the last logged date.
// Flow labels are collected from each period's days; unlabeled days are skipped.
func Derive(entries []analytics.DailyEntry) (analytics.CycleHistory, error) {
	sorted := make([]analytics.DailyEntry, len(entries))
	copy(sorted, entries)
	for i := range sorted {
		sorted[i].Date = day(sorted[i].Date)
	}
	slices.SortStableFunc(sorted, func(a, b analytics.DailyEntry) int { return a.Date.Compare(b.Date) })

	var periods []*period
	var cur *period
	var prev time.Time
	for i, e := range sorted {
		if i > 0 && e.Date.Equal(prev) {
			return analytics.CycleHistory{}, analytics.Validation("entries",
				"duplicate log date "+e.Date.Format(time.DateOnly), nil)
		}
		contiguous := i > 0 && daysBetween(prev, e.Date) == 1
		prev = e.Date

		if !e.PeriodActive {
			cur = nil
			continue
		}
		if cur == nil || !contiguous {
			cur = &period{start: e.Date}
			periods = append(periods, cur)
		}
		cur.days++
		if e.Flow != "" {
			cur.flows = append(cur.flows, e.Flow)
		}
	}

	if len(periods) == 0 {
		return analytics.CycleHistory{}, analytics.Validation("entries", "no period days logged",
			analytics.ErrInsufficientData)
	}

	last := sorted[len(sorted)-1].Date
	h := analytics.CycleHistory{
		CycleLengths:    make([]int, len(periods)),
		PeriodDurations: make([]int, len(periods)),
		FlowLogs:        make([][]string, len(periods)),
	}
	for i, p := range periods {
		if i+1 < len(periods) {
			h.CycleLengths[i] = daysBetween(p.start, periods[i+1].start)
		} else {
			h.CycleLengths[i] = daysBetween(p.start, last) + 1
		}
		h.PeriodDurations[i] = p.days
		h.FlowLogs[i] = p.flows
		if h.FlowLogs[i] == nil {
			h.FlowLogs[i] = []string{}
		}
	}
	return h, nil
}
