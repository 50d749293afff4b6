// Package baseline builds per-user cycle baselines and maps recorded history
// size to a confidence tier.
package baseline

import (
	"fmt"

	"github.com/HerbHall/cycleinsight/internal/insight/features"
	"github.com/HerbHall/cycleinsight/pkg/analytics"
)

// Build aggregates completed-cycle statistics. The latest, in-progress cycle
// must already be excluded by the caller.
//
// An empty history yields a zero-valued baseline rather than an error; the
// confidence tier decides whether these statistics are trusted.
func Build(cycles, periods []int, flows [][]string) (analytics.Baseline, error) {
	if len(cycles) != len(periods) || len(cycles) != len(flows) {
		return analytics.Baseline{}, fmt.Errorf("baseline: %d cycles, %d periods, %d flow logs: %w",
			len(cycles), len(periods), len(flows), analytics.ErrMisalignedHistory)
	}
	if len(cycles) == 0 {
		return analytics.Baseline{}, nil
	}

	cycle, err := features.ExtractCycleFeatures(cycles)
	if err != nil {
		return analytics.Baseline{}, fmt.Errorf("baseline: %w", err)
	}
	period, err := features.ExtractPeriodFeatures(periods)
	if err != nil {
		return analytics.Baseline{}, fmt.Errorf("baseline: %w", err)
	}
	return analytics.Baseline{Cycle: cycle, Period: period}, nil
}
