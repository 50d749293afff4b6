// Package flow derives a heavy-flow risk label from encoded flow intensities.
package flow

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/HerbHall/cycleinsight/internal/insight/features"
	"github.com/HerbHall/cycleinsight/pkg/analytics"
)

// Policy holds the share of high-intensity days at which risk is raised.
type Policy struct {
	High     float64
	Moderate float64
}

// DefaultPolicy returns the stock 0.5 / 0.25 cutoffs.
func DefaultPolicy() Policy {
	return Policy{High: 0.5, Moderate: 0.25}
}

// Validate checks 0 < Moderate < High <= 1.
func (p Policy) Validate() error {
	if p.Moderate <= 0 || p.Moderate >= p.High || p.High > 1 {
		return fmt.Errorf("heavy flow cutoffs must satisfy 0 < moderate < high <= 1, got %v/%v", p.Moderate, p.High)
	}
	return nil
}

// HighShare returns the fraction of logged days with high intensity across all
// cycles, and the number of logged days.
func HighShare(encoded [][]int) (share float64, days int) {
	var all []float64
	for _, cycle := range encoded {
		all = append(all, features.Floats(cycle)...)
	}
	if len(all) == 0 {
		return 0, 0
	}
	high := floats.Count(func(v float64) bool { return v == features.FlowHigh }, all)
	return float64(high) / float64(len(all)), len(all)
}

// Assess maps encoded flows to a risk label. Cold start, or no logged days,
// yields unknown.
func (p Policy) Assess(encoded [][]int, tier analytics.ConfidenceTier) analytics.HeavyFlowRisk {
	if tier == analytics.ConfidenceColdStart {
		return analytics.HeavyFlowUnknown
	}
	share, days := HighShare(encoded)
	switch {
	case days == 0:
		return analytics.HeavyFlowUnknown
	case share >= p.High:
		return analytics.HeavyFlowHigh
	case share >= p.Moderate:
		return analytics.HeavyFlowModerate
	default:
		return analytics.HeavyFlowLow
	}
}
