// Package forecast predicts the next-cycle length window from a user's baseline.
package forecast

import (
	"fmt"
	"math"

	"github.com/HerbHall/cycleinsight/pkg/analytics"
)

// Policy holds the window widening factors. Half width is
// K(tier)*std + steps(signal)*StepWidening*std, where steps runs from 0 (none)
// to 3 (severe).
type Policy struct {
	KColdStart    float64
	KDeveloping   float64
	KPersonalized float64
	StepWidening  float64
	MinCycleDays  int
}

// DefaultPolicy returns the stock widening factors and a 21-day floor.
func DefaultPolicy() Policy {
	return Policy{
		KColdStart:    1.5,
		KDeveloping:   1.5,
		KPersonalized: 1.0,
		StepWidening:  0.5,
		MinCycleDays:  21,
	}
}

// Validate rejects negative factors and a non-positive floor.
func (p Policy) Validate() error {
	if p.KColdStart < 0 || p.KDeveloping < 0 || p.KPersonalized < 0 || p.StepWidening < 0 {
		return fmt.Errorf("window factors must be non-negative")
	}
	if p.MinCycleDays < 1 {
		return fmt.Errorf("min cycle days must be >= 1, got %d", p.MinCycleDays)
	}
	return nil
}

// k returns the base multiplier for tier.
func (p Policy) k(tier analytics.ConfidenceTier) float64 {
	switch tier {
	case analytics.ConfidenceColdStart:
		return p.KColdStart
	case analytics.ConfidenceDeveloping:
		return p.KDeveloping
	case analytics.ConfidencePersonalized:
		return p.KPersonalized
	default:
		panic(fmt.Sprintf("forecast: unknown confidence tier %d", tier))
	}
}

// Window returns the predicted band around mean. Both bounds are rounded to
// whole days and floored at MinCycleDays.
func (p Policy) Window(mean, std float64, tier analytics.ConfidenceTier, signal analytics.DeviationSignal) analytics.PredictedWindow {
	std = math.Max(std, 0)
	halfWidth := p.k(tier)*std + float64(signal.Steps())*p.StepWidening*std
	return analytics.PredictedWindow{
		Low:  max(p.MinCycleDays, int(math.Round(mean-halfWidth))),
		High: max(p.MinCycleDays, int(math.Round(mean+halfWidth))),
	}
}
