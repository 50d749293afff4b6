package baseline

import (
	"fmt"

	"github.com/HerbHall/cycleinsight/pkg/analytics"
)

// Thresholds are the cycle counts at which a user moves from cold start to
// developing (Developing) and from developing to personalized (Personalized).
type Thresholds struct {
	Developing   int
	Personalized int
}

// DefaultThresholds returns the stock confidence thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{Developing: 3, Personalized: 6}
}

// Validate checks 1 <= Developing < Personalized.
func (t Thresholds) Validate() error {
	if t.Developing < 1 {
		return fmt.Errorf("confidence developing threshold must be >= 1, got %d", t.Developing)
	}
	if t.Developing >= t.Personalized {
		return fmt.Errorf("confidence developing threshold (%d) must be below personalized threshold (%d)",
			t.Developing, t.Personalized)
	}
	return nil
}

// Classify maps the total recorded cycle count, latest included, to a tier.
func (t Thresholds) Classify(count int) analytics.ConfidenceTier {
	switch {
	case count < t.Developing:
		return analytics.ConfidenceColdStart
	case count < t.Personalized:
		return analytics.ConfidenceDeveloping
	default:
		return analytics.ConfidencePersonalized
	}
}
