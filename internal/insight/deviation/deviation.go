// Package deviation standardizes the latest cycle against its baseline and
// fuses the result with the outlier verdict into a single severity signal.
package deviation

import (
	"fmt"
	"math"

	"github.com/HerbHall/cycleinsight/pkg/analytics"
)

// ZScore returns (value - mean) / std. A non-positive std yields 0 so that
// perfectly regular histories do not break the pipeline.
func ZScore(value, mean, std float64) float64 {
	if std <= 0 {
		return 0
	}
	return (value - mean) / std
}

// Bands are the lower |z| bounds (inclusive) of each severity band.
type Bands struct {
	Mild     float64
	Moderate float64
	Severe   float64
}

// DefaultBands returns the stock 1/2/3 standard-deviation bands.
func DefaultBands() Bands {
	return Bands{Mild: 1, Moderate: 2, Severe: 3}
}

// Validate checks 0 < Mild < Moderate < Severe.
func (b Bands) Validate() error {
	if b.Mild <= 0 || b.Mild >= b.Moderate || b.Moderate >= b.Severe {
		return fmt.Errorf("z bands must satisfy 0 < mild < moderate < severe, got %v/%v/%v",
			b.Mild, b.Moderate, b.Severe)
	}
	return nil
}

// Band buckets |z| into a deviation signal.
func (b Bands) Band(z float64) analytics.DeviationSignal {
	absZ := math.Abs(z)
	switch {
	case absZ >= b.Severe:
		return analytics.DeviationSevere
	case absZ >= b.Moderate:
		return analytics.DeviationModerate
	case absZ >= b.Mild:
		return analytics.DeviationMild
	default:
		return analytics.DeviationNone
	}
}

// Fuse combines the outlier verdict with the z band:
//
//	normal,  none -> none
//	normal,  band -> band
//	anomaly, none -> mild
//	anomaly, band -> band + 1
//
// A persistent deviation escalates the fused result one more step. All
// escalation is capped at severe.
func Fuse(verdict analytics.Verdict, band analytics.DeviationSignal, persistent bool) analytics.DeviationSignal {
	var fused analytics.DeviationSignal
	switch verdict {
	case analytics.VerdictNormal:
		fused = band
	case analytics.VerdictAnomaly:
		fused = band.Escalate()
	default:
		panic(fmt.Sprintf("deviation: unknown verdict %d", verdict))
	}
	if persistent {
		fused = fused.Escalate()
	}
	return fused
}
