// Package anomaly scores the latest cycle length against a user's history with
// an unsupervised outlier model.
package anomaly

import (
	"errors"
	"sync/atomic"

	"github.com/HerbHall/cycleinsight/pkg/analytics"
)

// DefaultThreshold is the score below which a value is classified as an anomaly.
const DefaultThreshold = 0.05

// ErrNotFitted is returned by Score when Fit has not succeeded.
var ErrNotFitted = errors.New("anomaly: scorer not fitted")

// Scorer is a single-feature outlier model trained per request.
// Lower scores are more anomaly-like; scores fall in [0, 1].
type Scorer interface {
	Fit(history []float64) error
	Score(value float64) (float64, error)
}

// Factory builds a fresh Scorer for one analysis.
type Factory func() Scorer

// Classify maps a score to a verdict: anomaly when score < threshold.
func Classify(score, threshold float64) analytics.Verdict {
	if score < threshold {
		return analytics.VerdictAnomaly
	}
	return analytics.VerdictNormal
}

// Fixed is a deterministic Scorer that always returns Value. It counts calls
// so tests can assert whether the model ran at all.
type Fixed struct {
	Value float64

	fits   atomic.Int64
	scores atomic.Int64
}

// Fit records the call. It enforces the same minimum history as IsolationForest.
func (f *Fixed) Fit(history []float64) error {
	f.fits.Add(1)
	if len(history) < 2 {
		return analytics.ErrInsufficientData
	}
	return nil
}

// Score records the call and returns Value.
func (f *Fixed) Score(float64) (float64, error) {
	f.scores.Add(1)
	return f.Value, nil
}

// Calls returns the number of Fit and Score invocations.
func (f *Fixed) Calls() (fits, scores int64) {
	return f.fits.Load(), f.scores.Load()
}
