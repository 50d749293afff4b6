// Package analytics provides public SDK types for the cycleinsight analytics core.
// Callers build a CycleHistory, hand it to the insight analyzer, and receive an
// AnalysisResult. All enumerations are closed sets that marshal to lower-case text.
package analytics

import (
	"fmt"
	"time"
)

// CycleHistory is one user's ordered cycle history. The three slices are aligned;
// the final element of each describes the current, not-yet-complete cycle.
type CycleHistory struct {
	CycleLengths    []int      `json:"cycle_lengths"`
	PeriodDurations []int      `json:"period_durations"`
	FlowLogs        [][]string `json:"flow_logs"`
}

// Len returns the number of recorded cycles, including the latest.
func (h CycleHistory) Len() int { return len(h.CycleLengths) }

// Split separates the completed history from the latest cycle.
// It must only be called on a validated, non-empty history.
func (h CycleHistory) Split() (history CycleHistory, latestCycle int) {
	n := len(h.CycleLengths)
	history = CycleHistory{
		CycleLengths:    h.CycleLengths[:n-1],
		PeriodDurations: h.PeriodDurations[:n-1],
		FlowLogs:        h.FlowLogs[:n-1],
	}
	return history, h.CycleLengths[n-1]
}

// CycleStats summarizes cycle lengths.
type CycleStats struct {
	Mean  float64 `json:"mean"`
	Std   float64 `json:"std"`
	Count int     `json:"count"`
}

// PeriodStats summarizes period durations.
type PeriodStats struct {
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
}

// Baseline is the per-user statistical baseline computed over completed cycles only.
type Baseline struct {
	Cycle  CycleStats  `json:"cycle"`
	Period PeriodStats `json:"period"`
}

// PredictedWindow is the expected length band of the next cycle, in days.
type PredictedWindow struct {
	Low  int `json:"low"`
	High int `json:"high"`
}

// AnalysisResult is the response of a single analysis request.
// Diagnostic fields are only populated when the personalized path ran.
type AnalysisResult struct {
	DeviationType DeviationSignal `json:"deviation_type"`
	Confidence    ConfidenceTier  `json:"confidence"`
	CycleWindow   PredictedWindow `json:"cycle_window"`
	HeavyFlowRisk HeavyFlowRisk   `json:"heavy_flow_risk"`

	Candidate    *DeviationSignal `json:"candidate,omitempty"`
	Persistent   *bool            `json:"persistent,omitempty"`
	ZScore       *float64         `json:"z_score,omitempty"`
	AnomalyScore *float64         `json:"anomaly_score,omitempty"`
	Baseline     *Baseline        `json:"baseline,omitempty"`
}

// PersistenceState is the hysteresis record kept per user across analyses.
type PersistenceState struct {
	UserID           string          `json:"user_id"`
	ConsecutiveCount int             `json:"consecutive_count"`
	LastSignal       DeviationSignal `json:"last_signal"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// AnalysisRecord is an audit entry for a completed analysis.
type AnalysisRecord struct {
	ID         string         `json:"id"`
	UserID     string         `json:"user_id"`
	CycleCount int            `json:"cycle_count"`
	Result     AnalysisResult `json:"result"`
	AnalyzedAt time.Time      `json:"analyzed_at"`
}

// DailyEntry is one raw day from the upstream log store.
type DailyEntry struct {
	Date         time.Time `json:"log_date"`
	PeriodActive bool      `json:"is_period_active"`
	Flow         string    `json:"flow_encoded,omitempty"`
}

// parseEnum looks up a text value in names, returning its index.
func parseEnum(kind string, names []string, text []byte) (int, error) {
	s := string(text)
	for i, n := range names {
		if n == s {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown %s %q", kind, s)
}
