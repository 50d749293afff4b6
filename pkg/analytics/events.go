package analytics

import "time"

// AnalysisEvent is published after every completed analysis.
type AnalysisEvent struct {
	UserID     string         `json:"user_id"`
	Result     AnalysisResult `json:"result"`
	AnalyzedAt time.Time      `json:"analyzed_at"`
}

// PersistentDeviationEvent is published when a deviation is confirmed as
// persistent for a user.
type PersistentDeviationEvent struct {
	UserID     string          `json:"user_id"`
	Candidate  DeviationSignal `json:"candidate"`
	Deviation  DeviationSignal `json:"deviation"`
	Count      int             `json:"consecutive_count"`
	DetectedAt time.Time       `json:"detected_at"`
}
