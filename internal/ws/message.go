package ws

import (
	"time"

	"github.com/HerbHall/cycleinsight/pkg/analytics"
)

// MessageType discriminates WebSocket messages.
type MessageType string

const (
	MessageAnalysisCompleted   MessageType = "insight.analysis.completed"
	MessageDeviationPersistent MessageType = "insight.deviation.persistent"
)

// Message is the envelope for all WebSocket messages.
type Message struct {
	Type      MessageType `json:"type"`
	UserID    string      `json:"user_id"`
	Timestamp time.Time   `json:"timestamp"`
	Data      any         `json:"data"`
}

// AnalysisCompletedData is the payload for insight.analysis.completed messages.
type AnalysisCompletedData struct {
	Result analytics.AnalysisResult `json:"result"`
}

// DeviationPersistentData is the payload for insight.deviation.persistent messages.
type DeviationPersistentData struct {
	Candidate        analytics.DeviationSignal `json:"candidate"`
	Deviation        analytics.DeviationSignal `json:"deviation_type"`
	ConsecutiveCount int                       `json:"consecutive_count"`
}
