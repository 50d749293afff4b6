package insight

// Event topics published by the Insight module.
const (
	// TopicAnalysisCompleted carries *analytics.AnalysisEvent.
	TopicAnalysisCompleted = "insight.analysis.completed"
	// TopicDeviationPersistent carries *analytics.PersistentDeviationEvent.
	TopicDeviationPersistent = "insight.deviation.persistent"
)
