package insight

import (
	"errors"
	"fmt"
	"time"

	"github.com/HerbHall/cycleinsight/internal/insight/baseline"
	"github.com/HerbHall/cycleinsight/internal/insight/deviation"
	"github.com/HerbHall/cycleinsight/internal/insight/flow"
	"github.com/HerbHall/cycleinsight/internal/insight/forecast"
)

// UnconfirmedPolicy decides what a personalized analysis reports while a
// candidate deviation is not yet persistent.
type UnconfirmedPolicy string

const (
	// UnconfirmedReport returns the fused candidate as-is.
	UnconfirmedReport UnconfirmedPolicy = "report"
	// UnconfirmedSuppress reports none until persistence is confirmed.
	UnconfirmedSuppress UnconfirmedPolicy = "suppress"
)

// State backends for the persistence tracker.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// InsightConfig holds configuration for the Insight analytics module.
type InsightConfig struct {
	ConfidenceDeveloping   int `mapstructure:"confidence_developing"`
	ConfidencePersonalized int `mapstructure:"confidence_personalized"`

	AnomalyThreshold  float64 `mapstructure:"anomaly_threshold"`
	AnomalyTrees      int     `mapstructure:"anomaly_trees"`
	AnomalySampleSize int     `mapstructure:"anomaly_sample_size"`
	AnomalySeed       uint64  `mapstructure:"anomaly_seed"` // 0 draws a fresh seed per analysis

	ZBandMild     float64 `mapstructure:"zband_mild"`
	ZBandModerate float64 `mapstructure:"zband_moderate"`
	ZBandSevere   float64 `mapstructure:"zband_severe"`

	PersistenceThreshold         int               `mapstructure:"persistence_threshold"`
	PersistenceRequireSameSignal bool              `mapstructure:"persistence_require_same_signal"`
	UnconfirmedPolicy            UnconfirmedPolicy `mapstructure:"unconfirmed_policy"`

	WindowKColdStart    float64 `mapstructure:"window_k_cold_start"`
	WindowKDeveloping   float64 `mapstructure:"window_k_developing"`
	WindowKPersonalized float64 `mapstructure:"window_k_personalized"`
	WindowStepWidening  float64 `mapstructure:"window_step_widening"`
	MinCycleDays        int     `mapstructure:"min_cycle_days"`

	HeavyFlowHigh     float64 `mapstructure:"heavy_flow_high"`
	HeavyFlowModerate float64 `mapstructure:"heavy_flow_moderate"`

	StateBackend   string `mapstructure:"state_backend"` // memory, sqlite or redis
	RedisAddr      string `mapstructure:"redis_addr"`
	RedisKeyPrefix string `mapstructure:"redis_key_prefix"`

	AnalysisRetention   time.Duration `mapstructure:"analysis_retention"`
	MaintenanceInterval time.Duration `mapstructure:"maintenance_interval"`
}

// DefaultConfig returns the stock analysis policy.
func DefaultConfig() InsightConfig {
	th := baseline.DefaultThresholds()
	bands := deviation.DefaultBands()
	win := forecast.DefaultPolicy()
	hf := flow.DefaultPolicy()
	return InsightConfig{
		ConfidenceDeveloping:   th.Developing,
		ConfidencePersonalized: th.Personalized,

		AnomalyThreshold:  0.05,
		AnomalyTrees:      100,
		AnomalySampleSize: 256,

		ZBandMild:     bands.Mild,
		ZBandModerate: bands.Moderate,
		ZBandSevere:   bands.Severe,

		PersistenceThreshold:         2,
		PersistenceRequireSameSignal: true,
		UnconfirmedPolicy:            UnconfirmedReport,

		WindowKColdStart:    win.KColdStart,
		WindowKDeveloping:   win.KDeveloping,
		WindowKPersonalized: win.KPersonalized,
		WindowStepWidening:  win.StepWidening,
		MinCycleDays:        win.MinCycleDays,

		HeavyFlowHigh:     hf.High,
		HeavyFlowModerate: hf.Moderate,

		StateBackend:   BackendMemory,
		RedisKeyPrefix: "cycleinsight:persistence:",

		AnalysisRetention:   90 * 24 * time.Hour,
		MaintenanceInterval: 1 * time.Hour,
	}
}

// Thresholds returns the confidence thresholds.
func (c InsightConfig) Thresholds() baseline.Thresholds {
	return baseline.Thresholds{Developing: c.ConfidenceDeveloping, Personalized: c.ConfidencePersonalized}
}

// Bands returns the z-score bands.
func (c InsightConfig) Bands() deviation.Bands {
	return deviation.Bands{Mild: c.ZBandMild, Moderate: c.ZBandModerate, Severe: c.ZBandSevere}
}

// WindowPolicy returns the prediction window policy.
func (c InsightConfig) WindowPolicy() forecast.Policy {
	return forecast.Policy{
		KColdStart:    c.WindowKColdStart,
		KDeveloping:   c.WindowKDeveloping,
		KPersonalized: c.WindowKPersonalized,
		StepWidening:  c.WindowStepWidening,
		MinCycleDays:  c.MinCycleDays,
	}
}

// FlowPolicy returns the heavy-flow cutoffs.
func (c InsightConfig) FlowPolicy() flow.Policy {
	return flow.Policy{High: c.HeavyFlowHigh, Moderate: c.HeavyFlowModerate}
}

// Validate reports every invalid setting.
func (c InsightConfig) Validate() error {
	var errs []error
	errs = append(errs, c.Thresholds().Validate(), c.Bands().Validate(),
		c.WindowPolicy().Validate(), c.FlowPolicy().Validate())

	if c.AnomalyThreshold < 0 || c.AnomalyThreshold > 1 {
		errs = append(errs, fmt.Errorf("anomaly_threshold must be in [0, 1], got %v", c.AnomalyThreshold))
	}
	if c.AnomalyTrees < 1 {
		errs = append(errs, fmt.Errorf("anomaly_trees must be >= 1, got %d", c.AnomalyTrees))
	}
	if c.AnomalySampleSize < 2 {
		errs = append(errs, fmt.Errorf("anomaly_sample_size must be >= 2, got %d", c.AnomalySampleSize))
	}
	if c.PersistenceThreshold < 1 {
		errs = append(errs, fmt.Errorf("persistence_threshold must be >= 1, got %d", c.PersistenceThreshold))
	}
	switch c.UnconfirmedPolicy {
	case UnconfirmedReport, UnconfirmedSuppress:
	default:
		errs = append(errs, fmt.Errorf("unconfirmed_policy must be %q or %q, got %q",
			UnconfirmedReport, UnconfirmedSuppress, c.UnconfirmedPolicy))
	}
	switch c.StateBackend {
	case BackendMemory, BackendSQLite:
	case BackendRedis:
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("redis_addr is required when state_backend is redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown state_backend %q", c.StateBackend))
	}
	if c.MaintenanceInterval <= 0 {
		errs = append(errs, fmt.Errorf("maintenance_interval must be positive, got %v", c.MaintenanceInterval))
	}
	return errors.Join(errs...)
}
