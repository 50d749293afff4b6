package insight

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/HerbHall/cycleinsight/internal/insight/anomaly"
	"github.com/HerbHall/cycleinsight/internal/insight/baseline"
	"github.com/HerbHall/cycleinsight/internal/insight/deviation"
	"github.com/HerbHall/cycleinsight/internal/insight/features"
	"github.com/HerbHall/cycleinsight/internal/insight/flow"
	"github.com/HerbHall/cycleinsight/internal/insight/forecast"
	"github.com/HerbHall/cycleinsight/internal/insight/persistence"
	"github.com/HerbHall/cycleinsight/pkg/analytics"
)

// Analyzer runs the per-request analysis pipeline:
//
//	intake -> baseline -> confidence -> cold path | full path -> response
//
// Only the full (personalized) path runs the outlier model and z-score, and
// only it touches the persistence tracker.
type Analyzer struct {
	logger           *zap.Logger
	thresholds       baseline.Thresholds
	bands            deviation.Bands
	window           forecast.Policy
	flow             flow.Policy
	anomalyThreshold float64
	unconfirmed      UnconfirmedPolicy
	newScorer        anomaly.Factory
	tracker          *persistence.Tracker
}

// AnalyzerOption configures an Analyzer.
type AnalyzerOption func(*Analyzer)

// WithLogger sets the analyzer's logger.
func WithLogger(l *zap.Logger) AnalyzerOption {
	return func(a *Analyzer) { a.logger = l }
}

// WithScorer replaces the outlier model factory.
func WithScorer(f anomaly.Factory) AnalyzerOption {
	return func(a *Analyzer) { a.newScorer = f }
}

// NewAnalyzer builds an Analyzer from cfg. The tracker is shared by every
// analysis this Analyzer runs. cfg must already be validated.
func NewAnalyzer(cfg InsightConfig, tracker *persistence.Tracker, opts ...AnalyzerOption) *Analyzer {
	a := &Analyzer{
		logger:           zap.NewNop(),
		thresholds:       cfg.Thresholds(),
		bands:            cfg.Bands(),
		window:           cfg.WindowPolicy(),
		flow:             cfg.FlowPolicy(),
		anomalyThreshold: cfg.AnomalyThreshold,
		unconfirmed:      cfg.UnconfirmedPolicy,
		tracker:          tracker,
		newScorer: func() anomaly.Scorer {
			return &anomaly.IsolationForest{
				Trees:      cfg.AnomalyTrees,
				SampleSize: cfg.AnomalySampleSize,
				Seed:       cfg.AnomalySeed,
			}
		},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Tracker returns the persistence tracker.
func (a *Analyzer) Tracker() *persistence.Tracker { return a.tracker }

// AnalyzeUser analyzes one user's cycle history. Invalid input fails with an
// error matching analytics.ErrValidation before any state is mutated.
func (a *Analyzer) AnalyzeUser(ctx context.Context, userID string, h analytics.CycleHistory) (*analytics.AnalysisResult, error) {
	start := time.Now()
	log := a.logger.With(zap.String("user_id", userID))

	encoded, err := intake(userID, h)
	if err != nil {
		var ve *analytics.ValidationError
		if errors.As(err, &ve) {
			validationErrorsTotal.WithLabelValues(ve.Field).Inc()
		}
		return nil, err
	}

	history, latest := h.Split()
	base, err := baseline.Build(history.CycleLengths, history.PeriodDurations, history.FlowLogs)
	if err != nil {
		return nil, fmt.Errorf("build baseline: %w", err)
	}
	tier := a.thresholds.Classify(h.Len())
	log.Debug("baseline built",
		zap.Int("cycles", h.Len()),
		zap.String("confidence", tier.String()),
		zap.Float64("cycle_mean", base.Cycle.Mean),
		zap.Float64("cycle_std", base.Cycle.Std),
	)

	res := &analytics.AnalysisResult{
		Confidence:    tier,
		HeavyFlowRisk: a.flow.Assess(encoded, tier),
	}

	if tier != analytics.ConfidencePersonalized {
		res.DeviationType = analytics.DeviationNone
		res.CycleWindow = a.window.Window(base.Cycle.Mean, base.Cycle.Std, tier, analytics.DeviationNone)
		a.observe(res, start, false)
		return res, nil
	}

	verdict, score, err := a.score(history.CycleLengths, latest)
	if err != nil {
		return nil, err
	}
	z := deviation.ZScore(float64(latest), base.Cycle.Mean, base.Cycle.Std)
	band := a.bands.Band(z)
	candidate := deviation.Fuse(verdict, band, false)
	log.Debug("deviation candidate",
		zap.String("verdict", verdict.String()),
		zap.Float64("z", z),
		zap.String("band", band.String()),
		zap.String("candidate", candidate.String()),
	)

	persistent, err := a.tracker.Update(ctx, userID, candidate)
	if err != nil {
		return nil, err
	}

	final := deviation.Fuse(verdict, band, persistent)
	if !persistent && a.unconfirmed == UnconfirmedSuppress {
		final = analytics.DeviationNone
	}
	if persistent {
		log.Info("persistent deviation",
			zap.String("candidate", candidate.String()),
			zap.String("deviation", final.String()),
		)
	}

	res.DeviationType = final
	res.CycleWindow = a.window.Window(base.Cycle.Mean, base.Cycle.Std, tier, final)
	res.Candidate = &candidate
	res.Persistent = &persistent
	res.ZScore = &z
	res.AnomalyScore = score
	res.Baseline = &base
	a.observe(res, start, persistent)
	return res, nil
}

// score fits a fresh outlier model on history and classifies latest. Too
// little history to fit is absorbed as a normal verdict with no score.
func (a *Analyzer) score(history []int, latest int) (analytics.Verdict, *float64, error) {
	scorer := a.newScorer()
	if err := scorer.Fit(features.Floats(history)); err != nil {
		if errors.Is(err, analytics.ErrInsufficientData) {
			a.logger.Debug("outlier model skipped", zap.Int("history", len(history)))
			return analytics.VerdictNormal, nil, nil
		}
		return analytics.VerdictNormal, nil, fmt.Errorf("fit outlier model: %w", err)
	}
	s, err := scorer.Score(float64(latest))
	if err != nil {
		return analytics.VerdictNormal, nil, fmt.Errorf("score latest cycle: %w", err)
	}
	return anomaly.Classify(s, a.anomalyThreshold), &s, nil
}

func (a *Analyzer) observe(res *analytics.AnalysisResult, start time.Time, persistent bool) {
	analysesTotal.WithLabelValues(res.Confidence.String(), res.DeviationType.String()).Inc()
	analysisDuration.WithLabelValues(res.Confidence.String()).Observe(time.Since(start).Seconds())
	if persistent {
		persistentDeviationsTotal.Inc()
	}
}

// intake validates h and encodes its flow logs.
func intake(userID string, h analytics.CycleHistory) ([][]int, error) {
	if userID == "" {
		return nil, analytics.Validation("user_id", "must not be empty", nil)
	}
	n := len(h.CycleLengths)
	switch {
	case n == 0:
		return nil, analytics.Validation("cycle_lengths", "must not be empty", nil)
	case len(h.PeriodDurations) != n:
		return nil, analytics.Validation("period_durations",
			fmt.Sprintf("has %d entries, cycle_lengths has %d", len(h.PeriodDurations), n),
			analytics.ErrMisalignedHistory)
	case len(h.FlowLogs) != n:
		return nil, analytics.Validation("flow_logs",
			fmt.Sprintf("has %d entries, cycle_lengths has %d", len(h.FlowLogs), n),
			analytics.ErrMisalignedHistory)
	}
	for i := range n {
		if h.CycleLengths[i] <= 0 {
			return nil, analytics.Validation("cycle_lengths",
				fmt.Sprintf("entry %d is %d, must be positive", i, h.CycleLengths[i]), nil)
		}
		if h.PeriodDurations[i] <= 0 {
			return nil, analytics.Validation("period_durations",
				fmt.Sprintf("entry %d is %d, must be positive", i, h.PeriodDurations[i]), nil)
		}
	}
	encoded, err := features.EncodeFlow(h.FlowLogs)
	if err != nil {
		return nil, analytics.Validation("flow_logs", err.Error(), err)
	}
	return encoded, nil
}
