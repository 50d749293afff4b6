package insight

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/HerbHall/cycleinsight/internal/insight/persistence"
	"github.com/HerbHall/cycleinsight/pkg/analytics"
	"github.com/HerbHall/cycleinsight/pkg/plugin"
)

// Compile-time interface guards.
var (
	_ plugin.Plugin        = (*Module)(nil)
	_ plugin.HTTPProvider  = (*Module)(nil)
	_ plugin.HealthChecker = (*Module)(nil)
)

// Module implements the Insight cycle analytics module.
type Module struct {
	logger   *zap.Logger
	cfg      InsightConfig
	store    *InsightStore
	bus      plugin.EventBus
	redis    *redis.Client
	memory   *persistence.MemoryStore
	analyzer *Analyzer

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new Insight module instance.
func New() *Module {
	return &Module{}
}

func (m *Module) Info() plugin.PluginInfo {
	return plugin.PluginInfo{
		Name:        "insight",
		Version:     "0.1.0",
		Description: "Cycle deviation analysis, persistence tracking and window prediction",
		Required:    true,
		APIVersion:  plugin.APIVersionCurrent,
	}
}

func (m *Module) Init(ctx context.Context, deps plugin.Dependencies) error {
	m.logger = deps.Logger
	if m.logger == nil {
		m.logger = zap.NewNop()
	}

	m.cfg = DefaultConfig()
	if deps.Config != nil {
		if err := deps.Config.Unmarshal(&m.cfg); err != nil {
			return fmt.Errorf("unmarshal insight config: %w", err)
		}
	}
	if err := m.cfg.Validate(); err != nil {
		return fmt.Errorf("insight config: %w", err)
	}

	if deps.Store != nil {
		if err := deps.Store.Migrate(ctx, "insight", migrations()); err != nil {
			return fmt.Errorf("insight migrations: %w", err)
		}
		m.store = NewInsightStore(deps.Store.DB())
	}
	m.bus = deps.Bus

	states, err := m.stateStore(ctx)
	if err != nil {
		return err
	}
	tracker := persistence.NewTracker(states,
		persistence.WithThreshold(m.cfg.PersistenceThreshold),
		persistence.WithRequireSameSignal(m.cfg.PersistenceRequireSameSignal),
	)
	m.analyzer = NewAnalyzer(m.cfg, tracker, WithLogger(m.logger))

	m.logger.Info("insight module initialized",
		zap.String("state_backend", m.cfg.StateBackend),
		zap.Int("confidence_developing", m.cfg.ConfidenceDeveloping),
		zap.Int("confidence_personalized", m.cfg.ConfidencePersonalized),
		zap.Float64("anomaly_threshold", m.cfg.AnomalyThreshold),
		zap.Int("persistence_threshold", m.cfg.PersistenceThreshold),
		zap.String("unconfirmed_policy", string(m.cfg.UnconfirmedPolicy)),
	)
	return nil
}

// stateStore builds the configured persistence backend.
func (m *Module) stateStore(ctx context.Context) (persistence.StateStore, error) {
	switch m.cfg.StateBackend {
	case BackendSQLite:
		if m.store == nil {
			return nil, fmt.Errorf("state_backend %q requires a database", BackendSQLite)
		}
		return m.store, nil
	case BackendRedis:
		m.redis = redis.NewClient(&redis.Options{Addr: m.cfg.RedisAddr})
		if err := m.redis.Ping(ctx).Err(); err != nil {
			m.redis.Close()
			m.redis = nil
			return nil, fmt.Errorf("connect redis %s: %w", m.cfg.RedisAddr, err)
		}
		return persistence.NewRedisStore(m.redis, m.cfg.RedisKeyPrefix), nil
	default:
		m.memory = persistence.NewMemoryStore()
		return m.memory, nil
	}
}

func (m *Module) Start(_ context.Context) error {
	m.ctx, m.cancel = context.WithCancel(context.Background())
	m.startMaintenance()
	m.logger.Info("insight module started")
	return nil
}

func (m *Module) Stop(_ context.Context) error {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
	if m.redis != nil {
		if err := m.redis.Close(); err != nil {
			m.logger.Warn("failed to close redis client", zap.Error(err))
		}
	}
	m.logger.Info("insight module stopped")
	return nil
}

// Analyzer returns the module's analyzer.
func (m *Module) Analyzer() *Analyzer { return m.analyzer }

// Analyze runs one analysis, then records it and publishes events. Recording
// and publishing failures are logged and never fail the analysis.
func (m *Module) Analyze(ctx context.Context, userID string, h analytics.CycleHistory) (*analytics.AnalysisResult, error) {
	res, err := m.analyzer.AnalyzeUser(ctx, userID, h)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()

	if m.store != nil {
		rec := &analytics.AnalysisRecord{
			ID:         uuid.NewString(),
			UserID:     userID,
			CycleCount: h.Len(),
			Result:     *res,
			AnalyzedAt: now,
		}
		if err := m.store.InsertAnalysis(ctx, rec); err != nil {
			m.logger.Warn("failed to record analysis", zap.String("user_id", userID), zap.Error(err))
		}
	}

	if m.bus != nil {
		pubCtx := context.WithoutCancel(ctx)
		m.bus.PublishAsync(pubCtx, plugin.Event{
			Topic:     TopicAnalysisCompleted,
			Source:    "insight",
			Timestamp: now,
			Payload:   &analytics.AnalysisEvent{UserID: userID, Result: *res, AnalyzedAt: now},
		})
		if res.Persistent != nil && *res.Persistent {
			ev := &analytics.PersistentDeviationEvent{
				UserID:     userID,
				Candidate:  *res.Candidate,
				Deviation:  res.DeviationType,
				DetectedAt: now,
			}
			if st, err := m.analyzer.Tracker().State(ctx, userID); err == nil && st != nil {
				ev.Count = st.ConsecutiveCount
			}
			m.bus.PublishAsync(pubCtx, plugin.Event{
				Topic:     TopicDeviationPersistent,
				Source:    "insight",
				Timestamp: now,
				Payload:   ev,
			})
		}
	}
	return res, nil
}

// -- plugin.HealthChecker --

// Health implements plugin.HealthChecker.
func (m *Module) Health(ctx context.Context) plugin.HealthStatus {
	details := map[string]string{
		"state_backend": m.cfg.StateBackend,
	}
	status := plugin.HealthStatus{Status: "healthy", Details: details}

	switch {
	case m.memory != nil:
		details["users_tracked"] = strconv.Itoa(m.memory.Len())
	case m.redis != nil:
		if err := m.redis.Ping(ctx).Err(); err != nil {
			status.Status = "unhealthy"
			status.Message = "redis unreachable"
		}
	case m.store != nil && m.cfg.StateBackend == BackendSQLite:
		n, err := m.store.CountTrackedUsers(ctx)
		if err != nil {
			status.Status = "degraded"
			status.Message = "cannot read persistence state"
		} else {
			details["users_tracked"] = strconv.Itoa(n)
		}
	}
	details["audit_log"] = strconv.FormatBool(m.store != nil)
	return status
}
