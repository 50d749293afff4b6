package insight

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/HerbHall/cycleinsight/internal/insight/persistence"
	"github.com/HerbHall/cycleinsight/pkg/analytics"
)

// Compile-time interface guard.
var _ persistence.StateStore = (*InsightStore)(nil)

// InsightStore provides database access for the Insight module: persistence
// tracker state and the analysis audit log.
type InsightStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewInsightStore creates a new InsightStore backed by the given database.
func NewInsightStore(db *sql.DB) *InsightStore {
	return &InsightStore{db: db, now: time.Now}
}

// -- Persistence state --

// Update implements persistence.StateStore. The read-modify-write runs in one
// transaction; with a single write connection this serializes every update.
func (s *InsightStore) Update(ctx context.Context, userID string, fn persistence.UpdateFunc) (analytics.PersistenceState, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return analytics.PersistenceState{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	state, err := scanState(tx.QueryRowContext(ctx, `
		SELECT user_id, consecutive_count, last_signal, updated_at
		FROM insight_persistence WHERE user_id = ?`, userID))
	if errors.Is(err, sql.ErrNoRows) {
		state = &analytics.PersistenceState{UserID: userID}
	} else if err != nil {
		return analytics.PersistenceState{}, fmt.Errorf("load persistence state: %w", err)
	}

	if err := fn(state); err != nil {
		return analytics.PersistenceState{}, err
	}
	state.UserID = userID
	state.UpdatedAt = s.now().UTC()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO insight_persistence (user_id, consecutive_count, last_signal, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			consecutive_count = excluded.consecutive_count,
			last_signal = excluded.last_signal,
			updated_at = excluded.updated_at`,
		state.UserID, state.ConsecutiveCount, state.LastSignal.String(), state.UpdatedAt,
	)
	if err != nil {
		return analytics.PersistenceState{}, fmt.Errorf("save persistence state: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return analytics.PersistenceState{}, fmt.Errorf("commit persistence state: %w", err)
	}
	return *state, nil
}

// Get implements persistence.StateStore.
func (s *InsightStore) Get(ctx context.Context, userID string) (*analytics.PersistenceState, error) {
	state, err := scanState(s.db.QueryRowContext(ctx, `
		SELECT user_id, consecutive_count, last_signal, updated_at
		FROM insight_persistence WHERE user_id = ?`, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get persistence state: %w", err)
	}
	return state, nil
}

// CountTrackedUsers returns the number of users with persistence state.
func (s *InsightStore) CountTrackedUsers(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM insight_persistence`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count tracked users: %w", err)
	}
	return n, nil
}

func scanState(row *sql.Row) (*analytics.PersistenceState, error) {
	var st analytics.PersistenceState
	var signal string
	if err := row.Scan(&st.UserID, &st.ConsecutiveCount, &signal, &st.UpdatedAt); err != nil {
		return nil, err
	}
	if err := st.LastSignal.UnmarshalText([]byte(signal)); err != nil {
		return nil, fmt.Errorf("decode last_signal: %w", err)
	}
	return &st, nil
}

// -- Analysis log --

// InsertAnalysis records a completed analysis.
func (s *InsightStore) InsertAnalysis(ctx context.Context, rec *analytics.AnalysisRecord) error {
	data, err := json.Marshal(rec.Result)
	if err != nil {
		return fmt.Errorf("marshal analysis result: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO insight_analyses (
			id, user_id, cycle_count, confidence, deviation_type, result, analyzed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.UserID, rec.CycleCount,
		rec.Result.Confidence.String(), rec.Result.DeviationType.String(),
		string(data), rec.AnalyzedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert analysis: %w", err)
	}
	return nil
}

// ListAnalyses returns a user's most recent analyses, newest first.
func (s *InsightStore) ListAnalyses(ctx context.Context, userID string, limit int) ([]analytics.AnalysisRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, cycle_count, result, analyzed_at
		FROM insight_analyses WHERE user_id = ?
		ORDER BY analyzed_at DESC LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}
	defer rows.Close()

	var records []analytics.AnalysisRecord
	for rows.Next() {
		var rec analytics.AnalysisRecord
		var result string
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.CycleCount, &result, &rec.AnalyzedAt); err != nil {
			return nil, fmt.Errorf("scan analysis row: %w", err)
		}
		if err := json.Unmarshal([]byte(result), &rec.Result); err != nil {
			return nil, fmt.Errorf("decode analysis %s: %w", rec.ID, err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// DeleteOldAnalyses deletes analyses recorded before the given time.
// Returns the number of rows deleted.
func (s *InsightStore) DeleteOldAnalyses(ctx context.Context, before time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM insight_analyses WHERE analyzed_at < ?`,
		before.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("delete old analyses: %w", err)
	}
	return result.RowsAffected()
}
