package insight

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/HerbHall/cycleinsight/internal/auth"
	"github.com/HerbHall/cycleinsight/internal/insight/history"
	"github.com/HerbHall/cycleinsight/pkg/analytics"
	"github.com/HerbHall/cycleinsight/pkg/plugin"
)

// maxBodyBytes bounds analysis request bodies.
const maxBodyBytes = 1 << 20

// Routes implements plugin.HTTPProvider.
func (m *Module) Routes() []plugin.Route {
	return []plugin.Route{
		{Method: "POST", Path: "/analyze/{user_id}", Handler: m.handleAnalyze},
		{Method: "POST", Path: "/logs/{user_id}/analyze", Handler: m.handleAnalyzeLogs},
		{Method: "GET", Path: "/persistence/{user_id}", Handler: m.handlePersistence},
		{Method: "GET", Path: "/analyses/{user_id}", Handler: m.handleListAnalyses},
	}
}

// DailyLogRequest is the body of POST /logs/{user_id}/analyze.
type DailyLogRequest struct {
	Entries []DailyLogEntry `json:"entries"`
}

// DailyLogEntry is one logged day. Date is formatted YYYY-MM-DD.
type DailyLogEntry struct {
	Date         string `json:"log_date" example:"2024-03-01"`
	PeriodActive bool   `json:"is_period_active" example:"true"`
	Flow         string `json:"flow_encoded,omitempty" example:"M"`
}

// History parses the entries and derives the cycle history they describe.
func (r DailyLogRequest) History() (analytics.CycleHistory, error) {
	entries := make([]analytics.DailyEntry, 0, len(r.Entries))
	for i, e := range r.Entries {
		d, err := time.Parse(time.DateOnly, e.Date)
		if err != nil {
			return analytics.CycleHistory{}, analytics.Validation(fmt.Sprintf("entries[%d].log_date", i),
				fmt.Sprintf("%q is not YYYY-MM-DD", e.Date), err)
		}
		entries = append(entries, analytics.DailyEntry{Date: d, PeriodActive: e.PeriodActive, Flow: e.Flow})
	}
	return history.Derive(entries)
}

// handleAnalyze analyzes a pre-aggregated cycle history.
//
//	@Summary		Analyze cycle history
//	@Description	Classifies the latest cycle, updates persistence state and predicts the next cycle window.
//	@Tags			insight
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			user_id path string true "User ID (UUID)"
//	@Param			request body analytics.CycleHistory true "Cycle history, oldest first"
//	@Success		200 {object} analytics.AnalysisResult
//	@Failure		400 {object} map[string]any
//	@Failure		403 {object} map[string]any
//	@Failure		500 {object} map[string]any
//	@Router			/insight/analyze/{user_id} [post]
func (m *Module) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	userID, ok := m.userParam(w, r)
	if !ok {
		return
	}
	var h analytics.CycleHistory
	if err := decodeBody(w, r, &h); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	m.analyzeAndRespond(w, r, userID, h)
}

// handleAnalyzeLogs derives a cycle history from raw daily logs and analyzes it.
//
//	@Summary		Analyze daily logs
//	@Description	Groups daily period logs into cycles, then runs the same analysis as /analyze.
//	@Tags			insight
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			user_id path string true "User ID (UUID)"
//	@Param			request body DailyLogRequest true "Daily log entries"
//	@Success		200 {object} analytics.AnalysisResult
//	@Failure		400 {object} map[string]any
//	@Failure		403 {object} map[string]any
//	@Failure		500 {object} map[string]any
//	@Router			/insight/logs/{user_id}/analyze [post]
func (m *Module) handleAnalyzeLogs(w http.ResponseWriter, r *http.Request) {
	userID, ok := m.userParam(w, r)
	if !ok {
		return
	}
	var req DailyLogRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h, err := req.History()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	m.analyzeAndRespond(w, r, userID, h)
}

// handlePersistence returns a user's persistence tracker state.
//
//	@Summary		Persistence state
//	@Description	Returns how many consecutive analyses produced a deviation candidate for the user.
//	@Tags			insight
//	@Produce		json
//	@Security		BearerAuth
//	@Param			user_id path string true "User ID (UUID)"
//	@Success		200 {object} analytics.PersistenceState
//	@Failure		403 {object} map[string]any
//	@Failure		404 {object} map[string]any
//	@Failure		500 {object} map[string]any
//	@Router			/insight/persistence/{user_id} [get]
func (m *Module) handlePersistence(w http.ResponseWriter, r *http.Request) {
	userID, ok := m.userParam(w, r)
	if !ok {
		return
	}
	st, err := m.analyzer.Tracker().State(r.Context(), userID)
	if err != nil {
		m.logger.Error("failed to read persistence state", zap.String("user_id", userID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to read persistence state")
		return
	}
	if st == nil {
		writeError(w, http.StatusNotFound, "no analyses recorded for user")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// handleListAnalyses returns a user's recent analyses.
//
//	@Summary		List analyses
//	@Description	Returns a user's recorded analyses, newest first. Requires the SQLite audit log.
//	@Tags			insight
//	@Produce		json
//	@Security		BearerAuth
//	@Param			user_id path string true "User ID (UUID)"
//	@Param			limit query int false "Maximum results" default(50)
//	@Success		200 {array} analytics.AnalysisRecord
//	@Failure		403 {object} map[string]any
//	@Failure		500 {object} map[string]any
//	@Failure		503 {object} map[string]any
//	@Router			/insight/analyses/{user_id} [get]
func (m *Module) handleListAnalyses(w http.ResponseWriter, r *http.Request) {
	userID, ok := m.userParam(w, r)
	if !ok {
		return
	}
	if m.store == nil {
		writeError(w, http.StatusServiceUnavailable, "analysis log requires a database")
		return
	}
	records, err := m.store.ListAnalyses(r.Context(), userID, parseLimit(r, 50))
	if err != nil {
		m.logger.Error("failed to list analyses", zap.String("user_id", userID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list analyses")
		return
	}
	if records == nil {
		records = []analytics.AnalysisRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (m *Module) analyzeAndRespond(w http.ResponseWriter, r *http.Request, userID string, h analytics.CycleHistory) {
	res, err := m.Analyze(r.Context(), userID, h)
	switch {
	case errors.Is(err, analytics.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		m.logger.Error("analysis failed", zap.String("user_id", userID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "analysis failed")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// userParam extracts and checks the {user_id} path value. On failure it has
// already written the response.
func (m *Module) userParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := r.PathValue("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return "", false
	}
	if err := uuid.Validate(userID); err != nil {
		writeError(w, http.StatusBadRequest, "user_id must be a UUID")
		return "", false
	}
	if !auth.Permits(r.Context(), userID) {
		writeError(w, http.StatusForbidden, "token does not grant access to this user")
		return "", false
	}
	return userID, true
}

// -- helpers --

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"type":   "https://cycleinsight.dev/problems/" + strconv.Itoa(status),
		"title":  http.StatusText(status),
		"status": status,
		"detail": detail,
	})
}

func parseLimit(r *http.Request, defaultLimit int) int {
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 && n <= 1000 {
			return n
		}
	}
	return defaultLimit
}
