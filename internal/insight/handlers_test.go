package insight

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/HerbHall/cycleinsight/internal/auth"
	"github.com/HerbHall/cycleinsight/internal/insight/anomaly"
	"github.com/HerbHall/cycleinsight/internal/store"
	"github.com/HerbHall/cycleinsight/pkg/analytics"
	"github.com/HerbHall/cycleinsight/pkg/plugin"
)

func newTestModule(t *testing.T) *Module {
	t.Helper()
	db, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	m := New()
	err = m.Init(context.Background(), plugin.Dependencies{
		Logger: zap.NewNop(),
		Store:  db,
	})
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	m.analyzer = NewAnalyzer(m.cfg, m.analyzer.Tracker(),
		WithScorer(func() anomaly.Scorer { return &anomaly.Fixed{Value: 1} }))
	return m
}

// serve routes req through a mux built from m.Routes(), as the server mounts them.
func serve(m *Module, req *http.Request) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	for _, r := range m.Routes() {
		mux.HandleFunc(r.Method+" "+r.Path, r.Handler)
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func jsonBody(t *testing.T, v any) *bytes.Reader {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	return bytes.NewReader(data)
}

func decodeProblem(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	if ct := w.Header().Get("Content-Type"); ct != "application/problem+json" {
		t.Errorf("Content-Type = %q, want application/problem+json", ct)
	}
	var p map[string]any
	if err := json.NewDecoder(w.Body).Decode(&p); err != nil {
		t.Fatalf("decode problem: %v", err)
	}
	return p
}

func TestHandleAnalyze_OK(t *testing.T) {
	m := newTestModule(t)
	user := uuid.NewString()

	req := httptest.NewRequest(http.MethodPost, "/analyze/"+user, jsonBody(t, withLatest(30)))
	w := serve(m, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusOK, w.Body)
	}
	var got analytics.AnalysisResult
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Confidence != analytics.ConfidencePersonalized {
		t.Errorf("Confidence = %v, want personalized", got.Confidence)
	}
	if got.DeviationType != analytics.DeviationMild {
		t.Errorf("DeviationType = %v, want mild", got.DeviationType)
	}
	if got.CycleWindow != (analytics.PredictedWindow{Low: 25, High: 31}) {
		t.Errorf("CycleWindow = %+v, want {25 31}", got.CycleWindow)
	}
}

func TestHandleAnalyze_ColdStartBody(t *testing.T) {
	m := newTestModule(t)
	body := `{"cycle_lengths":[28,29],"period_durations":[5,5],"flow_logs":[["L","M"],["M"]]}`

	req := httptest.NewRequest(http.MethodPost, "/analyze/"+uuid.NewString(), strings.NewReader(body))
	w := serve(m, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusOK, w.Body)
	}
	want := `{"deviation_type":"none","confidence":"cold_start","cycle_window":{"low":28,"high":28},"heavy_flow_risk":"unknown"}`
	if got := strings.TrimSpace(w.Body.String()); got != want {
		t.Errorf("body = %s, want %s", got, want)
	}
}

func TestHandleAnalyze_BadRequests(t *testing.T) {
	tests := []struct {
		name   string
		userID string
		body   string
	}{
		{"not a uuid", "alice", `{"cycle_lengths":[28],"period_durations":[5],"flow_logs":[[]]}`},
		{"malformed json", uuid.NewString(), `{"cycle_lengths":`},
		{"unknown field", uuid.NewString(), `{"cycles":[28]}`},
		{"invalid flow label", uuid.NewString(), `{"cycle_lengths":[28],"period_durations":[5],"flow_logs":[["X"]]}`},
		{"misaligned", uuid.NewString(), `{"cycle_lengths":[28,29],"period_durations":[5],"flow_logs":[[],[]]}`},
		{"empty history", uuid.NewString(), `{"cycle_lengths":[],"period_durations":[],"flow_logs":[]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestModule(t)
			req := httptest.NewRequest(http.MethodPost, "/analyze/"+tt.userID, strings.NewReader(tt.body))
			w := serve(m, req)

			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusBadRequest, w.Body)
			}
			p := decodeProblem(t, w)
			if p["status"] != float64(http.StatusBadRequest) {
				t.Errorf("problem status = %v, want 400", p["status"])
			}
			if p["detail"] == "" {
				t.Error("problem detail is empty")
			}
		})
	}
}

func TestHandleAnalyze_Forbidden(t *testing.T) {
	m := newTestModule(t)
	claims := &auth.Claims{}
	claims.Subject = uuid.NewString()

	req := httptest.NewRequest(http.MethodPost, "/analyze/"+uuid.NewString(), jsonBody(t, withLatest(28)))
	req = req.WithContext(auth.ContextWithUser(req.Context(), claims))
	w := serve(m, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusForbidden)
	}
	decodeProblem(t, w)
}

func TestHandleAnalyze_OwnUserAllowed(t *testing.T) {
	m := newTestModule(t)
	user := uuid.NewString()
	claims := &auth.Claims{}
	claims.Subject = user

	req := httptest.NewRequest(http.MethodPost, "/analyze/"+user, jsonBody(t, withLatest(28)))
	req = req.WithContext(auth.ContextWithUser(req.Context(), claims))
	w := serve(m, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusOK, w.Body)
	}
}

func TestHandleAnalyzeLogs(t *testing.T) {
	m := newTestModule(t)

	var entries []DailyLogEntry
	for _, start := range []string{"2024-01-01", "2024-01-29", "2024-02-27"} {
		d, _ := time.Parse(time.DateOnly, start)
		for i, flow := range []string{"M", "M", "L", "L"} {
			entries = append(entries, DailyLogEntry{
				Date:         d.AddDate(0, 0, i).Format(time.DateOnly),
				PeriodActive: true,
				Flow:         flow,
			})
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/logs/"+uuid.NewString()+"/analyze",
		jsonBody(t, DailyLogRequest{Entries: entries}))
	w := serve(m, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusOK, w.Body)
	}
	var got analytics.AnalysisResult
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	// Cycles [28 29 4]: three cycles is the developing tier.
	if got.Confidence != analytics.ConfidenceDeveloping {
		t.Errorf("Confidence = %v, want developing", got.Confidence)
	}
	if got.HeavyFlowRisk != analytics.HeavyFlowLow {
		t.Errorf("HeavyFlowRisk = %v, want low", got.HeavyFlowRisk)
	}
}

func TestHandleAnalyzeLogs_BadRequests(t *testing.T) {
	tests := []struct {
		name    string
		entries []DailyLogEntry
	}{
		{"bad date", []DailyLogEntry{{Date: "03/01/2024", PeriodActive: true}}},
		{"duplicate date", []DailyLogEntry{{Date: "2024-03-01", PeriodActive: true}, {Date: "2024-03-01"}}},
		{"no period days", []DailyLogEntry{{Date: "2024-03-01"}, {Date: "2024-03-02"}}},
		{"bad flow", []DailyLogEntry{{Date: "2024-03-01", PeriodActive: true, Flow: "Q"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestModule(t)
			req := httptest.NewRequest(http.MethodPost, "/logs/"+uuid.NewString()+"/analyze",
				jsonBody(t, DailyLogRequest{Entries: tt.entries}))
			w := serve(m, req)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusBadRequest, w.Body)
			}
			decodeProblem(t, w)
		})
	}
}

func TestHandlePersistence(t *testing.T) {
	m := newTestModule(t)
	user := uuid.NewString()

	w := serve(m, httptest.NewRequest(http.MethodGet, "/persistence/"+user, http.NoBody))
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown user status = %d, want %d", w.Code, http.StatusNotFound)
	}

	for range 2 {
		req := httptest.NewRequest(http.MethodPost, "/analyze/"+user, jsonBody(t, withLatest(32)))
		if w := serve(m, req); w.Code != http.StatusOK {
			t.Fatalf("analyze status = %d: %s", w.Code, w.Body)
		}
	}

	w = serve(m, httptest.NewRequest(http.MethodGet, "/persistence/"+user, http.NoBody))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var st analytics.PersistenceState
	if err := json.NewDecoder(w.Body).Decode(&st); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if st.ConsecutiveCount != 2 {
		t.Errorf("ConsecutiveCount = %d, want 2", st.ConsecutiveCount)
	}
	if st.LastSignal != analytics.DeviationModerate {
		t.Errorf("LastSignal = %v, want moderate", st.LastSignal)
	}
}

func TestHandleListAnalyses(t *testing.T) {
	m := newTestModule(t)
	user := uuid.NewString()

	w := serve(m, httptest.NewRequest(http.MethodGet, "/analyses/"+user, http.NoBody))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if got := strings.TrimSpace(w.Body.String()); got != "[]" {
		t.Errorf("empty body = %s, want []", got)
	}

	for _, latest := range []int{28, 30, 32} {
		req := httptest.NewRequest(http.MethodPost, "/analyze/"+user, jsonBody(t, withLatest(latest)))
		if w := serve(m, req); w.Code != http.StatusOK {
			t.Fatalf("analyze status = %d: %s", w.Code, w.Body)
		}
	}

	w = serve(m, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/analyses/%s?limit=2", user), http.NoBody))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var records []analytics.AnalysisRecord
	if err := json.NewDecoder(w.Body).Decode(&records); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
	for _, r := range records {
		if r.UserID != user {
			t.Errorf("record UserID = %q, want %q", r.UserID, user)
		}
		if r.CycleCount != 7 {
			t.Errorf("record CycleCount = %d, want 7", r.CycleCount)
		}
	}
}

func TestHandleListAnalyses_NoDatabase(t *testing.T) {
	m := New()
	if err := m.Init(context.Background(), plugin.Dependencies{Logger: zap.NewNop()}); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	w := serve(m, httptest.NewRequest(http.MethodGet, "/analyses/"+uuid.NewString(), http.NoBody))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
}

func TestParseLimit(t *testing.T) {
	tests := []struct {
		query string
		want  int
	}{
		{"", 50},
		{"?limit=10", 10},
		{"?limit=0", 50},
		{"?limit=-3", 50},
		{"?limit=5000", 50},
		{"?limit=abc", 50},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/analyses/x"+tt.query, http.NoBody)
		if got := parseLimit(req, 50); got != tt.want {
			t.Errorf("parseLimit(%q) = %d, want %d", tt.query, got, tt.want)
		}
	}
}
