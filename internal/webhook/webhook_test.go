package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/HerbHall/cycleinsight/internal/config"
	"github.com/HerbHall/cycleinsight/internal/event"
	"github.com/HerbHall/cycleinsight/internal/insight"
	"github.com/HerbHall/cycleinsight/pkg/analytics"
	"github.com/HerbHall/cycleinsight/pkg/plugin"
	"github.com/HerbHall/cycleinsight/pkg/plugin/plugintest"
)

func TestContract(t *testing.T) {
	plugintest.TestPluginContract(t, func() plugin.Plugin { return New() })
}

// receiver records posted payloads and their signature headers.
type receiver struct {
	mu         sync.Mutex
	payloads   []Payload
	signatures []string
	bodies     [][]byte
	status     int
}

func (rc *receiver) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	var p Payload
	if err := json.Unmarshal(body, &p); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	rc.mu.Lock()
	rc.payloads = append(rc.payloads, p)
	rc.signatures = append(rc.signatures, r.Header.Get(SignatureHeader))
	rc.bodies = append(rc.bodies, body)
	status := rc.status
	rc.mu.Unlock()
	if status == 0 {
		status = http.StatusNoContent
	}
	w.WriteHeader(status)
}

func (rc *receiver) count() int {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return len(rc.payloads)
}

func newModule(t *testing.T, settings map[string]any, bus plugin.EventBus) *Module {
	t.Helper()
	v := viper.New()
	for k, val := range settings {
		v.Set(k, val)
	}
	m := New()
	if err := m.Init(context.Background(), plugin.Dependencies{Logger: zap.NewNop(), Config: config.New(v), Bus: bus}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return m
}

func persistentEvent() plugin.Event {
	return plugin.Event{
		Topic:     insight.TopicDeviationPersistent,
		Source:    "insight",
		Timestamp: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Payload: &analytics.PersistentDeviationEvent{
			UserID:    "5b0e7a32-8c1f-4a63-9e1d-0c6a2f9b7d44",
			Candidate: analytics.DeviationSevere,
			Deviation: analytics.DeviationSevere,
			Count:     2,
		},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"disabled ignores url", Config{URL: "not a url"}, false},
		{"enabled https", Config{Enabled: true, URL: "https://hooks.example.com/x", Timeout: time.Second, Topics: []string{insight.TopicDeviationPersistent}}, false},
		{"relative url", Config{Enabled: true, URL: "/hook", Timeout: time.Second}, true},
		{"ftp url", Config{Enabled: true, URL: "ftp://example.com", Timeout: time.Second}, true},
		{"zero timeout", Config{Enabled: true, URL: "http://example.com"}, true},
		{"unknown topic", Config{Enabled: true, URL: "http://example.com", Timeout: time.Second, Topics: []string{"insight.baseline.updated"}}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.cfg.Validate(); (err != nil) != tc.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestHandleEvent_DeliversSigned(t *testing.T) {
	rc := &receiver{}
	srv := httptest.NewServer(rc)
	defer srv.Close()

	m := newModule(t, map[string]any{"enabled": true, "url": srv.URL, "secret": "s3cret"}, nil)
	m.handleEvent(context.Background(), persistentEvent())

	if rc.count() != 1 {
		t.Fatalf("received %d webhooks, want 1", rc.count())
	}
	p := rc.payloads[0]
	if p.Event != insight.TopicDeviationPersistent || p.Source != "insight" || p.Timestamp != "2025-01-01T00:00:00Z" {
		t.Errorf("payload = %+v", p)
	}
	if want := Sign([]byte("s3cret"), rc.bodies[0]); rc.signatures[0] != want {
		t.Errorf("signature = %q, want %q", rc.signatures[0], want)
	}
	if st := m.Health(context.Background()); st.Status != "healthy" || st.Details["delivered"] != "1" {
		t.Errorf("Health() = %+v", st)
	}
}

func TestHandleEvent_Filters(t *testing.T) {
	rc := &receiver{}
	srv := httptest.NewServer(rc)
	defer srv.Close()

	disabled := newModule(t, map[string]any{"url": srv.URL}, nil)
	disabled.handleEvent(context.Background(), persistentEvent())

	enabled := newModule(t, map[string]any{"enabled": true, "url": srv.URL}, nil)
	enabled.handleEvent(context.Background(), plugin.Event{Topic: insight.TopicAnalysisCompleted, Timestamp: time.Now()})

	if rc.count() != 0 {
		t.Errorf("received %d webhooks, want 0", rc.count())
	}
	if rc.signatures != nil {
		t.Errorf("unexpected signatures %v", rc.signatures)
	}
}

func TestHandleEvent_FailureDegradesHealth(t *testing.T) {
	rc := &receiver{status: http.StatusInternalServerError}
	srv := httptest.NewServer(rc)
	defer srv.Close()

	m := newModule(t, map[string]any{"enabled": true, "url": srv.URL}, nil)
	m.handleEvent(context.Background(), persistentEvent())

	st := m.Health(context.Background())
	if st.Status != "degraded" || st.Details["failed"] != "1" {
		t.Fatalf("Health() = %+v, want degraded with one failure", st)
	}

	rc.mu.Lock()
	rc.status = http.StatusOK
	rc.mu.Unlock()
	m.handleEvent(context.Background(), persistentEvent())
	if st := m.Health(context.Background()); st.Status != "healthy" {
		t.Errorf("Health() after success = %+v", st)
	}
}

func TestHandleEvent_UnreachableKeepsPathOutOfError(t *testing.T) {
	m := newModule(t, map[string]any{
		"enabled": true,
		"url":     "http://127.0.0.1:1/hook?token=abc",
		"timeout": "200ms",
	}, nil)
	m.handleEvent(context.Background(), persistentEvent())

	st := m.Health(context.Background())
	if st.Status != "degraded" {
		t.Fatalf("Health() = %+v, want degraded", st)
	}
	for _, s := range []string{"token=abc", "/hook"} {
		if strings.Contains(st.Message, s) {
			t.Errorf("health message %q leaks %q", st.Message, s)
		}
	}
}

func TestStart_SubscribesToBus(t *testing.T) {
	rc := &receiver{}
	srv := httptest.NewServer(rc)
	defer srv.Close()

	bus := event.NewBus(zap.NewNop())
	m := newModule(t, map[string]any{"enabled": true, "url": srv.URL}, bus)
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := bus.Publish(context.Background(), persistentEvent()); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if rc.count() != 1 {
		t.Fatalf("received %d webhooks after publish, want 1", rc.count())
	}

	if err := m.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	_ = bus.Publish(context.Background(), persistentEvent())
	if rc.count() != 1 {
		t.Errorf("received %d webhooks after Stop, want 1", rc.count())
	}
}

func TestSign(t *testing.T) {
	// HMAC-SHA256("key", "The quick brown fox jumps over the lazy dog")
	got := Sign([]byte("key"), []byte("The quick brown fox jumps over the lazy dog"))
	want := "sha256=f7bc83f430538424b13298e6aa6fb143ef4d59a14946175997479dbc2d1a3cd8"
	if got != want {
		t.Errorf("Sign() = %q, want %q", got, want)
	}
}
