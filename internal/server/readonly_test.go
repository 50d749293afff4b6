package server

import (
	"net/http"
	"testing"
)

func TestReadOnlyMiddleware(t *testing.T) {
	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/api/v1/insight/persistence/x", http.StatusOK},
		{http.MethodHead, "/api/v1/insight/analyses/x", http.StatusOK},
		{http.MethodOptions, "/api/v1/insight/analyze/x", http.StatusOK},
		{http.MethodPost, "/api/v1/insight/analyze/x", http.StatusMethodNotAllowed},
		{http.MethodPost, "/api/v1/insight/logs/x/analyze", http.StatusMethodNotAllowed},
		{http.MethodDelete, "/api/v1/insight/analyses/x", http.StatusMethodNotAllowed},
	}

	handler := ReadOnlyMiddleware(okHandler(http.StatusOK))
	for _, tc := range tests {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			w := serve(handler, tc.method, tc.path)
			if w.Code != tc.want {
				t.Fatalf("status = %d, want %d", w.Code, tc.want)
			}
			if tc.want == http.StatusMethodNotAllowed {
				if p := decode[Problem](t, w); p.Type != ProblemTypeReadOnly {
					t.Errorf("problem type = %q, want %q", p.Type, ProblemTypeReadOnly)
				}
				if got := w.Header().Get("Allow"); got != "GET, HEAD, OPTIONS" {
					t.Errorf("Allow = %q", got)
				}
			}
		})
	}
}

func TestReadOnly_WiredThroughOptions(t *testing.T) {
	srv := New("127.0.0.1:0", &mockPluginSource{}, testLogger(), nil, nil, Options{ReadOnly: true})
	if w := serve(srv.Handler(), http.MethodPost, "/api/v1/insight/analyze/x"); w.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want %d", w.Code, http.StatusMethodNotAllowed)
	}
	if w := serve(srv.Handler(), http.MethodGet, "/healthz"); w.Code != http.StatusOK {
		t.Errorf("healthz status = %d, want %d", w.Code, http.StatusOK)
	}
}
