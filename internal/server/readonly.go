package server

import (
	"net/http"
	"strings"
)

// ReadOnlyMiddleware rejects API requests that would change state, for
// instances that serve stored analyses without accepting new ones.
// Analysis endpoints are POST, so only safe methods pass.
func ReadOnlyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}
		if !strings.HasPrefix(r.URL.Path, "/api/") {
			next.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Allow", "GET, HEAD, OPTIONS")
		writeStatusProblem(w, ProblemTypeReadOnly, http.StatusMethodNotAllowed,
			"server is read-only: new analyses are not accepted", r.URL.Path)
	})
}
