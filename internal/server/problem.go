package server

import (
	"encoding/json"
	"net/http"
)

// Problem types for RFC 7807 responses produced by the server itself.
// Module handlers publish their own types under the same base URL.
const (
	ProblemTypeNotFound    = "https://cycleinsight.dev/problems/not-found"
	ProblemTypeInternal    = "https://cycleinsight.dev/problems/internal-error"
	ProblemTypeRateLimited = "https://cycleinsight.dev/problems/rate-limited"
	ProblemTypeReadOnly    = "https://cycleinsight.dev/problems/read-only"
)

// Problem is an RFC 7807 Problem Details body.
type Problem struct {
	Type     string `json:"type" example:"https://cycleinsight.dev/problems/not-found"`
	Title    string `json:"title" example:"Not Found"`
	Status   int    `json:"status" example:"404"`
	Detail   string `json:"detail,omitempty" example:"no module named \"forecast\""`
	Instance string `json:"instance,omitempty" example:"/api/v1/plugins/forecast/health"`
}

// WriteProblem writes p as application/problem+json.
func WriteProblem(w http.ResponseWriter, p Problem) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

func writeStatusProblem(w http.ResponseWriter, typ string, status int, detail, instance string) {
	WriteProblem(w, Problem{
		Type:     typ,
		Title:    http.StatusText(status),
		Status:   status,
		Detail:   detail,
		Instance: instance,
	})
}

// NotFound writes a 404 problem.
func NotFound(w http.ResponseWriter, detail, instance string) {
	writeStatusProblem(w, ProblemTypeNotFound, http.StatusNotFound, detail, instance)
}

// InternalError writes a 500 problem.
func InternalError(w http.ResponseWriter, detail, instance string) {
	writeStatusProblem(w, ProblemTypeInternal, http.StatusInternalServerError, detail, instance)
}

// RateLimited writes a 429 problem.
func RateLimited(w http.ResponseWriter, detail, instance string) {
	writeStatusProblem(w, ProblemTypeRateLimited, http.StatusTooManyRequests, detail, instance)
}
