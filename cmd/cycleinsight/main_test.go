package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HerbHall/cycleinsight/internal/auth"
	"github.com/HerbHall/cycleinsight/internal/insight"
	"github.com/HerbHall/cycleinsight/internal/store"
	"github.com/HerbHall/cycleinsight/internal/testutil"
	"github.com/HerbHall/cycleinsight/pkg/analytics"
)

// isolate runs the test from an empty directory so no stray config file is
// picked up, and keeps logs quiet.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("CI_LOGGING_LEVEL", "error")
	return dir
}

func TestRunAnalyze_Stdin(t *testing.T) {
	isolate(t)
	var stdout, stderr bytes.Buffer
	in := strings.NewReader(`{"cycle_lengths":[28,29],"period_durations":[5,5],"flow_logs":[["M","L"],["H","H","M"]]}`)

	code := runAnalyze(nil, in, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	var res analytics.AnalysisResult
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &res))
	assert.Equal(t, analytics.ConfidenceColdStart, res.Confidence)
	assert.Equal(t, analytics.DeviationNone, res.DeviationType)
	assert.Nil(t, res.Persistent)
}

func TestRunAnalyze_LogsFile(t *testing.T) {
	dir := isolate(t)

	h := testutil.NewHistory(3, testutil.WithLatest(10))
	var req insight.DailyLogRequest
	for _, e := range testutil.DailyLogs(h, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		req.Entries = append(req.Entries, insight.DailyLogEntry{
			Date:         e.Date.Format(time.DateOnly),
			PeriodActive: e.PeriodActive,
			Flow:         e.Flow,
		})
	}
	data, err := json.Marshal(req)
	require.NoError(t, err)
	path := filepath.Join(dir, "logs.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	var stdout, stderr bytes.Buffer
	code := runAnalyze([]string{"-logs", "-file", path, "-user", uuid.NewString()}, nil, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	var res analytics.AnalysisResult
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &res))
	assert.Equal(t, analytics.ConfidenceDeveloping, res.Confidence)
}

func TestRunAnalyze_Errors(t *testing.T) {
	isolate(t)
	tests := []struct {
		name  string
		args  []string
		input string
		want  int
	}{
		{"bad flag", []string{"-nope"}, "", 2},
		{"bad user", []string{"-user", "alice"}, `{"cycle_lengths":[28],"period_durations":[5],"flow_logs":[["M"]]}`, 2},
		{"missing file", []string{"-file", "does-not-exist.json"}, "", 1},
		{"not json", nil, "cycle_lengths=28", 1},
		{"unknown field", nil, `{"cycle_lengths":[28],"period_durations":[5],"flow_logs":[["M"]],"x":1}`, 1},
		{"invalid history", nil, `{"cycle_lengths":[28,29],"period_durations":[5],"flow_logs":[["M"],["M"]]}`, 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			code := runAnalyze(tc.args, strings.NewReader(tc.input), &stdout, &stderr)
			assert.Equal(t, tc.want, code)
			assert.Empty(t, stdout.String())
			assert.NotEmpty(t, stderr.String())
		})
	}
}

func TestRunToken(t *testing.T) {
	isolate(t)
	user := uuid.NewString()

	var stdout, stderr bytes.Buffer
	assert.Equal(t, 1, runToken([]string{"-user", user}, &stdout, &stderr), "no secret configured")
	assert.Contains(t, stderr.String(), "auth.jwt_secret")

	assert.Equal(t, 2, runToken([]string{"-user", "bob"}, &stdout, &stderr))

	secret := "cli-test-secret-at-least-32-bytes"
	t.Setenv("CI_AUTH_JWT_SECRET", secret)
	stdout.Reset()
	require.Equal(t, 0, runToken([]string{"-user", user, "-ttl", "1h"}, &stdout, &stderr), stderr.String())

	claims, err := auth.NewTokenService([]byte(secret), time.Hour).ValidateAccessToken(strings.TrimSpace(stdout.String()))
	require.NoError(t, err)
	assert.Equal(t, user, claims.Subject)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, time.Minute)
}

func TestRunBackupRestore(t *testing.T) {
	dir := isolate(t)

	dbPath := filepath.Join(dir, "data", "cycleinsight.db")
	require.NoError(t, os.MkdirAll(filepath.Dir(dbPath), 0o750))
	db, err := store.New(dbPath)
	require.NoError(t, err)
	_, err = db.DB().Exec("CREATE TABLE marker (v TEXT); INSERT INTO marker VALUES ('kept')")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	cfg := filepath.Join(dir, "cycleinsight.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("database:\n  path: "+dbPath+"\n"), 0o600))
	archive := filepath.Join(dir, "out", "backup.tar.gz")

	var stdout, stderr bytes.Buffer
	require.Equal(t, 0, runBackup([]string{"-config", cfg, "-output", archive}, &stdout, &stderr), stderr.String())
	assert.Contains(t, stdout.String(), "config included: true")

	assert.Equal(t, 2, runRestore(nil, &stdout, &stderr), "archive argument required")

	target := filepath.Join(dir, "restored")
	require.Equal(t, 0, runRestore([]string{"-target", target, archive}, &stdout, &stderr), stderr.String())
	assert.Equal(t, 1, runRestore([]string{"-target", target, archive}, &stdout, &stderr), "refuses to overwrite")
	require.Equal(t, 0, runRestore([]string{"-target", target, "-force", archive}, &stdout, &stderr), stderr.String())

	restored, err := store.New(filepath.Join(target, "cycleinsight.db"))
	require.NoError(t, err)
	defer restored.Close()
	var v string
	require.NoError(t, restored.DB().QueryRow("SELECT v FROM marker").Scan(&v))
	assert.Equal(t, "kept", v)
}
