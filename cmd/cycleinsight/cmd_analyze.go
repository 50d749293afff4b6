package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/viper"

	"github.com/HerbHall/cycleinsight/internal/config"
	"github.com/HerbHall/cycleinsight/internal/insight"
	"github.com/HerbHall/cycleinsight/internal/server"
	"github.com/HerbHall/cycleinsight/pkg/analytics"
	"github.com/HerbHall/cycleinsight/pkg/plugin"
)

// runAnalyze runs one analysis outside the server. Persistence state lives in
// memory, so a single run never confirms a deviation unless the threshold is 1.
func runAnalyze(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to configuration file")
	file := fs.String("file", "-", "input JSON file, - for stdin")
	logs := fs.Bool("logs", false, "input is {\"entries\": [...]} daily logs instead of a cycle history")
	userID := fs.String("user", "", "user ID (UUID); a random one when empty")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	v, err := server.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "failed to load configuration: %v\n", err)
		return 1
	}

	h, err := readHistory(*file, *logs, stdin)
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 1
	}
	if *userID == "" {
		*userID = uuid.NewString()
	} else if _, err := uuid.Parse(*userID); err != nil {
		fmt.Fprintf(stderr, "invalid -user %q: must be a UUID\n", *userID)
		return 2
	}

	res, err := analyzeOnce(context.Background(), v, *userID, h)
	if err != nil {
		fmt.Fprintf(stderr, "analysis failed: %v\n", err)
		return 1
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		fmt.Fprintf(stderr, "writing result: %v\n", err)
		return 1
	}
	return 0
}

func readHistory(path string, logs bool, stdin io.Reader) (analytics.CycleHistory, error) {
	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return analytics.CycleHistory{}, fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		r = f
	}

	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if logs {
		var req insight.DailyLogRequest
		if err := dec.Decode(&req); err != nil {
			return analytics.CycleHistory{}, fmt.Errorf("decode daily logs: %w", err)
		}
		return req.History()
	}
	var h analytics.CycleHistory
	if err := dec.Decode(&h); err != nil {
		return analytics.CycleHistory{}, fmt.Errorf("decode cycle history: %w", err)
	}
	return h, nil
}

// analyzeOnce builds a throwaway insight module from the plugins.insight
// settings with an in-memory state backend.
func analyzeOnce(ctx context.Context, v *viper.Viper, userID string, h analytics.CycleHistory) (*analytics.AnalysisResult, error) {
	v.Set("plugins.insight.state_backend", insight.BackendMemory)

	logger, err := config.NewLogger(v)
	if err != nil {
		return nil, err
	}
	defer func() { _ = logger.Sync() }()

	mod := insight.New()
	if err := mod.Init(ctx, plugin.Dependencies{
		Config: config.New(v).Sub("plugins.insight"),
		Logger: logger.Named("insight"),
	}); err != nil {
		return nil, err
	}
	return mod.Analyze(ctx, userID, h)
}
