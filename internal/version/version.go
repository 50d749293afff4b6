// Package version carries build metadata injected with -ldflags:
//
//	go build -ldflags "-X github.com/HerbHall/cycleinsight/internal/version.Version=v0.3.0
//	  -X github.com/HerbHall/cycleinsight/internal/version.Commit=$(git rev-parse --short HEAD)
//	  -X github.com/HerbHall/cycleinsight/internal/version.BuildDate=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
package version

import (
	"fmt"
	"runtime"
)

var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// Short returns the version string alone.
func Short() string {
	return Version
}

// Info returns a one-line description for the version subcommand.
func Info() string {
	return fmt.Sprintf("cycleinsight %s (commit %s, built %s, %s %s/%s)",
		Version, Commit, BuildDate, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// Map returns build metadata for the health endpoint.
func Map() map[string]string {
	return map[string]string{
		"version":    Version,
		"commit":     Commit,
		"build_date": BuildDate,
		"go_version": runtime.Version(),
	}
}
