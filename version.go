package multiprovider

import (
	"fmt"
	"runtime"
)

// Build metadata, overridable at link time:
//
//	go build -ldflags "-X github.com/lidofinance/web3-multi-provider.Version=1.2.0"
var (
	Version   = "1.0.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
	GoVersion = runtime.Version()
)

// GetVersion returns a single-line build description for startup logs.
func GetVersion() string {
	return fmt.Sprintf("web3-multi-provider %s (commit %s, built %s, %s)",
		Version, GitCommit, BuildDate, GoVersion)
}

// GetVersionInfo returns the build metadata as structured fields.
func GetVersionInfo() map[string]string {
	return map[string]string{
		"version":    Version,
		"commit":     GitCommit,
		"build_date": BuildDate,
		"go_version": GoVersion,
	}
}
