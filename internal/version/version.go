// Package version provides build-time version information.
package version

// Set via -ldflags at build time, for example:
//
//	go build -ldflags "-X github.com/GoCodeAlone/foreman/internal/version.Version=v1.0.0"
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)
