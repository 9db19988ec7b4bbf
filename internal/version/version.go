// Package version holds the gateway build metadata, set at link time:
//
//	go build -ldflags "-X github.com/kailas-cloud/seekdb/internal/version.Version=v0.3.0"
package version

//nolint:revive // Set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "unknown"
)
