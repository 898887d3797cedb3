// Package version holds build metadata injected with ldflags:
//
//	go build -ldflags "-X github.com/rickgao/market-pulse/internal/version.Version=0.3.0 \
//	                   -X github.com/rickgao/market-pulse/internal/version.Commit=$(git rev-parse --short HEAD)" ./cmd/ingester
package version

var (
	// Version is the release tag, "dev" for local builds.
	Version = "dev"

	// Commit is the short git hash.
	Commit = "unknown"

	// BuildTime is the UTC build timestamp.
	BuildTime = "unknown"
)

// String returns a one-line description suitable for --version output.
func String() string {
	s := "market-pulse " + Version
	if Commit != "unknown" {
		s += " (" + Commit + ")"
	}
	if BuildTime != "unknown" {
		s += " built " + BuildTime
	}
	return s
}
