// Package version exposes build metadata stamped in at link time:
//
//	go build -ldflags "-X github.com/minelotto/lotto-client/internal/version.Version=1.0.0 \
//	                   -X github.com/minelotto/lotto-client/internal/version.Commit=$(git rev-parse --short HEAD) \
//	                   -X github.com/minelotto/lotto-client/internal/version.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
//
// Unstamped binaries report "dev".
package version

var (
	// Version is the semantic version of this build.
	Version = "dev"

	// Commit is the short git commit hash.
	Commit = "unknown"

	// BuildTime is when the binary was built, UTC ISO 8601.
	BuildTime = "unknown"
)

// String renders the three fields as one human-readable line.
func String() string {
	return Version + " (" + Commit + ") built " + BuildTime
}
