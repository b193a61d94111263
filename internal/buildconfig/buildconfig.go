// Package buildconfig carries build metadata stamped at link time:
//
//	go build -ldflags "\
//	  -X github.com/credenceproj/credence/internal/buildconfig.version=v0.1.0 \
//	  -X github.com/credenceproj/credence/internal/buildconfig.commit=$(git rev-parse --short HEAD)"
package buildconfig

var (
	version = "dev"
	commit  = "unknown"
)

// Version returns the stamped release version, "dev" for unstamped builds.
func Version() string {
	return version
}

// Commit returns the stamped git revision.
func Commit() string {
	return commit
}
