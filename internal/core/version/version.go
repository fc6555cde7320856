// Package version exposes build metadata stamped in with -ldflags
package version

// BuildInfo holds version information about a build
type BuildInfo struct {
	Service string `json:"service"`
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

// Info returns the build information for the named binary
//
//	go build -ldflags "-X helioserve/internal/core/version.version=v0.3.0 -X helioserve/internal/core/version.commit=abcd"
func Info(service string) BuildInfo {
	if service == "" {
		service = "helioserve"
	}
	return BuildInfo{
		Service: service,
		Version: version,
		Commit:  commit,
		Date:    date,
	}
}

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)
