package version

// Overridden at build time via -ldflags.
var (
	Version   = "development"
	GitCommit = "unknown"
	BuildTime = "unknown"
)
