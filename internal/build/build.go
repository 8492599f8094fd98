// Package build holds build-time information injected via ldflags.
package build

// Version information. Overridden at build time via:
//
//	go build -ldflags "-X go.trai.ch/shade/internal/build.Version=v1.2.3"
var (
	// Version is the semantic version of the binary.
	Version = "dev"
	// Commit is the git commit hash the binary was built from.
	Commit = "none"
	// Date is the build timestamp.
	Date = "unknown"
)
