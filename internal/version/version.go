package version

// Build information set by ldflags
var (
	Version = "dev"     // Set by goreleaser: -X github.com/jwalker/kiwi/internal/version.Version={{.Version}}
	Commit  = "unknown" // Set by goreleaser: -X github.com/jwalker/kiwi/internal/version.Commit={{.Commit}}
	Date    = "unknown" // Set by goreleaser: -X github.com/jwalker/kiwi/internal/version.Date={{.Date}}
)
