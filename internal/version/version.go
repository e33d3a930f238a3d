package version

import (
	"runtime/debug"
	"strings"
)

// Set with -ldflags "-X github.com/sravani167/speech-service/internal/version.Version=1.2.0".
var (
	Version = ""
	Commit  = ""
	Date    = ""
)

// Resolve returns the release version injected at link time. Local builds
// fall back to the module version and VCS stamp recorded by the Go toolchain.
func Resolve() string {
	info, _ := debug.ReadBuildInfo()
	return resolveVersion(Version, Commit, info)
}

func resolveVersion(base, commit string, info *debug.BuildInfo) string {
	base = strings.TrimPrefix(strings.TrimSpace(base), "v")
	if base != "" && commit != "" {
		return base
	}

	if base == "" && info != nil {
		if mv := info.Main.Version; mv != "" && mv != "(devel)" {
			base = strings.TrimPrefix(mv, "v")
		}
	}
	if base == "" {
		base = "0.0.0-dev"
	}

	revision, dirty := vcsStamp(info)
	if commit != "" {
		revision = commit
	}
	if revision == "" {
		return base
	}
	if len(revision) > 7 {
		revision = revision[:7]
	}
	if dirty {
		revision += "-dirty"
	}
	return base + "+" + revision
}

func vcsStamp(info *debug.BuildInfo) (revision string, dirty bool) {
	if info == nil {
		return "", false
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	return revision, dirty
}
