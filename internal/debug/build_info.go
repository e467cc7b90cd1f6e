package debug

import (
	"runtime/debug"
	"strings"
)

// BuildInfo describes the running binary: main module version, Go version and
// the VCS revision it was built from.
func BuildInfo() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}
	parts := []string{info.Main.Path + "@" + info.Main.Version, info.GoVersion}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision", "vcs.time", "vcs.modified":
			parts = append(parts, strings.TrimPrefix(s.Key, "vcs.")+"="+s.Value)
		}
	}
	return strings.Join(parts, " ")
}
