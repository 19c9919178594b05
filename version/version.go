package version

import (
	"fmt"
	"runtime/debug"
	"strings"
	"time"
)

var (
	// Set at build time via -ldflags; VCS stamping from the Go
	// toolchain fills the gaps when they are left empty.
	Version   = "dev"
	Commit    = ""
	Branch    = ""
	BuildTime = ""
)

// Info is a resolved snapshot of the build metadata.
type Info struct {
	Version   string    `json:"version"`
	Commit    string    `json:"commit"`
	Branch    string    `json:"branch"`
	BuildDate time.Time `json:"build_date"`
	GoVersion string    `json:"go_version"`
	Release   bool      `json:"release"`
	Dirty     bool      `json:"dirty"`
}

// Get resolves the ldflags variables against the binary's embedded
// build info. ldflags values win; VCS stamps fill what they left empty.
func Get() Info {
	info := Info{
		Version: Version,
		Commit:  Commit,
		Branch:  Branch,
		Release: Version != "dev" && !strings.Contains(Version, "dirty"),
	}

	if BuildTime != "" {
		if t, err := time.Parse(time.RFC3339, BuildTime); err == nil {
			info.BuildDate = t
		}
	}

	if bi, ok := debug.ReadBuildInfo(); ok {
		info.GoVersion = bi.GoVersion
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				if info.Commit == "" {
					info.Commit = s.Value
					if len(info.Commit) > 7 {
						info.Commit = info.Commit[:7]
					}
				}
			case "vcs.modified":
				info.Dirty = s.Value == "true"
			case "vcs.time":
				if info.BuildDate.IsZero() {
					if t, err := time.Parse(time.RFC3339, s.Value); err == nil {
						info.BuildDate = t
					}
				}
			}
		}
	}

	return info
}

// Short returns "version-commit", with a -dirty suffix for modified
// trees. Used in log fields and health reports.
func Short() string {
	info := Get()
	switch {
	case info.Commit == "":
		return info.Version
	case info.Dirty:
		return fmt.Sprintf("%s-%s-dirty", info.Version, info.Commit)
	default:
		return fmt.Sprintf("%s-%s", info.Version, info.Commit)
	}
}

// Full returns the long form including branch and build date.
func Full() string {
	info := Get()
	parts := []string{info.Version}
	if info.Commit != "" {
		parts = append(parts, info.Commit)
	}
	if info.Branch != "" && info.Branch != "main" && info.Branch != "master" {
		parts = append(parts, info.Branch)
	}
	if info.Dirty {
		parts = append(parts, "dirty")
	}
	out := strings.Join(parts, "-")
	if !info.BuildDate.IsZero() {
		out += fmt.Sprintf(" (built %s)", info.BuildDate.UTC().Format(time.RFC3339))
	}
	return out
}
