// Package version provides build information for tasnes.
package version

import (
	"fmt"
	"io"
	"runtime"
	"runtime/debug"
	"time"
)

var (
	// These will be set at build time via -ldflags
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
	BuildUser = "unknown"
)

// BuildInfo contains detailed build information
type BuildInfo struct {
	Version    string `json:"version"`
	GitCommit  string `json:"git_commit"`
	BuildTime  string `json:"build_time"`
	BuildUser  string `json:"build_user"`
	GoVersion  string `json:"go_version"`
	Platform   string `json:"platform"`
	Arch       string `json:"arch"`
	CGOEnabled bool   `json:"cgo_enabled"`
	Modified   bool   `json:"modified"`
}

// GetBuildInfo returns detailed build information, filling unset fields
// from the VCS stamp when the binary has one.
func GetBuildInfo() BuildInfo {
	bi := BuildInfo{
		Version:   Version,
		GitCommit: GitCommit,
		BuildTime: BuildTime,
		BuildUser: BuildUser,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS,
		Arch:      runtime.GOARCH,
	}

	if info, ok := debug.ReadBuildInfo(); ok {
		bi.apply(info.Settings)
	}
	return bi
}

func (bi *BuildInfo) apply(settings []debug.BuildSetting) {
	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			if bi.GitCommit == "unknown" {
				bi.GitCommit = s.Value
			}
		case "vcs.time":
			if bi.BuildTime == "unknown" {
				bi.BuildTime = s.Value
			}
		case "vcs.modified":
			bi.Modified = s.Value == "true"
		case "CGO_ENABLED":
			bi.CGOEnabled = s.Value == "1"
		}
	}
}

// ShortCommit returns the first seven characters of the commit.
func (bi BuildInfo) ShortCommit() string {
	if len(bi.GitCommit) > 7 {
		return bi.GitCommit[:7]
	}
	return bi.GitCommit
}

// GetVersion returns a simple version string
func GetVersion() string {
	return GetBuildInfo().short()
}

func (bi BuildInfo) short() string {
	if bi.Version == "dev" && bi.GitCommit != "unknown" && len(bi.GitCommit) >= 7 {
		v := "dev-" + bi.ShortCommit()
		if bi.Modified {
			v += "-dirty"
		}
		return v
	}
	return bi.Version
}

// GetDetailedVersion returns a detailed version string
func GetDetailedVersion() string {
	return GetBuildInfo().String()
}

// String is the one-line form printed by -version.
func (bi BuildInfo) String() string {
	s := fmt.Sprintf("tasnes version %s", bi.Version)

	if bi.GitCommit != "unknown" {
		s += fmt.Sprintf(" (commit %s)", bi.ShortCommit())
	}

	if bi.BuildTime != "unknown" {
		if t, err := time.Parse(time.RFC3339, bi.BuildTime); err == nil {
			s += fmt.Sprintf(" built on %s", t.Format("2006-01-02 15:04:05"))
		} else {
			s += fmt.Sprintf(" built on %s", bi.BuildTime)
		}
	}

	s += fmt.Sprintf(" with %s for %s/%s", bi.GoVersion, bi.Platform, bi.Arch)

	if bi.BuildUser != "unknown" {
		s += fmt.Sprintf(" by %s", bi.BuildUser)
	}
	return s
}

// PrintBuildInfo writes formatted build information to w. core names the
// engine the binary was linked with.
func PrintBuildInfo(w io.Writer, core string) {
	bi := GetBuildInfo()

	fmt.Fprintf(w, "tasnes - NES TAS frontend\n")
	fmt.Fprintf(w, "Version:     %s\n", bi.short())
	fmt.Fprintf(w, "Git Commit:  %s\n", bi.GitCommit)
	fmt.Fprintf(w, "Build Time:  %s\n", bi.BuildTime)
	fmt.Fprintf(w, "Build User:  %s\n", bi.BuildUser)
	fmt.Fprintf(w, "Go Version:  %s\n", bi.GoVersion)
	fmt.Fprintf(w, "Platform:    %s/%s\n", bi.Platform, bi.Arch)
	fmt.Fprintf(w, "CGO Enabled: %t\n", bi.CGOEnabled)
	if core != "" {
		fmt.Fprintf(w, "Core:        %s\n", core)
	}
}
