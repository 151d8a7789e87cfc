// Package version holds build metadata, overridable with -ldflags -X.
package version

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/fatih/color"
)

var (
	// Version is the semantic version of the CLI.
	Version = "0.1.0-dev"

	GitCommit = ""
	// BuildDate is an optional build date in ISO-8601.
	BuildDate = ""
)

// Info is a snapshot of the build metadata.
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"gitCommit,omitempty"`
	BuildDate string `json:"buildDate,omitempty"`
	GoVersion string `json:"goVersion"`
}

func Get() Info {
	return Info{
		Version:   strings.TrimSpace(Version),
		GitCommit: strings.TrimSpace(GitCommit),
		BuildDate: strings.TrimSpace(BuildDate),
		GoVersion: runtime.Version(),
	}
}

// String renders "tracetree 1.2.3 (abc1234, 2024-01-15)" with the optional
// parts left out when unset.
func (i Info) String() string {
	return i.render(fmt.Sprint, fmt.Sprint)
}

// Colored is String with the version highlighted; it honours color.NoColor.
func (i Info) Colored() string {
	return i.render(color.New(color.FgGreen, color.Bold).Sprint, color.New(color.Faint).Sprint)
}

func (i Info) render(ver, meta func(...any) string) string {
	var extra []string
	if c := i.GitCommit; c != "" {
		extra = append(extra, c[:min(len(c), 7)])
	}
	if i.BuildDate != "" {
		extra = append(extra, i.BuildDate)
	}
	out := "tracetree " + ver(i.Version)
	if len(extra) > 0 {
		out += " " + meta("("+strings.Join(extra, ", ")+")")
	}
	return out
}
