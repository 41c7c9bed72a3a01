// ABOUTME: agent version: prints the release stamp plus Go toolchain and platform
// ABOUTME: Falls back to module build info for go install builds; honors --format json
package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// BuildInfo identifies the running agent binary
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// release stamp injected by goreleaser through main
var release = BuildInfo{Version: "dev", Commit: "none", Date: "unknown"}

// SetVersion records the release stamp from main's ldflags
func SetVersion(version, commit, date string) {
	release.Version = version
	release.Commit = commit
	release.Date = date
}

// currentBuild fills gaps in the release stamp from the embedded module info
func currentBuild() BuildInfo {
	info := release
	info.GoVersion = runtime.Version()
	info.Platform = runtime.GOOS + "/" + runtime.GOARCH

	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	if info.Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		info.Version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		switch {
		case s.Key == "vcs.revision" && info.Commit == "none":
			info.Commit = s.Value
		case s.Key == "vcs.time" && info.Date == "unknown":
			info.Date = s.Value
		}
	}
	return info
}

func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Print the agent release, commit and build date with the Go toolchain it was built by.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return printVersion(cmd.OutOrStdout(), currentBuild(), outputFormat == "json")
		},
	}
}

func printVersion(out io.Writer, info BuildInfo, asJSON bool) error {
	if asJSON {
		data, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		fmt.Fprintf(out, "%s\n", data)
		return nil
	}
	fmt.Fprintf(out, "agent %s (%s)\n", info.Version, info.Platform)
	fmt.Fprintf(out, "  commit: %s\n", info.Commit)
	fmt.Fprintf(out, "  built:  %s with %s\n", info.Date, info.GoVersion)
	return nil
}
