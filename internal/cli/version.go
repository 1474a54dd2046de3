package cli

import (
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"
)

// Version is set during build time
var Version = "dev"

// NewVersionCmd creates the version command
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of ovrdeploy",
		Run: func(cmd *cobra.Command, args []string) {
			info, _ := debug.ReadBuildInfo()
			fmt.Fprint(cmd.OutOrStdout(), formatVersion(Version, info))
		},
	}
}

// formatVersion falls back to the module version for `go install` builds
// and adds the VCS stamp and toolchain when the binary carries them
func formatVersion(version string, info *debug.BuildInfo) string {
	var b strings.Builder
	if info == nil {
		fmt.Fprintf(&b, "ovrdeploy version %s\n", version)
		return b.String()
	}

	if version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		version = info.Main.Version
	}
	fmt.Fprintf(&b, "ovrdeploy version %s\n", version)

	settings := make(map[string]string, len(info.Settings))
	for _, s := range info.Settings {
		settings[s.Key] = s.Value
	}
	if rev := settings["vcs.revision"]; rev != "" {
		if len(rev) > 12 {
			rev = rev[:12]
		}
		if settings["vcs.modified"] == "true" {
			rev += " (modified)"
		}
		fmt.Fprintf(&b, "commit: %s\n", rev)
	}
	if built := settings["vcs.time"]; built != "" {
		fmt.Fprintf(&b, "built: %s\n", built)
	}
	if info.GoVersion != "" {
		fmt.Fprintf(&b, "go: %s\n", info.GoVersion)
	}
	return b.String()
}
