package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Overridden via ldflags on release builds.
var (
	Version = "dev"
	Commit  = ""
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the cadence version",
	Run: func(cmd *cobra.Command, args []string) {
		version, commit := buildIdentity()

		if JSONOutput() {
			_ = json.NewEncoder(os.Stdout).Encode(map[string]string{
				"version": version,
				"commit":  commit,
				"go":      runtime.Version(),
				"platform": fmt.Sprintf("%s/%s",
					runtime.GOOS, runtime.GOARCH),
			})
			return
		}

		fmt.Printf("cadence %s (%s, %s/%s)\n", version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
		if Verbose() && commit != "" {
			fmt.Printf("  commit: %s\n", commit)
		}
	},
}

// buildIdentity resolves the version and commit, preferring ldflags values
// and falling back to what the module build info embeds for go-install
// builds.
func buildIdentity() (version, commit string) {
	version, commit = Version, Commit

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return version, commit
	}

	if version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		version = info.Main.Version
	}
	if commit == "" {
		for _, setting := range info.Settings {
			if setting.Key == "vcs.revision" {
				commit = setting.Value
				break
			}
		}
	}
	return version, commit
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
