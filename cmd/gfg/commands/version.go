package commands

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

var (
	buildVersion = "dev"
	buildStamp   = ""
)

// SetVersion records the values injected at link time.
func SetVersion(version, buildTime string) {
	buildVersion = version
	buildStamp = buildTime
	RootCmd.Version = version
	RootCmd.SetVersionTemplate("gfg version {{.Version}}\n")
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("gfg version %s\n", buildVersion)
		if buildStamp != "" {
			fmt.Printf("Built: %s\n", buildStamp)
		}
		fmt.Printf("Go: %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
	},
}
