package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// BuildInfo is filled in by main from the linker flags
var BuildInfo = struct {
	Version   string
	BuildTime string
	GitCommit string
	GitRef    string
}{"?", "?", "-", "-"}

var versionCommand = cobra.Command{
	Use:   "version",
	Short: "prints the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("oauthd %s, built %s from %s (%s)\n",
			BuildInfo.Version, BuildInfo.BuildTime, BuildInfo.GitCommit, BuildInfo.GitRef)
	},
}
