package cmd

import (
	"github.com/spf13/cobra"
)

// applicationCommand groups the operator commands for registered third party applications,
// they work on the client id shown by `app ls`
var applicationCommand = cobra.Command{
	Use:     "app",
	Aliases: []string{"apps", "application"},
	Short:   "application administration commands",
	Long:    `approve, suspend, limit, inspect and delete registered third party applications`,
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}
