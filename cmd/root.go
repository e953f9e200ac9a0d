package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/stackernews/oauthd/config"
)

// ConfigFileLocation is of the config to load
var ConfigFileLocation string

// TopLevelLogger is the logger all loggers come from
var TopLevelLogger *zap.Logger

// LoadedConfig is the currently loaded configuration after initial bootstrapping
var LoadedConfig *config.Configuration

var rootCommand = cobra.Command{
	Use:   "oauthd",
	Short: "oauthd an oauth 2.0 authorization server",
	Long: `oauthd lets third party applications act on behalf of stacker news users,
	it issues authorization codes, access and refresh tokens and guards the api with them`,
	Run: func(cmd *cobra.Command, args []string) {
		serveCommand.Run(cmd, args)
	},
}

func Execute() {
	if err := rootCommand.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {

	rootCommand.PersistentFlags().
		StringVar(&ConfigFileLocation, "config", "", "config file to be used")

	applicationCommand.AddCommand(&listApplicationsCommand)
	applicationCommand.AddCommand(&approveApplicationCommand)
	applicationCommand.AddCommand(&suspendApplicationCommand)
	applicationCommand.AddCommand(&unsuspendApplicationCommand)
	applicationCommand.AddCommand(&limitsApplicationCommand)
	applicationCommand.AddCommand(&usageApplicationCommand)
	applicationCommand.AddCommand(&deleteApplicationCommand)

	grantCommand.AddCommand(&listGrantsCommand)
	grantCommand.AddCommand(&revokeGrantCommand)

	tokenCommand.AddCommand(&purgeTokensCommand)

	rootCommand.AddCommand(&applicationCommand)
	rootCommand.AddCommand(&grantCommand)
	rootCommand.AddCommand(&tokenCommand)
	rootCommand.AddCommand(&auditCommand)
	rootCommand.AddCommand(&serveCommand)
	rootCommand.AddCommand(&keyCommand)
	rootCommand.AddCommand(&versionCommand)
}
