package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var usageRetention time.Duration

var tokenCommand = cobra.Command{
	Use:   "token",
	Short: "token commands",
	Long:  `this section harbors the token maintenance commands`,
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

var purgeTokensCommand = cobra.Command{
	Use:   "purge",
	Short: "Purges expired codes and tokens",
	Long: `This command deletes expired authorization codes and tokens,
usage records older than the retention are removed as well when one is given.`,
	Run: func(cmd *cobra.Command, args []string) {
		dataStore := mustResolveUsableDataStore()
		dispatcher := bootstrapDispatcher(dataStore.Auditor())
		apps := resolveApplicationService(dataStore, dispatcher)
		engine := resolveTokenEngine(dataStore, dispatcher, apps, mustResolveMetrics())
		now := time.Now()
		codes, tokens, err := engine.PurgeExpired(cmd.Context(), now)
		if err != nil {
			fmt.Printf("Unable to purge: %s", err)
			os.Exit(1)
			return
		}
		fmt.Printf("Purged %d codes and %d tokens\r\n", codes, tokens)
		if usageRetention <= 0 {
			return
		}
		records, err := dataStore.DeleteUsageBefore(cmd.Context(), now.Add(-usageRetention))
		if err != nil {
			fmt.Printf("Unable to purge usage records: %s", err)
			os.Exit(1)
			return
		}
		fmt.Printf("Purged %d usage records\r\n", records)
	},
}

func init() {
	purgeTokensCommand.Flags().
		DurationVar(&usageRetention, "usage-retention", 0, "also delete usage records older than this")
}
