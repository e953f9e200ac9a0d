package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var usageWindow time.Duration

var usageApplicationCommand = cobra.Command{
	Use:   "usage",
	Short: "Counts the api calls of an application",
	Long:  `This command counts the authenticated api calls an application made within the window.`,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) < 1 || args[0] == "" {
			return errors.New("app usage (client_id) - requires a client_id")
		}
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		dataStore := mustResolveUsableDataStore()
		dispatcher := bootstrapDispatcher(dataStore.Auditor())
		service := resolveManageService(dataStore, dispatcher)
		count, err := service.UsageSince(cmd.Context(), args[0], time.Now().Add(-usageWindow))
		if err != nil {
			fmt.Printf("Unable to count usage: %s", err)
			os.Exit(1)
			return
		}
		fmt.Printf("Application %s made %d calls in the last %s", args[0], count, usageWindow)
	},
}

func init() {
	usageApplicationCommand.Flags().
		DurationVarP(&usageWindow, "window", "w", 24*time.Hour, "how far back to count")
}
