package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var suspendReason string

var suspendApplicationCommand = cobra.Command{
	Use:   "suspend",
	Short: "Suspends an application",
	Long: `This command suspends an application, every code and token issued to it is revoked
and it can not be used until it is unsuspended.`,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) < 1 || args[0] == "" {
			return errors.New("app suspend (client_id) - requires a client_id")
		}
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		dataStore := mustResolveUsableDataStore()
		dispatcher := bootstrapDispatcher(dataStore.Auditor())
		service := resolveManageService(dataStore, dispatcher)
		err := service.Suspend(cmd.Context(), args[0], suspendReason)
		if err != nil {
			fmt.Printf("Unable to suspend application: %s", err)
			os.Exit(1)
			return
		}
		fmt.Printf("Application %s has been suspended", args[0])
	},
}

var unsuspendApplicationCommand = cobra.Command{
	Use:   "unsuspend",
	Short: "Lifts the suspension of an application",
	Long:  `This command lifts a suspension, tokens revoked by the suspension stay revoked.`,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) < 1 || args[0] == "" {
			return errors.New("app unsuspend (client_id) - requires a client_id")
		}
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		dataStore := mustResolveUsableDataStore()
		dispatcher := bootstrapDispatcher(dataStore.Auditor())
		service := resolveManageService(dataStore, dispatcher)
		err := service.Unsuspend(cmd.Context(), args[0])
		if err != nil {
			fmt.Printf("Unable to unsuspend application: %s", err)
			os.Exit(1)
			return
		}
		fmt.Printf("Application %s is no longer suspended", args[0])
	},
}

func init() {
	suspendApplicationCommand.Flags().
		StringVarP(&suspendReason, "reason", "r", "", "reason shown to the application owner")
}
