package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var approveApplicationCommand = cobra.Command{
	Use:   "approve",
	Short: "Approves a pending application",
	Long:  `This command approves an application so users can start authorizing it.`,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) < 1 || args[0] == "" {
			return errors.New("app approve (client_id) - requires a client_id")
		}
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		dataStore := mustResolveUsableDataStore()
		dispatcher := bootstrapDispatcher(dataStore.Auditor())
		service := resolveManageService(dataStore, dispatcher)
		err := service.Approve(cmd.Context(), args[0])
		if err != nil {
			fmt.Printf("Unable to approve application: %s", err)
			os.Exit(1)
			return
		}
		fmt.Printf("Application %s has been approved", args[0])
	},
}
