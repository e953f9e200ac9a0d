package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var deleteApplicationCommand = cobra.Command{
	Use:   "delete",
	Short: "Deletes an application",
	Long:  `This command deletes an application together with its grants, codes and tokens.`,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) < 1 || args[0] == "" {
			return errors.New("app delete (client_id) - requires a client_id")
		}
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		dataStore := mustResolveUsableDataStore()
		dispatcher := bootstrapDispatcher(dataStore.Auditor())
		service := resolveManageService(dataStore, dispatcher)
		err := service.Delete(cmd.Context(), args[0])
		if err != nil {
			fmt.Printf("Unable to delete application: %s", err)
			os.Exit(1)
			return
		}
		fmt.Printf("Application %s has been deleted", args[0])
	},
}
