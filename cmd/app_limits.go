package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var limitRPM int
var limitDaily int

var limitsApplicationCommand = cobra.Command{
	Use:   "limits",
	Short: "Sets the rate limits of an application",
	Long: `This command sets the requests per minute and per day an application may make,
a limit of 0 removes it.`,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) < 1 || args[0] == "" {
			return errors.New("app limits (client_id) --rpm n --daily n - requires a client_id")
		}
		if limitRPM < 0 || limitDaily < 0 {
			return errors.New("limits can not be negative")
		}
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		dataStore := mustResolveUsableDataStore()
		dispatcher := bootstrapDispatcher(dataStore.Auditor())
		service := resolveManageService(dataStore, dispatcher)
		err := service.SetRateLimits(cmd.Context(), args[0], optionalLimit(limitRPM), optionalLimit(limitDaily))
		if err != nil {
			fmt.Printf("Unable to set rate limits: %s", err)
			os.Exit(1)
			return
		}
		fmt.Printf("Application %s is limited to %s per minute and %s per day",
			args[0], limitString(optionalLimit(limitRPM)), limitString(optionalLimit(limitDaily)))
	},
}

func optionalLimit(v int) *int {
	if v == 0 {
		return nil
	}
	return &v
}

func init() {
	limitsApplicationCommand.Flags().IntVar(&limitRPM, "rpm", 0, "requests per minute, 0 for unlimited")
	limitsApplicationCommand.Flags().IntVar(&limitDaily, "daily", 0, "requests per day, 0 for unlimited")
}
