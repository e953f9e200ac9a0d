package cmd

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/stackernews/oauthd/authorization"
	"github.com/stackernews/oauthd/db"
	"github.com/stackernews/oauthd/events"
)

var grantCommand = cobra.Command{
	Use:   "grant",
	Short: "grant commands",
	Long:  `this section harbors the commands for the consents users gave to applications`,
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

func resolveAuthorizationService(dataStore *db.DataStore, dispatcher *events.Dispatcher) *authorization.Service {
	return authorization.NewAuthorizationService(
		TopLevelLogger.Named("authorization_service"),
		dataStore,
		dispatcher,
		resolveApplicationService(dataStore, dispatcher),
		authorization.SettingsFromConfig(LoadedConfig))
}

var listGrantsCommand = cobra.Command{
	Use:   "ls",
	Short: "Lists the grants of a user",
	Long:  `This will list every application a user has authorized`,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) < 1 || args[0] == "" {
			return errors.New("grant ls (user_id) - requires a user_id")
		}
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		dataStore := mustResolveUsableDataStore()
		dispatcher := bootstrapDispatcher(dataStore.Auditor())
		service := resolveAuthorizationService(dataStore, dispatcher)
		grants, err := service.Grants(cmd.Context(), args[0])
		if err != nil {
			fmt.Printf("Unable to load grants: %s", err)
			os.Exit(1)
			return
		}
		w := tabwriter.NewWriter(os.Stdout, 1, 1, 1, ' ', 0)
		fmt.Fprintf(w, "%s\t%s\t%s\t%s \r\n", "ClientID", "Application", "Scopes", "Granted")
		for _, v := range grants {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s \r\n",
				v.ClientID,
				v.ApplicationName,
				v.Scopes.String(),
				v.CreatedAt.Format("2006-01-02 15:04"),
			)
		}
		fmt.Fprintf(w, "------------------------------------------------- \r\n")
		fmt.Fprintf(w, "%d entries loaded", len(grants))
		w.Flush()
	},
}

var revokeGrantCommand = cobra.Command{
	Use:   "revoke",
	Short: "Revokes the grant a user gave an application",
	Long:  `This command removes the consent and revokes every token issued under it.`,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) < 2 || args[0] == "" || args[1] == "" {
			return errors.New("grant revoke (user_id) (client_id) - requires a user_id and client_id")
		}
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		dataStore := mustResolveUsableDataStore()
		dispatcher := bootstrapDispatcher(dataStore.Auditor())
		app, err := resolveApplicationService(dataStore, dispatcher).ByClientID(cmd.Context(), args[1])
		if err != nil {
			fmt.Printf("Unable to find application: %s", err)
			os.Exit(1)
			return
		}
		service := resolveAuthorizationService(dataStore, dispatcher)
		if err := service.RevokeGrant(cmd.Context(), args[0], app.ID()); err != nil {
			fmt.Printf("Unable to revoke grant: %s", err)
			os.Exit(1)
			return
		}
		fmt.Printf("Grant of user %s for application %s has been revoked", args[0], args[1])
	},
}
