package cmd

import (
	"fmt"
	"math"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/stackernews/oauthd/manage"
)

var listApplicationsCommand = cobra.Command{
	Use:   "ls",
	Short: "Lists all applications",
	Long:  `This will list all applications`,
	Run: func(cmd *cobra.Command, args []string) {
		dataStore := mustResolveUsableDataStore()
		dispatcher := bootstrapDispatcher(dataStore.Auditor())
		service := resolveManageService(dataStore, dispatcher)
		lst, err := service.List(cmd.Context(), 1, math.MaxInt, "", "")
		if err != nil {
			fmt.Printf("Unable to load applications: %s", err)
			os.Exit(1)
			return
		}
		w := tabwriter.NewWriter(os.Stdout, 1, 1, 1, ' ', 0)
		fmt.Fprintf(
			w,
			"%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s \r\n",
			"ID",
			"ClientID",
			"Name",
			"Owner",
			"Status",
			"Confidential",
			"Scope",
			"RedirectURIs",
			"RPM",
			"Daily",
		)
		for _, v := range lst.Entries.([]*manage.ApplicationDTO) {
			fmt.Fprintf(
				w,
				"%d\t%s\t%s\t%s\t%s\t%v\t%s\t%v\t%s\t%s \r\n",
				v.ID,
				v.ClientID,
				v.Name,
				v.OwnerUserID,
				v.Status,
				v.Confidential,
				v.Scope,
				v.RedirectURIs,
				limitString(v.RateLimitRPM),
				limitString(v.RateLimitDaily),
			)
		}

		fmt.Fprintf(w, "------------------------------------------------- \r\n")
		fmt.Fprintf(w, "%d entries loaded", lst.Total)
		w.Flush()
	},
}

func limitString(limit *int) string {
	if limit == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *limit)
}
