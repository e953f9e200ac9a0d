package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var auditEvent string
var auditLimit uint64

var auditCommand = cobra.Command{
	Use:   "audit",
	Short: "Shows the audit trail",
	Long:  `This will list the newest audit log entries, optionally narrowed to one event type`,
	Run: func(cmd *cobra.Command, args []string) {
		dataStore := mustResolveUsableDataStore()
		entries, err := dataStore.AuditTrail(cmd.Context(), auditEvent, auditLimit)
		if err != nil {
			fmt.Printf("Unable to load audit trail: %s", err)
			os.Exit(1)
			return
		}
		w := tabwriter.NewWriter(os.Stdout, 1, 1, 1, ' ', 0)
		fmt.Fprintf(w, "%s\t%s\t%s\t%s \r\n", "ID", "Time", "Event", "Payload")
		for _, v := range entries {
			fmt.Fprintf(w, "%d\t%s\t%s\t%v \r\n",
				v.ID,
				v.CreatedAt.Format("2006-01-02 15:04:05"),
				v.EventType,
				map[string]interface{}(v.Event),
			)
		}
		fmt.Fprintf(w, "------------------------------------------------- \r\n")
		fmt.Fprintf(w, "%d entries loaded", len(entries))
		w.Flush()
	},
}

func init() {
	auditCommand.Flags().StringVarP(&auditEvent, "event", "e", "", "only show this event type")
	auditCommand.Flags().Uint64VarP(&auditLimit, "limit", "n", 50, "number of entries")
}
