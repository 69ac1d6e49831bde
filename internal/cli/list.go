package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/marketpulse/eventq/pkg/eventq"
	"github.com/marketpulse/eventq/pkg/eventq/store"
)

func newListCommand(opts *rootOptions) *cobra.Command {
	var (
		status        string
		eventType     string
		consumerGroup string
		limit         int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print recent events, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if status != "" && !store.Status(status).Valid() {
				return fmt.Errorf("invalid status: %s", status)
			}

			st, _, err := opts.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			maint := eventq.NewMaintenance(st)
			events, err := maint.List(cmd.Context(), store.Filter{
				Status:        store.Status(status),
				EventType:     eventType,
				ConsumerGroup: consumerGroup,
				Limit:         limit,
			})
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tEVENT TYPE\tCONSUMER GROUP\tSTATUS\tATTEMPT\tCREATED\tERROR")
			for _, evt := range events {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d/%d\t%s\t%s\n",
					evt.ID, evt.EventType, evt.ConsumerGroup, evt.Status,
					evt.Attempt, evt.MaxAttempts,
					evt.CreatedAt.Local().Format(time.DateTime),
					evt.Error)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "filter by status")
	cmd.Flags().StringVar(&eventType, "event-type", "", "filter by event type")
	cmd.Flags().StringVar(&consumerGroup, "consumer-group", "", "filter by consumer group")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum events to print")
	return cmd
}
