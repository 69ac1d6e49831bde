package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marketpulse/eventq/pkg/eventq"
	"github.com/marketpulse/eventq/pkg/eventq/store"
)

func newRetryCommand(opts *rootOptions) *cobra.Command {
	var (
		eventType     string
		consumerGroup string
		limit         int
	)

	cmd := &cobra.Command{
		Use:   "retry-dead-letter",
		Short: "Re-queue dead-letter events for another round of processing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, _, err := opts.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			maint := eventq.NewMaintenance(st, eventq.WithMaintenanceLogger(newLogger()))
			n, err := maint.RetryDeadLetter(cmd.Context(), store.RetryFilter{
				EventType:     eventType,
				ConsumerGroup: consumerGroup,
				Limit:         limit,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "re-queued %d dead-letter events\n", n)
			return nil
		},
	}

	cmd.Flags().StringVar(&eventType, "event-type", "", "only retry this event type")
	cmd.Flags().StringVar(&consumerGroup, "consumer-group", "", "only retry this consumer group")
	cmd.Flags().IntVar(&limit, "limit", 100, "maximum events to re-queue")
	return cmd
}
