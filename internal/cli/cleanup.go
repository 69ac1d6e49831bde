package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/marketpulse/eventq/pkg/eventq"
)

func newCleanupCommand(opts *rootOptions) *cobra.Command {
	var (
		completedDays  int
		deadLetterDays int
	)

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Prune old completed and dead-letter events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, _, err := opts.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			maint := eventq.NewMaintenance(st, eventq.WithMaintenanceLogger(newLogger()))

			completed, err := maint.PruneCompleted(cmd.Context(),
				time.Duration(completedDays)*24*time.Hour)
			if err != nil {
				return err
			}
			deadLettered, err := maint.PruneDeadLetter(cmd.Context(),
				time.Duration(deadLetterDays)*24*time.Hour)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(),
				"pruned %d completed and %d dead-letter events\n",
				completed, deadLettered)
			return nil
		},
	}

	cmd.Flags().IntVar(&completedDays, "completed-days", 7, "retention window for completed events")
	cmd.Flags().IntVar(&deadLetterDays, "dead-letter-days", 30, "retention window for dead-letter events")
	return cmd
}
