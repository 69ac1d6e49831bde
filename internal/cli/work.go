package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/marketpulse/eventq/pkg/eventq"
	"github.com/marketpulse/eventq/pkg/eventq/observability"
	"github.com/marketpulse/eventq/pkg/eventq/store"
)

func newWorkCommand(opts *rootOptions) *cobra.Command {
	var (
		consumerGroup string
		drain         bool
		pollInterval  time.Duration
		batchSize     int
	)

	cmd := &cobra.Command{
		Use:   "work",
		Short: "Run a worker that logs and completes claimed events",
		Long: `Run a claim-and-process worker for one consumer group.

The built-in handler logs each event and completes it without side
effects. It exists for drain testing and for flushing queues whose
processing is intentionally disabled; real consumers embed the worker
engine in their own service.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, cfg, err := opts.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			logger := newLogger()
			consumer := eventq.NewConsumer(consumerGroup,
				func(ctx context.Context, eventType string, payload store.Document) (store.Document, error) {
					logger.Info("event received",
						"event_type", eventType,
						"payload_keys", len(payload))
					return nil, nil
				})

			interval := pollInterval
			if interval <= 0 {
				interval = cfg.Worker.PollInterval.Std()
			}
			size := batchSize
			if size <= 0 {
				size = cfg.Worker.BatchSize
			}

			worker, err := eventq.NewWorker(st, consumer, eventq.WorkerConfig{
				PollInterval: interval,
				BatchSize:    size,
			},
				eventq.WithWorkerLogger(logger),
				eventq.WithWorkerMetrics(observability.NewMetricsRecorder()),
			)
			if err != nil {
				return err
			}

			if drain {
				n, err := worker.Drain(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "processed %d events\n", n)
				return nil
			}

			// Finish the current batch, then stop starting new ones.
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return worker.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&consumerGroup, "consumer-group", "", "consumer group to poll (required)")
	cmd.Flags().BoolVar(&drain, "drain", false, "process until the queue is empty, then exit")
	cmd.Flags().DurationVar(&pollInterval, "poll-interval", 0, "idle sleep between empty polls")
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "maximum events claimed per poll")
	_ = cmd.MarkFlagRequired("consumer-group")
	return cmd
}
