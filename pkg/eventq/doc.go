/*
Package eventq provides a durable, relational-storage-backed event queue
that decouples independent pipeline stages so each can fail, retry, and
scale on its own.

# Overview

A single logical occurrence fans out at write time into one queue row per
registered consumer group. Each consumer group polls its own rows
independently through a claim-and-process worker; failed rows retry with
exponential backoff and demote to a dead-letter state when their attempts
are exhausted. Delivery is at-least-once per consumer group, so handlers
must be idempotent. There is no cross-event ordering and no priority:
every eligible pending row is equally claimable each poll cycle.

# Basic Usage

Register the fan-out mapping, create a producer, and emit:

	st, err := store.NewSQLiteStore("./eventq.db")
	if err != nil {
	    log.Fatal(err)
	}
	defer st.Close()

	registry := eventq.NewRegistry(map[string][]string{
	    "prediction_created": {"market_data", "notifications"},
	})
	producer := eventq.NewProducer(st, registry)

	ids, err := producer.Emit(ctx, eventq.EmitRequest{
	    EventType:     "prediction_created",
	    Payload:       store.Document{"prediction_id": 42},
	    SourceService: "harvester",
	})

Each consumer group runs its own worker. A worker is a Consumer (the
group name plus a handler) driven by the polling engine:

	consumer := eventq.NewConsumer("market_data",
	    func(ctx context.Context, eventType string, payload store.Document) (store.Document, error) {
	        // enrich, store, notify ...
	        return store.Document{"ok": true}, nil
	    })

	worker, err := eventq.NewWorker(st, consumer, eventq.WorkerConfig{})
	if err != nil {
	    log.Fatal(err)
	}

	// Bounded, cron-style invocation:
	processed, err := worker.Drain(ctx)

	// Or poll until the context is cancelled:
	err = worker.Run(ctx)

Maintenance operations (pruning, bulk dead-letter retry, inspection) run
out-of-band against the same store; the cmd/eventq CLI wraps them.
*/
package eventq
