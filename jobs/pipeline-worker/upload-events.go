package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/strandhvilliam/vimmer-backend/pkg/marathon/types"
	"github.com/strandhvilliam/vimmer-backend/pkg/queue"
)

// handleUploadEvents drains the upload-event topic per instance. Events in a
// batch are processed with bounded concurrency; a handler error re-queues
// the event so a transient store or database failure is retried on the next
// run.
func handleUploadEvents(wg *sync.WaitGroup) {
	defer wg.Done()
	slog.Info("Start handling upload events")

	ctx := context.Background()

	for _, instanceID := range conf.InstanceIDs {
		slog.Debug("Start handling upload events for instance", slog.String("instanceID", instanceID))

		topic := queue.InstanceTopic(instanceID, queue.TOPIC_UPLOAD_EVENTS)
		failedBatches := 0
		for {
			if failedBatches > MAX_FAILED_BATCHES_BEFORE_STOP {
				slog.Error("Too many failed batches, stopping upload events for instance", slog.String("instanceID", instanceID))
				break
			}

			messages, err := messageQueue.PopBatch(ctx, topic, QUEUE_BATCH_SIZE)
			if err != nil {
				slog.Error("Failed to pop upload events", slog.String("error", err.Error()))
				break
			}
			if len(messages) == 0 {
				break
			}

			batchFailed := false

			var batchWg sync.WaitGroup
			sem := make(chan struct{}, UPLOAD_EVENT_CONCURRENCY)
			var mu sync.Mutex

			for _, raw := range messages {
				var event types.UploadEvent
				if err := json.Unmarshal(raw, &event); err != nil {
					slog.Error("Dropping malformed upload event", slog.String("error", err.Error()))
					continue
				}

				batchWg.Add(1)
				sem <- struct{}{}
				go func(event types.UploadEvent) {
					defer batchWg.Done()
					defer func() { <-sem }()

					if err := pipelineService.HandleUploadEvent(ctx, instanceID, event); err != nil {
						slog.Error("Failed to process upload event",
							slog.String("key", event.Key),
							slog.String("error", err.Error()))

						if pubErr := messageQueue.Publish(ctx, topic, event); pubErr != nil {
							slog.Error("Failed to re-queue upload event", slog.String("key", event.Key), slog.String("error", pubErr.Error()))
						}

						mu.Lock()
						batchFailed = true
						mu.Unlock()
					}
				}(event)
			}
			batchWg.Wait()

			if batchFailed {
				failedBatches++
			}
		}

		slog.Info("Finished handling upload events for instance", slog.String("instanceID", instanceID))
	}
}
