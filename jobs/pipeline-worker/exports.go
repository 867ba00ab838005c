package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/strandhvilliam/vimmer-backend/pkg/marathon/types"
	"github.com/strandhvilliam/vimmer-backend/pkg/queue"
)

// handleExportTriggers builds archives for queued export requests.
// Admin-triggered exports arrive with a pre-created progress row; completion
// fan-out triggers carry none and get their row created here.
func handleExportTriggers(wg *sync.WaitGroup) {
	defer wg.Done()
	slog.Info("Start handling export triggers")

	ctx := context.Background()

	for _, instanceID := range conf.InstanceIDs {
		slog.Debug("Start handling export triggers for instance", slog.String("instanceID", instanceID))

		topic := queue.InstanceTopic(instanceID, queue.TOPIC_EXPORT_TRIGGERS)
		failedBatches := 0
		for {
			if failedBatches > MAX_FAILED_BATCHES_BEFORE_STOP {
				slog.Error("Too many failed batches, stopping export triggers for instance", slog.String("instanceID", instanceID))
				break
			}

			messages, err := messageQueue.PopBatch(ctx, topic, QUEUE_BATCH_SIZE)
			if err != nil {
				slog.Error("Failed to pop export triggers", slog.String("error", err.Error()))
				break
			}
			if len(messages) == 0 {
				break
			}

			batchFailed := false
			for _, raw := range messages {
				var trigger types.ExportTrigger
				if err := json.Unmarshal(raw, &trigger); err != nil {
					slog.Error("Dropping malformed export trigger", slog.String("error", err.Error()))
					continue
				}

				if err := runExport(ctx, instanceID, trigger); err != nil {
					// the progress row already carries the error, no re-queue:
					// a failed export is retried through the admin API
					slog.Error("Export failed",
						slog.String("domain", trigger.Domain),
						slog.String("exportType", trigger.ExportType),
						slog.String("error", err.Error()))
					batchFailed = true
				}
			}

			if batchFailed {
				failedBatches++
			}
		}

		slog.Info("Finished handling export triggers for instance", slog.String("instanceID", instanceID))
	}
}

func runExport(ctx context.Context, instanceID string, trigger types.ExportTrigger) error {
	var progress types.ZipExportProgress
	var err error

	if trigger.ProgressID != "" {
		progress, err = marathonDBService.GetExportProgressByID(instanceID, trigger.ProgressID)
	} else {
		progress, err = marathonDBService.CreateExportProgress(instanceID, trigger.Domain, trigger.ParticipantRef, trigger.ExportType)
	}
	if err != nil {
		return err
	}

	return archiveExporter.Run(ctx, instanceID, progress)
}
