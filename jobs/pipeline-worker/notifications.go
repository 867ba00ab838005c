package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/strandhvilliam/vimmer-backend/pkg/marathon/types"
	"github.com/strandhvilliam/vimmer-backend/pkg/notifications"
	"github.com/strandhvilliam/vimmer-backend/pkg/queue"
)

// handleNotificationTriggers sends the completion confirmation emails.
// Participants without an address consume their trigger silently.
func handleNotificationTriggers(wg *sync.WaitGroup) {
	defer wg.Done()
	slog.Info("Start handling notification triggers")

	ctx := context.Background()

	for _, instanceID := range conf.InstanceIDs {
		slog.Debug("Start handling notification triggers for instance", slog.String("instanceID", instanceID))

		topic := queue.InstanceTopic(instanceID, queue.TOPIC_NOTIFICATION_TRIGGERS)
		failedBatches := 0
		for {
			if failedBatches > MAX_FAILED_BATCHES_BEFORE_STOP {
				slog.Error("Too many failed batches, stopping notification triggers for instance", slog.String("instanceID", instanceID))
				break
			}

			messages, err := messageQueue.PopBatch(ctx, topic, QUEUE_BATCH_SIZE)
			if err != nil {
				slog.Error("Failed to pop notification triggers", slog.String("error", err.Error()))
				break
			}
			if len(messages) == 0 {
				break
			}

			batchFailed := false
			for _, raw := range messages {
				var trigger types.NotificationTrigger
				if err := json.Unmarshal(raw, &trigger); err != nil {
					slog.Error("Dropping malformed notification trigger", slog.String("error", err.Error()))
					continue
				}

				if err := sendCompletionNotification(instanceID, trigger.ParticipantID); err != nil {
					slog.Error("Failed to send completion notification",
						slog.String("participantID", trigger.ParticipantID),
						slog.String("error", err.Error()))

					if pubErr := messageQueue.Publish(ctx, topic, trigger); pubErr != nil {
						slog.Error("Failed to re-queue notification trigger", slog.String("error", pubErr.Error()))
					}
					batchFailed = true
				}
			}

			if batchFailed {
				failedBatches++
			}
		}

		slog.Info("Finished handling notification triggers for instance", slog.String("instanceID", instanceID))
	}
}

func sendCompletionNotification(instanceID string, participantID string) error {
	participant, err := marathonDBService.GetParticipantByID(instanceID, participantID)
	if err != nil {
		if participantGone(err) {
			slog.Warn("Dropping notification trigger for deleted participant", slog.String("participantID", participantID))
			return nil
		}
		return err
	}

	err = notifier.SendCompletionNotification(participant)
	if errors.Is(err, notifications.ErrNoRecipient) {
		slog.Debug("participant has no email address, skipping notification",
			slog.String("reference", participant.Reference))
		return nil
	}
	return err
}
