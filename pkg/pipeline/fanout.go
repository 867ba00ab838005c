package pipeline

import (
	"context"
	"log/slog"

	"github.com/strandhvilliam/vimmer-backend/pkg/marathon/types"
	"github.com/strandhvilliam/vimmer-backend/pkg/queue"
)

// FanoutDispatcher emits the downstream triggers once a participant's
// submission set is complete. The three emissions are independent: a failing
// target is logged and the others still go out, and completion is never
// rolled back. A stuck downstream step is recovered via the management API,
// not by replaying the original upload event.
type FanoutDispatcher struct {
	publisher Publisher
}

func NewFanoutDispatcher(publisher Publisher) *FanoutDispatcher {
	return &FanoutDispatcher{publisher: publisher}
}

func (d *FanoutDispatcher) Dispatch(ctx context.Context, instanceID string, participant types.Participant) {
	participantID := participant.ID.Hex()

	targets := []struct {
		topic   string
		payload interface{}
	}{
		{queue.InstanceTopic(instanceID, queue.TOPIC_VALIDATION_TRIGGERS), types.ValidationTrigger{ParticipantID: participantID}},
		{queue.InstanceTopic(instanceID, queue.TOPIC_EXPORT_TRIGGERS), types.ExportTrigger{
			Domain:         participant.Domain,
			ParticipantRef: participant.Reference,
			ExportType:     types.EXPORT_TYPE_SUBMISSIONS,
		}},
		{queue.InstanceTopic(instanceID, queue.TOPIC_NOTIFICATION_TRIGGERS), types.NotificationTrigger{ParticipantID: participantID}},
	}

	for _, target := range targets {
		if err := d.publisher.Publish(ctx, target.topic, target.payload); err != nil {
			slog.Error("failed to emit completion trigger",
				slog.String("topic", target.topic),
				slog.String("domain", participant.Domain),
				slog.String("reference", participant.Reference),
				slog.String("error", err.Error()))
		}
	}

	slog.Info("completion fan-out dispatched",
		slog.String("domain", participant.Domain),
		slog.String("reference", participant.Reference))
}
