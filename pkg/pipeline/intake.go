package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	marathondb "github.com/strandhvilliam/vimmer-backend/pkg/db/marathon"
	"github.com/strandhvilliam/vimmer-backend/pkg/marathon/types"
	"github.com/strandhvilliam/vimmer-backend/pkg/objectkey"
	"github.com/strandhvilliam/vimmer-backend/pkg/variants"
)

var (
	ErrParticipantNotFound = errors.New("participant not found for upload event")
	ErrParticipantTerminal = errors.New("participant no longer accepts uploads")
)

// HandleUploadEvent processes one stored-original notification end to end:
// variant generation, metadata extraction, the conditional counter increment
// and, exactly at the completion boundary, the downstream fan-out.
//
// The handler is safe under at-least-once delivery: variant keys are
// deterministic (overwrites), and a redelivered increment past the expected
// count is rejected by the store and consumed silently, so the fan-out can
// fire at most once per participant.
func (s *Service) HandleUploadEvent(ctx context.Context, instanceID string, event types.UploadEvent) error {
	key, err := objectkey.Parse(event.Key)
	if err != nil {
		return fmt.Errorf("upload event carries malformed key: %w", err)
	}

	participant, err := s.participants.GetParticipantByReference(instanceID, event.Domain, event.ParticipantRef)
	if err != nil {
		return fmt.Errorf("%w: %s/%s", ErrParticipantNotFound, event.Domain, event.ParticipantRef)
	}
	participantID := participant.ID.Hex()

	if participant.IsTerminal() || participant.UploadCount >= participant.ExpectedCount {
		slog.Warn("ignoring upload event for finished participant",
			slog.String("domain", event.Domain),
			slog.String("reference", event.ParticipantRef),
			slog.String("status", participant.Status))
		return nil
	}

	result, err := s.generator.Process(ctx, key)
	if err != nil {
		// hard failure: the submission is parked in error, the counter is
		// not advanced and the event is consumed; recovery is a manual
		// re-upload or reprocess
		slog.Error("variant generation failed",
			slog.String("key", event.Key),
			slog.String("error", err.Error()))
		if statusErr := s.submissions.UpdateSubmissionStatus(instanceID, participantID, event.OrderIndex, types.SUBMISSION_STATUS_ERROR); statusErr != nil {
			slog.Error("failed to mark submission as errored", slog.String("key", event.Key), slog.String("error", statusErr.Error()))
		}
		return nil
	}

	if _, err := s.submissions.MarkSubmissionUploaded(
		instanceID,
		participantID,
		event.OrderIndex,
		event.Key,
		result.ThumbnailKey,
		result.PreviewKey,
		result.Exif,
		result.Size,
		result.MimeType,
	); err != nil {
		// leave the event unconsumed so redelivery can retry the row update
		return fmt.Errorf("failed to update submission record: %w", err)
	}

	updated, err := s.participants.IncrementUploadCount(instanceID, participantID)
	if err != nil {
		if errors.Is(err, marathondb.ErrIncrementRejected) {
			// redelivered increment past the boundary: counted uploads stay
			// untouched and the fan-out is not re-triggered
			slog.Warn("upload count increment rejected",
				slog.String("domain", event.Domain),
				slog.String("reference", event.ParticipantRef))
			return nil
		}
		return fmt.Errorf("failed to increment upload count: %w", err)
	}

	slog.Info("processed upload",
		slog.String("domain", event.Domain),
		slog.String("reference", event.ParticipantRef),
		slog.Int("orderIndex", event.OrderIndex),
		slog.Int("uploadCount", updated.UploadCount),
		slog.Int("expectedCount", updated.ExpectedCount))

	if updated.UploadCount == updated.ExpectedCount {
		s.dispatcher.Dispatch(ctx, instanceID, updated)
	}

	return nil
}

var _ VariantGenerator = (*variants.Generator)(nil)
var _ ParticipantStore = (*marathondb.MarathonDBService)(nil)
var _ SubmissionStore = (*marathondb.MarathonDBService)(nil)
