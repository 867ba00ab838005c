// Package pipeline drives a stored original photo through variant
// generation, completion counting and the completion fan-out.
package pipeline

import (
	"context"

	"github.com/strandhvilliam/vimmer-backend/pkg/marathon/types"
	"github.com/strandhvilliam/vimmer-backend/pkg/objectkey"
	"github.com/strandhvilliam/vimmer-backend/pkg/variants"
)

// ParticipantStore is the subset of the DB service the pipeline needs for
// participants. IncrementUploadCount is the single idempotency boundary of
// the whole pipeline: it must be atomic under concurrent calls and must
// return marathondb.ErrIncrementRejected once the expected count is reached.
type ParticipantStore interface {
	GetParticipantByReference(instanceID string, domain string, reference string) (types.Participant, error)
	IncrementUploadCount(instanceID string, participantID string) (types.Participant, error)
}

type SubmissionStore interface {
	MarkSubmissionUploaded(instanceID string, participantID string, orderIndex int, key string, thumbnailKey string, previewKey string, exif map[string]string, size int64, mimeType string) (types.Submission, error)
	UpdateSubmissionStatus(instanceID string, participantID string, orderIndex int, status string) error
}

// VariantGenerator derives the resized variants and metadata of one
// original. Implemented by variants.Generator.
type VariantGenerator interface {
	Process(ctx context.Context, key objectkey.Key) (variants.Result, error)
}

// Publisher emits the completion fan-out messages.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload interface{}) error
}

type Service struct {
	participants ParticipantStore
	submissions  SubmissionStore
	generator    VariantGenerator
	dispatcher   *FanoutDispatcher
}

func NewService(
	participants ParticipantStore,
	submissions SubmissionStore,
	generator VariantGenerator,
	publisher Publisher,
) *Service {
	return &Service{
		participants: participants,
		submissions:  submissions,
		generator:    generator,
		dispatcher:   NewFanoutDispatcher(publisher),
	}
}
