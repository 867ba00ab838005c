package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	marathondb "github.com/strandhvilliam/vimmer-backend/pkg/db/marathon"
	"github.com/strandhvilliam/vimmer-backend/pkg/marathon/types"
	"github.com/strandhvilliam/vimmer-backend/pkg/objectkey"
	"github.com/strandhvilliam/vimmer-backend/pkg/queue"
	"github.com/strandhvilliam/vimmer-backend/pkg/variants"
)

// fakeParticipants honors the store contract: the increment is atomic and
// rejected once the expected count is reached.
type fakeParticipants struct {
	mu          sync.Mutex
	participant types.Participant
}

func (f *fakeParticipants) GetParticipantByReference(instanceID string, domain string, reference string) (types.Participant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.participant.Domain != domain || f.participant.Reference != reference {
		return types.Participant{}, errors.New("not found")
	}
	return f.participant, nil
}

func (f *fakeParticipants) IncrementUploadCount(instanceID string, participantID string) (types.Participant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := &f.participant
	if p.IsTerminal() || p.UploadCount >= p.ExpectedCount {
		return types.Participant{}, marathondb.ErrIncrementRejected
	}
	p.UploadCount++
	if p.UploadCount == p.ExpectedCount {
		p.Status = types.PARTICIPANT_STATUS_COMPLETED
	} else {
		p.Status = types.PARTICIPANT_STATUS_UPLOADING
	}
	return *p, nil
}

func (f *fakeParticipants) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.participant.UploadCount
}

type fakeSubmissions struct {
	mu       sync.Mutex
	statuses map[int]string
}

func (f *fakeSubmissions) MarkSubmissionUploaded(instanceID string, participantID string, orderIndex int, key string, thumbnailKey string, previewKey string, exif map[string]string, size int64, mimeType string) (types.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[orderIndex] = types.SUBMISSION_STATUS_UPLOADED
	return types.Submission{OrderIndex: orderIndex, Key: key, Status: types.SUBMISSION_STATUS_UPLOADED}, nil
}

func (f *fakeSubmissions) UpdateSubmissionStatus(instanceID string, participantID string, orderIndex int, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[orderIndex] = status
	return nil
}

func (f *fakeSubmissions) status(orderIndex int) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statuses[orderIndex]
}

type fakeGenerator struct {
	err error
}

func (f *fakeGenerator) Process(ctx context.Context, key objectkey.Key) (variants.Result, error) {
	if f.err != nil {
		return variants.Result{}, f.err
	}
	return variants.Result{
		ThumbnailKey: objectkey.FormatVariant(key, objectkey.VARIANT_PREFIX_THUMBNAIL),
		PreviewKey:   objectkey.FormatVariant(key, objectkey.VARIANT_PREFIX_PREVIEW),
		Exif:         map[string]string{"Make": "Nikon", "Model": "D90"},
		Size:         100,
		MimeType:     "image/jpeg",
	}, nil
}

type fakePublisher struct {
	mu        sync.Mutex
	published map[string]int
	failTopic string
}

func (f *fakePublisher) Publish(ctx context.Context, topic string, payload interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if topic == f.failTopic {
		return errors.New("queue unavailable")
	}
	if f.published == nil {
		f.published = map[string]int{}
	}
	f.published[topic]++
	return nil
}

func (f *fakePublisher) countFor(topic string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.published[topic]
}

func newTestSetup(expectedCount int) (*Service, *fakeParticipants, *fakeSubmissions, *fakePublisher) {
	participants := &fakeParticipants{
		participant: types.Participant{
			ID:            primitive.NewObjectID(),
			Domain:        "summer2024",
			Reference:     "P-0042",
			Status:        types.PARTICIPANT_STATUS_READY_TO_UPLOAD,
			ExpectedCount: expectedCount,
		},
	}
	submissions := &fakeSubmissions{statuses: map[int]string{}}
	publisher := &fakePublisher{}
	service := NewService(participants, submissions, &fakeGenerator{}, publisher)
	return service, participants, submissions, publisher
}

func uploadEvent(orderIndex int) types.UploadEvent {
	return types.UploadEvent{
		Domain:         "summer2024",
		ParticipantRef: "P-0042",
		OrderIndex:     orderIndex,
		Key:            objectkey.Format("summer2024", "P-0042", orderIndex, "photo.jpg"),
	}
}

func TestConcurrentUploadsNeverExceedExpectedCount(t *testing.T) {
	service, participants, _, publisher := newTestSetup(3)

	// more concurrent deliveries than remaining slots, including duplicates
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(orderIndex int) {
			defer wg.Done()
			_ = service.HandleUploadEvent(context.Background(), "default", uploadEvent(orderIndex%4))
		}(i)
	}
	wg.Wait()

	if count := participants.count(); count != 3 {
		t.Errorf("expected upload count 3, got %d", count)
	}
	if fired := publisher.countFor(queue.InstanceTopic("default", queue.TOPIC_VALIDATION_TRIGGERS)); fired != 1 {
		t.Errorf("expected fan-out to fire exactly once, fired %d times", fired)
	}
}

func TestFanoutFiresExactlyOnceUnderRedelivery(t *testing.T) {
	service, _, _, publisher := newTestSetup(2)
	ctx := context.Background()

	if err := service.HandleUploadEvent(ctx, "default", uploadEvent(0)); err != nil {
		t.Fatal(err)
	}
	// the completing event is delivered three times
	for i := 0; i < 3; i++ {
		if err := service.HandleUploadEvent(ctx, "default", uploadEvent(1)); err != nil {
			t.Fatal(err)
		}
	}

	for _, topic := range []string{queue.TOPIC_VALIDATION_TRIGGERS, queue.TOPIC_EXPORT_TRIGGERS, queue.TOPIC_NOTIFICATION_TRIGGERS} {
		if fired := publisher.countFor(queue.InstanceTopic("default", topic)); fired != 1 {
			t.Errorf("topic %s: expected exactly one trigger, got %d", topic, fired)
		}
	}
}

func TestMetadataFailureParksSubmissionWithoutCounting(t *testing.T) {
	participants := &fakeParticipants{
		participant: types.Participant{
			ID:            primitive.NewObjectID(),
			Domain:        "summer2024",
			Reference:     "P-0042",
			Status:        types.PARTICIPANT_STATUS_READY_TO_UPLOAD,
			ExpectedCount: 2,
		},
	}
	submissions := &fakeSubmissions{statuses: map[int]string{}}
	publisher := &fakePublisher{}
	service := NewService(participants, submissions, &fakeGenerator{err: variants.ErrMetadataMissing}, publisher)

	if err := service.HandleUploadEvent(context.Background(), "default", uploadEvent(0)); err != nil {
		t.Fatalf("hard metadata failure should consume the event, got %v", err)
	}

	if status := submissions.status(0); status != types.SUBMISSION_STATUS_ERROR {
		t.Errorf("expected submission status error, got %s", status)
	}
	if count := participants.count(); count != 0 {
		t.Errorf("counter must not advance on hard failure, got %d", count)
	}
	if fired := publisher.countFor(queue.InstanceTopic("default", queue.TOPIC_VALIDATION_TRIGGERS)); fired != 0 {
		t.Error("fan-out must not fire after a hard failure")
	}
}

func TestMalformedKeyIsRejected(t *testing.T) {
	service, _, _, _ := newTestSetup(2)

	event := uploadEvent(0)
	event.Key = "not-a-valid-key"
	if err := service.HandleUploadEvent(context.Background(), "default", event); err == nil {
		t.Error("expected error for malformed key")
	}
}

func TestFanoutTargetsAreIndependent(t *testing.T) {
	participants := &fakeParticipants{
		participant: types.Participant{
			ID:            primitive.NewObjectID(),
			Domain:        "summer2024",
			Reference:     "P-0042",
			Status:        types.PARTICIPANT_STATUS_READY_TO_UPLOAD,
			ExpectedCount: 1,
		},
	}
	submissions := &fakeSubmissions{statuses: map[int]string{}}
	publisher := &fakePublisher{failTopic: queue.InstanceTopic("default", queue.TOPIC_VALIDATION_TRIGGERS)}
	service := NewService(participants, submissions, &fakeGenerator{}, publisher)

	if err := service.HandleUploadEvent(context.Background(), "default", uploadEvent(0)); err != nil {
		t.Fatal(err)
	}

	if fired := publisher.countFor(queue.InstanceTopic("default", queue.TOPIC_EXPORT_TRIGGERS)); fired != 1 {
		t.Error("export trigger should still be emitted when the validation emit fails")
	}
	if fired := publisher.countFor(queue.InstanceTopic("default", queue.TOPIC_NOTIFICATION_TRIGGERS)); fired != 1 {
		t.Error("notification trigger should still be emitted when the validation emit fails")
	}
}

func TestFanoutTopicsAreScopedToTheEventInstance(t *testing.T) {
	participants := &fakeParticipants{
		participant: types.Participant{
			ID:            primitive.NewObjectID(),
			Domain:        "summer2024",
			Reference:     "P-0042",
			Status:        types.PARTICIPANT_STATUS_READY_TO_UPLOAD,
			ExpectedCount: 1,
		},
	}
	submissions := &fakeSubmissions{statuses: map[int]string{}}
	publisher := &fakePublisher{}
	service := NewService(participants, submissions, &fakeGenerator{}, publisher)

	if err := service.HandleUploadEvent(context.Background(), "tenant-b", uploadEvent(0)); err != nil {
		t.Fatal(err)
	}

	for _, topic := range []string{queue.TOPIC_VALIDATION_TRIGGERS, queue.TOPIC_EXPORT_TRIGGERS, queue.TOPIC_NOTIFICATION_TRIGGERS} {
		if fired := publisher.countFor(queue.InstanceTopic("tenant-b", topic)); fired != 1 {
			t.Errorf("topic %s: expected the trigger on the tenant-b list, got %d", topic, fired)
		}
		if fired := publisher.countFor(queue.InstanceTopic("default", topic)); fired != 0 {
			t.Errorf("topic %s: trigger leaked onto another instance's list", topic)
		}
	}
}
