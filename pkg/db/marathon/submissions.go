package marathon

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/strandhvilliam/vimmer-backend/pkg/marathon/types"
)

// CreateSubmissionSlot reserves the slot for (participantId, orderIndex).
// The unique index on the pair makes a duplicate reservation fail.
func (dbService *MarathonDBService) CreateSubmissionSlot(instanceID string, submission types.Submission) (types.Submission, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	submission.Status = types.SUBMISSION_STATUS_INITIALIZED
	submission.ModifiedAt = time.Now().Unix()

	ret, err := dbService.collectionSubmissions(instanceID).InsertOne(ctx, submission)
	if err != nil {
		return submission, err
	}
	submission.ID = ret.InsertedID.(primitive.ObjectID)
	return submission, nil
}

func (dbService *MarathonDBService) GetSubmissionByOrderIndex(instanceID string, participantID string, orderIndex int) (submission types.Submission, err error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	_id, err := primitive.ObjectIDFromHex(participantID)
	if err != nil {
		return submission, err
	}

	filter := bson.M{
		"participantId": _id,
		"orderIndex":    orderIndex,
	}

	err = dbService.collectionSubmissions(instanceID).FindOne(ctx, filter).Decode(&submission)
	return submission, err
}

var sortByOrderIndex = bson.D{
	primitive.E{Key: "orderIndex", Value: 1},
}

func (dbService *MarathonDBService) GetSubmissionsByParticipant(instanceID string, participantID string) (submissions []types.Submission, err error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	_id, err := primitive.ObjectIDFromHex(participantID)
	if err != nil {
		return submissions, err
	}

	opts := options.Find().SetSort(sortByOrderIndex)
	cursor, err := dbService.collectionSubmissions(instanceID).Find(ctx, bson.M{"participantId": _id}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	err = cursor.All(ctx, &submissions)
	return submissions, err
}

// MarkSubmissionUploaded attaches the variant keys and extracted metadata to
// the slot and advances its status to uploaded. Variant keys that could not
// be produced are passed as empty strings and left unset for later backfill.
func (dbService *MarathonDBService) MarkSubmissionUploaded(
	instanceID string,
	participantID string,
	orderIndex int,
	key string,
	thumbnailKey string,
	previewKey string,
	exif map[string]string,
	size int64,
	mimeType string,
) (submission types.Submission, err error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	_id, err := primitive.ObjectIDFromHex(participantID)
	if err != nil {
		return submission, err
	}

	fields := bson.M{
		"key":         key,
		"status":      types.SUBMISSION_STATUS_UPLOADED,
		"exif":        exif,
		"size":        size,
		"mimeType":    mimeType,
		"submittedAt": time.Now().Unix(),
		"modifiedAt":  time.Now().Unix(),
	}
	if thumbnailKey != "" {
		fields["thumbnailKey"] = thumbnailKey
	}
	if previewKey != "" {
		fields["previewKey"] = previewKey
	}

	filter := bson.M{
		"participantId": _id,
		"orderIndex":    orderIndex,
	}

	err = dbService.collectionSubmissions(instanceID).FindOneAndUpdate(
		ctx,
		filter,
		bson.M{"$set": fields},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&submission)
	return submission, err
}

func (dbService *MarathonDBService) UpdateSubmissionStatus(instanceID string, participantID string, orderIndex int, status string) error {
	ctx, cancel := dbService.getContext()
	defer cancel()

	_id, err := primitive.ObjectIDFromHex(participantID)
	if err != nil {
		return err
	}

	filter := bson.M{
		"participantId": _id,
		"orderIndex":    orderIndex,
	}
	update := bson.M{"$set": bson.M{
		"status":     status,
		"modifiedAt": time.Now().Unix(),
	}}

	res, err := dbService.collectionSubmissions(instanceID).UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// GetReadySubmissionsByDomain returns all submissions of an event that are
// eligible for archive export.
func (dbService *MarathonDBService) GetReadySubmissionsByDomain(instanceID string, domain string) (submissions []types.Submission, err error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	filter := bson.M{
		"domain": domain,
		"status": bson.M{"$in": bson.A{
			types.SUBMISSION_STATUS_UPLOADED,
			types.SUBMISSION_STATUS_UPLOADED_COMPLETE,
			types.SUBMISSION_STATUS_APPROVED,
		}},
	}

	opts := options.Find().SetSort(sortByOrderIndex)
	cursor, err := dbService.collectionSubmissions(instanceID).Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	err = cursor.All(ctx, &submissions)
	return submissions, err
}
