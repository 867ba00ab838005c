package marathon

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/strandhvilliam/vimmer-backend/pkg/marathon/types"
)

var ErrIncrementRejected = errors.New("upload count increment rejected")

func (dbService *MarathonDBService) CreateParticipant(instanceID string, participant types.Participant) (types.Participant, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	participant.RegisteredAt = time.Now().Unix()
	participant.ModifiedAt = time.Now().Unix()

	ret, err := dbService.collectionParticipants(instanceID).InsertOne(ctx, participant)
	if err != nil {
		return participant, err
	}
	participant.ID = ret.InsertedID.(primitive.ObjectID)
	return participant, nil
}

func (dbService *MarathonDBService) GetParticipantByID(instanceID string, participantID string) (participant types.Participant, err error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	_id, err := primitive.ObjectIDFromHex(participantID)
	if err != nil {
		return participant, err
	}

	err = dbService.collectionParticipants(instanceID).FindOne(ctx, bson.M{"_id": _id}).Decode(&participant)
	return participant, err
}

func (dbService *MarathonDBService) GetParticipantByReference(instanceID string, domain string, reference string) (participant types.Participant, err error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	filter := bson.M{
		"domain":    domain,
		"reference": reference,
	}

	err = dbService.collectionParticipants(instanceID).FindOne(ctx, filter).Decode(&participant)
	return participant, err
}

func (dbService *MarathonDBService) GetParticipantsByDomain(instanceID string, domain string) (participants []types.Participant, err error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	cursor, err := dbService.collectionParticipants(instanceID).Find(ctx, bson.M{"domain": domain})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	err = cursor.All(ctx, &participants)
	return participants, err
}

// GetParticipantsByDomainPaginated returns one page of participants of a
// domain, newest registrations first. Extra filter fields narrow the domain
// filter, they cannot widen it.
func (dbService *MarathonDBService) GetParticipantsByDomainPaginated(instanceID string, domain string, filter bson.M, page int64, limit int64) (participants []types.Participant, totalCount int64, err error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	query := bson.M{"domain": domain}
	for k, v := range filter {
		if k == "domain" {
			continue
		}
		query[k] = v
	}

	collection := dbService.collectionParticipants(instanceID)
	totalCount, err = collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.M{"registeredAt": -1}).
		SetSkip((page - 1) * limit).
		SetLimit(limit)
	cursor, err := collection.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	err = cursor.All(ctx, &participants)
	return participants, totalCount, err
}

// IncrementUploadCount increments the participant's upload counter by one as
// a single conditional update. The filter only matches while
// uploadCount < expectedCount and the participant is not in a terminal
// status, so a redelivered increment past the boundary is a no-op and
// returns ErrIncrementRejected. The same update transitions the status to
// completed exactly when the counter reaches expectedCount. Returns the state
// after the increment.
func (dbService *MarathonDBService) IncrementUploadCount(instanceID string, participantID string) (participant types.Participant, err error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	_id, err := primitive.ObjectIDFromHex(participantID)
	if err != nil {
		return participant, err
	}

	filter := bson.M{
		"_id":    _id,
		"status": bson.M{"$nin": bson.A{types.PARTICIPANT_STATUS_VERIFIED, types.PARTICIPANT_STATUS_COMPLETED}},
		"$expr":  bson.M{"$lt": bson.A{"$uploadCount", "$expectedCount"}},
	}

	newCount := bson.M{"$add": bson.A{"$uploadCount", 1}}
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"uploadCount": newCount,
			"modifiedAt":  time.Now().Unix(),
			"status": bson.M{"$cond": bson.A{
				bson.M{"$eq": bson.A{newCount, "$expectedCount"}},
				types.PARTICIPANT_STATUS_COMPLETED,
				types.PARTICIPANT_STATUS_UPLOADING,
			}},
		}}},
	}

	err = dbService.collectionParticipants(instanceID).FindOneAndUpdate(
		ctx,
		filter,
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&participant)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return participant, ErrIncrementRejected
		}
		return participant, err
	}

	return participant, nil
}

func (dbService *MarathonDBService) UpdateParticipantStatus(instanceID string, participantID string, status string) error {
	ctx, cancel := dbService.getContext()
	defer cancel()

	_id, err := primitive.ObjectIDFromHex(participantID)
	if err != nil {
		return err
	}

	update := bson.M{"$set": bson.M{
		"status":     status,
		"modifiedAt": time.Now().Unix(),
	}}
	res, err := dbService.collectionParticipants(instanceID).UpdateOne(ctx, bson.M{"_id": _id}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// DeleteParticipantCascade removes the participant together with its
// submissions and validation results. Admin operation only.
func (dbService *MarathonDBService) DeleteParticipantCascade(instanceID string, participantID string) error {
	ctx, cancel := dbService.getContext()
	defer cancel()

	_id, err := primitive.ObjectIDFromHex(participantID)
	if err != nil {
		return err
	}

	if _, err := dbService.collectionValidationResults(instanceID).DeleteMany(ctx, bson.M{"participantId": _id}); err != nil {
		return err
	}
	if _, err := dbService.collectionSubmissions(instanceID).DeleteMany(ctx, bson.M{"participantId": _id}); err != nil {
		return err
	}

	res, err := dbService.collectionParticipants(instanceID).DeleteOne(ctx, bson.M{"_id": _id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}
