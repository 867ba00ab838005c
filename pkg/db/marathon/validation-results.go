package marathon

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/strandhvilliam/vimmer-backend/pkg/marathon/types"
)

// SaveValidationResults replaces the stored results of a participant with a
// fresh evaluation outcome. Overruled results are kept as they are staff
// decisions.
func (dbService *MarathonDBService) SaveValidationResults(instanceID string, participantID string, results []types.ValidationResult) error {
	ctx, cancel := dbService.getContext()
	defer cancel()

	_id, err := primitive.ObjectIDFromHex(participantID)
	if err != nil {
		return err
	}

	filter := bson.M{
		"participantId": _id,
		"overruled":     false,
	}
	if _, err := dbService.collectionValidationResults(instanceID).DeleteMany(ctx, filter); err != nil {
		return err
	}

	if len(results) == 0 {
		return nil
	}

	docs := make([]interface{}, len(results))
	now := time.Now().Unix()
	for i, result := range results {
		result.ParticipantID = _id
		result.CreatedAt = now
		docs[i] = result
	}

	_, err = dbService.collectionValidationResults(instanceID).InsertMany(ctx, docs)
	return err
}

var sortByOrderIndexAndRule = bson.D{
	primitive.E{Key: "orderIndex", Value: 1},
	primitive.E{Key: "ruleKey", Value: 1},
}

func (dbService *MarathonDBService) GetValidationResultsByParticipant(instanceID string, participantID string) (results []types.ValidationResult, err error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	_id, err := primitive.ObjectIDFromHex(participantID)
	if err != nil {
		return results, err
	}

	opts := options.Find().SetSort(sortByOrderIndexAndRule)
	cursor, err := dbService.collectionValidationResults(instanceID).Find(ctx, bson.M{"participantId": _id}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	err = cursor.All(ctx, &results)
	return results, err
}

// OverruleValidationResult marks a failed result as manually accepted by
// staff. Passed results cannot be overruled.
func (dbService *MarathonDBService) OverruleValidationResult(instanceID string, resultID string) error {
	ctx, cancel := dbService.getContext()
	defer cancel()

	_id, err := primitive.ObjectIDFromHex(resultID)
	if err != nil {
		return err
	}

	filter := bson.M{
		"_id":     _id,
		"outcome": types.VALIDATION_OUTCOME_FAILED,
	}
	update := bson.M{"$set": bson.M{"overruled": true}}

	res, err := dbService.collectionValidationResults(instanceID).UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}
