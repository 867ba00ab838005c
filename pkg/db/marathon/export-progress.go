package marathon

import (
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/strandhvilliam/vimmer-backend/pkg/marathon/types"
)

// CreateExportProgress inserts a fresh progress row for a new export
// attempt. Rows are never reused across attempts; a retry gets its own row.
func (dbService *MarathonDBService) CreateExportProgress(
	instanceID string,
	domain string,
	participantRef string,
	exportType string,
) (progress types.ZipExportProgress, err error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	progress = types.ZipExportProgress{
		AttemptID:      uuid.NewString(),
		Domain:         domain,
		ParticipantRef: participantRef,
		ExportType:     exportType,
		Status:         types.EXPORT_STATUS_PENDING,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}

	ret, err := dbService.collectionExportProgress(instanceID).InsertOne(ctx, progress)
	if err != nil {
		return progress, err
	}
	progress.ID = ret.InsertedID.(primitive.ObjectID)
	return progress, nil
}

func (dbService *MarathonDBService) GetExportProgressByID(instanceID string, progressID string) (progress types.ZipExportProgress, err error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	_id, err := primitive.ObjectIDFromHex(progressID)
	if err != nil {
		return progress, err
	}

	err = dbService.collectionExportProgress(instanceID).FindOne(ctx, bson.M{"_id": _id}).Decode(&progress)
	return progress, err
}

// filter that only matches rows still open for mutation; completed and
// error rows are immutable
func openProgressFilter(id primitive.ObjectID) bson.M {
	return bson.M{
		"_id": id,
		"status": bson.M{"$in": bson.A{
			types.EXPORT_STATUS_PENDING,
			types.EXPORT_STATUS_PROCESSING,
		}},
	}
}

func (dbService *MarathonDBService) UpdateExportProgress(instanceID string, progressID string, totalItems int, processedItems int, progressPct int) error {
	ctx, cancel := dbService.getContext()
	defer cancel()

	_id, err := primitive.ObjectIDFromHex(progressID)
	if err != nil {
		return err
	}

	update := bson.M{"$set": bson.M{
		"status":         types.EXPORT_STATUS_PROCESSING,
		"totalItems":     totalItems,
		"processedItems": processedItems,
		"progress":       progressPct,
		"updatedAt":      time.Now(),
	}}

	res, err := dbService.collectionExportProgress(instanceID).UpdateOne(ctx, openProgressFilter(_id), update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (dbService *MarathonDBService) UpdateExportCompleted(instanceID string, progressID string, processedItems int, resultKey string) error {
	ctx, cancel := dbService.getContext()
	defer cancel()

	_id, err := primitive.ObjectIDFromHex(progressID)
	if err != nil {
		return err
	}

	update := bson.M{"$set": bson.M{
		"status":         types.EXPORT_STATUS_COMPLETED,
		"processedItems": processedItems,
		"progress":       100,
		"resultKey":      resultKey,
		"updatedAt":      time.Now(),
	}}

	res, err := dbService.collectionExportProgress(instanceID).UpdateOne(ctx, openProgressFilter(_id), update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (dbService *MarathonDBService) UpdateExportFailed(instanceID string, progressID string, errMsg string) error {
	ctx, cancel := dbService.getContext()
	defer cancel()

	_id, err := primitive.ObjectIDFromHex(progressID)
	if err != nil {
		return err
	}

	update := bson.M{"$set": bson.M{
		"status":    types.EXPORT_STATUS_ERROR,
		"error":     errMsg,
		"updatedAt": time.Now(),
	}}

	res, err := dbService.collectionExportProgress(instanceID).UpdateOne(ctx, openProgressFilter(_id), update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}
