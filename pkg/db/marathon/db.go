package marathon

import (
	"context"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/strandhvilliam/vimmer-backend/pkg/db"
)

// collection names
const (
	COLLECTION_NAME_PARTICIPANTS       = "participants"
	COLLECTION_NAME_SUBMISSIONS        = "submissions"
	COLLECTION_NAME_RULE_CONFIGS       = "ruleConfigs"
	COLLECTION_NAME_VALIDATION_RESULTS = "validationResults"
	COLLECTION_NAME_EXPORT_PROGRESS    = "zipExportProgress"
)

const (
	REMOVE_EXPORT_PROGRESS_AFTER = 60 * 60 * 24 * 7 // 7 days
)

type MarathonDBService struct {
	DBClient        *mongo.Client
	timeout         int
	noCursorTimeout bool
	DBNamePrefix    string
	InstanceIDs     []string
}

func NewMarathonDBService(configs db.DBConfig) (*MarathonDBService, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(configs.Timeout)*time.Second)
	defer cancel()

	dbClient, err := mongo.Connect(ctx,
		options.Client().ApplyURI(configs.URI),
		options.Client().SetMaxConnIdleTime(time.Duration(configs.IdleConnTimeout)*time.Second),
		options.Client().SetMaxPoolSize(configs.MaxPoolSize),
	)

	if err != nil {
		return nil, err
	}

	ctx, conCancel := context.WithTimeout(context.Background(), time.Duration(configs.Timeout)*time.Second)
	err = dbClient.Ping(ctx, nil)
	defer conCancel()

	if err != nil {
		return nil, err
	}

	marathonDBSc := &MarathonDBService{
		DBClient:        dbClient,
		timeout:         configs.Timeout,
		noCursorTimeout: configs.NoCursorTimeout,
		DBNamePrefix:    configs.DBNamePrefix,
		InstanceIDs:     configs.InstanceIDs,
	}

	if configs.RunIndexCreation {
		if err := marathonDBSc.ensureIndexes(); err != nil {
			slog.Error("Error ensuring indexes for marathon DB", slog.String("error", err.Error()))
		}
	}

	return marathonDBSc, nil
}

func (dbService *MarathonDBService) getDBName(instanceID string) string {
	return dbService.DBNamePrefix + instanceID + "_marathonDB"
}

func (dbService *MarathonDBService) collectionParticipants(instanceID string) *mongo.Collection {
	return dbService.DBClient.Database(dbService.getDBName(instanceID)).Collection(COLLECTION_NAME_PARTICIPANTS)
}

func (dbService *MarathonDBService) collectionSubmissions(instanceID string) *mongo.Collection {
	return dbService.DBClient.Database(dbService.getDBName(instanceID)).Collection(COLLECTION_NAME_SUBMISSIONS)
}

func (dbService *MarathonDBService) collectionRuleConfigs(instanceID string) *mongo.Collection {
	return dbService.DBClient.Database(dbService.getDBName(instanceID)).Collection(COLLECTION_NAME_RULE_CONFIGS)
}

func (dbService *MarathonDBService) collectionValidationResults(instanceID string) *mongo.Collection {
	return dbService.DBClient.Database(dbService.getDBName(instanceID)).Collection(COLLECTION_NAME_VALIDATION_RESULTS)
}

func (dbService *MarathonDBService) collectionExportProgress(instanceID string) *mongo.Collection {
	return dbService.DBClient.Database(dbService.getDBName(instanceID)).Collection(COLLECTION_NAME_EXPORT_PROGRESS)
}

func (dbService *MarathonDBService) getContext() (ctx context.Context, cancel context.CancelFunc) {
	return context.WithTimeout(context.Background(), time.Duration(dbService.timeout)*time.Second)
}

func (dbService *MarathonDBService) ensureIndexes() error {
	slog.Debug("Ensuring indexes for marathon DB")
	for _, instanceID := range dbService.InstanceIDs {
		ctx, cancel := dbService.getContext()
		defer cancel()

		if indexes, err := db.ListCollectionIndexes(ctx, dbService.collectionParticipants(instanceID)); err == nil {
			slog.Debug("Existing indexes for participants", slog.String("instanceID", instanceID), slog.Int("count", len(indexes)))
		}

		_, err := dbService.collectionParticipants(instanceID).Indexes().CreateMany(
			ctx,
			[]mongo.IndexModel{
				{
					Keys: bson.D{
						{Key: "domain", Value: 1},
						{Key: "reference", Value: 1},
					},
					Options: options.Index().SetUnique(true),
				},
				{
					Keys: bson.D{
						{Key: "status", Value: 1},
					},
				},
			},
		)
		if err != nil {
			slog.Error("Error creating indexes for participants", slog.String("error", err.Error()))
		}

		_, err = dbService.collectionSubmissions(instanceID).Indexes().CreateMany(
			ctx,
			[]mongo.IndexModel{
				{
					Keys: bson.D{
						{Key: "participantId", Value: 1},
						{Key: "orderIndex", Value: 1},
					},
					Options: options.Index().SetUnique(true),
				},
				{
					Keys: bson.D{
						{Key: "domain", Value: 1},
						{Key: "status", Value: 1},
					},
				},
			},
		)
		if err != nil {
			slog.Error("Error creating indexes for submissions", slog.String("error", err.Error()))
		}

		// at most one enabled config per (domain, ruleKey)
		_, err = dbService.collectionRuleConfigs(instanceID).Indexes().CreateOne(
			ctx,
			mongo.IndexModel{
				Keys: bson.D{
					{Key: "domain", Value: 1},
					{Key: "ruleKey", Value: 1},
				},
				Options: options.Index().SetUnique(true),
			},
		)
		if err != nil {
			slog.Error("Error creating index for ruleConfigs", slog.String("error", err.Error()))
		}

		_, err = dbService.collectionValidationResults(instanceID).Indexes().CreateOne(
			ctx,
			mongo.IndexModel{
				Keys: bson.D{
					{Key: "participantId", Value: 1},
					{Key: "ruleKey", Value: 1},
				},
			},
		)
		if err != nil {
			slog.Error("Error creating index for validationResults", slog.String("error", err.Error()))
		}

		// export progress: auto delete on creation date
		_, err = dbService.collectionExportProgress(instanceID).Indexes().CreateOne(
			ctx,
			mongo.IndexModel{
				Keys:    bson.D{{Key: "createdAt", Value: 1}},
				Options: options.Index().SetExpireAfterSeconds(REMOVE_EXPORT_PROGRESS_AFTER),
			},
		)
		if err != nil {
			slog.Error("Error creating index for zipExportProgress", slog.String("error", err.Error()))
		}
	}
	return nil
}
