package marathon

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/strandhvilliam/vimmer-backend/pkg/marathon/types"
)

// SaveRuleConfig upserts the config for (domain, ruleKey), keeping at most
// one config per pair.
func (dbService *MarathonDBService) SaveRuleConfig(instanceID string, config types.RuleConfig) (types.RuleConfig, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	filter := bson.M{
		"domain":  config.Domain,
		"ruleKey": config.RuleKey,
	}
	update := bson.M{"$set": bson.M{
		"enabled":   config.Enabled,
		"severity":  config.Severity,
		"sortOrder": config.SortOrder,
		"params":    config.Params,
	}}

	upsert := true
	rd := options.After
	opts := options.FindOneAndUpdateOptions{
		Upsert:         &upsert,
		ReturnDocument: &rd,
	}

	elem := types.RuleConfig{}
	err := dbService.collectionRuleConfigs(instanceID).FindOneAndUpdate(ctx, filter, update, &opts).Decode(&elem)
	return elem, err
}

var sortBySortOrder = bson.D{
	primitive.E{Key: "sortOrder", Value: 1},
}

// GetEnabledRuleConfigs returns the enabled configs of an event in their
// configured evaluation order.
func (dbService *MarathonDBService) GetEnabledRuleConfigs(instanceID string, domain string) (configs []types.RuleConfig, err error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	filter := bson.M{
		"domain":  domain,
		"enabled": true,
	}

	opts := options.Find().SetSort(sortBySortOrder)
	cursor, err := dbService.collectionRuleConfigs(instanceID).Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	err = cursor.All(ctx, &configs)
	return configs, err
}

func (dbService *MarathonDBService) GetRuleConfigsByDomain(instanceID string, domain string) (configs []types.RuleConfig, err error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	opts := options.Find().SetSort(sortBySortOrder)
	cursor, err := dbService.collectionRuleConfigs(instanceID).Find(ctx, bson.M{"domain": domain}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	err = cursor.All(ctx, &configs)
	return configs, err
}

func (dbService *MarathonDBService) DisableRuleConfig(instanceID string, domain string, ruleKey string) error {
	ctx, cancel := dbService.getContext()
	defer cancel()

	filter := bson.M{
		"domain":  domain,
		"ruleKey": ruleKey,
	}
	update := bson.M{"$set": bson.M{"enabled": false}}

	res, err := dbService.collectionRuleConfigs(instanceID).UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}
