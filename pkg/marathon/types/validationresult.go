package types

import "go.mongodb.org/mongo-driver/bson/primitive"

const (
	VALIDATION_OUTCOME_PASSED = "passed"
	VALIDATION_OUTCOME_FAILED = "failed"
)

// ValidationResult records the outcome of evaluating one rule against one
// submission file. Rows are only ever mutated to set Overruled.
type ValidationResult struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	ParticipantID primitive.ObjectID `bson:"participantId" json:"participantId"`
	OrderIndex    int                `bson:"orderIndex" json:"orderIndex"`
	FileName      string             `bson:"fileName" json:"fileName"`
	RuleKey       string             `bson:"ruleKey" json:"ruleKey"`
	Outcome       string             `bson:"outcome" json:"outcome"`
	Severity      string             `bson:"severity" json:"severity"`
	Message       string             `bson:"message,omitempty" json:"message,omitempty"`
	Overruled     bool               `bson:"overruled" json:"overruled"`
	CreatedAt     int64              `bson:"createdAt" json:"createdAt"`
}
