package types

import "go.mongodb.org/mongo-driver/bson/primitive"

const (
	RULE_KEY_ALLOWED_FILE_TYPES = "allowed-file-types"
	RULE_KEY_MAX_FILE_SIZE      = "max-file-size"
	RULE_KEY_SAME_DEVICE        = "same-device"
	RULE_KEY_STRICT_ORDERING    = "strict-timestamp-ordering"
	RULE_KEY_WITHIN_TIMERANGE   = "within-timerange"
	RULE_KEY_MODIFIED           = "modified"
	RULE_KEY_HAS_METADATA       = "has-metadata"

	RULE_SEVERITY_ERROR   = "error"
	RULE_SEVERITY_WARNING = "warning"
)

// RuleParams carries the rule-specific payload of a config entry. Only the
// fields relevant for the given rule key are set.
type RuleParams struct {
	AllowedExtensions []string `bson:"allowedExtensions,omitempty" json:"allowedExtensions,omitempty"`
	MaxBytes          int64    `bson:"maxBytes,omitempty" json:"maxBytes,omitempty"`
	Start             int64    `bson:"start,omitempty" json:"start,omitempty"` // unix timestamps for within-timerange
	End               int64    `bson:"end,omitempty" json:"end,omitempty"`
}

// RuleConfig is one configurable validation constraint for an event. At most
// one enabled config exists per (domain, ruleKey); SortOrder defines the
// evaluation order.
type RuleConfig struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Domain    string             `bson:"domain" json:"domain"`
	RuleKey   string             `bson:"ruleKey" json:"ruleKey"`
	Enabled   bool               `bson:"enabled" json:"enabled"`
	Severity  string             `bson:"severity" json:"severity"`
	SortOrder int                `bson:"sortOrder" json:"sortOrder"`
	Params    RuleParams         `bson:"params" json:"params"`
}
