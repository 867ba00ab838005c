package types

import "go.mongodb.org/mongo-driver/bson/primitive"

const (
	PARTICIPANT_STATUS_INITIALIZED     = "initialized"
	PARTICIPANT_STATUS_READY_TO_UPLOAD = "ready_to_upload"
	PARTICIPANT_STATUS_UPLOADING       = "uploading"
	PARTICIPANT_STATUS_VERIFIED        = "verified"
	PARTICIPANT_STATUS_COMPLETED       = "completed"
	PARTICIPANT_STATUS_ERROR           = "error"
)

// Participant is the current state of one registered competitor within an
// event, as stored in the database. Reference is unique within the event
// domain. UploadCount is only ever changed through the conditional increment
// in the DB layer and never exceeds ExpectedCount.
type Participant struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Domain        string             `bson:"domain" json:"domain"`
	Reference     string             `bson:"reference" json:"reference"`
	Email         string             `bson:"email,omitempty" json:"email,omitempty"`
	Status        string             `bson:"status" json:"status"`
	UploadCount   int                `bson:"uploadCount" json:"uploadCount"`
	ExpectedCount int                `bson:"expectedCount" json:"expectedCount"`
	RegisteredAt  int64              `bson:"registeredAt" json:"registeredAt"`
	ModifiedAt    int64              `bson:"modifiedAt" json:"modifiedAt"`
}

// IsTerminal reports whether the participant no longer accepts uploads.
func (p Participant) IsTerminal() bool {
	return p.Status == PARTICIPANT_STATUS_VERIFIED || p.Status == PARTICIPANT_STATUS_COMPLETED
}
