package types

import "go.mongodb.org/mongo-driver/bson/primitive"

const (
	SUBMISSION_STATUS_INITIALIZED       = "initialized"
	SUBMISSION_STATUS_UPLOADED          = "uploaded"
	SUBMISSION_STATUS_PROCESSING        = "processing"
	SUBMISSION_STATUS_UPLOADED_COMPLETE = "uploaded-complete"
	SUBMISSION_STATUS_APPROVED          = "approved"
	SUBMISSION_STATUS_REJECTED          = "rejected"
	SUBMISSION_STATUS_ERROR             = "error"
)

// Submission is one participant's photo for one topic / order index.
// Exactly one submission exists per (participantId, orderIndex); the row is
// created when the slot is reserved and mutated by the variant generator and
// staff review only.
type Submission struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	ParticipantID primitive.ObjectID `bson:"participantId" json:"participantId"`
	Domain        string             `bson:"domain" json:"domain"`
	OrderIndex    int                `bson:"orderIndex" json:"orderIndex"`
	Key           string             `bson:"key" json:"key"`
	Status        string             `bson:"status" json:"status"`
	ThumbnailKey  string             `bson:"thumbnailKey,omitempty" json:"thumbnailKey,omitempty"`
	PreviewKey    string             `bson:"previewKey,omitempty" json:"previewKey,omitempty"`
	Exif          map[string]string  `bson:"exif,omitempty" json:"exif,omitempty"`
	Size          int64              `bson:"size" json:"size"`
	MimeType      string             `bson:"mimeType" json:"mimeType"`
	SubmittedAt   int64              `bson:"submittedAt" json:"submittedAt"`
	ModifiedAt    int64              `bson:"modifiedAt" json:"modifiedAt"`
}
