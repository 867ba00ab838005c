package types

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	EXPORT_STATUS_PENDING    = "pending"
	EXPORT_STATUS_PROCESSING = "processing"
	EXPORT_STATUS_COMPLETED  = "completed"
	EXPORT_STATUS_ERROR      = "error"

	EXPORT_TYPE_SUBMISSIONS = "submissions"
	EXPORT_TYPE_THUMBNAILS  = "thumbnails"
	EXPORT_TYPE_PREVIEWS    = "previews"
)

// ZipExportProgress is the read model polled by callers of the archive
// exporter. Rows are never mutated after reaching completed or error; a
// retry creates a fresh row.
type ZipExportProgress struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	AttemptID      string             `bson:"attemptId" json:"attemptId"`
	Domain         string             `bson:"domain" json:"domain"`
	ParticipantRef string             `bson:"participantRef,omitempty" json:"participantRef,omitempty"`
	ExportType     string             `bson:"exportType" json:"exportType"`
	Status         string             `bson:"status" json:"status"`
	Progress       int                `bson:"progress" json:"progress"` // 0-100
	TotalItems     int                `bson:"totalItems" json:"totalItems"`
	ProcessedItems int                `bson:"processedItems" json:"processedItems"`
	Error          string             `bson:"error,omitempty" json:"error,omitempty"`
	ResultKey      string             `bson:"resultKey,omitempty" json:"resultKey,omitempty"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time          `bson:"updatedAt" json:"updatedAt"`
}
