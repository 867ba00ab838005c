package types

// Queue message payloads exchanged between the intake API, the storage
// notification hook and the pipeline worker.

// UploadEvent is emitted once per stored original object.
type UploadEvent struct {
	ID             string `json:"id"`
	Domain         string `json:"domain"`
	ParticipantRef string `json:"participantRef"`
	OrderIndex     int    `json:"orderIndex"`
	Key            string `json:"key"`
}

// ValidationTrigger is emitted once when a participant's submission set
// becomes complete.
type ValidationTrigger struct {
	ParticipantID string `json:"participantId"`
}

// ExportTrigger requests an archive export for one participant or a whole
// event (empty ParticipantRef).
type ExportTrigger struct {
	Domain         string `json:"domain"`
	ParticipantRef string `json:"participantRef,omitempty"`
	ExportType     string `json:"exportType"`
	ProgressID     string `json:"progressId"`
}

// NotificationTrigger requests a completion notification for a participant.
type NotificationTrigger struct {
	ParticipantID string `json:"participantId"`
}
