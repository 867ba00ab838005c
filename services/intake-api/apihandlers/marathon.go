package apihandlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/strandhvilliam/vimmer-backend/pkg/apihelpers/middlewares"
	"github.com/strandhvilliam/vimmer-backend/pkg/marathon/types"
	"github.com/strandhvilliam/vimmer-backend/pkg/objectkey"
	"github.com/strandhvilliam/vimmer-backend/pkg/queue"
)

// AddMarathonAPI registers the participant facing endpoints plus the
// storage notification hook.
func (h *HttpEndpoints) AddMarathonAPI(rg *gin.RouterGroup) {
	marathonGroup := rg.Group("/marathon")
	marathonGroup.Use(h.requireInstanceID())
	{
		marathonGroup.POST("/:domain/participants", middlewares.RequirePayload(), h.registerParticipant)
		marathonGroup.GET("/:domain/participants/:reference", h.getParticipantProgress)
		marathonGroup.GET("/:domain/participants/:reference/validation", h.getValidationReport)
	}

	// the storage hook authenticates with the same API keys as admin clients
	hookGroup := rg.Group("/events")
	hookGroup.Use(middlewares.HasValidAPIKey(h.apiKeys))
	hookGroup.Use(h.requireInstanceID())
	{
		hookGroup.POST("/uploads", middlewares.RequirePayload(), h.uploadEventHook)
	}
}

type registerParticipantReq struct {
	Reference     string `json:"reference" binding:"required"`
	Email         string `json:"email"`
	ExpectedCount int    `json:"expectedCount" binding:"required"`
}

// registerParticipant creates the participant row together with one
// submission slot per expected photo, so uploads can be matched to their
// order index without further coordination.
func (h *HttpEndpoints) registerParticipant(c *gin.Context) {
	instanceID := getInstanceID(c)
	domain := c.Param("domain")

	var req registerParticipantReq
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error("failed to bind request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.ExpectedCount < 1 || req.ExpectedCount > h.maxExpectedCount {
		c.JSON(http.StatusBadRequest, gin.H{"error": "expectedCount out of range"})
		return
	}

	participant, err := h.marathonDBConn.CreateParticipant(instanceID, types.Participant{
		Domain:        domain,
		Reference:     req.Reference,
		Email:         req.Email,
		Status:        types.PARTICIPANT_STATUS_READY_TO_UPLOAD,
		ExpectedCount: req.ExpectedCount,
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			c.JSON(http.StatusConflict, gin.H{"error": "participant reference already registered"})
			return
		}
		slog.Error("failed to create participant", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create participant"})
		return
	}

	for orderIndex := 0; orderIndex < req.ExpectedCount; orderIndex++ {
		_, err := h.marathonDBConn.CreateSubmissionSlot(instanceID, types.Submission{
			ParticipantID: participant.ID,
			Domain:        domain,
			OrderIndex:    orderIndex,
			Status:        types.SUBMISSION_STATUS_INITIALIZED,
		})
		if err != nil {
			slog.Error("failed to create submission slot",
				slog.String("reference", req.Reference),
				slog.Int("orderIndex", orderIndex),
				slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to reserve submission slots"})
			return
		}
	}

	c.JSON(http.StatusCreated, participant)
}

// getParticipantProgress reports the upload counter and per-slot statuses,
// for polling clients.
func (h *HttpEndpoints) getParticipantProgress(c *gin.Context) {
	instanceID := getInstanceID(c)

	participant, err := h.marathonDBConn.GetParticipantByReference(instanceID, c.Param("domain"), c.Param("reference"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "participant not found"})
		return
	}

	submissions, err := h.marathonDBConn.GetSubmissionsByParticipant(instanceID, participant.ID.Hex())
	if err != nil {
		slog.Error("failed to load submissions", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load submissions"})
		return
	}

	type slotInfo struct {
		OrderIndex int    `json:"orderIndex"`
		Status     string `json:"status"`
	}
	slots := make([]slotInfo, 0, len(submissions))
	for _, s := range submissions {
		slots = append(slots, slotInfo{OrderIndex: s.OrderIndex, Status: s.Status})
	}

	c.JSON(http.StatusOK, gin.H{
		"participant": participant,
		"slots":       slots,
	})
}

func (h *HttpEndpoints) getValidationReport(c *gin.Context) {
	instanceID := getInstanceID(c)

	participant, err := h.marathonDBConn.GetParticipantByReference(instanceID, c.Param("domain"), c.Param("reference"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "participant not found"})
		return
	}

	results, err := h.marathonDBConn.GetValidationResultsByParticipant(instanceID, participant.ID.Hex())
	if err != nil {
		slog.Error("failed to load validation results", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load validation results"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"results": results})
}

type uploadEventReq struct {
	Key string `json:"key" binding:"required"`
}

// uploadEventHook is called by the object store once an original photo has
// been written. The event is only acknowledged after it is durably queued.
func (h *HttpEndpoints) uploadEventHook(c *gin.Context) {
	instanceID := getInstanceID(c)

	var req uploadEventReq
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error("failed to bind request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	key, err := objectkey.Parse(req.Key)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "key does not match the storage path scheme"})
		return
	}
	if key.VariantPrefix != "" {
		// derived objects written by the worker never re-enter the pipeline
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	event := types.UploadEvent{
		ID:             uuid.NewString(),
		Domain:         key.Domain,
		ParticipantRef: key.ParticipantRef,
		OrderIndex:     key.OrderIndex,
		Key:            req.Key,
	}
	if err := h.messageQueue.Publish(c.Request.Context(), queue.InstanceTopic(instanceID, queue.TOPIC_UPLOAD_EVENTS), event); err != nil {
		slog.Error("failed to enqueue upload event", slog.String("key", req.Key), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to enqueue upload event"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"eventId": event.ID})
}
