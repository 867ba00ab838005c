package apihandlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/strandhvilliam/vimmer-backend/pkg/apihelpers"
	"github.com/strandhvilliam/vimmer-backend/pkg/apihelpers/middlewares"
	"github.com/strandhvilliam/vimmer-backend/pkg/marathon/types"
	"github.com/strandhvilliam/vimmer-backend/pkg/objectkey"
	"github.com/strandhvilliam/vimmer-backend/pkg/queue"
	"github.com/strandhvilliam/vimmer-backend/pkg/validation"
)

// AddAdminAPI registers the staff endpoints. All of them require an API key.
func (h *HttpEndpoints) AddAdminAPI(rg *gin.RouterGroup) {
	adminGroup := rg.Group("/admin")
	adminGroup.Use(middlewares.HasValidAPIKey(h.apiKeys))
	adminGroup.Use(h.requireInstanceID())
	{
		adminGroup.GET("/:domain/participants", h.listParticipants)
		adminGroup.DELETE("/:domain/participants/:reference", h.deleteParticipant)
		adminGroup.POST("/:domain/participants/:reference/revalidate", h.revalidateParticipant)
		adminGroup.POST("/:domain/participants/:reference/submissions/:orderIndex/reprocess", h.reprocessSubmission)

		adminGroup.GET("/:domain/rules", h.listRuleConfigs)
		adminGroup.PUT("/:domain/rules", middlewares.RequirePayload(), h.saveRuleConfig)
		adminGroup.DELETE("/:domain/rules/:ruleKey", h.disableRuleConfig)

		adminGroup.POST("/:domain/exports", middlewares.RequirePayload(), h.triggerExport)
		adminGroup.GET("/exports/:progressID", h.getExportProgress)

		adminGroup.POST("/validation-results/:resultID/overrule", h.overruleValidationResult)
	}
}

func (h *HttpEndpoints) listParticipants(c *gin.Context) {
	instanceID := getInstanceID(c)

	query, err := apihelpers.ParsePaginatedQueryFromCtx(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	participants, totalCount, err := h.marathonDBConn.GetParticipantsByDomainPaginated(
		instanceID, c.Param("domain"), query.Filter, query.Page, query.Limit)
	if err != nil {
		slog.Error("failed to list participants", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list participants"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"participants": participants,
		"totalCount":   totalCount,
		"page":         query.Page,
		"limit":        query.Limit,
	})
}

// deleteParticipant removes the participant, its database records and all
// stored objects including variants.
func (h *HttpEndpoints) deleteParticipant(c *gin.Context) {
	instanceID := getInstanceID(c)

	participant, err := h.marathonDBConn.GetParticipantByReference(instanceID, c.Param("domain"), c.Param("reference"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "participant not found"})
		return
	}

	submissions, err := h.marathonDBConn.GetSubmissionsByParticipant(instanceID, participant.ID.Hex())
	if err != nil {
		slog.Error("failed to load submissions for delete", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load submissions"})
		return
	}

	for _, submission := range submissions {
		for _, key := range []string{submission.Key, submission.ThumbnailKey, submission.PreviewKey} {
			if key == "" {
				continue
			}
			if err := h.fileStore.Delete(c.Request.Context(), key); err != nil {
				// records win over blobs, an orphaned object is cleaned up
				// by storage lifecycle rules
				slog.Error("failed to delete stored object", slog.String("key", key), slog.String("error", err.Error()))
			}
		}
	}

	if err := h.marathonDBConn.DeleteParticipantCascade(instanceID, participant.ID.Hex()); err != nil {
		slog.Error("failed to delete participant", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete participant"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// revalidateParticipant re-runs the rule engine for a completed set, used
// after rule configs changed or results were overruled in error.
func (h *HttpEndpoints) revalidateParticipant(c *gin.Context) {
	instanceID := getInstanceID(c)

	participant, err := h.marathonDBConn.GetParticipantByReference(instanceID, c.Param("domain"), c.Param("reference"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "participant not found"})
		return
	}
	if participant.UploadCount < participant.ExpectedCount {
		c.JSON(http.StatusConflict, gin.H{"error": "submission set is not complete yet"})
		return
	}

	trigger := types.ValidationTrigger{ParticipantID: participant.ID.Hex()}
	if err := h.messageQueue.Publish(c.Request.Context(), queue.InstanceTopic(instanceID, queue.TOPIC_VALIDATION_TRIGGERS), trigger); err != nil {
		slog.Error("failed to enqueue validation trigger", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to enqueue validation trigger"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
}

// reprocessSubmission re-emits the upload event of an already stored
// original, to recover submissions parked in error.
func (h *HttpEndpoints) reprocessSubmission(c *gin.Context) {
	instanceID := getInstanceID(c)

	orderIndex, err := strconv.Atoi(c.Param("orderIndex"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order index"})
		return
	}

	participant, err := h.marathonDBConn.GetParticipantByReference(instanceID, c.Param("domain"), c.Param("reference"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "participant not found"})
		return
	}

	submission, err := h.marathonDBConn.GetSubmissionByOrderIndex(instanceID, participant.ID.Hex(), orderIndex)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "submission not found"})
		return
	}
	if submission.Key == "" {
		c.JSON(http.StatusConflict, gin.H{"error": "no stored original for this slot"})
		return
	}

	key, err := objectkey.Parse(submission.Key)
	if err != nil {
		slog.Error("stored submission key is malformed", slog.String("key", submission.Key), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "stored key is malformed"})
		return
	}

	event := types.UploadEvent{
		ID:             submission.ID.Hex(),
		Domain:         key.Domain,
		ParticipantRef: key.ParticipantRef,
		OrderIndex:     key.OrderIndex,
		Key:            submission.Key,
	}
	if err := h.messageQueue.Publish(c.Request.Context(), queue.InstanceTopic(instanceID, queue.TOPIC_UPLOAD_EVENTS), event); err != nil {
		slog.Error("failed to enqueue upload event", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to enqueue upload event"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"eventId": event.ID})
}

func (h *HttpEndpoints) listRuleConfigs(c *gin.Context) {
	instanceID := getInstanceID(c)

	configs, err := h.marathonDBConn.GetRuleConfigsByDomain(instanceID, c.Param("domain"))
	if err != nil {
		slog.Error("failed to list rule configs", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list rule configs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ruleConfigs": configs})
}

// saveRuleConfig upserts the config for (domain, ruleKey). Enabled configs
// must construct a runnable rule, otherwise the request is rejected so the
// engine never sees malformed persisted params.
func (h *HttpEndpoints) saveRuleConfig(c *gin.Context) {
	instanceID := getInstanceID(c)

	var config types.RuleConfig
	if err := c.ShouldBindJSON(&config); err != nil {
		slog.Error("failed to bind request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	config.Domain = c.Param("domain")

	if config.Severity != types.RULE_SEVERITY_ERROR && config.Severity != types.RULE_SEVERITY_WARNING {
		c.JSON(http.StatusBadRequest, gin.H{"error": "severity must be error or warning"})
		return
	}
	if config.Enabled {
		if _, err := validation.RuleFromConfig(config); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	saved, err := h.marathonDBConn.SaveRuleConfig(instanceID, config)
	if err != nil {
		slog.Error("failed to save rule config", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save rule config"})
		return
	}

	c.JSON(http.StatusOK, saved)
}

func (h *HttpEndpoints) disableRuleConfig(c *gin.Context) {
	instanceID := getInstanceID(c)

	if err := h.marathonDBConn.DisableRuleConfig(instanceID, c.Param("domain"), c.Param("ruleKey")); err != nil {
		if err == mongo.ErrNoDocuments {
			c.JSON(http.StatusNotFound, gin.H{"error": "rule config not found"})
			return
		}
		slog.Error("failed to disable rule config", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to disable rule config"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "disabled"})
}

type triggerExportReq struct {
	ParticipantRef string `json:"participantRef"`
	ExportType     string `json:"exportType" binding:"required"`
}

// triggerExport creates the progress row and queues the export for the
// worker. The response carries the progress id for polling.
func (h *HttpEndpoints) triggerExport(c *gin.Context) {
	instanceID := getInstanceID(c)
	domain := c.Param("domain")

	var req triggerExportReq
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error("failed to bind request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	switch req.ExportType {
	case types.EXPORT_TYPE_SUBMISSIONS, types.EXPORT_TYPE_THUMBNAILS, types.EXPORT_TYPE_PREVIEWS:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown export type"})
		return
	}

	progress, err := h.marathonDBConn.CreateExportProgress(instanceID, domain, req.ParticipantRef, req.ExportType)
	if err != nil {
		slog.Error("failed to create export progress", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create export progress"})
		return
	}

	trigger := types.ExportTrigger{
		Domain:         domain,
		ParticipantRef: req.ParticipantRef,
		ExportType:     req.ExportType,
		ProgressID:     progress.ID.Hex(),
	}
	if err := h.messageQueue.Publish(c.Request.Context(), queue.InstanceTopic(instanceID, queue.TOPIC_EXPORT_TRIGGERS), trigger); err != nil {
		slog.Error("failed to enqueue export trigger", slog.String("error", err.Error()))
		if updErr := h.marathonDBConn.UpdateExportFailed(instanceID, progress.ID.Hex(), "could not enqueue export"); updErr != nil {
			slog.Error("failed to mark export as failed", slog.String("error", updErr.Error()))
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to enqueue export trigger"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"progressId": progress.ID.Hex(), "attemptId": progress.AttemptID})
}

func (h *HttpEndpoints) getExportProgress(c *gin.Context) {
	instanceID := getInstanceID(c)

	progress, err := h.marathonDBConn.GetExportProgressByID(instanceID, c.Param("progressID"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "export progress not found"})
		return
	}

	c.JSON(http.StatusOK, progress)
}

// overruleValidationResult marks a failed result as accepted by staff
// decision. Passed results cannot be overruled.
func (h *HttpEndpoints) overruleValidationResult(c *gin.Context) {
	instanceID := getInstanceID(c)

	if err := h.marathonDBConn.OverruleValidationResult(instanceID, c.Param("resultID")); err != nil {
		if err == mongo.ErrNoDocuments {
			c.JSON(http.StatusNotFound, gin.H{"error": "no failed validation result with this id"})
			return
		}
		slog.Error("failed to overrule validation result", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to overrule validation result"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "overruled"})
}
