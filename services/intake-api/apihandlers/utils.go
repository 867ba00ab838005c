package apihandlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

const instanceIDHeader = "Instance-Id"

// requireInstanceID resolves the tenant instance for the request. A single
// allowed instance is used as default when the header is absent.
func (h *HttpEndpoints) requireInstanceID() gin.HandlerFunc {
	return func(c *gin.Context) {
		instanceID := c.GetHeader(instanceIDHeader)
		if instanceID == "" && len(h.allowedInstanceIDs) == 1 {
			instanceID = h.allowedInstanceIDs[0]
		}

		for _, allowed := range h.allowedInstanceIDs {
			if instanceID == allowed {
				c.Set("instanceID", instanceID)
				c.Next()
				return
			}
		}

		slog.Warn("instance id not allowed", slog.String("instanceID", instanceID))
		c.JSON(http.StatusBadRequest, gin.H{"error": "instance id not allowed"})
		c.Abort()
	}
}

func getInstanceID(c *gin.Context) string {
	return c.GetString("instanceID")
}
