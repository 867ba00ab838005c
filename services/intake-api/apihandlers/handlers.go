package apihandlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	marathonDB "github.com/strandhvilliam/vimmer-backend/pkg/db/marathon"
	"github.com/strandhvilliam/vimmer-backend/pkg/filestore"
	"github.com/strandhvilliam/vimmer-backend/pkg/queue"
)

func HealthCheckHandle(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type HttpEndpoints struct {
	marathonDBConn     *marathonDB.MarathonDBService
	messageQueue       queue.Queue
	fileStore          filestore.Store
	allowedInstanceIDs []string
	apiKeys            []string
	maxExpectedCount   int
}

func NewHTTPHandler(
	marathonDBConn *marathonDB.MarathonDBService,
	messageQueue queue.Queue,
	fileStore filestore.Store,
	allowedInstanceIDs []string,
	apiKeys []string,
	maxExpectedCount int,
) *HttpEndpoints {
	return &HttpEndpoints{
		marathonDBConn:     marathonDBConn,
		messageQueue:       messageQueue,
		fileStore:          fileStore,
		allowedInstanceIDs: allowedInstanceIDs,
		apiKeys:            apiKeys,
		maxExpectedCount:   maxExpectedCount,
	}
}
