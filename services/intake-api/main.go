package main

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/strandhvilliam/vimmer-backend/pkg/apihelpers"
	"github.com/strandhvilliam/vimmer-backend/pkg/db"
	marathonDB "github.com/strandhvilliam/vimmer-backend/pkg/db/marathon"
	"github.com/strandhvilliam/vimmer-backend/pkg/filestore"
	"github.com/strandhvilliam/vimmer-backend/pkg/queue"
	"github.com/strandhvilliam/vimmer-backend/services/intake-api/apihandlers"
)

var conf IntakeApiConfig

func main() {
	marathonDBService, err := marathonDB.NewMarathonDBService(db.DBConfigFromYamlObj(conf.DBConfigs.MarathonDB, conf.AllowedInstanceIDs))
	if err != nil {
		slog.Error("Error connecting to Marathon DB", slog.String("error", err.Error()))
		return
	}

	messageQueue, err := queue.NewRedisQueue(conf.QueueConfig)
	if err != nil {
		slog.Error("Error connecting to message queue", slog.String("error", err.Error()))
		return
	}
	defer messageQueue.Close()

	fileStore, err := filestore.NewStore(conf.FilestoreConfig)
	if err != nil {
		slog.Error("Error initializing filestore", slog.String("error", err.Error()))
		return
	}

	// Start webserver
	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins:     conf.GinConfig.AllowOrigins,
		AllowMethods:     []string{"POST", "GET", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type", "Content-Length", "Api-Key", "Instance-Id"},
		ExposeHeaders:    []string{"Authorization", "Content-Type", "Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Add handlers
	router.GET("/", apihandlers.HealthCheckHandle)
	v1Root := router.Group("/v1")

	v1APIHandlers := apihandlers.NewHTTPHandler(
		marathonDBService,
		messageQueue,
		fileStore,
		conf.AllowedInstanceIDs,
		conf.APIKeys,
		conf.MarathonConfig.MaxExpectedCount,
	)
	v1APIHandlers.AddMarathonAPI(v1Root)
	v1APIHandlers.AddAdminAPI(v1Root)

	if conf.GinConfig.DebugMode {
		apihelpers.WriteRoutesToFile(router, "intake-api-routes.txt")
	}

	// Start the server
	slog.Info("Starting Intake API on port " + conf.GinConfig.Port)
	if !conf.GinConfig.MTLS.Use {
		err := router.Run(":" + conf.GinConfig.Port)
		if err != nil {
			slog.Error("Exited Intake API", slog.String("error", err.Error()))
			return
		}
	} else {
		// Create tls config for mutual TLS
		tlsConfig, err := apihelpers.LoadTLSConfig(conf.GinConfig.MTLS.CertificatePaths)
		if err != nil {
			slog.Error("Error loading TLS config.", slog.String("error", err.Error()))
			return
		}

		server := &http.Server{
			Addr:      ":" + conf.GinConfig.Port,
			Handler:   router,
			TLSConfig: tlsConfig,
		}

		err = server.ListenAndServeTLS(conf.GinConfig.MTLS.CertificatePaths.ServerCertPath, conf.GinConfig.MTLS.CertificatePaths.ServerKeyPath)
		if err != nil {
			slog.Error("Exited Intake API", slog.String("error", err.Error()))
			return
		}
	}
}
