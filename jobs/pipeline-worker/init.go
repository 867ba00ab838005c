package main

import (
	"log/slog"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/strandhvilliam/vimmer-backend/pkg/archiver"
	"github.com/strandhvilliam/vimmer-backend/pkg/db"
	marathonDB "github.com/strandhvilliam/vimmer-backend/pkg/db/marathon"
	"github.com/strandhvilliam/vimmer-backend/pkg/filestore"
	"github.com/strandhvilliam/vimmer-backend/pkg/notifications"
	"github.com/strandhvilliam/vimmer-backend/pkg/pipeline"
	"github.com/strandhvilliam/vimmer-backend/pkg/queue"
	"github.com/strandhvilliam/vimmer-backend/pkg/utils"
	"github.com/strandhvilliam/vimmer-backend/pkg/variants"
)

// Environment variables
const (
	ENV_CONFIG_FILE_PATH = "CONFIG_FILE_PATH"

	// Variables to override "secrets" in the config file
	ENV_MARATHON_DB_USERNAME = "MARATHON_DB_USERNAME"
	ENV_MARATHON_DB_PASSWORD = "MARATHON_DB_PASSWORD"
	ENV_QUEUE_PASSWORD       = "QUEUE_PASSWORD"
	ENV_FILESTORE_ACCESS_KEY = "FILESTORE_ACCESS_KEY"
	ENV_FILESTORE_SECRET_KEY = "FILESTORE_SECRET_KEY"
	ENV_SMTP_USERNAME        = "SMTP_USERNAME"
	ENV_SMTP_PASSWORD        = "SMTP_PASSWORD"
)

type config struct {
	// Logging configs
	Logging utils.LoggerConfig `json:"logging" yaml:"logging"`

	// DB configs
	DBConfigs struct {
		MarathonDB db.DBConfigYaml `json:"marathon_db" yaml:"marathon_db"`
	} `json:"db_configs" yaml:"db_configs"`

	InstanceIDs []string `json:"instance_ids" yaml:"instance_ids"`

	QueueConfig queue.QueueConfigYaml `json:"queue_config" yaml:"queue_config"`

	FilestoreConfig filestore.StoreConfigYaml `json:"filestore_config" yaml:"filestore_config"`

	SmtpServerConfig notifications.SmtpServerList `json:"smtp_server_config" yaml:"smtp_server_config"`
	EmailTemplates   notifications.TemplateConfig `json:"email_templates" yaml:"email_templates"`

	RunTasks struct {
		ProcessUploadEvents         bool `json:"process_upload_events" yaml:"process_upload_events"`
		ProcessValidationTriggers   bool `json:"process_validation_triggers" yaml:"process_validation_triggers"`
		ProcessExportTriggers       bool `json:"process_export_triggers" yaml:"process_export_triggers"`
		ProcessNotificationTriggers bool `json:"process_notification_triggers" yaml:"process_notification_triggers"`
	} `json:"run_tasks" yaml:"run_tasks"`
}

var conf config

var (
	marathonDBService *marathonDB.MarathonDBService
	messageQueue      *queue.RedisQueue
	fileStore         filestore.Store
	pipelineService   *pipeline.Service
	archiveExporter   *archiver.Exporter
	notifier          *notifications.Notifier
)

func init() {
	// Read config from file
	yamlFile, err := os.ReadFile(os.Getenv(ENV_CONFIG_FILE_PATH))
	if err != nil {
		panic(err)
	}

	err = yaml.UnmarshalStrict(yamlFile, &conf)
	if err != nil {
		panic(err)
	}

	// Init logger:
	utils.InitLogger(
		conf.Logging.LogLevel,
		conf.Logging.IncludeSrc,
		conf.Logging.LogToFile,
		conf.Logging.Filename,
		conf.Logging.MaxSize,
		conf.Logging.MaxAge,
		conf.Logging.MaxBackups,
		conf.Logging.CompressOldLogs,
	)

	// Override secrets from environment variables
	secretsOverride()

	// init services
	initDBs()
	initQueue()
	initFileStore()
	initPipeline()
	if conf.RunTasks.ProcessNotificationTriggers {
		initNotifier()
	}
}

func secretsOverride() {
	if dbUsername := os.Getenv(ENV_MARATHON_DB_USERNAME); dbUsername != "" {
		conf.DBConfigs.MarathonDB.Username = dbUsername
	}

	if dbPassword := os.Getenv(ENV_MARATHON_DB_PASSWORD); dbPassword != "" {
		conf.DBConfigs.MarathonDB.Password = dbPassword
	}

	if queuePassword := os.Getenv(ENV_QUEUE_PASSWORD); queuePassword != "" {
		conf.QueueConfig.Password = queuePassword
	}

	if accessKey := os.Getenv(ENV_FILESTORE_ACCESS_KEY); accessKey != "" {
		conf.FilestoreConfig.AccessKey = accessKey
	}

	if secretKey := os.Getenv(ENV_FILESTORE_SECRET_KEY); secretKey != "" {
		conf.FilestoreConfig.SecretKey = secretKey
	}

	smtpUsername := os.Getenv(ENV_SMTP_USERNAME)
	smtpPassword := os.Getenv(ENV_SMTP_PASSWORD)
	for i := range conf.SmtpServerConfig.Servers {
		if smtpUsername != "" {
			conf.SmtpServerConfig.Servers[i].AuthData.Username = smtpUsername
		}
		if smtpPassword != "" {
			conf.SmtpServerConfig.Servers[i].AuthData.Password = smtpPassword
		}
	}
}

func initDBs() {
	var err error
	marathonDBService, err = marathonDB.NewMarathonDBService(db.DBConfigFromYamlObj(conf.DBConfigs.MarathonDB, conf.InstanceIDs))
	if err != nil {
		slog.Error("Error connecting to Marathon DB", slog.String("error", err.Error()))
		panic(err)
	}
}

func initQueue() {
	var err error
	messageQueue, err = queue.NewRedisQueue(conf.QueueConfig)
	if err != nil {
		slog.Error("Error connecting to message queue", slog.String("error", err.Error()))
		panic(err)
	}
}

func initFileStore() {
	var err error
	fileStore, err = filestore.NewStore(conf.FilestoreConfig)
	if err != nil {
		slog.Error("Error initializing filestore", slog.String("error", err.Error()))
		panic(err)
	}
}

func initPipeline() {
	generator := variants.NewGenerator(fileStore)
	pipelineService = pipeline.NewService(marathonDBService, marathonDBService, generator, messageQueue)

	archiveExporter = archiver.NewExporter(marathonDBService, marathonDBService, fileStore)
}

func initNotifier() {
	smtpClients, err := notifications.NewSmtpClients(conf.SmtpServerConfig)
	if err != nil {
		slog.Error("Error connecting to SMTP servers", slog.String("error", err.Error()))
		panic(err)
	}

	notifier, err = notifications.NewNotifier(smtpClients, conf.EmailTemplates)
	if err != nil {
		slog.Error("Error initializing notifier", slog.String("error", err.Error()))
		panic(err)
	}
}
