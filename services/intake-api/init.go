package main

import (
	"os"

	"github.com/gin-gonic/gin"
	"gopkg.in/yaml.v2"

	"github.com/strandhvilliam/vimmer-backend/pkg/apihelpers"
	"github.com/strandhvilliam/vimmer-backend/pkg/db"
	"github.com/strandhvilliam/vimmer-backend/pkg/filestore"
	"github.com/strandhvilliam/vimmer-backend/pkg/queue"
	"github.com/strandhvilliam/vimmer-backend/pkg/utils"
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
	ENV_API_KEYS             = "API_KEYS"
)

const defaultMaxExpectedCount = 100

type IntakeApiConfig struct {
	// Logging configs
	Logging utils.LoggerConfig `json:"logging" yaml:"logging"`

	// Gin configs
	GinConfig struct {
		DebugMode    bool     `json:"debug_mode" yaml:"debug_mode"`
		AllowOrigins []string `json:"allow_origins" yaml:"allow_origins"`
		Port         string   `json:"port" yaml:"port"`

		// Mutual TLS configs
		MTLS struct {
			Use              bool                        `json:"use" yaml:"use"`
			CertificatePaths apihelpers.CertificatePaths `json:"certificate_paths" yaml:"certificate_paths"`
		} `json:"mtls" yaml:"mtls"`
	} `json:"gin_config" yaml:"gin_config"`

	AllowedInstanceIDs []string `json:"allowed_instance_ids" yaml:"allowed_instance_ids"`

	// API keys accepted from the storage hook and admin clients
	APIKeys []string `json:"api_keys" yaml:"api_keys"`

	MarathonConfig struct {
		MaxExpectedCount int `json:"max_expected_count" yaml:"max_expected_count"`
	} `json:"marathon_config" yaml:"marathon_config"`

	// DB configs
	DBConfigs struct {
		MarathonDB db.DBConfigYaml `json:"marathon_db" yaml:"marathon_db"`
	} `json:"db_configs" yaml:"db_configs"`

	QueueConfig queue.QueueConfigYaml `json:"queue_config" yaml:"queue_config"`

	FilestoreConfig filestore.StoreConfigYaml `json:"filestore_config" yaml:"filestore_config"`
}

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

	if conf.MarathonConfig.MaxExpectedCount < 1 {
		conf.MarathonConfig.MaxExpectedCount = defaultMaxExpectedCount
	}

	if !conf.GinConfig.DebugMode {
		gin.SetMode(gin.ReleaseMode)
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

	if apiKeys := os.Getenv(ENV_API_KEYS); apiKeys != "" {
		conf.APIKeys = utils.SplitAndTrim(apiKeys)
	}
}
