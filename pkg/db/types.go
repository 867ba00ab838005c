package db

import "fmt"

type DBConfig struct {
	URI              string
	DBNamePrefix     string
	Timeout          int
	NoCursorTimeout  bool
	MaxPoolSize      uint64
	IdleConnTimeout  int
	InstanceIDs      []string
	RunIndexCreation bool
}

type DBConfigYaml struct {
	ConnectionStr      string `yaml:"connection_str"`
	Username           string `yaml:"username"`
	Password           string `yaml:"password"`
	ConnectionPrefix   string `yaml:"connection_prefix"`
	Timeout            int    `yaml:"timeout"`
	IdleConnTimeout    int    `yaml:"idle_conn_timeout"`
	MaxPoolSize        int    `yaml:"max_pool_size"`
	UseNoCursorTimeout bool   `yaml:"use_no_cursor_timeout"`
	DBNamePrefix       string `yaml:"db_name_prefix"`
	RunIndexCreation   bool   `yaml:"run_index_creation"`
}

// DBConfigFromYamlObj assembles the connection URI from the yaml values and
// returns a ready to use DBConfig.
func DBConfigFromYamlObj(conf DBConfigYaml, instanceIDs []string) DBConfig {
	uri := conf.ConnectionStr
	if conf.Username != "" && conf.Password != "" {
		uri = fmt.Sprintf(`mongodb%s://%s:%s@%s`, conf.ConnectionPrefix, conf.Username, conf.Password, conf.ConnectionStr)
	}

	return DBConfig{
		URI:              uri,
		DBNamePrefix:     conf.DBNamePrefix,
		Timeout:          conf.Timeout,
		NoCursorTimeout:  conf.UseNoCursorTimeout,
		MaxPoolSize:      uint64(conf.MaxPoolSize),
		IdleConnTimeout:  conf.IdleConnTimeout,
		InstanceIDs:      instanceIDs,
		RunIndexCreation: conf.RunIndexCreation,
	}
}
