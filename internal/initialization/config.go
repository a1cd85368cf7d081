package initialization

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Config holds all session configuration
type Config struct {
	// Local persistence
	DataDir string

	// Optional remote stores; the first one configured is layered over the
	// local file store
	MongoURI      string
	MongoDatabase string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// MCP gateway for tool invocation and replay validation
	MCPBaseURL string

	Debug bool
}

// LoadConfig loads configuration from files and environment variables
func LoadConfig() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvPrefix("")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	envMappings := map[string]string{
		"DataDir":       "TASKGRAPH_DATA_DIR",
		"MongoURI":      "TASKGRAPH_MONGO_URI",
		"MongoDatabase": "TASKGRAPH_MONGO_DATABASE",
		"RedisAddr":     "TASKGRAPH_REDIS_ADDR",
		"RedisPassword": "TASKGRAPH_REDIS_PASSWORD",
		"RedisDB":       "TASKGRAPH_REDIS_DB",
		"MCPBaseURL":    "TASKGRAPH_MCP_BASE_URL",
		"Debug":         "TASKGRAPH_DEBUG",
	}

	for configKey, envVar := range envMappings {
		if err := v.BindEnv(configKey, envVar); err != nil {
			log.Warn().Err(err).Msgf("Failed to bind environment variable %s for %s", envVar, configKey)
		}
	}

	v.SetConfigName("taskgraph_config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("$HOME/.taskgraph")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		log.Debug().Msg("Config file not found, using environment variables and defaults")
	} else {
		log.Info().Msgf("Using config file: %s", v.ConfigFileUsed())
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	if config.MongoURI != "" && config.MongoDatabase == "" {
		return nil, fmt.Errorf("TASKGRAPH_MONGO_DATABASE is required when TASKGRAPH_MONGO_URI is set")
	}

	log.Debug().Msgf("Config loaded: DataDir=%s, MCPBaseURL=%s", config.DataDir, config.MCPBaseURL)

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("DataDir", defaultDataDir())
	v.SetDefault("MongoDatabase", "taskgraph")
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".taskgraph"
	}
	return filepath.Join(home, ".taskgraph")
}
