package config

import (
	"fmt"
	"log"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	ServerPort    string `mapstructure:"SERVER_PORT"`
	MongoURI      string `mapstructure:"MONGO_URI"`
	MongoDatabase string `mapstructure:"MONGO_DATABASE"`
	RedisURI      string `mapstructure:"REDIS_URI"`

	// DisableStorage runs the service in-memory only, for local use and tests
	DisableStorage bool `mapstructure:"DISABLE_STORAGE"`
}

// LoadConfig loads configuration from config.yaml and environment variables
// (e.g. VIGILORE_SERVER_PORT)
func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	// Set defaults
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	viper.SetDefault("MONGO_DATABASE", "vigilore")
	viper.SetDefault("REDIS_URI", "localhost:6379")
	viper.SetDefault("DISABLE_STORAGE", false)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("config.yaml not found, using environment variables and defaults")
		} else {
			return nil, fmt.Errorf("fatal error config file: %w", err)
		}
	}

	viper.SetEnvPrefix("VIGILORE")
	viper.AutomaticEnv()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}
	return &cfg, nil
}
