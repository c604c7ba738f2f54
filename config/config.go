package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"durandal/model"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

var defaults = map[string]any{
	"bot_token":                "",
	"bot_status":               "",
	"log_level":                "info",
	"log_pretty":               false,
	"store_driver":             model.StoreDriverSQLite,
	"store_path":               "data/durandal.db",
	"sweep_interval":           5 * time.Second,
	"gateway_timeout":          10 * time.Second,
	"nats_url":                 "",
	"metrics_addr":             "",
	"developer_user_ids":       []string{},
	"disable_command_register": false,
}

// Load reads .env, an optional config.yaml from . or ./data, and the
// environment, in increasing order of precedence. It does not validate.
func Load() (*model.Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg(".env file not found, relying on environment variables")
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./data")
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		log.Info().Str("file", v.ConfigFileUsed()).Msg("Loaded config file")
	}

	var cfg model.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.DeveloperUserIDs = cleanIDs(cfg.DeveloperUserIDs)
	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))
	return &cfg, nil
}

func cleanIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	return out
}
