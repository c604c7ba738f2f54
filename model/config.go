package model

import (
	"errors"
	"fmt"
	"time"
)

// Store drivers accepted in Config.StoreDriver.
const (
	StoreDriverSQLite = "sqlite"
	StoreDriverBolt   = "bolt"
)

// Config 存储应用程序的配置
type Config struct {
	BotToken               string        `mapstructure:"bot_token"`
	Status                 string        `mapstructure:"bot_status"`
	LogLevel               string        `mapstructure:"log_level"`
	LogPretty              bool          `mapstructure:"log_pretty"`
	StoreDriver            string        `mapstructure:"store_driver"`
	StorePath              string        `mapstructure:"store_path"`
	SweepInterval          time.Duration `mapstructure:"sweep_interval"`
	GatewayTimeout         time.Duration `mapstructure:"gateway_timeout"`
	NATSURL                string        `mapstructure:"nats_url"`
	MetricsAddr            string        `mapstructure:"metrics_addr"`
	DeveloperUserIDs       []string      `mapstructure:"developer_user_ids"`
	DisableCommandRegister bool          `mapstructure:"disable_command_register"`
}

// Validate checks the settings needed to run the bot.
func (c *Config) Validate() error {
	if c.BotToken == "" {
		return errors.New("BOT_TOKEN is not set")
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("SWEEP_INTERVAL must be positive, got %s", c.SweepInterval)
	}
	return c.ValidateStore()
}

// ValidateStore checks only the storage settings, for commands that never
// connect to Discord.
func (c *Config) ValidateStore() error {
	switch c.StoreDriver {
	case StoreDriverSQLite, StoreDriverBolt:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.StorePath == "" {
		return errors.New("STORE_PATH is not set")
	}
	return nil
}
