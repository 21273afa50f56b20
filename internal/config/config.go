// Package config resolves runtime configuration from the environment, with an
// optional config file for local development.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config carries every tunable the service reads at startup.
type Config struct {
	OrdersTable      string        `mapstructure:"orders_table"`
	CredentialsTable string        `mapstructure:"credentials_table"`
	VouchersTable    string        `mapstructure:"vouchers_table"`
	SettingsTable    string        `mapstructure:"settings_table"`
	NotifyQueueURL   string        `mapstructure:"notify_queue_url"`
	QRISTemplate     string        `mapstructure:"qris_template"`
	DefaultBasePrice int64         `mapstructure:"default_base_price"`
	FeedURL          string        `mapstructure:"feed_url"`
	FeedTimeout      time.Duration `mapstructure:"feed_timeout"`
	FeedRetries      int           `mapstructure:"feed_retries"`
	OrderTTL         time.Duration `mapstructure:"order_ttl"`
	CreateLimit      int           `mapstructure:"create_limit"`
	CheckLimit       int           `mapstructure:"check_limit"`
	RateWindow       time.Duration `mapstructure:"rate_window"`
	RedisAddr        string        `mapstructure:"redis_addr"`
	RunLocal         bool          `mapstructure:"run_local"`
	ListenAddr       string        `mapstructure:"listen_addr"`
}

// Load reads configuration from PAYFLOW_* environment variables and, when
// present, a payflow.yaml in the working directory. Environment wins.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("payflow")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("orders_table", "payflow-orders")
	v.SetDefault("credentials_table", "payflow-credentials")
	v.SetDefault("vouchers_table", "payflow-vouchers")
	v.SetDefault("settings_table", "payflow-settings")
	v.SetDefault("default_base_price", 20000)
	v.SetDefault("feed_timeout", 10*time.Second)
	v.SetDefault("feed_retries", 3)
	v.SetDefault("order_ttl", 10*time.Minute)
	v.SetDefault("create_limit", 3)
	v.SetDefault("check_limit", 10)
	v.SetDefault("rate_window", time.Minute)
	v.SetDefault("listen_addr", ":8080")

	v.SetConfigName("payflow")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
