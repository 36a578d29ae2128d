package config

import (
	"log"

	"github.com/spf13/viper"
)

type Config struct {
	DatabaseURL  string             `mapstructure:"database_url"`
	ServerPort   string             `mapstructure:"server_port"`
	Email        EmailConfig        `mapstructure:"email"`
	Invitations  InvitationConfig   `mapstructure:"invitations"`
	Verification VerificationConfig `mapstructure:"verification"`
	Sweep        SweepConfig        `mapstructure:"sweep"`
}

type EmailConfig struct {
	From              string `mapstructure:"from"`
	SMTPHost          string `mapstructure:"smtp_host"`
	SMTPPort          int    `mapstructure:"smtp_port"`
	Username          string `mapstructure:"username"`
	Password          string `mapstructure:"password"`
	InviteURLTemplate string `mapstructure:"invite_url_template"`
}

type InvitationConfig struct {
	ExpiryDays int `mapstructure:"expiry_days"`
	BulkLimit  int `mapstructure:"bulk_limit"`
}

type VerificationConfig struct {
	CodeTTLSeconds        int `mapstructure:"code_ttl_seconds"`
	ResendCooldownSeconds int `mapstructure:"resend_cooldown_seconds"`
}

type SweepConfig struct {
	BatchSize int    `mapstructure:"batch_size"`
	Cron      string `mapstructure:"cron"`
}

// Load reads the configuration from a YAML file and returns a Config instance.
func Load() *Config {
	v := viper.New()

	// Look for config in the current directory and ./config
	v.AddConfigPath(".")
	v.SetConfigName("config")
	v.AddConfigPath("./config")
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		log.Fatalf("Error reading config file: %v", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		log.Fatalf("Error unmarshalling config: %v", err)
	}

	ApplyDefaults(&config)

	if config.DatabaseURL == "" {
		log.Fatal("database_url must be set in the config file")
	}

	return &config
}

// ApplyDefaults fills every unset field with its documented default.
func ApplyDefaults(config *Config) {
	if config.ServerPort == "" {
		config.ServerPort = "8080"
	}
	if config.Email.SMTPPort == 0 {
		config.Email.SMTPPort = 587
	}
	if config.Email.InviteURLTemplate == "" {
		config.Email.InviteURLTemplate = "https://app.hearthshare.com/invites/accept?token=%s"
	}
	if config.Invitations.ExpiryDays == 0 {
		config.Invitations.ExpiryDays = 7
	}
	if config.Invitations.BulkLimit == 0 {
		config.Invitations.BulkLimit = 100
	}
	if config.Verification.CodeTTLSeconds == 0 {
		config.Verification.CodeTTLSeconds = 600
	}
	if config.Verification.ResendCooldownSeconds == 0 {
		config.Verification.ResendCooldownSeconds = 60
	}
	if config.Sweep.BatchSize == 0 {
		config.Sweep.BatchSize = 500
	}
	if config.Sweep.Cron == "" {
		config.Sweep.Cron = "@hourly"
	}
}
