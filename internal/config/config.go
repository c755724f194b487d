package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Backup     BackupConfig     `yaml:"backup"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	API        APIConfig        `yaml:"api"`
	Google     GoogleConfig     `yaml:"google"`
	Sync       SyncConfig       `yaml:"sync"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	Exports    ExportConfig     `yaml:"exports"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	RetentionDays int    `yaml:"retention_days"`
	StoragePath   string `yaml:"storage_path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type APIConfig struct {
	Port      int                `yaml:"port"`
	Auth      APIAuthConfig      `yaml:"auth"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
}

type APIAuthConfig struct {
	HeaderAPIKey string         `yaml:"header_api_key"`
	APIKeys      []APIClientKey `yaml:"api_keys"`
}

// APIClientKey identifies one back-office client. Empty Permissions
// means allow-all (an administrator key).
type APIClientKey struct {
	Key         string   `yaml:"key"`
	Name        string   `yaml:"name"`
	Permissions []string `yaml:"permissions"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type GoogleConfig struct {
	CredentialsFile string `yaml:"credentials_file"`
	SpreadsheetID   string `yaml:"spreadsheet_id"`
	// Sheet tab names per synced model; empty disables that model.
	RequestsSheet string `yaml:"requests_sheet"`
	CostsSheet    string `yaml:"costs_sheet"`
	RevenuesSheet string `yaml:"revenues_sheet"`
	// Sheets API writes per second, to stay inside quota.
	WriteRPS float64 `yaml:"write_rps"`
}

type SyncConfig struct {
	// Shared secret for the scheduler trigger (Authorization: Bearer ...).
	CronSecret string `yaml:"cron_secret"`
	BatchSize  int    `yaml:"batch_size"`
	MaxBatches int    `yaml:"max_batches"`
	MaxRetries int    `yaml:"max_retries"`
	// Items stuck in processing longer than this are reclaimed.
	StuckTimeoutMinutes int `yaml:"stuck_timeout_minutes"`
	// Completed items older than this are purged during maintenance.
	RetentionDays int    `yaml:"retention_days"`
	DeadLetterKey string `yaml:"dead_letter_key"`
}

type TelegramConfig struct {
	Enabled  bool    `yaml:"enabled"`
	BotToken string  `yaml:"bot_token"`
	ChatIDs  []int64 `yaml:"chat_ids"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

func Load(configPath string) (*Config, error) {
	// .env is optional; env vars referenced in the yaml must exist either way.
	_ = godotenv.Load(".env")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}
	if c.Sync.CronSecret == "" {
		return errors.New("sync cron secret is required")
	}
	if c.Google.SpreadsheetID == "" {
		return errors.New("google spreadsheet id is required")
	}
	if c.Telegram.Enabled && c.Telegram.BotToken == "" {
		return errors.New("telegram bot token is required when notifications are enabled")
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.API.Port == 0 {
		c.API.Port = 8080
	}
	if c.API.Auth.HeaderAPIKey == "" {
		c.API.Auth.HeaderAPIKey = "X-Api-Key"
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}

	if c.Sync.BatchSize == 0 {
		c.Sync.BatchSize = 25
	}
	if c.Sync.MaxBatches == 0 {
		c.Sync.MaxBatches = 4
	}
	if c.Sync.MaxRetries == 0 {
		c.Sync.MaxRetries = 5
	}
	if c.Sync.StuckTimeoutMinutes == 0 {
		c.Sync.StuckTimeoutMinutes = 10
	}
	if c.Sync.RetentionDays == 0 {
		c.Sync.RetentionDays = 30
	}
	if c.Sync.DeadLetterKey == "" {
		c.Sync.DeadLetterKey = "sync:deadletter"
	}

	if c.Google.RequestsSheet == "" {
		c.Google.RequestsSheet = "Requests"
	}
	if c.Google.CostsSheet == "" {
		c.Google.CostsSheet = "Costs"
	}
	if c.Google.RevenuesSheet == "" {
		c.Google.RevenuesSheet = "Revenues"
	}
	if c.Google.WriteRPS == 0 {
		c.Google.WriteRPS = 1
	}

	if c.Backup.RetentionDays == 0 {
		c.Backup.RetentionDays = 14
	}
	if c.Exports.Path == "" {
		c.Exports.Path = "exports"
	}
}

// StuckTimeout returns the reclaim threshold as a duration.
func (c SyncConfig) StuckTimeout() time.Duration {
	return time.Duration(c.StuckTimeoutMinutes) * time.Minute
}
