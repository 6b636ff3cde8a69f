package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all automation configuration
type Config struct {
	Handler   string
	AWS       AWSConfig
	Scheduler SchedulerConfig
	AutoTag   AutoTagConfig
	Archive   ArchiveConfig
	Cleaner   CleanerConfig
	Notifier  NotifierConfig
	Logging   LoggingConfig
	Metrics   MetricsConfig
	Server    ServerConfig
}

// AWSConfig contains provider connection settings
type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	// EndpointURL points the SDK at a local emulator when set.
	EndpointURL string
}

// SchedulerConfig contains the tag-driven stop/start settings
type SchedulerConfig struct {
	TagKey     string
	StopValue  string
	StartValue string
}

// AutoTagConfig contains the launch tagging settings
type AutoTagConfig struct {
	Owner  string
	States []string
}

// ArchiveConfig contains the termination archive settings
type ArchiveConfig struct {
	Bucket string
	States []string
}

// CleanerConfig contains the log bucket retention settings
type CleanerConfig struct {
	Bucket        string
	Prefix        string
	RetentionDays int
}

// NotifierConfig contains the state change notification settings
type NotifierConfig struct {
	TopicARN string
	Subject  string
	// States is empty when every state should be published.
	States []string
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string
	Format string // json or console
}

// MetricsConfig contains prometheus settings
type MetricsConfig struct {
	PushgatewayURL string
	Job            string
	// Instance is the Pushgateway grouping key. Inside Lambda it defaults
	// to the container's log stream name.
	Instance string
}

// ServerConfig contains the local invoke server configuration
type ServerConfig struct {
	Host              string
	Port              int
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	RequestsPerSecond float64
	Burst             int
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// .env is optional; Lambda never ships one.
	_ = godotenv.Load()

	cfg := &Config{
		Handler: getEnv("AUTOMATION_HANDLER", os.Getenv("_HANDLER")),
		AWS: AWSConfig{
			Region:          getEnv("AWS_REGION", "us-east-1"),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			SessionToken:    getEnv("AWS_SESSION_TOKEN", ""),
			EndpointURL:     getEnv("AWS_ENDPOINT_URL", ""),
		},
		Scheduler: SchedulerConfig{
			TagKey:     getEnv("ACTION_TAG_KEY", "Action"),
			StopValue:  getEnv("AUTO_STOP_VALUE", "Auto-Stop"),
			StartValue: getEnv("AUTO_START_VALUE", "Auto-Start"),
		},
		AutoTag: AutoTagConfig{
			Owner:  getEnv("AUTO_TAG_OWNER", "AutoTagging"),
			States: getEnvAsList("AUTO_TAG_STATES", []string{"pending", "running"}),
		},
		Archive: ArchiveConfig{
			Bucket: getEnv("ARCHIVE_BUCKET", "ec2-instance-state-backup"),
			States: getEnvAsList("ARCHIVE_STATES", []string{"shutting-down", "terminated"}),
		},
		Cleaner: CleanerConfig{
			Bucket:        getEnv("BUCKET_NAME", ""),
			Prefix:        getEnv("LOG_PREFIX", ""),
			RetentionDays: getEnvAsInt("RETENTION_DAYS", 90),
		},
		Notifier: NotifierConfig{
			TopicARN: getEnv("STATE_TOPIC_ARN", ""),
			Subject:  getEnv("NOTIFY_SUBJECT", "EC2 State Change Notification"),
			States:   getEnvAsList("NOTIFY_STATES", nil),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Metrics: MetricsConfig{
			PushgatewayURL: getEnv("METRICS_PUSHGATEWAY_URL", ""),
			Job:            getEnv("METRICS_JOB", "ec2-automations"),
			Instance:       getEnv("METRICS_INSTANCE", ""),
		},
		Server: ServerConfig{
			Host:              getEnv("SERVER_HOST", "127.0.0.1"),
			Port:              getEnvAsInt("SERVER_PORT", 9000),
			ReadTimeout:       getEnvAsDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:      getEnvAsDuration("SERVER_WRITE_TIMEOUT", 60*time.Second),
			RequestsPerSecond: getEnvAsFloat("SERVER_RATE_LIMIT", 10),
			Burst:             getEnvAsInt("SERVER_RATE_BURST", 20),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks settings shared by every handler. Handler specific
// requirements (bucket, topic) are checked when the handler is built.
func (c *Config) Validate() error {
	if c.Cleaner.RetentionDays < 1 {
		return fmt.Errorf("RETENTION_DAYS must be at least 1, got %d", c.Cleaner.RetentionDays)
	}

	if c.Scheduler.TagKey == "" {
		return fmt.Errorf("ACTION_TAG_KEY must not be empty")
	}

	if c.Scheduler.StopValue == "" || c.Scheduler.StartValue == "" {
		return fmt.Errorf("AUTO_STOP_VALUE and AUTO_START_VALUE must not be empty")
	}

	if c.Scheduler.StopValue == c.Scheduler.StartValue {
		return fmt.Errorf("AUTO_STOP_VALUE and AUTO_START_VALUE must differ, both are %q", c.Scheduler.StopValue)
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("unsupported log format: %s", c.Logging.Format)
	}

	return nil
}

// Retention returns the cleaner retention window as a duration
func (c CleanerConfig) Retention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsList splits a comma separated value, dropping blanks.
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
