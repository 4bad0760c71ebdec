// Package config provides configuration management for the helpdesk triage service.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// SSL mode constants for database connections.
const (
	// SSLModeDisable disables SSL (use only for local development).
	SSLModeDisable = "disable"
	// SSLModeRequire requires SSL but does not verify certificates.
	SSLModeRequire = "require"
	// SSLModeVerifyCA verifies the server certificate against a CA.
	SSLModeVerifyCA = "verify-ca"
	// SSLModeVerifyFull verifies the server certificate and hostname.
	SSLModeVerifyFull = "verify-full"
)

// Notification transports.
const (
	TransportLog  = "log"
	TransportSMTP = "smtp"
)

// Config holds all configuration for the helpdesk triage service.
type Config struct {
	// Server contains HTTP/gRPC server settings.
	Server ServerConfig `mapstructure:"server"`
	// Database contains PostgreSQL connection settings.
	Database DatabaseConfig `mapstructure:"database"`
	// Temporal contains Temporal workflow orchestration settings.
	Temporal TemporalConfig `mapstructure:"temporal"`
	// Logging contains structured logging settings.
	Logging LoggingConfig `mapstructure:"logging"`
	// Metrics contains Prometheus metrics exposure settings.
	Metrics MetricsConfig `mapstructure:"metrics"`
	// LLM contains the ticket classifier settings.
	LLM LLMConfig `mapstructure:"llm"`
	// Triage contains pipeline behavior settings.
	Triage TriageConfig `mapstructure:"triage"`
	// Kafka contains intake consumer and event publisher settings.
	Kafka KafkaConfig `mapstructure:"kafka"`
	// Redis contains notification dedupe store settings.
	Redis RedisConfig `mapstructure:"redis"`
	// Notification contains outbound mail settings.
	Notification NotificationConfig `mapstructure:"notification"`
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	// Host is the address to bind the server to (default: 0.0.0.0).
	Host string `mapstructure:"host"`
	// HTTPPort is the HTTP server port (default: 8080).
	HTTPPort int `mapstructure:"http_port"`
	// GRPCPort is the gRPC health server port (default: 9090).
	GRPCPort int `mapstructure:"grpc_port"`
	// MetricsPort is the metrics server port (default: 9091).
	MetricsPort int `mapstructure:"metrics_port"`
	// ReadTimeout is the maximum duration for reading request body.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout is the maximum duration for writing response.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	User string `mapstructure:"user"`
	// Password is loaded from TRIAGE_DATABASE_PASSWORD only.
	Password string `mapstructure:"-"`
	Name     string `mapstructure:"name"`
	// SSLMode controls SSL connection security (require, verify-ca, verify-full, disable).
	SSLMode           string        `mapstructure:"ssl_mode"`
	MaxConns          int32         `mapstructure:"max_conns"`
	MinConns          int32         `mapstructure:"min_conns"`
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
	ConnectTimeout    time.Duration `mapstructure:"connect_timeout"`
	// StartupWait bounds how long New keeps retrying the first ping while
	// Postgres comes up. Zero means a single attempt.
	StartupWait time.Duration `mapstructure:"startup_wait"`
	// MigrationPath is a directory of migration files. Empty uses the
	// migrations compiled into the binary.
	MigrationPath string `mapstructure:"migration_path"`
	// MigrationAutoRun applies pending migrations when the server starts.
	MigrationAutoRun bool `mapstructure:"migration_auto_run"`
}

// TemporalConfig holds Temporal workflow configuration.
type TemporalConfig struct {
	// HostPort is the Temporal server address.
	HostPort string `mapstructure:"host_port"`
	// Namespace is the Temporal namespace.
	Namespace string `mapstructure:"namespace"`
	// TaskQueue is the task queue shared by the triage and welcome workflows.
	TaskQueue string `mapstructure:"task_queue"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	AddSource  bool   `mapstructure:"add_source"`
	TimeFormat string `mapstructure:"time_format"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	// Enabled enables metrics collection and exposure.
	Enabled bool `mapstructure:"enabled"`
	// Path is the HTTP path for metrics endpoint.
	Path string `mapstructure:"path"`
	// Namespace prefixes every metric name.
	Namespace string `mapstructure:"namespace"`
}

// LLMConfig holds classifier settings.
type LLMConfig struct {
	// Provider selects the backend ("openai" or "anthropic").
	Provider string `mapstructure:"provider"`
	// Timeout bounds a single classifier HTTP call.
	Timeout time.Duration `mapstructure:"timeout"`
	// MaxRetries is the number of extra attempts on transient transport errors.
	MaxRetries int `mapstructure:"max_retries"`
	// RetryDelay is the initial backoff between attempts.
	RetryDelay time.Duration `mapstructure:"retry_delay"`
	// MaxRetryDelay caps the backoff between attempts.
	MaxRetryDelay time.Duration `mapstructure:"max_retry_delay"`
	Temperature   float64       `mapstructure:"temperature"`
	MaxTokens     int           `mapstructure:"max_tokens"`
	// RateLimitRPS caps classifier calls per second per worker (0 disables).
	RateLimitRPS   float64         `mapstructure:"rate_limit_rps"`
	RateLimitBurst int             `mapstructure:"rate_limit_burst"`
	OpenAI         OpenAIConfig    `mapstructure:"openai"`
	Anthropic      AnthropicConfig `mapstructure:"anthropic"`
}

// OpenAIConfig holds OpenAI-specific settings.
type OpenAIConfig struct {
	// APIKey is loaded from TRIAGE_LLM_OPENAI_API_KEY or OPENAI_API_KEY.
	APIKey  string `mapstructure:"-"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

// AnthropicConfig holds Anthropic-specific settings.
type AnthropicConfig struct {
	// APIKey is loaded from TRIAGE_LLM_ANTHROPIC_API_KEY or ANTHROPIC_API_KEY.
	APIKey  string `mapstructure:"-"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

// TriageConfig holds pipeline behavior settings.
type TriageConfig struct {
	// FallbackMode is "sentinel" or "keyword".
	FallbackMode string `mapstructure:"fallback_mode"`
	// StepMaxAttempts is the Temporal retry limit applied to each pipeline step.
	StepMaxAttempts int32 `mapstructure:"step_max_attempts"`
	// StepTimeout is the start-to-close timeout for store and notification steps.
	StepTimeout time.Duration `mapstructure:"step_timeout"`
	// ClassifyTimeout is the start-to-close timeout for the classification step.
	ClassifyTimeout time.Duration `mapstructure:"classify_timeout"`
	// NotifyEnabled turns assignment and welcome mail on or off.
	NotifyEnabled bool `mapstructure:"notify_enabled"`
}

// KafkaConfig holds Kafka settings.
type KafkaConfig struct {
	// Enabled turns on the intake consumer and the event publisher.
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	// IntakeTopic carries ticket.created and user.signed_up events.
	IntakeTopic string `mapstructure:"intake_topic"`
	GroupID     string `mapstructure:"group_id"`
	// EventsTopic receives triage outcome events.
	EventsTopic  string        `mapstructure:"events_topic"`
	BatchSize    int           `mapstructure:"batch_size"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
}

// RedisConfig holds Redis settings.
type RedisConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
	// Password is loaded from TRIAGE_REDIS_PASSWORD only.
	Password string `mapstructure:"-"`
	DB       int    `mapstructure:"db"`
	// DedupeTTL is how long a sent notification suppresses repeats.
	DedupeTTL time.Duration `mapstructure:"dedupe_ttl"`
}

// NotificationConfig holds outbound mail settings.
type NotificationConfig struct {
	// Transport is "log" or "smtp".
	Transport    string `mapstructure:"transport"`
	SMTPHost     string `mapstructure:"smtp_host"`
	SMTPPort     int    `mapstructure:"smtp_port"`
	SMTPUsername string `mapstructure:"smtp_username"`
	// SMTPPassword is loaded from TRIAGE_NOTIFICATION_SMTP_PASSWORD only.
	SMTPPassword string `mapstructure:"-"`
	FromAddress  string `mapstructure:"from_address"`
	// Timeout bounds a single send.
	Timeout time.Duration `mapstructure:"timeout"`
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	params := url.Values{}
	params.Set("sslmode", c.SSLMode)
	if c.ConnectTimeout > 0 {
		params.Set("connect_timeout", fmt.Sprintf("%d", int(c.ConnectTimeout.Seconds())))
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?%s",
		url.QueryEscape(c.User),
		url.QueryEscape(c.Password),
		c.Host,
		c.Port,
		c.Name,
		params.Encode(),
	)
}

// HTTPAddress returns the HTTP server address.
func (c *ServerConfig) HTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HTTPPort)
}

// GRPCAddress returns the gRPC server address.
func (c *ServerConfig) GRPCAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.GRPCPort)
}

// MetricsAddress returns the metrics server address.
func (c *ServerConfig) MetricsAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.MetricsPort)
}

// SMTPAddress returns host:port of the mail relay.
func (c *NotificationConfig) SMTPAddress() string {
	return fmt.Sprintf("%s:%d", c.SMTPHost, c.SMTPPort)
}

// Load loads configuration from a local .env file, environment variables,
// and an optional config file.
func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("TRIAGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/helpdesk-triage")

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	loadSecrets(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadSecrets populates secret fields exclusively from environment variables.
// These fields are tagged with mapstructure:"-" to prevent loading from config files.
func loadSecrets(cfg *Config) {
	cfg.Database.Password = os.Getenv("TRIAGE_DATABASE_PASSWORD")
	cfg.LLM.OpenAI.APIKey = firstEnv("TRIAGE_LLM_OPENAI_API_KEY", "OPENAI_API_KEY")
	cfg.LLM.Anthropic.APIKey = firstEnv("TRIAGE_LLM_ANTHROPIC_API_KEY", "ANTHROPIC_API_KEY")
	cfg.Redis.Password = os.Getenv("TRIAGE_REDIS_PASSWORD")
	cfg.Notification.SMTPPassword = os.Getenv("TRIAGE_NOTIFICATION_SMTP_PASSWORD")
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.grpc_port", 9090)
	v.SetDefault("server.metrics_port", 9091)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "30s")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "triage")
	v.SetDefault("database.name", "helpdesk_triage")
	// Use TRIAGE_DATABASE_SSL_MODE=disable for local development.
	v.SetDefault("database.ssl_mode", SSLModeRequire)
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")
	v.SetDefault("database.health_check_period", "30s")
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.startup_wait", "30s")
	v.SetDefault("database.migration_path", "")
	v.SetDefault("database.migration_auto_run", false)

	// Temporal defaults
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "helpdesk-triage")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.namespace", "helpdesk_triage")

	// LLM defaults
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.timeout", "30s")
	v.SetDefault("llm.max_retries", 2)
	v.SetDefault("llm.retry_delay", "500ms")
	v.SetDefault("llm.max_retry_delay", "5s")
	v.SetDefault("llm.temperature", 0.2)
	v.SetDefault("llm.max_tokens", 1024)
	v.SetDefault("llm.rate_limit_rps", 5.0)
	v.SetDefault("llm.rate_limit_burst", 10)
	v.SetDefault("llm.openai.model", "gpt-4o")
	v.SetDefault("llm.openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.anthropic.model", "claude-3-5-haiku-latest")
	v.SetDefault("llm.anthropic.base_url", "")

	// Triage defaults
	v.SetDefault("triage.fallback_mode", "sentinel")
	v.SetDefault("triage.step_max_attempts", 3)
	v.SetDefault("triage.step_timeout", "30s")
	v.SetDefault("triage.classify_timeout", "2m")
	v.SetDefault("triage.notify_enabled", true)

	// Kafka defaults
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.intake_topic", "helpdesk.events")
	v.SetDefault("kafka.group_id", "helpdesk-triage")
	v.SetDefault("kafka.events_topic", "helpdesk.triage")
	v.SetDefault("kafka.batch_size", 100)
	v.SetDefault("kafka.batch_timeout", "10ms")

	// Redis defaults
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.dedupe_ttl", "24h")

	// Notification defaults
	v.SetDefault("notification.transport", TransportLog)
	v.SetDefault("notification.smtp_host", "localhost")
	v.SetDefault("notification.smtp_port", 587)
	v.SetDefault("notification.smtp_username", "")
	v.SetDefault("notification.from_address", "helpdesk@example.com")
	v.SetDefault("notification.timeout", "10s")
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	// Validate server ports
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.Server.HTTPPort)
	}
	if c.Server.GRPCPort <= 0 || c.Server.GRPCPort > 65535 {
		return fmt.Errorf("invalid gRPC port: %d", c.Server.GRPCPort)
	}
	if c.Server.MetricsPort <= 0 || c.Server.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics port: %d", c.Server.MetricsPort)
	}

	// Validate database config
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		return fmt.Errorf("invalid database port: %d", c.Database.Port)
	}
	if c.Database.Name == "" {
		return fmt.Errorf("database name is required")
	}
	if c.Database.MaxConns < c.Database.MinConns {
		return fmt.Errorf("max_conns (%d) must be >= min_conns (%d)", c.Database.MaxConns, c.Database.MinConns)
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	if c.Temporal.TaskQueue == "" {
		return fmt.Errorf("temporal task queue is required")
	}

	// Validate triage config
	switch strings.ToLower(c.Triage.FallbackMode) {
	case "", "sentinel", "keyword":
	default:
		return fmt.Errorf("invalid triage fallback mode: %s", c.Triage.FallbackMode)
	}
	if c.Triage.StepMaxAttempts <= 0 {
		return fmt.Errorf("triage step_max_attempts must be positive")
	}

	// A missing API key is not fatal: every classification then fails over
	// to the fallback result, which keeps intake working without an LLM.
	switch strings.ToLower(c.LLM.Provider) {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("unsupported LLM provider: %q", c.LLM.Provider)
	}
	if c.LLM.Timeout <= 0 {
		return fmt.Errorf("LLM timeout must be positive")
	}

	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka brokers are required when kafka is enabled")
		}
		if c.Kafka.IntakeTopic == "" {
			return fmt.Errorf("kafka intake topic is required when kafka is enabled")
		}
	}

	switch c.Notification.Transport {
	case TransportLog:
	case TransportSMTP:
		if c.Notification.SMTPHost == "" {
			return fmt.Errorf("smtp host is required for smtp transport")
		}
		if c.Notification.FromAddress == "" {
			return fmt.Errorf("from address is required for smtp transport")
		}
	default:
		return fmt.Errorf("invalid notification transport: %s", c.Notification.Transport)
	}

	return nil
}
