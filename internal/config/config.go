// Package config provides configuration structures and validation for the
// payment bridge. It handles environment-based configuration for all major
// components including server settings, gateway credentials, database
// connections, messaging and notification parameters.
package config

import (
	"errors"
	"strings"
	"time"
)

// Config holds the complete application configuration with settings for all
// components. Each field represents a major subsystem's configuration and is
// validated during application startup.
type Config struct {
	Application   ApplicationConfig
	Logging       LoggingConfig
	Server        ServerConfig
	Gateway       GatewayConfig
	Webhook       WebhookConfig
	Postgres      PostgresConfig
	MongoDB       MongoDBConfig
	Kafka         KafkaConfig
	Notifications NotificationsConfig
	WorkerPool    WorkerPoolConfig
}

// ApplicationConfig contains general application configuration
type ApplicationConfig struct {
	Env                   string
	Name                  string
	EnableTransactionLogs bool // Persist a transaction log entry for every status update
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level string
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Port            int           // Port to listen on
	ShutdownTimeout time.Duration // Grace period for server shutdown
	ReadTimeout     time.Duration // Maximum duration for reading entire request
	WriteTimeout    time.Duration // Maximum duration for writing response
	IdleTimeout     time.Duration // Maximum duration to wait for next request
}

// GatewayConfig contains the payment gateway connection settings.
// The client ID / secret key pair signs every outbound API call.
type GatewayConfig struct {
	BaseURL         string
	MerchantID      string
	APIKeyID        string
	APISecretKey    string
	Timeout         time.Duration // Per-call timeout, reported as a timeout result rather than an error
	SoftDescriptor  string        // Shown on the shopper's card statement
	Skip3DS         bool
	RequireApproval bool // true = authorize with delayed capture instead of final sale
	ReturnURL       string
	LogBodies       bool // Log request/response bodies with card data masked
}

// WebhookConfig contains inbound webhook verification settings and the
// signing key for redirect return tokens handed to the shopper's browser.
type WebhookConfig struct {
	SharedSecret      string
	ReturnTokenSecret string
	ReturnTokenTTL    time.Duration
}

// PostgresConfig contains PostgreSQL configuration
type PostgresConfig struct {
	URL             string        // Database connection string
	MaxConns        int32         // Maximum number of open connections
	MinConns        int32         // Maximum number of idle connections
	ConnMaxLifetime time.Duration // Maximum lifetime of a connection
	ConnMaxIdleTime time.Duration // Maximum idle time of a connection
	MigrationsPath  string        // Path to migration files
}

// MongoDBConfig contains MongoDB configuration for the transaction log store
type MongoDBConfig struct {
	URI             string
	Database        string
	Timeout         time.Duration
	MaxPoolSize     uint64
	MinPoolSize     uint64
	MaxConnIdleTime time.Duration
}

// KafkaConfig contains the payment event producer configuration
type KafkaConfig struct {
	Brokers           string
	PaymentEventTopic string
	NumPartitions     int // Number of partitions for topics
	ReplicationFactor int // Replication factor for topics
	MaxWait           time.Duration
}

// NotificationsConfig gates which status transition emails are sent and to whom
type NotificationsConfig struct {
	From                string
	SMTPAddr            string
	FraudManagerEmail   string
	SendFraudManager    bool
	SendFraudApproval   bool
	SendPendingApproval bool
	SendPaid            bool
	SendRedirected      bool
	SendWaitingPayment  bool
	SendUnsuccessful    bool
}

// WorkerPoolConfig contains the notification worker pool configuration
type WorkerPoolConfig struct {
	Size int // Maximum number of workers in the pool
}

// validate performs comprehensive validation of all configuration values,
// ensuring they meet minimum requirements and logical constraints
func (c *Config) validate() error {
	var validationErrors []string

	// Validate Server config
	if c.Server.Port <= 0 {
		validationErrors = append(validationErrors, "SERVER_PORT must be greater than 0")
	}
	if c.Server.ShutdownTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_SHUTDOWN_TIMEOUT must be greater than 0")
	}
	if c.Server.ReadTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_READ_TIMEOUT must be greater than 0")
	}
	if c.Server.WriteTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_WRITE_TIMEOUT must be greater than 0")
	}
	if c.Server.IdleTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_IDLE_TIMEOUT must be greater than 0")
	}

	// Validate Gateway config
	if c.Gateway.BaseURL == "" {
		validationErrors = append(validationErrors, "GATEWAY_BASE_URL is required")
	}
	if c.Gateway.MerchantID == "" {
		validationErrors = append(validationErrors, "GATEWAY_MERCHANT_ID is required")
	}
	if c.Gateway.APIKeyID == "" {
		validationErrors = append(validationErrors, "GATEWAY_API_KEY_ID is required")
	}
	if c.Gateway.APISecretKey == "" {
		validationErrors = append(validationErrors, "GATEWAY_API_SECRET_KEY is required")
	}
	if c.Gateway.Timeout <= 0 {
		validationErrors = append(validationErrors, "GATEWAY_TIMEOUT must be greater than 0")
	}
	if c.Gateway.ReturnURL == "" {
		validationErrors = append(validationErrors, "GATEWAY_RETURN_URL is required")
	}

	// Validate Webhook config
	if c.Webhook.SharedSecret == "" {
		validationErrors = append(validationErrors, "WEBHOOK_SHARED_SECRET is required")
	}
	if c.Webhook.ReturnTokenSecret == "" {
		validationErrors = append(validationErrors, "WEBHOOK_RETURN_TOKEN_SECRET is required")
	}
	if c.Webhook.ReturnTokenTTL <= 0 {
		validationErrors = append(validationErrors, "WEBHOOK_RETURN_TOKEN_TTL must be greater than 0")
	}

	// Validate PostgreSQL config
	if c.Postgres.URL == "" {
		validationErrors = append(validationErrors, "POSTGRES_URL is required")
	}
	if c.Postgres.MaxConns <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONNS must be greater than 0")
	}
	if c.Postgres.MinConns <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MIN_CONNS must be greater than 0")
	}
	if c.Postgres.ConnMaxLifetime <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_LIFETIME must be greater than 0")
	}
	if c.Postgres.ConnMaxIdleTime <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_IDLE_TIME must be greater than 0")
	}

	// Validate MongoDB config
	if c.MongoDB.URI == "" {
		validationErrors = append(validationErrors, "MONGO_URI is required")
	}
	if c.MongoDB.Database == "" {
		validationErrors = append(validationErrors, "MONGO_DATABASE is required")
	}
	if c.MongoDB.Timeout <= 0 {
		validationErrors = append(validationErrors, "MONGO_TIMEOUT must be greater than 0")
	}
	if c.MongoDB.MaxPoolSize <= 0 {
		validationErrors = append(validationErrors, "MONGO_MAX_POOL_SIZE must be greater than 0")
	}
	if c.MongoDB.MinPoolSize <= 0 {
		validationErrors = append(validationErrors, "MONGO_MIN_POOL_SIZE must be greater than 0")
	}
	if c.MongoDB.MaxConnIdleTime <= 0 {
		validationErrors = append(validationErrors, "MONGO_MAX_CONN_IDLE_TIME must be greater than 0")
	}

	// Validate Kafka config
	if len(c.Kafka.Brokers) == 0 {
		validationErrors = append(validationErrors, "KAFKA_BROKERS is required")
	}
	if c.Kafka.PaymentEventTopic == "" {
		validationErrors = append(validationErrors, "KAFKA_PAYMENT_EVENT_TOPIC is required")
	}
	if c.Kafka.MaxWait <= 0 {
		validationErrors = append(validationErrors, "KAFKA_MAX_WAIT must be greater than 0")
	}

	// Validate Notifications config
	if c.Notifications.From == "" {
		validationErrors = append(validationErrors, "NOTIFY_FROM_ADDRESS is required")
	}
	if c.Notifications.SMTPAddr == "" {
		validationErrors = append(validationErrors, "NOTIFY_SMTP_ADDR is required")
	}
	if c.Notifications.SendFraudManager && c.Notifications.FraudManagerEmail == "" {
		validationErrors = append(validationErrors, "NOTIFY_FRAUD_MANAGER_EMAIL is required when NOTIFY_SEND_FRAUD_MANAGER is enabled")
	}

	// Validate WorkerPool config
	if c.WorkerPool.Size <= 0 {
		validationErrors = append(validationErrors, "WORKER_POOL_SIZE must be greater than 0")
	}

	if len(validationErrors) > 0 {
		return errors.New(strings.Join(validationErrors, ", "))
	}

	return nil
}
