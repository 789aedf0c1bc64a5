// internal/common/config/config.go
package config

import (
	"fmt"
	"time"
)

// Config is the main application configuration struct.
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Automation AutomationConfig `mapstructure:"automation"`
	Tasks      TasksConfig      `mapstructure:"tasks"`
	Delivery   DeliveryConfig   `mapstructure:"delivery"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Enabled  bool   `mapstructure:"enabled"`
}

// AutomationConfig holds settings for the notification trigger engine.
type AutomationConfig struct {
	Timezone    string `mapstructure:"timezone"`
	SendDelayMS int    `mapstructure:"send_delay_ms"` // pause between outbound sends
	ClaimTTLMin int    `mapstructure:"claim_ttl_min"` // redis send-claim TTL
	DryRun      bool   `mapstructure:"dry_run"`
}

// SendDelay converts the configured delay to a time.Duration.
func (a AutomationConfig) SendDelay() time.Duration {
	return time.Duration(a.SendDelayMS) * time.Millisecond
}

// ClaimTTL converts the configured claim TTL to a time.Duration.
func (a AutomationConfig) ClaimTTL() time.Duration {
	return time.Duration(a.ClaimTTLMin) * time.Minute
}

// TasksConfig holds settings for the task cascade engine and the
// purchase-order grouping views.
type TasksConfig struct {
	OrderLeadDays     int    `mapstructure:"order_lead_days"`     // supplier order is due this many days before the event
	OrderWindowBefore int    `mapstructure:"order_window_before"` // days before the order day a group becomes visible
	OrderWindowAfter  int    `mapstructure:"order_window_after"`  // days after the event date a group stays visible
	OrderCategory     string `mapstructure:"order_category"`
}

// DeliveryConfig holds settings for the outbound email provider.
type DeliveryConfig struct {
	Provider  string `mapstructure:"provider"` // "ses" or "smtp"
	FromEmail string `mapstructure:"from_email"`

	AWS struct {
		Region string `mapstructure:"region"`
	} `mapstructure:"aws"`

	SMTP struct {
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		Username string `mapstructure:"username"`
		Password string `mapstructure:"password"`
		UseTLS   bool   `mapstructure:"use_tls"`
	} `mapstructure:"smtp"`
}

// MetricsConfig holds the Prometheus endpoint settings.
type MetricsConfig struct {
	Address string `mapstructure:"address"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
