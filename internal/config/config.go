package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the full service configuration
type Config struct {
	Port     int
	LogLevel string
	Env      string
	DB       DBConfig
	Kafka    KafkaConfig
	Twilio   TwilioConfig
	Composer ComposerConfig
	Reminder ReminderConfig
}

// DBConfig holds the database configuration
type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// KafkaConfig holds the event stream configuration
type KafkaConfig struct {
	Brokers       []string
	EventsTopic   string
	ConsumerGroup string
}

// TwilioConfig is the bootstrap messaging gateway configuration; the
// operator can override it at runtime through the settings endpoint.
type TwilioConfig struct {
	AccountSid string
	AuthToken  string
	FromNumber string
	Enabled    bool
}

// ComposerConfig points at the remote message composition service
type ComposerConfig struct {
	BaseURL string
	APIKey  string
}

// ReminderConfig tunes the automatic reminder scheduler
type ReminderConfig struct {
	ScanInterval time.Duration
	SendTimeout  time.Duration
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}

	return defaultValue
}

// Load reads the configuration from environment variables
func Load() (*Config, error) {
	port, err := strconv.Atoi(getEnv("PORT", "8080"))

	if err != nil {
		return nil, fmt.Errorf("invalid port: %w", err)
	}

	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))

	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	scanInterval, err := time.ParseDuration(getEnv("REMINDER_SCAN_INTERVAL", "5m"))

	if err != nil {
		return nil, fmt.Errorf("invalid REMINDER_SCAN_INTERVAL: %w", err)
	}

	sendTimeout, err := time.ParseDuration(getEnv("REMINDER_SEND_TIMEOUT", "10s"))

	if err != nil {
		return nil, fmt.Errorf("invalid REMINDER_SEND_TIMEOUT: %w", err)
	}

	return &Config{
		Port:     port,
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Env:      getEnv("APP_ENV", "development"),
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			Name:     getEnv("DB_NAME", "laundrypos"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Kafka: KafkaConfig{
			Brokers:       strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
			EventsTopic:   getEnv("KAFKA_EVENTS_TOPIC", "laundry.order-events"),
			ConsumerGroup: getEnv("KAFKA_CONSUMER_GROUP", "laundry-pos"),
		},
		Twilio: TwilioConfig{
			AccountSid: getEnv("TWILIO_ACCOUNT_SID", ""),
			AuthToken:  getEnv("TWILIO_AUTH_TOKEN", ""),
			FromNumber: getEnv("TWILIO_FROM_NUMBER", ""),
			Enabled:    getEnv("TWILIO_ENABLED", "false") == "true",
		},
		Composer: ComposerConfig{
			BaseURL: getEnv("COMPOSER_BASE_URL", ""),
			APIKey:  getEnv("COMPOSER_API_KEY", ""),
		},
		Reminder: ReminderConfig{
			ScanInterval: scanInterval,
			SendTimeout:  sendTimeout,
		},
	}, nil
}

// GetDBConnString returns the database connection string
func (c *Config) GetDBConnString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host, c.DB.Port, c.DB.User, c.DB.Password, c.DB.Name, c.DB.SSLMode)
}
