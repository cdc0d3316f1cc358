// Package config loads and validates the audit engine configuration from
// environment variables. All numeric audit parameters are validated here,
// before any stage runs; the engine assumes pre-validated parameters.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	Inputs   InputConfig    `json:"inputs"`
	Matching MatchingConfig `json:"matching"`
	Anomaly  AnomalyConfig  `json:"anomaly"`
	Report   ReportConfig   `json:"report"`
	Database DatabaseConfig `json:"database"`
	Kafka    KafkaConfig    `json:"kafka"`
	Server   ServerConfig   `json:"server"`
	Logging  LoggingConfig  `json:"logging"`
}

// InputConfig locates the five tab-separated input files.
type InputConfig struct {
	VendorFile             string `json:"vendor_file"`
	EmployeeFile           string `json:"employee_file"`
	TerminatedEmployeeFile string `json:"terminated_employee_file"`
	PurchaseOrderFile      string `json:"purchase_order_file"`
	AccessRightsFile       string `json:"access_rights_file"`
}

// MatchingConfig holds candidate-retrieval and scoring parameters.
type MatchingConfig struct {
	// Engine selects the Matcher implementation: "tfidf" or "levenshtein".
	Engine          string `json:"engine"`
	NGramLength     int    `json:"ngram_length"`
	TopK            int    `json:"top_k"`
	Workers         int    `json:"workers"`
	BlockingKeySize int    `json:"blocking_key_size"`

	// CloseMatchThreshold is the similarity above which two sequences
	// count as close matches; 0.6 per the gestalt metric's convention.
	CloseMatchThreshold float64 `json:"close_match_threshold"`
	// VendorCompositeThreshold filters the vendor-vs-vendor composite
	// summary by total similarity score.
	VendorCompositeThreshold float64 `json:"vendor_composite_threshold"`
	// EmployeeCompositeThreshold filters the employee-vs-vendor composite
	// summaries; exact name matches pass regardless.
	EmployeeCompositeThreshold float64 `json:"employee_composite_threshold"`
}

// AnomalyConfig holds the temporal anomaly windows. Weekday numbering is
// 0=Monday through 6=Sunday.
type AnomalyConfig struct {
	WeekendDays   []int `json:"weekend_days"`
	AbnormalHours []int `json:"abnormal_hours"`
}

// ReportConfig holds report output settings.
type ReportConfig struct {
	OutputPath string `json:"output_path"`
}

// DatabaseConfig holds the optional findings-repository settings.
type DatabaseConfig struct {
	Enabled        bool          `json:"enabled"`
	Host           string        `json:"host"`
	Port           int           `json:"port"`
	Database       string        `json:"database"`
	Username       string        `json:"username"`
	Password       string        `json:"password"`
	SSLMode        string        `json:"ssl_mode"`
	MaxConnections int           `json:"max_connections"`
	ConnectTimeout time.Duration `json:"connect_timeout"`
	MigrationsPath string        `json:"migrations_path"`
}

// KafkaConfig holds the optional findings-event publisher settings.
type KafkaConfig struct {
	Enabled      bool          `json:"enabled"`
	Brokers      []string      `json:"brokers"`
	Topic        string        `json:"topic"`
	BatchTimeout time.Duration `json:"batch_timeout"`
}

// ServerConfig holds the metrics/health HTTP listener settings.
type ServerConfig struct {
	Enabled  bool `json:"enabled"`
	HTTPPort int  `json:"http_port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	config := &Config{
		Inputs: InputConfig{
			VendorFile:             getEnvString("VMF_VENDOR_FILE", "VMF_vendor_list.csv"),
			EmployeeFile:           getEnvString("VMF_EMPLOYEE_FILE", "VMF_employee_list.csv"),
			TerminatedEmployeeFile: getEnvString("VMF_TERMINATED_FILE", "VMF_terminated_employees.csv"),
			PurchaseOrderFile:      getEnvString("VMF_PO_FILE", "VMF_po_list.csv"),
			AccessRightsFile:       getEnvString("VMF_ACCESS_RIGHTS_FILE", "VMF_access_rights.csv"),
		},
		Matching: MatchingConfig{
			Engine:                     getEnvString("VMF_MATCH_ENGINE", "tfidf"),
			NGramLength:                getEnvInt("VMF_NGRAM_LENGTH", 3),
			TopK:                       getEnvInt("VMF_TOP_K", 10),
			Workers:                    getEnvInt("VMF_MATCH_WORKERS", 4),
			BlockingKeySize:            getEnvInt("VMF_BLOCKING_KEY_SIZE", 3),
			CloseMatchThreshold:        getEnvFloat("VMF_CLOSE_MATCH_THRESHOLD", 0.6),
			VendorCompositeThreshold:   getEnvFloat("VMF_VENDOR_COMPOSITE_THRESHOLD", 2.0),
			EmployeeCompositeThreshold: getEnvFloat("VMF_EMPLOYEE_COMPOSITE_THRESHOLD", 1.5),
		},
		Anomaly: AnomalyConfig{
			WeekendDays:   getEnvIntSlice("VMF_WEEKEND_DAYS", []int{4, 5}),
			AbnormalHours: getEnvIntSlice("VMF_ABNORMAL_HOURS", []int{20, 5}),
		},
		Report: ReportConfig{
			OutputPath: getEnvString("VMF_REPORT_PATH", "Results/VMF_Analysed.xlsx"),
		},
		Database: DatabaseConfig{
			Enabled:        getEnvBool("VMF_DB_ENABLED", false),
			Host:           getEnvString("VMF_DB_HOST", "localhost"),
			Port:           getEnvInt("VMF_DB_PORT", 5432),
			Database:       getEnvString("VMF_DB_NAME", "vmf_audit"),
			Username:       getEnvString("VMF_DB_USER", "postgres"),
			Password:       getEnvString("VMF_DB_PASSWORD", "password"),
			SSLMode:        getEnvString("VMF_DB_SSL_MODE", "disable"),
			MaxConnections: getEnvInt("VMF_DB_MAX_CONNECTIONS", 10),
			ConnectTimeout: getEnvDuration("VMF_DB_CONNECT_TIMEOUT", 10*time.Second),
			MigrationsPath: getEnvString("VMF_DB_MIGRATIONS_PATH", "file://migrations"),
		},
		Kafka: KafkaConfig{
			Enabled:      getEnvBool("VMF_KAFKA_ENABLED", false),
			Brokers:      getEnvStringSlice("VMF_KAFKA_BROKERS", []string{"localhost:9092"}),
			Topic:        getEnvString("VMF_KAFKA_TOPIC", "vmf.findings"),
			BatchTimeout: getEnvDuration("VMF_KAFKA_BATCH_TIMEOUT", time.Second),
		},
		Server: ServerConfig{
			Enabled:  getEnvBool("VMF_SERVER_ENABLED", false),
			HTTPPort: getEnvInt("VMF_HTTP_PORT", 8080),
		},
		Logging: LoggingConfig{
			Level:  getEnvString("VMF_LOG_LEVEL", "info"),
			Format: getEnvString("VMF_LOG_FORMAT", "json"),
		},
	}

	return config, config.Validate()
}

// Validate validates the configuration, naming the offending parameter.
func (c *Config) Validate() error {
	if c.Matching.Engine != "tfidf" && c.Matching.Engine != "levenshtein" {
		return fmt.Errorf("unknown matching engine %q", c.Matching.Engine)
	}

	if c.Matching.NGramLength < 1 || c.Matching.NGramLength > 6 {
		return fmt.Errorf("n-gram length must be between 1 and 6, got %d", c.Matching.NGramLength)
	}

	if c.Matching.TopK < 1 {
		return fmt.Errorf("top-k must be positive, got %d", c.Matching.TopK)
	}

	if c.Matching.Workers < 1 {
		return fmt.Errorf("matching workers must be positive, got %d", c.Matching.Workers)
	}

	if err := validateWeekendDays(c.Anomaly.WeekendDays); err != nil {
		return err
	}

	if err := ValidateHourWindow(c.Anomaly.AbnormalHours); err != nil {
		return err
	}

	if c.Server.Enabled && (c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535) {
		return fmt.Errorf("invalid HTTP port: %d", c.Server.HTTPPort)
	}

	if c.Database.Enabled && c.Database.Host == "" {
		return fmt.Errorf("database host is required when the findings repository is enabled")
	}

	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("Kafka brokers are required when the findings publisher is enabled")
	}

	return nil
}

func validateWeekendDays(days []int) error {
	if len(days) < 1 || len(days) > 2 {
		return fmt.Errorf("weekend days must list 1 or 2 days, got %d", len(days))
	}
	for _, d := range days {
		if d < 0 || d > 6 {
			return fmt.Errorf("weekend day must be between 0 (Monday) and 6 (Sunday), got %d", d)
		}
	}
	if len(days) == 2 && days[0] == days[1] {
		return fmt.Errorf("weekend days must be distinct, got %d twice", days[0])
	}
	return nil
}

// ValidateHourWindow validates a 1- or 2-hour abnormal-hours window. A
// two-hour window with the second hour before the first is only valid as
// a wrap-around window (first in the PM half, second in the AM half);
// a reversed same-day range is a configuration error, and an equal pair
// collapses to an exact-hour window.
func ValidateHourWindow(hours []int) error {
	if len(hours) < 1 || len(hours) > 2 {
		return fmt.Errorf("abnormal hours must list 1 or 2 hours, got %d", len(hours))
	}
	for _, h := range hours {
		if h < 0 || h > 23 {
			return fmt.Errorf("abnormal hour must be between 0 and 23, got %d", h)
		}
	}
	if len(hours) == 2 && hours[1] < hours[0] {
		if !(hours[0] >= 12 && hours[1] < 12) {
			return fmt.Errorf("hour window (%d, %d) is reversed: only PM-to-AM windows may wrap past midnight", hours[0], hours[1])
		}
	}
	return nil
}

// Helper functions for environment variable parsing

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}

func getEnvIntSlice(key string, defaultValue []int) []int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return defaultValue
		}
		out = append(out, n)
	}
	return out
}
