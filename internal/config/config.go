// Package config loads process configuration from environment variables.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP server
	Port string

	// Storage backend selection: "memory" or "sqlite"
	StoreBackend string
	SQLiteDBPath string

	// AMQP. Empty URL disables eventing.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Ledger policy and behavior
	ExpensePolicy string
	LedgerRetries int

	// Worker
	ReconcileInterval time.Duration

	// Google Sheets audit trail; empty spreadsheet id disables it
	GoogleSpreadsheetID  string
	GoogleAuditSheetName string

	// Logging
	LogFormat string
	LogLevel  string
}

func Load() *Config {
	return &Config{
		Port: getEnv("PORT", "8080"),

		StoreBackend: getEnv("STORE_BACKEND", "sqlite"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/messbook.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "messbook"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_events"),

		ExpensePolicy: getEnv("EXPENSE_POLICY", "admin"),
		LedgerRetries: getEnvInt("LEDGER_RETRIES", 3),

		ReconcileInterval: getEnvDuration("RECONCILE_INTERVAL", 15*time.Minute),

		GoogleSpreadsheetID:  getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleAuditSheetName: getEnv("GOOGLE_AUDIT_SHEET_NAME", "Audit"),

		LogFormat: getEnv("LOG_FORMAT", "text"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
	}
}

// Validate checks the configuration and returns all problems at once.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.StoreBackend {
	case "memory":
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid store backend '%s': must be one of [memory sqlite]", c.StoreBackend))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.ExpensePolicy != "admin" && c.ExpensePolicy != "member" {
		errors = append(errors, fmt.Sprintf("invalid expense policy '%s': must be 'admin' or 'member'", c.ExpensePolicy))
	}

	if c.LedgerRetries < 0 {
		errors = append(errors, fmt.Sprintf("invalid ledger retries %d: must not be negative", c.LedgerRetries))
	} else if c.LedgerRetries > 100 {
		errors = append(errors, fmt.Sprintf("invalid ledger retries %d: must be at most 100", c.LedgerRetries))
	}

	if c.ReconcileInterval != 0 {
		if c.ReconcileInterval < time.Second {
			errors = append(errors, fmt.Sprintf("invalid reconcile interval %v: must be at least 1 second", c.ReconcileInterval))
		} else if c.ReconcileInterval > 24*time.Hour {
			errors = append(errors, fmt.Sprintf("invalid reconcile interval %v: must be at most 24 hours", c.ReconcileInterval))
		}
	}

	switch c.LogFormat {
	case "text", "json", "dev":
	default:
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be one of [text json dev]", c.LogFormat))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
