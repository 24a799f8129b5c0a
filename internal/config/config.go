package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Dashboard app server
	Port        string
	CacheDBPath string

	// Remote sync endpoint
	RemoteURL     string
	RemoteTimeout time.Duration
	ProbeInterval time.Duration

	// Remote store service (syncd)
	SyncdPort   string
	StoreDBPath string

	// AMQP notifications (optional, syncd)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets mirror (optional, syncd)
	GoogleSpreadsheetID string
	GoogleSheetName     string
}

func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		CacheDBPath: getEnv("CACHE_DB_PATH", "./data/despesas-cache.db"),

		RemoteURL:     getEnv("REMOTE_URL", "http://localhost:8081"),
		RemoteTimeout: getEnvDuration("REMOTE_TIMEOUT", 10*time.Second),
		ProbeInterval: getEnvDuration("PROBE_INTERVAL", 30*time.Second),

		SyncdPort:   getEnv("SYNCD_PORT", "8081"),
		StoreDBPath: getEnv("STORE_DB_PATH", "./data/despesas-store.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "despesas"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "snapshot_applied"),

		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:     getEnv("GOOGLE_SHEET_NAME", ""),
	}
}

// Validate checks the configuration, collecting every problem instead of
// stopping at the first.
func (c *Config) Validate() error {
	var errs []string

	for _, p := range []struct{ name, value string }{
		{"port", c.Port},
		{"syncd port", c.SyncdPort},
	} {
		if port, err := strconv.Atoi(p.value); err != nil {
			errs = append(errs, fmt.Sprintf("invalid %s '%s': must be a number", p.name, p.value))
		} else if port < 1 || port > 65535 {
			errs = append(errs, fmt.Sprintf("invalid %s %d: must be between 1 and 65535", p.name, port))
		}
	}

	if c.CacheDBPath == "" {
		errs = append(errs, "cache database path cannot be empty")
	}
	if c.StoreDBPath == "" {
		errs = append(errs, "store database path cannot be empty")
	}

	if c.RemoteURL == "" {
		errs = append(errs, "remote URL cannot be empty")
	} else if parsed, err := url.Parse(c.RemoteURL); err != nil {
		errs = append(errs, fmt.Sprintf("invalid remote URL '%s': %v", c.RemoteURL, err))
	} else if parsed.Scheme != "http" && parsed.Scheme != "https" {
		errs = append(errs, fmt.Sprintf("invalid remote URL scheme '%s': must be 'http' or 'https'", parsed.Scheme))
	}

	if c.RemoteTimeout < time.Second {
		errs = append(errs, fmt.Sprintf("invalid remote timeout %v: must be at least 1 second", c.RemoteTimeout))
	}
	if c.ProbeInterval < time.Second {
		errs = append(errs, fmt.Sprintf("invalid probe interval %v: must be at least 1 second", c.ProbeInterval))
	} else if c.ProbeInterval > time.Hour {
		errs = append(errs, fmt.Sprintf("invalid probe interval %v: must be at most 1 hour", c.ProbeInterval))
	}

	if c.AMQPURL != "" {
		if parsed, err := url.Parse(c.AMQPURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsed.Scheme != "amqp" && parsed.Scheme != "amqps" {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsed.Scheme))
		}
		if c.AMQPExchange == "" {
			errs = append(errs, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errs = append(errs, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
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
