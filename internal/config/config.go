package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type AppConfig struct {
	Port string

	// ArchivePath is the JSON-lines archive file; empty keeps the archive in memory.
	ArchivePath string

	// ImportConfigPath points at the YAML import configuration.
	ImportConfigPath string

	// HTTPTimeout bounds outbound source requests.
	HTTPTimeout time.Duration

	// Scheduled imports. ScheduleSource empty disables the scheduler; when
	// ScheduleCron is set it wins over ScheduleInterval.
	ScheduleSource   string
	ScheduleInterval time.Duration
	ScheduleCron     string

	// JobHistory caps how many finished import jobs are remembered (0 = unlimited).
	JobHistory int

	LogLevel  string
	LogFormat string // text or json

	WUAPIKey       string
	GeocoderAPIKey string
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Debugf("no .env file loaded: %v", err)
	}
	cfg := &AppConfig{}

	cfg.Port = getenvDefault("PORT", "8080")
	cfg.ArchivePath = os.Getenv("ARCHIVE_PATH")
	cfg.ImportConfigPath = getenvDefault("IMPORT_CONFIG", "import.yaml")

	timeout, err := time.ParseDuration(getenvDefault("HTTP_TIMEOUT", "15s"))
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}
	cfg.HTTPTimeout = timeout

	cfg.ScheduleSource = os.Getenv("SCHEDULE_SOURCE")
	interval, err := time.ParseDuration(getenvDefault("SCHEDULE_INTERVAL", "15m"))
	if err != nil {
		return nil, fmt.Errorf("invalid SCHEDULE_INTERVAL: %w", err)
	}
	cfg.ScheduleInterval = interval
	cfg.ScheduleCron = os.Getenv("SCHEDULE_CRON")

	cfg.JobHistory = getenvInt("JOB_HISTORY", 50)

	cfg.LogLevel = getenvDefault("LOG_LEVEL", "info")
	cfg.LogFormat = getenvDefault("LOG_FORMAT", "text")

	cfg.WUAPIKey = os.Getenv("WU_API_KEY")
	cfg.GeocoderAPIKey = os.Getenv("GEOCODER_API_KEY")

	return cfg, nil
}

// SetupLogging configures the global logrus logger.
func (c *AppConfig) SetupLogging() error {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	logrus.SetLevel(level)

	switch c.LogFormat {
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	case "", "text":
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return fmt.Errorf("invalid LOG_FORMAT %q", c.LogFormat)
	}
	return nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}
