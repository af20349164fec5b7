package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Extra browser origins allowed to open session WebSockets. Same-origin
	// requests are always allowed.
	WSAllowedOrigins []string

	// Interactive session store.
	SessionCapacity int
	SessionTTL      time.Duration

	// Report audit publishing.
	KafkaEnabled     bool
	KafkaBrokers     []string
	KafkaReportTopic string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	sessionTTL, err := time.ParseDuration(sharedcfg.EnvOrDefault("SESSION_TTL", "30m"))
	if err != nil || sessionTTL <= 0 {
		return nil, errors.New("invalid SESSION_TTL")
	}

	sessionCapacity, err := parseSessionCapacity()
	if err != nil {
		return nil, err
	}

	var brokers []string
	if raw := os.Getenv("KAFKA_BROKERS"); raw != "" {
		brokers = sharedcfg.ParseBrokers(raw)
	}
	kafkaEnabled := len(brokers) > 0
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		WSAllowedOrigins: parseList(os.Getenv("WS_ALLOWED_ORIGINS")),

		SessionCapacity: sessionCapacity,
		SessionTTL:      sessionTTL,

		KafkaEnabled:     kafkaEnabled,
		KafkaBrokers:     brokers,
		KafkaReportTopic: sharedcfg.EnvOrDefault("KAFKA_REPORT_TOPIC", "flare-heat-flux-reports"),
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("HTTP_ADDR is required")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}
	if cfg.KafkaEnabled && cfg.KafkaReportTopic == "" {
		return nil, errors.New("KAFKA_REPORT_TOPIC is required when publishing is enabled")
	}

	return cfg, nil
}

func parseSessionCapacity() (int, error) {
	s := os.Getenv("SESSION_CAPACITY")
	if s == "" {
		return 1000, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 || n > 100000 {
		return 0, errors.New("invalid SESSION_CAPACITY: must be between 1 and 100000")
	}
	return n, nil
}

func parseList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
