// v1
// internal/config/config.go
package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jacobtread/Committers/internal/badge"
)

// Dataset source kinds accepted by dataset_source.
const (
	SourceFile  = "file"
	SourceKafka = "kafka"
)

// Config captures all runtime settings of the badge service and CLI.
// Values can be provided by environment variables, a properties file, or
// fall back to defaults so the service can boot with minimal setup.
type Config struct {
	// ListenAddress defines the TCP address used by the HTTP server.
	ListenAddress string
	// LogFilePath is the absolute or relative path to the log file.
	LogFilePath      string
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	ShutdownTimeout  time.Duration
	// PropertiesPath records the path used to load property values.
	PropertiesPath string

	// DatasetSource selects where the leaderboard snapshot comes from.
	DatasetSource string
	DatasetPath   string
	BlacklistPath string

	BadgeLabel string
	BadgeStyle badge.Style

	// EagerCount is the number of top ranks pre-rendered by generate.
	EagerCount      int
	OutputDir       string
	GenerateWorkers int

	KafkaBrokers     []string
	SnapshotTopic    string
	KafkaPollTimeout time.Duration

	BreakerMaxFailures  int
	BreakerResetTimeout time.Duration
}

const (
	envPrefix             = "BADGES_"
	envPropertiesPath     = envPrefix + "PROPERTIES_PATH"
	defaultListenAddress  = ":8080"
	defaultLogFile        = "logs/badges.log"
	defaultReadTimeout    = 5 * time.Second
	defaultWriteTimeout   = 10 * time.Second
	defaultShutdown       = 5 * time.Second
	defaultPropsPath      = "badges.properties"
	defaultDatasetPath    = "output.json"
	defaultBlacklistPath  = "blacklist.txt"
	defaultEagerCount     = 100
	defaultOutputDir      = "public/badges"
	defaultWorkers        = 4
	defaultKafkaBrokers   = "kafka:9092"
	defaultSnapshotTopic  = "leaderboard.snapshots"
	defaultPollTimeout    = 5 * time.Second
	defaultMaxFailures    = 5
	defaultBreakerTimeout = 30 * time.Second
)

// keys lists every recognised property in the order env overrides are
// applied. Each key maps to the BADGES_<UPPER_KEY> environment variable.
var keys = []string{
	"listen_address",
	"log_path",
	"http_read_timeout_ms",
	"http_write_timeout_ms",
	"shutdown_timeout_ms",
	"dataset_source",
	"dataset_path",
	"blacklist_path",
	"badge_label",
	"badge_style",
	"eager_count",
	"output_dir",
	"generate_workers",
	"kafka_brokers",
	"snapshot_topic",
	"kafka_poll_timeout_ms",
	"breaker_max_failures",
	"breaker_reset_timeout_ms",
}

// Defaults returns the configuration used when nothing is overridden.
func Defaults() Config {
	return Config{
		ListenAddress:       defaultListenAddress,
		LogFilePath:         filepath.Clean(defaultLogFile),
		HTTPReadTimeout:     defaultReadTimeout,
		HTTPWriteTimeout:    defaultWriteTimeout,
		ShutdownTimeout:     defaultShutdown,
		DatasetSource:       SourceFile,
		DatasetPath:         defaultDatasetPath,
		BlacklistPath:       defaultBlacklistPath,
		BadgeLabel:          badge.DefaultLabel,
		BadgeStyle:          badge.StyleForTheBadge,
		EagerCount:          defaultEagerCount,
		OutputDir:           defaultOutputDir,
		GenerateWorkers:     defaultWorkers,
		KafkaBrokers:        splitAndTrim(defaultKafkaBrokers),
		SnapshotTopic:       defaultSnapshotTopic,
		KafkaPollTimeout:    defaultPollTimeout,
		BreakerMaxFailures:  defaultMaxFailures,
		BreakerResetTimeout: defaultBreakerTimeout,
	}
}

// Load resolves configuration by layering defaults, an optional properties
// file, and finally environment variables. An explicit path (the --config
// flag) must exist; otherwise BADGES_PROPERTIES_PATH or badges.properties is
// read when present.
func Load(path string) (Config, error) {
	cfg := Defaults()

	propsPath := strings.TrimSpace(path)
	explicit := propsPath != ""
	if !explicit {
		propsPath = strings.TrimSpace(os.Getenv(envPropertiesPath))
	}
	if propsPath == "" {
		propsPath = defaultPropsPath
	}
	cfg.PropertiesPath = propsPath

	if err := applyProperties(&cfg, propsPath); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyProperties(cfg *Config, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
	}()

	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" || strings.HasPrefix(raw, "#") || strings.HasPrefix(raw, ";") {
			continue
		}
		parts := strings.SplitN(raw, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid properties entry on line %d", line)
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if err := setProperty(cfg, key, value); err != nil {
			return fmt.Errorf("property %s: %w", key, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read properties: %w", err)
	}
	return nil
}

func setProperty(cfg *Config, key, value string) error {
	var err error
	switch key {
	case "listen_address":
		cfg.ListenAddress, err = nonEmpty(key, value)
	case "log_path":
		var v string
		if v, err = nonEmpty(key, value); err == nil {
			cfg.LogFilePath = filepath.Clean(v)
		}
	case "http_read_timeout_ms":
		cfg.HTTPReadTimeout, err = parsePositiveMillis(value)
	case "http_write_timeout_ms":
		cfg.HTTPWriteTimeout, err = parsePositiveMillis(value)
	case "shutdown_timeout_ms":
		cfg.ShutdownTimeout, err = parsePositiveMillis(value)
	case "dataset_source":
		switch strings.ToLower(value) {
		case SourceFile, SourceKafka:
			cfg.DatasetSource = strings.ToLower(value)
		default:
			return fmt.Errorf("dataset_source must be %q or %q", SourceFile, SourceKafka)
		}
	case "dataset_path":
		cfg.DatasetPath, err = nonEmpty(key, value)
	case "blacklist_path":
		// Empty disables the blacklist.
		cfg.BlacklistPath = value
	case "badge_label":
		cfg.BadgeLabel, err = nonEmpty(key, value)
	case "badge_style":
		cfg.BadgeStyle, err = badge.ParseStyle(value)
	case "eager_count":
		cfg.EagerCount, err = parsePositiveInt(value)
	case "output_dir":
		cfg.OutputDir, err = nonEmpty(key, value)
	case "generate_workers":
		cfg.GenerateWorkers, err = parsePositiveInt(value)
	case "kafka_brokers":
		brokers := splitAndTrim(value)
		if len(brokers) == 0 {
			return errors.New("kafka_brokers cannot be empty")
		}
		cfg.KafkaBrokers = brokers
	case "snapshot_topic":
		cfg.SnapshotTopic, err = nonEmpty(key, value)
	case "kafka_poll_timeout_ms":
		cfg.KafkaPollTimeout, err = parsePositiveMillis(value)
	case "breaker_max_failures":
		cfg.BreakerMaxFailures, err = parsePositiveInt(value)
	case "breaker_reset_timeout_ms":
		cfg.BreakerResetTimeout, err = parsePositiveMillis(value)
	default:
		// Unknown keys are ignored to keep the loader forward-compatible.
	}
	return err
}

// applyEnv overrides properties with BADGES_* variables. KAFKA_BROKERS is
// honoured as a fallback so the service can share a compose file with the
// rest of the stack.
func applyEnv(cfg *Config) error {
	for _, key := range keys {
		name := envPrefix + strings.ToUpper(key)
		v, ok := lookupEnvTrimmed(name)
		if !ok && key == "kafka_brokers" {
			name = "KAFKA_BROKERS"
			v, ok = lookupEnvTrimmed(name)
		}
		if !ok {
			continue
		}
		if err := setProperty(cfg, key, v); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

func nonEmpty(key, value string) (string, error) {
	if value == "" {
		return "", fmt.Errorf("%s cannot be empty", key)
	}
	return value, nil
}

func lookupEnvTrimmed(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(v), true
}

func splitAndTrim(raw string) []string {
	fields := strings.Split(raw, ",")
	out := make([]string, 0, len(fields))
	for _, field := range fields {
		trimmed := strings.TrimSpace(field)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func parsePositiveInt(v string) (int, error) {
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid integer: %w", err)
	}
	if n <= 0 {
		return 0, errors.New("value must be greater than zero")
	}
	return n, nil
}

func parsePositiveMillis(v string) (time.Duration, error) {
	if strings.TrimSpace(v) == "" {
		return 0, errors.New("value cannot be empty")
	}
	ms, err := parsePositiveInt(v)
	if err != nil {
		return 0, err
	}
	return time.Duration(ms) * time.Millisecond, nil
}
