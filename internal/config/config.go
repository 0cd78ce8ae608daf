package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	AppEnv   string
	LogLevel slog.Level
	HTTPAddr string

	// Driver is either "sqlite3" (default) or "postgres".
	Driver          string
	DSN             string
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	QueryTimeout    time.Duration
	LogSQL          bool

	QueryDefaultLimit int
	QueryMaxLimit     int

	// LenientParse restores the legacy behavior of coercing unparseable
	// numeric fields to 0 instead of rejecting the submission.
	LenientParse           bool
	QualityAllowBorderline bool

	MQTTEnabled  bool
	MQTTBroker   string
	MQTTPort     int
	MQTTClientID string
	MQTTTopic    string
}

// LoadFromEnv reads configuration from the environment. When CONFIG_FILE
// points at a YAML file its keys (lower-case env names, e.g. http_addr) are
// loaded first and environment variables override them.
func LoadFromEnv() (Config, error) {
	k, err := load()
	if err != nil {
		return Config{}, err
	}
	get := func(key string) string {
		return strings.TrimSpace(k.String(strings.ToLower(key)))
	}

	appEnv := get("APP_ENV")
	if appEnv == "" {
		appEnv = "dev"
	}
	switch appEnv {
	case "dev", "prod":
	default:
		return Config{}, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", appEnv)
	}

	logLevelStr := get("LOG_LEVEL")
	if logLevelStr == "" {
		logLevelStr = "info"
	}
	level, err := parseLogLevel(logLevelStr)
	if err != nil {
		return Config{}, err
	}

	httpAddr := get("HTTP_ADDR")
	if httpAddr == "" {
		httpAddr = ":8080"
	}

	driver := get("DB_DRIVER")
	if driver == "" {
		driver = "sqlite3"
	}
	switch driver {
	case "sqlite3", "postgres":
	default:
		return Config{}, fmt.Errorf("invalid DB_DRIVER %q (allowed: sqlite3, postgres)", driver)
	}
	dsn := get("DB_DSN")
	if driver == "postgres" && dsn == "" {
		return Config{}, fmt.Errorf("DB_DSN is required when DB_DRIVER=postgres")
	}
	path := get("SQLITE_PATH")
	if path == "" {
		path = "../dev/sqlite/water.db"
	}

	maxOpenConns, err := intValue(get("DB_MAX_OPEN_CONNS"), "1", "DB_MAX_OPEN_CONNS")
	if err != nil {
		return Config{}, err
	}
	maxIdleConns, err := intValue(get("DB_MAX_IDLE_CONNS"), "1", "DB_MAX_IDLE_CONNS")
	if err != nil {
		return Config{}, err
	}
	connMaxLifetime, err := durationValue(get("DB_CONN_MAX_LIFETIME"), "0s", "DB_CONN_MAX_LIFETIME")
	if err != nil {
		return Config{}, err
	}
	queryTimeout, err := durationValue(get("DB_QUERY_TIMEOUT"), "5s", "DB_QUERY_TIMEOUT")
	if err != nil {
		return Config{}, err
	}
	if queryTimeout <= 0 {
		return Config{}, fmt.Errorf("DB_QUERY_TIMEOUT must be positive, got %v", queryTimeout)
	}
	logSQL, err := boolValue(get("DB_LOG_SQL"), "DB_LOG_SQL")
	if err != nil {
		return Config{}, err
	}

	defaultLimit, err := intValue(get("QUERY_DEFAULT_LIMIT"), "50", "QUERY_DEFAULT_LIMIT")
	if err != nil {
		return Config{}, err
	}
	maxLimit, err := intValue(get("QUERY_MAX_LIMIT"), "1000", "QUERY_MAX_LIMIT")
	if err != nil {
		return Config{}, err
	}
	if defaultLimit <= 0 {
		return Config{}, fmt.Errorf("QUERY_DEFAULT_LIMIT must be > 0, got %d", defaultLimit)
	}
	if maxLimit < defaultLimit {
		return Config{}, fmt.Errorf("QUERY_MAX_LIMIT (%d) must be >= QUERY_DEFAULT_LIMIT (%d)", maxLimit, defaultLimit)
	}

	lenient, err := boolValue(get("INGEST_LENIENT_PARSE"), "INGEST_LENIENT_PARSE")
	if err != nil {
		return Config{}, err
	}
	allowBorderline, err := boolValue(get("QUALITY_ALLOW_BORDERLINE"), "QUALITY_ALLOW_BORDERLINE")
	if err != nil {
		return Config{}, err
	}

	mqttEnabled := true
	if s := get("MQTT_ENABLED"); s != "" {
		mqttEnabled, err = boolValue(s, "MQTT_ENABLED")
		if err != nil {
			return Config{}, err
		}
	}
	mqttBroker := get("MQTT_BROKER")
	if mqttBroker == "" {
		mqttBroker = "localhost"
	}
	mqttPort, err := intValue(get("MQTT_PORT"), "1883", "MQTT_PORT")
	if err != nil {
		return Config{}, err
	}
	mqttClientID := get("MQTT_CLIENT_ID")
	if mqttClientID == "" {
		mqttClientID = "waterwatch-server"
	}
	mqttTopic := get("MQTT_TOPIC")
	if mqttTopic == "" {
		mqttTopic = "water/+/readings"
	}

	return Config{
		AppEnv:                 appEnv,
		LogLevel:               level,
		HTTPAddr:               httpAddr,
		Driver:                 driver,
		DSN:                    dsn,
		Path:                   path,
		MaxOpenConns:           maxOpenConns,
		MaxIdleConns:           maxIdleConns,
		ConnMaxLifetime:        connMaxLifetime,
		QueryTimeout:           queryTimeout,
		LogSQL:                 logSQL,
		QueryDefaultLimit:      defaultLimit,
		QueryMaxLimit:          maxLimit,
		LenientParse:           lenient,
		QualityAllowBorderline: allowBorderline,
		MQTTEnabled:            mqttEnabled,
		MQTTBroker:             mqttBroker,
		MQTTPort:               mqttPort,
		MQTTClientID:           mqttClientID,
		MQTTTopic:              mqttTopic,
	}, nil
}

var knownKeys = map[string]bool{
	"APP_ENV": true, "LOG_LEVEL": true, "HTTP_ADDR": true,
	"DB_DRIVER": true, "DB_DSN": true, "SQLITE_PATH": true,
	"DB_MAX_OPEN_CONNS": true, "DB_MAX_IDLE_CONNS": true, "DB_CONN_MAX_LIFETIME": true,
	"DB_QUERY_TIMEOUT": true, "DB_LOG_SQL": true,
	"QUERY_DEFAULT_LIMIT": true, "QUERY_MAX_LIMIT": true,
	"INGEST_LENIENT_PARSE": true, "QUALITY_ALLOW_BORDERLINE": true,
	"MQTT_ENABLED": true, "MQTT_BROKER": true, "MQTT_PORT": true,
	"MQTT_CLIENT_ID": true, "MQTT_TOPIC": true,
}

func load() (*koanf.Koanf, error) {
	k := koanf.New(".")

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("CONFIG_FILE %q: %w", path, err)
		}
	}

	// HTTP_ADDR -> http_addr, matching the flat keys used in the YAML file.
	// Unknown and blank variables are skipped so they never mask file values.
	envProvider := env.ProviderWithValue("", ".", func(key, value string) (string, any) {
		if !knownKeys[key] || strings.TrimSpace(value) == "" {
			return "", nil
		}
		return strings.ToLower(key), value
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}
	return k, nil
}

func intValue(s, def, name string) (int, error) {
	if s == "" {
		s = def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, s, err)
	}
	return n, nil
}

func durationValue(s, def, name string) (time.Duration, error) {
	if s == "" {
		s = def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, s, err)
	}
	return d, nil
}

func boolValue(s, name string) (bool, error) {
	if s == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", name, s, err)
	}
	return b, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}
