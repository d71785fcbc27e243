package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// AppConfig is the runtime configuration, injected through the environment
// or an optional .env file.
type AppConfig struct {
	HTTPAddr    string
	CORSOrigins []string

	DBDriver string
	DBDSN    string

	RedisAddr string
	RedisDB   int

	// Kafka brokers, PO event topic, supplier status topic and consumer group
	KafkaBrokers       []string
	KafkaPOEventsTopic string
	KafkaPOStatusTopic string
	KafkaGroupID       string
	KafkaWriteTimeout  time.Duration

	// Redis Stream outbox drained by the relay into Kafka
	POEventStream   string
	POEventGroup    string
	POEventConsumer string

	// Rate limit of the admin ingredient endpoint
	IngredientRateLimit  int
	IngredientRateWindow time.Duration

	ReconcileInterval time.Duration
	POLockTTL         time.Duration
	WasteFactor       decimal.Decimal

	JWTSecret string

	LogLevel  string
	LogFormat string
}

var defaults = map[string]any{
	"HTTP_ADDR":                  ":8080",
	"CORS_ORIGINS":               "*",
	"DB_DRIVER":                  "sqlite",
	"DB_DSN":                     "production_queue.db",
	"REDIS_ADDR":                 "localhost:6379",
	"REDIS_DB":                   0,
	"KAFKA_BROKERS":              "localhost:9092",
	"KAFKA_PO_EVENTS_TOPIC":      "purchase-order-events",
	"KAFKA_PO_STATUS_TOPIC":      "purchase-order-status",
	"KAFKA_GROUP_ID":             "production-queue-po-status",
	"KAFKA_WRITE_TIMEOUT_SEC":    5,
	"PO_EVENT_STREAM":            "production_queue:po_events",
	"PO_EVENT_GROUP":             "production-queue-relay-group",
	"PO_EVENT_CONSUMER":          "production-queue-relay-1",
	"INGREDIENT_RATE_LIMIT":      20,
	"INGREDIENT_RATE_WINDOW_SEC": 3600,
	"RECONCILE_INTERVAL_SEC":     30,
	"PO_LOCK_TTL_SEC":            30,
	"WASTE_FACTOR":               "0.075",
	"JWT_SECRET":                 "",
	"LOG_LEVEL":                  "info",
	"LOG_FORMAT":                 "json",
}

// Load reads .env (if present) and the environment, applies defaults and
// validates the result.
func Load() (AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		// a missing .env is fine; the environment still applies
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return AppConfig{}, fmt.Errorf("read .env: %w", err)
		}
	}
	return load(v)
}

func load(v *viper.Viper) (AppConfig, error) {
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.AutomaticEnv()

	cfg := AppConfig{
		HTTPAddr:           getString(v, "HTTP_ADDR"),
		CORSOrigins:        splitCSV(getString(v, "CORS_ORIGINS")),
		DBDriver:           strings.ToLower(getString(v, "DB_DRIVER")),
		DBDSN:              getString(v, "DB_DSN"),
		RedisAddr:          getString(v, "REDIS_ADDR"),
		KafkaBrokers:       splitCSV(getString(v, "KAFKA_BROKERS")),
		KafkaPOEventsTopic: getString(v, "KAFKA_PO_EVENTS_TOPIC"),
		KafkaPOStatusTopic: getString(v, "KAFKA_PO_STATUS_TOPIC"),
		KafkaGroupID:       getString(v, "KAFKA_GROUP_ID"),
		POEventStream:      getString(v, "PO_EVENT_STREAM"),
		POEventGroup:       getString(v, "PO_EVENT_GROUP"),
		POEventConsumer:    getString(v, "PO_EVENT_CONSUMER"),
		JWTSecret:          getString(v, "JWT_SECRET"),
		LogLevel:           strings.ToLower(getString(v, "LOG_LEVEL")),
		LogFormat:          strings.ToLower(getString(v, "LOG_FORMAT")),
	}

	redisDB, err := getInt(v, "REDIS_DB")
	if err != nil {
		return AppConfig{}, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	cfg.RedisDB = redisDB

	rateLimit, err := getInt(v, "INGREDIENT_RATE_LIMIT")
	if err != nil {
		return AppConfig{}, fmt.Errorf("invalid INGREDIENT_RATE_LIMIT: %w", err)
	}
	if rateLimit <= 0 {
		return AppConfig{}, fmt.Errorf("INGREDIENT_RATE_LIMIT must be > 0")
	}
	cfg.IngredientRateLimit = rateLimit

	if cfg.IngredientRateWindow, err = getSeconds(v, "INGREDIENT_RATE_WINDOW_SEC"); err != nil {
		return AppConfig{}, err
	}
	if cfg.ReconcileInterval, err = getSeconds(v, "RECONCILE_INTERVAL_SEC"); err != nil {
		return AppConfig{}, err
	}
	if cfg.POLockTTL, err = getSeconds(v, "PO_LOCK_TTL_SEC"); err != nil {
		return AppConfig{}, err
	}
	if cfg.KafkaWriteTimeout, err = getSeconds(v, "KAFKA_WRITE_TIMEOUT_SEC"); err != nil {
		return AppConfig{}, err
	}

	waste, err := decimal.NewFromString(getString(v, "WASTE_FACTOR"))
	if err != nil {
		return AppConfig{}, fmt.Errorf("invalid WASTE_FACTOR: %w", err)
	}
	if waste.IsNegative() || waste.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return AppConfig{}, fmt.Errorf("WASTE_FACTOR must be in [0,1)")
	}
	cfg.WasteFactor = waste

	switch cfg.DBDriver {
	case "sqlite", "postgres", "mysql":
	default:
		return AppConfig{}, fmt.Errorf("DB_DRIVER must be one of sqlite, postgres, mysql")
	}
	if cfg.DBDSN == "" {
		return AppConfig{}, fmt.Errorf("DB_DSN must not be empty")
	}
	if cfg.JWTSecret == "" {
		return AppConfig{}, fmt.Errorf("JWT_SECRET must not be empty")
	}
	if len(cfg.KafkaBrokers) == 0 {
		return AppConfig{}, fmt.Errorf("KAFKA_BROKERS must not be empty")
	}
	for key, val := range map[string]string{
		"KAFKA_PO_EVENTS_TOPIC": cfg.KafkaPOEventsTopic,
		"KAFKA_PO_STATUS_TOPIC": cfg.KafkaPOStatusTopic,
		"KAFKA_GROUP_ID":        cfg.KafkaGroupID,
		"PO_EVENT_STREAM":       cfg.POEventStream,
		"PO_EVENT_GROUP":        cfg.POEventGroup,
		"PO_EVENT_CONSUMER":     cfg.POEventConsumer,
	} {
		if val == "" {
			return AppConfig{}, fmt.Errorf("%s must not be empty", key)
		}
	}

	return cfg, nil
}

func getString(v *viper.Viper, key string) string {
	return strings.TrimSpace(v.GetString(key))
}

func getInt(v *viper.Viper, key string) (int, error) {
	return strconv.Atoi(getString(v, key))
}

// getSeconds reads a positive number of seconds.
func getSeconds(v *viper.Viper, key string) (time.Duration, error) {
	n, err := getInt(v, key)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("%s must be > 0", key)
	}
	return time.Duration(n) * time.Second, nil
}

// splitCSV parses a comma separated list, dropping blanks.
func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		s := strings.TrimSpace(p)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
