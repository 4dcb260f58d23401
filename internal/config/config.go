package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type AppConfig struct {
	Port string `validate:"required,numeric"`

	// Source pages.
	ObservationURL    string `validate:"required,url"`
	ForecastURLFormat string `validate:"required"`
	SpecialReportURL  string `validate:"required,url"`
	UserAgent         string

	// Fetch budgets. PageTimeout bounds the directory and advisory pages,
	// DetailTimeout each airport detail page of the 12h trend fan-out.
	PageTimeout         time.Duration `validate:"gt=0"`
	DetailTimeout       time.Duration `validate:"gt=0"`
	ForecastConcurrency int           `validate:"gte=0"` // 0 = one request per airport

	// RefreshInterval controls the cache warming job (0 disables it).
	RefreshInterval time.Duration `validate:"gte=0"`

	// History store. An empty path keeps history in memory.
	HistoryDBPath   string
	StoreMaxHistory int           `validate:"gte=0"` // max snapshots kept in memory (0 = unlimited)
	StoreMaxAge     time.Duration `validate:"gte=0"` // max age of in-memory snapshots (0 = unlimited)

	// Latest snapshot mirrors, each enabled when configured.
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int    `validate:"gte=0"`
	RedisKey      string `validate:"required"`

	RegionTablePath string

	LogLevel        string        `validate:"oneof=debug info warn warning error"`
	LogFormat       string        `validate:"oneof=json text"`
	ShutdownTimeout time.Duration `validate:"gt=0"`
}

var validate = validator.New()

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}

	cfg := &AppConfig{
		Port:              getenvDefault("PORT", "8080"),
		ObservationURL:    getenvDefault("AMO_BASE_URL", "https://amo.kma.go.kr/"),
		ForecastURLFormat: getenvDefault("AMO_FORECAST_URL", "https://amo.kma.go.kr/weather/airport.do?icaoCode=%s"),
		SpecialReportURL:  getenvDefault("SPECIAL_REPORT_URL", "https://www.weather.go.kr/w/special-report/overall.do"),
		UserAgent:         os.Getenv("USER_AGENT"),
		HistoryDBPath:     os.Getenv("HISTORY_DB_PATH"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		RedisKey:          getenvDefault("REDIS_KEY", "weather_latest"),
		RegionTablePath:   os.Getenv("REGION_TABLE_PATH"),
		LogLevel:          strings.ToLower(getenvDefault("LOG_LEVEL", "info")),
		LogFormat:         strings.ToLower(getenvDefault("LOG_FORMAT", "json")),
	}

	var err error
	if cfg.PageTimeout, err = getenvDuration("PAGE_TIMEOUT", 60*time.Second); err != nil {
		return nil, err
	}
	if cfg.DetailTimeout, err = getenvDuration("DETAIL_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.RefreshInterval, err = getenvDuration("REFRESH_INTERVAL", 10*time.Minute); err != nil {
		return nil, err
	}
	if cfg.StoreMaxAge, err = getenvDuration("STORE_MAX_AGE", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = getenvDuration("SHUTDOWN_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}

	// Roughly 24h at the 10-minute refresh window.
	if cfg.StoreMaxHistory, err = getenvInt("STORE_MAX_HISTORY", 144); err != nil {
		return nil, err
	}
	if cfg.ForecastConcurrency, err = getenvInt("FORECAST_CONCURRENCY", 0); err != nil {
		return nil, err
	}
	if cfg.RedisDB, err = getenvInt("REDIS_DB", 0); err != nil {
		return nil, err
	}

	if strings.Count(cfg.ForecastURLFormat, "%s") != 1 {
		return nil, fmt.Errorf("invalid AMO_FORECAST_URL: must contain exactly one %%s for the ICAO code")
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
