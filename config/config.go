package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	TelegramToken        string
	InferenceURL         string
	InferenceTimeout     time.Duration
	ConfidenceThreshold  float64
	VideoIntervalSeconds float64
	LogoURL              string // пусто: фирменный знак рисуется локально
	ReportDir            string
	LogLevel             string
	MaxAssetBytes        int64
	AssetCacheSize       int // отрицательное значение отключает кеш изображений
}

// Значения по умолчанию
const (
	DefaultInferenceURL         = "http://127.0.0.1:8000"
	DefaultInferenceTimeout     = 120 * time.Second
	DefaultConfidenceThreshold  = 0.25
	DefaultVideoIntervalSeconds = 1.0
	DefaultReportDir            = "reports"
	DefaultLogLevel             = "info"
	DefaultMaxAssetBytes        = 20 * 1024 * 1024
	DefaultAssetCacheSize       = 64
)

func Load() (*Config, error) {
	// Загружаем .env файл (игнорируем ошибку если файла нет)
	_ = godotenv.Load()

	cfg := &Config{
		TelegramToken: os.Getenv("TELEGRAM_TOKEN"),
		InferenceURL:  stringOr("INFERENCE_URL", DefaultInferenceURL),
		LogoURL:       strings.TrimSpace(os.Getenv("LOGO_URL")),
		ReportDir:     stringOr("REPORT_DIR", DefaultReportDir),
		LogLevel:      stringOr("LOG_LEVEL", DefaultLogLevel),
	}

	var err error
	if cfg.InferenceTimeout, err = durationOr("INFERENCE_TIMEOUT", DefaultInferenceTimeout); err != nil {
		return nil, err
	}
	if cfg.ConfidenceThreshold, err = floatOr("CONFIDENCE_THRESHOLD", DefaultConfidenceThreshold); err != nil {
		return nil, err
	}
	if cfg.VideoIntervalSeconds, err = floatOr("VIDEO_INTERVAL_SECONDS", DefaultVideoIntervalSeconds); err != nil {
		return nil, err
	}
	if cfg.VideoIntervalSeconds <= 0 {
		return nil, fmt.Errorf("VIDEO_INTERVAL_SECONDS must be positive, got %v", cfg.VideoIntervalSeconds)
	}

	maxBytes, err := floatOr("MAX_ASSET_BYTES", DefaultMaxAssetBytes)
	if err != nil {
		return nil, err
	}
	cfg.MaxAssetBytes = int64(maxBytes)

	cacheSize, err := floatOr("ASSET_CACHE_SIZE", DefaultAssetCacheSize)
	if err != nil {
		return nil, err
	}
	if cacheSize == 0 || cacheSize != float64(int(cacheSize)) {
		return nil, fmt.Errorf("ASSET_CACHE_SIZE must be a non-zero integer, got %v", cacheSize)
	}
	cfg.AssetCacheSize = int(cacheSize)

	return cfg, nil
}

func stringOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func floatOr(key string, def float64) (float64, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return v, nil
}

// durationOr принимает "90s", "2m" или число секунд.
func durationOr(key string, def time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	if secs, err := strconv.ParseFloat(raw, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}
