package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Storage backends
const (
	StorageHTTP  = "http"
	StorageAzure = "azure"
	StorageLocal = "local"
)

type Config struct {
	Host               string        `validate:"required"`
	Port               int           `validate:"min=1,max=65535"`
	RequestTimeout     time.Duration `validate:"gt=0"`
	ImageFetchTimeout  time.Duration `validate:"gt=0"`
	MaxRequestBodySize int64         `validate:"gt=0"`

	LogLevel  string `validate:"omitempty,oneof=debug info warn error"`
	LogFormat string `validate:"omitempty,oneof=json text"`
	LogFile   string

	// Model and classification
	ModelPath      string
	ThresholdLow   float64
	ThresholdHigh  float64 `validate:"gtfield=ThresholdLow"`
	GradientMode   string  `validate:"omitempty,oneof=euclidean single_axis single-axis legacy"`
	CameraModel    string
	InitialAFIndex int `validate:"min=0"`
	Workers        int `validate:"min=0"`
	MaxBatchSize   int `validate:"min=1"`

	// Photo storage
	StorageBackend   string `validate:"oneof=http azure local"`
	LocalRoot        string `validate:"required_if=StorageBackend local"`
	AzureAccountName string `validate:"required_if=StorageBackend azure"`
	AzureAccountKey  string `validate:"required_if=StorageBackend azure"`

	// ResultsDB is the SQLite database path; empty disables persistence
	ResultsDB string
}

func (c *Config) ServerAddress() string {
	host := strings.TrimSpace(c.Host)
	return net.JoinHostPort(host, strconv.Itoa(c.Port))
}

var validate = validator.New()

// LoadFromEnv loads configuration from the environment. A .env file in the
// working directory is read first when present; variables already set in
// the environment take precedence.
func LoadFromEnv() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	port, err := strconv.Atoi(strings.TrimSpace(getEnvOrDefault("PORT", "8080")))
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %q", os.Getenv("PORT"))
	}

	cfg := &Config{
		Host:               getEnvOrDefault("HOST", "0.0.0.0"),
		Port:               port,
		RequestTimeout:     parseDurationOrDefault("REQUEST_TIMEOUT", 30*time.Second),
		ImageFetchTimeout:  parseDurationOrDefault("IMAGE_FETCH_TIMEOUT", 15*time.Second),
		MaxRequestBodySize: parseIntOrDefault("MAX_REQUEST_BODY_SIZE", 10*1024*1024), // 10MB

		LogLevel:  strings.ToLower(os.Getenv("LOG_LEVEL")),
		LogFormat: strings.ToLower(os.Getenv("LOG_FORMAT")),
		LogFile:   os.Getenv("LOG_FILE"),

		ModelPath:      os.Getenv("MODEL_PATH"),
		ThresholdLow:   parseFloatOrDefault("THRESHOLD_LOW", 2.5),
		ThresholdHigh:  parseFloatOrDefault("THRESHOLD_HIGH", 3.0),
		GradientMode:   strings.ToLower(getEnvOrDefault("GRADIENT_MODE", "euclidean")),
		CameraModel:    os.Getenv("CAMERA_MODEL"),
		InitialAFIndex: int(parseIntOrDefault("INITIAL_AF_INDEX", 1)),
		Workers:        int(parseIntOrDefault("WORKERS", 0)),
		MaxBatchSize:   int(parseIntOrDefault("MAX_BATCH_SIZE", 64)),

		StorageBackend:   strings.ToLower(getEnvOrDefault("STORAGE_BACKEND", StorageHTTP)),
		LocalRoot:        os.Getenv("LOCAL_ROOT"),
		AzureAccountName: os.Getenv("AZURE_ACCOUNT_NAME"),
		AzureAccountKey:  os.Getenv("AZURE_ACCOUNT_KEY"),

		ResultsDB: os.Getenv("RESULTS_DB"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q (value %v)", fe.Field(), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && duration > 0 {
			return duration
		}
	}
	return defaultValue
}

func parseIntOrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func parseFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return f
		}
	}
	return defaultValue
}
