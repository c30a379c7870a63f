package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

type R2 struct {
	AccountID  string
	AccessKey  string
	SecretKey  string
	BucketName string
	PublicURL  string
	Endpoint   string
}

func (r R2) Enabled() bool {
	return r.AccountID != "" || r.Endpoint != ""
}

type Config struct {
	Port                   string
	BaseURL                string
	StorageDriver          string
	PostgresURI            string
	RedisURI               string
	SecretKey              string
	CookieName             string
	LogLevel               string
	SchedulerInterval      time.Duration
	PublishTimeout         time.Duration
	ProfileRefreshInterval time.Duration
	QueueConcurrency       int
	FacebookAPIURL         string
	InstagramAPIURL        string
	TiktokAPIURL           string
	GoogleClientID         string
	GoogleClientSecret     string
	GeminiAPIKey           string
	GeminiModel            string
	R2                     R2
}

func LoadConfig() *Config {
	port := getEnv("PORT", "3000")
	return &Config{
		Port:                   port,
		BaseURL:                strings.TrimRight(getEnv("BASE_URL", "http://localhost:"+port), "/"),
		StorageDriver:          strings.ToLower(getEnv("STORAGE_DRIVER", StoragePostgres)),
		PostgresURI:            getEnv("POSTGRES_URI", ""),
		RedisURI:               getEnv("REDIS_URI", ""),
		SecretKey:              getEnv("SECRET_KEY", ""),
		CookieName:             getEnv("COOKIE_NAME", "crosspost_token"),
		LogLevel:               getEnv("LOG_LEVEL", "info"),
		SchedulerInterval:      getEnvDuration("SCHEDULER_INTERVAL", 15*time.Second),
		PublishTimeout:         getEnvDuration("PUBLISH_TIMEOUT", 2*time.Minute),
		ProfileRefreshInterval: getEnvDuration("PROFILE_REFRESH_INTERVAL", 6*time.Hour),
		QueueConcurrency:       getEnvInt("QUEUE_CONCURRENCY", 10),
		FacebookAPIURL:         getEnv("FACEBOOK_API_URL", ""),
		InstagramAPIURL:        getEnv("INSTAGRAM_API_URL", ""),
		TiktokAPIURL:           getEnv("TIKTOK_API_URL", ""),
		GoogleClientID:         getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret:     getEnv("GOOGLE_CLIENT_SECRET", ""),
		GeminiAPIKey:           getEnv("GEMINI_API_KEY", ""),
		GeminiModel:            getEnv("GEMINI_MODEL", ""),
		R2: R2{
			AccountID:  getEnv("R2_ACCOUNT_ID", ""),
			AccessKey:  getEnv("R2_ACCESS_KEY", ""),
			SecretKey:  getEnv("R2_SECRET_KEY", ""),
			BucketName: getEnv("R2_BUCKET_NAME", ""),
			PublicURL:  getEnv("R2_PUBLIC_URL", ""),
			Endpoint:   getEnv("R2_ENDPOINT", ""),
		},
	}
}

// Validate reports every missing or malformed setting at once.
func (c *Config) Validate() error {
	var errs []error

	switch c.StorageDriver {
	case StorageMemory:
	case StoragePostgres:
		if c.PostgresURI == "" {
			errs = append(errs, errors.New("POSTGRES_URI is required for the postgres storage driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver))
	}

	// The secret doubles as the AES key for stored credentials.
	switch len(c.SecretKey) {
	case 16, 24, 32:
	case 0:
		errs = append(errs, errors.New("SECRET_KEY is required"))
	default:
		errs = append(errs, errors.New("SECRET_KEY must be 16, 24 or 32 bytes long"))
	}

	if c.SchedulerInterval < time.Second {
		errs = append(errs, errors.New("SCHEDULER_INTERVAL must be at least 1s"))
	}
	if c.PublishTimeout <= 0 {
		errs = append(errs, errors.New("PUBLISH_TIMEOUT must be positive"))
	}

	if c.R2.Enabled() {
		if c.R2.AccessKey == "" || c.R2.SecretKey == "" || c.R2.BucketName == "" {
			errs = append(errs, errors.New("R2_ACCESS_KEY, R2_SECRET_KEY and R2_BUCKET_NAME are required when R2 is configured"))
		}
		if c.R2.PublicURL == "" {
			errs = append(errs, errors.New("R2_PUBLIC_URL is required when R2 is configured"))
		}
	}

	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue
	}
	return i
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultValue
	}
	return d
}
