package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Port     string
	MongoURI string
	DBName   string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	S3Bucket      string
	S3Region      string
	S3AccessKeyID string
	S3SecretKey   string

	AuthEmail   string
	AuthPass    string
	JWTSecret   string
	MaxUploadMB int64

	GeminiAPIKey         string
	GeminiModel          string
	GeminiBaseURL        string
	GeminiTimeoutSeconds int

	ElevenLabsBaseURL string
	ElevenLabsModel   string

	GoogleBooksURL string

	SettingsEncryptionKey string

	EnrichWorkers  int
	EnrichQueue    int
	AudioCacheCost int64

	LogLevel  string
	LogFormat string

	CORSOrigins []string
}

func Load() (*Config, error) {
	_ = os.Setenv("AWS_REGION", getEnv("AWS_REGION", "us-east-1"))

	cfg := &Config{
		Port:                  getEnv("PORT", "8080"),
		MongoURI:              getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		DBName:                getEnv("MONGODB_DB", "lexireader"),
		RedisAddr:             getEnv("REDIS_ADDR", ""),
		RedisPassword:         getEnv("REDIS_PASSWORD", ""),
		S3Bucket:              getEnv("AWS_S3_BUCKET", ""),
		S3Region:              getEnv("AWS_REGION", "us-east-1"),
		S3AccessKeyID:         getEnv("AWS_ACCESS_KEY_ID", ""),
		S3SecretKey:           getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AuthEmail:             getEnv("AUTH_EMAIL", "user@example.com"),
		AuthPass:              getEnv("AUTH_PASSWORD", "password"),
		JWTSecret:             getEnv("JWT_SECRET", "change-me-in-production"),
		GeminiAPIKey:          getEnv("GEMINI_API_KEY", ""),
		GeminiModel:           getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		GeminiBaseURL:         getEnv("GEMINI_BASE_URL", ""),
		ElevenLabsBaseURL:     getEnv("ELEVENLABS_BASE_URL", ""),
		ElevenLabsModel:       getEnv("ELEVENLABS_MODEL", ""),
		GoogleBooksURL:        getEnv("GOOGLE_BOOKS_URL", ""),
		SettingsEncryptionKey: getEnv("SETTINGS_ENCRYPTION_KEY", ""),
		LogLevel:              strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:             strings.ToLower(getEnv("LOG_FORMAT", "text")),
	}

	for _, o := range strings.Split(getEnv("CORS_ORIGINS", "*"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, o)
		}
	}

	var err error
	if cfg.MaxUploadMB, err = getInt64("MAX_UPLOAD_MB", 50); err != nil {
		return nil, err
	}
	if cfg.AudioCacheCost, err = getInt64("AUDIO_CACHE_BYTES", 64<<20); err != nil {
		return nil, err
	}
	if cfg.RedisDB, err = getInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.GeminiTimeoutSeconds, err = getInt("GEMINI_TIMEOUT_SECONDS", 30); err != nil {
		return nil, err
	}
	if cfg.EnrichWorkers, err = getInt("ENRICH_WORKERS", 4); err != nil {
		return nil, err
	}
	if cfg.EnrichQueue, err = getInt("ENRICH_QUEUE", 64); err != nil {
		return nil, err
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	n, err := getInt64(key, int64(fallback))
	return int(n), err
}

func getInt64(key string, fallback int64) (int64, error) {
	v := getEnv(key, "")
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", key, v)
	}
	return n, nil
}

// RequiredEnvVars must be set for serve to start.
var RequiredEnvVars = []string{
	"MONGODB_URI",
	"MONGODB_DB",
	"JWT_SECRET",
	"AUTH_EMAIL",
	"AUTH_PASSWORD",
}

// OptionalEnvVars are reported at startup so you can confirm they are loaded when set.
var OptionalEnvVars = []string{
	"PORT",
	"REDIS_ADDR",
	"AWS_S3_BUCKET",
	"AWS_REGION",
	"AWS_ACCESS_KEY_ID",
	"AWS_SECRET_ACCESS_KEY",
	"GEMINI_API_KEY",
	"GEMINI_MODEL",
	"SETTINGS_ENCRYPTION_KEY",
	"LOG_LEVEL",
	"LOG_FORMAT",
}

var secretEnvVars = map[string]bool{
	"AUTH_PASSWORD":           true,
	"JWT_SECRET":              true,
	"AWS_ACCESS_KEY_ID":       true,
	"AWS_SECRET_ACCESS_KEY":   true,
	"GEMINI_API_KEY":          true,
	"SETTINGS_ENCRYPTION_KEY": true,
	"REDIS_PASSWORD":          true,
}

// ValidateEnv checks the required variables and reports the optional ones.
func ValidateEnv(log *slog.Logger) error {
	var missing []string
	for _, key := range RequiredEnvVars {
		if strings.TrimSpace(os.Getenv(key)) == "" {
			missing = append(missing, key)
		} else {
			log.Debug("env loaded", "key", key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required env: %s (set these in .env or environment)", strings.Join(missing, ", "))
	}
	for _, key := range OptionalEnvVars {
		v := strings.TrimSpace(os.Getenv(key))
		switch {
		case v == "":
			log.Debug("env not set (optional)", "key", key)
		case secretEnvVars[key]:
			log.Debug("env loaded", "key", key)
		default:
			log.Debug("env loaded", "key", key, "value", v)
		}
	}
	if os.Getenv("JWT_SECRET") == "change-me-in-production" {
		return fmt.Errorf("JWT_SECRET must be set to a strong secret (not the default change-me-in-production)")
	}
	if os.Getenv("GEMINI_API_KEY") == "" {
		log.Warn("GEMINI_API_KEY not set; study cards, glossaries and IPA lookups are disabled")
	}
	return nil
}
