package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	DB       DBConfig
	History  HistoryConfig
	Archive  ArchiveConfig
	Log      LogConfig
	OCR      OCRConfig
	Pipeline PipelineConfig
	CORS     CORSConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
}

// DBConfig holds PostgreSQL connection settings for the extraction history store.
type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxOpen  int    `mapstructure:"max_open"`
	MaxIdle  int    `mapstructure:"max_idle"`
}

// DSN returns the PostgreSQL connection string.
func (d *DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// HistoryConfig controls whether extraction runs are persisted.
type HistoryConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// ArchiveConfig holds S3 settings for archiving uploaded receipt images.
// An empty bucket disables archiving.
type ArchiveConfig struct {
	Region        string `mapstructure:"region"`
	Bucket        string `mapstructure:"bucket"`
	Endpoint      string `mapstructure:"endpoint"`
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
	MaxFileSizeMB int64  `mapstructure:"max_file_size_mb"`
	PresignExpiry int64  `mapstructure:"presign_expiry"`
}

// Enabled reports whether image archiving is configured.
func (a *ArchiveConfig) Enabled() bool {
	return a.Bucket != ""
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// OCRProviderConfig holds settings for a single OCR provider.
type OCRProviderConfig struct {
	Provider    string `mapstructure:"provider"`
	APIKey      string `mapstructure:"api_key"`
	Model       string `mapstructure:"model"`
	MaxRetries  int    `mapstructure:"max_retries"`
	TimeoutSecs int    `mapstructure:"timeout_secs"`
}

// OCRConfig holds OCR engine settings with primary/secondary fallback.
type OCRConfig struct {
	Primary   OCRProviderConfig `mapstructure:"primary"`
	Secondary OCRProviderConfig `mapstructure:"secondary"`
}

// PipelineConfig holds the tunable policy constants of the extraction pipeline.
// The arithmetic tolerance and the confidence weighting are policy, not
// structure, so they live here rather than in the pipeline code.
type PipelineConfig struct {
	// ContextWindow is the number of words captured on either side of a
	// numeric token.
	ContextWindow int `mapstructure:"context_window"`
	// Tolerance is the absolute slack allowed in the total = paid + due check.
	Tolerance float64 `mapstructure:"tolerance"`
	// NormalizationWeight and ClassificationWeight blend the two confidence
	// components; they should sum to 1.
	NormalizationWeight  float64 `mapstructure:"normalization_weight"`
	ClassificationWeight float64 `mapstructure:"classification_weight"`
	// CorrectionPenalty scales the confidence loss per correction ratio and
	// NormalizationFloor bounds it from below.
	CorrectionPenalty  float64 `mapstructure:"correction_penalty"`
	NormalizationFloor float64 `mapstructure:"normalization_floor"`
	// ClassificationCap bounds the classification component from above.
	ClassificationCap float64 `mapstructure:"classification_cap"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Load reads configuration from environment variables with the BILLPARSE_ prefix.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("BILLPARSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.environment", "development")

	// DB defaults
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "billparse")
	v.SetDefault("db.password", "billparse_secret")
	v.SetDefault("db.name", "billparse_db")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open", 25)
	v.SetDefault("db.max_idle", 10)

	// History defaults
	v.SetDefault("history.enabled", false)

	// Archive defaults
	v.SetDefault("archive.region", "us-east-1")
	v.SetDefault("archive.bucket", "")
	v.SetDefault("archive.endpoint", "")
	v.SetDefault("archive.max_file_size_mb", 20)
	v.SetDefault("archive.presign_expiry", 3600)

	// Log defaults
	v.SetDefault("log.level", "debug")
	v.SetDefault("log.format", "console")

	// OCR defaults: no provider configured; image uploads are rejected until
	// an engine is set up.
	v.SetDefault("ocr.primary.provider", "")
	v.SetDefault("ocr.primary.api_key", "")
	v.SetDefault("ocr.primary.model", "")
	v.SetDefault("ocr.primary.max_retries", 2)
	v.SetDefault("ocr.primary.timeout_secs", 60)
	v.SetDefault("ocr.secondary.provider", "")
	v.SetDefault("ocr.secondary.api_key", "")
	v.SetDefault("ocr.secondary.model", "")
	v.SetDefault("ocr.secondary.max_retries", 2)
	v.SetDefault("ocr.secondary.timeout_secs", 60)

	// Pipeline defaults
	v.SetDefault("pipeline.context_window", 2)
	v.SetDefault("pipeline.tolerance", 0.01)
	v.SetDefault("pipeline.normalization_weight", 0.5)
	v.SetDefault("pipeline.classification_weight", 0.5)
	v.SetDefault("pipeline.correction_penalty", 0.25)
	v.SetDefault("pipeline.normalization_floor", 0.6)
	v.SetDefault("pipeline.classification_cap", 0.95)

	// CORS defaults (localhost origins for development)
	v.SetDefault("cors.allowed_origins", "http://localhost:3000,http://127.0.0.1:3000")

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"server.port":                    "BILLPARSE_SERVER_PORT",
		"server.read_timeout":            "BILLPARSE_SERVER_READ_TIMEOUT",
		"server.write_timeout":           "BILLPARSE_SERVER_WRITE_TIMEOUT",
		"server.environment":             "BILLPARSE_SERVER_ENVIRONMENT",
		"db.host":                        "BILLPARSE_DB_HOST",
		"db.port":                        "BILLPARSE_DB_PORT",
		"db.user":                        "BILLPARSE_DB_USER",
		"db.password":                    "BILLPARSE_DB_PASSWORD",
		"db.name":                        "BILLPARSE_DB_NAME",
		"db.sslmode":                     "BILLPARSE_DB_SSLMODE",
		"db.max_open":                    "BILLPARSE_DB_MAX_OPEN",
		"db.max_idle":                    "BILLPARSE_DB_MAX_IDLE",
		"history.enabled":                "BILLPARSE_HISTORY_ENABLED",
		"archive.region":                 "BILLPARSE_ARCHIVE_REGION",
		"archive.bucket":                 "BILLPARSE_ARCHIVE_BUCKET",
		"archive.endpoint":               "BILLPARSE_ARCHIVE_ENDPOINT",
		"archive.access_key":             "BILLPARSE_ARCHIVE_ACCESS_KEY",
		"archive.secret_key":             "BILLPARSE_ARCHIVE_SECRET_KEY",
		"archive.max_file_size_mb":       "BILLPARSE_ARCHIVE_MAX_FILE_SIZE_MB",
		"archive.presign_expiry":         "BILLPARSE_ARCHIVE_PRESIGN_EXPIRY",
		"log.level":                      "BILLPARSE_LOG_LEVEL",
		"log.format":                     "BILLPARSE_LOG_FORMAT",
		"ocr.primary.provider":           "BILLPARSE_OCR_PRIMARY_PROVIDER",
		"ocr.primary.api_key":            "BILLPARSE_OCR_PRIMARY_API_KEY",
		"ocr.primary.model":              "BILLPARSE_OCR_PRIMARY_MODEL",
		"ocr.primary.max_retries":        "BILLPARSE_OCR_PRIMARY_MAX_RETRIES",
		"ocr.primary.timeout_secs":       "BILLPARSE_OCR_PRIMARY_TIMEOUT_SECS",
		"ocr.secondary.provider":         "BILLPARSE_OCR_SECONDARY_PROVIDER",
		"ocr.secondary.api_key":          "BILLPARSE_OCR_SECONDARY_API_KEY",
		"ocr.secondary.model":            "BILLPARSE_OCR_SECONDARY_MODEL",
		"ocr.secondary.max_retries":      "BILLPARSE_OCR_SECONDARY_MAX_RETRIES",
		"ocr.secondary.timeout_secs":     "BILLPARSE_OCR_SECONDARY_TIMEOUT_SECS",
		"pipeline.context_window":        "BILLPARSE_PIPELINE_CONTEXT_WINDOW",
		"pipeline.tolerance":             "BILLPARSE_PIPELINE_TOLERANCE",
		"pipeline.normalization_weight":  "BILLPARSE_PIPELINE_NORMALIZATION_WEIGHT",
		"pipeline.classification_weight": "BILLPARSE_PIPELINE_CLASSIFICATION_WEIGHT",
		"pipeline.correction_penalty":    "BILLPARSE_PIPELINE_CORRECTION_PENALTY",
		"pipeline.normalization_floor":   "BILLPARSE_PIPELINE_NORMALIZATION_FLOOR",
		"pipeline.classification_cap":    "BILLPARSE_PIPELINE_CLASSIFICATION_CAP",
		"cors.allowed_origins":           "BILLPARSE_CORS_ALLOWED_ORIGINS",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}

	// Railway/Heroku/Render set a PORT env var. Use it if BILLPARSE_SERVER_PORT
	// is not explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("BILLPARSE_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:         serverPort,
		ReadTimeout:  v.GetDuration("server.read_timeout"),
		WriteTimeout: v.GetDuration("server.write_timeout"),
		Environment:  v.GetString("server.environment"),
	}
	cfg.DB = DBConfig{
		Host:     v.GetString("db.host"),
		Port:     v.GetInt("db.port"),
		User:     v.GetString("db.user"),
		Password: v.GetString("db.password"),
		Name:     v.GetString("db.name"),
		SSLMode:  v.GetString("db.sslmode"),
		MaxOpen:  v.GetInt("db.max_open"),
		MaxIdle:  v.GetInt("db.max_idle"),
	}
	cfg.History = HistoryConfig{
		Enabled: v.GetBool("history.enabled"),
	}
	cfg.Archive = ArchiveConfig{
		Region:        v.GetString("archive.region"),
		Bucket:        v.GetString("archive.bucket"),
		Endpoint:      v.GetString("archive.endpoint"),
		AccessKey:     v.GetString("archive.access_key"),
		SecretKey:     v.GetString("archive.secret_key"),
		MaxFileSizeMB: v.GetInt64("archive.max_file_size_mb"),
		PresignExpiry: v.GetInt64("archive.presign_expiry"),
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}
	cfg.OCR = OCRConfig{
		Primary: OCRProviderConfig{
			Provider:    v.GetString("ocr.primary.provider"),
			APIKey:      v.GetString("ocr.primary.api_key"),
			Model:       v.GetString("ocr.primary.model"),
			MaxRetries:  v.GetInt("ocr.primary.max_retries"),
			TimeoutSecs: v.GetInt("ocr.primary.timeout_secs"),
		},
		Secondary: OCRProviderConfig{
			Provider:    v.GetString("ocr.secondary.provider"),
			APIKey:      v.GetString("ocr.secondary.api_key"),
			Model:       v.GetString("ocr.secondary.model"),
			MaxRetries:  v.GetInt("ocr.secondary.max_retries"),
			TimeoutSecs: v.GetInt("ocr.secondary.timeout_secs"),
		},
	}
	cfg.Pipeline = PipelineConfig{
		ContextWindow:        v.GetInt("pipeline.context_window"),
		Tolerance:            v.GetFloat64("pipeline.tolerance"),
		NormalizationWeight:  v.GetFloat64("pipeline.normalization_weight"),
		ClassificationWeight: v.GetFloat64("pipeline.classification_weight"),
		CorrectionPenalty:    v.GetFloat64("pipeline.correction_penalty"),
		NormalizationFloor:   v.GetFloat64("pipeline.normalization_floor"),
		ClassificationCap:    v.GetFloat64("pipeline.classification_cap"),
	}

	// Parse CORS allowed origins from comma-separated string
	var corsOrigins []string
	for _, o := range strings.Split(v.GetString("cors.allowed_origins"), ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			corsOrigins = append(corsOrigins, o)
		}
	}
	cfg.CORS = CORSConfig{
		AllowedOrigins: corsOrigins,
	}

	return cfg, nil
}
