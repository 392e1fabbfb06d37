package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Database    DatabaseConfig    `yaml:"database"`
	Server      ServerConfig      `yaml:"server"`
	OCR         OCRConfig         `yaml:"ocr"`
	Translation TranslationConfig `yaml:"translation"`
	Generative  GenerativeConfig  `yaml:"generative"`
	Pipeline    PipelineConfig    `yaml:"pipeline"`
	Cache       CacheConfig       `yaml:"cache"`
	Events      EventsConfig      `yaml:"events"`
	Storage     StorageConfig     `yaml:"storage"`
	Logging     LoggingConfig     `yaml:"logging"`
	Metrics     MetricsConfig     `yaml:"metrics"`
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	// Driver selects the store: "pgx" (pgxpool), "postgres" (lib/pq), "sqlite" or "firestore".
	Driver           string        `yaml:"driver"`
	DSN              string        `yaml:"dsn"`
	MaxConns         int32         `yaml:"maxConns"`
	MinConns         int32         `yaml:"minConns"`
	MaxConnLifetime  time.Duration `yaml:"maxConnLifetime"`
	MaxConnIdleTime  time.Duration `yaml:"maxConnIdleTime"`
	DialTimeout      time.Duration `yaml:"dialTimeout"`
	StatementTimeout time.Duration `yaml:"statementTimeout"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPAddr        string        `yaml:"httpAddr"`
	GRPCAddr        string        `yaml:"grpcAddr"`
	UploadDir       string        `yaml:"uploadDir"`
	InboxDir        string        `yaml:"inboxDir"`
	// InboxPatientID is used for inbox and bucket files without a "<id>_" name prefix.
	InboxPatientID  int64         `yaml:"inboxPatientId"`
	MaxUploadBytes  int64         `yaml:"maxUploadBytes"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	Workers         int           `yaml:"workers"`
	QueueSize       int           `yaml:"queueSize"`
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	// Engine is "tesseract" or "vision".
	Engine        string `yaml:"engine"`
	HeicConverter string `yaml:"heicConverter"`
	TessdataDir   string `yaml:"tessdataDir"`
	Languages     string `yaml:"languages"`
	DPI           int    `yaml:"dpi"`
	MaxPages      int    `yaml:"maxPages"`
	// CredentialsJSON / CredentialsFile are only read by the vision engine.
	CredentialsJSON string `yaml:"-"`
	CredentialsFile string `yaml:"credentialsFile"`
}

// TranslationConfig selects the translation backend.
type TranslationConfig struct {
	// Backend is "none", "openai" or "vertex".
	Backend     string        `yaml:"backend"`
	Model       string        `yaml:"model"`
	APIKey      string        `yaml:"-"`
	BaseURL     string        `yaml:"baseUrl"`
	Temperature float32       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
}

// GenerativeConfig configures Vertex AI for the generative summarizer and translation backend.
type GenerativeConfig struct {
	ProjectID string `yaml:"projectId"`
	Region    string `yaml:"region"`
	Model     string `yaml:"model"`
}

// PipelineConfig holds assembler settings.
type PipelineConfig struct {
	Strategy     string `yaml:"strategy"`
	ValidateJSON bool   `yaml:"validateJson"`
}

// CacheConfig configures the redis translation cache; empty Addr disables it.
type CacheConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"-"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	TTL      time.Duration `yaml:"ttl"`
}

// EventsConfig configures the kafka producer; no brokers disables publishing.
type EventsConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// StorageConfig configures the upload archive.
type StorageConfig struct {
	GCSBucket  string `yaml:"gcsBucket"`
	GCSPrefix  string `yaml:"gcsPrefix"`
	Collection string `yaml:"firestoreCollection"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	cfg := defaultConfig()
	applyEnv(cfg)
	return cfg
}

// LoadConfigFile reads a YAML file (if path is non-empty) and then applies
// environment overrides on top of it.
func LoadConfigFile(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnv(cfg)
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:          "pgx",
			MaxConns:        20,
			MinConns:        2,
			MaxConnLifetime: 30 * time.Minute,
			MaxConnIdleTime: 5 * time.Minute,
			DialTimeout:     3 * time.Second,
		},
		Server: ServerConfig{
			HTTPAddr:        ":8080",
			GRPCAddr:        ":9090",
			UploadDir:       "./uploads",
			MaxUploadBytes:  32 << 20,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    5 * time.Minute,
			ShutdownTimeout: 15 * time.Second,
			Workers:         2,
			QueueSize:       64,
		},
		OCR: OCRConfig{
			Engine:        "tesseract",
			HeicConverter: "sips",
			Languages:     "eng+deu",
			DPI:           300,
			MaxPages:      20,
		},
		Translation: TranslationConfig{
			Backend: "none",
			Model:   "gpt-4o-mini",
			Timeout: 45 * time.Second,
		},
		Generative: GenerativeConfig{
			Region: "us-central1",
			Model:  "gemini-1.5-flash",
		},
		Pipeline: PipelineConfig{
			Strategy:     "rule_based",
			ValidateJSON: true,
		},
		Cache: CacheConfig{
			PoolSize: 10,
			TTL:      24 * time.Hour,
		},
		Events: EventsConfig{
			Topic: "document.processed",
		},
		Storage: StorageConfig{
			GCSPrefix:  "uploads/",
			Collection: "documents",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

func applyEnv(c *Config) {
	c.Database.Driver = getEnv("DB_DRIVER", c.Database.Driver)
	c.Database.DSN = getEnv("DB_URL", c.Database.DSN)
	c.Database.MaxConns = getEnvAsInt32("DB_MAX_CONNS", c.Database.MaxConns)
	c.Database.MinConns = getEnvAsInt32("DB_MIN_CONNS", c.Database.MinConns)
	c.Database.MaxConnLifetime = getEnvAsDuration("DB_MAX_CONN_LIFETIME", c.Database.MaxConnLifetime)
	c.Database.MaxConnIdleTime = getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", c.Database.MaxConnIdleTime)
	c.Database.DialTimeout = getEnvAsDuration("DB_DIAL_TIMEOUT", c.Database.DialTimeout)
	c.Database.StatementTimeout = getEnvAsDuration("DB_STATEMENT_TIMEOUT", c.Database.StatementTimeout)

	c.Server.HTTPAddr = getEnv("HTTP_ADDR", c.Server.HTTPAddr)
	c.Server.GRPCAddr = getEnv("GRPC_ADDR", c.Server.GRPCAddr)
	c.Server.UploadDir = getEnv("UPLOAD_DIR", c.Server.UploadDir)
	c.Server.InboxDir = getEnv("INBOX_DIR", c.Server.InboxDir)
	c.Server.InboxPatientID = getEnvAsInt64("INBOX_PATIENT_ID", c.Server.InboxPatientID)
	c.Server.MaxUploadBytes = getEnvAsInt64("MAX_UPLOAD_BYTES", c.Server.MaxUploadBytes)
	c.Server.Workers = getEnvAsInt("WORKERS", c.Server.Workers)
	c.Server.QueueSize = getEnvAsInt("QUEUE_SIZE", c.Server.QueueSize)

	c.OCR.Engine = getEnv("OCR_ENGINE", c.OCR.Engine)
	c.OCR.HeicConverter = getEnv("HEIC_CONVERTER", c.OCR.HeicConverter)
	c.OCR.TessdataDir = getEnv("TESSDATA_PREFIX", c.OCR.TessdataDir)
	c.OCR.Languages = getEnv("OCR_LANGUAGES", c.OCR.Languages)
	c.OCR.DPI = getEnvAsInt("OCR_DPI", c.OCR.DPI)
	c.OCR.MaxPages = getEnvAsInt("OCR_MAX_PAGES", c.OCR.MaxPages)
	c.OCR.CredentialsJSON = getEnv("GOOGLE_CREDENTIALS", c.OCR.CredentialsJSON)
	c.OCR.CredentialsFile = getEnv("GOOGLE_APPLICATION_CREDENTIALS", c.OCR.CredentialsFile)

	c.Translation.Backend = getEnv("TRANSLATION_BACKEND", c.Translation.Backend)
	c.Translation.Model = getEnv("OPENAI_MODEL", c.Translation.Model)
	c.Translation.APIKey = getEnv("OPENAI_API_KEY", c.Translation.APIKey)
	c.Translation.BaseURL = getEnv("OPENAI_BASE_URL", c.Translation.BaseURL)
	c.Translation.Temperature = getEnvAsFloat32("OPENAI_TEMPERATURE", c.Translation.Temperature)
	c.Translation.Timeout = getEnvAsDuration("OPENAI_TIMEOUT", c.Translation.Timeout)

	c.Generative.ProjectID = getEnv("GCP_PROJECT", c.Generative.ProjectID)
	c.Generative.Region = getEnv("GCP_REGION", c.Generative.Region)
	c.Generative.Model = getEnv("VERTEX_MODEL", c.Generative.Model)

	c.Pipeline.Strategy = getEnv("SUMMARY_STRATEGY", c.Pipeline.Strategy)
	c.Pipeline.ValidateJSON = getEnvAsBool("VALIDATE_JSON", c.Pipeline.ValidateJSON)

	c.Cache.Addr = getEnv("REDIS_ADDR", c.Cache.Addr)
	c.Cache.Password = getEnv("REDIS_PASSWORD", c.Cache.Password)
	c.Cache.DB = getEnvAsInt("REDIS_DB", c.Cache.DB)
	c.Cache.TTL = getEnvAsDuration("TRANSLATION_CACHE_TTL", c.Cache.TTL)

	if brokers := getEnv("KAFKA_BROKERS", ""); brokers != "" {
		c.Events.Brokers = splitCSV(brokers)
	}
	c.Events.Topic = getEnv("KAFKA_TOPIC", c.Events.Topic)

	c.Storage.GCSBucket = getEnv("GCS_BUCKET", c.Storage.GCSBucket)
	c.Storage.GCSPrefix = getEnv("GCS_PREFIX", c.Storage.GCSPrefix)
	c.Storage.Collection = getEnv("FIRESTORE_COLLECTION", c.Storage.Collection)

	c.Logging.Level = getEnv("LOG_LEVEL", c.Logging.Level)
	c.Logging.Format = getEnv("LOG_FORMAT", c.Logging.Format)

	c.Metrics.Enabled = getEnvAsBool("METRICS_ENABLED", c.Metrics.Enabled)
	c.Metrics.Path = getEnv("METRICS_PATH", c.Metrics.Path)
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "pgx", "postgres":
		if c.Database.DSN == "" {
			return NewAppError("CONFIG_ERROR", "DB_URL is required", ErrInvalidInput)
		}
	case "sqlite", "firestore":
	default:
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("unknown DB_DRIVER %q", c.Database.Driver), ErrInvalidInput)
	}
	switch c.Translation.Backend {
	case "", "none":
	case "openai":
		if c.Translation.APIKey == "" {
			return NewAppError("CONFIG_ERROR", "OPENAI_API_KEY is required", ErrInvalidInput)
		}
	case "vertex":
		if c.Generative.ProjectID == "" {
			return NewAppError("CONFIG_ERROR", "GCP_PROJECT is required for the vertex backend", ErrInvalidInput)
		}
	default:
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("unknown TRANSLATION_BACKEND %q", c.Translation.Backend), ErrInvalidInput)
	}
	if c.Pipeline.Strategy == "generative" && c.Generative.ProjectID == "" {
		return NewAppError("CONFIG_ERROR", "GCP_PROJECT is required for the generative strategy", ErrInvalidInput)
	}
	if c.Server.HTTPAddr == "" {
		return NewAppError("CONFIG_ERROR", "HTTP_ADDR is required", ErrInvalidInput)
	}
	return nil
}
