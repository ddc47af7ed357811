package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Storage  StorageConfig
	Auth     AuthConfig
	Probe    ProbeConfig
	Geocode  GeocodeConfig
	Events   EventsConfig
	Ingest   IngestConfig
	Tracing  TracingConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	MaxUploadBytes  int64
	RateLimitRPS    int
	RateLimitBurst  int
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
	MinConns int
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
	VideoTTL time.Duration
}

// StorageConfig holds video file storage configuration. Backend selects
// between the local disk store and S3-compatible object storage.
type StorageConfig struct {
	Backend       string // "disk" or "s3"
	LocalDir      string
	PublicBaseURL string

	// S3/MinIO settings, used when Backend == "s3"
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	Region          string
	UseSSL          bool
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	JWTSecret string
}

// ProbeConfig holds ffprobe invocation configuration
type ProbeConfig struct {
	FFprobePath    string
	Timeout        time.Duration
	MaxConcurrent  int
	MaxOutputBytes int64
}

// GeocodeConfig holds reverse-geocoding configuration
type GeocodeConfig struct {
	Enabled           bool
	BaseURL           string
	UserAgent         string
	Timeout           time.Duration
	RequestsPerSecond float64
	CacheTTL          time.Duration
}

// EventsConfig holds message queue configuration for ingest events
type EventsConfig struct {
	Enabled  bool
	Host     string
	Port     int
	User     string
	Password string
	Vhost    string
}

// IngestConfig holds ingestion pipeline configuration
type IngestConfig struct {
	ProgressInterval time.Duration
}

// TracingConfig holds distributed tracing configuration
type TracingConfig struct {
	Enabled  bool
	Endpoint string
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// Load reads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	// Set defaults
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.readTimeout", "10m")
	viper.SetDefault("server.writeTimeout", "30s")
	viper.SetDefault("server.shutdownTimeout", "10s")
	viper.SetDefault("server.maxUploadBytes", 8*1024*1024*1024) // 8GB
	viper.SetDefault("server.rateLimitRPS", 10)
	viper.SetDefault("server.rateLimitBurst", 20)

	// Database defaults
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.dbname", "cinevault")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.maxConns", 25)
	viper.SetDefault("database.minConns", 5)

	// Redis defaults
	viper.SetDefault("redis.enabled", true)
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.videoTTL", "5m")

	// Storage defaults
	viper.SetDefault("storage.backend", "disk")
	viper.SetDefault("storage.localDir", "./videos")
	viper.SetDefault("storage.publicBaseURL", "/api/v1/videos")
	viper.SetDefault("storage.endpoint", "localhost:9000")
	viper.SetDefault("storage.accessKeyID", "minioadmin")
	viper.SetDefault("storage.secretAccessKey", "minioadmin")
	viper.SetDefault("storage.bucketName", "videos")
	viper.SetDefault("storage.region", "us-east-1")
	viper.SetDefault("storage.useSSL", false)

	// Auth defaults
	viper.SetDefault("auth.jwtSecret", "")

	// Probe defaults
	viper.SetDefault("probe.ffprobePath", "ffprobe")
	viper.SetDefault("probe.timeout", "30s")
	viper.SetDefault("probe.maxConcurrent", 4)
	viper.SetDefault("probe.maxOutputBytes", 10*1024*1024) // 10MB

	// Geocode defaults
	viper.SetDefault("geocode.enabled", true)
	viper.SetDefault("geocode.baseURL", "https://nominatim.openstreetmap.org")
	viper.SetDefault("geocode.userAgent", "CineVault/1.0")
	viper.SetDefault("geocode.timeout", "5s")
	viper.SetDefault("geocode.requestsPerSecond", 1)
	viper.SetDefault("geocode.cacheTTL", "720h")

	// Events defaults
	viper.SetDefault("events.enabled", false)
	viper.SetDefault("events.host", "localhost")
	viper.SetDefault("events.port", 5672)
	viper.SetDefault("events.user", "guest")
	viper.SetDefault("events.password", "guest")
	viper.SetDefault("events.vhost", "/")

	// Ingest defaults
	viper.SetDefault("ingest.progressInterval", "2s")

	// Tracing defaults
	viper.SetDefault("tracing.enabled", false)
	viper.SetDefault("tracing.endpoint", "http://localhost:14268/api/traces")

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
}
