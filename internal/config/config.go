package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/precachefs/precachefs/pkg/utils"
)

// Configuration represents the complete application configuration.
type Configuration struct {
	Global     GlobalConfig     `yaml:"global"`
	Mount      MountConfig      `yaml:"mount"`
	Cache      CacheConfig      `yaml:"cache"`
	Predictor  PredictorConfig  `yaml:"predictor"`
	Storage    StorageConfig    `yaml:"storage"`
	Network    NetworkConfig    `yaml:"network"`
	Security   SecurityConfig   `yaml:"security"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Features   FeatureConfig    `yaml:"features"`
}

// GlobalConfig represents global application settings.
type GlobalConfig struct {
	LogLevel    string `yaml:"log_level"`
	LogFile     string `yaml:"log_file"`
	MetricsPort int    `yaml:"metrics_port"`
	HealthPort  int    `yaml:"health_port"`
	ProfilePort int    `yaml:"profile_port"`
}

// MountConfig describes where the FUSE filesystem is mounted and which
// backing root it serves. Root is either a local directory or an
// "s3://bucket/prefix" URL; which BackingStore gets constructed follows
// from its scheme.
type MountConfig struct {
	MountPoint string `yaml:"mount_point"`
	Root       string `yaml:"root"`
	ReadOnly   bool   `yaml:"read_only"`
	AllowOther bool   `yaml:"allow_other"`
}

// CacheConfig sizes the in-memory prefetch store (C1).
type CacheConfig struct {
	MemoryLimitBytes int64 `yaml:"memory_limit_bytes"`
	ChunkSizeBytes   int64 `yaml:"chunk_size_bytes"`
}

// PredictorConfig configures the first-order Markov predictor (C3).
type PredictorConfig struct {
	Adaptive      bool    `yaml:"adaptive"`
	Decay         float64 `yaml:"decay"`
	MinConfidence float64 `yaml:"min_confidence"`
	TopK          int     `yaml:"top_k"`
}

// NetworkConfig represents network configuration.
type NetworkConfig struct {
	Timeouts       TimeoutConfig        `yaml:"timeouts"`
	Retry          RetryConfig          `yaml:"retry"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
}

// TimeoutConfig represents timeout settings.
type TimeoutConfig struct {
	Connect time.Duration `yaml:"connect"`
	Read    time.Duration `yaml:"read"`
}

// RetryConfig represents retry settings.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay"`
}

// CircuitBreakerConfig represents circuit breaker settings.
type CircuitBreakerConfig struct {
	Enabled          bool          `yaml:"enabled"`
	FailureThreshold int           `yaml:"failure_threshold"`
	Timeout          time.Duration `yaml:"timeout"`
}

// SecurityConfig represents security settings.
type SecurityConfig struct {
	TLS TLSConfig `yaml:"tls"`
}

// TLSConfig represents TLS settings.
type TLSConfig struct {
	VerifyCertificates bool   `yaml:"verify_certificates"`
	MinVersion         string `yaml:"min_version"`
}

// MonitoringConfig represents monitoring settings.
type MonitoringConfig struct {
	Metrics      MetricsConfig      `yaml:"metrics"`
	HealthChecks HealthChecksConfig `yaml:"health_checks"`
	Logging      LoggingConfig      `yaml:"logging"`
}

// MetricsConfig represents metrics settings.
type MetricsConfig struct {
	Enabled      bool              `yaml:"enabled"`
	Prometheus   bool              `yaml:"prometheus"`
	CustomLabels map[string]string `yaml:"custom_labels"`
}

// HealthChecksConfig represents health check settings.
type HealthChecksConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
	Timeout  time.Duration `yaml:"timeout"`
}

// LoggingConfig represents logging settings.
type LoggingConfig struct {
	Structured bool   `yaml:"structured"`
	Format     string `yaml:"format"`
}

// StorageConfig carries the object-store-specific settings, consulted
// only when Mount.Root has an s3:// scheme.
type StorageConfig struct {
	S3 S3Config `yaml:"s3"`
}

// S3Config represents S3 backend configuration.
type S3Config struct {
	Region         string `yaml:"region"`
	Endpoint       string `yaml:"endpoint"`
	ForcePathStyle bool   `yaml:"force_path_style"`
	// AccessKeyID and SecretAccessKey, when both set, select static
	// credentials instead of the default AWS credential chain. Typically
	// paired with Endpoint+ForcePathStyle for an S3-compatible store
	// (e.g. MinIO) that doesn't participate in IAM.
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

// FeatureConfig represents feature flags.
type FeatureConfig struct {
	Prefetching     bool `yaml:"prefetching"`
	MetadataCaching bool `yaml:"metadata_caching"`
}

// NewDefault returns a configuration with sensible defaults.
func NewDefault() *Configuration {
	return &Configuration{
		Global: GlobalConfig{
			LogLevel:    "INFO",
			LogFile:     "",
			MetricsPort: 8080,
			HealthPort:  8081,
			ProfilePort: 6060,
		},
		Mount: MountConfig{
			MountPoint: "/mnt/precachefs",
			Root:       "",
			ReadOnly:   true,
			AllowOther: false,
		},
		Cache: CacheConfig{
			MemoryLimitBytes: 4 << 30, // 4GiB
			ChunkSizeBytes:   1 << 20, // 1MiB, reserved for future range-granular caching
		},
		Predictor: PredictorConfig{
			Adaptive:      false,
			Decay:         1.0,
			MinConfidence: 0,
			TopK:          8,
		},
		Storage: StorageConfig{
			S3: S3Config{
				Region: "us-east-1",
			},
		},
		Network: NetworkConfig{
			Timeouts: TimeoutConfig{
				Connect: 10 * time.Second,
				Read:    30 * time.Second,
			},
			Retry: RetryConfig{
				MaxAttempts: 3,
				BaseDelay:   1 * time.Second,
				MaxDelay:    30 * time.Second,
			},
			CircuitBreaker: CircuitBreakerConfig{
				Enabled:          true,
				FailureThreshold: 5,
				Timeout:          60 * time.Second,
			},
		},
		Security: SecurityConfig{
			TLS: TLSConfig{
				VerifyCertificates: true,
				MinVersion:         "1.2",
			},
		},
		Monitoring: MonitoringConfig{
			Metrics: MetricsConfig{
				Enabled:    true,
				Prometheus: true,
				CustomLabels: map[string]string{
					"service": "precachefs",
				},
			},
			HealthChecks: HealthChecksConfig{
				Enabled:  true,
				Interval: 30 * time.Second,
				Timeout:  5 * time.Second,
			},
			Logging: LoggingConfig{
				Structured: true,
				Format:     "json",
			},
		},
		Features: FeatureConfig{
			Prefetching:     true,
			MetadataCaching: true,
		},
	}
}

// LoadFromFile loads configuration from a YAML file.
func (c *Configuration) LoadFromFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// LoadFromEnv overlays environment variables onto an already-loaded
// configuration.
func (c *Configuration) LoadFromEnv() error {
	if val := os.Getenv("PRECACHEFS_LOG_LEVEL"); val != "" {
		c.Global.LogLevel = val
	}
	if val := os.Getenv("PRECACHEFS_LOG_FILE"); val != "" {
		c.Global.LogFile = val
	}
	if val := os.Getenv("PRECACHEFS_METRICS_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			c.Global.MetricsPort = port
		}
	}

	if val := os.Getenv("PRECACHEFS_MOUNT_POINT"); val != "" {
		c.Mount.MountPoint = val
	}
	if val := os.Getenv("PRECACHEFS_ROOT"); val != "" {
		c.Mount.Root = val
	}

	if val := os.Getenv("PRECACHEFS_MEMORY_LIMIT_BYTES"); val != "" {
		if limit, err := utils.ParseBytes(val); err == nil {
			c.Cache.MemoryLimitBytes = limit
		}
	}
	if val := os.Getenv("PRECACHEFS_CHUNK_SIZE_BYTES"); val != "" {
		if size, err := utils.ParseBytes(val); err == nil {
			c.Cache.ChunkSizeBytes = size
		}
	}

	if val := os.Getenv("PRECACHEFS_PREDICTOR_ADAPTIVE"); val != "" {
		c.Predictor.Adaptive = strings.ToLower(val) == "true"
	}

	if val := os.Getenv("PRECACHEFS_PREFETCHING"); val != "" {
		c.Features.Prefetching = strings.ToLower(val) == "true"
	}

	return nil
}

// SaveToFile saves the configuration to a YAML file.
func (c *Configuration) SaveToFile(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(filename), 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(filename, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration.
func (c *Configuration) Validate() error {
	if c.Mount.Root == "" {
		return fmt.Errorf("mount.root must be set")
	}

	if c.Cache.MemoryLimitBytes <= 0 {
		return fmt.Errorf("cache.memory_limit_bytes must be greater than 0")
	}

	if c.Global.MetricsPort == c.Global.HealthPort {
		return fmt.Errorf("metrics_port and health_port cannot be the same")
	}

	if c.Predictor.TopK <= 0 {
		return fmt.Errorf("predictor.top_k must be greater than 0")
	}
	if c.Predictor.Decay <= 0 || c.Predictor.Decay > 1 {
		return fmt.Errorf("predictor.decay must be in (0, 1]")
	}

	validLogLevels := []string{"DEBUG", "INFO", "WARN", "ERROR"}
	logLevelValid := false
	for _, level := range validLogLevels {
		if c.Global.LogLevel == level {
			logLevelValid = true
			break
		}
	}
	if !logLevelValid {
		return fmt.Errorf("invalid log_level: %s (must be one of: %s)",
			c.Global.LogLevel, strings.Join(validLogLevels, ", "))
	}

	return nil
}
