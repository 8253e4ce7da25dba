/*
Package config provides layered configuration for precachefs: compiled-in
defaults, overlaid by the YAML file, overlaid by environment variable
overrides; environment variables take precedence over the file.

# Configuration Structure

Global Settings:
- Logging level/file, service ports (metrics, health, profiling)

Mount Settings:
- MountPoint, Root ("s3://bucket/prefix" or a local directory), ReadOnly,
  AllowOther

Cache Settings:
- MemoryLimitBytes: total size of the C1 LRU store
- ChunkSizeBytes: reserved for a future range-granular cache; unused by
  the current whole-file store

Predictor Settings:
- Adaptive, Decay, MinConfidence, TopK: see internal/cache's C3

Storage Settings:
- S3 region/endpoint/path-style, consulted only when Root is s3://

Network, Security, Monitoring, Features:
- Ambient settings carried from the upstream stack: timeouts, retries,
  circuit breaker, TLS, Prometheus/health-check/logging toggles, feature
  flags

# Usage

	cfg := config.NewDefault()
	if err := cfg.LoadFromFile("/etc/precachefs/config.yaml"); err != nil {
		log.Fatal(err)
	}
	if err := cfg.LoadFromEnv(); err != nil {
		log.Fatal(err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

Configuration file format:

	global:
	  log_level: INFO
	  metrics_port: 8080
	  health_port: 8081

	mount:
	  mount_point: /mnt/precachefs
	  root: s3://my-bucket/prefix
	  read_only: true

	cache:
	  memory_limit_bytes: 1073741824
	  chunk_size_bytes: 4194304

	predictor:
	  adaptive: false
	  top_k: 8

Environment variable mapping:

	PRECACHEFS_LOG_LEVEL
	PRECACHEFS_METRICS_PORT
	PRECACHEFS_ROOT
	PRECACHEFS_MEMORY_LIMIT_BYTES
	PRECACHEFS_CHUNK_SIZE_BYTES
	PRECACHEFS_PREDICTOR_ADAPTIVE
	PRECACHEFS_PREFETCHING

# Validation

Validate checks that Mount.Root is set, MemoryLimitBytes is positive,
the metrics and health ports differ, the predictor's TopK is positive
and Decay is in (0, 1], and LogLevel is one of DEBUG/INFO/WARN/ERROR.
*/
package config
