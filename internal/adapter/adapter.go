package adapter

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/precachefs/precachefs/internal/cache"
	"github.com/precachefs/precachefs/internal/config"
	"github.com/precachefs/precachefs/internal/fuse"
	"github.com/precachefs/precachefs/internal/health"
	"github.com/precachefs/precachefs/internal/metrics"
	pcerrors "github.com/precachefs/precachefs/pkg/errors"
	"github.com/precachefs/precachefs/pkg/retry"
)

// Adapter wires a Configuration into a running prefetch cache: it resolves
// mount.root to a BackingStore, builds the cache.Manager (C1-C3) on top of
// it, starts the metrics collector, and mounts the FUSE filesystem (C4's
// consumer). Start/Stop govern the lifecycle of the mount and the metrics
// server; the cache manager itself is assembled eagerly in New so that
// validation failures surface before anything is mounted.
type Adapter struct {
	config     *config.Configuration
	storageURI string
	mountPoint string
	bucketName string

	backend cache.BackingStore
	manager *cache.Manager
	metrics *metrics.Collector
	health  *health.Checker

	mu         sync.Mutex
	started    bool
	mountMgr   fuse.PlatformFileSystem
	healthStop context.CancelFunc
}

// New validates cfg, resolves mount.root to a backing store, and assembles
// the cache manager and metrics collector. Nothing is mounted yet.
func New(ctx context.Context, storageURI, mountPoint string, cfg *config.Configuration) (*Adapter, error) {
	if err := validateStorageURI(storageURI); err != nil {
		return nil, pcerrors.NewError(pcerrors.ErrCodeInvalidConfig, fmt.Sprintf("invalid storage URI: %s", err)).
			WithComponent("adapter").WithOperation("New").WithCause(err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, pcerrors.NewError(pcerrors.ErrCodeConfigValidation, fmt.Sprintf("invalid configuration: %s", err)).
			WithComponent("adapter").WithOperation("New").WithCause(err)
	}

	a := &Adapter{
		config:     cfg,
		storageURI: storageURI,
		mountPoint: mountPoint,
	}

	if bucket, ok := s3Bucket(storageURI); ok {
		a.bucketName = bucket
	}

	backend, err := newBackend(ctx, storageURI, cfg)
	if err != nil {
		return nil, fmt.Errorf("init backing store: %w", err)
	}
	a.backend = backend

	collector, err := metrics.NewCollector(&metrics.Config{
		Enabled:   cfg.Monitoring.Metrics.Enabled,
		Port:      cfg.Global.MetricsPort,
		Path:      "/metrics",
		Namespace: "precachefs",
		Labels:    cfg.Monitoring.Metrics.CustomLabels,
	})
	if err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	a.metrics = collector

	predictorCfg := cache.PredictorConfig{
		Adaptive:      cfg.Predictor.Adaptive,
		Decay:         cfg.Predictor.Decay,
		MinConfidence: cfg.Predictor.MinConfidence,
		TopK:          cfg.Predictor.TopK,
	}
	a.manager = cache.New(cfg.Cache.MemoryLimitBytes, cfg.Cache.ChunkSizeBytes, backend, predictorCfg)
	a.manager.SetMetrics(a.metrics)

	a.health = health.New()
	a.health.RegisterCheck("backend", func(ctx context.Context) error {
		_, err := backend.ReadDir(ctx, "")
		return err
	})

	return a, nil
}

// Start mounts the FUSE filesystem and starts the metrics server.
func (a *Adapter) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.started {
		return fmt.Errorf("adapter already started")
	}

	log.Printf("starting precachefs adapter: root=%s mount=%s", a.storageURI, a.mountPoint)

	if err := a.metrics.Start(ctx); err != nil {
		return fmt.Errorf("start metrics: %w", err)
	}

	mountCfg := &fuse.MountConfig{
		MountPoint: a.mountPoint,
		Options: &fuse.MountOptions{
			AllowOther:   a.config.Mount.AllowOther,
			DefaultPerms: true,
			MaxRead:      128 * 1024,
			MaxWrite:     128 * 1024,
			AttrTimeout:  time.Second,
			EntryTimeout: time.Second,
			FSName:       "precachefs",
			Subtype:      "precachefs",
		},
	}
	a.mountMgr = fuse.CreatePlatformMountManager(a.manager, a.metrics, mountCfg)
	if err := a.mountMgr.Mount(ctx); err != nil {
		return pcerrors.NewError(pcerrors.ErrCodeMountFailed, fmt.Sprintf("mount %s at %s: %s", a.storageURI, a.mountPoint, err)).
			WithComponent("adapter").WithOperation("Start").WithCause(err)
	}

	if a.config.Monitoring.HealthChecks.Enabled {
		healthCtx, cancel := context.WithCancel(context.Background())
		a.healthStop = cancel
		go a.health.Run(healthCtx, a.config.Monitoring.HealthChecks.Interval)
	}

	a.started = true
	log.Printf("precachefs adapter started successfully")
	return nil
}

// Stop unmounts the filesystem, stops the metrics server, and drains the
// cache manager's async reader.
func (a *Adapter) Stop(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.started {
		return fmt.Errorf("adapter not started")
	}

	log.Printf("stopping precachefs adapter...")

	if a.healthStop != nil {
		a.healthStop()
		a.healthStop = nil
	}

	var firstErr error
	if a.mountMgr != nil {
		if err := a.mountMgr.Unmount(); err != nil {
			firstErr = pcerrors.NewError(pcerrors.ErrCodeUnmountFailed, fmt.Sprintf("unmount %s: %s", a.mountPoint, err)).
				WithComponent("adapter").WithOperation("Stop").WithCause(err)
		}
	}
	if err := a.metrics.Stop(ctx); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("stop metrics: %w", err)
	}
	a.manager.Shutdown()

	a.started = false
	log.Printf("precachefs adapter stopped")
	return firstErr
}

// Manager exposes the underlying cache manager, for the CLI's status
// subcommand and for tests.
func (a *Adapter) Manager() *cache.Manager {
	return a.manager
}

// Health exposes the readiness checker, for the CLI's status subcommand.
func (a *Adapter) Health() *health.Checker {
	return a.health
}

// newBackend builds the BackingStore matching storageURI's scheme.
func newBackend(ctx context.Context, storageURI string, cfg *config.Configuration) (cache.BackingStore, error) {
	if bucket, ok := s3Bucket(storageURI); ok {
		_, prefix := splitS3URI(storageURI)
		retryCfg := retry.FromNetworkConfig(
			cfg.Network.Retry.MaxAttempts,
			cfg.Network.Retry.BaseDelay,
			cfg.Network.Retry.MaxDelay,
		)
		opts := cache.S3Options{
			Region:          cfg.Storage.S3.Region,
			Endpoint:        cfg.Storage.S3.Endpoint,
			ForcePathStyle:  cfg.Storage.S3.ForcePathStyle,
			AccessKeyID:     cfg.Storage.S3.AccessKeyID,
			SecretAccessKey: cfg.Storage.S3.SecretAccessKey,
		}
		return cache.NewS3Backend(ctx, bucket, prefix, opts, retryCfg)
	}
	return cache.NewLocalBackend(storageURI), nil
}

// validateStorageURI validates the storage URI format: either an s3://
// bucket URI or a local filesystem path.
func validateStorageURI(uri string) error {
	if uri == "" {
		return fmt.Errorf("storage URI must not be empty")
	}
	if !strings.Contains(uri, "://") {
		return nil // local path
	}

	parsed, err := url.Parse(uri)
	if err != nil {
		return fmt.Errorf("failed to parse URI: %w", err)
	}

	switch parsed.Scheme {
	case "s3":
		if parsed.Host == "" {
			return fmt.Errorf("S3 URI must include bucket name")
		}
	default:
		return fmt.Errorf("unsupported storage scheme: %s (supported: s3://, or a local path)", parsed.Scheme)
	}

	return nil
}

// s3Bucket reports the bucket name if uri has an s3:// scheme.
func s3Bucket(uri string) (bucket string, ok bool) {
	if !strings.HasPrefix(uri, "s3://") {
		return "", false
	}
	bucket, _ = splitS3URI(uri)
	return bucket, true
}

// splitS3URI parses "s3://bucket/prefix" into its parts.
func splitS3URI(uri string) (bucket, prefix string) {
	rest := strings.TrimPrefix(uri, "s3://")
	parts := strings.SplitN(rest, "/", 2)
	bucket = parts[0]
	if len(parts) > 1 {
		prefix = parts[1]
	}
	return bucket, prefix
}
