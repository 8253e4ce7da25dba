package types

import (
	"context"
	"time"

	"github.com/precachefs/precachefs/internal/cache"
)

// ManagerAPI is the public surface of internal/cache.Manager (C4): the
// subset of methods a filesystem adapter needs to serve reads. It exists
// so internal/fuse depends on an interface rather than the concrete cache
// package, keeping the prefetch core ignorant of any particular consumer.
type ManagerAPI interface {
	SetRoot(root string)
	Attr(ctx context.Context, path string) (cache.FileInfo, error)
	ReadDir(ctx context.Context, path string) ([]cache.DirEntry, error)
	Request(path string)
	Lookup(path string) (present bool, token string)
	ReadRange(path string, length, offset int64) ([]byte, bool)
	ReadThrough(ctx context.Context, path string, length, offset int64) ([]byte, error)
}

// MetricsCollector defines the metrics collection interface implemented
// by internal/metrics.Collector and consumed by internal/fuse and
// internal/adapter.
type MetricsCollector interface {
	RecordOperation(operation string, duration time.Duration, size int64, success bool)
	RecordCacheHit(path string, size int64)
	RecordCacheMiss(path string, size int64)
	RecordError(operation string, err error)
	GetMetrics() map[string]interface{}
}

// HealthChecker defines health monitoring interface.
type HealthChecker interface {
	Check(ctx context.Context) HealthStatus
	RegisterCheck(name string, check func(context.Context) error)
	GetStatus() map[string]HealthStatus
}
