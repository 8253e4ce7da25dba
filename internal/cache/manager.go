package cache

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/precachefs/precachefs/pkg/utils"
)

// MetricsRecorder receives diagnostic events from the cache engine: the
// async reader's queue depth and hydration outcomes (C2), and the
// predictor's candidate counts and prefetch-hit rate (C3). Manager and
// Reader accept any implementation and treat a nil recorder as "metrics
// disabled" — the filesystem adapter wires its *metrics.Collector in via
// SetMetrics after construction, since *metrics.Collector already no-ops
// every method when metrics are disabled in configuration.
type MetricsRecorder interface {
	UpdateQueueDepth(depth int)
	UpdateCacheSize(level string, bytes int64)
	RecordHydration(duration time.Duration, success bool)
	RecordHydrationError(kind string)
	RecordPredictorCandidates(n int)
	RecordPredictorHit()
}

// Status is the operator-diagnostic snapshot returned by Manager.Status.
// Its shape is not a stable contract; the CLI renders it as text.
type Status struct {
	BytesUsed    int64
	CapacityBytes int64
	CachedPaths  []string // head-to-tail, most-recent first
	PendingPaths []string
}

// String renders a human-readable summary.
func (s Status) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "cache: %s/%s used\n", utils.FormatBytes(s.BytesUsed), utils.FormatBytes(s.CapacityBytes))
	fmt.Fprintf(&b, "resident (%d): %s\n", len(s.CachedPaths), strings.Join(s.CachedPaths, ", "))
	fmt.Fprintf(&b, "pending (%d): %s\n", len(s.PendingPaths), strings.Join(s.PendingPaths, ", "))
	return b.String()
}

// Manager is the facade exposed to the filesystem adapter (C4). It wires
// access events from the adapter into the predictor, and the predictor's
// candidates into the async reader, while keeping the LRU store as the
// single source of truth for what is resident.
type Manager struct {
	store     *Store
	reader    *Reader
	predictor *Predictor
	backend   BackingStore
	metrics   MetricsRecorder

	// chunkSizeBytes is accepted and stored for a future range-granular
	// cache; this core never consults it.
	chunkSizeBytes int64

	predictedMu sync.Mutex
	predicted   map[string]struct{} // paths enqueued only on the predictor's say-so
}

// New allocates the LRU store at memoryLimitBytes, starts the async
// reader against backend, and returns a ready-to-use Manager. predictorCfg
// configures C3; pass DefaultPredictorConfig() for the non-adaptive mode.
func New(memoryLimitBytes, chunkSizeBytes int64, backend BackingStore, predictorCfg PredictorConfig) *Manager {
	store := NewStore(memoryLimitBytes)
	return &Manager{
		store:          store,
		reader:         NewReader(store, backend),
		predictor:      NewPredictor(predictorCfg),
		backend:        backend,
		chunkSizeBytes: chunkSizeBytes,
		predicted:      make(map[string]struct{}),
	}
}

// SetRoot forwards to the async reader's backing store; affects all
// subsequent hydrations.
func (m *Manager) SetRoot(root string) {
	m.reader.SetRoot(root)
}

// SetMetrics wires metrics into the manager and its async reader. Passing
// nil disables reporting.
func (m *Manager) SetMetrics(metrics MetricsRecorder) {
	m.metrics = metrics
	m.reader.SetMetrics(metrics)
}

// Attr resolves path's metadata directly against the backing store,
// bypassing the content cache. The FUSE adapter uses this for Getattr and
// Lookup; it is not part of C4 proper, since metadata is never admitted
// to the store alongside file content.
func (m *Manager) Attr(ctx context.Context, path string) (FileInfo, error) {
	return m.backend.Stat(ctx, utils.Normalize(path))
}

// ReadDir lists path's immediate children directly against the backing
// store. Like Attr, directory listings are never cached.
func (m *Manager) ReadDir(ctx context.Context, path string) ([]DirEntry, error) {
	return m.backend.ReadDir(ctx, utils.Normalize(path))
}

// Request normalizes path, enqueues it for hydration, and feeds it to the
// predictor as an observed access. Predicted candidates are enqueued after
// the explicit request, deduplicated against what is already resident or
// queued, so the explicit request is always served first. Request never
// fails visibly: a miss later in ReadRange is the only failure signal the
// caller sees.
func (m *Manager) Request(path string) {
	normalized := utils.Normalize(path)

	m.recordPredictorHitIfDue(normalized)

	m.reader.Enqueue(normalized)

	m.predictor.Observe(normalized)
	candidates := m.predictor.Predict()
	if m.metrics != nil {
		m.metrics.RecordPredictorCandidates(len(candidates))
	}
	for _, candidate := range candidates {
		if m.store.Contains(candidate) {
			continue
		}
		if m.alreadyQueued(candidate) {
			continue
		}
		m.reader.Enqueue(candidate)
		m.markPredicted(candidate)
	}
}

// markPredicted records that path was enqueued only because the predictor
// suggested it, not because of an explicit request.
func (m *Manager) markPredicted(path string) {
	m.predictedMu.Lock()
	m.predicted[path] = struct{}{}
	m.predictedMu.Unlock()
}

// recordPredictorHitIfDue reports a predictor hit if path is resident and
// was admitted purely on the predictor's say-so: an explicit request for a
// path the predictor had already prefetched, ahead of the caller asking
// for it.
func (m *Manager) recordPredictorHitIfDue(path string) {
	m.predictedMu.Lock()
	_, wasPredicted := m.predicted[path]
	if wasPredicted {
		delete(m.predicted, path)
	}
	m.predictedMu.Unlock()

	if wasPredicted && m.metrics != nil && m.store.Contains(path) {
		m.metrics.RecordPredictorHit()
	}
}

func (m *Manager) alreadyQueued(path string) bool {
	for _, pending := range m.reader.Pending() {
		if pending == path {
			return true
		}
	}
	return false
}

// Lookup reports whether path is resident, normalized internally. The
// returned token is an opaque hit signal for the adapter; no bytes are
// returned here.
func (m *Manager) Lookup(path string) (present bool, token string) {
	normalized := utils.Normalize(path)
	present = m.store.Contains(normalized)
	return present, normalized
}

// ReadRange returns bytes [offset, min(offset+length, len)) of path's
// cached content. It returns (nil, false) if path is not resident, and an
// empty, true result if offset is at or past the end of the buffer.
func (m *Manager) ReadRange(path string, length, offset int64) ([]byte, bool) {
	normalized := utils.Normalize(path)
	entry, ok := m.store.Get(normalized)
	if !ok {
		return nil, false
	}

	if offset < 0 {
		offset = 0
	}
	total := int64(len(entry.Data))
	if offset >= total {
		return []byte{}, true
	}
	end := offset + length
	if end > total {
		end = total
	}
	return entry.Data[offset:end], true
}

// ReadThrough is the blocking counterpart to Request/ReadRange, for callers
// (the FUSE adapter) that cannot tolerate a miss. It enqueues path if it
// isn't already resident or in flight, then polls the store until the
// hydration lands, the hydration gives up (path genuinely absent or
// unreadable), or ctx is done.
func (m *Manager) ReadThrough(ctx context.Context, path string, length, offset int64) ([]byte, error) {
	normalized := utils.Normalize(path)

	if data, ok := m.ReadRange(normalized, length, offset); ok {
		return data, nil
	}
	if !m.reader.Busy(normalized) {
		m.reader.Enqueue(normalized)
	}

	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
		if data, ok := m.ReadRange(normalized, length, offset); ok {
			return data, nil
		}
		if !m.reader.Busy(normalized) {
			return nil, fmt.Errorf("%s: %w", normalized, os.ErrNotExist)
		}
	}
}

// Status returns a diagnostic snapshot: bytes used/capacity, resident
// paths head-to-tail, and the reader's pending queue.
func (m *Manager) Status() Status {
	return Status{
		BytesUsed:     m.store.BytesUsed(),
		CapacityBytes: m.store.Cap(),
		CachedPaths:   m.store.CachedPaths(),
		PendingPaths:  m.reader.Pending(),
	}
}

// Shutdown drains the async reader: its worker hydrates every path still
// queued and then exits. Shutdown blocks until that happens.
func (m *Manager) Shutdown() {
	m.reader.Shutdown()
}
