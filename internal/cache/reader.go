package cache

import (
	"context"
	"errors"
	"log"
	"os"
	"sync"
	"time"
)

// Reader is the async hydrator (C2): one dedicated worker drains a FIFO
// queue of normalized paths, reading each from the configured BackingStore
// and inserting the result into Store. It never blocks a caller's
// Request/ReadRange call on file I/O.
type Reader struct {
	mu      sync.Mutex
	cond    *sync.Cond
	queue   []string
	current string
	store   *Store
	backend BackingStore
	metrics MetricsRecorder
	closed  bool
	done    chan struct{}
}

// NewReader starts a Reader's worker goroutine, hydrating into store from
// backend.
func NewReader(store *Store, backend BackingStore) *Reader {
	r := &Reader{
		store:   store,
		backend: backend,
		done:    make(chan struct{}),
	}
	r.cond = sync.NewCond(&r.mu)
	go r.run()
	return r
}

// SetMetrics wires metrics reporting into the reader. Passing nil disables
// reporting; safe to call while the worker is running.
func (r *Reader) SetMetrics(metrics MetricsRecorder) {
	r.mu.Lock()
	r.metrics = metrics
	r.mu.Unlock()
}

// SetRoot forwards to the backend; affects all subsequent hydrations.
func (r *Reader) SetRoot(root string) {
	r.backend.SetRoot(root)
}

// Enqueue appends path to the work queue and wakes the worker. A call after
// Shutdown is dropped silently.
func (r *Reader) Enqueue(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.queue = append(r.queue, path)
	r.cond.Signal()
	if r.metrics != nil {
		r.metrics.UpdateQueueDepth(len(r.queue))
	}
}

// Pending returns a snapshot of queued paths.
func (r *Reader) Pending() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.queue))
	copy(out, r.queue)
	return out
}

// Shutdown requests the worker to drain and exit; it finishes its current
// item first. Shutdown blocks until the worker has exited.
func (r *Reader) Shutdown() {
	r.mu.Lock()
	r.closed = true
	r.cond.Signal()
	r.mu.Unlock()
	<-r.done
}

func (r *Reader) run() {
	defer close(r.done)
	for {
		path, ok := r.next()
		if !ok {
			return
		}
		r.hydrate(path)
	}
}

// next blocks until the queue is non-empty or shutdown is requested, then
// dequeues one path. ok is false once shutdown is requested and the queue
// has drained.
func (r *Reader) next() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for len(r.queue) == 0 {
		if r.closed {
			return "", false
		}
		r.cond.Wait()
	}
	path := r.queue[0]
	r.queue = r.queue[1:]
	r.current = path
	if r.metrics != nil {
		r.metrics.UpdateQueueDepth(len(r.queue))
	}
	return path, true
}

// Busy reports whether path is still queued or actively hydrating. The FUSE
// adapter polls this to distinguish "hydration in flight, keep waiting" from
// "hydration finished and the path is genuinely absent".
func (r *Reader) Busy(path string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == path {
		return true
	}
	for _, p := range r.queue {
		if p == path {
			return true
		}
	}
	return false
}

// hydrate performs single-flight hydration of one path. A failure of any
// kind is logged and leaves the path ABSENT; it never kills the worker.
func (r *Reader) hydrate(path string) {
	start := time.Now()
	success := false

	r.mu.Lock()
	metrics := r.metrics
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.current = ""
		r.mu.Unlock()
		if metrics != nil {
			metrics.RecordHydration(time.Since(start), success)
		}
	}()

	if r.store.Contains(path) {
		success = true
		return // another hydration already landed; single-flight
	}

	ctx := context.Background()
	info, err := r.backend.Stat(ctx, path)
	if err != nil {
		if isNotExist(err) {
			log.Printf("cache: hydrate %q: not found", path)
			r.recordHydrationError(metrics, "not_found")
		} else {
			log.Printf("cache: hydrate %q: stat failed: %v", path, err)
			r.recordHydrationError(metrics, "stat_failed")
		}
		return
	}
	if info.IsDir {
		log.Printf("cache: hydrate %q: not a regular file", path)
		r.recordHydrationError(metrics, "not_regular_file")
		return
	}

	data, err := r.backend.ReadFile(ctx, path)
	if err != nil {
		log.Printf("cache: hydrate %q: read failed: %v", path, err)
		r.recordHydrationError(metrics, "read_failed")
		return
	}
	if int64(len(data)) != info.Size {
		log.Printf("cache: hydrate %q: short read (got %d, want %d)", path, len(data), info.Size)
		r.recordHydrationError(metrics, "short_read")
		return
	}

	r.store.Insert(path, data)
	success = true
	if metrics != nil {
		metrics.UpdateCacheSize("memory", r.store.BytesUsed())
	}
}

func (r *Reader) recordHydrationError(metrics MetricsRecorder, kind string) {
	if metrics != nil {
		metrics.RecordHydrationError(kind)
	}
}

func isNotExist(err error) bool {
	return os.IsNotExist(err) || errors.Is(err, errNotExist)
}
