/*
Package cache implements the prefetching cache engine: a bounded in-memory
LRU store of whole-file contents, an async reader that hydrates the store
from a backing directory or object store, and a first-order Markov
predictor that turns an access stream into a ranked set of prefetch
candidates.

# Architecture

	┌──────────────────────────────────────────────┐
	│            filesystem adapter                │
	│   (internal/fuse, or any other event source)  │
	└──────────────────────────────────────────────┘
	        │ Request/Lookup/ReadRange
	┌──────────────────────────────────────────────┐
	│                 Manager (C4)                 │  ← manager.go
	└──────────────────────────────────────────────┘
	     │observe/predict        │enqueue
	┌───────────┐          ┌─────────────┐
	│ Predictor │          │   Reader    │  ← predictor.go, reader.go
	│   (C3)    │          │    (C2)     │
	└───────────┘          └─────────────┘
	                               │ hydrate
	                        ┌─────────────┐
	                        │    Store    │  ← store.go
	                        │    (C1)     │
	                        └─────────────┘
	                               │
	                        ┌─────────────┐
	                        │BackingStore │  ← backend.go, s3backend.go
	                        └─────────────┘

# Concurrency

Store guards its map, recency list, and used-bytes counter with a single
mutex held only for the duration of each operation — never across I/O.
Reader owns exactly one worker goroutine draining a FIFO queue guarded by a
mutex and sync.Cond, also never held across I/O. Predictor has its own
mutex; contention there is bounded by access-event rate, not file size.

Buffer lifetime ("arc-of-buffer" in the design notes) needs no explicit
refcounting in Go: a *Entry returned by Store.Get stays valid after the
entry is evicted from the map, because the caller's reference keeps the
underlying byte slice reachable to the garbage collector.

# Non-goals

This package is read-only with respect to every BackingStore: no
write-through, no write-back, no partial byte-range caching (every
admitted entry is a full file), and no persistence — eviction or process
exit simply drops bytes that can be re-hydrated on demand.
*/
package cache
