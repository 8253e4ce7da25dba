package cache

import (
	"container/list"
	"sync"
)

// Entry is an immutable, fully-hydrated file body held by the store. Callers
// that obtain one via Store.Get may keep using Data after the entry has been
// evicted: the store only drops its own map reference, and Go's garbage
// collector keeps the backing array alive as long as the caller's slice
// still points at it. That is the "arc-of-buffer" handle model from the
// design notes, for free, with no refcounting.
type Entry struct {
	Path string
	Data []byte
}

// Store is the bounded, thread-safe, whole-file LRU cache described in the
// core. Keys are normalized paths; each key maps to exactly one Entry. The
// store never partial-caches a file and never holds an entry larger than
// its capacity.
type Store struct {
	mu       sync.Mutex
	cap      int64
	used     int64
	entries  map[string]*list.Element // path -> element in order
	order    *list.List                // most-recent at Front
}

// element is the payload stored in each list.Element.
type element struct {
	entry *Entry
}

// NewStore creates an LRU store with the given memory budget in bytes.
func NewStore(capBytes int64) *Store {
	return &Store{
		cap:     capBytes,
		entries: make(map[string]*list.Element),
		order:   list.New(),
	}
}

// Contains reports whether path is resident, without affecting recency.
func (s *Store) Contains(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[path]
	return ok
}

// Get returns the entry for path, promoting it to the most-recently-used
// position. The second return value is false if path is not resident.
func (s *Store) Get(path string) (*Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.entries[path]
	if !ok {
		return nil, false
	}
	s.order.MoveToFront(el)
	return el.Value.(*element).entry, true
}

// Insert admits data under path, replacing any existing entry for path and
// evicting least-recently-used entries until the new entry fits under cap.
// If len(data) exceeds cap on its own, the store is left unchanged and no
// error is raised: the entry is simply not admitted.
func (s *Store) Insert(path string, data []byte) {
	size := int64(len(data))
	if size > s.cap {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if el, ok := s.entries[path]; ok {
		old := el.Value.(*element).entry
		s.used += size - int64(len(old.Data))
		el.Value.(*element).entry = &Entry{Path: path, Data: data}
		s.order.MoveToFront(el)
		for s.used > s.cap && s.order.Len() > 1 {
			s.evictTail()
		}
		return
	}

	for s.used+size > s.cap && s.order.Len() > 0 {
		s.evictTail()
	}

	el := s.order.PushFront(&element{entry: &Entry{Path: path, Data: data}})
	s.entries[path] = el
	s.used += size
}

// evictTail removes the least-recently-used entry. Caller must hold mu.
func (s *Store) evictTail() {
	back := s.order.Back()
	if back == nil {
		return
	}
	entry := back.Value.(*element).entry
	s.order.Remove(back)
	delete(s.entries, entry.Path)
	s.used -= int64(len(entry.Data))
}

// Remove drops path from the store, if present, without error if absent.
func (s *Store) Remove(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.entries[path]
	if !ok {
		return
	}
	entry := el.Value.(*element).entry
	s.order.Remove(el)
	delete(s.entries, path)
	s.used -= int64(len(entry.Data))
}

// CachedPaths returns a snapshot of the LRU order, most-recent first.
func (s *Store) CachedPaths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	paths := make([]string, 0, s.order.Len())
	for el := s.order.Front(); el != nil; el = el.Next() {
		paths = append(paths, el.Value.(*element).entry.Path)
	}
	return paths
}

// BytesUsed returns the current total size of resident entries.
func (s *Store) BytesUsed() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.used
}

// Cap returns the store's configured memory budget.
func (s *Store) Cap() int64 {
	return s.cap
}
