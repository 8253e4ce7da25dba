package fuse

import (
	"context"
	"log"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/precachefs/precachefs/pkg/types"
)

// safeInt64ToUint64 safely converts int64 to uint64, preventing negative values
func safeInt64ToUint64(i int64) uint64 {
	if i < 0 {
		return 0
	}
	return uint64(i)
}

// safeIntToUint32 safely converts int to uint32, preventing overflow
func safeIntToUint32(i int) uint32 {
	if i < 0 {
		return 0
	}
	if i > 0xFFFFFFFF {
		return 0xFFFFFFFF
	}
	return uint32(i)
}

// FileSystem implements the FUSE filesystem interface on top of a
// cache.Manager. The filesystem is always read-only: every mutating
// operation returns syscall.EROFS, since the prefetch cache never writes
// back to the backing store.
type FileSystem struct {
	fs.Inode

	manager types.ManagerAPI
	metrics types.MetricsCollector
	config  *Config

	mu         sync.RWMutex
	openFiles  map[uint64]*OpenFile
	nextHandle uint64

	stats *Stats
}

// Config represents FUSE filesystem configuration.
type Config struct {
	MountPoint string `yaml:"mount_point"`
	AllowOther bool   `yaml:"allow_other"`

	DirectIO  bool   `yaml:"direct_io"`
	KeepCache bool   `yaml:"keep_cache"`
	MaxRead   uint32 `yaml:"max_read"`
	MaxWrite  uint32 `yaml:"max_write"`

	DefaultUID  uint32        `yaml:"default_uid"`
	DefaultGID  uint32        `yaml:"default_gid"`
	DefaultMode uint32        `yaml:"default_mode"`
	AttrTimeout time.Duration `yaml:"attr_timeout"`
}

// OpenFile represents an open file handle.
type OpenFile struct {
	path string
	size int64

	lastAccess  time.Time
	accessCount int64
}

// Stats tracks filesystem operation statistics.
type Stats struct {
	mu sync.RWMutex

	Lookups int64 `json:"lookups"`
	Opens   int64 `json:"opens"`
	Reads   int64 `json:"reads"`

	BytesRead int64 `json:"bytes_read"`

	CacheHits   int64 `json:"cache_hits"`
	CacheMisses int64 `json:"cache_misses"`

	Errors int64 `json:"errors"`

	AvgReadTime   time.Duration `json:"avg_read_time"`
	AvgLookupTime time.Duration `json:"avg_lookup_time"`
}

// NewFileSystem creates a new FUSE filesystem instance backed by manager.
func NewFileSystem(manager types.ManagerAPI, metrics types.MetricsCollector, config *Config) *FileSystem {
	if config == nil {
		config = &Config{
			DefaultUID:  1000,
			DefaultGID:  1000,
			DefaultMode: 0644,
			AttrTimeout: 5 * time.Second,
		}
	}

	return &FileSystem{
		manager:    manager,
		metrics:    metrics,
		config:     config,
		openFiles:  make(map[uint64]*OpenFile),
		nextHandle: 1,
		stats:      &Stats{},
	}
}

// Root returns the root inode.
func (fsys *FileSystem) Root() fs.InodeEmbedder {
	return &DirectoryNode{fsys: fsys, path: ""}
}

// GetStats returns a snapshot of current filesystem statistics.
func (fsys *FileSystem) GetStats() *Stats {
	fsys.stats.mu.RLock()
	defer fsys.stats.mu.RUnlock()

	return &Stats{
		Lookups:     fsys.stats.Lookups,
		Opens:       fsys.stats.Opens,
		Reads:       fsys.stats.Reads,
		BytesRead:   fsys.stats.BytesRead,
		CacheHits:   fsys.stats.CacheHits,
		CacheMisses: fsys.stats.CacheMisses,
		Errors:      fsys.stats.Errors,
	}
}

// DirectoryNode represents a directory in the filesystem.
type DirectoryNode struct {
	fs.Inode
	fsys *FileSystem
	path string
}

// Lookup resolves a child by name, using the manager's metadata pass-through
// (Attr) and falling back to ReadDir to detect directories that have no
// object of their own (a virtual prefix on an object-storage backend).
func (n *DirectoryNode) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	start := time.Now()
	defer func() { n.fsys.recordLookupTime(time.Since(start)) }()

	n.fsys.stats.mu.Lock()
	n.fsys.stats.Lookups++
	n.fsys.stats.mu.Unlock()

	childPath := n.joinPath(name)

	info, err := n.fsys.manager.Attr(ctx, childPath)
	if err != nil {
		entries, listErr := n.fsys.manager.ReadDir(ctx, childPath)
		if listErr != nil || entries == nil {
			n.fsys.stats.mu.Lock()
			n.fsys.stats.Errors++
			n.fsys.stats.mu.Unlock()
			return nil, syscall.ENOENT
		}
		return n.createDirectoryNode(name, childPath), 0
	}

	if info.IsDir {
		return n.createDirectoryNode(name, childPath), 0
	}
	return n.createChildNode(name, childPath, info.Size, info.ModTime), 0
}

// Readdir lists directory contents via the manager's metadata pass-through.
func (n *DirectoryNode) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	children, err := n.fsys.manager.ReadDir(ctx, n.path)
	if err != nil {
		n.fsys.stats.mu.Lock()
		n.fsys.stats.Errors++
		n.fsys.stats.mu.Unlock()

		log.Printf("fuse: readdir %q: %v", n.path, err)
		return nil, syscall.EIO
	}

	entries := make([]fuse.DirEntry, 0, len(children))
	for _, c := range children {
		mode := uint32(fuse.S_IFREG)
		if c.IsDir {
			mode = fuse.S_IFDIR
		}
		entries = append(entries, fuse.DirEntry{Name: c.Name, Mode: mode})
	}

	return fs.NewListDirStream(entries), 0
}

// Mkdir always fails: the cache never writes back to the backing store.
func (n *DirectoryNode) Mkdir(ctx context.Context, name string, mode uint32, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	return nil, syscall.EROFS
}

// Create always fails: the cache never writes back to the backing store.
func (n *DirectoryNode) Create(ctx context.Context, name string, flags uint32, mode uint32, out *fuse.EntryOut) (node *fs.Inode, fh fs.FileHandle, fuseFlags uint32, errno syscall.Errno) {
	return nil, nil, 0, syscall.EROFS
}

// Unlink, Rmdir, Rename: also read-only.

func (n *DirectoryNode) Unlink(ctx context.Context, name string) syscall.Errno { return syscall.EROFS }
func (n *DirectoryNode) Rmdir(ctx context.Context, name string) syscall.Errno  { return syscall.EROFS }
func (n *DirectoryNode) Rename(ctx context.Context, name string, newParent fs.InodeEmbedder, newName string, flags uint32) syscall.Errno {
	return syscall.EROFS
}

// FileNode represents a file in the filesystem.
type FileNode struct {
	fs.Inode
	fsys    *FileSystem
	path    string
	size    int64
	modTime time.Time
}

// Open opens a file for reading. Any write intent fails immediately; a
// read-only open primes the cache by issuing a Request, letting the
// predictor and the async reader start hydrating before the first Read
// call lands.
func (f *FileNode) Open(ctx context.Context, flags uint32) (fh fs.FileHandle, fuseFlags uint32, errno syscall.Errno) {
	if flags&(syscall.O_WRONLY|syscall.O_RDWR|syscall.O_CREAT|syscall.O_TRUNC|syscall.O_APPEND) != 0 {
		return nil, 0, syscall.EROFS
	}

	f.fsys.stats.mu.Lock()
	f.fsys.stats.Opens++
	f.fsys.stats.mu.Unlock()

	f.fsys.manager.Request(f.path)

	f.fsys.mu.Lock()
	handle := f.fsys.nextHandle
	f.fsys.nextHandle++

	openFile := &OpenFile{
		path:        f.path,
		size:        f.size,
		lastAccess:  time.Now(),
		accessCount: 1,
	}
	f.fsys.openFiles[handle] = openFile
	f.fsys.mu.Unlock()

	return &FileHandle{fsys: f.fsys, handle: handle, file: openFile}, 0, 0
}

// Getattr reports file attributes from the metadata fetched at Lookup time.
func (f *FileNode) Getattr(ctx context.Context, fh fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	out.Mode = f.fsys.config.DefaultMode
	out.Size = safeInt64ToUint64(f.size)
	out.Uid = f.fsys.config.DefaultUID
	out.Gid = f.fsys.config.DefaultGID

	unixTime := f.modTime.Unix()
	out.Mtime = safeInt64ToUint64(unixTime)
	out.Atime = safeInt64ToUint64(unixTime)
	out.Ctime = safeInt64ToUint64(unixTime)

	return 0
}

// FileHandle represents an open file handle.
type FileHandle struct {
	fsys   *FileSystem
	handle uint64
	file   *OpenFile
}

// Read serves bytes from the cache, blocking (via Manager.ReadThrough) on a
// cold entry instead of returning a miss straight to the kernel.
func (fh *FileHandle) Read(ctx context.Context, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	start := time.Now()
	defer func() { fh.fsys.recordReadTime(time.Since(start)) }()

	fh.fsys.stats.mu.Lock()
	fh.fsys.stats.Reads++
	fh.fsys.stats.mu.Unlock()

	fh.file.lastAccess = time.Now()
	fh.file.accessCount++

	hit, _ := fh.fsys.manager.Lookup(fh.file.path)

	data, err := fh.fsys.manager.ReadThrough(ctx, fh.file.path, int64(len(dest)), off)
	if err != nil {
		fh.fsys.stats.mu.Lock()
		fh.fsys.stats.Errors++
		fh.fsys.stats.mu.Unlock()

		log.Printf("fuse: read %q at offset %d: %v", fh.file.path, off, err)
		return nil, syscall.EIO
	}

	fh.fsys.stats.mu.Lock()
	if hit {
		fh.fsys.stats.CacheHits++
	} else {
		fh.fsys.stats.CacheMisses++
	}
	fh.fsys.stats.BytesRead += int64(len(data))
	fh.fsys.stats.mu.Unlock()

	if fh.fsys.metrics != nil {
		if hit {
			fh.fsys.metrics.RecordCacheHit(fh.file.path, int64(len(data)))
		} else {
			fh.fsys.metrics.RecordCacheMiss(fh.file.path, int64(len(data)))
		}
	}

	return fuse.ReadResultData(data), 0
}

// Write always fails: this filesystem is read-only.
func (fh *FileHandle) Write(ctx context.Context, data []byte, off int64) (written uint32, errno syscall.Errno) {
	return 0, syscall.EROFS
}

// Release closes the handle.
func (fh *FileHandle) Release(ctx context.Context) syscall.Errno {
	fh.fsys.mu.Lock()
	delete(fh.fsys.openFiles, fh.handle)
	fh.fsys.mu.Unlock()
	return 0
}

// Helper methods for DirectoryNode

func (n *DirectoryNode) joinPath(name string) string {
	if n.path == "" {
		return name
	}
	return filepath.Join(n.path, name)
}

func (n *DirectoryNode) createChildNode(name, path string, size int64, modTime time.Time) *fs.Inode {
	fileNode := &FileNode{fsys: n.fsys, path: path, size: size, modTime: modTime}
	return n.NewInode(context.Background(), fileNode, fs.StableAttr{Mode: fuse.S_IFREG})
}

func (n *DirectoryNode) createDirectoryNode(name, path string) *fs.Inode {
	dirNode := &DirectoryNode{fsys: n.fsys, path: path}
	return n.NewInode(context.Background(), dirNode, fs.StableAttr{Mode: fuse.S_IFDIR})
}

// Helper methods for FileSystem

func (fsys *FileSystem) recordLookupTime(duration time.Duration) {
	fsys.stats.mu.Lock()
	defer fsys.stats.mu.Unlock()

	if fsys.stats.Lookups == 1 {
		fsys.stats.AvgLookupTime = duration
	} else {
		fsys.stats.AvgLookupTime = time.Duration(
			(int64(fsys.stats.AvgLookupTime)*9 + int64(duration)) / 10,
		)
	}
}

func (fsys *FileSystem) recordReadTime(duration time.Duration) {
	fsys.stats.mu.Lock()
	defer fsys.stats.mu.Unlock()

	if fsys.stats.Reads == 1 {
		fsys.stats.AvgReadTime = duration
	} else {
		fsys.stats.AvgReadTime = time.Duration(
			(int64(fsys.stats.AvgReadTime)*9 + int64(duration)) / 10,
		)
	}
}
