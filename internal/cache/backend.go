package cache

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/precachefs/precachefs/pkg/utils"
)

// FileInfo is the subset of stat metadata the reader needs to decide
// whether a path resolves to a readable regular file.
type FileInfo struct {
	Size    int64
	ModTime time.Time
	IsDir   bool
}

// DirEntry is one child returned by BackingStore.ReadDir.
type DirEntry struct {
	Name  string
	IsDir bool
}

// BackingStore is a read-only, file-sized, random-access byte source. The
// prefetch core (Store/Reader/Predictor) never writes to it or subscribes
// to change notifications — only Stat and ReadFile are needed there.
// ReadDir exists solely for the FUSE adapter's directory listing, which
// bypasses the cache entirely since directory contents are never
// admitted to Store. LocalBackend and S3Backend are the two
// implementations in this repo.
type BackingStore interface {
	// Stat resolves path against the store's root and returns its metadata.
	// It returns os.ErrNotExist (wrapped) if path does not exist.
	Stat(ctx context.Context, path string) (FileInfo, error)
	// ReadFile reads the entire contents of path.
	ReadFile(ctx context.Context, path string) ([]byte, error)
	// ReadDir lists the immediate children of path ("" for the root).
	ReadDir(ctx context.Context, path string) ([]DirEntry, error)
	// SetRoot replaces the base used to resolve paths.
	SetRoot(root string)
}

// LocalBackend resolves normalized paths against a directory on a local
// POSIX filesystem, rejecting any path that would escape the root.
type LocalBackend struct {
	root string
}

// NewLocalBackend creates a backing store rooted at dir.
func NewLocalBackend(dir string) *LocalBackend {
	return &LocalBackend{root: dir}
}

func (b *LocalBackend) SetRoot(root string) {
	b.root = root
}

func (b *LocalBackend) resolve(path string) (string, error) {
	if b.root == "" {
		return "", fmt.Errorf("backing store root not set")
	}
	return utils.SecureJoin(b.root, path)
}

func (b *LocalBackend) Stat(_ context.Context, path string) (FileInfo, error) {
	full, err := b.resolve(path)
	if err != nil {
		return FileInfo{}, err
	}
	info, err := os.Stat(full)
	if err != nil {
		return FileInfo{}, err
	}
	return FileInfo{Size: info.Size(), ModTime: info.ModTime(), IsDir: info.IsDir()}, nil
}

func (b *LocalBackend) ReadFile(_ context.Context, path string) ([]byte, error) {
	full, err := b.resolve(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (b *LocalBackend) ReadDir(_ context.Context, path string) ([]DirEntry, error) {
	full, err := b.resolve(path)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(full)
	if err != nil {
		return nil, err
	}
	out := make([]DirEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, DirEntry{Name: e.Name(), IsDir: e.IsDir()})
	}
	return out, nil
}
