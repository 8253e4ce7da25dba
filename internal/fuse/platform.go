//go:build !cgofuse
// +build !cgofuse

package fuse

import (
	"context"
	"time"

	"github.com/precachefs/precachefs/pkg/types"
)

// PlatformFileSystem is the cross-platform mount interface; its
// implementation is selected at build time by the cgofuse build tag.
type PlatformFileSystem interface {
	Mount(ctx context.Context) error
	Unmount() error
	IsMounted() bool
	GetStats() *FilesystemStats
}

// CreatePlatformMountManager builds the default, Linux-oriented mount
// manager backed by hanwen/go-fuse.
func CreatePlatformMountManager(manager types.ManagerAPI, metrics types.MetricsCollector, config *MountConfig) PlatformFileSystem {
	fuseConfig := &Config{
		MountPoint:  config.MountPoint,
		DefaultUID:  1000,
		DefaultGID:  1000,
		DefaultMode: 0644,
		AttrTimeout: 60 * time.Second,
	}

	filesystem := NewFileSystem(manager, metrics, fuseConfig)
	return NewMountManager(filesystem, config)
}
