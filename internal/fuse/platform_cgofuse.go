//go:build cgofuse
// +build cgofuse

package fuse

import (
	"context"

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

// CreatePlatformMountManager builds the cgofuse-backed mount manager, used
// for macOS, Windows, and as a Linux fallback.
func CreatePlatformMountManager(manager types.ManagerAPI, metrics types.MetricsCollector, config *MountConfig) PlatformFileSystem {
	return NewCgoFuseMountManager(manager, metrics, config)
}
