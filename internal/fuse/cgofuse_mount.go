//go:build cgofuse
// +build cgofuse

package fuse

import (
	"context"

	"github.com/precachefs/precachefs/pkg/types"
)

// CgoFuseMountManager manages cgofuse-based mounts.
type CgoFuseMountManager struct {
	filesystem *CgoFuseFS
	config     *MountConfig
}

// NewCgoFuseMountManager creates a new cgofuse mount manager.
func NewCgoFuseMountManager(manager types.ManagerAPI, metrics types.MetricsCollector, config *MountConfig) *CgoFuseMountManager {
	fuseConfig := &Config{
		MountPoint:  config.MountPoint,
		DefaultUID:  1000,
		DefaultGID:  1000,
		DefaultMode: 0644,
	}
	if config.Options != nil {
		fuseConfig.AllowOther = config.Options.AllowOther
	}

	filesystem := NewCgoFuseFS(manager, metrics, fuseConfig)

	return &CgoFuseMountManager{
		filesystem: filesystem,
		config:     config,
	}
}

// Mount mounts the filesystem.
func (m *CgoFuseMountManager) Mount(ctx context.Context) error {
	return m.filesystem.Mount(ctx)
}

// Unmount unmounts the filesystem.
func (m *CgoFuseMountManager) Unmount() error {
	return m.filesystem.Unmount()
}

// IsMounted returns whether the filesystem is mounted.
func (m *CgoFuseMountManager) IsMounted() bool {
	return m.filesystem.IsMounted()
}

// GetStats returns filesystem statistics.
func (m *CgoFuseMountManager) GetStats() *FilesystemStats {
	return m.filesystem.GetStats()
}
