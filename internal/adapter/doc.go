/*
Package adapter wires a Configuration into a running prefetch cache.

	Client Apps (ls, cp, cat, ...)
	        │
	Kernel VFS/FUSE
	        │
	internal/fuse  ← mounted by this package
	        │
	cache.Manager (C1-C4)
	        │
	cache.BackingStore  — local disk or S3

New resolves mount.root's scheme to a BackingStore (LocalBackend for a
plain path, S3Backend for an s3://bucket/prefix URI), builds the
cache.Manager on top of it, and creates a metrics.Collector. Start starts
the metrics server and mounts the FUSE filesystem; Stop unmounts it, stops the metrics server, and drains
the cache manager's async reader.

# Usage

	cfg := config.NewDefault()
	cfg.Mount.Root = "s3://my-bucket/dataset"
	cfg.Mount.MountPoint = "/mnt/precachefs"

	a, err := adapter.New(ctx, cfg.Mount.Root, cfg.Mount.MountPoint, cfg)
	if err != nil {
		log.Fatal(err)
	}
	if err := a.Start(ctx); err != nil {
		log.Fatal(err)
	}
	defer a.Stop(ctx)

# Storage URIs

	s3://bucket-name              AWS S3, default region from storage.s3.region
	s3://bucket-name/path/prefix  S3 with a key prefix
	/local/path                   a local directory

Any other scheme is rejected at New.
*/
package adapter
