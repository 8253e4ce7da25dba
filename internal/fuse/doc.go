/*
Package fuse exposes a cache.Manager as a read-only POSIX filesystem.

# Architecture

	User Applications (ls, cat, cp, ...)
	        │
	Kernel VFS / FUSE driver
	        │
	internal/fuse (this package)
	        │
	cache.Manager  — Request / Lookup / ReadRange / ReadThrough / Attr / ReadDir
	        │
	cache.BackingStore  — local disk or S3

Every filesystem operation that would mutate the backing store — Mkdir,
Create, Write, Unlink, Rmdir, Rename — returns syscall.EROFS. The cache
never writes back; it only ever reads ahead of the application.

# Platform selection

The default build uses github.com/hanwen/go-fuse/v2, native on Linux. The
cgofuse build tag switches to github.com/winfsp/cgofuse, used on macOS and
Windows or as a Linux fallback:

	go build ./...                 # go-fuse
	go build -tags cgofuse ./...   # cgofuse

Both builds present the same operations over types.ManagerAPI — the
interface cache.Manager satisfies — so this package never imports
internal/cache directly. platform.go and platform_cgofuse.go expose
CreatePlatformMountManager as the single entry point the rest of the repo
calls.

# Read path

Opening a file issues a non-blocking cache.Manager.Request, which enqueues
hydration and lets the predictor queue up likely next files. Reads call
ReadThrough, which serves a cache hit immediately and otherwise blocks
(polling the single-worker reader) until the entry lands or the request's
context is done — a FUSE read must return bytes or an error, never a bare
"not yet".

# Directory listing and metadata

Directory entries and file attributes bypass the content cache entirely:
they come from cache.Manager.Attr and ReadDir, which call straight through
to the backing store. Caching a directory listing in the same LRU as file
content would conflate two very different eviction lifetimes, so this
package deliberately keeps them separate.
*/
package fuse
