package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func waitForManagerDrain(t *testing.T, m *Manager) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(m.Status().PendingPaths) == 0 {
			time.Sleep(5 * time.Millisecond)
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("timed out waiting for manager queue to drain")
}

func writeFile(t *testing.T, dir, name string, size int) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), make([]byte, size), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestManagerSequentialPrefetchHit(t *testing.T) {
	// S1 from the spec.
	dir := t.TempDir()
	writeFile(t, dir, "a", 100_000)
	writeFile(t, dir, "b", 100_000)
	writeFile(t, dir, "c", 100_000)

	m := New(1<<20, 1<<20, NewLocalBackend(dir), DefaultPredictorConfig())
	defer m.Shutdown()

	m.Request("a")
	waitForManagerDrain(t, m)
	m.Request("b")
	waitForManagerDrain(t, m)
	m.Request("c")
	waitForManagerDrain(t, m)

	got := m.Status().CachedPaths

	data, ok := m.ReadRange("b", 100_000, 0)
	if !ok {
		t.Fatal("expected b resident")
	}
	if len(data) != 100_000 {
		t.Errorf("expected 100000 bytes, got %d", len(data))
	}

	want := []string{"c", "b", "a"}
	for i, p := range want {
		if got[i] != p {
			t.Errorf("cachedPaths()[%d] = %v, want %v (full: %v)", i, got[i], p, got)
		}
	}
}

func TestManagerLookupAndReadRangeMiss(t *testing.T) {
	dir := t.TempDir()
	m := New(1<<20, 1<<20, NewLocalBackend(dir), DefaultPredictorConfig())
	defer m.Shutdown()

	present, _ := m.Lookup("nope")
	if present {
		t.Error("expected nope to be absent")
	}

	if _, ok := m.ReadRange("nope", 10, 0); ok {
		t.Error("expected ReadRange miss for absent path")
	}
}

func TestManagerReadRangeSlicing(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "f", 100)
	m := New(1<<20, 1<<20, NewLocalBackend(dir), DefaultPredictorConfig())
	defer m.Shutdown()

	m.Request("f")
	waitForManagerDrain(t, m)

	data, ok := m.ReadRange("f", 10, 50)
	if !ok || len(data) != 10 {
		t.Fatalf("expected 10 bytes at offset 50, got %d (ok=%v)", len(data), ok)
	}

	// offset past end returns empty, not a miss.
	data, ok = m.ReadRange("f", 10, 1000)
	if !ok {
		t.Fatal("expected present even when offset is past end")
	}
	if len(data) != 0 {
		t.Errorf("expected empty slice past end, got %d bytes", len(data))
	}

	// length extending past end is clamped.
	data, ok = m.ReadRange("f", 1000, 90)
	if !ok || len(data) != 10 {
		t.Fatalf("expected clamped 10 bytes, got %d (ok=%v)", len(data), ok)
	}
}

func TestManagerNormalizesPaths(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "f", 10)
	m := New(1<<20, 1<<20, NewLocalBackend(dir), DefaultPredictorConfig())
	defer m.Shutdown()

	m.Request("/f")
	waitForManagerDrain(t, m)

	present, _ := m.Lookup("f")
	if !present {
		t.Error("expected leading-slash request to normalize to the same key")
	}
}

func TestManagerPredictedCandidatesAreAutoHydrated(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a", 10)
	writeFile(t, dir, "b", 10)
	m := New(1<<20, 1<<20, NewLocalBackend(dir), DefaultPredictorConfig())
	defer m.Shutdown()

	// Teach the predictor a -> b by requesting both once, then drain and
	// evict to start clean.
	m.Request("a")
	waitForManagerDrain(t, m)
	m.Request("b")
	waitForManagerDrain(t, m)
	m.store.Remove("a")
	m.store.Remove("b")

	// Requesting a alone should now also pull in b as a prefetch
	// candidate, without an explicit request for b.
	m.Request("a")
	waitForManagerDrain(t, m)

	if present, _ := m.Lookup("b"); !present {
		t.Error("expected b to be prefetched as a predicted successor of a")
	}
}

func TestManagerReadThroughHydratesOnMiss(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "f", 20)
	m := New(1<<20, 1<<20, NewLocalBackend(dir), DefaultPredictorConfig())
	defer m.Shutdown()

	data, err := m.ReadThrough(context.Background(), "f", 20, 0)
	if err != nil {
		t.Fatalf("ReadThrough: %v", err)
	}
	if len(data) != 20 {
		t.Errorf("expected 20 bytes, got %d", len(data))
	}
}

func TestManagerReadThroughMissingPath(t *testing.T) {
	dir := t.TempDir()
	m := New(1<<20, 1<<20, NewLocalBackend(dir), DefaultPredictorConfig())
	defer m.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := m.ReadThrough(ctx, "nope", 10, 0); err == nil {
		t.Error("expected error for missing path")
	}
}

func TestManagerStatusReporting(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "f", 42)
	m := New(1<<20, 1<<20, NewLocalBackend(dir), DefaultPredictorConfig())
	defer m.Shutdown()

	m.Request("f")
	waitForManagerDrain(t, m)

	status := m.Status()
	if status.CapacityBytes != 1<<20 {
		t.Errorf("CapacityBytes = %d, want %d", status.CapacityBytes, 1<<20)
	}
	if status.BytesUsed != 42 {
		t.Errorf("BytesUsed = %d, want 42", status.BytesUsed)
	}
	if len(status.CachedPaths) != 1 || status.CachedPaths[0] != "f" {
		t.Errorf("CachedPaths = %v, want [f]", status.CachedPaths)
	}
	if status.String() == "" {
		t.Error("expected non-empty status text")
	}
}

func TestManagerAttrAndReadDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "f", 7)
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	m := New(1<<20, 1<<20, NewLocalBackend(dir), DefaultPredictorConfig())
	defer m.Shutdown()

	info, err := m.Attr(context.Background(), "/f")
	if err != nil {
		t.Fatalf("Attr: %v", err)
	}
	if info.Size != 7 {
		t.Errorf("Attr size = %d, want 7", info.Size)
	}

	entries, err := m.ReadDir(context.Background(), "")
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	var sawFile, sawDir bool
	for _, e := range entries {
		if e.Name == "f" && !e.IsDir {
			sawFile = true
		}
		if e.Name == "sub" && e.IsDir {
			sawDir = true
		}
	}
	if !sawFile || !sawDir {
		t.Errorf("ReadDir entries = %v, missing expected file/dir", entries)
	}
}

func TestManagerSetRoot(t *testing.T) {
	dirA := t.TempDir()
	dirB := t.TempDir()
	writeFile(t, dirA, "f", 5)
	writeFile(t, dirB, "f", 9)

	m := New(1<<20, 1<<20, NewLocalBackend(dirA), DefaultPredictorConfig())
	defer m.Shutdown()

	m.Request("f")
	waitForManagerDrain(t, m)
	if data, _ := m.ReadRange("f", 100, 0); len(data) != 5 {
		t.Fatalf("expected 5 bytes from dirA, got %d", len(data))
	}

	m.store.Remove("f")
	m.SetRoot(dirB)
	m.Request("f")
	waitForManagerDrain(t, m)
	if data, _ := m.ReadRange("f", 100, 0); len(data) != 9 {
		t.Fatalf("expected 9 bytes from dirB after SetRoot, got %d", len(data))
	}
}
