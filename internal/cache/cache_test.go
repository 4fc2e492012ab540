package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestIsUpToDate(t *testing.T) {
	c := New("")
	if c.IsUpToDate("pkg", "h1", "d1") {
		t.Error("IsUpToDate on empty cache = true, want false")
	}
	if err := c.Record("pkg", "/tmp/pkg.a", "h1", "d1"); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if !c.IsUpToDate("pkg", "h1", "d1") {
		t.Error("IsUpToDate after Record = false, want true")
	}
	if c.IsUpToDate("pkg", "h2", "d1") {
		t.Error("IsUpToDate with changed source hash = true, want false")
	}
	if c.Stats.Hits != 1 || c.Stats.Misses != 2 {
		t.Errorf("Stats = %+v, want Hits=1 Misses=2", c.Stats)
	}
}

func TestRecordPersistsAndLoad(t *testing.T) {
	dir := t.TempDir()
	c := New(dir)
	if err := c.Record("github.com/u/r", "/tmp/a.a", "hsrc", "hdep"); err != nil {
		t.Fatalf("Record: %v", err)
	}

	c2 := New(dir)
	if err := c2.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !c2.IsUpToDate("github.com/u/r", "hsrc", "hdep") {
		t.Error("IsUpToDate after Load = false, want true")
	}
}

func TestEvictByAge(t *testing.T) {
	dir := t.TempDir()
	artifact := filepath.Join(dir, "artifact.a")
	if err := os.WriteFile(artifact, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	c := New(dir)
	fakeNow := time.Now()
	c.now = func() time.Time { return fakeNow }
	if err := c.Record("pkg", artifact, "h", "d"); err != nil {
		t.Fatalf("Record: %v", err)
	}
	fakeNow = fakeNow.Add(2 * time.Hour)
	if err := c.Evict(1 * time.Hour); err != nil {
		t.Fatalf("Evict: %v", err)
	}
	if c.IsUpToDate("pkg", "h", "d") {
		t.Error("entry survived eviction")
	}
	if _, err := os.Stat(artifact); !os.IsNotExist(err) {
		t.Error("artifact file was not removed by eviction")
	}
}

func TestTouchPreventsEviction(t *testing.T) {
	dir := t.TempDir()
	artifact := filepath.Join(dir, "artifact.a")
	if err := os.WriteFile(artifact, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	c := New(dir)
	fakeNow := time.Now()
	c.now = func() time.Time { return fakeNow }
	if err := c.Record("pkg", artifact, "h", "d"); err != nil {
		t.Fatalf("Record: %v", err)
	}
	fakeNow = fakeNow.Add(2 * time.Hour)
	if err := c.Touch("pkg"); err != nil {
		t.Fatalf("Touch: %v", err)
	}
	if err := c.Evict(1 * time.Hour); err != nil {
		t.Fatalf("Evict: %v", err)
	}
	if !c.IsUpToDate("pkg", "h", "d") {
		t.Error("touched entry was evicted")
	}
}

func TestCleanupIfDue(t *testing.T) {
	c := New("")
	fakeNow := time.Now()
	c.now = func() time.Time { return fakeNow }
	if err := c.Record("pkg", "/tmp/a.a", "h", "d"); err != nil {
		t.Fatalf("Record: %v", err)
	}
	// First call: no cleanup has run yet, so it is due, but with maxAge=0 the
	// entry just recorded (access-time == now) is not older than the cutoff.
	if err := c.CleanupIfDue(time.Hour, 0); err != nil {
		t.Fatalf("CleanupIfDue: %v", err)
	}
	if !c.IsUpToDate("pkg", "h", "d") {
		t.Error("entry with access-time equal to now was evicted")
	}
	fakeNow = fakeNow.Add(2 * time.Hour)
	if err := c.CleanupIfDue(time.Hour, 0); err != nil {
		t.Fatalf("CleanupIfDue: %v", err)
	}
	if c.IsUpToDate("pkg", "h", "d") {
		t.Error("entry survived due cleanup with maxAge=0")
	}
}

func TestDepHashDeterministicAndOrderIndependent(t *testing.T) {
	a := DepHash([]DepEntry{{Name: "b", Hash: "2"}, {Name: "a", Hash: "1"}})
	b := DepHash([]DepEntry{{Name: "a", Hash: "1"}, {Name: "b", Hash: "2"}})
	if a != b {
		t.Error("DepHash is order-dependent, want order-independent")
	}
}

func TestDepHashChangesOnDeepChange(t *testing.T) {
	before := DepHash([]DepEntry{{Name: "leaf", Hash: "1"}, {Name: "mid", Hash: "mid-hash-for-leaf-1"}})
	after := DepHash([]DepEntry{{Name: "leaf", Hash: "2"}, {Name: "mid", Hash: "mid-hash-for-leaf-2"}})
	if before == after {
		t.Error("DepHash did not change when a transitive dependency changed")
	}
}
