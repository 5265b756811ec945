package cache

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
)

func openTestCache(t *testing.T, length int) *Cache {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "cache.db"), length)
	if err != nil {
		t.Fatalf("failed to open cache: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestGetMiss(t *testing.T) {
	c := openTestCache(t, 10)

	reply, found, err := c.Get(context.Background(), "nope")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if found {
		t.Error("expected a miss")
	}
	if reply != "" {
		t.Errorf("expected empty reply, got %q", reply)
	}
}

func TestPutGetRoundtrip(t *testing.T) {
	c := openTestCache(t, 10)
	ctx := context.Background()

	if err := c.Put(ctx, "k1", "ls -la"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	reply, found, err := c.Get(ctx, "k1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !found {
		t.Fatal("expected a hit")
	}
	if reply != "ls -la" {
		t.Errorf("expected ls -la, got %q", reply)
	}
}

func TestPutReplacesExisting(t *testing.T) {
	c := openTestCache(t, 10)
	ctx := context.Background()

	c.Put(ctx, "k1", "old")
	c.Put(ctx, "k1", "new")

	reply, _, err := c.Get(ctx, "k1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if reply != "new" {
		t.Errorf("expected new, got %q", reply)
	}
	if got := c.Count(); got != 1 {
		t.Errorf("expected 1 entry, got %d", got)
	}
}

func TestEvictionKeepsNewest(t *testing.T) {
	c := openTestCache(t, 3)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := c.Put(ctx, fmt.Sprintf("k%d", i), fmt.Sprintf("r%d", i)); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}

	if got := c.Count(); got != 3 {
		t.Fatalf("expected 3 entries after eviction, got %d", got)
	}

	if _, found, _ := c.Get(ctx, "k0"); found {
		t.Error("oldest entry should have been evicted")
	}
	if _, found, _ := c.Get(ctx, "k4"); !found {
		t.Error("newest entry should survive eviction")
	}
}

func TestClear(t *testing.T) {
	c := openTestCache(t, 10)
	ctx := context.Background()

	c.Put(ctx, "k1", "r1")
	c.Put(ctx, "k2", "r2")

	if err := c.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if got := c.Count(); got != 0 {
		t.Errorf("expected empty cache, got %d entries", got)
	}
}

func TestKeyStability(t *testing.T) {
	type payload struct {
		Model  string
		Prompt string
	}

	a := Key(payload{Model: "deepseek-chat", Prompt: "list files"})
	b := Key(payload{Model: "deepseek-chat", Prompt: "list files"})
	if a != b {
		t.Error("identical payloads must produce identical keys")
	}

	c := Key(payload{Model: "deepseek-chat", Prompt: "list dirs"})
	if a == c {
		t.Error("different payloads must produce different keys")
	}
}
