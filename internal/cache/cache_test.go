package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestMemoryCache_SetGet(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	value := map[string]interface{}{
		"name": "widget",
		"qty":  42,
	}
	if err := c.Set(ctx, "test:key1", value, time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	var result map[string]interface{}
	if err := c.Get(ctx, "test:key1", &result); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if result["name"] != "widget" {
		t.Errorf("expected name=widget, got %v", result["name"])
	}
}

func TestMemoryCache_GetMissing(t *testing.T) {
	c := NewMemoryCache()

	var result string
	err := c.Get(context.Background(), "test:absent", &result)
	if !errors.Is(err, ErrCacheMiss) {
		t.Errorf("expected ErrCacheMiss, got %v", err)
	}
}

func TestMemoryCache_Expiration(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	if err := c.Set(ctx, "test:ttl", "value", -time.Second); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	var result string
	if err := c.Get(ctx, "test:ttl", &result); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("expected ErrCacheMiss for expired key, got %v", err)
	}

	exists, err := c.Exists(ctx, "test:ttl")
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if exists {
		t.Error("expired key should not exist")
	}
}

func TestMemoryCache_SetNX(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	ok, err := c.SetNX(ctx, "test:nx", "first", time.Minute)
	if err != nil {
		t.Fatalf("SetNX failed: %v", err)
	}
	if !ok {
		t.Error("first SetNX should succeed")
	}

	ok, err = c.SetNX(ctx, "test:nx", "second", time.Minute)
	if err != nil {
		t.Fatalf("SetNX failed: %v", err)
	}
	if ok {
		t.Error("second SetNX should fail")
	}

	var result string
	if err := c.Get(ctx, "test:nx", &result); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if result != "first" {
		t.Errorf("expected 'first', got %q", result)
	}
}

// SetNX 必须是原子的：并发竞争同一键时只能有一个赢家。
func TestMemoryCache_SetNXConcurrent(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	const workers = 32
	var wg sync.WaitGroup
	var wins int64
	var mu sync.Mutex

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := c.SetNX(ctx, "test:race", "claimed", time.Minute)
			if err != nil {
				t.Errorf("SetNX failed: %v", err)
				return
			}
			if ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Errorf("expected exactly one SetNX winner, got %d", wins)
	}
}

func TestMemoryCache_Del(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	_ = c.Set(ctx, "test:del", "value", time.Minute)
	if err := c.Del(ctx, "test:del"); err != nil {
		t.Fatalf("Del failed: %v", err)
	}

	exists, _ := c.Exists(ctx, "test:del")
	if exists {
		t.Error("deleted key should not exist")
	}
}

func TestNullCache(t *testing.T) {
	c := NewNullCache()
	ctx := context.Background()

	if err := c.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	var result string
	if err := c.Get(ctx, "k", &result); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("expected ErrCacheMiss, got %v", err)
	}

	exists, err := c.Exists(ctx, "k")
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if exists {
		t.Error("NullCache Exists should always be false")
	}

	// 禁用缓存时 SetNX 恒成功，去重退化为全通过
	ok, err := c.SetNX(ctx, "k", "v", time.Minute)
	if err != nil {
		t.Fatalf("SetNX failed: %v", err)
	}
	if !ok {
		t.Error("NullCache SetNX should always succeed")
	}
}
