package limiter

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// mockRedisClient 在内存中复现令牌桶脚本的语义，未覆盖的方法继承自嵌入接口（调用即panic）。
type mockRedisClient struct {
	redis.Cmdable

	mu      sync.Mutex
	buckets map[string]*mockBucket
}

type mockBucket struct {
	tokens     int64
	lastRefill int64
}

func newMockRedisClient() *mockRedisClient {
	return &mockRedisClient{buckets: make(map[string]*mockBucket)}
}

func (m *mockRedisClient) Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd {
	cmd := redis.NewCmd(ctx, "eval")
	if len(keys) != 1 || len(args) != 5 {
		cmd.SetErr(redis.Nil)
		return cmd
	}

	capacity := args[0].(int64)
	rate := args[1].(int64)
	window := args[2].(int64)
	requested := args[3].(int64)
	now := args[4].(int64)

	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.buckets[keys[0]]
	if !ok {
		b = &mockBucket{tokens: capacity, lastRefill: now}
		m.buckets[keys[0]] = b
	}

	passed := now - b.lastRefill
	if passed < 0 {
		passed = 0
	}
	b.tokens += passed * rate / window
	if b.tokens > capacity {
		b.tokens = capacity
	}
	b.lastRefill = now

	if b.tokens >= requested {
		b.tokens -= requested
		cmd.SetVal([]interface{}{int64(1), b.tokens, int64(0)})
	} else {
		retryAfter := int64(math.Ceil(float64((requested - b.tokens) * window / rate)))
		cmd.SetVal([]interface{}{int64(0), b.tokens, retryAfter})
	}
	return cmd
}

func (m *mockRedisClient) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := int64(0)
	for _, key := range keys {
		if _, ok := m.buckets[key]; ok {
			delete(m.buckets, key)
			count++
		}
	}
	cmd := redis.NewIntCmd(ctx, "del")
	cmd.SetVal(count)
	return cmd
}

func TestNewTokenBucketLimiter_Defaults(t *testing.T) {
	client := newMockRedisClient()

	tests := []struct {
		name       string
		config     *Config
		wantPrefix string
		wantBurst  int64
	}{
		{
			name:       "explicit prefix and burst",
			config:     &Config{Rate: 10, Window: time.Minute, Burst: 20, KeyPrefix: "test:tb"},
			wantPrefix: "test:tb",
			wantBurst:  20,
		},
		{
			name:       "defaults applied",
			config:     &Config{Rate: 50, Window: time.Minute},
			wantPrefix: "limiter:tb",
			wantBurst:  50,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limiter := NewTokenBucketLimiter(client, tt.config)
			if limiter.keyPrefix != tt.wantPrefix {
				t.Errorf("keyPrefix = %q, want %q", limiter.keyPrefix, tt.wantPrefix)
			}
			if limiter.config.Burst != tt.wantBurst {
				t.Errorf("burst = %d, want %d", limiter.config.Burst, tt.wantBurst)
			}
		})
	}
}

func TestTokenBucketLimiter_Allow(t *testing.T) {
	client := newMockRedisClient()
	limiter := NewTokenBucketLimiter(client, &Config{
		Rate:      5,
		Window:    time.Minute,
		Burst:     5,
		KeyPrefix: "test:tb",
	})

	ctx := context.Background()
	key := "ip:10.0.0.1"

	// 突发容量内的请求应放行
	for i := 0; i < 5; i++ {
		result, err := limiter.Allow(ctx, key)
		if err != nil {
			t.Fatalf("Allow() request %d failed: %v", i, err)
		}
		if !result.Allowed {
			t.Fatalf("request %d should be allowed", i)
		}
	}

	// 桶空后拒绝并给出重试时间
	result, err := limiter.Allow(ctx, key)
	if err != nil {
		t.Fatalf("Allow() failed: %v", err)
	}
	if result.Allowed {
		t.Error("request beyond burst should be denied")
	}
	if result.RetryAfter <= 0 {
		t.Error("denied request should carry positive retry_after")
	}

	// 不同key互不影响
	other, err := limiter.Allow(ctx, "ip:10.0.0.2")
	if err != nil {
		t.Fatalf("Allow() failed: %v", err)
	}
	if !other.Allowed {
		t.Error("independent key should be allowed")
	}
}

func TestTokenBucketLimiter_AllowN(t *testing.T) {
	client := newMockRedisClient()
	limiter := NewTokenBucketLimiter(client, &Config{
		Rate:      10,
		Window:    time.Minute,
		Burst:     10,
		KeyPrefix: "test:tb",
	})

	ctx := context.Background()

	result, err := limiter.AllowN(ctx, "ip:batch", 5)
	if err != nil {
		t.Fatalf("AllowN() failed: %v", err)
	}
	if !result.Allowed || result.Remaining != 5 {
		t.Errorf("expected allowed with 5 remaining, got allowed=%v remaining=%d", result.Allowed, result.Remaining)
	}

	// 剩余5个令牌，申请20个应被拒绝
	result, err = limiter.AllowN(ctx, "ip:batch", 20)
	if err != nil {
		t.Fatalf("AllowN() failed: %v", err)
	}
	if result.Allowed {
		t.Error("request exceeding remaining tokens should be denied")
	}
}

func TestTokenBucketLimiter_Reset(t *testing.T) {
	client := newMockRedisClient()
	limiter := NewTokenBucketLimiter(client, &Config{
		Rate:      1,
		Window:    time.Minute,
		Burst:     1,
		KeyPrefix: "test:tb",
	})

	ctx := context.Background()
	key := "ip:reset"

	if _, err := limiter.Allow(ctx, key); err != nil {
		t.Fatalf("Allow() failed: %v", err)
	}

	result, err := limiter.Allow(ctx, key)
	if err != nil {
		t.Fatalf("Allow() failed: %v", err)
	}
	if result.Allowed {
		t.Fatal("bucket should be empty before reset")
	}

	if err := limiter.Reset(ctx, key); err != nil {
		t.Fatalf("Reset() failed: %v", err)
	}

	result, err = limiter.Allow(ctx, key)
	if err != nil {
		t.Fatalf("Allow() after Reset() failed: %v", err)
	}
	if !result.Allowed {
		t.Error("request after reset should be allowed")
	}
}

func TestTokenBucketLimiter_Concurrent(t *testing.T) {
	client := newMockRedisClient()
	limiter := NewTokenBucketLimiter(client, &Config{
		Rate:      10,
		Window:    time.Minute,
		Burst:     10,
		KeyPrefix: "test:tb",
	})

	const concurrency = 30
	var wg sync.WaitGroup
	var mu sync.Mutex
	allowedCount := 0

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := limiter.Allow(context.Background(), "ip:concurrent")
			if err != nil {
				t.Errorf("concurrent Allow() failed: %v", err)
				return
			}
			if result.Allowed {
				mu.Lock()
				allowedCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	// 同一秒内无补充，放行数不得超过突发容量
	if allowedCount > 10 {
		t.Errorf("allowed %d requests, burst capacity is 10", allowedCount)
	}
}
