package stores

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	oa "github.com/ayursutra/ayurauth"
)

// fakeRedis is a map-backed stand-in for the slice of the redis client
// the code store uses.
type fakeRedis struct {
	mu     sync.Mutex
	values map[string]string
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{values: make(map[string]string)}
}

func (f *fakeRedis) Set(_ context.Context, key string, value interface{}, _ time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[key] = fmt.Sprint(value)
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	value, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(value, nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	var removed int64
	for _, key := range keys {
		if _, ok := f.values[key]; ok {
			delete(f.values, key)
			removed++
		}
	}
	return redis.NewIntResult(removed, nil)
}

func newTestRedisCodeStore(client redisCmdable) *RedisCodeStore {
	return &RedisCodeStore{
		client: client,
		prefix: "verify:code:",
		now:    time.Now,
	}
}

func TestRedisCodeStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	fake := newFakeRedis()
	store := newTestRedisCodeStore(fake)

	wantAuthCode(t, store.Validate(ctx, "a@example.com", "123456"), oa.ErrCodeNoPendingCode)

	rec, err := store.Issue(ctx, "a@example.com")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	wrong := "000000"
	if wrong == rec.Code {
		wrong = "000001"
	}
	wantAuthCode(t, store.Validate(ctx, "a@example.com", wrong), oa.ErrCodeInvalidCode)

	if err := store.Validate(ctx, "a@example.com", rec.Code); err != nil {
		t.Fatalf("validate: %v", err)
	}
	// Consumed.
	wantAuthCode(t, store.Validate(ctx, "a@example.com", rec.Code), oa.ErrCodeNoPendingCode)
}

func TestRedisCodeStoreSupersede(t *testing.T) {
	ctx := context.Background()
	store := newTestRedisCodeStore(newFakeRedis())

	first, _ := store.Issue(ctx, "b@example.com")
	second, _ := store.Issue(ctx, "b@example.com")

	if first.Code != second.Code {
		wantAuthCode(t, store.Validate(ctx, "b@example.com", first.Code), oa.ErrCodeInvalidCode)
	}
	if err := store.Validate(ctx, "b@example.com", second.Code); err != nil {
		t.Fatalf("validate current code: %v", err)
	}
}

func TestRedisCodeStoreLazyExpiry(t *testing.T) {
	ctx := context.Background()
	fake := newFakeRedis()
	store := newTestRedisCodeStore(fake)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	rec, err := store.Issue(ctx, "c@example.com")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	// The redis key outlives the record's own expiry, so the store can
	// report expired rather than not_found.
	now = now.Add(oa.CodeTTL + time.Minute)
	wantAuthCode(t, store.Validate(ctx, "c@example.com", rec.Code), oa.ErrCodeExpiredCode)

	// Expiry deleted the key.
	wantAuthCode(t, store.Validate(ctx, "c@example.com", rec.Code), oa.ErrCodeNoPendingCode)
}

func TestRedisCodeStoreMalformedValue(t *testing.T) {
	ctx := context.Background()
	fake := newFakeRedis()
	store := newTestRedisCodeStore(fake)

	fake.Set(ctx, "verify:code:d@example.com", "garbage-without-separator", 0)
	wantAuthCode(t, store.Validate(ctx, "d@example.com", "123456"), oa.ErrCodeNoPendingCode)

	// The unreadable record was dropped.
	if _, ok := fake.values["verify:code:d@example.com"]; ok {
		t.Error("malformed record still present")
	}
}
