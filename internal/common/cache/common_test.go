package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestCache(t *testing.T) Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
	})
	c, err := NewRedisCacheWithClient(client)
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	return c
}

func TestGetWithCachedFetchesOnce(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	calls := 0

	fetch := func(ctx context.Context) (string, error) {
		calls++
		return "value", nil
	}
	identity := func(s string) string { return s }
	parse := func(s string) (string, error) { return s, nil }
	empty := func(s string) bool { return s == "" }

	for i := 0; i < 3; i++ {
		got, err := GetWithCached(ctx, c, "k", time.Minute, time.Minute, empty, identity, parse, fetch)
		if err != nil {
			t.Fatalf("get %d: %v", i+1, err)
		}
		if got != "value" {
			t.Fatalf("got %q", got)
		}
	}
	if calls != 1 {
		t.Fatalf("fetch calls = %d, want 1", calls)
	}
}

func TestGetWithCachedCachesNull(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	calls := 0

	fetch := func(ctx context.Context) (string, error) {
		calls++
		return "", nil
	}
	identity := func(s string) string { return s }
	parse := func(s string) (string, error) { return s, nil }
	empty := func(s string) bool { return s == "" }

	for i := 0; i < 3; i++ {
		got, err := GetWithCached(ctx, c, "missing", time.Minute, time.Minute, empty, identity, parse, fetch)
		if err != nil {
			t.Fatalf("get %d: %v", i+1, err)
		}
		if got != "" {
			t.Fatalf("got %q, want zero value", got)
		}
	}
	if calls != 1 {
		t.Fatalf("fetch calls = %d, want 1 (absence is cached)", calls)
	}
}

func TestGetWithCachedPropagatesFetchError(t *testing.T) {
	c := newTestCache(t)
	boom := errors.New("boom")

	_, err := GetWithCached(context.Background(), c, "k", time.Minute, time.Minute,
		func(s string) bool { return s == "" },
		func(s string) string { return s },
		func(s string) (string, error) { return s, nil },
		func(ctx context.Context) (string, error) { return "", boom },
	)
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want fetch error", err)
	}
}

func TestJitterTTL(t *testing.T) {
	ttl := time.Minute
	for i := 0; i < 50; i++ {
		jittered := JitterTTL(ttl)
		if jittered > ttl || jittered < ttl-ttl/10 {
			t.Fatalf("jittered ttl %v outside [54s, 60s]", jittered)
		}
	}
	if JitterTTL(0) != 0 {
		t.Fatal("zero ttl passes through")
	}
}
