package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestResolve_CacheFirst(t *testing.T) {
	c := New(DefaultConfig("test"))

	fetches := 0
	fetch := func(ctx context.Context) (string, error) {
		fetches++
		return "fetched", nil
	}

	// Miss: fetch and populate.
	v, err := Resolve(context.Background(), c, "k", CacheFirst, time.Minute, fetch)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if v != "fetched" {
		t.Errorf("expected fetched, got %s", v)
	}
	if fetches != 1 {
		t.Errorf("expected 1 fetch, got %d", fetches)
	}

	// Hit: served from cache, no second fetch.
	v, err = Resolve(context.Background(), c, "k", CacheFirst, time.Minute, fetch)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if v != "fetched" {
		t.Errorf("expected fetched, got %s", v)
	}
	if fetches != 1 {
		t.Errorf("expected fetch count to stay at 1, got %d", fetches)
	}
}

func TestResolve_NetworkFirst(t *testing.T) {
	c := New(DefaultConfig("test"))
	c.Set("k", "stale", time.Hour)

	v, err := Resolve(context.Background(), c, "k", NetworkFirst, time.Minute, func(ctx context.Context) (string, error) {
		return "fresh", nil
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if v != "fresh" {
		t.Errorf("expected fresh, got %s", v)
	}

	// The cache was refreshed for later fallback use.
	cached, _ := Typed[string](c, "k")
	if cached != "fresh" {
		t.Errorf("expected cache to hold fresh, got %s", cached)
	}
}

func TestResolve_NetworkFirstKeepsCacheOnError(t *testing.T) {
	c := New(DefaultConfig("test"))
	c.Set("k", "previous", time.Hour)

	fetchErr := errors.New("backend down")
	_, err := Resolve(context.Background(), c, "k", NetworkFirst, 0, func(ctx context.Context) (string, error) {
		return "", fetchErr
	})
	if !errors.Is(err, fetchErr) {
		t.Fatalf("expected backend error, got %v", err)
	}

	// The stale value survives so the recovery layer can fall back to it.
	cached, ok := Typed[string](c, "k")
	if !ok || cached != "previous" {
		t.Errorf("expected previous value to survive, got %q ok=%v", cached, ok)
	}
}

func TestResolve_NetworkOnly(t *testing.T) {
	c := New(DefaultConfig("test"))

	v, err := Resolve(context.Background(), c, "k", NetworkOnly, time.Minute, func(ctx context.Context) (string, error) {
		return "live", nil
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if v != "live" {
		t.Errorf("expected live, got %s", v)
	}

	// Never written to the cache.
	if c.Len() != 0 {
		t.Errorf("expected empty cache, got %d entries", c.Len())
	}
}

func TestResolve_StaleWhileRevalidate(t *testing.T) {
	c := New(DefaultConfig("test"))
	c.Set("k", "stale", time.Hour)

	v, err := Resolve(context.Background(), c, "k", StaleWhileRevalidate, time.Minute, func(ctx context.Context) (string, error) {
		return "refreshed", nil
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if v != "stale" {
		t.Errorf("expected the cached value immediately, got %s", v)
	}

	// The background refresh lands shortly after.
	deadline := time.Now().Add(2 * time.Second)
	for {
		if cached, _ := Typed[string](c, "k"); cached == "refreshed" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for background refresh")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestResolve_StaleWhileRevalidateMissFetchesInline(t *testing.T) {
	c := New(DefaultConfig("test"))

	v, err := Resolve(context.Background(), c, "k", StaleWhileRevalidate, time.Minute, func(ctx context.Context) (string, error) {
		return "first", nil
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if v != "first" {
		t.Errorf("expected first, got %s", v)
	}
	if !c.Has("k") {
		t.Error("expected the fetched value to be cached")
	}
}

func TestResolve_CollapsesConcurrentFetches(t *testing.T) {
	c := New(DefaultConfig("test"))

	var fetches int32
	release := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := Resolve(context.Background(), c, "k", CacheFirst, time.Minute, func(ctx context.Context) (int, error) {
				atomic.AddInt32(&fetches, 1)
				<-release
				return 7, nil
			})
			if err != nil {
				t.Errorf("expected no error, got %v", err)
			}
			if v != 7 {
				t.Errorf("expected 7, got %d", v)
			}
		}()
	}

	// Give every goroutine time to join the in-flight fetch.
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := atomic.LoadInt32(&fetches); got != 1 {
		t.Errorf("expected a single collapsed fetch, got %d", got)
	}
}

func TestParseStrategy(t *testing.T) {
	for _, s := range []Strategy{CacheFirst, NetworkFirst, StaleWhileRevalidate, NetworkOnly} {
		parsed, err := ParseStrategy(s.String())
		if err != nil {
			t.Errorf("ParseStrategy(%q): %v", s.String(), err)
		}
		if parsed != s {
			t.Errorf("ParseStrategy(%q) = %v, want %v", s.String(), parsed, s)
		}
	}

	if _, err := ParseStrategy("write-through"); err == nil {
		t.Error("expected an error for an unknown strategy")
	}
}

func TestResolve_UnknownStrategy(t *testing.T) {
	c := New(DefaultConfig("test"))

	_, err := Resolve(context.Background(), c, "k", Strategy(42), 0, func(ctx context.Context) (int, error) {
		return 0, nil
	})
	if err == nil {
		t.Error("expected an error for an unknown strategy")
	}
}
