package feedcache

import (
	"errors"
	"testing"
	"time"
)

// fakeClock is an adjustable clock for driving TTL expiry without sleeping
type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.now = f.now.Add(d)
}

func newTestCache(ttl time.Duration) (*Cache, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	return NewWithClock(ttl, clock.Now), clock
}

func TestGetOrComputeCachesWithinTTL(t *testing.T) {
	cache, clock := newTestCache(20 * time.Second)

	calls := 0
	produce := func() ([]byte, error) {
		calls++
		return []byte("rendered"), nil
	}

	body, hit, err := cache.GetOrCompute("feed", produce)
	if err != nil {
		t.Fatalf("GetOrCompute failed: %v", err)
	}
	if hit {
		t.Error("First read should not be a cache hit")
	}
	if string(body) != "rendered" {
		t.Errorf("Expected produced body, got %q", body)
	}

	clock.Advance(19 * time.Second)

	body, hit, err = cache.GetOrCompute("feed", produce)
	if err != nil {
		t.Fatalf("GetOrCompute failed: %v", err)
	}
	if !hit {
		t.Error("Read within TTL should be a cache hit")
	}
	if string(body) != "rendered" {
		t.Errorf("Expected cached body, got %q", body)
	}
	if calls != 1 {
		t.Errorf("Expected 1 produce call, got %d", calls)
	}
}

func TestExpiryRecomputes(t *testing.T) {
	cache, clock := newTestCache(20 * time.Second)

	version := 0
	produce := func() ([]byte, error) {
		version++
		return []byte{byte('0' + version)}, nil
	}

	cache.GetOrCompute("feed", produce)
	clock.Advance(20 * time.Second)

	body, hit, err := cache.GetOrCompute("feed", produce)
	if err != nil {
		t.Fatalf("GetOrCompute failed: %v", err)
	}
	if hit {
		t.Error("Read at TTL boundary should recompute")
	}
	if string(body) != "2" {
		t.Errorf("Expected recomputed body, got %q", body)
	}
}

// The staleness law: a cached rendering stays byte-identical across
// underlying writes until the TTL elapses or the cache is cleared.
func TestStalenessUntilInvalidate(t *testing.T) {
	cache, _ := newTestCache(20 * time.Second)

	state := "one post"
	produce := func() ([]byte, error) {
		return []byte(state), nil
	}

	first, _, _ := cache.GetOrCompute("feed", produce)

	// Underlying data changes; cached rendering must not
	state = "two posts"
	second, hit, _ := cache.GetOrCompute("feed", produce)
	if !hit {
		t.Error("Expected cache hit after underlying write")
	}
	if string(first) != string(second) {
		t.Errorf("Expected byte-identical stale body, got %q then %q", first, second)
	}

	cache.Invalidate()

	third, hit, _ := cache.GetOrCompute("feed", produce)
	if hit {
		t.Error("Expected recompute after explicit clear")
	}
	if string(third) != "two posts" {
		t.Errorf("Expected fresh body after clear, got %q", third)
	}
}

func TestInvalidateDropsAllKeys(t *testing.T) {
	cache, _ := newTestCache(time.Minute)

	cache.GetOrCompute("feed:page:1", func() ([]byte, error) { return []byte("p1"), nil })
	cache.GetOrCompute("feed:page:2", func() ([]byte, error) { return []byte("p2"), nil })
	if cache.Len() != 2 {
		t.Fatalf("Expected 2 cached entries, got %d", cache.Len())
	}

	cache.Invalidate()
	if cache.Len() != 0 {
		t.Errorf("Expected empty cache after Invalidate, got %d entries", cache.Len())
	}
}

// Expired entries must not pile up: storing a fresh body sweeps out
// everything past its TTL, so the cache holds at most one TTL window of
// keys regardless of how many distinct keys were ever read.
func TestStoreSweepsExpiredEntries(t *testing.T) {
	cache, clock := newTestCache(20 * time.Second)

	for _, key := range []string{"feed:page:1", "feed:page:2", "feed:page:3"} {
		cache.GetOrCompute(key, func() ([]byte, error) { return []byte("old"), nil })
	}
	if cache.Len() != 3 {
		t.Fatalf("Expected 3 cached entries, got %d", cache.Len())
	}

	clock.Advance(20 * time.Second)

	cache.GetOrCompute("feed:page:1", func() ([]byte, error) { return []byte("new"), nil })
	if cache.Len() != 1 {
		t.Errorf("Expected sweep to leave 1 entry, got %d", cache.Len())
	}

	body, hit, err := cache.GetOrCompute("feed:page:1", func() ([]byte, error) { return []byte("unused"), nil })
	if err != nil || !hit || string(body) != "new" {
		t.Errorf("Expected fresh entry to survive the sweep, got %q hit=%v err=%v", body, hit, err)
	}
}

func TestProduceErrorNotCached(t *testing.T) {
	cache, _ := newTestCache(time.Minute)

	boom := errors.New("boom")
	_, _, err := cache.GetOrCompute("feed", func() ([]byte, error) { return nil, boom })
	if !errors.Is(err, boom) {
		t.Fatalf("Expected produce error, got %v", err)
	}
	if cache.Len() != 0 {
		t.Error("Failed produce must not leave an entry behind")
	}

	body, hit, err := cache.GetOrCompute("feed", func() ([]byte, error) { return []byte("ok"), nil })
	if err != nil || hit || string(body) != "ok" {
		t.Errorf("Expected clean recompute after error, got %q hit=%v err=%v", body, hit, err)
	}
}
