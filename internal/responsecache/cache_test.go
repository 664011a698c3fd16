package responsecache

import (
	"testing"
	"time"

	"github.com/ferro-labs/llm-orchestration-gateway/providers"
)

func TestFingerprint_Deterministic(t *testing.T) {
	a := Fingerprint("hello world", 50, 0.7)
	b := Fingerprint("hello world", 50, 0.7)
	if a != b {
		t.Fatalf("expected identical fingerprints, got %s != %s", a, b)
	}
}

func TestFingerprint_DiffersOnAnyField(t *testing.T) {
	base := Fingerprint("hello", 50, 0.7)
	cases := []string{
		Fingerprint("hello!", 50, 0.7),
		Fingerprint("hello", 51, 0.7),
		Fingerprint("hello", 50, 0.8),
	}
	for _, c := range cases {
		if c == base {
			t.Fatalf("expected distinct fingerprint, got collision with %s", base)
		}
	}
}

func TestCache_GetSetHit(t *testing.T) {
	c := New(10, time.Minute, nil)
	key := Fingerprint("hi", 10, 0.5)
	c.Set(key, providers.Response{ID: "r1"}, 42, "", 0)

	entry, ok := c.Get(key)
	if !ok {
		t.Fatal("expected hit")
	}
	if entry.Response.ID != "r1" {
		t.Fatalf("expected r1, got %s", entry.Response.ID)
	}
}

func TestCache_Get_PreservesOriginalLatency(t *testing.T) {
	c := New(10, time.Minute, nil)
	key := Fingerprint("hi", 10, 0.5)
	c.Set(key, providers.Response{ID: "r1"}, 842, "", 0)

	first, ok := c.Get(key)
	if !ok {
		t.Fatal("expected hit")
	}
	if first.LatencyMS != 842 {
		t.Fatalf("expected latency 842, got %d", first.LatencyMS)
	}

	// A second hit must replay the same original latency, not the time
	// spent serving this lookup.
	second, ok := c.Get(key)
	if !ok {
		t.Fatal("expected hit")
	}
	if second.LatencyMS != 842 {
		t.Fatalf("expected latency to stay 842 across hits, got %d", second.LatencyMS)
	}
}

func TestCache_Miss(t *testing.T) {
	c := New(10, time.Minute, nil)
	if _, ok := c.Get("missing"); ok {
		t.Fatal("expected miss")
	}
}

func TestCache_TTLExpiration(t *testing.T) {
	c := New(10, 10*time.Millisecond, nil)
	key := Fingerprint("hi", 10, 0.5)
	c.Set(key, providers.Response{ID: "r1"}, 42, "", 0)
	time.Sleep(20 * time.Millisecond)
	if _, ok := c.Get(key); ok {
		t.Fatal("expected miss after ttl expiry")
	}
}

func TestCache_TaskTypeTTLOverride(t *testing.T) {
	c := New(10, time.Hour, map[string]time.Duration{"fast": 5 * time.Millisecond})
	key := Fingerprint("hi", 10, 0.5)
	c.Set(key, providers.Response{ID: "r1"}, 0, "fast", 0)
	time.Sleep(15 * time.Millisecond)
	if _, ok := c.Get(key); ok {
		t.Fatal("expected task-type ttl override to expire entry quickly")
	}
}

func TestCache_EvictsBottomTenPercentByHitCountThenAge(t *testing.T) {
	c := New(10, time.Hour, nil)
	keys := make([]string, 10)
	for i := 0; i < 10; i++ {
		keys[i] = Fingerprint("p", i, 0.1)
		c.Set(keys[i], providers.Response{ID: keys[i]}, 0, "", 0)
	}
	// Give every entry but keys[0] at least one hit so keys[0] is the
	// strict minimum by hit_count and should be the one evicted.
	for i := 1; i < 10; i++ {
		c.Get(keys[i])
	}

	// Insert an 11th entry to push the cache over capacity.
	overflow := Fingerprint("p", 999, 0.1)
	c.Set(overflow, providers.Response{ID: "overflow"}, 0, "", 0)

	if _, ok := c.Get(keys[0]); ok {
		t.Fatal("expected lowest hit-count entry to be evicted")
	}
	if _, ok := c.Get(overflow); !ok {
		t.Fatal("expected newly inserted entry to survive")
	}
}

func TestCache_Stats(t *testing.T) {
	c := New(10, time.Minute, nil)
	key := Fingerprint("hi", 10, 0.5)
	c.Set(key, providers.Response{ID: "r1"}, 42, "", 0)
	c.Get(key)
	c.Get("missing")

	stats := c.Stats()
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Fatalf("expected 1 hit / 1 miss, got %+v", stats)
	}
	if stats.Size != 1 || stats.MaxSize != 10 {
		t.Fatalf("expected size 1 / max_size 10, got %+v", stats)
	}
	if rate := stats.HitRate(); rate != 0.5 {
		t.Fatalf("expected hit rate 0.5, got %f", rate)
	}
}

func TestCache_DeleteAndClear(t *testing.T) {
	c := New(10, time.Minute, nil)
	key := Fingerprint("hi", 10, 0.5)
	c.Set(key, providers.Response{ID: "r1"}, 42, "", 0)
	c.Delete(key)
	if _, ok := c.Get(key); ok {
		t.Fatal("expected miss after delete")
	}

	c.Set(key, providers.Response{ID: "r1"}, 42, "", 0)
	c.Clear()
	if c.Stats().Size != 0 {
		t.Fatal("expected empty cache after clear")
	}
}
