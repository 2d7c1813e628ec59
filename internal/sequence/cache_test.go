package sequence

import (
	"fmt"
	"testing"
	"time"
)

func TestResultCache_GetPut(t *testing.T) {
	c := newResultCache(8)

	if _, ok := c.get("missing"); ok {
		t.Error("get() hit on empty cache")
	}

	c.put("key", "value", nil)
	got, ok := c.get("key")
	if !ok || got != "value" {
		t.Errorf("get(key) = %v, %v, want value, true", got, ok)
	}

	stats := c.stats()
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("stats = %d hits %d misses, want 1 and 1", stats.Hits, stats.Misses)
	}
}

func TestResultCache_EvictsOldestBatch(t *testing.T) {
	c := newResultCache(10)

	for i := 0; i < 10; i++ {
		c.put(fmt.Sprintf("key%d", i), i, nil)
		// Distinct last-touch times so eviction order is stable.
		time.Sleep(time.Millisecond)
	}

	// Touch the oldest entries so they become the newest.
	_, _ = c.get("key0")
	_, _ = c.get("key1")
	time.Sleep(time.Millisecond)

	c.put("overflow", true, nil)

	if c.len() > 10 {
		t.Errorf("len() = %d, capacity 10 exceeded", c.len())
	}
	if _, ok := c.get("key0"); !ok {
		t.Error("recently touched key0 was evicted")
	}
	if _, ok := c.get("key2"); ok {
		t.Error("oldest untouched key2 survived eviction")
	}
	if _, ok := c.get("overflow"); !ok {
		t.Error("newly inserted entry missing after eviction")
	}
}

func TestResultCache_InvalidateByKey(t *testing.T) {
	c := newResultCache(8)
	c.put("seq1", "a", nil)
	c.put("seq2", "b", nil)

	c.invalidate("seq1")

	if _, ok := c.get("seq1"); ok {
		t.Error("invalidated key still cached")
	}
	if _, ok := c.get("seq2"); !ok {
		t.Error("unrelated key was evicted")
	}
}

func TestResultCache_InvalidateByDependency(t *testing.T) {
	c := newResultCache(8)
	c.put("outer", "a", map[string]struct{}{"outer": {}, "inner": {}})
	c.put("other", "b", map[string]struct{}{"other": {}})

	c.invalidate("inner")

	if _, ok := c.get("outer"); ok {
		t.Error("entry depending on invalidated name still cached")
	}
	if _, ok := c.get("other"); !ok {
		t.Error("entry without the dependency was evicted")
	}
}

func TestResultCache_Clear(t *testing.T) {
	c := newResultCache(8)
	c.put("a", 1, nil)
	c.put("b", 2, nil)

	c.clear()

	if c.len() != 0 {
		t.Errorf("len() = %d after clear(), want 0", c.len())
	}
}

func TestResultCache_UpdateDoesNotEvict(t *testing.T) {
	c := newResultCache(2)
	c.put("a", 1, nil)
	c.put("b", 2, nil)

	// Rewriting an existing key must not trigger eviction.
	c.put("a", 10, nil)

	if c.len() != 2 {
		t.Errorf("len() = %d, want 2", c.len())
	}
	got, _ := c.get("a")
	if got != 10 {
		t.Errorf("get(a) = %v, want 10", got)
	}
}
