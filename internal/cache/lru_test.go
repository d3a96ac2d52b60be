package cache

import (
	"testing"
	"time"
)

func TestLRUBasicOperations(t *testing.T) {
	c := NewLRU[string](3, time.Minute)

	if _, ok := c.Get("missing"); ok {
		t.Error("Get on empty cache returned a value")
	}

	c.Set("a", "alpha")
	got, ok := c.Get("a")
	if !ok || got != "alpha" {
		t.Errorf("Get(a) = %q, %v; want alpha, true", got, ok)
	}

	c.Set("a", "updated")
	got, _ = c.Get("a")
	if got != "updated" {
		t.Errorf("Get(a) after overwrite = %q, want updated", got)
	}
	if c.Size() != 1 {
		t.Errorf("Size() = %d, want 1", c.Size())
	}

	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Error("Get(a) after Delete returned a value")
	}
}

func TestLRUEvictsOldest(t *testing.T) {
	c := NewLRU[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)

	// Touch "a" so "b" becomes the eviction candidate.
	c.Get("a")
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("a should have survived eviction")
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("c should be present")
	}
	if c.Size() != 2 {
		t.Errorf("Size() = %d, want 2", c.Size())
	}
}

func TestLRUExpiresOnRead(t *testing.T) {
	c := NewLRU[int](10, 10*time.Millisecond)
	c.Set("a", 1)
	time.Sleep(20 * time.Millisecond)
	if _, ok := c.Get("a"); ok {
		t.Error("expired entry returned from Get")
	}
	if c.Size() != 0 {
		t.Errorf("Size() after expiry read = %d, want 0", c.Size())
	}
}
