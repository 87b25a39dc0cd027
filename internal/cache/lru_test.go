package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestCache[T any](size int, ttl time.Duration) (*LRUCache[T], *clock) {
	clk := &clock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[T](size, ttl)
	c.now = clk.now
	return c, clk
}

func TestLRUCache_GetSetEvict(t *testing.T) {
	c, _ := newTestCache[[]string](2, time.Minute)

	c.Set("list:tenants", []string{"a"})
	c.Set("list:drivers", []string{"b"})
	c.Get("list:tenants") // tenants becomes most recent
	c.Set("list:vehicles", []string{"c"})

	if _, ok := c.Get("list:drivers"); ok {
		t.Error("least recently used entry should be evicted")
	}
	if v, ok := c.Get("list:tenants"); !ok || v[0] != "a" {
		t.Errorf("Get(list:tenants) = %v, %v", v, ok)
	}

	want := Stats{Size: 2, Hits: 2, Misses: 1, Evictions: 1}
	if st := c.Stats(); st != want {
		t.Errorf("Stats() = %+v, want %+v", st, want)
	}
}

func TestLRUCache_Expiry(t *testing.T) {
	c, clk := newTestCache[int](10, time.Minute)
	c.Set("old", 1)
	clk.advance(30 * time.Second)
	c.Set("new", 2)
	clk.advance(30 * time.Second)

	if n := c.CleanExpired(); n != 1 {
		t.Errorf("CleanExpired() = %d, want 1", n)
	}
	if _, ok := c.Get("old"); ok {
		t.Error("expired entry returned")
	}
	if v, ok := c.Get("new"); !ok || v != 2 {
		t.Errorf("Get(new) = %v, %v", v, ok)
	}

	// Overwriting refreshes the ttl.
	clk.advance(20 * time.Second)
	c.Set("new", 3)
	clk.advance(50 * time.Second)
	if v, ok := c.Get("new"); !ok || v != 3 {
		t.Errorf("Get(new) after refresh = %v, %v", v, ok)
	}
}

func TestLRUCache_DeletePrefixAndClear(t *testing.T) {
	c, _ := newTestCache[int](10, time.Minute)
	c.Set("list:contracts", 1)
	c.Set("list:contract_payments", 2)
	c.Set("summary", 3)

	if n := c.DeletePrefix("list:contract"); n != 2 {
		t.Errorf("DeletePrefix() = %d, want 2", n)
	}
	if c.Size() != 1 {
		t.Errorf("Size() = %d, want 1", c.Size())
	}
	c.Delete("summary")
	c.Set("a", 1)
	c.Get("a")
	c.Clear()
	if c.Size() != 0 {
		t.Error("Clear should empty the cache")
	}
	if st := c.Stats(); st.Hits != 1 {
		t.Errorf("Clear reset counters: %+v", st)
	}
}

func TestLRUCache_SetIfGeneration(t *testing.T) {
	c, _ := newTestCache[int](10, time.Minute)

	gen := c.Generation()
	if !c.SetIfGeneration("summary", 1, gen) {
		t.Fatal("SetIfGeneration() refused a current generation")
	}

	stale := c.Generation()
	c.Clear()
	if c.SetIfGeneration("summary", 2, stale) {
		t.Error("SetIfGeneration() stored a value computed before Clear")
	}
	if _, ok := c.Get("summary"); ok {
		t.Error("stale value is cached")
	}
	if !c.SetIfGeneration("summary", 3, c.Generation()) {
		t.Error("SetIfGeneration() refused the new generation")
	}
}

func TestLRUCache_FillRacesClear(t *testing.T) {
	c := NewLRUCache[int64](4, time.Minute)
	var version atomic.Int64
	var wg sync.WaitGroup

	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				version.Add(1)
				c.Clear()
			}
		}()
	}
	for r := 0; r < 8; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				if _, ok := c.Get("list"); ok {
					continue
				}
				gen := c.Generation()
				c.SetIfGeneration("list", version.Load(), gen)
			}
		}()
	}
	wg.Wait()

	if v, ok := c.Get("list"); ok && v != version.Load() {
		t.Errorf("cached version %d, latest is %d", v, version.Load())
	}
}

func TestJanitor(t *testing.T) {
	c, clk := newTestCache[int](10, time.Minute)
	c.Set("k", 1)
	clk.advance(2 * time.Minute)

	var swept atomic.Int64
	j := NewJanitor(time.Millisecond, func(n int) { swept.Add(int64(n)) })
	j.Watch(c)
	j.Start(context.Background())

	deadline := time.Now().Add(time.Second)
	for swept.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	j.Stop()
	j.Stop()

	if swept.Load() != 1 {
		t.Errorf("swept = %d, want 1", swept.Load())
	}
	if c.Size() != 0 {
		t.Errorf("Size() = %d after sweep", c.Size())
	}
}

func TestJanitor_StopWithoutStart(t *testing.T) {
	j := NewJanitor(time.Minute, nil)
	j.Watch(NewLRUCache[int](1, time.Minute))
	j.Stop()

	if n := j.Sweep(); n != 0 {
		t.Errorf("Sweep() = %d, want 0", n)
	}
}
