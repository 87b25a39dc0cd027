// Package cache holds the in-process response cache for list endpoints.
package cache

import (
	"context"
	"sync"
	"time"
)

// Expirer is a cache that can drop its expired entries.
type Expirer interface {
	CleanExpired() int
}

// Janitor periodically sweeps expired entries out of registered caches.
type Janitor struct {
	interval time.Duration
	onSweep  func(removed int)
	caches   []Expirer

	once   sync.Once
	cancel context.CancelFunc
	done   chan struct{}
}

// NewJanitor creates a janitor. onSweep, when set, is called after every
// sweep that removed something.
func NewJanitor(interval time.Duration, onSweep func(removed int)) *Janitor {
	return &Janitor{interval: interval, onSweep: onSweep}
}

// Watch registers caches. It must be called before Start.
func (j *Janitor) Watch(caches ...Expirer) {
	j.caches = append(j.caches, caches...)
}

// Start runs the sweep loop until ctx is done or Stop is called.
func (j *Janitor) Start(ctx context.Context) {
	ctx, j.cancel = context.WithCancel(ctx)
	j.done = make(chan struct{})
	go j.run(ctx)
}

func (j *Janitor) run(ctx context.Context) {
	defer close(j.done)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := j.Sweep(); n > 0 && j.onSweep != nil {
				j.onSweep(n)
			}
		}
	}
}

// Sweep cleans every registered cache once and returns the entries removed.
func (j *Janitor) Sweep() int {
	removed := 0
	for _, c := range j.caches {
		removed += c.CleanExpired()
	}
	return removed
}

// Stop ends the loop and waits for it. Safe to call more than once, or
// without Start.
func (j *Janitor) Stop() {
	j.once.Do(func() {
		if j.cancel == nil {
			return
		}
		j.cancel()
		<-j.done
	})
}
