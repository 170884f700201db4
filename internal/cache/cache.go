// Package cache provides an in-process LRU with TTL and a janitor that
// sweeps expired entries.
package cache

import (
	"context"
	"log/slog"
	"time"
)

// Cleaner is implemented by caches that can drop expired entries.
type Cleaner interface {
	CleanExpired() int
}

// Janitor periodically sweeps the registered caches.
type Janitor struct {
	caches []Cleaner
}

func NewJanitor(caches ...Cleaner) *Janitor {
	return &Janitor{caches: caches}
}

func (j *Janitor) Register(c Cleaner) {
	j.caches = append(j.caches, c)
}

// Sweep runs one cleanup pass over every cache.
func (j *Janitor) Sweep() int {
	total := 0
	for _, c := range j.caches {
		total += c.CleanExpired()
	}
	return total
}

// Run sweeps on every tick until ctx is done.
func (j *Janitor) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := j.Sweep(); n > 0 {
				slog.DebugContext(ctx, "Expired cache entries removed", "count", n)
			}
		case <-ctx.Done():
			return
		}
	}
}
