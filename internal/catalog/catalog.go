// Package catalog keeps the current materialized event snapshot and
// refreshes it from the configured ICS feeds on a cron schedule.
package catalog

import (
	"sync"
	"time"

	"calview/internal/model"
	"calview/internal/window"
)

// Catalog is the in-memory event store views read from.
type Catalog struct {
	mu        sync.RWMutex
	events    []model.Event
	truncated []string
	updatedAt time.Time
}

func New() *Catalog {
	return &Catalog{}
}

// Replace swaps in a new snapshot. The slice is copied.
func (c *Catalog) Replace(events []model.Event, truncated []string) {
	cp := append([]model.Event(nil), events...)
	tr := append([]string(nil), truncated...)

	c.mu.Lock()
	c.events = cp
	c.truncated = tr
	c.updatedAt = time.Now()
	c.mu.Unlock()
}

// Query returns the events overlapping w, optionally restricted to one
// category, in catalog order.
func (c *Catalog) Query(w window.DateWindow, category string) []model.Event {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.Event, 0)
	for _, ev := range c.events {
		if ev.HasCategory(category) && w.Overlaps(ev) {
			out = append(out, ev)
		}
	}
	return out
}

// Filter returns every event carrying category, malformed ones included, so
// views can still report them.
func (c *Catalog) Filter(category string) []model.Event {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.Event, 0, len(c.events))
	for _, ev := range c.events {
		if ev.HasCategory(category) {
			out = append(out, ev)
		}
	}
	return out
}

func (c *Catalog) Truncated() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.truncated...)
}

// UpdatedAt is the zero time until the first Replace.
func (c *Catalog) UpdatedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.updatedAt
}

func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.events)
}
