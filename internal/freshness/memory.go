package freshness

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// MemoryChannel is an in-process Channel backed by a map. It is safe for
// concurrent use by any number of contexts.
type MemoryChannel struct {
	records map[string]Record
	mu      sync.RWMutex

	// unavailable simulates disabled or over-quota storage.
	unavailable atomic.Bool

	now func() time.Time

	// Metrics
	publishes atomic.Int64
	reads     atomic.Int64
	failures  atomic.Int64
}

// ChannelStats holds channel usage counters.
type ChannelStats struct {
	Publishes int64
	Reads     int64
	Failures  int64
	Sessions  int
}

// NewMemoryChannel creates an empty in-memory channel.
func NewMemoryChannel() *MemoryChannel {
	return &MemoryChannel{
		records: make(map[string]Record),
		now:     time.Now,
	}
}

// Publish overwrites the record for the session.
func (c *MemoryChannel) Publish(ctx context.Context, sessionID string, epoch Epoch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.unavailable.Load() {
		c.failures.Add(1)
		return fmt.Errorf("publish %s: %w", Key(sessionID), ErrStorageUnavailable)
	}

	c.mu.Lock()
	c.records[Key(sessionID)] = Record{Epoch: epoch, PublishedAt: c.now()}
	c.mu.Unlock()

	c.publishes.Add(1)
	return nil
}

// Read returns the current record for the session.
func (c *MemoryChannel) Read(ctx context.Context, sessionID string) (Record, bool, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, false, err
	}
	if c.unavailable.Load() {
		c.failures.Add(1)
		return Record{}, false, fmt.Errorf("read %s: %w", Key(sessionID), ErrStorageUnavailable)
	}

	c.mu.RLock()
	rec, ok := c.records[Key(sessionID)]
	c.mu.RUnlock()

	c.reads.Add(1)
	return rec, ok, nil
}

// SetAvailable toggles simulated storage availability.
func (c *MemoryChannel) SetAvailable(available bool) {
	c.unavailable.Store(!available)
}

// Stats returns usage counters.
func (c *MemoryChannel) Stats() ChannelStats {
	c.mu.RLock()
	sessions := len(c.records)
	c.mu.RUnlock()

	return ChannelStats{
		Publishes: c.publishes.Load(),
		Reads:     c.reads.Load(),
		Failures:  c.failures.Load(),
		Sessions:  sessions,
	}
}

var _ Channel = (*MemoryChannel)(nil)
