package cache

import (
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Manager coordinates the memory and disk levels. Reads check memory first
// and promote disk hits; writes go to memory immediately and to disk in the
// background.
type Manager struct {
	memory *MemoryCache
	disk   *DiskCache // nil when the disk level is disabled

	config Config
	logger *log.Logger

	writes sync.WaitGroup

	cleanupStop chan struct{}
	cleanupWg   sync.WaitGroup

	mu     sync.Mutex
	closed bool
	stats  ManagerStats
}

// ManagerStats aggregates hits across levels.
type ManagerStats struct {
	MemoryHits  int64
	DiskHits    int64
	Misses      int64
	Promotions  int64
	CleanupRuns int64
	LastCleanup time.Time

	Memory Stats
	Disk   Stats
}

// NewManager creates a cache manager. A zero DiskCapacity or empty DiskPath
// keeps everything in memory.
func NewManager(config Config, logger *log.Logger) (*Manager, error) {
	if logger == nil {
		logger = log.Default().WithPrefix("cache")
	}

	cm := &Manager{
		memory:      NewMemoryCache(config.MemoryCapacity),
		config:      config,
		logger:      logger,
		cleanupStop: make(chan struct{}),
	}

	if config.DiskCapacity > 0 && config.DiskPath != "" {
		disk, err := NewDiskCache(config.DiskPath, config.DiskCapacity, config.CompressionLevel)
		if err != nil {
			return nil, fmt.Errorf("failed to create disk cache: %w", err)
		}
		cm.disk = disk
	}

	if config.CleanupInterval > 0 {
		cm.startCleanupRoutine()
	}
	return cm, nil
}

// Get looks a key up in memory, then on disk.
func (cm *Manager) Get(key string) ([]byte, bool) {
	if data, ok := cm.memory.Get(key); ok {
		cm.mu.Lock()
		cm.stats.MemoryHits++
		cm.mu.Unlock()
		return data, true
	}

	if cm.disk != nil {
		if data, ok := cm.disk.Get(key); ok {
			cm.mu.Lock()
			cm.stats.DiskHits++
			cm.stats.Promotions++
			cm.mu.Unlock()

			// Promotion is best-effort.
			_ = cm.memory.Put(key, data)
			return data, true
		}
	}

	cm.mu.Lock()
	cm.stats.Misses++
	cm.mu.Unlock()
	return nil, false
}

// Put stores a value in memory and schedules the disk write.
func (cm *Manager) Put(key string, value []byte) error {
	cm.mu.Lock()
	if cm.closed {
		cm.mu.Unlock()
		return ErrCacheClosed
	}
	cm.writes.Add(1)
	cm.mu.Unlock()

	if err := cm.memory.Put(key, value); err != nil && err != ErrItemTooLarge {
		cm.writes.Done()
		return fmt.Errorf("memory cache: %w", err)
	}

	if cm.disk == nil {
		cm.writes.Done()
		return nil
	}
	go func() {
		defer cm.writes.Done()
		if err := cm.disk.Put(key, value); err != nil {
			cm.logger.Warn("disk cache write failed", "key", key, "err", err)
		}
	}()
	return nil
}

// Flush waits for pending disk writes.
func (cm *Manager) Flush() {
	cm.writes.Wait()
}

// Delete removes a key from both levels.
func (cm *Manager) Delete(key string) error {
	cm.Flush()
	_ = cm.memory.Delete(key)
	if cm.disk != nil {
		if err := cm.disk.Delete(key); err != nil {
			return fmt.Errorf("disk delete: %w", err)
		}
	}
	return nil
}

// Clear empties both levels.
func (cm *Manager) Clear() error {
	cm.Flush()
	_ = cm.memory.Clear()
	if cm.disk != nil {
		if err := cm.disk.Clear(); err != nil {
			return fmt.Errorf("disk clear: %w", err)
		}
	}
	return nil
}

// Stats returns aggregated statistics.
func (cm *Manager) Stats() ManagerStats {
	cm.mu.Lock()
	stats := cm.stats
	cm.mu.Unlock()

	stats.Memory = cm.memory.Stats()
	if cm.disk != nil {
		stats.Disk = cm.disk.Stats()
	}
	return stats
}

// Close stops cleanup, waits for pending writes and saves the disk index.
func (cm *Manager) Close() error {
	cm.mu.Lock()
	if cm.closed {
		cm.mu.Unlock()
		return nil
	}
	cm.closed = true
	cm.mu.Unlock()

	close(cm.cleanupStop)
	cm.cleanupWg.Wait()
	cm.writes.Wait()

	if cm.disk != nil {
		if err := cm.disk.Close(); err != nil {
			return fmt.Errorf("failed to close disk cache: %w", err)
		}
	}
	return nil
}

func (cm *Manager) startCleanupRoutine() {
	ticker := time.NewTicker(cm.config.CleanupInterval)
	cm.cleanupWg.Add(1)

	go func() {
		defer cm.cleanupWg.Done()
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				cm.cleanup()
			case <-cm.cleanupStop:
				return
			}
		}
	}()
}

// cleanup drops entries past their TTL from both levels.
func (cm *Manager) cleanup() {
	cm.mu.Lock()
	cm.stats.CleanupRuns++
	cm.stats.LastCleanup = time.Now()
	cm.mu.Unlock()

	if cm.config.TTL <= 0 {
		return
	}
	pruned := cm.memory.Prune(cm.config.TTL)
	if cm.disk != nil {
		pruned += cm.disk.RemoveOlderThan(time.Now().Add(-cm.config.TTL))
	}
	if pruned > 0 {
		cm.logger.Debug("cache cleanup", "expired", pruned)
	}
}
