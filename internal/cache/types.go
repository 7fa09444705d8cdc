package cache

import (
	"errors"
	"time"
)

// Common errors for cache operations
var (
	// ErrItemTooLarge is returned when an item exceeds the cache capacity
	ErrItemTooLarge = errors.New("item too large for cache")

	// ErrCacheClosed is returned by operations on a closed manager
	ErrCacheClosed = errors.New("cache closed")
)

// Level represents the cache tier
type Level int

const (
	// LevelMemory is the in-memory LRU (fastest)
	LevelMemory Level = iota

	// LevelDisk is the compressed disk cache (persistent)
	LevelDisk
)

// String returns the string representation of the cache level
func (l Level) String() string {
	switch l {
	case LevelMemory:
		return "memory"
	case LevelDisk:
		return "disk"
	default:
		return "unknown"
	}
}

// Stats holds cache performance metrics
type Stats struct {
	Capacity  int64 // Maximum capacity in bytes
	Size      int64 // Current size in bytes
	ItemCount int64

	Hits      int64
	Misses    int64
	Evictions int64
	HitRate   float64 // hits / (hits + misses)

	LastEvict time.Time
}

func (s *Stats) computeHitRate() {
	if s.Hits+s.Misses > 0 {
		s.HitRate = float64(s.Hits) / float64(s.Hits+s.Misses)
	}
}

// Entry describes a cached item without its payload.
type Entry struct {
	Key        string
	Size       int64 // Uncompressed size in bytes
	StoredAt   time.Time
	LastAccess time.Time
	Hits       int64
	Level      Level
}

// Config holds configuration for a Manager
type Config struct {
	MemoryCapacity int64 // Bytes

	DiskCapacity     int64  // Bytes; 0 disables the disk level
	DiskPath         string // Directory for cache files
	CompressionLevel int    // Zstd compression level (1-22, 0 = none)

	TTL             time.Duration // Age before disk entries expire; 0 keeps them
	CleanupInterval time.Duration // How often to run cleanup; 0 disables it
}

// DefaultConfig returns default cache configuration
func DefaultConfig() Config {
	return Config{
		MemoryCapacity:   64 * 1024 * 1024,  // 64MB
		DiskCapacity:     256 * 1024 * 1024, // 256MB
		CompressionLevel: 3,                 // Balanced compression
		TTL:              30 * 24 * time.Hour,
		CleanupInterval:  time.Hour,
	}
}

// Cache defines the operations shared by both levels
type Cache interface {
	Get(key string) ([]byte, bool)
	Put(key string, value []byte) error
	Delete(key string) error
	Clear() error

	Size() int64
	Contains(key string) bool
	Stats() Stats
}
