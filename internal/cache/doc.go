// Package cache keeps decoded audio clips close at hand. It has an in-memory
// LRU level (L1) and a zstd-compressed disk level (L2) that survives restarts,
// coordinated by a Manager with TTL cleanup.
package cache
