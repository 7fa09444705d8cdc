// Package playback implements the freshness protocol that keeps at most one
// item audible per session.
//
// A Beacon publishes the epoch of the item being shown. Every playback
// Context polls the shared freshness.Channel at its checkpoints (arming,
// starting output, each user action and each monitor tick) and suppresses
// itself as soon as the published epoch is no longer its own. Contexts never
// reference each other; the channel is the only thing they share.
package playback
