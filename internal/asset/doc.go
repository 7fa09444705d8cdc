// Package asset finds and decodes the audio clip for an item key. Clips live
// in a flat directory as <key>.wav or raw <key>.pcm and are kept in a
// two-level cache once decoded.
package asset
