// Package freshness holds the shared register that tells every rendering
// context of a session which item presentation is current.
//
// The register is last-write-wins and is only ever polled: writers overwrite
// the record for a session, readers compare the record's epoch with their
// own. There is no notification mechanism and no ordering check on writes.
package freshness
