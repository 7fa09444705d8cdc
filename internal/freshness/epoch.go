package freshness

import (
	"fmt"
	"time"
)

// KeyPrefix namespaces channel entries by session.
const KeyPrefix = "freshness/"

// Key returns the channel key for a session.
func Key(sessionID string) string {
	return KeyPrefix + sessionID
}

// Epoch identifies one item presentation within a session.
type Epoch struct {
	Sequence  uint64 `json:"sequence"`
	ItemKey   string `json:"itemKey"`
	SessionID string `json:"sessionId,omitempty"`
}

// Equal reports whether both epochs name the same presentation. The item key
// alone is never enough: the same word can be shown twice in a session.
func (e Epoch) Equal(other Epoch) bool {
	return e.Sequence == other.Sequence &&
		e.ItemKey == other.ItemKey &&
		e.SessionID == other.SessionID
}

// IsZero reports whether the epoch is unset.
func (e Epoch) IsZero() bool {
	return e == Epoch{}
}

// String returns a compact form used in logs, e.g. "3:sipo".
func (e Epoch) String() string {
	return fmt.Sprintf("%d:%s", e.Sequence, e.ItemKey)
}

// Record is the value stored in the channel for a session.
type Record struct {
	Epoch       Epoch     `json:"epoch"`
	PublishedAt time.Time `json:"publishedAt"`
}

// Age returns how long ago the record was published.
func (r Record) Age(now time.Time) time.Duration {
	if r.PublishedAt.IsZero() {
		return 0
	}
	return now.Sub(r.PublishedAt)
}
