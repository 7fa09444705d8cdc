package freshness

import (
	"context"
	"errors"
)

// ErrStorageUnavailable is returned when the backing store cannot be read or
// written (quota exhausted, storage disabled, database locked).
var ErrStorageUnavailable = errors.New("freshness storage unavailable")

// Channel is the shared register. Publish overwrites unconditionally; Read
// returns ok=false when nothing has been published for the session yet.
type Channel interface {
	Publish(ctx context.Context, sessionID string, epoch Epoch) error
	Read(ctx context.Context, sessionID string) (Record, bool, error)
}

// Matches reads the channel and reports whether the current record is the
// given epoch. An absent record is reported as a mismatch.
func Matches(ctx context.Context, ch Channel, epoch Epoch) (Record, bool, error) {
	rec, ok, err := ch.Read(ctx, epoch.SessionID)
	if err != nil {
		return Record{}, false, err
	}
	if !ok {
		return Record{}, false, nil
	}
	return rec, rec.Epoch.Equal(epoch), nil
}
