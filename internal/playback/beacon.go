package playback

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/vortaro/internal/freshness"
)

// Beacon announces which item is current. It publishes its epoch once and
// does nothing else: it never reads the channel and never produces output.
type Beacon struct {
	epoch   freshness.Epoch
	channel freshness.Channel
	logger  *log.Logger

	done chan struct{}
	once sync.Once
}

// NewBeacon creates a beacon for the epoch. The epoch's SessionID selects the
// channel key.
func NewBeacon(channel freshness.Channel, epoch freshness.Epoch, logger *log.Logger) *Beacon {
	if logger == nil {
		logger = log.Default().WithPrefix("beacon")
	}
	return &Beacon{
		epoch:   epoch,
		channel: channel,
		logger:  logger,
		done:    make(chan struct{}),
	}
}

// Run publishes the epoch. A failed publish is logged and dropped; the
// contexts of this epoch will then fail their checks and stay silent.
// Running again republishes the same epoch.
func (b *Beacon) Run(ctx context.Context) {
	defer b.once.Do(func() { close(b.done) })

	if err := b.channel.Publish(ctx, b.epoch.SessionID, b.epoch); err != nil {
		b.logger.Debug("publish failed", "epoch", b.epoch, "err", err)
		return
	}
	b.logger.Debug("published", "epoch", b.epoch)
}

// Done is closed once the first publish attempt has finished.
func (b *Beacon) Done() <-chan struct{} {
	return b.done
}

// Epoch returns the published epoch.
func (b *Beacon) Epoch() freshness.Epoch {
	return b.epoch
}
