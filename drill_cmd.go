package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/time/rate"

	"github.com/dgnsrekt/vortaro/internal/audio"
	"github.com/dgnsrekt/vortaro/internal/freshness"
	"github.com/dgnsrekt/vortaro/internal/playback"
	"github.com/dgnsrekt/vortaro/internal/session"
)

var (
	drillEvery  time.Duration
	drillBurst  int
	drillRounds int
	drillDevice bool
	drillFollow bool

	drillCmd = &cobra.Command{
		Use:   "drill [ITEM...]",
		Short: "Advance through items on a fixed cadence, without a UI",
		Long: paragraph(fmt.Sprintf("\n%s through the items on a fixed cadence and log every playback transition to stderr. Playback is simulated unless --device is set.",
			keyword("Advance"))),
		Example: paragraph("vortaro drill --every 300ms --rounds 5\nvortaro drill --channel sqlite --session demo hundo kato"),
		RunE:    runDrill,
	}
)

func init() {
	drillCmd.Flags().DurationVar(&drillEvery, "every", 2*time.Second, "time between items")
	drillCmd.Flags().IntVar(&drillBurst, "burst", 1, "items that may be advanced back to back")
	drillCmd.Flags().IntVar(&drillRounds, "rounds", 1, "times to go through the items")
	drillCmd.Flags().BoolVar(&drillDevice, "device", false, "play through the audio device")
	drillCmd.Flags().BoolVar(&drillFollow, "follow", false, "queue files added to the asset directory")
}

func runDrill(cmd *cobra.Command, args []string) error {
	if drillEvery <= 0 || drillBurst < 1 || drillRounds < 1 {
		return errors.New("--every, --burst and --rounds must be positive")
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.000",
		Prefix:          "drill",
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	a, err := newApp(!drillDevice)
	if err != nil {
		return err
	}
	defer a.Close() //nolint:errcheck

	// A drill nobody listens to still has to produce output.
	viper.Set("playback.no_autoplay", false)
	presenter := newLogPresenter(logger)
	s, err := a.newSession(ctx, sessionID, presenter)
	if err != nil {
		return err
	}
	defer s.Close() //nolint:errcheck

	items, err := a.resolveItems(args)
	if err != nil {
		return err
	}
	for range drillRounds {
		if _, err := s.Enqueue(items...); err != nil {
			return fmt.Errorf("unable to queue items: %w", err)
		}
	}
	if drillFollow {
		if err := followLibrary(ctx, a, s); err != nil {
			logger.Warn("not following the asset directory", "error", err)
		}
	}
	logger.Info("session started", "id", s.ID(), "items", s.Remaining(), "every", drillEvery)

	start := time.Now()
	contexts, err := drill(ctx, s, rate.NewLimiter(rate.Every(drillEvery), drillBurst))
	if err != nil {
		return err
	}
	if n := len(contexts); n > 0 {
		last := contexts[n-1]
		select {
		case <-last.Done():
		case <-ctx.Done():
		}
	}

	fmt.Println(summarize(contexts, time.Since(start)))
	if mock, ok := a.device.(*audio.MockPlayer); ok {
		m := mock.Metrics()
		fmt.Printf("voices acquired: %d, most audible at once: %d\n", m.AcquireCount, m.MaxAudible)
	}
	return nil
}

// drill advances s whenever limiter allows until the queue runs out or ctx
// is done.
func drill(ctx context.Context, s *session.Session, limiter *rate.Limiter) ([]*playback.Context, error) {
	var contexts []*playback.Context
	for {
		if err := limiter.Wait(ctx); err != nil {
			return contexts, nil //nolint:nilerr
		}
		c, err := s.Next(ctx)
		switch {
		case errors.Is(err, session.ErrEndOfItems):
			return contexts, nil
		case errors.Is(err, context.Canceled):
			return contexts, nil
		case err != nil:
			return contexts, err
		}
		contexts = append(contexts, c)
	}
}

// summarize counts the final states of the contexts, e.g.
// "12 items in 24.1s: 1 completed, 11 suppressed".
func summarize(contexts []*playback.Context, elapsed time.Duration) string {
	counts := make(map[playback.State]int)
	for _, c := range contexts {
		counts[c.State()]++
	}

	states := make([]playback.State, 0, len(counts))
	for st := range counts {
		states = append(states, st)
	}
	sort.Slice(states, func(i, j int) bool { return states[i] < states[j] })

	parts := make([]string, 0, len(states))
	for _, st := range states {
		parts = append(parts, fmt.Sprintf("%d %s", counts[st], st))
	}
	out := fmt.Sprintf("%d items in %s", len(contexts), elapsed.Round(100*time.Millisecond))
	if len(parts) > 0 {
		out += ": " + strings.Join(parts, ", ")
	}
	return out
}

// logPresenter logs state changes instead of drawing them.
type logPresenter struct {
	logger *log.Logger

	mu   sync.Mutex
	last map[freshness.Epoch]playback.State
}

func newLogPresenter(logger *log.Logger) *logPresenter {
	return &logPresenter{logger: logger, last: make(map[freshness.Epoch]playback.State)}
}

func (p *logPresenter) Update(s playback.Status) {
	p.mu.Lock()
	prev, seen := p.last[s.Epoch]
	p.last[s.Epoch] = s.State
	p.mu.Unlock()

	if s.Err != nil {
		p.logger.Warn("playback failed", "epoch", s.Epoch, "error", s.Err)
		return
	}
	if seen && prev == s.State {
		return
	}
	p.logger.Info(s.State.String(), "epoch", s.Epoch, "rate", audio.FormatRate(s.Rate))
}

func (p *logPresenter) Hide(e freshness.Epoch) {
	p.mu.Lock()
	delete(p.last, e)
	p.mu.Unlock()

	p.logger.Info("suppressed", "epoch", e)
}
