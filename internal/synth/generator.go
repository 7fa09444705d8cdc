package synth

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/dgnsrekt/vortaro/internal/asset"
)

// Item is one vocabulary entry and the key its audio is stored under.
type Item struct {
	Word string
	Key  string
}

// Items derives the keys of words, dropping words whose key repeats.
func Items(words []string) []Item {
	seen := make(map[string]bool, len(words))
	items := make([]Item, 0, len(words))
	for _, w := range words {
		key := asset.KeyFor(w)
		if seen[key] {
			continue
		}
		seen[key] = true
		items = append(items, Item{Word: w, Key: key})
	}
	return items
}

// Missing returns the items with no audio file in lib. Files in a format
// the library cannot play still count as present.
func Missing(lib *asset.Library, items []Item) ([]Item, error) {
	var missing []Item
	for _, it := range items {
		_, err := lib.Path(it.Key)
		switch {
		case err == nil, errors.Is(err, asset.ErrUnsupportedFormat):
		case errors.Is(err, asset.ErrNotFound):
			missing = append(missing, it)
		default:
			return nil, err
		}
	}
	return missing, nil
}

// Failure is an item the engine could not synthesize.
type Failure struct {
	Item
	Err error
}

// Report summarizes a Generate run.
type Report struct {
	Generated []Item
	Skipped   []Item
	Failed    []Failure
}

// Generator writes synthesized clips into an asset library.
type Generator struct {
	Engine  Engine
	Library *asset.Library

	// Limiter paces engine calls; nil means no limit.
	Limiter *rate.Limiter

	// Force regenerates items that already have a file. Words with a
	// hyphen are always regenerated: older files read the hyphen aloud.
	Force bool

	// Raw passes words to the engine without CleanWord.
	Raw bool

	Logger *log.Logger
}

// Generate synthesizes every item that needs it. A failed item is recorded
// and the run goes on; only ctx ending stops it early.
func (g *Generator) Generate(ctx context.Context, items []Item) (Report, error) {
	logger := g.Logger
	if logger == nil {
		logger = log.Default().WithPrefix("synth")
	}

	var report Report
	for _, it := range items {
		if !g.needsAudio(it) {
			report.Skipped = append(report.Skipped, it)
			continue
		}
		if g.Limiter != nil {
			if err := g.Limiter.Wait(ctx); err != nil {
				return report, err
			}
		}
		if err := ctx.Err(); err != nil {
			return report, err
		}

		if err := g.generate(ctx, it); err != nil {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			logger.Warn("synthesis failed", "word", it.Word, "key", it.Key, "error", err)
			report.Failed = append(report.Failed, Failure{Item: it, Err: err})
			continue
		}
		logger.Debug("generated", "word", it.Word, "key", it.Key)
		report.Generated = append(report.Generated, it)
	}
	return report, nil
}

func (g *Generator) needsAudio(it Item) bool {
	if g.Force || strings.Contains(it.Word, "-") {
		return true
	}
	_, err := g.Library.Path(it.Key)
	return errors.Is(err, asset.ErrNotFound)
}

// generate writes <key>.wav through a temporary file so a watcher never
// sees a half written clip.
func (g *Generator) generate(ctx context.Context, it Item) error {
	text := it.Word
	if !g.Raw {
		text = CleanWord(text)
	}
	data, format, err := g.Engine.Synthesize(ctx, text)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := asset.EncodeWAV(&buf, data, format); err != nil {
		return fmt.Errorf("encode %s: %w", it.Key, err)
	}

	dir := g.Library.Dir()
	tmp, err := os.CreateTemp(dir, "."+it.Key+"-*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), filepath.Join(dir, it.Key+".wav")); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	g.Library.Invalidate(it.Key)
	return nil
}
