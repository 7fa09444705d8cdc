package asset

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/mitchellh/go-homedir"

	"github.com/dgnsrekt/vortaro/internal/audio"
	"github.com/dgnsrekt/vortaro/internal/cache"
)

var (
	// ErrNotFound is returned when no file exists for an item key.
	ErrNotFound = errors.New("audio asset not found")

	// ErrUnsupportedFormat is returned for compressed formats we recognise
	// but cannot decode.
	ErrUnsupportedFormat = errors.New("unsupported audio format")
)

// Lookup order. Compressed formats are only recognised so the error says
// what was found.
var (
	playableExts    = []string{".wav", ".pcm"}
	unsupportedExts = []string{".mp3", ".ogg"}
)

// Library loads clips from a flat directory of <key>.<ext> files.
type Library struct {
	dir    string
	clips  *cache.Manager // optional
	logger *log.Logger
}

// NewLibrary opens the asset directory. A leading ~ is expanded. clips may
// be nil to disable caching.
func NewLibrary(dir string, clips *cache.Manager, logger *log.Logger) (*Library, error) {
	expanded, err := homedir.Expand(dir)
	if err != nil {
		return nil, fmt.Errorf("expand %q: %w", dir, err)
	}
	info, err := os.Stat(expanded)
	if err != nil {
		return nil, fmt.Errorf("asset directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("asset directory %s is not a directory", expanded)
	}
	if logger == nil {
		logger = log.Default().WithPrefix("asset")
	}
	return &Library{dir: expanded, clips: clips, logger: logger}, nil
}

// Dir returns the expanded asset directory.
func (l *Library) Dir() string { return l.dir }

// Path returns the file that holds the clip for key.
func (l *Library) Path(key string) (string, error) {
	for _, ext := range playableExts {
		p := filepath.Join(l.dir, key+ext)
		if fileExists(p) {
			return p, nil
		}
	}
	for _, ext := range unsupportedExts {
		p := filepath.Join(l.dir, key+ext)
		if fileExists(p) {
			return "", fmt.Errorf("%s: %w", filepath.Base(p), ErrUnsupportedFormat)
		}
	}
	return "", fmt.Errorf("%q in %s: %w", key, l.dir, ErrNotFound)
}

// Load returns the decoded clip for key, from the cache when the file has
// not changed since it was cached.
func (l *Library) Load(ctx context.Context, key string) (audio.Clip, error) {
	if err := ctx.Err(); err != nil {
		return audio.Clip{}, err
	}

	path, err := l.Path(key)
	if err != nil {
		return audio.Clip{}, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return audio.Clip{}, fmt.Errorf("stat %s: %w", path, err)
	}
	stamp := fileStamp{modTime: info.ModTime().UnixNano(), size: info.Size()}

	if l.clips != nil {
		if raw, ok := l.clips.Get(key); ok {
			if clip, cachedStamp, err := decodeCached(key, raw); err == nil && cachedStamp == stamp {
				return clip, nil
			}
		}
	}

	clip, err := l.decodeFile(key, path)
	if err != nil {
		return audio.Clip{}, err
	}
	l.logger.Debug("decoded clip", "key", key, "duration", clip.Duration(), "rate", clip.Format.SampleRate)

	if l.clips != nil {
		if err := l.clips.Put(key, encodeCached(clip, stamp)); err != nil {
			l.logger.Warn("could not cache clip", "key", key, "err", err)
		}
	}
	return clip, nil
}

func (l *Library) decodeFile(key, path string) (audio.Clip, error) {
	if strings.EqualFold(filepath.Ext(path), ".pcm") {
		data, err := os.ReadFile(path)
		if err != nil {
			return audio.Clip{}, fmt.Errorf("read %s: %w", path, err)
		}
		format := audio.DefaultFormat()
		data = data[:len(data)-len(data)%format.FrameSize()]
		return audio.Clip{Key: key, Data: data, Format: format}, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return audio.Clip{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	data, format, err := DecodeWAV(f)
	if err != nil {
		return audio.Clip{}, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return audio.Clip{Key: key, Data: data, Format: format}, nil
}

// Keys lists every item key with a playable file, sorted.
func (l *Library) Keys() ([]string, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("read asset directory: %w", err)
	}

	seen := make(map[string]struct{})
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if key, ok := playableKey(e.Name()); ok {
			seen[key] = struct{}{}
		}
	}

	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Invalidate drops a key from the clip cache.
func (l *Library) Invalidate(key string) {
	if l.clips != nil {
		_ = l.clips.Delete(key)
	}
}

func playableKey(name string) (string, bool) {
	ext := strings.ToLower(filepath.Ext(name))
	for _, p := range playableExts {
		if ext == p {
			return strings.TrimSuffix(name, filepath.Ext(name)), true
		}
	}
	return "", false
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

type fileStamp struct {
	modTime int64
	size    int64
}

// Cached clips are stored as a fixed header followed by the PCM data.
const cachedHeaderSize = 8 + 8 + 4 + 2 + 2

func encodeCached(clip audio.Clip, stamp fileStamp) []byte {
	buf := make([]byte, cachedHeaderSize+len(clip.Data))
	binary.LittleEndian.PutUint64(buf[0:8], uint64(stamp.modTime))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(stamp.size))
	binary.LittleEndian.PutUint32(buf[16:20], uint32(clip.Format.SampleRate))
	binary.LittleEndian.PutUint16(buf[20:22], uint16(clip.Format.Channels))
	binary.LittleEndian.PutUint16(buf[22:24], uint16(clip.Format.BitDepth))
	copy(buf[cachedHeaderSize:], clip.Data)
	return buf
}

func decodeCached(key string, raw []byte) (audio.Clip, fileStamp, error) {
	if len(raw) < cachedHeaderSize {
		return audio.Clip{}, fileStamp{}, errors.New("short cache entry")
	}
	stamp := fileStamp{
		modTime: int64(binary.LittleEndian.Uint64(raw[0:8])),
		size:    int64(binary.LittleEndian.Uint64(raw[8:16])),
	}
	clip := audio.Clip{
		Key: key,
		Format: audio.Format{
			SampleRate: int(binary.LittleEndian.Uint32(raw[16:20])),
			Channels:   int(binary.LittleEndian.Uint16(raw[20:22])),
			BitDepth:   int(binary.LittleEndian.Uint16(raw[22:24])),
		},
		Data: raw[cachedHeaderSize:],
	}
	if err := clip.Validate(); err != nil {
		return audio.Clip{}, fileStamp{}, err
	}
	return clip, stamp, nil
}
