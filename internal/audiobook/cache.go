package audiobook

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/daikw/storyvoice/internal/voice/provider"
)

const (
	clipCacheDir = "storyvoice-clips"
	// DefaultCacheTTL is how long cached clips survive Cleanup.
	DefaultCacheTTL = 24 * time.Hour
)

// ClipCache keeps synthesized clips on disk so rebuilding the same story
// does not request the same audio twice. Entries are keyed by a hash of
// provider, voice settings and text.
type ClipCache struct {
	dir string
	ttl time.Duration
}

// NewClipCache creates a cache in dir, or in the OS temp directory when
// dir is empty.
func NewClipCache(dir string) *ClipCache {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), clipCacheDir)
	}
	return &ClipCache{dir: dir, ttl: DefaultCacheTTL}
}

// Dir returns the cache directory.
func (c *ClipCache) Dir() string {
	return c.dir
}

// ClipKey identifies one synthesis request.
func ClipKey(providerName string, opts provider.SynthesizeOptions, text string) string {
	boost := "default"
	if opts.UseSpeakerBoost != nil {
		boost = fmt.Sprint(*opts.UseSpeakerBoost)
	}
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00%s\x00%s\x00%g\x00%g\x00%g\x00%g\x00%s\x00%s\x00%s\x00%s\x00",
		providerName, opts.Voice, opts.Model, opts.Format, opts.Speed,
		opts.Stability, opts.SimilarityBoost, opts.Style, boost,
		opts.Engine, opts.SampleRate, opts.Language)
	h.Write([]byte(text))
	return fmt.Sprintf("%x", h.Sum(nil))
}

// Get returns the cached audio for key.
func (c *ClipCache) Get(key string) ([]byte, bool) {
	data, err := os.ReadFile(c.path(key))
	if err != nil || len(data) == 0 {
		return nil, false
	}
	return data, true
}

// Put stores audio under key. Failures are logged and otherwise ignored.
func (c *ClipCache) Put(key string, audio []byte) {
	if err := os.MkdirAll(c.dir, 0755); err != nil {
		log.Debug().Err(err).Msg("Failed to create clip cache directory")
		return
	}
	tmp := c.path(key) + ".tmp"
	if err := os.WriteFile(tmp, audio, 0644); err != nil {
		log.Debug().Err(err).Msg("Failed to write cached clip")
		return
	}
	if err := os.Rename(tmp, c.path(key)); err != nil {
		_ = os.Remove(tmp)
		log.Debug().Err(err).Msg("Failed to store cached clip")
	}
}

// Cleanup removes clips older than the cache TTL.
func (c *ClipCache) Cleanup() {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return
	}

	cutoff := time.Now().Add(-c.ttl)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if os.Remove(filepath.Join(c.dir, entry.Name())) == nil {
				removed++
			}
		}
	}
	if removed > 0 {
		log.Debug().Int("removed", removed).Msg("Cleaned clip cache")
	}
}

func (c *ClipCache) path(key string) string {
	return filepath.Join(c.dir, key+".clip")
}
