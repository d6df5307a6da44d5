package audiobook

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/daikw/storyvoice/internal/story"
	"github.com/daikw/storyvoice/internal/voice/provider"
)

var (
	// ErrBusy is returned when a build is requested while another is running.
	ErrBusy = errors.New("audiobook generation already in progress")
	// ErrNotJoinable is returned when clips in the build format cannot be
	// appended into one playable file.
	ErrNotJoinable = errors.New("audio format cannot be combined into one file")
)

const (
	// DefaultRequestDelay spaces hosted requests to stay under vendor rate limits.
	DefaultRequestDelay = 500 * time.Millisecond
	// DefaultTitle names downloads when no title is given.
	DefaultTitle = "ai-audiobook"
)

// Observer receives one call per synthesized segment.
type Observer interface {
	SegmentSynthesized(providerName, character string, elapsed time.Duration, size int, err error)
}

// Clip is the synthesized audio of one segment.
type Clip struct {
	Index     int    `json:"index"`
	Character string `json:"character"`
	Text      string `json:"text"`
	Voice     string `json:"voice"`
	Audio     []byte `json:"-"`
}

// Audiobook is the ordered set of clips of one story.
type Audiobook struct {
	Format  string `json:"format"`
	Clips   []Clip `json:"clips"`
	Skipped []int  `json:"skipped,omitempty"`
}

// Join concatenates clip audio in segment order. Only frame-based formats
// such as MP3 survive plain appending; the rest return ErrNotJoinable.
func (a *Audiobook) Join() ([]byte, error) {
	f, err := provider.LookupFormat(a.Format)
	if err != nil {
		return nil, err
	}
	if !f.Joinable {
		return nil, fmt.Errorf("%w: %s", ErrNotJoinable, f.Name)
	}
	var buf bytes.Buffer
	for _, c := range a.Clips {
		buf.Write(c.Audio)
	}
	return buf.Bytes(), nil
}

// ContentType returns the media type of the joined audio.
func (a *Audiobook) ContentType() string {
	if f, err := provider.LookupFormat(a.Format); err == nil {
		return f.ContentType
	}
	return "application/octet-stream"
}

// Size returns the total audio length in bytes.
func (a *Audiobook) Size() int {
	n := 0
	for _, c := range a.Clips {
		n += len(c.Audio)
	}
	return n
}

// FileName returns the download name for a combined audiobook in format.
func FileName(title, format string, now time.Time) string {
	title = strings.TrimSpace(title)
	if title == "" {
		title = DefaultTitle
	}
	title = strings.NewReplacer("/", "-", "\\", "-").Replace(title)
	ext := provider.DefaultFormat
	if f, err := provider.LookupFormat(format); err == nil {
		ext = f.Extension
	}
	return fmt.Sprintf("%s-complete-%d.%s", title, now.UnixMilli(), ext)
}

// Builder synthesizes segments one at a time through a hosted provider.
type Builder struct {
	provider provider.Provider
	voices   VoiceTable
	options  provider.SynthesizeOptions
	format   provider.AudioFormat
	fmtErr   error
	delay    time.Duration
	observer Observer
	cache    *ClipCache

	busy atomic.Bool
}

// Option configures a Builder.
type Option func(*Builder)

// WithVoices sets the category voice table.
func WithVoices(t VoiceTable) Option {
	return func(b *Builder) { b.voices = t }
}

// WithSynthesizeOptions sets the per-request defaults. The voice is
// replaced per segment.
func WithSynthesizeOptions(o provider.SynthesizeOptions) Option {
	return func(b *Builder) { b.options = o }
}

// WithRequestDelay sets the pause between requests.
func WithRequestDelay(d time.Duration) Option {
	return func(b *Builder) { b.delay = d }
}

// WithObserver reports per-segment results.
func WithObserver(o Observer) Option {
	return func(b *Builder) { b.observer = o }
}

// WithCache reuses clips synthesized by earlier builds.
func WithCache(c *ClipCache) Option {
	return func(b *Builder) { b.cache = c }
}

// NewBuilder creates a builder for p.
func NewBuilder(p provider.Provider, opts ...Option) *Builder {
	b := &Builder{
		provider: p,
		voices:   HostedVoices(p.Name(), nil),
		delay:    DefaultRequestDelay,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.format, b.fmtErr = provider.LookupFormat(b.options.Format)
	if b.fmtErr == nil {
		b.options.Format = b.format.Name
	}
	return b
}

// Provider returns the hosted provider used for synthesis.
func (b *Builder) Provider() provider.Provider {
	return b.provider
}

// Voices returns the category voice table.
func (b *Builder) Voices() VoiceTable {
	return b.voices
}

// Format returns the audio format requested from the provider.
func (b *Builder) Format() string {
	return b.options.Format
}

// Joinable reports whether built audiobooks can be joined into one file.
func (b *Builder) Joinable() bool {
	return b.fmtErr == nil && b.format.Joinable
}

// Busy reports whether a build is running.
func (b *Builder) Busy() bool {
	return b.busy.Load()
}

// Build synthesizes every segment in order. onProgress, when set, is called
// after each attempt with the number of segments handled so far. Auth and
// quota failures abort the build; any other per-segment failure is logged
// and the segment is skipped.
func (b *Builder) Build(ctx context.Context, segments []story.Segment, assignment *story.VoiceAssignment, onProgress func(done, total int)) (*Audiobook, error) {
	if b.fmtErr != nil {
		return nil, b.fmtErr
	}
	if !b.busy.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer b.busy.Store(false)

	book := &Audiobook{Format: b.options.Format}
	total := len(segments)

	log.Info().
		Str("provider", b.provider.Name()).
		Int("segments", total).
		Msg("Generating audiobook")

	for i, seg := range segments {
		if i > 0 && b.delay > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(b.delay):
			}
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		profile := assignment.Lookup(seg.Character)
		voiceID := b.voices.Voice(profile.Category)

		audio, err := b.synthesize(ctx, seg, voiceID)
		if err != nil {
			if provider.IsFatal(err) {
				return nil, err
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Warn().
				Err(err).
				Int("segment", i).
				Str("character", seg.Character).
				Msg("Failed to synthesize segment, skipping")
			book.Skipped = append(book.Skipped, i)
		} else {
			book.Clips = append(book.Clips, Clip{
				Index:     i,
				Character: seg.Character,
				Text:      seg.Text,
				Voice:     voiceID,
				Audio:     audio,
			})
		}

		if onProgress != nil {
			onProgress(i+1, total)
		}
	}

	log.Info().
		Int("clips", len(book.Clips)).
		Int("skipped", len(book.Skipped)).
		Int("bytes", book.Size()).
		Msg("Audiobook generated")

	return book, nil
}

func (b *Builder) synthesize(ctx context.Context, seg story.Segment, voiceID string) ([]byte, error) {
	opts := b.options
	opts.Voice = voiceID

	var key string
	if b.cache != nil {
		key = ClipKey(b.provider.Name(), opts, seg.Text)
		if audio, ok := b.cache.Get(key); ok {
			log.Debug().Str("character", seg.Character).Msg("Using cached clip")
			return audio, nil
		}
	}

	start := time.Now()
	audio, err := b.read(ctx, seg.Text, opts)
	if b.observer != nil {
		b.observer.SegmentSynthesized(b.provider.Name(), seg.Character, time.Since(start), len(audio), err)
	}
	if err == nil && b.cache != nil {
		b.cache.Put(key, audio)
	}
	return audio, err
}

func (b *Builder) read(ctx context.Context, text string, opts provider.SynthesizeOptions) ([]byte, error) {
	rc, err := b.provider.Synthesize(ctx, text, opts)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	audio, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio: %w", err)
	}
	return audio, nil
}

// Synthesize produces one clip for text spoken by character outside of a
// full build. voiceID overrides the category voice when set.
func (b *Builder) Synthesize(ctx context.Context, character, text, voiceID string) (Clip, error) {
	if b.fmtErr != nil {
		return Clip{}, b.fmtErr
	}
	if voiceID == "" {
		voiceID = b.voices.Voice(story.CategoryFor(character))
	}
	seg := story.Segment{Character: character, Text: text}
	audio, err := b.synthesize(ctx, seg, voiceID)
	if err != nil {
		return Clip{}, err
	}
	return Clip{Character: character, Text: text, Voice: voiceID, Audio: audio}, nil
}
