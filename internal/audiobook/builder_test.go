package audiobook

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daikw/storyvoice/internal/story"
	"github.com/daikw/storyvoice/internal/voice/provider"
)

// fakeProvider returns "<voice>|<text>" as audio and fails on the texts
// listed in fail.
type fakeProvider struct {
	name  string
	fail  map[string]error
	block chan struct{}
	start chan struct{}

	mu    sync.Mutex
	calls []provider.SynthesizeOptions
	texts []string
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) ListVoices(ctx context.Context) ([]provider.Voice, error) { return nil, nil }

func (f *fakeProvider) IsAvailable(ctx context.Context) bool { return true }

func (f *fakeProvider) Synthesize(ctx context.Context, text string, opts provider.SynthesizeOptions) (io.ReadCloser, error) {
	f.mu.Lock()
	f.calls = append(f.calls, opts)
	f.texts = append(f.texts, text)
	f.mu.Unlock()

	if f.start != nil {
		close(f.start)
		f.start = nil
	}
	if f.block != nil {
		<-f.block
	}
	if err, ok := f.fail[text]; ok {
		return nil, err
	}
	return io.NopCloser(strings.NewReader(opts.Voice + "|" + text)), nil
}

type observation struct {
	character string
	size      int
	err       error
}

type recordingObserver struct {
	mu  sync.Mutex
	obs []observation
}

func (r *recordingObserver) SegmentSynthesized(providerName, character string, elapsed time.Duration, size int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.obs = append(r.obs, observation{character: character, size: size, err: err})
}

func testSegments() []story.Segment {
	return []story.Segment{
		{Character: "Narrator", Text: "The room was dark."},
		{Character: "Max", Text: "Did you hear that?"},
		{Character: "Luna", Text: "I think we should go back."},
	}
}

func TestBuilder_Build(t *testing.T) {
	p := &fakeProvider{name: "elevenlabs"}
	obs := &recordingObserver{}
	b := NewBuilder(p, WithRequestDelay(0), WithObserver(obs))
	assignment := story.AssignVoices([]string{"Max", "Luna", "Narrator"})

	var progress [][2]int
	book, err := b.Build(context.Background(), testSegments(), assignment, func(done, total int) {
		progress = append(progress, [2]int{done, total})
	})

	require.NoError(t, err)
	require.Len(t, book.Clips, 3)
	assert.Empty(t, book.Skipped)
	assert.Equal(t, "mp3", book.Format)
	assert.Equal(t, [][2]int{{1, 3}, {2, 3}, {3, 3}}, progress)

	adam := story.Profile(story.Narrator).Hosted.ID
	charlie := story.Profile(story.Elder).Hosted.ID
	assert.Equal(t, adam, book.Clips[0].Voice)
	assert.Equal(t, charlie, book.Clips[1].Voice, "Max hashes to Elder")
	assert.Equal(t, adam, book.Clips[2].Voice, "Luna hashes to Narrator")

	expected := adam + "|The room was dark." + charlie + "|Did you hear that?" + adam + "|I think we should go back."
	joined, err := book.Join()
	require.NoError(t, err)
	assert.Equal(t, expected, string(joined))
	assert.Equal(t, len(expected), book.Size())
	assert.Equal(t, "audio/mpeg", book.ContentType())

	assert.Len(t, obs.obs, 3)
	assert.Equal(t, "Max", obs.obs[1].character)
	assert.False(t, b.Busy())
}

func TestBuilder_BuildSkipsFailedSegments(t *testing.T) {
	p := &fakeProvider{
		name: "openai",
		fail: map[string]error{
			"Did you hear that?": &provider.StatusError{Provider: "OpenAI", StatusCode: http.StatusInternalServerError},
		},
	}
	b := NewBuilder(p, WithRequestDelay(0))

	calls := 0
	book, err := b.Build(context.Background(), testSegments(), story.AssignVoices([]string{"Max", "Luna"}), func(done, total int) {
		calls++
	})

	require.NoError(t, err)
	assert.Equal(t, []int{1}, book.Skipped)
	require.Len(t, book.Clips, 2)
	assert.Equal(t, 0, book.Clips[0].Index)
	assert.Equal(t, 2, book.Clips[1].Index)
	assert.Equal(t, 3, calls)
	assert.Equal(t, "fable", book.Clips[0].Voice)
}

func TestBuilder_BuildAbortsOnFatalErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		target error
	}{
		{"invalid key", http.StatusUnauthorized, provider.ErrInvalidAPIKey},
		{"quota", http.StatusTooManyRequests, provider.ErrQuotaExceeded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakeProvider{
				name: "elevenlabs",
				fail: map[string]error{
					"Did you hear that?": &provider.StatusError{Provider: "ElevenLabs", StatusCode: tt.status},
				},
			}
			b := NewBuilder(p, WithRequestDelay(0))

			book, err := b.Build(context.Background(), testSegments(), story.AssignVoices([]string{"Max"}), nil)

			require.Error(t, err)
			assert.ErrorIs(t, err, tt.target)
			assert.Nil(t, book)
			assert.Len(t, p.texts, 2, "no request after the fatal one")
			assert.False(t, b.Busy())
		})
	}
}

func TestBuilder_BuildIsExclusive(t *testing.T) {
	p := &fakeProvider{name: "elevenlabs", block: make(chan struct{}), start: make(chan struct{})}
	started := p.start
	b := NewBuilder(p, WithRequestDelay(0))
	segs := testSegments()[:1]

	done := make(chan error, 1)
	go func() {
		_, err := b.Build(context.Background(), segs, story.AssignVoices(nil), nil)
		done <- err
	}()

	<-started
	assert.True(t, b.Busy())

	_, err := b.Build(context.Background(), segs, story.AssignVoices(nil), nil)
	assert.ErrorIs(t, err, ErrBusy)

	close(p.block)
	require.NoError(t, <-done)
	assert.False(t, b.Busy())
}

func TestBuilder_BuildPacesRequests(t *testing.T) {
	p := &fakeProvider{name: "elevenlabs"}
	b := NewBuilder(p, WithRequestDelay(20*time.Millisecond))

	start := time.Now()
	_, err := b.Build(context.Background(), testSegments(), story.AssignVoices(nil), nil)

	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestBuilder_BuildCancelled(t *testing.T) {
	p := &fakeProvider{name: "elevenlabs"}
	b := NewBuilder(p, WithRequestDelay(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := b.Build(ctx, testSegments(), story.AssignVoices(nil), nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, p.texts, 1)
}

func TestBuilder_Options(t *testing.T) {
	p := &fakeProvider{name: "polly"}
	b := NewBuilder(p,
		WithRequestDelay(0),
		WithSynthesizeOptions(provider.SynthesizeOptions{Engine: "neural", SampleRate: "22050", Voice: "ignored"}),
		WithVoices(HostedVoices("polly", map[story.VoiceCategory]string{story.Narrator: "Kevin"})),
	)

	_, err := b.Build(context.Background(), testSegments()[:1], story.AssignVoices(nil), nil)

	require.NoError(t, err)
	require.Len(t, p.calls, 1)
	assert.Equal(t, "Kevin", p.calls[0].Voice)
	assert.Equal(t, "neural", p.calls[0].Engine)
	assert.Equal(t, "mp3", p.calls[0].Format)
}

func TestBuilder_BuildUsesCache(t *testing.T) {
	cache := NewClipCache(t.TempDir())
	obs := &recordingObserver{}
	assignment := story.AssignVoices([]string{"Max", "Luna"})

	first := &fakeProvider{name: "elevenlabs"}
	_, err := NewBuilder(first, WithRequestDelay(0), WithCache(cache)).Build(context.Background(), testSegments(), assignment, nil)
	require.NoError(t, err)
	assert.Len(t, first.texts, 3)

	second := &fakeProvider{name: "elevenlabs"}
	book, err := NewBuilder(second, WithRequestDelay(0), WithCache(cache), WithObserver(obs)).Build(context.Background(), testSegments(), assignment, nil)
	require.NoError(t, err)

	assert.Empty(t, second.texts, "every clip served from cache")
	assert.Empty(t, obs.obs)
	require.Len(t, book.Clips, 3)
	assert.Equal(t, story.Profile(story.Narrator).Hosted.ID+"|The room was dark.", string(book.Clips[0].Audio))
}

func TestBuilder_Synthesize(t *testing.T) {
	p := &fakeProvider{name: "elevenlabs", fail: map[string]error{"boom": errors.New("network down")}}
	b := NewBuilder(p)

	clip, err := b.Synthesize(context.Background(), "Evil Queen", "Mirror, mirror.", "")
	require.NoError(t, err)
	assert.Equal(t, story.Profile(story.Villain).Hosted.ID, clip.Voice)
	assert.Equal(t, "Evil Queen", clip.Character)

	clip, err = b.Synthesize(context.Background(), "Evil Queen", "Mirror, mirror.", "custom-voice")
	require.NoError(t, err)
	assert.Equal(t, "custom-voice|Mirror, mirror.", string(clip.Audio))

	_, err = b.Synthesize(context.Background(), "Max", "boom", "")
	assert.Error(t, err)
}

func TestFileName(t *testing.T) {
	now := time.UnixMilli(1700000000000)

	tests := []struct {
		title    string
		format   string
		expected string
	}{
		{"", "mp3", "ai-audiobook-complete-1700000000000.mp3"},
		{"   ", "", "ai-audiobook-complete-1700000000000.mp3"},
		{"The Heist", "mp3", "The Heist-complete-1700000000000.mp3"},
		{`a/b\c`, "mp3", "a-b-c-complete-1700000000000.mp3"},
		{"The Heist", "WAV", "The Heist-complete-1700000000000.wav"},
		{"The Heist", "wma", "The Heist-complete-1700000000000.mp3"},
	}

	for _, tt := range tests {
		t.Run(tt.title+"/"+tt.format, func(t *testing.T) {
			assert.Equal(t, tt.expected, FileName(tt.title, tt.format, now))
		})
	}
}

func TestAudiobook_Join(t *testing.T) {
	clips := []Clip{{Audio: []byte("ab")}, {Audio: []byte("cd")}}

	t.Run("mp3 appends clips", func(t *testing.T) {
		joined, err := (&Audiobook{Format: "mp3", Clips: clips}).Join()
		require.NoError(t, err)
		assert.Equal(t, "abcd", string(joined))
	})

	t.Run("wav is refused", func(t *testing.T) {
		book := &Audiobook{Format: "wav", Clips: clips}
		_, err := book.Join()
		assert.ErrorIs(t, err, ErrNotJoinable)
		assert.Equal(t, "audio/wav", book.ContentType())
	})

	t.Run("unknown format", func(t *testing.T) {
		book := &Audiobook{Format: "wma", Clips: clips}
		_, err := book.Join()
		assert.Error(t, err)
		assert.Equal(t, "application/octet-stream", book.ContentType())
	})
}

func TestBuilder_Format(t *testing.T) {
	t.Run("defaults to mp3", func(t *testing.T) {
		b := NewBuilder(&fakeProvider{name: "elevenlabs"})
		assert.Equal(t, "mp3", b.Format())
		assert.True(t, b.Joinable())
	})

	t.Run("wav builds clips but cannot be joined", func(t *testing.T) {
		p := &fakeProvider{name: "openai"}
		b := NewBuilder(p, WithRequestDelay(0), WithSynthesizeOptions(provider.SynthesizeOptions{Format: "WAV"}))
		assert.Equal(t, "wav", b.Format())
		assert.False(t, b.Joinable())

		book, err := b.Build(context.Background(), testSegments(), story.AssignVoices(nil), nil)
		require.NoError(t, err)
		assert.Len(t, book.Clips, 3)
		assert.Equal(t, "wav", p.calls[0].Format)
		_, err = book.Join()
		assert.ErrorIs(t, err, ErrNotJoinable)
	})

	t.Run("unsupported format fails before any request", func(t *testing.T) {
		p := &fakeProvider{name: "openai"}
		b := NewBuilder(p, WithSynthesizeOptions(provider.SynthesizeOptions{Format: "wma"}))
		assert.False(t, b.Joinable())

		_, err := b.Build(context.Background(), testSegments(), story.AssignVoices(nil), nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported audio format")
		_, err = b.Synthesize(context.Background(), "Max", "Did you hear that?", "")
		require.Error(t, err)
		assert.Empty(t, p.calls)
	})
}
