package audiobook

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daikw/storyvoice/internal/story"
)

type spoken struct {
	character string
	text      string
	category  story.VoiceCategory
}

type fakeSpeaker struct {
	mu     sync.Mutex
	lines  []spoken
	failOn string
	block  bool
	began  chan struct{}
}

func (f *fakeSpeaker) Speak(ctx context.Context, character, text string, profile story.VoiceProfile) error {
	f.mu.Lock()
	f.lines = append(f.lines, spoken{character: character, text: text, category: profile.Category})
	began := f.began
	f.began = nil
	f.mu.Unlock()

	if began != nil {
		close(began)
	}
	if f.block {
		<-ctx.Done()
		return ctx.Err()
	}
	if text == f.failOn {
		return errors.New("speech synthesis failed")
	}
	return nil
}

type fakePlayer struct {
	played  []string
	formats []string
}

func (f *fakePlayer) Play(ctx context.Context, audio []byte, format string) error {
	f.played = append(f.played, string(audio))
	f.formats = append(f.formats, format)
	return nil
}

func TestLocalSession_Play(t *testing.T) {
	speaker := &fakeSpeaker{}
	assignment := story.AssignVoices([]string{"Max", "Luna", "Evil Queen"})
	segs := append(testSegments(), story.Segment{Character: "Evil Queen", Text: "Mirror, mirror."})

	var hooks []State
	s := NewLocalSession(segs, assignment, speaker,
		WithPause(0),
		WithTrackHook(func(st State) { hooks = append(hooks, st) }),
	)
	assert.Equal(t, StatusIdle, s.State().Status)
	assert.NotEmpty(t, s.ID())

	require.NoError(t, s.Play(context.Background()))

	require.Len(t, speaker.lines, 4)
	assert.Equal(t, story.Narrator, speaker.lines[0].category)
	assert.Equal(t, story.Elder, speaker.lines[1].category)
	assert.Equal(t, story.Villain, speaker.lines[3].category)
	assert.Equal(t, "Mirror, mirror.", speaker.lines[3].text)

	require.Len(t, hooks, 4)
	for i, st := range hooks {
		assert.Equal(t, i, st.Index)
		assert.Equal(t, 4, st.Total)
		assert.Equal(t, StatusPlaying, st.Status)
		assert.Equal(t, segs[i].Character, st.Character)
		assert.Equal(t, s.ID(), st.ID)
	}

	final := s.State()
	assert.Equal(t, StatusFinished, final.Status)
	assert.Equal(t, 4, final.Index)
	assert.Empty(t, final.Character)
}

func TestLocalSession_SkipsFailures(t *testing.T) {
	speaker := &fakeSpeaker{failOn: "Did you hear that?"}
	s := NewLocalSession(testSegments(), story.AssignVoices([]string{"Max", "Luna"}), speaker,
		WithPause(0), WithErrorPause(0))

	require.NoError(t, s.Play(context.Background()))

	assert.Len(t, speaker.lines, 3)
	assert.Equal(t, 1, s.State().Failed)
	assert.Equal(t, StatusFinished, s.State().Status)
}

func TestSession_Pauses(t *testing.T) {
	speaker := &fakeSpeaker{failOn: "The room was dark."}
	s := NewLocalSession(testSegments(), story.AssignVoices(nil), speaker,
		WithPause(40*time.Millisecond), WithErrorPause(5*time.Millisecond))

	start := time.Now()
	require.NoError(t, s.Play(context.Background()))
	elapsed := time.Since(start)

	// one error pause then one normal pause; none after the last track
	assert.GreaterOrEqual(t, elapsed, 45*time.Millisecond)
	assert.Less(t, elapsed, 2*time.Second)
}

func TestHostedSession_Play(t *testing.T) {
	book := &Audiobook{
		Format: "mp3",
		Clips: []Clip{
			{Index: 0, Character: "Narrator", Audio: []byte("a")},
			{Index: 2, Character: "Luna", Audio: []byte("b")},
		},
	}
	player := &fakePlayer{}
	s := NewHostedSession(book, player, WithPause(0))

	require.NoError(t, s.Play(context.Background()))

	assert.Equal(t, []string{"a", "b"}, player.played)
	assert.Equal(t, []string{"mp3", "mp3"}, player.formats)
	assert.Equal(t, 2, s.State().Total)
}

func TestSession_Stop(t *testing.T) {
	speaker := &fakeSpeaker{block: true, began: make(chan struct{})}
	began := speaker.began
	s := NewLocalSession(testSegments(), story.AssignVoices(nil), speaker)

	done := make(chan error, 1)
	go func() { done <- s.Play(context.Background()) }()

	<-began
	assert.Equal(t, StatusPlaying, s.State().Status)

	err := s.Play(context.Background())
	assert.ErrorIs(t, err, ErrBusy)

	s.Stop()
	assert.ErrorIs(t, <-done, context.Canceled)

	st := s.State()
	assert.Equal(t, StatusStopped, st.Status)
	assert.Equal(t, 0, st.Index)
	assert.Len(t, speaker.lines, 1)
}

func TestSession_ContextCancel(t *testing.T) {
	speaker := &fakeSpeaker{}
	s := NewLocalSession(testSegments(), story.AssignVoices(nil), speaker, WithPause(time.Hour))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := s.Play(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, StatusStopped, s.State().Status)
	assert.Len(t, speaker.lines, 1)
}

func TestSession_Empty(t *testing.T) {
	s := NewHostedSession(&Audiobook{}, &fakePlayer{})

	require.NoError(t, s.Play(context.Background()))
	assert.Equal(t, StatusFinished, s.State().Status)
}
