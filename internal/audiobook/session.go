package audiobook

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/daikw/storyvoice/internal/story"
)

// Default pauses between tracks.
const (
	LocalPause  = 300 * time.Millisecond
	HostedPause = 500 * time.Millisecond
	ErrorPause  = 100 * time.Millisecond
)

// Speaker speaks one line on the device and blocks until it is done.
type Speaker interface {
	Speak(ctx context.Context, character, text string, profile story.VoiceProfile) error
}

// AudioPlayer plays encoded audio and blocks until it is done.
type AudioPlayer interface {
	Play(ctx context.Context, audio []byte, format string) error
}

// Status is the playback state of a Session.
type Status string

const (
	StatusIdle     Status = "idle"
	StatusPlaying  Status = "playing"
	StatusStopped  Status = "stopped"
	StatusFinished Status = "finished"
)

// Track is one queued line.
type Track struct {
	Character string
	Text      string
}

// State is a point-in-time view of a Session.
type State struct {
	ID        string `json:"id"`
	Status    Status `json:"status"`
	Index     int    `json:"index"`
	Total     int    `json:"total"`
	Character string `json:"character,omitempty"`
	Failed    int    `json:"failed"`
}

// Session plays a queue of tracks one after another. Current index and
// status are held explicitly so other goroutines can inspect progress.
type Session struct {
	id         string
	tracks     []Track
	play       func(ctx context.Context, i int) error
	pause      time.Duration
	errorPause time.Duration
	onTrack    func(State)

	mu     sync.Mutex
	status Status
	index  int
	failed int
	cancel context.CancelFunc
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithPause overrides the pause after a finished track.
func WithPause(d time.Duration) SessionOption {
	return func(s *Session) { s.pause = d }
}

// WithErrorPause overrides the pause after a failed track.
func WithErrorPause(d time.Duration) SessionOption {
	return func(s *Session) { s.errorPause = d }
}

// WithTrackHook is called before each track starts.
func WithTrackHook(fn func(State)) SessionOption {
	return func(s *Session) { s.onTrack = fn }
}

func newSession(tracks []Track, pause time.Duration, play func(ctx context.Context, i int) error, opts []SessionOption) *Session {
	s := &Session{
		id:         uuid.NewString(),
		tracks:     tracks,
		play:       play,
		pause:      pause,
		errorPause: ErrorPause,
		status:     StatusIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewLocalSession speaks segments on the device with the assigned profiles.
func NewLocalSession(segments []story.Segment, assignment *story.VoiceAssignment, speaker Speaker, opts ...SessionOption) *Session {
	tracks := make([]Track, len(segments))
	for i, seg := range segments {
		tracks[i] = Track{Character: seg.Character, Text: seg.Text}
	}
	return newSession(tracks, LocalPause, func(ctx context.Context, i int) error {
		t := tracks[i]
		return speaker.Speak(ctx, t.Character, t.Text, assignment.Lookup(t.Character))
	}, opts)
}

// NewHostedSession plays the clips of book in order.
func NewHostedSession(book *Audiobook, player AudioPlayer, opts ...SessionOption) *Session {
	tracks := make([]Track, len(book.Clips))
	for i, c := range book.Clips {
		tracks[i] = Track{Character: c.Character, Text: c.Text}
	}
	return newSession(tracks, HostedPause, func(ctx context.Context, i int) error {
		return player.Play(ctx, book.Clips[i].Audio, book.Format)
	}, opts)
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// State returns the current playback state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Session) stateLocked() State {
	st := State{
		ID:     s.id,
		Status: s.status,
		Index:  s.index,
		Total:  len(s.tracks),
		Failed: s.failed,
	}
	if s.index < len(s.tracks) {
		st.Character = s.tracks[s.index].Character
	}
	return st
}

// Play plays every track in order and returns when the queue is done or
// ctx is cancelled. A failed track is logged and skipped.
func (s *Session) Play(ctx context.Context) error {
	s.mu.Lock()
	if s.status == StatusPlaying {
		s.mu.Unlock()
		return ErrBusy
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.cancel = cancel
	s.status = StatusPlaying
	s.index = 0
	s.failed = 0
	s.mu.Unlock()

	log.Debug().Str("session", s.id).Int("tracks", len(s.tracks)).Msg("Playback started")

	for i := range s.tracks {
		s.mu.Lock()
		s.index = i
		st := s.stateLocked()
		s.mu.Unlock()

		if s.onTrack != nil {
			s.onTrack(st)
		}

		wait := s.pause
		if err := s.play(ctx, i); err != nil {
			if ctx.Err() != nil {
				return s.stop(ctx.Err())
			}
			log.Warn().
				Err(err).
				Str("session", s.id).
				Int("track", i).
				Str("character", s.tracks[i].Character).
				Msg("Playback failed, skipping")
			s.mu.Lock()
			s.failed++
			s.mu.Unlock()
			wait = s.errorPause
		}

		if i == len(s.tracks)-1 {
			break
		}
		select {
		case <-ctx.Done():
			return s.stop(ctx.Err())
		case <-time.After(wait):
		}
	}

	s.mu.Lock()
	s.status = StatusFinished
	s.index = len(s.tracks)
	s.cancel = nil
	s.mu.Unlock()

	log.Debug().Str("session", s.id).Msg("Playback finished")
	return nil
}

func (s *Session) stop(err error) error {
	s.mu.Lock()
	s.status = StatusStopped
	s.cancel = nil
	s.mu.Unlock()
	log.Debug().Str("session", s.id).Msg("Playback stopped")
	return err
}

// Stop cancels a running Play.
func (s *Session) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}
