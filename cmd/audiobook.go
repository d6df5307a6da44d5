package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/daikw/storyvoice/internal/audiobook"
	"github.com/daikw/storyvoice/internal/config"
	"github.com/daikw/storyvoice/internal/story"
	"github.com/daikw/storyvoice/internal/voice"
	"github.com/daikw/storyvoice/internal/voice/provider"
)

func audiobookCommand() *cli.Command {
	return &cli.Command{
		Name:      "audiobook",
		Aliases:   []string{"read", "a"},
		Usage:     "Read a story aloud with one voice per character",
		ArgsUsage: "[story-file|-]",
		Action:    handleAudiobook,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "characters",
				Usage: "Comma-separated character names (default: the CHARACTERS: line of the story)",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Save the combined audiobook to this file or directory (hosted providers only)",
			},
			&cli.StringFlag{
				Name:  "title",
				Usage: "Title used for the saved file name",
				Value: audiobook.DefaultTitle,
			},
			&cli.BoolFlag{
				Name:  "play",
				Usage: "Play the audiobook after building it",
				Value: true,
			},
			&cli.BoolFlag{
				Name:  "no-cache",
				Usage: "Always request fresh audio instead of reusing cached clips",
			},
		},
	}
}

// newProvider creates the configured hosted provider. The returned close
// func releases provider clients that hold connections.
func newProvider(ctx context.Context, cfg config.Resolved) (provider.Provider, func(), error) {
	p, err := provider.NewFactory().CreateProvider(ctx, cfg.Provider, cfg.Settings())
	if err != nil {
		return nil, nil, err
	}

	closeFn := func() {}
	if closer, ok := p.(io.Closer); ok {
		closeFn = func() {
			if err := closer.Close(); err != nil {
				log.Debug().Err(err).Msg("Failed to close provider")
			}
		}
	}
	return p, closeFn, nil
}

// newHostedBuilder creates the hosted provider and wraps it in a Builder.
func newHostedBuilder(ctx context.Context, cfg config.Resolved, opts ...audiobook.Option) (*audiobook.Builder, func(), error) {
	p, closeFn, err := newProvider(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return hostedBuilder(p, cfg, opts...), closeFn, nil
}

func hostedBuilder(p provider.Provider, cfg config.Resolved, opts ...audiobook.Option) *audiobook.Builder {
	opts = append([]audiobook.Option{
		audiobook.WithVoices(audiobook.HostedVoices(p.Name(), cfg.VoiceOverrides())),
		audiobook.WithSynthesizeOptions(cfg.SynthesizeOptions()),
		audiobook.WithRequestDelay(cfg.Playback.RequestDelay),
	}, opts...)
	return audiobook.NewBuilder(p, opts...)
}

// checkProvider reports whether p accepts the configured credentials.
func checkProvider(ctx context.Context, p provider.Provider) bool {
	ctx, cancel := context.WithTimeout(ctx, availabilityTimeout)
	defer cancel()

	if !p.IsAvailable(ctx) {
		log.Warn().Str("provider", p.Name()).Msg("Provider is not reachable, check credentials and network")
		return false
	}
	log.Info().Str("provider", p.Name()).Msg("Provider is available")
	return true
}

func handleAudiobook(ctx context.Context, c *cli.Command) error {
	cfg, err := resolveConfig(c)
	if err != nil {
		return err
	}

	loaded, err := readStory(c.Args().First(), c.String("characters"))
	if err != nil {
		return err
	}

	segments := story.SegmentStory(loaded.Text, loaded.Characters)
	if len(segments) == 0 {
		return fmt.Errorf("story has no dialogue segments")
	}
	assignment := story.AssignVoices(loaded.Characters)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.IsLocal() {
		return playLocal(ctx, cfg, segments, assignment)
	}
	return buildHosted(ctx, c, cfg, segments, assignment)
}

func playLocal(ctx context.Context, cfg config.Resolved, segments []story.Segment, assignment *story.VoiceAssignment) error {
	engine, err := voice.DetectLocalEngine()
	if err != nil {
		return err
	}
	log.Info().Str("engine", engine.Name()).Int("segments", len(segments)).Msg("Reading story with device voices")

	session := audiobook.NewLocalSession(segments, assignment, engine,
		audiobook.WithPause(cfg.Playback.LocalPause),
		audiobook.WithErrorPause(cfg.Playback.ErrorPause),
		audiobook.WithTrackHook(printTrack),
	)
	return finishSession(session.Play(ctx), session)
}

func buildHosted(ctx context.Context, c *cli.Command, cfg config.Resolved, segments []story.Segment, assignment *story.VoiceAssignment) error {
	var opts []audiobook.Option
	if !c.Bool("no-cache") {
		opts = append(opts, audiobook.WithCache(openClipCache()))
	}

	builder, closeProvider, err := newHostedBuilder(ctx, cfg, opts...)
	if err != nil {
		return err
	}
	defer closeProvider()

	output := c.String("output")
	if output != "" && !builder.Joinable() {
		return fmt.Errorf("cannot save a single %s file: %w (set the provider format to mp3)", builder.Format(), audiobook.ErrNotJoinable)
	}

	book, err := builder.Build(ctx, segments, assignment, progressPrinter(time.Now()))
	if err != nil {
		return fmt.Errorf("failed to generate audiobook: %w", err)
	}
	if len(book.Clips) == 0 {
		return fmt.Errorf("no audio was generated (%d segments failed)", len(book.Skipped))
	}
	if len(book.Skipped) > 0 {
		fmt.Fprintf(os.Stderr, "⚠️  %d of %d segments failed and were skipped\n", len(book.Skipped), len(segments))
	}

	if output != "" {
		path, err := saveAudiobook(book, output, c.String("title"), time.Now())
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "✅ Audiobook saved to %s (%d bytes)\n", path, book.Size())
	}

	if !c.Bool("play") {
		return nil
	}

	session := audiobook.NewHostedSession(book, voice.NewPlayer(),
		audiobook.WithPause(cfg.Playback.HostedPause),
		audiobook.WithErrorPause(cfg.Playback.ErrorPause),
		audiobook.WithTrackHook(printTrack),
	)
	return finishSession(session.Play(ctx), session)
}

// openClipCache returns the shared clip cache with expired clips removed.
func openClipCache() *audiobook.ClipCache {
	cache := audiobook.NewClipCache("")
	cache.Cleanup()
	log.Debug().Str("dir", cache.Dir()).Msg("Using clip cache")
	return cache
}

// saveAudiobook writes the combined audio. A directory output gets the
// generated file name.
func saveAudiobook(book *audiobook.Audiobook, output, title string, now time.Time) (string, error) {
	audio, err := book.Join()
	if err != nil {
		return "", err
	}
	path := output
	if info, err := os.Stat(output); err == nil && info.IsDir() {
		path = filepath.Join(output, audiobook.FileName(title, book.Format, now))
	}
	if err := os.WriteFile(path, audio, 0644); err != nil {
		return "", fmt.Errorf("failed to save audiobook: %w", err)
	}
	return path, nil
}

func printTrack(s audiobook.State) {
	if s.Status != audiobook.StatusPlaying {
		return
	}
	fmt.Fprintf(os.Stderr, "▶️  [%d/%d] %s\n", s.Index+1, s.Total, s.Character)
}

func finishSession(err error, session *audiobook.Session) error {
	state := session.State()
	switch {
	case errors.Is(err, context.Canceled):
		fmt.Fprintf(os.Stderr, "⏹️  Stopped at %d/%d\n", state.Index+1, state.Total)
		return nil
	case err != nil:
		return err
	}
	if state.Failed > 0 {
		fmt.Fprintf(os.Stderr, "✅ Finished with %d failed segments\n", state.Failed)
	} else {
		fmt.Fprintln(os.Stderr, "✅ Finished")
	}
	return nil
}
