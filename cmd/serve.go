package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/daikw/storyvoice/internal/audiobook"
	"github.com/daikw/storyvoice/internal/httpapi"
	"github.com/daikw/storyvoice/internal/observability"
)

const (
	shutdownTimeout     = 10 * time.Second
	availabilityTimeout = 10 * time.Second
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "Serve the story and audiobook HTTP API",
		Action: handleServe,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address (default: config server.addr, $STORYVOICE_ADDR or :8080)",
			},
		},
	}
}

func handleServe(ctx context.Context, c *cli.Command) error {
	cfg, err := resolveConfig(c)
	if err != nil {
		return err
	}
	addr := cfg.Addr
	if a := c.String("addr"); a != "" {
		addr = a
	}

	metrics := observability.NewMetrics("storyvoice")

	var builder *audiobook.Builder
	if !cfg.IsLocal() {
		p, closeProvider, err := newProvider(ctx, cfg)
		if err != nil {
			log.Warn().Err(err).Str("provider", cfg.Provider).Msg("Hosted voices disabled")
		} else {
			defer closeProvider()
			checkProvider(ctx, p)
			builder = hostedBuilder(p, cfg,
				audiobook.WithObserver(metrics),
				audiobook.WithCache(openClipCache()),
			)
		}
	}

	var generator httpapi.StoryGenerator
	if cfg.Story.APIKey != "" {
		generator = newGenerator(cfg, "")
	} else {
		log.Warn().Msg("GROQ_API_KEY not set, story generation disabled")
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           httpapi.New(cfg.Provider, generator, builder, metrics).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", addr).Str("provider", cfg.Provider).Msg("Listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info().Msg("Shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
