package main

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"

	"github.com/daikw/storyvoice/internal/audiobook"
	"github.com/daikw/storyvoice/internal/mcpserver"
)

func mcpCommand() *cli.Command {
	return &cli.Command{
		Name:   "mcp",
		Usage:  "Serve story parsing and voice tools over the Model Context Protocol (stdio)",
		Action: handleMCP,
	}
}

func handleMCP(ctx context.Context, c *cli.Command) error {
	// stdout carries the protocol; keep logs quiet on stderr
	if !c.Bool("verbose") {
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	}

	cfg, err := resolveConfig(c)
	if err != nil {
		return err
	}

	var generator mcpserver.Generator
	if cfg.Story.APIKey != "" {
		generator = newGenerator(cfg, "")
	}

	tools := mcpserver.NewTools(generator, audiobook.HostedVoices(cfg.Provider, cfg.VoiceOverrides()))
	return mcpserver.Serve(mcpserver.NewServer(version, tools))
}
