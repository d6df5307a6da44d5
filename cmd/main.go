package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/daikw/storyvoice/internal/config"
)

var (
	version  = "dev"
	revision = "none"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	app := &cli.Command{
		Name:  "storyvoice",
		Usage: "Turn dialogue-heavy stories into multi-voice audiobooks",
		Description: `storyvoice generates short stories with a language model, splits them
into per-character dialogue segments, gives every character one of five
voice archetypes and reads the result aloud with the device speech engine
or a hosted text-to-speech provider.`,
		Version: fmt.Sprintf("%s (rev: %s)", version, revision),
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"V"},
				Usage:   "Enable verbose logging",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file (default: .storyvoice/config.{json,yaml} or ~/.storyvoice/)",
			},
			&cli.StringFlag{
				Name:    "provider",
				Aliases: []string{"p"},
				Usage:   fmt.Sprintf("Voice back-end: %s (overrides config)", strings.Join(config.KnownProviders(), ", ")),
			},
		},
		Commands: []*cli.Command{
			generateCommand(),
			parseCommand(),
			voicesCommand(),
			audiobookCommand(),
			serveCommand(),
			mcpCommand(),
			configCommand(),
		},
		Before: func(ctx context.Context, c *cli.Command) error {
			if c.Bool("verbose") {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			} else {
				zerolog.SetGlobalLevel(zerolog.InfoLevel)
			}
			return nil
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		log.Fatal().Err(err).Msg("Failed to run application")
	}
}

// loadConfigFile reads the file named by --config, or searches the project
// and global config directories. A missing file is not an error.
func loadConfigFile(c *cli.Command) (*config.File, error) {
	loader := config.NewLoader()
	if path := c.String("config"); path != "" {
		return loader.LoadFromPath(path)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	return loader.Load(cwd)
}

// resolveConfig loads the config file and merges it with CLI flags. Invalid
// files are reported as warnings so a partially broken config still works.
func resolveConfig(c *cli.Command) (config.Resolved, error) {
	file, err := loadConfigFile(c)
	if err != nil {
		return config.Resolved{}, err
	}
	if file != nil {
		for _, problem := range file.Validate() {
			log.Warn().Str("problem", problem).Msg("Config validation")
		}
	}
	return config.Resolve(file, c.String("provider")), nil
}
