package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/daikw/storyvoice/internal/audiobook"
	"github.com/daikw/storyvoice/internal/story"
	"github.com/daikw/storyvoice/internal/voice"
	"github.com/daikw/storyvoice/internal/voice/provider"
)

func voicesCommand() *cli.Command {
	return &cli.Command{
		Name:   "voices",
		Usage:  "Show the voice table, list back-end voices or audition them",
		Action: handleVoices,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "character",
				Usage: "Show which voice a character name maps to",
			},
			&cli.BoolFlag{
				Name:  "remote",
				Usage: "List the voices the hosted provider offers",
			},
			&cli.StringFlag{
				Name:  "language",
				Usage: "Limit --remote to one language code (e.g. en-US)",
			},
			&cli.BoolFlag{
				Name:  "device",
				Usage: "List device voices and the voice each category selects",
			},
			&cli.StringFlag{
				Name:  "test",
				Usage: "Speak a test line with a category, a device voice name, or all categories",
			},
		},
	}
}

func handleVoices(ctx context.Context, c *cli.Command) error {
	if name := c.String("character"); name != "" {
		printCharacter(os.Stdout, name)
		return nil
	}

	if target := c.String("test"); target != "" {
		engine, err := voice.DetectLocalEngine()
		if err != nil {
			return err
		}
		return engine.Audition(ctx, target, announceLine(os.Stdout))
	}

	if c.Bool("device") {
		engine, err := voice.DetectLocalEngine()
		if err != nil {
			return err
		}
		return printDeviceVoices(ctx, os.Stdout, engine)
	}

	cfg, err := resolveConfig(c)
	if err != nil {
		return err
	}

	if c.Bool("remote") {
		if cfg.IsLocal() {
			return fmt.Errorf("--remote needs a hosted provider, use --device for device voices")
		}
		p, closeProvider, err := newProvider(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeProvider()

		catalog, err := provider.RemoteVoices(ctx, p, c.String("language"))
		if err != nil {
			return fmt.Errorf("failed to list %s voices: %w", cfg.Provider, err)
		}
		printCatalog(os.Stdout, catalog)
		return nil
	}

	table := audiobook.HostedVoices(cfg.Provider, cfg.VoiceOverrides())
	fmt.Printf("Voice table (provider: %s)\n\n", cfg.Provider)
	fmt.Printf("  %-9s %-6s %-6s %-7s %-10s %s\n", "CATEGORY", "PITCH", "RATE", "VOLUME", "DEVICE", "HOSTED")
	for _, e := range table.Table() {
		categoryColors[mustCategory(e.Category)].Printf("  %-9s %-6.1f %-6.2f %-7.1f %-10s %s\n", e.Category, e.Pitch, e.Rate, e.Volume, e.DeviceVoice, e.HostedVoice)
	}
	return nil
}

func printCharacter(w io.Writer, name string) {
	p := story.Profile(story.CategoryFor(name))
	categoryColors[p.Category].Fprintf(w, "%s → %s\n", name, p.Label)
	fmt.Fprintf(w, "  pitch %.1f, rate %.2f, volume %.1f\n", p.Pitch, p.Rate, p.Volume)
	fmt.Fprintf(w, "  device voice: %s\n", p.DeviceVoice)
	fmt.Fprintf(w, "  hosted voice: %s (%s)\n", p.Hosted.Name, p.Hosted.Description)
}

func printCatalog(w io.Writer, catalog provider.Catalog) {
	fmt.Fprintf(w, "%s voices (%d)", catalog.Provider, len(catalog.Voices))
	if catalog.Prebuilt {
		fmt.Fprint(w, " [prebuilt list, service unreachable]")
	}
	fmt.Fprint(w, "\n\n")
	for _, v := range catalog.Voices {
		fmt.Fprintf(w, "  %-24s %-22s %-12s %-8s %s\n", v.ID, v.Name, v.Language, v.Gender, v.Description)
	}
}

func printDeviceVoices(ctx context.Context, w io.Writer, engine *voice.LocalEngine) error {
	voices, err := engine.Voices(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Device voices (%s, %d)\n\n", engine.Name(), len(voices))
	for _, v := range voices {
		fmt.Fprintf(w, "  %-28s %s\n", v.Name, v.Language)
	}

	selected, err := engine.CategoryVoices(ctx)
	if err != nil {
		return err
	}
	fmt.Fprint(w, "\nCategory voices\n\n")
	for _, cv := range selected {
		name := cv.Voice.Name
		if !cv.Found {
			name = "(engine default)"
		}
		categoryColors[cv.Profile.Category].Fprintf(w, "  %-9s %-28s preferred %s\n", cv.Profile.Label, name, cv.Profile.DeviceVoice)
	}
	return nil
}

func announceLine(w io.Writer) func(string) {
	return func(line string) {
		fmt.Fprintf(w, "🔊 %s\n", line)
	}
}
