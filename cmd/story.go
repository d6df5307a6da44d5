package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/daikw/storyvoice/internal/config"
	"github.com/daikw/storyvoice/internal/llm"
	"github.com/daikw/storyvoice/internal/story"
)

func generateCommand() *cli.Command {
	return &cli.Command{
		Name:      "generate",
		Aliases:   []string{"g"},
		Usage:     "Generate a story with dialogue from a prompt",
		ArgsUsage: "<prompt>",
		Action:    handleGenerate,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write the story to a file instead of stdout",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print the story, characters and model as JSON",
			},
			&cli.StringFlag{
				Name:  "model",
				Usage: "Override the story model",
			},
		},
	}
}

func parseCommand() *cli.Command {
	return &cli.Command{
		Name:      "parse",
		Usage:     "Split a story into dialogue segments and show voice assignments",
		ArgsUsage: "[story-file|-]",
		Action:    handleParse,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "characters",
				Usage: "Comma-separated character names (default: the CHARACTERS: line of the story)",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print segments and voices as JSON",
			},
			&cli.StringFlag{
				Name:  "script",
				Usage: "Also write a plain-text script to this file",
			},
		},
	}
}

// newGenerator builds the story generator from resolved config.
func newGenerator(cfg config.Resolved, model string) *llm.Generator {
	if model == "" {
		model = cfg.Story.Model
	}
	return llm.New(cfg.Story.APIKey,
		llm.WithBaseURL(cfg.Story.BaseURL),
		llm.WithModel(model),
		llm.WithFallbackModel(cfg.Story.FallbackModel),
		llm.WithTemperature(cfg.Story.Temperature),
	)
}

func handleGenerate(ctx context.Context, c *cli.Command) error {
	prompt := strings.Join(c.Args().Slice(), " ")
	if strings.TrimSpace(prompt) == "" {
		return fmt.Errorf("prompt is required")
	}

	cfg, err := resolveConfig(c)
	if err != nil {
		return err
	}

	gen, err := newGenerator(cfg, c.String("model")).Generate(ctx, prompt)
	if err != nil {
		return err
	}

	var out string
	if c.Bool("json") {
		data, err := json.MarshalIndent(gen, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode story: %w", err)
		}
		out = string(data) + "\n"
	} else {
		out = fmt.Sprintf("CHARACTERS: %s\n\nSTORY:\n%s\n", strings.Join(gen.Characters, ", "), gen.Story)
	}

	if path := c.String("output"); path != "" {
		if err := os.WriteFile(path, []byte(out), 0644); err != nil {
			return fmt.Errorf("failed to write story: %w", err)
		}
		fmt.Fprintf(os.Stderr, "✅ Story saved to %s (%d words, %s)\n", path, gen.WordCount, gen.Model)
		return nil
	}

	fmt.Print(out)
	return nil
}

// loadedStory is a story body with its character list.
type loadedStory struct {
	Text       string
	Characters []string
}

// readStory reads a story from path, or stdin for "" and "-". Text in the
// generated CHARACTERS:/STORY: layout supplies its own character list;
// explicit names replace it.
func readStory(path, characters string) (*loadedStory, error) {
	var (
		data []byte
		err  error
	)
	if path == "" || path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read story: %w", err)
	}

	text := string(data)
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("story is empty")
	}

	loaded := &loadedStory{Text: text}
	if gen, err := story.ParseGenerated(text); err == nil {
		loaded.Text = gen.Story
		loaded.Characters = gen.Characters
	}
	if characters != "" {
		loaded.Characters = splitNames(characters)
	}

	log.Debug().
		Strs("characters", loaded.Characters).
		Int("words", story.WordCount(loaded.Text)).
		Msg("Loaded story")
	return loaded, nil
}

func splitNames(s string) []string {
	var names []string
	for _, name := range strings.Split(s, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}

var categoryColors = map[story.VoiceCategory]*color.Color{
	story.Narrator: color.New(color.FgWhite),
	story.Hero:     color.New(color.FgCyan, color.Bold),
	story.Villain:  color.New(color.FgRed, color.Bold),
	story.Child:    color.New(color.FgYellow),
	story.Elder:    color.New(color.FgMagenta),
}

func handleParse(ctx context.Context, c *cli.Command) error {
	loaded, err := readStory(c.Args().First(), c.String("characters"))
	if err != nil {
		return err
	}

	segments := story.SegmentStory(loaded.Text, loaded.Characters)
	assignment := story.AssignVoices(loaded.Characters)

	if path := c.String("script"); path != "" {
		if err := os.WriteFile(path, []byte(story.Script(segments)), 0644); err != nil {
			return fmt.Errorf("failed to write script: %w", err)
		}
		log.Info().Str("path", path).Msg("Script saved")
	}

	if c.Bool("json") {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"segments": segments,
			"voices":   assignment,
			"speakers": story.SpeakerCounts(segments),
		})
	}

	if len(segments) == 0 {
		fmt.Println("No dialogue segments found")
		return nil
	}

	fmt.Println("Voices:")
	for _, name := range assignment.Characters() {
		p := assignment.Lookup(name)
		categoryColors[p.Category].Printf("  %-20s %s (pitch %.1f, rate %.2f)\n", name, p.Label, p.Pitch, p.Rate)
	}
	fmt.Println()

	for i, seg := range segments {
		p := assignment.Lookup(seg.Character)
		label := categoryColors[p.Category].Sprintf("%s:", seg.Character)
		fmt.Printf("%3d %s %s\n", i+1, label, seg.Text)
	}
	fmt.Fprintf(os.Stderr, "\n%d segments, %d characters\n", len(segments), assignment.Len())
	return nil
}

func mustCategory(name string) story.VoiceCategory {
	cat, err := story.ParseCategory(name)
	if err != nil {
		return story.Narrator
	}
	return cat
}

// progressPrinter reports build progress on one stderr line.
func progressPrinter(start time.Time) func(done, total int) {
	return func(done, total int) {
		fmt.Fprintf(os.Stderr, "\r🎙️  %d/%d segments (%s)", done, total, time.Since(start).Round(time.Second))
		if done == total {
			fmt.Fprintln(os.Stderr)
		}
	}
}
