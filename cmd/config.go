package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/urfave/cli/v3"

	"github.com/daikw/storyvoice/internal/config"
	"github.com/daikw/storyvoice/internal/voice"
)

func configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Inspect and validate configuration",
		Commands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Show the loaded config with secrets masked",
				Action: handleConfigShow,
			},
			{
				Name:   "example",
				Usage:  "Print an example config file",
				Action: handleConfigExample,
			},
			{
				Name:   "validate",
				Usage:  "Validate the config file and check the voice back-end",
				Action: handleConfigValidate,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "offline",
						Usage: "Skip the provider availability check",
					},
				},
			},
		},
	}
}

func handleConfigShow(ctx context.Context, c *cli.Command) error {
	file, err := loadConfigFile(c)
	if err != nil {
		return err
	}
	if file == nil {
		fmt.Println("No config file found. Create one with 'storyvoice config example > .storyvoice/config.json'")
		return nil
	}

	data, err := json.MarshalIndent(file.MaskSecrets(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	fmt.Println(string(data))

	resolved := config.Resolve(file, c.String("provider"))
	fmt.Fprintf(os.Stderr, "\nEffective provider: %s, listen address: %s\n", resolved.Provider, resolved.Addr)
	return nil
}

func handleConfigExample(ctx context.Context, c *cli.Command) error {
	fmt.Println(config.GenerateExampleConfig())
	return nil
}

func handleConfigValidate(ctx context.Context, c *cli.Command) error {
	file, err := loadConfigFile(c)
	if err != nil {
		return err
	}
	if file == nil {
		return fmt.Errorf("no config file found")
	}

	problems := file.Validate()
	if len(problems) == 0 {
		color.Green("✅ Config is valid")
	}
	for _, p := range problems {
		color.Red("❌ %s", p)
	}

	if !c.Bool("offline") {
		if problem := checkBackend(ctx, config.Resolve(file, c.String("provider"))); problem != "" {
			problems = append(problems, problem)
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("config has %d problems", len(problems))
	}
	return nil
}

// checkBackend reports whether the resolved voice back-end can be used and
// returns a problem description when it cannot.
func checkBackend(ctx context.Context, cfg config.Resolved) string {
	if cfg.IsLocal() {
		engine, err := voice.DetectLocalEngine()
		if err != nil {
			color.Yellow("⚠️  No device speech engine found (install say or espeak-ng)")
			return ""
		}
		color.Green("✅ Device speech engine: %s", engine.Name())
		return ""
	}

	p, closeProvider, err := newProvider(ctx, cfg)
	if err != nil {
		problem := fmt.Sprintf("%s: %v", cfg.Provider, err)
		color.Red("❌ %s", problem)
		return problem
	}
	defer closeProvider()

	if !checkProvider(ctx, p) {
		problem := fmt.Sprintf("%s: provider is not reachable with the configured credentials", cfg.Provider)
		color.Red("❌ %s", problem)
		return problem
	}
	color.Green("✅ Provider %s is available", cfg.Provider)
	return ""
}
