package voice

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
)

// playerCommand is an installed audio player and the formats it handles.
type playerCommand struct {
	name    string
	args    []string
	formats []string
}

// players in detection order. afplay and ffplay handle anything.
var players = []playerCommand{
	{name: "afplay"},
	{name: "ffplay", args: []string{"-nodisp", "-autoexit", "-loglevel", "quiet"}},
	{name: "mpg123", args: []string{"-q"}, formats: []string{"mp3"}},
	{name: "aplay", formats: []string{"wav"}},
	{name: "paplay", formats: []string{"wav", "ogg"}},
}

func (p playerCommand) supports(format string) bool {
	if len(p.formats) == 0 {
		return true
	}
	for _, f := range p.formats {
		if f == format {
			return true
		}
	}
	return false
}

// Player plays encoded audio through an external player command and
// blocks until playback ends.
type Player struct {
	available func(string) bool
	run       runFunc
}

// NewPlayer creates a player using the commands installed on PATH
func NewPlayer() *Player {
	return &Player{available: isCommandAvailable, run: execRun}
}

// Play writes audio to a temporary file and plays it.
func (p *Player) Play(ctx context.Context, audio []byte, format string) error {
	format = strings.ToLower(strings.TrimPrefix(format, "."))
	if format == "" {
		format = "mp3"
	}

	cmd, ok := p.selectPlayer(format)
	if !ok {
		return ErrNoPlayer
	}

	tmpFile, err := os.CreateTemp("", "storyvoice-*."+format)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmpFile.Name())

	if _, err := tmpFile.Write(audio); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("failed to save audio: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to save audio: %w", err)
	}

	args := append(append([]string{}, cmd.args...), tmpFile.Name())
	log.Debug().Str("player", cmd.name).Int("bytes", len(audio)).Msg("Playing audio")

	if _, err := p.run(ctx, "", cmd.name, args...); err != nil {
		return fmt.Errorf("failed to play audio: %w", err)
	}
	return nil
}

func (p *Player) selectPlayer(format string) (playerCommand, bool) {
	for _, cmd := range players {
		if cmd.supports(format) && p.available(cmd.name) {
			return cmd, true
		}
	}
	return playerCommand{}, false
}
