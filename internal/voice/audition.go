package voice

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/daikw/storyvoice/internal/story"
)

// neutralProfile speaks at the engine's base pitch, rate and volume.
var neutralProfile = story.VoiceProfile{Label: "Voice", Pitch: 1.0, Rate: 1.0, Volume: 1.0}

// CategoryVoice is the device voice a category resolves to on this engine.
type CategoryVoice struct {
	Profile story.VoiceProfile
	Voice   DeviceVoice
	// Found is false when the inventory is empty and the engine default
	// voice is used.
	Found bool
}

// CategoryLine is the sentence spoken when auditioning a category.
func CategoryLine(c story.VoiceCategory) string {
	return fmt.Sprintf("I am the %s. Listen to my unique voice settings.", story.Profile(c).Label)
}

// VoiceLine is the sentence spoken when auditioning one device voice.
func VoiceLine(v DeviceVoice) string {
	return fmt.Sprintf("Hello, I am %s. This is how I sound.", v.Name)
}

// CategoryVoices reports the device voice each category selects, in table
// order. Categories are looked up under their label as character name.
func (e *LocalEngine) CategoryVoices(ctx context.Context) ([]CategoryVoice, error) {
	voices, err := e.Voices(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]CategoryVoice, 0, len(story.Categories()))
	for _, p := range story.Profiles() {
		v, ok := SelectDeviceVoice(voices, p.DeviceVoice, p.Label)
		out = append(out, CategoryVoice{Profile: p, Voice: v, Found: ok})
	}
	return out, nil
}

// AuditionCategory speaks the category's test line with its profile.
func (e *LocalEngine) AuditionCategory(ctx context.Context, c story.VoiceCategory) error {
	p := story.Profile(c)
	log.Debug().Str("category", p.Label).Msg("Auditioning category voice")
	return e.Speak(ctx, p.Label, CategoryLine(c), p)
}

// AuditionVoice speaks v's test line with neutral pitch, rate and volume.
func (e *LocalEngine) AuditionVoice(ctx context.Context, v DeviceVoice) error {
	args := e.Args(neutralProfile, v.ID)
	log.Debug().Str("engine", e.command).Str("voice", v.ID).Strs("args", args).Msg("Auditioning device voice")

	if _, err := e.run(ctx, VoiceLine(v), e.command, args...); err != nil {
		return fmt.Errorf("speech synthesis failed: %w", err)
	}
	return nil
}

// Audition speaks the test line for target: "all" for every category in
// table order, a category name, or a device voice name or ID. announce, when
// set, receives each line before it is spoken.
func (e *LocalEngine) Audition(ctx context.Context, target string, announce func(line string)) error {
	say := func(line string) {
		if announce != nil {
			announce(line)
		}
	}

	if strings.EqualFold(target, "all") {
		for _, c := range story.Categories() {
			say(CategoryLine(c))
			if err := e.AuditionCategory(ctx, c); err != nil {
				return err
			}
		}
		return nil
	}

	if c, err := story.ParseCategory(target); err == nil {
		say(CategoryLine(c))
		return e.AuditionCategory(ctx, c)
	}

	voices, err := e.Voices(ctx)
	if err != nil {
		return err
	}
	for _, v := range voices {
		if strings.EqualFold(v.Name, target) || strings.EqualFold(v.ID, target) {
			say(VoiceLine(v))
			return e.AuditionVoice(ctx, v)
		}
	}
	return fmt.Errorf("unknown category or device voice: %s", target)
}
