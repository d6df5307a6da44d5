package voice

import (
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/daikw/storyvoice/internal/story"
)

// SelectDeviceVoice picks the device voice for character. English voices
// are preferred when any exist. A voice whose name contains preferred wins;
// otherwise characters are spread over the pool by CharacterIndex. It
// reports false only for an empty inventory.
func SelectDeviceVoice(voices []DeviceVoice, preferred, character string) (DeviceVoice, bool) {
	pool := englishVoices(voices)
	if len(pool) == 0 {
		pool = voices
	}
	if len(pool) == 0 {
		log.Warn().Str("character", character).Msg("No voices available")
		return DeviceVoice{}, false
	}

	if preferred != "" {
		want := strings.ToLower(preferred)
		for _, v := range pool {
			if strings.Contains(strings.ToLower(v.Name), want) {
				log.Debug().Str("character", character).Str("voice", v.Name).Msg("Found preferred voice")
				return v, true
			}
		}
	}

	// a single voice is shared; pitch and rate keep the characters apart
	if len(pool) == 1 {
		return pool[0], true
	}

	idx := story.CharacterIndex(character)
	v := pool[idx%len(pool)]
	log.Debug().Str("character", character).Str("voice", v.Name).Int("index", idx).Msg("Assigned device voice")
	return v, true
}

func englishVoices(voices []DeviceVoice) []DeviceVoice {
	var out []DeviceVoice
	for _, v := range voices {
		if strings.HasPrefix(v.Language, "en") {
			out = append(out, v)
		}
	}
	return out
}
