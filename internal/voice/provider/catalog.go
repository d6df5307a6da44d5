package provider

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"
)

// LanguageLister is implemented by providers whose voice listing can be
// narrowed to one language on the vendor side.
type LanguageLister interface {
	ListVoicesByLanguage(ctx context.Context, languageCode string) ([]Voice, error)
}

// Catalog is the voice list a provider reported.
type Catalog struct {
	Provider string
	Voices   []Voice
	// Prebuilt is set when the vendor could not be reached and the built-in
	// list was returned instead.
	Prebuilt bool
}

// RemoteVoices lists the voices p offers. A non-empty language narrows the
// list, on the vendor side when p supports it and by prefix otherwise.
// ElevenLabs falls back to its prebuilt voices when the request fails for
// any reason other than credentials or quota.
func RemoteVoices(ctx context.Context, p Provider, language string) (Catalog, error) {
	catalog := Catalog{Provider: p.Name()}

	var voices []Voice
	var err error
	if lister, ok := p.(LanguageLister); ok && language != "" {
		voices, err = lister.ListVoicesByLanguage(ctx, language)
	} else {
		voices, err = p.ListVoices(ctx)
	}
	if err != nil {
		if p.Name() != "elevenlabs" || IsFatal(err) {
			return catalog, err
		}
		log.Warn().Err(err).Msg("ElevenLabs unreachable, using prebuilt voices")
		voices = GetPrebuiltVoices()
		catalog.Prebuilt = true
	}

	if _, ok := p.(LanguageLister); !ok || catalog.Prebuilt {
		voices = filterLanguage(voices, language)
	}
	catalog.Voices = voices
	return catalog, nil
}

// filterLanguage keeps voices whose language matches language or starts with
// it followed by a region ("en" matches "en-US"). Multilingual voices always
// match.
func filterLanguage(voices []Voice, language string) []Voice {
	language = strings.ToLower(strings.TrimSpace(language))
	if language == "" {
		return voices
	}
	var kept []Voice
	for _, v := range voices {
		l := strings.ToLower(v.Language)
		if l == language || l == "multilingual" || strings.HasPrefix(l, language+"-") || strings.HasPrefix(language, l+"-") {
			kept = append(kept, v)
		}
	}
	return kept
}
