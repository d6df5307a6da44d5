package config

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/daikw/storyvoice/internal/story"
	"github.com/daikw/storyvoice/internal/voice/provider"
)

// DefaultAddr is the HTTP listen address when nothing else is configured.
const DefaultAddr = ":8080"

// Playback holds the pacing used by the builder and the playback session.
type Playback struct {
	LocalPause   time.Duration
	HostedPause  time.Duration
	ErrorPause   time.Duration
	RequestDelay time.Duration
}

// DefaultPlayback returns the built-in pacing.
func DefaultPlayback() Playback {
	return Playback{
		LocalPause:   300 * time.Millisecond,
		HostedPause:  500 * time.Millisecond,
		ErrorPause:   100 * time.Millisecond,
		RequestDelay: 500 * time.Millisecond,
	}
}

// Resolved is the merged view of file, environment and CLI settings.
type Resolved struct {
	Provider       string
	ProviderConfig ProviderConfig
	Playback       Playback
	Story          StoryConfig
	Addr           string
}

// Resolve merges all configuration sources.
//
// Priority (highest → lowest):
//  1. cliProvider argument
//  2. fileConfig values
//  3. environment fallbacks (GROQ_API_KEY, STORYVOICE_ADDR)
//  4. built-in defaults
func Resolve(fileConfig *File, cliProvider string) Resolved {
	r := Resolved{
		Provider: fileConfig.GetEffectiveProvider(strings.ToLower(cliProvider)),
		Playback: DefaultPlayback(),
		Addr:     DefaultAddr,
	}

	if fileConfig != nil {
		if pc := fileConfig.GetProviderConfig(r.Provider); pc != nil {
			r.ProviderConfig = *pc
		}
		if fileConfig.Story != nil {
			r.Story = *fileConfig.Story
		}
		if p := fileConfig.Playback; p != nil {
			applyMillis(&r.Playback.LocalPause, p.LocalPauseMs)
			applyMillis(&r.Playback.HostedPause, p.HostedPauseMs)
			applyMillis(&r.Playback.ErrorPause, p.ErrorPauseMs)
			applyMillis(&r.Playback.RequestDelay, p.RequestDelayMs)
		}
		if fileConfig.Server != nil && fileConfig.Server.Addr != "" {
			r.Addr = fileConfig.Server.Addr
		}
	}

	if r.Story.APIKey == "" {
		r.Story.APIKey = os.Getenv("GROQ_API_KEY")
	}
	if (fileConfig == nil || fileConfig.Server == nil || fileConfig.Server.Addr == "") && os.Getenv("STORYVOICE_ADDR") != "" {
		r.Addr = os.Getenv("STORYVOICE_ADDR")
	}

	log.Debug().
		Str("provider", r.Provider).
		Dur("hosted_pause", r.Playback.HostedPause).
		Dur("request_delay", r.Playback.RequestDelay).
		Str("addr", r.Addr).
		Msg("Resolved config")

	return r
}

func applyMillis(dst *time.Duration, ms int) {
	if ms > 0 {
		*dst = time.Duration(ms) * time.Millisecond
	}
}

// IsLocal reports whether synthesis runs on the device speech engine.
func (r Resolved) IsLocal() bool {
	return r.Provider == ProviderLocal
}

// Settings returns the provider construction settings.
func (r Resolved) Settings() provider.Settings {
	pc := r.ProviderConfig
	return provider.Settings{
		APIKey:    pc.APIKey,
		BaseURL:   pc.BaseURL,
		Region:    pc.Region,
		Language:  pc.Language,
		Engine:    pc.Engine,
		ProjectID: pc.ProjectID,
	}
}

// SynthesizeOptions returns the per-request defaults for the provider. The
// voice is left empty and filled per segment.
func (r Resolved) SynthesizeOptions() provider.SynthesizeOptions {
	pc := r.ProviderConfig
	return provider.SynthesizeOptions{
		Model:           pc.Model,
		Format:          pc.Format,
		Speed:           pc.Speed,
		Stability:       pc.Stability,
		SimilarityBoost: pc.SimilarityBoost,
		Style:           pc.Style,
		UseSpeakerBoost: pc.UseSpeakerBoost,
		Engine:          pc.Engine,
		SampleRate:      pc.SampleRate,
		Language:        pc.Language,
	}
}

// VoiceOverrides returns the configured vendor voice per category. Unknown
// category names are ignored; Validate reports them.
func (r Resolved) VoiceOverrides() map[story.VoiceCategory]string {
	out := make(map[story.VoiceCategory]string, len(r.ProviderConfig.Voices))
	for name, voiceID := range r.ProviderConfig.Voices {
		c, err := story.ParseCategory(name)
		if err != nil || voiceID == "" {
			continue
		}
		out[c] = voiceID
	}
	return out
}
