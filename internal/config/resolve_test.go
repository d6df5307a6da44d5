package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daikw/storyvoice/internal/story"
)

func TestResolve_Defaults(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "")
	t.Setenv("STORYVOICE_ADDR", "")

	r := Resolve(nil, "")

	assert.Equal(t, ProviderElevenLabs, r.Provider)
	assert.Equal(t, DefaultPlayback(), r.Playback)
	assert.Equal(t, 300*time.Millisecond, r.Playback.LocalPause)
	assert.Equal(t, 500*time.Millisecond, r.Playback.HostedPause)
	assert.Equal(t, 100*time.Millisecond, r.Playback.ErrorPause)
	assert.Equal(t, 500*time.Millisecond, r.Playback.RequestDelay)
	assert.Equal(t, DefaultAddr, r.Addr)
	assert.Empty(t, r.Story.APIKey)
	assert.False(t, r.IsLocal())
}

func TestResolve_FileConfig(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "gsk-env")
	t.Setenv("STORYVOICE_ADDR", ":7070")

	boost := false
	fileConfig := &File{
		DefaultProvider: "openai",
		Story:           &StoryConfig{Model: "llama-custom"},
		Playback:        &PlaybackConfig{HostedPauseMs: 750, RequestDelayMs: 0},
		Providers: map[string]ProviderConfig{
			"openai": {
				APIKey:          "sk-file",
				Model:           "tts-1-hd",
				Speed:           1.25,
				UseSpeakerBoost: &boost,
				Voices:          map[string]string{"narrator": "echo", "bogus": "x", "hero": ""},
			},
		},
		Server: &ServerConfig{Addr: ":9090"},
	}

	r := Resolve(fileConfig, "")

	assert.Equal(t, "openai", r.Provider)
	assert.Equal(t, "sk-file", r.Settings().APIKey)
	assert.Equal(t, 750*time.Millisecond, r.Playback.HostedPause)
	assert.Equal(t, 500*time.Millisecond, r.Playback.RequestDelay)
	assert.Equal(t, "llama-custom", r.Story.Model)
	assert.Equal(t, "gsk-env", r.Story.APIKey)
	assert.Equal(t, ":9090", r.Addr)

	opts := r.SynthesizeOptions()
	assert.Equal(t, "tts-1-hd", opts.Model)
	assert.Equal(t, 1.25, opts.Speed)
	require.NotNil(t, opts.UseSpeakerBoost)
	assert.False(t, *opts.UseSpeakerBoost)
	assert.Empty(t, opts.Voice)

	assert.Equal(t, map[story.VoiceCategory]string{story.Narrator: "echo"}, r.VoiceOverrides())
}

func TestResolve_CLIProviderWins(t *testing.T) {
	fileConfig := &File{
		DefaultProvider: "openai",
		Providers: map[string]ProviderConfig{
			"openai": {APIKey: "sk-file"},
			"polly":  {Region: "eu-west-1", Engine: "standard"},
		},
	}

	r := Resolve(fileConfig, "Polly")

	assert.Equal(t, "polly", r.Provider)
	settings := r.Settings()
	assert.Empty(t, settings.APIKey)
	assert.Equal(t, "eu-west-1", settings.Region)
	assert.Equal(t, "standard", settings.Engine)
}

func TestResolve_EnvAddr(t *testing.T) {
	t.Setenv("STORYVOICE_ADDR", "127.0.0.1:8181")

	r := Resolve(&File{}, "")
	assert.Equal(t, "127.0.0.1:8181", r.Addr)
}

func TestResolve_StoryKeyFromFileWins(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "gsk-env")

	r := Resolve(&File{Story: &StoryConfig{APIKey: "gsk-file"}}, "")
	assert.Equal(t, "gsk-file", r.Story.APIKey)
}

func TestResolve_Local(t *testing.T) {
	r := Resolve(&File{DefaultProvider: ProviderLocal}, "")
	assert.True(t, r.IsLocal())
}
