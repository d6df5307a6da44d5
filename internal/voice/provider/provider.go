// Package provider contains hosted text-to-speech clients behind a common
// Provider interface.
package provider

import (
	"context"
	"io"
)

// Provider defines the interface for hosted TTS providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// ListVoices returns available voices for this provider
	ListVoices(ctx context.Context) ([]Voice, error)

	// Synthesize generates audio from text and returns an audio stream
	Synthesize(ctx context.Context, text string, options SynthesizeOptions) (io.ReadCloser, error)

	// IsAvailable checks if the provider can be used
	IsAvailable(ctx context.Context) bool
}

// Voice represents a voice option
type Voice struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Language    string `json:"language"`
	Gender      string `json:"gender,omitempty"`
	Description string `json:"description,omitempty"`
}

// SynthesizeOptions contains per-request synthesis options
type SynthesizeOptions struct {
	Voice    string  `json:"voice"`
	Speed    float64 `json:"speed,omitempty"`    // Speed multiplier (0.25-4.0)
	Format   string  `json:"format,omitempty"`   // Output format (mp3, wav, etc.)
	Language string  `json:"language,omitempty"` // Language code
	Model    string  `json:"model,omitempty"`

	// ElevenLabs voice settings
	Stability       float64 `json:"stability,omitempty"`
	SimilarityBoost float64 `json:"similarityBoost,omitempty"`
	Style           float64 `json:"style,omitempty"`
	UseSpeakerBoost *bool   `json:"useSpeakerBoost,omitempty"` // nil keeps the provider default

	// Polly / GCP
	Engine     string `json:"engine,omitempty"`
	SampleRate string `json:"sampleRate,omitempty"`
}

// Settings configures a provider instance. Zero values select defaults.
type Settings struct {
	APIKey    string
	BaseURL   string
	Region    string
	Voice     string
	Language  string
	Engine    string
	ProjectID string
}
