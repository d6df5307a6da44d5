package provider

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// GCPClient is the slice of the Text-to-Speech API the provider calls
type GCPClient interface {
	ListVoices(ctx context.Context, req *texttospeechpb.ListVoicesRequest) (*texttospeechpb.ListVoicesResponse, error)
	SynthesizeSpeech(ctx context.Context, req *texttospeechpb.SynthesizeSpeechRequest) (*texttospeechpb.SynthesizeSpeechResponse, error)
	Close() error
}

// gcpSDKClient adapts the generated client, whose methods take gax options
type gcpSDKClient struct {
	c *texttospeech.Client
}

func (a gcpSDKClient) ListVoices(ctx context.Context, req *texttospeechpb.ListVoicesRequest) (*texttospeechpb.ListVoicesResponse, error) {
	return a.c.ListVoices(ctx, req)
}

func (a gcpSDKClient) SynthesizeSpeech(ctx context.Context, req *texttospeechpb.SynthesizeSpeechRequest) (*texttospeechpb.SynthesizeSpeechResponse, error) {
	return a.c.SynthesizeSpeech(ctx, req)
}

func (a gcpSDKClient) Close() error {
	return a.c.Close()
}

// GCPProvider implements the Provider interface for Google Cloud Text-to-Speech
type GCPProvider struct {
	client    GCPClient
	projectID string
	region    string
	voice     string
	language  string
	engine    string // standard, wavenet, neural2, studio
}

// GCPProviderOption is a functional option for configuring GCPProvider
type GCPProviderOption func(*GCPProvider)

// WithGCPProjectID sets the Google Cloud project ID
func WithGCPProjectID(projectID string) GCPProviderOption {
	return func(p *GCPProvider) {
		p.projectID = projectID
	}
}

// WithGCPRegion sets the region for the GCP client
func WithGCPRegion(region string) GCPProviderOption {
	return func(p *GCPProvider) {
		p.region = region
	}
}

// WithGCPVoice sets the default voice
func WithGCPVoice(voice string) GCPProviderOption {
	return func(p *GCPProvider) {
		p.voice = voice
	}
}

// WithGCPLanguage sets the default language code
func WithGCPLanguage(language string) GCPProviderOption {
	return func(p *GCPProvider) {
		p.language = language
	}
}

// WithGCPEngine sets the voice engine type
func WithGCPEngine(engine string) GCPProviderOption {
	return func(p *GCPProvider) {
		p.engine = engine
	}
}

// NewGCPProvider creates a new Google Cloud TTS provider.
// Credentials come from GOOGLE_APPLICATION_CREDENTIALS or ADC. A region
// selects the regional endpoint and a project ID is billed as quota project.
func NewGCPProvider(ctx context.Context, opts ...GCPProviderOption) (*GCPProvider, error) {
	p := NewGCPProviderWithClient(nil, opts...)

	var clientOpts []option.ClientOption
	if p.region != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(fmt.Sprintf("%s-texttospeech.googleapis.com:443", p.region)))
	}
	if p.projectID != "" {
		clientOpts = append(clientOpts, option.WithQuotaProject(p.projectID))
	}

	client, err := texttospeech.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCP TTS client: %w", err)
	}
	p.client = gcpSDKClient{c: client}

	log.Debug().
		Str("region", p.region).
		Str("voice", p.voice).
		Str("engine", p.engine).
		Msg("Created GCP TTS client")

	return p, nil
}

// NewGCPProviderWithClient wraps an existing client
func NewGCPProviderWithClient(client GCPClient, opts ...GCPProviderOption) *GCPProvider {
	p := &GCPProvider{
		client:   client,
		voice:    "en-US-Neural2-D",
		language: "en-US",
		engine:   "neural2",
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Name returns the provider name
func (p *GCPProvider) Name() string {
	return "gcp"
}

// ListVoices returns available voices from Google Cloud TTS
func (p *GCPProvider) ListVoices(ctx context.Context) ([]Voice, error) {
	return p.ListVoicesByLanguage(ctx, "")
}

// ListVoicesByLanguage returns voices for one BCP-47 language code, or all
// voices when languageCode is empty. Voices serving several languages are
// listed once per language.
func (p *GCPProvider) ListVoicesByLanguage(ctx context.Context, languageCode string) ([]Voice, error) {
	resp, err := p.client.ListVoices(ctx, &texttospeechpb.ListVoicesRequest{LanguageCode: languageCode})
	if err != nil {
		return nil, fmt.Errorf("failed to list GCP voices: %w", gcpError(err))
	}

	var voices []Voice
	for _, v := range resp.Voices {
		for _, langCode := range v.LanguageCodes {
			gender := "unknown"
			switch v.SsmlGender {
			case texttospeechpb.SsmlVoiceGender_MALE:
				gender = "male"
			case texttospeechpb.SsmlVoiceGender_FEMALE:
				gender = "female"
			case texttospeechpb.SsmlVoiceGender_NEUTRAL:
				gender = "neutral"
			}

			engineType := p.detectEngineType(v.Name)

			voices = append(voices, Voice{
				ID:          v.Name,
				Name:        v.Name,
				Language:    langCode,
				Gender:      gender,
				Description: fmt.Sprintf("%s voice (%s)", engineType, strings.Join(v.LanguageCodes, ", ")),
			})
		}
	}

	log.Debug().Int("count", len(voices)).Msg("Listed GCP TTS voices")
	return voices, nil
}

// detectEngineType determines the engine type from voice name
func (p *GCPProvider) detectEngineType(voiceName string) string {
	name := strings.ToLower(voiceName)
	switch {
	case strings.Contains(name, "wavenet"):
		return "WaveNet"
	case strings.Contains(name, "neural2"):
		return "Neural2"
	case strings.Contains(name, "studio"):
		return "Studio"
	case strings.Contains(name, "polyglot"):
		return "Polyglot"
	case strings.Contains(name, "news"):
		return "News"
	case strings.Contains(name, "casual"):
		return "Casual"
	default:
		return "Standard"
	}
}

// Synthesize generates audio from text using Google Cloud TTS
func (p *GCPProvider) Synthesize(ctx context.Context, text string, options SynthesizeOptions) (io.ReadCloser, error) {
	if text == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	voice := p.voice
	if options.Voice != "" {
		voice = options.Voice
	}

	// Determine language from voice name or options
	language := p.language
	if options.Language != "" {
		language = options.Language
	} else if voice != "" {
		// Extract language from voice name (e.g., ja-JP-Neural2-B -> ja-JP)
		parts := strings.Split(voice, "-")
		if len(parts) >= 2 {
			language = parts[0] + "-" + parts[1]
		}
	}

	// Build synthesis input (detect SSML)
	var input *texttospeechpb.SynthesisInput
	if isSSML(text) {
		input = &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Ssml{
				Ssml: text,
			},
		}
		log.Debug().Msg("Using SSML input for GCP TTS")
	} else {
		input = &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{
				Text: text,
			},
		}
	}

	voiceSelection := &texttospeechpb.VoiceSelectionParams{
		LanguageCode: language,
		Name:         voice,
	}

	audioConfig := &texttospeechpb.AudioConfig{
		AudioEncoding:   p.getAudioEncoding(options.Format),
		SpeakingRate:    p.getSpeakingRate(options.Speed),
		SampleRateHertz: p.getSampleRate(options.SampleRate),
	}

	log.Debug().
		Str("voice", voice).
		Str("language", language).
		Str("format", options.Format).
		Float64("speed", options.Speed).
		Msg("Making GCP TTS synthesis request")

	resp, err := p.client.SynthesizeSpeech(ctx, &texttospeechpb.SynthesizeSpeechRequest{
		Input:       input,
		Voice:       voiceSelection,
		AudioConfig: audioConfig,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to synthesize speech: %w", gcpError(err))
	}

	log.Debug().
		Int("audio_bytes", len(resp.AudioContent)).
		Msg("GCP TTS synthesis successful")

	return io.NopCloser(bytes.NewReader(resp.AudioContent)), nil
}

// isSSML checks if the text contains SSML tags
func isSSML(text string) bool {
	trimmed := strings.TrimSpace(text)
	return strings.HasPrefix(trimmed, "<speak") ||
		strings.Contains(trimmed, "<prosody") ||
		strings.Contains(trimmed, "<break") ||
		strings.Contains(trimmed, "<emphasis")
}

// getAudioEncoding converts format string to GCP audio encoding
func (p *GCPProvider) getAudioEncoding(format string) texttospeechpb.AudioEncoding {
	switch strings.ToLower(format) {
	case "mp3":
		return texttospeechpb.AudioEncoding_MP3
	case "wav", "linear16":
		return texttospeechpb.AudioEncoding_LINEAR16
	case "ogg", "ogg_opus":
		return texttospeechpb.AudioEncoding_OGG_OPUS
	case "mulaw":
		return texttospeechpb.AudioEncoding_MULAW
	case "alaw":
		return texttospeechpb.AudioEncoding_ALAW
	default:
		return texttospeechpb.AudioEncoding_MP3
	}
}

// getSpeakingRate converts speed to GCP speaking rate (0.25 to 4.0)
func (p *GCPProvider) getSpeakingRate(speed float64) float64 {
	if speed <= 0 {
		return 1.0
	}
	if speed < 0.25 {
		return 0.25
	}
	if speed > 4.0 {
		return 4.0
	}
	return speed
}

// getSampleRate returns the sample rate in Hz
func (p *GCPProvider) getSampleRate(sampleRate string) int32 {
	switch sampleRate {
	case "8000":
		return 8000
	case "16000":
		return 16000
	case "22050":
		return 22050
	case "24000":
		return 24000
	case "32000":
		return 32000
	case "44100":
		return 44100
	case "48000":
		return 48000
	default:
		return 0 // Use default
	}
}

// IsAvailable checks if the GCP TTS service is available
func (p *GCPProvider) IsAvailable(ctx context.Context) bool {
	// Try to list voices as a health check
	_, err := p.client.ListVoices(ctx, &texttospeechpb.ListVoicesRequest{})
	return err == nil
}

// Close closes the GCP client
func (p *GCPProvider) Close() error {
	if p.client != nil {
		return p.client.Close()
	}
	return nil
}

// GCPProviderFromSettings creates a GCPProvider from settings
func GCPProviderFromSettings(ctx context.Context, settings Settings) (*GCPProvider, error) {
	var opts []GCPProviderOption

	if settings.ProjectID != "" {
		opts = append(opts, WithGCPProjectID(settings.ProjectID))
	}
	if settings.Region != "" {
		opts = append(opts, WithGCPRegion(settings.Region))
	}
	if settings.Voice != "" {
		opts = append(opts, WithGCPVoice(settings.Voice))
	}
	if settings.Language != "" {
		opts = append(opts, WithGCPLanguage(settings.Language))
	}
	if settings.Engine != "" {
		opts = append(opts, WithGCPEngine(settings.Engine))
	}

	return NewGCPProvider(ctx, opts...)
}

// gcpError maps auth and quota gRPC codes onto StatusError so callers can
// treat every provider alike.
func gcpError(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}

	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return &StatusError{Provider: "GCP", StatusCode: http.StatusUnauthorized, Message: st.Message()}
	case codes.ResourceExhausted:
		return &StatusError{Provider: "GCP", StatusCode: http.StatusTooManyRequests, Message: st.Message()}
	}
	return err
}
