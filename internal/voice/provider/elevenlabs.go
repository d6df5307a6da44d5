package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	ElevenLabsBaseURL        = "https://api.elevenlabs.io/v1"
	ElevenLabsTTSEndpoint    = "/text-to-speech"
	ElevenLabsVoicesEndpoint = "/voices"
)

const (
	// ElevenLabsDefaultModel is the model used when a request names none.
	ElevenLabsDefaultModel = "eleven_monolingual_v1"
	// ElevenLabsDefaultVoice is Adam, the narrator voice.
	ElevenLabsDefaultVoice = "pNInz6obpgDQGcFmaJgB"
)

// ElevenLabsProvider implements the Provider interface for ElevenLabs TTS API v1
type ElevenLabsProvider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewElevenLabsProvider creates a new ElevenLabs TTS provider
func NewElevenLabsProvider(apiKey string) *ElevenLabsProvider {
	return &ElevenLabsProvider{
		apiKey:  apiKey,
		baseURL: ElevenLabsBaseURL,
		httpClient: &http.Client{
			Timeout: 60 * time.Second, // ElevenLabs can be slower than OpenAI
		},
	}
}

// Name returns the provider name
func (p *ElevenLabsProvider) Name() string {
	return "elevenlabs"
}

// ElevenLabsVoice is the subset of the voices payload we read.
type ElevenLabsVoice struct {
	VoiceID         string            `json:"voice_id"`
	Name            string            `json:"name"`
	Category        string            `json:"category"`
	Labels          map[string]string `json:"labels"`
	Description     string            `json:"description"`
	AvailableForTts *bool             `json:"available_for_tts"`
	FineTuning      struct {
		Language string `json:"language"`
	} `json:"fine_tuning"`
}

// VoiceSettings is the per-request voice tuning block.
type VoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
}

// ElevenLabsVoicesResponse represents the response from voices API
type ElevenLabsVoicesResponse struct {
	Voices []ElevenLabsVoice `json:"voices"`
}

// ListVoices returns voices usable for synthesis on this account
func (p *ElevenLabsProvider) ListVoices(ctx context.Context) ([]Voice, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+ElevenLabsVoicesEndpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create voices request: %w", err)
	}
	req.Header.Set("xi-api-key", p.apiKey)

	log.Debug().
		Str("endpoint", p.baseURL+ElevenLabsVoicesEndpoint).
		Msg("Making ElevenLabs voices request")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make voices request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, elevenLabsStatusError(resp)
	}

	var voicesResp ElevenLabsVoicesResponse
	if err := json.NewDecoder(resp.Body).Decode(&voicesResp); err != nil {
		return nil, fmt.Errorf("failed to decode voices response: %w", err)
	}

	voices := make([]Voice, 0, len(voicesResp.Voices))
	for _, v := range voicesResp.Voices {
		// older accounts omit the flag entirely
		if v.AvailableForTts != nil && !*v.AvailableForTts {
			continue
		}

		language := "multilingual"
		switch {
		case v.Labels["language"] != "":
			language = v.Labels["language"]
		case v.FineTuning.Language != "":
			language = v.FineTuning.Language
		}

		voices = append(voices, Voice{
			ID:          v.VoiceID,
			Name:        v.Name,
			Language:    language,
			Gender:      v.Labels["gender"],
			Description: v.Description,
		})
	}

	log.Debug().
		Int("voice_count", len(voices)).
		Msg("ElevenLabs voices retrieved")

	return voices, nil
}

// ElevenLabsTTSRequest represents the request body for TTS synthesis.
// The output format travels as a query parameter.
type ElevenLabsTTSRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id,omitempty"`
	VoiceSettings VoiceSettings `json:"voice_settings"`
}

// Synthesize generates audio from text using ElevenLabs TTS API
func (p *ElevenLabsProvider) Synthesize(ctx context.Context, text string, options SynthesizeOptions) (io.ReadCloser, error) {
	if text == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	// Set defaults
	voice := options.Voice
	if voice == "" {
		voice = ElevenLabsDefaultVoice
	}

	model := options.Model
	if model == "" {
		model = ElevenLabsDefaultModel
	}

	format := options.Format
	if format == "" {
		format = "mp3"
	}

	// Convert format to ElevenLabs format
	outputFormat := convertToElevenLabsFormat(format)

	voiceSettings := VoiceSettings{
		Stability:       0.5,
		SimilarityBoost: 0.5,
		Style:           0.0,
		UseSpeakerBoost: true,
	}

	if options.Stability > 0 {
		voiceSettings.Stability = options.Stability
	}
	if options.SimilarityBoost > 0 {
		voiceSettings.SimilarityBoost = options.SimilarityBoost
	}
	if options.Style > 0 {
		voiceSettings.Style = options.Style
	}
	if options.UseSpeakerBoost != nil {
		voiceSettings.UseSpeakerBoost = *options.UseSpeakerBoost
	}

	requestBody := ElevenLabsTTSRequest{
		Text:          text,
		ModelID:       model,
		VoiceSettings: voiceSettings,
	}

	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	// Create HTTP request
	endpoint := fmt.Sprintf("%s%s/%s?output_format=%s", p.baseURL, ElevenLabsTTSEndpoint, url.PathEscape(voice), url.QueryEscape(outputFormat))
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// Set headers
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("xi-api-key", p.apiKey)

	log.Debug().
		Str("endpoint", endpoint).
		Str("voice", voice).
		Str("model", model).
		Str("format", outputFormat).
		Msg("Making ElevenLabs TTS request")

	// Make request
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, elevenLabsStatusError(resp)
	}

	log.Debug().
		Int("status", resp.StatusCode).
		Str("content_type", resp.Header.Get("Content-Type")).
		Msg("ElevenLabs TTS request successful")

	return resp.Body, nil
}

// IsAvailable checks if ElevenLabs provider is available
func (p *ElevenLabsProvider) IsAvailable(ctx context.Context) bool {
	if p.apiKey == "" {
		return false
	}

	// Test by listing voices (minimal request)
	req, err := http.NewRequestWithContext(ctx, "GET", p.baseURL+ElevenLabsVoicesEndpoint, nil)
	if err != nil {
		return false
	}

	req.Header.Set("xi-api-key", p.apiKey)

	// Use a shorter timeout for availability check
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

// ElevenLabsProviderFromSettings creates an ElevenLabs provider from settings
func ElevenLabsProviderFromSettings(settings Settings) (*ElevenLabsProvider, error) {
	if settings.APIKey == "" {
		return nil, fmt.Errorf("api key is required for ElevenLabs provider")
	}

	provider := NewElevenLabsProvider(settings.APIKey)
	if settings.BaseURL != "" {
		provider.baseURL = strings.TrimSuffix(settings.BaseURL, "/")
	}

	return provider, nil
}

// elevenLabsStatusError reads an error body into a StatusError, preferring
// the vendor's detail message when one is present.
func elevenLabsStatusError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)
	msg := strings.TrimSpace(string(body))

	var errorResp ElevenLabsError
	if json.Unmarshal(body, &errorResp) == nil && errorResp.Detail != nil {
		msg = errorResp.Message()
	}

	return &StatusError{Provider: "ElevenLabs", StatusCode: resp.StatusCode, Message: msg}
}

// convertToElevenLabsFormat converts common format names to ElevenLabs format names
func convertToElevenLabsFormat(format string) string {
	format = strings.ToLower(format)
	switch format {
	case "mp3", "mpeg":
		return "mp3_44100_128"
	case "wav", "wave":
		return "pcm_44100"
	case "ogg":
		return "ulaw_8000"
	case "flac":
		return "pcm_44100" // ElevenLabs doesn't support FLAC directly, use PCM
	case "aac":
		return "mp3_44100_128" // ElevenLabs doesn't support AAC directly, use MP3
	default:
		return "mp3_44100_128" // Default to MP3
	}
}

// ElevenLabsError represents an error from ElevenLabs API
type ElevenLabsError struct {
	Detail interface{} `json:"detail"`
}

// Message extracts the human-readable part of the detail payload.
func (e ElevenLabsError) Message() string {
	switch detail := e.Detail.(type) {
	case string:
		return detail
	case map[string]interface{}:
		if msg, ok := detail["message"].(string); ok {
			return msg
		}
		if status, ok := detail["status"].(string); ok {
			return status
		}
	case []interface{}:
		if len(detail) > 0 {
			if firstError, ok := detail[0].(map[string]interface{}); ok {
				if msg, ok := firstError["msg"].(string); ok {
					return msg
				}
			}
		}
	}
	return fmt.Sprintf("%v", e.Detail)
}

func (e ElevenLabsError) String() string {
	return "ElevenLabs API Error: " + e.Message()
}

// GetPrebuiltVoices returns the well-known pre-built ElevenLabs voices
func GetPrebuiltVoices() []Voice {
	return []Voice{
		{ID: "pNInz6obpgDQGcFmaJgB", Name: "Adam", Language: "en", Gender: "male", Description: "Professional narrator voice"},
		{ID: "ErXwobaYiN019PkySvjV", Name: "Antoni", Language: "en", Gender: "male", Description: "Confident hero voice"},
		{ID: "VR6AewLTigWG4xSOukaG", Name: "Arnold", Language: "en", Gender: "male", Description: "Deep, menacing voice"},
		{ID: "XB0fDUnXU5powFXDhCwa", Name: "Charlotte", Language: "en", Gender: "female", Description: "Young, energetic voice"},
		{ID: "IKne3meq5aSn9XLyUdCD", Name: "Charlie", Language: "en", Gender: "male", Description: "Wise, elderly voice"},
		{ID: "21m00Tcm4TlvDq8ikWAM", Name: "Rachel", Language: "en", Gender: "female", Description: "American female voice"},
		{ID: "EXAVITQu4vr4xnSDxMaL", Name: "Bella", Language: "en", Gender: "female", Description: "American female voice"},
		{ID: "TxGEqnHWrfWFTfGW9XjX", Name: "Josh", Language: "en", Gender: "male", Description: "American male voice"},
	}
}
