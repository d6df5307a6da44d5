// Package llm generates dialogue-heavy stories through an OpenAI-compatible
// chat completion endpoint. Groq is the default backend.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"
	"github.com/rs/zerolog/log"

	"github.com/daikw/storyvoice/internal/story"
)

const (
	DefaultBaseURL       = "https://api.groq.com/openai/v1/"
	DefaultModel         = "llama-3.1-8b-instant"
	DefaultFallbackModel = "llama3-8b-8192"
	DefaultTemperature   = 0.8
	DefaultMaxTokens     = 1000

	// DemoModel labels the canned story returned when every model fails.
	DemoModel = "fallback-demo"
)

var (
	// ErrEmptyPrompt is returned for a blank prompt.
	ErrEmptyPrompt = errors.New("prompt is required")
	// ErrMissingAPIKey is returned when no API key is configured.
	ErrMissingAPIKey = errors.New("Groq API key not configured")
)

const systemPrompt = `You are a creative storyteller. Create engaging stories with dialogue and multiple characters for voice generation.

CRITICAL FORMATTING RULES:
1. Include 3-4 different characters with SHORT, CLEAR names (e.g., "Max", "Luna", "Dr. Smith")
2. Use EXACT dialogue format: CharacterName: "exact dialogue text"
3. Include narrator descriptions on separate lines
4. Each character should speak at least 2-3 times
5. Keep each line under 50 words for voice generation
6. Use lots of dialogue, minimal narration

EXAMPLE FORMAT:
CHARACTERS: Max, Luna, Dr. Smith, Narrator

STORY:
Narrator: The laboratory was dark and quiet.
Max: "Did you hear that strange noise?"
Luna: "Yes, it came from the basement."
Dr. Smith: "We should investigate immediately."
Narrator: They walked carefully down the stairs.
Max: "Look at this mysterious device!"

Format your response exactly like this with clear character dialogue.`

const demoStory = "Narrator: Detective Smith entered the room.\n" +
	"Detective Smith: \"What happened here?\"\n" +
	"Witness: \"I heard a loud noise at midnight.\"\n" +
	"Detective Smith: \"Can you describe it?\"\n" +
	"Witness: \"It sounded like breaking glass.\"\n" +
	"Narrator: The detective took careful notes.\n" +
	"Detective Smith: \"Thank you for your help.\""

// DemoStory returns the canned story used when generation is unavailable.
func DemoStory() *story.Generated {
	return &story.Generated{
		Story:      demoStory,
		Characters: []string{"Detective Smith", "Witness", "Narrator"},
		WordCount:  45,
		Model:      DemoModel,
	}
}

// Generator produces stories from prompts.
type Generator struct {
	client        oai.Client
	apiKey        string
	model         string
	fallbackModel string
	temperature   float64
	maxTokens     int
}

type config struct {
	baseURL       string
	model         string
	fallbackModel string
	temperature   float64
	timeout       time.Duration
}

// Option configures a Generator.
type Option func(*config)

// WithBaseURL points the client at another OpenAI-compatible endpoint.
func WithBaseURL(u string) Option {
	return func(c *config) {
		if u != "" {
			c.baseURL = u
		}
	}
}

// WithModel overrides the primary model.
func WithModel(m string) Option {
	return func(c *config) {
		if m != "" {
			c.model = m
		}
	}
}

// WithFallbackModel overrides the model tried after a server-side failure.
func WithFallbackModel(m string) Option {
	return func(c *config) {
		if m != "" {
			c.fallbackModel = m
		}
	}
}

// WithTemperature overrides the sampling temperature.
func WithTemperature(t float64) Option {
	return func(c *config) {
		if t > 0 {
			c.temperature = t
		}
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) { c.timeout = d }
}

// New creates a Generator. An empty apiKey is accepted here and reported
// by Generate, so a server can start without story generation configured.
func New(apiKey string, opts ...Option) *Generator {
	cfg := config{
		baseURL:       DefaultBaseURL,
		model:         DefaultModel,
		fallbackModel: DefaultFallbackModel,
		temperature:   DefaultTemperature,
		timeout:       60 * time.Second,
	}
	for _, o := range opts {
		o(&cfg)
	}

	client := oai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(cfg.baseURL),
		option.WithMaxRetries(0),
		option.WithHTTPClient(&http.Client{Timeout: cfg.timeout}),
	)

	return &Generator{
		client:        client,
		apiKey:        apiKey,
		model:         cfg.model,
		fallbackModel: cfg.fallbackModel,
		temperature:   cfg.temperature,
		maxTokens:     DefaultMaxTokens,
	}
}

// Model returns the primary model name.
func (g *Generator) Model() string {
	return g.model
}

// Generate asks the model for a story about prompt. A server-side failure
// of the primary model is retried once on the fallback model; if that
// also fails the demo story is returned instead of an error.
func (g *Generator) Generate(ctx context.Context, prompt string) (*story.Generated, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, ErrEmptyPrompt
	}
	if g.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	log.Info().Str("model", g.model).Str("prompt", prompt).Msg("Generating story")

	gen, err := g.generate(ctx, g.model, prompt)
	if err == nil {
		return gen, nil
	}
	if !isModelFailure(err) || g.fallbackModel == "" {
		return nil, err
	}

	log.Warn().Err(err).Str("fallback", g.fallbackModel).Msg("Model error, trying fallback model")

	gen, err = g.generate(ctx, g.fallbackModel, prompt)
	if err != nil {
		log.Error().Err(err).Msg("Fallback model also failed, using demo story")
		return DemoStory(), nil
	}
	gen.Model = g.fallbackModel + " (fallback)"
	return gen, nil
}

func (g *Generator) generate(ctx context.Context, model, prompt string) (*story.Generated, error) {
	resp, err := g.client.Chat.Completions.New(ctx, oai.ChatCompletionNewParams{
		Model: shared.ChatModel(model),
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.SystemMessage(systemPrompt),
			oai.UserMessage("Create a story about: " + prompt),
		},
		Temperature:         param.NewOpt(g.temperature),
		MaxCompletionTokens: param.NewOpt(int64(g.maxTokens)),
	})
	if err != nil {
		return nil, fmt.Errorf("story generation with %s failed: %w", model, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("story generation with %s failed: empty response", model)
	}

	gen, err := story.ParseGenerated(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}
	gen.Model = model

	log.Info().
		Str("model", model).
		Strs("characters", gen.Characters).
		Int("words", gen.WordCount).
		Msg("Story generated successfully")

	return gen, nil
}

// isModelFailure reports errors worth retrying on the fallback model.
func isModelFailure(err error) bool {
	var apiErr *oai.Error
	if errors.As(err, &apiErr) && apiErr.StatusCode >= http.StatusInternalServerError {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "decommissioned") || strings.Contains(msg, "Internal Server Error")
}
