package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/daikw/storyvoice/internal/story"
	"github.com/daikw/storyvoice/internal/voice/provider"
)

// Provider names accepted by defaultProvider and the --provider flag.
const (
	ProviderElevenLabs = "elevenlabs"
	ProviderOpenAI     = "openai"
	ProviderPolly      = "polly"
	ProviderGCP        = "gcp"
	ProviderLocal      = "local"
)

// knownProviders is every hosted provider the factory builds plus the
// device engine.
var knownProviders = append(provider.NewFactory().ListProviders(), ProviderLocal)

// File represents the configuration file structure
type File struct {
	DefaultProvider string                    `json:"defaultProvider,omitempty" yaml:"defaultProvider,omitempty"`
	Story           *StoryConfig              `json:"story,omitempty" yaml:"story,omitempty"`
	Playback        *PlaybackConfig           `json:"playback,omitempty" yaml:"playback,omitempty"`
	Providers       map[string]ProviderConfig `json:"providers,omitempty" yaml:"providers,omitempty"`
	Server          *ServerConfig             `json:"server,omitempty" yaml:"server,omitempty"`
}

// StoryConfig configures the story generation endpoint
type StoryConfig struct {
	APIKey        string  `json:"apiKey,omitempty" yaml:"apiKey,omitempty"`
	BaseURL       string  `json:"baseURL,omitempty" yaml:"baseURL,omitempty"`
	Model         string  `json:"model,omitempty" yaml:"model,omitempty"`
	FallbackModel string  `json:"fallbackModel,omitempty" yaml:"fallbackModel,omitempty"`
	Temperature   float64 `json:"temperature,omitempty" yaml:"temperature,omitempty"`
}

// PlaybackConfig holds pacing values in milliseconds
type PlaybackConfig struct {
	LocalPauseMs   int `json:"localPauseMs,omitempty" yaml:"localPauseMs,omitempty"`
	HostedPauseMs  int `json:"hostedPauseMs,omitempty" yaml:"hostedPauseMs,omitempty"`
	ErrorPauseMs   int `json:"errorPauseMs,omitempty" yaml:"errorPauseMs,omitempty"`
	RequestDelayMs int `json:"requestDelayMs,omitempty" yaml:"requestDelayMs,omitempty"`
}

// ProviderConfig represents provider-specific configuration
type ProviderConfig struct {
	// Common options
	APIKey  string  `json:"apiKey,omitempty" yaml:"apiKey,omitempty"`
	BaseURL string  `json:"baseURL,omitempty" yaml:"baseURL,omitempty"`
	Model   string  `json:"model,omitempty" yaml:"model,omitempty"`
	Format  string  `json:"format,omitempty" yaml:"format,omitempty"`
	Speed   float64 `json:"speed,omitempty" yaml:"speed,omitempty"`

	// ElevenLabs options
	Stability       float64 `json:"stability,omitempty" yaml:"stability,omitempty"`
	SimilarityBoost float64 `json:"similarityBoost,omitempty" yaml:"similarityBoost,omitempty"`
	Style           float64 `json:"style,omitempty" yaml:"style,omitempty"`
	UseSpeakerBoost *bool   `json:"useSpeakerBoost,omitempty" yaml:"useSpeakerBoost,omitempty"`

	// Amazon Polly / Google Cloud options
	Region     string `json:"region,omitempty" yaml:"region,omitempty"`
	Engine     string `json:"engine,omitempty" yaml:"engine,omitempty"`
	SampleRate string `json:"sampleRate,omitempty" yaml:"sampleRate,omitempty"`
	Language   string `json:"language,omitempty" yaml:"language,omitempty"`
	ProjectID  string `json:"projectId,omitempty" yaml:"projectId,omitempty"`

	// Voices overrides the vendor voice per category, keyed by category
	// name (narrator, hero, villain, child, elder).
	Voices map[string]string `json:"voices,omitempty" yaml:"voices,omitempty"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Addr string `json:"addr,omitempty" yaml:"addr,omitempty"`
}

// Loader handles loading configuration from files
type Loader struct {
	projectDir string
	globalDir  string
}

var configNames = []string{"config.json", "config.yaml", "config.yml"}

// NewLoader creates a new config loader
func NewLoader() *Loader {
	homeDir, _ := os.UserHomeDir()
	return &Loader{
		projectDir: ".storyvoice",
		globalDir:  filepath.Join(homeDir, ".storyvoice"),
	}
}

// Load loads configuration with priority:
// 1. Project-local config (.storyvoice/config.{json,yaml})
// 2. Global config (~/.storyvoice/config.{json,yaml})
// Returns nil if no config file found
func (l *Loader) Load(workDir string) (*File, error) {
	for _, dir := range []string{filepath.Join(workDir, l.projectDir), l.globalDir} {
		for _, name := range configNames {
			path := filepath.Join(dir, name)
			cfg, err := l.loadFromFile(path)
			if err == nil {
				log.Debug().Str("path", path).Msg("Loaded config")
				return cfg, nil
			}
			if !os.IsNotExist(err) {
				return nil, err
			}
		}
	}

	log.Debug().Msg("No config file found")
	return nil, nil
}

// LoadFromPath loads configuration from a specific path
func (l *Loader) LoadFromPath(path string) (*File, error) {
	if err := validateConfigPath(path); err != nil {
		return nil, err
	}
	return l.loadFromFile(path)
}

func validateConfigPath(path string) error {
	// checked before cleaning so hidden traversal is caught too
	if strings.Contains(path, "..") {
		return fmt.Errorf("invalid config path: path traversal not allowed")
	}

	switch strings.ToLower(filepath.Ext(filepath.Clean(path))) {
	case ".json", ".yaml", ".yml":
		return nil
	}
	return fmt.Errorf("invalid config path: must be a .json or .yaml file")
}

func (l *Loader) loadFromFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	expanded := []byte(expandEnvVars(string(data)))

	var cfg File
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(expanded, &cfg)
	default:
		err = json.Unmarshal(expanded, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	checkFilePermissions(path)

	return &cfg, nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR} patterns with environment variable values
func expandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		varName := match[2 : len(match)-1]
		if value, exists := os.LookupEnv(varName); exists {
			return value
		}
		// variable names stay out of the log
		log.Debug().Msg("Referenced environment variable not set in config")
		return ""
	})
}

func checkFilePermissions(path string) {
	info, err := os.Stat(path)
	if err != nil {
		return
	}

	mode := info.Mode().Perm()
	if mode&0077 != 0 {
		log.Warn().
			Str("permissions", fmt.Sprintf("%04o", mode)).
			Msg("Config file may contain secrets but has permissive permissions. Consider: chmod 600")
	}
}

// GetProviderConfig returns configuration for a specific provider
func (c *File) GetProviderConfig(providerName string) *ProviderConfig {
	if c == nil || c.Providers == nil {
		return nil
	}
	if cfg, exists := c.Providers[providerName]; exists {
		return &cfg
	}
	return nil
}

// GetEffectiveProvider returns the provider to use (explicit or default)
func (c *File) GetEffectiveProvider(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if c != nil && c.DefaultProvider != "" {
		return c.DefaultProvider
	}
	return ProviderElevenLabs
}

// Validate validates the configuration
func (c *File) Validate() []string {
	var errors []string

	if c == nil {
		return errors
	}

	if c.DefaultProvider != "" && !isKnownProvider(c.DefaultProvider) {
		errors = append(errors, fmt.Sprintf("defaultProvider: unknown provider '%s'", c.DefaultProvider))
	}

	if c.Story != nil && (c.Story.Temperature < 0 || c.Story.Temperature > 2) {
		errors = append(errors, "story: temperature must be between 0.0 and 2.0")
	}

	if p := c.Playback; p != nil {
		if p.LocalPauseMs < 0 || p.HostedPauseMs < 0 || p.ErrorPauseMs < 0 || p.RequestDelayMs < 0 {
			errors = append(errors, "playback: pauses must not be negative")
		}
	}

	names := make([]string, 0, len(c.Providers))
	for name := range c.Providers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		pc := c.Providers[name]
		errors = append(errors, validateProviderConfig(name, &pc)...)
	}

	return errors
}

func validateProviderConfig(name string, cfg *ProviderConfig) []string {
	var errors []string

	switch name {
	case ProviderOpenAI:
		if cfg.APIKey == "" && os.Getenv("OPENAI_API_KEY") == "" {
			errors = append(errors, fmt.Sprintf("%s: apiKey is required (use ${OPENAI_API_KEY} for env var)", name))
		}
	case ProviderElevenLabs:
		if cfg.APIKey == "" && os.Getenv("ELEVENLABS_API_KEY") == "" {
			errors = append(errors, fmt.Sprintf("%s: apiKey is required (use ${ELEVENLABS_API_KEY} for env var)", name))
		}
		if cfg.Stability < 0 || cfg.Stability > 1 {
			errors = append(errors, fmt.Sprintf("%s: stability must be between 0.0 and 1.0", name))
		}
		if cfg.SimilarityBoost < 0 || cfg.SimilarityBoost > 1 {
			errors = append(errors, fmt.Sprintf("%s: similarityBoost must be between 0.0 and 1.0", name))
		}
	case ProviderPolly, ProviderGCP, ProviderLocal:
	default:
		errors = append(errors, fmt.Sprintf("%s: unknown provider", name))
	}

	if cfg.Format != "" {
		if _, err := provider.LookupFormat(cfg.Format); err != nil {
			errors = append(errors, fmt.Sprintf("%s: format: %v", name, err))
		}
	}

	if cfg.Speed != 0 && (cfg.Speed < 0.25 || cfg.Speed > 4.0) {
		errors = append(errors, fmt.Sprintf("%s: speed must be between 0.25 and 4.0", name))
	}

	keys := make([]string, 0, len(cfg.Voices))
	for key := range cfg.Voices {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if _, err := story.ParseCategory(key); err != nil {
			errors = append(errors, fmt.Sprintf("%s: voices: unknown category '%s'", name, key))
		}
	}

	return errors
}

func isKnownProvider(name string) bool {
	for _, p := range knownProviders {
		if p == name {
			return true
		}
	}
	return false
}

// KnownProviders returns every provider name the config accepts.
func KnownProviders() []string {
	out := make([]string, len(knownProviders))
	copy(out, knownProviders)
	return out
}

// GenerateExampleConfig generates an example configuration
func GenerateExampleConfig() string {
	example := File{
		DefaultProvider: ProviderElevenLabs,
		Story: &StoryConfig{
			APIKey:        "${GROQ_API_KEY}",
			Model:         "llama-3.1-8b-instant",
			FallbackModel: "llama3-8b-8192",
			Temperature:   0.8,
		},
		Playback: &PlaybackConfig{
			LocalPauseMs:   300,
			HostedPauseMs:  500,
			ErrorPauseMs:   100,
			RequestDelayMs: 500,
		},
		Providers: map[string]ProviderConfig{
			ProviderElevenLabs: {
				APIKey:          "${ELEVENLABS_API_KEY}",
				Model:           "eleven_monolingual_v1",
				Stability:       0.5,
				SimilarityBoost: 0.5,
			},
			ProviderOpenAI: {
				APIKey: "${OPENAI_API_KEY}",
				Model:  "tts-1",
				Format: "mp3",
				Voices: map[string]string{"narrator": "fable", "villain": "onyx"},
			},
			ProviderPolly: {
				Region:     "us-east-1",
				Engine:     "neural",
				SampleRate: "22050",
			},
			ProviderGCP: {
				Language: "en-US",
				Engine:   "neural2",
			},
		},
		Server: &ServerConfig{Addr: ":8080"},
	}

	data, _ := json.MarshalIndent(example, "", "  ")
	return string(data)
}

// MaskSecrets masks sensitive values in config for display
func (c *File) MaskSecrets() *File {
	if c == nil {
		return nil
	}

	masked := *c
	masked.Providers = make(map[string]ProviderConfig, len(c.Providers))

	if c.Story != nil {
		storyCfg := *c.Story
		storyCfg.APIKey = maskKey(storyCfg.APIKey)
		masked.Story = &storyCfg
	}

	for name, pc := range c.Providers {
		pc.APIKey = maskKey(pc.APIKey)
		masked.Providers[name] = pc
	}

	return &masked
}

// maskKey only indicates that a key is set, never its characters.
func maskKey(key string) string {
	if key == "" {
		return ""
	}
	return fmt.Sprintf("[set, %d chars]", len(key))
}
