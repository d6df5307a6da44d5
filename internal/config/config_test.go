package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daikw/storyvoice/internal/voice/provider"
)

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("TEST_API_KEY", "sk-test-12345")

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "expand ${VAR} pattern",
			input:    `{"apiKey": "${TEST_API_KEY}"}`,
			expected: `{"apiKey": "sk-test-12345"}`,
		},
		{
			name:     "missing env var returns empty",
			input:    `{"apiKey": "${STORYVOICE_NONEXISTENT_VAR}"}`,
			expected: `{"apiKey": ""}`,
		},
		{
			name:     "no variables to expand",
			input:    `{"apiKey": "literal-value"}`,
			expected: `{"apiKey": "literal-value"}`,
		},
		{
			name:     "multiple variables",
			input:    `{"key1": "${TEST_API_KEY}", "key2": "${TEST_API_KEY}"}`,
			expected: `{"key1": "sk-test-12345", "key2": "sk-test-12345"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, expandEnvVars(tt.input))
		})
	}
}

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	cfgDir := filepath.Join(dir, ".storyvoice")
	require.NoError(t, os.MkdirAll(cfgDir, 0755))
	path := filepath.Join(cfgDir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func emptyLoader(t *testing.T) *Loader {
	return &Loader{projectDir: ".storyvoice", globalDir: t.TempDir()}
}

func TestLoader_Load(t *testing.T) {
	t.Run("load project json config", func(t *testing.T) {
		tmpDir := t.TempDir()
		writeConfig(t, tmpDir, "config.json", `{
			"defaultProvider": "openai",
			"providers": {
				"openai": {
					"apiKey": "test-key",
					"voices": {"narrator": "echo"}
				}
			}
		}`)

		cfg, err := emptyLoader(t).Load(tmpDir)

		require.NoError(t, err)
		require.NotNil(t, cfg)
		assert.Equal(t, "openai", cfg.DefaultProvider)
		assert.Equal(t, "test-key", cfg.Providers["openai"].APIKey)
		assert.Equal(t, "echo", cfg.Providers["openai"].Voices["narrator"])
	})

	t.Run("load project yaml config", func(t *testing.T) {
		tmpDir := t.TempDir()
		t.Setenv("GROQ_TEST_KEY", "gsk-test")
		writeConfig(t, tmpDir, "config.yaml", `
defaultProvider: local
story:
  apiKey: ${GROQ_TEST_KEY}
  temperature: 0.5
playback:
  localPauseMs: 250
server:
  addr: ":9090"
`)

		cfg, err := emptyLoader(t).Load(tmpDir)

		require.NoError(t, err)
		require.NotNil(t, cfg)
		assert.Equal(t, "local", cfg.DefaultProvider)
		require.NotNil(t, cfg.Story)
		assert.Equal(t, "gsk-test", cfg.Story.APIKey)
		assert.Equal(t, 0.5, cfg.Story.Temperature)
		assert.Equal(t, 250, cfg.Playback.LocalPauseMs)
		assert.Equal(t, ":9090", cfg.Server.Addr)
	})

	t.Run("json wins over yaml", func(t *testing.T) {
		tmpDir := t.TempDir()
		writeConfig(t, tmpDir, "config.json", `{"defaultProvider": "gcp"}`)
		writeConfig(t, tmpDir, "config.yaml", `defaultProvider: polly`)

		cfg, err := emptyLoader(t).Load(tmpDir)

		require.NoError(t, err)
		assert.Equal(t, "gcp", cfg.DefaultProvider)
	})

	t.Run("falls back to global config", func(t *testing.T) {
		globalDir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(globalDir, "config.json"), []byte(`{"defaultProvider": "polly"}`), 0600))
		loader := &Loader{projectDir: ".storyvoice", globalDir: globalDir}

		cfg, err := loader.Load(t.TempDir())

		require.NoError(t, err)
		require.NotNil(t, cfg)
		assert.Equal(t, "polly", cfg.DefaultProvider)
	})

	t.Run("parse error is returned", func(t *testing.T) {
		tmpDir := t.TempDir()
		writeConfig(t, tmpDir, "config.json", `{not json`)

		_, err := emptyLoader(t).Load(tmpDir)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse config file")
	})

	t.Run("no config returns nil", func(t *testing.T) {
		cfg, err := emptyLoader(t).Load(t.TempDir())

		require.NoError(t, err)
		assert.Nil(t, cfg)
	})
}

func TestLoader_LoadFromPath(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := writeConfig(t, tmpDir, "custom.yaml", "defaultProvider: openai\n")
	loader := NewLoader()

	t.Run("load from valid path", func(t *testing.T) {
		cfg, err := loader.LoadFromPath(configPath)
		require.NoError(t, err)
		require.NotNil(t, cfg)
		assert.Equal(t, "openai", cfg.DefaultProvider)
	})

	t.Run("load from path with traversal", func(t *testing.T) {
		_, err := loader.LoadFromPath("/tmp/../etc/passwd.json")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "path traversal")
	})

	t.Run("load from wrong extension", func(t *testing.T) {
		_, err := loader.LoadFromPath("/tmp/config.toml")
		require.Error(t, err)
		assert.Contains(t, err.Error(), ".json or .yaml")
	})

	t.Run("load from nonexistent path", func(t *testing.T) {
		_, err := loader.LoadFromPath("/nonexistent/path/config.json")
		assert.Error(t, err)
	})
}

func TestValidateConfigPath(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		expectErr bool
	}{
		{"json path", "/home/user/.storyvoice/config.json", false},
		{"yaml path", ".storyvoice/config.yaml", false},
		{"yml path", "config.YML", false},
		{"path traversal attempt", "/home/user/../../../etc/passwd", true},
		{"wrong extension", "/home/user/.storyvoice/config.ini", true},
		{"hidden traversal", "/home/user/.storyvoice/../../config.json", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateConfigPath(tt.path)
			if tt.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFile_GetProviderConfig(t *testing.T) {
	cfg := &File{
		Providers: map[string]ProviderConfig{
			"openai": {APIKey: "test-key"},
		},
	}

	t.Run("existing provider", func(t *testing.T) {
		pc := cfg.GetProviderConfig("openai")
		require.NotNil(t, pc)
		assert.Equal(t, "test-key", pc.APIKey)
	})

	t.Run("non-existing provider", func(t *testing.T) {
		assert.Nil(t, cfg.GetProviderConfig("nonexistent"))
	})

	t.Run("nil config", func(t *testing.T) {
		var nilConfig *File
		assert.Nil(t, nilConfig.GetProviderConfig("openai"))
	})
}

func TestFile_GetEffectiveProvider(t *testing.T) {
	cfg := &File{DefaultProvider: "openai"}

	assert.Equal(t, "polly", cfg.GetEffectiveProvider("polly"))
	assert.Equal(t, "openai", cfg.GetEffectiveProvider(""))

	var nilConfig *File
	assert.Equal(t, ProviderElevenLabs, nilConfig.GetEffectiveProvider(""))
}

func TestFile_Validate(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("ELEVENLABS_API_KEY", "")

	tests := []struct {
		name     string
		cfg      *File
		contains []string
	}{
		{
			name: "valid config",
			cfg: &File{
				DefaultProvider: "local",
				Providers: map[string]ProviderConfig{
					"polly": {Region: "us-east-1", Voices: map[string]string{"Hero": "Joey"}},
				},
			},
		},
		{
			name:     "unknown default provider",
			cfg:      &File{DefaultProvider: "bark"},
			contains: []string{"unknown provider 'bark'"},
		},
		{
			name: "missing openai api key",
			cfg: &File{Providers: map[string]ProviderConfig{
				"openai": {Model: "tts-1"},
			}},
			contains: []string{"openai: apiKey is required"},
		},
		{
			name: "elevenlabs ranges",
			cfg: &File{Providers: map[string]ProviderConfig{
				"elevenlabs": {APIKey: "k", Stability: 1.5, SimilarityBoost: -1},
			}},
			contains: []string{"stability must be between", "similarityBoost must be between"},
		},
		{
			name: "invalid speed",
			cfg: &File{Providers: map[string]ProviderConfig{
				"polly": {Speed: 10.0},
			}},
			contains: []string{"speed must be between"},
		},
		{
			name: "unknown voice category",
			cfg: &File{Providers: map[string]ProviderConfig{
				"gcp": {Voices: map[string]string{"sidekick": "en-US-Neural2-C"}},
			}},
			contains: []string{"unknown category 'sidekick'"},
		},
		{
			name: "unsupported format",
			cfg: &File{Providers: map[string]ProviderConfig{
				"openai": {APIKey: "k", Format: "wma"},
			}},
			contains: []string{`openai: format: unsupported audio format "wma"`},
		},
		{
			name: "wav is a valid format",
			cfg: &File{Providers: map[string]ProviderConfig{
				"openai": {APIKey: "k", Format: "wav"},
			}},
		},
		{
			name:     "negative pause",
			cfg:      &File{Playback: &PlaybackConfig{ErrorPauseMs: -1}},
			contains: []string{"pauses must not be negative"},
		},
		{
			name:     "temperature out of range",
			cfg:      &File{Story: &StoryConfig{Temperature: 3}},
			contains: []string{"temperature must be between"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := tt.cfg.Validate()
			require.Len(t, errs, len(tt.contains))
			for i, want := range tt.contains {
				assert.Contains(t, errs[i], want)
			}
		})
	}

	t.Run("api key from environment satisfies validation", func(t *testing.T) {
		t.Setenv("OPENAI_API_KEY", "sk-env")
		cfg := &File{Providers: map[string]ProviderConfig{"openai": {}}}
		assert.Empty(t, cfg.Validate())
	})

	t.Run("nil config", func(t *testing.T) {
		var nilConfig *File
		assert.Empty(t, nilConfig.Validate())
	})
}

func TestFile_MaskSecrets(t *testing.T) {
	cfg := &File{
		DefaultProvider: "openai",
		Story:           &StoryConfig{APIKey: "gsk-abcdef", Model: "llama-3.1-8b-instant"},
		Providers: map[string]ProviderConfig{
			"openai": {APIKey: "sk-1234567890abcdef", Model: "tts-1"},
			"polly":  {Region: "us-east-1"},
		},
	}

	masked := cfg.MaskSecrets()

	require.NotNil(t, masked)
	assert.Equal(t, "openai", masked.DefaultProvider)
	assert.Equal(t, "[set, 19 chars]", masked.Providers["openai"].APIKey)
	assert.Equal(t, "tts-1", masked.Providers["openai"].Model)
	assert.Empty(t, masked.Providers["polly"].APIKey)
	assert.Equal(t, "[set, 10 chars]", masked.Story.APIKey)
	assert.Equal(t, "llama-3.1-8b-instant", masked.Story.Model)

	// original untouched
	assert.Equal(t, "gsk-abcdef", cfg.Story.APIKey)
	assert.Equal(t, "sk-1234567890abcdef", cfg.Providers["openai"].APIKey)

	var nilConfig *File
	assert.Nil(t, nilConfig.MaskSecrets())
}

func TestGenerateExampleConfig(t *testing.T) {
	example := GenerateExampleConfig()

	assert.Contains(t, example, "defaultProvider")
	assert.Contains(t, example, "elevenlabs")
	assert.Contains(t, example, "openai")
	assert.Contains(t, example, "polly")
	assert.Contains(t, example, "gcp")
	assert.Contains(t, example, "${GROQ_API_KEY}")
	assert.Contains(t, example, "${ELEVENLABS_API_KEY}")
	assert.Contains(t, example, `"requestDelayMs": 500`)
}

func TestKnownProviders(t *testing.T) {
	providers := KnownProviders()
	assert.ElementsMatch(t, []string{"elevenlabs", "openai", "polly", "gcp", "local"}, providers)
	for _, name := range provider.NewFactory().ListProviders() {
		assert.Contains(t, providers, name)
	}

	providers[0] = "mutated"
	assert.NotContains(t, KnownProviders(), "mutated")
}
