package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupFormat(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		extension   string
		contentType string
		joinable    bool
	}{
		{"default", "", "mp3", "audio/mpeg", true},
		{"mp3", "mp3", "mp3", "audio/mpeg", true},
		{"upper case with dot", ".MP3", "mp3", "audio/mpeg", true},
		{"wav", "wav", "wav", "audio/wav", false},
		{"ogg", "ogg", "ogg", "audio/ogg", false},
		{"pcm", "pcm", "pcm", "audio/L16", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := LookupFormat(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.extension, f.Extension)
			assert.Equal(t, tt.contentType, f.ContentType)
			assert.Equal(t, tt.joinable, f.Joinable)
		})
	}
}

func TestLookupFormat_Unsupported(t *testing.T) {
	_, err := LookupFormat("wma")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unsupported audio format "wma"`)
	assert.Contains(t, err.Error(), "mp3")
}

func TestFormats(t *testing.T) {
	formats := Formats()
	assert.Contains(t, formats, "mp3")
	assert.IsIncreasing(t, formats)
}
