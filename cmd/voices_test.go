package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/daikw/storyvoice/internal/voice/provider"
)

func TestPrintCatalog(t *testing.T) {
	t.Run("prebuilt fallback is flagged", func(t *testing.T) {
		var buf bytes.Buffer
		printCatalog(&buf, provider.Catalog{Provider: "elevenlabs", Voices: provider.GetPrebuiltVoices(), Prebuilt: true})

		out := buf.String()
		assert.Contains(t, out, "elevenlabs voices (8) [prebuilt list, service unreachable]")
		assert.Contains(t, out, "Rachel")
	})

	t.Run("live list", func(t *testing.T) {
		var buf bytes.Buffer
		printCatalog(&buf, provider.Catalog{Provider: "polly", Voices: []provider.Voice{{ID: "Takumi", Name: "Takumi", Language: "ja-JP"}}})

		assert.NotContains(t, buf.String(), "prebuilt")
		assert.Contains(t, buf.String(), "ja-JP")
	})
}

func TestPrintCharacter(t *testing.T) {
	var buf bytes.Buffer
	printCharacter(&buf, "Evil Queen")

	assert.Contains(t, buf.String(), "Evil Queen → Villain")
	assert.Contains(t, buf.String(), "hosted voice: Arnold")
}

func TestAnnounceLine(t *testing.T) {
	var buf bytes.Buffer
	announceLine(&buf)("I am the Hero. Listen to my unique voice settings.")
	assert.Equal(t, "🔊 I am the Hero. Listen to my unique voice settings.\n", buf.String())
}
