package story

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScript(t *testing.T) {
	segs := []Segment{
		{Character: "Narrator", Text: "The room was dark."},
		{Character: "Max", Text: "Did you hear that?"},
	}

	expected := "AI Generated Audiobook Script\n" +
		"========================================\n\n" +
		"Narrator: The room was dark.\n\n" +
		"Max: Did you hear that?\n\n"
	assert.Equal(t, expected, Script(segs))
}

func TestScript_Empty(t *testing.T) {
	assert.Equal(t, ScriptTitle+"\n"+"========================================\n\n", Script(nil))
}
