package story

import (
	"errors"
	"regexp"
	"strings"
)

// ErrMalformedStory is returned when generated text lacks the
// CHARACTERS or STORY marker.
var ErrMalformedStory = errors.New("failed to parse story format")

var (
	charactersMarker = regexp.MustCompile(`CHARACTERS: (.+)`)
	storyMarker      = regexp.MustCompile(`(?s)STORY:\s*(.+)`)
)

// Generated is a story produced by the language model.
type Generated struct {
	Story      string   `json:"story"`
	Characters []string `json:"characters"`
	WordCount  int      `json:"wordCount"`
	Model      string   `json:"model"`
}

// ParseGenerated extracts the character list and story body from model
// output of the form "CHARACTERS: a, b\nSTORY:\n...".
func ParseGenerated(content string) (*Generated, error) {
	cm := charactersMarker.FindStringSubmatch(content)
	sm := storyMarker.FindStringSubmatch(content)
	if cm == nil || sm == nil {
		return nil, ErrMalformedStory
	}

	var characters []string
	for _, name := range strings.Split(cm[1], ",") {
		if name = strings.TrimSpace(name); name != "" {
			characters = append(characters, name)
		}
	}

	body := strings.TrimSpace(sm[1])
	return &Generated{
		Story:      body,
		Characters: characters,
		WordCount:  WordCount(body),
	}, nil
}

// WordCount counts space-separated fields the way the story service
// reports them: runs of spaces yield empty fields and newlines do not split.
func WordCount(text string) int {
	return len(strings.Split(text, " "))
}
