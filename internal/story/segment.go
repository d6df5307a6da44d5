// Package story turns generated story text into attributed dialogue
// segments and maps each speaker to one of five fixed voice profiles.
package story

import (
	"regexp"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
)

// MinSegmentLength is the longest text that is still treated as noise.
// Only text strictly longer than this is emitted.
const MinSegmentLength = 5

// Segment is one attributed utterance.
type Segment struct {
	Character string `json:"character"`
	Text      string `json:"text"`
}

// dialogue formats tried per speaker, in order. %s is the quoted name.
var dialogueFormats = []string{
	`(?i)^%s\s*:\s*["'](.+)["']`,         // Name: "text"
	`(?i)^%s\s*:\s*(.+)`,                 // Name: text
	`(?i)^["'](.+)["']\s*,?\s*said\s+%s`, // "text," said Name
	`(?i)%s\s+said[,:]?\s*["'](.+)["']`,  // Name said: "text"
}

var leadingQuote = regexp.MustCompile(`^["'](.+)["']`)

type speaker struct {
	name     string
	patterns []*regexp.Regexp
}

// Segmenter splits story text into attributed segments for a fixed
// character list. It is safe for concurrent use.
type Segmenter struct {
	speakers []speaker
}

// NewSegmenter compiles the dialogue patterns for every non-narrator
// character. Names are matched literally; blank names are ignored.
func NewSegmenter(characters []string) *Segmenter {
	s := &Segmenter{}
	for _, name := range characters {
		if strings.TrimSpace(name) == "" || IsNarrator(name) {
			continue
		}
		quoted := regexp.QuoteMeta(name)
		sp := speaker{name: name, patterns: make([]*regexp.Regexp, 0, len(dialogueFormats))}
		for _, format := range dialogueFormats {
			sp.patterns = append(sp.patterns, regexp.MustCompile(strings.ReplaceAll(format, "%s", quoted)))
		}
		s.speakers = append(s.speakers, sp)
	}
	return s
}

// Speakers returns the non-narrator names in supplied order.
func (s *Segmenter) Speakers() []string {
	names := make([]string, len(s.speakers))
	for i, sp := range s.speakers {
		names[i] = sp.name
	}
	return names
}

// Segment walks story line by line and returns segments in line order.
func (s *Segmenter) Segment(story string) []Segment {
	var segments []Segment

	for _, raw := range strings.Split(story, "\n") {
		line := strings.TrimSuffix(raw, "\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		character, text, ok := s.attribute(line)
		if !ok {
			character, text = s.orphanQuote(trimmed)
		}

		if textLength(text) <= MinSegmentLength {
			log.Debug().Str("line", trimmed).Msg("Dropped short line")
			continue
		}

		log.Debug().
			Str("character", character).
			Str("text", preview(text, 40)).
			Msg("Added segment")
		segments = append(segments, Segment{Character: character, Text: text})
	}

	log.Debug().
		Int("segments", len(segments)).
		Interface("distribution", SpeakerCounts(segments)).
		Msg("Parsed story")

	return segments
}

// textLength counts UTF-16 code units, the unit nameHash also works in.
func textLength(text string) int {
	return len(utf16.Encode([]rune(text)))
}

// attribute tries each speaker's patterns in order; the first match wins.
func (s *Segmenter) attribute(line string) (string, string, bool) {
	for _, sp := range s.speakers {
		for _, re := range sp.patterns {
			if m := re.FindStringSubmatch(line); m != nil {
				return sp.name, strings.TrimSpace(m[1]), true
			}
		}
	}
	return "", "", false
}

// orphanQuote gives an unattributed quoted line to the first speaker.
// Anything else is narration.
func (s *Segmenter) orphanQuote(trimmed string) (string, string) {
	if len(s.speakers) == 0 || !leadingQuote.MatchString(trimmed) {
		return NarratorName, trimmed
	}
	text := trimmed[1:]
	if n := len(text); n > 0 && (text[n-1] == '"' || text[n-1] == '\'') {
		text = text[:n-1]
	}
	return s.speakers[0].name, text
}

// SegmentStory is a one-shot NewSegmenter(characters).Segment(story).
func SegmentStory(story string, characters []string) []Segment {
	return NewSegmenter(characters).Segment(story)
}

// SpeakerCounts tallies segments per character.
func SpeakerCounts(segments []Segment) map[string]int {
	counts := make(map[string]int)
	for _, seg := range segments {
		counts[seg.Character]++
	}
	return counts
}

func preview(text string, n int) string {
	if utf8.RuneCountInString(text) <= n {
		return text
	}
	return string([]rune(text)[:n]) + "..."
}
