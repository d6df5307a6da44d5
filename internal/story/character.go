package story

import (
	"strings"
	"unicode/utf16"
)

// NarratorName is the reserved speaker for unattributed lines.
const NarratorName = "Narrator"

// keyword rules are checked in order; the first hit decides the category.
var categoryKeywords = []struct {
	category VoiceCategory
	words    []string
}{
	{Hero, []string{"hero", "detective", "main"}},
	{Villain, []string{"villain", "bad", "evil"}},
	{Child, []string{"child", "kid", "young"}},
	{Elder, []string{"elder", "old", "wise"}},
}

// IsNarrator reports whether name refers to the narrator, ignoring case.
func IsNarrator(name string) bool {
	return strings.EqualFold(name, NarratorName)
}

// CharacterIndex maps a character name to a voice bucket in [0, 5).
// Keyword heuristics win over the name hash; the result is stable for a
// given name.
func CharacterIndex(name string) int {
	lower := strings.ToLower(name)
	if lower == "narrator" {
		return int(Narrator)
	}
	for _, rule := range categoryKeywords {
		if containsAny(lower, rule.words) {
			return int(rule.category)
		}
	}

	h := int64(nameHash(name))
	if h < 0 {
		h = -h
	}
	return int(h % int64(categoryCount))
}

// CategoryFor is CharacterIndex expressed as a VoiceCategory.
func CategoryFor(name string) VoiceCategory {
	return VoiceCategory(CharacterIndex(name))
}

// nameHash is the 31-multiplier rolling hash over UTF-16 code units,
// wrapping at 32 bits after every step.
func nameHash(name string) int32 {
	var h int32
	for _, unit := range utf16.Encode([]rune(name)) {
		h = h*31 + int32(unit)
	}
	return h
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
