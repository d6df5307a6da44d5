// Package audiobook turns segmented stories into audio: it synthesizes
// hosted clips into a single audiobook and plays either back-end
// sequentially through a Session.
package audiobook

import (
	"github.com/daikw/storyvoice/internal/story"
)

// VoiceTable maps each category to a vendor voice id.
type VoiceTable [5]string

var hostedDefaults = map[string]VoiceTable{
	"openai": {"fable", "nova", "onyx", "shimmer", "echo"},
	"polly":  {"Matthew", "Joey", "Brian", "Ivy", "Russell"},
	"gcp":    {"en-US-Neural2-D", "en-US-Neural2-J", "en-US-Neural2-A", "en-US-Neural2-F", "en-GB-Neural2-D"},
}

// HostedVoices returns the category voices for providerName with overrides
// applied. Unknown providers use the ElevenLabs ids from the voice table.
func HostedVoices(providerName string, overrides map[story.VoiceCategory]string) VoiceTable {
	table, ok := hostedDefaults[providerName]
	if !ok {
		for _, c := range story.Categories() {
			table[c] = story.Profile(c).Hosted.ID
		}
	}
	for c, id := range overrides {
		if c.Valid() && id != "" {
			table[c] = id
		}
	}
	return table
}

// Voice returns the vendor voice for c.
func (t VoiceTable) Voice(c story.VoiceCategory) string {
	return t[story.Profile(c).Category]
}

// VoiceEntry is one row of the combined voice table.
type VoiceEntry struct {
	Category    string  `json:"category"`
	Label       string  `json:"label"`
	Pitch       float64 `json:"pitch"`
	Rate        float64 `json:"rate"`
	Volume      float64 `json:"volume"`
	DeviceVoice string  `json:"deviceVoice"`
	HostedVoice string  `json:"hostedVoice"`
}

// Table describes every category for both the device and hosted back-ends.
func (t VoiceTable) Table() []VoiceEntry {
	entries := make([]VoiceEntry, 0, len(t))
	for _, p := range story.Profiles() {
		entries = append(entries, VoiceEntry{
			Category:    p.Category.String(),
			Label:       p.Label,
			Pitch:       p.Pitch,
			Rate:        p.Rate,
			Volume:      p.Volume,
			DeviceVoice: p.DeviceVoice,
			HostedVoice: t[p.Category],
		})
	}
	return entries
}
