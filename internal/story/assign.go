package story

import (
	"bytes"
	"encoding/json"

	"github.com/rs/zerolog/log"
)

// VoiceAssignment maps character names to voice profiles. It is built
// once per story and read-only afterwards.
type VoiceAssignment struct {
	order    []string
	profiles map[string]VoiceProfile
}

// AssignVoices always seats the narrator first, then buckets every other
// character through CharacterIndex. Collisions are allowed.
func AssignVoices(characters []string) *VoiceAssignment {
	a := &VoiceAssignment{profiles: make(map[string]VoiceProfile, len(characters)+1)}
	a.set(NarratorName, Profile(Narrator))

	for _, name := range characters {
		if IsNarrator(name) {
			continue
		}
		p := Profile(CategoryFor(name))
		a.set(name, p)
		log.Debug().
			Str("character", name).
			Str("category", p.Category.String()).
			Float64("pitch", p.Pitch).
			Float64("rate", p.Rate).
			Msg("Assigned voice")
	}

	log.Debug().Int("count", a.Len()).Msg("Voice assignment complete")
	return a
}

func (a *VoiceAssignment) set(name string, p VoiceProfile) {
	if _, exists := a.profiles[name]; !exists {
		a.order = append(a.order, name)
	}
	a.profiles[name] = p
}

// Profile returns the profile assigned to name.
func (a *VoiceAssignment) Profile(name string) (VoiceProfile, bool) {
	p, ok := a.profiles[name]
	return p, ok
}

// Lookup returns the profile for name, falling back to the narrator for
// unknown speakers.
func (a *VoiceAssignment) Lookup(name string) VoiceProfile {
	if p, ok := a.profiles[name]; ok {
		return p
	}
	return Profile(Narrator)
}

// Characters returns assigned names in insertion order, narrator first.
func (a *VoiceAssignment) Characters() []string {
	out := make([]string, len(a.order))
	copy(out, a.order)
	return out
}

// Len returns the number of assigned characters.
func (a *VoiceAssignment) Len() int {
	return len(a.order)
}

// MarshalJSON encodes the assignment as an object in insertion order.
func (a *VoiceAssignment) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range a.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(a.profiles[name])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
