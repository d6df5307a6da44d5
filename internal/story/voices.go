package story

import (
	"fmt"
	"strings"
)

// VoiceCategory is one of the five character archetypes.
type VoiceCategory int

const (
	Narrator VoiceCategory = iota
	Hero
	Villain
	Child
	Elder

	categoryCount = 5
)

var categoryNames = [categoryCount]string{"Narrator", "Hero", "Villain", "Child", "Elder"}

func (c VoiceCategory) String() string {
	if c < 0 || int(c) >= categoryCount {
		return fmt.Sprintf("VoiceCategory(%d)", int(c))
	}
	return categoryNames[c]
}

// Valid reports whether c is one of the five defined categories.
func (c VoiceCategory) Valid() bool {
	return c >= 0 && int(c) < categoryCount
}

// MarshalText renders the category by name.
func (c VoiceCategory) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("invalid voice category %d", int(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalText accepts a category name.
func (c *VoiceCategory) UnmarshalText(text []byte) error {
	parsed, err := ParseCategory(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseCategory resolves a category name, ignoring case.
func ParseCategory(name string) (VoiceCategory, error) {
	for i, n := range categoryNames {
		if strings.EqualFold(n, name) {
			return VoiceCategory(i), nil
		}
	}
	return 0, fmt.Errorf("unknown voice category: %s", name)
}

// Categories returns all categories in table order.
func Categories() []VoiceCategory {
	return []VoiceCategory{Narrator, Hero, Villain, Child, Elder}
}

// HostedVoice identifies a vendor voice used in hosted synthesis.
type HostedVoice struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// VoiceProfile bundles the synthesis parameters for one archetype.
type VoiceProfile struct {
	Label       string        `json:"label"`
	Category    VoiceCategory `json:"category"`
	Pitch       float64       `json:"pitch"`
	Rate        float64       `json:"rate"`
	Volume      float64       `json:"volume"`
	DeviceVoice string        `json:"deviceVoice,omitempty"`
	Hosted      HostedVoice   `json:"hosted"`
}

var profiles = [categoryCount]VoiceProfile{
	{
		Label: "Narrator", Category: Narrator,
		Pitch: 1.0, Rate: 0.85, Volume: 1.0, DeviceVoice: "Alex",
		Hosted: HostedVoice{ID: "pNInz6obpgDQGcFmaJgB", Name: "Adam", Description: "Professional narrator voice"},
	},
	{
		Label: "Hero", Category: Hero,
		Pitch: 1.4, Rate: 1.1, Volume: 1.0, DeviceVoice: "Daniel",
		Hosted: HostedVoice{ID: "ErXwobaYiN019PkySvjV", Name: "Antoni", Description: "Confident hero voice"},
	},
	{
		Label: "Villain", Category: Villain,
		Pitch: 0.6, Rate: 0.7, Volume: 1.0, DeviceVoice: "Fred",
		Hosted: HostedVoice{ID: "VR6AewLTigWG4xSOukaG", Name: "Arnold", Description: "Deep, menacing voice"},
	},
	{
		Label: "Child", Category: Child,
		Pitch: 1.8, Rate: 1.2, Volume: 1.0, DeviceVoice: "Princess",
		Hosted: HostedVoice{ID: "XB0fDUnXU5powFXDhCwa", Name: "Charlotte", Description: "Young, energetic voice"},
	},
	{
		Label: "Elder", Category: Elder,
		Pitch: 0.7, Rate: 0.6, Volume: 0.9, DeviceVoice: "Ralph",
		Hosted: HostedVoice{ID: "IKne3meq5aSn9XLyUdCD", Name: "Charlie", Description: "Wise, elderly voice"},
	},
}

// Profile returns the fixed profile for c. Out-of-range values fold back
// into the table so the mapping stays total.
func Profile(c VoiceCategory) VoiceProfile {
	i := int(c) % categoryCount
	if i < 0 {
		i += categoryCount
	}
	return profiles[i]
}

// Profiles returns a copy of the voice table in category order.
func Profiles() []VoiceProfile {
	out := make([]VoiceProfile, categoryCount)
	copy(out, profiles[:])
	return out
}
