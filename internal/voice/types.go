package voice

import "errors"

var (
	// ErrNoVoices is returned when no speech engine is installed on the device.
	ErrNoVoices = errors.New("no speech engine available")
	// ErrNoPlayer is returned when no audio player command is installed.
	ErrNoPlayer = errors.New("no audio player found")
)

// DeviceVoice is one voice of the device speech inventory.
type DeviceVoice struct {
	// ID is the value passed to the engine's voice flag.
	ID       string `json:"id"`
	Name     string `json:"name"`
	Language string `json:"language"`
}

// Engine constants
const (
	EngineSay      = "say"
	EngineEspeakNG = "espeak-ng"
	EngineEspeak   = "espeak"
)

// Engine defaults
const (
	// baseWordsPerMinute is the engine speed at rate 1.0.
	baseWordsPerMinute = 175
	espeakBasePitch    = 50
	espeakMaxPitch     = 99
	espeakMaxAmplitude = 200
)
