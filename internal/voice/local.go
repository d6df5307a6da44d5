package voice

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/daikw/storyvoice/internal/story"
)

const (
	inventoryAttempts   = 10
	inventoryRetryDelay = 200 * time.Millisecond
)

// engineOrder is the detection priority for device speech engines.
var engineOrder = []string{EngineSay, EngineEspeakNG, EngineEspeak}

// runFunc executes name with args, feeding stdin, and returns stdout.
type runFunc func(ctx context.Context, stdin string, name string, args ...string) ([]byte, error)

func execRun(ctx context.Context, stdin string, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return out, fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return out, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

// LocalEngine speaks text through the device speech command (macOS say or
// espeak). Each Speak call blocks until the utterance has finished.
type LocalEngine struct {
	command    string
	run        runFunc
	attempts   int
	retryDelay time.Duration

	mu     sync.Mutex
	voices []DeviceVoice
	loaded bool
}

// NewLocalEngine creates an engine for the given command
func NewLocalEngine(command string) *LocalEngine {
	return &LocalEngine{
		command:    command,
		run:        execRun,
		attempts:   inventoryAttempts,
		retryDelay: inventoryRetryDelay,
	}
}

// DetectLocalEngine returns an engine for the first installed speech command
func DetectLocalEngine() (*LocalEngine, error) {
	for _, name := range engineOrder {
		if isCommandAvailable(name) {
			log.Debug().Str("engine", name).Msg("Detected local speech engine")
			return NewLocalEngine(name), nil
		}
	}
	return nil, ErrNoVoices
}

// Name returns the engine command
func (e *LocalEngine) Name() string {
	return e.command
}

// Voices returns the device voice inventory. An empty list is retried a
// few times and then accepted; it is not an error.
func (e *LocalEngine) Voices(ctx context.Context) ([]DeviceVoice, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.loaded {
		return e.voices, nil
	}

	for attempt := 1; attempt <= e.attempts; attempt++ {
		voices, err := e.listVoices(ctx)
		if err != nil {
			return nil, err
		}

		log.Debug().Int("attempt", attempt).Int("voices", len(voices)).Msg("Loading device voices")

		if len(voices) > 0 {
			e.voices = voices
			e.loaded = true
			return voices, nil
		}

		if attempt < e.attempts {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(e.retryDelay):
			}
		}
	}

	log.Warn().Msg("No device voices loaded after maximum attempts")
	e.loaded = true
	return nil, nil
}

func (e *LocalEngine) listVoices(ctx context.Context) ([]DeviceVoice, error) {
	switch e.command {
	case EngineSay:
		out, err := e.run(ctx, "", e.command, "-v", "?")
		if err != nil {
			return nil, fmt.Errorf("failed to list voices: %w", err)
		}
		return parseSayVoices(out), nil
	default:
		out, err := e.run(ctx, "", e.command, "--voices")
		if err != nil {
			return nil, fmt.Errorf("failed to list voices: %w", err)
		}
		return parseEspeakVoices(out), nil
	}
}

// parseSayVoices reads `say -v ?` output:
//
//	Alex                en_US    # Most people recognize me by my voice.
func parseSayVoices(out []byte) []DeviceVoice {
	var voices []DeviceVoice
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := scanner.Text()
		if i := strings.Index(line, "#"); i >= 0 {
			line = line[:i]
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		lang := fields[len(fields)-1]
		name := strings.Join(fields[:len(fields)-1], " ")
		voices = append(voices, DeviceVoice{
			ID:       name,
			Name:     name,
			Language: strings.ReplaceAll(lang, "_", "-"),
		})
	}
	return voices
}

// parseEspeakVoices reads `espeak --voices` output:
//
//	Pty Language       Age/Gender VoiceName          File          Other Languages
//	 5  en-us           --/M      English_(America)  gmw/en-US     (en 10)
func parseEspeakVoices(out []byte) []DeviceVoice {
	var voices []DeviceVoice
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 4 || fields[0] == "Pty" {
			continue
		}
		voices = append(voices, DeviceVoice{
			ID:       fields[1],
			Name:     strings.ReplaceAll(fields[3], "_", " "),
			Language: fields[1],
		})
	}
	return voices
}

// Args returns the command line for speaking with profile and voice. The
// text itself is passed on stdin.
func (e *LocalEngine) Args(profile story.VoiceProfile, voiceID string) []string {
	rate := strconv.Itoa(int(math.Round(baseWordsPerMinute * profile.Rate)))

	switch e.command {
	case EngineSay:
		var args []string
		if voiceID != "" {
			args = append(args, "-v", voiceID)
		}
		return append(args, "-r", rate)
	default:
		pitch := clamp(int(math.Round(espeakBasePitch*profile.Pitch)), 0, espeakMaxPitch)
		amplitude := clamp(int(math.Round(100*profile.Volume)), 0, espeakMaxAmplitude)
		args := []string{
			"-p", strconv.Itoa(pitch),
			"-s", rate,
			"-a", strconv.Itoa(amplitude),
		}
		if voiceID != "" {
			args = append(args, "-v", voiceID)
		}
		return append(args, "--stdin")
	}
}

// Speak speaks text as character and blocks until playback ends. An empty
// inventory falls back to the engine's default voice.
func (e *LocalEngine) Speak(ctx context.Context, character, text string, profile story.VoiceProfile) error {
	voices, err := e.Voices(ctx)
	if err != nil {
		return err
	}

	var voiceID string
	if v, ok := SelectDeviceVoice(voices, profile.DeviceVoice, character); ok {
		voiceID = v.ID
	}

	args := e.Args(profile, voiceID)
	log.Debug().
		Str("engine", e.command).
		Str("character", character).
		Str("voice", voiceID).
		Strs("args", args).
		Msg("Speaking")

	if _, err := e.run(ctx, text, e.command, args...); err != nil {
		return fmt.Errorf("speech synthesis failed: %w", err)
	}
	return nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// isCommandAvailable checks if a command is available
func isCommandAvailable(cmd string) bool {
	_, err := exec.LookPath(cmd)
	return err == nil
}
