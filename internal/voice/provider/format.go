package provider

import (
	"fmt"
	"sort"
	"strings"
)

// DefaultFormat is requested when no format is configured.
const DefaultFormat = "mp3"

// AudioFormat describes how audio in one output format is stored and served.
type AudioFormat struct {
	Name        string
	Extension   string
	ContentType string
	// Joinable streams are made of self-delimiting frames, so clips can be
	// appended byte for byte and still play as one file.
	Joinable bool
}

var audioFormats = map[string]AudioFormat{
	"mp3":  {Name: "mp3", Extension: "mp3", ContentType: "audio/mpeg", Joinable: true},
	"wav":  {Name: "wav", Extension: "wav", ContentType: "audio/wav"},
	"pcm":  {Name: "pcm", Extension: "pcm", ContentType: "audio/L16"},
	"ogg":  {Name: "ogg", Extension: "ogg", ContentType: "audio/ogg"},
	"opus": {Name: "opus", Extension: "opus", ContentType: "audio/ogg"},
	"aac":  {Name: "aac", Extension: "aac", ContentType: "audio/aac"},
	"flac": {Name: "flac", Extension: "flac", ContentType: "audio/flac"},
}

// LookupFormat returns the format named name. An empty name is the default.
func LookupFormat(name string) (AudioFormat, error) {
	name = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), "."))
	if name == "" {
		name = DefaultFormat
	}
	f, ok := audioFormats[name]
	if !ok {
		return AudioFormat{}, fmt.Errorf("unsupported audio format %q (supported: %s)", name, strings.Join(Formats(), ", "))
	}
	return f, nil
}

// Formats returns the supported format names, sorted.
func Formats() []string {
	names := make([]string, 0, len(audioFormats))
	for name := range audioFormats {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
