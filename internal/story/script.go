package story

import "strings"

// ScriptTitle heads every exported script.
const ScriptTitle = "AI Generated Audiobook Script"

// Script renders segments as a plain-text transcript.
func Script(segments []Segment) string {
	var b strings.Builder
	b.WriteString(ScriptTitle)
	b.WriteString("\n")
	b.WriteString(strings.Repeat("=", 40))
	b.WriteString("\n\n")
	for _, seg := range segments {
		b.WriteString(seg.Character)
		b.WriteString(": ")
		b.WriteString(seg.Text)
		b.WriteString("\n\n")
	}
	return b.String()
}
