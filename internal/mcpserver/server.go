// Package mcpserver exposes story parsing and voice assignment as Model
// Context Protocol tools over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog/log"

	"github.com/daikw/storyvoice/internal/audiobook"
	"github.com/daikw/storyvoice/internal/story"
)

// Generator produces a story from a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (*story.Generated, error)
}

// Tools holds the state shared by tool handlers.
type Tools struct {
	generator Generator
	voices    audiobook.VoiceTable
}

// NewTools creates the tool set. generator may be nil, in which case the
// generate_story tool is not registered.
func NewTools(generator Generator, voices audiobook.VoiceTable) *Tools {
	return &Tools{generator: generator, voices: voices}
}

// NewServer registers every tool on a new MCP server.
func NewServer(version string, t *Tools) *server.MCPServer {
	s := server.NewMCPServer("storyvoice", version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)

	s.AddTool(mcp.NewTool("parse_story",
		mcp.WithDescription("Split a story into attributed dialogue segments and assign a voice archetype to every character"),
		mcp.WithString("story", mcp.Required(), mcp.Description("Story text, one line per utterance")),
		mcp.WithString("characters", mcp.Description("Comma-separated character names; defaults to the CHARACTERS: line")),
	), t.ParseStory)

	s.AddTool(mcp.NewTool("character_voice",
		mcp.WithDescription("Show the voice archetype and synthesis parameters for a character name"),
		mcp.WithString("name", mcp.Required(), mcp.Description("Character name")),
	), t.CharacterVoice)

	s.AddTool(mcp.NewTool("voice_table",
		mcp.WithDescription("List the five voice archetypes with device and hosted voices"),
	), t.VoiceTable)

	s.AddTool(mcp.NewTool("story_script",
		mcp.WithDescription("Render a story as a plain-text script with one attributed line per segment"),
		mcp.WithString("story", mcp.Required(), mcp.Description("Story text")),
		mcp.WithString("characters", mcp.Description("Comma-separated character names")),
	), t.Script)

	if t.generator != nil {
		s.AddTool(mcp.NewTool("generate_story",
			mcp.WithDescription("Generate a short multi-character story with dialogue"),
			mcp.WithString("prompt", mcp.Required(), mcp.Description("What the story should be about")),
		), t.GenerateStory)
	}

	return s
}

// Serve runs the server on stdin/stdout until the client disconnects.
func Serve(s *server.MCPServer) error {
	log.Debug().Msg("Serving MCP over stdio")
	return server.ServeStdio(s)
}

func storyArgs(req mcp.CallToolRequest) (string, []string, error) {
	text, err := req.RequireString("story")
	if err != nil {
		return "", nil, err
	}
	var characters []string
	if gen, err := story.ParseGenerated(text); err == nil {
		text = gen.Story
		characters = gen.Characters
	}
	if names := req.GetString("characters", ""); names != "" {
		characters = characters[:0]
		for _, name := range strings.Split(names, ",") {
			if name = strings.TrimSpace(name); name != "" {
				characters = append(characters, name)
			}
		}
	}
	return text, characters, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

// ParseStory handles parse_story.
func (t *Tools) ParseStory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, characters, err := storyArgs(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	segments := story.SegmentStory(text, characters)
	if segments == nil {
		segments = []story.Segment{}
	}
	return jsonResult(map[string]any{
		"segments": segments,
		"voices":   story.AssignVoices(characters),
		"speakers": story.SpeakerCounts(segments),
	})
}

// CharacterVoice handles character_voice.
func (t *Tools) CharacterVoice(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	idx := story.CharacterIndex(name)
	p := story.Profile(story.VoiceCategory(idx))
	return jsonResult(map[string]any{
		"name":        name,
		"index":       idx,
		"profile":     p,
		"hostedVoice": t.voices.Voice(p.Category),
	})
}

// VoiceTable handles voice_table.
func (t *Tools) VoiceTable(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(t.voices.Table())
}

// Script handles story_script.
func (t *Tools) Script(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, characters, err := storyArgs(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(story.Script(story.SegmentStory(text, characters))), nil
}

// GenerateStory handles generate_story.
func (t *Tools) GenerateStory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	prompt, err := req.RequireString("prompt")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	gen, err := t.generator.Generate(ctx, prompt)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to generate story: %v", err)), nil
	}
	return jsonResult(gen)
}
