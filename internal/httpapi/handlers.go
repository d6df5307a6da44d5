package httpapi

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/daikw/storyvoice/internal/audiobook"
	"github.com/daikw/storyvoice/internal/llm"
	"github.com/daikw/storyvoice/internal/story"
	"github.com/daikw/storyvoice/internal/voice/provider"
)

type generateStoryRequest struct {
	Prompt string `json:"prompt"`
}

type generateStoryResponse struct {
	Success bool `json:"success"`
	*story.Generated
}

func (s *Server) handleGenerateStory(w http.ResponseWriter, r *http.Request) {
	limitBody(w, r)
	var req generateStoryRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		respondError(w, http.StatusBadRequest, "Prompt is required")
		return
	}
	if s.generator == nil {
		respondError(w, http.StatusInternalServerError, "Groq API key not configured. Please add GROQ_API_KEY to your environment or config file.")
		return
	}

	gen, err := s.generator.Generate(r.Context(), req.Prompt)
	switch {
	case errors.Is(err, llm.ErrMissingAPIKey):
		respondError(w, http.StatusInternalServerError, "Groq API key not configured. Please add GROQ_API_KEY to your environment or config file.")
		return
	case errors.Is(err, llm.ErrEmptyPrompt):
		respondError(w, http.StatusBadRequest, "Prompt is required")
		return
	case err != nil:
		log.Error().Err(err).Msg("Story generation failed")
		respondJSON(w, http.StatusInternalServerError, errorResponse{
			Error:      "Failed to generate story",
			Message:    err.Error(),
			Suggestion: "Please check your Groq API key and try again.",
		})
		return
	}

	if s.metrics != nil {
		s.metrics.StoriesGenerated.WithLabelValues(gen.Model).Inc()
	}
	respondJSON(w, http.StatusOK, generateStoryResponse{Success: true, Generated: gen})
}

type generateVoiceRequest struct {
	Text      string `json:"text"`
	Character string `json:"character"`
	VoiceID   string `json:"voiceId"`
}

type generateVoiceResponse struct {
	Success   bool   `json:"success"`
	Character string `json:"character"`
	AudioData string `json:"audioData"`
	AudioSize int    `json:"audioSize"`
	Format    string `json:"format"`
}

func (s *Server) handleGenerateVoice(w http.ResponseWriter, r *http.Request) {
	limitBody(w, r)
	var req generateVoiceRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Text) == "" || strings.TrimSpace(req.VoiceID) == "" {
		respondError(w, http.StatusBadRequest, "Text and voiceId are required")
		return
	}
	if s.builder == nil {
		respondError(w, http.StatusInternalServerError, s.notConfigured())
		return
	}

	clip, err := s.builder.Synthesize(r.Context(), req.Character, req.Text, req.VoiceID)
	if err != nil {
		s.respondSynthesisError(w, err, "Failed to generate AI voice")
		return
	}

	log.Info().
		Str("character", req.Character).
		Int("bytes", len(clip.Audio)).
		Msg("Voice generated")

	respondJSON(w, http.StatusOK, generateVoiceResponse{
		Success:   true,
		Character: req.Character,
		AudioData: base64.StdEncoding.EncodeToString(clip.Audio),
		AudioSize: len(clip.Audio),
		Format:    s.builder.Format(),
	})
}

// respondSynthesisError maps provider failures to status codes: auth and
// quota errors keep their code, everything else is a 500.
func (s *Server) respondSynthesisError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, provider.ErrInvalidAPIKey):
		respondError(w, http.StatusUnauthorized, fmt.Sprintf("Invalid %s API key", s.providerLabel()))
	case errors.Is(err, provider.ErrQuotaExceeded):
		respondError(w, http.StatusTooManyRequests, fmt.Sprintf("%s quota exceeded. Try again later or upgrade plan.", s.providerLabel()))
	default:
		log.Error().Err(err).Msg(fallback)
		respondJSON(w, http.StatusInternalServerError, errorResponse{Error: fallback, Message: err.Error()})
	}
}

type parseStoryRequest struct {
	Story      string   `json:"story"`
	Characters []string `json:"characters"`
	Title      string   `json:"title,omitempty"`
}

type parseStoryResponse struct {
	Segments []story.Segment        `json:"segments"`
	Voices   *story.VoiceAssignment `json:"voices"`
	Speakers map[string]int         `json:"speakers"`
	Script   string                 `json:"script"`
}

// parse decodes a story request and splits it into segments. It writes the
// error response itself and reports ok=false when the request is unusable.
func (s *Server) parse(w http.ResponseWriter, r *http.Request) (parseStoryRequest, []story.Segment, *story.VoiceAssignment, bool) {
	limitBody(w, r)
	var req parseStoryRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return req, nil, nil, false
	}
	if strings.TrimSpace(req.Story) == "" {
		respondError(w, http.StatusBadRequest, "Story is required")
		return req, nil, nil, false
	}

	segments := story.SegmentStory(req.Story, req.Characters)
	assignment := story.AssignVoices(req.Characters)

	if s.metrics != nil {
		s.metrics.StoriesParsed.Inc()
		for _, seg := range segments {
			s.metrics.Segments.WithLabelValues(assignment.Lookup(seg.Character).Category.String()).Inc()
		}
	}
	return req, segments, assignment, true
}

func (s *Server) handleParseStory(w http.ResponseWriter, r *http.Request) {
	_, segments, assignment, ok := s.parse(w, r)
	if !ok {
		return
	}
	if segments == nil {
		segments = []story.Segment{}
	}
	respondJSON(w, http.StatusOK, parseStoryResponse{
		Segments: segments,
		Voices:   assignment,
		Speakers: story.SpeakerCounts(segments),
		Script:   story.Script(segments),
	})
}

func (s *Server) handleAudiobook(w http.ResponseWriter, r *http.Request) {
	if s.builder == nil {
		respondError(w, http.StatusInternalServerError, s.notConfigured())
		return
	}
	req, segments, assignment, ok := s.parse(w, r)
	if !ok {
		return
	}
	if len(segments) == 0 {
		respondError(w, http.StatusBadRequest, "Story has no dialogue segments")
		return
	}
	if !s.builder.Joinable() {
		respondJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error:      fmt.Sprintf("Audio format %s cannot be combined into one file", s.builder.Format()),
			Suggestion: "Set the provider format to mp3 to download complete audiobooks.",
		})
		return
	}

	if s.metrics != nil {
		s.metrics.AudiobooksInFlight.Inc()
		defer s.metrics.AudiobooksInFlight.Dec()
	}

	book, err := s.builder.Build(r.Context(), segments, assignment, nil)
	if errors.Is(err, audiobook.ErrBusy) {
		respondError(w, http.StatusConflict, "Audiobook generation already in progress")
		return
	}
	if err != nil {
		s.respondSynthesisError(w, err, "Failed to generate audiobook")
		return
	}
	if len(book.Clips) == 0 {
		respondError(w, http.StatusBadGateway, "No audio was generated")
		return
	}

	audio, err := book.Join()
	if err != nil {
		respondJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to combine audio", Message: err.Error()})
		return
	}

	name := audiobook.FileName(req.Title, book.Format, s.now())
	w.Header().Set("Content-Type", book.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("X-Audiobook-Clips", fmt.Sprint(len(book.Clips)))
	w.Header().Set("X-Audiobook-Skipped", fmt.Sprint(len(book.Skipped)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(audio)
}

type voicesResponse struct {
	Provider string                 `json:"provider"`
	Voices   []audiobook.VoiceEntry `json:"voices"`
}

func (s *Server) handleListVoices(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, voicesResponse{
		Provider: s.providerName,
		Voices:   s.voices.Table(),
	})
}
