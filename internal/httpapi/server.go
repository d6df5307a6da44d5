package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/daikw/storyvoice/internal/audiobook"
	"github.com/daikw/storyvoice/internal/observability"
	"github.com/daikw/storyvoice/internal/story"
)

const maxBodyBytes = 1 << 20

var errEmptyBody = errors.New("empty request body")

// StoryGenerator produces a story from a prompt.
type StoryGenerator interface {
	Generate(ctx context.Context, prompt string) (*story.Generated, error)
}

type Server struct {
	providerName string
	generator    StoryGenerator
	builder      *audiobook.Builder
	voices       audiobook.VoiceTable
	metrics      *observability.Metrics
	now          func() time.Time
}

// New creates the API server. builder is nil when no hosted provider is
// configured; the synthesis endpoints then answer 500.
func New(providerName string, generator StoryGenerator, builder *audiobook.Builder, metrics *observability.Metrics) *Server {
	voices := audiobook.HostedVoices(providerName, nil)
	if builder != nil {
		voices = builder.Voices()
	}
	return &Server{
		providerName: providerName,
		generator:    generator,
		builder:      builder,
		voices:       voices,
		metrics:      metrics,
		now:          time.Now,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/healthz", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/generate-story", s.handleGenerateStory)
		r.Post("/generate-ai-voice", s.handleGenerateVoice)
		r.Post("/parse-story", s.handleParseStory)
		r.Post("/audiobook", s.handleAudiobook)
		r.Get("/voices", s.handleListVoices)
	})

	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := middleware.GetReqID(r.Context())
		w.Header().Set(middleware.RequestIDHeader, requestID)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		if s.metrics != nil {
			s.metrics.ObserveRequest(route, status)
		}

		log.Debug().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("route", route).
			Int("status", status).
			Dur("elapsed", time.Since(start)).
			Msg("HTTP request")
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":          "ok",
		"provider":        s.providerName,
		"hostedVoice":     s.builder != nil,
		"storyGeneration": s.generator != nil,
	})
}

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorResponse is the error body shared by every endpoint.
type errorResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, errorResponse{Error: msg})
}

func (s *Server) providerLabel() string {
	switch s.providerName {
	case "elevenlabs", "":
		return "ElevenLabs"
	case "openai":
		return "OpenAI"
	case "polly":
		return "Amazon Polly"
	case "gcp":
		return "Google Cloud"
	default:
		return s.providerName
	}
}

func (s *Server) notConfigured() string {
	return fmt.Sprintf("%s API key not configured", s.providerLabel())
}

func limitBody(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
}
