// Package server exposes the assistant and its memory over HTTP.
package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"

	"jarvis/internal/llm"
	"jarvis/internal/memory"
	"jarvis/internal/storage"
)

const maxUploadBytes = 32 << 20

type Assistant interface {
	Reply(ctx context.Context, message string, onDelta llm.DeltaFunc) (string, error)
	Model() string
}

type Memory interface {
	Stats() memory.Stats
	Search(query string) []storage.Interaction
	Clear() error
}

type Server struct {
	assistant   Assistant
	memory      Memory
	transcriber llm.Transcriber
	synthesizer llm.Synthesizer
	logger      logrus.FieldLogger

	addr   string
	server *http.Server
}

func New(addr string, assistant Assistant, mem Memory, transcriber llm.Transcriber, synthesizer llm.Synthesizer, logger logrus.FieldLogger) *Server {
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	return &Server{
		assistant:   assistant,
		memory:      mem,
		transcriber: transcriber,
		synthesizer: synthesizer,
		logger:      logger.WithField("component", "server"),
		addr:        addr,
	}
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	r.Post("/chat", s.handleChat)
	r.Post("/chat/json", s.handleChatJSON)
	r.Post("/transcribe", s.handleTranscribe)
	r.Post("/speak", s.handleSpeak)
	r.Get("/health", s.handleHealth)

	r.Route("/memory", func(r chi.Router) {
		r.Get("/stats", s.handleMemoryStats)
		r.Get("/search", s.handleMemorySearch)
		r.Delete("/", s.handleMemoryClear)
	})
	return r
}

// Start blocks serving HTTP until Stop is called.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 15 * time.Second,
		// completions are streamed, so writes may take a while
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}
	s.logger.Infof("listening on %s", s.addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.WithFields(logrus.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"duration":   time.Since(start).String(),
			"request_id": middleware.GetReqID(r.Context()),
		}).Debug("request served")
	})
}
