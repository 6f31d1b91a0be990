// Package server provides the HTTP REST API and event stream for the job
// application pipeline.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/jonathan/stashboard/internal/events"
	"github.com/jonathan/stashboard/internal/fetch"
	"github.com/jonathan/stashboard/internal/hoard"
	"github.com/jonathan/stashboard/internal/queue"
	"github.com/jonathan/stashboard/internal/server/ratelimit"
)

// ResumeGenerator produces free-form documents for a stored listing.
type ResumeGenerator interface {
	GenerateResume(ctx context.Context, company, jobTitle string) error
	GenerateCoverLetter(ctx context.Context, company, jobTitle string) error
}

// TemplateRenderer produces template-driven resumes for a stored listing.
type TemplateRenderer interface {
	GenerateResume(ctx context.Context, company, jobTitle string, templateNumber int) error
}

// Deps carries everything the API serves from.
type Deps struct {
	Store       *hoard.Store
	Broadcaster *events.Broadcaster
	JobQueue    *queue.JobQueue
	GenQueue    *queue.GenerationQueue
	Freeform    ResumeGenerator
	Templatized TemplateRenderer
	Fetcher     *fetch.CachedFetcher
	Logger      *zap.Logger
}

// Server is the HTTP front end.
type Server struct {
	httpServer  *http.Server
	deps        Deps
	validate    *validator.Validate
	rateLimiter *ratelimit.Limiter
	logger      *zap.Logger
}

// New creates a server listening on the given port.
func New(port int, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	s := &Server{
		deps:        deps,
		validate:    validator.New(),
		rateLimiter: ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		logger:      deps.Logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/events", s.handleEvents)
	mux.HandleFunc("GET /api/events-status", s.handleEventsStatus)
	mux.HandleFunc("GET /api/hoard", s.handleGetHoard)
	mux.HandleFunc("POST /api/jobs", s.handleEnqueueJob)
	mux.HandleFunc("GET /api/queue-status", s.handleQueueStatus)
	mux.HandleFunc("POST /api/ingest-url", s.handleIngestURL)
	mux.HandleFunc("DELETE /api/nut-note", s.handleDeleteNutNote)
	mux.HandleFunc("POST /api/collapse", s.handleCollapse)
	mux.HandleFunc("PUT /api/resume-version", s.handleEditResumeVersion)
	mux.HandleFunc("DELETE /api/resume-version", s.handleDeleteResumeVersion)
	mux.HandleFunc("PUT /api/cover-letter-version", s.handleEditCoverLetterVersion)
	mux.HandleFunc("DELETE /api/cover-letter-version", s.handleDeleteCoverLetterVersion)
	mux.HandleFunc("POST /api/generate-resume", s.handleGenerateResume)
	mux.HandleFunc("POST /api/generate-cover-letter", s.handleGenerateCoverLetter)
	mux.HandleFunc("GET /api/health", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:        fmt.Sprintf(":%d", port),
		Handler:     s.withRateLimit(s.withLogging(s.withCORS(mux))),
		ReadTimeout: 30 * time.Second,
		// Generation requests block on the LLM; the event stream is
		// open-ended. No write timeout.
		IdleTimeout: 60 * time.Second,
	}

	return s
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s.rateLimiter.Stop()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}

// Handler exposes the composed handler for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("duration", time.Since(start)))
	})
}

func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The event stream holds one long-lived request; limiting it
		// would count the connection against every later call.
		if r.URL.Path == "/api/events" {
			next.ServeHTTP(w, r)
			return
		}

		allowed, info := s.rateLimiter.Allow(clientID(r))
		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", info.Limit))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", info.Remaining))
		if !allowed {
			if info.RetryAfter > 0 {
				w.Header().Set("Retry-After", fmt.Sprintf("%d", int(info.RetryAfter.Seconds()+1)))
			}
			s.errorResponse(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
