package http

import (
	stdhttp "net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"keywordtailor/app/internal/seo"
)

// Options configures the HTTP server wiring.
type Options struct {
	Service      seo.Service
	Logger       *logrus.Logger
	SentryHub    *sentry.Hub
	RateLimiter  RateLimiterSettings
	CORSOrigins  []string
	Provider     string
	KeywordModel string
	BlogModel    string
}

// RateLimiterSettings configures the HTTP rate limiter behaviour.
type RateLimiterSettings struct {
	RequestsPerSecond float64
	Burst             int
	ClientTTL         time.Duration
}

// Server wires the HTTP transport layer via Huma and templ components.
type Server struct {
	api          huma.API
	mux          *stdhttp.ServeMux
	handler      stdhttp.Handler
	service      seo.Service
	logger       *logrus.Logger
	sentry       *sentry.Hub
	rateLimiter  *RateLimiter
	provider     string
	keywordModel string
	blogModel    string
}

// NewServer constructs the HTTP server.
func NewServer(opts Options) (*Server, error) {
	if opts.Service == nil {
		return nil, eris.New("keyword service is required")
	}

	mux := stdhttp.NewServeMux()
	config := huma.DefaultConfig("Keyword Tailor", "1.0.0")
	config.Info.Description = "Long-tail keyword suggestions, refinement, summaries and SEO blog posts."

	api := humago.New(mux, config)

	srv := &Server{
		api:          api,
		mux:          mux,
		service:      opts.Service,
		logger:       opts.Logger,
		sentry:       opts.SentryHub,
		provider:     opts.Provider,
		keywordModel: opts.KeywordModel,
		blogModel:    opts.BlogModel,
	}

	settings := opts.RateLimiter
	if settings.Burst <= 0 {
		return nil, eris.New("rate limiter burst must be greater than zero")
	}
	if settings.RequestsPerSecond <= 0 {
		return nil, eris.New("rate limiter requests per second must be greater than zero")
	}
	if settings.ClientTTL <= 0 {
		return nil, eris.New("rate limiter client TTL must be greater than zero")
	}

	srv.rateLimiter = NewRateLimiter(settings)

	srv.registerMiddlewares()
	srv.registerRoutes()

	srv.handler = mux
	if len(opts.CORSOrigins) > 0 {
		srv.handler = cors.New(cors.Options{
			AllowedOrigins: opts.CORSOrigins,
			AllowedMethods: []string{stdhttp.MethodGet, stdhttp.MethodPost, stdhttp.MethodOptions},
			AllowedHeaders: []string{"Content-Type"},
			ExposedHeaders: []string{"X-Request-ID", "Retry-After"},
		}).Handler(mux)
	}

	return srv, nil
}

// Handler exposes the underlying HTTP handler for wiring into the application.
func (s *Server) Handler() stdhttp.Handler {
	return s.handler
}

func (s *Server) registerMiddlewares() {
	s.api.UseMiddleware(
		s.sentryMiddleware(),
		s.recoveryMiddleware(),
		s.requestIDMiddleware(),
		s.rateLimitMiddleware(),
		s.loggingMiddleware(),
	)
}

func (s *Server) registerRoutes() {
	s.registerHomeRoute()
	s.registerKeywordRoutes()
	s.registerBlogPostRoute()
	s.registerHealthRoute()
}

// Close releases background resources held by the server.
func (s *Server) Close() {
	if s.rateLimiter != nil {
		s.rateLimiter.Close()
	}
}

func (s *Server) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	s.handler.ServeHTTP(w, r)
}
