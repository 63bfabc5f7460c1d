package http

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/clubdesk/formflow"
	"github.com/clubdesk/formflow/internal/logging"
	"github.com/clubdesk/formflow/pkg/adapters/memory"
	"github.com/clubdesk/formflow/pkg/registry"
	"github.com/clubdesk/formflow/pkg/runner"
	"github.com/clubdesk/formflow/pkg/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// globalTopic is the stream key for definition reload events.
const globalTopic = ""

// Server serves wizard sessions over HTTP.
type Server struct {
	Sessions  *session.Manager
	Streams   *StreamManager
	Sanitizer runner.Sanitizer
	Logger    *slog.Logger
	Version   string

	registry *registry.Registry
	gatherer prometheus.Gatherer
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger. The default logs JSON to stderr.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.Logger = logger
	}
}

// WithMetrics exposes the gatherer on /metrics.
func WithMetrics(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithMaxInputSize limits the size of each submitted text value.
func WithMaxInputSize(size int) Option {
	return func(s *Server) {
		s.Sanitizer = runner.Sanitizer{MaxSize: size}
	}
}

// WithVersion sets the version reported by /info.
func WithVersion(v string) Option {
	return func(s *Server) {
		s.Version = v
	}
}

// NewServer creates a server for the wizards of reg. Sessions are kept in
// sessions; a nil manager falls back to an in-memory store.
func NewServer(reg *registry.Registry, sessions *session.Manager, opts ...Option) *Server {
	s := &Server{
		Sessions: sessions,
		Streams:  NewStreamManager(),
		Version:  formflow.Version,
		registry: reg,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.Logger == nil {
		s.Logger = logging.NewJSON(os.Stderr, slog.LevelInfo)
	}
	if s.Sessions == nil {
		s.Sessions = session.NewManager(memory.NewStore(), session.WithLogger(s.Logger))
	}
	s.Streams.logger = s.Logger
	return s
}

// NewHandler creates the HTTP handler for the wizards of reg.
func NewHandler(reg *registry.Registry, sessions *session.Manager, opts ...Option) (http.Handler, error) {
	return NewServer(reg, sessions, opts...).Handler()
}

// Handler builds the router. Requests matching the OpenAPI document are
// validated against it before reaching a handler.
func (s *Server) Handler() (http.Handler, error) {
	validate, err := newRequestValidator()
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)
	r.Use(validate.middleware(s.Logger))

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		_, _ = w.Write(openapiSpec)
	})
	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(swaggerHTML))
	})
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Get("/health", s.health)
	r.Get("/info", s.info)
	r.Get("/events", s.definitionEvents)

	r.Get("/wizards", s.listWizards)
	r.Route("/wizards/{wizardId}", func(r chi.Router) {
		r.Get("/", s.getWizard)
		r.Post("/sessions", s.createSession)
	})

	r.Route("/sessions/{sessionId}", func(r chi.Router) {
		r.Get("/", s.getSession)
		r.Delete("/", s.deleteSession)
		r.Patch("/fields", s.setFields)
		r.Post("/next", s.nextStep)
		r.Post("/back", s.previousStep)
		r.Post("/submit", s.submit)
		r.Get("/events", s.sessionEvents)
	})
	return r, nil
}

// WatchDefinitions drops cached engines and notifies /events subscribers
// whenever the definitions change. It blocks until ctx is done and returns
// formflow.ErrNotWatchable when the loader cannot be watched.
func (s *Server) WatchDefinitions(ctx context.Context) error {
	return s.registry.Watch(ctx, func() {
		s.Logger.Info("definitions reloaded")
		s.Streams.Broadcast(globalTopic, "reload")
	})
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

const swaggerHTML = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>formflow API</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui.css" />
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui-bundle.js" crossorigin></script>
<script>
    window.onload = () => {
    window.ui = SwaggerUIBundle({
        url: '/openapi.yaml',
        dom_id: '#swagger-ui',
    });
    };
</script>
</body>
</html>
`
