package main

import (
	"net/http"
	"time"

	"github.com/diewo77/go-quotes/auth"
	"github.com/diewo77/go-quotes/httpx"
	"github.com/diewo77/go-quotes/internal/handlers"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// App is the main application handler that sets up all routes.
type App struct {
	mux      *http.ServeMux
	sessions *auth.Sessions
	log      zerolog.Logger
}

// Deps are the collaborators the routes are built from.
type Deps struct {
	Quotes   handlers.QuoteStore
	Auth     *handlers.AuthHandler
	Sessions *auth.Sessions
	Registry *prometheus.Registry
	Log      zerolog.Logger
}

// NewApp creates a new application with all routes configured.
func NewApp(d Deps) *App {
	app := &App{
		mux:      http.NewServeMux(),
		sessions: d.Sessions,
		log:      d.Log,
	}
	app.setupRoutes(d)
	return app
}

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	withLogging(a.log, a.sessions.Middleware(a.mux)).ServeHTTP(w, r)
}

func (a *App) setupRoutes(d Deps) {
	// Public routes
	a.mux.HandleFunc("GET /health", health)
	a.mux.Handle("GET /metrics", promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{}))
	a.mux.HandleFunc("POST /auth/signup", d.Auth.Signup)
	a.mux.HandleFunc("POST /auth/login", d.Auth.Login)
	a.mux.HandleFunc("POST /auth/logout", d.Auth.Logout)

	// Quotes are owner-scoped; ownership itself is enforced by the service gate.
	handlers.NewQuoteHandler(d.Quotes, d.Log).Register(a.mux, a.sessions.RequireAuth)
}

func health(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// withLogging tags each request with an id and logs it once served.
func withLogging(log zerolog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", reqID)

		l := log.With().Str("request_id", reqID).Logger()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(l.WithContext(r.Context())))

		l.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}
