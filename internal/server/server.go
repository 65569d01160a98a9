package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	sentryhttp "github.com/getsentry/sentry-go/http"
	sentryzerolog "github.com/getsentry/sentry-go/zerolog"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"go.uber.org/fx"

	"github.com/sweetshop/console/internal/shared/config"
	"github.com/sweetshop/console/internal/shared/cookie"
	"github.com/sweetshop/console/internal/shared/middleware"
	"github.com/sweetshop/console/internal/shared/session"
)

type (
	// Server represents the HTTP server with all dependencies
	Server struct {
		server       *http.Server
		config       *config.Config
		logger       zerolog.Logger
		sessions     *session.Store
		sentryWriter *sentryzerolog.Writer
	}

	params struct {
		fx.In

		Config        *config.Config
		Logger        zerolog.Logger
		Sessions      *session.Store
		HealthHandler http.HandlerFunc
		SentryWriter  *sentryzerolog.Writer
		AuthRouter    chi.Router `name:"authRouter"`
		AdminRouter   chi.Router `name:"adminRouter"`
		ShopRouter    chi.Router `name:"shopRouter"`
	}
)

func NewServer(p params) (*Server, error) {
	r := chi.NewRouter()

	if p.Config.IsEnvProd() {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:              p.Config.SentryDSN,
			Environment:      p.Config.Environment,
			Release:          p.Config.Version,
			AttachStacktrace: true,
			SendDefaultPII:   true,
			EnableTracing:    true,
			TracesSampler: sentry.TracesSampler(func(ctx sentry.SamplingContext) float64 {
				if ctx.Span.Name == "GET /health" {
					return 0.0
				}
				return 1.0
			}),
		})
		if err != nil {
			p.Logger.Error().Err(err).Msg("Failed to initialize Sentry")
		} else {
			p.Logger.Debug().Str("environment", p.Config.Environment).Msg("Sentry initialized")
		}

		sentryHandler := sentryhttp.New(sentryhttp.Options{})

		// Recover only in prod
		r.Use(sentryHandler.Handle)
	}

	secret, err := p.Config.Secret()
	if err != nil {
		return nil, err
	}

	// Middleware
	r.Use(hlog.NewHandler(p.Logger))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Str("url", r.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("HTTP request")
	}))
	r.Use(hlog.RequestIDHandler("req_id", "Request-Id"))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.NewSessionLoader(p.Sessions, secret))

	srv := &Server{
		config:       p.Config,
		logger:       p.Logger,
		sessions:     p.Sessions,
		sentryWriter: p.SentryWriter,
	}

	// Routes
	r.Get("/health", p.HealthHandler)

	r.Get("/", srv.routeByRole)
	r.Post("/logout", srv.handleLogout)

	r.Mount("/login", p.AuthRouter)
	r.With(middleware.RequireAdmin).Mount("/admin", p.AdminRouter)
	r.With(middleware.RequireAuth).Mount("/shop", p.ShopRouter)

	srv.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", p.Config.Port),
		Handler: r,
	}

	return srv, nil
}

// routeByRole picks the top-level view for the session: anonymous browsers
// get the login page, admins the admin dashboard, everyone else the shop.
func (s *Server) routeByRole(w http.ResponseWriter, r *http.Request) {
	sess := middleware.FromContext(r.Context())
	switch {
	case !sess.IsAuthenticated():
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	case sess.IsAdmin():
		http.Redirect(w, r, "/admin", http.StatusSeeOther)
	default:
		http.Redirect(w, r, "/shop", http.StatusSeeOther)
	}
}

// handleLogout clears the session locally and expires the cookie. No call is
// made upstream; the token is simply abandoned.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if sess := middleware.FromContext(r.Context()); sess != nil {
		s.sessions.Clear(sess.ID)
	}
	cookie.ClearCookie(w)

	w.Header().Set("HX-Redirect", "/login")
	w.WriteHeader(http.StatusOK)
}

func Register(lc fx.Lifecycle, s *Server) {
	lc.Append(fx.Hook{
		OnStart: s.start,
		OnStop:  s.stop,
	})
}

// start starts the HTTP server
func (s *Server) start(_ context.Context) error {
	s.logger.Info().
		Str("addr", s.server.Addr).
		Str("environment", s.config.Environment).
		Str("backend_url", s.config.BackendURL).
		Bool("sentry_enabled", s.config.IsEnvProd()).
		Msg("Starting HTTP server")
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("Server failed to start")
		}
	}()

	s.logger.Info().Msg("HTTP server started")
	return nil
}

// stop gracefully shuts down the HTTP server
func (s *Server) stop(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	s.logger.Info().Msg("Shutting down HTTP server...")

	if s.config.IsEnvProd() {
		s.logger.Info().Msg("Flushing Sentry client and writer")
		if s.sentryWriter != nil {
			s.sentryWriter.Close()
		}
		sentry.Flush(2 * time.Second)
	}

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		s.logger.Error().Err(err).Msg("Error during server shutdown")
		return err
	}

	s.logger.Info().Msg("HTTP server shutdown completed")
	return nil
}
