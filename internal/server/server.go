package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/PDPyeh/AeroCatalog-103-C/internal/handler"
	"github.com/PDPyeh/AeroCatalog-103-C/internal/model"
	"github.com/PDPyeh/AeroCatalog-103-C/internal/openapi"
	"github.com/PDPyeh/AeroCatalog-103-C/internal/server/middleware"
	"github.com/PDPyeh/AeroCatalog-103-C/internal/service"
	"github.com/PDPyeh/AeroCatalog-103-C/internal/store"
)

// Config holds the HTTP server configuration.
type Config struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration
	CORSOrigins     []string
	MaxBodySize     int64  // bytes; zero disables the limit
	APIKeyHeader    string // header carrying developer API keys
	LoginPerMinute  int    // per client IP on login and register
	ChatPerMinute   int    // per API key on the chat routes
	Version         string
}

// DefaultConfig returns a Config with sensible production defaults.
func DefaultConfig() Config {
	return Config{
		Host:            "0.0.0.0",
		Port:            5000,
		ShutdownTimeout: 30 * time.Second,
		CORSOrigins:     []string{"*"},
		MaxBodySize:     1 << 20,
		APIKeyHeader:    "x-api-key",
		LoginPerMinute:  10,
		ChatPerMinute:   30,
		Version:         "dev",
	}
}

// Services bundles the domain services the routes are served by.
type Services struct {
	Store   *store.Store
	Auth    *service.AuthService
	Keys    *service.APIKeyService
	Chat    *service.ChatService
	Catalog *service.CatalogService
}

// Server is the top-level HTTP server for AeroCatalog. It owns the Chi
// router and the store, which it closes on shutdown.
type Server struct {
	cfg        Config
	router     chi.Router
	svc        Services
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a new Server, wires up all routes and middleware, and returns
// it ready to listen. Call ListenAndServe to start accepting connections.
func New(cfg Config, svc Services, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.APIKeyHeader == "" {
		cfg.APIKeyHeader = DefaultConfig().APIKeyHeader
	}
	s := &Server{cfg: cfg, svc: svc, logger: logger}
	if err := s.setupRouter(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Server) setupRouter() error {
	doc, err := openapi.Generate(openapi.Options{
		Version:   s.cfg.Version,
		ServerURL: "/api",
		KeyHeader: s.cfg.APIKeyHeader,
	})
	if err != nil {
		return fmt.Errorf("generate openapi document: %w", err)
	}

	sys, err := handler.NewSystemHandler(s.svc.Store, doc, s.cfg.Version, s.logger)
	if err != nil {
		return err
	}
	auth := handler.NewAuthHandler(s.svc.Auth, s.svc.Keys, s.logger)
	keys := handler.NewAPIKeyHandler(s.svc.Keys, s.logger)
	chat := handler.NewChatHandler(s.svc.Chat, s.logger)
	catalog := handler.NewCatalogHandler(s.svc.Catalog, s.logger)

	// --- Gate policies ---
	header := s.cfg.APIKeyHeader
	keyOnly := middleware.Authorize(middleware.KeyOnly(s.svc.Auth, header), s.logger)
	adminOrKey := middleware.Authorize(middleware.AdminOrKey(s.svc.Auth, s.svc.Auth, header), s.logger)
	tokenOnly := middleware.Authorize(middleware.TokenOnly(s.svc.Auth), s.logger)
	loginLimit := middleware.RateLimit(s.cfg.LoginPerMinute)

	r := chi.NewRouter()

	// --- Global middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(s.logger, "/api/health"))
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", header, "X-Requested-With", middleware.RequestIDHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader, "Retry-After"},
		MaxAge:         300,
	}))
	r.Use(chimw.Compress(5))
	if s.cfg.MaxBodySize > 0 {
		r.Use(chimw.RequestSize(s.cfg.MaxBodySize))
	}
	r.NotFound(handler.NotFound)
	r.MethodNotAllowed(handler.MethodNotAllowed)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", sys.Health)
		r.Get("/openapi.json", sys.OpenAPI)

		// Administrators
		r.Route("/auth", func(r chi.Router) {
			r.With(loginLimit).Post("/login", auth.AdminLogin)
			r.With(tokenOnly, middleware.RequireKind(model.KindAdmin)).Get("/me", auth.AdminMe)
		})

		// Developer accounts
		r.Route("/users", func(r chi.Router) {
			r.With(loginLimit).Post("/register", auth.Register)
			r.With(loginLimit).Post("/login", auth.UserLogin)
			r.Group(func(r chi.Router) {
				r.Use(tokenOnly, middleware.RequireKind(model.KindDeveloper))
				r.Get("/me", auth.UserMe)
				r.Put("/profile", auth.UpdateProfile)
			})
		})

		// Developer API keys
		r.Route("/api-keys", func(r chi.Router) {
			r.Use(tokenOnly, middleware.RequireKind(model.KindDeveloper))
			r.Post("/generate", keys.Generate)
			r.Get("/", keys.List)
			r.Delete("/{keyId}", keys.Revoke)
		})

		// Chatbot
		r.Route("/chat", func(r chi.Router) {
			r.Use(keyOnly, middleware.RateLimitByIdentity(s.cfg.ChatPerMinute))
			r.Post("/", chat.Send)
			r.Post("/sessions", chat.CreateSession)
			r.Get("/sessions", chat.ListSessions)
			r.Get("/sessions/{sessionId}/messages", chat.Messages)
			r.Delete("/sessions/{sessionId}", chat.DeleteSession)
		})

		// Catalog: public reads, gated writes
		r.Route("/manufacturers", func(r chi.Router) {
			r.Get("/", catalog.ListManufacturers)
			r.Get("/{id}", catalog.GetManufacturer)
			r.With(adminOrKey).Post("/", catalog.CreateManufacturer)
			r.With(adminOrKey).Put("/{id}", catalog.UpdateManufacturer)
			r.With(adminOrKey).Delete("/{id}", catalog.DeleteManufacturer)
		})
		r.Route("/categories", func(r chi.Router) {
			r.Get("/", catalog.ListCategories)
			r.Get("/{id}", catalog.GetCategory)
			r.With(adminOrKey).Post("/", catalog.CreateCategory)
			r.With(adminOrKey).Put("/{id}", catalog.UpdateCategory)
			r.With(adminOrKey).Delete("/{id}", catalog.DeleteCategory)
		})
		r.Route("/aircraft", func(r chi.Router) {
			r.Get("/", catalog.ListAircraft)
			r.Get("/{id}", catalog.GetAircraft)
			r.With(adminOrKey).Post("/", catalog.CreateAircraft)
			r.With(adminOrKey).Put("/{id}", catalog.UpdateAircraft)
			r.With(adminOrKey).Delete("/{id}", catalog.DeleteAircraft)
		})
	})

	s.router = r
	return nil
}

// ListenAndServe starts the HTTP server and blocks until a SIGINT or SIGTERM
// is received. It then performs a graceful shutdown, draining in-flight
// requests before closing the database.
func (s *Server) ListenAndServe() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return s.Run(ctx)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Chat turns wait on the inference endpoint.
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", addr, "driver", s.svc.Store.Driver())
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server listen: %w", err)
	case <-ctx.Done():
		s.logger.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	if err := s.svc.Store.Close(); err != nil {
		s.logger.Warn("closing database", "error", err)
	}
	s.logger.Info("server stopped")
	return nil
}

// Router returns the underlying Chi router, useful for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ServeHTTP implements http.Handler, delegating to the router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
