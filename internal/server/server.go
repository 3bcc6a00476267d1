// Package server is the composition root of the marketplace: it builds the
// store, the services and the handlers from a config.Config, mounts them on
// a chi router and runs the HTTP server with graceful shutdown.
//
// DEPENDENCY FLOW:
//
//	config → store (CSV or SQLite) ─┐
//	         catalog, photos, cache ─┼→ services → handlers → routes
//	         image search ──────────┘
//
// Handlers only see services; services only see repository interfaces.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/sakif/veiculos/internal/auth"
	"github.com/sakif/veiculos/internal/cache"
	"github.com/sakif/veiculos/internal/catalog"
	"github.com/sakif/veiculos/internal/config"
	"github.com/sakif/veiculos/internal/handler"
	"github.com/sakif/veiculos/internal/imagesearch"
	"github.com/sakif/veiculos/internal/middleware"
	"github.com/sakif/veiculos/internal/photos"
	"github.com/sakif/veiculos/internal/repository"
	"github.com/sakif/veiculos/internal/repository/csvfile"
	sqliteRepo "github.com/sakif/veiculos/internal/repository/sqlite"
	"github.com/sakif/veiculos/internal/service"
)

// shutdownTimeout is how long in-flight requests get to finish.
const shutdownTimeout = 30 * time.Second

// store is what both backends provide.
type store interface {
	repository.UserRepository
	repository.ListingRepository
	io.Closer
}

// Server owns the router and every resource that needs closing on
// shutdown: the store and the cache connection.
type Server struct {
	router  *chi.Mux
	config  *config.Config
	logger  *slog.Logger
	store   store
	cache   cache.Store
	metrics *middleware.Metrics
}

// New builds the whole dependency graph. Resources opened before a failure
// are closed again.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
	}

	var err error
	if s.store, err = openStore(cfg, logger); err != nil {
		return nil, err
	}
	s.cache = openCache(ctx, cfg, logger)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	s.metrics = middleware.NewMetrics(reg, reg)

	if err := s.setupRoutes(); err != nil {
		s.close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

func openStore(cfg *config.Config, logger *slog.Logger) (store, error) {
	switch cfg.StoreDriver {
	case config.DriverSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
		db, err := sqliteRepo.New(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("opening database: %w", err)
		}
		logger.Info("using SQLite store", slog.String("path", cfg.DBPath))
		return db, nil
	default:
		st, err := csvfile.New(csvfile.Config{
			UsersPath:    cfg.UsersPath(),
			ListingsPath: cfg.ListingsPath(),
			CacheTTL:     cfg.CacheTTL,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("opening CSV store: %w", err)
		}
		users, listings := st.Paths()
		logger.Info("using CSV store",
			slog.String("users", users),
			slog.String("listings", listings),
		)
		return st, nil
	}
}

// openCache connects to Redis when configured. An unreachable Redis is not
// fatal: lookups just go uncached across restarts, so fall back to memory.
func openCache(ctx context.Context, cfg *config.Config, logger *slog.Logger) cache.Store {
	if !cfg.UseRedis() {
		return cache.NewMemory()
	}

	r, err := cache.NewRedis(ctx, cache.RedisConfig{
		URL:      cfg.RedisURL,
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		logger.Warn("redis unavailable, using in-memory cache", slog.String("error", err.Error()))
		return cache.NewMemory()
	}
	logger.Info("using redis cache")
	return r
}

// setupRoutes wires services and handlers onto the router.
//
// MIDDLEWARE ORDER:
//  1. RequestID, RealIP: request correlation and client address
//  2. Logger, Metrics: see the final status of every request
//  3. Recoverer: turns a panic into a 500, which Logger and Metrics record
//  4. LoadSession: attach the cookie's session, if any
//
// /api requires a session and /api/admin an admin session.
func (s *Server) setupRoutes() error {
	cfg := s.config

	cat, err := catalog.Load(cfg.CatalogPath())
	if err != nil {
		return fmt.Errorf("loading catalog: %w", err)
	}
	if cat.Len() == 0 {
		s.logger.Warn("reference catalog is empty", slog.String("path", cfg.CatalogPath()))
	}

	photoStore, err := photos.NewStore(cfg.UploadDir, "/uploads", cfg.MaxUploadBytes())
	if err != nil {
		return err
	}

	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.SessionTTL)
	if err != nil {
		return err
	}
	passwords := auth.NewPasswordServiceWithCost(cfg.BcryptCost)

	imageOpts := []imagesearch.Option{
		imagesearch.WithCache(s.cache, cfg.ImageSearchCacheTTL),
		imagesearch.WithTimeout(cfg.ImageSearchTimeout),
	}
	if cfg.ImageSearchURL != "" {
		imageOpts = append(imageOpts, imagesearch.WithBaseURL(cfg.ImageSearchURL))
	}
	images := imagesearch.NewClient(cfg.ImageSearchAPIKey, cfg.ImageSearchCX, s.logger, imageOpts...)
	if !images.Enabled() {
		s.logger.Info("image search disabled: IMAGE_SEARCH_API_KEY or IMAGE_SEARCH_CX not set")
	}

	authService := service.NewAuthService(s.store, tokens, passwords, s.logger)
	catalogService := service.NewCatalogService(s.store, cat, s.logger)
	listingService := service.NewListingService(s.store, photoStore, images, s.logger)

	authHandler := handler.NewAuthHandler(authService, cfg.IsProduction(), s.logger)
	catalogHandler := handler.NewCatalogHandler(catalogService, photoStore, s.logger)
	adminHandler := handler.NewAdminHandler(listingService, photoStore, cfg.MaxUploadBytes(), s.logger)
	pageHandler, err := handler.NewPageHandler(cfg.TemplateDir, catalogService, photoStore, s.logger)
	if err != nil {
		return fmt.Errorf("creating page handler: %w", err)
	}

	r := s.router
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(s.logger))
	r.Use(s.metrics.Middleware)
	r.Use(chimiddleware.Recoverer)
	r.Use(auth.LoadSession(tokens))

	// === Ops ===
	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", s.metrics.Handler())

	// === Files ===
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir(cfg.StaticDir))))
	r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(photoStore.Dir()))))

	// === Pages ===
	r.Get("/", pageHandler.HandleCatalog)
	r.Get("/listings/{id}", pageHandler.HandleDetail)

	// === Auth ===
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.HandleRegister)
		r.Post("/login", authHandler.HandleLogin)
		r.Post("/logout", authHandler.HandleLogout)
	})

	// === API ===
	r.Route("/api", func(r chi.Router) {
		r.Use(auth.RequireSession)

		r.Get("/me", authHandler.HandleMe)
		r.Get("/catalog/types", catalogHandler.HandleTypes)
		r.Get("/catalog/options", catalogHandler.HandleOptions)
		r.Get("/listings", catalogHandler.HandleSearch)
		r.Get("/listings/{id}", catalogHandler.HandleGet)

		r.Route("/admin", func(r chi.Router) {
			r.Use(auth.RequireAdmin)

			r.Get("/listings", adminHandler.HandleList)
			r.Post("/listings", adminHandler.HandleCreate)
			r.Put("/listings", adminHandler.HandleUpdateBulk)
			r.Get("/listings/export.xlsx", adminHandler.HandleExport)
			r.Post("/listings/import", adminHandler.HandleImport)
			r.Patch("/listings/{id}/featured", adminHandler.HandleSetFeatured)
			r.Delete("/listings/{id}", adminHandler.HandleDelete)
			r.Get("/photo-lookup", adminHandler.HandlePhotoLookup)
		})
	})

	return nil
}

// handleHealth reports whether the store answers and the cache pings.
// A failing cache only degrades the answer; it never fails the check.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if _, err := s.store.List(r.Context()); err != nil {
		s.logger.Error("health check: store failed", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"unavailable"}`))
		return
	}

	status := "ok"
	if err := s.cache.Ping(r.Context()); err != nil {
		status = "degraded"
	}
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":%q}`, status)
}

// Handler exposes the router, for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs the server until SIGINT/SIGTERM, then shuts it down:
//  1. stop accepting connections
//  2. wait up to shutdownTimeout for in-flight requests
//  3. close the cache and the store
func (s *Server) Start() error {
	defer s.close()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second, // multipart uploads and workbook imports
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("env", s.config.Env),
			slog.String("store", s.config.StoreDriver),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}

func (s *Server) close() {
	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			s.logger.Warn("closing cache", slog.String("error", err.Error()))
		}
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Warn("closing store", slog.String("error", err.Error()))
		}
	}
}
