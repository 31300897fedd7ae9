package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"eventbooking/internal/cache"
	"eventbooking/internal/clock"
	"eventbooking/internal/config"
	"eventbooking/internal/database"
	"eventbooking/internal/external"
	"eventbooking/internal/handlers"
	"eventbooking/internal/messaging"
	"eventbooking/internal/metrics"
	"eventbooking/internal/middleware"
	"eventbooking/internal/repository"
	"eventbooking/internal/search"
	"eventbooking/internal/service"
	"eventbooking/internal/sweeper"
)

// Server is the HTTP API together with the background sweeper it owns
type Server struct {
	router   *gin.Engine
	config   *config.Config
	db       *database.DB
	nats     *messaging.NATSClient
	valkey   *cache.ValkeyCache
	services *service.Services
	repos    *repository.Repositories
	sweeper  *sweeper.Sweeper
	registry *prometheus.Registry
}

// NewServer connects the configured backends and builds the router
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	gin.SetMode(cfg.GinMode)

	s := &Server{
		config:   cfg,
		registry: prometheus.NewRegistry(),
	}
	s.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	clk := clock.NewSystem()
	m := metrics.New(s.registry)

	if err := s.setupStorage(ctx, clk); err != nil {
		s.Cleanup()
		return nil, err
	}

	var publisher messaging.Publisher = messaging.Discard{}
	if cfg.NATSEnabled {
		nc, err := messaging.NewNATSClient(cfg.NATS)
		if err != nil {
			s.Cleanup()
			return nil, fmt.Errorf("connect to NATS: %w", err)
		}
		s.nats = nc
		publisher = nc
	}

	var upcomingCache cache.UpcomingCache = cache.NewMemoryCache(clk)
	if cfg.ValkeyEnabled {
		vc, err := cache.NewValkeyCache(ctx, cfg.Valkey)
		if err != nil {
			s.Cleanup()
			return nil, fmt.Errorf("connect to valkey: %w", err)
		}
		s.valkey = vc
		upcomingCache = vc
	}

	sweeperDeps := sweeper.Deps{
		Events:    s.repos.Events,
		Cache:     upcomingCache,
		Publisher: publisher,
		Clock:     clk,
		Metrics:   m,
	}
	serviceDeps := service.Deps{
		Repos:     s.repos,
		Artifacts: external.NewQRClient(cfg.QR),
		Publisher: publisher,
		Clock:     clk,
		Metrics:   m,
	}

	if cfg.Elasticsearch.Enabled {
		es, err := search.NewElasticsearchClient(ctx, cfg.Elasticsearch)
		if err != nil {
			// search falls back to storage; the API stays up
			slog.Error("Elasticsearch unavailable, search uses storage", "error", err)
		} else {
			sweeperDeps.Index = es
			serviceDeps.Index = es
		}
	}

	s.sweeper = sweeper.New(cfg.Sweeper, sweeperDeps)
	serviceDeps.Upcoming = s.sweeper
	s.services = service.NewServices(serviceDeps)

	if err := s.seedAdmin(ctx); err != nil {
		s.Cleanup()
		return nil, err
	}

	s.router = gin.New()
	s.router.Use(middleware.Recovery())
	s.router.Use(middleware.RequestID())
	s.router.Use(middleware.CORS())
	s.router.Use(middleware.Logger())
	s.router.Use(m.GinMiddleware())
	s.router.Use(middleware.Timeout(cfg.RequestTimeout))

	s.setupRoutes()

	return s, nil
}

func (s *Server) setupStorage(ctx context.Context, clk clock.Clock) error {
	switch s.config.StorageDriver {
	case config.StorageMemory:
		slog.Warn("Using in-memory storage, data is lost on restart")
		s.repos = repository.NewMemoryRepositories(repository.NewMemoryStore(clk))
		return nil
	case config.StoragePostgres:
		db, err := database.Connect(ctx, s.config.Database)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		s.db = db
		if err := db.RunMigrations(ctx); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
		s.repos = repository.NewRepositories(db)
		return nil
	default:
		return fmt.Errorf("unknown storage driver %q", s.config.StorageDriver)
	}
}

// seedAdmin creates the configured admin account if it is missing
func (s *Server) seedAdmin(ctx context.Context) error {
	if s.config.AdminEmail == "" || s.config.AdminPassword == "" {
		if s.config.StorageDriver == config.StorageMemory {
			slog.Warn("No ADMIN_EMAIL/ADMIN_PASSWORD set; accounts must be registered via POST /api/users")
		}
		return nil
	}

	created, err := s.services.Users.EnsureAdmin(ctx, s.config.AdminEmail, middleware.HashPassword(s.config.AdminPassword))
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	if created {
		slog.Info("Seeded admin account", "email", s.config.AdminEmail)
	}
	return nil
}

func (s *Server) setupRoutes() {
	h := handlers.NewHandlers(s.services)
	if s.config.JWTSecret != "" {
		h.WithTokens([]byte(s.config.JWTSecret), s.config.JWTTTL)
	}

	h.Register(s.router.Group("/api"), middleware.Auth(s.repos.Users, []byte(s.config.JWTSecret)))

	s.router.GET("/health", s.healthCheck)
	s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))
}

func (s *Server) healthCheck(c *gin.Context) {
	status := http.StatusOK
	body := gin.H{
		"status":  "ok",
		"service": "eventbooking-api",
		"storage": s.config.StorageDriver,
	}

	if s.db != nil {
		hc := s.db.HealthCheck(c.Request.Context())
		body["database"] = hc
		if hc.Status != "healthy" {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
		}
	}

	c.JSON(status, body)
}

// Handler returns the router, for http.Server and tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Sweeper returns the background sweeper; the caller runs it
func (s *Server) Sweeper() *sweeper.Sweeper {
	return s.sweeper
}

// Cleanup closes backend connections
func (s *Server) Cleanup() {
	if s.nats != nil {
		if err := s.nats.Close(); err != nil {
			slog.Error("Error closing NATS connection", "error", err)
		}
	}

	if s.valkey != nil {
		s.valkey.Close()
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			slog.Error("Error closing database connection", "error", err)
		}
	}
}
