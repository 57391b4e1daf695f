package server

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/webfuse/extbridge/internal/api/middleware"
	"github.com/webfuse/extbridge/internal/bridge"
	"github.com/webfuse/extbridge/internal/collab/accel"
	cookiestore "github.com/webfuse/extbridge/internal/collab/cookies"
	dlmanager "github.com/webfuse/extbridge/internal/collab/downloads"
	"github.com/webfuse/extbridge/internal/collab/notify"
	"github.com/webfuse/extbridge/internal/events"
	"github.com/webfuse/extbridge/internal/extension"
	"github.com/webfuse/extbridge/internal/infrastructure/config"
	"github.com/webfuse/extbridge/internal/infrastructure/logging"
	"github.com/webfuse/extbridge/internal/infrastructure/monitoring"
	"github.com/webfuse/extbridge/internal/providers/commands"
	"github.com/webfuse/extbridge/internal/providers/cookies"
	"github.com/webfuse/extbridge/internal/providers/downloads"
	"github.com/webfuse/extbridge/internal/providers/notifications"
	"github.com/webfuse/extbridge/internal/sandbox"
	"github.com/webfuse/extbridge/internal/types"
)

// Server wires the bridge, its collaborators, and the HTTP surface the
// embedding application talks to.
type Server struct {
	router     *gin.Engine
	bridge     *bridge.Bridge
	extensions *extension.Manager
	hub        *events.Hub
	accelHost  *accel.Host
	surface    *notify.Surface
	logger     *logging.Logger
	config     *config.Config
	metrics    *monitoring.Metrics
}

// NewServer creates a server instance with every collaborator wired
func NewServer(cfg *config.Config) (*Server, error) {
	var logger *logging.Logger
	if cfg.Logging.Development {
		logger = logging.NewDevelopment()
	} else {
		logger = logging.NewDefault()
	}

	logger.Info("Initializing extension bridge",
		zap.String("port", cfg.Server.Port),
		zap.String("downloads_dir", cfg.Downloads.Dir),
	)

	metrics := monitoring.NewMetrics()

	hub := events.NewHub(logger).WithMetrics(metrics)
	extensions := extension.NewManager(logger).WithMetrics(metrics)

	// Collaborators
	accelHost := accel.NewHost(logger)
	surface := notify.NewSurface(logger)
	store := cookiestore.NewStore()
	manager := dlmanager.NewManager(dlmanager.Config{
		Dir:         cfg.Downloads.Dir,
		Concurrency: cfg.Downloads.Concurrency,
	}, logger)

	evaluator, err := sandbox.NewEvaluator(sandbox.DefaultConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to build regex evaluator: %w", err)
	}

	// Namespace providers
	commandsProvider := commands.NewProvider(accelHost, hub, nil, logger)
	cookiesProvider := cookies.NewProvider(store, logger)
	downloadsProvider := downloads.NewProvider(manager, evaluator, logger)
	notificationsProvider := notifications.NewProvider(surface, hub, logger)

	// Host surfaces route activations back through the providers.
	accelHost.SetActivationHandler(commandsProvider.HandleAction)
	surface.SetActionHandler(notificationsProvider.HandleAction)

	// Manager signals fan out to every extension holding "downloads".
	downloadsProvider.BindEvents(extensions, hub)

	// Extension lifecycle drives command registration and event streams.
	extensions.OnLoad(commandsProvider.Setup)
	extensions.OnUnload(commandsProvider.Teardown)
	extensions.OnUnload(func(ext *types.Extension) { hub.DisconnectAll(ext.GUID) })

	b := bridge.New(logger).WithMetrics(metrics)
	for _, h := range []bridge.Handler{
		commandsProvider, cookiesProvider, downloadsProvider, notificationsProvider,
	} {
		if err := b.Register(h); err != nil {
			return nil, fmt.Errorf("failed to register %s: %w", h.Definition().ID, err)
		}
	}

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	s := &Server{
		router:     router,
		bridge:     b,
		extensions: extensions,
		hub:        hub,
		accelHost:  accelHost,
		surface:    surface,
		logger:     logger,
		config:     cfg,
		metrics:    metrics,
	}
	s.registerRoutes()

	logger.Info("Bridge initialized")
	return s, nil
}

func (s *Server) registerRoutes() {
	s.router.GET("/", s.root)
	s.router.GET("/health", s.health)
	s.router.GET("/namespaces", s.listNamespaces)

	// Extension lifecycle
	s.router.POST("/v1/extensions", s.loadExtension)
	s.router.GET("/v1/extensions", s.listExtensions)
	s.router.DELETE("/v1/extensions/:guid", s.unloadExtension)

	// API call dispatch and the event stream back into script contexts
	s.router.POST("/v1/extensions/:guid/call", s.call)
	s.router.GET("/v1/extensions/:guid/events", s.hub.HandleConnection)

	// Host surface simulation for embedders without a desktop session.
	// One shared limiter: these model a single user at a single desktop.
	host := s.router.Group("/v1/host", middleware.GlobalRateLimit(middleware.DefaultRateLimitConfig()))
	host.POST("/accelerators/press", s.pressAccelerator)
	host.POST("/notifications/click", s.clickNotification)

	s.router.GET("/metrics", func(c *gin.Context) {
		s.metrics.UpdateUptime()
		promhttp.Handler().ServeHTTP(c.Writer, c.Request)
	})
}

// Run starts the HTTP server
func (s *Server) Run() error {
	addr := s.config.Server.Host + ":" + s.config.Server.Port
	s.logger.Info("Starting HTTP server", zap.String("addr", addr))
	return s.router.Run(addr)
}

// Close gracefully shuts the bridge down: every extension unloads, which
// cancels its outstanding tasks and closes its event streams.
func (s *Server) Close() error {
	s.logger.Info("Shutting down bridge...")
	for _, ext := range s.extensions.All() {
		if err := s.extensions.Unload(ext.GUID); err != nil {
			s.logger.Warn("unload failed during shutdown",
				zap.String("guid", ext.GUID), zap.Error(err))
		}
	}
	s.logger.Sync()
	return nil
}
