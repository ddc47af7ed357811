package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/cinevault/cinevault/internal/cache"
	"github.com/cinevault/cinevault/internal/config"
	"github.com/cinevault/cinevault/internal/database"
	"github.com/cinevault/cinevault/internal/events"
	"github.com/cinevault/cinevault/internal/geocode"
	"github.com/cinevault/cinevault/internal/ingest"
	"github.com/cinevault/cinevault/internal/logging"
	"github.com/cinevault/cinevault/internal/metadata"
	"github.com/cinevault/cinevault/internal/metrics"
	"github.com/cinevault/cinevault/internal/middleware"
	"github.com/cinevault/cinevault/internal/probe"
	"github.com/cinevault/cinevault/internal/storage"
	"github.com/cinevault/cinevault/internal/tracing"
)

func main() {
	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logging.NewLogger(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: "stdout",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	// Distributed tracing
	if cfg.Tracing.Enabled {
		_, closer, err := tracing.Init("cinevault-api", cfg.Tracing.Endpoint)
		if err != nil {
			log.Fatalf("Failed to initialize tracer: %v", err)
		}
		defer closer.Close()
	}

	middleware.SetJWTSecret(cfg.Auth.JWTSecret)

	// Database
	db, err := database.New(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	repo := database.NewRepository(db)

	// Storage backend
	store, err := storage.New(cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}

	// Redis cache, optional
	var locations ingest.LocationCache
	var redisCache *cache.Cache
	if cfg.Redis.Enabled {
		redisCache, err = cache.NewCache(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.WithError(err).Warn("Redis unavailable, continuing without cache")
		} else {
			defer redisCache.Close()
			locations = redisCache
		}
	}

	// Reverse geocoding, optional
	var geocoder ingest.Geocoder
	if cfg.Geocode.Enabled {
		geocoder = geocode.NewResolver(geocode.Config{
			BaseURL:           cfg.Geocode.BaseURL,
			UserAgent:         cfg.Geocode.UserAgent,
			Timeout:           cfg.Geocode.Timeout,
			RequestsPerSecond: cfg.Geocode.RequestsPerSecond,
		})
	}

	// Ingest event publishing, optional
	var publisher ingest.EventPublisher
	if cfg.Events.Enabled {
		eventsPublisher, err := events.NewPublisher(cfg.Events)
		if err != nil {
			log.WithError(err).Warn("Event queue unavailable, continuing without events")
		} else {
			defer eventsPublisher.Close()
			publisher = eventsPublisher
		}
	}

	// Metadata extraction
	prober := probe.New(cfg.Probe.FFprobePath, cfg.Probe.Timeout, cfg.Probe.MaxOutputBytes)
	extractor := metadata.NewExtractor(prober, log)

	svc := ingest.NewService(repo, store, extractor, geocoder, locations, publisher, log, ingest.Config{
		PublicBaseURL:    cfg.Storage.PublicBaseURL,
		ProgressInterval: cfg.Ingest.ProgressInterval,
		ProbeConcurrency: cfg.Probe.MaxConcurrent,
		GeocodeCacheTTL:  cfg.Geocode.CacheTTL,
	})

	api := &API{
		svc:    svc,
		videos: repo,
		cache:  redisCache,
		log:    log,
		cfg:    cfg,
	}

	router := setupRouter(api, cfg, log)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Infof("Starting API server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Info("Server stopped")
}

func setupRouter(api *API, cfg *config.Config, log *logging.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(log))
	router.MaxMultipartMemory = 32 << 20

	if cfg.Server.RateLimitRPS > 0 {
		rl := middleware.NewRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst)
		router.Use(rl.Middleware())
	}

	router.GET("/health", api.healthCheck)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	v1 := router.Group("/api/v1")
	v1.Use(middleware.JWTAuth())
	{
		v1.POST("/videos/:id/ingest", api.ingestVideo)
		v1.GET("/videos/:id", api.getVideo)
		v1.GET("/videos/:id/stream", api.streamVideo)
	}

	return router
}
