package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/shenikar/road_clearing_system/internal/config"
	"github.com/shenikar/road_clearing_system/internal/geocoding"
	v1 "github.com/shenikar/road_clearing_system/internal/handler/http/v1"
	"github.com/shenikar/road_clearing_system/internal/handler/web"
	"github.com/shenikar/road_clearing_system/internal/repository"
	"github.com/shenikar/road_clearing_system/internal/resolver"
	"github.com/shenikar/road_clearing_system/internal/service"
	"github.com/shenikar/road_clearing_system/internal/webhook"
	"github.com/shenikar/road_clearing_system/pkg/postgres"
	redisclient "github.com/shenikar/road_clearing_system/pkg/redis"
	"github.com/sirupsen/logrus"

	_ "github.com/shenikar/road_clearing_system/docs"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server (JSON API, web form and swagger UI)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

// @title Road Clearing Request API
// @version 1.0
// @description Road clearing requests for Cainta, Rizal.
// @host localhost:8080
// @BasePath /api/v1
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key
func runServe() error {
	// Загрузка конфигурации
	cfg, log, err := loadRuntime()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Контекст для graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Хранилище заявок
	repo, closeRepo, err := openRepository(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeRepo()

	// Инициализация Redis клиента (необязательный)
	redisClient, err := redisclient.NewRedisClient(ctx, cfg)
	if err != nil {
		return err
	}

	var geocoder geocoding.Geocoder = geocoding.NewNominatimClient(cfg)
	var publisher webhook.WebhookPublisher = webhook.NopPublisher{}
	if redisClient != nil {
		defer redisClient.Close()
		log.Info("Successfully connected to Redis")

		geocoder = geocoding.NewCachedGeocoder(geocoder, redisClient, cfg.GeocodeCacheTTL, log)

		if cfg.WebhookURL != "" {
			publisher = webhook.NewRedisWebhookPublisher(redisClient)
			webhook.NewWebhookWorker(redisClient, log, cfg).Start(ctx)
		}
	} else {
		log.Info("REDIS_ADDR not set, geocode cache and webhooks disabled")
	}

	// Инициализация сервисов
	addressResolver := resolver.NewAddressResolver(geocoder, log, cfg)
	requestService := service.NewRequestService(repo, addressResolver, log, cfg, publisher)

	// Настройка Gin роутера
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(log))

	api := router.Group("/api/v1")
	v1.NewHandler(requestService, log, cfg).RegisterRoutes(api)
	web.NewHandler(requestService, log).RegisterRoutes(router)

	// Добавление маршрута для Swagger UI
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Запуск HTTP-сервера
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()
	log.Infof("HTTP server started on port %s", cfg.HTTPPort)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
		log.Info("Received shutdown signal, shutting down server...")
	case err := <-serverErr:
		return fmt.Errorf("error starting HTTP server: %w", err)
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("Server gracefully stopped")
	return nil
}

// openRepository выбирает хранилище по STORAGE_DRIVER
func openRepository(ctx context.Context, cfg *config.Config, log *logrus.Logger) (service.RequestRepository, func(), error) {
	switch cfg.StorageDriver {
	case config.StorageDriverSQLite:
		repo, err := repository.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open SQLite store: %w", err)
		}
		log.WithField("path", cfg.SQLitePath).Info("Using SQLite store")
		return repo, func() { repo.Close() }, nil
	default:
		// Запуск миграций
		if err := runMigrations(cfg, log, "up", defaultMigrationsPath); err != nil {
			return nil, nil, fmt.Errorf("failed to run database migrations: %w", err)
		}

		// Подключение к PostgreSQL
		dbpool, err := postgres.NewPostgresDB(ctx, cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		log.Info("Successfully connected to PostgreSQL")
		return repository.NewRequestRepository(dbpool), dbpool.Close, nil
	}
}

// requestLogger пишет по одной записи logrus на HTTP-запрос
func requestLogger(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(logrus.Fields{
			"status":   c.Writer.Status(),
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"duration": time.Since(start).String(),
		}).Info("HTTP request handled")
	}
}
