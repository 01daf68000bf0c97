package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"ms-photobooth/internal/admin/admin_api"
	admindb "ms-photobooth/internal/admin/db"
	"ms-photobooth/internal/auth"
	"ms-photobooth/internal/blob"
	"ms-photobooth/internal/catalog"
	"ms-photobooth/internal/catalog/catalog_api"
	catalogdb "ms-photobooth/internal/catalog/db"
	"ms-photobooth/internal/config"
	"ms-photobooth/internal/flagcache"
	"ms-photobooth/internal/kafka"
	"ms-photobooth/internal/logger"
	"ms-photobooth/internal/media"
	mediadb "ms-photobooth/internal/media/db"
	"ms-photobooth/internal/media/media_api"
	"ms-photobooth/internal/metrics"
	metricsdb "ms-photobooth/internal/metrics/db"
	"ms-photobooth/internal/metrics/metrics_api"
	"ms-photobooth/internal/qr"
	"ms-photobooth/internal/session"
	sessiondb "ms-photobooth/internal/session/db"
	"ms-photobooth/internal/session/session_api"
	"ms-photobooth/internal/submission"
	submissiondb "ms-photobooth/internal/submission/db"
	"ms-photobooth/internal/submission/submission_api"
)

func connectDatabase(cfg *config.Config, log *logger.Logger) *bun.DB {
	var sqldb *sql.DB
	var err error
	maxRetries := 5

	for i := 0; i < maxRetries; i++ {
		log.LogDatabase("CONNECT", "postgresql", fmt.Sprintf("Attempting to connect (attempt %d/%d)", i+1, maxRetries))
		sqldb, err = sql.Open("postgres", cfg.Database.DSN)
		if err != nil {
			log.Error("DATABASE", fmt.Sprintf("Failed to open PostgreSQL: %v", err))
			time.Sleep(2 * time.Second)
			continue
		}

		err = sqldb.Ping()
		if err == nil {
			break
		}

		log.Error("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
		if i < maxRetries-1 {
			time.Sleep(2 * time.Second)
		}
	}

	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL after %d attempts: %v", maxRetries, err))
	}

	sqldb.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.Database.MaxLifetime)

	log.LogDatabase("SUCCESS", "postgresql", "Connection established")
	return bun.NewDB(sqldb, pgdialect.New())
}

func connectRedis(cfg *config.Config, log *logger.Logger) *redis.Client {
	if !cfg.Redis.Enabled {
		log.Warn("REDIS", "Redis disabled, submitted-session fast path falls back to the database")
		return nil
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		log.Warn("REDIS", fmt.Sprintf("Redis unreachable at %s, continuing without it: %v", cfg.Redis.Addr, err))
		client.Close()
		return nil
	}

	log.Info("REDIS", fmt.Sprintf("Redis connection successful to %s", cfg.Redis.Addr))
	return client
}

// requestLogger logs every request with its status and duration.
func requestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.LogAPI(r.Method, r.URL.Path, strconv.Itoa(ww.Status()), time.Since(start).String())
		})
	}
}

func main() {
	log := logger.NewLogger()
	defer log.Close()

	log.Info("APP", "Starting Photobooth Service initialization")

	if err := godotenv.Load(); err != nil {
		log.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		log.Info("CONFIG", "Loaded environment variables from .env file")
	}

	cfg := config.Load()

	bunDB := connectDatabase(cfg, log)
	defer bunDB.Close()

	redisClient := connectRedis(cfg, log)
	if redisClient != nil {
		defer redisClient.Close()
	}

	var producer *kafka.Producer
	if cfg.Kafka.Enabled {
		producer = kafka.NewProducer(cfg.Kafka.Brokers)
		defer producer.Close()
		log.Info("KAFKA", "Kafka producer initialized successfully")

		requiredTopics := []string{
			cfg.Kafka.Topics.MetricsRecorded,
			cfg.Kafka.Topics.SubmissionCreated,
		}
		if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, requiredTopics); err != nil {
			log.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		} else {
			log.Info("KAFKA", "Required topics ensured successfully")
		}
	} else {
		log.Warn("KAFKA", "Kafka disabled, funnel events stay local to the database")
	}

	blobStore := blob.NewDisk(cfg.Storage.RootDir, cfg.Server.BaseURL, cfg.Storage.SignSecret)
	submittedCache := flagcache.New(redisClient, 24*time.Hour)

	var metricsPublisher metrics.Publisher
	var submissionPublisher submission.Publisher
	if producer != nil {
		metricsPublisher = producer
		submissionPublisher = producer
	}

	metricsService := metrics.NewService(
		&metricsdb.DB{Bun: bunDB}, metricsPublisher, cfg.Kafka.Topics.MetricsRecorded, log)
	catalogService := catalog.NewService(
		&catalogdb.DB{Bun: bunDB}, blobStore, cfg.Storage.ReadTTL)
	sessionService := session.NewService(
		&sessiondb.DB{Bun: bunDB}, metricsService)
	mediaService := media.NewService(
		&mediadb.DB{Bun: bunDB}, blobStore, submittedCache, log, cfg.Storage.ReadTTL)
	submissionService := submission.NewService(
		&submissiondb.DB{Bun: bunDB}, metricsService, submittedCache,
		submissionPublisher, cfg.Kafka.Topics.SubmissionCreated, log)

	catalogHandler := &catalog_api.Handler{Service: catalogService, Logger: log}
	sessionHandler := &session_api.Handler{Service: sessionService, Logger: log}
	mediaHandler := &media_api.Handler{Service: mediaService, Logger: log}
	submissionHandler := &submission_api.Handler{Service: submissionService, Logger: log}
	metricsHandler := &metrics_api.Handler{Service: metricsService, Logger: log}
	blobHandler := &blob.Handler{Disk: blobStore, Logger: log}

	log.Info("HTTP", "Setting up router and middleware")
	r := chi.NewRouter()
	r.Use(requestLogger(log))

	// --- Participant Routes ---
	r.Route("/api/public", func(r chi.Router) {
		catalogHandler.RegisterRoutes(r)
		sessionHandler.RegisterRoutes(r)
		mediaHandler.RegisterRoutes(r)
		submissionHandler.RegisterRoutes(r)
		metricsHandler.RegisterRoutes(r)
	})
	log.Info("ROUTER", "Participant routes registered under /api/public")

	// --- Signed Media Reads ---
	blobHandler.RegisterRoutes(r)
	log.Info("ROUTER", "Signed media reads registered at /media/*")

	// --- Organizer Routes ---
	if cfg.Auth.OIDCIssuer != "" {
		adminHandler := &admin_api.Handler{
			DB:      &admindb.DB{Bun: bunDB},
			Blobs:   blobStore,
			QR:      qr.NewGenerator(cfg.Server.BaseURL),
			Metrics: metricsService,
			Logger:  log,
			ReadTTL: cfg.Storage.ReadTTL,
		}
		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(cfg.Auth.OIDCIssuer))
			r.Route("/api/admin", adminHandler.RegisterRoutes)
		})
		log.Info("ROUTER", "Organizer routes registered under /api/admin")
	} else {
		log.Warn("AUTH", "OIDC_ISSUER not set, organizer routes disabled")
	}

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP", fmt.Sprintf("Photobooth Service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	log.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-stop

	log.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	} else {
		log.Info("HTTP", "Photobooth Service shutdown complete")
	}
}
