package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"vigilore/internal/bank"
	"vigilore/internal/cache"
	"vigilore/internal/config"
	"vigilore/internal/metrics"
	"vigilore/internal/repository"
	"vigilore/internal/service"
	"vigilore/internal/transport/rest"
	"vigilore/internal/transport/ws"
)

func main() {
	log.Println("started")
	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	// Load AI config and log model settings
	aiConfig := config.DefaultAIConfig()
	log.Printf("AI Config:")
	log.Printf("  Clarify: %s", aiConfig.Models.Clarify)
	log.Printf("  Summary: %s", aiConfig.Models.Summary)
	if aiConfig.IsEnabled() {
		log.Println("  API Key: configured")
	} else {
		log.Println("  API Key: NOT SET (clarifications disabled, summaries templated)")
	}

	// Question banks
	registry, err := bank.Load()
	if err != nil {
		log.Fatal("Failed to load question banks:", err)
	}
	log.Printf("Loaded %d framework names", len(registry.Frameworks()))

	var sessionStore service.SessionStore
	var exportStore service.ExportStore
	var sessionCache service.SessionCache

	if !cfg.DisableStorage {
		// MongoDB connection
		mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			log.Fatal("Failed to connect to MongoDB:", err)
		}
		defer mongoClient.Disconnect(ctx)

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := mongoClient.Ping(pingCtx, nil); err != nil {
			log.Fatal("Failed to ping MongoDB:", err)
		}
		log.Println("Connected to MongoDB")

		sessionStore = repository.NewSessionRepository(mongoClient, cfg.MongoDatabase)
		exportStore = repository.NewExportRepository(mongoClient, cfg.MongoDatabase)

		// Redis connection
		redisAddr := strings.TrimPrefix(cfg.RedisURI, "redis://")
		rdb := redis.NewClient(&redis.Options{
			Addr: redisAddr,
		})
		defer rdb.Close()

		if _, err := rdb.Ping(ctx).Result(); err != nil {
			log.Fatal("Failed to ping Redis:", err)
		}
		log.Println("Connected to Redis")

		sessionCache = cache.NewSessionCache(rdb)
	} else {
		log.Println("Storage disabled, running in-memory only")
	}

	// Instrumentation
	m := metrics.New()

	// WebSocket hub
	wsHub := ws.NewHub()
	log.Println("WebSocket hub started")

	// Services
	aiSvc := service.NewAIService(aiConfig)
	interviewSvc := service.NewInterviewService(registry, sessionStore, sessionCache, wsHub, aiSvc, m)
	exportSvc := service.NewExportService(interviewSvc, aiSvc, exportStore, m)

	// Create router with container
	container := &rest.Container{
		Registry:         registry,
		InterviewService: interviewSvc,
		ExportService:    exportSvc,
		Metrics:          m,
		WSHub:            wsHub,
	}

	router := rest.NewRouter(container)

	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	go func() {
		log.Printf("Server starting on :%s", cfg.ServerPort)
		log.Println("Endpoints:")
		log.Println("  GET  /v1/frameworks")
		log.Println("  POST /v1/interviews")
		log.Println("  GET  /v1/interviews/{id}/question/next")
		log.Println("  POST /v1/interviews/{id}/answers")
		log.Println("  POST /v1/interviews/{id}/export")
		log.Println("  WS   /v1/ws/interviews/{id}")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("ListenAndServe:", err)
		}
	}()

	// Wait for interrupt
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}
