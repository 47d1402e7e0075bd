package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"lifeline/config"
	"lifeline/database"
	"lifeline/repositories"
	"lifeline/routes"
	"lifeline/services"
	"lifeline/websocket"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg := config.Load()

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	setupLogger(cfg)

	// Audit sink: Redis when configured, bounded in-memory ring otherwise.
	var audit repositories.AuditSink
	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		logrus.Fatal("Failed to connect to Redis: ", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
		audit = repositories.NewRedisAuditSink(redisClient, cfg.AuditRetention())
		logrus.Info("Audit sink: redis")
	} else {
		audit = repositories.NewMemoryAuditSink(cfg.AuditBufferSize)
		logrus.Info("Audit sink: in-memory")
	}

	registry := services.NewConnectionRegistry()
	ledger := repositories.NewRequestLedger()
	dispatchService := services.NewDispatchService(registry, ledger, audit, cfg.OfferAvgSpeedKmh)

	hub := websocket.NewHub(dispatchService)
	go hub.Run()

	router := routes.SetupRoutes(cfg, dispatchService, hub)

	server := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        router,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		logrus.Info("Lifeline dispatch coordinator starting on port ", cfg.Port)
		logrus.Info("WebSocket endpoint: /ws")
		logrus.Info("Health check: /health")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatal("Failed to start server: ", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")

	hub.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logrus.Fatal("Server forced to shutdown: ", err)
	}

	logrus.Info("Server shutdown complete")
}

func setupLogger(cfg *config.Config) {
	logrus.SetFormatter(&logrus.JSONFormatter{})

	if cfg.Environment == "development" {
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
			ForceColors:   true,
		})
		logrus.SetLevel(logrus.DebugLevel)
	} else {
		logrus.SetLevel(logrus.InfoLevel)
	}
}
