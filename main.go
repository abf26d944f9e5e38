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
	"github.com/hibiken/asynq"
	"github.com/thejoltjoker/crowdplay-sub000/config"
	"github.com/thejoltjoker/crowdplay-sub000/game"
	"github.com/thejoltjoker/crowdplay-sub000/handlers"
	"github.com/thejoltjoker/crowdplay-sub000/middleware"
	"github.com/thejoltjoker/crowdplay-sub000/models"
	"github.com/thejoltjoker/crowdplay-sub000/routes"
	"github.com/thejoltjoker/crowdplay-sub000/services"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	log := config.InitLogger(cfg)
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	err = db.AutoMigrate(
		&models.GameRecord{},
		&models.PlayerResult{},
		&models.QuestionRecord{},
	)
	if err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	// Initialize Redis
	redisClient, err := config.InitRedis(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	var events services.EventPublisher = services.NopPublisher{}
	if cfg.RabbitMQURL != "" {
		publisher, err := services.NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQExchange)
		if err != nil {
			log.WithError(err).Warn("RabbitMQ unavailable, lifecycle events are disabled")
		} else {
			events = publisher
		}
	}
	defer events.Close()

	// Background archiving
	asynqClient := asynq.NewClient(config.AsynqRedisOpt(cfg))
	defer asynqClient.Close()
	archiveService := services.NewArchiveService(db, log)
	worker := services.NewWorkerServer(config.AsynqRedisOpt(cfg), services.NewArchiveHandler(archiveService, log), log)
	if err := worker.Start(); err != nil {
		log.Fatalf("Failed to start worker: %v", err)
	}

	// Initialize services
	store := services.NewGameStore(redisClient, cfg.GameTTL)
	identity := services.NewIdentityService(cfg.JWTSecret, cfg.TokenTTL)
	gameService := services.NewGameService(store, game.NewMachine(), services.NewTaskArchiver(asynqClient), events, log)

	// Initialize WebSocket hub
	hub := services.NewHub(gameService, log)
	go hub.Run(ctx)
	subscription := store.Subscribe(ctx)
	defer subscription.Close()
	go hub.Listen(ctx, subscription)

	// Initialize handlers
	gameHandler := handlers.NewGameHandler(gameService, identity)
	resultsHandler := handlers.NewResultsHandler(archiveService)

	router := gin.New()
	router.Use(gin.Recovery(), middleware.Logger(log), middleware.CORS(cfg.CORSAllowedOrigin))
	routes.SetupRoutes(router, gameHandler, resultsHandler, hub, gameService, identity, cfg.CORSAllowedOrigin)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Infof("Server starting on %s", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("HTTP server shutdown failed")
	}
	worker.Shutdown()
	log.Info("Server stopped")
}
