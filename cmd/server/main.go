package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/repurposely/api/internal/client"
	"github.com/repurposely/api/internal/config"
	"github.com/repurposely/api/internal/handler"
	"github.com/repurposely/api/internal/middleware"
	"github.com/repurposely/api/internal/service"
	"github.com/repurposely/api/internal/store"
	"github.com/repurposely/api/internal/worker"
	ws "github.com/repurposely/api/internal/websocket"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("Warning: Redis not available: %v", err)
	}

	// Initialize Asynq client
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer asynqClient.Close()

	// Initialize validator
	validate := validator.New()

	// Initialize WebSocket hub
	hub := ws.NewHub()
	go hub.Run()

	// Initialize stores
	recordTTL := time.Duration(cfg.Pipeline.RecordTTL) * time.Hour
	jobStore := store.NewRedisJobStore(redisClient, recordTTL)
	attemptStore := store.NewRedisAttemptStore(redisClient, recordTTL)

	// Initialize clients
	producer := client.NewAIClient(&cfg.AI)
	adapters := client.NewAdapterRegistry(cfg)

	// Initialize services
	contentService := service.NewContentService(jobStore, asynqClient)
	distributionService := service.NewDistributionService(jobStore, attemptStore, asynqClient)

	// Initialize handlers
	statusWait := time.Duration(cfg.Pipeline.StatusPollWait) * time.Second
	attemptWait := time.Duration(cfg.Pipeline.AttemptPollWait) * time.Second
	contentHandler := handler.NewContentHandler(contentService, validate, statusWait)
	distributionHandler := handler.NewDistributionHandler(distributionService, validate, attemptWait)
	analyticsHandler := handler.NewAnalyticsHandler(distributionService)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret)
	rateLimiter := middleware.NewRateLimiter(redisClient)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    10 * 1024 * 1024, // 10MB
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		services := fiber.Map{
			"redis":    redisClient.Ping(c.Context()).Err() == nil,
			"producer": producer.IsConfigured(),
		}
		for _, kind := range adapters.Kinds() {
			services[string(kind)] = adapters.For(kind).IsConfigured()
		}
		return c.JSON(fiber.Map{"status": "ok", "services": services})
	})

	// API routes
	api := app.Group("/api", authMiddleware.Authenticate())

	// Content routes
	content := api.Group("/content")
	content.Post("/", rateLimiter.SubmitLimit(cfg.RateLimit.SubmitPerHour), contentHandler.Submit)
	content.Get("/", contentHandler.List)
	content.Get("/:jobId", contentHandler.Status)
	content.Post("/:jobId/distribute", rateLimiter.DistributeLimit(cfg.RateLimit.DistributePerHour), distributionHandler.Distribute)
	content.Get("/:jobId/attempts", distributionHandler.Attempts)

	// Analytics routes
	analytics := api.Group("/analytics")
	analytics.Get("/overview", analyticsHandler.Overview)
	analytics.Get("/posts/:target", analyticsHandler.Posts)

	// WebSocket routes
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/jobs/:jobId", websocket.New(func(c *websocket.Conn) {
		jobID := c.Params("jobId")
		hub.HandleConnection(c, jobID)
	}))

	// Start Asynq worker server
	go startWorkerServer(cfg, contentService, distributionService, producer, adapters, hub)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	// Start server
	addr := ":" + cfg.Server.Port
	log.Printf("Server starting on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func startWorkerServer(cfg *config.Config, contentService *service.ContentService, distributionService *service.DistributionService, producer client.ArtifactProducer, adapters *client.AdapterRegistry, hub *ws.Hub) {
	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"deliver":  6,
				"generate": 4,
			},
		},
	)

	generationTimeout := time.Duration(cfg.Pipeline.GenerationTimeout) * time.Second
	deliveryTimeout := time.Duration(cfg.Pipeline.DeliveryTimeout) * time.Second

	generateWorker := worker.NewGenerateWorker(contentService, producer, hub, generationTimeout)
	deliveryWorker := worker.NewDeliveryWorker(distributionService, contentService, adapters, deliveryTimeout)

	mux := asynq.NewServeMux()
	mux.HandleFunc(service.TaskTypeGenerate, generateWorker.ProcessTask)
	mux.HandleFunc(service.TaskTypeDeliver, deliveryWorker.ProcessTask)

	if err := srv.Run(mux); err != nil {
		log.Printf("Asynq worker error: %v", err)
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "SERVICE_ERROR",
			"message": message,
		},
	})
}
