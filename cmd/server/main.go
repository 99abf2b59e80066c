package main

import (
	"log"
	"net/http"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"tradejournal/internal/api"
	"tradejournal/internal/config"
	"tradejournal/internal/db"
	"tradejournal/internal/logger"
	"tradejournal/internal/websocket"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Initialize configuration
	cfg := config.Load()

	// Initialize logging
	zlog, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zlog.Sync()

	// Initialize database connection
	database, err := db.Connect(cfg.Database)
	if err != nil {
		zlog.Fatal("Failed to connect to database", zap.Error(err))
	}

	// Initialize Redis client; stats caching degrades gracefully without it
	redisClient, err := db.ConnectRedis(cfg.Redis)
	if err != nil {
		zlog.Warn("Failed to connect to Redis, stats caching disabled", zap.Error(err))
		redisClient = nil
	}

	// Initialize WebSocket hub
	wsHub := websocket.NewHub(zlog)
	go wsHub.Run()

	// Initialize router
	router := api.SetupRouter(database, redisClient, wsHub, cfg, zlog)
	if cfg.Server.Debug {
		api.PrintRoutes(router)
	}

	// Set up CORS
	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})

	// Apply CORS middleware
	handler := corsMiddleware.Handler(router)

	// Start the server
	zlog.Info("Server starting", zap.String("port", cfg.Server.Port))
	if err := http.ListenAndServe(":"+cfg.Server.Port, handler); err != nil {
		zlog.Fatal("Server stopped", zap.Error(err))
	}
}
