package main

import (
	"log"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"tradejournal/internal/config"
	"tradejournal/internal/db"
	"tradejournal/internal/logger"
	"tradejournal/internal/seed"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()

	zlog, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zlog.Sync()

	database, err := db.Connect(cfg.Database)
	if err != nil {
		zlog.Fatal("Failed to connect to database", zap.Error(err))
	}

	if err := seed.Run(database, zlog); err != nil {
		zlog.Fatal("Seeding failed", zap.Error(err))
	}
	zlog.Info("Seeding complete", zap.String("user", seed.DemoEmail))
}
