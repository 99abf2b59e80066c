package api

import (
	"net/http"
	"strings"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"tradejournal/internal/cache"
	"tradejournal/internal/config"
	"tradejournal/internal/handlers"
	"tradejournal/internal/middleware"
	"tradejournal/internal/services"
	"tradejournal/internal/websocket"
)

// SetupRouter configures all routes and returns the router
func SetupRouter(
	db *gorm.DB,
	redisClient *redis.Client,
	wsHub *websocket.Hub,
	cfg *config.Config,
	log *zap.Logger,
) *mux.Router {
	// Create a new router
	router := mux.NewRouter()

	// Add health check endpoint
	router.HandleFunc("/api/health", HealthHandler).Methods("GET")

	// Serve static files
	router.PathPrefix("/static/").Handler(
		http.StripPrefix("/static/", http.FileServer(http.Dir(cfg.Server.StaticDir))),
	)

	// Create services
	authService := services.NewAuthService(db, cfg.JWT.SecretKey, cfg.JWT.TokenTTL)
	tradeService := services.NewTradeService(db)
	strategyService := services.NewStrategyService(db)
	statsCache := cache.NewStatsCache(redisClient, cfg.Redis.StatsTTL, log)

	// WebSocket route, session required so events stay with their owner
	router.Handle("/ws", middleware.AuthMiddleware(authService, log)(http.HandlerFunc(wsHub.HandleWebSocket)))

	// Create handlers using services
	authHandler := handlers.NewAuthHandler(authService, cfg.JWT.TokenTTL, log)
	tradeHandler := handlers.NewTradeHandler(tradeService, statsCache, wsHub, log)
	strategyHandler := handlers.NewStrategyHandler(strategyService, statsCache, wsHub, log)
	statsHandler := handlers.NewStatsHandler(tradeService, strategyService, statsCache, log)

	// Public endpoints on the root router (no session required)
	authHandler.RegisterPublicRoutes(router)

	// Create the API router for authenticated endpoints
	apiRouter := router.PathPrefix("/api").Subrouter()

	// Create a subrouter for authenticated endpoints
	authRouter := apiRouter.PathPrefix("").Subrouter()
	authRouter.Use(middleware.AuthMiddleware(authService, log))

	// Register routes
	authHandler.RegisterRoutes(authRouter)
	tradeHandler.RegisterRoutes(authRouter)
	strategyHandler.RegisterRoutes(authRouter)
	statsHandler.RegisterRoutes(authRouter)

	// Catch-all handler for serving the SPA
	router.PathPrefix("/").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// For API requests, let the router handle them
		if strings.HasPrefix(r.URL.Path, "/api/") {
			http.NotFound(w, r)
			return
		}

		// For all other requests, serve the index.html file
		http.ServeFile(w, r, cfg.Server.IndexFile)
	})

	return router
}
