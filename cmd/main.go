package main

import (
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/logger"

	"lottopot/internal/config"
	"lottopot/internal/handlers"
	"lottopot/internal/rng"
	"lottopot/internal/services"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	defer logger.Init("lottopot", true, false, os.Stdout).Close()

	// 2. Initialize the round service and its collaborators
	source := rng.NewHashSource(cfg.EntropySeed, time.Now)
	treasury := services.NewAccountBook()
	roundService := services.NewRoundService(cfg.UnitPrice, cfg.RoundDuration,
		cfg.OperatorID, time.Now, source, treasury, services.LogNotifier{})

	// 3. Initialize the HTTP Handler
	httpHandler := handlers.NewHTTPHandler(roundService, cfg.JWTSecret)

	// 4. Set up the Gin router
	r := gin.Default()

	// 5. Register public query routes (before middleware)
	httpHandler.RegisterPublicRoutes(r)

	// 6. Group routes that require a caller identity and apply middleware
	callerRoutes := r.Group("/")
	callerRoutes.Use(httpHandler.AuthMiddleware())
	httpHandler.RegisterCallerRoutes(callerRoutes)

	// 7. Run the server
	logger.Infof("Server starting on http://localhost:%s (unit price %d, round duration %s)",
		cfg.Port, cfg.UnitPrice, cfg.RoundDuration)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to run server: %v", err)
	}
}
