package main

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"

	"github.com/courseworks/registration-service/internal/cache"
	"github.com/courseworks/registration-service/internal/config"
	"github.com/courseworks/registration-service/internal/handlers"
	"github.com/courseworks/registration-service/internal/repositories/mongostore"
	"github.com/courseworks/registration-service/internal/services"
	"github.com/courseworks/registration-service/internal/utils"
	"github.com/courseworks/registration-service/pkg"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	var logger utils.Logger
	if cfg.Environment == "production" {
		logger = utils.NewDefaultLogger()
		gin.SetMode(gin.ReleaseMode)
	} else {
		logger = utils.NewDevelopmentLogger()
	}
	slogger := utils.ToSlogLogger(logger)

	client, err := pkg.NewMongoClient(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			logger.Error("Failed to disconnect from MongoDB", "error", err)
		}
	}()

	cacheService := cache.NewNoopCache()
	if cfg.RedisURL != "" {
		redisClient, err := pkg.NewRedisClient(cfg)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
		cacheService = cache.NewRedisCache(redisClient, slogger)
	}

	publisher, err := cfg.Events.CreateEventPublisher(slogger)
	if err != nil {
		log.Fatalf("Failed to create event publisher: %v", err)
	}
	defer publisher.Close()

	repo := mongostore.NewRepository(client.Database(cfg.DatabaseName))
	validator := utils.NewValidator()

	serviceManager := services.NewServiceManager(repo, cacheService, publisher, slogger, validator)
	handlerManager := handlers.NewHandlerManager(serviceManager, repo, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.LoggerMiddleware(logger))
	handlerManager.SetupRoutes(router)

	logger.Info("Starting registration service", "port", cfg.Port, "environment", cfg.Environment)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
