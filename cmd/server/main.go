// Package main is the entry point for the billing service. It loads
// configuration, connects postgres and redis, wires the service graph and
// serves the HTTP API.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"

	"github.com/dyens/billing/internal/config"
	"github.com/dyens/billing/internal/repositories"
	"github.com/dyens/billing/internal/repositories/cache"
	"github.com/dyens/billing/internal/routes"
)

func main() {
	config.LoadEnv()

	db, err := repositories.InitDB()
	if err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}

	redisClient := cache.NewRedisClient(&cache.RedisConfig{
		Host:     config.GetEnv("REDIS_HOST", "localhost"),
		Port:     config.GetEnv("REDIS_PORT", "6379"),
		Password: config.GetEnv("REDIS_PASSWORD", ""),
		DB:       config.GetIntEnv("REDIS_DB", 0),
	})
	cacheSvc := cache.NewService(redisClient, config.GetDurationEnv("CACHE_TTL", 24*time.Hour))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := cacheSvc.HealthCheck(ctx); err != nil {
		log.Printf("redis health check failed: %v", err)
	}
	cancel()

	app := fiber.New(fiber.Config{
		AppName: "billing",
	})
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	services := routes.SetupRoutes(app, db, cacheSvc)

	go func() {
		if err := app.Listen(":" + config.GetEnv("PORT", "3000")); err != nil {
			log.Fatalf("server stopped: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down")
	if err := app.Shutdown(); err != nil {
		log.Printf("server shutdown failed: %v", err)
	}
	// Drain in-flight transfers before closing the process.
	services.Dispatcher.Close()
}
