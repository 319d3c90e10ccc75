// Package routes wires repositories, services and handlers onto the fiber
// app.
package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/dyens/billing/internal/config"
	"github.com/dyens/billing/internal/handlers"
	"github.com/dyens/billing/internal/repositories"
	"github.com/dyens/billing/internal/repositories/cache"
	"github.com/dyens/billing/internal/services/history"
	"github.com/dyens/billing/internal/services/rates"
	"github.com/dyens/billing/internal/services/transfer"
	"github.com/dyens/billing/internal/services/user"
	"github.com/dyens/billing/internal/services/wallet"
)

// Services groups the wired services so the caller can manage their
// lifecycle (the dispatcher in particular needs a drain on shutdown).
type Services struct {
	Dispatcher *transfer.Dispatcher
}

// SetupRoutes builds the service graph and registers all routes.
func SetupRoutes(app *fiber.App, db *gorm.DB, cacheSvc *cache.Service) *Services {
	repo := repositories.NewLedgerRepository(db)

	walletCache := cache.NewWalletCache(cacheSvc, config.GetDurationEnv("WALLET_CACHE_TTL", 5*time.Minute))
	userCache := cache.NewUserCache(cacheSvc, config.GetDurationEnv("USER_CACHE_TTL", 30*time.Second))

	rateSource := rates.NewSeededSource(
		config.GetInt64Env("RATE_SEED", 42),
		config.GetBoolEnv("RATE_SIMULATE_LATENCY", true),
	)

	transferCfg := transfer.Config{
		RateTimeout: config.GetDurationEnv("RATE_TIMEOUT", transfer.DefaultRateTimeout),
		Workers:     config.GetIntEnv("TRANSFER_WORKERS", transfer.DefaultWorkers),
		QueueSize:   config.GetIntEnv("TRANSFER_QUEUE_SIZE", transfer.DefaultQueueSize),
		StatusTTL:   config.GetDurationEnv("TRANSFER_STATUS_TTL", transfer.DefaultStatusTTL),
	}

	userService := user.NewService(repo, userCache)
	walletService := wallet.NewService(repo, walletCache)
	historyService := history.NewService(repo)
	engine := transfer.NewEngine(repo, rateSource, transferCfg)
	dispatcher := transfer.NewDispatcher(engine, cacheSvc, transferCfg)

	userHandler := handlers.NewUserHandler(userService)
	walletHandler := handlers.NewWalletHandler(walletService)
	transferHandler := handlers.NewTransferHandler(dispatcher)
	historyHandler := handlers.NewHistoryHandler(historyService)

	app.Get("/health", handlers.Health)

	v1 := app.Group("/v1")
	v1.Post("/users", userHandler.Register)
	v1.Get("/users/:id", userHandler.Info)
	v1.Post("/wallets/:id/topup", walletHandler.TopUp)
	v1.Get("/wallets/:id/history", historyHandler.Transfers)
	v1.Post("/transfers", transferHandler.Create)
	v1.Get("/transfers/:id", transferHandler.Status)
	v1.Get("/transactions/:id/logs", historyHandler.Logs)

	return &Services{Dispatcher: dispatcher}
}
