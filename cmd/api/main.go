package main

import (
	"log"

	"shipledger/internal/core/cache"
	"shipledger/internal/core/config"
	"shipledger/internal/core/logger"
	"shipledger/internal/core/server"
	shipmentadapter "shipledger/internal/features/shipments/adapters"
	shipmenthandler "shipledger/internal/features/shipments/handler"
	"shipledger/internal/features/shipments/ports"
	shipmentservice "shipledger/internal/features/shipments/service"
	walletadapter "shipledger/internal/features/wallet/adapters"
	walletdomain "shipledger/internal/features/wallet/domain"
	wallethandler "shipledger/internal/features/wallet/handler"
	walletservice "shipledger/internal/features/wallet/service"

	"go.uber.org/zap"
)

// Demo accounts authorized on the simulated provider (Ganache's well-known
// deterministic accounts).
var demoAccounts = []walletdomain.Address{
	"0x90F8bf6A479f320ead074411a4B0e7944Ea8c9C1",
	"0xFFcf8FBeE2B67cEb6989997c976E7C2F51D23bD9",
}

// @title Shipledger API
// @version 1.0
// @description Shipment ledger client: wallet session, on-ledger shipment lifecycle and event reconciliation.
// @contact.name API Support
// @contact.email support@shipledger.io
// @license.name MIT
// @host localhost:8080
// @BasePath /
func main() {
	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.Environment, cfg.LogLevel); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()

	l := logger.Get()
	l.Info("Application starting",
		zap.String("environment", cfg.Environment),
		zap.String("log_level", cfg.LogLevel),
		zap.String("contract_address", cfg.Ledger.ContractAddress),
	)

	// Initialize the stats cache; counters are best effort, so a missing
	// Redis only degrades the dashboard.
	var statsRepo ports.StatsRepository
	redisCache, err := cache.NewRedisAdapter(cfg.RedisURL)
	if err != nil {
		l.Warn("Stats cache unavailable, counters disabled", zap.Error(err))
	} else {
		defer redisCache.Close()
		statsRepo = shipmentadapter.NewRedisStatsRepository(redisCache)
	}

	// Initialize the simulated ledger provider and the wallet session.
	provider := walletadapter.NewSimProvider(cfg.Ledger.ChainID, cfg.Ledger.SimConfirmLatency(), demoAccounts...)
	sessionSvc := walletservice.NewSessionService(provider)

	// Initialize the transaction gateway and the event subscriber.
	gateway := shipmentservice.NewGateway(provider, sessionSvc, statsRepo)
	subscriber := shipmentservice.NewSubscriber(gateway, provider)
	if err := subscriber.Subscribe(nil); err != nil {
		l.Fatal("Failed to subscribe to ledger events", zap.Error(err))
	}
	defer subscriber.Unsubscribe()

	// Initialize Handlers
	walletHdl := wallethandler.NewWalletHandler(sessionSvc)
	shipmentHdl := shipmenthandler.NewShipmentHandler(gateway, sessionSvc, cfg.Ledger.ConfirmTimeout())

	srv := server.New(cfg)

	// Register Routes
	srv.App.Post("/wallet/connect", walletHdl.Connect)
	srv.App.Post("/wallet/disconnect", walletHdl.Disconnect)
	srv.App.Get("/wallet/session", walletHdl.GetSession)
	srv.App.Post("/shipments", shipmentHdl.CreateShipment)
	srv.App.Get("/shipments/stats", shipmentHdl.GetStats)
	srv.App.Get("/shipments/:id", shipmentHdl.GetShipment)
	srv.App.Post("/shipments/:id/status", shipmentHdl.UpdateStatus)
	srv.App.Post("/shipments/:id/confirm-delivery", shipmentHdl.ConfirmDelivery)

	if err := srv.Run(); err != nil {
		l.Fatal("Server failed to start", zap.Error(err))
	}
}
