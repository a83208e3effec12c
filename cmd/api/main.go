// cmd/api/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/stationery-backend/internal/config"
	"github.com/your-org/stationery-backend/internal/domain/analytics"
	"github.com/your-org/stationery-backend/internal/domain/catalog"
	"github.com/your-org/stationery-backend/internal/domain/invoice"
	"github.com/your-org/stationery-backend/internal/domain/ledger"
	"github.com/your-org/stationery-backend/internal/domain/pricing"
	"github.com/your-org/stationery-backend/internal/domain/trade"
	"github.com/your-org/stationery-backend/internal/infrastructure/database/postgres"
	"github.com/your-org/stationery-backend/internal/infrastructure/database/redis"
	"github.com/your-org/stationery-backend/internal/infrastructure/messaging/kafka"
	"github.com/your-org/stationery-backend/internal/interfaces/http"
	"github.com/your-org/stationery-backend/internal/interfaces/http/handlers"
	"github.com/your-org/stationery-backend/internal/interfaces/http/routes"
	"github.com/your-org/stationery-backend/internal/pkg/email"
	"github.com/your-org/stationery-backend/internal/pkg/logger"
	"github.com/your-org/stationery-backend/internal/pkg/pdf"
	"github.com/your-org/stationery-backend/internal/scheduler"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	log := logger.New(cfg)
	log.WithFields(logrus.Fields{
		"app":         cfg.App.Name,
		"version":     cfg.App.Version,
		"environment": cfg.App.Environment,
	}).Info("Starting back office service")

	db, err := postgres.NewConnection(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	redisClient, err := redis.NewConnection(cfg, log)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	if err := db.Health(); err != nil {
		log.Fatalf("Database health check failed: %v", err)
	}
	if err := redisClient.Health(context.Background()); err != nil {
		log.Fatalf("Redis health check failed: %v", err)
	}

	migration := postgres.NewMigration(db.GetDB())
	if err := migration.RunAutoMigrations(); err != nil {
		log.Fatalf("Database migration failed: %v", err)
	}
	if err := migration.CreateIndexes(); err != nil {
		log.WithError(err).Warn("Index creation failed")
	}
	if err := migration.SeedInitialData(); err != nil {
		log.WithError(err).Warn("Data seeding failed")
	}
	if cfg.IsDevelopment() {
		if err := migration.GetTableInfo(); err != nil {
			log.WithError(err).Warn("Failed to read table info")
		}
	}

	var publisher ledger.Publisher
	var producer *kafka.Producer
	if cfg.External.Kafka.Enabled {
		producer = kafka.NewProducer(cfg, log)
		publisher = producer
		log.WithField("topic", cfg.External.Kafka.StockTopic).Info("Publishing stock movements to Kafka")
	}

	services := buildServices(db.GetDB(), cfg, log, publisher)

	var sched *scheduler.Scheduler
	if cfg.Inventory.SchedulerEnabled {
		sched, err = scheduler.New(cfg, log, services.ledger, services.invoice)
		if err != nil {
			log.Fatalf("Failed to configure scheduler: %v", err)
		}
		sched.Start()
	}

	server := http.NewServer(cfg, log, db.GetDB(), redisClient.Client(), services.handlers(log, cfg))

	go func() {
		if err := server.Start(); err != nil {
			log.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down gracefully")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Stop(ctx); err != nil {
		log.WithError(err).Error("Failed to shutdown HTTP server gracefully")
	}
	if sched != nil {
		sched.Stop(ctx)
	}
	if producer != nil {
		if err := producer.Close(); err != nil {
			log.WithError(err).Error("Failed to close Kafka producer")
		}
	}

	log.Info("Server shutdown completed")
}

type services struct {
	catalog   *catalog.Service
	ledger    *ledger.Service
	pricing   *pricing.Service
	trade     *trade.Service
	invoice   *invoice.Service
	analytics *analytics.Service
}

func buildServices(db *gorm.DB, cfg *config.Config, log *logrus.Logger, publisher ledger.Publisher) *services {
	ledgerService := ledger.NewService(db, cfg, log, publisher)

	return &services{
		catalog:   catalog.NewService(db, cfg, log, ledgerService),
		ledger:    ledgerService,
		pricing:   pricing.NewService(db, cfg, log),
		trade:     trade.NewService(db, cfg, log, ledgerService),
		invoice:   invoice.NewService(db, cfg, log, pdf.NewService(cfg), email.NewEmailService(cfg, log)),
		analytics: analytics.NewService(db, cfg, log),
	}
}

func (s *services) handlers(log *logrus.Logger, cfg *config.Config) *routes.Handlers {
	return &routes.Handlers{
		Catalog:   handlers.NewCatalogHandler(s.catalog, log),
		Inventory: handlers.NewInventoryHandler(s.ledger, cfg, log),
		Trade:     handlers.NewTradeHandler(s.trade, log),
		Discount:  handlers.NewDiscountHandler(s.pricing, s.catalog, log),
		Invoice:   handlers.NewInvoiceHandler(s.invoice, log),
		Analytics: handlers.NewAnalyticsHandler(s.analytics, log),
	}
}
