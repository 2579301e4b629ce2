package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/trogers1052/portfolio-service/internal/api"
	"github.com/trogers1052/portfolio-service/internal/auth"
	"github.com/trogers1052/portfolio-service/internal/config"
	"github.com/trogers1052/portfolio-service/internal/currency"
	"github.com/trogers1052/portfolio-service/internal/database"
	"github.com/trogers1052/portfolio-service/internal/kafka"
	"github.com/trogers1052/portfolio-service/internal/logger"
	"github.com/trogers1052/portfolio-service/internal/marketdata"
	"github.com/trogers1052/portfolio-service/internal/models"
	"github.com/trogers1052/portfolio-service/internal/portfolio"
	"github.com/trogers1052/portfolio-service/internal/pricing"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.Logging.Level)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if cfg.Auth.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set")
	}
	taxCurrency, err := models.ParseCurrencyCode(cfg.Reporting.TaxCurrency)
	if err != nil {
		log.Fatal("invalid TAX_CURRENCY", zap.Error(err))
	}

	// --- Database ---
	db, err := database.New(cfg.Database.ConnectionString())
	if err != nil {
		log.Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close()
	log.Info("connected to PostgreSQL", zap.String("host", cfg.Database.Host))

	if cfg.Database.AutoMigrate {
		if err := db.Migrate(cfg.Database.MigrationsPath); err != nil {
			log.Fatal("migrations failed", zap.Error(err))
		}
	}

	// --- FX conversion, with optional Redis rate cache ---
	var rateCache currency.RateCache
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		rateCache = currency.NewRedisRateCache(rdb, cfg.Redis.RateTTL, log)
		log.Info("Redis rate cache enabled", zap.Duration("ttl", cfg.Redis.RateTTL))
	}
	converter := currency.NewConverter(db, rateCache, cfg.Pricing.LookupTimeout, log)

	// --- Pricing, with optional live quote fallback ---
	var listings pricing.ListingStore = db
	if cfg.Pricing.MarketDataURL != "" {
		feed := marketdata.NewClient(cfg.Pricing.MarketDataURL, cfg.Pricing.MarketDataKey,
			marketdata.WithRateLimit(cfg.Pricing.MarketDataRate),
			marketdata.WithTimeout(cfg.Pricing.LookupTimeout),
			marketdata.WithLogger(log))
		listings = marketdata.NewFallbackListings(db, db, feed, cfg.Pricing.ListingMaxAge, log)
		log.Info("live quote fallback enabled", zap.String("url", cfg.Pricing.MarketDataURL))
	}
	oracle := pricing.NewOracle(listings,
		pricing.WithRiskFreeRate(cfg.Pricing.RiskFreeRate),
		pricing.WithTimeout(cfg.Pricing.LookupTimeout),
		pricing.WithLogger(log))

	service := portfolio.NewService(db, oracle, converter,
		portfolio.WithTaxCurrency(taxCurrency),
		portfolio.WithLogger(log))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- Kafka ---
	var publisher api.TaxPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.OrdersTopic, cfg.Kafka.GroupID, db, log)
		go func() {
			if err := consumer.Start(ctx); err != nil {
				log.Error("order consumer stopped", zap.Error(err))
			}
		}()

		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TaxTopic)
		defer producer.Close()
		publisher = producer
	} else {
		log.Warn("KAFKA_BROKERS not set, order ingestion and tax publishing disabled")
	}

	// --- HTTP ---
	verifier := auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	handler := api.NewHandler(service, publisher, db, log)

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      api.SetupRoutes(handler, verifier, cfg.Server.AllowedOrigins),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("portfolio-service listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down portfolio-service")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", zap.Error(err))
	}
}
