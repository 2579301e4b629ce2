// Command seed-options generates option chains for every listed stock.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"strings"
	"time"

	"github.com/trogers1052/portfolio-service/internal/config"
	"github.com/trogers1052/portfolio-service/internal/database"
	"github.com/trogers1052/portfolio-service/internal/logger"
	"github.com/trogers1052/portfolio-service/internal/models"
	"github.com/trogers1052/portfolio-service/internal/pricing"
	"go.uber.org/zap"
)

func main() {
	tickers := flag.String("tickers", "", "comma-separated tickers to seed (default: all stocks)")
	dryRun := flag.Bool("dry-run", false, "generate chains without inserting them")
	flag.Parse()

	log := logger.NewDevelopment()
	defer log.Sync()

	cfg := config.Load()
	db, err := database.New(cfg.Database.ConnectionString())
	if err != nil {
		log.Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	stocks, err := db.ListStocks(ctx)
	if err != nil {
		log.Fatal("failed to list stocks", zap.Error(err))
	}
	stocks = filterStocks(stocks, *tickers)

	now := time.Now()
	var chain []models.Asset
	for _, stock := range stocks {
		listing, err := db.LatestListing(ctx, stock.ID)
		if errors.Is(err, models.ErrListingNotFound) {
			log.Warn("no listing, skipping", zap.String("ticker", stock.Ticker))
			continue
		}
		if err != nil {
			log.Fatal("failed to load listing", zap.String("ticker", stock.Ticker), zap.Error(err))
		}

		options := pricing.GenerateOptionChain(stock, listing.Price(), now)
		for _, o := range options {
			chain = append(chain, o)
		}
		log.Info("generated chain",
			zap.String("ticker", stock.Ticker),
			zap.String("spot", listing.Price().String()),
			zap.Int("contracts", len(options)))
	}

	if *dryRun {
		log.Info("dry run, nothing inserted", zap.Int("contracts", len(chain)))
		return
	}

	inserted, err := db.CreateAssetsBatch(ctx, chain)
	if err != nil {
		log.Error("failed to insert option chains", zap.Error(err))
		os.Exit(1)
	}
	log.Info("option chains seeded",
		zap.Int("generated", len(chain)),
		zap.Int("inserted", inserted))
}

func filterStocks(stocks []*models.Stock, tickers string) []*models.Stock {
	if tickers == "" {
		return stocks
	}
	wanted := make(map[string]bool)
	for _, t := range strings.Split(tickers, ",") {
		if t = strings.ToUpper(strings.TrimSpace(t)); t != "" {
			wanted[t] = true
		}
	}

	var out []*models.Stock
	for _, s := range stocks {
		if wanted[strings.ToUpper(s.Ticker)] {
			out = append(out, s)
		}
	}
	return out
}
