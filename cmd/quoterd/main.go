package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"swapquote/internal/asset"
	"swapquote/internal/infra"
	"swapquote/internal/quoter"
	"swapquote/internal/quoter/binance"
	"swapquote/internal/quoter/oneinch"
	"swapquote/internal/quoter/univ3"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	// Secrets (RPC URLs, proxy credentials) come from the environment; a
	// local .env is a convenience, not a requirement.
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig(*configPath)
	if err != nil {
		slog.Error("config load failed", "path", *configPath, "err", err)
		os.Exit(1)
	}
	slog.SetDefault(infra.NewLogger(cfg))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	assets := buildAssets(cfg)
	sellAsset, err := assets.Get(cfg.Compare.SellAsset)
	if err != nil {
		slog.Error("unknown sell asset", "err", err)
		os.Exit(1)
	}
	buyAsset, err := assets.Get(cfg.Compare.BuyAsset)
	if err != nil {
		slog.Error("unknown buy asset", "err", err)
		os.Exit(1)
	}

	quoters, closeAll, err := buildQuoters(ctx, cfg)
	if err != nil {
		slog.Error("quoter construction failed", "err", err)
		os.Exit(1)
	}
	defer closeAll()

	slog.Info("quoterd running",
		"venues", len(quoters),
		"sell", cfg.Compare.SellAsset,
		"buy", cfg.Compare.BuyAsset,
		"amount", cfg.Compare.SellAmount)

	interval := time.Duration(cfg.Compare.IntervalMS) * time.Millisecond
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("shutting down")
			return
		case <-ticker.C:
			compare(ctx, quoters, sellAsset, buyAsset, cfg.Compare.SellAmount, interval)
		}
	}
}

// buildAssets turns the configured asset table into the registry shared by
// every venue.
func buildAssets(cfg *infra.Config) *asset.Registry {
	out := make([]*asset.Asset, 0, len(cfg.Assets))
	for _, ac := range cfg.Assets {
		a := asset.New(ac.Symbol)
		for _, l := range ac.Listings {
			a.WithListing(asset.Venue(l.Venue), l.ID, l.Decimals)
		}
		out = append(out, a)
	}
	return asset.NewRegistry(out...)
}

// buildQuoters constructs one quoter per enabled venue. The stream venue is
// always on; the aggregator and the on-chain view are opt-in.
func buildQuoters(ctx context.Context, cfg *infra.Config) ([]quoter.Quoter, func(), error) {
	markets := make([]binance.Market, 0, len(cfg.Stream.Markets))
	for _, m := range cfg.Stream.Markets {
		markets = append(markets, binance.Market{Base: m.Base, Quote: m.Quote})
	}
	bq, err := binance.New(ctx, binance.Config{
		StreamEndpoint: cfg.Stream.Endpoint,
		RestEndpoint:   cfg.Stream.RestEndpoint,
		RefreshRateMS:  cfg.Stream.RefreshRateMS,
		Depth:          cfg.Stream.Depth,
		Markets:        markets,
	})
	if err != nil {
		return nil, nil, err
	}
	quoters := []quoter.Quoter{bq}

	if cfg.OneInch.Enabled {
		oq, err := oneinch.New(cfg.OneInch.BaseURL, cfg.OneInch.ChainID, oneinch.RouteParams{
			ConnectorTokens: cfg.OneInch.ConnectorTokens,
			ComplexityLevel: cfg.OneInch.ComplexityLevel,
			MainRouteParts:  cfg.OneInch.MainRouteParts,
			Parts:           cfg.OneInch.Parts,
		})
		if err != nil {
			bq.Close()
			return nil, nil, err
		}
		quoters = append(quoters, oq)
	}

	if cfg.Chain.Enabled {
		cq, err := univ3.New(cfg.Chain.RPCURL, cfg.Chain.QuoterContract, cfg.Chain.ChainID)
		if err != nil {
			bq.Close()
			return nil, nil, err
		}
		quoters = append(quoters, cq)
	}

	return quoters, bq.Close, nil
}

// compare quotes the configured swap on every venue and logs the best
// answer. A venue that errors just sits this cycle out.
func compare(ctx context.Context, quoters []quoter.Quoter, sell, buy *asset.Asset, amount float64, budget time.Duration) {
	ctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	var (
		best      float64
		bestVenue asset.Venue
		quoted    int
	)
	for _, q := range quoters {
		out, err := quoter.AmountOut(ctx, q, sell, buy, amount)
		if err != nil {
			slog.Warn("venue unavailable this cycle", "venue", q.Venue(), "err", err)
			continue
		}
		slog.Debug("venue quote", "venue", q.Venue(), "out", out)
		if quoted == 0 || out > best {
			best = out
			bestVenue = q.Venue()
		}
		quoted++
	}

	if quoted == 0 {
		slog.Warn("no venue produced a quote this cycle")
		return
	}
	slog.Info("best quote",
		"venue", bestVenue,
		"sell", sell.Symbol,
		"buy", buy.Symbol,
		"in", amount,
		"out", best)
}
