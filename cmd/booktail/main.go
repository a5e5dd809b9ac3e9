// booktail streams one market's depth and repaints the live book in the
// terminal, a quick way to eyeball that the stream pipeline tracks the
// venue.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"swapquote/internal/infra"
	"swapquote/internal/quoter/binance"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	base := flag.String("base", "ETH", "base asset symbol")
	quote := flag.String("quote", "USDT", "quote asset symbol")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := infra.LoadConfig(*configPath)
	if err != nil {
		slog.Error("config load failed", "path", *configPath, "err", err)
		os.Exit(1)
	}
	slog.SetDefault(infra.NewLogger(cfg))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	market := binance.Market{Base: *base, Quote: *quote}
	q, err := binance.New(ctx, binance.Config{
		StreamEndpoint: cfg.Stream.Endpoint,
		RestEndpoint:   cfg.Stream.RestEndpoint,
		RefreshRateMS:  cfg.Stream.RefreshRateMS,
		Depth:          cfg.Stream.Depth,
		Markets:        []binance.Market{market},
	})
	if err != nil {
		slog.Error("stream quoter start failed", "err", err)
		os.Exit(1)
	}
	defer q.Close()

	ticker := time.NewTicker(time.Duration(cfg.Stream.RefreshRateMS) * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b, err := q.Book(market.Ticker())
			if err != nil {
				slog.Error("book snapshot failed", "err", err)
				os.Exit(1)
			}
			fmt.Printf("%s (last update %d)\n%s\n", market.Ticker(), b.LastUpdate, b.Render())
		}
	}
}
