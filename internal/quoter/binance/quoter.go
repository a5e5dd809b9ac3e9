// Package binance quotes swaps against locally maintained order books fed
// by the venue's incremental depth stream.
package binance

import (
	"context"
	"fmt"

	"swapquote/internal/asset"
	"swapquote/internal/book"
	"swapquote/internal/infra"
	"swapquote/internal/quoter"
)

// Config holds the stream-venue settings the quoter needs.
type Config struct {
	StreamEndpoint string
	RestEndpoint   string
	RefreshRateMS  int
	Depth          int
	Markets        []Market
}

// Quoter prices swaps by walking a live order book. It owns the book
// registry, the depth stream worker that writes to it, and the snapshot
// client that seeds and resyncs it.
type Quoter struct {
	markets Markets
	books   *book.Registry
	worker  *infra.WSWorker
	depth   int
}

// New seeds one book per configured market from a REST snapshot, then
// starts the depth stream. Construction fails if any snapshot cannot be
// fetched; a market that never had a book would quote zero liquidity
// silently.
func New(ctx context.Context, cfg Config) (*Quoter, error) {
	markets := NewMarkets(cfg.Markets)
	snapshots := NewSnapshotClient(cfg.RestEndpoint)

	seed := make(map[string]book.Book, len(cfg.Markets))
	lastFinal := make(map[string]uint64, len(cfg.Markets))
	for _, ticker := range markets.Tickers() {
		b, lastID, err := snapshots.Fetch(ctx, ticker, cfg.Depth)
		if err != nil {
			return nil, fmt.Errorf("seeding %s: %w", ticker, err)
		}
		seed[ticker] = b
		lastFinal[ticker] = lastID
	}
	books := book.NewRegistry(seed)

	handler := newStreamHandler(
		streamURL(cfg.StreamEndpoint, markets.Tickers(), cfg.RefreshRateMS),
		books, snapshots, cfg.Depth, lastFinal,
	)
	worker := infra.NewWSWorker(handler)
	worker.Start(ctx)

	return &Quoter{
		markets: markets,
		books:   books,
		worker:  worker,
		depth:   cfg.Depth,
	}, nil
}

// Close stops the stream worker.
func (q *Quoter) Close() {
	q.worker.Stop()
}

// Book returns a consistent snapshot of a market's current book.
func (q *Quoter) Book(ticker string) (book.Book, error) {
	return q.books.Snapshot(ticker)
}

// Query prices a swap of sellID into buyID. Selling the market's base walks
// the bids for an exact base amount; selling its quote walks the same bids
// for an exact quote notional. Anything less than a full fill is an error
// here: the book simply does not hold enough depth for the requested size.
func (q *Quoter) Query(ctx context.Context, sellID, buyID string, sellAmount float64) (float64, error) {
	market, ok := q.markets.Get(sellID, buyID)
	if !ok {
		return 0, fmt.Errorf("no market between %s and %s", sellID, buyID)
	}

	snap, err := q.books.Snapshot(market.Ticker())
	if err != nil {
		return 0, err
	}

	var used, bought float64
	if sellID == market.Base {
		used, bought = snap.QueryExactBase(book.Sell, sellAmount)
	} else {
		used, bought = snap.QueryExactQuote(book.Sell, sellAmount)
	}
	if used != sellAmount {
		return 0, &quoter.PartialFillError{Used: used, Requested: sellAmount}
	}
	return bought, nil
}

// Venue identifies this quoter's domain.
func (q *Quoter) Venue() asset.Venue {
	return asset.Binance
}
