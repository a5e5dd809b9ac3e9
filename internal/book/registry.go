package book

import (
	"errors"
	"sync"
)

// ErrMarketNotFound is returned for a market the registry was not built
// with. Membership is fixed at construction, so this is a configuration
// fault, not a transient condition.
var ErrMarketNotFound = errors.New("market not registered")

// Registry maps a market ticker to its order book. Each book has exactly one
// writer (the stream pipeline) and any number of snapshot readers; a
// per-market mutex scopes every access to a single merge, replace, or copy,
// so readers never observe a half-merged side.
type Registry struct {
	books map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	book Book
}

// NewRegistry builds a registry over the seeded books. Markets cannot be
// added or removed afterwards.
func NewRegistry(seed map[string]Book) *Registry {
	books := make(map[string]*entry, len(seed))
	for ticker, b := range seed {
		books[ticker] = &entry{book: b}
	}
	return &Registry{books: books}
}

// Snapshot returns a deep copy of the market's current book. The lock is
// held only for the copy, never across a caller's walk.
func (r *Registry) Snapshot(ticker string) (Book, error) {
	e, ok := r.books[ticker]
	if !ok {
		return Book{}, errMarket(ticker)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.book.Clone(), nil
}

// Apply merges one diff into the market's book under its lock.
func (r *Registry) Apply(ticker string, d Diff) error {
	e, ok := r.books[ticker]
	if !ok {
		return errMarket(ticker)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.book.ApplyDiff(d)
	return nil
}

// Replace swaps in a freshly seeded book, used when the stream layer forces
// a resync after an update-sequence gap.
func (r *Registry) Replace(ticker string, b Book) error {
	e, ok := r.books[ticker]
	if !ok {
		return errMarket(ticker)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.book = b
	return nil
}

// Tickers lists the registered markets.
func (r *Registry) Tickers() []string {
	out := make([]string, 0, len(r.books))
	for t := range r.books {
		out = append(out, t)
	}
	return out
}

func errMarket(ticker string) error {
	return &MarketError{Ticker: ticker}
}

// MarketError wraps ErrMarketNotFound with the offending ticker.
type MarketError struct {
	Ticker string
}

func (e *MarketError) Error() string { return "market " + e.Ticker + " not registered" }
func (e *MarketError) Unwrap() error { return ErrMarketNotFound }
