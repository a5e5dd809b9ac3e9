package binance

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swapquote/internal/book"
	"swapquote/internal/quoter"
)

const quoteEps = 0.00001

// testQuoter builds a quoter over a pre-seeded registry, bypassing the
// snapshot and stream plumbing.
func testQuoter(t *testing.T) *Quoter {
	t.Helper()
	books := book.NewRegistry(map[string]book.Book{
		"ethusdt": book.New(5,
			[]book.Tick{{Price: 1890, Qty: 1}, {Price: 1889, Qty: 0.21}, {Price: 1888, Qty: 3.22}},
			[]book.Tick{{Price: 1891, Qty: 1}, {Price: 1892, Qty: 0.21}, {Price: 1893, Qty: 3.22}},
			100,
		),
	})
	return &Quoter{
		markets: NewMarkets([]Market{{Base: "ETH", Quote: "USDT"}}),
		books:   books,
		depth:   5,
	}
}

func TestQuerySellBaseWalksBids(t *testing.T) {
	q := testQuoter(t)

	out, err := q.Query(context.Background(), "ETH", "USDT", 4.43)
	require.NoError(t, err)
	assert.InEpsilon(t, 8366.05, out, quoteEps)
}

func TestQuerySellQuoteWalksBids(t *testing.T) {
	q := testQuoter(t)

	out, err := q.Query(context.Background(), "USDT", "ETH", 8366.05)
	require.NoError(t, err)
	assert.InEpsilon(t, 4.43, out, quoteEps)
}

func TestQueryPartialFill(t *testing.T) {
	q := testQuoter(t)

	_, err := q.Query(context.Background(), "ETH", "USDT", 100)
	var pf *quoter.PartialFillError
	require.ErrorAs(t, err, &pf)
	assert.InEpsilon(t, 4.43, pf.Used, quoteEps)
	assert.Equal(t, 100.0, pf.Requested)
}

func TestQueryUnknownPair(t *testing.T) {
	q := testQuoter(t)

	_, err := q.Query(context.Background(), "ETH", "BTC", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no market between ETH and BTC")
}

func TestBookSnapshotIsIsolated(t *testing.T) {
	q := testQuoter(t)

	snap, err := q.Book("ethusdt")
	require.NoError(t, err)

	levels := snap.Bids.Levels()
	levels[0].Qty = 999

	again, err := q.Book("ethusdt")
	require.NoError(t, err)
	best, ok := again.Bids.Best()
	require.True(t, ok)
	assert.Equal(t, 1.0, best.Qty)
}
