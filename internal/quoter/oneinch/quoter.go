package oneinch

import (
	"context"

	"github.com/shopspring/decimal"

	"swapquote/internal/asset"
)

// Quoter adapts the aggregator client to the common quoting interface.
// Native-scale amounts are integral token units, so the sell amount is
// floored before it goes on the wire.
type Quoter struct {
	client  *Client
	chainID uint32
}

// New builds an aggregator-backed quoter for the given chain.
func New(baseURL string, chainID uint32, params RouteParams) (*Quoter, error) {
	client, err := NewClient(baseURL, chainID, params)
	if err != nil {
		return nil, err
	}
	return &Quoter{client: client, chainID: chainID}, nil
}

// Query quotes a native-scale sell amount of sellID against buyID.
func (q *Quoter) Query(ctx context.Context, sellID, buyID string, sellAmount float64) (float64, error) {
	amount := decimal.NewFromFloat(sellAmount).Floor()

	received, err := q.client.Quote(ctx, sellID, buyID, amount)
	if err != nil {
		return 0, err
	}
	return received.InexactFloat64(), nil
}

// Venue is the chain the aggregator routes on.
func (q *Quoter) Venue() asset.Venue {
	return asset.Venue(int32(q.chainID))
}
