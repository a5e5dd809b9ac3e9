// Package quoter defines the capability shared by every price source,
// whether a local order book, a remote aggregator, or an on-chain view
// call, and the venue-agnostic normalization wrapped around it.
package quoter

import (
	"context"
	"fmt"

	"swapquote/internal/asset"
)

// Quoter converts a sell amount in venue-native units into a buy amount.
// Implementations own whatever state they need (a book registry, an HTTP
// client, a contract handle); none of it leaks into this contract.
type Quoter interface {
	// Query prices nativeSellAmount of the sell asset against the buy
	// asset, both named by their venue-native identifiers. Failures are
	// venue failures (partial fill, network, revert) and are surfaced
	// unmodified; the core never retries.
	Query(ctx context.Context, nativeSellID, nativeBuyID string, nativeSellAmount float64) (float64, error)

	// Venue identifies the price source's domain for asset resolution.
	Venue() asset.Venue
}

// AmountOut quotes sellAmount of sellAsset into buyAsset via q. Amounts on
// both ends are in the venue-agnostic unit (decimals = 0); the venue's
// native identifiers and decimal scales come from the assets' listings.
// This normalization is shared by every venue kind, never reimplemented per
// venue. A missing listing on q's venue fails the whole call.
func AmountOut(ctx context.Context, q Quoter, sellAsset, buyAsset *asset.Asset, sellAmount float64) (float64, error) {
	v := q.Venue()

	nativeSellID, err := sellAsset.NativeID(v)
	if err != nil {
		return 0, err
	}
	nativeBuyID, err := buyAsset.NativeID(v)
	if err != nil {
		return 0, err
	}
	nativeSellAmount, err := sellAsset.ToNative(v, sellAmount)
	if err != nil {
		return 0, err
	}

	nativeBuyAmount, err := q.Query(ctx, nativeSellID, nativeBuyID, nativeSellAmount)
	if err != nil {
		return 0, err
	}

	return buyAsset.FromNative(v, nativeBuyAmount)
}

// PartialFillError reports a walk that could not consume the requested
// amount against available depth. It is an error at the quoter boundary:
// a swap quote for an amount the book cannot absorb is not a usable quote.
type PartialFillError struct {
	Used      float64
	Requested float64
}

func (e *PartialFillError) Error() string {
	return fmt.Sprintf("partial fill: %g/%g", e.Used, e.Requested)
}
