package asset

import (
	"errors"
	"fmt"
	"math"
)

// Venue identifies a price source with its own asset identifiers and decimal
// conventions. On-chain venues carry their EVM chain ID; centralised venues
// use negative sentinels so the two ranges can never collide.
type Venue int32

const (
	Binance  Venue = -1
	Ethereum Venue = 1
	Arbitrum Venue = 42161
)

func (v Venue) String() string {
	switch v {
	case Binance:
		return "binance"
	case Ethereum:
		return "ethereum"
	case Arbitrum:
		return "arbitrum"
	default:
		return fmt.Sprintf("chain-%d", int32(v))
	}
}

// ErrVenueNotSupported is returned when an asset has no listing on the
// requested venue. Quoting against that venue cannot proceed at all.
var ErrVenueNotSupported = errors.New("asset not listed on venue")

// Listing is an asset's venue-native identity: the identifier the venue
// understands (a symbol, a contract address) and the decimal scale of its
// native unit.
type Listing struct {
	ID       string
	Decimals uint8
}

// Asset is a logical asset together with its per-venue listings. The same
// logical asset can be an ERC-20 address on one venue and a plain symbol on
// another, with entirely different decimal scales.
type Asset struct {
	Symbol   string
	listings map[Venue]Listing
}

// New creates an asset with no listings. Add venues with WithListing.
func New(symbol string) *Asset {
	return &Asset{
		Symbol:   symbol,
		listings: make(map[Venue]Listing),
	}
}

// WithListing registers the asset's identity on a venue. Returns the asset
// for chained construction.
func (a *Asset) WithListing(v Venue, id string, decimals uint8) *Asset {
	a.listings[v] = Listing{ID: id, Decimals: decimals}
	return a
}

// Listing resolves the asset's native identity on a venue.
func (a *Asset) Listing(v Venue) (Listing, error) {
	l, ok := a.listings[v]
	if !ok {
		return Listing{}, fmt.Errorf("%s on %s: %w", a.Symbol, v, ErrVenueNotSupported)
	}
	return l, nil
}

// NativeID resolves the asset's venue-native identifier.
func (a *Asset) NativeID(v Venue) (string, error) {
	l, err := a.Listing(v)
	if err != nil {
		return "", err
	}
	return l.ID, nil
}

// Decimals resolves the asset's decimal scale on a venue.
func (a *Asset) Decimals(v Venue) (uint8, error) {
	l, err := a.Listing(v)
	if err != nil {
		return 0, err
	}
	return l.Decimals, nil
}

// ToNative scales an amount from the venue-agnostic unit (decimals = 0) into
// the asset's native unit on v.
func (a *Asset) ToNative(v Venue, amount float64) (float64, error) {
	dec, err := a.Decimals(v)
	if err != nil {
		return 0, err
	}
	return convert(0, dec, amount), nil
}

// FromNative scales an amount from the asset's native unit on v back into
// the venue-agnostic unit.
func (a *Asset) FromNative(v Venue, amount float64) (float64, error) {
	dec, err := a.Decimals(v)
	if err != nil {
		return 0, err
	}
	return convert(dec, 0, amount), nil
}

func convert(originDec, targetDec uint8, amount float64) float64 {
	net := int(targetDec) - int(originDec)
	if net == 0 {
		return amount
	}
	if net > 0 {
		return amount * math.Pow10(net)
	}
	return amount / math.Pow10(-net)
}

// Registry maps logical symbols to assets. It is constructed once at startup
// from configuration and passed by reference into the components that need
// it; there is no ambient global table.
type Registry struct {
	assets map[string]*Asset
}

// NewRegistry indexes the given assets by symbol.
func NewRegistry(assets ...*Asset) *Registry {
	r := &Registry{assets: make(map[string]*Asset, len(assets))}
	for _, a := range assets {
		r.assets[a.Symbol] = a
	}
	return r
}

// Get returns the asset registered under symbol.
func (r *Registry) Get(symbol string) (*Asset, error) {
	a, ok := r.assets[symbol]
	if !ok {
		return nil, fmt.Errorf("unknown asset %q", symbol)
	}
	return a, nil
}

// Resolve is the registry-level shortcut for looking up a symbol's listing
// on a venue.
func (r *Registry) Resolve(symbol string, v Venue) (Listing, error) {
	a, err := r.Get(symbol)
	if err != nil {
		return Listing{}, err
	}
	return a.Listing(v)
}
