package binance

import "strings"

// Market is one traded pair, named by the venue's base/quote symbols.
type Market struct {
	Base  string
	Quote string
}

// Ticker is the venue's stream identifier for the pair.
func (m Market) Ticker() string {
	return strings.ToLower(m.Base + m.Quote)
}

// Markets indexes the configured pairs by asset pair in either orientation,
// so a (sell, buy) lookup finds the market whichever leg is the base.
type Markets struct {
	byPair  map[[2]string]Market
	tickers []string
}

// NewMarkets builds the index. Later duplicates of a pair overwrite earlier
// ones; the ticker list keeps declaration order.
func NewMarkets(markets []Market) Markets {
	idx := Markets{byPair: make(map[[2]string]Market, 2*len(markets))}
	for _, m := range markets {
		idx.byPair[[2]string{m.Base, m.Quote}] = m
		idx.byPair[[2]string{m.Quote, m.Base}] = m
		idx.tickers = append(idx.tickers, m.Ticker())
	}
	return idx
}

// Get finds the market trading the two assets, in either orientation.
func (ms Markets) Get(assetA, assetB string) (Market, bool) {
	m, ok := ms.byPair[[2]string{assetA, assetB}]
	return m, ok
}

// Tickers lists the stream tickers in declaration order.
func (ms Markets) Tickers() []string {
	return ms.tickers
}
