package binance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarketTicker(t *testing.T) {
	assert.Equal(t, "ethusdt", Market{Base: "ETH", Quote: "USDT"}.Ticker())
	assert.Equal(t, "btcusdt", Market{Base: "BTC", Quote: "USDT"}.Ticker())
}

func TestMarketsLookupBothOrientations(t *testing.T) {
	ms := NewMarkets([]Market{
		{Base: "ETH", Quote: "USDT"},
		{Base: "BTC", Quote: "USDT"},
	})

	m, ok := ms.Get("ETH", "USDT")
	require.True(t, ok)
	assert.Equal(t, "ETH", m.Base)

	// Reverse orientation finds the same market.
	m, ok = ms.Get("USDT", "ETH")
	require.True(t, ok)
	assert.Equal(t, "ETH", m.Base)

	_, ok = ms.Get("ETH", "BTC")
	assert.False(t, ok)

	assert.Equal(t, []string{"ethusdt", "btcusdt"}, ms.Tickers())
}
