package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swapquote/internal/book"
)

func seededRegistry(t *testing.T) *book.Registry {
	t.Helper()
	return book.NewRegistry(map[string]book.Book{
		"ethusdt": book.New(5,
			[]book.Tick{{Price: 1890, Qty: 1}, {Price: 1889, Qty: 2}},
			[]book.Tick{{Price: 1891, Qty: 1}, {Price: 1892, Qty: 2}},
			100,
		),
	})
}

func depthFrameJSON(t *testing.T, symbol string, firstID, finalID uint64, bids, asks [][]string) []byte {
	t.Helper()
	msg, err := json.Marshal(map[string]any{
		"stream": "ethusdt@depth@100ms",
		"data": map[string]any{
			"e": "depthUpdate",
			"E": 150,
			"s": symbol,
			"U": firstID,
			"u": finalID,
			"b": bids,
			"a": asks,
		},
	})
	require.NoError(t, err)
	return msg
}

func TestStreamHandlerAppliesDepthUpdate(t *testing.T) {
	books := seededRegistry(t)
	h := newStreamHandler("", books, nil, 5, map[string]uint64{"ethusdt": 10})

	msg := depthFrameJSON(t, "ETHUSDT", 11, 12,
		[][]string{{"1890", "0"}, {"1895", "3"}},
		[][]string{{"1891", "0.5"}},
	)
	h.OnMessage(context.Background(), msg)

	snap, err := books.Snapshot("ethusdt")
	require.NoError(t, err)

	// 1890 removed, 1895 added on top.
	best, ok := snap.Bids.Best()
	require.True(t, ok)
	assert.Equal(t, 1895.0, best.Price)
	assert.Equal(t, 2, snap.Bids.Len())

	best, ok = snap.Asks.Best()
	require.True(t, ok)
	assert.Equal(t, 0.5, best.Qty)
	assert.Equal(t, int64(150), snap.LastUpdate)
}

func TestStreamHandlerDropsMalformedFrame(t *testing.T) {
	books := seededRegistry(t)
	h := newStreamHandler("", books, nil, 5, nil)

	before, err := books.Snapshot("ethusdt")
	require.NoError(t, err)

	// Bad qty in the second bid: the whole event is dropped, including the
	// valid first bid.
	msg := depthFrameJSON(t, "ETHUSDT", 11, 12,
		[][]string{{"1895", "3"}, {"1894", "oops"}}, nil)
	h.OnMessage(context.Background(), msg)

	after, err := books.Snapshot("ethusdt")
	require.NoError(t, err)
	assert.Equal(t, before.Bids.Levels(), after.Bids.Levels())
	assert.Equal(t, before.LastUpdate, after.LastUpdate)
}

func TestStreamHandlerIgnoresOtherEvents(t *testing.T) {
	books := seededRegistry(t)
	h := newStreamHandler("", books, nil, 5, nil)

	before, err := books.Snapshot("ethusdt")
	require.NoError(t, err)

	h.OnMessage(context.Background(), []byte(`{"stream":"ethusdt@trade","data":{"e":"trade","s":"ETHUSDT"}}`))
	h.OnMessage(context.Background(), []byte(`not json`))

	after, err := books.Snapshot("ethusdt")
	require.NoError(t, err)
	assert.Equal(t, before.LastUpdate, after.LastUpdate)
}

func TestStreamHandlerResyncsOnGap(t *testing.T) {
	books := seededRegistry(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ETHUSDT", r.URL.Query().Get("symbol"))
		fmt.Fprint(w, `{"lastUpdateId":40,"bids":[["2000","1"]],"asks":[["2001","1"]]}`)
	}))
	defer srv.Close()

	h := newStreamHandler("", books, NewSnapshotClient(srv.URL), 5, map[string]uint64{"ethusdt": 10})

	// FirstID 20 against lastFinal 10 is a gap.
	msg := depthFrameJSON(t, "ETHUSDT", 20, 21, [][]string{{"1880", "1"}}, nil)
	h.OnMessage(context.Background(), msg)

	require.Eventually(t, func() bool {
		snap, err := books.Snapshot("ethusdt")
		if err != nil {
			return false
		}
		best, ok := snap.Bids.Best()
		if !ok || best.Price != 2000 {
			return false
		}
		h.mu.Lock()
		defer h.mu.Unlock()
		return h.lastFinal["ethusdt"] == 40 && !h.resyncing["ethusdt"]
	}, 2*time.Second, 10*time.Millisecond, "book should be replaced by the snapshot")
}

func TestStreamHandlerContiguousUpdatesNoResync(t *testing.T) {
	books := seededRegistry(t)
	h := newStreamHandler("", books, nil, 5, map[string]uint64{"ethusdt": 10})

	// FirstID 11 follows lastFinal 10 exactly; snapshots being nil would
	// panic if a resync were attempted.
	msg := depthFrameJSON(t, "ETHUSDT", 11, 13, [][]string{{"1893", "1"}}, nil)
	h.OnMessage(context.Background(), msg)

	h.mu.Lock()
	defer h.mu.Unlock()
	assert.Equal(t, uint64(13), h.lastFinal["ethusdt"])
}

func TestStreamURL(t *testing.T) {
	url := streamURL("wss://stream.example.com", []string{"ethusdt", "btcusdt"}, 100)
	assert.Equal(t, "wss://stream.example.com/stream?streams=ethusdt@depth@100ms/btcusdt@depth@100ms", url)

	url = streamURL("wss://stream.example.com/", []string{"ethusdt"}, 1000)
	assert.Equal(t, "wss://stream.example.com/stream?streams=ethusdt@depth@1000ms", url)
}
