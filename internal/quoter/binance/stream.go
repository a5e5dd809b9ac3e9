package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"swapquote/internal/book"
)

// depthFrame is one combined-stream message.
type depthFrame struct {
	Stream string      `json:"stream"`
	Data   depthUpdate `json:"data"`
}

// depthUpdate is the venue's incremental depth event.
type depthUpdate struct {
	Event   string     `json:"e"` // event type, "depthUpdate"
	Time    int64      `json:"E"` // event time, ms
	Symbol  string     `json:"s"` // market ticker, upper case
	FirstID uint64     `json:"U"` // first update ID in event
	FinalID uint64     `json:"u"` // final update ID in event
	Bids    [][]string `json:"b"` // bid deltas, sorted descending
	Asks    [][]string `json:"a"` // ask deltas, sorted ascending
}

// streamHandler is the decode→route→apply pipeline behind the websocket
// worker: it turns raw depth frames into book diffs and applies them to the
// right registry entry. It also tracks update-ID continuity per market and
// forces a snapshot resync when the feed gaps; the book layer itself stays
// non-validating.
type streamHandler struct {
	url       string
	books     *book.Registry
	snapshots *SnapshotClient
	depth     int

	mu        sync.Mutex
	lastFinal map[string]uint64
	resyncing map[string]bool
}

func newStreamHandler(url string, books *book.Registry, snapshots *SnapshotClient, depth int, lastFinal map[string]uint64) *streamHandler {
	if lastFinal == nil {
		lastFinal = make(map[string]uint64)
	}
	return &streamHandler{
		url:       url,
		books:     books,
		snapshots: snapshots,
		depth:     depth,
		lastFinal: lastFinal,
		resyncing: make(map[string]bool),
	}
}

func (h *streamHandler) ID() string  { return "BINANCE_DEPTH" }
func (h *streamHandler) URL() string { return h.url }

// OnConnect is a no-op: subscription is encoded in the stream URL.
func (h *streamHandler) OnConnect(ctx context.Context, conn *websocket.Conn) error {
	return nil
}

// OnMessage decodes one frame and applies it. A malformed frame is logged
// and dropped; the book is left untouched because both delta lists are
// parsed in full before anything is applied.
func (h *streamHandler) OnMessage(ctx context.Context, msg []byte) {
	var frame depthFrame
	if err := json.Unmarshal(msg, &frame); err != nil {
		slog.Warn("depth frame decode failed", "err", err)
		return
	}
	if frame.Data.Event != "depthUpdate" {
		return
	}

	ticker := strings.ToLower(frame.Data.Symbol)

	bids, err := book.ParseLevels(frame.Data.Bids)
	if err != nil {
		slog.Warn("depth event dropped", "ticker", ticker, "err", err)
		return
	}
	asks, err := book.ParseLevels(frame.Data.Asks)
	if err != nil {
		slog.Warn("depth event dropped", "ticker", ticker, "err", err)
		return
	}

	h.checkContinuity(ctx, ticker, frame.Data)

	d := book.Diff{
		Bids:    bids,
		Asks:    asks,
		Time:    frame.Data.Time,
		FirstID: frame.Data.FirstID,
		FinalID: frame.Data.FinalID,
	}
	if err := h.books.Apply(ticker, d); err != nil {
		slog.Warn("depth event for unknown market", "ticker", ticker, "err", err)
		return
	}

	h.mu.Lock()
	h.lastFinal[ticker] = frame.Data.FinalID
	h.mu.Unlock()
}

// checkContinuity compares the event's first update ID against the last
// applied final ID. On a gap the event is still applied (the merge is
// price-keyed, so stale state converges) but a fresh snapshot is requested
// in the background to resynchronize the book.
func (h *streamHandler) checkContinuity(ctx context.Context, ticker string, d depthUpdate) {
	h.mu.Lock()
	last, known := h.lastFinal[ticker]
	inFlight := h.resyncing[ticker]
	gap := known && d.FirstID > last+1
	if gap && !inFlight {
		h.resyncing[ticker] = true
	}
	h.mu.Unlock()

	if !gap {
		return
	}
	slog.Warn("update-sequence gap detected",
		"ticker", ticker, "last_final", last, "first", d.FirstID)
	if inFlight {
		return
	}

	go h.resync(ctx, ticker)
}

func (h *streamHandler) resync(ctx context.Context, ticker string) {
	defer func() {
		h.mu.Lock()
		h.resyncing[ticker] = false
		h.mu.Unlock()
	}()

	fresh, lastID, err := h.snapshots.Fetch(ctx, ticker, h.depth)
	if err != nil {
		slog.Warn("resync snapshot fetch failed", "ticker", ticker, "err", err)
		return
	}
	if err := h.books.Replace(ticker, fresh); err != nil {
		slog.Warn("resync replace failed", "ticker", ticker, "err", err)
		return
	}

	h.mu.Lock()
	h.lastFinal[ticker] = lastID
	h.mu.Unlock()
	slog.Info("book resynced from snapshot", "ticker", ticker, "last_update_id", lastID)
}

// streamURL builds the combined-stream endpoint for the given tickers:
// <endpoint>/stream?streams=<t>@depth@<rate>ms/...
func streamURL(endpoint string, tickers []string, refreshRateMS int) string {
	keys := make([]string, 0, len(tickers))
	for _, t := range tickers {
		keys = append(keys, fmt.Sprintf("%s@depth@%dms", t, refreshRateMS))
	}
	return fmt.Sprintf("%s/stream?streams=%s", strings.TrimRight(endpoint, "/"), strings.Join(keys, "/"))
}
