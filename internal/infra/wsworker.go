package infra

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// StreamHandler defines venue-specific logic for the WSWorker.
type StreamHandler interface {
	// URL is the full websocket endpoint, including any stream keys.
	URL() string
	// OnConnect runs after the dial succeeds, before the read loop starts.
	// A subscription handshake goes here; returning an error forces a
	// reconnect.
	OnConnect(ctx context.Context, conn *websocket.Conn) error
	// OnMessage receives every text/binary frame. Called sequentially from
	// the worker's read goroutine; frames for one connection are never
	// delivered out of order or concurrently.
	OnMessage(ctx context.Context, msg []byte)
	// ID labels the worker in logs.
	ID() string
}

// WSWorker manages the lifecycle of one market-data websocket connection:
// dial, reconnect with exponential backoff, read deadlines, and server ping
// frames answered with pongs. One worker owns one connection and one read
// goroutine, so a handler's book mutations stay single-writer.
type WSWorker struct {
	handler StreamHandler
	mu      sync.RWMutex
	conn    *websocket.Conn
	writeMu sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	ReadTimeout      time.Duration
	HandshakeTimeout time.Duration
}

// NewWSWorker creates a worker around the given handler.
func NewWSWorker(handler StreamHandler) *WSWorker {
	return &WSWorker{
		handler:          handler,
		ReadTimeout:      60 * time.Second,
		HandshakeTimeout: 10 * time.Second,
	}
}

// Start launches the connect/read loop in its own goroutine.
func (w *WSWorker) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(1)
	go w.runLoop(ctx)
}

// Stop terminates the worker and waits for the read loop to exit.
func (w *WSWorker) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.close()
	w.wg.Wait()
}

func (w *WSWorker) runLoop(ctx context.Context) {
	defer w.wg.Done()
	retry := 0

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := w.connect(ctx); err != nil {
			slog.Warn("stream connect failed", "id", w.handler.ID(), "err", err, "retry", retry)
			delay := Backoff(retry)
			retry++

			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
				continue
			}
		}

		retry = 0
		w.readLoop(ctx)
	}
}

func (w *WSWorker) connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: w.HandshakeTimeout}

	conn, _, err := dialer.DialContext(ctx, w.handler.URL(), nil)
	if err != nil {
		return err
	}

	// The venue pings us; answer with the same payload and treat the ping
	// as liveness, pushing the read deadline out.
	conn.SetPingHandler(func(payload string) error {
		conn.SetReadDeadline(time.Now().Add(w.ReadTimeout))
		return conn.WriteControl(websocket.PongMessage, []byte(payload), time.Now().Add(5*time.Second))
	})

	w.mu.Lock()
	w.conn = conn
	w.mu.Unlock()

	if err := w.handler.OnConnect(ctx, conn); err != nil {
		w.close()
		return fmt.Errorf("OnConnect failed: %w", err)
	}

	slog.Info("stream connected", "id", w.handler.ID())
	return nil
}

func (w *WSWorker) readLoop(ctx context.Context) {
	for {
		w.mu.RLock()
		c := w.conn
		w.mu.RUnlock()
		if c == nil {
			return
		}

		c.SetReadDeadline(time.Now().Add(w.ReadTimeout))
		msgType, msg, err := c.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				slog.Warn("stream read error", "id", w.handler.ID(), "err", err)
			}
			w.close()
			return
		}

		if msgType != websocket.TextMessage && msgType != websocket.BinaryMessage {
			continue
		}
		w.handler.OnMessage(ctx, msg)
	}
}

// Write sends one frame, serialized against concurrent writers.
func (w *WSWorker) Write(msgType int, data []byte) error {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()

	w.mu.RLock()
	c := w.conn
	w.mu.RUnlock()

	if c == nil {
		return fmt.Errorf("stream not connected")
	}

	return c.WriteMessage(msgType, data)
}

func (w *WSWorker) close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn != nil {
		w.conn.Close()
		w.conn = nil
	}
}
