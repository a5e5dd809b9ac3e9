package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"swapquote/internal/book"
)

// depthSnapshot is the venue's REST depth response.
type depthSnapshot struct {
	LastUpdateID uint64     `json:"lastUpdateId"`
	Bids         [][]string `json:"bids"` // sorted descending
	Asks         [][]string `json:"asks"` // sorted ascending
}

// SnapshotClient fetches full depth snapshots over REST, used to seed a
// book before streaming and to resync it after an update-sequence gap.
type SnapshotClient struct {
	endpoint string
	http     *http.Client
}

// NewSnapshotClient creates a snapshot client against the REST endpoint.
func NewSnapshotClient(endpoint string) *SnapshotClient {
	return &SnapshotClient{
		endpoint: strings.TrimRight(endpoint, "/"),
		http:     &http.Client{Timeout: 10 * time.Second},
	}
}

// Fetch retrieves the current book for a market, limited to depth levels,
// and returns the seeded book along with the snapshot's last update ID.
func (c *SnapshotClient) Fetch(ctx context.Context, ticker string, depth int) (book.Book, uint64, error) {
	url := fmt.Sprintf("%s/api/v3/depth?symbol=%s&limit=%d", c.endpoint, strings.ToUpper(ticker), depth)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return book.Book{}, 0, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return book.Book{}, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return book.Book{}, 0, fmt.Errorf("depth snapshot for %s: status %d: %s", ticker, resp.StatusCode, body)
	}

	var snap depthSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return book.Book{}, 0, fmt.Errorf("depth snapshot for %s: %w", ticker, err)
	}

	bids, err := book.ParseLevels(snap.Bids)
	if err != nil {
		return book.Book{}, 0, fmt.Errorf("depth snapshot bids for %s: %w", ticker, err)
	}
	asks, err := book.ParseLevels(snap.Asks)
	if err != nil {
		return book.Book{}, 0, fmt.Errorf("depth snapshot asks for %s: %w", ticker, err)
	}

	return book.New(depth, bids, asks, time.Now().UnixMilli()), snap.LastUpdateID, nil
}
