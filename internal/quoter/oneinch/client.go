// Package oneinch quotes swaps through the 1inch aggregation REST API.
package oneinch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"swapquote/internal/infra"
)

const defaultBaseURL = "https://api.1inch.io/v5.0"

// RouteParams tunes how the aggregator searches for a route. A zero field is
// omitted from the request and the API default applies.
type RouteParams struct {
	ConnectorTokens int // max intermediate tokens, API max 5
	ComplexityLevel int // max route depth, API max 3
	MainRouteParts  int // max main route splits, API max 50
	Parts           int // max total splits, API max 100
}

func (p RouteParams) validate() error {
	if p.ConnectorTokens < 0 || p.ConnectorTokens > 5 {
		return fmt.Errorf("connector tokens must be in [0, 5], got %d", p.ConnectorTokens)
	}
	if p.ComplexityLevel < 0 || p.ComplexityLevel > 3 {
		return fmt.Errorf("complexity level must be in [0, 3], got %d", p.ComplexityLevel)
	}
	if p.MainRouteParts < 0 || p.MainRouteParts > 50 {
		return fmt.Errorf("main route parts must be in [0, 50], got %d", p.MainRouteParts)
	}
	if p.Parts < 0 || p.Parts > 100 {
		return fmt.Errorf("parts must be in [0, 100], got %d", p.Parts)
	}
	return nil
}

// apply adds the non-zero parameters to the query.
func (p RouteParams) apply(q url.Values) {
	if p.ConnectorTokens > 0 {
		q.Set("connectorTokens", strconv.Itoa(p.ConnectorTokens))
	}
	if p.ComplexityLevel > 0 {
		q.Set("complexityLevel", strconv.Itoa(p.ComplexityLevel))
	}
	if p.MainRouteParts > 0 {
		q.Set("mainRouteParts", strconv.Itoa(p.MainRouteParts))
	}
	if p.Parts > 0 {
		q.Set("parts", strconv.Itoa(p.Parts))
	}
}

// quoteResponse is the subset of the quote payload we consume. Amounts come
// back as decimal strings in the token's native scale.
type quoteResponse struct {
	ToTokenAmount string `json:"toTokenAmount"`
}

// Client calls the aggregator's quote endpoint for one chain. Outbound calls
// go through a rate limiter and a circuit breaker so a degraded aggregator
// cannot stall or spam the comparison loop.
type Client struct {
	http    *http.Client
	baseURL string
	chainID uint32
	params  RouteParams
	limiter *infra.RateLimiter
	breaker *infra.CircuitBreaker
}

// NewClient builds a client for the given chain. An empty baseURL selects
// the public v5.0 endpoint. Route parameters are validated here so a bad
// configuration fails at startup, not on the first quote.
func NewClient(baseURL string, chainID uint32, params RouteParams) (*Client, error) {
	if err := params.validate(); err != nil {
		return nil, fmt.Errorf("route params: %w", err)
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	httpClient, err := infra.NewHTTPClient(10 * time.Second)
	if err != nil {
		return nil, err
	}

	return &Client{
		http:    httpClient,
		baseURL: strings.TrimRight(baseURL, "/"),
		chainID: chainID,
		params:  params,
		limiter: infra.NewRateLimiter(5, 1),
		breaker: infra.NewCircuitBreaker(infra.DefaultCircuitBreakerConfig("1inch")),
	}, nil
}

// Quote asks the aggregator how much of toToken a native-scale amount of
// fromToken buys, returning the answer in the destination token's native
// scale.
func (c *Client) Quote(ctx context.Context, fromToken, toToken string, amount decimal.Decimal) (decimal.Decimal, error) {
	if !c.breaker.Allow() {
		return decimal.Zero, fmt.Errorf("1inch circuit breaker open")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return decimal.Zero, err
	}

	q := url.Values{}
	q.Set("fromTokenAddress", fromToken)
	q.Set("toTokenAddress", toToken)
	q.Set("amount", amount.String())
	c.params.apply(q)

	endpoint := fmt.Sprintf("%s/%d/quote?%s", c.baseURL, c.chainID, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return decimal.Zero, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.breaker.RecordFailure()
		return decimal.Zero, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.breaker.RecordFailure()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return decimal.Zero, fmt.Errorf("1inch quote: status %d: %s", resp.StatusCode, body)
	}

	var out quoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		c.breaker.RecordFailure()
		return decimal.Zero, fmt.Errorf("1inch quote: %w", err)
	}

	received, err := decimal.NewFromString(out.ToTokenAmount)
	if err != nil {
		c.breaker.RecordFailure()
		return decimal.Zero, fmt.Errorf("1inch quote amount %q: %w", out.ToTokenAmount, err)
	}

	c.breaker.RecordSuccess()
	return received, nil
}
