package infra

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// MarketConfig names one traded pair on the stream venue.
type MarketConfig struct {
	Base  string `yaml:"base"`
	Quote string `yaml:"quote"`
}

// ListingConfig is an asset's identity on one venue.
type ListingConfig struct {
	Venue    int32  `yaml:"venue"`
	ID       string `yaml:"id"`
	Decimals uint8  `yaml:"decimals"`
}

// AssetConfig declares a logical asset and its per-venue listings.
type AssetConfig struct {
	Symbol   string          `yaml:"symbol"`
	Listings []ListingConfig `yaml:"listings"`
}

// Config holds the whole process configuration. Secrets are expected in the
// environment and override anything found in the file.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Stream struct {
		Endpoint      string         `yaml:"endpoint"`      // wss://stream.binance.com:9443
		RestEndpoint  string         `yaml:"rest_endpoint"` // https://api.binance.com
		RefreshRateMS int            `yaml:"refresh_rate_ms"`
		Depth         int            `yaml:"depth"`
		Markets       []MarketConfig `yaml:"markets"`
	} `yaml:"stream"`

	OneInch struct {
		Enabled         bool   `yaml:"enabled"`
		BaseURL         string `yaml:"base_url"`
		ChainID         uint32 `yaml:"chain_id"`
		ConnectorTokens int    `yaml:"connector_tokens"`
		ComplexityLevel int    `yaml:"complexity_level"`
		MainRouteParts  int    `yaml:"main_route_parts"`
		Parts           int    `yaml:"parts"`
	} `yaml:"oneinch"`

	Chain struct {
		Enabled        bool   `yaml:"enabled"`
		RPCURL         string `yaml:"rpc_url"`
		QuoterContract string `yaml:"quoter_contract"`
		ChainID        uint32 `yaml:"chain_id"`
	} `yaml:"chain"`

	Compare struct {
		SellAsset  string  `yaml:"sell_asset"`
		BuyAsset   string  `yaml:"buy_asset"`
		SellAmount float64 `yaml:"sell_amount"`
		IntervalMS int     `yaml:"interval_ms"`
	} `yaml:"compare"`

	Assets []AssetConfig `yaml:"assets"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// LoadConfig reads and parses the config file, applies environment
// overrides, and fails fast on an invalid configuration.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	overrideWithEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks configuration validity.
func (c *Config) Validate() error {
	if !strings.HasPrefix(c.Stream.Endpoint, "ws://") && !strings.HasPrefix(c.Stream.Endpoint, "wss://") {
		return fmt.Errorf("invalid stream endpoint: %s", c.Stream.Endpoint)
	}
	if !strings.HasPrefix(c.Stream.RestEndpoint, "http://") && !strings.HasPrefix(c.Stream.RestEndpoint, "https://") {
		return fmt.Errorf("invalid stream rest endpoint: %s", c.Stream.RestEndpoint)
	}

	// The venue only serves these stream cadences and snapshot depths.
	switch c.Stream.RefreshRateMS {
	case 100, 1000:
	default:
		return fmt.Errorf("refresh rate must be 100 or 1000 ms, got %d", c.Stream.RefreshRateMS)
	}
	switch c.Stream.Depth {
	case 5, 10, 20:
	default:
		return fmt.Errorf("book depth must be 5, 10 or 20, got %d", c.Stream.Depth)
	}

	if len(c.Stream.Markets) == 0 {
		return fmt.Errorf("at least one stream market is required")
	}
	for _, m := range c.Stream.Markets {
		if m.Base == "" || m.Quote == "" {
			return fmt.Errorf("market needs both base and quote, got %q/%q", m.Base, m.Quote)
		}
	}

	if len(c.Assets) == 0 {
		return fmt.Errorf("at least one asset is required")
	}
	seen := make(map[string]bool, len(c.Assets))
	for _, a := range c.Assets {
		if a.Symbol == "" {
			return fmt.Errorf("asset with empty symbol")
		}
		if seen[a.Symbol] {
			return fmt.Errorf("duplicate asset %q", a.Symbol)
		}
		seen[a.Symbol] = true
	}

	if c.Chain.Enabled && c.Chain.RPCURL == "" {
		return fmt.Errorf("chain quoter enabled but rpc_url is empty (set SWAPQUOTE_RPC_URL)")
	}
	if c.Chain.Enabled && c.Chain.QuoterContract == "" {
		return fmt.Errorf("chain quoter enabled but quoter_contract is empty")
	}

	if c.Compare.IntervalMS <= 0 {
		return fmt.Errorf("compare interval must be positive")
	}
	if c.Compare.SellAmount <= 0 {
		return fmt.Errorf("compare sell amount must be positive")
	}

	return nil
}

// overrideWithEnv lets the environment win over the file for anything
// secret-adjacent (RPC endpoints often embed API keys).
func overrideWithEnv(cfg *Config) {
	if rpc := os.Getenv("SWAPQUOTE_RPC_URL"); rpc != "" {
		cfg.Chain.RPCURL = rpc
	}
	if base := os.Getenv("SWAPQUOTE_ONEINCH_URL"); base != "" {
		cfg.OneInch.BaseURL = base
	}
}
