// Package univ3 quotes swaps against Uniswap V3 pools through a static
// quoter contract, using plain eth_call so no gas is spent.
package univ3

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"golang.org/x/sync/errgroup"

	"swapquote/internal/asset"
)

const quoterABIJSON = `[{"name":"quoteExactInputSingle","type":"function","stateMutability":"view","inputs":[{"name":"tokenIn","type":"address"},{"name":"tokenOut","type":"address"},{"name":"amountIn","type":"uint256"},{"name":"fee","type":"uint24"},{"name":"sqrtPriceLimitX96","type":"uint160"}],"outputs":[{"name":"amountOut","type":"uint256"}]}]`

// feeTiers are the pool fee levels probed for every quote, in hundredths of
// a basis point.
var feeTiers = []int64{500, 3000, 10000}

// ContractCaller is the read-only node surface the quoter needs. Satisfied
// by *ethclient.Client.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Quoter prices a swap by asking the static quoter for every fee tier
// concurrently and taking the best output. All tiers must answer; a single
// failing call fails the quote rather than silently narrowing the search.
type Quoter struct {
	caller   ContractCaller
	abi      abi.ABI
	contract common.Address
	chainID  uint32
}

// New dials the RPC endpoint and builds a quoter against the static quoter
// contract deployed at contract.
func New(rpcURL, contract string, chainID uint32) (*Quoter, error) {
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", rpcURL, err)
	}
	return NewWithCaller(client, contract, chainID)
}

// NewWithCaller builds a quoter over an existing caller.
func NewWithCaller(caller ContractCaller, contract string, chainID uint32) (*Quoter, error) {
	if !common.IsHexAddress(contract) {
		return nil, fmt.Errorf("invalid quoter contract address %q", contract)
	}
	parsed, err := abi.JSON(strings.NewReader(quoterABIJSON))
	if err != nil {
		return nil, err
	}
	return &Quoter{
		caller:   caller,
		abi:      parsed,
		contract: common.HexToAddress(contract),
		chainID:  chainID,
	}, nil
}

// Query quotes a native-scale sell amount of sellID against buyID, returning
// the best output across fee tiers in the destination token's native scale.
func (q *Quoter) Query(ctx context.Context, sellID, buyID string, sellAmount float64) (float64, error) {
	if !common.IsHexAddress(sellID) || !common.IsHexAddress(buyID) {
		return 0, fmt.Errorf("univ3 expects hex token addresses, got %q and %q", sellID, buyID)
	}
	tokenIn := common.HexToAddress(sellID)
	tokenOut := common.HexToAddress(buyID)

	amountIn, _ := new(big.Float).SetFloat64(sellAmount).Int(nil)

	outs := make([]*big.Int, len(feeTiers))
	g, ctx := errgroup.WithContext(ctx)
	for i, fee := range feeTiers {
		i, fee := i, fee
		g.Go(func() error {
			out, err := q.quoteTier(ctx, tokenIn, tokenOut, amountIn, big.NewInt(fee))
			if err != nil {
				return fmt.Errorf("fee tier %d: %w", fee, err)
			}
			outs[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	best := new(big.Int)
	for _, out := range outs {
		if out.Cmp(best) > 0 {
			best.Set(out)
		}
	}
	bestF, _ := new(big.Float).SetInt(best).Float64()
	return bestF, nil
}

func (q *Quoter) quoteTier(ctx context.Context, tokenIn, tokenOut common.Address, amountIn, fee *big.Int) (*big.Int, error) {
	input, err := q.abi.Pack("quoteExactInputSingle", tokenIn, tokenOut, amountIn, fee, big.NewInt(0))
	if err != nil {
		return nil, err
	}

	raw, err := q.caller.CallContract(ctx, ethereum.CallMsg{To: &q.contract, Data: input}, nil)
	if err != nil {
		return nil, err
	}

	decoded, err := q.abi.Unpack("quoteExactInputSingle", raw)
	if err != nil {
		return nil, err
	}
	out, ok := decoded[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected quoter output type %T", decoded[0])
	}
	return out, nil
}

// Venue is the chain the pools live on.
func (q *Quoter) Venue() asset.Venue {
	return asset.Venue(int32(q.chainID))
}
