// Package token reads ERC20 metadata and price feed rounds over eth_call.
package token

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// Caller executes read-only contract calls. *chain.Client satisfies it.
type Caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Meta is the immutable part of an ERC20 token.
type Meta struct {
	Address  string
	Name     string
	Symbol   string
	Decimals uint8
}

// Round is the latest answer of a price feed.
type Round struct {
	RoundID   *big.Int
	Answer    *big.Int
	Decimals  uint8
	UpdatedAt uint64
}

// MetaCache caches token metadata by address.
type MetaCache struct {
	mu   sync.RWMutex
	data map[common.Address]Meta
}

func NewMetaCache() *MetaCache {
	return &MetaCache{data: make(map[common.Address]Meta)}
}

func (c *MetaCache) Get(address common.Address) (Meta, bool) {
	c.mu.RLock()
	meta, ok := c.data[address]
	c.mu.RUnlock()
	return meta, ok
}

func (c *MetaCache) Set(address common.Address, meta Meta) {
	c.mu.Lock()
	c.data[address] = meta
	c.mu.Unlock()
}

func call(ctx context.Context, caller Caller, to common.Address, parsed abi.ABI, method string, block *big.Int) ([]interface{}, error) {
	data, err := parsed.Pack(method)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	msg := ethereum.CallMsg{To: &to, Data: data}
	resp, err := caller.CallContract(ctx, msg, block)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("unpack %s: empty result", method)
	}
	return values, nil
}

// FetchMeta loads token metadata via ERC20 calls. Name and symbol fall back
// to the bytes32 encoding; a token without decimals is an error.
func FetchMeta(ctx context.Context, caller Caller, address common.Address, logger *zap.Logger) (Meta, error) {
	meta := Meta{Address: address.Hex()}
	if caller == nil {
		return meta, fmt.Errorf("contract caller is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	stringABI, err := ERC20ABI()
	if err != nil {
		return meta, fmt.Errorf("parse erc20 string abi: %w", err)
	}
	bytes32ABI, err := ERC20Bytes32ABI()
	if err != nil {
		return meta, fmt.Errorf("parse erc20 bytes32 abi: %w", err)
	}

	values, err := call(ctx, caller, address, stringABI, "decimals", nil)
	if err != nil {
		return meta, err
	}
	decimals, err := asUint8(values[0])
	if err != nil {
		return meta, fmt.Errorf("decimals: %w", err)
	}
	meta.Decimals = decimals

	meta.Symbol = readText(ctx, caller, address, "symbol", stringABI, bytes32ABI, logger)
	meta.Name = readText(ctx, caller, address, "name", stringABI, bytes32ABI, logger)
	return meta, nil
}

func readText(ctx context.Context, caller Caller, address common.Address, method string, stringABI, bytes32ABI abi.ABI, logger *zap.Logger) string {
	if values, err := call(ctx, caller, address, stringABI, method, nil); err == nil {
		if s, ok := values[0].(string); ok {
			return s
		}
	}
	values, err := call(ctx, caller, address, bytes32ABI, method, nil)
	if err != nil {
		logger.Debug("token text call failed", zap.String("token", address.Hex()), zap.String("method", method), zap.Error(err))
		return ""
	}
	s, _ := bytes32ToString(values[0])
	return s
}

// FetchTotalSupply reads totalSupply at the given block (nil for latest).
func FetchTotalSupply(ctx context.Context, caller Caller, address common.Address, block *big.Int) (*big.Int, error) {
	parsed, err := ERC20ABI()
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}
	values, err := call(ctx, caller, address, parsed, "totalSupply", block)
	if err != nil {
		return nil, err
	}
	return asBigInt(values[0])
}

// FetchRound reads decimals and latestRoundData from a price feed.
func FetchRound(ctx context.Context, caller Caller, feedAddress common.Address, block *big.Int) (Round, error) {
	parsed, err := FeedABI()
	if err != nil {
		return Round{}, fmt.Errorf("parse feed abi: %w", err)
	}

	values, err := call(ctx, caller, feedAddress, parsed, "decimals", block)
	if err != nil {
		return Round{}, err
	}
	decimals, err := asUint8(values[0])
	if err != nil {
		return Round{}, fmt.Errorf("feed decimals: %w", err)
	}

	values, err = call(ctx, caller, feedAddress, parsed, "latestRoundData", block)
	if err != nil {
		return Round{}, err
	}
	if len(values) < 5 {
		return Round{}, fmt.Errorf("latestRoundData: expected 5 values, got %d", len(values))
	}
	roundID, err := asBigInt(values[0])
	if err != nil {
		return Round{}, fmt.Errorf("round id: %w", err)
	}
	answer, err := asBigInt(values[1])
	if err != nil {
		return Round{}, fmt.Errorf("answer: %w", err)
	}
	updatedAt, err := asBigInt(values[3])
	if err != nil {
		return Round{}, fmt.Errorf("updated at: %w", err)
	}

	return Round{
		RoundID:   roundID,
		Answer:    answer,
		Decimals:  decimals,
		UpdatedAt: updatedAt.Uint64(),
	}, nil
}

func bytes32ToString(value interface{}) (string, bool) {
	switch v := value.(type) {
	case [32]byte:
		return string(bytes.TrimRight(v[:], "\x00")), true
	case []byte:
		return string(bytes.TrimRight(v, "\x00")), true
	default:
		return "", false
	}
}

func asBigInt(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		return new(big.Int).Set(v), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	case int64:
		return big.NewInt(v), nil
	default:
		return nil, fmt.Errorf("unsupported int type %T", value)
	}
}

func asUint8(value interface{}) (uint8, error) {
	switch v := value.(type) {
	case uint8:
		return v, nil
	case *big.Int:
		if !v.IsUint64() || v.Uint64() > 255 {
			return 0, fmt.Errorf("uint8 overflow: %s", v)
		}
		return uint8(v.Uint64()), nil
	default:
		return 0, fmt.Errorf("unsupported uint8 type %T", value)
	}
}
