// Package tokentest provides an in-memory contract backend for tests.
package tokentest

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"cryptoWatch/internal/token"
)

// Token describes an ERC20 contract.
type Token struct {
	Name        string
	Symbol      string
	Decimals    uint8
	TotalSupply *big.Int
	// Bytes32 makes name and symbol answer with the bytes32 encoding.
	Bytes32 bool
}

// Feed describes a price feed contract.
type Feed struct {
	Decimals  uint8
	Answer    *big.Int
	UpdatedAt uint64
}

// Chain answers eth_call for registered contracts.
type Chain struct {
	// ID is reported by ChainID; zero means mainnet.
	ID     uint64
	Block  uint64
	Tokens map[common.Address]Token
	Feeds  map[common.Address]Feed

	mu     sync.Mutex
	blocks []*big.Int
}

// LatestBlockNumber returns Block.
func (c *Chain) LatestBlockNumber(ctx context.Context) (uint64, error) {
	return c.Block, nil
}

// ChainID returns ID, or 1 when unset.
func (c *Chain) ChainID(ctx context.Context) (*big.Int, error) {
	if c.ID == 0 {
		return big.NewInt(1), nil
	}
	return new(big.Int).SetUint64(c.ID), nil
}

// Blocks returns the block argument of every call made so far.
func (c *Chain) Blocks() []*big.Int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*big.Int(nil), c.blocks...)
}

// CallContract dispatches on the 4-byte selector.
func (c *Chain) CallContract(ctx context.Context, msg ethereum.CallMsg, block *big.Int) ([]byte, error) {
	if msg.To == nil || len(msg.Data) < 4 {
		return nil, fmt.Errorf("malformed call")
	}
	c.mu.Lock()
	c.blocks = append(c.blocks, block)
	c.mu.Unlock()

	selector := msg.Data[:4]
	if tok, ok := c.Tokens[*msg.To]; ok {
		return tokenCall(tok, selector)
	}
	if feed, ok := c.Feeds[*msg.To]; ok {
		return feedCall(feed, selector)
	}
	return nil, fmt.Errorf("execution reverted: no contract at %s", msg.To.Hex())
}

func method(parsed abi.ABI, selector []byte) (abi.Method, bool) {
	for _, m := range parsed.Methods {
		if bytes.Equal(m.ID, selector) {
			return m, true
		}
	}
	return abi.Method{}, false
}

func tokenCall(tok Token, selector []byte) ([]byte, error) {
	parsed, err := token.ERC20ABI()
	if err != nil {
		return nil, err
	}
	m, ok := method(parsed, selector)
	if !ok {
		return nil, fmt.Errorf("execution reverted: unknown selector %x", selector)
	}

	switch m.Name {
	case "decimals":
		return m.Outputs.Pack(tok.Decimals)
	case "totalSupply":
		supply := tok.TotalSupply
		if supply == nil {
			supply = new(big.Int)
		}
		return m.Outputs.Pack(supply)
	case "name", "symbol":
		text := tok.Name
		if m.Name == "symbol" {
			text = tok.Symbol
		}
		if !tok.Bytes32 {
			return m.Outputs.Pack(text)
		}
		b32, err := token.ERC20Bytes32ABI()
		if err != nil {
			return nil, err
		}
		var word [32]byte
		copy(word[:], text)
		return b32.Methods[m.Name].Outputs.Pack(word)
	default:
		return nil, fmt.Errorf("execution reverted: %s", m.Name)
	}
}

func feedCall(feed Feed, selector []byte) ([]byte, error) {
	parsed, err := token.FeedABI()
	if err != nil {
		return nil, err
	}
	m, ok := method(parsed, selector)
	if !ok {
		return nil, fmt.Errorf("execution reverted: unknown selector %x", selector)
	}

	switch m.Name {
	case "decimals":
		return m.Outputs.Pack(feed.Decimals)
	case "latestRoundData":
		answer := feed.Answer
		if answer == nil {
			answer = new(big.Int)
		}
		updated := new(big.Int).SetUint64(feed.UpdatedAt)
		return m.Outputs.Pack(big.NewInt(1), answer, updated, updated, big.NewInt(1))
	default:
		return nil, fmt.Errorf("execution reverted: %s", m.Name)
	}
}
