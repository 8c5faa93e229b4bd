package web3

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/holiman/uint256"
	"github.com/vocdoni/davinci-dao/log"
)

const (
	erc20BalanceOfABI = `[{"constant":true,"inputs":[{"name":"owner","type":"address"}],` +
		`"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"type":"function"}]`

	// DefaultBalanceCacheSize is the number of balances kept in memory.
	DefaultBalanceCacheSize = 4096
)

var erc20ABI = func() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(erc20BalanceOfABI))
	if err != nil {
		panic(err)
	}
	return parsed
}()

type balanceKey struct {
	token  common.Address
	holder common.Address
}

// TokenBalances reads ERC-20 balances as 256-bit integers. Balances are
// cached for ttl, so a
// holder that moves its tokens may be seen with the old balance until the
// entry expires.
type TokenBalances struct {
	caller ContractCaller
	cache  *expirable.LRU[balanceKey, *uint256.Int]
}

// NewTokenBalances returns a balance reader over caller. A zero ttl disables
// the cache.
func NewTokenBalances(caller ContractCaller, ttl time.Duration) *TokenBalances {
	tb := &TokenBalances{caller: caller}
	if ttl > 0 {
		tb.cache = expirable.NewLRU[balanceKey, *uint256.Int](DefaultBalanceCacheSize, nil, ttl)
	}
	return tb
}

// BalanceOf returns the balance of token held by holder. The returned value
// is owned by the caller.
func (tb *TokenBalances) BalanceOf(ctx context.Context, token, holder common.Address) (*uint256.Int, error) {
	key := balanceKey{token: token, holder: holder}
	if tb.cache != nil {
		if balance, ok := tb.cache.Get(key); ok {
			return balance.Clone(), nil
		}
	}
	data, err := erc20ABI.Pack("balanceOf", holder)
	if err != nil {
		return nil, fmt.Errorf("could not pack balanceOf call: %w", err)
	}
	res, err := tb.caller.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("balanceOf(%s) on %s failed: %w", holder.Hex(), token.Hex(), err)
	}
	out, err := erc20ABI.Unpack("balanceOf", res)
	if err != nil {
		return nil, fmt.Errorf("could not decode balanceOf result of %s: %w", token.Hex(), err)
	}
	raw, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected balanceOf result type %T", out[0])
	}
	balance, overflow := uint256.FromBig(raw)
	if overflow {
		return nil, fmt.Errorf("balanceOf result of %s is not a uint256: %s", token.Hex(), raw)
	}
	log.Debugw("token balance", "token", token.Hex(), "holder", holder.Hex(), "balance", balance.Dec())
	if tb.cache != nil {
		tb.cache.Add(key, balance.Clone())
	}
	return balance, nil
}

func isReverted(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "execution reverted")
}
