// Package web3 reads the eligibility token balances used to gate and weight
// votes from an EVM chain, over a pool of JSON-RPC endpoints.
package web3

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/vocdoni/davinci-dao/log"
)

const (
	// endpointCooldown is how long a failing endpoint stays out of rotation.
	endpointCooldown = 5 * time.Minute
	// callTimeout bounds each call to a single endpoint.
	callTimeout = 3 * time.Second
)

// ContractCaller performs read-only contract calls.
type ContractCaller interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

type endpoint struct {
	uri        string
	caller     ContractCaller
	disabledAt time.Time
}

// Pool balances contract calls between its endpoints in a round-robin
// fashion. An endpoint that fails is disabled for a cooldown period; when
// every endpoint is disabled they are all put back in rotation.
type Pool struct {
	mu        sync.Mutex
	next      int
	available []*endpoint
	disabled  []*endpoint
	now       func() time.Time
}

// Dial connects to every uri and returns a pool over them.
func Dial(ctx context.Context, uris ...string) (*Pool, error) {
	if len(uris) == 0 {
		return nil, fmt.Errorf("no web3 endpoints")
	}
	p := &Pool{now: time.Now}
	for _, uri := range uris {
		cli, err := ethclient.DialContext(ctx, uri)
		if err != nil {
			return nil, fmt.Errorf("could not dial %s: %w", uri, err)
		}
		p.Add(uri, cli)
	}
	return p, nil
}

// Add puts a caller in rotation under uri.
func (p *Pool) Add(uri string, caller ContractCaller) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.now == nil {
		p.now = time.Now
	}
	p.available = append(p.available, &endpoint{uri: uri, caller: caller})
}

// Available returns the number of endpoints in rotation.
func (p *Pool) Available() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.available)
}

func (p *Pool) pick() (*endpoint, int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reenable()
	if len(p.available) == 0 {
		return nil, 0, fmt.Errorf("no registered endpoints")
	}
	if p.next >= len(p.available) {
		p.next = 0
	}
	ep := p.available[p.next]
	p.next = (p.next + 1) % len(p.available)
	return ep, len(p.available) + len(p.disabled), nil
}

// reenable moves the endpoints whose cooldown expired back to rotation.
// Must be called with mu held.
func (p *Pool) reenable() {
	stillDisabled := p.disabled[:0]
	for _, ep := range p.disabled {
		if p.now().Sub(ep.disabledAt) >= endpointCooldown {
			ep.disabledAt = time.Time{}
			p.available = append(p.available, ep)
			continue
		}
		stillDisabled = append(stillDisabled, ep)
	}
	p.disabled = stillDisabled
}

func (p *Pool) disable(ep *endpoint) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, e := range p.available {
		if e != ep {
			continue
		}
		ep.disabledAt = p.now()
		p.available = append(p.available[:i], p.available[i+1:]...)
		p.disabled = append(p.disabled, ep)
		if p.next > i {
			p.next--
		}
		break
	}
	if len(p.available) == 0 {
		for _, e := range p.disabled {
			e.disabledAt = time.Time{}
		}
		p.available, p.disabled = p.disabled, nil
		p.next = 0
	}
}

// CallContract runs call on the endpoints of the pool until one of them
// answers. Reverted calls are not retried.
func (p *Pool) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	var lastErr error
	tried := make(map[*endpoint]bool)
	for {
		ep, total, err := p.pick()
		if err != nil {
			return nil, err
		}
		if tried[ep] || len(tried) >= total {
			return nil, fmt.Errorf("all web3 endpoints failed: %w", lastErr)
		}
		tried[ep] = true

		callCtx, cancel := context.WithTimeout(ctx, callTimeout)
		res, err := ep.caller.CallContract(callCtx, call, blockNumber)
		cancel()
		if err == nil {
			return res, nil
		}
		if ctx.Err() != nil || isReverted(err) {
			return nil, err
		}
		log.Warnw("web3 endpoint failed, disabling it", "uri", ep.uri, "error", err.Error())
		p.disable(ep)
		lastErr = err
	}
}
