package oracle

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/defistate/sir-client-go/protocols/sir/calculator/tickmath"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

var (
	ErrNoPrice      = errors.New("no price for token pair")
	ErrInvalidPrice = errors.New("invalid price")
)

// Oracle reports the price of a collateral token in units of a debt token as an
// X42 tick: log_1.0001(price) * 2^42.
type Oracle interface {
	// GetPrice returns the last known price without touching the oracle state.
	GetPrice(ctx context.Context, collateral, debt common.Address) (int64, error)
	// UpdateOracleState refreshes the oracle state and returns the current price.
	UpdateOracleState(ctx context.Context, collateral, debt common.Address) (int64, error)
}

type pair struct {
	collateral common.Address
	debt       common.Address
}

// Static is an in-memory Oracle. A price set for (a, b) also answers (b, a)
// with the inverse price.
type Static struct {
	mu    sync.RWMutex
	ticks map[pair]int64
}

// NewStatic creates an empty Static oracle.
func NewStatic() *Static {
	return &Static{ticks: make(map[pair]int64)}
}

// SetPrice stores the price of collateral in debt as an X42 tick.
func (s *Static) SetPrice(collateral, debt common.Address, tickX42 int64) error {
	if tickX42 < tickmath.MinTickX42 || tickX42 > tickmath.MaxTickX42 {
		return fmt.Errorf("%w: tick %d", ErrInvalidPrice, tickX42)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.ticks, pair{collateral: debt, debt: collateral})
	s.ticks[pair{collateral: collateral, debt: debt}] = tickX42
	return nil
}

// SetPriceRatio stores the price of collateral in debt given as an X64 ratio.
// The stored tick is the greatest tick whose ratio does not exceed priceX64.
func (s *Static) SetPriceRatio(collateral, debt common.Address, priceX64 *uint256.Int) error {
	tick, err := tickmath.GetTickAtRatio(priceX64)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPrice, err)
	}
	return s.SetPrice(collateral, debt, tick)
}

// GetPrice implements Oracle.
func (s *Static) GetPrice(ctx context.Context, collateral, debt common.Address) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if tick, ok := s.ticks[pair{collateral: collateral, debt: debt}]; ok {
		return tick, nil
	}
	if tick, ok := s.ticks[pair{collateral: debt, debt: collateral}]; ok {
		return -tick, nil
	}
	return 0, fmt.Errorf("%w: %s/%s", ErrNoPrice, collateral.Hex(), debt.Hex())
}

// UpdateOracleState implements Oracle. A static oracle has no state to refresh.
func (s *Static) UpdateOracleState(ctx context.Context, collateral, debt common.Address) (int64, error) {
	return s.GetPrice(ctx, collateral, debt)
}
