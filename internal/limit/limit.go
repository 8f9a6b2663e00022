// Package limit implements stake limits on bet acceptance.
//
// A single participant stacking stake into one market concentrates both
// their own risk and the market's dependence on one claimant, so limits
// apply at two levels: the participant's combined stake in a market and
// the market's total pool. Either limit set to zero is disabled.
package limit

import (
	"errors"

	"github.com/parimut/pool-engine/internal/model"
)

var (
	// ErrStakeLimitExceeded is returned when a bet would push one
	// participant's combined stake in a market beyond the per-market
	// maximum.
	ErrStakeLimitExceeded = errors.New("limit: participant stake limit exceeded")

	// ErrPoolLimitExceeded is returned when a bet would push a market's
	// total pool beyond the pool maximum.
	ErrPoolLimitExceeded = errors.New("limit: market pool limit exceeded")
)

// StakeLimiter enforces stake limits at bet time.
type StakeLimiter struct {
	// MaxPerMarket is the maximum combined YES+NO stake one participant
	// may hold in a single market. Zero disables the check.
	MaxPerMarket uint64

	// MaxPool is the maximum total pool a market may accumulate. Zero
	// disables the check.
	MaxPool uint64
}

// NewStakeLimiter creates a limiter with the given per-participant and
// per-market maximums.
func NewStakeLimiter(maxPerMarket, maxPool uint64) *StakeLimiter {
	return &StakeLimiter{MaxPerMarket: maxPerMarket, MaxPool: maxPool}
}

// CheckBet validates whether accepting amount on top of the participant's
// current position and the market's current pools respects the limits.
// Pool overflow is checked upstream, so the additions here cannot wrap.
func (l *StakeLimiter) CheckBet(m *model.Market, pos *model.Position, amount uint64) error {
	if l == nil {
		return nil
	}
	if l.MaxPerMarket > 0 {
		if pos.YesStake+pos.NoStake+amount > l.MaxPerMarket {
			return ErrStakeLimitExceeded
		}
	}
	if l.MaxPool > 0 {
		if m.TotalPool()+amount > l.MaxPool {
			return ErrPoolLimitExceeded
		}
	}
	return nil
}
