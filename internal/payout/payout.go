// Package payout implements the parimutuel payout calculation.
//
// All stakes are pooled; a winning stake is paid its proportional share of
// the combined pool:
//
//	payout = floor(winningStake * totalPool / winningPool)
//
// Everything is integer arithmetic in the smallest currency unit. The
// multiplication is widened to 128 bits before the divide so large pools
// cannot overflow, and flooring guarantees the sum of all payouts never
// exceeds the total pool. Whatever the flooring leaves behind ("dust")
// stays in custody permanently.
package payout

import (
	"errors"
	"fmt"
	"math"
	"math/bits"

	"github.com/shopspring/decimal"
)

// ErrPoolOverflow is returned when adding a stake would overflow a pool
// accumulator.
var ErrPoolOverflow = errors.New("payout: pool accumulator overflow")

// Claimable returns the payout owed for winningStake out of a resolved
// market with the given winning-side and combined pools.
//
// A zero winning stake is owed nothing. When the entire pool sits on the
// winning side there is no losing pool to redistribute, so the stake is
// returned 1:1. A positive winning stake against an empty winning pool is
// unreachable if the pool accounting holds; it panics rather than masking
// a corrupted ledger with a silent zero.
func Claimable(winningStake, winningPool, totalPool uint64) uint64 {
	if winningStake == 0 {
		return 0
	}
	if winningPool == 0 {
		panic("payout: positive stake recorded against empty winning pool")
	}
	if winningStake > winningPool || winningPool > totalPool {
		panic(fmt.Sprintf("payout: pool accounting corrupt (stake=%d winning=%d total=%d)",
			winningStake, winningPool, totalPool))
	}
	if winningPool == totalPool {
		return winningStake
	}

	// Widen to 128 bits: winningStake*totalPool can exceed 64 bits, but
	// the quotient never does because winningStake <= winningPool.
	hi, lo := bits.Mul64(winningStake, totalPool)
	quo, _ := bits.Div64(hi, lo, winningPool)
	return quo
}

// CheckedAdd adds a stake to a pool accumulator, failing instead of
// wrapping around.
func CheckedAdd(pool, amount uint64) (uint64, error) {
	if pool > math.MaxUint64-amount {
		return 0, ErrPoolOverflow
	}
	return pool + amount, nil
}

// oddsPlaces is the display precision for implied odds.
const oddsPlaces = 4

// ImpliedOdds returns the pool-implied probabilities of each side as
// decimals in [0,1]. An empty market reads as even odds. This is a read
// surface only; custody amounts never pass through decimals.
func ImpliedOdds(yesPool, noPool uint64) (yes, no decimal.Decimal) {
	half := decimal.New(5, -1)
	if yesPool == 0 && noPool == 0 {
		return half, half
	}
	y := decimal.NewFromUint64(yesPool)
	total := y.Add(decimal.NewFromUint64(noPool))
	yes = y.DivRound(total, oddsPlaces)
	no = decimal.New(1, 0).Sub(yes)
	return yes, no
}
