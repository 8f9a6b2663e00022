// Package model defines the core domain types shared across the pool engine.
// All monetary values are unsigned integers in the smallest currency unit,
// never float64.
package model

import "time"

// Side identifies one of the two outcomes of a binary market.
type Side string

const (
	SideYes Side = "YES"
	SideNo  Side = "NO"
)

// Valid reports whether s is one of the two recognized sides.
func (s Side) Valid() bool { return s == SideYes || s == SideNo }

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == SideYes {
		return SideNo
	}
	return SideYes
}

// State is the lifecycle state of a market. Closed is never stored; it is
// derived from the close time, see Market.StateAt.
type State string

const (
	StateOpen     State = "open"
	StateClosed   State = "closed"
	StateResolved State = "resolved"
)

// Market is one binary parimutuel market. ID, Question and CloseTime are
// immutable after creation; the pools only grow while the market is open;
// Outcome is set exactly once, at resolution, and never changes.
type Market struct {
	ID           uint64    `json:"id" db:"id"`
	Question     string    `json:"question" db:"question"`
	CloseTime    time.Time `json:"close_time" db:"close_time"`
	Resolved     bool      `json:"resolved" db:"resolved"`
	Outcome      Side      `json:"outcome,omitempty" db:"outcome"` // meaningful only once Resolved
	YesPool      uint64    `json:"yes_pool" db:"yes_pool"`
	NoPool       uint64    `json:"no_pool" db:"no_pool"`
	ClaimedTotal uint64    `json:"claimed_total" db:"claimed_total"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// StateAt returns the market's effective state for a given clock reading.
// A market past its close time is Closed even though nothing is stored;
// every operation must evaluate this with one clock reading per atomic step.
func (m *Market) StateAt(now time.Time) State {
	switch {
	case m.Resolved:
		return StateResolved
	case !now.Before(m.CloseTime):
		return StateClosed
	default:
		return StateOpen
	}
}

// Pool returns the stake pool for one side.
func (m *Market) Pool(s Side) uint64 {
	if s == SideYes {
		return m.YesPool
	}
	return m.NoPool
}

// TotalPool returns the combined stake across both sides.
func (m *Market) TotalPool() uint64 { return m.YesPool + m.NoPool }

// Position is one participant's accumulated stakes in one market.
// Created implicitly on the first bet, mutated by later bets and by a
// single claim, never deleted. Claimed moves false→true exactly once.
type Position struct {
	MarketID    uint64 `json:"market_id" db:"market_id"`
	Participant string `json:"participant" db:"participant"`
	YesStake    uint64 `json:"yes_stake" db:"yes_stake"`
	NoStake     uint64 `json:"no_stake" db:"no_stake"`
	Claimed     bool   `json:"claimed" db:"claimed"`
}

// Stake returns the participant's stake on one side.
func (p *Position) Stake(s Side) uint64 {
	if s == SideYes {
		return p.YesStake
	}
	return p.NoStake
}

// Entry kinds for the immutable operation ledger.
const (
	KindBet   = "bet"
	KindClaim = "claim"
)

// LedgerEntry is an immutable record of an accepted bet or claim.
// Once created, these are never modified or deleted.
type LedgerEntry struct {
	ID          string    `json:"id" db:"id"`
	MarketID    uint64    `json:"market_id" db:"market_id"`
	Participant string    `json:"participant" db:"participant"`
	Kind        string    `json:"kind" db:"kind"` // "bet" or "claim"
	Side        Side      `json:"side" db:"side"` // bet side, or the winning side for claims
	Amount      uint64    `json:"amount" db:"amount"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
