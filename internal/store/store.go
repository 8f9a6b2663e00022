// Package store defines the persistence interface for the pool engine.
// Implementations include PostgreSQL (source of truth), Redis (read-through
// cache), and in-memory (for testing). The ledger engine exclusively owns
// all market and position state; nothing outside it mutates a store.
package store

import (
	"context"
	"errors"

	"github.com/parimut/pool-engine/internal/model"
)

var (
	// ErrNotFound is returned when a market does not exist.
	ErrNotFound = errors.New("store: not found")

	// ErrConflict is returned when an update's precondition no longer
	// holds, e.g. recording a claim for an already-claimed position.
	ErrConflict = errors.New("store: conflict")
)

// Store is the persistence interface. Multi-record updates (a bet touching
// position, pool, and ledger; a claim touching flag and claimed total)
// must commit or abort as a unit.
type Store interface {
	// --- Market records ---

	// CreateMarket persists a new market under its preassigned sequential ID.
	CreateMarket(ctx context.Context, m *model.Market) error

	// GetMarket retrieves a market by ID.
	GetMarket(ctx context.Context, id uint64) (*model.Market, error)

	// MarketCount returns the number of markets ever created.
	MarketCount(ctx context.Context) (uint64, error)

	// MarketIDs returns up to count market IDs starting at start (1-based,
	// ascending). Returns a short or empty page near or past the end.
	MarketIDs(ctx context.Context, start, count uint64) ([]uint64, error)

	// --- Money-movement bookkeeping ---

	// RecordBet applies one accepted bet: increments the participant's
	// position (creating it on first bet) and the matching market pool,
	// and appends the ledger entry, all atomically.
	RecordBet(ctx context.Context, entry *model.LedgerEntry) error

	// SetResolved marks a market resolved with the given outcome.
	SetResolved(ctx context.Context, id uint64, outcome model.Side) error

	// RecordClaim flips the position's claimed flag and adds amount to the
	// market's claimed total, atomically. Fails with ErrConflict if the
	// position is already claimed.
	RecordClaim(ctx context.Context, id uint64, participant string, amount uint64) error

	// RevertClaim undoes RecordClaim. Only called while the engine still
	// holds its operation lock, after a failed disbursement, so the
	// intermediate state is never observable.
	RevertClaim(ctx context.Context, id uint64, participant string, amount uint64) error

	// --- Position and ledger reads ---

	// GetPosition returns a participant's position in a market. A
	// participant who never bet gets a zero-valued position, not an error.
	GetPosition(ctx context.Context, id uint64, participant string) (*model.Position, error)

	// AppendLedger appends an immutable ledger entry (used for claims,
	// whose entry is written after the disbursement succeeds).
	AppendLedger(ctx context.Context, entry *model.LedgerEntry) error

	// LedgerByMarket returns all ledger entries for a market, oldest first.
	LedgerByMarket(ctx context.Context, id uint64) ([]model.LedgerEntry, error)
}
