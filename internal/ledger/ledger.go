// Package ledger implements the escrow-based parimutuel wagering engine:
// market lifecycle, pooled-stake bookkeeping, resolution, and proportional
// payout claims. Staked value is custodied through an escrow.Treasury and
// paid back out only through the claim path.
//
// Every mutating operation runs to completion or aborts with zero state
// change, serialized under one engine mutex. The two operations that move
// value (PlaceBet, ClaimPayout) additionally share a busy-flag guard that
// rejects any entry observed mid-transfer, so a treasury implementation
// that calls back into the engine cannot act on half-updated state.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/parimut/pool-engine/internal/auth"
	"github.com/parimut/pool-engine/internal/escrow"
	"github.com/parimut/pool-engine/internal/guard"
	"github.com/parimut/pool-engine/internal/limit"
	"github.com/parimut/pool-engine/internal/metrics"
	"github.com/parimut/pool-engine/internal/model"
	"github.com/parimut/pool-engine/internal/payout"
	"github.com/parimut/pool-engine/internal/store"
)

// MaxQuestionLen bounds the market question, in characters.
const MaxQuestionLen = 500

// Config carries the engine's tunables. Zero values select defaults.
type Config struct {
	MinBet   uint64              // minimum accepted bet; default 1
	Now      func() time.Time    // clock; default time.Now
	Notifier Notifier            // optional event sink
	Limits   *limit.StakeLimiter // optional stake limits; nil disables
}

// Ledger is the wagering engine. A single mutex serializes all mutating
// operations (single-instance deployment; for horizontal scaling, replace
// with distributed locking or database-level optimistic concurrency).
type Ledger struct {
	store    store.Store
	treasury escrow.Treasury
	auth     auth.Authorizer
	minBet   uint64
	now      func() time.Time
	notifier Notifier
	limits   *limit.StakeLimiter

	mu       sync.Mutex
	transfer guard.Guard // busy flag shared by the two money-moving operations
}

// New creates a wagering engine over the given store, treasury and
// authorizer.
func New(st store.Store, treasury escrow.Treasury, authz auth.Authorizer, cfg Config) *Ledger {
	if cfg.MinBet == 0 {
		cfg.MinBet = 1
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Ledger{
		store:    st,
		treasury: treasury,
		auth:     authz,
		minBet:   cfg.MinBet,
		now:      cfg.Now,
		notifier: cfg.Notifier,
		limits:   cfg.Limits,
	}
}

// CreateMarket allocates the next sequential market ID and opens a market
// on the given question. Resolver-only.
func (l *Ledger) CreateMarket(ctx context.Context, caller, question string, closeTime time.Time) (*model.Market, error) {
	if !l.auth.IsResolver(caller) {
		return nil, ErrNotResolver
	}
	if question == "" || utf8.RuneCountInString(question) > MaxQuestionLen {
		return nil, fmt.Errorf("question must be 1-%d characters: %w", MaxQuestionLen, ErrValidation)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if !closeTime.After(now) {
		return nil, fmt.Errorf("close time must be in the future: %w", ErrValidation)
	}

	count, err := l.store.MarketCount(ctx)
	if err != nil {
		return nil, fmt.Errorf("allocate market id: %w", err)
	}

	m := &model.Market{
		ID:        count + 1,
		Question:  question,
		CloseTime: closeTime.UTC(),
		CreatedAt: now.UTC(),
	}
	if err := l.store.CreateMarket(ctx, m); err != nil {
		return nil, fmt.Errorf("create market: %w", err)
	}

	metrics.MarketsCreated.Inc()
	l.publish(Event{Type: EventMarketCreated, MarketID: m.ID})
	slog.Info("market created", "id", m.ID, "close_time", m.CloseTime, "question", m.Question)

	cp := *m
	return &cp, nil
}

// PlaceBet pulls amount from the caller's pre-authorized escrow balance
// into custody and credits it to the chosen side of the market, as one
// atomic unit. Repeat bets accumulate; betting both sides is allowed.
func (l *Ledger) PlaceBet(ctx context.Context, caller string, marketID uint64, side model.Side, amount uint64) error {
	if caller == "" {
		return fmt.Errorf("participant identity required: %w", ErrValidation)
	}
	if !side.Valid() {
		return fmt.Errorf("side must be YES or NO: %w", ErrValidation)
	}
	if amount < l.minBet {
		return fmt.Errorf("amount %d below minimum %d: %w", amount, l.minBet, ErrBelowMinimum)
	}

	// The guard is checked before the mutex so a reentrant call made from
	// inside a treasury transfer fails fast instead of deadlocking.
	if !l.transfer.Enter() {
		metrics.ReentrancyRejections.Inc()
		return ErrReentrantCall
	}
	defer l.transfer.Exit()

	l.mu.Lock()
	defer l.mu.Unlock()

	m, err := l.getMarket(ctx, marketID)
	if err != nil {
		return err
	}
	if state := m.StateAt(l.now()); state != model.StateOpen {
		return fmt.Errorf("market %d is %s: %w", marketID, state, ErrMarketNotOpen)
	}

	// Reject up front rather than wrapping a pool accumulator.
	if _, err := payout.CheckedAdd(m.TotalPool(), amount); err != nil {
		return fmt.Errorf("%v: %w", err, ErrValidation)
	}

	if l.limits != nil {
		pos, err := l.store.GetPosition(ctx, marketID, caller)
		if err != nil {
			return fmt.Errorf("get position: %w", err)
		}
		if err := l.limits.CheckBet(m, pos, amount); err != nil {
			return fmt.Errorf("market %d: %w", marketID, err)
		}
	}

	// Pull the stake into custody first; bookkeeping follows inside the
	// same guarded section, so no caller can observe one without the other.
	if err := l.treasury.Collect(ctx, caller, amount); err != nil {
		return fmt.Errorf("collect stake: %w", err)
	}

	entry := &model.LedgerEntry{
		ID:          uuid.New().String(),
		MarketID:    marketID,
		Participant: caller,
		Kind:        model.KindBet,
		Side:        side,
		Amount:      amount,
		CreatedAt:   l.now().UTC(),
	}
	if err := l.store.RecordBet(ctx, entry); err != nil {
		// Return the stake so the abort leaves zero net state change.
		if rerr := l.treasury.Disburse(ctx, caller, amount); rerr != nil {
			slog.Error("stake refund failed after bet abort",
				"market", marketID, "participant", caller, "amount", amount, "err", rerr)
		}
		return fmt.Errorf("record bet: %w", err)
	}

	metrics.BetsTotal.WithLabelValues(string(side)).Inc()
	metrics.BetAmount.Observe(float64(amount))
	l.publish(Event{
		Type:        EventBetPlaced,
		MarketID:    marketID,
		Participant: caller,
		Side:        side,
		Amount:      amount,
		YesPool:     m.YesPool + betDelta(side, model.SideYes, amount),
		NoPool:      m.NoPool + betDelta(side, model.SideNo, amount),
	})
	slog.Info("bet placed", "market", marketID, "participant", caller, "side", side, "amount", amount)
	return nil
}

// ResolveMarket declares the winning outcome of a closed market.
// Resolver-only, irreversible.
func (l *Ledger) ResolveMarket(ctx context.Context, caller string, marketID uint64, outcome model.Side) error {
	if !l.auth.IsResolver(caller) {
		return ErrNotResolver
	}
	if !outcome.Valid() {
		return fmt.Errorf("outcome must be YES or NO: %w", ErrValidation)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	m, err := l.getMarket(ctx, marketID)
	if err != nil {
		return err
	}
	switch m.StateAt(l.now()) {
	case model.StateResolved:
		return fmt.Errorf("market %d: %w", marketID, ErrAlreadyResolved)
	case model.StateOpen:
		return fmt.Errorf("market %d still open until %s: %w", marketID, m.CloseTime, ErrMarketNotClosed)
	}

	if err := l.store.SetResolved(ctx, marketID, outcome); err != nil {
		return fmt.Errorf("resolve market: %w", err)
	}

	metrics.MarketsResolved.WithLabelValues(string(outcome)).Inc()
	l.publish(Event{
		Type:     EventMarketResolved,
		MarketID: marketID,
		Outcome:  outcome,
		YesPool:  m.YesPool,
		NoPool:   m.NoPool,
	})
	slog.Info("market resolved", "market", marketID, "outcome", outcome,
		"yes_pool", m.YesPool, "no_pool", m.NoPool)
	return nil
}

// ClaimPayout disburses the caller's proportional payout from a resolved
// market. The position is marked claimed before the outward transfer
// (effects before interaction); a failed transfer is rolled back while the
// operation lock is still held, so no other operation ever observes the
// intermediate state.
func (l *Ledger) ClaimPayout(ctx context.Context, caller string, marketID uint64) (uint64, error) {
	if caller == "" {
		return 0, fmt.Errorf("participant identity required: %w", ErrValidation)
	}

	if !l.transfer.Enter() {
		metrics.ReentrancyRejections.Inc()
		return 0, ErrReentrantCall
	}
	defer l.transfer.Exit()

	l.mu.Lock()
	defer l.mu.Unlock()

	m, err := l.getMarket(ctx, marketID)
	if err != nil {
		return 0, err
	}
	if !m.Resolved {
		return 0, fmt.Errorf("market %d: %w", marketID, ErrMarketNotResolved)
	}

	pos, err := l.store.GetPosition(ctx, marketID, caller)
	if err != nil {
		return 0, fmt.Errorf("get position: %w", err)
	}
	if pos.Claimed {
		return 0, fmt.Errorf("market %d: %w", marketID, ErrAlreadyClaimed)
	}
	winningStake := pos.Stake(m.Outcome)
	if winningStake == 0 {
		return 0, fmt.Errorf("market %d: %w", marketID, ErrNoWinningPosition)
	}

	amount := payout.Claimable(winningStake, m.Pool(m.Outcome), m.TotalPool())

	if err := l.store.RecordClaim(ctx, marketID, caller, amount); err != nil {
		if isConflict(err) {
			return 0, fmt.Errorf("market %d: %w", marketID, ErrAlreadyClaimed)
		}
		return 0, fmt.Errorf("record claim: %w", err)
	}

	if err := l.treasury.Disburse(ctx, caller, amount); err != nil {
		if rerr := l.store.RevertClaim(ctx, marketID, caller, amount); rerr != nil {
			slog.Error("claim rollback failed after transfer error",
				"market", marketID, "participant", caller, "amount", amount, "err", rerr)
		}
		return 0, fmt.Errorf("disburse payout: %w", err)
	}

	entry := &model.LedgerEntry{
		ID:          uuid.New().String(),
		MarketID:    marketID,
		Participant: caller,
		Kind:        model.KindClaim,
		Side:        m.Outcome,
		Amount:      amount,
		CreatedAt:   l.now().UTC(),
	}
	if err := l.store.AppendLedger(ctx, entry); err != nil {
		// The claim itself committed; history is best-effort here.
		slog.Warn("claim ledger append failed", "market", marketID, "participant", caller, "err", err)
	}

	metrics.ClaimsTotal.Inc()
	metrics.ClaimedAmount.Observe(float64(amount))
	l.publish(Event{
		Type:        EventPayoutClaimed,
		MarketID:    marketID,
		Participant: caller,
		Amount:      amount,
		Outcome:     m.Outcome,
		YesPool:     m.YesPool,
		NoPool:      m.NoPool,
	})
	slog.Info("payout claimed", "market", marketID, "participant", caller, "amount", amount)
	return amount, nil
}

// --- Read surface ---

// Market returns one market by ID.
func (l *Ledger) Market(ctx context.Context, id uint64) (*model.Market, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.getMarket(ctx, id)
}

// Position returns a participant's position in a market; all zeros if the
// participant never bet.
func (l *Ledger) Position(ctx context.Context, id uint64, participant string) (*model.Position, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.getMarket(ctx, id); err != nil {
		return nil, err
	}
	pos, err := l.store.GetPosition(ctx, id, participant)
	if err != nil {
		return nil, fmt.Errorf("get position: %w", err)
	}
	return pos, nil
}

// ClaimableAmount returns the payout a claim would disburse right now:
// zero unless the market is resolved, the participant holds unclaimed
// winning stake, and the claim has not happened yet. Never negative, never
// an error for a losing or absent position.
func (l *Ledger) ClaimableAmount(ctx context.Context, id uint64, participant string) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, err := l.getMarket(ctx, id)
	if err != nil {
		return 0, err
	}
	if !m.Resolved {
		return 0, nil
	}
	pos, err := l.store.GetPosition(ctx, id, participant)
	if err != nil {
		return 0, fmt.Errorf("get position: %w", err)
	}
	if pos.Claimed {
		return 0, nil
	}
	winningStake := pos.Stake(m.Outcome)
	if winningStake == 0 {
		return 0, nil
	}
	return payout.Claimable(winningStake, m.Pool(m.Outcome), m.TotalPool()), nil
}

// MarketCount returns the number of markets ever created.
func (l *Ledger) MarketCount(ctx context.Context) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.store.MarketCount(ctx)
}

// MarketIDs returns a page of market IDs starting at start (1-based). The
// page is short near the end and empty when start is out of range.
func (l *Ledger) MarketIDs(ctx context.Context, start, count uint64) ([]uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.store.MarketIDs(ctx, start, count)
}

// History returns the immutable ledger entries for a market, oldest first.
func (l *Ledger) History(ctx context.Context, id uint64) ([]model.LedgerEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.getMarket(ctx, id); err != nil {
		return nil, err
	}
	return l.store.LedgerByMarket(ctx, id)
}

// Now returns the engine's current clock reading.
func (l *Ledger) Now() time.Time { return l.now() }

// IsResolver reports whether identity is the authorized resolver.
func (l *Ledger) IsResolver(identity string) bool { return l.auth.IsResolver(identity) }

// --- internal helpers ---

// getMarket fetches a market, mapping store misses onto the engine's error
// taxonomy. Caller holds l.mu.
func (l *Ledger) getMarket(ctx context.Context, id uint64) (*model.Market, error) {
	m, err := l.store.GetMarket(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("market %d: %w", id, ErrMarketNotFound)
		}
		return nil, fmt.Errorf("get market %d: %w", id, err)
	}
	return m, nil
}

func (l *Ledger) publish(e Event) {
	if l.notifier != nil {
		l.notifier.Publish(e)
	}
}

func betDelta(side, want model.Side, amount uint64) uint64 {
	if side == want {
		return amount
	}
	return 0
}
