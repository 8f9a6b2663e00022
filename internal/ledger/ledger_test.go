package ledger_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/parimut/pool-engine/internal/auth"
	"github.com/parimut/pool-engine/internal/escrow"
	"github.com/parimut/pool-engine/internal/ledger"
	"github.com/parimut/pool-engine/internal/limit"
	"github.com/parimut/pool-engine/internal/model"
	"github.com/parimut/pool-engine/internal/store"
)

const resolver = "resolver-key"

// fakeClock is a settable clock for driving the close-time transition.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type env struct {
	clock *fakeClock
	book  *escrow.AccountBook
	eng   *ledger.Ledger
}

// newTestEnv wires an engine over an in-memory store and account book.
func newTestEnv(t *testing.T) *env {
	t.Helper()
	clock := newFakeClock()
	book := escrow.NewAccountBook()
	eng := ledger.New(store.NewMemoryStore(), book, auth.NewSingleKey(resolver), ledger.Config{
		Now: clock.Now,
	})
	return &env{clock: clock, book: book, eng: eng}
}

// fund deposits and pre-authorizes spendable value for a participant.
func (e *env) fund(t *testing.T, participant string, amount uint64) {
	t.Helper()
	if err := e.book.Credit(participant, amount); err != nil {
		t.Fatalf("fund %s: %v", participant, err)
	}
	e.book.Approve(participant, amount)
}

// openMarket creates a market closing 1000s from the fake clock's now.
func (e *env) openMarket(t *testing.T) uint64 {
	t.Helper()
	m, err := e.eng.CreateMarket(context.Background(), resolver, "Will it rain tomorrow?",
		e.clock.Now().Add(1000*time.Second))
	if err != nil {
		t.Fatalf("create market: %v", err)
	}
	return m.ID
}

func (e *env) bet(t *testing.T, participant string, id uint64, side model.Side, amount uint64) {
	t.Helper()
	if err := e.eng.PlaceBet(context.Background(), participant, id, side, amount); err != nil {
		t.Fatalf("bet %s %d on %s: %v", participant, amount, side, err)
	}
}

func (e *env) resolve(t *testing.T, id uint64, outcome model.Side) {
	t.Helper()
	e.clock.Advance(2000 * time.Second)
	if err := e.eng.ResolveMarket(context.Background(), resolver, id, outcome); err != nil {
		t.Fatalf("resolve market %d: %v", id, err)
	}
}

// --- Market lifecycle tests ---

func TestCreateMarket_SequentialIDs(t *testing.T) {
	e := newTestEnv(t)
	first := e.openMarket(t)
	second := e.openMarket(t)
	if first != 1 || second != 2 {
		t.Errorf("expected IDs 1,2 got %d,%d", first, second)
	}
}

func TestCreateMarket_NonResolver(t *testing.T) {
	e := newTestEnv(t)
	_, err := e.eng.CreateMarket(context.Background(), "user1", "q?",
		e.clock.Now().Add(time.Hour))
	if !errors.Is(err, ledger.ErrNotResolver) {
		t.Errorf("expected ErrNotResolver, got %v", err)
	}
}

func TestCreateMarket_CloseTimeInPast(t *testing.T) {
	e := newTestEnv(t)
	_, err := e.eng.CreateMarket(context.Background(), resolver, "q?",
		e.clock.Now().Add(-time.Second))
	if !errors.Is(err, ledger.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestCreateMarket_EmptyQuestion(t *testing.T) {
	e := newTestEnv(t)
	_, err := e.eng.CreateMarket(context.Background(), resolver, "",
		e.clock.Now().Add(time.Hour))
	if !errors.Is(err, ledger.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestMarket_DerivedClosedState(t *testing.T) {
	e := newTestEnv(t)
	id := e.openMarket(t)

	m, _ := e.eng.Market(context.Background(), id)
	if m.StateAt(e.clock.Now()) != model.StateOpen {
		t.Fatal("market should start open")
	}

	e.clock.Advance(1001 * time.Second)
	m, _ = e.eng.Market(context.Background(), id)
	if m.StateAt(e.clock.Now()) != model.StateClosed {
		t.Error("market past close time should read as closed with nothing stored")
	}
	if m.Resolved {
		t.Error("closed is derived, not stored")
	}
}

func TestMarket_NotFound(t *testing.T) {
	e := newTestEnv(t)
	_, err := e.eng.Market(context.Background(), 42)
	if !errors.Is(err, ledger.ErrMarketNotFound) {
		t.Errorf("expected ErrMarketNotFound, got %v", err)
	}
}

// --- Betting tests ---

func TestPlaceBet_AccumulatesPools(t *testing.T) {
	e := newTestEnv(t)
	id := e.openMarket(t)
	e.fund(t, "user1", 500)

	e.bet(t, "user1", id, model.SideYes, 100)
	e.bet(t, "user1", id, model.SideYes, 50)
	e.bet(t, "user1", id, model.SideNo, 25)

	m, _ := e.eng.Market(context.Background(), id)
	if m.YesPool != 150 || m.NoPool != 25 {
		t.Errorf("expected pools 150/25, got %d/%d", m.YesPool, m.NoPool)
	}

	pos, _ := e.eng.Position(context.Background(), id, "user1")
	if pos.YesStake != 150 || pos.NoStake != 25 {
		t.Errorf("expected stakes 150/25, got %d/%d", pos.YesStake, pos.NoStake)
	}
}

func TestPlaceBet_MovesStakeIntoCustody(t *testing.T) {
	e := newTestEnv(t)
	id := e.openMarket(t)
	e.fund(t, "user1", 300)

	e.bet(t, "user1", id, model.SideYes, 100)

	if got := e.book.Account("user1").Balance; got != 200 {
		t.Errorf("expected balance 200 after bet, got %d", got)
	}
	if e.book.Custody() != 100 {
		t.Errorf("expected custody 100, got %d", e.book.Custody())
	}
}

func TestPlaceBet_AfterCloseTime(t *testing.T) {
	// Betting after closeTime passes but before any resolve call: the
	// market reads as closed with nothing stored.
	e := newTestEnv(t)
	id := e.openMarket(t)
	e.fund(t, "user1", 100)

	e.clock.Advance(1000 * time.Second)
	err := e.eng.PlaceBet(context.Background(), "user1", id, model.SideYes, 100)
	if !errors.Is(err, ledger.ErrMarketNotOpen) {
		t.Errorf("expected ErrMarketNotOpen, got %v", err)
	}
	if e.book.Account("user1").Balance != 100 {
		t.Error("rejected bet must not move funds")
	}
}

func TestPlaceBet_BelowMinimum(t *testing.T) {
	clock := newFakeClock()
	book := escrow.NewAccountBook()
	eng := ledger.New(store.NewMemoryStore(), book, auth.NewSingleKey(resolver), ledger.Config{
		MinBet: 10,
		Now:    clock.Now,
	})
	m, err := eng.CreateMarket(context.Background(), resolver, "q?", clock.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("create market: %v", err)
	}

	err = eng.PlaceBet(context.Background(), "user1", m.ID, model.SideYes, 9)
	if !errors.Is(err, ledger.ErrBelowMinimum) {
		t.Errorf("expected ErrBelowMinimum, got %v", err)
	}
}

func TestPlaceBet_InvalidSide(t *testing.T) {
	e := newTestEnv(t)
	id := e.openMarket(t)
	err := e.eng.PlaceBet(context.Background(), "user1", id, model.Side("MAYBE"), 100)
	if !errors.Is(err, ledger.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestPlaceBet_UnknownMarket(t *testing.T) {
	e := newTestEnv(t)
	e.fund(t, "user1", 100)
	err := e.eng.PlaceBet(context.Background(), "user1", 7, model.SideYes, 100)
	if !errors.Is(err, ledger.ErrMarketNotFound) {
		t.Errorf("expected ErrMarketNotFound, got %v", err)
	}
}

func TestPlaceBet_InsufficientAllowance(t *testing.T) {
	e := newTestEnv(t)
	id := e.openMarket(t)
	e.book.Credit("user1", 100) // no Approve

	err := e.eng.PlaceBet(context.Background(), "user1", id, model.SideYes, 100)
	if !errors.Is(err, escrow.ErrInsufficientAllowance) {
		t.Errorf("expected ErrInsufficientAllowance, got %v", err)
	}

	m, _ := e.eng.Market(context.Background(), id)
	if m.TotalPool() != 0 {
		t.Error("failed collect must not credit the pool")
	}
}

func TestPlaceBet_StakeLimits(t *testing.T) {
	clock := newFakeClock()
	book := escrow.NewAccountBook()
	eng := ledger.New(store.NewMemoryStore(), book, auth.NewSingleKey(resolver), ledger.Config{
		Now:    clock.Now,
		Limits: limit.NewStakeLimiter(100, 150),
	})
	ctx := context.Background()
	m, err := eng.CreateMarket(ctx, resolver, "q?", clock.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("create market: %v", err)
	}
	book.Credit("user1", 500)
	book.Approve("user1", 500)
	book.Credit("user2", 500)
	book.Approve("user2", 500)

	if err := eng.PlaceBet(ctx, "user1", m.ID, model.SideYes, 80); err != nil {
		t.Fatalf("first bet: %v", err)
	}
	// 80+30 exceeds the 100 per-market stake limit.
	err = eng.PlaceBet(ctx, "user1", m.ID, model.SideNo, 30)
	if !errors.Is(err, limit.ErrStakeLimitExceeded) {
		t.Errorf("expected ErrStakeLimitExceeded, got %v", err)
	}
	// A different participant is fine, until the 150 pool cap.
	err = eng.PlaceBet(ctx, "user2", m.ID, model.SideNo, 80)
	if !errors.Is(err, limit.ErrPoolLimitExceeded) {
		t.Errorf("expected ErrPoolLimitExceeded, got %v", err)
	}
	if err := eng.PlaceBet(ctx, "user2", m.ID, model.SideNo, 70); err != nil {
		t.Errorf("bet at the pool cap should pass: %v", err)
	}

	mkt, _ := eng.Market(ctx, m.ID)
	if mkt.TotalPool() != 150 {
		t.Errorf("expected pool 150, got %d", mkt.TotalPool())
	}
	if book.Account("user1").Balance != 420 {
		t.Error("rejected bets must not move funds")
	}
}

// --- Resolution tests ---

func TestResolveMarket_NonResolver(t *testing.T) {
	// A non-resolver resolve attempt fails and leaves the market untouched.
	e := newTestEnv(t)
	id := e.openMarket(t)
	e.clock.Advance(2000 * time.Second)

	err := e.eng.ResolveMarket(context.Background(), "user1", id, model.SideYes)
	if !errors.Is(err, ledger.ErrNotResolver) {
		t.Errorf("expected ErrNotResolver, got %v", err)
	}

	m, _ := e.eng.Market(context.Background(), id)
	if m.Resolved {
		t.Error("unauthorized resolve must not change the market")
	}
}

func TestResolveMarket_StillOpen(t *testing.T) {
	e := newTestEnv(t)
	id := e.openMarket(t)

	err := e.eng.ResolveMarket(context.Background(), resolver, id, model.SideYes)
	if !errors.Is(err, ledger.ErrMarketNotClosed) {
		t.Errorf("expected ErrMarketNotClosed, got %v", err)
	}
}

func TestResolveMarket_Twice(t *testing.T) {
	e := newTestEnv(t)
	id := e.openMarket(t)
	e.resolve(t, id, model.SideYes)

	err := e.eng.ResolveMarket(context.Background(), resolver, id, model.SideNo)
	if !errors.Is(err, ledger.ErrAlreadyResolved) {
		t.Errorf("expected ErrAlreadyResolved, got %v", err)
	}

	m, _ := e.eng.Market(context.Background(), id)
	if m.Outcome != model.SideYes {
		t.Error("resolution is irreversible")
	}
}

// --- Claim tests ---

func TestClaimLifecycle(t *testing.T) {
	// user1 bets 100 YES, user2 bets 50 NO, market resolves YES: user1 can
	// claim the whole 150 pool, user2 nothing, and a repeat claim fails.
	e := newTestEnv(t)
	id := e.openMarket(t)
	e.fund(t, "user1", 100)
	e.fund(t, "user2", 50)
	e.bet(t, "user1", id, model.SideYes, 100)
	e.bet(t, "user2", id, model.SideNo, 50)
	e.resolve(t, id, model.SideYes)

	ctx := context.Background()
	if c, _ := e.eng.ClaimableAmount(ctx, id, "user1"); c != 150 {
		t.Errorf("expected user1 claimable 150, got %d", c)
	}
	if c, _ := e.eng.ClaimableAmount(ctx, id, "user2"); c != 0 {
		t.Errorf("expected user2 claimable 0, got %d", c)
	}

	amount, err := e.eng.ClaimPayout(ctx, "user1", id)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if amount != 150 {
		t.Errorf("expected payout 150, got %d", amount)
	}
	if got := e.book.Account("user1").Balance; got != 150 {
		t.Errorf("expected user1 balance 150 after claim, got %d", got)
	}
	if e.book.Custody() != 0 {
		t.Errorf("expected empty custody, got %d", e.book.Custody())
	}

	if _, err := e.eng.ClaimPayout(ctx, "user1", id); !errors.Is(err, ledger.ErrAlreadyClaimed) {
		t.Errorf("expected ErrAlreadyClaimed on repeat claim, got %v", err)
	}
	if c, _ := e.eng.ClaimableAmount(ctx, id, "user1"); c != 0 {
		t.Errorf("claimable should be 0 after claiming, got %d", c)
	}
}

func TestClaim_ProportionalSplitExhaustsPool(t *testing.T) {
	// Two 100 YES winners against 100 NO: each claims 150, draining custody.
	e := newTestEnv(t)
	id := e.openMarket(t)
	for _, u := range []string{"user1", "user2", "user3"} {
		e.fund(t, u, 100)
	}
	e.bet(t, "user1", id, model.SideYes, 100)
	e.bet(t, "user2", id, model.SideYes, 100)
	e.bet(t, "user3", id, model.SideNo, 100)
	e.resolve(t, id, model.SideYes)

	ctx := context.Background()
	a, err := e.eng.ClaimPayout(ctx, "user1", id)
	if err != nil {
		t.Fatalf("user1 claim: %v", err)
	}
	b, err := e.eng.ClaimPayout(ctx, "user2", id)
	if err != nil {
		t.Fatalf("user2 claim: %v", err)
	}
	if a != 150 || b != 150 {
		t.Errorf("expected 150/150, got %d/%d", a, b)
	}
	if a+b != 300 {
		t.Errorf("claims should exhaust the 300 pool, got %d", a+b)
	}
	if e.book.Custody() != 0 {
		t.Errorf("expected empty custody, got %d", e.book.Custody())
	}
}

func TestClaim_DustStaysInCustody(t *testing.T) {
	// 33+33+34 YES against 33 NO: flooring strands 2 units of dust, and
	// the last claimant still gets paid.
	e := newTestEnv(t)
	id := e.openMarket(t)
	for _, u := range []string{"user1", "user2", "user3", "user4"} {
		e.fund(t, u, 100)
	}
	e.bet(t, "user1", id, model.SideYes, 33)
	e.bet(t, "user2", id, model.SideYes, 33)
	e.bet(t, "user3", id, model.SideYes, 34)
	e.bet(t, "user4", id, model.SideNo, 33)
	e.resolve(t, id, model.SideYes)

	ctx := context.Background()
	var sum uint64
	for _, u := range []string{"user1", "user2", "user3"} {
		amount, err := e.eng.ClaimPayout(ctx, u, id)
		if err != nil {
			t.Fatalf("%s claim: %v", u, err)
		}
		sum += amount
	}
	if sum > 133 {
		t.Fatalf("claims sum %d exceeds pool 133", sum)
	}
	if e.book.Custody() != 133-sum {
		t.Errorf("dust %d should remain in custody, got %d", 133-sum, e.book.Custody())
	}
	if _, err := e.eng.ClaimPayout(ctx, "user4", id); !errors.Is(err, ledger.ErrNoWinningPosition) {
		t.Errorf("expected ErrNoWinningPosition for the loser, got %v", err)
	}
}

func TestClaim_Unresolved(t *testing.T) {
	e := newTestEnv(t)
	id := e.openMarket(t)
	e.fund(t, "user1", 100)
	e.bet(t, "user1", id, model.SideYes, 100)

	_, err := e.eng.ClaimPayout(context.Background(), "user1", id)
	if !errors.Is(err, ledger.ErrMarketNotResolved) {
		t.Errorf("expected ErrMarketNotResolved, got %v", err)
	}
}

func TestClaim_NeverBet(t *testing.T) {
	e := newTestEnv(t)
	id := e.openMarket(t)
	e.fund(t, "user1", 100)
	e.bet(t, "user1", id, model.SideYes, 100)
	e.resolve(t, id, model.SideYes)

	_, err := e.eng.ClaimPayout(context.Background(), "stranger", id)
	if !errors.Is(err, ledger.ErrNoWinningPosition) {
		t.Errorf("expected ErrNoWinningPosition, got %v", err)
	}
}

func TestClaim_OneSidedMarket(t *testing.T) {
	// All stake on the winning side: everyone gets exactly their stake back.
	e := newTestEnv(t)
	id := e.openMarket(t)
	e.fund(t, "user1", 100)
	e.bet(t, "user1", id, model.SideYes, 100)
	e.resolve(t, id, model.SideYes)

	amount, err := e.eng.ClaimPayout(context.Background(), "user1", id)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if amount != 100 {
		t.Errorf("expected 1:1 return of 100, got %d", amount)
	}
}

// --- Rollback and reentrancy tests ---

// failingTreasury collects fine but refuses to disburse.
type failingTreasury struct {
	*escrow.AccountBook
	failDisburse bool
}

func (f *failingTreasury) Disburse(ctx context.Context, to string, amount uint64) error {
	if f.failDisburse {
		return escrow.ErrTransferFailed
	}
	return f.AccountBook.Disburse(ctx, to, amount)
}

func TestClaim_TransferFailureRollsBack(t *testing.T) {
	clock := newFakeClock()
	treasury := &failingTreasury{AccountBook: escrow.NewAccountBook()}
	eng := ledger.New(store.NewMemoryStore(), treasury, auth.NewSingleKey(resolver), ledger.Config{
		Now: clock.Now,
	})
	ctx := context.Background()

	m, err := eng.CreateMarket(ctx, resolver, "q?", clock.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("create market: %v", err)
	}
	treasury.Credit("user1", 100)
	treasury.Approve("user1", 100)
	if err := eng.PlaceBet(ctx, "user1", m.ID, model.SideYes, 100); err != nil {
		t.Fatalf("bet: %v", err)
	}
	clock.Advance(2 * time.Hour)
	if err := eng.ResolveMarket(ctx, resolver, m.ID, model.SideYes); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	treasury.failDisburse = true
	if _, err := eng.ClaimPayout(ctx, "user1", m.ID); !errors.Is(err, escrow.ErrTransferFailed) {
		t.Fatalf("expected ErrTransferFailed, got %v", err)
	}

	// The claim mark was rolled back, so a retry succeeds once the
	// treasury recovers.
	pos, _ := eng.Position(ctx, m.ID, "user1")
	if pos.Claimed {
		t.Fatal("failed disbursement must leave the position unclaimed")
	}
	treasury.failDisburse = false
	amount, err := eng.ClaimPayout(ctx, "user1", m.ID)
	if err != nil {
		t.Fatalf("retry claim: %v", err)
	}
	if amount != 100 {
		t.Errorf("expected 100 on retry, got %d", amount)
	}
}

// hostileTreasury calls back into the engine mid-transfer.
type hostileTreasury struct {
	*escrow.AccountBook
	eng       *ledger.Ledger
	marketID  uint64
	reentrant error
}

func (h *hostileTreasury) Disburse(ctx context.Context, to string, amount uint64) error {
	_, h.reentrant = h.eng.ClaimPayout(ctx, to, h.marketID)
	return h.AccountBook.Disburse(ctx, to, amount)
}

func TestClaim_ReentrantCallRejected(t *testing.T) {
	clock := newFakeClock()
	treasury := &hostileTreasury{AccountBook: escrow.NewAccountBook()}
	eng := ledger.New(store.NewMemoryStore(), treasury, auth.NewSingleKey(resolver), ledger.Config{
		Now: clock.Now,
	})
	treasury.eng = eng
	ctx := context.Background()

	m, err := eng.CreateMarket(ctx, resolver, "q?", clock.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("create market: %v", err)
	}
	treasury.marketID = m.ID
	treasury.Credit("user1", 100)
	treasury.Approve("user1", 100)
	if err := eng.PlaceBet(ctx, "user1", m.ID, model.SideYes, 100); err != nil {
		t.Fatalf("bet: %v", err)
	}
	clock.Advance(2 * time.Hour)
	if err := eng.ResolveMarket(ctx, resolver, m.ID, model.SideYes); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	amount, err := eng.ClaimPayout(ctx, "user1", m.ID)
	if err != nil {
		t.Fatalf("outer claim should succeed: %v", err)
	}
	if amount != 100 {
		t.Errorf("expected payout 100, got %d", amount)
	}
	if !errors.Is(treasury.reentrant, ledger.ErrReentrantCall) {
		t.Errorf("nested claim should be rejected with ErrReentrantCall, got %v", treasury.reentrant)
	}
	// Exactly one payout moved.
	if got := treasury.Account("user1").Balance; got != 100 {
		t.Errorf("expected single payout of 100, got balance %d", got)
	}
}

// --- Read surface tests ---

func TestMarketIDs_Pagination(t *testing.T) {
	e := newTestEnv(t)
	for i := 0; i < 5; i++ {
		e.openMarket(t)
	}
	ctx := context.Background()

	ids, err := e.eng.MarketIDs(ctx, 2, 2)
	if err != nil {
		t.Fatalf("page: %v", err)
	}
	if len(ids) != 2 || ids[0] != 2 || ids[1] != 3 {
		t.Errorf("expected [2 3], got %v", ids)
	}

	// Short page at the end.
	ids, _ = e.eng.MarketIDs(ctx, 5, 10)
	if len(ids) != 1 || ids[0] != 5 {
		t.Errorf("expected [5], got %v", ids)
	}

	// Out of range.
	ids, _ = e.eng.MarketIDs(ctx, 6, 10)
	if len(ids) != 0 {
		t.Errorf("expected empty page, got %v", ids)
	}
}

func TestHistory_RecordsBetsAndClaims(t *testing.T) {
	e := newTestEnv(t)
	id := e.openMarket(t)
	e.fund(t, "user1", 100)
	e.fund(t, "user2", 50)
	e.bet(t, "user1", id, model.SideYes, 100)
	e.bet(t, "user2", id, model.SideNo, 50)
	e.resolve(t, id, model.SideYes)

	ctx := context.Background()
	if _, err := e.eng.ClaimPayout(ctx, "user1", id); err != nil {
		t.Fatalf("claim: %v", err)
	}

	entries, err := e.eng.History(ctx, id)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].Kind != model.KindBet || entries[0].Amount != 100 {
		t.Errorf("unexpected first entry: %+v", entries[0])
	}
	if entries[2].Kind != model.KindClaim || entries[2].Amount != 150 {
		t.Errorf("unexpected claim entry: %+v", entries[2])
	}
}

func TestPosition_NeverBet(t *testing.T) {
	e := newTestEnv(t)
	id := e.openMarket(t)
	pos, err := e.eng.Position(context.Background(), id, "stranger")
	if err != nil {
		t.Fatalf("position: %v", err)
	}
	if pos.YesStake != 0 || pos.NoStake != 0 || pos.Claimed {
		t.Errorf("expected zero position, got %+v", pos)
	}
}

func TestClaimableAmount_UnresolvedIsZero(t *testing.T) {
	e := newTestEnv(t)
	id := e.openMarket(t)
	e.fund(t, "user1", 100)
	e.bet(t, "user1", id, model.SideYes, 100)

	c, err := e.eng.ClaimableAmount(context.Background(), id, "user1")
	if err != nil {
		t.Fatalf("claimable: %v", err)
	}
	if c != 0 {
		t.Errorf("unresolved market must report 0 claimable, got %d", c)
	}
}
