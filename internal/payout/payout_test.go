package payout

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
)

// --- Claimable tests ---

func TestClaimable_ZeroStake(t *testing.T) {
	if got := Claimable(0, 200, 300); got != 0 {
		t.Errorf("expected 0 for zero stake, got %d", got)
	}
}

func TestClaimable_ProportionalSplit(t *testing.T) {
	// Three 100-unit YES stakes would be impossible with winningPool=200;
	// here two YES bettors of 100 each share a 300 pool.
	if got := Claimable(100, 200, 300); got != 150 {
		t.Errorf("expected 150, got %d", got)
	}
}

func TestClaimable_SumEqualsTotalWhenDivisible(t *testing.T) {
	// 100+100 YES vs 100 NO: both winners get 150, exhausting the pool.
	a := Claimable(100, 200, 300)
	b := Claimable(100, 200, 300)
	if a+b != 300 {
		t.Errorf("expected claims to sum to 300, got %d", a+b)
	}
}

func TestClaimable_DustRetained(t *testing.T) {
	// 33+33+34 YES vs 33 NO: totalPool=133, winningPool=100.
	claims := []uint64{
		Claimable(33, 100, 133),
		Claimable(33, 100, 133),
		Claimable(34, 100, 133),
	}
	var sum uint64
	for _, c := range claims {
		if c == 0 {
			t.Fatal("every winner should receive a positive payout")
		}
		sum += c
	}
	if sum > 133 {
		t.Fatalf("claims sum %d exceeds total pool 133", sum)
	}
	// floor(33*133/100)=43, floor(34*133/100)=45; 43+43+45=131, dust=2.
	if sum != 131 {
		t.Errorf("expected claims to sum to 131, got %d", sum)
	}
}

func TestClaimable_NoLosingPool(t *testing.T) {
	// Entire pool on the winning side: stakes come back 1:1.
	if got := Claimable(70, 100, 100); got != 70 {
		t.Errorf("expected 1:1 return of 70, got %d", got)
	}
}

func TestClaimable_LargePoolsNoOverflow(t *testing.T) {
	// winningStake*totalPool overflows 64 bits; the widened divide must
	// still produce the exact floor.
	stake := uint64(1) << 62
	winning := uint64(1) << 62
	total := uint64(1)<<62 + uint64(1)<<61
	got := Claimable(stake, winning, total)
	if got != total {
		t.Errorf("sole winner should take the whole pool %d, got %d", total, got)
	}
}

func TestClaimable_LargePoolsSplit(t *testing.T) {
	// Two equal winners at 2^62 each against a 2^61 losing pool.
	stake := uint64(1) << 62
	winning := uint64(1) << 63
	total := winning + uint64(1)<<61
	a := Claimable(stake, winning, total)
	b := Claimable(stake, winning, total)
	if a != b {
		t.Fatalf("equal stakes must claim equal payouts: %d vs %d", a, b)
	}
	if a+b > total {
		t.Errorf("claims %d exceed total pool %d", a+b, total)
	}
	if a+b != total {
		t.Errorf("evenly divisible pool should be exhausted: got %d of %d", a+b, total)
	}
}

func TestClaimable_PanicsOnEmptyWinningPool(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for positive stake against empty winning pool")
		}
	}()
	Claimable(10, 0, 100)
}

func TestClaimable_PanicsOnCorruptAccounting(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic when stake exceeds winning pool")
		}
	}()
	Claimable(200, 100, 300)
}

// --- CheckedAdd tests ---

func TestCheckedAdd_Normal(t *testing.T) {
	got, err := CheckedAdd(100, 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 150 {
		t.Errorf("expected 150, got %d", got)
	}
}

func TestCheckedAdd_Overflow(t *testing.T) {
	if _, err := CheckedAdd(math.MaxUint64, 1); err != ErrPoolOverflow {
		t.Errorf("expected ErrPoolOverflow, got %v", err)
	}
}

func TestCheckedAdd_AtLimit(t *testing.T) {
	got, err := CheckedAdd(math.MaxUint64-5, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != math.MaxUint64 {
		t.Errorf("expected MaxUint64, got %d", got)
	}
}

// --- ImpliedOdds tests ---

func TestImpliedOdds_EmptyMarket(t *testing.T) {
	yes, no := ImpliedOdds(0, 0)
	if yes.String() != "0.5" || no.String() != "0.5" {
		t.Errorf("expected even odds for empty market, got %s/%s", yes, no)
	}
}

func TestImpliedOdds_SumToOne(t *testing.T) {
	yes, no := ImpliedOdds(100, 50)
	if !yes.Add(no).Equal(decimal.New(1, 0)) {
		t.Errorf("odds should sum to 1, got %s + %s = %s", yes, no, yes.Add(no))
	}
	if yes.String() != "0.6667" {
		t.Errorf("expected yes odds 0.6667, got %s", yes)
	}
}

func TestImpliedOdds_OneSided(t *testing.T) {
	yes, no := ImpliedOdds(100, 0)
	if yes.String() != "1" {
		t.Errorf("expected yes odds 1, got %s", yes)
	}
	if !no.IsZero() {
		t.Errorf("expected no odds 0, got %s", no)
	}
}
