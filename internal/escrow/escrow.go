// Package escrow provides the value-transfer primitive the ledger custodies
// stakes through. The ledger only ever calls Collect (pull pre-authorized
// value into custody) and Disburse (pay custody out); no other code path
// moves the custody balance.
package escrow

import (
	"context"
	"errors"
	"math"
	"sync"
)

var (
	// ErrInsufficientAllowance is returned when a participant has not
	// pre-authorized enough value for a collection.
	ErrInsufficientAllowance = errors.New("escrow: insufficient allowance")

	// ErrInsufficientFunds is returned when a participant's balance cannot
	// cover an otherwise authorized collection.
	ErrInsufficientFunds = errors.New("escrow: insufficient funds")

	// ErrTransferFailed is returned when a disbursement cannot be honored
	// from custody.
	ErrTransferFailed = errors.New("escrow: transfer failed")

	// ErrAmountOverflow is returned when a credit would overflow a balance.
	ErrAmountOverflow = errors.New("escrow: amount overflow")
)

// Treasury moves value between participant accounts and the system's
// custody. Implementations must make each call atomic: a failed call
// leaves every balance unchanged.
type Treasury interface {
	// Collect pulls amount of pre-authorized value from a participant
	// into custody.
	Collect(ctx context.Context, from string, amount uint64) error

	// Disburse pays amount out of custody to a participant.
	Disburse(ctx context.Context, to string, amount uint64) error
}

// Account is a read-only view of one participant's escrow account.
type Account struct {
	Participant string `json:"participant"`
	Balance     uint64 `json:"balance"`
	Allowance   uint64 `json:"allowance"`
}

type account struct {
	balance   uint64
	allowance uint64
}

// AccountBook is an in-memory Treasury keeping per-participant balances
// and allowances plus a single custody total. Suitable for development
// and tests; a production deployment would back this with a payment rail.
type AccountBook struct {
	mu       sync.RWMutex
	accounts map[string]*account
	custody  uint64
}

// NewAccountBook creates an empty account book.
func NewAccountBook() *AccountBook {
	return &AccountBook{accounts: make(map[string]*account)}
}

// Credit deposits amount into a participant's balance.
func (b *AccountBook) Credit(participant string, amount uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	acct := b.account(participant)
	if acct.balance > math.MaxUint64-amount {
		return ErrAmountOverflow
	}
	acct.balance += amount
	return nil
}

// Approve sets a participant's allowance, the ceiling on what Collect may
// pull. Approving replaces any previous allowance.
func (b *AccountBook) Approve(participant string, amount uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.account(participant).allowance = amount
}

// Account returns a snapshot of one participant's balances.
func (b *AccountBook) Account(participant string) Account {
	b.mu.RLock()
	defer b.mu.RUnlock()

	view := Account{Participant: participant}
	if acct, ok := b.accounts[participant]; ok {
		view.Balance = acct.balance
		view.Allowance = acct.allowance
	}
	return view
}

// Custody returns the total value currently held in escrow.
func (b *AccountBook) Custody() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.custody
}

func (b *AccountBook) Collect(_ context.Context, from string, amount uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	acct := b.account(from)
	if acct.allowance < amount {
		return ErrInsufficientAllowance
	}
	if acct.balance < amount {
		return ErrInsufficientFunds
	}
	acct.allowance -= amount
	acct.balance -= amount
	b.custody += amount
	return nil
}

func (b *AccountBook) Disburse(_ context.Context, to string, amount uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.custody < amount {
		return ErrTransferFailed
	}
	acct := b.account(to)
	if acct.balance > math.MaxUint64-amount {
		return ErrTransferFailed
	}
	b.custody -= amount
	acct.balance += amount
	return nil
}

// account returns the named account, creating it if needed. Caller holds mu.
func (b *AccountBook) account(participant string) *account {
	acct, ok := b.accounts[participant]
	if !ok {
		acct = &account{}
		b.accounts[participant] = acct
	}
	return acct
}
