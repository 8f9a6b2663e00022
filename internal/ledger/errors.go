package ledger

import "errors"

// Every operation either fully commits or fails with one of these
// caller-recoverable conditions; none are fatal and the engine performs
// no internal retries.
var (
	ErrMarketNotFound    = errors.New("ledger: market not found")
	ErrValidation        = errors.New("ledger: invalid input")
	ErrNotResolver       = errors.New("ledger: caller is not the resolver")
	ErrMarketNotOpen     = errors.New("ledger: market is not open for betting")
	ErrMarketNotClosed   = errors.New("ledger: market has not closed yet")
	ErrAlreadyResolved   = errors.New("ledger: market already resolved")
	ErrMarketNotResolved = errors.New("ledger: market not resolved")
	ErrBelowMinimum      = errors.New("ledger: bet below minimum amount")
	ErrNoWinningPosition = errors.New("ledger: no winning position to claim")
	ErrAlreadyClaimed    = errors.New("ledger: payout already claimed")
	ErrReentrantCall     = errors.New("ledger: reentrant call rejected")
)
