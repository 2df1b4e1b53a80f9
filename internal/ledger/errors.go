package ledger

import "github.com/pkg/errors"

var (
	ErrEmptyBatch              = errors.New("ledger: empty token batch")
	ErrBatchTooLarge           = errors.New("ledger: token batch exceeds limit")
	ErrPaused                  = errors.New("ledger: staking is paused")
	ErrInvalidRate             = errors.New("ledger: reward rate must be positive")
	ErrInvalidAmount           = errors.New("ledger: amount must be positive")
	ErrNotOwner                = errors.New("ledger: caller does not own token")
	ErrNotApproved             = errors.New("ledger: vault is not approved to move token")
	ErrAlreadyStaked           = errors.New("ledger: token is already staked")
	ErrNotStaked               = errors.New("ledger: token is not staked")
	ErrNothingStaked           = errors.New("ledger: caller has no staked tokens")
	ErrInsufficientRewardFunds = errors.New("ledger: insufficient reward funds")
	ErrClockSkew               = errors.New("ledger: clock moved behind accrual checkpoint")
	ErrReentrantCall           = errors.New("ledger: reentrant call rejected")
)
