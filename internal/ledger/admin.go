package ledger

import (
	"context"
	"math/big"

	"github.com/pkg/errors"

	"github.com/stakevault/nft-staking-service/internal/types"
)

// SetRewardRate replaces the global accrual rate. The new rate applies to all
// accrual computed from here on, including windows already open; past
// settlements are never recomputed.
func (l *Ledger) SetRewardRate(newRate *big.Int) error {
	if err := l.acquire(); err != nil {
		return err
	}
	defer l.release()

	if newRate == nil || newRate.Sign() <= 0 {
		return ErrInvalidRate
	}
	l.rewardRate = new(big.Int).Set(newRate)
	l.emit(types.Event{
		Type:      types.RateUpdatedEventType,
		NewRate:   new(big.Int).Set(newRate),
		Timestamp: l.clock.Now(),
	})
	return nil
}

// Pause blocks new stake operations. Unstake and claim stay available so a
// pause can never trap user tokens or accrued rewards.
func (l *Ledger) Pause() error {
	if err := l.acquire(); err != nil {
		return err
	}
	defer l.release()

	l.paused = true
	return nil
}

func (l *Ledger) Unpause() error {
	if err := l.acquire(); err != nil {
		return err
	}
	defer l.release()

	l.paused = false
	return nil
}

// WithdrawRewardFunds moves amount from the vault's reward balance to the
// owner address. Nothing is reserved against accrued-but-unclaimed rewards,
// so a withdrawal can starve later claims until the vault is topped up.
func (l *Ledger) WithdrawRewardFunds(ctx context.Context, amount *big.Int) error {
	if err := l.acquire(); err != nil {
		return err
	}
	defer l.release()

	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	balance, err := l.rewards.BalanceOf(ctx, l.vaultAddress)
	if err != nil {
		return errors.Wrap(err, "reward ledger balance lookup")
	}
	if balance.Cmp(amount) < 0 {
		return errors.Wrapf(ErrInsufficientRewardFunds, "have %s, need %s", balance, amount)
	}
	if err := l.rewards.Transfer(ctx, l.ownerAddress, amount); err != nil {
		return errors.Wrapf(err, "withdrawal transfer of %s", amount)
	}
	return nil
}
