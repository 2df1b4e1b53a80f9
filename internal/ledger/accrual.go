package ledger

import (
	"context"
	"math/big"

	"github.com/pkg/errors"

	"github.com/stakevault/nft-staking-service/internal/types"
)

// pendingAt computes the reward accrued to owner as of now, without mutating
// anything. Each staked token contributes elapsed seconds since its last
// checkpoint times the reward rate.
//
// The rate used is whatever the global rate is right now, applied to each
// token's entire unaccrued window. A rate change therefore repriced every
// window still open at the time of the change; windows are not segmented at
// rate boundaries.
func (l *Ledger) pendingAt(owner string, now int64) (*big.Int, error) {
	total := new(big.Int)
	set := l.userTokens[owner]
	if set.Len() == 0 {
		return total, nil
	}
	for _, id := range set.ids {
		rec := l.records[id]
		if now < rec.LastAccrualCheckpoint {
			return nil, errors.Wrapf(ErrClockSkew,
				"token %d checkpoint %d is ahead of now %d", id, rec.LastAccrualCheckpoint, now)
		}
		elapsed := now - rec.LastAccrualCheckpoint
		if elapsed == 0 {
			continue
		}
		total.Add(total, new(big.Int).Mul(big.NewInt(elapsed), l.rewardRate))
	}
	return total, nil
}

// settle pays out owner's pending reward as of now and advances every one of
// the owner's checkpoints to now. The settlement is all-or-nothing: if the
// reward ledger cannot cover the amount, no checkpoint moves and no payout
// happens, so the full window is still claimable later.
//
// A zero pending amount settles trivially: no transfer, no checkpoint
// movement, no event.
func (l *Ledger) settle(ctx context.Context, owner string, now int64) (*big.Int, error) {
	pending, err := l.pendingAt(owner, now)
	if err != nil {
		return nil, err
	}
	if pending.Sign() == 0 {
		return pending, nil
	}
	balance, err := l.rewards.BalanceOf(ctx, l.vaultAddress)
	if err != nil {
		return nil, errors.Wrap(err, "reward ledger balance lookup")
	}
	if balance.Cmp(pending) < 0 {
		return nil, errors.Wrapf(ErrInsufficientRewardFunds, "have %s, need %s", balance, pending)
	}
	if err := l.rewards.Transfer(ctx, owner, pending); err != nil {
		return nil, errors.Wrapf(err, "reward transfer of %s to %s", pending, owner)
	}
	// Payout is final; checkpoints advance together with it.
	for _, id := range l.userTokens[owner].ids {
		l.records[id].LastAccrualCheckpoint = now
	}
	l.emit(types.Event{
		Type:          types.RewardsClaimedEventType,
		StakerAddress: owner,
		Amount:        new(big.Int).Set(pending),
		Timestamp:     now,
	})
	return pending, nil
}
