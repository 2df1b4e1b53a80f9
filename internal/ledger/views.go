package ledger

import (
	"context"
	"math/big"

	"github.com/pkg/errors"
)

// Stats is the ledger's aggregate view.
type Stats struct {
	TotalStaked   uint64
	RewardRate    *big.Int
	Paused        bool
	RewardBalance *big.Int
}

// PendingReward returns the reward accrued to owner as of now. Pure.
func (l *Ledger) PendingReward(owner string) (*big.Int, error) {
	return l.pendingAt(owner, l.clock.Now())
}

// UserStakedTokens returns the owner's staked token ids. The order is the
// set's current internal order, which is stable between mutations but not
// insertion order.
func (l *Ledger) UserStakedTokens(owner string) []uint64 {
	return l.userTokens[owner].IDs()
}

// StakeInfo returns a copy of the token's stake record, if staked.
func (l *Ledger) StakeInfo(tokenID uint64) (StakeRecord, bool) {
	rec, ok := l.records[tokenID]
	if !ok {
		return StakeRecord{}, false
	}
	return *rec, true
}

func (l *Ledger) IsStaked(tokenID uint64) bool {
	_, ok := l.records[tokenID]
	return ok
}

func (l *Ledger) TotalStaked() uint64 {
	return l.totalStaked
}

func (l *Ledger) RewardRate() *big.Int {
	return new(big.Int).Set(l.rewardRate)
}

func (l *Ledger) Paused() bool {
	return l.paused
}

// Stats reports the aggregate view, including the vault's live reward balance
// from the reward ledger.
func (l *Ledger) Stats(ctx context.Context) (Stats, error) {
	balance, err := l.rewards.BalanceOf(ctx, l.vaultAddress)
	if err != nil {
		return Stats{}, errors.Wrap(err, "reward ledger balance lookup")
	}
	return Stats{
		TotalStaked:   l.totalStaked,
		RewardRate:    new(big.Int).Set(l.rewardRate),
		Paused:        l.paused,
		RewardBalance: balance,
	}, nil
}
