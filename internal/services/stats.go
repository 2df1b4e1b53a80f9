package services

import (
	"context"

	"github.com/stakevault/nft-staking-service/internal/types"
)

type StatsPublic struct {
	TotalStaked       uint64 `json:"total_staked"`
	RewardRate        string `json:"reward_rate"`
	RewardPoolBalance string `json:"reward_pool_balance"`
	Paused            bool   `json:"paused"`
}

// GetStats reports the ledger aggregates plus the vault's live reward balance.
func (s *Services) GetStats(ctx context.Context) (*StatsPublic, *types.Error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats, err := s.ledger.Stats(ctx)
	if err != nil {
		return nil, fromLedgerError(ctx, err)
	}
	return &StatsPublic{
		TotalStaked:       stats.TotalStaked,
		RewardRate:        stats.RewardRate.String(),
		RewardPoolBalance: stats.RewardBalance.String(),
		Paused:            stats.Paused,
	}, nil
}
