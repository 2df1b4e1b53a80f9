package clients

import (
	"fmt"

	"github.com/stakevault/nft-staking-service/internal/clients/custodian"
	"github.com/stakevault/nft-staking-service/internal/clients/rewardledger"
	"github.com/stakevault/nft-staking-service/internal/config"
	"github.com/stakevault/nft-staking-service/internal/ledger"
)

type Clients struct {
	Custodian    ledger.Custodian
	RewardLedger ledger.RewardLedger
}

func New(cfg *config.Config) (*Clients, error) {
	var custodianClient ledger.Custodian
	switch cfg.Custodian.Mode {
	case config.ClientModeHttp:
		custodianClient = custodian.NewClient(&cfg.Custodian)
	case config.ClientModeMemory:
		memory, err := custodian.NewMemoryClient(cfg.Custodian.Seed)
		if err != nil {
			return nil, fmt.Errorf("failed to seed memory custodian: %w", err)
		}
		custodianClient = memory
	default:
		return nil, fmt.Errorf("unknown custodian mode: %s", cfg.Custodian.Mode)
	}

	var rewardClient ledger.RewardLedger
	switch cfg.RewardLedger.Mode {
	case config.ClientModeHttp:
		rewardClient = rewardledger.NewClient(&cfg.RewardLedger)
	case config.ClientModeMemory:
		memory, err := rewardledger.NewMemoryClient(cfg.Ledger.VaultAddress, cfg.RewardLedger.Balances)
		if err != nil {
			return nil, fmt.Errorf("failed to seed memory reward ledger: %w", err)
		}
		rewardClient = memory
	default:
		return nil, fmt.Errorf("unknown reward ledger mode: %s", cfg.RewardLedger.Mode)
	}

	return &Clients{
		Custodian:    custodianClient,
		RewardLedger: rewardClient,
	}, nil
}
