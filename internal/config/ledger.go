package config

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/stakevault/nft-staking-service/internal/utils"
)

type LedgerConfig struct {
	// VaultAddress is the account the service custodies staked tokens under
	// and pays rewards from.
	VaultAddress string `mapstructure:"vault-address"`
	// OwnerAddress receives administrative reward fund withdrawals.
	OwnerAddress string `mapstructure:"owner-address"`
	// InitialRewardRate is the reward rate per second per staked token as a
	// decimal string. Used only when there is no persisted ledger state.
	InitialRewardRate string `mapstructure:"initial-reward-rate"`
	EventBufferSize   int    `mapstructure:"event-buffer-size"`

	// InitialRate is parsed out of InitialRewardRate during Validate.
	InitialRate *big.Int
}

func (cfg *LedgerConfig) Validate() error {
	if !utils.IsValidAddress(cfg.VaultAddress) {
		return fmt.Errorf("invalid vault address: %s", cfg.VaultAddress)
	}

	if !utils.IsValidAddress(cfg.OwnerAddress) {
		return fmt.Errorf("invalid owner address: %s", cfg.OwnerAddress)
	}

	if cfg.VaultAddress == cfg.OwnerAddress {
		return errors.New("vault address and owner address must differ")
	}

	rate, err := utils.ParseBigInt(cfg.InitialRewardRate)
	if err != nil {
		return fmt.Errorf("invalid initial reward rate: %w", err)
	}
	cfg.InitialRate = rate

	if cfg.EventBufferSize <= 0 {
		return errors.New("event buffer size must be a positive integer")
	}

	return nil
}
