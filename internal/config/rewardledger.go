package config

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/stakevault/nft-staking-service/internal/utils"
)

// RewardLedgerConfig configures access to the fungible reward ledger. Mode
// follows the same http/memory split as the custodian.
type RewardLedgerConfig struct {
	Mode    string `mapstructure:"mode"`
	Host    string `mapstructure:"host"`
	Timeout int    `mapstructure:"timeout"`
	// Balances seeds memory mode with address -> amount (decimal string).
	Balances map[string]string `mapstructure:"balances"`
}

func (cfg *RewardLedgerConfig) Validate() error {
	switch cfg.Mode {
	case ClientModeHttp:
		if cfg.Host == "" {
			return errors.New("reward ledger host cannot be empty")
		}
		parsedURL, err := url.ParseRequestURI(cfg.Host)
		if err != nil {
			return errors.New("invalid reward ledger host")
		}
		if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
			return errors.New("reward ledger host must start with http or https")
		}
		if cfg.Timeout <= 0 {
			return errors.New("reward ledger timeout cannot be smaller or equal to 0")
		}
	case ClientModeMemory:
		for address, balance := range cfg.Balances {
			if !utils.IsValidAddress(address) {
				return fmt.Errorf("invalid balance address: %s", address)
			}
			if _, err := utils.ParseBigInt(balance); err != nil {
				return fmt.Errorf("invalid balance for %s: %w", address, err)
			}
		}
	default:
		return fmt.Errorf("unknown reward ledger mode: %s", cfg.Mode)
	}

	return nil
}
