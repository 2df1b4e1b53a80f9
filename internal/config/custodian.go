package config

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/stakevault/nft-staking-service/internal/utils"
)

const (
	ClientModeHttp   = "http"
	ClientModeMemory = "memory"
)

// CustodianConfig configures access to the NFT custodian. In http mode calls
// go to a remote custodian service; in memory mode an in-process custodian is
// used, seeded from Seed, which is intended for local development and tests.
type CustodianConfig struct {
	Mode    string `mapstructure:"mode"`
	Host    string `mapstructure:"host"`
	Timeout int    `mapstructure:"timeout"`
	// Seed maps owner addresses to token ids pre-minted in memory mode.
	Seed map[string][]uint64 `mapstructure:"seed"`
}

func (cfg *CustodianConfig) Validate() error {
	switch cfg.Mode {
	case ClientModeHttp:
		if cfg.Host == "" {
			return errors.New("custodian host cannot be empty")
		}
		parsedURL, err := url.ParseRequestURI(cfg.Host)
		if err != nil {
			return errors.New("invalid custodian host")
		}
		if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
			return errors.New("custodian host must start with http or https")
		}
		if cfg.Timeout <= 0 {
			return errors.New("custodian timeout cannot be smaller or equal to 0")
		}
	case ClientModeMemory:
		for owner := range cfg.Seed {
			if !utils.IsValidAddress(owner) {
				return fmt.Errorf("invalid seed owner address: %s", owner)
			}
		}
	default:
		return fmt.Errorf("unknown custodian mode: %s", cfg.Mode)
	}

	return nil
}
