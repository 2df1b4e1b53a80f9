package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

const defaultConfigFileName = "config.yml"

var (
	cfgPath       string
	replayEvents  bool
	replayFromSeq uint64
	rootCmd       = &cobra.Command{
		Use: "nft-staking-service",
	}
)

func Setup() error {
	homePath, err := os.UserHomeDir()
	if err != nil {
		return err
	}

	defaultConfigPath := filepath.Join(homePath, defaultConfigFileName)

	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", defaultConfigPath, fmt.Sprintf("config file (default %s)", defaultConfigPath))
	rootCmd.PersistentFlags().BoolVar(&replayEvents, "replay-events", false, "republish archived events to the event queue and exit")
	rootCmd.PersistentFlags().Uint64Var(&replayFromSeq, "replay-from", 0, "first event sequence to republish (0 starts from the beginning)")
	if err := rootCmd.Execute(); err != nil {
		return err
	}

	return nil
}

func GetConfigPath() string {
	return cfgPath
}

func GetReplayFlag() bool {
	return replayEvents
}

func GetReplayFromSeq() uint64 {
	return replayFromSeq
}
