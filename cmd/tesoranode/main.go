package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/tesora-labs/tesora/config"
	"github.com/tesora-labs/tesora/node"
	"github.com/tesora-labs/tesora/token"
	"github.com/tesora-labs/tesora/types"
)

func main() {
	envPath := flag.String("env", ".env", "path to the environment file")
	flag.Parse()

	cfg, err := config.LoadConfig(*envPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	tokenCfg, err := tokenConfigFromEnv(cfg)
	if err != nil {
		log.Fatalf("Invalid token configuration: %v", err)
	}

	n, err := node.New(cfg, tokenCfg)
	if err != nil {
		log.Fatalf("Failed to initialize node: %v", err)
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Println("Shutting down...")
		if err := n.Shutdown(); err != nil {
			log.Printf("Shutdown error: %v", err)
		}
	}()

	if err := n.Start(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// tokenConfigFromEnv assembles the token parameters. The system addresses
// and the validator set come from the environment; everything else falls
// back to the built-in defaults.
func tokenConfigFromEnv(cfg *config.Config) (token.Config, error) {
	tokenCfg := token.Config{
		Owner:                 cfg.OwnerAddress,
		Treasury:              os.Getenv("TREASURY_ADDRESS"),
		TeamWallet:            os.Getenv("TEAM_WALLET_ADDRESS"),
		StakingPool:           os.Getenv("STAKING_POOL_ADDRESS"),
		RequiredConfirmations: config.DefaultRequiredConfirmations,
		MaxMissed:             config.DefaultMaxMissedActions,
		FeeRates: types.FeeRates{
			TeamBasis:    config.DefaultTeamFeeBasis,
			StakingBasis: config.DefaultStakeFeeBasis,
			BurnBasis:    config.DefaultBurnFeeBasis,
		},
		RewardRate:     config.DailyStakeReward,
		PerformanceBps: config.DefaultPerformanceFeeBps,
	}

	if validators := os.Getenv("VALIDATORS"); validators != "" {
		tokenCfg.Validators = strings.Split(validators, ",")
	}
	if cfg.Testnet && len(tokenCfg.Validators) == 0 {
		// single-validator testnet out of the box
		tokenCfg.Validators = []string{cfg.OwnerAddress}
		tokenCfg.RequiredConfirmations = 1
	}
	return tokenCfg, nil
}
