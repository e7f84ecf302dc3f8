package config

import "time"

const (
	// Token Related
	NanoPerTesora      = 1_000_000_000
	InitialTotalSupply = 120_000_000 * NanoPerTesora // 120 million tokens

	// Fee Related (basis points, 10000 = 100%)
	BasisPoints          = 10000
	HalfBasis            = BasisPoints / 2
	MaxTotalFeeBasis     = 500 // 5% hard cap on team+staking+burn
	DefaultTeamFeeBasis  = 100
	DefaultStakeFeeBasis = 100
	DefaultBurnFeeBasis  = 50

	// Staking Related
	AnnualStakeReward        = 4_800_000 * NanoPerTesora
	DailyStakeReward         = AnnualStakeReward / 365
	SecondsPerDay            = 24 * 60 * 60
	RewardScale              = 1e12 // reward-per-token accumulator precision
	DefaultPerformanceFeeBps = 200  // 2% of claimed rewards to the team wallet

	// Consensus Related
	DefaultRequiredConfirmations = 2
	DefaultMaxMissedActions      = 5
	ActionTTL                    = 7 * 24 * time.Hour // unconfirmed actions expire
	TimelockDelay                = 48 * time.Hour     // pause and upgrade only

	// Vesting Related
	TeamVestingAmount   = 10_000_000 * NanoPerTesora
	TeamVestingDuration = 730 * 24 * time.Hour
	TeamVestingCliff    = 180 * 24 * time.Hour
)
