package types

import "time"

// Position is one address's staking state. RewardDebt mirrors the global
// reward-per-token accumulator at the position's last settlement.
type Position struct {
	Address        string    `json:"address" cbor:"1,keyasint"`
	Staked         int64     `json:"staked" cbor:"2,keyasint"`
	StakeStart     time.Time `json:"stakeStart" cbor:"3,keyasint"`
	Accrued        int64     `json:"accrued" cbor:"4,keyasint"`
	RewardPerToken []byte    `json:"-" cbor:"5,keyasint"` // big.Int bytes, last-seen accumulator
}

// StakingInfo is the externally visible pool summary.
type StakingInfo struct {
	TotalStaked        int64  `json:"totalStaked"`
	RewardRatePerDay   int64  `json:"rewardRatePerDay"`
	PerformanceFeeBps  int64  `json:"performanceFeeBps"`
	RewardPerTokenAcc  string `json:"rewardPerTokenAcc"`
	LastAccrualUnixSec int64  `json:"lastAccrualUnixSec"`
}
