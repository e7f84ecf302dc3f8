package types

// FeeRates holds the three transfer fee components in basis points.
// Their sum may never exceed config.MaxTotalFeeBasis.
type FeeRates struct {
	TeamBasis    int64 `json:"teamBasis" cbor:"1,keyasint"`
	StakingBasis int64 `json:"stakingBasis" cbor:"2,keyasint"`
	BurnBasis    int64 `json:"burnBasis" cbor:"3,keyasint"`
}

func (r FeeRates) Total() int64 {
	return r.TeamBasis + r.StakingBasis + r.BurnBasis
}

// FeeKind tags a collected fee component on its event signal.
type FeeKind string

const (
	FeeTeam        FeeKind = "TEAM"
	FeeStaking     FeeKind = "STAKING"
	FeeBurn        FeeKind = "BURN"
	FeePerformance FeeKind = "PERFORMANCE"
)

// FeeBreakdown is the result of running one transfer through the fee engine.
type FeeBreakdown struct {
	Net        int64
	TeamFee    int64
	StakingFee int64
	BurnFee    int64
}
