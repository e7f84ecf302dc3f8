package types

import "time"

// ActionKind identifies a privileged state transition.
type ActionKind string

const (
	ActionSetFeeRates        ActionKind = "SET_FEE_RATES"
	ActionSetFeeExempt       ActionKind = "SET_FEE_EXEMPT"
	ActionAddValidator       ActionKind = "ADD_VALIDATOR"
	ActionRemoveValidator    ActionKind = "REMOVE_VALIDATOR"
	ActionSlashValidator     ActionKind = "SLASH_VALIDATOR"
	ActionSetRequiredConfirm ActionKind = "SET_REQUIRED_CONFIRMATIONS"
	ActionSetRewardRate      ActionKind = "SET_REWARD_RATE"
	ActionSetPerformanceFee  ActionKind = "SET_PERFORMANCE_FEE"
	ActionPause              ActionKind = "PAUSE"
	ActionUnpause            ActionKind = "UNPAUSE"
	ActionBuybackBurn        ActionKind = "BUYBACK_BURN"
	ActionUpgrade            ActionKind = "UPGRADE"
)

// ActionStatus reports where a privileged action sits in its lifecycle.
// Pending and Confirmed are successful no-op statuses, not errors.
type ActionStatus string

const (
	StatusPending   ActionStatus = "PENDING"   // below confirmation threshold
	StatusConfirmed ActionStatus = "CONFIRMED" // threshold met, timelock still running
	StatusApplied   ActionStatus = "APPLIED"   // mutation executed
	StatusExpired   ActionStatus = "EXPIRED"
)

// ActionRecord tracks confirmations for one proposed action. The id is
// allocated once by the proposer and shared; confirmers reference it
// explicitly instead of re-deriving it.
type ActionRecord struct {
	ID            string              `cbor:"1,keyasint"`
	Kind          ActionKind          `cbor:"2,keyasint"`
	Params        []byte              `cbor:"3,keyasint"` // cbor-encoded parameters
	ProposedAt    time.Time           `cbor:"4,keyasint"`
	ExpiresAt     time.Time           `cbor:"5,keyasint"`
	Confirmations map[string]struct{} `cbor:"6,keyasint"`
	Confirmed     bool                `cbor:"7,keyasint"`
	Applied       bool                `cbor:"8,keyasint"`
}
