package store

// Storage keys. The state slices are single cbor blobs, one per engine;
// events are appended under their own prefix.
const (
	ledgerKey     = "ld-state"
	feesKey       = "fe-state"
	stakingKey    = "st-state"
	vestingKey    = "ve-state"
	validatorsKey = "vd-state"
	actionsKey    = "ac-state"
	tokenKey      = "tk-state"

	EventPrefix = "ev-"
)
