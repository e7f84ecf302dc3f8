package types

// ValidatorInfo is the externally visible view of one validator.
type ValidatorInfo struct {
	Address string `json:"address"`
	Missed  int    `json:"missedConfirmations"`
}

type ValidatorSetInfo struct {
	Validators            []ValidatorInfo `json:"validators"`
	RequiredConfirmations int             `json:"requiredConfirmations"`
	MaxMissed             int             `json:"maxMissed"`
}
