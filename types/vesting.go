package types

import "time"

// Schedule is a linear vesting grant with a cliff. Released never decreases
// and never exceeds Total.
type Schedule struct {
	Beneficiary string        `json:"beneficiary" cbor:"1,keyasint"`
	Total       int64         `json:"total" cbor:"2,keyasint"`
	Released    int64         `json:"released" cbor:"3,keyasint"`
	Start       time.Time     `json:"start" cbor:"4,keyasint"`
	Duration    time.Duration `json:"duration" cbor:"5,keyasint"`
	Cliff       time.Duration `json:"cliff" cbor:"6,keyasint"`
}
