package amount

import (
	"errors"
	"math"
	"strconv"
)

const (
	NanoTESORA = 1e9
)

type Unit int

const (
	MegaTSR  Unit = 6
	KiloTSR  Unit = 3
	TSR      Unit = 0
	MilliTSR Unit = -3
	MicroTSR Unit = -6
	NanoTSR  Unit = -9
)

func (u Unit) String() string {
	switch u {
	case MegaTSR:
		return "MTSR"
	case KiloTSR:
		return "kTSR"
	case TSR:
		return "TSR"
	case MilliTSR:
		return "mTSR"
	case MicroTSR:
		return "μTSR"
	case NanoTSR:
		return "nTSR"
	default:
		return "1e" + strconv.FormatInt(int64(u), 10) + " TSR"
	}
}

// Amount represents the atomic unit of the Tesora ledger.
// Each unit equals to 1e-9 of a TESORA.
type Amount int64

func round(f float64) Amount {
	if f < 0 {
		return Amount(f - 0.5)
	}
	return Amount(f + 0.5)
}

func NewAmount(f float64) (Amount, error) {
	switch {
	case math.IsNaN(f),
		math.IsInf(f, 1),
		math.IsInf(f, -1):
		return 0, errors.New("invalid TESORA amount")
	}

	return round(f * float64(NanoTESORA)), nil
}

func FromString(str string) (Amount, error) {
	f, err := strconv.ParseFloat(str, 64)
	if err != nil {
		return 0, err
	}
	return NewAmount(f)
}

func (a Amount) ToUnit(u Unit) float64 {
	return float64(a) / math.Pow10(int(u+9))
}

func (a Amount) ToTESORA() float64 {
	return a.ToUnit(TSR)
}

func (a Amount) ToNanoTSR() int64 {
	return int64(a)
}

func (a Amount) Format(u Unit) string {
	units := " " + u.String()
	formatted := strconv.FormatFloat(a.ToUnit(u), 'f', -int(u+9), 64)
	return formatted + units
}

// String is the equivalent of calling Format with TSR.
func (a Amount) String() string {
	return a.Format(TSR)
}

func (a Amount) MulF64(f float64) Amount {
	return round(float64(a) * f)
}
