package fees

import (
	"math/big"
	"sync"

	"github.com/tesora-labs/tesora/config"
	"github.com/tesora-labs/tesora/events"
	"github.com/tesora-labs/tesora/types"
)

// Engine computes and routes the three-way transfer fee. Fee parameters are
// only mutable through the consensus gate; the hot transfer path itself
// needs no gating.
type Engine struct {
	mu          sync.RWMutex
	rates       types.FeeRates
	exempt      map[string]bool
	teamWallet  string
	stakingPool string

	ledger types.Ledger
	bus    *events.Bus
}

func NewEngine(ledger types.Ledger, bus *events.Bus, teamWallet, stakingPool string, rates types.FeeRates) (*Engine, error) {
	if rates.Total() > config.MaxTotalFeeBasis {
		return nil, types.ErrFeeTooHigh
	}
	return &Engine{
		rates:       rates,
		exempt:      make(map[string]bool),
		teamWallet:  teamWallet,
		stakingPool: stakingPool,
		ledger:      ledger,
		bus:         bus,
	}, nil
}

// feeFor rounds half up: (amount*rate + HalfBasis) / BasisPoints. The
// product is taken in big.Int so supply-scale amounts cannot wrap; the
// quotient always fits back in int64 because rate is capped in basis points.
func feeFor(amount, rate int64) int64 {
	fee := new(big.Int).Mul(big.NewInt(amount), big.NewInt(rate))
	fee.Add(fee, big.NewInt(config.HalfBasis))
	fee.Quo(fee, big.NewInt(config.BasisPoints))
	return fee.Int64()
}

// ApplyTransfer runs one balance transfer through the fee policy. Zero
// amounts pass through untouched; transfers touching an exempt or null
// address (the mint and burn paths) carry no fee.
func (e *Engine) ApplyTransfer(from, to string, amount int64) (types.FeeBreakdown, error) {
	if amount == 0 {
		if err := e.ledger.Move(from, to, 0); err != nil {
			return types.FeeBreakdown{}, err
		}
		return types.FeeBreakdown{}, nil
	}
	if amount < 0 {
		return types.FeeBreakdown{}, types.ErrZeroAmount
	}

	e.mu.RLock()
	rates := e.rates
	skip := e.exempt[from] || e.exempt[to] || from == "" || to == ""
	teamWallet, stakingPool := e.teamWallet, e.stakingPool
	e.mu.RUnlock()

	if skip {
		if err := e.ledger.Move(from, to, amount); err != nil {
			return types.FeeBreakdown{}, err
		}
		return types.FeeBreakdown{Net: amount}, nil
	}

	breakdown := types.FeeBreakdown{
		TeamFee:    feeFor(amount, rates.TeamBasis),
		StakingFee: feeFor(amount, rates.StakingBasis),
		BurnFee:    feeFor(amount, rates.BurnBasis),
	}
	breakdown.Net = amount - breakdown.TeamFee - breakdown.StakingFee - breakdown.BurnFee

	if e.ledger.BalanceOf(from) < amount {
		return types.FeeBreakdown{}, types.ErrInsufficientFunds
	}

	if err := e.ledger.Move(from, to, breakdown.Net); err != nil {
		return types.FeeBreakdown{}, err
	}
	if breakdown.TeamFee > 0 {
		if err := e.ledger.Move(from, teamWallet, breakdown.TeamFee); err != nil {
			return types.FeeBreakdown{}, err
		}
		e.bus.Publish(events.FeeCollected, events.FeeCollectedData{
			Payer: from, Payee: teamWallet, Amount: breakdown.TeamFee, FeeKind: string(types.FeeTeam),
		})
	}
	if breakdown.StakingFee > 0 {
		if err := e.ledger.Move(from, stakingPool, breakdown.StakingFee); err != nil {
			return types.FeeBreakdown{}, err
		}
		e.bus.Publish(events.FeeCollected, events.FeeCollectedData{
			Payer: from, Payee: stakingPool, Amount: breakdown.StakingFee, FeeKind: string(types.FeeStaking),
		})
	}
	if breakdown.BurnFee > 0 {
		if err := e.ledger.Burn(from, breakdown.BurnFee); err != nil {
			return types.FeeBreakdown{}, err
		}
		e.bus.Publish(events.FeeCollected, events.FeeCollectedData{
			Payer: from, Amount: breakdown.BurnFee, FeeKind: string(types.FeeBurn),
		})
	}

	return breakdown, nil
}

// SetRates replaces all three rates atomically. ErrFeeTooHigh when the sum
// exceeds the 5% cap; no rate is written on failure.
func (e *Engine) SetRates(rates types.FeeRates) error {
	if rates.TeamBasis < 0 || rates.StakingBasis < 0 || rates.BurnBasis < 0 {
		return types.ErrFeeTooHigh
	}
	if rates.Total() > config.MaxTotalFeeBasis {
		return types.ErrFeeTooHigh
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.rates = rates
	return nil
}

func (e *Engine) Rates() types.FeeRates {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.rates
}

func (e *Engine) SetExempt(addr string, exempt bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if exempt {
		e.exempt[addr] = true
	} else {
		delete(e.exempt, addr)
	}
}

func (e *Engine) IsExempt(addr string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.exempt[addr]
}

// Snapshot captures the fee configuration for persistence.
type Snapshot struct {
	Rates  types.FeeRates  `cbor:"1,keyasint"`
	Exempt map[string]bool `cbor:"2,keyasint"`
}

func (e *Engine) Snapshot() Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()

	snap := Snapshot{Rates: e.rates, Exempt: make(map[string]bool, len(e.exempt))}
	for addr := range e.exempt {
		snap.Exempt[addr] = true
	}
	return snap
}

func (e *Engine) Restore(snap Snapshot) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.rates = snap.Rates
	e.exempt = make(map[string]bool, len(snap.Exempt))
	for addr, v := range snap.Exempt {
		if v {
			e.exempt[addr] = true
		}
	}
}
