package vesting

import (
	"math/big"
	"sync"
	"time"

	"github.com/tesora-labs/tesora/events"
	"github.com/tesora-labs/tesora/types"
)

// Engine implements linear vesting with a cliff: nothing before the cliff,
// then retroactively linear from the grant start, everything at maturity.
// Released amounts are minted, growing total supply.
type Engine struct {
	mu        sync.Mutex
	schedules map[string]*types.Schedule

	ledger types.Ledger
	bus    *events.Bus
	now    func() time.Time
}

func NewEngine(ledger types.Ledger, bus *events.Bus) *Engine {
	return &Engine{
		schedules: make(map[string]*types.Schedule),
		ledger:    ledger,
		bus:       bus,
		now:       time.Now,
	}
}

// SetClock overrides the time source. Tests only.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// Grant records a schedule for beneficiary starting now. At most one
// schedule may ever exist per beneficiary.
func (e *Engine) Grant(beneficiary string, total int64, duration, cliff time.Duration) error {
	if beneficiary == "" {
		return types.ErrZeroAddress
	}
	if total <= 0 {
		return types.ErrZeroAmount
	}
	if duration <= 0 || cliff > duration {
		return types.ErrInvalidSchedule
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if existing, ok := e.schedules[beneficiary]; ok && existing.Total > 0 {
		return types.ErrDuplicateGrant
	}

	e.schedules[beneficiary] = &types.Schedule{
		Beneficiary: beneficiary,
		Total:       total,
		Start:       e.now(),
		Duration:    duration,
		Cliff:       cliff,
	}
	return nil
}

// VestedAmount is a pure function of the stored schedule and current time.
func (e *Engine) VestedAmount(beneficiary string) int64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, ok := e.schedules[beneficiary]
	if !ok {
		return 0
	}
	return vestedLocked(s, e.now())
}

func vestedLocked(s *types.Schedule, now time.Time) int64 {
	if now.Before(s.Start.Add(s.Cliff)) {
		return 0
	}
	if !now.Before(s.Start.Add(s.Duration)) {
		return s.Total
	}
	elapsed := now.Sub(s.Start)
	// big.Int keeps Total*seconds from overflowing on genesis-scale grants
	vested := new(big.Int).Mul(big.NewInt(s.Total), big.NewInt(int64(elapsed/time.Second)))
	vested.Quo(vested, big.NewInt(int64(s.Duration/time.Second)))
	return vested.Int64()
}

// Release mints everything vested but not yet released. Anyone may trigger
// a release; the proceeds always land with the beneficiary. The released
// counter moves before the mint.
func (e *Engine) Release(beneficiary string) (int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, ok := e.schedules[beneficiary]
	if !ok {
		return 0, types.ErrNothingToRelease
	}

	unreleased := vestedLocked(s, e.now()) - s.Released
	if unreleased <= 0 {
		return 0, types.ErrNothingToRelease
	}

	s.Released += unreleased
	if err := e.ledger.Mint(beneficiary, unreleased); err != nil {
		s.Released -= unreleased
		return 0, err
	}

	e.bus.Publish(events.TokensReleased, map[string]interface{}{
		"beneficiary": beneficiary,
		"amount":      unreleased,
	})
	return unreleased, nil
}

// Schedule returns a copy of the beneficiary's schedule.
func (e *Engine) Schedule(beneficiary string) (types.Schedule, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, ok := e.schedules[beneficiary]
	if !ok {
		return types.Schedule{}, false
	}
	return *s, true
}

// Snapshot captures all schedules for persistence.
func (e *Engine) Snapshot() []types.Schedule {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]types.Schedule, 0, len(e.schedules))
	for _, s := range e.schedules {
		out = append(out, *s)
	}
	return out
}

func (e *Engine) Restore(schedules []types.Schedule) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.schedules = make(map[string]*types.Schedule, len(schedules))
	for i := range schedules {
		s := schedules[i]
		e.schedules[s.Beneficiary] = &s
	}
}
