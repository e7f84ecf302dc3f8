package staking

import (
	"math/big"
	"sync"
	"time"

	"github.com/tesora-labs/tesora/config"
	"github.com/tesora-labs/tesora/events"
	"github.com/tesora-labs/tesora/types"
)

var scale = big.NewInt(config.RewardScale)

type position struct {
	staked         int64
	stakeStart     time.Time
	accrued        int64
	rewardPerToken *big.Int // accumulator value at last settlement
}

// Engine implements continuous stake-weighted reward accrual. Rewards are
// strictly proportional to each staker's share of totalStaked at each
// accrual instant, so every entry point that reads or writes stake amounts
// accrues first.
type Engine struct {
	mu             sync.Mutex
	positions      map[string]*position
	totalStaked    int64
	rewardPerToken *big.Int // scaled by config.RewardScale
	lastAccrual    time.Time
	rewardRate     int64 // nanoTSR per day, split across the pool
	perfFeeBps     int64

	poolAddr   string
	teamWallet string
	ledger     types.Ledger
	bus        *events.Bus
	now        func() time.Time
}

func NewEngine(ledger types.Ledger, bus *events.Bus, poolAddr, teamWallet string, rewardRate, perfFeeBps int64) *Engine {
	e := &Engine{
		positions:      make(map[string]*position),
		rewardPerToken: new(big.Int),
		rewardRate:     rewardRate,
		perfFeeBps:     perfFeeBps,
		poolAddr:       poolAddr,
		teamWallet:     teamWallet,
		ledger:         ledger,
		bus:            bus,
		now:            time.Now,
	}
	e.lastAccrual = e.now()
	return e
}

// SetClock overrides the engine's time source. Tests only.
func (e *Engine) SetClock(now func() time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.now = now
	e.lastAccrual = now()
}

// accrueLocked advances the global reward-per-token accumulator to now.
// With nothing staked the accumulator stays put but the clock still
// advances, so idle periods mint no rewards.
func (e *Engine) accrueLocked() {
	now := e.now()
	elapsed := int64(now.Sub(e.lastAccrual) / time.Second)
	if elapsed <= 0 {
		return
	}
	e.lastAccrual = now

	if e.totalStaked == 0 {
		return
	}

	// rate*elapsed wraps int64 within days at mainnet rates, so the whole
	// delta is computed in big.Int
	accrued := new(big.Int).Mul(big.NewInt(e.rewardRate), big.NewInt(elapsed))
	accrued.Quo(accrued, big.NewInt(config.SecondsPerDay))
	if accrued.Sign() <= 0 {
		return
	}
	delta := accrued.Mul(accrued, scale)
	delta.Quo(delta, big.NewInt(e.totalStaked))
	e.rewardPerToken.Add(e.rewardPerToken, delta)
}

// settleLocked folds the accumulator delta since the position's last
// checkpoint into its accrued reward.
func (e *Engine) settleLocked(pos *position) {
	delta := new(big.Int).Sub(e.rewardPerToken, pos.rewardPerToken)
	if delta.Sign() > 0 {
		pending := new(big.Int).Mul(delta, big.NewInt(pos.staked))
		pending.Quo(pending, scale)
		pos.accrued += pending.Int64()
	}
	pos.rewardPerToken = new(big.Int).Set(e.rewardPerToken)
}

// Stake moves amount from the caller into the pool account and grows the
// caller's position. The stake-start timestamp is set on first stake only.
func (e *Engine) Stake(addr string, amount int64) error {
	if amount <= 0 {
		return types.ErrZeroAmount
	}
	if e.ledger.BalanceOf(addr) < amount {
		return types.ErrInsufficientFunds
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.accrueLocked()

	pos, ok := e.positions[addr]
	if !ok {
		pos = &position{stakeStart: e.now(), rewardPerToken: new(big.Int).Set(e.rewardPerToken)}
		e.positions[addr] = pos
	}
	e.settleLocked(pos)

	if err := e.ledger.Move(addr, e.poolAddr, amount); err != nil {
		return err
	}
	pos.staked += amount
	e.totalStaked += amount

	e.bus.Publish(events.Staked, map[string]interface{}{"address": addr, "amount": amount})
	return nil
}

// Withdraw shrinks the caller's position. Stake bookkeeping is updated
// before the balance moves back out, closing the reentrancy window.
func (e *Engine) Withdraw(addr string, amount int64) error {
	if amount <= 0 {
		return types.ErrZeroAmount
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.accrueLocked()

	pos, ok := e.positions[addr]
	if !ok || pos.staked < amount {
		return types.ErrInsufficientStake
	}
	e.settleLocked(pos)

	pos.staked -= amount
	e.totalStaked -= amount

	if err := e.ledger.Move(e.poolAddr, addr, amount); err != nil {
		// roll back the bookkeeping; the pool account was underfunded
		pos.staked += amount
		e.totalStaked += amount
		return err
	}

	e.bus.Publish(events.Withdrawn, map[string]interface{}{"address": addr, "amount": amount})
	return nil
}

// ClaimRewards pays out the caller's accrued reward minus the performance
// fee. Zero accrued is a successful no-op; an underfunded pool is an error.
func (e *Engine) ClaimRewards(addr string) (int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.accrueLocked()

	pos, ok := e.positions[addr]
	if !ok {
		return 0, nil
	}
	e.settleLocked(pos)

	reward := pos.accrued
	if reward == 0 {
		return 0, nil
	}
	if e.ledger.BalanceOf(e.poolAddr) < reward {
		return 0, types.ErrInsufficientPoolBalance
	}

	// zero the claim before any balance leaves the pool
	pos.accrued = 0

	fee := new(big.Int).Mul(big.NewInt(reward), big.NewInt(e.perfFeeBps))
	fee.Add(fee, big.NewInt(config.HalfBasis))
	fee.Quo(fee, big.NewInt(config.BasisPoints))
	perfFee := fee.Int64()
	net := reward - perfFee

	if err := e.ledger.Move(e.poolAddr, addr, net); err != nil {
		pos.accrued = reward
		return 0, err
	}
	if perfFee > 0 {
		if err := e.ledger.Move(e.poolAddr, e.teamWallet, perfFee); err != nil {
			return 0, err
		}
		e.bus.Publish(events.FeeCollected, events.FeeCollectedData{
			Payer: addr, Payee: e.teamWallet, Amount: perfFee, FeeKind: string(types.FeePerformance),
		})
	}

	e.bus.Publish(events.RewardsClaimed, map[string]interface{}{"address": addr, "net": net, "fee": perfFee})
	return net, nil
}

// PendingRewards reports what a claim would pay before the performance fee,
// without mutating anything but the accumulator.
func (e *Engine) PendingRewards(addr string) int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.accrueLocked()

	pos, ok := e.positions[addr]
	if !ok {
		return 0
	}
	e.settleLocked(pos)
	return pos.accrued
}

func (e *Engine) StakedOf(addr string) int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if pos, ok := e.positions[addr]; ok {
		return pos.staked
	}
	return 0
}

func (e *Engine) TotalStaked() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.totalStaked
}

// SetRewardRate accrues at the old rate up to now, then switches.
func (e *Engine) SetRewardRate(rate int64) error {
	if rate < 0 {
		return types.ErrZeroAmount
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.accrueLocked()
	e.rewardRate = rate
	return nil
}

func (e *Engine) SetPerformanceFee(bps int64) error {
	if bps < 0 || bps > config.BasisPoints {
		return types.ErrFeeTooHigh
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.perfFeeBps = bps
	return nil
}

// Accrue advances the accumulator. Called from the node's background loop
// so long idle stretches stay fair for stakers joining between operations.
func (e *Engine) Accrue() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.accrueLocked()
}

func (e *Engine) Info() types.StakingInfo {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.accrueLocked()
	return types.StakingInfo{
		TotalStaked:        e.totalStaked,
		RewardRatePerDay:   e.rewardRate,
		PerformanceFeeBps:  e.perfFeeBps,
		RewardPerTokenAcc:  e.rewardPerToken.String(),
		LastAccrualUnixSec: e.lastAccrual.Unix(),
	}
}

func (e *Engine) PositionOf(addr string) (types.Position, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.accrueLocked()

	pos, ok := e.positions[addr]
	if !ok {
		return types.Position{}, false
	}
	e.settleLocked(pos)
	return types.Position{
		Address:        addr,
		Staked:         pos.staked,
		StakeStart:     pos.stakeStart,
		Accrued:        pos.accrued,
		RewardPerToken: pos.rewardPerToken.Bytes(),
	}, true
}

// Snapshot captures the engine state for persistence.
type Snapshot struct {
	Positions      []types.Position `cbor:"1,keyasint"`
	TotalStaked    int64            `cbor:"2,keyasint"`
	RewardPerToken []byte           `cbor:"3,keyasint"`
	LastAccrual    time.Time        `cbor:"4,keyasint"`
	RewardRate     int64            `cbor:"5,keyasint"`
	PerfFeeBps     int64            `cbor:"6,keyasint"`
}

func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := Snapshot{
		TotalStaked:    e.totalStaked,
		RewardPerToken: e.rewardPerToken.Bytes(),
		LastAccrual:    e.lastAccrual,
		RewardRate:     e.rewardRate,
		PerfFeeBps:     e.perfFeeBps,
	}
	for addr, pos := range e.positions {
		snap.Positions = append(snap.Positions, types.Position{
			Address:        addr,
			Staked:         pos.staked,
			StakeStart:     pos.stakeStart,
			Accrued:        pos.accrued,
			RewardPerToken: pos.rewardPerToken.Bytes(),
		})
	}
	return snap
}

func (e *Engine) Restore(snap Snapshot) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.positions = make(map[string]*position, len(snap.Positions))
	for _, p := range snap.Positions {
		e.positions[p.Address] = &position{
			staked:         p.Staked,
			stakeStart:     p.StakeStart,
			accrued:        p.Accrued,
			rewardPerToken: new(big.Int).SetBytes(p.RewardPerToken),
		}
	}
	e.totalStaked = snap.TotalStaked
	e.rewardPerToken = new(big.Int).SetBytes(snap.RewardPerToken)
	e.lastAccrual = snap.LastAccrual
	e.rewardRate = snap.RewardRate
	e.perfFeeBps = snap.PerfFeeBps
}
