package token

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tesora-labs/tesora/config"
	"github.com/tesora-labs/tesora/consensus/gate"
	"github.com/tesora-labs/tesora/consensus/timelock"
	"github.com/tesora-labs/tesora/consensus/validators"
	"github.com/tesora-labs/tesora/events"
	"github.com/tesora-labs/tesora/fees"
	"github.com/tesora-labs/tesora/staking"
	"github.com/tesora-labs/tesora/types"
	"github.com/tesora-labs/tesora/vesting"
)

// Config carries everything needed to assemble a token instance.
type Config struct {
	Owner       string
	Treasury    string
	TeamWallet  string
	StakingPool string

	Validators            []string
	RequiredConfirmations int
	MaxMissed             int

	FeeRates       types.FeeRates
	RewardRate     int64
	PerformanceBps int64

	TimelockDelay time.Duration
	ActionTTL     time.Duration
}

// TokenImpl is the orchestrator: it composes the ledger, the fee, staking
// and vesting engines, and the consensus/timelock gates, and exposes the
// unified external surface. Each engine owns its own state slice; TokenImpl
// is the only component that crosses slices.
type TokenImpl struct {
	mu      sync.RWMutex
	entered int32 // whole-call non-reentrant guard

	ledger   types.Ledger
	fees     *fees.Engine
	staking  *staking.Engine
	vesting  *vesting.Engine
	registry *validators.Registry
	gate     *gate.Gate
	timelock *timelock.Timelock
	bus      *events.Bus

	owner       string
	treasury    string
	teamWallet  string
	stakingPool string

	timelockDelay time.Duration
	paused        bool
	upgradeRef    string
	initialized   bool
	now           func() time.Time
}

func NewToken(cfg Config, l types.Ledger, bus *events.Bus) (*TokenImpl, error) {
	for _, addr := range []string{cfg.Owner, cfg.Treasury, cfg.TeamWallet, cfg.StakingPool} {
		if addr == "" {
			return nil, types.ErrZeroAddress
		}
	}
	if cfg.TimelockDelay == 0 {
		cfg.TimelockDelay = config.TimelockDelay
	}
	if cfg.ActionTTL == 0 {
		cfg.ActionTTL = config.ActionTTL
	}

	registry, err := validators.NewRegistry(cfg.Validators, cfg.RequiredConfirmations, cfg.MaxMissed)
	if err != nil {
		return nil, fmt.Errorf("failed to build validator registry: %v", err)
	}

	feeEngine, err := fees.NewEngine(l, bus, cfg.TeamWallet, cfg.StakingPool, cfg.FeeRates)
	if err != nil {
		return nil, fmt.Errorf("failed to build fee engine: %v", err)
	}

	t := &TokenImpl{
		ledger:        l,
		fees:          feeEngine,
		staking:       staking.NewEngine(l, bus, cfg.StakingPool, cfg.TeamWallet, cfg.RewardRate, cfg.PerformanceBps),
		vesting:       vesting.NewEngine(l, bus),
		registry:      registry,
		gate:          gate.NewGate(registry.Required, cfg.ActionTTL),
		timelock:      timelock.NewTimelock(),
		bus:           bus,
		owner:         cfg.Owner,
		treasury:      cfg.Treasury,
		teamWallet:    cfg.TeamWallet,
		stakingPool:   cfg.StakingPool,
		timelockDelay: cfg.TimelockDelay,
		now:           time.Now,
	}
	return t, nil
}

// SetClock overrides every time source in the composition. Tests only.
func (t *TokenImpl) SetClock(now func() time.Time) {
	t.now = now
	t.gate.SetClock(now)
	t.timelock.SetClock(now)
	t.staking.SetClock(now)
	t.vesting.SetClock(now)
}

// Initialize mints the genesis supply to the treasury, marks the system
// accounts fee-exempt and records the team vesting grant. It runs exactly
// once: re-entry fails with ErrAlreadyInitialized.
func (t *TokenImpl) Initialize() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.initialized {
		return types.ErrAlreadyInitialized
	}

	if err := t.ledger.Mint(t.treasury, config.InitialTotalSupply); err != nil {
		return fmt.Errorf("failed to mint genesis supply: %v", err)
	}
	for _, addr := range []string{t.treasury, t.teamWallet, t.stakingPool} {
		t.fees.SetExempt(addr, true)
	}
	if err := t.vesting.Grant(t.teamWallet, config.TeamVestingAmount, config.TeamVestingDuration, config.TeamVestingCliff); err != nil {
		return fmt.Errorf("failed to record team vesting grant: %v", err)
	}

	t.initialized = true
	return nil
}

// enter takes the whole-call non-reentrant guard. A nested call from a
// recipient hook fails here before touching any lock.
func (t *TokenImpl) enter() error {
	if !atomic.CompareAndSwapInt32(&t.entered, 0, 1) {
		return types.ErrReentrancyDetected
	}
	return nil
}

func (t *TokenImpl) exit() {
	atomic.StoreInt32(&t.entered, 0)
}

func (t *TokenImpl) Paused() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.paused
}

func (t *TokenImpl) Owner() string {
	return t.owner
}

// UpgradeRef reports the most recently authorized logic reference, empty
// when no upgrade has passed the gates.
func (t *TokenImpl) UpgradeRef() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.upgradeRef
}

// State is the token-level slice of persistent state, everything that
// lives on TokenImpl itself rather than in one of the engines.
type State struct {
	Paused      bool   `cbor:"1,keyasint"`
	UpgradeRef  string `cbor:"2,keyasint"`
	Initialized bool   `cbor:"3,keyasint"`
}

func (t *TokenImpl) State() State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return State{Paused: t.paused, UpgradeRef: t.upgradeRef, Initialized: t.initialized}
}

// RestoreState reinstates a previously saved token-level slice. The engine
// slices are restored separately through their own Restore methods.
func (t *TokenImpl) RestoreState(s State) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.paused = s.Paused
	t.upgradeRef = s.UpgradeRef
	t.initialized = s.Initialized
}

func (t *TokenImpl) Ledger() types.Ledger             { return t.ledger }
func (t *TokenImpl) Fees() *fees.Engine               { return t.fees }
func (t *TokenImpl) Staking() *staking.Engine         { return t.staking }
func (t *TokenImpl) Vesting() *vesting.Engine         { return t.vesting }
func (t *TokenImpl) Validators() *validators.Registry { return t.registry }
func (t *TokenImpl) Gate() *gate.Gate                 { return t.gate }
