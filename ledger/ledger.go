package ledger

import (
	"encoding/binary"
	"sort"
	"sync"

	"github.com/tesora-labs/tesora/crypto/hash"
	"github.com/tesora-labs/tesora/types"
)

// Ledger is the base balance and supply bookkeeping. All mutation crosses
// the owning mutex; the invariant sum(balances) == totalSupply holds after
// every exported call.
type Ledger struct {
	mu          sync.RWMutex
	balances    map[string]int64
	allowances  map[string]map[string]int64
	totalSupply int64
	hooks       map[string]types.TransferHook
}

func NewLedger() *Ledger {
	return &Ledger{
		balances:   make(map[string]int64),
		allowances: make(map[string]map[string]int64),
		hooks:      make(map[string]types.TransferHook),
	}
}

func (l *Ledger) BalanceOf(addr string) int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balances[addr]
}

func (l *Ledger) TotalSupply() int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.totalSupply
}

// Move transfers amount between two accounts. The receive hook, if any, runs
// after both balances are written.
func (l *Ledger) Move(from, to string, amount int64) error {
	if amount < 0 {
		return types.ErrZeroAmount
	}

	l.mu.Lock()
	if l.balances[from] < amount {
		l.mu.Unlock()
		return types.ErrInsufficientFunds
	}
	l.balances[from] -= amount
	l.balances[to] += amount
	if l.balances[from] == 0 {
		delete(l.balances, from)
	}
	hook := l.hooks[to]
	l.mu.Unlock()

	if hook != nil {
		hook(from, amount)
	}
	return nil
}

// Mint creates new supply in favour of to.
func (l *Ledger) Mint(to string, amount int64) error {
	if amount < 0 {
		return types.ErrZeroAmount
	}

	l.mu.Lock()
	l.balances[to] += amount
	l.totalSupply += amount
	hook := l.hooks[to]
	l.mu.Unlock()

	if hook != nil {
		hook("", amount)
	}
	return nil
}

// Burn removes amount from circulation.
func (l *Ledger) Burn(from string, amount int64) error {
	if amount < 0 {
		return types.ErrZeroAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.balances[from] < amount {
		return types.ErrInsufficientFunds
	}
	l.balances[from] -= amount
	l.totalSupply -= amount
	if l.balances[from] == 0 {
		delete(l.balances, from)
	}
	return nil
}

func (l *Ledger) Approve(owner, spender string, amount int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.allowances[owner] == nil {
		l.allowances[owner] = make(map[string]int64)
	}
	l.allowances[owner][spender] = amount
}

func (l *Ledger) Allowance(owner, spender string) int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.allowances[owner][spender]
}

// SpendAllowance reduces spender's allowance from owner. The actual balance
// move is the caller's responsibility.
func (l *Ledger) SpendAllowance(owner, spender string, amount int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.allowances[owner][spender] < amount {
		return types.ErrInsufficientAllowance
	}
	l.allowances[owner][spender] -= amount
	return nil
}

// Balances returns a copy of the balance map.
func (l *Ledger) Balances() map[string]int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[string]int64, len(l.balances))
	for addr, bal := range l.balances {
		out[addr] = bal
	}
	return out
}

// SetTransferHook registers a callback run whenever addr receives funds.
func (l *Ledger) SetTransferHook(addr string, hook types.TransferHook) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hooks[addr] = hook
}

// IntegrityRoot folds all balances, in address order, into a single
// Blake2b-256 digest. Two ledgers with identical state produce identical
// roots, which backs the boot-time integrity check.
func (l *Ledger) IntegrityRoot() hash.Hash {
	l.mu.RLock()
	defer l.mu.RUnlock()

	addrs := make([]string, 0, len(l.balances))
	for addr := range l.balances {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)

	var buf []byte
	for _, addr := range addrs {
		buf = append(buf, addr...)
		var amt [8]byte
		binary.BigEndian.PutUint64(amt[:], uint64(l.balances[addr]))
		buf = append(buf, amt[:]...)
	}
	var supply [8]byte
	binary.BigEndian.PutUint64(supply[:], uint64(l.totalSupply))
	buf = append(buf, supply[:]...)

	return hash.NewHash(buf)
}

// CheckIntegrity verifies that the balance sum matches the recorded total
// supply.
func (l *Ledger) CheckIntegrity() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var sum int64
	for _, bal := range l.balances {
		sum += bal
	}
	return sum == l.totalSupply
}

// Snapshot captures the ledger for persistence.
type Snapshot struct {
	Balances    map[string]int64            `cbor:"1,keyasint"`
	Allowances  map[string]map[string]int64 `cbor:"2,keyasint"`
	TotalSupply int64                       `cbor:"3,keyasint"`
}

func (l *Ledger) Snapshot() Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()

	snap := Snapshot{
		Balances:    make(map[string]int64, len(l.balances)),
		Allowances:  make(map[string]map[string]int64, len(l.allowances)),
		TotalSupply: l.totalSupply,
	}
	for addr, bal := range l.balances {
		snap.Balances[addr] = bal
	}
	for owner, spenders := range l.allowances {
		cp := make(map[string]int64, len(spenders))
		for spender, amt := range spenders {
			cp[spender] = amt
		}
		snap.Allowances[owner] = cp
	}
	return snap
}

func (l *Ledger) Restore(snap Snapshot) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.balances = make(map[string]int64, len(snap.Balances))
	for addr, bal := range snap.Balances {
		l.balances[addr] = bal
	}
	l.allowances = make(map[string]map[string]int64, len(snap.Allowances))
	for owner, spenders := range snap.Allowances {
		cp := make(map[string]int64, len(spenders))
		for spender, amt := range spenders {
			cp[spender] = amt
		}
		l.allowances[owner] = cp
	}
	l.totalSupply = snap.TotalSupply
}
