package validators

import (
	"sync"

	"github.com/tesora-labs/tesora/types"
)

// Registry owns the validator set. The ordered slice keeps the
// deterministic sweep order; the index map gives O(1) membership and
// removal. Invariant: len(ordered) >= required after every mutation.
type Registry struct {
	mu        sync.RWMutex
	ordered   []string
	index     map[string]int
	missed    map[string]int
	required  int
	maxMissed int
}

func NewRegistry(initial []string, required, maxMissed int) (*Registry, error) {
	if required <= 0 || required > len(initial) {
		return nil, types.ErrInvalidThreshold
	}

	r := &Registry{
		index:     make(map[string]int),
		missed:    make(map[string]int),
		required:  required,
		maxMissed: maxMissed,
	}
	for _, addr := range initial {
		if addr == "" {
			return nil, types.ErrZeroAddress
		}
		if _, dup := r.index[addr]; dup {
			return nil, types.ErrDuplicateValidator
		}
		r.index[addr] = len(r.ordered)
		r.ordered = append(r.ordered, addr)
	}
	return r, nil
}

func (r *Registry) IsValidator(addr string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.index[addr]
	return ok
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.ordered)
}

func (r *Registry) Required() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.required
}

func (r *Registry) MaxMissed() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.maxMissed
}

// Validators returns the set in insertion order.
func (r *Registry) Validators() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.ordered))
	copy(out, r.ordered)
	return out
}

func (r *Registry) Missed(addr string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.missed[addr]
}

func (r *Registry) Add(addr string) error {
	if addr == "" {
		return types.ErrZeroAddress
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.index[addr]; dup {
		return types.ErrDuplicateValidator
	}
	r.index[addr] = len(r.ordered)
	r.ordered = append(r.ordered, addr)
	return nil
}

// Remove drops addr from the set. Removal that would leave fewer validators
// than the confirmation threshold is rejected; when count == required no
// validator is removable at all.
func (r *Registry) Remove(addr string) error {
	if addr == "" {
		return types.ErrZeroAddress
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.removeLocked(addr)
}

// Slash removes addr as a penalty. It differs from Remove only in its
// precondition: the target must have missed at least maxMissed
// confirmations.
func (r *Registry) Slash(addr string) error {
	if addr == "" {
		return types.ErrZeroAddress
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.index[addr]; !ok {
		return types.ErrUnknownValidator
	}
	if r.missed[addr] < r.maxMissed {
		return types.ErrNotSlashable
	}
	return r.removeLocked(addr)
}

func (r *Registry) removeLocked(addr string) error {
	pos, ok := r.index[addr]
	if !ok {
		return types.ErrUnknownValidator
	}
	if len(r.ordered)-1 < r.required {
		return types.ErrBelowMinimum
	}

	r.ordered = append(r.ordered[:pos], r.ordered[pos+1:]...)
	for i := pos; i < len(r.ordered); i++ {
		r.index[r.ordered[i]] = i
	}
	delete(r.index, addr)
	delete(r.missed, addr)
	return nil
}

// RecordMissed increments the missed counter of every listed validator.
// The caller (the orchestrator) supplies the validators that failed to
// confirm a specific action.
func (r *Registry) RecordMissed(addrs []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, addr := range addrs {
		if _, ok := r.index[addr]; ok {
			r.missed[addr]++
		}
	}
}

// SetRequired updates the confirmation threshold. Rejects zero and any
// value above the current validator count.
func (r *Registry) SetRequired(n int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n <= 0 || n > len(r.ordered) {
		return types.ErrInvalidThreshold
	}
	r.required = n
	return nil
}

// Info returns the externally visible registry state.
func (r *Registry) Info() types.ValidatorSetInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	info := types.ValidatorSetInfo{
		RequiredConfirmations: r.required,
		MaxMissed:             r.maxMissed,
	}
	for _, addr := range r.ordered {
		info.Validators = append(info.Validators, types.ValidatorInfo{
			Address: addr,
			Missed:  r.missed[addr],
		})
	}
	return info
}

// Snapshot captures the registry for persistence.
type Snapshot struct {
	Ordered   []string       `cbor:"1,keyasint"`
	Missed    map[string]int `cbor:"2,keyasint"`
	Required  int            `cbor:"3,keyasint"`
	MaxMissed int            `cbor:"4,keyasint"`
}

func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snap := Snapshot{
		Ordered:   make([]string, len(r.ordered)),
		Missed:    make(map[string]int, len(r.missed)),
		Required:  r.required,
		MaxMissed: r.maxMissed,
	}
	copy(snap.Ordered, r.ordered)
	for addr, n := range r.missed {
		snap.Missed[addr] = n
	}
	return snap
}

func (r *Registry) Restore(snap Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.ordered = make([]string, len(snap.Ordered))
	copy(r.ordered, snap.Ordered)
	r.index = make(map[string]int, len(snap.Ordered))
	for i, addr := range r.ordered {
		r.index[addr] = i
	}
	r.missed = make(map[string]int, len(snap.Missed))
	for addr, n := range snap.Missed {
		r.missed[addr] = n
	}
	r.required = snap.Required
	r.maxMissed = snap.MaxMissed
}
