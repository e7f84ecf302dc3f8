package gate

import (
	"encoding/binary"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/tesora-labs/tesora/crypto/hash"
	"github.com/tesora-labs/tesora/types"
)

// Gate tracks per-action confirmations from the validator set and decides
// when a privileged action may proceed. Action ids are allocated once at
// proposal time and shared with the other validators out of band; confirmers
// reference the id instead of re-deriving it from guessed parameters.
type Gate struct {
	mu       sync.RWMutex
	actions  map[string]*types.ActionRecord
	required func() int
	ttl      time.Duration
	now      func() time.Time
}

// NewGate creates a gate. required is read on every confirmation so that
// threshold changes apply to in-flight actions as well.
func NewGate(required func() int, ttl time.Duration) *Gate {
	return &Gate{
		actions:  make(map[string]*types.ActionRecord),
		required: required,
		ttl:      ttl,
		now:      time.Now,
	}
}

// SetClock overrides the gate's time source. Tests only.
func (g *Gate) SetClock(now func() time.Time) {
	g.now = now
}

// Propose allocates the authoritative action id for {kind, params}, records
// the proposer's confirmation and returns the new record. Params must be
// cbor-serializable.
func (g *Gate) Propose(kind types.ActionKind, params interface{}, proposer string) (*types.ActionRecord, error) {
	encoded, err := cbor.Marshal(params)
	if err != nil {
		return nil, err
	}

	now := g.now()
	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(now.UnixNano()))
	id := hash.NewHashParts([]byte(kind), encoded, ts[:]).String()

	record := &types.ActionRecord{
		ID:            id,
		Kind:          kind,
		Params:        encoded,
		ProposedAt:    now,
		ExpiresAt:     now.Add(g.ttl),
		Confirmations: map[string]struct{}{proposer: {}},
	}
	if len(record.Confirmations) >= g.required() {
		record.Confirmed = true
	}

	g.mu.Lock()
	g.actions[id] = record
	g.mu.Unlock()

	return record, nil
}

// Confirm records one validator's confirmation. Confirming an action that
// already reached its threshold is a no-op success; double-confirming by the
// same validator is ErrAlreadyConfirmed.
func (g *Gate) Confirm(id, caller string) (*types.ActionRecord, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	record, ok := g.actions[id]
	if !ok {
		return nil, types.ErrUnknownAction
	}
	if g.now().After(record.ExpiresAt) {
		delete(g.actions, id)
		return nil, types.ErrActionExpired
	}
	if record.Confirmed {
		if _, dup := record.Confirmations[caller]; !dup {
			record.Confirmations[caller] = struct{}{}
		}
		return record, nil
	}
	if _, dup := record.Confirmations[caller]; dup {
		return nil, types.ErrAlreadyConfirmed
	}

	record.Confirmations[caller] = struct{}{}
	if len(record.Confirmations) >= g.required() {
		record.Confirmed = true
	}
	return record, nil
}

// IsConfirmed is a pure lookup.
func (g *Gate) IsConfirmed(id string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	record, ok := g.actions[id]
	return ok && record.Confirmed
}

// Get returns the record for id, or ErrUnknownAction / ErrActionExpired.
func (g *Gate) Get(id string) (*types.ActionRecord, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	record, ok := g.actions[id]
	if !ok {
		return nil, types.ErrUnknownAction
	}
	if g.now().After(record.ExpiresAt) {
		delete(g.actions, id)
		return nil, types.ErrActionExpired
	}
	return record, nil
}

// MarkApplied flags a record as executed so it cannot be replayed.
func (g *Gate) MarkApplied(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if record, ok := g.actions[id]; ok {
		record.Applied = true
	}
}

// Unconfirmed returns, in the given order, the validators that have not
// confirmed the action. Used by the missed-confirmation sweep.
func (g *Gate) Unconfirmed(id string, validators []string) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	record, ok := g.actions[id]
	if !ok {
		return nil, types.ErrUnknownAction
	}

	var missing []string
	for _, v := range validators {
		if _, confirmed := record.Confirmations[v]; !confirmed {
			missing = append(missing, v)
		}
	}
	return missing, nil
}

// Records returns a copy of all live action records, purging expired ones.
func (g *Gate) Records() []*types.ActionRecord {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	out := make([]*types.ActionRecord, 0, len(g.actions))
	for id, record := range g.actions {
		if now.After(record.ExpiresAt) {
			delete(g.actions, id)
			continue
		}
		cp := *record
		out = append(out, &cp)
	}
	return out
}

// Restore reloads persisted records, dropping any that have expired.
func (g *Gate) Restore(records []*types.ActionRecord) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	for _, record := range records {
		if now.After(record.ExpiresAt) {
			continue
		}
		g.actions[record.ID] = record
	}
}
