package store

import (
	"fmt"
	"log"

	"github.com/fxamacker/cbor/v2"

	"github.com/tesora-labs/tesora/consensus/validators"
	"github.com/tesora-labs/tesora/events"
	"github.com/tesora-labs/tesora/fees"
	"github.com/tesora-labs/tesora/ledger"
	"github.com/tesora-labs/tesora/staking"
	"github.com/tesora-labs/tesora/token"
	"github.com/tesora-labs/tesora/types"
)

// TokenStore persists the token state slices to Badger, one cbor blob per
// slice. Loads return ok=false when the slice has never been written, which
// is how a fresh data directory is told apart from a restart.
type TokenStore struct {
	db *Database
}

func NewTokenStore(db *Database) *TokenStore {
	return &TokenStore{db: db}
}

func (s *TokenStore) save(key string, v interface{}) error {
	data, err := cbor.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %v", key, err)
	}
	return s.db.Set([]byte(key), data)
}

func (s *TokenStore) load(key string, v interface{}) (bool, error) {
	data, err := s.db.Get([]byte(key))
	if NotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := cbor.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("failed to decode %s: %v", key, err)
	}
	return true, nil
}

func (s *TokenStore) SaveLedger(snap ledger.Snapshot) error {
	return s.save(ledgerKey, snap)
}

func (s *TokenStore) LoadLedger() (ledger.Snapshot, bool, error) {
	var snap ledger.Snapshot
	ok, err := s.load(ledgerKey, &snap)
	return snap, ok, err
}

func (s *TokenStore) SaveFees(snap fees.Snapshot) error {
	return s.save(feesKey, snap)
}

func (s *TokenStore) LoadFees() (fees.Snapshot, bool, error) {
	var snap fees.Snapshot
	ok, err := s.load(feesKey, &snap)
	return snap, ok, err
}

func (s *TokenStore) SaveStaking(snap staking.Snapshot) error {
	return s.save(stakingKey, snap)
}

func (s *TokenStore) LoadStaking() (staking.Snapshot, bool, error) {
	var snap staking.Snapshot
	ok, err := s.load(stakingKey, &snap)
	return snap, ok, err
}

func (s *TokenStore) SaveVesting(schedules []types.Schedule) error {
	return s.save(vestingKey, schedules)
}

func (s *TokenStore) LoadVesting() ([]types.Schedule, bool, error) {
	var schedules []types.Schedule
	ok, err := s.load(vestingKey, &schedules)
	return schedules, ok, err
}

func (s *TokenStore) SaveValidators(snap validators.Snapshot) error {
	return s.save(validatorsKey, snap)
}

func (s *TokenStore) LoadValidators() (validators.Snapshot, bool, error) {
	var snap validators.Snapshot
	ok, err := s.load(validatorsKey, &snap)
	return snap, ok, err
}

func (s *TokenStore) SaveActions(records []*types.ActionRecord) error {
	return s.save(actionsKey, records)
}

func (s *TokenStore) LoadActions() ([]*types.ActionRecord, bool, error) {
	var records []*types.ActionRecord
	ok, err := s.load(actionsKey, &records)
	return records, ok, err
}

func (s *TokenStore) SaveTokenState(state token.State) error {
	return s.save(tokenKey, state)
}

func (s *TokenStore) LoadTokenState() (token.State, bool, error) {
	var state token.State
	ok, err := s.load(tokenKey, &state)
	return state, ok, err
}

// SaveAll writes every state slice in one pass. Called from the node's
// persistence loop after each mutating event.
func (s *TokenStore) SaveAll(t *token.TokenImpl) error {
	l, ok := t.Ledger().(*ledger.Ledger)
	if !ok {
		return fmt.Errorf("ledger does not support snapshots")
	}
	if err := s.SaveLedger(l.Snapshot()); err != nil {
		return err
	}
	if err := s.SaveFees(t.Fees().Snapshot()); err != nil {
		return err
	}
	if err := s.SaveStaking(t.Staking().Snapshot()); err != nil {
		return err
	}
	if err := s.SaveVesting(t.Vesting().Snapshot()); err != nil {
		return err
	}
	if err := s.SaveValidators(t.Validators().Snapshot()); err != nil {
		return err
	}
	if err := s.SaveActions(t.Gate().Records()); err != nil {
		return err
	}
	return s.SaveTokenState(t.State())
}

// RestoreAll loads every saved slice back into the token. A slice that was
// never written is left at its genesis value. Returns whether any slice was
// found at all.
func (s *TokenStore) RestoreAll(t *token.TokenImpl) (bool, error) {
	found := false

	if snap, ok, err := s.LoadLedger(); err != nil {
		return found, err
	} else if ok {
		l, isMem := t.Ledger().(*ledger.Ledger)
		if !isMem {
			return found, fmt.Errorf("ledger does not support snapshots")
		}
		l.Restore(snap)
		found = true
	}
	if snap, ok, err := s.LoadFees(); err != nil {
		return found, err
	} else if ok {
		t.Fees().Restore(snap)
		found = true
	}
	if snap, ok, err := s.LoadStaking(); err != nil {
		return found, err
	} else if ok {
		t.Staking().Restore(snap)
		found = true
	}
	if schedules, ok, err := s.LoadVesting(); err != nil {
		return found, err
	} else if ok {
		t.Vesting().Restore(schedules)
		found = true
	}
	if snap, ok, err := s.LoadValidators(); err != nil {
		return found, err
	} else if ok {
		t.Validators().Restore(snap)
		found = true
	}
	if records, ok, err := s.LoadActions(); err != nil {
		return found, err
	} else if ok {
		t.Gate().Restore(records)
		found = true
	}
	if state, ok, err := s.LoadTokenState(); err != nil {
		return found, err
	} else if ok {
		t.RestoreState(state)
		found = true
	}
	return found, nil
}

// AppendEvent writes an event to the durable log, keyed by its id.
func (s *TokenStore) AppendEvent(ev events.Event) error {
	record := struct {
		ID        string      `cbor:"1,keyasint"`
		Type      string      `cbor:"2,keyasint"`
		Timestamp int64       `cbor:"3,keyasint"`
		Data      interface{} `cbor:"4,keyasint"`
	}{
		ID:        ev.ID,
		Type:      string(ev.Type),
		Timestamp: ev.Timestamp.UnixNano(),
		Data:      ev.Data,
	}
	data, err := cbor.Marshal(record)
	if err != nil {
		// event payloads are ad-hoc maps; an unencodable one should not
		// take the persistence loop down
		log.Printf("Failed to encode event %s: %v", ev.ID, err)
		return nil
	}
	return s.db.Set([]byte(EventPrefix+ev.ID), data)
}
