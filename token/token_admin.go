package token

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/tesora-labs/tesora/events"
	"github.com/tesora-labs/tesora/types"
)

// Parameter payloads for privileged actions. They travel cbor-encoded
// inside the action record so that late confirmers apply exactly what was
// proposed.
type ExemptParams struct {
	Address string `cbor:"1,keyasint"`
	Exempt  bool   `cbor:"2,keyasint"`
}

type ValidatorParams struct {
	Address string `cbor:"1,keyasint"`
}

type ThresholdParams struct {
	Count int `cbor:"1,keyasint"`
}

type RateParams struct {
	Rate int64 `cbor:"1,keyasint"`
}

type BuybackParams struct {
	Amount int64 `cbor:"1,keyasint"`
}

type UpgradeParams struct {
	LogicRef string `cbor:"1,keyasint"`
}

// timelocked reports whether kind sits behind the execution delay. The
// list is closed: pause and upgrade, nothing else.
func timelocked(kind types.ActionKind) bool {
	return kind == types.ActionPause || kind == types.ActionUpgrade
}

func validateParams(kind types.ActionKind, params interface{}) error {
	switch kind {
	case types.ActionSetFeeRates:
		if _, ok := params.(types.FeeRates); !ok {
			return fmt.Errorf("action %s expects FeeRates params", kind)
		}
	case types.ActionSetFeeExempt:
		if _, ok := params.(ExemptParams); !ok {
			return fmt.Errorf("action %s expects ExemptParams", kind)
		}
	case types.ActionAddValidator, types.ActionRemoveValidator, types.ActionSlashValidator:
		p, ok := params.(ValidatorParams)
		if !ok {
			return fmt.Errorf("action %s expects ValidatorParams", kind)
		}
		if p.Address == "" {
			return types.ErrZeroAddress
		}
	case types.ActionSetRequiredConfirm:
		if _, ok := params.(ThresholdParams); !ok {
			return fmt.Errorf("action %s expects ThresholdParams", kind)
		}
	case types.ActionSetRewardRate, types.ActionSetPerformanceFee:
		if _, ok := params.(RateParams); !ok {
			return fmt.Errorf("action %s expects RateParams", kind)
		}
	case types.ActionBuybackBurn:
		p, ok := params.(BuybackParams)
		if !ok {
			return fmt.Errorf("action %s expects BuybackParams", kind)
		}
		if p.Amount <= 0 {
			return types.ErrZeroAmount
		}
	case types.ActionUpgrade:
		p, ok := params.(UpgradeParams)
		if !ok {
			return fmt.Errorf("action %s expects UpgradeParams", kind)
		}
		if p.LogicRef == "" {
			return fmt.Errorf("upgrade needs a logic reference")
		}
	case types.ActionPause, types.ActionUnpause:
		if params != nil {
			return fmt.Errorf("action %s takes no params", kind)
		}
	default:
		return fmt.Errorf("unknown action kind %s", kind)
	}
	return nil
}

// Propose allocates the action id for a privileged mutation, counting the
// proposer's own confirmation. With a threshold of one and no timelock the
// mutation applies immediately; otherwise the record waits for the other
// validators, and the id must be shared with them.
func (t *TokenImpl) Propose(caller string, kind types.ActionKind, params interface{}) (string, types.ActionStatus, error) {
	if !t.registry.IsValidator(caller) {
		return "", "", types.ErrNotValidator
	}
	if err := validateParams(kind, params); err != nil {
		return "", "", err
	}

	rec, err := t.gate.Propose(kind, params, caller)
	if err != nil {
		return "", "", fmt.Errorf("failed to propose action: %v", err)
	}
	t.bus.Publish(events.ActionProposed, map[string]interface{}{
		"id": rec.ID, "kind": string(kind), "proposer": caller,
	})

	if timelocked(kind) {
		// arm the delay at first sighting; consensus keeps accumulating
		// while it runs
		t.timelock.EnsureElapsed(rec.ID, t.timelockDelay)
		if rec.Confirmed {
			return rec.ID, types.StatusConfirmed, nil
		}
		return rec.ID, types.StatusPending, nil
	}

	if rec.Confirmed {
		if err := t.applyAction(rec.ID); err != nil {
			return rec.ID, types.StatusConfirmed, err
		}
		return rec.ID, types.StatusApplied, nil
	}
	return rec.ID, types.StatusPending, nil
}

// Confirm records caller's confirmation for a previously proposed action
// and applies the mutation the moment the threshold is crossed — except for
// timelocked actions, which additionally need Execute once the delay has
// run out.
func (t *TokenImpl) Confirm(caller, id string) (types.ActionStatus, error) {
	if !t.registry.IsValidator(caller) {
		return "", types.ErrNotValidator
	}

	rec, err := t.gate.Confirm(id, caller)
	if err != nil {
		return "", err
	}
	t.bus.Publish(events.ActionConfirmed, map[string]interface{}{
		"id": id, "validator": caller, "confirmations": len(rec.Confirmations),
	})

	if rec.Applied {
		return types.StatusApplied, nil
	}
	if !rec.Confirmed {
		return types.StatusPending, nil
	}
	if timelocked(rec.Kind) {
		// not an error on the confirm path; the action simply waits out
		// its delay until someone calls Execute
		if ready, _, _ := t.timelock.EnsureElapsed(id, t.timelockDelay); !ready {
			return types.StatusConfirmed, nil
		}
	}

	if err := t.applyAction(id); err != nil {
		return types.StatusConfirmed, err
	}
	return types.StatusApplied, nil
}

// Execute retries a fully confirmed action, typically a timelocked one
// whose delay has elapsed. Executing before the delay fails with
// ErrTimelockNotElapsed; executing below threshold is a successful no-op
// reporting StatusPending.
func (t *TokenImpl) Execute(caller, id string) (types.ActionStatus, error) {
	if !t.registry.IsValidator(caller) {
		return "", types.ErrNotValidator
	}

	rec, err := t.gate.Get(id)
	if err != nil {
		return "", err
	}
	if rec.Applied {
		return types.StatusApplied, nil
	}

	if timelocked(rec.Kind) {
		ready, _, lockErr := t.timelock.EnsureElapsed(id, t.timelockDelay)
		if !ready {
			if lockErr != nil {
				return types.StatusConfirmed, lockErr
			}
			return types.StatusConfirmed, types.ErrTimelockNotElapsed
		}
	}
	if !rec.Confirmed {
		return types.StatusPending, nil
	}

	if err := t.applyAction(id); err != nil {
		return types.StatusConfirmed, err
	}
	return types.StatusApplied, nil
}

// ActionStatus reports where an action currently stands.
func (t *TokenImpl) ActionStatus(id string) (types.ActionStatus, int, error) {
	rec, err := t.gate.Get(id)
	if err != nil {
		return "", 0, err
	}
	switch {
	case rec.Applied:
		return types.StatusApplied, len(rec.Confirmations), nil
	case rec.Confirmed:
		return types.StatusConfirmed, len(rec.Confirmations), nil
	default:
		return types.StatusPending, len(rec.Confirmations), nil
	}
}

// applyAction decodes the recorded parameters and performs the mutation.
// The non-reentrant guard covers the whole apply so a recipient hook
// cannot sneak an admin mutation into the middle of a transfer.
func (t *TokenImpl) applyAction(id string) error {
	if err := t.enter(); err != nil {
		return err
	}
	defer t.exit()

	rec, err := t.gate.Get(id)
	if err != nil {
		return err
	}
	if rec.Applied {
		return nil
	}

	if err := t.dispatch(rec.Kind, rec.Params); err != nil {
		return err
	}

	t.gate.MarkApplied(id)
	t.timelock.Forget(id)
	t.bus.Publish(events.ActionApplied, map[string]interface{}{
		"id": id, "kind": string(rec.Kind),
	})
	return nil
}

func (t *TokenImpl) dispatch(kind types.ActionKind, raw []byte) error {
	switch kind {
	case types.ActionSetFeeRates:
		var p types.FeeRates
		if err := cbor.Unmarshal(raw, &p); err != nil {
			return err
		}
		return t.fees.SetRates(p)

	case types.ActionSetFeeExempt:
		var p ExemptParams
		if err := cbor.Unmarshal(raw, &p); err != nil {
			return err
		}
		t.fees.SetExempt(p.Address, p.Exempt)
		return nil

	case types.ActionAddValidator:
		var p ValidatorParams
		if err := cbor.Unmarshal(raw, &p); err != nil {
			return err
		}
		if err := t.registry.Add(p.Address); err != nil {
			return err
		}
		t.bus.Publish(events.ValidatorAdded, map[string]interface{}{"address": p.Address})
		return nil

	case types.ActionRemoveValidator:
		var p ValidatorParams
		if err := cbor.Unmarshal(raw, &p); err != nil {
			return err
		}
		if err := t.registry.Remove(p.Address); err != nil {
			return err
		}
		t.bus.Publish(events.ValidatorRemoved, map[string]interface{}{"address": p.Address})
		return nil

	case types.ActionSlashValidator:
		var p ValidatorParams
		if err := cbor.Unmarshal(raw, &p); err != nil {
			return err
		}
		if err := t.registry.Slash(p.Address); err != nil {
			return err
		}
		t.bus.Publish(events.ValidatorSlashed, map[string]interface{}{"address": p.Address})
		return nil

	case types.ActionSetRequiredConfirm:
		var p ThresholdParams
		if err := cbor.Unmarshal(raw, &p); err != nil {
			return err
		}
		return t.registry.SetRequired(p.Count)

	case types.ActionSetRewardRate:
		var p RateParams
		if err := cbor.Unmarshal(raw, &p); err != nil {
			return err
		}
		return t.staking.SetRewardRate(p.Rate)

	case types.ActionSetPerformanceFee:
		var p RateParams
		if err := cbor.Unmarshal(raw, &p); err != nil {
			return err
		}
		return t.staking.SetPerformanceFee(p.Rate)

	case types.ActionPause:
		t.mu.Lock()
		defer t.mu.Unlock()
		if t.paused {
			return types.ErrPaused
		}
		t.paused = true
		t.bus.Publish(events.Paused, nil)
		return nil

	case types.ActionUnpause:
		t.mu.Lock()
		defer t.mu.Unlock()
		if !t.paused {
			return types.ErrNotPaused
		}
		t.paused = false
		t.bus.Publish(events.Unpaused, nil)
		return nil

	case types.ActionBuybackBurn:
		var p BuybackParams
		if err := cbor.Unmarshal(raw, &p); err != nil {
			return err
		}
		t.mu.Lock()
		defer t.mu.Unlock()
		if t.paused {
			return types.ErrPaused
		}
		if err := t.ledger.Burn(t.treasury, p.Amount); err != nil {
			return err
		}
		t.bus.Publish(events.BuybackExecuted, map[string]interface{}{"amount": p.Amount})
		return nil

	case types.ActionUpgrade:
		var p UpgradeParams
		if err := cbor.Unmarshal(raw, &p); err != nil {
			return err
		}
		t.mu.Lock()
		defer t.mu.Unlock()
		t.upgradeRef = p.LogicRef
		t.bus.Publish(events.UpgradeAuthorized, map[string]interface{}{"logicRef": p.LogicRef})
		return nil
	}

	return fmt.Errorf("unknown action kind %s", kind)
}

// RecordMissed increments the missed-confirmation counter of every
// validator that has not confirmed the given action. Owner-only by design:
// the sweep is an operational liveness chore, and routing it through the
// consensus gate it polices would deadlock exactly when validators are
// unresponsive.
func (t *TokenImpl) RecordMissed(caller, id string) (int, error) {
	if caller != t.owner {
		return 0, types.ErrNotOwner
	}

	missing, err := t.gate.Unconfirmed(id, t.registry.Validators())
	if err != nil {
		return 0, err
	}
	t.registry.RecordMissed(missing)
	return len(missing), nil
}
