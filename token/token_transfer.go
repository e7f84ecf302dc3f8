package token

import (
	"github.com/tesora-labs/tesora/events"
	"github.com/tesora-labs/tesora/types"
)

// Transfer runs one fee-bearing balance transfer. The whole call is guarded
// against reentrancy and fails closed while paused.
func (t *TokenImpl) Transfer(from, to string, amount int64) (types.FeeBreakdown, error) {
	if err := t.enter(); err != nil {
		return types.FeeBreakdown{}, err
	}
	defer t.exit()

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.paused {
		return types.FeeBreakdown{}, types.ErrPaused
	}
	if amount < 0 {
		return types.FeeBreakdown{}, types.ErrZeroAmount
	}

	breakdown, err := t.fees.ApplyTransfer(from, to, amount)
	if err != nil {
		return types.FeeBreakdown{}, err
	}

	t.bus.Publish(events.TransferExecuted, map[string]interface{}{
		"from": from, "to": to, "amount": amount, "net": breakdown.Net,
	})
	return breakdown, nil
}

// Approve lets spender move up to amount on behalf of owner.
func (t *TokenImpl) Approve(owner, spender string, amount int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.paused {
		return types.ErrPaused
	}
	if amount < 0 {
		return types.ErrZeroAmount
	}
	t.ledger.Approve(owner, spender, amount)
	return nil
}

// TransferFrom spends spender's allowance for the gross amount, then runs
// the transfer through the fee engine like any other.
func (t *TokenImpl) TransferFrom(spender, from, to string, amount int64) (types.FeeBreakdown, error) {
	if err := t.enter(); err != nil {
		return types.FeeBreakdown{}, err
	}
	defer t.exit()

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.paused {
		return types.FeeBreakdown{}, types.ErrPaused
	}
	if amount < 0 {
		return types.FeeBreakdown{}, types.ErrZeroAmount
	}

	if err := t.ledger.SpendAllowance(from, spender, amount); err != nil {
		return types.FeeBreakdown{}, err
	}
	breakdown, err := t.fees.ApplyTransfer(from, to, amount)
	if err != nil {
		// hand the allowance back; the transfer did not happen
		t.ledger.Approve(from, spender, t.ledger.Allowance(from, spender)+amount)
		return types.FeeBreakdown{}, err
	}

	t.bus.Publish(events.TransferExecuted, map[string]interface{}{
		"from": from, "to": to, "amount": amount, "net": breakdown.Net, "spender": spender,
	})
	return breakdown, nil
}
