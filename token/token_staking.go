package token

import "github.com/tesora-labs/tesora/types"

// Stake locks amount of the caller's balance into the staking pool.
func (t *TokenImpl) Stake(addr string, amount int64) error {
	if err := t.enter(); err != nil {
		return err
	}
	defer t.exit()

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.paused {
		return types.ErrPaused
	}
	return t.staking.Stake(addr, amount)
}

// Withdraw returns amount of the caller's staked balance.
func (t *TokenImpl) Withdraw(addr string, amount int64) error {
	if err := t.enter(); err != nil {
		return err
	}
	defer t.exit()

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.paused {
		return types.ErrPaused
	}
	return t.staking.Withdraw(addr, amount)
}

// ClaimRewards pays out the caller's accrued staking rewards.
func (t *TokenImpl) ClaimRewards(addr string) (int64, error) {
	if err := t.enter(); err != nil {
		return 0, err
	}
	defer t.exit()

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.paused {
		return 0, types.ErrPaused
	}
	return t.staking.ClaimRewards(addr)
}
