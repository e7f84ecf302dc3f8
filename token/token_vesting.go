package token

import "github.com/tesora-labs/tesora/types"

// Release mints whatever has vested for beneficiary since the last release.
// Anyone may call this; the proceeds always land with the beneficiary.
func (t *TokenImpl) Release(beneficiary string) (int64, error) {
	if err := t.enter(); err != nil {
		return 0, err
	}
	defer t.exit()

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.paused {
		return 0, types.ErrPaused
	}
	return t.vesting.Release(beneficiary)
}

// VestedAmount reports what has vested for beneficiary so far.
func (t *TokenImpl) VestedAmount(beneficiary string) int64 {
	return t.vesting.VestedAmount(beneficiary)
}

// VestingSchedule returns beneficiary's schedule, if any.
func (t *TokenImpl) VestingSchedule(beneficiary string) (types.Schedule, bool) {
	return t.vesting.Schedule(beneficiary)
}
