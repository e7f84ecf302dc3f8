package timelock

import (
	"sync"
	"time"

	"github.com/tesora-labs/tesora/types"
)

// Timelock enforces a mandatory delay between the first sighting of an
// action and its execution. It is independent of the consensus gate and is
// checked first: confirmations may keep accumulating while the delay runs.
type Timelock struct {
	mu       sync.Mutex
	expiries map[string]time.Time
	now      func() time.Time
}

func NewTimelock() *Timelock {
	return &Timelock{
		expiries: make(map[string]time.Time),
		now:      time.Now,
	}
}

// SetClock overrides the time source. Tests only.
func (t *Timelock) SetClock(now func() time.Time) {
	t.now = now
}

// EnsureElapsed starts the clock on the first call for id and reports
// whether the delay has run out. The first call always returns ready=false
// with the recorded expiry; the expiry is immutable once set.
func (t *Timelock) EnsureElapsed(id string, delay time.Duration) (ready bool, expiry time.Time, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	expiry, ok := t.expiries[id]
	if !ok {
		expiry = t.now().Add(delay)
		t.expiries[id] = expiry
		return false, expiry, nil
	}
	if t.now().Before(expiry) {
		return false, expiry, types.ErrTimelockNotElapsed
	}
	return true, expiry, nil
}

// Expiry returns the recorded expiry for id, if any.
func (t *Timelock) Expiry(id string) (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	expiry, ok := t.expiries[id]
	return expiry, ok
}

// Forget drops the record for an executed or expired action.
func (t *Timelock) Forget(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.expiries, id)
}
