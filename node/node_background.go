package node

import (
	"fmt"
	"time"

	"github.com/tesora-labs/tesora/utils"
)

// startBackgroundTasks launches the reward accrual ticker and the
// persistence loop.
func (n *Node) startBackgroundTasks() {
	n.bus.SubscribeAll(n.persistCh)

	n.wg.Add(2)
	go n.accrualLoop()
	go n.persistLoop()
}

// accrualLoop folds pending staking rewards into the accumulator on a
// timer, so pending-reward queries stay fresh through quiet periods.
func (n *Node) accrualLoop() {
	defer n.wg.Done()

	ticker := time.NewTicker(accrualInterval)
	defer ticker.Stop()

	for {
		select {
		case <-n.done:
			return
		case <-ticker.C:
			n.token.Staking().Accrue()
		}
	}
}

// persistLoop appends each event to the durable log and debounces full
// state snapshots behind bursts of activity.
func (n *Node) persistLoop() {
	defer n.wg.Done()
	defer n.bus.UnsubscribeAll(n.persistCh)

	var timer *time.Timer
	var flush <-chan time.Time

	for {
		select {
		case <-n.done:
			if timer != nil {
				timer.Stop()
			}
			return
		case ev := <-n.persistCh:
			if err := n.store.AppendEvent(ev); err != nil {
				utils.LogError("persist", fmt.Errorf("append event %s: %v", ev.ID, err))
			}
			if timer == nil {
				timer = time.NewTimer(persistDebounce)
				flush = timer.C
			}
		case <-flush:
			timer = nil
			flush = nil
			if err := n.store.SaveAll(n.token); err != nil {
				utils.LogError("persist", err)
			}
		}
	}
}

// drainEvents is a test hook: it blocks until the pending event queue is
// empty or the timeout passes.
func (n *Node) drainEvents(timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if len(n.persistCh) == 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
}
