package balance

import (
	"log"
	"math"
	"time"

	"github.com/tesora-labs/tesora/events"
	"github.com/tesora-labs/tesora/store"
	"github.com/tesora-labs/tesora/types"
)

// Notifier pushes a fresh balance to whoever is watching an address,
// typically the websocket feed.
type Notifier interface {
	NotifyBalanceUpdate(address string, balance int64) error
}

// Manager keeps a read cache over ledger balances and drives balance
// notifications off the event bus. Mutating events invalidate the cache
// and queue a push for every address they touched.
type Manager struct {
	ledger   types.Ledger
	cache    *store.BalanceCache
	notifier Notifier
	queue    *updateQueue
	sub      chan events.Event
	bus      *events.Bus
	done     chan struct{}
}

type updateRequest struct {
	Address string
	Retries int
}

type updateQueue struct {
	queue   chan updateRequest
	manager *Manager
}

func NewManager(l types.Ledger, bus *events.Bus, notifier Notifier) (*Manager, error) {
	cache, err := store.NewBalanceCache(10_000, 100_000, 0.01)
	if err != nil {
		return nil, err
	}

	m := &Manager{
		ledger:   l,
		cache:    cache,
		notifier: notifier,
		bus:      bus,
		done:     make(chan struct{}),
	}
	m.queue = &updateQueue{queue: make(chan updateRequest, 1000), manager: m}
	return m, nil
}

// Start subscribes to the bus and runs the notification worker until Stop.
func (m *Manager) Start() {
	m.sub = make(chan events.Event, 100)
	m.bus.SubscribeAll(m.sub)
	go m.watchEvents()
	go m.queue.worker()
}

func (m *Manager) Stop() {
	close(m.done)
	m.bus.UnsubscribeAll(m.sub)
}

// GetBalance serves from cache when it can, falling back to the ledger.
func (m *Manager) GetBalance(address string) int64 {
	if cached, ok := m.cache.Get(address); ok {
		return cached
	}
	balance := m.ledger.BalanceOf(address)
	m.cache.Put(address, balance)
	return balance
}

// watchEvents is the only sender on the update queue; it closes it on the
// way out so the worker drains and exits.
func (m *Manager) watchEvents() {
	defer close(m.queue.queue)
	for {
		select {
		case <-m.done:
			return
		case ev, ok := <-m.sub:
			if !ok {
				return
			}
			for _, addr := range touchedAddresses(ev) {
				m.cache.Invalidate(addr)
				select {
				case m.queue.queue <- updateRequest{Address: addr, Retries: 3}:
				default:
					log.Printf("Balance update queue full, dropping update for %s", addr)
				}
			}
		}
	}
}

// touchedAddresses extracts every address whose balance the event may have
// changed. Events carry ad-hoc map payloads; unknown shapes yield nothing.
func touchedAddresses(ev events.Event) []string {
	var out []string
	add := func(addr string) {
		if addr != "" {
			out = append(out, addr)
		}
	}

	switch data := ev.Data.(type) {
	case events.FeeCollectedData:
		add(data.Payer)
		add(data.Payee)
	case map[string]interface{}:
		for _, key := range []string{"from", "to", "address", "beneficiary"} {
			if v, ok := data[key].(string); ok {
				add(v)
			}
		}
	}
	return out
}

func (q *updateQueue) worker() {
	for req := range q.queue {
		if q.manager.notifier == nil {
			continue
		}
		success := false
		for attempt := 0; attempt < req.Retries && !success; attempt++ {
			balance := q.manager.GetBalance(req.Address)
			if err := q.manager.notifier.NotifyBalanceUpdate(req.Address, balance); err == nil {
				success = true
			} else {
				log.Printf("Failed to push balance for %s, attempt %d: %v", req.Address, attempt+1, err)
				time.Sleep(time.Duration(math.Pow(2, float64(attempt))) * time.Second)
			}
		}
		if !success {
			log.Printf("Failed to push balance for %s after %d attempts", req.Address, req.Retries)
		}
	}
}
