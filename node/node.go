package node

import (
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/tesora-labs/tesora/amount"
	"github.com/tesora-labs/tesora/balance"
	"github.com/tesora-labs/tesora/config"
	"github.com/tesora-labs/tesora/events"
	"github.com/tesora-labs/tesora/ledger"
	"github.com/tesora-labs/tesora/network"
	"github.com/tesora-labs/tesora/store"
	"github.com/tesora-labs/tesora/token"
	"github.com/tesora-labs/tesora/utils"
)

// Node assembles the full service: ledger, token orchestrator, persistence,
// balance cache and the HTTP/websocket surface.
type Node struct {
	cfg    *config.Config
	db     *store.Database
	store  *store.TokenStore
	bus    *events.Bus
	ledger *ledger.Ledger
	token  *token.TokenImpl

	BalanceManager *balance.Manager
	router         *network.Router
	server         *http.Server

	persistCh chan events.Event
	done      chan struct{}
	wg        sync.WaitGroup
}

func New(cfg *config.Config, tokenCfg token.Config) (*Node, error) {
	dbPath, err := filepath.Abs(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory: %v", err)
	}

	db, err := store.NewDatabase(dbPath)
	if err != nil {
		return nil, err
	}

	bus := events.NewBus()
	l := ledger.NewLedger()

	tok, err := token.NewToken(tokenCfg, l, bus)
	if err != nil {
		db.Close()
		return nil, err
	}

	n := &Node{
		cfg:       cfg,
		db:        db,
		store:     store.NewTokenStore(db),
		bus:       bus,
		ledger:    l,
		token:     tok,
		persistCh: make(chan events.Event, 256),
		done:      make(chan struct{}),
	}

	if err := n.loadState(); err != nil {
		db.Close()
		return nil, err
	}

	ws := network.NewWebSocketManager(bus)
	manager, err := balance.NewManager(l, bus, ws)
	if err != nil {
		db.Close()
		return nil, err
	}
	n.BalanceManager = manager
	n.router = network.NewRouterWithFeed(tok, manager, ws, []byte(cfg.JWTSecret))

	return n, nil
}

func (n *Node) Token() *token.TokenImpl { return n.token }

// Start launches the background loops and serves HTTP until Shutdown.
func (n *Node) Start() error {
	n.BalanceManager.Start()
	n.startBackgroundTasks()

	n.server = &http.Server{
		Addr:    n.cfg.ListenAddr,
		Handler: n.router.SetupRoutes(),
	}
	log.Printf("Starting server on %s", n.cfg.ListenAddr)
	err := n.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops the loops and flushes state to disk.
func (n *Node) Shutdown() error {
	close(n.done)
	n.wg.Wait()
	n.BalanceManager.Stop()

	if n.server != nil {
		n.server.Close()
	}
	if err := n.store.SaveAll(n.token); err != nil {
		utils.LogError("shutdown", err)
	}
	n.db.Close()
	return nil
}

// loadState restores a previous run's state, or runs genesis on a fresh
// data directory, then verifies ledger integrity either way.
func (n *Node) loadState() error {
	found, err := n.store.RestoreAll(n.token)
	if err != nil {
		return fmt.Errorf("failed to restore state: %v", err)
	}

	if found {
		log.Printf("Restored state: supply %s, %d validators",
			amount.Amount(n.ledger.TotalSupply()), n.token.Validators().Count())
	} else {
		if err := n.token.Initialize(); err != nil {
			return fmt.Errorf("failed to run genesis: %v", err)
		}
		if err := n.store.SaveAll(n.token); err != nil {
			return fmt.Errorf("failed to persist genesis state: %v", err)
		}
		log.Printf("Genesis complete: supply %s minted to treasury", amount.Amount(n.ledger.TotalSupply()))
	}

	if !n.ledger.CheckIntegrity() {
		return fmt.Errorf("ledger integrity check failed after load")
	}
	return nil
}

// accrualInterval is how often staking rewards are folded into the
// accumulator when nobody is transacting.
const accrualInterval = 10 * time.Minute

// persistDebounce batches bursts of mutations into one disk write.
const persistDebounce = 500 * time.Millisecond
