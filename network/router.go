package network

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/tesora-labs/tesora/balance"
	"github.com/tesora-labs/tesora/events"
	"github.com/tesora-labs/tesora/token"
)

// Router wires the REST surface and the websocket feed over a token
// instance.
type Router struct {
	api *Handler
	ws  *WebSocketManager
}

func NewRouter(tok *token.TokenImpl, balances *balance.Manager, bus *events.Bus, jwtSecret []byte) *Router {
	return NewRouterWithFeed(tok, balances, NewWebSocketManager(bus), jwtSecret)
}

// NewRouterWithFeed accepts a pre-built websocket manager, for callers that
// also hand it to the balance manager as its push notifier.
func NewRouterWithFeed(tok *token.TokenImpl, balances *balance.Manager, ws *WebSocketManager, jwtSecret []byte) *Router {
	return &Router{
		api: NewHandler(tok, balances, jwtSecret),
		ws:  ws,
	}
}

// WebSocket returns the feed manager, which also serves as the balance
// push notifier.
func (router *Router) WebSocket() *WebSocketManager {
	return router.ws
}

// SetupRoutes configures the HTTP routes. Reads are open; mutations sit
// behind the JWT middleware, which binds the caller identity.
func (router *Router) SetupRoutes() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/status", router.api.StatusHandler).Methods("GET")
	r.HandleFunc("/supply", router.api.SupplyHandler).Methods("GET")
	r.HandleFunc("/balance/{address}", router.api.BalanceHandler).Methods("GET")
	r.HandleFunc("/fees", router.api.FeesHandler).Methods("GET")
	r.HandleFunc("/validators", router.api.ValidatorsHandler).Methods("GET")
	r.HandleFunc("/staking", router.api.StakingInfoHandler).Methods("GET")
	r.HandleFunc("/staking/{address}", router.api.StakingPositionHandler).Methods("GET")
	r.HandleFunc("/vesting/{address}", router.api.VestingHandler).Methods("GET")
	r.HandleFunc("/actions/{id}", router.api.ActionStatusHandler).Methods("GET")

	r.HandleFunc("/ws/events", router.ws.EventFeedHandler).Methods("GET")

	authed := r.NewRoute().Subrouter()
	authed.Use(router.api.authMiddleware)
	authed.HandleFunc("/transfer", router.api.TransferHandler).Methods("POST")
	authed.HandleFunc("/approve", router.api.ApproveHandler).Methods("POST")
	authed.HandleFunc("/transfer-from", router.api.TransferFromHandler).Methods("POST")
	authed.HandleFunc("/stake", router.api.StakeHandler).Methods("POST")
	authed.HandleFunc("/withdraw", router.api.WithdrawHandler).Methods("POST")
	authed.HandleFunc("/claim", router.api.ClaimHandler).Methods("POST")
	authed.HandleFunc("/release", router.api.ReleaseHandler).Methods("POST")
	authed.HandleFunc("/actions", router.api.ProposeHandler).Methods("POST")
	authed.HandleFunc("/actions/{id}/confirm", router.api.ConfirmHandler).Methods("POST")
	authed.HandleFunc("/actions/{id}/execute", router.api.ExecuteHandler).Methods("POST")
	authed.HandleFunc("/actions/{id}/record-missed", router.api.RecordMissedHandler).Methods("POST")

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"http://localhost:3000"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	})
	return c.Handler(r)
}
