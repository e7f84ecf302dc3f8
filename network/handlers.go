package network

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/tesora-labs/tesora/amount"
	"github.com/tesora-labs/tesora/balance"
	"github.com/tesora-labs/tesora/token"
	"github.com/tesora-labs/tesora/types"
	"github.com/tesora-labs/tesora/utils"
)

// Handler serves the REST surface over a token instance.
type Handler struct {
	token     *token.TokenImpl
	balances  *balance.Manager
	jwtSecret []byte
}

func NewHandler(tok *token.TokenImpl, balances *balance.Manager, jwtSecret []byte) *Handler {
	return &Handler{token: tok, balances: balances, jwtSecret: jwtSecret}
}

// statusCodeFor maps domain errors onto HTTP status codes.
func statusCodeFor(err error) int {
	switch {
	case errors.Is(err, types.ErrNotValidator), errors.Is(err, types.ErrNotOwner):
		return http.StatusForbidden
	case errors.Is(err, types.ErrUnknownAction):
		return http.StatusNotFound
	case errors.Is(err, types.ErrPaused), errors.Is(err, types.ErrTimelockNotElapsed),
		errors.Is(err, types.ErrActionExpired), errors.Is(err, types.ErrReentrancyDetected):
		return http.StatusConflict
	case errors.Is(err, types.ErrInsufficientFunds), errors.Is(err, types.ErrInsufficientAllowance),
		errors.Is(err, types.ErrInsufficientStake), errors.Is(err, types.ErrInsufficientPoolBalance):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadRequest
	}
}

func (h *Handler) StatusHandler(w http.ResponseWriter, r *http.Request) {
	utils.SendJSONResponse(w, map[string]interface{}{
		"paused":     h.token.Paused(),
		"upgradeRef": h.token.UpgradeRef(),
		"owner":      h.token.Owner(),
	})
}

func (h *Handler) SupplyHandler(w http.ResponseWriter, r *http.Request) {
	supply := amount.Amount(h.token.Ledger().TotalSupply())
	utils.SendJSONResponse(w, map[string]interface{}{
		"totalSupply": supply.ToNanoTSR(),
		"tesora":      supply.ToTESORA(),
		"formatted":   supply.String(),
	})
}

func (h *Handler) BalanceHandler(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]
	bal := amount.Amount(h.balances.GetBalance(address))
	utils.SendJSONResponse(w, map[string]interface{}{
		"address":   address,
		"balance":   bal.ToNanoTSR(),
		"tesora":    bal.ToTESORA(),
		"formatted": bal.String(),
	})
}

func (h *Handler) FeesHandler(w http.ResponseWriter, r *http.Request) {
	rates := h.token.Fees().Rates()
	utils.SendJSONResponse(w, map[string]interface{}{
		"rates": rates,
		"total": rates.Total(),
	})
}

func (h *Handler) ValidatorsHandler(w http.ResponseWriter, r *http.Request) {
	utils.SendJSONResponse(w, h.token.Validators().Info())
}

func (h *Handler) StakingInfoHandler(w http.ResponseWriter, r *http.Request) {
	utils.SendJSONResponse(w, h.token.Staking().Info())
}

func (h *Handler) StakingPositionHandler(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]
	pos, ok := h.token.Staking().PositionOf(address)
	if !ok {
		utils.SendErrorResponse(w, "No staking position for address", http.StatusNotFound)
		return
	}
	utils.SendJSONResponse(w, pos)
}

func (h *Handler) VestingHandler(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]
	schedule, ok := h.token.VestingSchedule(address)
	if !ok {
		utils.SendErrorResponse(w, "No vesting schedule for address", http.StatusNotFound)
		return
	}
	utils.SendJSONResponse(w, map[string]interface{}{
		"schedule": schedule,
		"vested":   h.token.VestedAmount(address),
	})
}

func (h *Handler) ActionStatusHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	status, confirmations, err := h.token.ActionStatus(id)
	if err != nil {
		utils.SendErrorResponse(w, err.Error(), statusCodeFor(err))
		return
	}
	utils.SendJSONResponse(w, map[string]interface{}{
		"id": id, "status": status, "confirmations": confirmations,
	})
}

func (h *Handler) TransferHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		To     string `json:"to"`
		Amount int64  `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendErrorResponse(w, "Invalid request format: "+err.Error(), http.StatusBadRequest)
		return
	}

	breakdown, err := h.token.Transfer(senderFrom(r), req.To, req.Amount)
	if err != nil {
		utils.SendErrorResponse(w, err.Error(), statusCodeFor(err))
		return
	}
	utils.SendJSONResponse(w, breakdown)
}

func (h *Handler) ApproveHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Spender string `json:"spender"`
		Amount  int64  `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendErrorResponse(w, "Invalid request format: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.token.Approve(senderFrom(r), req.Spender, req.Amount); err != nil {
		utils.SendErrorResponse(w, err.Error(), statusCodeFor(err))
		return
	}
	utils.SendJSONResponse(w, map[string]string{"status": "ok"})
}

func (h *Handler) TransferFromHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		From   string `json:"from"`
		To     string `json:"to"`
		Amount int64  `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendErrorResponse(w, "Invalid request format: "+err.Error(), http.StatusBadRequest)
		return
	}

	breakdown, err := h.token.TransferFrom(senderFrom(r), req.From, req.To, req.Amount)
	if err != nil {
		utils.SendErrorResponse(w, err.Error(), statusCodeFor(err))
		return
	}
	utils.SendJSONResponse(w, breakdown)
}

func (h *Handler) StakeHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount int64 `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendErrorResponse(w, "Invalid request format: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.token.Stake(senderFrom(r), req.Amount); err != nil {
		utils.SendErrorResponse(w, err.Error(), statusCodeFor(err))
		return
	}
	utils.SendJSONResponse(w, map[string]string{"status": "ok"})
}

func (h *Handler) WithdrawHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount int64 `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendErrorResponse(w, "Invalid request format: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.token.Withdraw(senderFrom(r), req.Amount); err != nil {
		utils.SendErrorResponse(w, err.Error(), statusCodeFor(err))
		return
	}
	utils.SendJSONResponse(w, map[string]string{"status": "ok"})
}

func (h *Handler) ClaimHandler(w http.ResponseWriter, r *http.Request) {
	net, err := h.token.ClaimRewards(senderFrom(r))
	if err != nil {
		utils.SendErrorResponse(w, err.Error(), statusCodeFor(err))
		return
	}
	utils.SendJSONResponse(w, map[string]int64{"claimed": net})
}

func (h *Handler) ReleaseHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Beneficiary string `json:"beneficiary"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendErrorResponse(w, "Invalid request format: "+err.Error(), http.StatusBadRequest)
		return
	}
	// releases go to the beneficiary regardless of caller, defaulting to
	// the caller's own schedule
	beneficiary := req.Beneficiary
	if beneficiary == "" {
		beneficiary = senderFrom(r)
	}

	released, err := h.token.Release(beneficiary)
	if err != nil {
		utils.SendErrorResponse(w, err.Error(), statusCodeFor(err))
		return
	}
	utils.SendJSONResponse(w, map[string]int64{"released": released})
}

// decodeActionParams maps the JSON params of a propose request onto the
// typed payload the action kind expects.
func decodeActionParams(kind types.ActionKind, raw json.RawMessage) (interface{}, error) {
	decode := func(v interface{}) (interface{}, error) {
		if err := json.Unmarshal(raw, v); err != nil {
			return nil, err
		}
		return v, nil
	}

	switch kind {
	case types.ActionSetFeeRates:
		v, err := decode(&types.FeeRates{})
		if err != nil {
			return nil, err
		}
		return *v.(*types.FeeRates), nil
	case types.ActionSetFeeExempt:
		v, err := decode(&token.ExemptParams{})
		if err != nil {
			return nil, err
		}
		return *v.(*token.ExemptParams), nil
	case types.ActionAddValidator, types.ActionRemoveValidator, types.ActionSlashValidator:
		v, err := decode(&token.ValidatorParams{})
		if err != nil {
			return nil, err
		}
		return *v.(*token.ValidatorParams), nil
	case types.ActionSetRequiredConfirm:
		v, err := decode(&token.ThresholdParams{})
		if err != nil {
			return nil, err
		}
		return *v.(*token.ThresholdParams), nil
	case types.ActionSetRewardRate, types.ActionSetPerformanceFee:
		v, err := decode(&token.RateParams{})
		if err != nil {
			return nil, err
		}
		return *v.(*token.RateParams), nil
	case types.ActionBuybackBurn:
		v, err := decode(&token.BuybackParams{})
		if err != nil {
			return nil, err
		}
		return *v.(*token.BuybackParams), nil
	case types.ActionUpgrade:
		v, err := decode(&token.UpgradeParams{})
		if err != nil {
			return nil, err
		}
		return *v.(*token.UpgradeParams), nil
	case types.ActionPause, types.ActionUnpause:
		return nil, nil
	}
	return nil, types.ErrUnknownAction
}

func (h *Handler) ProposeHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Kind   string          `json:"kind"`
		Params json.RawMessage `json:"params"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendErrorResponse(w, "Invalid request format: "+err.Error(), http.StatusBadRequest)
		return
	}

	kind := types.ActionKind(req.Kind)
	params, err := decodeActionParams(kind, req.Params)
	if err != nil {
		utils.SendErrorResponse(w, "Invalid action params: "+err.Error(), http.StatusBadRequest)
		return
	}

	id, status, err := h.token.Propose(senderFrom(r), kind, params)
	if err != nil {
		utils.SendErrorResponse(w, err.Error(), statusCodeFor(err))
		return
	}
	utils.SendJSONResponse(w, map[string]interface{}{"id": id, "status": status})
}

func (h *Handler) ConfirmHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	status, err := h.token.Confirm(senderFrom(r), id)
	if err != nil {
		utils.SendErrorResponse(w, err.Error(), statusCodeFor(err))
		return
	}
	utils.SendJSONResponse(w, map[string]interface{}{"id": id, "status": status})
}

func (h *Handler) ExecuteHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	status, err := h.token.Execute(senderFrom(r), id)
	if err != nil {
		utils.SendErrorResponse(w, err.Error(), statusCodeFor(err))
		return
	}
	utils.SendJSONResponse(w, map[string]interface{}{"id": id, "status": status})
}

func (h *Handler) RecordMissedHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	missed, err := h.token.RecordMissed(senderFrom(r), id)
	if err != nil {
		utils.SendErrorResponse(w, err.Error(), statusCodeFor(err))
		return
	}
	utils.SendJSONResponse(w, map[string]int{"recorded": missed})
}
