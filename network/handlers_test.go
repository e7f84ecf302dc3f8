package network

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tesora-labs/tesora/balance"
	"github.com/tesora-labs/tesora/events"
	"github.com/tesora-labs/tesora/ledger"
	"github.com/tesora-labs/tesora/token"
	"github.com/tesora-labs/tesora/types"
)

var testSecret = []byte("test-secret")

func newTestRouter(t *testing.T) (http.Handler, *token.TokenImpl) {
	l := ledger.NewLedger()
	bus := events.NewBus()

	tok, err := token.NewToken(token.Config{
		Owner:                 "ts1owner",
		Treasury:              "ts1treasury",
		TeamWallet:            "ts1team",
		StakingPool:           "ts1pool",
		Validators:            []string{"v1"},
		RequiredConfirmations: 1,
		MaxMissed:             3,
		FeeRates:              types.FeeRates{TeamBasis: 100, StakingBasis: 100, BurnBasis: 50},
	}, l, bus)
	require.NoError(t, err)
	require.NoError(t, tok.Initialize())

	balances, err := balance.NewManager(l, bus, nil)
	require.NoError(t, err)

	router := NewRouter(tok, balances, bus, testSecret)
	return router.SetupRoutes(), tok
}

func signedToken(t *testing.T, sender string) string {
	tk := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sender": sender})
	signed, err := tk.SignedString(testSecret)
	require.NoError(t, err)
	return signed
}

func doJSON(t *testing.T, h http.Handler, method, path, sender string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if sender != "" {
		req.Header.Set("Authorization", "Bearer "+signedToken(t, sender))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestStatusAndSupplyEndpoints(t *testing.T) {
	h, _ := newTestRouter(t)

	rec := doJSON(t, h, "GET", "/status", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var status map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, false, status["paused"])

	rec = doJSON(t, h, "GET", "/supply", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var supply map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &supply))
	assert.Equal(t, float64(120_000_000), supply["tesora"])
	assert.Equal(t, "120000000 TSR", supply["formatted"])
}

func TestBalanceEndpoint(t *testing.T) {
	h, tok := newTestRouter(t)
	_, err := tok.Transfer("ts1treasury", "alice", 5000)
	require.NoError(t, err)

	rec := doJSON(t, h, "GET", "/balance/alice", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(5000), body["balance"])
	assert.Equal(t, "0.000005 TSR", body["formatted"])
}

func TestTransferRequiresAuth(t *testing.T) {
	h, _ := newTestRouter(t)

	rec := doJSON(t, h, "POST", "/transfer", "", map[string]interface{}{"to": "bob", "amount": 100})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// garbage token
	req := httptest.NewRequest("POST", "/transfer", bytes.NewBufferString(`{}`))
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTransferEndpoint(t *testing.T) {
	h, tok := newTestRouter(t)
	_, err := tok.Transfer("ts1treasury", "alice", 100_000)
	require.NoError(t, err)

	rec := doJSON(t, h, "POST", "/transfer", "alice", map[string]interface{}{"to": "bob", "amount": 10_000})
	require.Equal(t, http.StatusOK, rec.Code)

	var breakdown types.FeeBreakdown
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &breakdown))
	assert.Equal(t, int64(9_750), breakdown.Net)

	// insufficient funds surfaces as unprocessable
	rec = doJSON(t, h, "POST", "/transfer", "bob", map[string]interface{}{"to": "carol", "amount": 1_000_000})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestProposeAndConfirmOverHTTP(t *testing.T) {
	h, tok := newTestRouter(t)

	rec := doJSON(t, h, "POST", "/actions", "v1", map[string]interface{}{
		"kind":   "SET_FEE_RATES",
		"params": map[string]interface{}{"teamBasis": 150, "stakingBasis": 150, "burnBasis": 100},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, string(types.StatusApplied), resp["status"])
	assert.Equal(t, types.FeeRates{TeamBasis: 150, StakingBasis: 150, BurnBasis: 100}, tok.Fees().Rates())

	// non-validator gets forbidden
	rec = doJSON(t, h, "POST", "/actions", "stranger", map[string]interface{}{
		"kind": "PAUSE",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestActionStatusEndpoint(t *testing.T) {
	h, _ := newTestRouter(t)

	rec := doJSON(t, h, "GET", "/actions/nonexistent", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDecodeActionParams(t *testing.T) {
	params, err := decodeActionParams(types.ActionSetFeeRates, json.RawMessage(`{"teamBasis":10,"stakingBasis":20,"burnBasis":30}`))
	require.NoError(t, err)
	assert.Equal(t, types.FeeRates{TeamBasis: 10, StakingBasis: 20, BurnBasis: 30}, params)

	params, err = decodeActionParams(types.ActionAddValidator, json.RawMessage(`{"address":"v9"}`))
	require.NoError(t, err)
	assert.Equal(t, token.ValidatorParams{Address: "v9"}, params)

	params, err = decodeActionParams(types.ActionPause, nil)
	require.NoError(t, err)
	assert.Nil(t, params)

	_, err = decodeActionParams(types.ActionKind("BOGUS"), nil)
	assert.ErrorIs(t, err, types.ErrUnknownAction)
}
