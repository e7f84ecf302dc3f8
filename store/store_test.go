package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tesora-labs/tesora/events"
	"github.com/tesora-labs/tesora/ledger"
	"github.com/tesora-labs/tesora/token"
	"github.com/tesora-labs/tesora/types"
)

func newStore(t *testing.T) *TokenStore {
	db, err := NewDatabase(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(db.Close)
	return NewTokenStore(db)
}

func newStoreToken(t *testing.T) (*token.TokenImpl, *ledger.Ledger) {
	l := ledger.NewLedger()
	tok, err := token.NewToken(token.Config{
		Owner:                 "ts1owner",
		Treasury:              "ts1treasury",
		TeamWallet:            "ts1team",
		StakingPool:           "ts1pool",
		Validators:            []string{"v1"},
		RequiredConfirmations: 1,
		MaxMissed:             3,
		FeeRates:              types.FeeRates{TeamBasis: 100, StakingBasis: 100, BurnBasis: 50},
		PerformanceBps:        200,
	}, l, events.NewBus())
	require.NoError(t, err)
	return tok, l
}

func TestLedgerSnapshotRoundTrip(t *testing.T) {
	s := newStore(t)

	snap := ledger.Snapshot{
		Balances:    map[string]int64{"alice": 1000, "bob": 250},
		Allowances:  map[string]map[string]int64{"alice": {"carol": 77}},
		TotalSupply: 1250,
	}
	require.NoError(t, s.SaveLedger(snap))

	loaded, ok, err := s.LoadLedger()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, snap, loaded)
}

func TestLoadMissingSlice(t *testing.T) {
	s := newStore(t)

	_, ok, err := s.LoadLedger()
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = s.LoadTokenState()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSaveAllRestoreAll(t *testing.T) {
	s := newStore(t)

	tok, l := newStoreToken(t)
	require.NoError(t, tok.Initialize())
	_, err := tok.Transfer("ts1treasury", "alice", 50_000)
	require.NoError(t, err)
	require.NoError(t, tok.Stake("alice", 20_000))
	_, _, err = tok.Propose("v1", types.ActionSetFeeExempt, token.ExemptParams{Address: "alice", Exempt: true})
	require.NoError(t, err)

	require.NoError(t, s.SaveAll(tok))

	restored, l2 := newStoreToken(t)
	found, err := s.RestoreAll(restored)
	require.NoError(t, err)
	require.True(t, found)

	assert.Equal(t, l.TotalSupply(), l2.TotalSupply())
	assert.Equal(t, l.BalanceOf("alice"), l2.BalanceOf("alice"))
	assert.Equal(t, int64(20_000), restored.Staking().StakedOf("alice"))
	assert.True(t, restored.Fees().IsExempt("alice"))
	assert.True(t, restored.Validators().IsValidator("v1"))
	assert.True(t, l2.CheckIntegrity())

	// genesis must not run again on a restored node
	assert.ErrorIs(t, restored.Initialize(), types.ErrAlreadyInitialized)
}

func TestActionRecordsSurviveRestart(t *testing.T) {
	s := newStore(t)

	records := []*types.ActionRecord{{
		ID:            "abc123",
		Kind:          types.ActionSetRewardRate,
		Params:        []byte{0x01},
		ProposedAt:    time.Now().UTC(),
		ExpiresAt:     time.Now().UTC().Add(24 * time.Hour),
		Confirmations: map[string]struct{}{"v1": {}},
	}}
	require.NoError(t, s.SaveActions(records))

	loaded, ok, err := s.LoadActions()
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, loaded, 1)
	assert.Equal(t, "abc123", loaded[0].ID)
	assert.Contains(t, loaded[0].Confirmations, "v1")
}

func TestAppendEvent(t *testing.T) {
	s := newStore(t)

	ev := events.Event{
		ID:        "0c6f1e36-2d6b-4f6e-9a6c-0d2f3a4b5c6d",
		Type:      events.TransferExecuted,
		Timestamp: time.Now(),
		Data:      map[string]interface{}{"from": "alice", "to": "bob"},
	}
	require.NoError(t, s.AppendEvent(ev))

	has, err := s.db.Has([]byte(EventPrefix + ev.ID))
	require.NoError(t, err)
	assert.True(t, has)
}
