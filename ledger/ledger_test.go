package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tesora-labs/tesora/types"
)

func TestMintMoveBurn(t *testing.T) {
	l := NewLedger()

	require.NoError(t, l.Mint("alice", 1000))
	assert.Equal(t, int64(1000), l.BalanceOf("alice"))
	assert.Equal(t, int64(1000), l.TotalSupply())

	require.NoError(t, l.Move("alice", "bob", 400))
	assert.Equal(t, int64(600), l.BalanceOf("alice"))
	assert.Equal(t, int64(400), l.BalanceOf("bob"))
	assert.Equal(t, int64(1000), l.TotalSupply())

	require.NoError(t, l.Burn("bob", 100))
	assert.Equal(t, int64(300), l.BalanceOf("bob"))
	assert.Equal(t, int64(900), l.TotalSupply())

	assert.True(t, l.CheckIntegrity())
}

func TestMoveInsufficientFunds(t *testing.T) {
	l := NewLedger()
	require.NoError(t, l.Mint("alice", 50))

	err := l.Move("alice", "bob", 100)
	assert.ErrorIs(t, err, types.ErrInsufficientFunds)

	// Nothing moved
	assert.Equal(t, int64(50), l.BalanceOf("alice"))
	assert.Equal(t, int64(0), l.BalanceOf("bob"))
}

func TestAllowances(t *testing.T) {
	l := NewLedger()
	require.NoError(t, l.Mint("alice", 100))

	l.Approve("alice", "carol", 60)
	assert.Equal(t, int64(60), l.Allowance("alice", "carol"))

	require.NoError(t, l.SpendAllowance("alice", "carol", 40))
	assert.Equal(t, int64(20), l.Allowance("alice", "carol"))

	err := l.SpendAllowance("alice", "carol", 40)
	assert.ErrorIs(t, err, types.ErrInsufficientAllowance)
}

func TestTransferHookRunsAfterStateUpdate(t *testing.T) {
	l := NewLedger()
	require.NoError(t, l.Mint("alice", 100))

	var seenBalance int64
	l.SetTransferHook("bob", func(from string, amount int64) {
		seenBalance = l.BalanceOf("bob")
	})

	require.NoError(t, l.Move("alice", "bob", 30))
	assert.Equal(t, int64(30), seenBalance)
}

func TestIntegrityRootDeterministic(t *testing.T) {
	a := NewLedger()
	b := NewLedger()
	for _, l := range []*Ledger{a, b} {
		require.NoError(t, l.Mint("alice", 500))
		require.NoError(t, l.Mint("bob", 250))
	}
	assert.Equal(t, a.IntegrityRoot(), b.IntegrityRoot())

	require.NoError(t, b.Move("alice", "bob", 1))
	assert.NotEqual(t, a.IntegrityRoot(), b.IntegrityRoot())
}

func TestSnapshotRestore(t *testing.T) {
	l := NewLedger()
	require.NoError(t, l.Mint("alice", 700))
	l.Approve("alice", "bob", 10)

	snap := l.Snapshot()

	restored := NewLedger()
	restored.Restore(snap)
	assert.Equal(t, l.IntegrityRoot(), restored.IntegrityRoot())
	assert.Equal(t, int64(10), restored.Allowance("alice", "bob"))
}
