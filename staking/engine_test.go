package staking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tesora-labs/tesora/config"
	"github.com/tesora-labs/tesora/events"
	"github.com/tesora-labs/tesora/ledger"
	"github.com/tesora-labs/tesora/types"
)

const (
	poolAddr   = "ts1pool"
	teamWallet = "ts1team"
)

func newTestEngine(t *testing.T, rewardRate, perfFeeBps int64) (*Engine, *ledger.Ledger, *time.Time) {
	l := ledger.NewLedger()
	e := NewEngine(l, events.NewBus(), poolAddr, teamWallet, rewardRate, perfFeeBps)

	now := time.Unix(1_700_000_000, 0)
	e.SetClock(func() time.Time { return now })
	return e, l, &now
}

func TestStakeWithdrawLifecycle(t *testing.T) {
	e, l, _ := newTestEngine(t, 0, 0)
	require.NoError(t, l.Mint("alice", 1000))

	assert.ErrorIs(t, e.Stake("alice", 0), types.ErrZeroAmount)
	assert.ErrorIs(t, e.Stake("alice", 5000), types.ErrInsufficientFunds)

	require.NoError(t, e.Stake("alice", 600))
	assert.Equal(t, int64(600), e.StakedOf("alice"))
	assert.Equal(t, int64(600), e.TotalStaked())
	assert.Equal(t, int64(400), l.BalanceOf("alice"))
	assert.Equal(t, int64(600), l.BalanceOf(poolAddr))

	assert.ErrorIs(t, e.Withdraw("alice", 601), types.ErrInsufficientStake)
	require.NoError(t, e.Withdraw("alice", 600))
	assert.Equal(t, int64(0), e.StakedOf("alice"))
	assert.Equal(t, int64(1000), l.BalanceOf("alice"))

	// amount 0 is representable and valid: withdrawn-to-zero address can stake again
	require.NoError(t, e.Stake("alice", 100))
	assert.Equal(t, int64(100), e.StakedOf("alice"))
}

func TestProportionalAccrual(t *testing.T) {
	// rate: 3000 nano per day; stakes 1000 and 2000 -> 1:2 split
	e, l, now := newTestEngine(t, 3000, 0)
	require.NoError(t, l.Mint("alice", 1000))
	require.NoError(t, l.Mint("bob", 2000))

	require.NoError(t, e.Stake("alice", 1000))
	require.NoError(t, e.Stake("bob", 2000))

	*now = now.Add(24 * time.Hour)

	pa := e.PendingRewards("alice")
	pb := e.PendingRewards("bob")
	assert.InDelta(t, 1000, pa, 1)
	assert.InDelta(t, 2000, pb, 1)
	assert.InDelta(t, 3000, pa+pb, 2)
}

func TestAccrualAtMainnetRewardRate(t *testing.T) {
	e, l, now := newTestEngine(t, config.DailyStakeReward, config.DefaultPerformanceFeeBps)

	staked := int64(1_000_000 * config.NanoPerTesora)
	require.NoError(t, l.Mint("alice", staked))
	require.NoError(t, e.Stake("alice", staked))

	// a month of accrual: rate*seconds is far past int64 territory
	*now = now.Add(30 * 24 * time.Hour)

	want := int64(config.DailyStakeReward) * 30
	pending := e.PendingRewards("alice")
	assert.Positive(t, pending)
	assert.InDelta(t, want, pending, float64(want)/1e9)

	require.NoError(t, l.Mint(poolAddr, pending))
	net, err := e.ClaimRewards("alice")
	require.NoError(t, err)
	assert.Positive(t, net)

	perfFee := l.BalanceOf(teamWallet)
	assert.Positive(t, perfFee)
	assert.Equal(t, pending, net+perfFee)
	assert.InDelta(t, pending*config.DefaultPerformanceFeeBps/config.BasisPoints, perfFee, 1)
}

func TestAccrualSkipsEmptyPool(t *testing.T) {
	e, l, now := newTestEngine(t, config.DailyStakeReward, 0)
	require.NoError(t, l.Mint("alice", 1000))

	// A week with nothing staked mints nothing
	*now = now.Add(7 * 24 * time.Hour)
	require.NoError(t, e.Stake("alice", 1000))
	assert.Equal(t, int64(0), e.PendingRewards("alice"))
}

func TestLateStakerEarnsOnlyForward(t *testing.T) {
	e, l, now := newTestEngine(t, 1000, 0)
	require.NoError(t, l.Mint("alice", 1000))
	require.NoError(t, l.Mint("bob", 1000))

	require.NoError(t, e.Stake("alice", 1000))
	*now = now.Add(24 * time.Hour)

	// Bob joins after a full day; Alice keeps day one for herself
	require.NoError(t, e.Stake("bob", 1000))
	*now = now.Add(24 * time.Hour)

	assert.InDelta(t, 1500, e.PendingRewards("alice"), 1)
	assert.InDelta(t, 500, e.PendingRewards("bob"), 1)
}

func TestClaimRewards(t *testing.T) {
	e, l, now := newTestEngine(t, 10000, 200) // 2% performance fee
	require.NoError(t, l.Mint("alice", 1000))
	require.NoError(t, l.Mint(poolAddr, 50000)) // reward funding

	require.NoError(t, e.Stake("alice", 1000))
	*now = now.Add(24 * time.Hour)

	net, err := e.ClaimRewards("alice")
	require.NoError(t, err)
	// reward 10000, fee 200, net 9800
	assert.Equal(t, int64(9800), net)
	assert.Equal(t, int64(200), l.BalanceOf(teamWallet))

	// claim zeroes accrued but not the stake
	assert.Equal(t, int64(1000), e.StakedOf("alice"))
	net, err = e.ClaimRewards("alice")
	require.NoError(t, err)
	assert.Equal(t, int64(0), net)
}

func TestClaimInsufficientPool(t *testing.T) {
	e, l, now := newTestEngine(t, 10000, 0)
	require.NoError(t, l.Mint("alice", 1000))
	require.NoError(t, e.Stake("alice", 1000))
	*now = now.Add(10 * 24 * time.Hour)

	// pool only holds the principal, not the 100000 reward
	_, err := e.ClaimRewards("alice")
	assert.ErrorIs(t, err, types.ErrInsufficientPoolBalance)
	// accrued reward survives the failed claim
	assert.InDelta(t, 100000, e.PendingRewards("alice"), 1)
}

func TestSetRewardRateAccruesFirst(t *testing.T) {
	e, l, now := newTestEngine(t, 1000, 0)
	require.NoError(t, l.Mint("alice", 1000))
	require.NoError(t, e.Stake("alice", 1000))

	*now = now.Add(24 * time.Hour)
	require.NoError(t, e.SetRewardRate(0))
	*now = now.Add(24 * time.Hour)

	// day one at the old rate, day two at zero
	assert.InDelta(t, 1000, e.PendingRewards("alice"), 1)
}

func TestSnapshotRestore(t *testing.T) {
	e, l, now := newTestEngine(t, 1000, 100)
	require.NoError(t, l.Mint("alice", 1000))
	require.NoError(t, e.Stake("alice", 400))
	*now = now.Add(12 * time.Hour)
	e.Accrue()

	snap := e.Snapshot()

	restored := NewEngine(l, events.NewBus(), poolAddr, teamWallet, 0, 0)
	restored.SetClock(func() time.Time { return *now })
	restored.Restore(snap)

	assert.Equal(t, int64(400), restored.StakedOf("alice"))
	assert.Equal(t, e.TotalStaked(), restored.TotalStaked())
	assert.InDelta(t, e.PendingRewards("alice"), restored.PendingRewards("alice"), 1)
}
