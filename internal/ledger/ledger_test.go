package ledger

import (
	"context"
	"math/big"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/stakevault/nft-staking-service/internal/clients/custodian"
	"github.com/stakevault/nft-staking-service/internal/clients/rewardledger"
	"github.com/stakevault/nft-staking-service/internal/types"
)

const (
	vaultAddr = "0x00000000000000000000000000000000000000aa"
	adminAddr = "0x00000000000000000000000000000000000000ad"
	aliceAddr = "0x00000000000000000000000000000000000000a1"
	bobAddr   = "0x00000000000000000000000000000000000000b0"

	t0 = int64(1_000_000)
)

type captureSink struct {
	mu     sync.Mutex
	events []types.Event
}

func (s *captureSink) Emit(ev types.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *captureSink) all() []types.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.Event, len(s.events))
	copy(out, s.events)
	return out
}

type testEnv struct {
	ledger  *Ledger
	clock   *ManualClock
	cust    *custodian.MemoryClient
	rewards *rewardledger.MemoryClient
	sink    *captureSink
}

func newTestEnv(t *testing.T, rate, vaultBalance int64, seed map[string][]uint64) *testEnv {
	t.Helper()
	clock := NewManualClock(t0)
	cust, err := custodian.NewMemoryClient(seed)
	require.NoError(t, err)
	for owner := range seed {
		require.NoError(t, cust.SetApprovalForAll(owner, vaultAddr, true))
	}
	rewards, err := rewardledger.NewMemoryClient(vaultAddr, nil)
	require.NoError(t, err)
	if vaultBalance > 0 {
		require.NoError(t, rewards.Credit(vaultAddr, big.NewInt(vaultBalance)))
	}
	sink := &captureSink{}
	l, err := New(Params{
		VaultAddress: vaultAddr,
		OwnerAddress: adminAddr,
		InitialRate:  big.NewInt(rate),
	}, clock, cust, rewards, sink)
	require.NoError(t, err)
	return &testEnv{ledger: l, clock: clock, cust: cust, rewards: rewards, sink: sink}
}

func (e *testEnv) ownerOf(t *testing.T, tokenID uint64) string {
	t.Helper()
	owner, err := e.cust.OwnerOf(context.Background(), tokenID)
	require.NoError(t, err)
	return owner
}

func (e *testEnv) balance(t *testing.T, address string) int64 {
	t.Helper()
	bal, err := e.rewards.BalanceOf(context.Background(), address)
	require.NoError(t, err)
	return bal.Int64()
}

func (e *testEnv) pending(t *testing.T, owner string) int64 {
	t.Helper()
	p, err := e.ledger.PendingReward(owner)
	require.NoError(t, err)
	return p.Int64()
}

// checkInvariants asserts the registry bookkeeping that every operation must
// preserve: records, owner sets and the total counter all agree.
func checkInvariants(t *testing.T, l *Ledger) {
	t.Helper()
	require.Equal(t, uint64(len(l.records)), l.totalStaked)
	indexed := 0
	for owner, set := range l.userTokens {
		require.Positive(t, set.Len(), "empty token set left behind for %s", owner)
		for _, id := range set.IDs() {
			rec, ok := l.records[id]
			require.True(t, ok, "token %d indexed but has no record", id)
			require.Equal(t, owner, rec.Owner)
		}
		indexed += set.Len()
	}
	require.Equal(t, len(l.records), indexed)
	for id, rec := range l.records {
		require.Equal(t, id, rec.TokenID)
		require.True(t, l.userTokens[rec.Owner].Contains(id))
		require.GreaterOrEqual(t, rec.LastAccrualCheckpoint, rec.StakedAt)
	}
}

func eventTypes(events []types.Event) []types.EventType {
	out := make([]types.EventType, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.Type)
	}
	return out
}

// flakyCustodian fails the Nth transfer call to exercise unwind paths.
type flakyCustodian struct {
	*custodian.MemoryClient
	transferInCalls   int
	transferOutCalls  int
	failTransferInAt  int
	failTransferOutAt int
}

func (c *flakyCustodian) TransferIn(ctx context.Context, from, to string, tokenID uint64) error {
	c.transferInCalls++
	if c.failTransferInAt != 0 && c.transferInCalls == c.failTransferInAt {
		return errors.New("custodian: simulated outage")
	}
	return c.MemoryClient.TransferIn(ctx, from, to, tokenID)
}

func (c *flakyCustodian) TransferOut(ctx context.Context, from, to string, tokenID uint64) error {
	c.transferOutCalls++
	if c.failTransferOutAt != 0 && c.transferOutCalls == c.failTransferOutAt {
		return errors.New("custodian: simulated outage")
	}
	return c.MemoryClient.TransferOut(ctx, from, to, tokenID)
}

func TestStakeMovesTokensIntoVault(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, 10, 0, map[string][]uint64{aliceAddr: {1, 2, 3}})

	require.NoError(t, env.ledger.Stake(ctx, aliceAddr, []uint64{1, 2}))
	checkInvariants(t, env.ledger)

	require.Equal(t, uint64(2), env.ledger.TotalStaked())
	require.True(t, env.ledger.IsStaked(1))
	require.True(t, env.ledger.IsStaked(2))
	require.False(t, env.ledger.IsStaked(3))
	require.Equal(t, vaultAddr, env.ownerOf(t, 1))
	require.Equal(t, vaultAddr, env.ownerOf(t, 2))
	require.Equal(t, aliceAddr, env.ownerOf(t, 3))
	require.ElementsMatch(t, []uint64{1, 2}, env.ledger.UserStakedTokens(aliceAddr))

	rec, ok := env.ledger.StakeInfo(1)
	require.True(t, ok)
	require.Equal(t, aliceAddr, rec.Owner)
	require.Equal(t, t0, rec.StakedAt)
	require.Equal(t, t0, rec.LastAccrualCheckpoint)

	events := env.sink.all()
	require.Equal(t, []types.EventType{types.StakedEventType, types.StakedEventType}, eventTypes(events))
	require.Equal(t, uint64(1), events[0].Seq)
	require.Equal(t, uint64(2), events[1].Seq)
	require.Equal(t, aliceAddr, events[0].StakerAddress)
	require.NotNil(t, events[0].TokenID)
}

func TestStakeRequiresOwnershipAndApproval(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, 10, 0, map[string][]uint64{aliceAddr: {1}})
	require.NoError(t, env.cust.Mint(bobAddr, 2))

	err := env.ledger.Stake(ctx, aliceAddr, []uint64{2})
	require.ErrorIs(t, err, ErrNotOwner)

	// Bob never approved the vault.
	err = env.ledger.Stake(ctx, bobAddr, []uint64{2})
	require.ErrorIs(t, err, ErrNotApproved)

	// A single-token approval is enough.
	cust, err2 := custodian.NewMemoryClient(map[string][]uint64{aliceAddr: {7}})
	require.NoError(t, err2)
	require.NoError(t, cust.Approve(vaultAddr, 7))
	rewards, err2 := rewardledger.NewMemoryClient(vaultAddr, nil)
	require.NoError(t, err2)
	l, err2 := New(Params{VaultAddress: vaultAddr, OwnerAddress: adminAddr, InitialRate: big.NewInt(1)},
		NewManualClock(t0), cust, rewards, nil)
	require.NoError(t, err2)
	require.NoError(t, l.Stake(ctx, aliceAddr, []uint64{7}))
}

func TestStakeBatchValidation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, 10, 0, map[string][]uint64{aliceAddr: {1, 2}})

	require.ErrorIs(t, env.ledger.Stake(ctx, aliceAddr, nil), ErrEmptyBatch)

	oversized := make([]uint64, MaxBatchSize+1)
	for i := range oversized {
		oversized[i] = uint64(i + 1)
	}
	require.ErrorIs(t, env.ledger.Stake(ctx, aliceAddr, oversized), ErrBatchTooLarge)

	require.ErrorIs(t, env.ledger.Stake(ctx, aliceAddr, []uint64{1, 1}), ErrAlreadyStaked)

	require.NoError(t, env.ledger.Stake(ctx, aliceAddr, []uint64{1}))
	require.ErrorIs(t, env.ledger.Stake(ctx, aliceAddr, []uint64{1}), ErrAlreadyStaked)
}

func TestStakeIsAtomicWhenValidationFails(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, 10, 0, map[string][]uint64{aliceAddr: {1, 2}, bobAddr: {3}})

	// Token 3 fails ownership validation; 1 and 2 must not move.
	err := env.ledger.Stake(ctx, aliceAddr, []uint64{1, 2, 3})
	require.ErrorIs(t, err, ErrNotOwner)
	checkInvariants(t, env.ledger)

	require.Equal(t, uint64(0), env.ledger.TotalStaked())
	require.Equal(t, aliceAddr, env.ownerOf(t, 1))
	require.Equal(t, aliceAddr, env.ownerOf(t, 2))
	require.Empty(t, env.sink.all())
}

func TestStakeUnwindsOnTransferFailure(t *testing.T) {
	ctx := context.Background()
	clock := NewManualClock(t0)
	cust, err := custodian.NewMemoryClient(map[string][]uint64{aliceAddr: {1, 2, 3}})
	require.NoError(t, err)
	require.NoError(t, cust.SetApprovalForAll(aliceAddr, vaultAddr, true))
	flaky := &flakyCustodian{MemoryClient: cust, failTransferInAt: 3}
	rewards, err := rewardledger.NewMemoryClient(vaultAddr, nil)
	require.NoError(t, err)
	sink := &captureSink{}
	l, err := New(Params{VaultAddress: vaultAddr, OwnerAddress: adminAddr, InitialRate: big.NewInt(10)},
		clock, flaky, rewards, sink)
	require.NoError(t, err)

	err = l.Stake(ctx, aliceAddr, []uint64{1, 2, 3})
	require.Error(t, err)
	checkInvariants(t, l)

	// The two tokens that made it into the vault were sent back.
	require.Equal(t, uint64(0), l.TotalStaked())
	for _, id := range []uint64{1, 2, 3} {
		owner, lookupErr := cust.OwnerOf(ctx, id)
		require.NoError(t, lookupErr)
		require.Equal(t, aliceAddr, owner)
	}
	require.Empty(t, sink.all())
}

func TestStakeSettlesExistingStakesFirst(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, 10, 10_000, map[string][]uint64{aliceAddr: {1, 2}})

	require.NoError(t, env.ledger.Stake(ctx, aliceAddr, []uint64{1}))
	env.clock.Advance(50)

	// The second stake settles token 1's 50 seconds at rate 10 first.
	require.NoError(t, env.ledger.Stake(ctx, aliceAddr, []uint64{2}))
	checkInvariants(t, env.ledger)

	require.Equal(t, int64(500), env.balance(t, aliceAddr))
	rec, ok := env.ledger.StakeInfo(1)
	require.True(t, ok)
	require.Equal(t, t0+50, rec.LastAccrualCheckpoint)
	require.Equal(t, t0, rec.StakedAt)

	// staked(1), claimed(settle), staked(2)
	require.Equal(t, []types.EventType{
		types.StakedEventType,
		types.RewardsClaimedEventType,
		types.StakedEventType,
	}, eventTypes(env.sink.all()))
}

func TestPendingRewardAccrual(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, 10, 0, map[string][]uint64{aliceAddr: {1}})

	require.NoError(t, env.ledger.Stake(ctx, aliceAddr, []uint64{1}))
	require.Equal(t, int64(0), env.pending(t, aliceAddr))

	env.clock.Advance(50)
	require.Equal(t, int64(500), env.pending(t, aliceAddr))

	env.clock.Advance(50)
	require.Equal(t, int64(1000), env.pending(t, aliceAddr))

	// Reads never move the checkpoint.
	rec, _ := env.ledger.StakeInfo(1)
	require.Equal(t, t0, rec.LastAccrualCheckpoint)
}

func TestPendingRewardSumsPerToken(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, 2, 0, map[string][]uint64{aliceAddr: {1, 2, 3}})

	require.NoError(t, env.ledger.Stake(ctx, aliceAddr, []uint64{1, 2, 3}))
	env.clock.Advance(10)
	require.Equal(t, int64(60), env.pending(t, aliceAddr))

	require.Equal(t, int64(0), env.pending(t, bobAddr))
}

func TestRateChangeRepricesOpenWindows(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, 10, 10_000, map[string][]uint64{aliceAddr: {1}})

	require.NoError(t, env.ledger.Stake(ctx, aliceAddr, []uint64{1}))
	env.clock.Advance(50)
	require.NoError(t, env.ledger.SetRewardRate(big.NewInt(5)))
	env.clock.Advance(50)

	// The whole 100 second window is priced at the current rate, not split
	// 50s@10 + 50s@5.
	require.Equal(t, int64(500), env.pending(t, aliceAddr))

	claimed, err := env.ledger.ClaimRewards(ctx, aliceAddr)
	require.NoError(t, err)
	require.Equal(t, int64(500), claimed.Int64())
	require.Equal(t, int64(500), env.balance(t, aliceAddr))
}

func TestClaimRewards(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, 10, 10_000, map[string][]uint64{aliceAddr: {1}})

	_, err := env.ledger.ClaimRewards(ctx, aliceAddr)
	require.ErrorIs(t, err, ErrNothingStaked)

	require.NoError(t, env.ledger.Stake(ctx, aliceAddr, []uint64{1}))
	env.clock.Advance(100)

	claimed, err := env.ledger.ClaimRewards(ctx, aliceAddr)
	require.NoError(t, err)
	require.Equal(t, int64(1000), claimed.Int64())
	require.Equal(t, int64(1000), env.balance(t, aliceAddr))
	require.Equal(t, int64(9000), env.balance(t, vaultAddr))

	// A second claim at the same instant pays zero and emits nothing.
	eventsBefore := len(env.sink.all())
	claimed, err = env.ledger.ClaimRewards(ctx, aliceAddr)
	require.NoError(t, err)
	require.Equal(t, int64(0), claimed.Int64())
	require.Equal(t, int64(1000), env.balance(t, aliceAddr))
	require.Len(t, env.sink.all(), eventsBefore)
}

func TestClaimKeepsWindowWhenVaultUnderfunded(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, 10, 100, map[string][]uint64{aliceAddr: {1, 2}})

	require.NoError(t, env.ledger.Stake(ctx, aliceAddr, []uint64{1}))
	env.clock.Advance(100)

	_, err := env.ledger.ClaimRewards(ctx, aliceAddr)
	require.ErrorIs(t, err, ErrInsufficientRewardFunds)

	// Nothing moved: no payout, checkpoint intact, window fully claimable.
	require.Equal(t, int64(0), env.balance(t, aliceAddr))
	rec, _ := env.ledger.StakeInfo(1)
	require.Equal(t, t0, rec.LastAccrualCheckpoint)
	require.Equal(t, int64(1000), env.pending(t, aliceAddr))

	// Staking more tokens settles first, so it is blocked by the same shortfall.
	require.ErrorIs(t, env.ledger.Stake(ctx, aliceAddr, []uint64{2}), ErrInsufficientRewardFunds)

	// After a top up the full window pays out.
	require.NoError(t, env.rewards.Credit(vaultAddr, big.NewInt(900)))
	claimed, err := env.ledger.ClaimRewards(ctx, aliceAddr)
	require.NoError(t, err)
	require.Equal(t, int64(1000), claimed.Int64())
	require.Equal(t, int64(1000), env.balance(t, aliceAddr))
}

func TestUnstakeSettlesBeforeRemoval(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, 10, 10_000, map[string][]uint64{aliceAddr: {1}})

	require.NoError(t, env.ledger.Stake(ctx, aliceAddr, []uint64{1}))
	env.clock.Advance(100)

	require.NoError(t, env.ledger.Unstake(ctx, aliceAddr, []uint64{1}))
	checkInvariants(t, env.ledger)

	require.Equal(t, int64(1000), env.balance(t, aliceAddr))
	require.Equal(t, aliceAddr, env.ownerOf(t, 1))
	require.Equal(t, uint64(0), env.ledger.TotalStaked())
	require.Empty(t, env.ledger.UserStakedTokens(aliceAddr))

	// Settlement is journaled before the removals.
	require.Equal(t, []types.EventType{
		types.StakedEventType,
		types.RewardsClaimedEventType,
		types.UnstakedEventType,
	}, eventTypes(env.sink.all()))
}

func TestUnstakeAbortsWhenSettlementFails(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, 10, 0, map[string][]uint64{aliceAddr: {1}})

	require.NoError(t, env.ledger.Stake(ctx, aliceAddr, []uint64{1}))
	env.clock.Advance(100)

	err := env.ledger.Unstake(ctx, aliceAddr, []uint64{1})
	require.ErrorIs(t, err, ErrInsufficientRewardFunds)
	checkInvariants(t, env.ledger)

	// The token stays staked rather than forfeiting its accrued reward.
	require.True(t, env.ledger.IsStaked(1))
	require.Equal(t, vaultAddr, env.ownerOf(t, 1))
	require.Equal(t, int64(1000), env.pending(t, aliceAddr))
}

func TestUnstakeValidation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, 10, 0, map[string][]uint64{aliceAddr: {1}, bobAddr: {2}})

	require.NoError(t, env.ledger.Stake(ctx, aliceAddr, []uint64{1}))

	require.ErrorIs(t, env.ledger.Unstake(ctx, aliceAddr, nil), ErrEmptyBatch)

	oversized := make([]uint64, MaxBatchSize+1)
	for i := range oversized {
		oversized[i] = uint64(i + 1)
	}
	require.ErrorIs(t, env.ledger.Unstake(ctx, aliceAddr, oversized), ErrBatchTooLarge)

	require.ErrorIs(t, env.ledger.Unstake(ctx, aliceAddr, []uint64{1, 1}), ErrNotStaked)
	require.ErrorIs(t, env.ledger.Unstake(ctx, aliceAddr, []uint64{9}), ErrNotStaked)
	require.ErrorIs(t, env.ledger.Unstake(ctx, bobAddr, []uint64{1}), ErrNotOwner)

	// Failed attempts left the stake untouched.
	require.True(t, env.ledger.IsStaked(1))
	checkInvariants(t, env.ledger)
}

func TestUnstakeUnwindsOnTransferFailure(t *testing.T) {
	ctx := context.Background()
	clock := NewManualClock(t0)
	cust, err := custodian.NewMemoryClient(map[string][]uint64{aliceAddr: {1, 2, 3}})
	require.NoError(t, err)
	require.NoError(t, cust.SetApprovalForAll(aliceAddr, vaultAddr, true))
	flaky := &flakyCustodian{MemoryClient: cust}
	rewards, err := rewardledger.NewMemoryClient(vaultAddr, nil)
	require.NoError(t, err)
	sink := &captureSink{}
	l, err := New(Params{VaultAddress: vaultAddr, OwnerAddress: adminAddr, InitialRate: big.NewInt(10)},
		clock, flaky, rewards, sink)
	require.NoError(t, err)

	require.NoError(t, l.Stake(ctx, aliceAddr, []uint64{1, 2, 3}))
	stakedEvents := len(sink.all())

	// Zero elapsed time keeps settlement out of the picture; the third
	// transfer-out fails after two tokens already left the vault.
	flaky.failTransferOutAt = 3
	err = l.Unstake(ctx, aliceAddr, []uint64{1, 2, 3})
	require.Error(t, err)
	checkInvariants(t, l)

	// All three records are back and all three tokens are in the vault.
	require.Equal(t, uint64(3), l.TotalStaked())
	for _, id := range []uint64{1, 2, 3} {
		owner, lookupErr := cust.OwnerOf(ctx, id)
		require.NoError(t, lookupErr)
		require.Equal(t, vaultAddr, owner)
		require.True(t, l.IsStaked(id))
	}
	require.Len(t, sink.all(), stakedEvents)
}

func TestSameInstantStakeUnstakeRoundTrip(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, 10, 10_000, map[string][]uint64{aliceAddr: {1, 2}})

	require.NoError(t, env.ledger.Stake(ctx, aliceAddr, []uint64{1, 2}))
	require.NoError(t, env.ledger.Unstake(ctx, aliceAddr, []uint64{1, 2}))
	checkInvariants(t, env.ledger)

	require.Equal(t, int64(0), env.balance(t, aliceAddr))
	require.Equal(t, uint64(0), env.ledger.TotalStaked())
	require.Equal(t, aliceAddr, env.ownerOf(t, 1))
	require.Equal(t, aliceAddr, env.ownerOf(t, 2))

	// No settlement event: the window was empty.
	require.Equal(t, []types.EventType{
		types.StakedEventType, types.StakedEventType,
		types.UnstakedEventType, types.UnstakedEventType,
	}, eventTypes(env.sink.all()))
}

func TestPauseBlocksOnlyStaking(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, 10, 10_000, map[string][]uint64{aliceAddr: {1, 2}})

	require.NoError(t, env.ledger.Stake(ctx, aliceAddr, []uint64{1}))
	env.clock.Advance(10)

	require.NoError(t, env.ledger.Pause())
	require.True(t, env.ledger.Paused())

	require.ErrorIs(t, env.ledger.Stake(ctx, aliceAddr, []uint64{2}), ErrPaused)

	// Accrual, claiming and unstaking continue under pause.
	require.Equal(t, int64(100), env.pending(t, aliceAddr))
	claimed, err := env.ledger.ClaimRewards(ctx, aliceAddr)
	require.NoError(t, err)
	require.Equal(t, int64(100), claimed.Int64())
	require.NoError(t, env.ledger.Unstake(ctx, aliceAddr, []uint64{1}))

	require.NoError(t, env.ledger.Unpause())
	require.NoError(t, env.ledger.Stake(ctx, aliceAddr, []uint64{2}))
}

func TestSetRewardRateValidation(t *testing.T) {
	env := newTestEnv(t, 10, 0, nil)

	require.ErrorIs(t, env.ledger.SetRewardRate(nil), ErrInvalidRate)
	require.ErrorIs(t, env.ledger.SetRewardRate(big.NewInt(0)), ErrInvalidRate)
	require.ErrorIs(t, env.ledger.SetRewardRate(big.NewInt(-5)), ErrInvalidRate)
	require.Equal(t, int64(10), env.ledger.RewardRate().Int64())

	require.NoError(t, env.ledger.SetRewardRate(big.NewInt(7)))
	require.Equal(t, int64(7), env.ledger.RewardRate().Int64())

	events := env.sink.all()
	require.Len(t, events, 1)
	require.Equal(t, types.RateUpdatedEventType, events[0].Type)
	require.Equal(t, int64(7), events[0].NewRate.Int64())
	require.Equal(t, t0, events[0].Timestamp)
}

func TestWithdrawRewardFunds(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, 10, 1_000, map[string][]uint64{aliceAddr: {1}})

	require.ErrorIs(t, env.ledger.WithdrawRewardFunds(ctx, nil), ErrInvalidAmount)
	require.ErrorIs(t, env.ledger.WithdrawRewardFunds(ctx, big.NewInt(0)), ErrInvalidAmount)
	require.ErrorIs(t, env.ledger.WithdrawRewardFunds(ctx, big.NewInt(2_000)), ErrInsufficientRewardFunds)

	require.NoError(t, env.ledger.WithdrawRewardFunds(ctx, big.NewInt(600)))
	require.Equal(t, int64(600), env.balance(t, adminAddr))
	require.Equal(t, int64(400), env.balance(t, vaultAddr))

	// Nothing is reserved for open accrual windows: the withdrawal can starve
	// a claim that was already earned.
	require.NoError(t, env.ledger.Stake(ctx, aliceAddr, []uint64{1}))
	env.clock.Advance(100)
	_, err := env.ledger.ClaimRewards(ctx, aliceAddr)
	require.ErrorIs(t, err, ErrInsufficientRewardFunds)
}

func TestClockSkewRejected(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, 10, 10_000, map[string][]uint64{aliceAddr: {1}})

	require.NoError(t, env.ledger.Stake(ctx, aliceAddr, []uint64{1}))

	env.clock.Set(t0 - 100)
	_, err := env.ledger.PendingReward(aliceAddr)
	require.ErrorIs(t, err, ErrClockSkew)
	_, err = env.ledger.ClaimRewards(ctx, aliceAddr)
	require.ErrorIs(t, err, ErrClockSkew)

	// Once the clock catches up the ledger serves again.
	env.clock.Set(t0 + 10)
	require.Equal(t, int64(100), env.pending(t, aliceAddr))
}

// reentrantSink tries to run an operation from inside event delivery.
type reentrantSink struct {
	ledger *Ledger
	err    error
}

func (s *reentrantSink) Emit(types.Event) {
	s.err = s.ledger.Pause()
}

func TestReentrantCallsAreRejected(t *testing.T) {
	ctx := context.Background()
	cust, err := custodian.NewMemoryClient(map[string][]uint64{aliceAddr: {1}})
	require.NoError(t, err)
	require.NoError(t, cust.SetApprovalForAll(aliceAddr, vaultAddr, true))
	rewards, err := rewardledger.NewMemoryClient(vaultAddr, nil)
	require.NoError(t, err)
	sink := &reentrantSink{}
	l, err := New(Params{VaultAddress: vaultAddr, OwnerAddress: adminAddr, InitialRate: big.NewInt(1)},
		NewManualClock(t0), cust, rewards, sink)
	require.NoError(t, err)
	sink.ledger = l

	require.NoError(t, l.Stake(ctx, aliceAddr, []uint64{1}))
	require.ErrorIs(t, sink.err, ErrReentrantCall)
	require.False(t, l.Paused())

	// The flag is released once the operation finishes.
	require.NoError(t, l.Pause())
}

func TestEventJournalIsGapless(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, 10, 10_000, map[string][]uint64{aliceAddr: {1, 2}})

	require.NoError(t, env.ledger.Stake(ctx, aliceAddr, []uint64{1, 2}))
	env.clock.Advance(10)
	_, err := env.ledger.ClaimRewards(ctx, aliceAddr)
	require.NoError(t, err)
	require.NoError(t, env.ledger.SetRewardRate(big.NewInt(3)))
	require.NoError(t, env.ledger.Unstake(ctx, aliceAddr, []uint64{1}))

	events := env.sink.all()
	require.Equal(t, []types.EventType{
		types.StakedEventType,
		types.StakedEventType,
		types.RewardsClaimedEventType,
		types.RateUpdatedEventType,
		types.UnstakedEventType,
	}, eventTypes(events))
	for i, ev := range events {
		require.Equal(t, uint64(i+1), ev.Seq)
	}
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, 10, 10_000, map[string][]uint64{aliceAddr: {1, 2}, bobAddr: {3}})

	require.NoError(t, env.ledger.Stake(ctx, aliceAddr, []uint64{1, 2}))
	env.clock.Advance(30)
	require.NoError(t, env.ledger.Stake(ctx, bobAddr, []uint64{3}))
	env.clock.Advance(20)
	_, err := env.ledger.ClaimRewards(ctx, aliceAddr)
	require.NoError(t, err)
	require.NoError(t, env.ledger.Pause())

	snap := env.ledger.Snapshot()
	require.Len(t, snap.Records, 3)
	require.True(t, snap.Paused)

	// Restore into a fresh ledger against the same collaborators.
	restored, err := New(Params{VaultAddress: vaultAddr, OwnerAddress: adminAddr, InitialRate: big.NewInt(1)},
		env.clock, env.cust, env.rewards, env.sink)
	require.NoError(t, err)
	require.NoError(t, restored.Restore(snap))
	checkInvariants(t, restored)

	require.Equal(t, env.ledger.TotalStaked(), restored.TotalStaked())
	require.Equal(t, env.ledger.RewardRate(), restored.RewardRate())
	require.True(t, restored.Paused())
	require.ElementsMatch(t, env.ledger.UserStakedTokens(aliceAddr), restored.UserStakedTokens(aliceAddr))

	env.clock.Advance(40)
	wantAlice, err := env.ledger.PendingReward(aliceAddr)
	require.NoError(t, err)
	gotAlice, err := restored.PendingReward(aliceAddr)
	require.NoError(t, err)
	require.Equal(t, wantAlice, gotAlice)

	// The journal continues after the last persisted sequence number.
	require.NoError(t, restored.Unpause())
	require.NoError(t, restored.SetRewardRate(big.NewInt(2)))
	events := env.sink.all()
	require.Equal(t, snap.LastEventSeq+1, events[len(events)-1].Seq)
}

func TestRestoreRejectsBadSnapshots(t *testing.T) {
	fresh := func(t *testing.T) *Ledger {
		t.Helper()
		return newTestEnv(t, 10, 0, nil).ledger
	}

	err := fresh(t).Restore(Snapshot{Records: []StakeRecord{
		{Owner: aliceAddr, TokenID: 1, StakedAt: t0, LastAccrualCheckpoint: t0},
		{Owner: bobAddr, TokenID: 1, StakedAt: t0, LastAccrualCheckpoint: t0},
	}})
	require.ErrorIs(t, err, ErrAlreadyStaked)

	err = fresh(t).Restore(Snapshot{Records: []StakeRecord{
		{Owner: aliceAddr, TokenID: 1, StakedAt: t0, LastAccrualCheckpoint: t0 - 1},
	}})
	require.Error(t, err)

	err = fresh(t).Restore(Snapshot{Records: []StakeRecord{
		{Owner: "not-an-address", TokenID: 1, StakedAt: t0, LastAccrualCheckpoint: t0},
	}})
	require.Error(t, err)

	err = fresh(t).Restore(Snapshot{RewardRate: big.NewInt(-1)})
	require.ErrorIs(t, err, ErrInvalidRate)

	env := newTestEnv(t, 10, 0, map[string][]uint64{aliceAddr: {1}})
	require.NoError(t, env.ledger.Stake(context.Background(), aliceAddr, []uint64{1}))
	require.Error(t, env.ledger.Restore(Snapshot{}))
}

func TestNewValidatesParams(t *testing.T) {
	clock := NewManualClock(t0)
	cust, err := custodian.NewMemoryClient(nil)
	require.NoError(t, err)
	rewards, err := rewardledger.NewMemoryClient(vaultAddr, nil)
	require.NoError(t, err)

	_, err = New(Params{VaultAddress: "bogus", OwnerAddress: adminAddr}, clock, cust, rewards, nil)
	require.Error(t, err)

	_, err = New(Params{VaultAddress: vaultAddr, OwnerAddress: "bogus"}, clock, cust, rewards, nil)
	require.Error(t, err)

	_, err = New(Params{VaultAddress: vaultAddr, OwnerAddress: adminAddr, InitialRate: big.NewInt(-1)},
		clock, cust, rewards, nil)
	require.ErrorIs(t, err, ErrInvalidRate)

	_, err = New(Params{VaultAddress: vaultAddr, OwnerAddress: adminAddr}, nil, cust, rewards, nil)
	require.Error(t, err)

	_, err = New(Params{VaultAddress: vaultAddr, OwnerAddress: adminAddr}, clock, nil, rewards, nil)
	require.Error(t, err)

	_, err = New(Params{VaultAddress: vaultAddr, OwnerAddress: adminAddr}, clock, cust, nil, nil)
	require.Error(t, err)

	// Addresses are normalized to lower case.
	l, err := New(Params{
		VaultAddress: "0x00000000000000000000000000000000000000AA",
		OwnerAddress: adminAddr,
		InitialRate:  big.NewInt(1),
	}, clock, cust, rewards, nil)
	require.NoError(t, err)
	require.Equal(t, vaultAddr, l.VaultAddress())
}

func TestStatsReportsLiveBalance(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, 10, 5_000, map[string][]uint64{aliceAddr: {1}})

	require.NoError(t, env.ledger.Stake(ctx, aliceAddr, []uint64{1}))
	stats, err := env.ledger.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(1), stats.TotalStaked)
	require.Equal(t, int64(10), stats.RewardRate.Int64())
	require.False(t, stats.Paused)
	require.Equal(t, int64(5_000), stats.RewardBalance.Int64())
}
