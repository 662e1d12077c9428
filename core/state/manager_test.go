package state

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"missionledger/native/missions"
	"missionledger/storage"
)

func addr(b byte) [20]byte {
	var a [20]byte
	a[19] = b
	return a
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	manager := NewManager(storage.NewMemDB())
	require.NoError(t, manager.InitGenesis(addr(1), addr(2), 100))
	return manager
}

func TestInitGenesisOnce(t *testing.T) {
	manager := NewManager(storage.NewMemDB())

	ok, err := manager.Initialized()
	require.NoError(t, err)
	require.False(t, ok)

	_, err = manager.ContractOwner()
	require.ErrorIs(t, err, ErrNotInitialized)

	require.NoError(t, manager.InitGenesis(addr(1), addr(2), 100))
	require.ErrorIs(t, manager.InitGenesis(addr(1), addr(2), 100), ErrAlreadyInitialized)

	owner, err := manager.ContractOwner()
	require.NoError(t, err)
	require.Equal(t, addr(1), owner)

	distributor, err := manager.RewardDistributor()
	require.NoError(t, err)
	require.Equal(t, addr(2), distributor)

	multiplier, err := manager.GlobalMultiplier()
	require.NoError(t, err)
	require.Equal(t, uint64(100), multiplier)
}

func TestInitGenesisRejectsBadMultiplier(t *testing.T) {
	manager := NewManager(storage.NewMemDB())
	require.Error(t, manager.InitGenesis(addr(1), addr(2), 10))
}

func TestMissionRoundTrip(t *testing.T) {
	manager := newTestManager(t)

	token := addr(9)
	mission := &missions.Mission{
		ID:                7,
		Creator:           addr(3),
		FundingToken:      token[:],
		TokenAmount:       big.NewInt(5000),
		AmountDistributed: big.NewInt(120),
		TotalPoints:       5000,
		PointsDistributed: 120,
		StartTime:         100,
		EndTime:           100 + missions.MinMissionDuration,
		CreatedAt:         90,
		Finalized:         true,
	}
	require.NoError(t, manager.MissionPut(mission))

	decoded, ok, err := manager.MissionGet(7)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, mission.Creator, decoded.Creator)
	require.Equal(t, mission.FundingToken, decoded.FundingToken)
	require.Zero(t, mission.TokenAmount.Cmp(decoded.TokenAmount))
	require.Zero(t, mission.AmountDistributed.Cmp(decoded.AmountDistributed))
	require.True(t, decoded.Finalized)

	_, ok, err = manager.MissionGet(8)
	require.NoError(t, err)
	require.False(t, ok)

	count, err := manager.MissionCounter()
	require.NoError(t, err)
	require.Zero(t, count)
	require.NoError(t, manager.SetMissionCounter(7))
	count, err = manager.MissionCounter()
	require.NoError(t, err)
	require.Equal(t, uint64(7), count)
}

func TestMissionPutMaintainsCreatorAccount(t *testing.T) {
	manager := newTestManager(t)
	creator := addr(3)
	token := addr(9)

	mission := &missions.Mission{
		ID:                1,
		Creator:           creator,
		TokenAmount:       big.NewInt(300),
		AmountDistributed: big.NewInt(0),
		TotalPoints:       300,
	}
	require.NoError(t, manager.MissionPut(mission))

	account, err := manager.GetAccount(creator)
	require.NoError(t, err)
	require.Equal(t, uint64(1), account.MissionsOpened)
	require.Zero(t, account.TotalEscrowed.Cmp(big.NewInt(300)))

	// Updating the same record must not double-count.
	mission.PointsDistributed = 50
	require.NoError(t, manager.MissionPut(mission))
	account, err = manager.GetAccount(creator)
	require.NoError(t, err)
	require.Equal(t, uint64(1), account.MissionsOpened)
	require.Zero(t, account.TotalEscrowed.Cmp(big.NewInt(300)))

	// Token-funded missions count as opened but escrow under token keys.
	require.NoError(t, manager.MissionPut(&missions.Mission{
		ID:                2,
		Creator:           creator,
		FundingToken:      token[:],
		TokenAmount:       big.NewInt(700),
		AmountDistributed: big.NewInt(0),
		TotalPoints:       700,
	}))
	account, err = manager.GetAccount(creator)
	require.NoError(t, err)
	require.Equal(t, uint64(2), account.MissionsOpened)
	require.Zero(t, account.TotalEscrowed.Cmp(big.NewInt(300)))
}

func TestAllowlist(t *testing.T) {
	manager := newTestManager(t)
	token := addr(9)

	allowed, err := manager.TokenAllowed(token)
	require.NoError(t, err)
	require.False(t, allowed)

	require.NoError(t, manager.SetTokenAllowed(token, true))
	allowed, err = manager.TokenAllowed(token)
	require.NoError(t, err)
	require.True(t, allowed)

	require.NoError(t, manager.SetTokenAllowed(token, false))
	allowed, err = manager.TokenAllowed(token)
	require.NoError(t, err)
	require.False(t, allowed)
}

func TestTransferNative(t *testing.T) {
	manager := newTestManager(t)
	from, to := addr(3), addr(4)
	require.NoError(t, manager.Credit(nil, from, big.NewInt(1000)))

	require.ErrorIs(t, manager.Transfer(nil, from, to, big.NewInt(2000)), ErrInsufficientBalance)
	require.NoError(t, manager.Transfer(nil, from, to, big.NewInt(400)))

	fromBalance, err := manager.TokenBalance(nil, from)
	require.NoError(t, err)
	require.Zero(t, fromBalance.Cmp(big.NewInt(600)))
	toBalance, err := manager.TokenBalance(nil, to)
	require.NoError(t, err)
	require.Zero(t, toBalance.Cmp(big.NewInt(400)))
}

func TestTransferToken(t *testing.T) {
	manager := newTestManager(t)
	tokenAddr := addr(9)
	token := tokenAddr[:]
	from, to := addr(3), addr(4)
	require.NoError(t, manager.Credit(token, from, big.NewInt(50)))

	require.ErrorIs(t, manager.Transfer(token, from, to, big.NewInt(51)), ErrInsufficientBalance)
	require.NoError(t, manager.Transfer(token, from, to, big.NewInt(50)))

	balance, err := manager.TokenBalance(token, to)
	require.NoError(t, err)
	require.Zero(t, balance.Cmp(big.NewInt(50)))

	// Token balances must not bleed into the native ledger.
	native, err := manager.TokenBalance(nil, to)
	require.NoError(t, err)
	require.Zero(t, native.Sign())
}

func TestSnapshotRevert(t *testing.T) {
	manager := newTestManager(t)
	from, to := addr(3), addr(4)
	require.NoError(t, manager.Credit(nil, from, big.NewInt(1000)))
	require.NoError(t, manager.MissionPut(&missions.Mission{
		ID:                1,
		TokenAmount:       big.NewInt(0),
		AmountDistributed: big.NewInt(0),
		TotalPoints:       100,
	}))

	revision := manager.Snapshot()
	require.NoError(t, manager.Transfer(nil, from, to, big.NewInt(700)))
	require.NoError(t, manager.MissionPut(&missions.Mission{
		ID:                1,
		TokenAmount:       big.NewInt(0),
		AmountDistributed: big.NewInt(0),
		TotalPoints:       100,
		PointsDistributed: 40,
	}))
	require.NoError(t, manager.SetPointsBalance(addr(5), 40))

	manager.RevertToSnapshot(revision)

	balance, err := manager.TokenBalance(nil, from)
	require.NoError(t, err)
	require.Zero(t, balance.Cmp(big.NewInt(1000)))
	mission, ok, err := manager.MissionGet(1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Zero(t, mission.PointsDistributed)
	points, err := manager.PointsBalance(addr(5))
	require.NoError(t, err)
	require.Zero(t, points)
}

func TestSnapshotCompletedOpKeepsWrites(t *testing.T) {
	manager := newTestManager(t)
	_ = manager.Snapshot()
	require.NoError(t, manager.SetPointsBalance(addr(5), 40))

	// A later operation opening its own scope must not disturb the
	// completed one.
	next := manager.Snapshot()
	require.NoError(t, manager.SetPointsBalance(addr(5), 90))
	manager.RevertToSnapshot(next)

	points, err := manager.PointsBalance(addr(5))
	require.NoError(t, err)
	require.Equal(t, uint64(40), points)
}

func TestDiscardSnapshotKeepsWrites(t *testing.T) {
	manager := newTestManager(t)
	revision := manager.Snapshot()
	require.NoError(t, manager.SetPointsBalance(addr(5), 40))
	manager.DiscardSnapshot(revision)

	// The scope is closed: its writes stick and later ones are not journaled.
	require.NoError(t, manager.SetPointsBalance(addr(5), 90))
	manager.RevertToSnapshot(revision)

	points, err := manager.PointsBalance(addr(5))
	require.NoError(t, err)
	require.Equal(t, uint64(90), points)

	// Discarding a stale revision must not close a live scope.
	next := manager.Snapshot()
	require.NoError(t, manager.SetPointsBalance(addr(5), 120))
	manager.DiscardSnapshot(revision)
	manager.RevertToSnapshot(next)
	points, err = manager.PointsBalance(addr(5))
	require.NoError(t, err)
	require.Equal(t, uint64(90), points)
}

func TestPointsLedgerState(t *testing.T) {
	manager := newTestManager(t)
	user := addr(5)

	points, err := manager.PointsBalance(user)
	require.NoError(t, err)
	require.Zero(t, points)
	require.NoError(t, manager.SetPointsBalance(user, 250))
	points, err = manager.PointsBalance(user)
	require.NoError(t, err)
	require.Equal(t, uint64(250), points)

	require.NoError(t, manager.SetTotalPointsIssued(250))
	issued, err := manager.TotalPointsIssued()
	require.NoError(t, err)
	require.Equal(t, uint64(250), issued)

	ok, err := manager.IssuerAuthorized(user)
	require.NoError(t, err)
	require.False(t, ok)
	require.NoError(t, manager.SetIssuerAuthorized(user, true))
	ok, err = manager.IssuerAuthorized(user)
	require.NoError(t, err)
	require.True(t, ok)

	ids, err := manager.UserAchievements(user)
	require.NoError(t, err)
	require.Empty(t, ids)
	require.NoError(t, manager.SetUserAchievements(user, []uint32{1, 2}))
	ids, err = manager.UserAchievements(user)
	require.NoError(t, err)
	require.Equal(t, []uint32{1, 2}, ids)
}
