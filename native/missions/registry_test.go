package missions

import (
	"errors"
	"fmt"
	"math/big"
	"testing"
)

type mockMover struct {
	balances map[string]map[[20]byte]*big.Int
	failOn   int
	calls    int
}

func newMockMover() *mockMover {
	return &mockMover{balances: make(map[string]map[[20]byte]*big.Int)}
}

func (m *mockMover) credit(token []byte, addr [20]byte, amount int64) {
	bucket, ok := m.balances[string(token)]
	if !ok {
		bucket = make(map[[20]byte]*big.Int)
		m.balances[string(token)] = bucket
	}
	current, ok := bucket[addr]
	if !ok {
		current = big.NewInt(0)
	}
	bucket[addr] = new(big.Int).Add(current, big.NewInt(amount))
}

func (m *mockMover) balance(token []byte, addr [20]byte) *big.Int {
	bucket, ok := m.balances[string(token)]
	if !ok {
		return big.NewInt(0)
	}
	if amount, ok := bucket[addr]; ok {
		return new(big.Int).Set(amount)
	}
	return big.NewInt(0)
}

func (m *mockMover) Transfer(token []byte, from, to [20]byte, amount *big.Int) error {
	m.calls++
	if m.failOn > 0 && m.calls == m.failOn {
		return fmt.Errorf("mover: injected failure")
	}
	have := m.balance(token, from)
	if have.Cmp(amount) < 0 {
		return fmt.Errorf("mover: insufficient balance")
	}
	bucket := m.balances[string(token)]
	bucket[from] = new(big.Int).Sub(have, amount)
	toBalance, ok := bucket[to]
	if !ok {
		toBalance = big.NewInt(0)
	}
	bucket[to] = new(big.Int).Add(toBalance, amount)
	return nil
}

func (m *mockMover) snapshot() map[string]map[[20]byte]*big.Int {
	copied := make(map[string]map[[20]byte]*big.Int, len(m.balances))
	for token, bucket := range m.balances {
		inner := make(map[[20]byte]*big.Int, len(bucket))
		for addr, amount := range bucket {
			inner[addr] = new(big.Int).Set(amount)
		}
		copied[token] = inner
	}
	return copied
}

type mockState struct {
	owner       [20]byte
	distributor [20]byte
	counter     uint64
	missions    map[uint64]*Mission
	allowed     map[[20]byte]bool
	mover       *mockMover

	savedMissions map[uint64]*Mission
	savedBalances map[string]map[[20]byte]*big.Int
	revision      int
	discards      int
}

func newMockState(owner, distributor [20]byte) *mockState {
	return &mockState{
		owner:       owner,
		distributor: distributor,
		missions:    make(map[uint64]*Mission),
		allowed:     make(map[[20]byte]bool),
		mover:       newMockMover(),
	}
}

func (m *mockState) ContractOwner() ([20]byte, error)     { return m.owner, nil }
func (m *mockState) RewardDistributor() ([20]byte, error) { return m.distributor, nil }

func (m *mockState) SetRewardDistributor(addr [20]byte) error {
	m.distributor = addr
	return nil
}

func (m *mockState) MissionCounter() (uint64, error) { return m.counter, nil }

func (m *mockState) SetMissionCounter(count uint64) error {
	m.counter = count
	return nil
}

func (m *mockState) MissionGet(id uint64) (*Mission, bool, error) {
	mission, ok := m.missions[id]
	if !ok {
		return nil, false, nil
	}
	return mission.Clone(), true, nil
}

func (m *mockState) MissionPut(mission *Mission) error {
	m.missions[mission.ID] = mission.Clone()
	return nil
}

func (m *mockState) TokenAllowed(token [20]byte) (bool, error) {
	return m.allowed[token], nil
}

func (m *mockState) SetTokenAllowed(token [20]byte, allowed bool) error {
	if allowed {
		m.allowed[token] = true
	} else {
		delete(m.allowed, token)
	}
	return nil
}

func (m *mockState) Snapshot() int {
	m.savedMissions = make(map[uint64]*Mission, len(m.missions))
	for id, mission := range m.missions {
		m.savedMissions[id] = mission.Clone()
	}
	m.savedBalances = m.mover.snapshot()
	m.revision++
	return m.revision
}

func (m *mockState) RevertToSnapshot(revision int) {
	if revision != m.revision || m.savedMissions == nil {
		return
	}
	m.missions = m.savedMissions
	m.mover.balances = m.savedBalances
	m.savedMissions = nil
	m.savedBalances = nil
}

func (m *mockState) DiscardSnapshot(revision int) {
	if revision != m.revision || m.savedMissions == nil {
		return
	}
	m.savedMissions = nil
	m.savedBalances = nil
	m.discards++
}

func addr(b byte) [20]byte {
	var a [20]byte
	a[19] = b
	return a
}

func newTestRegistry(st *mockState, now uint64) *Registry {
	registry := NewRegistry(st, st.mover)
	registry.SetNowFunc(func() uint64 { return now })
	return registry
}

func TestCreateMissionPointsOnlyRequiresOwner(t *testing.T) {
	owner := addr(1)
	st := newMockState(owner, addr(2))
	registry := newTestRegistry(st, 100)

	_, err := registry.CreateMission(addr(9), nil, big.NewInt(0), 1000, 110, 110+MinMissionDuration)
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	id, err := registry.CreateMission(owner, nil, big.NewInt(0), 1000, 110, 110+MinMissionDuration)
	if err != nil {
		t.Fatalf("owner create failed: %v", err)
	}
	if id != 1 {
		t.Fatalf("expected mission id 1, got %d", id)
	}
	count, err := registry.MissionCount()
	if err != nil || count != 1 {
		t.Fatalf("expected count 1, got %d (%v)", count, err)
	}
	mission, ok, err := registry.GetMission(1)
	if err != nil || !ok {
		t.Fatalf("mission not stored: %v", err)
	}
	if mission.Finalized {
		t.Fatal("new mission must not be finalized")
	}
	if mission.CreatedAt != 100 {
		t.Fatalf("expected createdAt 100, got %d", mission.CreatedAt)
	}
	if mission.TotalPoints != 1000 || mission.PointsDistributed != 0 {
		t.Fatalf("unexpected points budget: %+v", mission)
	}
}

func TestCreateMissionTimeValidation(t *testing.T) {
	owner := addr(1)
	st := newMockState(owner, addr(2))
	registry := newTestRegistry(st, 100)

	cases := []struct {
		name    string
		start   uint64
		end     uint64
		wantErr error
	}{
		{"start in past", 99, 99 + MinMissionDuration, ErrStartTimeInPast},
		{"start equals end", 100, 100, ErrInvalidTimeRange},
		{"start after end", 200, 150, ErrInvalidTimeRange},
		{"too short", 100, 100 + MinMissionDuration - 1, ErrMissionTooShort},
		{"exactly minimum", 100, 100 + MinMissionDuration, nil},
	}
	for _, tc := range cases {
		_, err := registry.CreateMission(owner, nil, big.NewInt(0), 500, tc.start, tc.end)
		if tc.wantErr == nil {
			if err != nil {
				t.Fatalf("%s: unexpected error %v", tc.name, err)
			}
			continue
		}
		if !errors.Is(err, tc.wantErr) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.wantErr, err)
		}
	}
}

func TestCreateMissionFundedPinsPointsToAmount(t *testing.T) {
	owner := addr(1)
	creator := addr(3)
	st := newMockState(owner, addr(2))
	registry := newTestRegistry(st, 100)
	st.mover.credit(nil, creator, 10_000)

	for _, points := range []uint64{499, 501} {
		_, err := registry.CreateMission(creator, nil, big.NewInt(500), points, 100, 100+MinMissionDuration)
		if !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("points=%d: expected ErrInvalidAmount, got %v", points, err)
		}
	}
	id, err := registry.CreateMission(creator, nil, big.NewInt(500), 500, 100, 100+MinMissionDuration)
	if err != nil {
		t.Fatalf("funded create failed: %v", err)
	}
	vault := VaultAddress(id)
	if got := st.mover.balance(nil, vault); got.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("expected 500 escrowed, got %s", got)
	}
	if got := st.mover.balance(nil, creator); got.Cmp(big.NewInt(9_500)) != 0 {
		t.Fatalf("expected creator debited to 9500, got %s", got)
	}
}

func TestCreateMissionTokenAllowlist(t *testing.T) {
	owner := addr(1)
	creator := addr(3)
	token := addr(7)
	st := newMockState(owner, addr(2))
	registry := newTestRegistry(st, 100)

	_, err := registry.CreateMission(creator, token[:], big.NewInt(100), 100, 100, 100+MinMissionDuration)
	if !errors.Is(err, ErrTokenNotAllowed) {
		t.Fatalf("expected ErrTokenNotAllowed, got %v", err)
	}

	if err := registry.AddAllowedToken(owner, token); err != nil {
		t.Fatalf("add token: %v", err)
	}
	// Allow-listed but the creator holds none of the token.
	_, err = registry.CreateMission(creator, token[:], big.NewInt(100), 100, 100, 100+MinMissionDuration)
	if !errors.Is(err, ErrTransferFailed) {
		t.Fatalf("expected ErrTransferFailed, got %v", err)
	}
	if count, _ := registry.MissionCount(); count != 0 {
		t.Fatalf("failed create must not allocate ids, counter=%d", count)
	}

	st.mover.credit(token[:], creator, 100)
	id, err := registry.CreateMission(creator, token[:], big.NewInt(100), 100, 100, 100+MinMissionDuration)
	if err != nil {
		t.Fatalf("token create failed: %v", err)
	}
	if got := st.mover.balance(token[:], VaultAddress(id)); got.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("expected token escrow 100, got %s", got)
	}
}

func TestAllowlistOwnerGatedAndIdempotent(t *testing.T) {
	owner := addr(1)
	token := addr(7)
	st := newMockState(owner, addr(2))
	registry := newTestRegistry(st, 100)

	if err := registry.AddAllowedToken(addr(9), token); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := registry.AddAllowedToken(owner, token); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := registry.AddAllowedToken(owner, token); err != nil {
		t.Fatalf("duplicate add must succeed: %v", err)
	}
	allowed, err := registry.IsTokenAllowed(token)
	if err != nil || !allowed {
		t.Fatalf("token should be allowed: %v", err)
	}
	if err := registry.RemoveAllowedToken(owner, token); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := registry.RemoveAllowedToken(owner, token); err != nil {
		t.Fatalf("duplicate remove must succeed: %v", err)
	}
	allowed, err = registry.IsTokenAllowed(token)
	if err != nil || allowed {
		t.Fatalf("token should not be allowed: %v", err)
	}
}

func TestSetRewardDistributor(t *testing.T) {
	owner := addr(1)
	st := newMockState(owner, addr(2))
	registry := newTestRegistry(st, 100)

	if err := registry.SetRewardDistributor(addr(9), addr(4)); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := registry.SetRewardDistributor(owner, addr(4)); err != nil {
		t.Fatalf("rotate distributor: %v", err)
	}
	if st.distributor != addr(4) {
		t.Fatalf("distributor not replaced: %x", st.distributor)
	}
}

func TestIsMissionActiveDerived(t *testing.T) {
	owner := addr(1)
	st := newMockState(owner, addr(2))
	registry := newTestRegistry(st, 100)

	id, err := registry.CreateMission(owner, nil, big.NewInt(0), 100, 200, 200+MinMissionDuration)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if active, _ := registry.IsMissionActive(999); active {
		t.Fatal("unknown mission must be inactive")
	}
	checks := []struct {
		now  uint64
		want bool
	}{
		{199, false},
		{200, true},
		{200 + MinMissionDuration - 1, true},
		{200 + MinMissionDuration, false},
	}
	for _, tc := range checks {
		registry.SetNowFunc(func() uint64 { return tc.now })
		active, err := registry.IsMissionActive(id)
		if err != nil {
			t.Fatalf("now=%d: %v", tc.now, err)
		}
		if active != tc.want {
			t.Fatalf("now=%d: expected active=%v", tc.now, tc.want)
		}
	}

	mission, _, _ := st.MissionGet(id)
	mission.Finalized = true
	_ = st.MissionPut(mission)
	registry.SetNowFunc(func() uint64 { return 200 })
	if active, _ := registry.IsMissionActive(id); active {
		t.Fatal("finalized mission must be inactive")
	}
}

func TestErrorCodes(t *testing.T) {
	cases := map[error]int{
		ErrUnauthorized:      100,
		ErrInvalidAddress:    101,
		ErrMissionNotFound:   104,
		ErrInvalidAmount:     105,
		ErrInvalidTitle:      106,
		ErrInvalidTimeRange:  107,
		ErrTransferFailed:    108,
		ErrTokenNotAllowed:   109,
		ErrMissionFinalized:  110,
		ErrMissionNotActive:  111,
		ErrInsufficientFunds: 112,
		ErrStartTimeInPast:   113,
		ErrMissionTooShort:   114,
	}
	for err, want := range cases {
		code, ok := Code(err)
		if !ok || code != want {
			t.Fatalf("%v: expected code %d, got %d (%v)", err, want, code, ok)
		}
	}
	if _, ok := Code(errors.New("other")); ok {
		t.Fatal("foreign errors must not map to a code")
	}
	if code, ok := Code(fmt.Errorf("wrap: %w", ErrTransferFailed)); !ok || code != 108 {
		t.Fatalf("wrapped error must map, got %d (%v)", code, ok)
	}
}
