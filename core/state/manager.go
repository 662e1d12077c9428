package state

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/rlp"

	"missionledger/core/types"
	"missionledger/native/missions"
	"missionledger/storage"
)

var (
	// ErrAlreadyInitialized guards the one-shot genesis write.
	ErrAlreadyInitialized = errors.New("state: already initialized")
	// ErrNotInitialized is returned when config reads precede genesis.
	ErrNotInitialized = errors.New("state: not initialized")
	// ErrInsufficientBalance is returned by the token mover when the payer
	// cannot cover the transfer.
	ErrInsufficientBalance = errors.New("state: insufficient balance")
)

var (
	keyOwner          = []byte("config/owner")
	keyDistributor    = []byte("config/distributor")
	keyMultiplier     = []byte("config/multiplier")
	keyMissionCounter = []byte("missions/counter")
	keyTotalIssued    = []byte("points/total")
	keyChainHeight    = []byte("chain/height")

	missionPrefix      = []byte("missions/record/")
	allowlistPrefix    = []byte("missions/allowlist/")
	accountPrefix      = []byte("accounts/")
	tokenBalancePrefix = []byte("balances/token/")
	pointsPrefix       = []byte("points/balance/")
	issuerPrefix       = []byte("points/issuer/")
	achievementsPrefix = []byte("points/achievements/")
)

type journalEntry struct {
	key     string
	prev    []byte
	existed bool
}

// Manager owns every keyed record of the engine on top of a storage.Database.
// All values are RLP encoded except raw 20-byte addresses. A single mutex
// keeps individual accessors race-free; operation-level atomicity comes from
// the single-writer-per-call discipline enforced by the caller, plus the undo
// journal exposed through Snapshot/RevertToSnapshot for batched payouts.
type Manager struct {
	mu sync.Mutex
	db storage.Database

	journal  []journalEntry
	armed    bool
	revision int
}

// NewManager wraps the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

// InitGenesis seeds the owner, distributor and multiplier exactly once.
func (m *Manager) InitGenesis(owner, distributor [20]byte, multiplier uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	exists, err := m.db.Has(keyOwner)
	if err != nil {
		return err
	}
	if exists {
		return ErrAlreadyInitialized
	}
	if multiplier < 50 || multiplier > 500 {
		return fmt.Errorf("state: genesis multiplier %d out of range", multiplier)
	}
	if err := m.put(keyOwner, owner[:]); err != nil {
		return err
	}
	if err := m.put(keyDistributor, distributor[:]); err != nil {
		return err
	}
	return m.putUint64(keyMultiplier, multiplier)
}

// Initialized reports whether genesis has been applied.
func (m *Manager) Initialized() (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.db.Has(keyOwner)
}

// --- Snapshot journal ---

// Snapshot opens a new undo scope and returns its revision token. Scopes do
// not nest: each engine operation opens at most one, and opening a scope
// discards any stale journal from a completed predecessor.
func (m *Manager) Snapshot() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.journal = m.journal[:0]
	m.armed = true
	m.revision++
	return m.revision
}

// RevertToSnapshot undoes every write recorded since the matching Snapshot
// call. Reverting a stale revision is a no-op.
func (m *Manager) RevertToSnapshot(revision int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.armed || revision != m.revision {
		return
	}
	for i := len(m.journal) - 1; i >= 0; i-- {
		entry := m.journal[i]
		if entry.existed {
			_ = m.db.Put([]byte(entry.key), entry.prev)
		} else {
			_ = m.db.Delete([]byte(entry.key))
		}
	}
	m.journal = m.journal[:0]
	m.armed = false
}

// DiscardSnapshot closes the scope opened by the matching Snapshot call while
// keeping its writes. The journal is released and later writes are no longer
// recorded, so a long run of non-batched operations does not accumulate undo
// entries. Discarding a stale revision is a no-op.
func (m *Manager) DiscardSnapshot(revision int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.armed || revision != m.revision {
		return
	}
	m.journal = m.journal[:0]
	m.armed = false
}

func (m *Manager) record(key []byte) error {
	if !m.armed {
		return nil
	}
	prev, err := m.db.Get(key)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return err
	}
	m.journal = append(m.journal, journalEntry{
		key:     string(key),
		prev:    prev,
		existed: err == nil,
	})
	return nil
}

func (m *Manager) put(key, value []byte) error {
	if err := m.record(key); err != nil {
		return err
	}
	return m.db.Put(key, value)
}

func (m *Manager) delete(key []byte) error {
	if err := m.record(key); err != nil {
		return err
	}
	return m.db.Delete(key)
}

func (m *Manager) putUint64(key []byte, value uint64) error {
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	return m.put(key, encoded)
}

func (m *Manager) getUint64(key []byte) (uint64, error) {
	raw, err := m.db.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	var value uint64
	if err := rlp.DecodeBytes(raw, &value); err != nil {
		return 0, err
	}
	return value, nil
}

func (m *Manager) getAddress(key []byte) ([20]byte, error) {
	var addr [20]byte
	raw, err := m.db.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return addr, ErrNotInitialized
	}
	if err != nil {
		return addr, err
	}
	copy(addr[:], raw)
	return addr, nil
}

func prefixedKey(prefix []byte, suffix []byte) []byte {
	key := make([]byte, len(prefix)+len(suffix))
	copy(key, prefix)
	copy(key[len(prefix):], suffix)
	return key
}

// ChainHeight returns the last persisted block height. A fresh store starts
// at zero.
func (m *Manager) ChainHeight() (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getUint64(keyChainHeight)
}

// SetChainHeight persists the current block height so restarts resume the
// counter instead of rewinding mission time. The write bypasses the undo
// journal: height advances from the ticker goroutine and must survive an
// operation revert.
func (m *Manager) SetChainHeight(height uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	encoded, err := rlp.EncodeToBytes(height)
	if err != nil {
		return err
	}
	return m.db.Put(keyChainHeight, encoded)
}

// --- Identity & config ---

func (m *Manager) ContractOwner() ([20]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getAddress(keyOwner)
}

func (m *Manager) RewardDistributor() ([20]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getAddress(keyDistributor)
}

func (m *Manager) SetRewardDistributor(addr [20]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.put(keyDistributor, addr[:])
}

func (m *Manager) GlobalMultiplier() (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, err := m.getUint64(keyMultiplier)
	if err != nil {
		return 0, err
	}
	if value == 0 {
		return 0, ErrNotInitialized
	}
	return value, nil
}

func (m *Manager) SetGlobalMultiplier(value uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.putUint64(keyMultiplier, value)
}

// --- Mission registry ---

func missionKey(id uint64) []byte {
	encoded, _ := rlp.EncodeToBytes(id)
	return prefixedKey(missionPrefix, encoded)
}

func (m *Manager) MissionCounter() (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getUint64(keyMissionCounter)
}

func (m *Manager) SetMissionCounter(count uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.putUint64(keyMissionCounter, count)
}

func (m *Manager) MissionGet(id uint64) (*missions.Mission, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, err := m.db.Get(missionKey(id))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	mission := new(missions.Mission)
	if err := rlp.DecodeBytes(raw, mission); err != nil {
		return nil, false, err
	}
	return mission, true, nil
}

func (m *Manager) MissionPut(mission *missions.Mission) error {
	if mission == nil {
		return errors.New("state: nil mission")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := missionKey(mission.ID)
	exists, err := m.db.Has(key)
	if err != nil {
		return err
	}
	encoded, err := rlp.EncodeToBytes(mission)
	if err != nil {
		return err
	}
	if err := m.put(key, encoded); err != nil {
		return err
	}
	if exists {
		return nil
	}
	// First write of this record: reflect the opened mission on the
	// creator's account. TotalEscrowed counts native currency only; token
	// escrow lives under the per-token balance keys.
	account, err := m.getAccount(mission.Creator)
	if err != nil {
		return err
	}
	account.MissionsOpened++
	if len(mission.FundingToken) == 0 && mission.TokenAmount != nil {
		account.TotalEscrowed = new(big.Int).Add(account.TotalEscrowed, mission.TokenAmount)
	}
	return m.putAccount(mission.Creator, account)
}

func (m *Manager) TokenAllowed(token [20]byte) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.db.Has(prefixedKey(allowlistPrefix, token[:]))
}

func (m *Manager) SetTokenAllowed(token [20]byte, allowed bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := prefixedKey(allowlistPrefix, token[:])
	if allowed {
		return m.put(key, []byte{1})
	}
	return m.delete(key)
}

// --- Accounts & token mover ---

func (m *Manager) GetAccount(addr [20]byte) (*types.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getAccount(addr)
}

func (m *Manager) getAccount(addr [20]byte) (*types.Account, error) {
	raw, err := m.db.Get(prefixedKey(accountPrefix, addr[:]))
	if errors.Is(err, storage.ErrNotFound) {
		return (&types.Account{}).EnsureDefaults(), nil
	}
	if err != nil {
		return nil, err
	}
	account := new(types.Account)
	if err := rlp.DecodeBytes(raw, account); err != nil {
		return nil, err
	}
	return account.EnsureDefaults(), nil
}

func (m *Manager) PutAccount(addr [20]byte, account *types.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.putAccount(addr, account)
}

func (m *Manager) putAccount(addr [20]byte, account *types.Account) error {
	encoded, err := rlp.EncodeToBytes(account.EnsureDefaults())
	if err != nil {
		return err
	}
	return m.put(prefixedKey(accountPrefix, addr[:]), encoded)
}

func tokenBalanceKey(token []byte, addr [20]byte) []byte {
	key := make([]byte, 0, len(tokenBalancePrefix)+len(token)+1+len(addr))
	key = append(key, tokenBalancePrefix...)
	key = append(key, token...)
	key = append(key, '/')
	key = append(key, addr[:]...)
	return key
}

// TokenBalance returns the balance of addr in the given token, or the native
// balance when token is empty.
func (m *Manager) TokenBalance(token []byte, addr [20]byte) (*big.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tokenBalance(token, addr)
}

func (m *Manager) tokenBalance(token []byte, addr [20]byte) (*big.Int, error) {
	if len(token) == 0 {
		account, err := m.getAccount(addr)
		if err != nil {
			return nil, err
		}
		return new(big.Int).Set(account.BalanceNative), nil
	}
	raw, err := m.db.Get(tokenBalanceKey(token, addr))
	if errors.Is(err, storage.ErrNotFound) {
		return big.NewInt(0), nil
	}
	if err != nil {
		return nil, err
	}
	balance := new(big.Int)
	if err := rlp.DecodeBytes(raw, balance); err != nil {
		return nil, err
	}
	return balance, nil
}

func (m *Manager) setTokenBalance(token []byte, addr [20]byte, balance *big.Int) error {
	if len(token) == 0 {
		account, err := m.getAccount(addr)
		if err != nil {
			return err
		}
		account.BalanceNative = new(big.Int).Set(balance)
		return m.putAccount(addr, account)
	}
	encoded, err := rlp.EncodeToBytes(balance)
	if err != nil {
		return err
	}
	return m.put(tokenBalanceKey(token, addr), encoded)
}

// Transfer implements the missions.TokenMover interface. An empty token moves
// native currency; otherwise the named token's per-address balances are used.
func (m *Manager) Transfer(token []byte, from, to [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("state: invalid transfer amount")
	}
	if amount.Sign() == 0 || from == to {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	fromBalance, err := m.tokenBalance(token, from)
	if err != nil {
		return err
	}
	if fromBalance.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	toBalance, err := m.tokenBalance(token, to)
	if err != nil {
		return err
	}
	if err := m.setTokenBalance(token, from, new(big.Int).Sub(fromBalance, amount)); err != nil {
		return err
	}
	return m.setTokenBalance(token, to, new(big.Int).Add(toBalance, amount))
}

// Credit mints balance onto an address. Used by genesis funding and tests.
func (m *Manager) Credit(token []byte, addr [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("state: invalid credit amount")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	balance, err := m.tokenBalance(token, addr)
	if err != nil {
		return err
	}
	return m.setTokenBalance(token, addr, new(big.Int).Add(balance, amount))
}

// --- Points ledger ---

func (m *Manager) PointsBalance(addr [20]byte) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getUint64(prefixedKey(pointsPrefix, addr[:]))
}

func (m *Manager) SetPointsBalance(addr [20]byte, total uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.putUint64(prefixedKey(pointsPrefix, addr[:]), total)
}

func (m *Manager) TotalPointsIssued() (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getUint64(keyTotalIssued)
}

func (m *Manager) SetTotalPointsIssued(total uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.putUint64(keyTotalIssued, total)
}

func (m *Manager) IssuerAuthorized(addr [20]byte) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.db.Has(prefixedKey(issuerPrefix, addr[:]))
}

func (m *Manager) SetIssuerAuthorized(addr [20]byte, authorized bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := prefixedKey(issuerPrefix, addr[:])
	if authorized {
		return m.put(key, []byte{1})
	}
	return m.delete(key)
}

func (m *Manager) UserAchievements(addr [20]byte) ([]uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, err := m.db.Get(prefixedKey(achievementsPrefix, addr[:]))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var ids []uint32
	if err := rlp.DecodeBytes(raw, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func (m *Manager) SetUserAchievements(addr [20]byte, ids []uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	encoded, err := rlp.EncodeToBytes(ids)
	if err != nil {
		return err
	}
	return m.put(prefixedKey(achievementsPrefix, addr[:]), encoded)
}
