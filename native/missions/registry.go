package missions

import (
	"fmt"
	"math/big"

	"missionledger/core/events"
	nativecommon "missionledger/native/common"
)

const moduleName = "missions"

// RegistryState describes the keyed storage the registry needs from the
// surrounding state implementation.
type RegistryState interface {
	ContractOwner() ([20]byte, error)
	RewardDistributor() ([20]byte, error)
	SetRewardDistributor(addr [20]byte) error
	MissionCounter() (uint64, error)
	SetMissionCounter(count uint64) error
	MissionGet(id uint64) (*Mission, bool, error)
	MissionPut(m *Mission) error
	TokenAllowed(token [20]byte) (bool, error)
	SetTokenAllowed(token [20]byte, allowed bool) error
}

// TokenMover is the external component that moves reward value between
// accounts. An empty token selects the native currency. Implementations are
// untrusted; every transfer must be observed as fallible.
type TokenMover interface {
	Transfer(token []byte, from, to [20]byte, amount *big.Int) error
}

// Registry creates and stores mission records and manages the reward token
// allowlist and distributor identity.
type Registry struct {
	state   RegistryState
	mover   TokenMover
	emitter events.Emitter
	pauses  nativecommon.PauseView
	nowFn   func() uint64
}

// NewRegistry creates a registry backed by the provided state manager.
func NewRegistry(state RegistryState, mover TokenMover) *Registry {
	return &Registry{
		state:   state,
		mover:   mover,
		emitter: events.NoopEmitter{},
		nowFn:   func() uint64 { return 0 },
	}
}

// SetEmitter configures the event emitter used to broadcast registry updates.
// Passing nil resets the emitter to a no-op implementation.
func (r *Registry) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		r.emitter = events.NoopEmitter{}
		return
	}
	r.emitter = emitter
}

// SetPauses wires the operator pause switches into the registry.
func (r *Registry) SetPauses(p nativecommon.PauseView) {
	if r == nil {
		return
	}
	r.pauses = p
}

// SetNowFunc overrides the block-height source. The engine never reads a wall
// clock; time advances only through this externally supplied counter.
func (r *Registry) SetNowFunc(now func() uint64) {
	if now == nil {
		r.nowFn = func() uint64 { return 0 }
		return
	}
	r.nowFn = now
}

func (r *Registry) now() uint64 {
	if r == nil || r.nowFn == nil {
		return 0
	}
	return r.nowFn()
}

func (r *Registry) emit(event events.Event) {
	if r == nil || r.emitter == nil {
		return
	}
	r.emitter.Emit(event)
}

// CreateMission validates and persists a new mission, escrowing the reward
// pool when one is specified. Validation order is fixed: the first failing
// check aborts the call with zero state written.
func (r *Registry) CreateMission(caller [20]byte, token []byte, tokenAmount *big.Int, totalPoints, startTime, endTime uint64) (uint64, error) {
	if err := nativecommon.Guard(r.pauses, moduleName); err != nil {
		return 0, err
	}
	amount := cloneBigInt(tokenAmount)
	if amount.Sign() < 0 {
		return 0, ErrInvalidAmount
	}
	if len(token) == 0 && amount.Sign() == 0 {
		owner, err := r.state.ContractOwner()
		if err != nil {
			return 0, err
		}
		if caller != owner {
			return 0, ErrUnauthorized
		}
	}
	if len(token) > 0 {
		if len(token) != 20 {
			return 0, ErrInvalidAddress
		}
		var key [20]byte
		copy(key[:], token)
		allowed, err := r.state.TokenAllowed(key)
		if err != nil {
			return 0, err
		}
		if !allowed {
			return 0, ErrTokenNotAllowed
		}
	}
	now := r.now()
	if startTime < now {
		return 0, ErrStartTimeInPast
	}
	if startTime >= endTime {
		return 0, ErrInvalidTimeRange
	}
	if endTime-startTime < MinMissionDuration {
		return 0, ErrMissionTooShort
	}
	counter, err := r.state.MissionCounter()
	if err != nil {
		return 0, err
	}
	id := counter + 1
	if amount.Sign() > 0 {
		// Funded missions pin the points budget to the escrowed amount
		// so the two ledgers stay 1:1.
		if new(big.Int).SetUint64(totalPoints).Cmp(amount) != 0 {
			return 0, ErrInvalidAmount
		}
		vault := VaultAddress(id)
		if err := r.mover.Transfer(token, caller, vault, amount); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrTransferFailed, err)
		}
	}
	mission := &Mission{
		ID:                id,
		Creator:           caller,
		FundingToken:      append([]byte(nil), token...),
		TokenAmount:       amount,
		AmountDistributed: big.NewInt(0),
		TotalPoints:       totalPoints,
		StartTime:         startTime,
		EndTime:           endTime,
		CreatedAt:         now,
	}
	if err := r.state.MissionPut(mission); err != nil {
		return 0, err
	}
	if err := r.state.SetMissionCounter(id); err != nil {
		return 0, err
	}
	r.emit(events.MissionCreated{
		ID:          id,
		Creator:     caller,
		Token:       append([]byte(nil), token...),
		TokenAmount: cloneBigInt(amount),
		TotalPoints: totalPoints,
		StartTime:   startTime,
		EndTime:     endTime,
	})
	return id, nil
}

// AddAllowedToken adds a reward token to the allowlist. Owner-only and
// idempotent: re-adding a present token succeeds without effect.
func (r *Registry) AddAllowedToken(caller [20]byte, token [20]byte) error {
	if err := nativecommon.Guard(r.pauses, moduleName); err != nil {
		return err
	}
	if err := r.requireOwner(caller); err != nil {
		return err
	}
	allowed, err := r.state.TokenAllowed(token)
	if err != nil {
		return err
	}
	if allowed {
		return nil
	}
	if err := r.state.SetTokenAllowed(token, true); err != nil {
		return err
	}
	r.emit(events.TokenAllowlisted{Token: token})
	return nil
}

// RemoveAllowedToken removes a reward token from the allowlist. Owner-only and
// idempotent: removing an absent token succeeds without effect.
func (r *Registry) RemoveAllowedToken(caller [20]byte, token [20]byte) error {
	if err := nativecommon.Guard(r.pauses, moduleName); err != nil {
		return err
	}
	if err := r.requireOwner(caller); err != nil {
		return err
	}
	allowed, err := r.state.TokenAllowed(token)
	if err != nil {
		return err
	}
	if !allowed {
		return nil
	}
	if err := r.state.SetTokenAllowed(token, false); err != nil {
		return err
	}
	r.emit(events.TokenDelisted{Token: token})
	return nil
}

// IsTokenAllowed reports allowlist membership.
func (r *Registry) IsTokenAllowed(token [20]byte) (bool, error) {
	return r.state.TokenAllowed(token)
}

// SetRewardDistributor replaces the distributor identity. Owner-only.
func (r *Registry) SetRewardDistributor(caller [20]byte, distributor [20]byte) error {
	if err := nativecommon.Guard(r.pauses, moduleName); err != nil {
		return err
	}
	if err := r.requireOwner(caller); err != nil {
		return err
	}
	previous, err := r.state.RewardDistributor()
	if err != nil {
		return err
	}
	if err := r.state.SetRewardDistributor(distributor); err != nil {
		return err
	}
	r.emit(events.DistributorRotated{Previous: previous, Current: distributor})
	return nil
}

// ContractOwner returns the owner identity stored at genesis.
func (r *Registry) ContractOwner() ([20]byte, error) {
	return r.state.ContractOwner()
}

// RewardDistributor returns the current distributor identity.
func (r *Registry) RewardDistributor() ([20]byte, error) {
	return r.state.RewardDistributor()
}

// GetMission retrieves a mission record by its identifier.
func (r *Registry) GetMission(id uint64) (*Mission, bool, error) {
	mission, ok, err := r.state.MissionGet(id)
	if err != nil || !ok {
		return nil, false, err
	}
	return mission.Clone(), true, nil
}

// MissionCount returns the current allocation counter.
func (r *Registry) MissionCount() (uint64, error) {
	return r.state.MissionCounter()
}

// IsMissionActive reports the derived activity predicate. Unknown ids are
// inactive rather than an error.
func (r *Registry) IsMissionActive(id uint64) (bool, error) {
	mission, ok, err := r.state.MissionGet(id)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	return mission.ActiveAt(r.now()), nil
}

func (r *Registry) requireOwner(caller [20]byte) error {
	owner, err := r.state.ContractOwner()
	if err != nil {
		return err
	}
	if caller != owner {
		return ErrUnauthorized
	}
	return nil
}
