package missions

import (
	"bytes"
	"fmt"
	"math/big"

	"missionledger/core/events"
	nativecommon "missionledger/native/common"
)

// EngineState describes the state access the distribution and finalization
// paths need. Snapshot and revert give batched payouts all-or-nothing
// semantics without trusting the token mover to be infallible.
type EngineState interface {
	RewardDistributor() ([20]byte, error)
	MissionGet(id uint64) (*Mission, bool, error)
	MissionPut(m *Mission) error
	Snapshot() int
	RevertToSnapshot(revision int)
	DiscardSnapshot(revision int)
}

// Engine executes payout batches against a mission's remaining budgets and
// drives the one-way finalization transition.
type Engine struct {
	state   EngineState
	mover   TokenMover
	emitter events.Emitter
	pauses  nativecommon.PauseView
}

// NewEngine creates a distribution engine with a no-op emitter. Callers can
// override the emitter via SetEmitter.
func NewEngine(state EngineState, mover TokenMover) *Engine {
	return &Engine{
		state:   state,
		mover:   mover,
		emitter: events.NoopEmitter{},
	}
}

// SetEmitter configures the event emitter used by the engine. Passing nil
// resets the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetPauses wires the operator pause switches into the engine.
func (e *Engine) SetPauses(p nativecommon.PauseView) {
	if e == nil {
		return
	}
	e.pauses = p
}

func (e *Engine) emit(event events.Event) {
	if e == nil || e.emitter == nil {
		return
	}
	e.emitter.Emit(event)
}

// DistributeRewards pays out a batch of (recipient, amount, points) tuples
// against the mission's remaining balances. Only the reward distributor may
// call it; the batch either lands in full or not at all.
func (e *Engine) DistributeRewards(caller [20]byte, missionID uint64, token []byte, batch []Distribution) error {
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	distributor, err := e.state.RewardDistributor()
	if err != nil {
		return err
	}
	if caller != distributor {
		return ErrUnauthorized
	}
	mission, ok, err := e.state.MissionGet(missionID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrMissionNotFound
	}
	if mission.Finalized {
		return ErrMissionFinalized
	}

	sumAmount := big.NewInt(0)
	var sumPoints uint64
	hasAmount := false
	for i := range batch {
		entry := &batch[i]
		if entry.Amount != nil {
			if entry.Amount.Sign() < 0 {
				return ErrInvalidAmount
			}
			if entry.Amount.Sign() > 0 {
				hasAmount = true
				sumAmount.Add(sumAmount, entry.Amount)
			}
		}
		// A wrapped sum could sneak a huge batch past the budget check.
		if sumPoints+entry.Points < sumPoints {
			return ErrInvalidAmount
		}
		sumPoints += entry.Points
	}
	if sumPoints > mission.RemainingPoints() {
		return ErrInsufficientFunds
	}
	if hasAmount {
		if !bytes.Equal(token, mission.FundingToken) {
			return ErrTokenNotAllowed
		}
		remaining := mission.RemainingAmount()
		if sumAmount.Cmp(remaining) > 0 {
			return ErrInsufficientFunds
		}
	}

	revision := e.state.Snapshot()
	if hasAmount {
		vault := VaultAddress(mission.ID)
		for i := range batch {
			entry := &batch[i]
			if entry.Amount == nil || entry.Amount.Sign() == 0 {
				continue
			}
			if err := e.mover.Transfer(mission.FundingToken, vault, entry.Recipient, entry.Amount); err != nil {
				e.state.RevertToSnapshot(revision)
				return fmt.Errorf("%w: %v", ErrTransferFailed, err)
			}
		}
	}
	mission.AmountDistributed = new(big.Int).Add(cloneBigInt(mission.AmountDistributed), sumAmount)
	mission.PointsDistributed += sumPoints
	if err := e.state.MissionPut(mission); err != nil {
		e.state.RevertToSnapshot(revision)
		return err
	}
	e.state.DiscardSnapshot(revision)
	e.emit(events.MissionDistributed{
		ID:         mission.ID,
		Recipients: uint64(len(batch)),
		Amount:     cloneBigInt(sumAmount),
		Points:     sumPoints,
	})
	return nil
}

// FinalizeMission marks the mission closed to further distribution. The
// mission creator or the reward distributor may finalize; a second call is an
// error, not a silent no-op. Any undistributed remainder stays escrowed under
// the mission vault.
func (e *Engine) FinalizeMission(caller [20]byte, missionID uint64) error {
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	mission, ok, err := e.state.MissionGet(missionID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrMissionNotFound
	}
	distributor, err := e.state.RewardDistributor()
	if err != nil {
		return err
	}
	if caller != mission.Creator && caller != distributor {
		return ErrUnauthorized
	}
	if mission.Finalized {
		return ErrMissionFinalized
	}
	mission.Finalized = true
	if err := e.state.MissionPut(mission); err != nil {
		return err
	}
	e.emit(events.MissionFinalized{ID: mission.ID, Caller: caller})
	return nil
}
