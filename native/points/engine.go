package points

import (
	"math/bits"

	"missionledger/core/events"
	nativecommon "missionledger/native/common"
)

const moduleName = "points"

// State describes the keyed storage the points ledger needs from the
// surrounding state implementation.
type State interface {
	ContractOwner() ([20]byte, error)
	GlobalMultiplier() (uint64, error)
	SetGlobalMultiplier(value uint64) error
	PointsBalance(addr [20]byte) (uint64, error)
	SetPointsBalance(addr [20]byte, total uint64) error
	TotalPointsIssued() (uint64, error)
	SetTotalPointsIssued(total uint64) error
	IssuerAuthorized(addr [20]byte) (bool, error)
	SetIssuerAuthorized(addr [20]byte, authorized bool) error
	UserAchievements(addr [20]byte) ([]uint32, error)
	SetUserAchievements(addr [20]byte, ids []uint32) error
}

// Engine maintains the cross-mission points ledger: cumulative per-user
// balances, the issuer authorization list, the total-issued counter and
// achievement unlocking.
type Engine struct {
	state        State
	achievements []Achievement
	emitter      events.Emitter
	pauses       nativecommon.PauseView
}

// NewEngine creates a points engine over the provided state manager. A nil or
// empty achievement table falls back to the built-in defaults.
func NewEngine(state State, achievements []Achievement) *Engine {
	if len(achievements) == 0 {
		achievements = DefaultAchievements()
	}
	return &Engine{
		state:        state,
		achievements: sortAchievements(achievements),
		emitter:      events.NoopEmitter{},
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

// AwardPoints credits the recipient's cumulative balance with the multiplied
// base amount, bumps the total-issued counter and synchronously evaluates
// achievements. Returns the earned amount and the recipient's new total.
func (e *Engine) AwardPoints(caller, recipient [20]byte, basePoints uint64, reason string) (uint64, uint64, error) {
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return 0, 0, err
	}
	authorized, err := e.callerMayIssue(caller)
	if err != nil {
		return 0, 0, err
	}
	if !authorized {
		return 0, 0, ErrUnauthorized
	}
	if basePoints == 0 {
		return 0, 0, ErrInvalidAmount
	}
	multiplier, err := e.state.GlobalMultiplier()
	if err != nil {
		return 0, 0, err
	}
	earned, err := scaleBasePoints(basePoints, multiplier)
	if err != nil {
		return 0, 0, err
	}
	current, err := e.state.PointsBalance(recipient)
	if err != nil {
		return 0, 0, err
	}
	// The ledger balance is monotonically non-decreasing; an award that
	// would wrap it is rejected rather than applied.
	newTotal := current + earned
	if newTotal < current {
		return 0, 0, ErrInvalidAmount
	}
	issued, err := e.state.TotalPointsIssued()
	if err != nil {
		return 0, 0, err
	}
	if issued+earned < issued {
		return 0, 0, ErrInvalidAmount
	}
	if err := e.state.SetPointsBalance(recipient, newTotal); err != nil {
		return 0, 0, err
	}
	if err := e.state.SetTotalPointsIssued(issued + earned); err != nil {
		return 0, 0, err
	}
	e.emit(events.PointsAwarded{
		Recipient:  recipient,
		Issuer:     caller,
		BasePoints: basePoints,
		Earned:     earned,
		NewTotal:   newTotal,
		Reason:     reason,
	})
	if err := e.evaluateAchievements(recipient, newTotal); err != nil {
		return 0, 0, err
	}
	return earned, newTotal, nil
}

// SetGlobalMultiplier replaces the global scaling factor. Owner-only; the
// value must stay within [MinMultiplier, MaxMultiplier], boundaries included.
func (e *Engine) SetGlobalMultiplier(caller [20]byte, value uint64) error {
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if err := e.requireOwner(caller); err != nil {
		return err
	}
	if value < MinMultiplier || value > MaxMultiplier {
		return ErrInvalidMultiplier
	}
	previous, err := e.state.GlobalMultiplier()
	if err != nil {
		return err
	}
	if err := e.state.SetGlobalMultiplier(value); err != nil {
		return err
	}
	e.emit(events.MultiplierUpdated{Previous: previous, Current: value})
	return nil
}

// AddAuthorizedIssuer grants issue rights. Owner-only and idempotent.
func (e *Engine) AddAuthorizedIssuer(caller, issuer [20]byte) error {
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if err := e.requireOwner(caller); err != nil {
		return err
	}
	authorized, err := e.state.IssuerAuthorized(issuer)
	if err != nil {
		return err
	}
	if authorized {
		return nil
	}
	if err := e.state.SetIssuerAuthorized(issuer, true); err != nil {
		return err
	}
	e.emit(events.IssuerAuthorized{Issuer: issuer})
	return nil
}

// RemoveAuthorizedIssuer revokes issue rights. Owner-only and idempotent. The
// owner is implicitly authorized and cannot be removed from the set.
func (e *Engine) RemoveAuthorizedIssuer(caller, issuer [20]byte) error {
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if err := e.requireOwner(caller); err != nil {
		return err
	}
	authorized, err := e.state.IssuerAuthorized(issuer)
	if err != nil {
		return err
	}
	if !authorized {
		return nil
	}
	if err := e.state.SetIssuerAuthorized(issuer, false); err != nil {
		return err
	}
	e.emit(events.IssuerRevoked{Issuer: issuer})
	return nil
}

// IsAuthorizedIssuer reports whether the address may award points. The owner
// is always authorized.
func (e *Engine) IsAuthorizedIssuer(addr [20]byte) (bool, error) {
	return e.callerMayIssue(addr)
}

// GlobalMultiplier returns the current scaling factor.
func (e *Engine) GlobalMultiplier() (uint64, error) {
	return e.state.GlobalMultiplier()
}

// UserPoints returns the cumulative ledger balance for an address.
func (e *Engine) UserPoints(addr [20]byte) (uint64, error) {
	return e.state.PointsBalance(addr)
}

// TotalPointsIssued returns the all-time issued counter after multiplier
// scaling.
func (e *Engine) TotalPointsIssued() (uint64, error) {
	return e.state.TotalPointsIssued()
}

// UserAchievements returns the unlocked achievement ids, ascending.
func (e *Engine) UserAchievements(addr [20]byte) ([]uint32, error) {
	return e.state.UserAchievements(addr)
}

// GetAchievement looks up a milestone definition by id.
func (e *Engine) GetAchievement(id uint32) (Achievement, bool) {
	for _, def := range e.achievements {
		if def.ID == id {
			return def, true
		}
	}
	return Achievement{}, false
}

// Achievements returns the full configured milestone table, ascending by id.
func (e *Engine) Achievements() []Achievement {
	return append([]Achievement(nil), e.achievements...)
}

// scaleBasePoints applies the multiplier in basis-hundredths through a
// 128-bit intermediate so extreme awards fail instead of silently wrapping.
func scaleBasePoints(base, multiplier uint64) (uint64, error) {
	hi, lo := bits.Mul64(base, multiplier)
	if hi >= MultiplierDenominator {
		return 0, ErrInvalidAmount
	}
	earned, _ := bits.Div64(hi, lo, MultiplierDenominator)
	return earned, nil
}

func (e *Engine) callerMayIssue(caller [20]byte) (bool, error) {
	owner, err := e.state.ContractOwner()
	if err != nil {
		return false, err
	}
	if caller == owner {
		return true, nil
	}
	return e.state.IssuerAuthorized(caller)
}

func (e *Engine) requireOwner(caller [20]byte) error {
	owner, err := e.state.ContractOwner()
	if err != nil {
		return err
	}
	if caller != owner {
		return ErrUnauthorized
	}
	return nil
}
