package missions

import "errors"

var (
	ErrUnauthorized      = errors.New("missions: unauthorized")
	ErrInvalidAddress    = errors.New("missions: invalid address")
	ErrMissionNotFound   = errors.New("missions: mission not found")
	ErrInvalidAmount     = errors.New("missions: invalid amount")
	ErrInvalidTitle      = errors.New("missions: invalid title")
	ErrInvalidTimeRange  = errors.New("missions: invalid time range")
	ErrTransferFailed    = errors.New("missions: transfer failed")
	ErrTokenNotAllowed   = errors.New("missions: token not allowed")
	ErrMissionFinalized  = errors.New("missions: mission finalized")
	ErrMissionNotActive  = errors.New("missions: mission not active")
	ErrInsufficientFunds = errors.New("missions: insufficient funds")
	ErrStartTimeInPast   = errors.New("missions: start time in past")
	ErrMissionTooShort   = errors.New("missions: mission too short")
)

// Numeric error taxonomy preserved for compatibility with existing clients.
const (
	CodeUnauthorized      = 100
	CodeInvalidAddress    = 101
	CodeMissionNotFound   = 104
	CodeInvalidAmount     = 105
	CodeInvalidTitle      = 106
	CodeInvalidTimeRange  = 107
	CodeTransferFailed    = 108
	CodeTokenNotAllowed   = 109
	CodeMissionFinalized  = 110
	CodeMissionNotActive  = 111
	CodeInsufficientFunds = 112
	CodeStartTimeInPast   = 113
	CodeMissionTooShort   = 114
)

// Code maps a missions error to its numeric code. The second return reports
// whether the error belongs to this namespace.
func Code(err error) (int, bool) {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return CodeUnauthorized, true
	case errors.Is(err, ErrInvalidAddress):
		return CodeInvalidAddress, true
	case errors.Is(err, ErrMissionNotFound):
		return CodeMissionNotFound, true
	case errors.Is(err, ErrInvalidAmount):
		return CodeInvalidAmount, true
	case errors.Is(err, ErrInvalidTitle):
		return CodeInvalidTitle, true
	case errors.Is(err, ErrInvalidTimeRange):
		return CodeInvalidTimeRange, true
	case errors.Is(err, ErrTransferFailed):
		return CodeTransferFailed, true
	case errors.Is(err, ErrTokenNotAllowed):
		return CodeTokenNotAllowed, true
	case errors.Is(err, ErrMissionFinalized):
		return CodeMissionFinalized, true
	case errors.Is(err, ErrMissionNotActive):
		return CodeMissionNotActive, true
	case errors.Is(err, ErrInsufficientFunds):
		return CodeInsufficientFunds, true
	case errors.Is(err, ErrStartTimeInPast):
		return CodeStartTimeInPast, true
	case errors.Is(err, ErrMissionTooShort):
		return CodeMissionTooShort, true
	}
	return 0, false
}
