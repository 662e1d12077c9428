package points

import "errors"

var (
	ErrUnauthorized      = errors.New("points: unauthorized")
	ErrInvalidAmount     = errors.New("points: invalid amount")
	ErrInvalidMultiplier = errors.New("points: invalid multiplier")
)

// Numeric error taxonomy preserved for compatibility with existing clients.
// The points ledger uses its own namespace, distinct from the missions codes.
const (
	CodeUnauthorized      = 401
	CodeInvalidAmount     = 402
	CodeInvalidMultiplier = 406
)

// Code maps a points error to its numeric code. The second return reports
// whether the error belongs to this namespace.
func Code(err error) (int, bool) {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return CodeUnauthorized, true
	case errors.Is(err, ErrInvalidAmount):
		return CodeInvalidAmount, true
	case errors.Is(err, ErrInvalidMultiplier):
		return CodeInvalidMultiplier, true
	}
	return 0, false
}
