package models

import "fmt"

// Side is the closed enumeration of trade directions.
type Side string

const (
	SideBuy  Side = "Buy"
	SideSell Side = "Sell"
)

// InvalidSideError reports a side value outside the closed enumeration.
// It is fatal to the calling operation, never a silent default.
type InvalidSideError struct {
	Value string
}

func (e *InvalidSideError) Error() string {
	return fmt.Sprintf("invalid order side %q (want %s or %s)", e.Value, SideBuy, SideSell)
}

// Sign returns +1 for buys and -1 for sells, so that multiplying a return by
// it makes positive always mean favorable to the trade direction.
func Sign(side string) (float64, error) {
	switch Side(side) {
	case SideBuy:
		return 1, nil
	case SideSell:
		return -1, nil
	default:
		return 0, &InvalidSideError{Value: side}
	}
}
