package market

import (
	"errors"
	"fmt"
)

// ErrUnsupportedMarket is returned when a market identifier has no session
// definition. Unknown markets never default silently.
var ErrUnsupportedMarket = errors.New("market not supported")

// OutOfSessionError reports a wall-clock time that cannot be mapped to
// elapsed time: it falls in a gap between sessions, before the first
// session, or past the final session's end beyond the close tolerance.
type OutOfSessionError struct {
	Market string
	Time   TimeOfDay
}

func (e *OutOfSessionError) Error() string {
	return fmt.Sprintf("time %s is outside %s trading sessions", e.Time, e.Market)
}
