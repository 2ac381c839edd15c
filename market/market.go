package market

import (
	"fmt"
	"time"
)

// DefaultCloseTolerance bounds how far past the final session's nominal end a
// timestamp is still accepted. Exchanges print late trades a few hundred
// milliseconds after the close; those map to elapsed time beyond the total
// session duration instead of failing.
const DefaultCloseTolerance = 500 * time.Millisecond

// Session is one contiguous open interval within a trading day.
// Start is inclusive, End exclusive except for the final session of a market,
// where End is soft up to the market's close tolerance.
type Session struct {
	Start TimeOfDay
	End   TimeOfDay
}

// Duration returns the session length in milliseconds.
func (s Session) Duration() int64 {
	return s.End.MillisOfDay() - s.Start.MillisOfDay()
}

// Market is an immutable set of ordered, non-overlapping trading sessions.
// Values are constructed once at startup and referenced by value thereafter.
type Market struct {
	ID             string
	Sessions       []Session
	CloseTolerance time.Duration
}

// New validates and builds a Market. Sessions must be non-empty, each with
// start < end, in chronological order without overlap.
func New(id string, sessions []Session, closeTolerance time.Duration) (Market, error) {
	if id == "" {
		return Market{}, fmt.Errorf("market id is required")
	}
	if len(sessions) == 0 {
		return Market{}, fmt.Errorf("market %s has no sessions", id)
	}

	prevEnd := int64(-1)
	for i, s := range sessions {
		start, end := s.Start.MillisOfDay(), s.End.MillisOfDay()
		if start >= end {
			return Market{}, fmt.Errorf("market %s session %d: start %s is not before end %s", id, i, s.Start, s.End)
		}
		if start < prevEnd {
			return Market{}, fmt.Errorf("market %s session %d overlaps or precedes the previous session", id, i)
		}
		prevEnd = end
	}

	if closeTolerance < 0 {
		return Market{}, fmt.Errorf("market %s: close tolerance must not be negative", id)
	}

	return Market{ID: id, Sessions: sessions, CloseTolerance: closeTolerance}, nil
}

// TotalDuration returns the sum of all session durations in milliseconds.
func (m Market) TotalDuration() int64 {
	var total int64
	for _, s := range m.Sessions {
		total += s.Duration()
	}
	return total
}

// ElapsedMillis converts a wall-clock time into cumulative trading time in
// milliseconds: the durations of all fully elapsed sessions plus the time
// spent in the current one. Inter-session gaps are instantaneous in the
// elapsed coordinate, so the first instant of a session continues exactly
// where the previous session's duration left off.
func (m Market) ElapsedMillis(t TimeOfDay) (int64, error) {
	tod := t.MillisOfDay()

	var acc int64
	for i, s := range m.Sessions {
		start, end := s.Start.MillisOfDay(), s.End.MillisOfDay()
		last := i == len(m.Sessions)-1

		if tod < start {
			break
		}
		if tod < end {
			return acc + (tod - start), nil
		}
		if last && tod <= end+m.CloseTolerance.Milliseconds() {
			// At or slightly past the close. Exact close maps to the total
			// session duration; late prints run beyond it.
			return acc + (tod - start), nil
		}
		acc += end - start
	}

	return 0, &OutOfSessionError{Market: m.ID, Time: t}
}

// ElapsedSeconds is ElapsedMillis truncated to whole seconds.
func (m Market) ElapsedSeconds(t TimeOfDay) (int64, error) {
	ms, err := m.ElapsedMillis(t)
	if err != nil {
		return 0, err
	}
	return ms / 1000, nil
}
