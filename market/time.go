package market

import (
	"fmt"
)

// TimeOfDay is a wall-clock time within a trading day with millisecond
// precision. It carries no date or timezone; timestamps in the input data are
// already local to the market.
type TimeOfDay struct {
	Hour   int
	Minute int
	Second int
	Milli  int
}

// ParseHHMMSSmmm decodes an integer timestamp encoded as HHMMSSmmm
// (e.g. 93012145 = 09:30:12.145) by fixed-width decimal decomposition.
// The integer is a digit string, not a duration.
func ParseHHMMSSmmm(v int64) (TimeOfDay, error) {
	if v < 0 || v > 235959999 {
		return TimeOfDay{}, fmt.Errorf("timestamp %d out of HHMMSSmmm range", v)
	}

	t := TimeOfDay{
		Hour:   int(v / 10000000),
		Minute: int(v / 100000 % 100),
		Second: int(v / 1000 % 100),
		Milli:  int(v % 1000),
	}

	if t.Minute > 59 || t.Second > 59 {
		return TimeOfDay{}, fmt.Errorf("timestamp %d has invalid minute or second field", v)
	}

	return t, nil
}

// MustTime builds a TimeOfDay from components, panicking on invalid values.
// Intended for package-level market definitions.
func MustTime(hour, minute, second, milli int) TimeOfDay {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 ||
		second < 0 || second > 59 || milli < 0 || milli > 999 {
		panic(fmt.Sprintf("invalid time of day %02d:%02d:%02d.%03d", hour, minute, second, milli))
	}
	return TimeOfDay{Hour: hour, Minute: minute, Second: second, Milli: milli}
}

// MillisOfDay returns the time as milliseconds since midnight.
func (t TimeOfDay) MillisOfDay() int64 {
	return int64(t.Hour)*3600000 + int64(t.Minute)*60000 + int64(t.Second)*1000 + int64(t.Milli)
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d.%03d", t.Hour, t.Minute, t.Second, t.Milli)
}
