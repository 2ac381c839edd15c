package processor

import (
	"fmt"

	"vizflow/market"
	"vizflow/table"
)

// ParseTime decodes the fixed-width HHMMSSmmm timestamps in column col and
// appends two derived columns: tod_<col>, the millisecond offset from
// midnight, and elapsed_<col>, the cumulative in-session milliseconds for
// the given market. Null inputs stay null in both outputs. A timestamp that
// falls outside every trading session fails the whole table; partially
// normalized batches are never produced.
func ParseTime(t *table.Table, col string, m market.Market) (*table.Table, error) {
	src, ok := t.Col(col)
	if !ok {
		return nil, fmt.Errorf("column %q not found", col)
	}
	if src.Kind != table.Int64 {
		return nil, fmt.Errorf("column %q: want int64 timestamps, got %s", col, src.Kind)
	}

	n := src.Len()
	tod := make([]int64, n)
	elapsed := make([]int64, n)
	valid := make([]bool, n)

	for i := 0; i < n; i++ {
		if !src.IsValid(i) {
			continue
		}
		ts, err := market.ParseHHMMSSmmm(src.Ints[i])
		if err != nil {
			return nil, fmt.Errorf("column %q row %d: %w", col, i, err)
		}
		el, err := m.ElapsedMillis(ts)
		if err != nil {
			return nil, fmt.Errorf("column %q row %d: %w", col, i, err)
		}
		tod[i] = ts.MillisOfDay()
		elapsed[i] = el
		valid[i] = true
	}

	out, err := t.WithColumn(table.NewInt64Nullable("tod_"+col, tod, valid))
	if err != nil {
		return nil, err
	}
	return out.WithColumn(table.NewInt64Nullable("elapsed_"+col, elapsed, valid))
}
