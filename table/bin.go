package table

import (
	"fmt"
	"math"
	"sort"
)

// Bin adds a "<col>_bin" int64 column for every entry in widths, assigning
// each value to round-half-to-even(x / width). Ties at exactly .5 go to the
// nearest even integer; floating-point representation error near the
// boundary is accepted as-is, so a mathematically exact tie may land on the
// lower bucket when x/width cannot be represented exactly.
func Bin(t *Table, widths map[string]float64) (*Table, error) {
	names := make([]string, 0, len(widths))
	for name := range widths {
		names = append(names, name)
	}
	sort.Strings(names)

	out := t
	for _, name := range names {
		width := widths[name]
		if width <= 0 {
			return nil, fmt.Errorf("bin width for %q must be positive, got %g", name, width)
		}
		col, ok := t.Col(name)
		if !ok {
			return nil, fmt.Errorf("bin column %q not found", name)
		}
		if !col.IsNumeric() {
			return nil, fmt.Errorf("bin column %q is %s, want numeric", name, col.Kind)
		}

		n := col.Len()
		bins := make([]int64, n)
		var valid []bool
		if col.NullCount() > 0 {
			valid = make([]bool, n)
		}
		for i := 0; i < n; i++ {
			if !col.IsValid(i) {
				continue
			}
			if valid != nil {
				valid[i] = true
			}
			bins[i] = int64(math.RoundToEven(col.Number(i) / width))
		}

		var err error
		if valid != nil {
			out, err = out.WithColumn(NewInt64Nullable(name+"_bin", bins, valid))
		} else {
			out, err = out.WithColumn(NewInt64(name+"_bin", bins))
		}
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}
