package table

import (
	"fmt"
	"math"
	"strings"
)

// View is a read-only window over a subset of a table's rows, handed to
// reduction functions during aggregation. Helper methods skip invalid rows.
type View struct {
	t    *Table
	rows []int
}

// Count returns the number of rows in the view.
func (v View) Count() float64 {
	return float64(len(v.rows))
}

// Sum returns the sum of valid values in the named numeric column.
func (v View) Sum(name string) float64 {
	col, ok := v.t.Col(name)
	if !ok || !col.IsNumeric() {
		return 0
	}
	var sum float64
	for _, i := range v.rows {
		if col.IsValid(i) {
			sum += col.Number(i)
		}
	}
	return sum
}

// Mean returns the mean of valid values in the named column, 0 when empty.
func (v View) Mean(name string) float64 {
	col, ok := v.t.Col(name)
	if !ok || !col.IsNumeric() {
		return 0
	}
	var sum float64
	var n int
	for _, i := range v.rows {
		if col.IsValid(i) {
			sum += col.Number(i)
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// SumProd returns Σ(a·b) over rows where both columns are valid. Weighted
// ratios like VWAP compose from it: SumProd(price, qty) / Sum(qty).
func (v View) SumProd(a, b string) float64 {
	ca, oka := v.t.Col(a)
	cb, okb := v.t.Col(b)
	if !oka || !okb || !ca.IsNumeric() || !cb.IsNumeric() {
		return 0
	}
	var sum float64
	for _, i := range v.rows {
		if ca.IsValid(i) && cb.IsValid(i) {
			sum += ca.Number(i) * cb.Number(i)
		}
	}
	return sum
}

// WeightedMean returns Σ(w·x)/Σw over rows where x is valid. Rows with a
// null x are excluded from both numerator and denominator; a zero total
// weight yields 0 rather than NaN.
func (v View) WeightedMean(name, weight string) float64 {
	cx, okx := v.t.Col(name)
	cw, okw := v.t.Col(weight)
	if !okx || !okw || !cx.IsNumeric() || !cw.IsNumeric() {
		return 0
	}
	var num, den float64
	for _, i := range v.rows {
		if !cx.IsValid(i) || !cw.IsValid(i) {
			continue
		}
		w := cw.Number(i)
		num += w * cx.Number(i)
		den += w
	}
	if den == 0 {
		return 0
	}
	return num / den
}

// WeightedStd returns the weighted population standard deviation of the
// named column, with the same null and zero-weight handling as WeightedMean.
func (v View) WeightedStd(name, weight string) float64 {
	cx, okx := v.t.Col(name)
	cw, okw := v.t.Col(weight)
	if !okx || !okw || !cx.IsNumeric() || !cw.IsNumeric() {
		return 0
	}
	var sumW, sumWX, sumWXX float64
	for _, i := range v.rows {
		if !cx.IsValid(i) || !cw.IsValid(i) {
			continue
		}
		w := cw.Number(i)
		x := cx.Number(i)
		sumW += w
		sumWX += w * x
		sumWXX += w * x * x
	}
	if sumW == 0 {
		return 0
	}
	mean := sumWX / sumW
	variance := sumWXX/sumW - mean*mean
	if variance < 0 {
		// Guard against catastrophic cancellation on near-constant data.
		variance = 0
	}
	return math.Sqrt(variance)
}

// Reduction is a named reduction expression evaluated once per group.
type Reduction struct {
	Name string
	Fn   func(View) float64
}

// Aggregate groups rows by the key columns and evaluates each reduction per
// group. The result holds one row per distinct key combination: the key
// columns (original kinds preserved) followed by one float64 column per
// reduction, in the order given. Group order follows first appearance, but
// callers must not rely on it.
func Aggregate(t *Table, keys []string, reductions []Reduction) (*Table, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("aggregate requires at least one key column")
	}
	if len(reductions) == 0 {
		return nil, fmt.Errorf("aggregate requires at least one reduction")
	}

	keyCols := make([]*Column, len(keys))
	for i, k := range keys {
		col, ok := t.Col(k)
		if !ok {
			return nil, fmt.Errorf("group key column %q not found", k)
		}
		keyCols[i] = col
	}

	seen := make(map[string]int)
	var order []string
	groups := make(map[string][]int)

	var sb strings.Builder
	for row := 0; row < t.NumRows(); row++ {
		sb.Reset()
		for i, col := range keyCols {
			if i > 0 {
				sb.WriteByte('\x1f')
			}
			sb.WriteString(col.Key(row))
		}
		key := sb.String()
		if _, ok := seen[key]; !ok {
			seen[key] = row
			order = append(order, key)
		}
		groups[key] = append(groups[key], row)
	}

	exemplars := make([]int, len(order))
	for i, key := range order {
		exemplars[i] = seen[key]
	}

	cols := make([]*Column, 0, len(keys)+len(reductions))
	for i, k := range keys {
		cols = append(cols, keyCols[i].take(exemplars))
		cols[len(cols)-1].Name = k
	}

	for _, red := range reductions {
		vals := make([]float64, len(order))
		for gi, key := range order {
			vals[gi] = red.Fn(View{t: t, rows: groups[key]})
		}
		cols = append(cols, NewFloat64(red.Name, vals))
	}

	return New(cols...)
}

// CumSum returns the running sum of vals.
func CumSum(vals []float64) []float64 {
	out := make([]float64, len(vals))
	var acc float64
	for i, v := range vals {
		acc += v
		out[i] = acc
	}
	return out
}
