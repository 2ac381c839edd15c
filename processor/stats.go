package processor

import (
	"math"
	"sort"

	"vizflow/table"
)

// WeightedStats returns the weighted mean and weighted population standard
// deviation of vals. Rows where the value is null are excluded together with
// their weight; a null weight excludes the row too. A zero total weight
// yields (0, 0).
func WeightedStats(vals, weights *table.Column) (mean, std float64) {
	n := vals.Len()
	var sumW, sumWX, sumWXX float64
	for i := 0; i < n; i++ {
		if !vals.IsValid(i) || !weights.IsValid(i) {
			continue
		}
		w := weights.Number(i)
		x := vals.Number(i)
		sumW += w
		sumWX += w * x
		sumWXX += w * x * x
	}
	if sumW == 0 {
		return 0, 0
	}
	mean = sumWX / sumW
	variance := sumWXX/sumW - mean*mean
	if variance < 0 {
		variance = 0
	}
	return mean, math.Sqrt(variance)
}

// DailyMarkout reduces a decorated trade table to one row per group: trade
// count, filled notional, and the notional-weighted mean and spread of every
// return column. Groups default to the data date; extra keys (bin columns,
// side) widen the breakdown. Rows come back sorted by the leading key.
func DailyMarkout(trades *table.Table, horizons []int, groupBy []string) (*table.Table, error) {
	if len(groupBy) == 0 {
		groupBy = []string{ColDataDate}
	}

	reductions := []table.Reduction{
		{Name: "trade_count", Fn: func(v table.View) float64 { return v.Count() }},
		{Name: "notional_sum", Fn: func(v table.View) float64 { return v.Sum(ColNotional) }},
	}
	cols := make([]string, 0, len(horizons)+1)
	for _, h := range horizons {
		cols = append(cols, ReturnColumn(h))
	}
	if _, ok := trades.Col(ColCloseRet); ok {
		cols = append(cols, ColCloseRet)
	}
	for _, name := range cols {
		name := name
		reductions = append(reductions,
			table.Reduction{Name: name + "_mean", Fn: func(v table.View) float64 {
				return v.WeightedMean(name, ColNotional)
			}},
			table.Reduction{Name: name + "_std", Fn: func(v table.View) float64 {
				return v.WeightedStd(name, ColNotional)
			}},
		)
	}

	out, err := table.Aggregate(trades, groupBy, reductions)
	if err != nil {
		return nil, err
	}
	return sortByColumn(out, groupBy[0]), nil
}

// WithCumulative appends a running-sum companion for each named column, so
// multi-day aggregates read as an equity curve. Missing columns are skipped.
func WithCumulative(t *table.Table, cols []string) (*table.Table, error) {
	out := t
	for _, name := range cols {
		c, ok := out.Col(name)
		if !ok || !c.IsNumeric() {
			continue
		}
		vals := make([]float64, c.Len())
		for i := range vals {
			if c.IsValid(i) {
				vals[i] = c.Number(i)
			}
		}
		cum, err := out.WithColumn(table.NewFloat64("cum_"+name, table.CumSum(vals)))
		if err != nil {
			return nil, err
		}
		out = cum
	}
	return out, nil
}

// sortByColumn returns the table's rows stably reordered by the named
// column's key representation. Aggregate output is first-seen ordered, which
// tracks input order; sorting pins it down for written files.
func sortByColumn(t *table.Table, name string) *table.Table {
	c, ok := t.Col(name)
	if !ok {
		return t
	}
	rows := make([]int, t.NumRows())
	for i := range rows {
		rows[i] = i
	}
	sort.SliceStable(rows, func(a, b int) bool {
		if c.IsNumeric() {
			return c.Number(rows[a]) < c.Number(rows[b])
		}
		return c.Key(rows[a]) < c.Key(rows[b])
	})
	return t.Take(rows)
}
