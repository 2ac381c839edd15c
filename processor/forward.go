package processor

import (
	"fmt"
	"sort"
	"sync"

	"vizflow/table"
)

// Column names the forward-return join operates on.
const (
	ColUkey           = "ukey"
	ColElapsedAlphaTs = "elapsed_alpha_ts"
	ColElapsedTick    = "elapsed_ticktime"
	ColMid            = "mid"
)

// tick is one usable alpha observation: a valid elapsed time plus the mid
// quoted at that time. Mids may still be null.
type tick struct {
	elapsed  int64
	mid      float64
	midValid bool
}

// ForwardReturn matches every trade against the last alpha observation at or
// before trade time plus each horizon, per instrument, and appends a
// forward_mid_<label> and y_<label> column pair per horizon. The output has
// exactly the input's rows in the input's order; trades with no usable match,
// a null trade mid or a zero trade mid get null returns instead of being
// dropped. Instruments are processed concurrently by up to workers
// goroutines.
func ForwardReturn(trades, alphas *table.Table, horizons []int, workers int) (*table.Table, error) {
	if err := ValidateHorizons(horizons); err != nil {
		return nil, err
	}
	if workers <= 0 {
		workers = 1
	}

	tradeUkey, err := requireColumn(trades, ColUkey)
	if err != nil {
		return nil, fmt.Errorf("trades: %w", err)
	}
	tradeTime, err := requireInt64(trades, ColElapsedAlphaTs)
	if err != nil {
		return nil, fmt.Errorf("trades: %w", err)
	}
	tradeMid, err := requireNumeric(trades, ColMid)
	if err != nil {
		return nil, fmt.Errorf("trades: %w", err)
	}

	series, err := buildTickSeries(alphas)
	if err != nil {
		return nil, err
	}

	n := trades.NumRows()
	fwdVals := make([][]float64, len(horizons))
	fwdValid := make([][]bool, len(horizons))
	retVals := make([][]float64, len(horizons))
	retValid := make([][]bool, len(horizons))
	for k := range horizons {
		fwdVals[k] = make([]float64, n)
		fwdValid[k] = make([]bool, n)
		retVals[k] = make([]float64, n)
		retValid[k] = make([]bool, n)
	}

	// Trades are partitioned by instrument so workers never touch the same
	// output row.
	byUkey := make(map[string][]int)
	for i := 0; i < n; i++ {
		byUkey[tradeUkey.Key(i)] = append(byUkey[tradeUkey.Key(i)], i)
	}

	jobs := make(chan []int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for rows := range jobs {
				ticks := series[tradeUkey.Key(rows[0])]
				for _, i := range rows {
					matchTradeRow(i, tradeTime, tradeMid, ticks, horizons, fwdVals, fwdValid, retVals, retValid)
				}
			}
		}()
	}
	for _, rows := range byUkey {
		jobs <- rows
	}
	close(jobs)
	wg.Wait()

	out := trades
	for k, h := range horizons {
		if out, err = out.WithColumn(table.NewFloat64Nullable(ForwardMidColumn(h), fwdVals[k], fwdValid[k])); err != nil {
			return nil, err
		}
		if out, err = out.WithColumn(table.NewFloat64Nullable(ReturnColumn(h), retVals[k], retValid[k])); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// matchTradeRow fills the output slices for one trade row across all
// horizons.
func matchTradeRow(i int, tradeTime, tradeMid *table.Column, ticks []tick, horizons []int,
	fwdVals [][]float64, fwdValid [][]bool, retVals [][]float64, retValid [][]bool) {
	if !tradeTime.IsValid(i) {
		return
	}
	t0 := tradeTime.Ints[i]

	for k, h := range horizons {
		target := t0 + int64(h)*1000
		// Greatest observation at or before the target time.
		j := sort.Search(len(ticks), func(m int) bool { return ticks[m].elapsed > target }) - 1
		if j < 0 || !ticks[j].midValid {
			continue
		}
		fwd := ticks[j].mid
		fwdVals[k][i] = fwd
		fwdValid[k][i] = true

		if !tradeMid.IsValid(i) || tradeMid.Number(i) == 0 {
			continue
		}
		base := tradeMid.Number(i)
		retVals[k][i] = (fwd - base) / base
		retValid[k][i] = true
	}
}

// buildTickSeries groups alpha rows by instrument and sorts each series by
// elapsed time. Rows with a null elapsed time never match anything and are
// skipped.
func buildTickSeries(alphas *table.Table) (map[string][]tick, error) {
	ukey, err := requireColumn(alphas, ColUkey)
	if err != nil {
		return nil, fmt.Errorf("alphas: %w", err)
	}
	elapsed, err := requireInt64(alphas, ColElapsedTick)
	if err != nil {
		return nil, fmt.Errorf("alphas: %w", err)
	}
	mid, err := requireNumeric(alphas, ColMid)
	if err != nil {
		return nil, fmt.Errorf("alphas: %w", err)
	}

	series := make(map[string][]tick)
	for i := 0; i < alphas.NumRows(); i++ {
		if !elapsed.IsValid(i) {
			continue
		}
		k := ukey.Key(i)
		series[k] = append(series[k], tick{
			elapsed:  elapsed.Ints[i],
			mid:      mid.Number(i),
			midValid: mid.IsValid(i),
		})
	}
	for _, ticks := range series {
		// Stable so that ties keep input order and the backward match
		// lands on the latest row for a repeated elapsed time.
		sort.SliceStable(ticks, func(a, b int) bool { return ticks[a].elapsed < ticks[b].elapsed })
	}
	return series, nil
}

func requireColumn(t *table.Table, name string) (*table.Column, error) {
	c, ok := t.Col(name)
	if !ok {
		return nil, fmt.Errorf("column %q not found", name)
	}
	return c, nil
}

func requireInt64(t *table.Table, name string) (*table.Column, error) {
	c, err := requireColumn(t, name)
	if err != nil {
		return nil, err
	}
	if c.Kind != table.Int64 {
		return nil, fmt.Errorf("column %q: want int64, got %s", name, c.Kind)
	}
	return c, nil
}

func requireNumeric(t *table.Table, name string) (*table.Column, error) {
	c, err := requireColumn(t, name)
	if err != nil {
		return nil, err
	}
	if !c.IsNumeric() {
		return nil, fmt.Errorf("column %q: want a numeric column, got %s", name, c.Kind)
	}
	return c, nil
}
