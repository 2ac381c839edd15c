package processor

import (
	"fmt"

	"vizflow/models"
	"vizflow/table"
)

// Column names shared by the markout operations.
const (
	ColDataDate   = "data_date"
	ColOrderSide  = "order_side"
	ColFillPrice  = "fill_price"
	ColFilledQty  = "order_filled_qty"
	ColBid        = "bid_px0"
	ColAsk        = "ask_px0"
	ColClosePrice = "close_price"
	ColNotional   = "notional"
	ColCloseRet   = "y_close"
)

// WithMid appends a mid column derived from the top-of-book quote. The mid
// is null when either side of the book is null.
func WithMid(t *table.Table) (*table.Table, error) {
	bid, err := requireNumeric(t, ColBid)
	if err != nil {
		return nil, err
	}
	ask, err := requireNumeric(t, ColAsk)
	if err != nil {
		return nil, err
	}

	n := t.NumRows()
	vals := make([]float64, n)
	valid := make([]bool, n)
	for i := 0; i < n; i++ {
		if !bid.IsValid(i) || !ask.IsValid(i) {
			continue
		}
		vals[i] = (bid.Number(i) + ask.Number(i)) / 2
		valid[i] = true
	}
	return t.WithColumn(table.NewFloat64Nullable(ColMid, vals, valid))
}

// WithNotional appends the traded notional, fill price times filled
// quantity. Null when either factor is null.
func WithNotional(t *table.Table) (*table.Table, error) {
	price, err := requireNumeric(t, ColFillPrice)
	if err != nil {
		return nil, err
	}
	qty, err := requireNumeric(t, ColFilledQty)
	if err != nil {
		return nil, err
	}

	n := t.NumRows()
	vals := make([]float64, n)
	valid := make([]bool, n)
	for i := 0; i < n; i++ {
		if !price.IsValid(i) || !qty.IsValid(i) {
			continue
		}
		vals[i] = price.Number(i) * qty.Number(i)
		valid[i] = true
	}
	return t.WithColumn(table.NewFloat64Nullable(ColNotional, vals, valid))
}

// SignBySide flips the named return columns so that a positive value always
// means the price moved the trade's way: buys keep their sign, sells are
// negated. A side value outside the Buy/Sell enumeration fails the whole
// call. Null returns stay null.
func SignBySide(t *table.Table, cols []string) (*table.Table, error) {
	side, err := requireColumn(t, ColOrderSide)
	if err != nil {
		return nil, err
	}
	if side.Kind != table.String {
		return nil, fmt.Errorf("column %q: want string, got %s", ColOrderSide, side.Kind)
	}

	n := t.NumRows()
	signs := make([]float64, n)
	for i := 0; i < n; i++ {
		if !side.IsValid(i) {
			return nil, fmt.Errorf("row %d: %w", i, &models.InvalidSideError{Value: ""})
		}
		s, err := models.Sign(side.Strings[i])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		signs[i] = s
	}

	out := t
	for _, name := range cols {
		c, err := requireNumeric(out, name)
		if err != nil {
			return nil, err
		}
		vals := make([]float64, n)
		valid := make([]bool, n)
		for i := 0; i < n; i++ {
			if !c.IsValid(i) {
				continue
			}
			vals[i] = signs[i] * c.Number(i)
			valid[i] = true
		}
		if out, err = out.WithColumn(table.NewFloat64Nullable(name, vals, valid)); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// MarkToClose joins the day's official close onto every trade by instrument
// and date, and appends the return to close, (close - mid) / mid. Trades
// without a close, without a mid or with a zero mid get nulls; no trade row
// is dropped.
func MarkToClose(trades, univ *table.Table) (*table.Table, error) {
	ukey, err := requireColumn(trades, ColUkey)
	if err != nil {
		return nil, fmt.Errorf("trades: %w", err)
	}
	mid, err := requireNumeric(trades, ColMid)
	if err != nil {
		return nil, fmt.Errorf("trades: %w", err)
	}

	uUkey, err := requireColumn(univ, ColUkey)
	if err != nil {
		return nil, fmt.Errorf("univ: %w", err)
	}
	closePx, err := requireNumeric(univ, ColClosePrice)
	if err != nil {
		return nil, fmt.Errorf("univ: %w", err)
	}

	_, tradeHasDate := trades.Col(ColDataDate)
	_, univHasDate := univ.Col(ColDataDate)
	joinOnDate := tradeHasDate && univHasDate

	closes := make(map[string]float64, univ.NumRows())
	for i := 0; i < univ.NumRows(); i++ {
		if !closePx.IsValid(i) {
			continue
		}
		closes[joinKey(univ, uUkey, i, joinOnDate)] = closePx.Number(i)
	}

	n := trades.NumRows()
	closeVals := make([]float64, n)
	closeValid := make([]bool, n)
	retVals := make([]float64, n)
	retValid := make([]bool, n)
	for i := 0; i < n; i++ {
		c, ok := closes[joinKey(trades, ukey, i, joinOnDate)]
		if !ok {
			continue
		}
		closeVals[i] = c
		closeValid[i] = true
		if !mid.IsValid(i) || mid.Number(i) == 0 {
			continue
		}
		base := mid.Number(i)
		retVals[i] = (c - base) / base
		retValid[i] = true
	}

	out, err := trades.WithColumn(table.NewFloat64Nullable(ColClosePrice, closeVals, closeValid))
	if err != nil {
		return nil, err
	}
	return out.WithColumn(table.NewFloat64Nullable(ColCloseRet, retVals, retValid))
}

func joinKey(t *table.Table, ukey *table.Column, i int, withDate bool) string {
	if !withDate {
		return ukey.Key(i)
	}
	date, _ := t.Col(ColDataDate)
	return ukey.Key(i) + "\x1f" + date.Key(i)
}

// FilterByCutoff drops rows whose value in col exceeds the cutoff. Rows with
// a null value are dropped as well; they cannot be shown to be inside the
// window.
func FilterByCutoff(t *table.Table, col string, cutoff int64) (*table.Table, error) {
	c, err := requireInt64(t, col)
	if err != nil {
		return nil, err
	}

	keep := make([]int, 0, t.NumRows())
	for i := 0; i < t.NumRows(); i++ {
		if c.IsValid(i) && c.Ints[i] <= cutoff {
			keep = append(keep, i)
		}
	}
	return t.Take(keep), nil
}
