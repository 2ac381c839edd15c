package models

import (
	"time"

	"vizflow/table"
)

// DayBatch is one trading date's worth of input tables, loaded by the
// scanner and handed to the markout processor. Tables are read-only once the
// batch is sent.
type DayBatch struct {
	BatchID  string
	Date     string
	Trades   *table.Table
	Alphas   *table.Table
	Univ     *table.Table // nil when no universe feed is configured
	LoadedAt time.Time
}

// RecordCount returns the number of trade rows in the batch.
func (b DayBatch) RecordCount() int {
	if b.Trades == nil {
		return 0
	}
	return b.Trades.NumRows()
}

// ResultBatch is the processed output for one date: the decorated per-trade
// markout table and its aggregate summary.
type ResultBatch struct {
	BatchID     string
	Date        string
	Trades      *table.Table
	Aggregate   *table.Table
	RecordCount int
	ProcessedAt time.Time
}
