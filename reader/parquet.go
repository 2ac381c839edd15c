package reader

import (
	"fmt"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/source"

	"vizflow/models"
	"vizflow/table"
)

func openParquet(path string, prototype interface{}) (source.ParquetFile, *reader.ParquetReader, error) {
	fr, err := local.NewLocalFileReader(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	pr, err := reader.NewParquetReader(fr, prototype, 4)
	if err != nil {
		fr.Close()
		return nil, nil, fmt.Errorf("failed to read parquet %s: %w", path, err)
	}
	return fr, pr, nil
}

// ReadTradesParquet loads a trade feed file into a table with semantic
// column names.
func ReadTradesParquet(path string) (*table.Table, error) {
	fr, pr, err := openParquet(path, new(models.TradeRecord))
	if err != nil {
		return nil, err
	}
	defer fr.Close()
	defer pr.ReadStop()

	recs := make([]models.TradeRecord, pr.GetNumRows())
	if err := pr.Read(&recs); err != nil {
		return nil, fmt.Errorf("failed to read records from %s: %w", path, err)
	}

	n := len(recs)
	ukey := make([]string, n)
	date := make([]string, n)
	alphaTs := make([]int64, n)
	side := make([]string, n)
	fillPx := make([]float64, n)
	fillQty := make([]float64, n)
	bid := make([]float64, n)
	ask := make([]float64, n)
	for i, r := range recs {
		ukey[i] = r.Ukey
		date[i] = r.DataDate
		alphaTs[i] = r.AlphaTs
		side[i] = r.OrderSide
		fillPx[i] = r.FillPrice
		fillQty[i] = r.OrderFilledQty
		bid[i] = r.BidPx0
		ask[i] = r.AskPx0
	}

	return table.New(
		table.NewString("ukey", ukey),
		table.NewString("data_date", date),
		table.NewInt64("alpha_ts", alphaTs),
		table.NewString("order_side", side),
		table.NewFloat64("fill_price", fillPx),
		table.NewFloat64("order_filled_qty", fillQty),
		table.NewFloat64("bid_px0", bid),
		table.NewFloat64("ask_px0", ask),
	)
}

// ReadAlphasParquet loads a quote/alpha feed file into a table.
func ReadAlphasParquet(path string) (*table.Table, error) {
	fr, pr, err := openParquet(path, new(models.AlphaRecord))
	if err != nil {
		return nil, err
	}
	defer fr.Close()
	defer pr.ReadStop()

	recs := make([]models.AlphaRecord, pr.GetNumRows())
	if err := pr.Read(&recs); err != nil {
		return nil, fmt.Errorf("failed to read records from %s: %w", path, err)
	}

	n := len(recs)
	ukey := make([]string, n)
	date := make([]string, n)
	ticktime := make([]int64, n)
	bid := make([]float64, n)
	ask := make([]float64, n)
	for i, r := range recs {
		ukey[i] = r.Ukey
		date[i] = r.DataDate
		ticktime[i] = r.Ticktime
		bid[i] = r.BidPx0
		ask[i] = r.AskPx0
	}

	return table.New(
		table.NewString("ukey", ukey),
		table.NewString("data_date", date),
		table.NewInt64("ticktime", ticktime),
		table.NewFloat64("bid_px0", bid),
		table.NewFloat64("ask_px0", ask),
	)
}

// ReadUnivParquet loads a universe file of daily closing prices.
func ReadUnivParquet(path string) (*table.Table, error) {
	fr, pr, err := openParquet(path, new(models.UnivRecord))
	if err != nil {
		return nil, err
	}
	defer fr.Close()
	defer pr.ReadStop()

	recs := make([]models.UnivRecord, pr.GetNumRows())
	if err := pr.Read(&recs); err != nil {
		return nil, fmt.Errorf("failed to read records from %s: %w", path, err)
	}

	n := len(recs)
	ukey := make([]string, n)
	date := make([]string, n)
	closePx := make([]float64, n)
	for i, r := range recs {
		ukey[i] = r.Ukey
		date[i] = r.DataDate
		closePx[i] = r.ClosePrice
	}

	return table.New(
		table.NewString("ukey", ukey),
		table.NewString("data_date", date),
		table.NewFloat64("close_price", closePx),
	)
}
