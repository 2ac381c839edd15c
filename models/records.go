package models

// Parquet record layouts for the three input feeds. Files are expected to
// already carry semantic column names (the rename mapping applies to CSV
// inputs; parquet inputs are produced by upstream jobs that emit semantic
// names directly).

// TradeRecord is one fill from the trade feed.
type TradeRecord struct {
	Ukey           string  `parquet:"name=ukey, type=BYTE_ARRAY, convertedtype=UTF8"`
	DataDate       string  `parquet:"name=data_date, type=BYTE_ARRAY, convertedtype=UTF8"`
	AlphaTs        int64   `parquet:"name=alpha_ts, type=INT64"`
	OrderSide      string  `parquet:"name=order_side, type=BYTE_ARRAY, convertedtype=UTF8"`
	FillPrice      float64 `parquet:"name=fill_price, type=DOUBLE"`
	OrderFilledQty float64 `parquet:"name=order_filled_qty, type=DOUBLE"`
	BidPx0         float64 `parquet:"name=bid_px0, type=DOUBLE"`
	AskPx0         float64 `parquet:"name=ask_px0, type=DOUBLE"`
}

// AlphaRecord is one quote/alpha observation from the reference feed.
type AlphaRecord struct {
	Ukey     string  `parquet:"name=ukey, type=BYTE_ARRAY, convertedtype=UTF8"`
	DataDate string  `parquet:"name=data_date, type=BYTE_ARRAY, convertedtype=UTF8"`
	Ticktime int64   `parquet:"name=ticktime, type=INT64"`
	BidPx0   float64 `parquet:"name=bid_px0, type=DOUBLE"`
	AskPx0   float64 `parquet:"name=ask_px0, type=DOUBLE"`
}

// UnivRecord carries one instrument's daily closing reference price.
type UnivRecord struct {
	Ukey       string  `parquet:"name=ukey, type=BYTE_ARRAY, convertedtype=UTF8"`
	DataDate   string  `parquet:"name=data_date, type=BYTE_ARRAY, convertedtype=UTF8"`
	ClosePrice float64 `parquet:"name=close_price, type=DOUBLE"`
}
