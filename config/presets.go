package config

import "fmt"

// Column mapping presets for known upstream file formats. Each preset maps
// raw producer column names to the semantic names the pipeline operates on.

// ylinTradeV20251204 is ylin's trade/order format (v2025-12-04).
var ylinTradeV20251204 = NewMapping(map[string]string{
	// Order columns
	"symbol":            "ukey",
	"orderId":           "order_id",
	"orderSide":         "order_side",
	"orderQty":          "order_qty",
	"orderPrice":        "order_price",
	"priceType":         "order_price_type",
	"fillQty":           "order_filled_qty",
	"fillPrice":         "fill_price",
	"lastExchangeTs":    "update_exchange_ts",
	"createdTs":         "create_exchange_ts",
	"localTs":           "create_local_ts",
	"qtyAhead":          "qty_ahead",
	"qtyBehind":         "qty_behind",
	"orderStatus":       "order_curr_state",
	"orderTposType":     "order_tpos_type",
	"alphaTs":           "alpha_ts",
	"event":             "event_type",
	"cumFilledNotional": "order_filled_notional",
	"tradeDate":         "data_date",
	// Top-of-book quote columns
	"bid":   "bid_px0",
	"ask":   "ask_px0",
	"bsize": "bid_size0",
	"asize": "ask_size0",
	// Position columns
	"startPos":    "init_net_pos",
	"pos":         "current_net_pos",
	"realizedPos": "current_realized_net_pos",
	"openBuyPos":  "open_buy",
	"openSellPos": "open_sell",
	"cumBuy":      "cum_buy",
	"cumSell":     "cum_sell",
	"cashFlow":    "cash_flow",
	"frozenCash":  "frozen_cash",
	"quoteSeqNum": "seq_num",
	"quoteTs":     "timestamp",
}, []string{
	// Marker column emitted by the recorder; never meaningful downstream.
	"isRebasedQuote",
})

// jyaoAlphaV20251114 is jyao's alpha/quote format (v2025-11-14).
// Predictor naming rule: horizons of 60s and below keep the "s" suffix,
// longer ones are minute-denominated.
var jyaoAlphaV20251114 = NewMapping(map[string]string{
	"BidPrice1":    "bid_px0",
	"AskPrice1":    "ask_px0",
	"BidVolume1":   "bid_size0",
	"AskVolume1":   "ask_size0",
	"TimeStamp":    "ticktime",
	"GlobalExTime": "global_exchange_ts",
	"DataDate":     "data_date",
	"Volume":       "volume",
	"x10s":         "x_10s",
	"x60s":         "x_60s",
	"alpha1":       "x_3m",
	"alpha2":       "x_30m",
}, nil)

var presets = map[string]Mapping{
	"ylin_v20251204": ylinTradeV20251204,
	"jyao_v20251114": jyaoAlphaV20251114,
}

// Preset looks up a column mapping preset by name.
func Preset(name string) (Mapping, error) {
	p, ok := presets[name]
	if !ok {
		return Mapping{}, fmt.Errorf("unknown column preset %q", name)
	}
	return p, nil
}
