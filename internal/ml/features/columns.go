package features

// Extra-series keys produced by the dataset merge step. The engine only
// derives a fundamental/positioning feature when the underlying series
// is actually populated for the corridor.
const (
	SeriesIRFrom      = "ir_from"
	SeriesIRTo        = "ir_to"
	SeriesVIX         = "vix"
	SeriesUSDIndex    = "usd_index"
	SeriesWTICrude    = "wti_crude"
	SeriesHYSpread    = "hy_spread"
	SeriesYieldSpread = "us_yield_spread"
	SeriesCOTFromNet  = "cot_from_net"
	SeriesCOTToNet    = "cot_to_net"
)

// PriceColumns are the scale-invariant columns computable from the rate
// series alone, in canonical order. Every corridor contributes all of
// them once past warm-up.
var PriceColumns = []string{
	"log_return_lag1",
	"ret_2d",
	"ret_5d",
	"ret_7d",
	"momentum_21d",
	"sma7_dist",
	"sma14_dist",
	"sma30_dist",
	"sma90_dist",
	"ema14_dist",
	"vol7",
	"vol14",
	"vol30",
	"vol_ratio",
	"range_pos_60",
	"rsi14",
	"macd_norm",
	"macd_signal_norm",
	"bb_width",
	"bb_pos",
	"dow_sin",
	"dow_cos",
	"month_sin",
	"month_cos",
	"day_of_month",
	"is_month_end",
	"is_month_start",
	"signal_agreement",
}

// OptionalColumns are derived from merged fundamental/positioning
// series and appear only when their source series is populated.
var OptionalColumns = []string{
	"ir_diff",
	"ir_diff_chg30",
	"ir_diff_z90",
	"vix_level",
	"vix_chg5",
	"vix_z90",
	"usd_index_ret5",
	"usd_index_sma30_dist",
	"yield_spread",
	"wti_ret30",
	"hy_spread_z90",
	"cot_from_net_z252",
	"cot_from_net_chg5",
	"cot_to_net_z252",
	"cot_to_net_chg5",
}

func AllColumns() []string {
	out := make([]string, 0, len(PriceColumns)+len(OptionalColumns))
	out = append(out, PriceColumns...)
	out = append(out, OptionalColumns...)
	return out
}
