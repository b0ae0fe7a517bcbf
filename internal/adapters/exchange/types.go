package exchange

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// klineRaw es una vela de /api/v3/klines:
// [openTime, open, high, low, close, volume, closeTime, ...]
type klineRaw []json.RawMessage

type tradeFeeRaw struct {
	Symbol          string `json:"symbol"`
	MakerCommission string `json:"makerCommission"`
	TakerCommission string `json:"takerCommission"`
}

type exchangeInfoRaw struct {
	Symbols []symbolRaw `json:"symbols"`
}

type symbolRaw struct {
	Symbol              string      `json:"symbol"`
	Status              string      `json:"status"`
	BaseAsset           string      `json:"baseAsset"`
	QuoteAsset          string      `json:"quoteAsset"`
	QuoteAssetPrecision int32       `json:"quoteAssetPrecision"`
	Filters             []filterRaw `json:"filters"`
}

type filterRaw struct {
	FilterType  string `json:"filterType"`
	StepSize    string `json:"stepSize"`
	MinQty      string `json:"minQty"`
	MinNotional string `json:"minNotional"`
}

// symbolInfo son los filtros de trading de un par que necesitamos.
type symbolInfo struct {
	Symbol         string
	Trading        bool
	StepSize       decimal.Decimal
	MinQty         decimal.Decimal
	MinNotional    decimal.Decimal
	QuotePrecision int32
}

type orderResponse struct {
	Symbol              string      `json:"symbol"`
	OrderID             int64       `json:"orderId"`
	ClientOrderID       string      `json:"clientOrderId"`
	Status              string      `json:"status"`
	ExecutedQty         string      `json:"executedQty"`
	CummulativeQuoteQty string      `json:"cummulativeQuoteQty"`
	Fills               []orderFill `json:"fills"`
}

type orderFill struct {
	Price           string `json:"price"`
	Qty             string `json:"qty"`
	Commission      string `json:"commission"`
	CommissionAsset string `json:"commissionAsset"`
}
