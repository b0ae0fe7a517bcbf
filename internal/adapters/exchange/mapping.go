package exchange

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alejandrodnm/rotator/internal/domain"
)

// intervalCodes son las granularidades de vela que acepta el exchange.
var intervalCodes = []struct {
	d    time.Duration
	code string
}{
	{time.Minute, "1m"},
	{3 * time.Minute, "3m"},
	{5 * time.Minute, "5m"},
	{15 * time.Minute, "15m"},
	{30 * time.Minute, "30m"},
	{time.Hour, "1h"},
	{2 * time.Hour, "2h"},
	{4 * time.Hour, "4h"},
	{6 * time.Hour, "6h"},
	{8 * time.Hour, "8h"},
	{12 * time.Hour, "12h"},
	{24 * time.Hour, "1d"},
}

// IntervalCode traduce una duración a su código de vela ("1h").
func IntervalCode(d time.Duration) (string, error) {
	for _, ic := range intervalCodes {
		if ic.d == d {
			return ic.code, nil
		}
	}
	return "", fmt.Errorf("unsupported candle interval %s", d)
}

// mapKlines convierte velas a una PriceSeries usando close, volume y closeTime.
// Velas con campos ilegibles se descartan; el evaluator ya ignora precios no válidos.
func mapKlines(asset string, raw []klineRaw) domain.PriceSeries {
	series := domain.PriceSeries{Asset: asset, Points: make([]domain.PricePoint, 0, len(raw))}
	for _, k := range raw {
		if len(k) < 7 {
			continue
		}
		var closeStr, volumeStr string
		var closeTime int64
		if json.Unmarshal(k[4], &closeStr) != nil || json.Unmarshal(k[6], &closeTime) != nil {
			continue
		}
		price, err := decimal.NewFromString(closeStr)
		if err != nil {
			continue
		}
		_ = json.Unmarshal(k[5], &volumeStr)
		series.Points = append(series.Points, domain.PricePoint{
			Time:   time.UnixMilli(closeTime).UTC(),
			Price:  price.InexactFloat64(),
			Volume: parseDecimal(volumeStr).InexactFloat64(),
		})
	}
	return series
}

// mapSymbolInfo extrae LOT_SIZE y NOTIONAL de los filtros del par.
func mapSymbolInfo(r symbolRaw) symbolInfo {
	info := symbolInfo{
		Symbol:         r.Symbol,
		Trading:        r.Status == "TRADING",
		QuotePrecision: r.QuoteAssetPrecision,
	}
	for _, f := range r.Filters {
		switch f.FilterType {
		case "LOT_SIZE", "MARKET_LOT_SIZE":
			// MARKET_LOT_SIZE con step 0 significa "sin restricción adicional"
			if step := parseDecimal(f.StepSize); step.IsPositive() {
				info.StepSize = step
			}
			if mq := parseDecimal(f.MinQty); mq.GreaterThan(info.MinQty) {
				info.MinQty = mq
			}
		case "NOTIONAL", "MIN_NOTIONAL":
			info.MinNotional = parseDecimal(f.MinNotional)
		}
	}
	if info.QuotePrecision <= 0 {
		info.QuotePrecision = 8
	}
	return info
}

// mapFeeRates convierte las comisiones del exchange a FeeRates por asset.
// Solo se aceptan pares del universo contra la moneda quote.
func mapFeeRates(raw []tradeFeeRaw, quote string, assets []string) map[string]domain.FeeRates {
	bySymbol := make(map[string]tradeFeeRaw, len(raw))
	for _, r := range raw {
		bySymbol[r.Symbol] = r
	}
	out := make(map[string]domain.FeeRates)
	for _, a := range assets {
		r, ok := bySymbol[a+quote]
		if !ok {
			continue
		}
		maker, err1 := decimal.NewFromString(r.MakerCommission)
		taker, err2 := decimal.NewFromString(r.TakerCommission)
		if err1 != nil || err2 != nil {
			continue
		}
		out[a] = domain.FeeRates{Maker: maker.InexactFloat64(), Taker: taker.InexactFloat64()}
	}
	return out
}

// floorToStep redondea qty hacia abajo al múltiplo de step más cercano.
func floorToStep(qty, step decimal.Decimal) decimal.Decimal {
	if !step.IsPositive() {
		return qty
	}
	return qty.Div(step).Floor().Mul(step)
}

func parseDecimal(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
