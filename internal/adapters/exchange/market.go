package exchange

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/alejandrodnm/rotator/internal/domain"
)

// PriceSeries descarga las velas que cubren la ventana de lookback.
func (c *Client) PriceSeries(ctx context.Context, asset string, window domain.LookbackWindow) (domain.PriceSeries, error) {
	code, err := IntervalCode(window.Interval)
	if err != nil {
		return domain.PriceSeries{}, fmt.Errorf("exchange.PriceSeries: %s: %v: %w", asset, err, domain.ErrDataUnavailable)
	}

	params := url.Values{}
	params.Set("symbol", c.symbol(asset))
	params.Set("interval", code)
	params.Set("limit", strconv.Itoa(window.Samples()))

	var raw []klineRaw
	if err := c.get(ctx, "/api/v3/klines", params, &raw); err != nil {
		return domain.PriceSeries{}, fmt.Errorf("exchange.PriceSeries: %s: %v: %w", asset, err, domain.ErrDataUnavailable)
	}
	return mapKlines(asset, raw), nil
}

// FeeSchedule construye el fee schedule de la cuenta.
//
// Orden de precedencia por asset: override de config > comisión de la cuenta
// (tradeFee, requiere credenciales) > fee por defecto de config. Si tradeFee
// falla se sigue con los valores por defecto y se avisa.
func (c *Client) FeeSchedule(ctx context.Context) (domain.FeeSchedule, error) {
	rates := make(map[string]domain.FeeRates, len(c.cfg.Assets))
	for _, a := range c.cfg.Assets {
		if c.cfg.DefaultFees.Maker > 0 || c.cfg.DefaultFees.Taker > 0 {
			rates[a] = c.cfg.DefaultFees
		}
	}

	if c.HasCredentials() {
		var raw []tradeFeeRaw
		err := c.doSigned(ctx, c.orderLimiter, maxRetries, "GET", "/sapi/v1/asset/tradeFee", nil, &raw)
		if err != nil {
			slog.Warn("could not fetch account fees, using configured defaults", "err", err)
		} else {
			for a, r := range mapFeeRates(raw, c.cfg.Quote, c.cfg.Assets) {
				rates[a] = r
			}
		}
	}

	for a, r := range c.cfg.FeeOverrides {
		rates[a] = r
	}

	if len(rates) == 0 {
		return domain.FeeSchedule{}, fmt.Errorf("exchange.FeeSchedule: no fee rates for any asset: %w", domain.ErrDataUnavailable)
	}

	return domain.FeeSchedule{
		Account:   c.cfg.Account,
		Quote:     c.cfg.Quote,
		Rates:     rates,
		UseMaker:  c.cfg.UseMaker,
		Discount:  c.cfg.FeeDiscount,
		FetchedAt: time.Now().UTC(),
	}, nil
}

// symbolFilters devuelve los filtros de trading del par, cacheados tras la primera consulta.
func (c *Client) symbolFilters(ctx context.Context, asset string) (symbolInfo, error) {
	sym := c.symbol(asset)

	c.mu.Lock()
	info, ok := c.symbols[sym]
	c.mu.Unlock()
	if ok {
		return info, nil
	}

	params := url.Values{}
	params.Set("symbol", sym)
	var raw exchangeInfoRaw
	if err := c.get(ctx, "/api/v3/exchangeInfo", params, &raw); err != nil {
		return symbolInfo{}, fmt.Errorf("exchangeInfo %s: %w", sym, err)
	}
	for _, s := range raw.Symbols {
		if s.Symbol != sym {
			continue
		}
		info = mapSymbolInfo(s)
		c.mu.Lock()
		c.symbols[sym] = info
		c.mu.Unlock()
		return info, nil
	}
	return symbolInfo{}, fmt.Errorf("exchangeInfo %s: symbol not listed", sym)
}
