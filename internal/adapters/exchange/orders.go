package exchange

// orders.go: ejecución de rotaciones con órdenes market.
//
// Una rotación crypto→crypto son dos órdenes: SELL from/quote y BUY to/quote
// gastando lo obtenido (quoteOrderQty). Desde cash solo hay BUY; hacia cash solo SELL.
// Las órdenes nunca se reintentan: un 5xx o timeout deja el resultado en duda
// y se consulta el estado por clientOrderId antes de darla por perdida.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/alejandrodnm/rotator/internal/domain"
)

const (
	sideBuy  = "BUY"
	sideSell = "SELL"

	lookupTimeout = 5 * time.Second
)

// legFill es el resultado agregado de una orden market.
type legFill struct {
	OrderID  string
	Base     decimal.Decimal // asset vendido (sell) o recibido neto de comisión (buy)
	Quote    decimal.Decimal // quote recibido neto (sell) o gastado (buy)
	Fee      decimal.Decimal // comisiones convertidas a quote
	AvgPrice decimal.Decimal
}

// PlaceOrder vende quantity de from y compra to con lo obtenido.
// Si from es la moneda quote, quantity es el importe a gastar.
//
// Si la venta se completa pero la compra falla, devuelve Partial=true con
// ToAsset = quote y sin error: los fondos ya están en cash.
func (c *Client) PlaceOrder(ctx context.Context, from, to string, quantity float64) (domain.OrderResult, error) {
	quote := c.cfg.Quote
	res := domain.OrderResult{FromAsset: from, ToAsset: to}

	if from == to {
		return res, fmt.Errorf("exchange.PlaceOrder: %s to itself: %w", from, domain.ErrOrderRejected)
	}
	if quantity <= 0 {
		return res, fmt.Errorf("exchange.PlaceOrder: quantity %f: %w", quantity, domain.ErrOrderRejected)
	}

	spend := decimal.NewFromFloat(quantity)
	fee := decimal.Zero

	if from != quote {
		sell, err := c.marketOrder(ctx, from, sideSell, spend)
		if err != nil {
			return res, fmt.Errorf("exchange.PlaceOrder: sell %s: %w", from, err)
		}
		res.OrderIDs = append(res.OrderIDs, sell.OrderID)
		res.FromQuantity = sell.Base.InexactFloat64()
		fee = fee.Add(sell.Fee)
		spend = sell.Quote

		if to == quote {
			res.Quantity = spend.InexactFloat64()
			res.Price = 1
			res.Fee = fee.InexactFloat64()
			return res, nil
		}
	} else {
		res.FromQuantity = quantity
	}

	buy, err := c.marketOrder(ctx, to, sideBuy, spend)
	if err != nil {
		if from == quote {
			return res, fmt.Errorf("exchange.PlaceOrder: buy %s: %w", to, err)
		}
		slog.Warn("sell leg filled but buy leg failed, holding quote",
			"from", from,
			"to", to,
			"quote", fmt.Sprintf("$%.2f", spend.InexactFloat64()),
			"err", err,
		)
		res.ToAsset = quote
		res.Quantity = spend.InexactFloat64()
		res.Price = 1
		res.Fee = fee.InexactFloat64()
		res.Partial = true
		res.PartialError = err.Error()
		return res, nil
	}

	res.OrderIDs = append(res.OrderIDs, buy.OrderID)
	res.Quantity = buy.Base.InexactFloat64()
	res.Price = buy.AvgPrice.InexactFloat64()
	res.Fee = fee.Add(buy.Fee).InexactFloat64()
	return res, nil
}

// marketOrder envía una orden market. Para SELL amount es cantidad del asset;
// para BUY es el importe en quote a gastar.
func (c *Client) marketOrder(ctx context.Context, asset, side string, amount decimal.Decimal) (legFill, error) {
	info, err := c.symbolFilters(ctx, asset)
	if err != nil {
		return legFill{}, fmt.Errorf("%v: %w", err, domain.ErrOrderRejected)
	}
	if !info.Trading {
		return legFill{}, fmt.Errorf("%s not trading: %w", info.Symbol, domain.ErrOrderRejected)
	}

	params := url.Values{}
	params.Set("symbol", info.Symbol)
	params.Set("side", side)
	params.Set("type", "MARKET")
	params.Set("newOrderRespType", "FULL")
	clientID := uuid.New().String()
	params.Set("newClientOrderId", clientID)

	switch side {
	case sideSell:
		qty := floorToStep(amount, info.StepSize)
		if !qty.IsPositive() || qty.LessThan(info.MinQty) {
			return legFill{}, fmt.Errorf("%s quantity %s below lot size: %w", info.Symbol, qty, domain.ErrOrderRejected)
		}
		params.Set("quantity", qty.String())
	default:
		quoteQty := amount.Truncate(info.QuotePrecision)
		if !quoteQty.IsPositive() || (info.MinNotional.IsPositive() && quoteQty.LessThan(info.MinNotional)) {
			return legFill{}, fmt.Errorf("%s notional %s below minimum: %w", info.Symbol, quoteQty, domain.ErrOrderRejected)
		}
		params.Set("quoteOrderQty", quoteQty.String())
	}

	var resp orderResponse
	err = c.doSigned(ctx, c.orderLimiter, 0, http.MethodPost, "/api/v3/order", params, &resp)
	switch {
	case err == nil:
	case errors.Is(err, errNoCredentials):
		return legFill{}, fmt.Errorf("%v: %w", err, domain.ErrOrderRejected)
	case isUnknownOutcome(err) || ctx.Err() != nil:
		found, lookupErr := c.lookupOrder(ctx, info.Symbol, clientID)
		if lookupErr != nil {
			return legFill{}, fmt.Errorf("%s %s: %v: %w", side, info.Symbol, err, domain.ErrOrderTimeout)
		}
		resp = found
	default:
		return legFill{}, fmt.Errorf("%s %s: %v: %w", side, info.Symbol, err, domain.ErrOrderRejected)
	}

	fill := aggregateFill(resp, asset, c.cfg.Quote, side)
	if !fill.Base.IsPositive() {
		return legFill{}, fmt.Errorf("%s %s status %s, nothing executed: %w", side, info.Symbol, resp.Status, domain.ErrOrderRejected)
	}
	if resp.Status != "FILLED" {
		slog.Warn("market order partially executed", "symbol", info.Symbol, "side", side, "status", resp.Status, "executed", resp.ExecutedQty)
	}
	return fill, nil
}

// lookupOrder consulta una orden por clientOrderId tras un resultado incierto.
// Usa un contexto propio: el de la orden puede haber expirado ya.
func (c *Client) lookupOrder(ctx context.Context, symbol, clientID string) (orderResponse, error) {
	lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), lookupTimeout)
	defer cancel()

	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("origClientOrderId", clientID)

	var resp orderResponse
	if err := c.doSigned(lctx, c.orderLimiter, 1, http.MethodGet, "/api/v3/order", params, &resp); err != nil {
		return orderResponse{}, fmt.Errorf("lookup order %s: %w", clientID, err)
	}
	return resp, nil
}

// aggregateFill suma los fills de la respuesta. Las comisiones se convierten a
// quote; las cobradas en un tercer asset (p.ej. BNB) no se pueden valorar aquí.
func aggregateFill(resp orderResponse, asset, quote, side string) legFill {
	executed := parseDecimal(resp.ExecutedQty)
	cumQuote := parseDecimal(resp.CummulativeQuoteQty)

	fill := legFill{
		OrderID: strconv.FormatInt(resp.OrderID, 10),
		Base:    executed,
		Quote:   cumQuote,
		Fee:     decimal.Zero,
	}
	if executed.IsPositive() {
		fill.AvgPrice = cumQuote.Div(executed)
	}

	for _, f := range resp.Fills {
		commission := parseDecimal(f.Commission)
		if commission.IsZero() {
			continue
		}
		switch f.CommissionAsset {
		case quote:
			fill.Fee = fill.Fee.Add(commission)
			if side == sideSell {
				fill.Quote = fill.Quote.Sub(commission)
			}
		case asset:
			fill.Fee = fill.Fee.Add(commission.Mul(parseDecimal(f.Price)))
			if side == sideBuy {
				fill.Base = fill.Base.Sub(commission)
			}
		default:
			slog.Debug("commission charged in third asset", "asset", f.CommissionAsset, "amount", f.Commission)
		}
	}
	return fill
}
