package exchange_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/alejandrodnm/rotator/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeExchange sirve exchangeInfo y órdenes market para BTC y ETH.
type fakeExchange struct {
	t          *testing.T
	mu         sync.Mutex
	orders     []map[string]string
	lookups    []string // origClientOrderId de cada GET /api/v3/order
	rejectOn   string   // side que se rechaza con 400
	postStatus int      // != 0: el POST responde con este status sin cuerpo válido
	lookupOK   bool     // el GET encuentra la orden; si no, -2013
}

func (f *fakeExchange) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	switch r.URL.Path {
	case "/api/v3/exchangeInfo":
		switch q.Get("symbol") {
		case "BTCUSDT":
			w.Write(fixture(f.t, "exchange_info_btc.json"))
		case "ETHUSDT":
			w.Write(fixture(f.t, "exchange_info_eth.json"))
		default:
			w.Write([]byte(`{"symbols":[]}`))
		}
	case "/api/v3/order":
		assert.True(f.t, validSignature(r), "firma HMAC inválida")
		if r.Method == http.MethodGet {
			f.serveLookup(w, q)
			return
		}
		assert.Equal(f.t, http.MethodPost, r.Method)

		f.mu.Lock()
		f.orders = append(f.orders, map[string]string{
			"symbol":        q.Get("symbol"),
			"side":          q.Get("side"),
			"type":          q.Get("type"),
			"quantity":      q.Get("quantity"),
			"quoteOrderQty": q.Get("quoteOrderQty"),
			"clientId":      q.Get("newClientOrderId"),
		})
		f.mu.Unlock()

		if f.postStatus != 0 {
			w.WriteHeader(f.postStatus)
			w.Write([]byte(`<html>Bad Gateway</html>`))
			return
		}
		if q.Get("side") == f.rejectOn {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"code":-2010,"msg":"Account has insufficient balance for requested action."}`))
			return
		}
		if q.Get("side") == "SELL" {
			w.Write(fixture(f.t, "exchange_order_sell_btc.json"))
			return
		}
		w.Write(fixture(f.t, "exchange_order_buy_eth.json"))
	default:
		f.t.Errorf("unexpected path %s", r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeExchange) serveLookup(w http.ResponseWriter, q url.Values) {
	f.mu.Lock()
	f.lookups = append(f.lookups, q.Get("origClientOrderId"))
	f.mu.Unlock()

	if !f.lookupOK {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":-2013,"msg":"Order does not exist."}`))
		return
	}
	w.Write(fixture(f.t, "exchange_order_sell_btc.json"))
}

func TestPlaceOrder_CryptoToCrypto(t *testing.T) {
	fx := &fakeExchange{t: t}
	srv := httptest.NewServer(fx)
	defer srv.Close()

	res, err := newTestClient(srv, true).PlaceOrder(context.Background(), "BTC", "ETH", 0.0020047)
	require.NoError(t, err)

	require.Len(t, fx.orders, 2)
	sell, buy := fx.orders[0], fx.orders[1]
	assert.Equal(t, "BTCUSDT", sell["symbol"])
	assert.Equal(t, "SELL", sell["side"])
	assert.Equal(t, "MARKET", sell["type"])
	assert.Equal(t, "0.002", sell["quantity"], "redondeado al step del LOT_SIZE")
	assert.Len(t, sell["clientId"], 36)

	assert.Equal(t, "ETHUSDT", buy["symbol"])
	assert.Equal(t, "BUY", buy["side"])
	assert.Equal(t, "99.9", buy["quoteOrderQty"], "gasta lo obtenido neto de comisión")

	assert.False(t, res.Partial)
	assert.Equal(t, "ETH", res.ToAsset)
	assert.Equal(t, []string{"28457", "91822"}, res.OrderIDs)
	assert.InDelta(t, 0.002, res.FromQuantity, 1e-12)
	assert.InDelta(t, 0.02997, res.Quantity, 1e-12)
	assert.InDelta(t, 3330.0, res.Price, 1e-9)
	assert.InDelta(t, 0.1999, res.Fee, 1e-9)
}

func TestPlaceOrder_FromCashOnlyBuys(t *testing.T) {
	fx := &fakeExchange{t: t}
	srv := httptest.NewServer(fx)
	defer srv.Close()

	res, err := newTestClient(srv, true).PlaceOrder(context.Background(), "USDT", "ETH", 100)
	require.NoError(t, err)

	require.Len(t, fx.orders, 1)
	assert.Equal(t, "BUY", fx.orders[0]["side"])
	assert.Equal(t, "100", fx.orders[0]["quoteOrderQty"])
	assert.InDelta(t, 100.0, res.FromQuantity, 1e-12)
	assert.InDelta(t, 0.02997, res.Quantity, 1e-12)
}

func TestPlaceOrder_ToCashOnlySells(t *testing.T) {
	fx := &fakeExchange{t: t}
	srv := httptest.NewServer(fx)
	defer srv.Close()

	res, err := newTestClient(srv, true).PlaceOrder(context.Background(), "BTC", "USDT", 0.002)
	require.NoError(t, err)

	require.Len(t, fx.orders, 1)
	assert.Equal(t, "USDT", res.ToAsset)
	assert.InDelta(t, 99.9, res.Quantity, 1e-9)
	assert.InDelta(t, 1.0, res.Price, 1e-12)
}

func TestPlaceOrder_SellRejected(t *testing.T) {
	fx := &fakeExchange{t: t, rejectOn: "SELL"}
	srv := httptest.NewServer(fx)
	defer srv.Close()

	_, err := newTestClient(srv, true).PlaceOrder(context.Background(), "BTC", "ETH", 0.002)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrOrderRejected)
	assert.Contains(t, err.Error(), "insufficient balance")
	assert.Len(t, fx.orders, 1, "sin venta no hay compra")
}

func TestPlaceOrder_BuyRejectedAfterSellIsPartial(t *testing.T) {
	fx := &fakeExchange{t: t, rejectOn: "BUY"}
	srv := httptest.NewServer(fx)
	defer srv.Close()

	res, err := newTestClient(srv, true).PlaceOrder(context.Background(), "BTC", "ETH", 0.002)
	require.NoError(t, err)

	assert.True(t, res.Partial)
	assert.Equal(t, "USDT", res.ToAsset, "los fondos quedan en quote")
	assert.InDelta(t, 99.9, res.Quantity, 1e-9)
	assert.Equal(t, []string{"28457"}, res.OrderIDs)
	assert.Contains(t, res.PartialError, "insufficient balance")
}

func TestPlaceOrder_BelowLotSizeRejectedLocally(t *testing.T) {
	fx := &fakeExchange{t: t}
	srv := httptest.NewServer(fx)
	defer srv.Close()

	_, err := newTestClient(srv, true).PlaceOrder(context.Background(), "BTC", "ETH", 0.000001)
	assert.ErrorIs(t, err, domain.ErrOrderRejected)
	assert.Empty(t, fx.orders)
}

func TestPlaceOrder_WithoutCredentialsRejected(t *testing.T) {
	fx := &fakeExchange{t: t}
	srv := httptest.NewServer(fx)
	defer srv.Close()

	_, err := newTestClient(srv, false).PlaceOrder(context.Background(), "USDT", "ETH", 50)
	assert.ErrorIs(t, err, domain.ErrOrderRejected)
	assert.Empty(t, fx.orders)
}

func TestPlaceOrder_UnknownSymbolRejected(t *testing.T) {
	fx := &fakeExchange{t: t}
	srv := httptest.NewServer(fx)
	defer srv.Close()

	_, err := newTestClient(srv, true).PlaceOrder(context.Background(), "USDT", "DOGE", 50)
	assert.ErrorIs(t, err, domain.ErrOrderRejected)
}

func TestPlaceOrder_GatewayErrorRecoversFillByClientID(t *testing.T) {
	fx := &fakeExchange{t: t, postStatus: http.StatusBadGateway, lookupOK: true}
	srv := httptest.NewServer(fx)
	defer srv.Close()

	res, err := newTestClient(srv, true).PlaceOrder(context.Background(), "BTC", "USDT", 0.002)
	require.NoError(t, err)

	require.Len(t, fx.orders, 1, "la orden no se reenvía")
	require.Len(t, fx.lookups, 1)
	assert.Equal(t, fx.orders[0]["clientId"], fx.lookups[0])
	assert.Equal(t, []string{"28457"}, res.OrderIDs)
	assert.InDelta(t, 99.9, res.Quantity, 1e-9)
}

func TestPlaceOrder_UnknownOutcomeIsOrderTimeout(t *testing.T) {
	fx := &fakeExchange{t: t, postStatus: http.StatusBadGateway}
	srv := httptest.NewServer(fx)
	defer srv.Close()

	_, err := newTestClient(srv, true).PlaceOrder(context.Background(), "BTC", "USDT", 0.002)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrOrderTimeout), err.Error())
	assert.False(t, errors.Is(err, domain.ErrOrderRejected))

	assert.Len(t, fx.orders, 1, "exactamente un POST")
	require.Len(t, fx.lookups, 1)
	assert.Equal(t, fx.orders[0]["clientId"], fx.lookups[0])
}
