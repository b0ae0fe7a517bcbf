package exchange_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/alejandrodnm/rotator/internal/adapters/exchange"
	"github.com/alejandrodnm/rotator/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "s3cr3t"

func fixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile("../../../testdata/fixtures/" + name)
	require.NoError(t, err)
	return data
}

func newTestClient(srv *httptest.Server, withCreds bool) *exchange.Client {
	cfg := exchange.Config{
		BaseURL:     srv.URL,
		Account:     "test",
		Quote:       "USDT",
		Assets:      []string{"BTC", "ETH", "SOL"},
		DefaultFees: domain.FeeRates{Maker: 0.0008, Taker: 0.001},
	}
	if withCreds {
		cfg.APIKey = "key"
		cfg.APISecret = testSecret
	}
	return exchange.NewClient(cfg)
}

// validSignature comprueba la firma HMAC de la query como lo haría el exchange.
func validSignature(r *http.Request) bool {
	raw := r.URL.RawQuery
	idx := strings.LastIndex(raw, "&signature=")
	if idx < 0 {
		return false
	}
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write([]byte(raw[:idx]))
	return hex.EncodeToString(mac.Sum(nil)) == raw[idx+len("&signature="):]
}

func TestPriceSeries_Success(t *testing.T) {
	data := fixture(t, "exchange_klines_eth.json")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/klines", r.URL.Path)
		assert.Equal(t, "ETHUSDT", r.URL.Query().Get("symbol"))
		assert.Equal(t, "1h", r.URL.Query().Get("interval"))
		assert.Equal(t, "25", r.URL.Query().Get("limit"))
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	}))
	defer srv.Close()

	client := newTestClient(srv, false)
	series, err := client.PriceSeries(context.Background(), "ETH",
		domain.LookbackWindow{Duration: 24 * time.Hour, Interval: time.Hour})

	require.NoError(t, err)
	assert.Equal(t, "ETH", series.Asset)
	require.Len(t, series.Points, 3)
	assert.InDelta(t, 3000.0, series.Points[0].Price, 1e-9)
	assert.InDelta(t, 3300.0, series.Points[2].Price, 1e-9)
	assert.InDelta(t, 1520.3, series.Points[0].Volume, 1e-9)
	assert.InDelta(t, 2988.1, series.Points[2].Volume, 1e-9)
	assert.Equal(t, time.UnixMilli(1767229199999).UTC(), series.Points[2].Time)
}

func TestPriceSeries_ClientErrorIsDataUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":-1121,"msg":"Invalid symbol."}`))
	}))
	defer srv.Close()

	client := newTestClient(srv, false)
	_, err := client.PriceSeries(context.Background(), "XYZ",
		domain.LookbackWindow{Duration: 24 * time.Hour, Interval: time.Hour})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDataUnavailable)
	assert.Contains(t, err.Error(), "Invalid symbol")
}

func TestPriceSeries_UnsupportedInterval(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no debe llamar al exchange")
	}))
	defer srv.Close()

	client := newTestClient(srv, false)
	_, err := client.PriceSeries(context.Background(), "ETH",
		domain.LookbackWindow{Duration: 24 * time.Hour, Interval: 7 * time.Minute})
	assert.ErrorIs(t, err, domain.ErrDataUnavailable)
}

func TestFeeSchedule_MergesAccountFeesAndOverrides(t *testing.T) {
	data := fixture(t, "exchange_trade_fee.json")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sapi/v1/asset/tradeFee", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("X-MBX-APIKEY"))
		assert.True(t, validSignature(r), "firma HMAC inválida")
		w.Write(data)
	}))
	defer srv.Close()

	cfg := exchange.Config{
		BaseURL:      srv.URL,
		APIKey:       "key",
		APISecret:    testSecret,
		Quote:        "USDT",
		Assets:       []string{"BTC", "ETH", "SOL"},
		DefaultFees:  domain.FeeRates{Maker: 0.0008, Taker: 0.001},
		FeeOverrides: map[string]domain.FeeRates{"ETH": {Maker: 0.0002, Taker: 0.0004}},
		FeeDiscount:  0.25,
	}
	fs, err := exchange.NewClient(cfg).FeeSchedule(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "USDT", fs.Quote)
	assert.InDelta(t, 0.00075, fs.Rates["BTC"].Taker, 1e-12) // cuenta
	assert.InDelta(t, 0.0004, fs.Rates["ETH"].Taker, 1e-12)  // override
	assert.InDelta(t, 0.001, fs.Rates["SOL"].Taker, 1e-12)   // default
	assert.InDelta(t, 0.25, fs.Discount, 1e-12)
	assert.NotContains(t, fs.Rates, "ETHBTC")
}

func TestFeeSchedule_WithoutCredentialsUsesDefaults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("sin credenciales no se consulta tradeFee")
	}))
	defer srv.Close()

	fs, err := newTestClient(srv, false).FeeSchedule(context.Background())
	require.NoError(t, err)
	assert.Len(t, fs.Rates, 3)
	assert.InDelta(t, 0.0008, fs.Rates["BTC"].Maker, 1e-12)
}

func TestFeeSchedule_AccountFeeErrorFallsBackToDefaults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"code":-2015,"msg":"Invalid API-key"}`))
	}))
	defer srv.Close()

	fs, err := newTestClient(srv, true).FeeSchedule(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 0.001, fs.Rates["ETH"].Taker, 1e-12)
}

func TestIntervalCode(t *testing.T) {
	code, err := exchange.IntervalCode(4 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "4h", code)

	_, err = exchange.IntervalCode(90 * time.Minute)
	assert.Error(t, err)
}
