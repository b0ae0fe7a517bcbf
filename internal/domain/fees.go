package domain

import (
	"fmt"
	"time"
)

// FeeRates son las tasas fraccionales de un asset (0.001 = 0.1%).
type FeeRates struct {
	Maker float64
	Taker float64
}

// FeeSchedule es la estructura de fees de la cuenta del exchange.
// Solo lectura; se construye una vez al arrancar la sesión.
type FeeSchedule struct {
	Account   string
	Quote     string              // moneda quote ("USDT"); sus legs no pagan fee
	Rates     map[string]FeeRates // por símbolo de asset
	UseMaker  bool                // true = órdenes limit (maker), false = market (taker)
	Discount  float64             // descuento fraccional sobre el fee (0.25 = 25% off)
	FetchedAt time.Time
}

// Rate devuelve la tasa efectiva para un asset o ErrFeeScheduleMissing.
func (s FeeSchedule) Rate(asset string) (float64, error) {
	r, ok := s.Rates[asset]
	if !ok {
		return 0, fmt.Errorf("fees: %s: %w", asset, ErrFeeScheduleMissing)
	}
	rate := r.Taker
	if s.UseMaker {
		rate = r.Maker
	}
	discount := s.Discount
	if discount < 0 || discount >= 1 {
		discount = 0
	}
	return rate * (1 - discount), nil
}

// IsCash devuelve true si el símbolo es la moneda quote.
func (s FeeSchedule) IsCash(asset string) bool {
	return asset == s.Quote
}

// EstimatedRoundTripFee calcula el fee total de rotar notional desde from hacia to.
//
// Fórmula:
//
//	sellLeg = notional × rate(from)   si from no es cash
//	buyLeg  = notional × rate(to)     si to no es cash
//	fee     = sellLeg + buyLeg
//
// Función pura. Un asset sin entrada en el schedule es un error, nunca fee cero.
func EstimatedRoundTripFee(from, to string, notional float64, s FeeSchedule) (float64, error) {
	var fee float64
	if !s.IsCash(from) {
		rate, err := s.Rate(from)
		if err != nil {
			return 0, fmt.Errorf("sell leg: %w", err)
		}
		fee += notional * rate
	}
	if !s.IsCash(to) {
		rate, err := s.Rate(to)
		if err != nil {
			return 0, fmt.Errorf("buy leg: %w", err)
		}
		fee += notional * rate
	}
	return fee, nil
}

// FeeFraction devuelve el fee de la rotación como fracción del notional.
func FeeFraction(from, to string, s FeeSchedule) (float64, error) {
	return EstimatedRoundTripFee(from, to, 1, s)
}
