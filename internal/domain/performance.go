package domain

import (
	"fmt"
	"math"
)

// ScoreMetric selecciona la fórmula del PerformanceScore.
type ScoreMetric string

const (
	// MetricReturn: retorno porcentual simple sobre la ventana.
	MetricReturn ScoreMetric = "return"
	// MetricRiskAdjusted: retorno penalizado por volatilidad, con términos opcionales.
	MetricRiskAdjusted ScoreMetric = "risk_adjusted"
)

const (
	defaultRSIPeriod = 14
	volumeTrendSpan  = 5
)

// ScoreConfig parametriza el cálculo del score. Los pesos solo aplican a
// MetricRiskAdjusted; un peso 0 desactiva su término.
type ScoreConfig struct {
	Metric            ScoreMetric
	VolatilityPenalty float64
	RSIWeight         float64
	RSIPeriod         int // 0 = 14
	VolumeWeight      float64
}

// Score calcula el PerformanceScore de una serie dentro de la ventana.
//
// Fórmula base (MetricReturn):
//
//	score = (latest - earliest) / earliest
//
// MetricRiskAdjusted (todo en fracciones, no en %):
//
//	score = return
//	      - VolatilityPenalty × stddev(retornos entre muestras)
//	      + RSIWeight × (RSI - 50) / 100
//	      + VolumeWeight × (media vol. últimas 5 / media vol. 5 anteriores - 1)
//
// Sin muestras suficientes para el RSI se usa 50 (neutro); sin volumen en
// las 10 últimas muestras el término de volumen es 0.
//
// Las muestras NaN, ±Inf o <= 0 se descartan (nunca se sustituyen por cero).
// Con menos de 2 muestras válidas devuelve ErrInsufficientData.
// Determinista: misma serie, mismo score.
func Score(series PriceSeries, window LookbackWindow, cfg ScoreConfig) (float64, error) {
	points := windowPoints(series, window)
	if len(points) < 2 {
		return 0, fmt.Errorf("score %s: %d valid samples: %w", series.Asset, len(points), ErrInsufficientData)
	}
	prices := make([]float64, len(points))
	for i, p := range points {
		prices[i] = p.Price
	}

	earliest, latest := prices[0], prices[len(prices)-1]
	ret := (latest - earliest) / earliest

	if cfg.Metric != MetricRiskAdjusted {
		return ret, nil
	}
	score := ret - cfg.VolatilityPenalty*stepVolatility(prices)
	if cfg.RSIWeight != 0 {
		period := cfg.RSIPeriod
		if period <= 0 {
			period = defaultRSIPeriod
		}
		score += cfg.RSIWeight * (RSI(prices, period) - 50) / 100
	}
	if cfg.VolumeWeight != 0 {
		score += cfg.VolumeWeight * volumeTrend(points)
	}
	return score, nil
}

// windowPoints devuelve las muestras válidas dentro de [latest-Duration, latest],
// en el orden de la serie.
func windowPoints(series PriceSeries, window LookbackWindow) []PricePoint {
	last, ok := series.Latest()
	if !ok {
		return nil
	}
	from := last.Time
	if window.Duration > 0 {
		from = last.Time.Add(-window.Duration)
	}

	points := make([]PricePoint, 0, len(series.Points))
	for _, p := range series.Points {
		if !validPrice(p.Price) {
			continue
		}
		if window.Duration > 0 && (p.Time.Before(from) || p.Time.After(last.Time)) {
			continue
		}
		points = append(points, p)
	}
	return points
}

// RSI es el índice de fuerza relativa sobre los últimos period cambios,
// con medias simples de subidas y bajadas. Devuelve 50 si no hay period+1
// precios o si no hubo movimiento.
func RSI(prices []float64, period int) float64 {
	if period <= 0 || len(prices) < period+1 {
		return 50
	}
	var gain, loss float64
	for i := len(prices) - period; i < len(prices); i++ {
		d := prices[i] - prices[i-1]
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	switch {
	case gain == 0 && loss == 0:
		return 50
	case loss == 0:
		return 100
	}
	rs := (gain / float64(period)) / (loss / float64(period))
	return 100 - 100/(1+rs)
}

// volumeTrend compara el volumen medio de las últimas 5 muestras con el de
// las 5 anteriores. 0 si falta volumen.
func volumeTrend(points []PricePoint) float64 {
	if len(points) < 2*volumeTrendSpan {
		return 0
	}
	tail := points[len(points)-2*volumeTrendSpan:]
	var prev, recent float64
	for i, p := range tail {
		if !validPrice(p.Volume) {
			return 0
		}
		if i < volumeTrendSpan {
			prev += p.Volume
		} else {
			recent += p.Volume
		}
	}
	return recent/prev - 1
}

// stepVolatility es la desviación estándar muestral de los retornos entre muestras consecutivas.
func stepVolatility(prices []float64) float64 {
	if len(prices) < 3 {
		return 0
	}
	returns := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		returns = append(returns, (prices[i]-prices[i-1])/prices[i-1])
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns) - 1)
	return math.Sqrt(variance)
}

func validPrice(p float64) bool {
	return !math.IsNaN(p) && !math.IsInf(p, 0) && p > 0
}
