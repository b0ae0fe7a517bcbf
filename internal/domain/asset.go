package domain

import (
	"strings"
	"time"
)

// PricePoint es una muestra de una serie: cierre de vela y su volumen.
type PricePoint struct {
	Time   time.Time
	Price  float64
	Volume float64 // volumen en el asset base; 0 si la fuente no lo da
}

// PriceSeries es la serie de precios de un asset en la ventana de lookback.
// Se reemplaza en cada ciclo, nunca se mergea con la anterior.
type PriceSeries struct {
	Asset  string
	Points []PricePoint
}

// Latest devuelve la última muestra válida (precio finito y > 0).
func (s PriceSeries) Latest() (PricePoint, bool) {
	for i := len(s.Points) - 1; i >= 0; i-- {
		if validPrice(s.Points[i].Price) {
			return s.Points[i], true
		}
	}
	return PricePoint{}, false
}

// LookbackWindow define cuánta historia se usa para calcular el score.
type LookbackWindow struct {
	Duration time.Duration // p.ej. 24h
	Interval time.Duration // granularidad de las velas, p.ej. 1h
}

// Samples devuelve cuántas velas hay que pedir para cubrir la ventana (incluye ambos extremos).
func (w LookbackWindow) Samples() int {
	if w.Interval <= 0 || w.Duration <= 0 {
		return 2
	}
	n := int(w.Duration/w.Interval) + 1
	if n < 2 {
		return 2
	}
	return n
}

// AssetScore es el PerformanceScore de un asset en el ciclo actual. Nunca se persiste.
type AssetScore struct {
	Asset string
	Score float64
}

// NormalizeSymbol pasa un símbolo a mayúsculas sin espacios.
func NormalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
