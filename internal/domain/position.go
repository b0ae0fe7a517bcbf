package domain

import "time"

// Position es el asset que se tiene actualmente (o cash si Asset == quote).
// Es el único estado mutable de larga vida: lo posee el cycle controller y
// solo cambia tras una ejecución exitosa.
type Position struct {
	Asset      string
	Quantity   float64
	EntryPrice float64 // precio de entrada en quote; 1 para cash
	UpdatedAt  time.Time
}

// CashPosition crea la posición inicial en moneda quote.
func CashPosition(quote string, amount float64) Position {
	return Position{
		Asset:      quote,
		Quantity:   amount,
		EntryPrice: 1,
		UpdatedAt:  time.Now().UTC(),
	}
}

// IsCash devuelve true si la posición está en la moneda quote.
func (p Position) IsCash(quote string) bool {
	return p.Asset == quote
}

// Notional devuelve el valor de la posición en quote. Si el asset no tiene
// precio este ciclo usa el EntryPrice como último precio conocido.
func (p Position) Notional(quote string, prices map[string]float64) float64 {
	if p.IsCash(quote) {
		return p.Quantity
	}
	if price, ok := prices[p.Asset]; ok && price > 0 {
		return p.Quantity * price
	}
	return p.Quantity * p.EntryPrice
}

// TradeRecord es una entrada inmutable del histórico de trades.
// Se crea una vez por trade ejecutado o simulado; nunca se modifica ni se borra.
type TradeRecord struct {
	ID           string
	Timestamp    time.Time
	FromAsset    string
	ToAsset      string
	FromQuantity float64 // cantidad vendida de FromAsset
	Quantity     float64 // cantidad recibida de ToAsset
	Price        float64 // precio de fill de ToAsset en quote
	Notional     float64 // valor en quote de la posición rotada
	Fee          float64 // fee pagado en quote
	ExpectedGain float64 // netGain estimado al decidir
	Simulated    bool
	OrderIDs     string // ids del exchange separados por coma; vacío si simulado
}

// PositionAfter devuelve la posición resultante del trade.
func (t TradeRecord) PositionAfter() Position {
	return Position{
		Asset:      t.ToAsset,
		Quantity:   t.Quantity,
		EntryPrice: t.Price,
		UpdatedAt:  t.Timestamp,
	}
}

// PortfolioSnapshot es la foto de la cartera al final de cada ciclo.
type PortfolioSnapshot struct {
	Timestamp time.Time
	Asset     string
	Quantity  float64
	Value     float64 // en quote
	Prices    map[string]float64
}
