package domain

import "time"

// ExecutionStatus es el resultado de invocar el execution adapter.
type ExecutionStatus int

const (
	ExecRejected ExecutionStatus = iota
	ExecFilled
	ExecSimulatedFill
)

// String devuelve el nombre del status para logs.
func (s ExecutionStatus) String() string {
	switch s {
	case ExecFilled:
		return "FILLED"
	case ExecSimulatedFill:
		return "SIMULATED_FILL"
	default:
		return "REJECTED"
	}
}

// ExecutionRequest es lo que el cycle controller pasa al execution adapter.
type ExecutionRequest struct {
	Decision Decision
	Position Position
	Prices   map[string]float64
	Fees     FeeSchedule
}

// ExecutionResult es Filled(trade) | SimulatedFill(trade) | Rejected(reason).
// En Filled/SimulatedFill, Trade y Position describen el nuevo estado;
// en Rejected la posición no cambia y Trade es nil.
type ExecutionResult struct {
	Status   ExecutionStatus
	Trade    *TradeRecord
	Position Position
	Reason   string
	Warnings []string
}

// OK devuelve true si la ejecución produjo un trade.
func (r ExecutionResult) OK() bool {
	return r.Status == ExecFilled || r.Status == ExecSimulatedFill
}

// OrderResult es la respuesta del colaborador de ejecución (exchange) a PlaceOrder.
type OrderResult struct {
	OrderIDs     []string
	FromAsset    string
	ToAsset      string  // asset realmente recibido; quote si solo se completó la venta
	FromQuantity float64 // vendido de FromAsset
	Quantity     float64 // recibido de ToAsset
	Price        float64 // precio medio de fill de ToAsset
	Fee          float64 // comisiones en quote
	Partial      bool    // la venta se completó pero la compra no
	PartialError string
}

// CycleReport resume un ciclo para notifiers y reporting.
type CycleReport struct {
	Cycle     int
	StartedAt time.Time
	Duration  time.Duration
	Scores    []AssetScore // ya rankeados
	Excluded  []Exclusion  // assets fuera del ranking este ciclo
	Decision  Decision
	Execution *ExecutionResult
	Position  Position
	Value     float64 // valor de la posición en quote al final del ciclo
	Simulated bool
	Aborted   bool
	Error     string
}
