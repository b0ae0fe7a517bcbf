package execution

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/rotator/internal/domain"
)

// Simulated ejecuta rotaciones sin ninguna llamada externa.
//
// Fill al último precio conocido del target:
//
//	fee      = EstimatedRoundTripFee(from, to, notional)
//	quantity = (notional - fee) / fillPrice
type Simulated struct {
	now func() time.Time
}

// NewSimulated crea el adapter de simulación.
func NewSimulated() *Simulated {
	return &Simulated{now: time.Now}
}

// Simulated implementa ports.Executor.
func (s *Simulated) Simulated() bool { return true }

// Execute simula la rotación. Nunca reintenta ni llama a la red.
func (s *Simulated) Execute(_ context.Context, req domain.ExecutionRequest) (domain.ExecutionResult, error) {
	if err := checkRequest(req); err != nil {
		return domain.ExecutionResult{}, err
	}

	d := req.Decision
	quote := req.Fees.Quote

	fillPrice := 1.0
	if d.Target != quote {
		p, ok := req.Prices[d.Target]
		if !ok || p <= 0 {
			return rejected(fmt.Sprintf("no price for %s this cycle", d.Target)), nil
		}
		fillPrice = p
	}

	amount := notional(req)
	fee, err := domain.EstimatedRoundTripFee(req.Position.Asset, d.Target, amount, req.Fees)
	if err != nil {
		return rejected(err.Error()), nil
	}

	qty := (amount - fee) / fillPrice
	if qty <= 0 {
		return rejected(fmt.Sprintf("fee %.4f consumes notional %.4f", fee, amount)), nil
	}

	trade := domain.TradeRecord{
		ID:           uuid.New().String(),
		Timestamp:    s.now().UTC(),
		FromAsset:    req.Position.Asset,
		ToAsset:      d.Target,
		FromQuantity: req.Position.Quantity,
		Quantity:     qty,
		Price:        fillPrice,
		Notional:     amount,
		Fee:          fee,
		ExpectedGain: d.NetGain,
		Simulated:    true,
	}

	slog.Info("SIMULATION: rotation filled",
		"from", trade.FromAsset,
		"to", trade.ToAsset,
		"quantity", trade.Quantity,
		"price", trade.Price,
		"fee", fmt.Sprintf("$%.4f", fee),
	)

	return domain.ExecutionResult{
		Status:   domain.ExecSimulatedFill,
		Trade:    &trade,
		Position: trade.PositionAfter(),
	}, nil
}
