package execution

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/rotator/internal/domain"
	"github.com/alejandrodnm/rotator/internal/ports"
)

const defaultExecuteTimeout = 30 * time.Second

// Live ejecuta rotaciones reales a través del exchange.
type Live struct {
	placer  ports.OrderPlacer
	timeout time.Duration
	now     func() time.Time
}

// NewLive crea el adapter live. timeout acota toda la rotación (ambos legs).
func NewLive(placer ports.OrderPlacer, timeout time.Duration) *Live {
	if timeout <= 0 {
		timeout = defaultExecuteTimeout
	}
	return &Live{placer: placer, timeout: timeout, now: time.Now}
}

// Simulated implementa ports.Executor.
func (l *Live) Simulated() bool { return false }

// Execute coloca la rotación. Un rechazo o timeout del exchange devuelve
// Rejected con la posición intacta; nunca se reintenta dentro del ciclo.
func (l *Live) Execute(ctx context.Context, req domain.ExecutionRequest) (domain.ExecutionResult, error) {
	if err := checkRequest(req); err != nil {
		return domain.ExecutionResult{}, err
	}
	d := req.Decision
	pos := req.Position

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	placed, err := l.placer.PlaceOrder(ctx, pos.Asset, d.Target, pos.Quantity)
	if err != nil {
		reason := classify(err)
		slog.Warn("rotation rejected",
			"from", pos.Asset,
			"to", d.Target,
			"reason", reason,
			"err", err,
		)
		return rejected(fmt.Sprintf("%s: %v", reason, err)), nil
	}

	trade := domain.TradeRecord{
		ID:           uuid.New().String(),
		Timestamp:    l.now().UTC(),
		FromAsset:    pos.Asset,
		ToAsset:      placed.ToAsset,
		FromQuantity: placed.FromQuantity,
		Quantity:     placed.Quantity,
		Price:        placed.Price,
		Notional:     notional(req),
		Fee:          placed.Fee,
		ExpectedGain: d.NetGain,
		OrderIDs:     strings.Join(placed.OrderIDs, ","),
	}
	if trade.ToAsset == "" {
		trade.ToAsset = d.Target
	}

	res := domain.ExecutionResult{
		Status:   domain.ExecFilled,
		Trade:    &trade,
		Position: trade.PositionAfter(),
	}
	if placed.Partial {
		msg := fmt.Sprintf("sold %s but buy of %s failed, holding %s: %s", pos.Asset, d.Target, trade.ToAsset, placed.PartialError)
		res.Warnings = append(res.Warnings, msg)
		slog.Warn("rotation partially filled", "from", pos.Asset, "to", d.Target, "holding", trade.ToAsset)
	}

	slog.Info("rotation filled",
		"from", trade.FromAsset,
		"to", trade.ToAsset,
		"quantity", trade.Quantity,
		"price", trade.Price,
		"fee", fmt.Sprintf("$%.4f", trade.Fee),
		"orders", trade.OrderIDs,
	)
	return res, nil
}

// classify resume el motivo del rechazo para el reporte.
func classify(err error) string {
	switch {
	case errors.Is(err, domain.ErrOrderTimeout), errors.Is(err, context.DeadlineExceeded):
		return "order timeout"
	case errors.Is(err, domain.ErrOrderRejected):
		return "order rejected"
	default:
		return "order failed"
	}
}
