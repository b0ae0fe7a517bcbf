package execution

import (
	"errors"
	"fmt"

	"github.com/alejandrodnm/rotator/internal/domain"
)

// errHoldDecision: el controller nunca debe invocar la ejecución con Hold.
var errHoldDecision = errors.New("execution: decision is hold")

func checkRequest(req domain.ExecutionRequest) error {
	if !req.Decision.IsRotate() {
		return errHoldDecision
	}
	if req.Decision.Target == "" || req.Decision.Target == req.Position.Asset {
		return fmt.Errorf("execution: invalid target %q from %q", req.Decision.Target, req.Position.Asset)
	}
	return nil
}

func rejected(reason string) domain.ExecutionResult {
	return domain.ExecutionResult{Status: domain.ExecRejected, Reason: reason}
}

// notional usa el valor calculado al decidir; si falta, lo recalcula.
func notional(req domain.ExecutionRequest) float64 {
	if req.Decision.Notional > 0 {
		return req.Decision.Notional
	}
	return req.Position.Notional(req.Fees.Quote, req.Prices)
}
