package cycle

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/alejandrodnm/rotator/internal/domain"
)

// Run ejecuta ciclos hasta que ctx se cancele, aparezca el STOP file o se
// alcance MaxConsecutiveFailures.
//
// La señal de parada solo se atiende en Idle: el ciclo en curso se ejecuta con
// un contexto desacoplado de ctx y acotado por los timeouts de cada paso.
// En modo Once se ejecuta un ciclo y se devuelve nil aunque haya abortado.
func (c *Controller) Run(ctx context.Context, pos domain.Position) (domain.Position, error) {
	slog.Info("cycle loop starting",
		"interval", c.cfg.Interval,
		"assets", c.cfg.Assets,
		"quote", c.cfg.Quote,
		"simulated", c.exec.Simulated(),
		"once", c.cfg.Once,
		"position", pos.Asset,
	)

	failures := 0
	ticker := time.NewTicker(c.cfg.Interval)
	defer ticker.Stop()

	for {
		res, err := c.RunCycle(context.WithoutCancel(ctx), pos)
		pos = res.Position

		if err != nil {
			failures++
			if !c.cfg.Once && c.cfg.MaxConsecutiveFailures > 0 && failures >= c.cfg.MaxConsecutiveFailures {
				c.setState(StateTerminated)
				return pos, fmt.Errorf("cycle.Run: %d consecutive failed cycles: %w", failures, err)
			}
		} else {
			failures = 0
		}

		if c.cfg.Once {
			c.setState(StateTerminated)
			return pos, nil
		}

		// ctx pudo cancelarse durante el ciclo; el select no prioriza Done
		// frente a un tick ya en el buffer.
		if ctx.Err() != nil {
			return c.stopOnSignal(pos), nil
		}
		select {
		case <-ctx.Done():
			return c.stopOnSignal(pos), nil
		case <-ticker.C:
		}
		if ctx.Err() != nil {
			return c.stopOnSignal(pos), nil
		}

		if c.stopRequested() {
			c.setState(StateTerminated)
			return pos, nil
		}
	}
}

func (c *Controller) stopOnSignal(pos domain.Position) domain.Position {
	slog.Info("rotator stopped (signal)", "position", pos.Asset)
	c.setState(StateTerminated)
	return pos
}

// stopRequested devuelve true si existe el STOP file; lo elimina.
func (c *Controller) stopRequested() bool {
	if c.cfg.StopFile == "" {
		return false
	}
	if _, err := os.Stat(c.cfg.StopFile); err != nil {
		return false
	}
	slog.Info("STOP file detected — shutting down", "path", c.cfg.StopFile)
	os.Remove(c.cfg.StopFile)
	return true
}
