package cycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/rotator/internal/application/evaluator"
	"github.com/alejandrodnm/rotator/internal/domain"
	"github.com/alejandrodnm/rotator/internal/ports"
)

const defaultFeeTimeout = 15 * time.Second

// Config contiene la configuración del cycle controller.
type Config struct {
	Assets                 []string
	Quote                  string
	Interval               time.Duration
	Decision               domain.DecisionConfig
	MaxTradesPerDay        int  // 0 = sin límite
	MaxConsecutiveFailures int  // 0 = nunca sale por fallos
	Once                   bool // un ciclo y Terminated
	FeeTimeout             time.Duration
	StopFile               string // si existe en Idle, se para limpiamente
}

// CycleResult es la salida de RunCycle: la posición resultante y el reporte.
type CycleResult struct {
	Position domain.Position
	Report   domain.CycleReport
}

// Controller ejecuta ciclos Fetching → Evaluating → Deciding → Executing.
// Es el único dueño de la posición; un ciclo a la vez.
type Controller struct {
	cfg      Config
	eval     *evaluator.Evaluator
	market   ports.MarketData
	exec     ports.Executor
	store    ports.Storage
	notifier ports.Notifier

	state   State
	fees    *domain.FeeSchedule // se obtiene una vez por sesión
	cycles  int
	now     func() time.Time
	observe func(from, to State)
}

// Option configura el Controller.
type Option func(*Controller)

// WithClock reemplaza el reloj (tests).
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithStateObserver recibe cada transición de estado.
func WithStateObserver(fn func(from, to State)) Option {
	return func(c *Controller) { c.observe = fn }
}

// New crea un Controller con todas las dependencias inyectadas.
// notifier puede ser nil.
func New(
	cfg Config,
	eval *evaluator.Evaluator,
	market ports.MarketData,
	exec ports.Executor,
	store ports.Storage,
	notifier ports.Notifier,
	opts ...Option,
) *Controller {
	if cfg.FeeTimeout <= 0 {
		cfg.FeeTimeout = defaultFeeTimeout
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	c := &Controller{
		cfg:      cfg,
		eval:     eval,
		market:   market,
		exec:     exec,
		store:    store,
		notifier: notifier,
		state:    StateIdle,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State devuelve el estado actual.
func (c *Controller) State() State {
	return c.state
}

func (c *Controller) setState(s State) {
	if s == c.state {
		return
	}
	slog.Debug("cycle state", "from", c.state.String(), "to", s.String())
	if c.observe != nil {
		c.observe(c.state, s)
	}
	c.state = s
}

// RunCycle ejecuta un ciclo completo sobre pos y devuelve la posición resultante.
//
// Un fallo de fetch total (todas las series o el fee schedule) aborta el ciclo:
// la posición y el histórico no cambian y se devuelve el error.
// La posición solo cambia si la ejecución produce un trade y se persiste.
func (c *Controller) RunCycle(ctx context.Context, pos domain.Position) (CycleResult, error) {
	c.cycles++
	start := c.now()
	report := domain.CycleReport{
		Cycle:     c.cycles,
		StartedAt: start.UTC(),
		Position:  pos,
		Simulated: c.exec.Simulated(),
	}
	defer c.setState(StateIdle)

	abort := func(err error) (CycleResult, error) {
		report.Aborted = true
		report.Error = err.Error()
		report.Duration = c.now().Sub(start)
		report.Value = pos.Notional(c.cfg.Quote, nil)
		slog.Error("cycle aborted", "cycle", report.Cycle, "err", err)
		c.notifyCycle(ctx, report)
		return CycleResult{Position: pos, Report: report}, err
	}

	// --- Fetching ---
	c.setState(StateFetching)
	fees, err := c.feeSchedule(ctx)
	if err != nil {
		return abort(err)
	}
	fetched, err := c.eval.Fetch(ctx, c.cfg.Assets)
	if err != nil {
		return abort(fmt.Errorf("cycle.RunCycle: fetch: %w", err))
	}

	// --- Evaluating ---
	c.setState(StateEvaluating)
	eval := c.eval.Evaluate(fetched)
	report.Scores = eval.Scores
	report.Excluded = eval.Excluded

	// --- Deciding ---
	c.setState(StateDeciding)
	decision := domain.Decide(domain.DecisionInput{
		Position: pos,
		Scores:   eval.Scores,
		Prices:   eval.Prices,
		Fees:     fees,
		Config:   c.cfg.Decision,
	})
	report.Excluded = append(report.Excluded, decision.Excluded...)
	report.Decision = decision

	slog.Info("decision",
		"cycle", report.Cycle,
		"action", decision.Action.String(),
		"from", decision.From,
		"target", decision.Target,
		"net_gain", fmt.Sprintf("%.4f", decision.NetGain),
		"fee_fraction", fmt.Sprintf("%.4f", decision.FeeFraction),
		"reason", decision.Reason,
	)
	if decision.ZeroBaseline {
		slog.Warn("holding has no score this cycle, compared against zero", "asset", pos.Asset)
	}

	if decision.IsRotate() && c.dailyLimitReached(ctx) {
		decision.Action = domain.ActionHold
		decision.Reason = fmt.Sprintf("daily trade limit %d reached", c.cfg.MaxTradesPerDay)
		report.Decision = decision
	}

	// --- Executing ---
	var cycleErr error
	if decision.IsRotate() {
		c.setState(StateExecuting)
		pos, cycleErr = c.execute(ctx, pos, decision, eval.Prices, fees, &report)
	}

	report.Position = pos
	report.Value = pos.Notional(c.cfg.Quote, eval.Prices)
	report.Duration = c.now().Sub(start)
	if cycleErr != nil {
		report.Error = cycleErr.Error()
	}

	c.saveSnapshot(ctx, pos, report.Value, eval.Prices)
	c.notifyCycle(ctx, report)

	slog.Info("cycle complete",
		"cycle", report.Cycle,
		"position", pos.Asset,
		"quantity", pos.Quantity,
		"value", fmt.Sprintf("$%.2f", report.Value),
		"ranked", len(report.Scores),
		"excluded", len(report.Excluded),
		"duration", report.Duration.Round(time.Millisecond),
	)
	return CycleResult{Position: pos, Report: report}, cycleErr
}

// execute invoca el execution adapter y persiste el trade junto con la posición.
func (c *Controller) execute(
	ctx context.Context,
	pos domain.Position,
	decision domain.Decision,
	prices map[string]float64,
	fees domain.FeeSchedule,
	report *domain.CycleReport,
) (domain.Position, error) {
	res, err := c.exec.Execute(ctx, domain.ExecutionRequest{
		Decision: decision,
		Position: pos,
		Prices:   prices,
		Fees:     fees,
	})
	if err != nil {
		return pos, fmt.Errorf("cycle.execute: %w", err)
	}
	report.Execution = &res

	if !res.OK() {
		slog.Warn("execution rejected, position unchanged", "target", decision.Target, "reason", res.Reason)
		return pos, nil
	}
	for _, w := range res.Warnings {
		slog.Warn("execution warning", "msg", w)
	}

	if err := c.store.CommitTrade(ctx, *res.Trade, res.Position); err != nil {
		if c.exec.Simulated() {
			// nada ha pasado fuera: se descarta el trade
			report.Execution = nil
			return pos, fmt.Errorf("cycle.execute: persist simulated trade: %w", err)
		}
		// el trade real ya ocurrió: la posición en memoria sigue a la realidad
		slog.Error("live trade executed but not persisted", "trade_id", res.Trade.ID, "err", err)
		return res.Position, fmt.Errorf("cycle.execute: persist live trade %s: %w", res.Trade.ID, err)
	}

	if c.notifier != nil {
		if err := c.notifier.NotifyTrade(ctx, *res.Trade); err != nil {
			slog.Warn("trade notify failed", "err", err)
		}
	}
	return res.Position, nil
}

// feeSchedule obtiene el fee schedule una vez por sesión. Si falla se
// reintenta en el siguiente ciclo.
func (c *Controller) feeSchedule(ctx context.Context) (domain.FeeSchedule, error) {
	if c.fees != nil {
		return *c.fees, nil
	}
	fctx, cancel := context.WithTimeout(ctx, c.cfg.FeeTimeout)
	defer cancel()

	fees, err := c.market.FeeSchedule(fctx)
	if err != nil {
		if !errors.Is(err, domain.ErrDataUnavailable) {
			err = fmt.Errorf("%v: %w", err, domain.ErrDataUnavailable)
		}
		return domain.FeeSchedule{}, fmt.Errorf("cycle.feeSchedule: %w", err)
	}
	if fees.Quote == "" {
		fees.Quote = c.cfg.Quote
	}
	slog.Info("fee schedule loaded",
		"account", fees.Account,
		"assets", len(fees.Rates),
		"use_maker", fees.UseMaker,
		"discount", fees.Discount,
	)
	c.fees = &fees
	return fees, nil
}

// dailyLimitReached cuenta los trades desde las 00:00 UTC. Si no se puede
// contar, no se ejecuta.
func (c *Controller) dailyLimitReached(ctx context.Context) bool {
	if c.cfg.MaxTradesPerDay <= 0 {
		return false
	}
	now := c.now().UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	n, err := c.store.CountTradesSince(ctx, dayStart)
	if err != nil {
		slog.Warn("could not count today's trades, skipping execution", "err", err)
		return true
	}
	if n >= c.cfg.MaxTradesPerDay {
		slog.Info("daily trade limit reached, skipping execution", "trades_today", n, "limit", c.cfg.MaxTradesPerDay)
		return true
	}
	return false
}

func (c *Controller) saveSnapshot(ctx context.Context, pos domain.Position, value float64, prices map[string]float64) {
	err := c.store.SaveSnapshot(ctx, domain.PortfolioSnapshot{
		Timestamp: c.now().UTC(),
		Asset:     pos.Asset,
		Quantity:  pos.Quantity,
		Value:     value,
		Prices:    prices,
	})
	if err != nil {
		slog.Warn("snapshot save failed", "err", err)
	}
}

func (c *Controller) notifyCycle(ctx context.Context, report domain.CycleReport) {
	if c.notifier == nil {
		return
	}
	if err := c.notifier.NotifyCycle(ctx, report); err != nil {
		slog.Warn("cycle notify failed", "err", err)
	}
}
