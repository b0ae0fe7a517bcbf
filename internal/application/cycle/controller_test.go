package cycle_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alejandrodnm/rotator/internal/application/cycle"
	"github.com/alejandrodnm/rotator/internal/application/evaluator"
	"github.com/alejandrodnm/rotator/internal/application/execution"
	"github.com/alejandrodnm/rotator/internal/domain"
	"github.com/alejandrodnm/rotator/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

type harness struct {
	market   *fakeMarket
	store    *memStore
	notifier *recordingNotifier
	states   []cycle.State
	ctrl     *cycle.Controller
}

func newHarness(t *testing.T, market *fakeMarket, exec ports.Executor, mutate func(*cycle.Config)) *harness {
	t.Helper()
	h := &harness{market: market, store: &memStore{}, notifier: &recordingNotifier{}}

	cfg := cycle.Config{
		Assets:          []string{"BTC", "ETH"},
		Quote:           "USDT",
		Interval:        time.Millisecond,
		Decision:        domain.DecisionConfig{Threshold: 0.005},
		MaxTradesPerDay: 5,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	ev := evaluator.New(evaluator.Config{
		Window: domain.LookbackWindow{Duration: 24 * time.Hour, Interval: time.Hour},
	}, market)
	if exec == nil {
		exec = execution.NewSimulated()
	}
	h.ctrl = cycle.New(cfg, ev, market, exec, h.store, h.notifier,
		cycle.WithClock(func() time.Time { return now }),
		cycle.WithStateObserver(func(_, to cycle.State) { h.states = append(h.states, to) }),
	)
	return h
}

func scenarioMarket(feeRate float64) *fakeMarket {
	return &fakeMarket{
		prices: map[string][]float64{
			"BTC": {100, 110},
			"ETH": {100, 130},
		},
		feeRate: feeRate,
	}
}

func btc() domain.Position {
	return domain.Position{Asset: "BTC", Quantity: 1, EntryPrice: 100}
}

func TestRunCycle_ScenarioA_Rotates(t *testing.T) {
	h := newHarness(t, scenarioMarket(0.01), nil, nil)

	res, err := h.ctrl.RunCycle(context.Background(), btc())
	require.NoError(t, err)

	assert.Equal(t, "ETH", res.Position.Asset)
	assert.InDelta(t, (110-2.2)/130, res.Position.Quantity, 1e-9)

	require.Len(t, h.store.trades, 1)
	tr := h.store.trades[0]
	assert.Equal(t, "BTC", tr.FromAsset)
	assert.Equal(t, "ETH", tr.ToAsset)
	assert.InDelta(t, 2.2, tr.Fee, 1e-9)
	assert.True(t, tr.Simulated)
	assert.Equal(t, "ETH", h.store.pos.Asset, "posición persistida con el trade")

	require.Len(t, h.store.snapshots, 1)
	assert.InDelta(t, 107.8, h.store.snapshots[0].Value, 1e-9)

	require.Len(t, h.notifier.cycles, 1)
	assert.Len(t, h.notifier.trades, 1)
	rep := h.notifier.cycles[0]
	assert.True(t, rep.Decision.IsRotate())
	require.NotNil(t, rep.Execution)
	assert.Equal(t, domain.ExecSimulatedFill, rep.Execution.Status)
	assert.True(t, rep.Simulated)

	assert.Equal(t, []cycle.State{
		cycle.StateFetching, cycle.StateEvaluating, cycle.StateDeciding,
		cycle.StateExecuting, cycle.StateIdle,
	}, h.states)
}

func TestRunCycle_ScenarioB_Holds(t *testing.T) {
	h := newHarness(t, scenarioMarket(0.125), nil, nil)

	res, err := h.ctrl.RunCycle(context.Background(), btc())
	require.NoError(t, err)

	assert.Equal(t, btc(), res.Position)
	assert.Empty(t, h.store.trades)
	assert.Equal(t, domain.ActionHold, res.Report.Decision.Action)
	assert.NotContains(t, h.states, cycle.StateExecuting)
	assert.Len(t, h.store.snapshots, 1, "snapshot también en Hold")
}

func TestRunCycle_ScenarioD_TotalFetchFailureAborts(t *testing.T) {
	market := scenarioMarket(0.001)
	market.seriesErr = errors.New("exchange unreachable")
	h := newHarness(t, market, nil, nil)

	res, err := h.ctrl.RunCycle(context.Background(), btc())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDataUnavailable)

	assert.Equal(t, btc(), res.Position)
	assert.True(t, res.Report.Aborted)
	assert.Empty(t, h.store.trades)
	assert.False(t, h.store.hasPos)
	assert.NotContains(t, h.states, cycle.StateEvaluating)
	assert.Equal(t, cycle.StateIdle, h.ctrl.State())
	require.Len(t, h.notifier.cycles, 1)
	assert.True(t, h.notifier.cycles[0].Aborted)
}

func TestRunCycle_FeeScheduleFailureAbortsAndRetriesNextCycle(t *testing.T) {
	market := scenarioMarket(0.001)
	market.feeErr = errors.New("timeout")
	h := newHarness(t, market, nil, nil)

	_, err := h.ctrl.RunCycle(context.Background(), btc())
	assert.ErrorIs(t, err, domain.ErrDataUnavailable)

	market.feeErr = nil
	_, err = h.ctrl.RunCycle(context.Background(), btc())
	require.NoError(t, err)
	_, err = h.ctrl.RunCycle(context.Background(), btc())
	require.NoError(t, err)
	assert.Equal(t, 2, market.feeCalls, "se cachea tras el primer éxito")
}

func TestRunCycle_DailyTradeLimitSkipsExecution(t *testing.T) {
	h := newHarness(t, scenarioMarket(0.001), nil, func(c *cycle.Config) { c.MaxTradesPerDay = 1 })
	h.store.trades = []domain.TradeRecord{{ID: "earlier", Timestamp: now.Add(-time.Hour), ToAsset: "BTC"}}

	res, err := h.ctrl.RunCycle(context.Background(), btc())
	require.NoError(t, err)

	assert.Equal(t, "BTC", res.Position.Asset)
	assert.Len(t, h.store.trades, 1)
	assert.Equal(t, domain.ActionHold, res.Report.Decision.Action)
	assert.Contains(t, res.Report.Decision.Reason, "daily trade limit")
}

func TestRunCycle_YesterdaysTradesDoNotCount(t *testing.T) {
	h := newHarness(t, scenarioMarket(0.001), nil, func(c *cycle.Config) { c.MaxTradesPerDay = 1 })
	h.store.trades = []domain.TradeRecord{{ID: "yesterday", Timestamp: now.Add(-13 * time.Hour)}}

	res, err := h.ctrl.RunCycle(context.Background(), btc())
	require.NoError(t, err)
	assert.Equal(t, "ETH", res.Position.Asset)
}

func TestRunCycle_RejectedExecutionKeepsPosition(t *testing.T) {
	exec := &stubExecutor{result: domain.ExecutionResult{Status: domain.ExecRejected, Reason: "order rejected"}}
	h := newHarness(t, scenarioMarket(0.001), exec, nil)

	res, err := h.ctrl.RunCycle(context.Background(), btc())
	require.NoError(t, err)

	assert.Equal(t, 1, exec.calls)
	assert.Equal(t, btc(), res.Position)
	assert.Empty(t, h.store.trades)
	require.NotNil(t, res.Report.Execution)
	assert.Equal(t, domain.ExecRejected, res.Report.Execution.Status)
}

func TestRunCycle_SimulatedCommitFailureKeepsPosition(t *testing.T) {
	h := newHarness(t, scenarioMarket(0.001), nil, nil)
	h.store.commitErr = errors.New("disk full")

	res, err := h.ctrl.RunCycle(context.Background(), btc())
	require.Error(t, err)
	assert.Equal(t, btc(), res.Position)
	assert.Nil(t, res.Report.Execution)
	assert.Empty(t, h.notifier.trades)
}

func TestRunCycle_LiveCommitFailureFollowsReality(t *testing.T) {
	trade := domain.TradeRecord{ID: "live-1", FromAsset: "BTC", ToAsset: "ETH", Quantity: 0.8, Price: 130, Timestamp: now}
	exec := &stubExecutor{result: domain.ExecutionResult{
		Status: domain.ExecFilled, Trade: &trade, Position: trade.PositionAfter(),
	}}
	h := newHarness(t, scenarioMarket(0.001), exec, nil)
	h.store.commitErr = errors.New("disk full")

	res, err := h.ctrl.RunCycle(context.Background(), btc())
	require.Error(t, err)
	assert.Equal(t, "ETH", res.Position.Asset)
}

func TestRunCycle_CashExitWhenEverythingFalls(t *testing.T) {
	market := &fakeMarket{
		prices: map[string][]float64{
			"BTC": {100, 80},
			"ETH": {100, 90},
		},
		feeRate: 0.001,
	}
	h := newHarness(t, market, nil, nil)

	res, err := h.ctrl.RunCycle(context.Background(), btc())
	require.NoError(t, err)

	assert.Equal(t, "USDT", res.Position.Asset)
	// 80 - 80 × 0.001, solo la venta
	assert.InDelta(t, 79.92, res.Position.Quantity, 1e-9)
	require.Len(t, h.store.trades, 1)
	assert.Equal(t, "USDT", h.store.trades[0].ToAsset)
	assert.InDelta(t, 0.08, h.store.trades[0].Fee, 1e-9)
}

func TestRunCycle_CashExitDisabledRotatesToBestAsset(t *testing.T) {
	market := &fakeMarket{
		prices: map[string][]float64{
			"BTC": {100, 80},
			"ETH": {100, 90},
		},
		feeRate: 0.001,
	}
	h := newHarness(t, market, nil, func(c *cycle.Config) { c.Decision.DisableCashExit = true })

	res, err := h.ctrl.RunCycle(context.Background(), btc())
	require.NoError(t, err)
	assert.Equal(t, "ETH", res.Position.Asset)
}

func TestRunCycle_MissingHoldingAbortPolicy(t *testing.T) {
	market := &fakeMarket{
		prices:  map[string][]float64{"ETH": {100, 200}, "SOL": {10, 15}},
		feeRate: 0.001,
	}
	h := newHarness(t, market, nil, func(c *cycle.Config) { c.Assets = []string{"BTC", "ETH", "SOL"} })

	res, err := h.ctrl.RunCycle(context.Background(), btc())
	require.NoError(t, err)
	assert.Equal(t, "BTC", res.Position.Asset)
	assert.Empty(t, h.store.trades)
}
