package cycle_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/alejandrodnm/rotator/internal/domain"
)

var t0 = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// --- market ---

type fakeMarket struct {
	mu        sync.Mutex
	prices    map[string][]float64
	seriesErr error
	feeErr    error
	feeRate   float64
	feeCalls  int
	delay     time.Duration
}

func (f *fakeMarket) PriceSeries(_ context.Context, asset string, _ domain.LookbackWindow) (domain.PriceSeries, error) {
	time.Sleep(f.delay)
	if f.seriesErr != nil {
		return domain.PriceSeries{}, f.seriesErr
	}
	f.mu.Lock()
	prices, ok := f.prices[asset]
	f.mu.Unlock()
	if !ok {
		return domain.PriceSeries{}, domain.ErrDataUnavailable
	}
	pts := make([]domain.PricePoint, len(prices))
	for i, p := range prices {
		pts[i] = domain.PricePoint{Time: t0.Add(time.Duration(i) * time.Hour), Price: p}
	}
	return domain.PriceSeries{Asset: asset, Points: pts}, nil
}

func (f *fakeMarket) FeeSchedule(_ context.Context) (domain.FeeSchedule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.feeCalls++
	if f.feeErr != nil {
		return domain.FeeSchedule{}, f.feeErr
	}
	rates := make(map[string]domain.FeeRates)
	for a := range f.prices {
		rates[a] = domain.FeeRates{Maker: f.feeRate / 2, Taker: f.feeRate}
	}
	return domain.FeeSchedule{Account: "test", Quote: "USDT", Rates: rates}, nil
}

// --- storage ---

type memStore struct {
	pos       domain.Position
	hasPos    bool
	trades    []domain.TradeRecord
	snapshots []domain.PortfolioSnapshot
	commitErr error
	countErr  error
}

func (m *memStore) CommitTrade(_ context.Context, t domain.TradeRecord, pos domain.Position) error {
	if m.commitErr != nil {
		return m.commitErr
	}
	m.trades = append(m.trades, t)
	m.pos, m.hasPos = pos, true
	return nil
}

func (m *memStore) LoadPosition(_ context.Context) (domain.Position, bool, error) {
	return m.pos, m.hasPos, nil
}

func (m *memStore) SavePosition(_ context.Context, pos domain.Position) error {
	m.pos, m.hasPos = pos, true
	return nil
}

func (m *memStore) LastTrade(_ context.Context) (domain.TradeRecord, bool, error) {
	if len(m.trades) == 0 {
		return domain.TradeRecord{}, false, nil
	}
	return m.trades[len(m.trades)-1], true, nil
}

func (m *memStore) Trades(_ context.Context, n int) ([]domain.TradeRecord, error) {
	return m.trades, nil
}

func (m *memStore) CountTradesSince(_ context.Context, since time.Time) (int, error) {
	if m.countErr != nil {
		return 0, m.countErr
	}
	n := 0
	for _, t := range m.trades {
		if !t.Timestamp.Before(since) {
			n++
		}
	}
	return n, nil
}

func (m *memStore) SaveSnapshot(_ context.Context, s domain.PortfolioSnapshot) error {
	m.snapshots = append(m.snapshots, s)
	return nil
}

func (m *memStore) Close() error { return nil }

// --- notifier ---

type recordingNotifier struct {
	cycles []domain.CycleReport
	trades []domain.TradeRecord
}

func (r *recordingNotifier) NotifyCycle(_ context.Context, rep domain.CycleReport) error {
	r.cycles = append(r.cycles, rep)
	return nil
}

func (r *recordingNotifier) NotifyTrade(_ context.Context, t domain.TradeRecord) error {
	r.trades = append(r.trades, t)
	return errors.New("notifier down") // no debe afectar al ciclo
}

// --- executor ---

type stubExecutor struct {
	result domain.ExecutionResult
	err    error
	calls  int
}

func (s *stubExecutor) Execute(_ context.Context, _ domain.ExecutionRequest) (domain.ExecutionResult, error) {
	s.calls++
	return s.result, s.err
}

func (s *stubExecutor) Simulated() bool { return false }
