package evaluator

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/alejandrodnm/rotator/internal/domain"
	"github.com/alejandrodnm/rotator/internal/ports"
)

const defaultFetchTimeout = 15 * time.Second

// Config contiene la configuración del evaluator.
type Config struct {
	Window       domain.LookbackWindow
	Score        domain.ScoreConfig
	Workers      int           // fetches concurrentes (0 = min(assets, 4))
	FetchTimeout time.Duration // timeout por asset
}

// FetchResult son las series descargadas en el estado Fetching.
type FetchResult struct {
	Series   []domain.PriceSeries // ordenadas por símbolo
	Excluded []domain.Exclusion   // assets sin datos este ciclo
}

// Result es la salida del estado Evaluating.
type Result struct {
	Scores   []domain.AssetScore // rankeados: score desc, símbolo asc
	Prices   map[string]float64  // último precio válido por asset
	Excluded []domain.Exclusion
}

// Evaluator descarga series y calcula el PerformanceScore de cada asset.
type Evaluator struct {
	cfg    Config
	market ports.MarketData
}

// New crea un Evaluator.
func New(cfg Config, market ports.MarketData) *Evaluator {
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = defaultFetchTimeout
	}
	return &Evaluator{cfg: cfg, market: market}
}

// Fetch descarga las series de todos los assets con un worker pool acotado.
// Un asset que falla queda excluido; si fallan todos devuelve ErrDataUnavailable.
func (e *Evaluator) Fetch(ctx context.Context, assets []string) (FetchResult, error) {
	if len(assets) == 0 {
		return FetchResult{}, fmt.Errorf("evaluator.Fetch: empty universe: %w", domain.ErrDataUnavailable)
	}

	results := fetchConcurrent(ctx, e.market, assets, e.cfg.Window, e.cfg.Workers, e.cfg.FetchTimeout)

	var out FetchResult
	var lastErr error
	for _, r := range results {
		if r.err != nil {
			lastErr = r.err
			out.Excluded = append(out.Excluded, domain.Exclusion{Asset: r.asset, Reason: r.err.Error()})
			continue
		}
		out.Series = append(out.Series, r.series)
	}

	if len(out.Series) == 0 {
		return out, fmt.Errorf("evaluator.Fetch: all %d assets failed (last: %v): %w", len(assets), lastErr, domain.ErrDataUnavailable)
	}
	return out, nil
}

// Evaluate calcula los scores de las series descargadas. Función pura salvo logs.
// Las series sin datos suficientes se excluyen pero su último precio se conserva
// para valorar la posición.
func (e *Evaluator) Evaluate(fetched FetchResult) Result {
	res := Result{
		Prices:   make(map[string]float64, len(fetched.Series)),
		Excluded: append([]domain.Exclusion(nil), fetched.Excluded...),
	}

	for _, s := range fetched.Series {
		if last, ok := s.Latest(); ok {
			res.Prices[s.Asset] = last.Price
		}

		score, err := domain.Score(s, e.cfg.Window, e.cfg.Score)
		if err != nil {
			slog.Debug("asset excluded from ranking", "asset", s.Asset, "err", err)
			res.Excluded = append(res.Excluded, domain.Exclusion{Asset: s.Asset, Reason: err.Error()})
			continue
		}
		res.Scores = append(res.Scores, domain.AssetScore{Asset: s.Asset, Score: score})
	}

	res.Scores = domain.RankScores(res.Scores)
	sort.Slice(res.Excluded, func(i, j int) bool {
		return res.Excluded[i].Asset < res.Excluded[j].Asset
	})
	return res
}
