package evaluator

// concurrent.go: worker pool para descargar las series de todos los assets
// dentro del estado Fetching. Se hace join antes de pasar a Evaluating.

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/alejandrodnm/rotator/internal/domain"
	"github.com/alejandrodnm/rotator/internal/ports"
)

const maxDefaultWorkers = 4

type fetchResult struct {
	asset  string
	series domain.PriceSeries
	err    error
}

// fetchConcurrent descarga la serie de cada asset en paralelo.
// Cada fetch tiene su propio timeout; el rate limiter del adapter acota la tasa real.
// Devuelve un resultado por asset, ordenado por símbolo.
func fetchConcurrent(
	ctx context.Context,
	market ports.MarketData,
	assets []string,
	window domain.LookbackWindow,
	workers int,
	timeout time.Duration,
) []fetchResult {
	if workers <= 0 {
		workers = min(len(assets), maxDefaultWorkers)
	}

	workCh := make(chan string, len(assets))
	resultCh := make(chan fetchResult, len(assets))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for asset := range workCh {
				fctx, cancel := context.WithTimeout(ctx, timeout)
				series, err := market.PriceSeries(fctx, asset, window)
				cancel()
				if err != nil {
					slog.Warn("price fetch failed", "asset", asset, "err", err)
				}
				series.Asset = asset
				resultCh <- fetchResult{asset: asset, series: series, err: err}
			}
		}()
	}

	for _, a := range assets {
		workCh <- a
	}
	close(workCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	results := make([]fetchResult, 0, len(assets))
	for r := range resultCh {
		results = append(results, r)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].asset < results[j].asset })

	slog.Debug("concurrent fetch complete", "assets", len(assets), "workers", workers)
	return results
}
