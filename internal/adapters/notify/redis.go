package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alejandrodnm/rotator/internal/domain"
)

const defaultStreamMaxLen = 10000

// redisClient es la parte de *redis.Client que usamos.
type redisClient interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// Redis publica ciclos y trades para consumidores externos.
//
//   - Cada ciclo: PUBLISH <prefix>:cycles <json>
//   - Cada trade: XADD <prefix>:trades (histórico consumible) + PUBLISH <prefix>:trades <json>
type Redis struct {
	rdb         redisClient
	cycleChan   string
	tradeChan   string
	tradeStream string
	maxLen      int64
}

// NewRedis crea el notifier. prefix vacío usa "rotator".
func NewRedis(rdb redisClient, prefix, stream string, maxLen int64) *Redis {
	if strings.TrimSpace(prefix) == "" {
		prefix = "rotator"
	}
	if strings.TrimSpace(stream) == "" {
		stream = prefix + ":trades"
	}
	if maxLen <= 0 {
		maxLen = defaultStreamMaxLen
	}
	return &Redis{
		rdb:         rdb,
		cycleChan:   prefix + ":cycles",
		tradeChan:   prefix + ":trades",
		tradeStream: stream,
		maxLen:      maxLen,
	}
}

// DialRedis abre la conexión y hace ping.
func DialRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("notify.DialRedis: ping %s: %w", addr, err)
	}
	return rdb, nil
}

type cycleEvent struct {
	Cycle     int          `json:"cycle"`
	TsMs      int64        `json:"ts_ms"`
	Action    string       `json:"action"`
	From      string       `json:"from"`
	Target    string       `json:"target,omitempty"`
	NetGain   float64      `json:"net_gain"`
	Reason    string       `json:"reason"`
	Scores    []scoreEvent `json:"scores"`
	Asset     string       `json:"asset"`
	Quantity  float64      `json:"quantity"`
	Value     float64      `json:"value"`
	Simulated bool         `json:"simulated"`
	Aborted   bool         `json:"aborted"`
	Error     string       `json:"error,omitempty"`
}

type scoreEvent struct {
	Asset string  `json:"asset"`
	Score float64 `json:"score"`
}

type tradeEvent struct {
	ID           string  `json:"id"`
	TsMs         int64   `json:"ts_ms"`
	From         string  `json:"from"`
	To           string  `json:"to"`
	FromQuantity float64 `json:"from_quantity"`
	Quantity     float64 `json:"quantity"`
	Price        float64 `json:"price"`
	Notional     float64 `json:"notional"`
	Fee          float64 `json:"fee"`
	ExpectedGain float64 `json:"expected_gain"`
	Simulated    bool    `json:"simulated"`
	OrderIDs     string  `json:"order_ids,omitempty"`
}

// NotifyCycle publica el resumen del ciclo.
func (r *Redis) NotifyCycle(ctx context.Context, rep domain.CycleReport) error {
	ev := cycleEvent{
		Cycle:     rep.Cycle,
		TsMs:      rep.StartedAt.UnixMilli(),
		Action:    rep.Decision.Action.String(),
		From:      rep.Decision.From,
		Target:    rep.Decision.Target,
		NetGain:   rep.Decision.NetGain,
		Reason:    rep.Decision.Reason,
		Scores:    make([]scoreEvent, len(rep.Scores)),
		Asset:     rep.Position.Asset,
		Quantity:  rep.Position.Quantity,
		Value:     rep.Value,
		Simulated: rep.Simulated,
		Aborted:   rep.Aborted,
		Error:     rep.Error,
	}
	for i, sc := range rep.Scores {
		ev.Scores[i] = scoreEvent{Asset: sc.Asset, Score: sc.Score}
	}
	b, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("notify.Redis.NotifyCycle: marshal: %w", err)
	}
	if err := r.rdb.Publish(ctx, r.cycleChan, string(b)).Err(); err != nil {
		return fmt.Errorf("notify.Redis.NotifyCycle: publish: %w", err)
	}
	return nil
}

// NotifyTrade añade el trade al stream y lo publica.
func (r *Redis) NotifyTrade(ctx context.Context, t domain.TradeRecord) error {
	ev := tradeEvent{
		ID:           t.ID,
		TsMs:         t.Timestamp.UnixMilli(),
		From:         t.FromAsset,
		To:           t.ToAsset,
		FromQuantity: t.FromQuantity,
		Quantity:     t.Quantity,
		Price:        t.Price,
		Notional:     t.Notional,
		Fee:          t.Fee,
		ExpectedGain: t.ExpectedGain,
		Simulated:    t.Simulated,
		OrderIDs:     t.OrderIDs,
	}
	b, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("notify.Redis.NotifyTrade: marshal: %w", err)
	}

	_, err = r.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: r.tradeStream,
		MaxLen: r.maxLen,
		Approx: true,
		Values: map[string]any{
			"id":        t.ID,
			"ts_ms":     ev.TsMs,
			"from":      t.FromAsset,
			"to":        t.ToAsset,
			"fee":       t.Fee,
			"simulated": t.Simulated,
			"payload":   string(b),
		},
	}).Result()
	if err != nil {
		return fmt.Errorf("notify.Redis.NotifyTrade: xadd: %w", err)
	}

	if err := r.rdb.Publish(ctx, r.tradeChan, string(b)).Err(); err != nil {
		return fmt.Errorf("notify.Redis.NotifyTrade: publish: %w", err)
	}
	return nil
}
