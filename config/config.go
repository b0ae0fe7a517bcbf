package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/alejandrodnm/rotator/internal/domain"
)

// Config es la configuración completa del bot.
type Config struct {
	Exchange ExchangeConfig `yaml:"exchange"`
	Trading  TradingConfig  `yaml:"trading"`
	Scoring  ScoringConfig  `yaml:"scoring"`
	Fees     FeesConfig     `yaml:"fees"`
	Storage  StorageConfig  `yaml:"storage"`
	Notify   NotifyConfig   `yaml:"notify"`
	Log      LogConfig      `yaml:"log"`
}

// ExchangeConfig controla la conexión con el exchange.
// APIKey y APISecret vienen normalmente del .env.
type ExchangeConfig struct {
	BaseURL               string  `yaml:"base_url"`
	Account               string  `yaml:"account"`
	APIKey                string  `yaml:"api_key"`
	APISecret             string  `yaml:"api_secret"`
	RequestTimeoutSeconds int     `yaml:"request_timeout_seconds"`
	OrderTimeoutSeconds   int     `yaml:"order_timeout_seconds"`
	RateLimitPerSec       float64 `yaml:"rate_limit_per_sec"`
}

// TradingConfig controla el ciclo y la decisión de rotar.
type TradingConfig struct {
	Quote                  string   `yaml:"quote"`
	Assets                 []string `yaml:"assets"`
	InitialCapital         float64  `yaml:"initial_capital"`
	IntervalSeconds        int      `yaml:"interval_seconds"`
	Threshold              *float64 `yaml:"threshold"`          // nil = default; 0 es válido
	MissingHolding         string   `yaml:"missing_holding"`    // abort | zero_baseline
	DisableCashExit        bool     `yaml:"disable_cash_exit"`  // true = nunca vende a quote
	MaxTradesPerDay        int      `yaml:"max_trades_per_day"` // -1 = sin límite
	MaxConsecutiveFailures int      `yaml:"max_consecutive_failures"`
	StopFile               string   `yaml:"stop_file"`
}

// ScoringConfig controla la ventana y la métrica del score.
type ScoringConfig struct {
	LookbackHours     int     `yaml:"lookback_hours"`
	CandleInterval    string  `yaml:"candle_interval"` // duración Go: "1h", "15m"
	Metric            string  `yaml:"metric"`          // return | risk_adjusted
	VolatilityPenalty float64 `yaml:"volatility_penalty"`
	RSIWeight         float64 `yaml:"rsi_weight"`
	RSIPeriod         int     `yaml:"rsi_period"`
	VolumeWeight      float64 `yaml:"volume_weight"`
	Workers           int     `yaml:"workers"`
	FetchTimeoutSecs  int     `yaml:"fetch_timeout_seconds"`
}

// FeesConfig son las fees por defecto y por asset.
type FeesConfig struct {
	Maker     float64              `yaml:"maker"`
	Taker     float64              `yaml:"taker"`
	UseMaker  bool                 `yaml:"use_maker"`
	Discount  float64              `yaml:"discount"`
	Overrides map[string]FeeConfig `yaml:"overrides"`
}

// FeeConfig es el par maker/taker de un asset.
type FeeConfig struct {
	Maker float64 `yaml:"maker"`
	Taker float64 `yaml:"taker"`
}

// StorageConfig controla dónde se persisten los datos.
type StorageConfig struct {
	DSN                   string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
	SnapshotRetentionDays int    `yaml:"snapshot_retention_days"`
}

// NotifyConfig controla los notifiers además de la consola.
// RedisAddr vacío desactiva Redis.
type NotifyConfig struct {
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	RedisPrefix   string `yaml:"redis_prefix"`
	RedisStream   string `yaml:"redis_stream"`
	StreamMaxLen  int64  `yaml:"stream_max_len"`
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

const defaultThreshold = 0.005

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Los valores del .env sobreescriben los del YAML para las keys que correspondan.
// Cualquier error devuelto envuelve domain.ErrConfiguration.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w: %w", path, domain.ErrConfiguration, err)
	}
	return Parse(data)
}

// Parse aplica env, defaults y validación sobre un YAML ya leído.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Parse: parse YAML: %w: %w", domain.ErrConfiguration, err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Interval devuelve el intervalo entre ciclos.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.Trading.IntervalSeconds) * time.Second
}

// Window devuelve la ventana de lookback del score.
func (c *Config) Window() domain.LookbackWindow {
	iv, _ := time.ParseDuration(c.Scoring.CandleInterval)
	return domain.LookbackWindow{
		Duration: time.Duration(c.Scoring.LookbackHours) * time.Hour,
		Interval: iv,
	}
}

// Decision devuelve los parámetros del decision engine.
func (c *Config) Decision() domain.DecisionConfig {
	return domain.DecisionConfig{
		Threshold:       *c.Trading.Threshold,
		MissingHolding:  domain.MissingHoldingPolicy(c.Trading.MissingHolding),
		DisableCashExit: c.Trading.DisableCashExit,
	}
}

// ScoreConfig devuelve la métrica de score configurada.
func (c *Config) ScoreConfig() domain.ScoreConfig {
	return domain.ScoreConfig{
		Metric:            domain.ScoreMetric(c.Scoring.Metric),
		VolatilityPenalty: c.Scoring.VolatilityPenalty,
		RSIWeight:         c.Scoring.RSIWeight,
		RSIPeriod:         c.Scoring.RSIPeriod,
		VolumeWeight:      c.Scoring.VolumeWeight,
	}
}

// FeeOverrides convierte los overrides al tipo del dominio.
func (c *Config) FeeOverrides() map[string]domain.FeeRates {
	if len(c.Fees.Overrides) == 0 {
		return nil
	}
	out := make(map[string]domain.FeeRates, len(c.Fees.Overrides))
	for asset, f := range c.Fees.Overrides {
		out[domain.NormalizeSymbol(asset)] = domain.FeeRates{Maker: f.Maker, Taker: f.Taker}
	}
	return out
}

// Validate comprueba que la configuración es usable.
func (c *Config) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if len(c.Trading.Assets) == 0 {
		add("trading.assets is empty")
	}
	seen := make(map[string]bool, len(c.Trading.Assets))
	for _, a := range c.Trading.Assets {
		if a == c.Trading.Quote {
			add("trading.assets contains the quote currency %s", a)
		}
		if seen[a] {
			add("trading.assets contains %s twice", a)
		}
		seen[a] = true
	}
	if c.Trading.InitialCapital < 0 {
		add("trading.initial_capital must be >= 0")
	}
	switch domain.MissingHoldingPolicy(c.Trading.MissingHolding) {
	case domain.MissingHoldingAbort, domain.MissingHoldingZeroBaseline:
	default:
		add("trading.missing_holding %q: want abort|zero_baseline", c.Trading.MissingHolding)
	}
	switch domain.ScoreMetric(c.Scoring.Metric) {
	case domain.MetricReturn, domain.MetricRiskAdjusted:
	default:
		add("scoring.metric %q: want return|risk_adjusted", c.Scoring.Metric)
	}
	if c.Scoring.VolatilityPenalty < 0 {
		add("scoring.volatility_penalty must be >= 0")
	}
	if c.Scoring.RSIPeriod < 1 {
		add("scoring.rsi_period must be >= 1")
	}
	iv, err := time.ParseDuration(c.Scoring.CandleInterval)
	if err != nil || iv <= 0 {
		add("scoring.candle_interval %q is not a duration", c.Scoring.CandleInterval)
	} else if time.Duration(c.Scoring.LookbackHours)*time.Hour < iv {
		add("scoring.lookback_hours shorter than candle_interval")
	}
	if c.Fees.Maker < 0 || c.Fees.Taker < 0 {
		add("fees.maker and fees.taker must be >= 0")
	}
	if c.Fees.Discount < 0 || c.Fees.Discount >= 1 {
		add("fees.discount must be in [0, 1)")
	}
	for asset, f := range c.Fees.Overrides {
		if f.Maker < 0 || f.Taker < 0 {
			add("fees.overrides.%s: negative rate", asset)
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("config.Validate: %s: %w", strings.Join(problems, "; "), domain.ErrConfiguration)
	}
	return nil
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("EXCHANGE_API_KEY"); v != "" {
		cfg.Exchange.APIKey = v
	}
	if v := os.Getenv("EXCHANGE_API_SECRET"); v != "" {
		cfg.Exchange.APISecret = v
	}
	if v := os.Getenv("EXCHANGE_BASE_URL"); v != "" {
		cfg.Exchange.BaseURL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Notify.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Notify.RedisPassword = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.Exchange.Account == "" {
		cfg.Exchange.Account = "default"
	}
	if cfg.Exchange.RequestTimeoutSeconds <= 0 {
		cfg.Exchange.RequestTimeoutSeconds = 10
	}
	if cfg.Exchange.OrderTimeoutSeconds <= 0 {
		cfg.Exchange.OrderTimeoutSeconds = 30
	}

	cfg.Trading.Quote = domain.NormalizeSymbol(cfg.Trading.Quote)
	if cfg.Trading.Quote == "" {
		cfg.Trading.Quote = "USDT"
	}
	if len(cfg.Trading.Assets) == 0 {
		cfg.Trading.Assets = []string{"BTC", "ETH", "SOL", "ADA", "DOT"}
	}
	for i, a := range cfg.Trading.Assets {
		cfg.Trading.Assets[i] = domain.NormalizeSymbol(a)
	}
	if cfg.Trading.InitialCapital == 0 {
		cfg.Trading.InitialCapital = 100
	}
	if cfg.Trading.IntervalSeconds <= 0 {
		cfg.Trading.IntervalSeconds = 3600
	}
	if cfg.Trading.Threshold == nil {
		t := defaultThreshold
		cfg.Trading.Threshold = &t
	}
	if cfg.Trading.MissingHolding == "" {
		cfg.Trading.MissingHolding = string(domain.MissingHoldingAbort)
	}
	if cfg.Trading.MaxTradesPerDay == 0 {
		cfg.Trading.MaxTradesPerDay = 5
	}
	if cfg.Trading.MaxConsecutiveFailures == 0 {
		cfg.Trading.MaxConsecutiveFailures = 5
	}
	if cfg.Trading.StopFile == "" {
		cfg.Trading.StopFile = "STOP"
	}

	if cfg.Scoring.LookbackHours <= 0 {
		cfg.Scoring.LookbackHours = 24
	}
	if cfg.Scoring.CandleInterval == "" {
		cfg.Scoring.CandleInterval = "1h"
	}
	if cfg.Scoring.RSIPeriod == 0 {
		cfg.Scoring.RSIPeriod = 14
	}
	if cfg.Scoring.Metric == "" {
		cfg.Scoring.Metric = string(domain.MetricReturn)
	}
	if cfg.Scoring.Workers <= 0 {
		cfg.Scoring.Workers = 4
	}
	if cfg.Scoring.FetchTimeoutSecs <= 0 {
		cfg.Scoring.FetchTimeoutSecs = 15
	}

	if cfg.Fees.Maker == 0 && cfg.Fees.Taker == 0 {
		cfg.Fees.Maker = 0.0008
		cfg.Fees.Taker = 0.0010
	}

	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "rotator.db"
	}
	if cfg.Storage.SnapshotRetentionDays <= 0 {
		cfg.Storage.SnapshotRetentionDays = 90
	}

	if cfg.Notify.RedisPrefix == "" {
		cfg.Notify.RedisPrefix = "rotator"
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
