// Package config holds the engine configuration surface.
// All thresholds are explicit per deployment; invalid values are fatal
// at startup, never silently defaulted.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all recognized engine options.
type Config struct {
	// Allocation gates.
	MinLiquidityUSD     float64
	MaxHoneypotScore    float64
	MinSentimentScore   float64
	CapitalPerAgent     float64
	MaxConcurrentTrades int
	RiskScoreCeiling    int

	// Risk sub-score references.
	ReferenceLiquidityUSD float64
	ReferenceHolderFloor  int

	// Rate limiting.
	MaxTradesPerHour int
	LossCooldown     time.Duration

	// Exit rules.
	StopLossPct    float64 // negative, e.g. -5
	TakeProfitPct  float64 // positive, e.g. 25
	MaxPositionAge time.Duration
	TradeFeePct    float64

	// Circuit breaker.
	VolatilityAlert      float64
	MarketCrashThreshold float64 // negative, e.g. -10
	PauseDuration        time.Duration

	// Sentiment.
	SentimentCacheTTL time.Duration
	MinSampleCount    int

	// Scheduling.
	Workers      int
	TickInterval time.Duration
}

// Default returns the conservative documented defaults. Deployments are
// expected to override thresholds explicitly.
func Default() Config {
	return Config{
		MinLiquidityUSD:       50000,
		MaxHoneypotScore:      0.3,
		MinSentimentScore:     0.4,
		CapitalPerAgent:       1000,
		MaxConcurrentTrades:   3,
		RiskScoreCeiling:      70,
		ReferenceLiquidityUSD: 500000,
		ReferenceHolderFloor:  1000,
		MaxTradesPerHour:      20,
		LossCooldown:          5 * time.Minute,
		StopLossPct:           -5,
		TakeProfitPct:         25,
		MaxPositionAge:        30 * time.Minute,
		TradeFeePct:           0.25,
		VolatilityAlert:       8,
		MarketCrashThreshold:  -10,
		PauseDuration:         30 * time.Minute,
		SentimentCacheTTL:     time.Hour,
		MinSampleCount:        5,
		Workers:               4,
		TickInterval:          5 * time.Second,
	}
}

// Validate checks the configuration. Any error here is fatal at startup.
func (c Config) Validate() error {
	if c.MinLiquidityUSD < 0 {
		return fmt.Errorf("config: min liquidity must be non-negative, got %v", c.MinLiquidityUSD)
	}
	if c.MaxHoneypotScore < 0 || c.MaxHoneypotScore > 1 {
		return fmt.Errorf("config: max honeypot score must be in [0,1], got %v", c.MaxHoneypotScore)
	}
	if c.MinSentimentScore < 0 || c.MinSentimentScore > 1 {
		return fmt.Errorf("config: min sentiment score must be in [0,1], got %v", c.MinSentimentScore)
	}
	if c.CapitalPerAgent <= 0 {
		return fmt.Errorf("config: capital per agent must be positive, got %v", c.CapitalPerAgent)
	}
	if c.MaxConcurrentTrades <= 0 {
		return fmt.Errorf("config: max concurrent trades must be positive, got %d", c.MaxConcurrentTrades)
	}
	if c.RiskScoreCeiling <= 0 || c.RiskScoreCeiling > 100 {
		return fmt.Errorf("config: risk score ceiling must be in (0,100], got %d", c.RiskScoreCeiling)
	}
	if c.ReferenceLiquidityUSD <= 0 {
		return fmt.Errorf("config: reference liquidity must be positive, got %v", c.ReferenceLiquidityUSD)
	}
	if c.ReferenceHolderFloor <= 0 {
		return fmt.Errorf("config: reference holder floor must be positive, got %d", c.ReferenceHolderFloor)
	}
	if c.StopLossPct >= 0 {
		return fmt.Errorf("config: stop loss pct must be negative, got %v", c.StopLossPct)
	}
	if c.TakeProfitPct <= 0 {
		return fmt.Errorf("config: take profit pct must be positive, got %v", c.TakeProfitPct)
	}
	if c.MaxPositionAge <= 0 {
		return fmt.Errorf("config: max position age must be positive, got %v", c.MaxPositionAge)
	}
	if c.TradeFeePct < 0 {
		return fmt.Errorf("config: trade fee pct must be non-negative, got %v", c.TradeFeePct)
	}
	if c.MarketCrashThreshold >= 0 {
		return fmt.Errorf("config: market crash threshold must be negative, got %v", c.MarketCrashThreshold)
	}
	if c.VolatilityAlert <= 0 {
		return fmt.Errorf("config: volatility alert must be positive, got %v", c.VolatilityAlert)
	}
	if c.PauseDuration <= 0 {
		return fmt.Errorf("config: pause duration must be positive, got %v", c.PauseDuration)
	}
	if c.SentimentCacheTTL <= 0 {
		return fmt.Errorf("config: sentiment cache TTL must be positive, got %v", c.SentimentCacheTTL)
	}
	if c.MinSampleCount < 0 {
		return fmt.Errorf("config: min sample count must be non-negative, got %d", c.MinSampleCount)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("config: workers must be positive, got %d", c.Workers)
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("config: tick interval must be positive, got %v", c.TickInterval)
	}
	return nil
}

// FromEnv overlays environment variables onto the defaults.
// Unset variables keep their defaults; malformed values are reported.
func FromEnv() (Config, error) {
	c := Default()

	var err error
	overlay := []struct {
		key   string
		apply func(string) error
	}{
		{"MIN_LIQUIDITY_USD", floatVar(&c.MinLiquidityUSD)},
		{"MAX_HONEYPOT_SCORE", floatVar(&c.MaxHoneypotScore)},
		{"MIN_SENTIMENT_SCORE", floatVar(&c.MinSentimentScore)},
		{"CAPITAL_PER_AGENT", floatVar(&c.CapitalPerAgent)},
		{"MAX_CONCURRENT_TRADES", intVar(&c.MaxConcurrentTrades)},
		{"RISK_SCORE_CEILING", intVar(&c.RiskScoreCeiling)},
		{"REFERENCE_LIQUIDITY_USD", floatVar(&c.ReferenceLiquidityUSD)},
		{"REFERENCE_HOLDER_FLOOR", intVar(&c.ReferenceHolderFloor)},
		{"MAX_TRADES_PER_HOUR", intVar(&c.MaxTradesPerHour)},
		{"LOSS_COOLDOWN", durationVar(&c.LossCooldown)},
		{"STOP_LOSS_PERCENT", floatVar(&c.StopLossPct)},
		{"TAKE_PROFIT_PERCENT", floatVar(&c.TakeProfitPct)},
		{"MAX_POSITION_AGE", durationVar(&c.MaxPositionAge)},
		{"TRADE_FEE_PERCENT", floatVar(&c.TradeFeePct)},
		{"VOLATILITY_ALERT", floatVar(&c.VolatilityAlert)},
		{"MARKET_CRASH_THRESHOLD", floatVar(&c.MarketCrashThreshold)},
		{"PAUSE_DURATION", durationVar(&c.PauseDuration)},
		{"SENTIMENT_CACHE_TTL", durationVar(&c.SentimentCacheTTL)},
		{"MIN_SAMPLE_COUNT", intVar(&c.MinSampleCount)},
		{"WORKERS", intVar(&c.Workers)},
		{"TICK_INTERVAL", durationVar(&c.TickInterval)},
	}

	for _, o := range overlay {
		v := os.Getenv(o.key)
		if v == "" {
			continue
		}
		if err = o.apply(v); err != nil {
			return c, fmt.Errorf("config: %s: %w", o.key, err)
		}
	}

	return c, nil
}

func floatVar(dst *float64) func(string) error {
	return func(v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		*dst = f
		return nil
	}
}

func intVar(dst *int) func(string) error {
	return func(v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*dst = n
		return nil
	}
}

func durationVar(dst *time.Duration) func(string) error {
	return func(v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		*dst = d
		return nil
	}
}
