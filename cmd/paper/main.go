// Package main runs a one-shot paper trading session against synthetic
// signals and prices, then prints a session report. Useful for smoke
// testing the full pipeline without external services.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"sol-swarm/internal/allocator"
	"sol-swarm/internal/config"
	"sol-swarm/internal/domain"
	"sol-swarm/internal/engine"
	"sol-swarm/internal/feed"
	"sol-swarm/internal/market"
	"sol-swarm/internal/positions"
	"sol-swarm/internal/sentiment"
	"sol-swarm/internal/state"
	"sol-swarm/internal/storage/memory"
)

func main() {
	ticks := flag.Int("ticks", 20, "Number of price ticks to simulate")
	drift := flag.Float64("drift", 1.5, "Per-tick price drift percent")
	flag.Parse()

	logger := log.New(os.Stdout, "[paper] ", log.LstdFlags)

	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("Invalid configuration: %v", err)
	}

	ctx := context.Background()

	st := state.New()
	decisions := memory.NewDecisionStore()
	positionStore := memory.NewPositionStore()
	evaluations := memory.NewEvaluationLogStore()

	classifier := sentiment.NewLexiconClassifier()
	aggregator := sentiment.NewAggregator(classifier, logger, nil)
	cache := sentiment.NewCache(aggregator, cfg.SentimentCacheTTL, logger, nil)

	monitor := positions.New(cfg, st, positionStore, logger)
	marketMonitor := market.NewMonitor(cfg, st, logger)
	prices := feed.NewStaticPriceFeed(nil)

	social := engine.NewStaticSocialFeed(map[string][]string{
		"BONKX": {
			"BONKX is mooning, huge gem, aping in #bonkx",
			"early on $BONKX, this is going to pump hard",
			"solid team, legit project, holding BONKX",
			"lfg BONKX sending it http://chart.example/bonkx",
			"BONKX alpha, 100x potential",
		},
		"RUGCO": {
			"RUGCO looks like a rug, stay away",
			"dev wallet dumping RUGCO, avoid",
			"honeypot warning on RUGCO @trader1",
			"RUGCO is a scam, rekt everyone",
			"selling all my RUGCO, dead project",
		},
	})

	orchestrator := engine.New(engine.Options{
		Config:      cfg,
		State:       st,
		Allocator:   allocator.New(cfg, st, logger),
		Sentiment:   cache,
		Social:      social,
		Consensus:   engine.SimulatedConsensus{},
		Execution:   engine.NewPaperExecution(),
		Monitor:     monitor,
		Decisions:   decisions,
		Evaluations: evaluations,
		Logger:      logger,
	})

	signals := syntheticSignals()
	for _, sig := range signals {
		prices.Set(sig.Token, sig.Price)
		orchestrator.Evaluate(ctx, sig)
	}

	// Walk prices and tick the monitor until positions exit.
	var closed []*domain.TradingPosition
	open := monitor.Open()
	for i := 0; i < *ticks && monitor.OpenCount() > 0; i++ {
		tick := make(map[string]float64, len(open))
		for _, p := range open {
			next := p.EntryPrice * (1 + *drift/100*float64(i+1))
			prices.Set(p.Token, next)
			tick[p.Token] = next
		}
		closed = append(closed, monitor.Tick(ctx, tick)...)
	}

	// A crash reading pauses the breaker; the next signal must bounce.
	marketMonitor.Update(4.0, -12.0)
	crashSig := signals[0]
	crashSig.Timestamp = time.Now()
	orchestrator.Evaluate(ctx, crashSig)

	printReport(ctx, st, decisions, closed, monitor.OpenCount())
}

// syntheticSignals covers the main pipeline paths: an approvable signal,
// a honeypot, a thin pool, and a token with hostile social chatter.
func syntheticSignals() []*domain.TradeSignal {
	now := time.Now()
	return []*domain.TradeSignal{
		{
			Token: "BONKX", ContractAddress: "",
			LiquidityUSD: 150000, MarketCapUSD: 900000, HolderCount: 500,
			Volume24hUSD: 180000, Price: 0.00045, Timestamp: now,
			HoneypotScore: 0.15, RugPullRisk: domain.RugRiskLow, ContractVerified: true,
			Momentum: 0.12, VolumeRatio: 1.2,
		},
		{
			Token: "TRAPX", ContractAddress: "",
			LiquidityUSD: 220000, MarketCapUSD: 500000, HolderCount: 900,
			Volume24hUSD: 90000, Price: 0.0012, Timestamp: now,
			HoneypotScore: 0.85, RugPullRisk: domain.RugRiskMedium,
			Momentum: 0.3, VolumeRatio: 1.1,
		},
		{
			Token: "THINLY", ContractAddress: "",
			LiquidityUSD: 9000, MarketCapUSD: 40000, HolderCount: 80,
			Volume24hUSD: 5000, Price: 0.002, Timestamp: now,
			HoneypotScore: 0.1, RugPullRisk: domain.RugRiskLow,
			Momentum: 0.05, VolumeRatio: 0.9,
		},
		{
			Token: "RUGCO", ContractAddress: "",
			LiquidityUSD: 120000, MarketCapUSD: 300000, HolderCount: 1200,
			Volume24hUSD: 150000, Price: 0.0008, Timestamp: now,
			HoneypotScore: 0.2, RugPullRisk: domain.RugRiskLow,
			Momentum: -0.05, VolumeRatio: 1.4,
		},
	}
}

// printReport prints a session summary from state and storage.
func printReport(ctx context.Context, st *state.SystemState, decisions *memory.DecisionStore, closed []*domain.TradingPosition, stillOpen int) {
	snap := st.Snapshot()

	fmt.Println()
	fmt.Println("=== PAPER SESSION REPORT ===")
	fmt.Printf("Signals processed:  %d\n", snap.SignalsProcessed)
	fmt.Printf("Trades approved:    %d\n", snap.TradesApproved)
	fmt.Printf("Trades rejected:    %d\n", snap.TradesRejected)
	fmt.Printf("Trades executed:    %d\n", snap.TradesExecuted)
	fmt.Printf("Open positions:     %d\n", snap.OpenPositions)
	fmt.Printf("Cumulative P&L:     $%.2f\n", snap.CumulativePnL)
	fmt.Printf("Win rate:           %.0f%%\n", snap.WinRate*100)
	fmt.Printf("Market condition:   %s\n", snap.MarketCondition)
	if snap.Paused {
		fmt.Printf("Trading paused:     %s (until %s)\n", snap.PauseReason, snap.ResumeAt.Format(time.RFC3339))
	}

	fmt.Println()
	fmt.Println("--- Decisions ---")
	for _, token := range []string{"BONKX", "TRAPX", "THINLY", "RUGCO"} {
		ds, err := decisions.GetByToken(ctx, token)
		if err != nil {
			continue
		}
		for _, d := range ds {
			verdict := "REJECT"
			if d.Approved {
				verdict = "APPROVE"
			}
			fmt.Printf("%-8s %-8s risk=%3d  %s\n", token, verdict, d.RiskScore, d.Reason)
		}
	}

	fmt.Println()
	fmt.Println("--- Closed positions ---")
	for _, p := range closed {
		fmt.Printf("%-8s %-20s entry=%.8f exit=%.8f pnl=$%.2f\n",
			p.Token, p.Status, p.EntryPrice, p.ExitPrice, p.RealizedPnL)
	}
	fmt.Printf("Still open: %d\n", stillOpen)
}
