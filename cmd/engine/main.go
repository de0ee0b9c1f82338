// Package main provides the unified signal evaluation engine:
// - Signal intake (HTTP): POST /signals feeds the evaluation pipeline
// - Evaluation workers: risk scoring, sentiment, consensus, execution
// - Position monitor (scheduled): stop-loss / take-profit / timeout exits
// - Market monitor (continuous): crash detection and circuit breaker
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"sol-swarm/internal/allocator"
	"sol-swarm/internal/config"
	"sol-swarm/internal/domain"
	"sol-swarm/internal/engine"
	"sol-swarm/internal/feed"
	"sol-swarm/internal/market"
	"sol-swarm/internal/observability"
	"sol-swarm/internal/positions"
	"sol-swarm/internal/sentiment"
	"sol-swarm/internal/state"
	"sol-swarm/internal/storage"
	chstore "sol-swarm/internal/storage/clickhouse"
	"sol-swarm/internal/storage/memory"
	"sol-swarm/internal/storage/migrations"
	pgstore "sol-swarm/internal/storage/postgres"
)

// signalQueueSize bounds the intake queue. A full queue sheds load with
// HTTP 503 instead of growing without bound.
const signalQueueSize = 1024

// Server holds all components of the engine process.
type Server struct {
	cfg    config.Config
	logger *log.Logger

	state         *state.SystemState
	orchestrator  *engine.Orchestrator
	monitor       *positions.Monitor
	marketMonitor *market.Monitor
	priceFeed     engine.PriceFeed
	metrics       *observability.Metrics

	signalCh chan *domain.TradeSignal
	started  time.Time
}

// engineStores holds the storage implementations the engine needs.
type engineStores struct {
	decisions   storage.DecisionStore
	positions   storage.PositionStore
	evaluations storage.EvaluationLogStore
}

func main() {
	// Load .env file if exists
	loadEnvFile()

	// Parse flags (env vars as defaults)
	wsEndpoint := flag.String("ws-endpoint", os.Getenv("PRICE_WS_ENDPOINT"), "Price feed WebSocket endpoint (empty = static feed)")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	httpAddr := flag.String("http-addr", ":9090", "HTTP address for signal intake, health and metrics")

	flag.Parse()

	logger := log.New(os.Stdout, "[engine] ", log.LstdFlags|log.Lshortfile)

	cfg, err := config.FromEnv()
	if err != nil {
		logger.Fatalf("Invalid configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("Invalid configuration: %v", err)
	}

	if !*useMemory && (*postgresDSN == "" || *clickhouseDSN == "") {
		logger.Fatal("--postgres-dsn and --clickhouse-dsn are required (use --use-memory for in-memory storage)")
	}

	ctx, cancel := context.WithCancel(context.Background())

	stores, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	metrics := observability.NewMetrics("")
	st := state.New()

	classifier := sentiment.NewLexiconClassifier()
	aggregator := sentiment.NewAggregator(classifier, log.New(os.Stdout, "[sentiment] ", log.LstdFlags), metrics)
	cache := sentiment.NewCache(aggregator, cfg.SentimentCacheTTL, log.New(os.Stdout, "[sentiment] ", log.LstdFlags), metrics)

	monitor := positions.New(cfg, st, stores.positions, log.New(os.Stdout, "[positions] ", log.LstdFlags))
	if restored, err := monitor.Restore(ctx); err != nil {
		logger.Fatalf("Failed to restore open positions: %v", err)
	} else if restored > 0 {
		logger.Printf("Restored %d open positions", restored)
	}

	marketMonitor := market.NewMonitor(cfg, st, log.New(os.Stdout, "[market] ", log.LstdFlags))

	var priceFeed engine.PriceFeed
	var wsFeed *feed.WSPriceFeed
	if *wsEndpoint != "" {
		wsFeed, err = feed.NewWSPriceFeed(ctx, *wsEndpoint, nil, log.New(os.Stdout, "[feed] ", log.LstdFlags))
		if err != nil {
			logger.Fatalf("Failed to connect price feed: %v", err)
		}
		defer wsFeed.Close()
		priceFeed = wsFeed
	} else {
		logger.Println("No price feed endpoint, using static feed (positions exit on timeout only)")
		priceFeed = feed.NewStaticPriceFeed(nil)
	}

	orchestrator := engine.New(engine.Options{
		Config:      cfg,
		State:       st,
		Allocator:   allocator.New(cfg, st, log.New(os.Stdout, "[allocator] ", log.LstdFlags)),
		Sentiment:   cache,
		Social:      engine.NewStaticSocialFeed(nil),
		Consensus:   engine.SimulatedConsensus{},
		Execution:   engine.NewPaperExecution(),
		Monitor:     monitor,
		Decisions:   stores.decisions,
		Evaluations: stores.evaluations,
		Metrics:     metrics,
		Logger:      logger,
	})

	server := &Server{
		cfg:           cfg,
		logger:        logger,
		state:         st,
		orchestrator:  orchestrator,
		monitor:       monitor,
		marketMonitor: marketMonitor,
		priceFeed:     priceFeed,
		metrics:       metrics,
		signalCh:      make(chan *domain.TradeSignal, signalQueueSize),
		started:       time.Now(),
	}

	done := make(chan error, 1)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	go server.startHTTPServer(*httpAddr)

	var marketCh <-chan feed.MarketUpdate
	if wsFeed != nil {
		marketCh = wsFeed.Market()
	}

	err = server.Run(ctx, marketCh)
	done <- err
	cancel()

	if err != nil && err != context.Canceled {
		logger.Fatalf("Engine error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// createStores creates the engine stores and runs migrations.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool) (*engineStores, func(), error) {
	if useMemory {
		stores := &engineStores{
			decisions:   memory.NewDecisionStore(),
			positions:   memory.NewPositionStore(),
			evaluations: memory.NewEvaluationLogStore(),
		}
		return stores, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("migrate postgres: %w", err)
	}

	chConn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("migrate clickhouse: %w", err)
	}

	stores := &engineStores{
		decisions:   pgstore.NewDecisionStore(pool),
		positions:   pgstore.NewPositionStore(pool),
		evaluations: chstore.NewEvaluationLogStore(chConn),
	}

	cleanup := func() {
		chConn.Close()
		pool.Close()
	}

	return stores, cleanup, nil
}

// Run starts the worker pool, the position tick loop, and the market
// update loop, and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context, marketCh <-chan feed.MarketUpdate) error {
	s.logger.Printf("Starting engine: %d workers, tick interval %v", s.cfg.Workers, s.cfg.TickInterval)

	g, ctx := errgroup.WithContext(ctx)

	for i := 0; i < s.cfg.Workers; i++ {
		g.Go(func() error {
			return s.runWorker(ctx)
		})
	}

	g.Go(func() error {
		return s.runPositionTicker(ctx)
	})

	if marketCh != nil {
		g.Go(func() error {
			return s.runMarketLoop(ctx, marketCh)
		})
	}

	return g.Wait()
}

// runWorker evaluates signals from the intake queue.
func (s *Server) runWorker(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sig := <-s.signalCh:
			s.orchestrator.Evaluate(ctx, sig)
		}
	}
}

// runPositionTicker drives the position monitor on the configured
// interval and refreshes the position gauges.
func (s *Server) runPositionTicker(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			open := s.monitor.Open()
			tokens := make([]string, 0, len(open))
			for _, p := range open {
				tokens = append(tokens, p.Token)
			}

			prices, err := s.priceFeed.Prices(ctx, tokens)
			if err != nil {
				s.logger.Printf("price feed error: %v", err)
				prices = nil
			}

			closed := s.monitor.Tick(ctx, prices)
			for _, p := range closed {
				s.metrics.PositionsClosed.WithLabelValues(string(p.Status)).Inc()
			}

			snap := s.state.Snapshot()
			s.metrics.OpenPositions.Set(float64(snap.OpenPositions))
			s.metrics.CumulativePnL.Set(snap.CumulativePnL)
			if snap.Paused {
				s.metrics.TradingPaused.Set(1)
			} else {
				s.metrics.TradingPaused.Set(0)
			}
		}
	}
}

// runMarketLoop feeds market updates into the condition monitor.
func (s *Server) runMarketLoop(ctx context.Context, marketCh <-chan feed.MarketUpdate) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update, ok := <-marketCh:
			if !ok {
				return nil
			}
			condition := s.marketMonitor.Update(update.VolatilityPct, update.ChangePct)
			switch condition {
			case domain.MarketCrash:
				s.metrics.MarketCrashes.Inc()
			case domain.MarketVolatile:
				s.metrics.VolatileAlerts.Inc()
			}
		}
	}
}

// startHTTPServer starts the HTTP server for intake/health/metrics/status.
func (s *Server) startHTTPServer(addr string) {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	mux.Handle("/metrics", observability.Handler())

	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/report", s.handleReport)
	mux.HandleFunc("/signals", s.handleSignal)

	s.logger.Printf("Starting HTTP server on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		s.logger.Printf("HTTP server error: %v", err)
	}
}

// signalRequest is the JSON wire format for signal intake.
type signalRequest struct {
	Token            string  `json:"token"`
	ContractAddress  string  `json:"contract_address"`
	LiquidityUSD     float64 `json:"liquidity_usd"`
	MarketCapUSD     float64 `json:"market_cap_usd"`
	HolderCount      int     `json:"holder_count"`
	Volume24hUSD     float64 `json:"volume_24h_usd"`
	Price            float64 `json:"price"`
	TimestampMs      int64   `json:"timestamp_ms"`
	HoneypotScore    float64 `json:"honeypot_score"`
	RugPullRisk      string  `json:"rug_pull_risk"`
	ContractVerified bool    `json:"contract_verified"`
	Momentum         float64 `json:"momentum"`
	VolumeRatio      float64 `json:"volume_ratio"`
}

// handleSignal enqueues a signal for evaluation.
func (s *Server) handleSignal(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req signalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("malformed signal: %v", err), http.StatusBadRequest)
		return
	}

	ts := time.Now()
	if req.TimestampMs > 0 {
		ts = time.UnixMilli(req.TimestampMs)
	}

	sig := &domain.TradeSignal{
		Token:            req.Token,
		ContractAddress:  req.ContractAddress,
		LiquidityUSD:     req.LiquidityUSD,
		MarketCapUSD:     req.MarketCapUSD,
		HolderCount:      req.HolderCount,
		Volume24hUSD:     req.Volume24hUSD,
		Price:            req.Price,
		Timestamp:        ts,
		HoneypotScore:    req.HoneypotScore,
		RugPullRisk:      domain.RugRisk(req.RugPullRisk),
		ContractVerified: req.ContractVerified,
		Momentum:         req.Momentum,
		VolumeRatio:      req.VolumeRatio,
	}

	select {
	case s.signalCh <- sig:
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte("accepted"))
	default:
		http.Error(w, "signal queue full", http.StatusServiceUnavailable)
	}
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status           string  `json:"status"`
	Uptime           string  `json:"uptime"`
	SignalsProcessed int     `json:"signals_processed"`
	TradesApproved   int     `json:"trades_approved"`
	TradesRejected   int     `json:"trades_rejected"`
	TradesExecuted   int     `json:"trades_executed"`
	OpenPositions    int     `json:"open_positions"`
	CumulativePnL    float64 `json:"cumulative_pnl"`
	WinRate          float64 `json:"win_rate"`
	MarketCondition  string  `json:"market_condition"`
	Paused           bool    `json:"paused"`
	PauseReason      string  `json:"pause_reason,omitempty"`
}

// handleStatus returns engine status as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.state.Snapshot()

	resp := StatusResponse{
		Status:           "running",
		Uptime:           time.Since(s.started).String(),
		SignalsProcessed: snap.SignalsProcessed,
		TradesApproved:   snap.TradesApproved,
		TradesRejected:   snap.TradesRejected,
		TradesExecuted:   snap.TradesExecuted,
		OpenPositions:    snap.OpenPositions,
		CumulativePnL:    snap.CumulativePnL,
		WinRate:          snap.WinRate,
		MarketCondition:  string(snap.MarketCondition),
		Paused:           snap.Paused,
		PauseReason:      snap.PauseReason,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// ReportResponse extends StatusResponse with derived figures.
type ReportResponse struct {
	StatusResponse
	ApprovalRate float64  `json:"approval_rate"`
	ActiveTokens []string `json:"active_tokens"`
}

// handleReport returns the detailed engine report as JSON.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	report := s.orchestrator.DetailedReport()
	snap := report.Snapshot

	resp := ReportResponse{
		StatusResponse: StatusResponse{
			Status:           "running",
			Uptime:           time.Since(s.started).String(),
			SignalsProcessed: snap.SignalsProcessed,
			TradesApproved:   snap.TradesApproved,
			TradesRejected:   snap.TradesRejected,
			TradesExecuted:   snap.TradesExecuted,
			OpenPositions:    snap.OpenPositions,
			CumulativePnL:    snap.CumulativePnL,
			WinRate:          snap.WinRate,
			MarketCondition:  string(snap.MarketCondition),
			Paused:           snap.Paused,
			PauseReason:      snap.PauseReason,
		},
		ApprovalRate: report.ApprovalRate,
		ActiveTokens: report.ActiveTokens,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
