// Package engine runs incoming trade signals through the evaluation
// pipeline: RECEIVED, VALIDATED, SENTIMENT_ENRICHED, CONSENSUS_CHECKED,
// then EXECUTED or REJECTED. Stage order is strict and rejection is
// fail-fast: a signal rejected at validation never reaches the sentiment
// classifier.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"sol-swarm/internal/allocator"
	"sol-swarm/internal/config"
	"sol-swarm/internal/domain"
	"sol-swarm/internal/idhash"
	"sol-swarm/internal/observability"
	"sol-swarm/internal/positions"
	"sol-swarm/internal/sentiment"
	"sol-swarm/internal/solana"
	"sol-swarm/internal/state"
	"sol-swarm/internal/storage"
)

// Rejection reasons produced by the engine's own stages. Allocator
// rejections carry the allocator's reason instead.
const (
	ReasonSentimentTooLow      = "sentiment below threshold"
	ReasonConsensusNotReached  = "consensus not reached"
	ReasonConsensusUnavailable = "consensus unavailable"
	ReasonExecutionFailed      = "execution failed"
)

// Options configures an Orchestrator. All fields except Metrics and
// Logger are required.
type Options struct {
	Config      config.Config
	State       *state.SystemState
	Allocator   *allocator.Allocator
	Sentiment   *sentiment.Cache
	Social      SocialFeed
	Consensus   ConsensusProvider
	Execution   ExecutionProvider
	Monitor     *positions.Monitor
	Decisions   storage.DecisionStore
	Evaluations storage.EvaluationLogStore
	Metrics     *observability.Metrics
	Logger      *log.Logger
}

// Orchestrator drives the evaluation pipeline for one signal at a time.
// It is safe for concurrent use by multiple workers.
type Orchestrator struct {
	cfg       config.Config
	state     *state.SystemState
	allocator *allocator.Allocator
	sentiment *sentiment.Cache
	social    SocialFeed
	consensus ConsensusProvider
	execution ExecutionProvider
	monitor   *positions.Monitor
	decisions storage.DecisionStore
	evals     storage.EvaluationLogStore
	metrics   *observability.Metrics
	logger    *log.Logger
	now       func() time.Time
}

// New creates an Orchestrator from opts.
func New(opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Orchestrator{
		cfg:       opts.Config,
		state:     opts.State,
		allocator: opts.Allocator,
		sentiment: opts.Sentiment,
		social:    opts.Social,
		consensus: opts.Consensus,
		execution: opts.Execution,
		monitor:   opts.Monitor,
		decisions: opts.Decisions,
		evals:     opts.Evaluations,
		metrics:   opts.Metrics,
		logger:    logger,
		now:       time.Now,
	}
}

// Evaluate runs one signal through the full pipeline. Returns true when
// the signal executed into an open position.
func (o *Orchestrator) Evaluate(ctx context.Context, signal *domain.TradeSignal) bool {
	start := o.now()
	o.state.RecordSignal()
	if o.metrics != nil {
		o.metrics.SignalsEvaluated.Inc()
	}

	signalID := idhash.ComputeSignalID(signal.Token, signal.ContractAddress, signal.Timestamp.UnixMilli())
	o.logger.Printf("signal %s: token=%s stage=%s", shortID(signalID), signal.Token, domain.StageReceived)

	if err := signal.Validate(); err != nil {
		return o.reject(ctx, signal, signalID, nil, domain.StageReceived, err.Error(), start)
	}
	if signal.ContractAddress != "" {
		if err := solana.ValidateTokenAddress(signal.ContractAddress); err != nil {
			return o.reject(ctx, signal, signalID, nil, domain.StageReceived, fmt.Sprintf("invalid contract address: %v", err), start)
		}
	}
	stageStart := o.observeStage(domain.StageReceived, start)

	decision := o.allocator.Allocate(signal)
	decision.SignalID = signalID
	if !decision.Approved {
		return o.reject(ctx, signal, signalID, decision, domain.StageValidated, decision.Reason, start)
	}
	o.logger.Printf("signal %s: token=%s stage=%s risk=%d", shortID(signalID), signal.Token, domain.StageValidated, decision.RiskScore)
	stageStart = o.observeStage(domain.StageValidated, stageStart)

	// Sentiment enrichment. Feed failures degrade to an empty batch, which
	// the aggregator resolves to neutral.
	texts, err := o.social.FetchMentions(ctx, signal.Token)
	if err != nil {
		o.logger.Printf("signal %s: social feed error for %s: %v", shortID(signalID), signal.Token, err)
		texts = nil
	}
	result := o.sentiment.GetOrCompute(ctx, signal.Token, texts)
	score := result.OverallScore
	signal.SentimentScore = &score
	signal.SocialMentions = len(texts)

	if result.LowConfidence(o.cfg.MinSampleCount) {
		o.logger.Printf("signal %s: low-confidence sentiment for %s (%d samples)",
			shortID(signalID), signal.Token, result.SampleCount)
	}
	if score < o.cfg.MinSentimentScore {
		return o.reject(ctx, signal, signalID, decision, domain.StageSentimentEnriched, ReasonSentimentTooLow, start)
	}
	o.logger.Printf("signal %s: token=%s stage=%s sentiment=%.2f", shortID(signalID), signal.Token, domain.StageSentimentEnriched, score)
	stageStart = o.observeStage(domain.StageSentimentEnriched, stageStart)

	ok, err := o.consensus.Vote(ctx, signal, decision)
	if err != nil {
		o.logger.Printf("signal %s: consensus error for %s: %v", shortID(signalID), signal.Token, err)
		return o.reject(ctx, signal, signalID, decision, domain.StageConsensusChecked, ReasonConsensusUnavailable, start)
	}
	if !ok {
		return o.reject(ctx, signal, signalID, decision, domain.StageConsensusChecked, ReasonConsensusNotReached, start)
	}
	o.logger.Printf("signal %s: token=%s stage=%s", shortID(signalID), signal.Token, domain.StageConsensusChecked)
	stageStart = o.observeStage(domain.StageConsensusChecked, stageStart)

	position, err := o.execution.Execute(ctx, signal, decision)
	if err != nil {
		o.logger.Printf("signal %s: execution error for %s: %v", shortID(signalID), signal.Token, err)
		return o.reject(ctx, signal, signalID, decision, domain.StageConsensusChecked, ReasonExecutionFailed, start)
	}
	if err := o.monitor.Register(ctx, position); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
		o.logger.Printf("signal %s: register position %s failed: %v", shortID(signalID), position.PositionID, err)
		return o.reject(ctx, signal, signalID, decision, domain.StageConsensusChecked, ReasonExecutionFailed, start)
	}

	o.state.RecordApproval()
	o.state.RecordExecution()
	o.observeStage(domain.StageExecuted, stageStart)
	if o.metrics != nil {
		o.metrics.TradesExecuted.Inc()
	}
	o.persist(ctx, decision, &domain.EvaluationRecord{
		SignalID:       signalID,
		Token:          signal.Token,
		FinalStage:     domain.StageExecuted,
		RiskScore:      decision.RiskScore,
		SentimentScore: score,
		DurationMs:     o.now().Sub(start).Milliseconds(),
		EvaluatedAt:    o.now().UnixMilli(),
	})

	o.logger.Printf("signal %s: token=%s stage=%s position=%s capital=%.2f",
		shortID(signalID), signal.Token, domain.StageExecuted, shortID(position.PositionID), decision.Capital)
	if o.metrics != nil {
		o.metrics.EvaluationDuration.Observe(o.now().Sub(start).Seconds())
	}
	return true
}

// reject finalizes a signal as REJECTED at the given stage.
func (o *Orchestrator) reject(ctx context.Context, signal *domain.TradeSignal, signalID string, decision *domain.AgentDecision, stage, reason string, start time.Time) bool {
	signal.RejectReason = reason
	o.state.RecordRejection()
	if o.metrics != nil {
		o.metrics.SignalsRejected.WithLabelValues(stage).Inc()
		o.metrics.EvaluationDuration.Observe(o.now().Sub(start).Seconds())
	}

	record := &domain.EvaluationRecord{
		SignalID:    signalID,
		Token:       signal.Token,
		FinalStage:  domain.StageRejected,
		RejectedAt:  stage,
		Reason:      reason,
		DurationMs:  o.now().Sub(start).Milliseconds(),
		EvaluatedAt: o.now().UnixMilli(),
	}
	if decision != nil {
		record.RiskScore = decision.RiskScore
	}
	if signal.SentimentScore != nil {
		record.SentimentScore = *signal.SentimentScore
	}
	o.persist(ctx, decision, record)

	o.logger.Printf("signal %s: token=%s stage=%s at=%s reason=%q",
		shortID(signalID), signal.Token, domain.StageRejected, stage, reason)
	return false
}

// persist writes the decision and the evaluation record. Storage
// failures here are logged, not fatal: the pipeline outcome stands.
func (o *Orchestrator) persist(ctx context.Context, decision *domain.AgentDecision, record *domain.EvaluationRecord) {
	if decision != nil && o.decisions != nil {
		if err := o.decisions.Insert(ctx, decision); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
			o.logger.Printf("persist decision %s failed: %v", shortID(decision.SignalID), err)
		}
	}
	if o.evals != nil {
		if err := o.evals.Insert(ctx, record); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
			o.logger.Printf("persist evaluation %s failed: %v", shortID(record.SignalID), err)
		}
	}
}

// observeStage records the elapsed time for one completed stage and
// returns the start of the next.
func (o *Orchestrator) observeStage(stage string, since time.Time) time.Time {
	now := o.now()
	if o.metrics != nil {
		o.metrics.StageDuration.WithLabelValues(stage).Observe(now.Sub(since).Seconds())
	}
	return now
}

// shortID truncates a 64-char hash for log lines.
func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
