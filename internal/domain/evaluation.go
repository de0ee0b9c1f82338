package domain

// Pipeline stages for a signal evaluation. Stage order is strict; see
// the engine package.
const (
	StageReceived          = "RECEIVED"
	StageValidated         = "VALIDATED"
	StageSentimentEnriched = "SENTIMENT_ENRICHED"
	StageConsensusChecked  = "CONSENSUS_CHECKED"
	StageExecuted          = "EXECUTED"
	StageRejected          = "REJECTED"
)

// EvaluationRecord is one row of the append-only evaluation log: how far
// a signal got through the pipeline and why it stopped. Written once per
// signal for offline analysis.
type EvaluationRecord struct {
	SignalID       string
	Token          string
	FinalStage     string // EXECUTED or REJECTED
	RejectedAt     string // stage at which rejection happened, empty on execute
	Reason         string
	RiskScore      int
	SentimentScore float64 // 0 when the sentiment stage was never reached
	DurationMs     int64
	EvaluatedAt    int64 // Unix timestamp in milliseconds
}
