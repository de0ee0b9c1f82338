package domain

// Action is the recommended action from the allocation stage.
type Action string

const (
	ActionTrade Action = "TRADE"
	ActionSkip  Action = "SKIP"
	ActionWatch Action = "WATCH"
)

// AgentDecision is the output of the risk-scoring and capital-allocation
// stage. Created once per signal, immutable after creation.
type AgentDecision struct {
	Token     string
	SignalID  string
	Approved  bool
	RiskScore int // 0..100
	Capital   float64
	Reason    string
	Action    Action
	DecidedAt int64 // Unix timestamp in milliseconds
}
