package domain

// PositionStatus is the lifecycle status of a trading position.
// A position transitions to exactly one terminal status, exactly once.
type PositionStatus string

const (
	PositionOpen             PositionStatus = "OPEN"
	PositionClosedStopLoss   PositionStatus = "CLOSED_STOP_LOSS"
	PositionClosedTakeProfit PositionStatus = "CLOSED_TAKE_PROFIT"
	PositionClosedTimeout    PositionStatus = "CLOSED_TIMEOUT"
	PositionClosedManual     PositionStatus = "CLOSED_MANUAL"
)

// Terminal reports whether the status is a closed state.
func (s PositionStatus) Terminal() bool {
	return s != PositionOpen
}

// TradingPosition is an open (or closed) position committed by the
// execution stage. Exclusively owned and mutated by the position monitor
// until terminal; immutable once terminal.
type TradingPosition struct {
	PositionID string
	Token      string
	EntryPrice float64
	Quantity   float64
	Capital    float64
	OpenedAt   int64 // Unix timestamp in milliseconds

	Status        PositionStatus
	UnrealizedPnL float64

	// Populated when the position closes.
	ExitPrice   float64
	RealizedPnL float64
	ClosedAt    int64
}

// PctChange returns the percent change of price relative to entry.
func (p *TradingPosition) PctChange(price float64) float64 {
	return (price - p.EntryPrice) / p.EntryPrice * 100
}
