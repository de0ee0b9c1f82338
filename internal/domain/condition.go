package domain

// MarketCondition classifies the overall market environment.
type MarketCondition string

const (
	MarketNormal   MarketCondition = "NORMAL"
	MarketVolatile MarketCondition = "VOLATILE"
	MarketCrash    MarketCondition = "CRASH"
)
