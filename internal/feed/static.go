package feed

import (
	"context"
	"sync"
)

// StaticPriceFeed serves prices from an in-memory map. Paper runs and
// tests drive it directly with Set.
type StaticPriceFeed struct {
	mu     sync.RWMutex
	prices map[string]float64
}

// NewStaticPriceFeed creates a StaticPriceFeed from the given map.
func NewStaticPriceFeed(prices map[string]float64) *StaticPriceFeed {
	if prices == nil {
		prices = make(map[string]float64)
	}
	return &StaticPriceFeed{prices: prices}
}

// Prices returns the current price for each requested token.
func (f *StaticPriceFeed) Prices(ctx context.Context, tokens []string) (map[string]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make(map[string]float64, len(tokens))
	for _, token := range tokens {
		if price, ok := f.prices[token]; ok {
			out[token] = price
		}
	}
	return out, nil
}

// Set updates the price for a token.
func (f *StaticPriceFeed) Set(token string, price float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prices[token] = price
}
