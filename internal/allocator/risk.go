package allocator

import "sol-swarm/internal/domain"

// RiskScore computes the composite risk score in [0,100] as the sum of
// four clamped sub-scores:
//   - honeypot      [0,40]: honeypot_score * 40
//   - liquidity     [0,20]: inverse of liquidity vs the reference ceiling
//   - volume ratio  [0,20]: distance of volume_ratio from 1.0, scaled
//   - holders       [0,20]: inverse of holder_count vs the holder floor
//
// The score is monotonically non-decreasing in honeypot_score.
func (a *Allocator) RiskScore(signal *domain.TradeSignal) int {
	score := clamp(signal.HoneypotScore*40, 0, 40)
	score += liquiditySubScore(signal.LiquidityUSD, a.cfg.ReferenceLiquidityUSD)
	score += volumeRatioSubScore(signal.VolumeRatio)
	score += holderSubScore(signal.HolderCount, a.cfg.ReferenceHolderFloor)

	return int(clamp(score, 0, 100))
}

// liquiditySubScore scales from 20 at zero liquidity down to 0 at the
// reference ceiling.
func liquiditySubScore(liquidity, reference float64) float64 {
	if liquidity >= reference {
		return 0
	}
	return clamp(20*(1-liquidity/reference), 0, 20)
}

// volumeRatioSubScore penalizes volume far from its average in either
// direction: both wash-traded spikes and dead volume are risk.
func volumeRatioSubScore(ratio float64) float64 {
	dist := ratio - 1.0
	if dist < 0 {
		dist = -dist
	}
	return clamp(dist*10, 0, 20)
}

// holderSubScore scales from 20 at zero holders down to 0 at the floor.
func holderSubScore(holders, floor int) float64 {
	if holders >= floor {
		return 0
	}
	return clamp(20*(1-float64(holders)/float64(floor)), 0, 20)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
