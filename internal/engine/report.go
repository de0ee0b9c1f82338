package engine

import (
	"sort"

	"sol-swarm/internal/state"
)

// Report is the extended status surface: the state snapshot plus derived
// figures not tracked as counters.
type Report struct {
	Snapshot     state.Snapshot
	ApprovalRate float64
	ActiveTokens []string
}

// DetailedReport builds a Report from current state and the open
// position set. ApprovalRate is 0 before any signal is processed.
func (o *Orchestrator) DetailedReport() Report {
	snap := o.state.Snapshot()

	r := Report{Snapshot: snap}
	if snap.SignalsProcessed > 0 {
		r.ApprovalRate = float64(snap.TradesApproved) / float64(snap.SignalsProcessed)
	}

	seen := make(map[string]struct{})
	for _, p := range o.monitor.Open() {
		if _, ok := seen[p.Token]; ok {
			continue
		}
		seen[p.Token] = struct{}{}
		r.ActiveTokens = append(r.ActiveTokens, p.Token)
	}
	sort.Strings(r.ActiveTokens)

	return r
}
