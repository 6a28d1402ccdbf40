package knowledge

import (
	"sort"
)

// FailureSummary is one row of the failure statistics report.
type FailureSummary struct {
	ActionKind string  `json:"action_kind"`
	Reason     string  `json:"reason"`
	Count      int     `json:"count"`
	Recovery   string  `json:"recovery,omitempty"`
	Rate       float64 `json:"rate,omitempty"`
}

// FailureStats summarizes the failure side of the store.
type FailureStats struct {
	TotalPatterns  int              `json:"total_patterns"`
	MostCommon     []FailureSummary `json:"most_common"`
	BestRecoveries []FailureSummary `json:"best_recoveries"`
}

// BehaviorSummary is one row of the behavior statistics report.
type BehaviorSummary struct {
	GoalKind    string  `json:"goal_kind"`
	SuccessRate float64 `json:"success_rate"`
	Executions  int     `json:"executions"`
	AvgDuration float64 `json:"avg_duration"`
}

// BehaviorStats summarizes the learned-behavior side of the store.
type BehaviorStats struct {
	TotalBehaviors int               `json:"total_behaviors"`
	BestPerformers []BehaviorSummary `json:"best_performers"`
}

const statsTopN = 5

// FailureStatistics reports the most common failures and the recovery
// strategies with the best track record.
func (b *Base) FailureStatistics() FailureStats {
	b.mu.Lock()
	defer b.mu.Unlock()

	patterns := make([]*FailurePattern, 0, len(b.failures))
	for _, p := range b.failures {
		patterns = append(patterns, p)
	}

	stats := FailureStats{TotalPatterns: len(patterns)}

	sort.SliceStable(patterns, func(i, j int) bool {
		return patterns[i].Occurrences > patterns[j].Occurrences
	})
	for _, p := range patterns {
		if len(stats.MostCommon) == statsTopN {
			break
		}
		stats.MostCommon = append(stats.MostCommon, FailureSummary{
			ActionKind: p.ActionKind, Reason: p.Reason, Count: p.Occurrences,
		})
	}

	recoverable := []*FailurePattern{}
	for _, p := range patterns {
		if p.Recovery != "" {
			recoverable = append(recoverable, p)
		}
	}
	sort.SliceStable(recoverable, func(i, j int) bool {
		return recoverable[i].RecoveryRate > recoverable[j].RecoveryRate
	})
	for _, p := range recoverable {
		if len(stats.BestRecoveries) == statsTopN {
			break
		}
		stats.BestRecoveries = append(stats.BestRecoveries, FailureSummary{
			ActionKind: p.ActionKind, Reason: p.Reason, Count: p.Occurrences,
			Recovery: p.Recovery, Rate: p.RecoveryRate,
		})
	}

	return stats
}

// ContextPreferences reports, for one goal kind, how often each context
// value co-occurred with a successful execution. Useful for spotting the
// conditions a goal works best under.
func (b *Base) ContextPreferences(goalKind string) map[ContextKey]map[string]int {
	b.mu.Lock()
	defer b.mu.Unlock()

	prefs := map[ContextKey]map[string]int{}
	for _, lb := range b.behaviors {
		if lb.GoalKind != goalKind || lb.SuccessCount == 0 {
			continue
		}
		for k, v := range lb.Context {
			if prefs[k] == nil {
				prefs[k] = map[string]int{}
			}
			prefs[k][v] += lb.SuccessCount
		}
	}
	return prefs
}

// BehaviorStatistics reports the best performing learned behaviors.
func (b *Base) BehaviorStatistics() BehaviorStats {
	b.mu.Lock()
	defer b.mu.Unlock()

	sorted := make([]*LearnedBehavior, len(b.behaviors))
	copy(sorted, b.behaviors)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].SuccessRate() > sorted[j].SuccessRate()
	})

	stats := BehaviorStats{TotalBehaviors: len(sorted)}
	for _, lb := range sorted {
		if len(stats.BestPerformers) == statsTopN {
			break
		}
		stats.BestPerformers = append(stats.BestPerformers, BehaviorSummary{
			GoalKind:    lb.GoalKind,
			SuccessRate: lb.SuccessRate(),
			Executions:  lb.executions(),
			AvgDuration: lb.AvgDuration,
		})
	}
	return stats
}
