package resilience

import (
	"fmt"
	"sync"
)

// Strategy is one named way of attempting a logical action.
type Strategy struct {
	Name string
	Run  func() error
}

// AdaptiveRetrier tries an ordered list of strategies for one logical
// action until one succeeds, keeping per-strategy success history keyed by
// action name so the historically best strategy can be queried later.
type AdaptiveRetrier struct {
	mu      sync.Mutex
	history map[string]map[string][]bool
}

// NewAdaptiveRetrier returns an empty adaptive retrier.
func NewAdaptiveRetrier() *AdaptiveRetrier {
	return &AdaptiveRetrier{history: map[string]map[string][]bool{}}
}

// Do tries each strategy in order and returns the name of the first one
// that succeeds. When all strategies fail it returns the last error.
func (a *AdaptiveRetrier) Do(actionName string, strategies []Strategy) (string, error) {
	var lastErr error
	for _, s := range strategies {
		err := s.Run()
		a.record(actionName, s.Name, err == nil)
		if err == nil {
			return s.Name, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no strategies provided for %s", actionName)
	}
	return "", fmt.Errorf("all strategies exhausted for %s: %w", actionName, lastErr)
}

// BestStrategy returns the strategy with the highest recorded success rate
// for the action, or false when there is no history.
func (a *AdaptiveRetrier) BestStrategy(actionName string) (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	strategies, ok := a.history[actionName]
	if !ok {
		return "", false
	}

	best := ""
	bestRate := 0.0
	for name, results := range strategies {
		if len(results) == 0 {
			continue
		}
		successes := 0
		for _, r := range results {
			if r {
				successes++
			}
		}
		rate := float64(successes) / float64(len(results))
		if rate > bestRate {
			bestRate = rate
			best = name
		}
	}
	if best == "" {
		return "", false
	}
	return best, true
}

func (a *AdaptiveRetrier) record(actionName, strategyName string, success bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.history[actionName] == nil {
		a.history[actionName] = map[string][]bool{}
	}
	a.history[actionName][strategyName] = append(a.history[actionName][strategyName], success)
}
