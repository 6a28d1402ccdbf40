package knowledge

import (
	"sort"
	"sync"
	"time"
)

// ContextKey names one dimension of the execution context recorded with an
// experience. Keeping the key set closed avoids silent typo mismatches in
// the fuzzy matcher.
type ContextKey string

const (
	CtxBattery      ContextKey = "battery"
	CtxTimeOfDay    ContextKey = "time_of_day"
	CtxHumanPresent ContextKey = "human_present"
	CtxCharging     ContextKey = "charging"
	CtxEmergency    ContextKey = "emergency"
	CtxLocation     ContextKey = "location"
)

// Context is the condition set an experience was recorded under.
type Context map[ContextKey]string

// FailurePattern aggregates statistics about one (action kind, failure
// reason) pair.
type FailurePattern struct {
	ActionKind   string    `json:"action_kind"`
	Reason       string    `json:"reason"`
	Context      Context   `json:"context"`
	Occurrences  int       `json:"occurrences"`
	LastSeen     time.Time `json:"last_seen"`
	Recovery     string    `json:"recovery,omitempty"`
	RecoveryRate float64   `json:"recovery_rate"`
}

// LearnedBehavior aggregates statistics about one (goal kind, context) pair's
// historical action sequence.
type LearnedBehavior struct {
	GoalKind       string   `json:"goal_kind"`
	Context        Context  `json:"context"`
	ActionSequence []string `json:"action_sequence"`
	SuccessCount   int      `json:"success_count"`
	FailureCount   int      `json:"failure_count"`
	AvgDuration    float64  `json:"avg_duration"`
}

// SuccessRate returns successes/(successes+failures), or 0 with no history.
func (b *LearnedBehavior) SuccessRate() float64 {
	total := b.SuccessCount + b.FailureCount
	if total == 0 {
		return 0
	}
	return float64(b.SuccessCount) / float64(total)
}

func (b *LearnedBehavior) executions() int {
	return b.SuccessCount + b.FailureCount
}

// Config tunes the quality floors and the fuzzy context match threshold.
type Config struct {
	MatchThreshold float64 `json:"match_threshold" yaml:"match_threshold"`
	RecoveryFloor  float64 `json:"recovery_floor" yaml:"recovery_floor"`
	BehaviorFloor  float64 `json:"behavior_floor" yaml:"behavior_floor"`
}

// DefaultConfig returns the standard thresholds: 70% context overlap,
// recovery floor 0.50, behavior floor 0.30.
func DefaultConfig() Config {
	return Config{MatchThreshold: 0.70, RecoveryFloor: 0.50, BehaviorFloor: 0.30}
}

// Base is the in-memory experience store. All writes are append-or-update;
// nothing is ever deleted. The mutex keeps read-modify-write atomic when a
// fleet shares one store; the single-agent decision loop pays only the
// uncontended lock.
type Base struct {
	mu        sync.Mutex
	cfg       Config
	failures  map[string]*FailurePattern
	behaviors []*LearnedBehavior
	now       func() time.Time
}

// NewBase creates an empty experience store. Zero-valued config fields fall
// back to the defaults.
func NewBase(cfg Config) *Base {
	def := DefaultConfig()
	if cfg.MatchThreshold == 0 {
		cfg.MatchThreshold = def.MatchThreshold
	}
	if cfg.RecoveryFloor == 0 {
		cfg.RecoveryFloor = def.RecoveryFloor
	}
	if cfg.BehaviorFloor == 0 {
		cfg.BehaviorFloor = def.BehaviorFloor
	}
	return &Base{
		cfg:      cfg,
		failures: map[string]*FailurePattern{},
		now:      time.Now,
	}
}

func failureKey(actionKind, reason string) string {
	return actionKind + ":" + reason
}

// RecordFailure records one failure occurrence, optionally with the recovery
// strategy that was attempted and whether it worked. The recovery success
// rate follows the incremental average rate' = (rate*(n-1) + outcome)/n.
func (b *Base) RecordFailure(actionKind, reason string, ctx Context, recovery string, recoverySucceeded bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := failureKey(actionKind, reason)
	p, ok := b.failures[key]
	if !ok {
		p = &FailurePattern{
			ActionKind:  actionKind,
			Reason:      reason,
			Context:     ctx,
			Occurrences: 1,
			LastSeen:    b.now().UTC(),
		}
		if recovery != "" {
			if recoverySucceeded {
				p.Recovery = recovery
				p.RecoveryRate = 1.0
			}
		}
		b.failures[key] = p
		return
	}

	p.Occurrences++
	p.LastSeen = b.now().UTC()
	if len(ctx) > 0 {
		p.Context = ctx
	}
	if recovery != "" {
		outcome := 0.0
		if recoverySucceeded {
			outcome = 1.0
			p.Recovery = recovery
		}
		n := float64(p.Occurrences)
		p.RecoveryRate = (p.RecoveryRate*(n-1) + outcome) / n
	}
}

// BestRecovery returns the recorded recovery strategy for the failure pair,
// but only when its success rate clears the quality floor. Below the floor
// the caller falls back to its default handlers.
func (b *Base) BestRecovery(actionKind, reason string) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	p, ok := b.failures[failureKey(actionKind, reason)]
	if !ok || p.Recovery == "" || p.RecoveryRate <= b.cfg.RecoveryFloor {
		return "", false
	}
	return p.Recovery, true
}

// FailurePattern returns a copy of the stored pattern for a failure pair.
func (b *Base) FailurePattern(actionKind, reason string) (FailurePattern, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	p, ok := b.failures[failureKey(actionKind, reason)]
	if !ok {
		return FailurePattern{}, false
	}
	return *p, true
}

// RecordBehavior records one execution of a goal's action sequence. The
// matching behavior record (same goal kind, fuzzy-matching context) is
// updated in place; otherwise a new record is created.
func (b *Base) RecordBehavior(goalKind string, ctx Context, actions []string, succeeded bool, duration time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	secs := duration.Seconds()
	for _, lb := range b.behaviors {
		if lb.GoalKind != goalKind || !b.contextMatches(lb.Context, ctx) {
			continue
		}
		if succeeded {
			lb.SuccessCount++
		} else {
			lb.FailureCount++
		}
		n := float64(lb.executions())
		lb.AvgDuration = (lb.AvgDuration*(n-1) + secs) / n
		return
	}

	nb := &LearnedBehavior{
		GoalKind:       goalKind,
		Context:        ctx,
		ActionSequence: actions,
		AvgDuration:    secs,
	}
	if succeeded {
		nb.SuccessCount = 1
	} else {
		nb.FailureCount = 1
	}
	b.behaviors = append(b.behaviors, nb)
}

// BestBehavior returns the most successful recorded behavior for the goal in
// the given context, or false when nothing clears the quality floor.
func (b *Base) BestBehavior(goalKind string, ctx Context) (LearnedBehavior, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	candidates := []*LearnedBehavior{}
	for _, lb := range b.behaviors {
		if lb.GoalKind == goalKind && b.contextMatches(lb.Context, ctx) {
			candidates = append(candidates, lb)
		}
	}
	if len(candidates) == 0 {
		return LearnedBehavior{}, false
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		ri, rj := candidates[i].SuccessRate(), candidates[j].SuccessRate()
		if ri == rj {
			return candidates[i].executions() > candidates[j].executions()
		}
		return ri > rj
	})

	best := candidates[0]
	if best.SuccessRate() <= b.cfg.BehaviorFloor {
		return LearnedBehavior{}, false
	}
	return *best, true
}

// contextMatches accepts a stored record when at least MatchThreshold of its
// context keys agree with the query's values. An empty stored context
// matches everything.
func (b *Base) contextMatches(stored, query Context) bool {
	if len(stored) == 0 {
		return true
	}
	matches := 0
	for k, v := range stored {
		if qv, ok := query[k]; ok && qv == v {
			matches++
		}
	}
	return float64(matches)/float64(len(stored)) >= b.cfg.MatchThreshold
}
