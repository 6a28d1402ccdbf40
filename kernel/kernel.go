// Package kernel wires the planner, safety gate, experience store and
// resilience wrappers into the agent's single decision loop.
package kernel

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ganeshvadlamuri/decision-kernel-sub000/eventbus"
	"github.com/ganeshvadlamuri/decision-kernel-sub000/knowledge"
	"github.com/ganeshvadlamuri/decision-kernel-sub000/planner"
	"github.com/ganeshvadlamuri/decision-kernel-sub000/resilience"
	"github.com/ganeshvadlamuri/decision-kernel-sub000/safety"
	"github.com/ganeshvadlamuri/decision-kernel-sub000/world"
)

// Executor actuates a single action. It is the only place the kernel may
// block; failures come back as errors whose message is the failure reason,
// optionally classified with resilience.Permanent / resilience.Transient.
type Executor interface {
	Execute(ctx context.Context, action planner.Action) error
}

// Sensor refreshes the world state between actions. Optional; without one
// the kernel keeps planning against the state it was given.
type Sensor interface {
	Snapshot(ctx context.Context) (*world.State, error)
}

// EventSink receives decision events. Satisfied by eventbus.NATSBus.
type EventSink interface {
	Publish(ctx context.Context, evt eventbus.DecisionEvent) error
}

// Options bundles the kernel's collaborators and tuning.
type Options struct {
	Planner   *planner.HTNPlanner
	Replanner *planner.Replanner
	Safety    *safety.Validator
	Knowledge *knowledge.Base
	Executor  Executor
	Sensor    Sensor        // optional
	Redis     *redis.Client // optional, for the episode audit trail
	Bus       EventSink     // optional

	Retry         resilience.RetryConfig
	Breaker       resilience.BreakerConfig
	ActionTimeout time.Duration
	MaxRecoveries int
}

// Kernel drives goal execution: plan, gate, execute with resilience
// wrappers, recover on failure, learn from the outcome.
type Kernel struct {
	planner   *planner.HTNPlanner
	replanner *planner.Replanner
	safety    *safety.Validator
	knowledge *knowledge.Base
	executor  Executor
	sensor    Sensor
	redis     *redis.Client
	bus       EventSink

	retrier       *resilience.Retrier
	breaker       *resilience.CircuitBreaker
	actionTimeout time.Duration
	maxRecoveries int
}

// Result reports what happened to one goal.
type Result struct {
	Goal       planner.Goal `json:"goal"`
	Completed  bool         `json:"completed"`
	Outcome    string       `json:"outcome"`
	Emergency  string       `json:"emergency,omitempty"`
	Executed   planner.Plan `json:"executed"`
	Recoveries int          `json:"recoveries"`
	Trace      []string     `json:"trace"`
	Duration   time.Duration `json:"duration"`
}

// New builds a kernel from options. Planner, Replanner, Safety, Knowledge
// and Executor are required.
func New(opts Options) (*Kernel, error) {
	if opts.Planner == nil || opts.Replanner == nil || opts.Safety == nil || opts.Knowledge == nil {
		return nil, errors.New("kernel: planner, replanner, safety and knowledge are required")
	}
	if opts.Executor == nil {
		return nil, errors.New("kernel: executor is required")
	}
	timeout := opts.ActionTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	maxRecoveries := opts.MaxRecoveries
	if maxRecoveries == 0 {
		maxRecoveries = 5
	}
	return &Kernel{
		planner:       opts.Planner,
		replanner:     opts.Replanner,
		safety:        opts.Safety,
		knowledge:     opts.Knowledge,
		executor:      opts.Executor,
		sensor:        opts.Sensor,
		redis:         opts.Redis,
		bus:           opts.Bus,
		retrier:       resilience.NewRetrier(opts.Retry),
		breaker:       resilience.NewCircuitBreaker(opts.Breaker),
		actionTimeout: timeout,
		maxRecoveries: maxRecoveries,
	}, nil
}

// pendingRecovery tracks a recovery whose verdict is decided by whether the
// continuation plan ultimately completes.
type pendingRecovery struct {
	actionKind string
	reason     string
	strategy   string
}

// Process runs one goal to completion or to a terminal condition. Expected
// conditions (unknown goal, rejected plan, no recovery) come back in the
// Result, not as errors.
func (k *Kernel) Process(ctx context.Context, goal planner.Goal, state *world.State) (*Result, error) {
	res := &Result{Goal: goal}
	start := time.Now()
	defer func() {
		if res.Duration == 0 {
			res.Duration = time.Since(start)
		}
	}()

	plan := k.planner.Plan(goal, state)
	if len(plan) == 0 {
		res.Outcome = "unknown goal"
		res.Trace = append(res.Trace, fmt.Sprintf("no task registered for %q", goal.Kind))
		return res, nil
	}
	res.Trace = append(res.Trace, fmt.Sprintf("planned %d actions for %s", len(plan), goal.Kind))

	if best, ok := k.knowledge.BestBehavior(goal.Kind, ContextFromState(state)); ok {
		res.Trace = append(res.Trace, fmt.Sprintf("learned behavior available (rate %.2f over %d runs)",
			best.SuccessRate(), best.SuccessCount+best.FailureCount))
	}

	if ok, reason := k.safety.Validate(plan, state); !ok {
		kind, isEmergency := k.safety.DetectEmergency(state)
		if !isEmergency {
			k.publish(ctx, eventbus.TypePlanRejected, goal.Kind, reason)
			res.Outcome = fmt.Sprintf("plan rejected: %s", reason)
			res.Trace = append(res.Trace, res.Outcome)
			return res, nil
		}
		k.publish(ctx, eventbus.TypeEmergency, goal.Kind, string(kind))
		plan = k.safety.EmergencyPlan(kind, state)
		res.Emergency = string(kind)
		res.Trace = append(res.Trace, fmt.Sprintf("emergency override: %s", kind))
		if len(plan) == 0 {
			res.Outcome = fmt.Sprintf("no emergency protocol for %s", kind)
			return res, nil
		}
	}

	var pending []pendingRecovery

	for len(plan) > 0 {
		if ctx.Err() != nil {
			res.Outcome = "cancelled"
			return res, ctx.Err()
		}

		state = k.refresh(ctx, state)

		// An executing normal plan is abandoned, never paused, when the
		// world turns dangerous. The emergency plan itself is exempt or
		// it could never run.
		if res.Emergency == "" {
			if interrupt, reason := k.safety.ShouldInterrupt(state); interrupt {
				k.publish(ctx, eventbus.TypePlanAbandoned, goal.Kind, reason)
				res.Trace = append(res.Trace, fmt.Sprintf("plan abandoned: %s", reason))
				if kind, ok := k.safety.DetectEmergency(state); ok {
					res.Emergency = string(kind)
					plan = k.safety.EmergencyPlan(kind, state)
					k.publish(ctx, eventbus.TypeEmergency, goal.Kind, string(kind))
					continue
				}
				res.Outcome = fmt.Sprintf("interrupted: %s", reason)
				k.finishBehavior(goal, state, res, false, start)
				return res, nil
			}
		}

		action := plan[0]
		plan = plan[1:]

		err := k.executeAction(ctx, action)
		if err == nil {
			res.Executed = append(res.Executed, action)
			continue
		}

		reason := failureReason(err)
		k.knowledge.RecordFailure(action.Kind, reason, ContextFromState(state), "", false)

		if resilience.IsPermanent(err) {
			res.Outcome = fmt.Sprintf("permanent failure on %s: %s", action.Kind, reason)
			res.Trace = append(res.Trace, res.Outcome)
			k.finishBehavior(goal, state, res, false, start)
			return res, nil
		}

		if res.Recoveries >= k.maxRecoveries {
			res.Outcome = fmt.Sprintf("recovery limit reached after %s failure", action.Kind)
			res.Trace = append(res.Trace, res.Outcome)
			k.finishBehavior(goal, state, res, false, start)
			return res, nil
		}

		newPlan, explanation := k.replanner.Replan(goal, action, reason, state, plan)
		res.Trace = append(res.Trace, explanation)
		if len(newPlan) == 0 {
			k.publish(ctx, eventbus.TypeNoRecovery, goal.Kind, reason)
			res.Outcome = explanation
			k.finishBehavior(goal, state, res, false, start)
			return res, nil
		}

		if ok, vreason := k.safety.Validate(newPlan, state); !ok {
			k.publish(ctx, eventbus.TypePlanRejected, goal.Kind, vreason)
			res.Outcome = fmt.Sprintf("recovery plan rejected: %s", vreason)
			res.Trace = append(res.Trace, res.Outcome)
			k.finishBehavior(goal, state, res, false, start)
			return res, nil
		}

		k.publish(ctx, eventbus.TypeRecovery, goal.Kind, explanation)
		pending = append(pending, pendingRecovery{
			actionKind: action.Kind,
			reason:     reason,
			strategy:   strategyFromExplanation(explanation, action.Kind, reason),
		})
		res.Recoveries++
		plan = newPlan
	}

	// The continuation plans that got us here earned their track record.
	for _, p := range pending {
		k.knowledge.RecordFailure(p.actionKind, p.reason, ContextFromState(state), p.strategy, true)
	}

	res.Completed = true
	res.Outcome = "completed"
	res.Duration = time.Since(start)
	// An emergency protocol is not a way of achieving the goal; recording
	// it under the goal kind would poison BestBehavior.
	if res.Emergency == "" {
		k.knowledge.RecordBehavior(goal.Kind, ContextFromState(state), res.Executed.Kinds(), true, res.Duration)
	}
	k.saveEpisode(ctx, res)
	k.publish(ctx, eventbus.TypePlanCompleted, goal.Kind, res.Outcome)
	return res, nil
}

// executeAction runs one action behind the circuit breaker, a per-action
// timeout, and the backoff retrier.
func (k *Kernel) executeAction(ctx context.Context, action planner.Action) error {
	return k.retrier.Do(ctx, func() error {
		return k.breaker.Do(func() error {
			return resilience.WithTimeout(ctx, k.actionTimeout, func(tctx context.Context) error {
				return k.executor.Execute(tctx, action)
			})
		})
	})
}

func (k *Kernel) refresh(ctx context.Context, state *world.State) *world.State {
	if k.sensor == nil {
		return state
	}
	fresh, err := k.sensor.Snapshot(ctx)
	if err != nil {
		log.Printf("[KERNEL] sensor snapshot failed, keeping stale state: %v", err)
		return state
	}
	return fresh
}

func (k *Kernel) finishBehavior(goal planner.Goal, state *world.State, res *Result, succeeded bool, start time.Time) {
	res.Duration = time.Since(start)
	if res.Emergency == "" {
		k.knowledge.RecordBehavior(goal.Kind, ContextFromState(state), res.Executed.Kinds(), succeeded, res.Duration)
	}
	k.saveEpisode(context.Background(), res)
}

func (k *Kernel) publish(ctx context.Context, eventType, goalKind, reason string) {
	if k.bus == nil {
		return
	}
	evt := eventbus.DecisionEvent{
		EventID:   eventbus.NewEventID("dk_", time.Now()),
		Source:    "decision-kernel",
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		GoalKind:  goalKind,
		Reason:    reason,
	}
	if err := k.bus.Publish(ctx, evt); err != nil {
		log.Printf("[KERNEL] event publish failed: %v", err)
	}
}

// failureReason extracts the underlying failure reason string from a
// possibly wrapped, possibly classified error. Unclassified errors still
// arrive wrapped by the retrier, so the chain is walked to the root cause;
// otherwise the wrapper text would leak into handler keys and the
// experience store.
func failureReason(err error) string {
	var te *resilience.TransientError
	if errors.As(err, &te) {
		return te.Err.Error()
	}
	var pe *resilience.PermanentError
	if errors.As(err, &pe) {
		return pe.Err.Error()
	}
	for {
		inner := errors.Unwrap(err)
		if inner == nil {
			return err.Error()
		}
		err = inner
	}
}

// strategyFromExplanation recovers the handler key from a replanner
// explanation so the experience store can be queried with it later.
func strategyFromExplanation(explanation, actionKind, reason string) string {
	switch {
	case strings.HasPrefix(explanation, "Recovered using learned strategy "):
		return strings.TrimPrefix(explanation, "Recovered using learned strategy ")
	case explanation == "Recovered using generic handler":
		return actionKind
	case explanation == "Full replan from current state":
		return "full_replan"
	case strings.HasPrefix(explanation, "Recovered using "):
		return strings.TrimPrefix(explanation, "Recovered using ")
	default:
		return actionKind + ":" + reason
	}
}
