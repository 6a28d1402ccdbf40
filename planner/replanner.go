package planner

import (
	"fmt"

	"github.com/ganeshvadlamuri/decision-kernel-sub000/world"
)

// NoRecoveryExplanation is returned when every recovery path came up empty.
// This is a terminal, reportable condition for the caller, not an error.
const NoRecoveryExplanation = "no recovery strategy found"

// RecoveryHandler produces a small action sequence that repairs a failed
// action. Handlers are pure functions of (failed action, world state, goal).
type RecoveryHandler func(failed Action, state *world.State, goal Goal) Plan

// RecoveryAdvisor reports the historically best recovery strategy for an
// (action kind, failure reason) pair. The experience store satisfies this.
type RecoveryAdvisor interface {
	BestRecovery(actionKind, reason string) (string, bool)
}

// Replanner repairs a plan after an action failure: a handler keyed by the
// exact (kind, reason) pair, then a generic per-kind handler, then a full
// re-decomposition from the current state.
type Replanner struct {
	base     *HTNPlanner
	advisor  RecoveryAdvisor
	handlers map[string]RecoveryHandler
}

// NewReplanner creates a replanner over the base planner. advisor may be
// nil, in which case no experience bias is applied.
func NewReplanner(base *HTNPlanner, advisor RecoveryAdvisor) *Replanner {
	r := &Replanner{
		base:     base,
		advisor:  advisor,
		handlers: map[string]RecoveryHandler{},
	}
	r.registerHandlers()
	return r
}

// RegisterHandler installs a recovery handler under the given key. Keys are
// either "kind:reason" (exact) or "kind" (generic).
func (r *Replanner) RegisterHandler(key string, h RecoveryHandler) {
	r.handlers[key] = h
}

// Replan generates a continuation plan after a failure. The handler output
// is prepended to the not-yet-executed remainder; the returned explanation
// identifies which recovery path was taken. An empty plan with
// NoRecoveryExplanation means nothing worked.
func (r *Replanner) Replan(goal Goal, failed Action, reason string, state *world.State, remaining Plan) (Plan, string) {
	exactKey := handlerKey(failed.Kind, reason)

	// Prefer the strategy with the best recorded track record when the
	// experience store knows one for this failure.
	if r.advisor != nil {
		if strategy, ok := r.advisor.BestRecovery(failed.Kind, reason); ok {
			if h, exists := r.handlers[strategy]; exists {
				if recovery := h(failed, state, goal); len(recovery) > 0 {
					return append(recovery, remaining...), fmt.Sprintf("Recovered using learned strategy %s", strategy)
				}
			}
		}
	}

	if h, ok := r.handlers[exactKey]; ok {
		if recovery := h(failed, state, goal); len(recovery) > 0 {
			return append(recovery, remaining...), fmt.Sprintf("Recovered using %s", exactKey)
		}
	}

	if h, ok := r.handlers[failed.Kind]; ok {
		if recovery := h(failed, state, goal); len(recovery) > 0 {
			return append(recovery, remaining...), "Recovered using generic handler"
		}
	}

	if plan := r.base.Plan(goal, state); len(plan) > 0 {
		return plan, "Full replan from current state"
	}

	return Plan{}, NoRecoveryExplanation
}

func handlerKey(kind, reason string) string {
	return kind + ":" + reason
}

func (r *Replanner) registerHandlers() {
	// Navigation failures
	r.handlers[handlerKey("navigate_to", "path_blocked")] = handleBlockedPath
	r.handlers[handlerKey("navigate_to", "obstacle")] = handleObstacle
	r.handlers[handlerKey("navigate_to", "low_battery")] = handleLowBattery

	// Grasp failures
	r.handlers[handlerKey("grasp", "object_not_found")] = handleObjectNotFound
	r.handlers[handlerKey("grasp", "object_too_heavy")] = handleHeavyObject

	// Door failures
	r.handlers[handlerKey("open_door", "locked")] = handleLockedDoor

	// Generic per-kind fallbacks
	r.handlers["navigate_to"] = handleNavigationGeneric
	r.handlers["grasp"] = handleGraspGeneric
}

func handleBlockedPath(failed Action, state *world.State, goal Goal) Plan {
	return Plan{
		NewAction("find_alternative_route", Params{"location": failed.Location}),
		NewAction("navigate_to", Params{"location": failed.Location}),
	}
}

func handleObstacle(failed Action, state *world.State, goal Goal) Plan {
	return Plan{
		NewAction("detect_obstacle", Params{"location": failed.Location}),
		NewAction("avoid_obstacle", Params{"location": failed.Location}),
		NewAction("navigate_to", Params{"location": failed.Location}),
	}
}

func handleObjectNotFound(failed Action, state *world.State, goal Goal) Plan {
	searchLocations := []string{"kitchen", "living_room", "bedroom", "storage"}
	plan := Plan{}
	for _, loc := range searchLocations {
		plan = append(plan,
			NewAction("navigate_to", Params{"location": loc}),
			NewAction("search_area", Params{"location": loc, "target": failed.Target}),
		)
	}
	return append(plan, NewAction("grasp", Params{"target": failed.Target}))
}

func handleHeavyObject(failed Action, state *world.State, goal Goal) Plan {
	return Plan{
		NewAction("alert_human", Params{"message": "need_assistance", "object": failed.Target}),
		NewAction("wait", Params{"timeout": 60}),
		NewAction("grasp", Params{"target": failed.Target, "assisted": true}),
	}
}

func handleLockedDoor(failed Action, state *world.State, goal Goal) Plan {
	return Plan{
		NewAction("search_for_key", Params{"location": failed.Location}),
		NewAction("grasp", Params{"target": "key"}),
		NewAction("unlock_door", Params{"location": failed.Location}),
		NewAction("open_door", Params{"location": failed.Location}),
	}
}

func handleLowBattery(failed Action, state *world.State, goal Goal) Plan {
	return Plan{
		NewAction("navigate_to", Params{"location": "charging_station"}),
		NewAction("charge", Params{"duration": 300}),
		NewAction("navigate_to", Params{"location": failed.Location}),
	}
}

func handleNavigationGeneric(failed Action, state *world.State, goal Goal) Plan {
	return Plan{
		NewAction("stop", nil),
		NewAction("wait", Params{"duration": 2}),
		NewAction("navigate_to", Params{"location": failed.Location}),
	}
}

func handleGraspGeneric(failed Action, state *world.State, goal Goal) Plan {
	return Plan{
		NewAction("release", Params{"target": failed.Target}),
		NewAction("reposition", nil),
		NewAction("grasp", Params{"target": failed.Target}),
	}
}
