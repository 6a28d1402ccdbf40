package planner

import (
	"github.com/ganeshvadlamuri/decision-kernel-sub000/world"
)

// HTNPlanner expands a goal into an ordered action sequence by recursively
// decomposing tasks from an immutable registry. Planning is deterministic,
// single-pass and side-effect-free with respect to the world state.
type HTNPlanner struct {
	registry *Registry
}

// NewHTNPlanner creates a planner over the given task registry.
func NewHTNPlanner(registry *Registry) *HTNPlanner {
	return &HTNPlanner{registry: registry}
}

// Plan generates an action sequence for the goal. An unknown goal kind
// yields an empty plan; the caller decides what to do with it.
func (p *HTNPlanner) Plan(goal Goal, state *world.State) Plan {
	if _, ok := p.registry.Lookup(goal.Kind); !ok {
		return Plan{}
	}
	return p.decompose(goal.Kind, state, goal.params())
}

func (p *HTNPlanner) decompose(taskName string, state *world.State, params Params) Plan {
	task, ok := p.registry.Lookup(taskName)
	if !ok {
		return Plan{}
	}

	if task.Primitive {
		return Plan{NewAction(taskName, params)}
	}

	plan := Plan{}
	for _, sub := range task.decompose(state, params) {
		plan = append(plan, p.decompose(sub.Task, state, params.merged(sub.Params))...)
	}
	return plan
}
