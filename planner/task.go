package planner

import (
	"fmt"

	"github.com/ganeshvadlamuri/decision-kernel-sub000/world"
)

// Subtask is one step emitted by a decomposition rule: a task name plus
// parameters for the child, which override the parent's on key collision.
type Subtask struct {
	Task   string `json:"task"`
	Params Params `json:"params,omitempty"`
}

// Sub is shorthand for building a Subtask.
func Sub(task string, params Params) Subtask {
	return Subtask{Task: task, Params: params}
}

// DecompositionRule expands a composite task into ordered subtasks for the
// given world state and parameters. Returning an empty slice means the rule
// declined; the planner then tries the next rule in registration order.
// Rules must be pure with respect to the world state.
type DecompositionRule func(state *world.State, params Params) []Subtask

// Task is a named planning unit: either primitive (maps 1:1 to an action)
// or composite (decomposed by rules).
type Task struct {
	Name      string
	Primitive bool
	Rules     []DecompositionRule
}

// decompose tries each rule in order and returns the first non-empty result.
func (t *Task) decompose(state *world.State, params Params) []Subtask {
	for _, rule := range t.Rules {
		if subs := rule(state, params); len(subs) > 0 {
			return subs
		}
	}
	return nil
}

// Registry holds the task catalogue. It is built once at startup and must
// be treated as read-only during planning; a registry containing a cyclic
// composite reference is a programming error.
type Registry struct {
	tasks map[string]*Task
}

// NewRegistry returns an empty task registry.
func NewRegistry() *Registry {
	return &Registry{tasks: map[string]*Task{}}
}

// Register adds a composite task with its decomposition rules.
func (r *Registry) Register(name string, rules ...DecompositionRule) {
	if _, exists := r.tasks[name]; exists {
		panic(fmt.Sprintf("task %q registered twice", name))
	}
	r.tasks[name] = &Task{Name: name, Rules: rules}
}

// RegisterPrimitives adds primitive tasks that map directly to actions.
func (r *Registry) RegisterPrimitives(names ...string) {
	for _, name := range names {
		if _, exists := r.tasks[name]; exists {
			panic(fmt.Sprintf("task %q registered twice", name))
		}
		r.tasks[name] = &Task{Name: name, Primitive: true}
	}
}

// Lookup returns the named task.
func (r *Registry) Lookup(name string) (*Task, bool) {
	t, ok := r.tasks[name]
	return t, ok
}

// Len returns the number of registered tasks.
func (r *Registry) Len() int { return len(r.tasks) }
