package planner

import (
	"fmt"
	"sort"
	"strings"
)

// ActionVersion is the action schema version stamped on every new action.
const ActionVersion = "1.0"

// Params carries free-form action/task parameters.
type Params map[string]interface{}

// merged returns a copy of p with child entries overriding parent ones.
func (p Params) merged(child Params) Params {
	out := make(Params, len(p)+len(child))
	for k, v := range p {
		out[k] = v
	}
	for k, v := range child {
		out[k] = v
	}
	return out
}

// Action is a primitive instruction ready for execution. Immutable once
// constructed; compared and logged by value.
type Action struct {
	Kind     string `json:"kind"`
	Target   string `json:"target,omitempty"`
	Location string `json:"location,omitempty"`
	Params   Params `json:"params,omitempty"`
	Version  string `json:"version"`
}

// NewAction builds an action of the given kind, lifting the well-known
// "target" and "location" keys out of params.
func NewAction(kind string, params Params) Action {
	a := Action{Kind: kind, Version: ActionVersion}
	if len(params) == 0 {
		return a
	}
	rest := Params{}
	for k, v := range params {
		switch k {
		case "target":
			if s, ok := v.(string); ok {
				a.Target = s
				continue
			}
		case "location":
			if s, ok := v.(string); ok {
				a.Location = s
				continue
			}
		}
		if v != nil {
			rest[k] = v
		}
	}
	if len(rest) > 0 {
		a.Params = rest
	}
	return a
}

func (a Action) String() string {
	var b strings.Builder
	b.WriteString(a.Kind)
	if a.Target != "" {
		fmt.Fprintf(&b, "(object=%s)", a.Target)
	}
	if a.Location != "" {
		fmt.Fprintf(&b, "(location=%s)", a.Location)
	}
	if len(a.Params) > 0 {
		keys := make([]string, 0, len(a.Params))
		for k := range a.Params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "(%s=%v)", k, a.Params[k])
		}
	}
	return b.String()
}

// Plan is an ordered sequence of actions. It has no identity beyond its
// contents and is produced fresh on every planning call.
type Plan []Action

// Kinds returns the action kinds of the plan, in order.
func (p Plan) Kinds() []string {
	out := make([]string, len(p))
	for i, a := range p {
		out[i] = a.Kind
	}
	return out
}

// Contains reports whether the plan holds any action of the given kind.
func (p Plan) Contains(kind string) bool {
	for _, a := range p {
		if a.Kind == kind {
			return true
		}
	}
	return false
}

// ContainsAt reports whether the plan holds an action of the given kind
// addressed to the given location.
func (p Plan) ContainsAt(kind, location string) bool {
	for _, a := range p {
		if a.Kind == kind && a.Location == location {
			return true
		}
	}
	return false
}

// Goal is a requested outcome submitted to the planner.
type Goal struct {
	Kind      string `json:"kind"`
	Target    string `json:"target,omitempty"`
	Location  string `json:"location,omitempty"`
	Recipient string `json:"recipient,omitempty"`
	Params    Params `json:"params,omitempty"`
}

// params flattens the goal into task parameters for decomposition.
func (g Goal) params() Params {
	p := Params{}
	for k, v := range g.Params {
		p[k] = v
	}
	if g.Target != "" {
		p["target"] = g.Target
	}
	if g.Location != "" {
		p["location"] = g.Location
	}
	if g.Recipient != "" {
		p["recipient"] = g.Recipient
	}
	return p
}
