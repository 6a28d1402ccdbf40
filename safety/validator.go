package safety

import (
	"fmt"

	"github.com/ganeshvadlamuri/decision-kernel-sub000/planner"
	"github.com/ganeshvadlamuri/decision-kernel-sub000/world"
)

// CostFunc estimates the battery cost of one action, in percent. The stock
// model charges a flat rate per action; it is a parameter rather than a
// constant so a calibrated model can replace it.
type CostFunc func(planner.Action) float64

// FlatCost returns a cost model charging the same battery percentage for
// every action.
func FlatCost(perAction float64) CostFunc {
	return func(planner.Action) float64 { return perAction }
}

// Config is the safety gate's tuning surface.
type Config struct {
	MaxPlanLength    int      `json:"max_plan_length" yaml:"max_plan_length"`
	ForbiddenActions []string `json:"forbidden_actions" yaml:"forbidden_actions"`
	CriticalBattery  float64  `json:"critical_battery" yaml:"critical_battery"`
	LowBattery       float64  `json:"low_battery" yaml:"low_battery"`
	Cost             CostFunc `json:"-" yaml:"-"`
}

// DefaultConfig returns the stock safety limits.
func DefaultConfig() Config {
	return Config{
		MaxPlanLength:    50,
		ForbiddenActions: []string{"harm", "damage", "ignore_emergency"},
		CriticalBattery:  5.0,
		LowBattery:       20.0,
		Cost:             FlatCost(2.0),
	}
}

// Validator is the safety gate: static plan validation plus emergency
// detection. Validate is a pure function of (plan, state), so the same
// inputs always produce the same verdict.
type Validator struct {
	cfg       Config
	forbidden map[string]bool
}

// NewValidator builds the gate. Zero-valued config fields fall back to the
// defaults.
func NewValidator(cfg Config) *Validator {
	def := DefaultConfig()
	if cfg.MaxPlanLength == 0 {
		cfg.MaxPlanLength = def.MaxPlanLength
	}
	if cfg.ForbiddenActions == nil {
		cfg.ForbiddenActions = def.ForbiddenActions
	}
	if cfg.CriticalBattery == 0 {
		cfg.CriticalBattery = def.CriticalBattery
	}
	if cfg.LowBattery == 0 {
		cfg.LowBattery = def.LowBattery
	}
	if cfg.Cost == nil {
		cfg.Cost = def.Cost
	}
	forbidden := make(map[string]bool, len(cfg.ForbiddenActions))
	for _, kind := range cfg.ForbiddenActions {
		forbidden[kind] = true
	}
	return &Validator{cfg: cfg, forbidden: forbidden}
}

// Validate checks a candidate plan against the static constraints and the
// dynamic emergency conditions. A false verdict means the caller must not
// execute the plan; an emergency reason means it must switch to the
// emergency plan instead.
func (v *Validator) Validate(plan planner.Plan, state *world.State) (bool, string) {
	if kind, ok := v.DetectEmergency(state); ok {
		return false, fmt.Sprintf("EMERGENCY: %s detected - override plan required", kind)
	}

	if state.BatteryLevel < v.cfg.CriticalBattery && !plan.Contains("charge") {
		return false, "CRITICAL: battery too low, must charge immediately"
	}

	if len(plan) == 0 {
		return false, "empty plan"
	}

	if len(plan) > v.cfg.MaxPlanLength {
		return false, fmt.Sprintf("plan too long (%d > %d)", len(plan), v.cfg.MaxPlanLength)
	}

	for _, a := range plan {
		if v.forbidden[a.Kind] {
			return false, fmt.Sprintf("forbidden action: %s", a.Kind)
		}
	}

	cost := 0.0
	for _, a := range plan {
		cost += v.cfg.Cost(a)
	}
	if state.BatteryLevel < cost {
		return false, fmt.Sprintf("insufficient battery for plan (need %.1f%%, have %.1f%%)", cost, state.BatteryLevel)
	}

	for _, a := range plan {
		if a.Kind != "navigate_to" || a.Location == "" {
			continue
		}
		if state.PathBlocked(a.Location) && !plan.ContainsAt("find_alternative_route", a.Location) {
			return false, fmt.Sprintf("path to %s is blocked, no alternative route in plan", a.Location)
		}
	}

	return true, "PASS"
}
