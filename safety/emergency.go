package safety

import (
	"fmt"

	"github.com/ganeshvadlamuri/decision-kernel-sub000/planner"
	"github.com/ganeshvadlamuri/decision-kernel-sub000/world"
)

// EmergencyKind identifies a world condition that overrides normal planning.
type EmergencyKind string

const (
	EmergencyFire            EmergencyKind = "fire"
	EmergencyIntrusion       EmergencyKind = "intrusion"
	EmergencyFall            EmergencyKind = "fall"
	EmergencyCriticalBattery EmergencyKind = "low_battery_critical"
	EmergencyTemperature     EmergencyKind = "temperature_extreme"
)

// Temperature limits for the temperature_extreme emergency, in Celsius.
const (
	maxSafeTemperature = 40.0
	minSafeTemperature = 0.0
)

// DetectEmergency checks the world state for emergency conditions in fixed
// priority order: fire > intrusion > fall > critical power > temperature.
func (v *Validator) DetectEmergency(state *world.State) (EmergencyKind, bool) {
	if state.FireDetected {
		return EmergencyFire, true
	}
	if state.IntrusionDetected {
		return EmergencyIntrusion, true
	}
	if state.FallDetected {
		return EmergencyFall, true
	}
	if state.BatteryLevel < v.cfg.CriticalBattery && !state.Charging {
		return EmergencyCriticalBattery, true
	}
	if state.Temperature > maxSafeTemperature || state.Temperature < minSafeTemperature {
		return EmergencyTemperature, true
	}
	return "", false
}

// EmergencyPlan returns the canned override sequence for an emergency kind.
// Unknown kinds yield an empty plan.
func (v *Validator) EmergencyPlan(kind EmergencyKind, state *world.State) planner.Plan {
	switch kind {
	case EmergencyFire:
		return firePlan(state)
	case EmergencyIntrusion:
		return intrusionPlan(state)
	case EmergencyFall:
		return fallPlan(state)
	case EmergencyCriticalBattery:
		return criticalBatteryPlan()
	default:
		return planner.Plan{}
	}
}

// ShouldInterrupt reports whether an already executing plan must be
// abandoned immediately. The decision loop then re-plans from the current
// world state rather than resuming.
func (v *Validator) ShouldInterrupt(state *world.State) (bool, string) {
	if state.HasEmergency() {
		kind, _ := v.DetectEmergency(state)
		return true, fmt.Sprintf("emergency: %s", kind)
	}
	if state.BatteryLevel < v.cfg.CriticalBattery {
		return true, "critical battery level"
	}
	return false, ""
}

func firePlan(state *world.State) planner.Plan {
	plan := planner.Plan{
		planner.NewAction("sound_alarm", planner.Params{"type": "fire"}),
		planner.NewAction("alert_human", planner.Params{"message": "FIRE_DETECTED", "location": state.FireLocation}),
		planner.NewAction("call_emergency", planner.Params{"service": "911", "type": "fire"}),
	}
	if state.FireLocation != "" {
		plan = append(plan,
			planner.NewAction("close_door", planner.Params{"location": state.FireLocation}),
			planner.NewAction("avoid_area", planner.Params{"location": state.FireLocation}),
		)
	}
	return append(plan,
		planner.NewAction("navigate_to_exit", planner.Params{"priority": "emergency"}),
		planner.NewAction("alert_human", planner.Params{"message": "EVACUATE_NOW"}),
	)
}

func intrusionPlan(state *world.State) planner.Plan {
	plan := planner.Plan{
		planner.NewAction("sound_alarm", planner.Params{"type": "intrusion"}),
		planner.NewAction("alert_human", planner.Params{"message": "INTRUSION_DETECTED", "location": state.IntrusionLocation}),
		planner.NewAction("call_emergency", planner.Params{"service": "911", "type": "intrusion"}),
	}
	if state.IntrusionLocation != "" {
		plan = append(plan, planner.NewAction("record_video", planner.Params{"location": state.IntrusionLocation}))
	}
	return append(plan,
		planner.NewAction("navigate_to", planner.Params{"location": "safe_room"}),
		planner.NewAction("lock_door", planner.Params{"location": "safe_room"}),
	)
}

func fallPlan(state *world.State) planner.Plan {
	return planner.Plan{
		planner.NewAction("alert_human", planner.Params{"message": "FALL_DETECTED"}),
		planner.NewAction("call_emergency", planner.Params{"service": "911", "type": "medical"}),
		planner.NewAction("navigate_to", planner.Params{"location": state.HumanLocation}),
		planner.NewAction("monitor_vital_signs", planner.Params{"continuous": true}),
		planner.NewAction("wait_for_emergency_services", nil),
	}
}

func criticalBatteryPlan() planner.Plan {
	return planner.Plan{
		planner.NewAction("alert_human", planner.Params{"message": "CRITICAL_BATTERY"}),
		planner.NewAction("stop_all_operations", nil),
		planner.NewAction("navigate_to", planner.Params{"location": "charging_station"}),
		planner.NewAction("charge", planner.Params{"priority": "emergency"}),
	}
}
