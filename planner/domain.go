package planner

import (
	"github.com/ganeshvadlamuri/decision-kernel-sub000/world"
)

// Decomposition thresholds for the household domain.
const (
	waterLowLevel   = 30.0
	beanLowLevel    = 20.0
	batteryLowLevel = 20.0
)

// Primitive action kinds known to the household domain.
var householdPrimitives = []string{
	"navigate_to", "grasp", "release", "open_door", "close_door",
	"check_water", "check_beans", "check_power", "grind_beans",
	"heat_water", "brew_coffee", "clean_machine", "verify_id",
	"scan_barcode", "knock_door", "find_alternative_route",
	"patrol", "check_battery", "charge", "alert_human",
	"detect_intrusion", "sound_alarm", "navigate_to_exit",
	"avoid_area", "call_emergency", "search_area", "wait",
	"stop", "detect_obstacle", "avoid_obstacle", "reposition",
	"search_for_key", "unlock_door",
}

// DomainRegistry builds the task registry for the household robot domain:
// composite tasks with state-dependent decompositions plus the full
// primitive set.
func DomainRegistry() *Registry {
	r := NewRegistry()

	r.Register("make_coffee", decomposeMakeCoffee)
	r.Register("deliver_package", decomposeDeliverPackage)
	r.Register("monitor_area", decomposeMonitorArea)
	r.Register("bring", decomposeBring)
	r.Register("emergency_fire", decomposeEmergencyFire)

	r.RegisterPrimitives(householdPrimitives...)
	return r
}

func decomposeMakeCoffee(state *world.State, params Params) []Subtask {
	subs := []Subtask{
		Sub("navigate_to", Params{"location": "kitchen"}),
		Sub("check_power", nil),
		Sub("check_water", nil),
		Sub("check_beans", nil),
	}
	subs = append(subs, conditionalRefillWater(state)...)
	subs = append(subs, conditionalRefillBeans(state)...)
	subs = append(subs,
		Sub("grind_beans", nil),
		Sub("heat_water", nil),
		Sub("brew_coffee", nil),
		Sub("grasp", Params{"target": "coffee_cup"}),
		Sub("navigate_to", Params{"location": state.HumanLocation}),
		Sub("release", Params{"target": "coffee_cup"}),
		Sub("navigate_to", Params{"location": "kitchen"}),
		Sub("clean_machine", nil),
	)
	return subs
}

func decomposeDeliverPackage(state *world.State, params Params) []Subtask {
	targetRoom := "room_305"
	if loc, ok := params["location"].(string); ok && loc != "" {
		targetRoom = loc
	}

	subs := []Subtask{
		Sub("grasp", Params{"target": "package"}),
		Sub("navigate_to", Params{"location": targetRoom}),
	}
	if state.DoorState(targetRoom) == "closed" {
		subs = append(subs, Sub("open_door", Params{"location": targetRoom}))
	}
	subs = append(subs,
		Sub("knock_door", nil),
		Sub("release", Params{"target": "package"}),
	)
	return subs
}

func decomposeMonitorArea(state *world.State, params Params) []Subtask {
	area := "warehouse"
	if loc, ok := params["location"].(string); ok && loc != "" {
		area = loc
	}

	subs := []Subtask{
		Sub("patrol", Params{"location": area}),
		Sub("check_battery", nil),
	}
	if state.RelationFloat("battery_level", state.BatteryLevel) < batteryLowLevel {
		subs = append(subs,
			Sub("navigate_to", Params{"location": "charging_station"}),
			Sub("charge", nil),
		)
	}
	subs = append(subs, Sub("detect_intrusion", nil))
	if state.IntrusionDetected || state.RelationBool("intrusion_detected", false) {
		subs = append(subs,
			Sub("alert_human", Params{"message": "INTRUSION"}),
			Sub("sound_alarm", nil),
		)
	}
	return subs
}

func decomposeBring(state *world.State, params Params) []Subtask {
	target := "unknown"
	if t, ok := params["target"].(string); ok && t != "" {
		target = t
	}
	obj := state.Object(target)
	objectLocation := "kitchen"
	if obj != nil {
		objectLocation = obj.Location
	}

	subs := []Subtask{
		Sub("navigate_to", Params{"location": objectLocation}),
	}
	if state.PathBlocked(objectLocation) {
		subs = append(subs, Sub("find_alternative_route", Params{"location": objectLocation}))
	}
	if obj == nil {
		// Object location unknown: sweep the usual places first.
		subs = append(subs,
			Sub("navigate_to", Params{"location": "storage"}),
			Sub("navigate_to", Params{"location": "kitchen"}),
			Sub("navigate_to", Params{"location": "living_room"}),
		)
	}
	subs = append(subs,
		Sub("grasp", Params{"target": target}),
		Sub("navigate_to", Params{"location": state.HumanLocation}),
		Sub("release", Params{"target": target}),
	)
	return subs
}

func decomposeEmergencyFire(state *world.State, params Params) []Subtask {
	return []Subtask{
		Sub("sound_alarm", nil),
		Sub("alert_human", Params{"message": "FIRE_DETECTED"}),
		Sub("call_emergency", Params{"service": "911"}),
		Sub("avoid_area", Params{"location": "fire_zone"}),
		Sub("navigate_to_exit", nil),
		Sub("alert_human", Params{"message": "EVACUATE"}),
	}
}

func conditionalRefillWater(state *world.State) []Subtask {
	if state.RelationFloat("water_level", 100) >= waterLowLevel {
		return nil
	}
	return []Subtask{
		Sub("navigate_to", Params{"location": "sink"}),
		Sub("grasp", Params{"target": "water_container"}),
		Sub("release", Params{"target": "water_container"}),
	}
}

func conditionalRefillBeans(state *world.State) []Subtask {
	if state.RelationFloat("bean_level", 100) >= beanLowLevel {
		return nil
	}
	return []Subtask{
		Sub("grasp", Params{"target": "bean_bag"}),
		Sub("release", Params{"target": "bean_container"}),
	}
}
