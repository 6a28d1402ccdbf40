package safety

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ganeshvadlamuri/decision-kernel-sub000/planner"
	"github.com/ganeshvadlamuri/decision-kernel-sub000/world"
)

func calmState() *world.State {
	s := world.NewState()
	s.RobotLocation = "dock"
	s.HumanLocation = "living_room"
	return s
}

func simplePlan(kinds ...string) planner.Plan {
	p := planner.Plan{}
	for _, k := range kinds {
		p = append(p, planner.NewAction(k, nil))
	}
	return p
}

func TestValidateAcceptsSanePlan(t *testing.T) {
	v := NewValidator(Config{})
	ok, reason := v.Validate(simplePlan("navigate_to", "grasp", "release"), calmState())
	assert.True(t, ok)
	assert.Equal(t, "PASS", reason)
}

func TestValidateIsIdempotent(t *testing.T) {
	v := NewValidator(Config{})
	plan := simplePlan("navigate_to", "grasp")
	state := calmState()

	ok1, r1 := v.Validate(plan, state)
	ok2, r2 := v.Validate(plan, state)
	assert.Equal(t, ok1, ok2)
	assert.Equal(t, r1, r2)
}

func TestValidateRejectsEmptyPlan(t *testing.T) {
	v := NewValidator(Config{})
	ok, reason := v.Validate(planner.Plan{}, calmState())
	assert.False(t, ok)
	assert.Equal(t, "empty plan", reason)
}

func TestValidateRejectsOverlongPlan(t *testing.T) {
	v := NewValidator(Config{MaxPlanLength: 3})
	ok, reason := v.Validate(simplePlan("wait", "wait", "wait", "wait"), calmState())
	assert.False(t, ok)
	assert.Contains(t, reason, "plan too long")
}

func TestValidateRejectsForbiddenAction(t *testing.T) {
	v := NewValidator(Config{})
	ok, reason := v.Validate(simplePlan("navigate_to", "harm"), calmState())
	assert.False(t, ok)
	assert.Equal(t, "forbidden action: harm", reason)
}

func TestValidateRejectsInsufficientBattery(t *testing.T) {
	v := NewValidator(Config{})
	state := calmState()
	state.BatteryLevel = 7 // above critical, below the 5-action cost of 10%

	ok, reason := v.Validate(simplePlan("navigate_to", "grasp", "navigate_to", "release", "wait"), state)
	assert.False(t, ok)
	assert.Contains(t, reason, "insufficient battery")
}

func TestValidateCriticalBatteryRequiresCharge(t *testing.T) {
	v := NewValidator(Config{})
	state := calmState()
	state.BatteryLevel = 3
	state.Charging = true // suppress the emergency so the static check fires

	ok, reason := v.Validate(simplePlan("navigate_to"), state)
	assert.False(t, ok)
	assert.Contains(t, reason, "must charge")

	ok, _ = v.Validate(simplePlan("charge"), state)
	assert.True(t, ok)
}

func TestValidateBlockedPathNeedsAlternative(t *testing.T) {
	v := NewValidator(Config{})
	state := calmState()
	state.Relations["path_to_kitchen_blocked"] = true

	without := planner.Plan{
		planner.NewAction("navigate_to", planner.Params{"location": "kitchen"}),
	}
	ok, reason := v.Validate(without, state)
	assert.False(t, ok)
	assert.Contains(t, reason, "blocked")

	with := planner.Plan{
		planner.NewAction("find_alternative_route", planner.Params{"location": "kitchen"}),
		planner.NewAction("navigate_to", planner.Params{"location": "kitchen"}),
	}
	ok, _ = v.Validate(with, state)
	assert.True(t, ok)
}

func TestValidateEmergencyOverridesEverything(t *testing.T) {
	v := NewValidator(Config{})
	state := calmState()
	state.FireDetected = true

	ok, reason := v.Validate(simplePlan("navigate_to"), state)
	assert.False(t, ok)
	assert.True(t, strings.HasPrefix(reason, "EMERGENCY: fire"))
}

func TestDetectEmergencyPriorityOrder(t *testing.T) {
	v := NewValidator(Config{})
	state := calmState()
	state.FireDetected = true
	state.IntrusionDetected = true
	state.FallDetected = true

	kind, ok := v.DetectEmergency(state)
	assert.True(t, ok)
	assert.Equal(t, EmergencyFire, kind)

	state.FireDetected = false
	kind, _ = v.DetectEmergency(state)
	assert.Equal(t, EmergencyIntrusion, kind)

	state.IntrusionDetected = false
	kind, _ = v.DetectEmergency(state)
	assert.Equal(t, EmergencyFall, kind)
}

func TestDetectCriticalBatteryRespectsCharging(t *testing.T) {
	v := NewValidator(Config{})
	state := calmState()
	state.BatteryLevel = 3

	kind, ok := v.DetectEmergency(state)
	assert.True(t, ok)
	assert.Equal(t, EmergencyCriticalBattery, kind)

	state.Charging = true
	_, ok = v.DetectEmergency(state)
	assert.False(t, ok)
}

func TestDetectTemperatureExtreme(t *testing.T) {
	v := NewValidator(Config{})

	hot := calmState()
	hot.Temperature = 45
	kind, ok := v.DetectEmergency(hot)
	assert.True(t, ok)
	assert.Equal(t, EmergencyTemperature, kind)

	cold := calmState()
	cold.Temperature = -3
	kind, ok = v.DetectEmergency(cold)
	assert.True(t, ok)
	assert.Equal(t, EmergencyTemperature, kind)

	mild := calmState()
	mild.Temperature = 22
	_, ok = v.DetectEmergency(mild)
	assert.False(t, ok)
}

func TestEmergencyPlans(t *testing.T) {
	v := NewValidator(Config{})
	state := calmState()
	state.FireLocation = "kitchen"
	state.IntrusionLocation = "garage"

	fire := v.EmergencyPlan(EmergencyFire, state)
	assert.Equal(t, "sound_alarm", fire[0].Kind)
	assert.True(t, fire.ContainsAt("close_door", "kitchen"))
	assert.True(t, fire.Contains("navigate_to_exit"))

	intrusion := v.EmergencyPlan(EmergencyIntrusion, state)
	assert.True(t, intrusion.ContainsAt("record_video", "garage"))
	assert.True(t, intrusion.ContainsAt("navigate_to", "safe_room"))

	fall := v.EmergencyPlan(EmergencyFall, state)
	assert.True(t, fall.Contains("monitor_vital_signs"))
	assert.True(t, fall.ContainsAt("navigate_to", "living_room"))

	battery := v.EmergencyPlan(EmergencyCriticalBattery, state)
	assert.True(t, battery.Contains("charge"))

	assert.Empty(t, v.EmergencyPlan("meteor_strike", state))
}

func TestShouldInterrupt(t *testing.T) {
	v := NewValidator(Config{})

	calm := calmState()
	stop, _ := v.ShouldInterrupt(calm)
	assert.False(t, stop)

	fire := calmState()
	fire.FireDetected = true
	stop, why := v.ShouldInterrupt(fire)
	assert.True(t, stop)
	assert.Equal(t, "emergency: fire", why)

	drained := calmState()
	drained.BatteryLevel = 2
	stop, why = v.ShouldInterrupt(drained)
	assert.True(t, stop)
	assert.Equal(t, "critical battery level", why)
}
