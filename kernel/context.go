package kernel

import (
	"strconv"

	"github.com/ganeshvadlamuri/decision-kernel-sub000/knowledge"
	"github.com/ganeshvadlamuri/decision-kernel-sub000/world"
)

// ContextFromState projects the world state onto the closed context key set
// the experience store matches on. Battery is bucketed so that nearby
// charge levels compare equal.
func ContextFromState(state *world.State) knowledge.Context {
	return knowledge.Context{
		knowledge.CtxBattery:      batteryBucket(state.BatteryLevel),
		knowledge.CtxTimeOfDay:    state.TimeOfDay,
		knowledge.CtxHumanPresent: strconv.FormatBool(state.HumanPresent),
		knowledge.CtxCharging:     strconv.FormatBool(state.Charging),
		knowledge.CtxEmergency:    strconv.FormatBool(state.HasEmergency()),
		knowledge.CtxLocation:     state.RobotLocation,
	}
}

func batteryBucket(level float64) string {
	switch {
	case level < 5:
		return "critical"
	case level < 20:
		return "low"
	case level < 80:
		return "normal"
	default:
		return "full"
	}
}
