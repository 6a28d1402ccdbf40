package world

import (
	"time"
)

// Object represents a physical object the robot knows about.
type Object struct {
	Name      string `json:"name"`
	Location  string `json:"location"`
	Category  string `json:"category"`
	Graspable bool   `json:"graspable"`
}

// State is a snapshot of everything planning decisions depend on. It is
// produced by the sensing layer and passed by reference into each planning
// call; planners must never mutate it.
type State struct {
	Objects       []Object               `json:"objects"`
	Locations     []string               `json:"locations"`
	RobotLocation string                 `json:"robot_location"`
	HumanLocation string                 `json:"human_location"`
	Relations     map[string]interface{} `json:"relations"`

	// Power
	BatteryLevel float64 `json:"battery_level"`
	Charging     bool    `json:"charging"`

	// Emergency flags
	FireDetected      bool   `json:"fire_detected"`
	FireLocation      string `json:"fire_location,omitempty"`
	IntrusionDetected bool   `json:"intrusion_detected"`
	IntrusionLocation string `json:"intrusion_location,omitempty"`
	FallDetected      bool   `json:"fall_detected"`

	// Environmental context
	Temperature  float64 `json:"temperature"`
	HumanPresent bool    `json:"human_present"`
	TimeOfDay    string  `json:"time_of_day,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}

// NewState returns a state with sane defaults for an idle robot.
func NewState() *State {
	return &State{
		Relations:    map[string]interface{}{},
		BatteryLevel: 100.0,
		Temperature:  22.0,
		HumanPresent: true,
		TimeOfDay:    "day",
		Timestamp:    time.Now().UTC(),
	}
}

// Object returns the named object, or nil if unknown.
func (s *State) Object(name string) *Object {
	for i := range s.Objects {
		if s.Objects[i].Name == name {
			return &s.Objects[i]
		}
	}
	return nil
}

// ObjectsAt returns every known object at the given location.
func (s *State) ObjectsAt(location string) []Object {
	out := []Object{}
	for _, o := range s.Objects {
		if o.Location == location {
			out = append(out, o)
		}
	}
	return out
}

// RelationFloat reads a numeric relation, falling back to def when the key
// is absent or not numeric. JSON-decoded numbers arrive as float64.
func (s *State) RelationFloat(key string, def float64) float64 {
	v, ok := s.Relations[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return def
	}
}

// RelationBool reads a boolean relation with a default.
func (s *State) RelationBool(key string, def bool) bool {
	if v, ok := s.Relations[key].(bool); ok {
		return v
	}
	return def
}

// RelationString reads a string relation with a default.
func (s *State) RelationString(key, def string) string {
	if v, ok := s.Relations[key].(string); ok {
		return v
	}
	return def
}

// PathBlocked reports whether the path to a location is flagged blocked.
func (s *State) PathBlocked(location string) bool {
	return s.RelationBool("path_to_"+location+"_blocked", false)
}

// DoorState returns the door state ("open"/"closed"/"locked") for a location.
func (s *State) DoorState(location string) string {
	return s.RelationString(location+"_door", "closed")
}

// HasEmergency reports whether any emergency flag is raised.
func (s *State) HasEmergency() bool {
	return s.FireDetected || s.IntrusionDetected || s.FallDetected
}

// NeedsCharging reports whether the battery is below threshold and the robot
// is not already charging.
func (s *State) NeedsCharging(threshold float64) bool {
	return s.BatteryLevel < threshold && !s.Charging
}
