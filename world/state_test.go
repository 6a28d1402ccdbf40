package world

import "testing"

func TestRelationHelpers(t *testing.T) {
	s := NewState()
	s.Relations["water_level"] = 42.0
	s.Relations["path_to_kitchen_blocked"] = true
	s.Relations["room_305_door"] = "open"

	if got := s.RelationFloat("water_level", 100); got != 42.0 {
		t.Fatalf("RelationFloat = %v", got)
	}
	if got := s.RelationFloat("missing", 100); got != 100 {
		t.Fatalf("RelationFloat default = %v", got)
	}
	if !s.PathBlocked("kitchen") {
		t.Fatal("kitchen path should be blocked")
	}
	if s.PathBlocked("bedroom") {
		t.Fatal("bedroom path should be clear")
	}
	if got := s.DoorState("room_305"); got != "open" {
		t.Fatalf("DoorState = %q", got)
	}
	if got := s.DoorState("room_306"); got != "closed" {
		t.Fatalf("DoorState default = %q", got)
	}
}

func TestObjectLookup(t *testing.T) {
	s := NewState()
	s.Objects = []Object{
		{Name: "cup", Location: "kitchen", Graspable: true},
		{Name: "plate", Location: "kitchen"},
		{Name: "remote", Location: "living_room"},
	}

	if obj := s.Object("cup"); obj == nil || obj.Location != "kitchen" {
		t.Fatalf("Object(cup) = %+v", obj)
	}
	if obj := s.Object("sofa"); obj != nil {
		t.Fatalf("unknown object should be nil, got %+v", obj)
	}
	if got := len(s.ObjectsAt("kitchen")); got != 2 {
		t.Fatalf("ObjectsAt(kitchen) = %d", got)
	}
}

func TestNeedsCharging(t *testing.T) {
	s := NewState()
	s.BatteryLevel = 15
	if !s.NeedsCharging(20) {
		t.Fatal("low battery should need charging")
	}
	s.Charging = true
	if s.NeedsCharging(20) {
		t.Fatal("already charging")
	}
}
