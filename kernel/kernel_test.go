package kernel

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"github.com/ganeshvadlamuri/decision-kernel-sub000/eventbus"
	"github.com/ganeshvadlamuri/decision-kernel-sub000/knowledge"
	"github.com/ganeshvadlamuri/decision-kernel-sub000/planner"
	"github.com/ganeshvadlamuri/decision-kernel-sub000/resilience"
	"github.com/ganeshvadlamuri/decision-kernel-sub000/safety"
	"github.com/ganeshvadlamuri/decision-kernel-sub000/world"
)

var (
	errBlocked = errors.New("path_blocked")
	errGripper = errors.New("gripper_jammed")
)

// scriptedExecutor succeeds on everything except the failures injected via
// failFn. It records every executed action.
type scriptedExecutor struct {
	mu       sync.Mutex
	executed []planner.Action
	failFn   func(e *scriptedExecutor, a planner.Action) error
}

func (e *scriptedExecutor) Execute(ctx context.Context, a planner.Action) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.failFn != nil {
		if err := e.failFn(e, a); err != nil {
			return err
		}
	}
	e.executed = append(e.executed, a)
	return nil
}

func (e *scriptedExecutor) did(kind string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, a := range e.executed {
		if a.Kind == kind {
			return true
		}
	}
	return false
}

// memorySink collects published decision events.
type memorySink struct {
	mu     sync.Mutex
	events []eventbus.DecisionEvent
}

func (s *memorySink) Publish(ctx context.Context, evt eventbus.DecisionEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, evt)
	return nil
}

func (s *memorySink) types() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.events))
	for i, e := range s.events {
		out[i] = e.Type
	}
	return out
}

func newTestKernel(t *testing.T, exec Executor, extra func(*Options)) *Kernel {
	t.Helper()
	base := knowledge.NewBase(knowledge.Config{})
	htn := planner.NewHTNPlanner(planner.DomainRegistry())
	opts := Options{
		Planner:   htn,
		Replanner: planner.NewReplanner(htn, base),
		Safety:    safety.NewValidator(safety.Config{}),
		Knowledge: base,
		Executor:  exec,
		Retry:     resilience.RetryConfig{MaxAttempts: 1, BaseDelay: time.Millisecond},
	}
	if extra != nil {
		extra(&opts)
	}
	k, err := New(opts)
	if err != nil {
		t.Fatalf("failed to build kernel: %v", err)
	}
	return k
}

func testState() *world.State {
	s := world.NewState()
	s.RobotLocation = "dock"
	s.HumanLocation = "living_room"
	s.Objects = []world.Object{
		{Name: "cup", Location: "kitchen", Category: "container", Graspable: true},
	}
	return s
}

func TestProcessCompletesSimpleGoal(t *testing.T) {
	exec := &scriptedExecutor{}
	k := newTestKernel(t, exec, nil)

	res, err := k.Process(context.Background(), planner.Goal{Kind: "bring", Target: "cup"}, testState())
	assert.NoError(t, err)
	assert.True(t, res.Completed)
	assert.Equal(t, "completed", res.Outcome)
	assert.Zero(t, res.Recoveries)
	assert.True(t, exec.did("grasp"))
	assert.True(t, exec.did("release"))
}

func TestProcessUnknownGoal(t *testing.T) {
	exec := &scriptedExecutor{}
	k := newTestKernel(t, exec, nil)

	res, err := k.Process(context.Background(), planner.Goal{Kind: "fly_to_moon"}, testState())
	assert.NoError(t, err)
	assert.False(t, res.Completed)
	assert.Equal(t, "unknown goal", res.Outcome)
	assert.Empty(t, exec.executed)
	assert.NotZero(t, res.Duration)
}

func TestProcessRecoversFromBlockedPath(t *testing.T) {
	cleared := false
	exec := &scriptedExecutor{failFn: func(e *scriptedExecutor, a planner.Action) error {
		if a.Kind == "find_alternative_route" {
			cleared = true
		}
		if a.Kind == "navigate_to" && a.Location == "kitchen" && !cleared {
			return resilience.Transient(errBlocked)
		}
		return nil
	}}
	sink := &memorySink{}
	k := newTestKernel(t, exec, func(o *Options) { o.Bus = sink })

	goal := planner.Goal{Kind: "bring", Target: "cup"}
	res, err := k.Process(context.Background(), goal, testState())
	assert.NoError(t, err)
	assert.True(t, res.Completed)
	assert.Equal(t, 1, res.Recoveries)
	assert.True(t, exec.did("find_alternative_route"))
	assert.True(t, exec.did("release"))

	// One failure recorded, then credited as a successful recovery.
	p, found := k.knowledge.FailurePattern("navigate_to", "path_blocked")
	assert.True(t, found)
	assert.Equal(t, 2, p.Occurrences)
	assert.Equal(t, "navigate_to:path_blocked", p.Recovery)
	assert.InDelta(t, 0.5, p.RecoveryRate, 1e-9)

	assert.Contains(t, sink.types(), eventbus.TypeRecovery)
	assert.Contains(t, sink.types(), eventbus.TypePlanCompleted)
}

func TestProcessRecoversFromUnclassifiedFailure(t *testing.T) {
	// Executors are allowed to return plain errors; the failure reason must
	// still come out clean so the exact recovery handler matches.
	cleared := false
	exec := &scriptedExecutor{failFn: func(e *scriptedExecutor, a planner.Action) error {
		if a.Kind == "find_alternative_route" {
			cleared = true
		}
		if a.Kind == "navigate_to" && a.Location == "kitchen" && !cleared {
			return errors.New("path_blocked")
		}
		return nil
	}}
	k := newTestKernel(t, exec, nil)

	res, err := k.Process(context.Background(), planner.Goal{Kind: "bring", Target: "cup"}, testState())
	assert.NoError(t, err)
	assert.True(t, res.Completed)
	assert.Equal(t, 1, res.Recoveries)
	assert.Contains(t, res.Trace, "Recovered using navigate_to:path_blocked")

	p, found := k.knowledge.FailurePattern("navigate_to", "path_blocked")
	assert.True(t, found)
	assert.Equal(t, "path_blocked", p.Reason)
}

func TestProcessStopsOnPermanentFailure(t *testing.T) {
	exec := &scriptedExecutor{failFn: func(e *scriptedExecutor, a planner.Action) error {
		if a.Kind == "grasp" {
			return resilience.Permanent(errGripper)
		}
		return nil
	}}
	k := newTestKernel(t, exec, nil)

	res, err := k.Process(context.Background(), planner.Goal{Kind: "bring", Target: "cup"}, testState())
	assert.NoError(t, err)
	assert.False(t, res.Completed)
	assert.Contains(t, res.Outcome, "permanent failure on grasp")
	assert.Zero(t, res.Recoveries)
}

func TestProcessEmergencyOverride(t *testing.T) {
	exec := &scriptedExecutor{}
	sink := &memorySink{}
	k := newTestKernel(t, exec, func(o *Options) { o.Bus = sink })

	state := testState()
	state.FireDetected = true
	state.FireLocation = "kitchen"

	res, err := k.Process(context.Background(), planner.Goal{Kind: "make_coffee"}, state)
	assert.NoError(t, err)
	assert.True(t, res.Completed)
	assert.Equal(t, "fire", res.Emergency)
	assert.True(t, exec.did("sound_alarm"))
	assert.True(t, exec.did("navigate_to_exit"))
	assert.False(t, exec.did("brew_coffee"))
	assert.Contains(t, sink.types(), eventbus.TypeEmergency)

	// The fire protocol must not be learned as a way of making coffee.
	_, ok := k.knowledge.BestBehavior("make_coffee", ContextFromState(state))
	assert.False(t, ok)
	assert.Zero(t, k.knowledge.BehaviorStatistics().TotalBehaviors)
}

// fireSensor reports a calm world until trip() is called.
type fireSensor struct {
	mu      sync.Mutex
	tripped bool
}

func (s *fireSensor) trip() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tripped = true
}

func (s *fireSensor) Snapshot(ctx context.Context) (*world.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := testState()
	if s.tripped {
		state.FireDetected = true
		state.FireLocation = "kitchen"
	}
	return state, nil
}

func TestProcessAbandonsPlanOnMidExecutionEmergency(t *testing.T) {
	sensor := &fireSensor{}
	exec := &scriptedExecutor{failFn: func(e *scriptedExecutor, a planner.Action) error {
		// First action completes normally, then the world catches fire.
		if len(e.executed) == 0 {
			sensor.trip()
		}
		return nil
	}}
	sink := &memorySink{}
	k := newTestKernel(t, exec, func(o *Options) {
		o.Sensor = sensor
		o.Bus = sink
	})

	res, err := k.Process(context.Background(), planner.Goal{Kind: "bring", Target: "cup"}, testState())
	assert.NoError(t, err)
	assert.True(t, res.Completed)
	assert.Equal(t, "fire", res.Emergency)

	// The normal plan got exactly one action in before being abandoned for
	// the fire protocol.
	assert.True(t, exec.did("navigate_to"))
	assert.False(t, exec.did("grasp"))
	assert.True(t, exec.did("sound_alarm"))
	assert.True(t, exec.did("navigate_to_exit"))

	types := sink.types()
	assert.Contains(t, types, eventbus.TypePlanAbandoned)
	assert.Contains(t, types, eventbus.TypeEmergency)
	assert.Contains(t, types, eventbus.TypePlanCompleted)
}

func TestProcessRejectsForbiddenPlanWithoutExecuting(t *testing.T) {
	exec := &scriptedExecutor{}
	sink := &memorySink{}

	state := testState()
	state.BatteryLevel = 6 // above critical, far below plan cost

	k := newTestKernel(t, exec, func(o *Options) { o.Bus = sink })
	res, err := k.Process(context.Background(), planner.Goal{Kind: "make_coffee"}, state)
	assert.NoError(t, err)
	assert.False(t, res.Completed)
	assert.Contains(t, res.Outcome, "plan rejected")
	assert.Empty(t, exec.executed)
	assert.NotZero(t, res.Duration)
	assert.Contains(t, sink.types(), eventbus.TypePlanRejected)
}

func TestProcessRecoveryLimit(t *testing.T) {
	exec := &scriptedExecutor{failFn: func(e *scriptedExecutor, a planner.Action) error {
		if a.Kind == "navigate_to" && a.Location == "kitchen" {
			return resilience.Transient(errBlocked)
		}
		return nil
	}}
	k := newTestKernel(t, exec, func(o *Options) { o.MaxRecoveries = 2 })

	res, err := k.Process(context.Background(), planner.Goal{Kind: "bring", Target: "cup"}, testState())
	assert.NoError(t, err)
	assert.False(t, res.Completed)
	assert.Contains(t, res.Outcome, "recovery limit reached")
	assert.Equal(t, 2, res.Recoveries)
}

func TestProcessSavesEpisode(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	exec := &scriptedExecutor{}
	k := newTestKernel(t, exec, func(o *Options) { o.Redis = rdb })

	res, err := k.Process(context.Background(), planner.Goal{Kind: "bring", Target: "cup"}, testState())
	assert.NoError(t, err)
	assert.True(t, res.Completed)

	keys, err := rdb.Keys(context.Background(), "episode:*").Result()
	assert.NoError(t, err)
	assert.Len(t, keys, 1)

	id := keys[0][len("episode:"):]
	ep, err := k.LoadEpisode(context.Background(), id)
	assert.NoError(t, err)
	assert.Equal(t, "bring", ep.Result.Goal.Kind)
	assert.True(t, ep.Result.Completed)
}

func TestContextFromStateBatteryBuckets(t *testing.T) {
	state := testState()
	cases := map[float64]string{3: "critical", 15: "low", 50: "normal", 95: "full"}
	for level, want := range cases {
		state.BatteryLevel = level
		ctx := ContextFromState(state)
		assert.Equal(t, want, string(ctx[knowledge.CtxBattery]), "battery %.0f", level)
	}
}
