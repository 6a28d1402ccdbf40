package knowledge

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func testRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewStore(testRedis(t), "test:knowledge", Config{})

	b := NewBase(Config{})
	b.RecordFailure("navigate_to", "path_blocked", Context{CtxBattery: "low"}, "find_alternative_route", true)
	b.RecordFailure("navigate_to", "path_blocked", Context{CtxBattery: "low"}, "find_alternative_route", true)
	b.RecordBehavior("make_coffee", Context{CtxTimeOfDay: "day"}, []string{"navigate_to", "brew_coffee"}, true, 12*time.Second)

	if err := store.Save(ctx, b); err != nil {
		t.Fatalf("failed to save knowledge base: %v", err)
	}

	loaded, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("failed to load knowledge base: %v", err)
	}

	strategy, ok := loaded.BestRecovery("navigate_to", "path_blocked")
	if !ok || strategy != "find_alternative_route" {
		t.Fatalf("recovery lost in round trip: %q %v", strategy, ok)
	}
	lb, ok := loaded.BestBehavior("make_coffee", Context{CtxTimeOfDay: "day"})
	if !ok {
		t.Fatal("behavior lost in round trip")
	}
	if lb.AvgDuration != 12.0 {
		t.Fatalf("unexpected avg duration: %v", lb.AvgDuration)
	}
}

func TestLoadMissingKeyYieldsEmptyBase(t *testing.T) {
	store := NewStore(testRedis(t), "test:empty", Config{})

	loaded, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("missing key should not be an error: %v", err)
	}
	if _, ok := loaded.BestRecovery("navigate_to", "path_blocked"); ok {
		t.Fatal("empty base should know no recoveries")
	}
}

func TestRestoreReplacesContents(t *testing.T) {
	b := NewBase(Config{})
	b.RecordFailure("grasp", "slipped", nil, "reposition_first", true)
	snap := b.Snapshot()

	other := NewBase(Config{})
	other.RecordFailure("open_door", "locked", nil, "search_for_key", true)
	other.Restore(snap)

	if _, ok := other.BestRecovery("open_door", "locked"); ok {
		t.Fatal("restore should drop pre-existing contents")
	}
	if _, ok := other.BestRecovery("grasp", "slipped"); !ok {
		t.Fatal("restored recovery missing")
	}
}
