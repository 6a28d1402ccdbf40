package knowledge

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Snapshot is the persisted representation of the experience store: the
// failure-pattern map keyed by "kind:reason" plus the behavior list.
type Snapshot struct {
	FailurePatterns map[string]*FailurePattern `json:"failure_patterns"`
	Behaviors       []*LearnedBehavior         `json:"learned_behaviors"`
}

// Snapshot extracts the full store contents for persistence.
func (b *Base) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	snap := Snapshot{
		FailurePatterns: make(map[string]*FailurePattern, len(b.failures)),
		Behaviors:       make([]*LearnedBehavior, 0, len(b.behaviors)),
	}
	for k, p := range b.failures {
		cp := *p
		snap.FailurePatterns[k] = &cp
	}
	for _, lb := range b.behaviors {
		cp := *lb
		snap.Behaviors = append(snap.Behaviors, &cp)
	}
	return snap
}

// Restore replaces the store contents with a previously persisted snapshot.
// Matching behavior is unaffected by a save/load round trip.
func (b *Base) Restore(snap Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = map[string]*FailurePattern{}
	for k, p := range snap.FailurePatterns {
		cp := *p
		b.failures[k] = &cp
	}
	b.behaviors = nil
	for _, lb := range snap.Behaviors {
		cp := *lb
		b.behaviors = append(b.behaviors, &cp)
	}
}

// Store persists the experience store to Redis as a single JSON document.
type Store struct {
	client *redis.Client
	key    string
	cfg    Config
}

// NewStore creates a persistence manager writing under the given Redis key.
func NewStore(client *redis.Client, key string, cfg Config) *Store {
	if key == "" {
		key = "knowledge:base"
	}
	return &Store{client: client, key: key, cfg: cfg}
}

// Load reads the persisted store. A missing key is not an error and yields
// an empty store.
func (s *Store) Load(ctx context.Context) (*Base, error) {
	base := NewBase(s.cfg)

	data, err := s.client.Get(ctx, s.key).Result()
	if err == redis.Nil {
		return base, nil
	} else if err != nil {
		return nil, fmt.Errorf("error loading knowledge base: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return nil, fmt.Errorf("error unmarshalling knowledge base: %w", err)
	}
	base.Restore(snap)
	return base, nil
}

// Save writes the full store contents.
func (s *Store) Save(ctx context.Context, base *Base) error {
	data, err := json.Marshal(base.Snapshot())
	if err != nil {
		return fmt.Errorf("error marshalling knowledge base: %w", err)
	}
	return s.client.Set(ctx, s.key, data, 0).Err()
}
