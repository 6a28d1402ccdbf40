package kernel

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
)

// Episode is the audit record stored after each processed goal.
type Episode struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Result    *Result   `json:"result"`
}

func episodeKey(id string) string { return fmt.Sprintf("episode:%s", id) }

// saveEpisode persists the audit record to Redis. Best effort: a failed
// write is logged, never surfaced to the decision loop.
func (k *Kernel) saveEpisode(ctx context.Context, res *Result) {
	if k.redis == nil {
		return
	}
	e := &Episode{
		ID:        uuid.New().String(),
		Timestamp: time.Now().UTC(),
		Result:    res,
	}
	data, err := json.Marshal(e)
	if err != nil {
		log.Printf("[KERNEL] episode marshal failed: %v", err)
		return
	}
	if err := k.redis.Set(ctx, episodeKey(e.ID), data, 0).Err(); err != nil {
		log.Printf("[KERNEL] episode store failed: %v", err)
	}
}

// LoadEpisode fetches a stored audit record by id.
func (k *Kernel) LoadEpisode(ctx context.Context, id string) (*Episode, error) {
	if k.redis == nil {
		return nil, fmt.Errorf("no episode store configured")
	}
	data, err := k.redis.Get(ctx, episodeKey(id)).Result()
	if err != nil {
		return nil, err
	}
	var e Episode
	if err := json.Unmarshal([]byte(data), &e); err != nil {
		return nil, err
	}
	return &e, nil
}
