// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultQueue is the list the historian service drains.
const DefaultQueue = "mafia:historian:actions"

// historyLimit bounds the per-game replay list kept next to the queue.
const historyLimit = 500

// GameActionRecord is one judge action or rule outcome sent to the historian.
type GameActionRecord struct {
	ID            uuid.UUID              `json:"id"`
	GameID        int64                  `json:"game_id"`
	ActionIndex   int                    `json:"action_index"`
	Actor         string                 `json:"actor,omitempty"`
	ActionType    string                 `json:"action_type"`
	ActionPayload map[string]interface{} `json:"action_payload"`
	Timestamp     int64                  `json:"timestamp"`
}

// Historian pushes action records onto a Redis queue and keeps a bounded
// per-game copy for console replays.
type Historian struct {
	rdb   *redis.Client
	queue string
}

// NewHistorian connects to Redis at addr and verifies the connection.
func NewHistorian(ctx context.Context, addr, queue string) (*Historian, error) {
	if strings.TrimSpace(addr) == "" {
		return nil, errors.New("redis address is required")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewHistorianWithClient(rdb, queue), nil
}

// NewHistorianWithClient wraps an existing client.
func NewHistorianWithClient(rdb *redis.Client, queue string) *Historian {
	if queue == "" {
		queue = DefaultQueue
	}
	return &Historian{rdb: rdb, queue: queue}
}

// Close releases the Redis connection.
func (h *Historian) Close() error {
	if h == nil || h.rdb == nil {
		return nil
	}
	return h.rdb.Close()
}

func historyKey(gameID int64) string { return fmt.Sprintf("mafia:game:%d:actions", gameID) }

// PublishGameAction queues rec for the historian and appends it to the
// game's history list in one pipeline.
func (h *Historian) PublishGameAction(ctx context.Context, rec GameActionRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal action %d: %w", rec.ActionIndex, err)
	}
	key := historyKey(rec.GameID)
	_, err = h.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, h.queue, raw)
		pipe.RPush(ctx, key, raw)
		pipe.LTrim(ctx, key, -historyLimit, -1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("publish action %d for game %d: %w", rec.ActionIndex, rec.GameID, err)
	}
	return nil
}

// History returns up to limit of the game's most recent records, oldest
// first.
func (h *Historian) History(ctx context.Context, gameID int64, limit int) ([]GameActionRecord, error) {
	if limit <= 0 || limit > historyLimit {
		limit = historyLimit
	}
	raws, err := h.rdb.LRange(ctx, historyKey(gameID), int64(-limit), -1).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("read history for game %d: %w", gameID, err)
	}
	out := make([]GameActionRecord, 0, len(raws))
	for _, raw := range raws {
		var rec GameActionRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("decode history for game %d: %w", gameID, err)
		}
		out = append(out, rec)
	}
	return out, nil
}
