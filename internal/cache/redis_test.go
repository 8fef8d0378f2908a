//go:build integration

package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHistorian(t *testing.T) *Historian {
	t.Helper()
	addr := os.Getenv("MAFIA_REDIS_ADDR")
	if addr == "" {
		t.Skip("MAFIA_REDIS_ADDR not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	h, err := NewHistorian(ctx, addr, "mafia:test:queue")
	require.NoError(t, err)
	t.Cleanup(func() {
		h.rdb.Del(context.Background(), "mafia:test:queue", historyKey(9001))
		h.Close()
	})
	return h
}

func TestPublishAndHistory(t *testing.T) {
	h := newTestHistorian(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		require.NoError(t, h.PublishGameAction(ctx, GameActionRecord{
			GameID:      9001,
			ActionIndex: i,
			ActionType:  "foul",
			Timestamp:   time.Now().UnixMilli(),
		}))
	}
	recs, err := h.History(ctx, 9001, 2)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, 2, recs[0].ActionIndex)
	assert.Equal(t, 3, recs[1].ActionIndex)

	n, err := h.rdb.LLen(ctx, "mafia:test:queue").Result()
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
}
