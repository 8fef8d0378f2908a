// internal/game/registry_test.go
package game

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	engine "github.com/MafiaJoker/mafia-game-sub000/engine"
	"github.com/MafiaJoker/mafia-game-sub000/internal/models"
)

func newTestRegistry(t *testing.T, capacity int, deps Deps) *Registry {
	t.Helper()
	if deps.Log == nil {
		deps.Log = quietLog()
	}
	r, err := NewRegistry(capacity, deps)
	require.NoError(t, err)
	return r
}

// TestRegistryGetCreatesLazily verifies first access builds a default
// session and later accesses return the same one.
func TestRegistryGetCreatesLazily(t *testing.T) {
	r := newTestRegistry(t, 4, Deps{})

	s := r.Get(9)
	require.NotNil(t, s)
	assert.Equal(t, int64(9), s.ID)
	assert.Equal(t, engine.StatusCreated, s.Game.Status)
	assert.Same(t, s, r.Get(9))
	assert.Equal(t, 1, r.Len())
}

// TestRegistryEvictsLeastRecentlyUsed verifies the capacity bound.
func TestRegistryEvictsLeastRecentlyUsed(t *testing.T) {
	r := newTestRegistry(t, 2, Deps{})

	first := r.Get(1)
	r.Get(2)
	assert.Same(t, first, r.Get(1), "touch 1 so 2 becomes the oldest")
	r.Get(3)

	assert.Equal(t, 2, r.Len())
	_, ok := r.Peek(2)
	assert.False(t, ok, "2 should have been evicted")
	_, ok = r.Peek(1)
	assert.True(t, ok)
	assert.Equal(t, []int64{1, 3}, r.IDs())
}

// TestRegistrySessionsAreIsolated verifies a mutation on one game never
// shows up in another.
func TestRegistrySessionsAreIsolated(t *testing.T) {
	r := newTestRegistry(t, 4, Deps{})
	a, b := r.Get(1), r.Get(2)

	act(t, a, ActionSetPlayer, map[string]interface{}{"seat": float64(1), "name": "Ann"})
	pa, _ := a.Game.Player(1)
	pb, _ := b.Game.Player(1)
	assert.Equal(t, "Ann", pa.Name)
	assert.Empty(t, pb.Name)
}

// TestRegistryConcurrentGet verifies concurrent lookups of one id agree on
// a single session.
func TestRegistryConcurrentGet(t *testing.T) {
	r := newTestRegistry(t, 8, Deps{})
	var wg sync.WaitGroup
	got := make([]*Session, 16)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i] = r.Get(5)
		}(i)
	}
	wg.Wait()
	for _, s := range got {
		assert.Same(t, got[0], s)
	}
	assert.Equal(t, 1, r.Len())
}

// TestRegistryLoadRestores verifies a game is rebuilt from the backend.
func TestRegistryLoadRestores(t *testing.T) {
	fb := newFakeBackend()
	live, _ := setupTestSession(t, Deps{})
	act(t, live, ActionForfeit, map[string]interface{}{"seat": float64(10)})

	live.Mu.Lock()
	fb.games[42] = models.GameFromEngine(live.Game)
	fb.phases[42] = models.PhasesFromEngine(live.Game.Ledger.Phases())
	live.Mu.Unlock()

	r := newTestRegistry(t, 4, Deps{Backend: fb, Rules: testRules()})
	s, err := r.Load(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, engine.StatusInProgress, s.Game.Status)
	p, _ := s.Game.Player(10)
	assert.False(t, p.InGame())

	again, err := r.Load(context.Background(), 42)
	require.NoError(t, err)
	assert.Same(t, s, again)

	_, err = r.Load(context.Background(), 7)
	assert.ErrorIs(t, err, errNotFound)
}

// TestRegistryLoadWithoutBackend verifies the error for memory-only
// registries.
func TestRegistryLoadWithoutBackend(t *testing.T) {
	r := newTestRegistry(t, 1, Deps{})
	_, err := r.Load(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNoBackend)
}

// TestRegistryPutRemove verifies explicit insertion and removal.
func TestRegistryPutRemove(t *testing.T) {
	r := newTestRegistry(t, 2, Deps{})
	s := NewSession(11, Deps{Log: quietLog()})
	r.Put(s)
	assert.Same(t, s, r.Get(11))
	assert.True(t, r.Remove(11))
	assert.False(t, r.Remove(11))
	assert.Equal(t, 0, r.Len())
}

// TestRegistryOpenRestoresStoredGame verifies a stored game is restored
// instead of replaced by a blank session, and that only unknown games start
// fresh.
func TestRegistryOpenRestoresStoredGame(t *testing.T) {
	fb := newFakeBackend()
	live, _ := setupTestSession(t, Deps{})
	live.Mu.Lock()
	fb.games[42] = models.GameFromEngine(live.Game)
	fb.phases[42] = models.PhasesFromEngine(live.Game.Ledger.Phases())
	live.Mu.Unlock()

	st := NewStager(fb, nil, fastStagerConfig(), quietLog())
	runStager(t, st)
	r := newTestRegistry(t, 4, Deps{Backend: fb, Stager: st, Rules: testRules()})
	ctx := context.Background()

	s, err := r.Open(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, engine.StatusInProgress, s.Game.Status)

	res := s.HandleJudgeAction(ctx, "judge", models.GameAction{
		ActionType: ActionSetStatus,
		Payload:    map[string]interface{}{"status": "seating_ready"},
	})
	assert.False(t, res.OK)
	act(t, s, ActionFoul, map[string]interface{}{"seat": float64(5)})
	require.Eventually(t, func() bool {
		fb.mu.Lock()
		defer fb.mu.Unlock()
		for _, k := range fb.calls {
			if k == WriteAddPlayers {
				return true
			}
		}
		return false
	}, timeout, tick)

	stored := fb.game(42)
	assert.Equal(t, "in_progress", stored.Status)
	assert.Equal(t, "p1", stored.Players[0].Name)
	assert.Equal(t, "mafia", stored.Players[0].Role)

	fresh, err := r.Open(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, engine.StatusCreated, fresh.Game.Status)
	assert.Same(t, fresh, r.Get(7))

	fb.setFailReads(errors.New("offline"))
	_, err = r.Open(ctx, 8)
	assert.Error(t, err)
	_, ok := r.Peek(8)
	assert.False(t, ok, "a failed read must not cache a blank session")
}

// TestRegistryOpenWithoutBackend verifies memory-only registries hand out
// default sessions.
func TestRegistryOpenWithoutBackend(t *testing.T) {
	r := newTestRegistry(t, 2, Deps{})
	s, err := r.Open(context.Background(), 3)
	require.NoError(t, err)
	assert.Same(t, s, r.Get(3))
}

// TestRegistryLoadKeepsSilence verifies silence flags reach the backend and
// come back when the game is restored.
func TestRegistryLoadKeepsSilence(t *testing.T) {
	fb := newFakeBackend()
	st := NewStager(fb, nil, fastStagerConfig(), quietLog())
	runStager(t, st)
	s, _ := setupTestSession(t, Deps{Backend: fb, Stager: st})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		act(t, s, ActionFoul, map[string]interface{}{"seat": float64(6)})
	}
	require.Eventually(t, func() bool { return fb.player(42, 6).SilentNextRound }, timeout, tick)

	restored, err := newTestRegistry(t, 4, Deps{Backend: fb, Rules: testRules()}).Load(ctx, 42)
	require.NoError(t, err)
	p, _ := restored.Game.Player(6)
	assert.Equal(t, 3, p.Fouls)
	assert.True(t, p.SilentNextRound)
	assert.False(t, p.Silent)

	act(t, s, ActionStartNight, nil)
	act(t, s, ActionMafiaTarget, map[string]interface{}{"target": float64(0)})
	act(t, s, ActionConfirmNight, nil)
	require.Eventually(t, func() bool {
		rec := fb.player(42, 6)
		_, ok := fb.phase(42, 2)
		return ok && rec.Silent && !rec.SilentNextRound
	}, timeout, tick)

	restored, err = newTestRegistry(t, 4, Deps{Backend: fb, Rules: testRules()}).Load(ctx, 42)
	require.NoError(t, err)
	p, _ = restored.Game.Player(6)
	assert.True(t, p.Silent)
	assert.False(t, p.SilentNextRound)
	assert.Equal(t, 1, restored.Game.Round)
}
