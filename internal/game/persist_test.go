// internal/game/persist_test.go
package game

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	engine "github.com/MafiaJoker/mafia-game-sub000/engine"
	"github.com/MafiaJoker/mafia-game-sub000/internal/models"
)

// TestSavePhase verifies the synchronous phase save in both outcomes.
func TestSavePhase(t *testing.T) {
	fb := newFakeBackend()
	s, mb := setupTestSession(t, Deps{Backend: fb})
	ctx := context.Background()

	s.Mu.Lock()
	require.True(t, s.SavePhase(ctx))
	s.Mu.Unlock()
	_, ok := fb.phase(42, 1)
	assert.True(t, ok)

	fb.setFailWrites(errors.New("timeout"))
	s.Mu.Lock()
	assert.False(t, s.SavePhase(ctx))
	s.Mu.Unlock()
	ev := mb.findEventByType(EventPersistFailed)
	require.NotNil(t, ev)
	assert.Equal(t, "save_phase", ev.Payload["kind"])
	assert.Equal(t, engine.StatusInProgress, s.Game.Status, "a failed save leaves the game alone")
}

// TestSavePhaseCreatesMissingPhases verifies earlier unsynced phases are
// created before the current one.
func TestSavePhaseCreatesMissingPhases(t *testing.T) {
	fb := newFakeBackend()
	s, _ := setupTestSession(t, Deps{Backend: fb})
	act(t, s, ActionStartNight, nil)
	act(t, s, ActionMafiaTarget, map[string]interface{}{"target": float64(0)})
	act(t, s, ActionConfirmNight, nil)
	require.Equal(t, 2, s.Game.PhaseID())

	s.Mu.Lock()
	require.True(t, s.SavePhase(context.Background()))
	s.Mu.Unlock()

	_, ok1 := fb.phase(42, 1)
	_, ok2 := fb.phase(42, 2)
	assert.True(t, ok1)
	assert.True(t, ok2)
}

// TestAdjustFoulReconcilesWithServer verifies that fouls issued from
// another console are kept: server delta plus the local pending edit.
func TestAdjustFoulReconcilesWithServer(t *testing.T) {
	fb := newFakeBackend()
	s, _ := setupTestSession(t, Deps{Backend: fb})

	// Another console already recorded two fouls for seat 5 in phase 1.
	fb.phases[42] = []models.PhaseRecord{{PhaseID: 1, FoulsDelta: []models.SeatCount{{Seat: 5, Count: 2}}}}

	res := act(t, s, ActionFoul, map[string]interface{}{"seat": float64(5)})
	assert.Equal(t, 3, res.Data["fouls"])

	p, _ := s.Game.Player(5)
	assert.Equal(t, 3, p.Fouls)
	assert.True(t, p.SilentNextRound)

	rec, ok := fb.phase(42, 1)
	require.True(t, ok)
	assert.Equal(t, 3, foulDeltaOf(rec, 5))

	// A second foul now starts from the synced value, so the server's two
	// fouls are not counted twice.
	res = act(t, s, ActionFoul, map[string]interface{}{"seat": float64(5)})
	assert.Equal(t, 4, res.Data["fouls"])
	p, _ = s.Game.Player(5)
	assert.False(t, p.InGame(), "fourth foul removes the player")
}

// TestAdjustFoulCreatesPhase verifies the phase is created when the server
// has not seen it yet.
func TestAdjustFoulCreatesPhase(t *testing.T) {
	fb := newFakeBackend()
	s, _ := setupTestSession(t, Deps{Backend: fb})

	act(t, s, ActionFoul, map[string]interface{}{"seat": float64(8)})

	rec, ok := fb.phase(42, 1)
	require.True(t, ok)
	assert.Equal(t, 1, foulDeltaOf(rec, 8))
}

// TestAdjustFoulRevertsOnFailure verifies the optimistic change is undone
// when the read or the write fails.
func TestAdjustFoulRevertsOnFailure(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*fakeBackend)
	}{
		{"read fails", func(b *fakeBackend) { b.setFailReads(errors.New("offline")) }},
		{"write fails", func(b *fakeBackend) { b.setFailWrites(errors.New("offline")) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb := newFakeBackend()
			s, _ := setupTestSession(t, Deps{Backend: fb})
			act(t, s, ActionFoul, map[string]interface{}{"seat": float64(6)})
			tt.setup(fb)

			res := s.HandleJudgeAction(context.Background(), "judge", models.GameAction{
				ActionType: ActionFoul,
				Payload:    map[string]interface{}{"seat": float64(6)},
			})
			assert.False(t, res.OK)
			assert.Contains(t, res.Message, "offline")

			p, _ := s.Game.Player(6)
			assert.Equal(t, 1, p.Fouls)
			cur := s.Game.Ledger.Current()
			assert.Equal(t, 1, cur.FoulDelta(6))
		})
	}
}

// TestAdjustFoulWithoutGame verifies fouls are refused before the game
// starts.
func TestAdjustFoulWithoutGame(t *testing.T) {
	s := NewSession(3, Deps{Backend: newFakeBackend(), Log: quietLog()})
	s.Mu.Lock()
	defer s.Mu.Unlock()
	_, err := s.AdjustFoul(context.Background(), 1, 1)
	assert.ErrorIs(t, err, engine.ErrGameNotInProgress)
}

// TestRemoveFoulUndoesFoulOut verifies the compensating action through the
// reconcile path.
func TestRemoveFoulUndoesFoulOut(t *testing.T) {
	fb := newFakeBackend()
	s, _ := setupTestSession(t, Deps{Backend: fb})
	for i := 0; i < 4; i++ {
		act(t, s, ActionFoul, map[string]interface{}{"seat": float64(7)})
	}
	p, _ := s.Game.Player(7)
	require.False(t, p.InGame())

	res := act(t, s, ActionRemoveFoul, map[string]interface{}{"seat": float64(7)})
	assert.Equal(t, 3, res.Data["fouls"])
	p, _ = s.Game.Player(7)
	assert.True(t, p.InGame())

	rec, _ := fb.phase(42, 1)
	assert.Equal(t, 3, foulDeltaOf(rec, 7))
	assert.Empty(t, rec.RemovedSeats)
}
