// internal/game/judge_actions_test.go
package game

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	engine "github.com/MafiaJoker/mafia-game-sub000/engine"
	"github.com/MafiaJoker/mafia-game-sub000/internal/models"
)

// TestHandleJudgeActionRejects covers malformed input and rule no-ops.
func TestHandleJudgeActionRejects(t *testing.T) {
	s, mb := setupTestSession(t, Deps{})
	tests := []struct {
		name    string
		action  models.GameAction
		message string
	}{
		{"unknown type", models.GameAction{ActionType: "teleport"}, "unknown action type"},
		{"missing seat", models.GameAction{ActionType: ActionForfeit}, `"seat"`},
		{"seat out of range", models.GameAction{ActionType: ActionForfeit, Payload: map[string]interface{}{"seat": float64(11)}}, "invalid seat"},
		{"fractional seat", models.GameAction{ActionType: ActionForfeit, Payload: map[string]interface{}{"seat": 2.5}}, "whole number"},
		{"seat as string", models.GameAction{ActionType: ActionForfeit, Payload: map[string]interface{}{"seat": "2"}}, `"seat"`},
		{"unknown role", models.GameAction{ActionType: ActionAssignRole, Payload: map[string]interface{}{"seat": float64(1), "role": "doctor"}}, "unknown role"},
		{"set player after start", models.GameAction{ActionType: ActionSetPlayer, Payload: map[string]interface{}{"seat": float64(1), "name": "x"}}, "not allowed"},
		{"lift without pending", models.GameAction{ActionType: ActionResolveLift, Payload: map[string]interface{}{"votes": float64(6)}}, "not allowed"},
		{"best move not pending", models.GameAction{ActionType: ActionSkipBestMove}, "no best move"},
		{"bonus out of range", models.GameAction{ActionType: ActionSetScore, Payload: map[string]interface{}{"seat": float64(1), "base": 0.0, "bonus": 3.5}}, "bonus out of range"},
		{"bad best move list", models.GameAction{ActionType: ActionBestMove, Payload: map[string]interface{}{"seats": "1,2"}}, "list of seats"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mb.clear()
			res := s.HandleJudgeAction(context.Background(), "judge", tt.action)
			assert.False(t, res.OK)
			assert.Contains(t, res.Message, tt.message)
			assert.Nil(t, mb.findEventByType(EventSyncState), "refused actions do not sync")
		})
	}
	assert.Equal(t, engine.StatusInProgress, s.Game.Status)
	assert.Equal(t, 10, s.Game.AliveCount())
}

// TestShootoutThenMultipleElimination follows a tie into the lift poll.
func TestShootoutThenMultipleElimination(t *testing.T) {
	s, mb := setupTestSession(t, Deps{})
	// Five remain: the don and seats 4 to 7.
	for _, seat := range []int{1, 2, 8, 9, 10} {
		act(t, s, ActionForfeit, map[string]interface{}{"seat": float64(seat)})
	}
	require.Equal(t, engine.StatusInProgress, s.Game.Status)

	act(t, s, ActionStartVoting, map[string]interface{}{"seats": []interface{}{float64(4), float64(5)}})
	act(t, s, ActionVote, map[string]interface{}{"seat": float64(4), "count": float64(2)})
	act(t, s, ActionVote, map[string]interface{}{"seat": float64(5), "count": float64(2)})
	res := act(t, s, ActionConfirmVoting, nil)
	assert.Equal(t, "shootout", res.Data["result"])
	require.NotNil(t, mb.findEventByType(EventShootout))

	act(t, s, ActionVote, map[string]interface{}{"seat": float64(4), "count": float64(2)})
	act(t, s, ActionVote, map[string]interface{}{"seat": float64(5), "count": float64(2)})
	res = act(t, s, ActionConfirmVoting, nil)
	assert.Equal(t, "multiple_elimination", res.Data["result"])
	assert.Equal(t, []int{4, 5}, res.Data["players"])

	res = act(t, s, ActionResolveLift, map[string]interface{}{"votes": float64(3)})
	assert.Equal(t, "eliminated", res.Data["result"])
	assert.Equal(t, 3, s.Game.AliveCount())
}

// TestCycleAndShuffleRoles covers role distribution through the console.
func TestCycleAndShuffleRoles(t *testing.T) {
	s := NewSession(5, Deps{Rules: testRules(), Log: quietLog()})
	act(t, s, ActionSetStatus, map[string]interface{}{"status": "role_distribution"})

	res := act(t, s, ActionCycleRole, map[string]interface{}{"seat": float64(1)})
	assert.Equal(t, "mafia", res.Data["role"])

	act(t, s, ActionShuffleRoles, nil)
	var counts [4]int
	for _, p := range s.Game.Players {
		counts[p.Role]++
		assert.Equal(t, p.Role, p.OriginalRole)
	}
	assert.Equal(t, [4]int{6, 2, 1, 1}, counts)

	js := s.JudgeView()
	assert.True(t, js.CanStart)
	assert.Empty(t, js.CompositionError)
}

// TestSyncReturnsJudgeView verifies the sync action and that the judge view
// serializes.
func TestSyncReturnsJudgeView(t *testing.T) {
	s, _ := setupTestSession(t, Deps{})
	act(t, s, ActionStartNight, nil)
	act(t, s, ActionMafiaTarget, map[string]interface{}{"target": float64(6)})

	res := act(t, s, ActionSync, nil)
	js, ok := res.Data["state"].(JudgeState)
	require.True(t, ok)
	assert.Equal(t, "night", js.Substatus)
	assert.Equal(t, 6, js.Night.Mafia)
	assert.Equal(t, "mafia", js.Players[0].Role)
	require.Len(t, js.Phases, 1)

	raw, err := json.Marshal(js)
	require.NoError(t, err)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "night", decoded["substatus"])
	assert.Contains(t, decoded, "phases")
}

// TestCancelAndScores covers cancellation and score entry.
func TestCancelAndScores(t *testing.T) {
	s, _ := setupTestSession(t, Deps{})
	act(t, s, ActionCancel, nil)
	assert.Equal(t, engine.StatusCancelled, s.Game.Status)
	assert.Equal(t, engine.ResultCancelled, s.Game.Result)

	res := s.HandleJudgeAction(context.Background(), "judge", models.GameAction{ActionType: ActionCancel})
	assert.False(t, res.OK, "cancelled games cannot be cancelled again")

	res = s.HandleJudgeAction(context.Background(), "judge", models.GameAction{
		ActionType: ActionSetScore,
		Payload:    map[string]interface{}{"seat": float64(1), "base": 0.0, "bonus": 0.5},
	})
	assert.False(t, res.OK)
}

// TestFinalizeScores covers the last lifecycle step.
func TestFinalizeScores(t *testing.T) {
	s, _ := setupTestSession(t, Deps{})
	for _, seat := range []int{1, 2, 3} {
		act(t, s, ActionForfeit, map[string]interface{}{"seat": float64(seat)})
	}
	res := act(t, s, ActionSetScore, map[string]interface{}{"seat": float64(4), "base": 1.0, "bonus": 0.3})
	assert.InDelta(t, 1.3, res.Data["total"], 1e-9)
	act(t, s, ActionFinalizeScores, nil)
	assert.Equal(t, engine.StatusFinishedWithScores, s.Game.Status)
}
