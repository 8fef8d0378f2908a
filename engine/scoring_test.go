package engine

import (
	"errors"
	"testing"
)

// TestSetBaseScores verifies the base award per result.
func TestSetBaseScores(t *testing.T) {
	tests := []struct {
		result      Result
		mafia, city float64
	}{
		{ResultCityWin, 0, 1},
		{ResultMafiaWin, 1, 0},
		{ResultDraw, 0.5, 0.5},
		{ResultCancelled, 0, 0},
	}
	for _, tt := range tests {
		t.Run(string(tt.result), func(t *testing.T) {
			g := newTestGame(t)
			g.SetBaseScores(tt.result)
			if got := g.Scores[2].Base; got != tt.mafia {
				t.Errorf("don base = %v, want %v", got, tt.mafia)
			}
			if got := g.Scores[3].Base; got != tt.city {
				t.Errorf("sheriff base = %v, want %v", got, tt.city)
			}
		})
	}
}

// TestSetPlayerScoreBonusRange covers the bonus bounds and the 0.1 grid.
func TestSetPlayerScoreBonusRange(t *testing.T) {
	g := newTestGame(t)
	tests := []struct {
		bonus float64
		ok    bool
	}{
		{0, true},
		{0.3, true},
		{-3, true},
		{3, true},
		{3.1, false},
		{-3.5, false},
		{0.15, false},
	}
	for _, tt := range tests {
		err := g.SetPlayerScore(5, 1, tt.bonus)
		if tt.ok && err != nil {
			t.Errorf("bonus %v: %v", tt.bonus, err)
		}
		if !tt.ok && !errors.Is(err, ErrBonusOutOfRange) {
			t.Errorf("bonus %v: err = %v, want ErrBonusOutOfRange", tt.bonus, err)
		}
	}
	g.SetPlayerScore(5, 1, 0.3)
	if got := g.TotalScore(5); got < 1.299 || got > 1.301 {
		t.Errorf("TotalScore = %v, want 1.3", got)
	}
	if err := g.SetPlayerScore(0, 1, 0); !errors.Is(err, ErrInvalidSeat) {
		t.Errorf("seat 0 err = %v", err)
	}
}

// TestFinalizeScores verifies scores can only be finalized after a verdict.
func TestFinalizeScores(t *testing.T) {
	g := newTestGame(t)
	if err := g.FinalizeScores(); !errors.Is(err, ErrBadTransition) {
		t.Fatalf("FinalizeScores in progress err = %v", err)
	}
	eliminateByVote(t, g, 1)
	eliminateByVote(t, g, 2)
	eliminateByVote(t, g, 3)
	if err := g.SetStatus(StatusFinishedWithScores); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if g.Status != StatusFinishedWithScores {
		t.Errorf("Status = %q", g.Status)
	}
}
