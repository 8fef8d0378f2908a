// internal/models/game.go
package models

import (
	"fmt"
	"time"

	engine "github.com/MafiaJoker/mafia-game-sub000/engine"
)

// PlayerRecord is a seated player as stored by the backend.
type PlayerRecord struct {
	Seat            int     `json:"seat"`
	Name            string  `json:"name"`
	Role            string  `json:"role"`
	OriginalRole    string  `json:"original_role,omitempty"`
	Silent          bool    `json:"silent"`
	SilentNextRound bool    `json:"silent_next_round"`
	BaseScore       float64 `json:"base_score"`
	BonusScore      float64 `json:"bonus_score"`
}

// GameRecord is the backend's view of a game without its phases.
type GameRecord struct {
	ID        int64          `json:"id"`
	EventID   int64          `json:"event_id,omitempty"`
	Table     int            `json:"table,omitempty"`
	Status    string         `json:"status"`
	Result    string         `json:"result,omitempty"`
	Players   []PlayerRecord `json:"players"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// GameState is the authoritative phase log of a game.
type GameState struct {
	GameID int64         `json:"game_id"`
	Phases []PhaseRecord `json:"phases"`
}

// PlayersFromEngine converts every seated player with its score.
func PlayersFromEngine(g *engine.Game) []PlayerRecord {
	out := make([]PlayerRecord, 0, engine.NumSeats)
	for _, p := range g.Players {
		sc := g.Scores[int(p.Seat)-1]
		out = append(out, PlayerRecord{
			Seat:            int(p.Seat),
			Name:            p.Name,
			Role:            p.Role.String(),
			OriginalRole:    p.OriginalRole.String(),
			Silent:          p.Silent,
			SilentNextRound: p.SilentNextRound,
			BaseScore:       sc.Base,
			BonusScore:      sc.Bonus,
		})
	}
	return out
}

// GameFromEngine builds the record the backend stores for g.
func GameFromEngine(g *engine.Game) GameRecord {
	return GameRecord{
		ID:      g.ID,
		Status:  string(g.Status),
		Result:  string(g.Result),
		Players: PlayersFromEngine(g),
	}
}

// Saved validates the record plus its phase log and produces the engine's
// restore input.
func (r GameRecord) Saved(state GameState) (engine.Saved, error) {
	s := engine.Saved{
		ID:     r.ID,
		Status: engine.Status(r.Status),
		Scores: make(map[engine.Seat]engine.Score),
	}
	for _, pr := range r.Players {
		seat, err := toSeat(pr.Seat)
		if err != nil {
			return engine.Saved{}, fmt.Errorf("game %d player: %w", r.ID, err)
		}
		role, ok := engine.ParseRole(pr.Role)
		if !ok {
			return engine.Saved{}, fmt.Errorf("game %d seat %d: unknown role %q", r.ID, pr.Seat, pr.Role)
		}
		original := role
		if pr.OriginalRole != "" {
			if original, ok = engine.ParseRole(pr.OriginalRole); !ok {
				return engine.Saved{}, fmt.Errorf("game %d seat %d: unknown original role %q", r.ID, pr.Seat, pr.OriginalRole)
			}
		}
		s.Players = append(s.Players, engine.Player{
			Seat:            seat,
			Name:            pr.Name,
			Role:            role,
			OriginalRole:    original,
			Silent:          pr.Silent,
			SilentNextRound: pr.SilentNextRound,
		})
		s.Scores[seat] = engine.Score{Base: pr.BaseScore, Bonus: pr.BonusScore}
	}
	phases, err := PhasesToEngine(state.Phases)
	if err != nil {
		return engine.Saved{}, fmt.Errorf("game %d: %w", r.ID, err)
	}
	s.Phases = phases
	return s, nil
}
