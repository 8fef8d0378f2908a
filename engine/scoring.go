package engine

import (
	"errors"
	"fmt"
	"math"
)

// ErrBonusOutOfRange is returned for judge bonuses outside the rules' range
// or off the 0.1 grid.
var ErrBonusOutOfRange = errors.New("bonus out of range")

// SetBaseScores awards 1 to every player whose original team won, 0.5 to
// everyone on a draw and 0 otherwise. Bonuses are left untouched.
func (g *Game) SetBaseScores(result Result) {
	for i := range g.Players {
		team := g.Players[i].OriginalRole.Team()
		var base float64
		switch {
		case result == ResultDraw:
			base = 0.5
		case result == ResultCityWin && team == TeamCity:
			base = 1
		case result == ResultMafiaWin && team == TeamMafia:
			base = 1
		}
		g.Scores[i].Base = base
	}
	g.emit(Event{Kind: EventScoresChanged})
}

// SetPlayerScore overrides a seat's score. The bonus must lie within the
// rules' range in steps of 0.1.
func (g *Game) SetPlayerScore(seat Seat, base, bonus float64) error {
	if !seat.Valid() {
		return fmt.Errorf("set score: %w %d", ErrInvalidSeat, seat)
	}
	if g.Status == StatusCancelled {
		return ErrGameFinished
	}
	if bonus < g.Rules.BonusMin || bonus > g.Rules.BonusMax || !onTenthGrid(bonus) {
		return fmt.Errorf("%w: %.2f not in [%.1f, %.1f] by 0.1", ErrBonusOutOfRange, bonus, g.Rules.BonusMin, g.Rules.BonusMax)
	}
	g.Scores[seat.index()] = Score{Base: base, Bonus: math.Round(bonus*10) / 10}
	g.emit(Event{Kind: EventScoresChanged, Seat: seat})
	return nil
}

// TotalScore returns base + bonus for seat, 0 for unknown seats.
func (g *Game) TotalScore(seat Seat) float64 {
	if !seat.Valid() {
		return 0
	}
	return g.Scores[seat.index()].Total()
}

// FinalizeScores marks a finished game's scores as entered.
func (g *Game) FinalizeScores() error {
	if g.Status != StatusFinishedNoScores {
		return fmt.Errorf("%w: %s -> %s", ErrBadTransition, g.Status, StatusFinishedWithScores)
	}
	g.Status = StatusFinishedWithScores
	g.emit(Event{Kind: EventStatusChanged, Status: g.Status})
	return nil
}

func onTenthGrid(v float64) bool {
	scaled := v * 10
	return math.Abs(scaled-math.Round(scaled)) < 1e-9
}
