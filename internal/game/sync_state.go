// internal/game/sync_state.go
package game

import (
	engine "github.com/MafiaJoker/mafia-game-sub000/engine"
	"github.com/MafiaJoker/mafia-game-sub000/internal/models"
)

// ScoreView is a seat's score.
type ScoreView struct {
	Base  float64 `json:"base"`
	Bonus float64 `json:"bonus"`
	Total float64 `json:"total"`
}

// PlayerView is one seat as shown to an observer. Role is empty when the
// observer may not see it.
type PlayerView struct {
	Seat            int        `json:"seat"`
	Name            string     `json:"name"`
	Role            string     `json:"role,omitempty"`
	Fouls           int        `json:"fouls"`
	Alive           bool       `json:"alive"`
	Eliminated      bool       `json:"eliminated"`
	InGame          bool       `json:"inGame"`
	Silent          bool       `json:"silent"`
	SilentNextRound bool       `json:"silentNextRound"`
	Nominated       int        `json:"nominated,omitempty"`
	Score           *ScoreView `json:"score,omitempty"`
}

// TableState is the public view of a game, safe for table displays.
type TableState struct {
	GameID      int64              `json:"gameId"`
	Status      string             `json:"status"`
	Substatus   string             `json:"substatus,omitempty"`
	Round       int                `json:"round"`
	PhaseID     int                `json:"phaseId"`
	Critical    bool               `json:"critical"`
	Nominated   []int              `json:"nominated,omitempty"`
	Votes       []models.SeatCount `json:"votes,omitempty"`
	Shootout    []int              `json:"shootout,omitempty"`
	PendingLift []int              `json:"pendingLift,omitempty"`
	Stalemate   int                `json:"stalemate"`
	Dead        []int              `json:"dead,omitempty"`
	Eliminated  []int              `json:"eliminated,omitempty"`
	Result      string             `json:"result,omitempty"`
	Winner      string             `json:"winner,omitempty"`
	Reason      string             `json:"reason,omitempty"`
	Players     []PlayerView       `json:"players"`
}

// NightView holds the staged night targets. Zero is an explicit miss.
type NightView struct {
	Mafia   int `json:"mafia"`
	Don     int `json:"don"`
	Sheriff int `json:"sheriff"`
}

// JudgeState is everything the judge console shows.
type JudgeState struct {
	TableState
	Night            NightView            `json:"night"`
	BestMoveUsed     bool                 `json:"bestMoveUsed"`
	BestMovePending  bool                 `json:"bestMovePending"`
	BestMoveHits     int                  `json:"bestMoveHits"`
	CanStart         bool                 `json:"canStart"`
	CompositionError string               `json:"compositionError,omitempty"`
	Phases           []models.PhaseRecord `json:"phases"`
	FailedWrites     int64                `json:"failedWrites"`
}

// TableView returns the public state. Roles stay hidden until the game is
// over.
func (s *Session) TableView() TableState {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	return s.tableView()
}

// JudgeView returns the full state including roles and staged targets.
func (s *Session) JudgeView() JudgeState {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	return s.judgeView()
}

// Assumes lock is held by caller.
func (s *Session) tableView() TableState {
	return s.buildTable(s.Game.Status.Finished())
}

// Assumes lock is held by caller.
func (s *Session) judgeView() JudgeState {
	g := s.Game
	js := JudgeState{
		TableState: s.buildTable(true),
		Night: NightView{
			Mafia:   int(g.MafiaTarget),
			Don:     int(g.DonTarget),
			Sheriff: int(g.SheriffTarget),
		},
		BestMoveUsed:    g.BestMoveUsed,
		BestMovePending: g.BestMovePending,
		BestMoveHits:    g.BestMoveHits(),
		CanStart:        g.CanStartGame(),
		Phases:          models.PhasesFromEngine(g.Ledger.Phases()),
		FailedWrites:    s.failedWrites.Load(),
	}
	if err := g.RoleCompositionError(); err != nil {
		js.CompositionError = err.Error()
	}
	return js
}

// Assumes lock is held by caller.
func (s *Session) buildTable(showRoles bool) TableState {
	g := s.Game
	ts := TableState{
		GameID:      s.ID,
		Status:      string(g.Status),
		Substatus:   string(g.Substatus),
		Round:       g.Round,
		PhaseID:     g.PhaseID(),
		Critical:    g.IsInProgress() && g.IsCriticalRound(),
		Nominated:   seatInts(g.Nominated),
		Shootout:    seatInts(g.Shootout.Seats()),
		PendingLift: seatInts(g.PendingLift.Seats()),
		Stalemate:   g.Stalemate,
		Dead:        seatInts(g.Dead),
		Eliminated:  seatInts(g.Eliminated),
		Result:      string(g.Result),
		Players:     make([]PlayerView, 0, engine.NumSeats),
	}
	for _, v := range g.Votes() {
		ts.Votes = append(ts.Votes, models.SeatCount{Seat: int(v.Seat), Count: v.Count})
	}
	if g.Outcome.Over() {
		ts.Winner = g.Outcome.Winner.String()
		ts.Reason = string(g.Outcome.Reason)
	}
	showScores := g.Status.Finished()
	for _, p := range g.Players {
		pv := PlayerView{
			Seat:            int(p.Seat),
			Name:            p.Name,
			Fouls:           p.Fouls,
			Alive:           p.Alive,
			Eliminated:      p.Eliminated,
			InGame:          p.InGame(),
			Silent:          p.Silent,
			SilentNextRound: p.SilentNextRound,
			Nominated:       int(p.Nominated),
		}
		if showRoles {
			pv.Role = p.Role.String()
		}
		if showScores || showRoles {
			sc := g.Scores[int(p.Seat)-1]
			pv.Score = &ScoreView{Base: sc.Base, Bonus: sc.Bonus, Total: sc.Total()}
		}
		ts.Players = append(ts.Players, pv)
	}
	return ts
}
