// Package engine implements the rules of sport mafia for one judged table.
//
// A Game is driven by exactly one control flow (the judge's console). It is
// not safe for concurrent use; callers serialize access per game and keep
// games isolated from each other. The package performs no I/O: persistence,
// transport and presentation live in the service packages and observe the
// game through the OnEvent hook.
package engine

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"time"
)

var (
	ErrGameFinished      = errors.New("game is finished")
	ErrGameNotInProgress = errors.New("game is not in progress")
	ErrInvalidSeat       = errors.New("invalid seat")
	ErrRoleComposition   = errors.New("incomplete role composition")
	ErrBadTransition     = errors.New("status transition not allowed")
)

// Player is one seat at the table.
type Player struct {
	Seat            Seat
	Name            string
	Role            Role
	OriginalRole    Role // frozen at game start; scoring and win checks use it
	Fouls           int  // ledger total, refreshed after every foul mutation
	Nominated       Seat // the seat this player nominated today
	Alive           bool
	Eliminated      bool
	Silent          bool
	SilentNextRound bool
}

// InGame reports whether the player still takes part in the game.
func (p *Player) InGame() bool { return p.Alive && !p.Eliminated }

// Score is a player's base result plus the judge's bonus.
type Score struct {
	Base  float64
	Bonus float64
}

// Total returns Base + Bonus.
func (s Score) Total() float64 { return s.Base + s.Bonus }

// Game holds the complete state of one session.
type Game struct {
	ID        int64
	Round     int // completed nights; the current phase id is Round+1
	Status    Status
	Substatus Substatus
	Result    Result
	Outcome   Outcome

	Players [NumSeats]Player
	Ledger  Ledger

	// Day state.
	Nominated   []Seat
	Tally       [NumSeats]int // votes per seat; 0 means no entry
	Shootout    SeatSet       // tied seats of the last shootout
	PendingLift SeatSet       // tied seats awaiting the multiple-elimination poll
	Stalemate   int

	// History.
	Dead       []Seat
	Eliminated []Seat

	// Night state. Targets are only meaningful when their staged bit is set;
	// a staged NoSeat is an explicit miss.
	MafiaTarget   Seat
	DonTarget     Seat
	SheriffTarget Seat
	staged        uint8

	BestMoveUsed    bool
	BestMovePending bool

	fouledOut SeatSet // removed for fouls in the current phase

	Scores [NumSeats]Score
	Rules  Rules

	// OnEvent, when set, receives every rule outcome after it is applied.
	OnEvent func(Event)

	rng *rand.Rand
}

const (
	stagedMafia uint8 = 1 << iota
	stagedDon
	stagedSheriff
)

// NewGame returns a default-initialized session: ten empty seats, all
// civilians, status created.
func NewGame(id int64, rules Rules) *Game {
	g := &Game{
		ID:     id,
		Status: StatusCreated,
		Rules:  rules,
	}
	seed := rules.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	g.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	for i := range g.Players {
		g.Players[i] = Player{Seat: Seat(i + 1), Alive: true}
	}
	return g
}

// player returns a pointer to the seat's player, or nil for invalid seats.
func (g *Game) player(seat Seat) *Player {
	if !seat.Valid() {
		return nil
	}
	return &g.Players[seat.index()]
}

// ---------------------------------------------------------------------------
// Seating and lifecycle
// ---------------------------------------------------------------------------

// SetPlayer seats a named player. Only allowed before roles are dealt.
func (g *Game) SetPlayer(seat Seat, name string) bool {
	p := g.player(seat)
	if p == nil || (g.Status != StatusCreated && g.Status != StatusSeatingReady) {
		return false
	}
	p.Name = name
	return true
}

// RemovePlayer empties a seat before roles are dealt.
func (g *Game) RemovePlayer(seat Seat) bool {
	return g.SetPlayer(seat, "")
}

// SetStatus moves the session along its lifecycle. Pre-game statuses only
// move forward; in_progress goes through StartGame and finished_with_scores
// through FinalizeScores.
func (g *Game) SetStatus(to Status) error {
	if !to.Known() {
		return fmt.Errorf("%w: unknown status %q", ErrBadTransition, to)
	}
	if g.Status == to {
		return nil
	}
	switch to {
	case StatusCancelled:
		if !g.Cancel() {
			return fmt.Errorf("%w: %s -> %s", ErrBadTransition, g.Status, to)
		}
		return nil
	case StatusInProgress:
		return g.StartGame()
	case StatusFinishedWithScores:
		return g.FinalizeScores()
	case StatusFinishedNoScores:
		return fmt.Errorf("%w: a game finishes through a verdict", ErrBadTransition)
	}
	if g.Status.Finished() || g.Status.Started() || statusOrder[to] < statusOrder[g.Status] {
		return fmt.Errorf("%w: %s -> %s", ErrBadTransition, g.Status, to)
	}
	g.Status = to
	g.emit(Event{Kind: EventStatusChanged, Status: to})
	return nil
}

// StartGame freezes the roles and opens the first day. An incomplete role
// composition is rejected with a description of what is missing.
func (g *Game) StartGame() error {
	if g.Status.Finished() {
		return ErrGameFinished
	}
	if g.Status.Started() {
		return fmt.Errorf("%w: game already started", ErrBadTransition)
	}
	if err := g.RoleCompositionError(); err != nil {
		return err
	}
	for i := range g.Players {
		p := &g.Players[i]
		p.OriginalRole = p.Role
		p.Alive = true
		p.Eliminated = false
		p.Nominated = NoSeat
	}
	g.Round = 0
	g.Ledger = Ledger{}
	g.Ledger.NewPhase()
	g.Status = StatusInProgress
	g.Substatus = g.daySubstatus()
	g.emit(Event{Kind: EventStatusChanged, Status: g.Status})
	g.emit(Event{Kind: EventDayStarted})
	return nil
}

// Cancel abandons the session. Finished sessions cannot be cancelled.
func (g *Game) Cancel() bool {
	if g.Status.Finished() {
		return false
	}
	g.Status = StatusCancelled
	g.Substatus = SubstatusNone
	g.Result = ResultCancelled
	g.SetBaseScores(ResultCancelled)
	g.emit(Event{Kind: EventStatusChanged, Status: g.Status})
	return true
}

// finish records a verdict and ends the game.
func (g *Game) finish(o Outcome) {
	g.Outcome = o
	g.Result = o.Winner.Result()
	g.Status = StatusFinishedNoScores
	g.Substatus = SubstatusNone
	g.BestMovePending = false
	g.SetBaseScores(g.Result)
	g.emit(Event{Kind: EventVictoryDetected, Outcome: o})
	g.emit(Event{Kind: EventStatusChanged, Status: g.Status})
}

// checkVictory evaluates the win condition and finishes the game when it is
// decided. It reports whether the game ended.
func (g *Game) checkVictory() bool {
	o := Evaluate(g.Players[:], g.Stalemate, g.Rules.StalemateLimit)
	if !o.Over() {
		return false
	}
	g.finish(o)
	return true
}

// active reports whether rule mutations are accepted.
func (g *Game) active() bool { return g.Status == StatusInProgress }

// daySubstatus picks the discussion flavor from the alive count.
func (g *Game) daySubstatus() Substatus {
	if g.IsCriticalRound() {
		return SubstatusCriticalDiscussion
	}
	return SubstatusDiscussion
}

// ---------------------------------------------------------------------------
// Removal helpers
// ---------------------------------------------------------------------------

// clearNominationsOf drops every nomination pointing at seat.
func (g *Game) clearNominationsOf(seat Seat) {
	out := g.Nominated[:0]
	for _, s := range g.Nominated {
		if s != seat {
			out = append(out, s)
		}
	}
	g.Nominated = out
	for i := range g.Players {
		if g.Players[i].Nominated == seat {
			g.Players[i].Nominated = NoSeat
		}
	}
}

// clearDay resets nominations, tally and shootout after a vote.
func (g *Game) clearDay() {
	g.Nominated = nil
	g.Tally = [NumSeats]int{}
	g.Shootout = 0
	for i := range g.Players {
		g.Players[i].Nominated = NoSeat
	}
}

// eliminate removes a player from the game through a verdict, foul-out or
// forfeit and records it in the current phase.
func (g *Game) eliminate(seat Seat) {
	p := g.player(seat)
	if p == nil || !p.InGame() {
		return
	}
	p.Alive = false
	p.Eliminated = true
	g.Eliminated = append(g.Eliminated, seat)
	g.Ledger.RecordRemoved(seat)
	g.clearNominationsOf(seat)
	g.Tally[seat.index()] = 0
}

// ---------------------------------------------------------------------------
// Restore
// ---------------------------------------------------------------------------

// Saved is the persisted form of a session.
type Saved struct {
	ID      int64
	Status  Status
	Players []Player // seat, name, role, original role and silence flags
	Scores  map[Seat]Score
	Phases  []Phase
}

// Restore rebuilds a game from persisted players and phases. Alive flags,
// death and elimination history, foul totals, round, best-move usage and
// the stalemate counter are derived from the ledger only.
func Restore(s Saved, rules Rules) (*Game, error) {
	g := NewGame(s.ID, rules)
	if !s.Status.Known() {
		return nil, fmt.Errorf("restore game %d: unknown status %q", s.ID, s.Status)
	}
	seen := NewSeatSet()
	for _, in := range s.Players {
		p := g.player(in.Seat)
		if p == nil {
			return nil, fmt.Errorf("restore game %d: %w %d", s.ID, ErrInvalidSeat, in.Seat)
		}
		if seen.Has(in.Seat) {
			return nil, fmt.Errorf("restore game %d: duplicate seat %d", s.ID, in.Seat)
		}
		seen = seen.Add(in.Seat)
		p.Name = in.Name
		p.Role = in.Role
		p.OriginalRole = in.OriginalRole
		p.Silent = in.Silent
		p.SilentNextRound = in.SilentNextRound
	}
	ledger, err := NewLedger(s.Phases)
	if err != nil {
		return nil, fmt.Errorf("restore game %d: %w", s.ID, err)
	}
	g.Ledger = ledger
	g.Status = s.Status

	if s.Status.Started() {
		var counts [4]int
		for i := range g.Players {
			counts[g.Players[i].OriginalRole]++
		}
		if counts[RoleMafia] != int(rules.MafiaCount) || counts[RoleDon] != int(rules.DonCount) || counts[RoleSheriff] != int(rules.SheriffCount) {
			return nil, fmt.Errorf("restore game %d: %w", s.ID, ErrRoleComposition)
		}
	}

	for _, ph := range g.Ledger.phases {
		if ph.Killed.Valid() {
			p := g.player(ph.Killed)
			p.Alive = false
			g.Dead = append(g.Dead, ph.Killed)
		}
		for _, seat := range ph.Removed.Seats() {
			p := g.player(seat)
			p.Alive = false
			p.Eliminated = true
			g.Eliminated = append(g.Eliminated, seat)
		}
		for _, r := range ph.Voting {
			switch r.Verdict {
			case VerdictEliminated:
				g.Stalemate = 0
			case VerdictTooMany, VerdictLiftFailed:
				g.Stalemate++
			}
		}
	}
	for i := range g.Players {
		g.Players[i].Fouls = g.Ledger.TotalFouls(g.Players[i].Seat)
	}
	if cur := g.Ledger.Current(); cur != nil {
		for _, seat := range cur.Removed.Seats() {
			if seat != cur.Forfeit && g.player(seat).Fouls >= rules.FoulsToRemove {
				g.fouledOut = g.fouledOut.Add(seat)
			}
		}
	}
	// Every confirmed night opens the next phase, except the first night
	// while its best move is pending and a night that ended the game. Both
	// leave the kill in the last phase.
	nightDone := false
	if n := g.Ledger.Len(); n > 0 {
		last := g.Ledger.phases[n-1]
		nightDone = last.Killed.Valid()
		g.Round = n - 1
		if nightDone {
			g.Round = n
		}
		first := g.Ledger.phases[0]
		g.BestMoveUsed = len(first.BestMove) > 0 || (first.Killed.Valid() && n > 1)
	}
	for seat, sc := range s.Scores {
		if seat.Valid() {
			g.Scores[seat.index()] = sc
		}
	}
	if g.Status == StatusInProgress {
		g.Substatus = g.daySubstatus()
		if nightDone && g.Ledger.Len() == 1 && !g.BestMoveUsed {
			g.BestMovePending = true
			g.Substatus = SubstatusBestMove
		}
	}
	if g.Status.Started() && g.Status != StatusInProgress {
		g.Outcome = Evaluate(g.Players[:], g.Stalemate, rules.StalemateLimit)
		g.Result = g.Outcome.Winner.Result()
	}
	if g.Status == StatusCancelled {
		g.Result = ResultCancelled
	}
	return g, nil
}
