package engine

import (
	"errors"
	"fmt"
)

// ErrBestMoveNotPending is returned when a best move is resolved while none
// was granted.
var ErrBestMoveNotPending = errors.New("no best move pending")

// StartNight closes the day. Staged targets from a previous night are
// dropped.
func (g *Game) StartNight() bool {
	if !g.active() || g.BestMovePending || g.PendingLift != 0 {
		return false
	}
	g.clearDay()
	g.clearTargets()
	g.Substatus = SubstatusNight
	g.emit(Event{Kind: EventNightStarted})
	return true
}

func (g *Game) clearTargets() {
	g.MafiaTarget, g.DonTarget, g.SheriffTarget = NoSeat, NoSeat, NoSeat
	g.staged = 0
}

// ---------------------------------------------------------------------------
// Checks: pure lookups against the original role, recorded in the current
// phase.
// ---------------------------------------------------------------------------

// CheckSheriff reports whether target belongs to the mafia team.
func (g *Game) CheckSheriff(target Seat) (isMafia bool, ok bool) {
	p := g.player(target)
	if p == nil || !g.active() {
		return false, false
	}
	g.Ledger.RecordSheriffCheck(target)
	return p.OriginalRole.Team() == TeamMafia, true
}

// CheckDon reports whether target is the sheriff.
func (g *Game) CheckDon(target Seat) (isSheriff bool, ok bool) {
	p := g.player(target)
	if p == nil || !g.active() {
		return false, false
	}
	g.Ledger.RecordDonCheck(target)
	return p.OriginalRole == RoleSheriff, true
}

// ---------------------------------------------------------------------------
// Staging
// ---------------------------------------------------------------------------

// SetMafiaTarget stages the mafia's shot. NoSeat is an explicit miss.
func (g *Game) SetMafiaTarget(target Seat) bool {
	if !g.stageable(target) {
		return false
	}
	g.MafiaTarget = target
	g.staged |= stagedMafia
	return true
}

// SetDonTarget stages the don's check. NoSeat is an explicit pass.
func (g *Game) SetDonTarget(target Seat) bool {
	if !g.stageable(target) {
		return false
	}
	g.DonTarget = target
	g.staged |= stagedDon
	return true
}

// SetSheriffTarget stages the sheriff's check. NoSeat is an explicit pass.
func (g *Game) SetSheriffTarget(target Seat) bool {
	if !g.stageable(target) {
		return false
	}
	g.SheriffTarget = target
	g.staged |= stagedSheriff
	return true
}

func (g *Game) stageable(target Seat) bool {
	return g.active() && !g.BestMovePending && (target == NoSeat || target.Valid())
}

// ---------------------------------------------------------------------------
// Confirmation
// ---------------------------------------------------------------------------

// ConfirmNight applies the staged night. A live kill target dies; the round
// always advances by one. When the first night leaves exactly one death and
// no eliminations, the day transition is suspended until the victim's best
// move is resolved.
func (g *Game) ConfirmNight() bool {
	if !g.active() || g.BestMovePending {
		return false
	}
	if cur := g.Ledger.Current(); cur == nil || cur.Killed.Valid() {
		return false
	}
	if g.staged&stagedDon != 0 && g.DonTarget.Valid() {
		g.Ledger.RecordDonCheck(g.DonTarget)
	}
	if g.staged&stagedSheriff != 0 && g.SheriffTarget.Valid() {
		g.Ledger.RecordSheriffCheck(g.SheriffTarget)
	}
	killed := NoSeat
	if g.staged&stagedMafia != 0 {
		if p := g.player(g.MafiaTarget); p != nil && p.InGame() {
			p.Alive = false
			killed = p.Seat
			g.Dead = append(g.Dead, killed)
			g.clearNominationsOf(killed)
			g.Ledger.RecordKill(killed)
		}
	}
	g.clearTargets()
	g.Round++
	if killed != NoSeat {
		g.emit(Event{Kind: EventPlayerKilled, Seat: killed})
	}
	g.emit(Event{Kind: EventNightActionsApplied, Seat: killed})
	if g.checkVictory() {
		return true
	}

	if len(g.Dead) == 1 && len(g.Eliminated) == 0 && g.Round == 1 && !g.BestMoveUsed {
		g.BestMovePending = true
		g.Substatus = SubstatusBestMove
		g.emit(Event{Kind: EventBestMovePending, Seat: g.Dead[0]})
		return true
	}
	g.beginDay()
	return true
}

// beginDay opens the next phase, applies the silence transition and picks
// the discussion flavor.
func (g *Game) beginDay() {
	g.Ledger.NewPhase()
	g.fouledOut = 0
	for i := range g.Players {
		p := &g.Players[i]
		switch {
		case p.SilentNextRound:
			p.Silent = true
			p.SilentNextRound = false
		case p.Silent:
			p.Silent = false
		}
		p.Nominated = NoSeat
	}
	g.Nominated = nil
	g.Substatus = g.daySubstatus()
	g.emit(Event{Kind: EventDayStarted})
}

// ---------------------------------------------------------------------------
// Best move
// ---------------------------------------------------------------------------

// ResolveBestMove records the first victim's guesses (up to BestMoveMax
// distinct seats) in the phase of the kill and resumes the day.
func (g *Game) ResolveBestMove(seats []Seat) error {
	if !g.BestMovePending {
		return ErrBestMoveNotPending
	}
	if len(seats) > g.Rules.BestMoveMax {
		return fmt.Errorf("best move names %d seats, at most %d allowed", len(seats), g.Rules.BestMoveMax)
	}
	var set SeatSet
	for _, s := range seats {
		if !s.Valid() {
			return fmt.Errorf("best move: %w %d", ErrInvalidSeat, s)
		}
		if set.Has(s) {
			return fmt.Errorf("best move: seat %d named twice", s)
		}
		set = set.Add(s)
	}
	g.Ledger.RecordBestMove(seats)
	g.BestMoveUsed = true
	g.BestMovePending = false
	g.emit(Event{Kind: EventBestMoveRecorded, Seat: g.Dead[0], Seats: append([]Seat(nil), seats...)})
	g.beginDay()
	return nil
}

// SkipBestMove gives up the best move and resumes the day.
func (g *Game) SkipBestMove() error {
	return g.ResolveBestMove(nil)
}

// BestMoveHits counts mafia-team seats among the recorded best-move
// guesses.
func (g *Game) BestMoveHits() int {
	first, ok := g.Ledger.Phase(1)
	if !ok {
		return 0
	}
	hits := 0
	for _, s := range first.BestMove {
		if p := g.player(s); p != nil && p.OriginalRole.Team() == TeamMafia {
			hits++
		}
	}
	return hits
}
