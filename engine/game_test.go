package engine

import (
	"errors"
	"testing"
)

// newTestGame returns a started game with mafia on seats 1 and 2, the don on
// seat 3, the sheriff on seat 4 and civilians on 5..10.
func newTestGame(t *testing.T) *Game {
	t.Helper()
	rules := DefaultRules()
	rules.Seed = 7
	g := NewGame(1, rules)
	for seat := Seat(1); seat <= NumSeats; seat++ {
		g.SetPlayer(seat, "player")
	}
	g.AssignRole(1, RoleMafia)
	g.AssignRole(2, RoleMafia)
	g.AssignRole(3, RoleDon)
	g.AssignRole(4, RoleSheriff)
	if err := g.StartGame(); err != nil {
		t.Fatalf("StartGame: %v", err)
	}
	return g
}

// eliminateByVote runs a one-candidate vote that removes seat.
func eliminateByVote(t *testing.T, g *Game, seat Seat) {
	t.Helper()
	if !g.StartVoting([]Seat{seat}) {
		t.Fatalf("StartVoting(%d) refused", seat)
	}
	g.RegisterVote(seat, 5)
	res := g.ConfirmVoting()
	if res == nil || res.Verdict != VerdictEliminated {
		t.Fatalf("ConfirmVoting for seat %d = %+v, want eliminated", seat, res)
	}
}

// missNight runs a night without a kill.
func missNight(t *testing.T, g *Game) {
	t.Helper()
	if !g.StartNight() {
		t.Fatal("StartNight refused")
	}
	g.SetMafiaTarget(NoSeat)
	if !g.ConfirmNight() {
		t.Fatal("ConfirmNight refused")
	}
}

// TestNewGameDefaults verifies a fresh session: ten alive civilians, created.
func TestNewGameDefaults(t *testing.T) {
	g := NewGame(3, DefaultRules())
	if g.Status != StatusCreated {
		t.Fatalf("Status = %q, want created", g.Status)
	}
	if g.PhaseID() != 0 || g.Round != 0 {
		t.Errorf("PhaseID/Round = %d/%d, want 0/0", g.PhaseID(), g.Round)
	}
	for i, p := range g.Players {
		if p.Seat != Seat(i+1) || p.Role != RoleCivilian || !p.Alive || p.Eliminated {
			t.Errorf("Players[%d] = %+v", i, p)
		}
	}
	if g.CanStartGame() {
		t.Error("CanStartGame = true with all civilians")
	}
}

// TestStartGameOpensFirstPhase verifies roles freeze and phase 1 opens.
func TestStartGameOpensFirstPhase(t *testing.T) {
	g := newTestGame(t)
	if g.Status != StatusInProgress || g.Substatus != SubstatusDiscussion {
		t.Fatalf("Status/Substatus = %q/%q", g.Status, g.Substatus)
	}
	if g.PhaseID() != 1 || g.Round != 0 {
		t.Errorf("PhaseID/Round = %d/%d, want 1/0", g.PhaseID(), g.Round)
	}
	if err := g.StartGame(); !errors.Is(err, ErrBadTransition) {
		t.Errorf("second StartGame err = %v, want ErrBadTransition", err)
	}
	if g.SetPlayer(5, "late") {
		t.Error("SetPlayer accepted after start")
	}
}

// TestStartGameRejectsComposition verifies the error names the mismatch.
func TestStartGameRejectsComposition(t *testing.T) {
	g := NewGame(1, DefaultRules())
	g.AssignRole(1, RoleMafia)
	err := g.StartGame()
	if !errors.Is(err, ErrRoleComposition) {
		t.Fatalf("StartGame err = %v, want ErrRoleComposition", err)
	}
	if g.Status != StatusCreated {
		t.Errorf("Status = %q after failed start", g.Status)
	}
}

// TestSetStatusTransitions covers forward moves, regressions and finals.
func TestSetStatusTransitions(t *testing.T) {
	g := NewGame(1, DefaultRules())
	if err := g.SetStatus(StatusNegotiation); err != nil {
		t.Fatalf("created -> negotiation: %v", err)
	}
	if err := g.SetStatus(StatusSeatingReady); !errors.Is(err, ErrBadTransition) {
		t.Errorf("negotiation -> seating_ready err = %v", err)
	}
	if err := g.SetStatus(StatusFinishedNoScores); !errors.Is(err, ErrBadTransition) {
		t.Errorf("-> finished_no_scores err = %v", err)
	}
	if err := g.SetStatus(Status("bogus")); !errors.Is(err, ErrBadTransition) {
		t.Errorf("-> bogus err = %v", err)
	}
	if err := g.SetStatus(StatusCancelled); err != nil {
		t.Fatalf("-> cancelled: %v", err)
	}
	if g.Result != ResultCancelled {
		t.Errorf("Result = %q, want cancelled", g.Result)
	}
	if g.Cancel() {
		t.Error("Cancel succeeded on a cancelled game")
	}
}

// TestEventsCarryRound verifies events are stamped with the current round.
func TestEventsCarryRound(t *testing.T) {
	g := newTestGame(t)
	var got []Event
	g.OnEvent = func(ev Event) { got = append(got, ev) }

	missNight(t, g)
	eliminateByVote(t, g, 5)

	var kinds []EventKind
	for _, ev := range got {
		kinds = append(kinds, ev.Kind)
	}
	want := []EventKind{EventNightStarted, EventNightActionsApplied, EventDayStarted, EventVotingStarted, EventPlayerEliminated}
	if len(kinds) != len(want) {
		t.Fatalf("kinds = %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("kinds[%d] = %q, want %q", i, kinds[i], want[i])
		}
	}
	if last := got[len(got)-1]; last.Round != 1 || last.Seat != 5 {
		t.Errorf("last event = %+v, want round 1 seat 5", last)
	}
}

// TestCityWinsWhenMafiaGone plays out a vote-only city win.
func TestCityWinsWhenMafiaGone(t *testing.T) {
	g := newTestGame(t)
	eliminateByVote(t, g, 1)
	eliminateByVote(t, g, 2)
	if g.Status != StatusInProgress {
		t.Fatalf("game ended early: %q", g.Status)
	}
	eliminateByVote(t, g, 3)

	if g.Status != StatusFinishedNoScores || g.Result != ResultCityWin {
		t.Fatalf("Status/Result = %q/%q", g.Status, g.Result)
	}
	if g.Outcome.Reason != ReasonAllMafiaEliminated {
		t.Errorf("Reason = %q", g.Outcome.Reason)
	}
	if g.TotalScore(5) != 1 || g.TotalScore(1) != 0 || g.TotalScore(4) != 1 {
		t.Errorf("scores = %v", g.Scores)
	}
	if g.StartVoting([]Seat{5}) {
		t.Error("StartVoting accepted after the game ended")
	}
}

// TestMafiaWinsOnParity plays out a mafia win decided by a night kill.
func TestMafiaWinsOnParity(t *testing.T) {
	g := newTestGame(t)
	eliminateByVote(t, g, 5)
	eliminateByVote(t, g, 6)
	eliminateByVote(t, g, 7)

	g.StartNight()
	g.SetMafiaTarget(8)
	g.ConfirmNight()

	if g.Result != ResultMafiaWin {
		t.Fatalf("Result = %q, want mafia_win", g.Result)
	}
	if g.BestMovePending {
		t.Error("best move granted after eliminations")
	}
	if g.TotalScore(3) != 1 || g.TotalScore(9) != 0 {
		t.Errorf("scores = %v", g.Scores)
	}
}

// TestRestoreRoundTrip verifies derived state survives persistence.
func TestRestoreRoundTrip(t *testing.T) {
	g := newTestGame(t)
	g.AddFoul(9)
	g.AddFoul(9)
	g.StartNight()
	g.SetMafiaTarget(7)
	g.ConfirmNight()
	if err := g.ResolveBestMove([]Seat{1, 2, 5}); err != nil {
		t.Fatalf("ResolveBestMove: %v", err)
	}
	g.AddFoul(9)
	eliminateByVote(t, g, 1)

	saved := Saved{ID: g.ID, Status: g.Status, Players: g.Players[:], Phases: g.Ledger.Phases()}
	r, err := Restore(saved, g.Rules)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if r.Round != g.Round || r.Round != 1 {
		t.Errorf("Round = %d, want %d", r.Round, g.Round)
	}
	if r.PhaseID() != 2 {
		t.Errorf("PhaseID = %d, want 2", r.PhaseID())
	}
	if r.AliveSeats() != g.AliveSeats() {
		t.Errorf("alive = %v, want %v", r.AliveSeats().Seats(), g.AliveSeats().Seats())
	}
	if len(r.Dead) != 1 || r.Dead[0] != 7 || len(r.Eliminated) != 1 || r.Eliminated[0] != 1 {
		t.Errorf("Dead/Eliminated = %v/%v", r.Dead, r.Eliminated)
	}
	if p, _ := r.Player(9); p.Fouls != 3 || !p.SilentNextRound {
		t.Errorf("seat 9 = %+v, want 3 fouls and silent next round", p)
	}
	if !r.BestMoveUsed || r.BestMoveHits() != 2 {
		t.Errorf("BestMoveUsed/Hits = %v/%d", r.BestMoveUsed, r.BestMoveHits())
	}
	if r.Substatus != SubstatusDiscussion {
		t.Errorf("Substatus = %q", r.Substatus)
	}
}

// TestRestoreDuringBestMove verifies a game saved while the first victim's
// best move is pending comes back on that step and keeps its ledger intact
// through the following night.
func TestRestoreDuringBestMove(t *testing.T) {
	g := newTestGame(t)
	g.StartNight()
	g.SetMafiaTarget(7)
	g.ConfirmNight()

	saved := Saved{ID: g.ID, Status: g.Status, Players: g.Players[:], Phases: g.Ledger.Phases()}
	r, err := Restore(saved, g.Rules)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if r.Round != 1 || r.PhaseID() != 1 {
		t.Errorf("Round/PhaseID = %d/%d, want 1/1", r.Round, r.PhaseID())
	}
	if !r.BestMovePending || r.BestMoveUsed || r.Substatus != SubstatusBestMove {
		t.Fatalf("pending/used/substatus = %v/%v/%q", r.BestMovePending, r.BestMoveUsed, r.Substatus)
	}
	if r.StartNight() || r.ConfirmNight() {
		t.Fatal("night accepted while the best move was pending")
	}

	if err := r.SkipBestMove(); err != nil {
		t.Fatalf("SkipBestMove: %v", err)
	}
	r.StartNight()
	r.SetMafiaTarget(8)
	if !r.ConfirmNight() {
		t.Fatal("second night refused")
	}

	first, _ := r.Ledger.Phase(1)
	if first.Killed != 7 {
		t.Errorf("phase 1 kill = %d, want 7", first.Killed)
	}
	if r.Ledger.AliveAt(1).Has(7) || r.Ledger.AliveAt(2).Has(8) {
		t.Errorf("AliveAt(1)/AliveAt(2) = %v/%v", r.Ledger.AliveAt(1).Seats(), r.Ledger.AliveAt(2).Seats())
	}
	if len(r.Dead) != 2 || r.Dead[0] != 7 || r.Dead[1] != 8 {
		t.Errorf("Dead = %v, want [7 8]", r.Dead)
	}
	if r.Round != 2 || r.PhaseID() != 3 || r.BestMovePending {
		t.Errorf("Round/PhaseID/pending = %d/%d/%v", r.Round, r.PhaseID(), r.BestMovePending)
	}
}

// TestRestoreAfterWinningNight verifies a game decided by a night kill keeps
// the round of that night.
func TestRestoreAfterWinningNight(t *testing.T) {
	g := newTestGame(t)
	for _, seat := range []Seat{5, 6, 7} {
		if !g.Forfeit(seat) {
			t.Fatalf("Forfeit(%d) refused", seat)
		}
	}
	g.StartNight()
	g.SetMafiaTarget(8)
	g.ConfirmNight()
	if g.Result != ResultMafiaWin || g.Round != 1 {
		t.Fatalf("Result/Round = %q/%d", g.Result, g.Round)
	}

	saved := Saved{ID: g.ID, Status: g.Status, Players: g.Players[:], Phases: g.Ledger.Phases()}
	r, err := Restore(saved, g.Rules)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if r.Round != g.Round || r.BestMovePending {
		t.Errorf("Round/pending = %d/%v, want %d/false", r.Round, r.BestMovePending, g.Round)
	}
	if r.Result != ResultMafiaWin {
		t.Errorf("Result = %q", r.Result)
	}
}

// TestConfirmNightRefusesSecondKillInPhase verifies a phase that already
// holds a kill cannot take another night.
func TestConfirmNightRefusesSecondKillInPhase(t *testing.T) {
	g := newTestGame(t)
	g.Ledger.RecordKill(9)
	g.StartNight()
	g.SetMafiaTarget(8)
	if g.ConfirmNight() {
		t.Fatal("ConfirmNight accepted a second kill in phase 1")
	}
	if p, _ := g.Player(8); !p.Alive {
		t.Error("seat 8 died without a recorded kill")
	}
	if cur := g.Ledger.Current(); cur.Killed != 9 {
		t.Errorf("phase kill = %d, want 9", cur.Killed)
	}
}

// TestRestoreRejectsBadInput covers duplicate seats and broken ledgers.
func TestRestoreRejectsBadInput(t *testing.T) {
	rules := DefaultRules()
	tests := []struct {
		name  string
		saved Saved
	}{
		{"unknown status", Saved{Status: "bogus"}},
		{"duplicate seat", Saved{Status: StatusCreated, Players: []Player{{Seat: 1}, {Seat: 1}}}},
		{"invalid seat", Saved{Status: StatusCreated, Players: []Player{{Seat: 11}}}},
		{"phase gap", Saved{Status: StatusCreated, Phases: []Phase{{ID: 1}, {ID: 3}}}},
		{"bad composition", Saved{Status: StatusInProgress, Phases: []Phase{{ID: 1}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Restore(tt.saved, rules); err == nil {
				t.Error("Restore succeeded, want error")
			}
		})
	}
}
