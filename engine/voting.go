package engine

// Verdict is the outcome of confirming a vote.
type Verdict string

const (
	VerdictNone                Verdict = ""
	VerdictEliminated          Verdict = "eliminated"
	VerdictShootout            Verdict = "shootout"
	VerdictTooMany             Verdict = "too_many"
	VerdictMultipleElimination Verdict = "multiple_elimination"
	VerdictLiftFailed          Verdict = "lift_failed"
)

// VotingResult is returned by ConfirmVoting and ResolveLift.
type VotingResult struct {
	Verdict Verdict
	Seats   []Seat
}

// ---------------------------------------------------------------------------
// Nominations
// ---------------------------------------------------------------------------

// Nominate records that seat by puts target up for the vote. Each speaker
// nominates at most once per day; both seats must still be in the game.
func (g *Game) Nominate(by, target Seat) bool {
	if !g.active() || g.BestMovePending {
		return false
	}
	p, t := g.player(by), g.player(target)
	if p == nil || t == nil || !p.InGame() || !t.InGame() || p.Nominated != NoSeat {
		return false
	}
	p.Nominated = target
	for _, s := range g.Nominated {
		if s == target {
			return true
		}
	}
	g.Nominated = append(g.Nominated, target)
	g.emit(Event{Kind: EventPlayerNominated, Seat: target, Seats: []Seat{by}})
	return true
}

// WithdrawNomination cancels the nomination made by seat by. The target
// leaves the nominated set when nobody else nominated it.
func (g *Game) WithdrawNomination(by Seat) bool {
	p := g.player(by)
	if !g.active() || p == nil || p.Nominated == NoSeat {
		return false
	}
	target := p.Nominated
	p.Nominated = NoSeat
	for i := range g.Players {
		if g.Players[i].Nominated == target {
			return true
		}
	}
	out := g.Nominated[:0]
	for _, s := range g.Nominated {
		if s != target {
			out = append(out, s)
		}
	}
	g.Nominated = out
	return true
}

// ---------------------------------------------------------------------------
// Voting
// ---------------------------------------------------------------------------

// StartVoting opens a vote over the nominated seats. An empty nomination
// list is refused.
func (g *Game) StartVoting(nominated []Seat) bool {
	if !g.active() || g.BestMovePending || len(nominated) == 0 {
		return false
	}
	var set SeatSet
	list := make([]Seat, 0, len(nominated))
	for _, s := range nominated {
		p := g.player(s)
		if p == nil || !p.InGame() || set.Has(s) {
			continue
		}
		set = set.Add(s)
		list = append(list, s)
	}
	if len(list) == 0 {
		return false
	}
	g.Nominated = list
	g.Tally = [NumSeats]int{}
	g.PendingLift = 0
	g.Substatus = SubstatusVoting
	g.Ledger.RecordVoted(list)
	g.emit(Event{Kind: EventVotingStarted, Seats: append([]Seat(nil), list...)})
	return true
}

// RegisterVote sets the vote count for seat. A count of zero removes the
// entry.
func (g *Game) RegisterVote(seat Seat, count int) bool {
	if !g.active() || g.Substatus != SubstatusVoting || !seat.Valid() || count < 0 || count > NumSeats {
		return false
	}
	g.Tally[seat.index()] = count
	return true
}

// ConfirmVoting resolves the tally.
//
//  1. Empty tally: nil, nothing changes.
//  2. S = seats holding the maximum count.
//  3. |S| > 1 and S differs from the previous shootout set: start a
//     shootout limited to S.
//  4. |S| ≥ ceil(alive/2): nobody leaves, the stalemate counter grows.
//  5. |S| > 1: multiple elimination, awaiting ResolveLift.
//  6. |S| = 1: that seat is eliminated.
func (g *Game) ConfirmVoting() *VotingResult {
	if !g.active() || g.BestMovePending {
		return nil
	}
	maxVotes := 0
	var top SeatSet
	for i, n := range g.Tally {
		switch {
		case n == 0:
		case n > maxVotes:
			maxVotes = n
			top = NewSeatSet(Seat(i + 1))
		case n == maxVotes:
			top = top.Add(Seat(i + 1))
		}
	}
	if maxVotes == 0 {
		return nil
	}
	seats := top.Seats()
	round := VoteRound{
		Candidates: append([]Seat(nil), g.Nominated...),
		Tally:      g.Votes(),
		Seats:      seats,
	}

	if top.Len() > 1 && top != g.Shootout {
		g.Shootout = top
		g.Nominated = top.Seats()
		g.Tally = [NumSeats]int{}
		round.Verdict = VerdictShootout
		g.Ledger.RecordVoteRound(round)
		g.emit(Event{Kind: EventShootout, Seats: seats, Verdict: VerdictShootout})
		return &VotingResult{Verdict: VerdictShootout, Seats: seats}
	}

	var res VotingResult
	switch alive := g.AliveCount(); {
	case 2*top.Len() >= alive:
		g.Stalemate++
		res = VotingResult{Verdict: VerdictTooMany, Seats: seats}
		g.emit(Event{Kind: EventVotingStalemate, Seats: seats, Verdict: VerdictTooMany, Count: g.Stalemate})
	case top.Len() > 1:
		g.PendingLift = top
		res = VotingResult{Verdict: VerdictMultipleElimination, Seats: seats}
		g.emit(Event{Kind: EventMultipleElimination, Seats: seats, Verdict: VerdictMultipleElimination})
	default:
		g.eliminate(seats[0])
		g.Stalemate = 0
		res = VotingResult{Verdict: VerdictEliminated, Seats: seats}
		g.emit(Event{Kind: EventPlayerEliminated, Seat: seats[0], Verdict: VerdictEliminated})
	}
	round.Verdict = res.Verdict
	g.Ledger.RecordVoteRound(round)
	g.clearDay()
	if !g.checkVictory() {
		g.Substatus = g.daySubstatus()
	}
	return &res
}

// ResolveLift settles a multiple-elimination verdict. When votesFor is a
// strict majority of the alive players every tied seat leaves the game;
// otherwise nobody does and the stalemate counter grows.
func (g *Game) ResolveLift(votesFor int) *VotingResult {
	if !g.active() || g.PendingLift == 0 || votesFor < 0 {
		return nil
	}
	seats := g.PendingLift.Seats()
	g.PendingLift = 0
	round := VoteRound{Candidates: seats, Seats: seats, LiftVotes: votesFor}
	var res VotingResult
	if 2*votesFor > g.AliveCount() {
		for _, s := range seats {
			g.eliminate(s)
			g.emit(Event{Kind: EventPlayerEliminated, Seat: s, Verdict: VerdictEliminated, Count: votesFor})
		}
		g.Stalemate = 0
		res = VotingResult{Verdict: VerdictEliminated, Seats: seats}
	} else {
		g.Stalemate++
		res = VotingResult{Verdict: VerdictLiftFailed, Seats: seats}
		g.emit(Event{Kind: EventVotingStalemate, Seats: seats, Verdict: VerdictLiftFailed, Count: g.Stalemate})
	}
	round.Verdict = res.Verdict
	g.Ledger.RecordVoteRound(round)
	if !g.checkVictory() {
		g.Substatus = g.daySubstatus()
	}
	return &res
}
