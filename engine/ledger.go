package engine

import "fmt"

// SeatCount pairs a seat with a count (votes, fouls).
type SeatCount struct {
	Seat  Seat
	Count int
}

// VoteRound summarizes one confirmed vote inside a phase.
type VoteRound struct {
	Candidates []Seat
	Tally      []SeatCount
	Verdict    Verdict
	Seats      []Seat // seats named by the verdict (eliminated, tied, shootout)
	LiftVotes  int    // votes for eliminating all tied seats, lift polls only
}

// Phase is one day+night cycle of the ledger. Optional seat fields hold
// NoSeat when nothing happened.
type Phase struct {
	ID           int
	DonCheck     Seat
	SheriffCheck Seat
	Killed       Seat
	Removed      SeatSet
	Forfeit      Seat
	Fouls        [NumSeats]int // fouls issued during this phase only
	Voted        []Seat
	Voting       []VoteRound
	BestMove     []Seat // phase 1 only
}

// FoulDelta returns the per-phase foul delta for seat.
func (p *Phase) FoulDelta(seat Seat) int {
	if !seat.Valid() {
		return 0
	}
	return p.Fouls[seat.index()]
}

func (p Phase) clone() Phase {
	c := p
	c.Voted = append([]Seat(nil), p.Voted...)
	c.BestMove = append([]Seat(nil), p.BestMove...)
	if p.Voting != nil {
		c.Voting = make([]VoteRound, len(p.Voting))
		for i, r := range p.Voting {
			c.Voting[i] = VoteRound{
				Candidates: append([]Seat(nil), r.Candidates...),
				Tally:      append([]SeatCount(nil), r.Tally...),
				Verdict:    r.Verdict,
				Seats:      append([]Seat(nil), r.Seats...),
				LiftVotes:  r.LiftVotes,
			}
		}
	}
	return c
}

// Ledger is the append-only, ordered log of phases. It is the source of
// truth for alive and foul state; player flags are derived from it.
type Ledger struct {
	phases []Phase
}

// NewLedger rebuilds a ledger from persisted phases. Ids must start at 1
// and increase by exactly one.
func NewLedger(phases []Phase) (Ledger, error) {
	var l Ledger
	for i, p := range phases {
		if p.ID != i+1 {
			return Ledger{}, fmt.Errorf("phase %d: want id %d, got %d", i, i+1, p.ID)
		}
		if len(p.BestMove) > 0 && p.ID != 1 {
			return Ledger{}, fmt.Errorf("phase %d: best move outside phase 1", p.ID)
		}
		l.phases = append(l.phases, p.clone())
	}
	return l, nil
}

// Len returns the number of phases.
func (l *Ledger) Len() int { return len(l.phases) }

// NewPhase appends an empty phase with the next ordinal. Foul deltas start
// at zero and are never inherited from the previous phase.
func (l *Ledger) NewPhase() *Phase {
	l.phases = append(l.phases, Phase{ID: len(l.phases) + 1})
	return &l.phases[len(l.phases)-1]
}

// Current returns the last phase, or nil before the first phase exists.
func (l *Ledger) Current() *Phase {
	if len(l.phases) == 0 {
		return nil
	}
	return &l.phases[len(l.phases)-1]
}

// Phase returns a copy of the phase with the given id.
func (l *Ledger) Phase(id int) (Phase, bool) {
	if id < 1 || id > len(l.phases) {
		return Phase{}, false
	}
	return l.phases[id-1].clone(), true
}

// Phases returns a deep copy of every phase in order.
func (l *Ledger) Phases() []Phase {
	out := make([]Phase, len(l.phases))
	for i, p := range l.phases {
		out[i] = p.clone()
	}
	return out
}

// ---------------------------------------------------------------------------
// Recorders: every recorder mutates only the current phase and reports
// false when no phase is open.
// ---------------------------------------------------------------------------

// RecordDonCheck stores the don's check target.
func (l *Ledger) RecordDonCheck(seat Seat) bool {
	p := l.Current()
	if p == nil {
		return false
	}
	p.DonCheck = seat
	return true
}

// RecordSheriffCheck stores the sheriff's check target.
func (l *Ledger) RecordSheriffCheck(seat Seat) bool {
	p := l.Current()
	if p == nil {
		return false
	}
	p.SheriffCheck = seat
	return true
}

// RecordKill stores the night kill. A phase holds at most one kill; a
// second one is refused.
func (l *Ledger) RecordKill(seat Seat) bool {
	p := l.Current()
	if p == nil || p.Killed.Valid() {
		return false
	}
	p.Killed = seat
	return true
}

// RecordRemoved adds seat to the removed set. Recording twice is a no-op.
func (l *Ledger) RecordRemoved(seat Seat) bool {
	p := l.Current()
	if p == nil || !seat.Valid() {
		return false
	}
	p.Removed = p.Removed.Add(seat)
	return true
}

// unrecordRemoved drops seat from the current phase's removed set. It
// backs compensating actions only.
func (l *Ledger) unrecordRemoved(seat Seat) bool {
	p := l.Current()
	if p == nil || !p.Removed.Has(seat) {
		return false
	}
	p.Removed = p.Removed.Remove(seat)
	return true
}

// RecordForfeit stores the forfeit target.
func (l *Ledger) RecordForfeit(seat Seat) bool {
	p := l.Current()
	if p == nil {
		return false
	}
	p.Forfeit = seat
	return true
}

// RecordFoulDelta adds delta (+1 or -1) to the current phase's foul count.
func (l *Ledger) RecordFoulDelta(seat Seat, delta int) bool {
	p := l.Current()
	if p == nil || !seat.Valid() || (delta != 1 && delta != -1) {
		return false
	}
	p.Fouls[seat.index()] += delta
	return true
}

// ResetFoulDelta sets the current phase's foul delta for seat back to 0.
func (l *Ledger) ResetFoulDelta(seat Seat) bool {
	p := l.Current()
	if p == nil || !seat.Valid() {
		return false
	}
	p.Fouls[seat.index()] = 0
	return true
}

// setFoulDelta overwrites the current phase's delta; used when reconciling
// with an authoritative snapshot.
func (l *Ledger) setFoulDelta(seat Seat, delta int) bool {
	p := l.Current()
	if p == nil || !seat.Valid() {
		return false
	}
	p.Fouls[seat.index()] = delta
	return true
}

// RecordVoted stores the candidates put to the vote.
func (l *Ledger) RecordVoted(seats []Seat) bool {
	p := l.Current()
	if p == nil {
		return false
	}
	p.Voted = append(p.Voted[:0], seats...)
	return true
}

// RecordVoteRound appends a confirmed vote summary.
func (l *Ledger) RecordVoteRound(r VoteRound) bool {
	p := l.Current()
	if p == nil {
		return false
	}
	p.Voting = append(p.Voting, r)
	return true
}

// RecordBestMove stores the best-move guesses. Only phase 1 carries a best
// move.
func (l *Ledger) RecordBestMove(seats []Seat) bool {
	p := l.Current()
	if p == nil || p.ID != 1 {
		return false
	}
	p.BestMove = append([]Seat(nil), seats...)
	return true
}

// ---------------------------------------------------------------------------
// Derived state
// ---------------------------------------------------------------------------

// KilledThrough returns every seat killed in phases 1..id.
func (l *Ledger) KilledThrough(id int) SeatSet {
	var s SeatSet
	for i := 0; i < len(l.phases) && l.phases[i].ID <= id; i++ {
		s = s.Add(l.phases[i].Killed)
	}
	return s
}

// RemovedThrough returns every seat voted out, fouled out or forfeited in
// phases 1..id.
func (l *Ledger) RemovedThrough(id int) SeatSet {
	var s SeatSet
	for i := 0; i < len(l.phases) && l.phases[i].ID <= id; i++ {
		s = s.Union(l.phases[i].Removed)
	}
	return s
}

// AliveAt returns {1..NumSeats} minus the killed and removed seats up to
// and including phase id.
func (l *Ledger) AliveAt(id int) SeatSet {
	gone := l.KilledThrough(id).Union(l.RemovedThrough(id))
	return AllSeats() &^ gone
}

// FoulsThrough sums seat's foul deltas over phases 1..id, floored at 0.
func (l *Ledger) FoulsThrough(seat Seat, id int) int {
	if !seat.Valid() {
		return 0
	}
	total := 0
	for i := 0; i < len(l.phases) && l.phases[i].ID <= id; i++ {
		total += l.phases[i].Fouls[seat.index()]
	}
	if total < 0 {
		return 0
	}
	return total
}

// TotalFouls returns seat's cumulative fouls across the whole ledger.
func (l *Ledger) TotalFouls(seat Seat) int {
	return l.FoulsThrough(seat, len(l.phases))
}
