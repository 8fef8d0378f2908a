// internal/models/phase.go
package models

import (
	"fmt"

	engine "github.com/MafiaJoker/mafia-game-sub000/engine"
)

// SeatCount is a {seat, count} pair used for foul deltas and vote tallies.
type SeatCount struct {
	Seat  int `json:"seat"`
	Count int `json:"count"`
}

// VoteSummary is one confirmed vote inside a phase.
type VoteSummary struct {
	Candidates []int       `json:"candidates"`
	Tally      []SeatCount `json:"tally,omitempty"`
	Verdict    string      `json:"verdict"`
	Seats      []int       `json:"seats,omitempty"`
	LiftVotes  int         `json:"lift_votes,omitempty"`
}

// PhaseRecord is the wire form of one ledger phase. Optional seats are null
// when nothing happened.
type PhaseRecord struct {
	PhaseID            int           `json:"phase_id"`
	DonCheckedSeat     *int          `json:"don_checked_seat"`
	SheriffCheckedSeat *int          `json:"sheriff_checked_seat"`
	KilledSeat         *int          `json:"killed_seat"`
	RemovedSeats       []int         `json:"removed_seats"`
	VotedSeats         []int         `json:"voted_seats"`
	ForfeitSeat        *int          `json:"forfeit_seat"`
	FoulsDelta         []SeatCount   `json:"fouls_delta"`
	VotingSummary      []VoteSummary `json:"voting_summary"`
	BestMove           []int         `json:"best_move"`
}

func optSeat(s engine.Seat) *int {
	if !s.Valid() {
		return nil
	}
	v := int(s)
	return &v
}

func seatInts(seats []engine.Seat) []int {
	out := make([]int, len(seats))
	for i, s := range seats {
		out[i] = int(s)
	}
	return out
}

// PhaseFromEngine converts a ledger phase to its wire record. Seats with a
// zero foul delta are omitted.
func PhaseFromEngine(p engine.Phase) PhaseRecord {
	rec := PhaseRecord{
		PhaseID:            p.ID,
		DonCheckedSeat:     optSeat(p.DonCheck),
		SheriffCheckedSeat: optSeat(p.SheriffCheck),
		KilledSeat:         optSeat(p.Killed),
		RemovedSeats:       seatInts(p.Removed.Seats()),
		VotedSeats:         seatInts(p.Voted),
		ForfeitSeat:        optSeat(p.Forfeit),
		FoulsDelta:         []SeatCount{},
		VotingSummary:      []VoteSummary{},
		BestMove:           seatInts(p.BestMove),
	}
	for seat := engine.Seat(1); seat <= engine.NumSeats; seat++ {
		if d := p.FoulDelta(seat); d != 0 {
			rec.FoulsDelta = append(rec.FoulsDelta, SeatCount{Seat: int(seat), Count: d})
		}
	}
	for _, r := range p.Voting {
		vs := VoteSummary{
			Candidates: seatInts(r.Candidates),
			Verdict:    string(r.Verdict),
			Seats:      seatInts(r.Seats),
			LiftVotes:  r.LiftVotes,
		}
		for _, sc := range r.Tally {
			vs.Tally = append(vs.Tally, SeatCount{Seat: int(sc.Seat), Count: sc.Count})
		}
		rec.VotingSummary = append(rec.VotingSummary, vs)
	}
	return rec
}

func toSeat(v int) (engine.Seat, error) {
	s := engine.Seat(v)
	if v < 1 || v > engine.NumSeats {
		return engine.NoSeat, fmt.Errorf("%w %d", engine.ErrInvalidSeat, v)
	}
	return s, nil
}

func toOptSeat(v *int) (engine.Seat, error) {
	if v == nil || *v == 0 {
		return engine.NoSeat, nil
	}
	return toSeat(*v)
}

func toSeats(vs []int) ([]engine.Seat, error) {
	if len(vs) == 0 {
		return nil, nil
	}
	out := make([]engine.Seat, len(vs))
	for i, v := range vs {
		s, err := toSeat(v)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

// ToEngine validates the record and converts it back to a ledger phase.
func (r PhaseRecord) ToEngine() (engine.Phase, error) {
	p := engine.Phase{ID: r.PhaseID}
	var err error
	if p.DonCheck, err = toOptSeat(r.DonCheckedSeat); err != nil {
		return p, fmt.Errorf("phase %d don check: %w", r.PhaseID, err)
	}
	if p.SheriffCheck, err = toOptSeat(r.SheriffCheckedSeat); err != nil {
		return p, fmt.Errorf("phase %d sheriff check: %w", r.PhaseID, err)
	}
	if p.Killed, err = toOptSeat(r.KilledSeat); err != nil {
		return p, fmt.Errorf("phase %d kill: %w", r.PhaseID, err)
	}
	if p.Forfeit, err = toOptSeat(r.ForfeitSeat); err != nil {
		return p, fmt.Errorf("phase %d forfeit: %w", r.PhaseID, err)
	}
	removed, err := toSeats(r.RemovedSeats)
	if err != nil {
		return p, fmt.Errorf("phase %d removed: %w", r.PhaseID, err)
	}
	p.Removed = engine.NewSeatSet(removed...)
	if p.Voted, err = toSeats(r.VotedSeats); err != nil {
		return p, fmt.Errorf("phase %d voted: %w", r.PhaseID, err)
	}
	if len(r.BestMove) > 3 {
		return p, fmt.Errorf("phase %d: best move names %d seats", r.PhaseID, len(r.BestMove))
	}
	if p.BestMove, err = toSeats(r.BestMove); err != nil {
		return p, fmt.Errorf("phase %d best move: %w", r.PhaseID, err)
	}
	for _, fd := range r.FoulsDelta {
		s, err := toSeat(fd.Seat)
		if err != nil {
			return p, fmt.Errorf("phase %d fouls: %w", r.PhaseID, err)
		}
		p.Fouls[int(s)-1] += fd.Count
	}
	for i, vs := range r.VotingSummary {
		round := engine.VoteRound{Verdict: engine.Verdict(vs.Verdict), LiftVotes: vs.LiftVotes}
		if round.Candidates, err = toSeats(vs.Candidates); err != nil {
			return p, fmt.Errorf("phase %d vote %d: %w", r.PhaseID, i, err)
		}
		if round.Seats, err = toSeats(vs.Seats); err != nil {
			return p, fmt.Errorf("phase %d vote %d: %w", r.PhaseID, i, err)
		}
		for _, sc := range vs.Tally {
			s, err := toSeat(sc.Seat)
			if err != nil {
				return p, fmt.Errorf("phase %d vote %d: %w", r.PhaseID, i, err)
			}
			round.Tally = append(round.Tally, engine.SeatCount{Seat: s, Count: sc.Count})
		}
		p.Voting = append(p.Voting, round)
	}
	return p, nil
}

// PhasesFromEngine converts a whole ledger.
func PhasesFromEngine(phases []engine.Phase) []PhaseRecord {
	out := make([]PhaseRecord, len(phases))
	for i, p := range phases {
		out[i] = PhaseFromEngine(p)
	}
	return out
}

// PhasesToEngine converts wire records back to ledger phases, in order.
func PhasesToEngine(recs []PhaseRecord) ([]engine.Phase, error) {
	out := make([]engine.Phase, len(recs))
	for i, r := range recs {
		p, err := r.ToEngine()
		if err != nil {
			return nil, err
		}
		out[i] = p
	}
	return out, nil
}
