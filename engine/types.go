package engine

import "math/bits"

// NumSeats is the fixed table size. Seats are numbered 1..NumSeats.
const NumSeats = 10

// Seat identifies a table position. The zero value means "no seat" and is
// used for explicit passes (a missed night shot, an empty check).
type Seat uint8

// NoSeat is the absence of a seat.
const NoSeat Seat = 0

// Valid reports whether s is one of the table's seats.
func (s Seat) Valid() bool { return s >= 1 && s <= NumSeats }

// index returns the zero-based array index for a valid seat.
func (s Seat) index() int { return int(s) - 1 }

// ---------------------------------------------------------------------------
// SeatSet: packed set of seats, bit n set means seat n is a member.
// ---------------------------------------------------------------------------

// SeatSet is a bitset over seats 1..NumSeats. Bit 0 is never set.
type SeatSet uint16

// NewSeatSet builds a set from the given seats, ignoring invalid ones.
func NewSeatSet(seats ...Seat) SeatSet {
	var s SeatSet
	for _, seat := range seats {
		s = s.Add(seat)
	}
	return s
}

// Add returns the set with seat added. Invalid seats are ignored.
func (s SeatSet) Add(seat Seat) SeatSet {
	if !seat.Valid() {
		return s
	}
	return s | 1<<seat
}

// Remove returns the set without seat.
func (s SeatSet) Remove(seat Seat) SeatSet {
	if !seat.Valid() {
		return s
	}
	return s &^ (1 << seat)
}

// Has reports whether seat is in the set.
func (s SeatSet) Has(seat Seat) bool { return seat.Valid() && s&(1<<seat) != 0 }

// Len returns the number of seats in the set.
func (s SeatSet) Len() int { return bits.OnesCount16(uint16(s)) }

// Union returns s ∪ o.
func (s SeatSet) Union(o SeatSet) SeatSet { return s | o }

// Seats returns the members in ascending order.
func (s SeatSet) Seats() []Seat {
	out := make([]Seat, 0, s.Len())
	for seat := Seat(1); seat <= NumSeats; seat++ {
		if s.Has(seat) {
			out = append(out, seat)
		}
	}
	return out
}

// AllSeats is the set {1..NumSeats}.
func AllSeats() SeatSet {
	var s SeatSet
	for seat := Seat(1); seat <= NumSeats; seat++ {
		s = s.Add(seat)
	}
	return s
}

// ---------------------------------------------------------------------------
// Roles and teams
// ---------------------------------------------------------------------------

// Role is a player's secret card.
type Role uint8

const (
	RoleCivilian Role = iota // 0
	RoleMafia                // 1
	RoleDon                  // 2
	RoleSheriff              // 3
)

// String returns the wire name of the role.
func (r Role) String() string {
	switch r {
	case RoleCivilian:
		return "civilian"
	case RoleMafia:
		return "mafia"
	case RoleDon:
		return "don"
	case RoleSheriff:
		return "sheriff"
	default:
		return "unknown"
	}
}

// ParseRole converts a wire name back to a Role.
func ParseRole(s string) (Role, bool) {
	switch s {
	case "civilian":
		return RoleCivilian, true
	case "mafia":
		return RoleMafia, true
	case "don":
		return RoleDon, true
	case "sheriff":
		return RoleSheriff, true
	}
	return RoleCivilian, false
}

// Team is the alignment used in win-condition arithmetic.
type Team uint8

const (
	TeamCity  Team = iota // civilians and the sheriff
	TeamMafia             // mafia and the don
)

// Team returns the alignment of the role.
func (r Role) Team() Team {
	if r == RoleMafia || r == RoleDon {
		return TeamMafia
	}
	return TeamCity
}

// ---------------------------------------------------------------------------
// Session status
// ---------------------------------------------------------------------------

// Status is the coarse lifecycle state of a session.
type Status string

const (
	StatusCreated            Status = "created"
	StatusSeatingReady       Status = "seating_ready"
	StatusRoleDistribution   Status = "role_distribution"
	StatusNegotiation        Status = "negotiation"
	StatusFreeSeating        Status = "free_seating"
	StatusInProgress         Status = "in_progress"
	StatusFinishedNoScores   Status = "finished_no_scores"
	StatusFinishedWithScores Status = "finished_with_scores"
	StatusCancelled          Status = "cancelled"
)

// statusOrder ranks the forward lifecycle. Cancelled sits outside it.
var statusOrder = map[Status]int{
	StatusCreated:            0,
	StatusSeatingReady:       1,
	StatusRoleDistribution:   2,
	StatusNegotiation:        3,
	StatusFreeSeating:        4,
	StatusInProgress:         5,
	StatusFinishedNoScores:   6,
	StatusFinishedWithScores: 7,
}

// Known reports whether s is one of the defined statuses.
func (s Status) Known() bool {
	_, ok := statusOrder[s]
	return ok || s == StatusCancelled
}

// Finished reports whether the session accepts no more rule mutations.
func (s Status) Finished() bool {
	return s == StatusFinishedNoScores || s == StatusFinishedWithScores || s == StatusCancelled
}

// Started reports whether roles are frozen (the game began at some point).
func (s Status) Started() bool {
	return s == StatusInProgress || s == StatusFinishedNoScores || s == StatusFinishedWithScores
}

// Substatus is the fine-grained stage inside an in-progress game.
type Substatus string

const (
	SubstatusNone               Substatus = ""
	SubstatusDiscussion         Substatus = "discussion"
	SubstatusCriticalDiscussion Substatus = "critical_discussion"
	SubstatusVoting             Substatus = "voting"
	SubstatusNight              Substatus = "night"
	SubstatusBestMove           Substatus = "best_move"
)

// Result is the final verdict reported to the persistence layer.
type Result string

const (
	ResultNone      Result = ""
	ResultCityWin   Result = "city_win"
	ResultMafiaWin  Result = "mafia_win"
	ResultDraw      Result = "draw"
	ResultCancelled Result = "cancelled"
)

// Winner is the outcome of a win-condition evaluation.
type Winner uint8

const (
	WinnerNone Winner = iota
	WinnerCity
	WinnerMafia
	WinnerDraw
)

// String returns the wire name of the winner.
func (w Winner) String() string {
	switch w {
	case WinnerCity:
		return "city"
	case WinnerMafia:
		return "mafia"
	case WinnerDraw:
		return "draw"
	default:
		return "none"
	}
}

// Result maps a winner to the persisted result value.
func (w Winner) Result() Result {
	switch w {
	case WinnerCity:
		return ResultCityWin
	case WinnerMafia:
		return ResultMafiaWin
	case WinnerDraw:
		return ResultDraw
	default:
		return ResultNone
	}
}

// WinReason explains why the game ended.
type WinReason string

const (
	ReasonNone               WinReason = ""
	ReasonAllMafiaEliminated WinReason = "all_mafia_eliminated"
	ReasonMafiaMajority      WinReason = "mafia_majority"
	ReasonNoCandidates       WinReason = "no_candidates"
)

// Outcome is a win-condition verdict.
type Outcome struct {
	Winner Winner
	Reason WinReason
}

// Over reports whether the outcome ends the game.
func (o Outcome) Over() bool { return o.Winner != WinnerNone }
