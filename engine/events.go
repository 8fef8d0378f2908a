package engine

// EventKind names a rule outcome the presentation layer can subscribe to.
type EventKind string

const (
	EventStatusChanged       EventKind = "status_changed"
	EventRolesDealt          EventKind = "roles_dealt"
	EventDayStarted          EventKind = "day_started"
	EventNightStarted        EventKind = "night_started"
	EventPlayerNominated     EventKind = "player_nominated"
	EventVotingStarted       EventKind = "voting_started"
	EventShootout            EventKind = "shootout"
	EventVotingStalemate     EventKind = "voting_stalemate"
	EventMultipleElimination EventKind = "multiple_elimination"
	EventPlayerEliminated    EventKind = "player_eliminated"
	EventPlayerRemoved       EventKind = "player_removed"
	EventPlayerRestored      EventKind = "player_restored"
	EventPlayerKilled        EventKind = "player_killed"
	EventNightActionsApplied EventKind = "night_actions_applied"
	EventBestMovePending     EventKind = "best_move_pending"
	EventBestMoveRecorded    EventKind = "best_move_recorded"
	EventFoulChanged         EventKind = "foul_changed"
	EventVictoryDetected     EventKind = "victory_detected"
	EventScoresChanged       EventKind = "scores_changed"
)

// Event is emitted synchronously after the mutation it describes has been
// applied. Fields not relevant to Kind are zero.
type Event struct {
	Kind    EventKind
	Round   int
	Seat    Seat
	Seats   []Seat
	Count   int // fouls for EventFoulChanged, votes for lift polls
	Verdict Verdict
	Status  Status
	Outcome Outcome
}

// emit hands ev to the subscriber, if any.
func (g *Game) emit(ev Event) {
	if g.OnEvent == nil {
		return
	}
	ev.Round = g.Round
	g.OnEvent(ev)
}
