// internal/game/engine_adapter.go
package game

import (
	"reflect"

	engine "github.com/MafiaJoker/mafia-game-sub000/engine"
	"github.com/MafiaJoker/mafia-game-sub000/internal/models"
)

// onEngineEvent translates a rule outcome into a GameEvent, logs it and
// stages the status writes it implies. Silence and score changes mark the
// roster for the next flush. Engine events fire while the session lock is
// held.
func (s *Session) onEngineEvent(ev engine.Event) {
	out := GameEvent{
		Type:  GameEventType(ev.Kind),
		Round: ev.Round,
		Seats: seatInts(ev.Seats),
	}
	if ev.Seat.Valid() {
		p, _ := s.Game.Player(ev.Seat)
		out.Seat = &EventSeat{Seat: int(ev.Seat), Name: p.Name}
	}
	payload := map[string]interface{}{}
	switch ev.Kind {
	case engine.EventFoulChanged:
		payload["fouls"] = ev.Count
		s.playersDirty = true
	case engine.EventDayStarted:
		// silence flags move at every day after the first
		if ev.Round > 0 {
			s.playersDirty = true
		}
	case engine.EventVotingStalemate:
		payload["verdict"] = string(ev.Verdict)
		payload["stalemate"] = ev.Count
	case engine.EventShootout, engine.EventMultipleElimination:
		payload["verdict"] = string(ev.Verdict)
	case engine.EventPlayerEliminated:
		payload["verdict"] = string(ev.Verdict)
		if ev.Count > 0 {
			payload["liftVotes"] = ev.Count
		}
	case engine.EventPlayerNominated:
		payload["nominatedBy"] = out.Seats
		out.Seats = nil
	case engine.EventNightActionsApplied:
		payload["missed"] = !ev.Seat.Valid()
	case engine.EventStatusChanged:
		payload["status"] = string(ev.Status)
		if ev.Status.Finished() {
			payload["result"] = string(s.Game.Result)
		}
		s.stageStatus(ev.Status)
	case engine.EventVictoryDetected:
		payload["winner"] = ev.Outcome.Winner.String()
		payload["reason"] = string(ev.Outcome.Reason)
		payload["result"] = string(ev.Outcome.Winner.Result())
		if s.OnGameEnd != nil {
			s.OnGameEnd(s.ID, ev.Outcome.Winner.Result(), ev.Outcome)
		}
	case engine.EventScoresChanged:
		s.playersDirty = true
	}
	if len(payload) > 0 {
		out.Payload = payload
	}
	s.logAction("game_"+string(ev.Kind), payload)
	s.fireEvent(out)
}

func seatInts(seats []engine.Seat) []int {
	if len(seats) == 0 {
		return nil
	}
	out := make([]int, len(seats))
	for i, seat := range seats {
		out[i] = int(seat)
	}
	return out
}

// stage hands w to the stager, tagging it with the session's failure
// callback. Assumes lock is held by caller.
func (s *Session) stage(w Write) {
	if s.stager == nil {
		return
	}
	w.GameID = s.ID
	s.stager.Stage(w, s.writeFailed)
}

// stageStatus stages the status update and, when the game starts, the
// frozen roster. Assumes lock is held by caller.
func (s *Session) stageStatus(status engine.Status) {
	if status == engine.StatusInProgress {
		s.stage(Write{Kind: WriteCreatePlayers, Players: models.PlayersFromEngine(s.Game)})
		s.playersDirty = false
	}
	s.stage(Write{Kind: WriteUpdateStatus, Status: string(status), Result: string(s.Game.Result)})
}

// flush stages every phase that changed since it was last handed to the
// backend, plus the roster when names or scores moved.
// Assumes lock is held by caller.
func (s *Session) flush() {
	if s.stager == nil {
		return
	}
	for i, p := range s.Game.Ledger.Phases() {
		rec := models.PhaseFromEngine(p)
		switch {
		case i >= len(s.synced):
			s.stage(Write{Kind: WriteCreatePhase, Phase: &rec})
			s.synced = append(s.synced, rec)
		case !reflect.DeepEqual(rec, s.synced[i]):
			s.stage(Write{Kind: WriteUpdatePhase, Phase: &rec})
			s.synced[i] = rec
		}
	}
	if s.playersDirty {
		s.stage(Write{Kind: WriteAddPlayers, Players: models.PlayersFromEngine(s.Game)})
		s.playersDirty = false
	}
}

// markSynced records rec as acknowledged by the backend.
// Assumes lock is held by caller.
func (s *Session) markSynced(rec models.PhaseRecord) {
	i := rec.PhaseID - 1
	switch {
	case i < 0:
	case i < len(s.synced):
		s.synced[i] = rec
	case i == len(s.synced):
		s.synced = append(s.synced, rec)
	}
}

// syncedFoulDelta is the foul delta for seat last handed to the backend in
// phase id. Assumes lock is held by caller.
func (s *Session) syncedFoulDelta(id int, seat engine.Seat) int {
	if id < 1 || id > len(s.synced) {
		return 0
	}
	return foulDeltaOf(s.synced[id-1], seat)
}

func foulDeltaOf(rec models.PhaseRecord, seat engine.Seat) int {
	for _, f := range rec.FoulsDelta {
		if f.Seat == int(seat) {
			return f.Count
		}
	}
	return 0
}
