// internal/game/game.go
package game

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	engine "github.com/MafiaJoker/mafia-game-sub000/engine"
	"github.com/MafiaJoker/mafia-game-sub000/internal/cache"
	"github.com/MafiaJoker/mafia-game-sub000/internal/models"
)

// ErrNoBackend is returned by operations that need the remote store when the
// session runs without one.
var ErrNoBackend = errors.New("session has no backend")

// OnGameEndFunc is called once a game reaches a verdict.
type OnGameEndFunc func(gameID int64, result engine.Result, outcome engine.Outcome)

// GameEventType is the wire name of a GameEvent.
type GameEventType string

// Event types sent to table displays and the judge console.
const (
	EventStatusChanged       GameEventType = "status_changed"
	EventRolesDealt          GameEventType = "roles_dealt"
	EventDayStarted          GameEventType = "day_started"
	EventNightStarted        GameEventType = "night_started"
	EventPlayerNominated     GameEventType = "player_nominated"
	EventVotingStarted       GameEventType = "voting_started"
	EventShootout            GameEventType = "shootout"
	EventVotingStalemate     GameEventType = "voting_stalemate"
	EventMultipleElimination GameEventType = "multiple_elimination"
	EventPlayerEliminated    GameEventType = "player_eliminated"
	EventPlayerRemoved       GameEventType = "player_removed"
	EventPlayerRestored      GameEventType = "player_restored"
	EventPlayerKilled        GameEventType = "player_killed"
	EventNightActionsApplied GameEventType = "night_actions_applied"
	EventBestMovePending     GameEventType = "best_move_pending"
	EventBestMoveRecorded    GameEventType = "best_move_recorded"
	EventFoulChanged         GameEventType = "foul_changed"
	EventVictoryDetected     GameEventType = "victory_detected"
	EventScoresChanged       GameEventType = "scores_changed"
	EventPersistFailed       GameEventType = "persist_failed" // a remote write was parked in the outbox
	EventSyncState           GameEventType = "sync_state"     // full table view
)

// EventSeat identifies a seat within a GameEvent.
type EventSeat struct {
	Seat int    `json:"seat"`
	Name string `json:"name,omitempty"`
}

// GameEvent is the structure broadcast to subscribers of a game.
type GameEvent struct {
	Type   GameEventType `json:"type"`
	GameID int64         `json:"gameId"`
	Round  int           `json:"round"`
	Seat   *EventSeat    `json:"seat,omitempty"`
	Seats  []int         `json:"seats,omitempty"`

	Payload map[string]interface{} `json:"payload,omitempty"`

	State *TableState `json:"state,omitempty"` // set on sync_state only
}

// Deps are the collaborators shared by every session of a process. Any of
// them may be nil; a session without a backend stays in memory only.
type Deps struct {
	Backend   Backend
	Stager    *Stager
	Historian Historian
	Rules     engine.Rules
	Log       *logrus.Entry

	// Broadcast fans an event out to the subscribers of gameID.
	Broadcast func(gameID int64, ev GameEvent)
	OnGameEnd OnGameEndFunc
}

// rules returns the configured rules, falling back to the standard ones.
func (d Deps) rules() engine.Rules {
	if d.Rules == (engine.Rules{}) {
		return engine.DefaultRules()
	}
	return d.Rules
}

// Session is one live game: the rule engine plus event fan-out, action
// logging and persistence.
type Session struct {
	ID   int64
	Game *engine.Game
	Mu   sync.Mutex

	BroadcastFn func(ev GameEvent)
	OnGameEnd   OnGameEndFunc

	backend   Backend
	stager    *Stager
	historian Historian
	log       *logrus.Entry

	actionIndex  int
	actor        string               // judge issuing the action being handled
	synced       []models.PhaseRecord // phases as last handed to the backend
	playersDirty bool
	failedWrites atomic.Int64

	// historian records wait here and leave in action index order
	histMu      sync.Mutex
	histPending []cache.GameActionRecord
	histBusy    bool
}

// NewSession returns a default-initialized session for id.
func NewSession(id int64, deps Deps) *Session {
	s := newSession(id, deps)
	s.attach(engine.NewGame(id, deps.rules()))
	return s
}

// RestoreSession rebuilds a session from a backend record and its phase log.
// The restored phases count as already synced.
func RestoreSession(rec models.GameRecord, state models.GameState, deps Deps) (*Session, error) {
	saved, err := rec.Saved(state)
	if err != nil {
		return nil, err
	}
	g, err := engine.Restore(saved, deps.rules())
	if err != nil {
		return nil, err
	}
	s := newSession(rec.ID, deps)
	s.attach(g)
	s.synced = models.PhasesFromEngine(g.Ledger.Phases())
	return s, nil
}

func newSession(id int64, deps Deps) *Session {
	log := deps.Log
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	s := &Session{
		ID:        id,
		OnGameEnd: deps.OnGameEnd,
		backend:   deps.Backend,
		stager:    deps.Stager,
		historian: deps.Historian,
		log:       log.WithField("game_id", id),
	}
	if deps.Broadcast != nil {
		broadcast := deps.Broadcast
		s.BroadcastFn = func(ev GameEvent) { broadcast(id, ev) }
	}
	return s
}

func (s *Session) attach(g *engine.Game) {
	s.Game = g
	g.OnEvent = s.onEngineEvent
}

// FailedWrites returns how many remote writes of this session were parked.
func (s *Session) FailedWrites() int64 { return s.failedWrites.Load() }

// fireEvent broadcasts an event to every subscriber of the game.
// Assumes lock is held by caller.
func (s *Session) fireEvent(ev GameEvent) {
	ev.GameID = s.ID
	if s.BroadcastFn == nil {
		s.log.WithField("event", ev.Type).Debug("no broadcaster, event dropped")
		return
	}
	s.BroadcastFn(ev)
}

// broadcastSyncState sends the public table view to every subscriber.
// Assumes lock is held by caller.
func (s *Session) broadcastSyncState() {
	state := s.tableView()
	s.fireEvent(GameEvent{Type: EventSyncState, Round: s.Game.Round, State: &state})
}

// logAction queues an action record for the historian without blocking the
// caller. Records of one game are published one at a time in ActionIndex
// order. Assumes lock is held by caller.
func (s *Session) logAction(actionType string, payload map[string]interface{}) {
	s.actionIndex++
	if payload == nil {
		payload = make(map[string]interface{})
	}
	if s.historian == nil {
		return
	}
	record := cache.GameActionRecord{
		ID:            uuid.New(),
		GameID:        s.ID,
		ActionIndex:   s.actionIndex,
		Actor:         s.actor,
		ActionType:    actionType,
		ActionPayload: payload,
		Timestamp:     time.Now().UnixMilli(),
	}
	s.histMu.Lock()
	s.histPending = append(s.histPending, record)
	start := !s.histBusy
	s.histBusy = true
	s.histMu.Unlock()
	if start {
		go s.publishActions()
	}
}

// publishActions drains the historian queue and exits once it is empty.
func (s *Session) publishActions() {
	for {
		s.histMu.Lock()
		if len(s.histPending) == 0 {
			s.histBusy = false
			s.histMu.Unlock()
			return
		}
		rec := s.histPending[0]
		s.histPending = s.histPending[1:]
		s.histMu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err := s.historian.PublishGameAction(ctx, rec)
		cancel()
		if err != nil {
			s.log.WithFields(logrus.Fields{
				"action_index": rec.ActionIndex,
				"action":       rec.ActionType,
			}).WithError(err).Error("failed publishing action to historian")
		}
	}
}

// writeFailed reports a parked write. It runs on the stager's goroutine or
// inside Stage, so it must not take the session lock.
func (s *Session) writeFailed(w Write, err error) {
	s.failedWrites.Add(1)
	s.log.WithField("kind", w.Kind).WithError(err).Warn("remote write parked")
	if s.BroadcastFn == nil {
		return
	}
	payload := map[string]interface{}{"kind": string(w.Kind), "error": err.Error()}
	if w.Phase != nil {
		payload["phaseId"] = w.Phase.PhaseID
	}
	s.BroadcastFn(GameEvent{Type: EventPersistFailed, GameID: s.ID, Payload: payload})
}
