// internal/game/judge_actions.go
package game

import (
	"context"
	"errors"
	"fmt"
	"math"

	engine "github.com/MafiaJoker/mafia-game-sub000/engine"
	"github.com/MafiaJoker/mafia-game-sub000/internal/models"
)

// Judge action types accepted by HandleJudgeAction.
const (
	ActionSetPlayer          = "set_player"
	ActionRemovePlayer       = "remove_player"
	ActionSetStatus          = "set_status"
	ActionAssignRole         = "assign_role"
	ActionCycleRole          = "cycle_role"
	ActionShuffleRoles       = "shuffle_roles"
	ActionStartGame          = "start_game"
	ActionCancel             = "cancel"
	ActionNominate           = "nominate"
	ActionWithdrawNomination = "withdraw_nomination"
	ActionStartVoting        = "start_voting"
	ActionVote               = "vote"
	ActionConfirmVoting      = "confirm_voting"
	ActionResolveLift        = "resolve_lift"
	ActionFoul               = "foul"
	ActionRemoveFoul         = "remove_foul"
	ActionResetFouls         = "reset_fouls"
	ActionForfeit            = "forfeit"
	ActionStartNight         = "start_night"
	ActionCheckSheriff       = "check_sheriff"
	ActionCheckDon           = "check_don"
	ActionMafiaTarget        = "mafia_target"
	ActionDonTarget          = "don_target"
	ActionSheriffTarget      = "sheriff_target"
	ActionConfirmNight       = "confirm_night"
	ActionBestMove           = "best_move"
	ActionSkipBestMove       = "skip_best_move"
	ActionSetScore           = "set_score"
	ActionFinalizeScores     = "finalize_scores"
	ActionSavePhase          = "save_phase"
	ActionSync               = "sync"
)

// errRejected marks a rule no-op: the action was valid input but the game
// state did not allow it.
var errRejected = errors.New("action not allowed in the current state")

// HandleJudgeAction routes a console command to the matching game
// operation. Successful actions are logged, staged for persistence and
// followed by a table sync.
func (s *Session) HandleJudgeAction(ctx context.Context, actor string, action models.GameAction) models.ActionResult {
	s.Mu.Lock()
	defer s.Mu.Unlock()

	s.actor = actor
	defer func() { s.actor = "" }()

	entry := s.log.WithField("action", action.ActionType)
	data, err := s.route(ctx, action)
	// A refused action may still have moved state, e.g. a foul-out the
	// backend then rejected.
	s.flush()
	if err != nil {
		entry.WithError(err).Debug("judge action refused")
		return models.ActionResult{OK: false, Message: err.Error()}
	}
	s.logAction("judge_"+action.ActionType, action.Payload)
	if action.ActionType != ActionSync {
		s.broadcastSyncState()
	}
	return models.ActionResult{OK: true, Data: data}
}

// route dispatches one action. Assumes lock is held by caller.
func (s *Session) route(ctx context.Context, action models.GameAction) (map[string]interface{}, error) {
	g := s.Game
	p := action.Payload
	switch action.ActionType {
	case ActionSync:
		return map[string]interface{}{"state": s.judgeView()}, nil

	case ActionSetPlayer, ActionRemovePlayer:
		seat, err := seatArg(p, "seat")
		if err != nil {
			return nil, err
		}
		name := ""
		if action.ActionType == ActionSetPlayer {
			name, _ = p["name"].(string)
		}
		if !g.SetPlayer(seat, name) {
			return nil, errRejected
		}
		s.playersDirty = true
		return nil, nil

	case ActionSetStatus:
		status, _ := p["status"].(string)
		return nil, g.SetStatus(engine.Status(status))

	case ActionAssignRole:
		seat, err := seatArg(p, "seat")
		if err != nil {
			return nil, err
		}
		name, _ := p["role"].(string)
		role, ok := engine.ParseRole(name)
		if !ok {
			return nil, fmt.Errorf("unknown role %q", name)
		}
		if !g.AssignRole(seat, role) {
			return nil, errRejected
		}
		s.playersDirty = true
		return nil, nil

	case ActionCycleRole:
		seat, err := seatArg(p, "seat")
		if err != nil {
			return nil, err
		}
		role, ok := g.CycleRole(seat)
		if !ok {
			return nil, errRejected
		}
		s.playersDirty = true
		return map[string]interface{}{"role": role.String()}, nil

	case ActionShuffleRoles:
		if !g.ShuffleRoles() {
			return nil, errRejected
		}
		s.playersDirty = true
		return nil, nil

	case ActionStartGame:
		return nil, g.StartGame()

	case ActionCancel:
		return nil, allowed(g.Cancel())

	case ActionNominate:
		by, err := seatArg(p, "by")
		if err != nil {
			return nil, err
		}
		target, err := seatArg(p, "target")
		if err != nil {
			return nil, err
		}
		return nil, allowed(g.Nominate(by, target))

	case ActionWithdrawNomination:
		by, err := seatArg(p, "by")
		if err != nil {
			return nil, err
		}
		return nil, allowed(g.WithdrawNomination(by))

	case ActionStartVoting:
		seats := g.Nominated
		if _, given := p["seats"]; given {
			var err error
			if seats, err = seatsArg(p, "seats"); err != nil {
				return nil, err
			}
		}
		return nil, allowed(g.StartVoting(seats))

	case ActionVote:
		seat, err := seatArg(p, "seat")
		if err != nil {
			return nil, err
		}
		count, err := intArg(p, "count")
		if err != nil {
			return nil, err
		}
		return nil, allowed(g.RegisterVote(seat, count))

	case ActionConfirmVoting:
		return votingData(g.ConfirmVoting()), nil

	case ActionResolveLift:
		votes, err := intArg(p, "votes")
		if err != nil {
			return nil, err
		}
		res := g.ResolveLift(votes)
		if res == nil {
			return nil, errRejected
		}
		return votingData(res), nil

	case ActionFoul, ActionRemoveFoul, ActionResetFouls:
		seat, err := seatArg(p, "seat")
		if err != nil {
			return nil, err
		}
		delta := map[string]int{ActionFoul: 1, ActionRemoveFoul: -1, ActionResetFouls: 0}[action.ActionType]
		total, err := s.adjustFoul(ctx, seat, delta)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"fouls": total}, nil

	case ActionForfeit:
		seat, err := seatArg(p, "seat")
		if err != nil {
			return nil, err
		}
		return nil, allowed(g.Forfeit(seat))

	case ActionStartNight:
		return nil, allowed(g.StartNight())

	case ActionCheckSheriff, ActionCheckDon:
		target, err := seatArg(p, "target")
		if err != nil {
			return nil, err
		}
		var hit, done bool
		if action.ActionType == ActionCheckSheriff {
			hit, done = g.CheckSheriff(target)
		} else {
			hit, done = g.CheckDon(target)
		}
		if !done {
			return nil, errRejected
		}
		return map[string]interface{}{"hit": hit}, nil

	case ActionMafiaTarget, ActionDonTarget, ActionSheriffTarget:
		target, err := targetArg(p, "target")
		if err != nil {
			return nil, err
		}
		set := map[string]func(engine.Seat) bool{
			ActionMafiaTarget:   g.SetMafiaTarget,
			ActionDonTarget:     g.SetDonTarget,
			ActionSheriffTarget: g.SetSheriffTarget,
		}[action.ActionType]
		return nil, allowed(set(target))

	case ActionConfirmNight:
		return nil, allowed(g.ConfirmNight())

	case ActionBestMove:
		seats, err := seatsArg(p, "seats")
		if err != nil {
			return nil, err
		}
		if err := g.ResolveBestMove(seats); err != nil {
			return nil, err
		}
		return map[string]interface{}{"hits": g.BestMoveHits()}, nil

	case ActionSkipBestMove:
		return nil, g.SkipBestMove()

	case ActionSetScore:
		seat, err := seatArg(p, "seat")
		if err != nil {
			return nil, err
		}
		base, err := floatArg(p, "base")
		if err != nil {
			return nil, err
		}
		bonus, err := floatArg(p, "bonus")
		if err != nil {
			return nil, err
		}
		if err := g.SetPlayerScore(seat, base, bonus); err != nil {
			return nil, err
		}
		return map[string]interface{}{"total": g.TotalScore(seat)}, nil

	case ActionFinalizeScores:
		return nil, g.FinalizeScores()

	case ActionSavePhase:
		if !s.SavePhase(ctx) {
			return nil, errors.New("phase save failed")
		}
		return nil, nil
	}
	return nil, fmt.Errorf("unknown action type %q", action.ActionType)
}

// adjustFoul goes through the backend when there is one.
// Assumes lock is held by caller.
func (s *Session) adjustFoul(ctx context.Context, seat engine.Seat, delta int) (int, error) {
	if s.backend != nil {
		return s.AdjustFoul(ctx, seat, delta)
	}
	var (
		total int
		done  bool
	)
	switch {
	case delta > 0:
		total, done = s.Game.AddFoul(seat)
	case delta < 0:
		total, done = s.Game.RemoveFoul(seat)
	default:
		total, done = s.Game.ResetFouls(seat)
	}
	if !done {
		return 0, errRejected
	}
	return total, nil
}

func allowed(done bool) error {
	if !done {
		return errRejected
	}
	return nil
}

func votingData(res *engine.VotingResult) map[string]interface{} {
	if res == nil {
		return map[string]interface{}{"result": nil}
	}
	return map[string]interface{}{
		"result":  string(res.Verdict),
		"players": seatInts(res.Seats),
	}
}

// ---------------------------------------------------------------------------
// Payload parsing. JSON numbers arrive as float64.
// ---------------------------------------------------------------------------

func intArg(p map[string]interface{}, key string) (int, error) {
	v, found := p[key].(float64)
	if !found {
		return 0, fmt.Errorf("missing or invalid %q", key)
	}
	if v != math.Trunc(v) {
		return 0, fmt.Errorf("%q must be a whole number", key)
	}
	return int(v), nil
}

func floatArg(p map[string]interface{}, key string) (float64, error) {
	v, found := p[key].(float64)
	if !found {
		return 0, fmt.Errorf("missing or invalid %q", key)
	}
	return v, nil
}

func seatArg(p map[string]interface{}, key string) (engine.Seat, error) {
	n, err := intArg(p, key)
	if err != nil {
		return engine.NoSeat, err
	}
	if n >= 1 && n <= engine.NumSeats {
		return engine.Seat(n), nil
	}
	return engine.NoSeat, fmt.Errorf("%w %d", engine.ErrInvalidSeat, n)
}

// targetArg accepts a seat, or null/0 for an explicit miss.
func targetArg(p map[string]interface{}, key string) (engine.Seat, error) {
	if v, present := p[key]; !present || v == nil {
		return engine.NoSeat, nil
	}
	if n, _ := p[key].(float64); n == 0 {
		return engine.NoSeat, nil
	}
	return seatArg(p, key)
}

func seatsArg(p map[string]interface{}, key string) ([]engine.Seat, error) {
	raw, present := p[key]
	if !present || raw == nil {
		return nil, nil
	}
	list, isList := raw.([]interface{})
	if !isList {
		return nil, fmt.Errorf("%q must be a list of seats", key)
	}
	out := make([]engine.Seat, 0, len(list))
	for i, v := range list {
		seat, err := seatArg(map[string]interface{}{key: v}, key)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", key, i, err)
		}
		out = append(out, seat)
	}
	return out, nil
}
