// internal/game/persist.go
package game

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	engine "github.com/MafiaJoker/mafia-game-sub000/engine"
	"github.com/MafiaJoker/mafia-game-sub000/internal/models"
)

// applyNow runs w against the backend synchronously, through the stager's
// retry policy when there is one. Assumes lock is held by caller.
func (s *Session) applyNow(ctx context.Context, w Write) error {
	if s.backend == nil {
		return ErrNoBackend
	}
	w.GameID = s.ID
	if s.stager != nil {
		return s.stager.Apply(ctx, w)
	}
	return w.apply(ctx, s.backend)
}

// phaseWrite builds the create or update write for rec depending on
// whether the backend has seen the phase. Assumes lock is held by caller.
func (s *Session) phaseWrite(rec models.PhaseRecord) Write {
	kind := WriteUpdatePhase
	if rec.PhaseID > len(s.synced) {
		kind = WriteCreatePhase
	}
	return Write{Kind: kind, Phase: &rec}
}

// SavePhase writes the current phase to the backend and waits for the
// result. A failure is logged and reported; the local game is untouched.
// Assumes lock is held by caller.
func (s *Session) SavePhase(ctx context.Context) bool {
	cur := s.Game.Ledger.Current()
	if cur == nil {
		return false
	}
	// Earlier phases the backend has not seen go first.
	for id := len(s.synced) + 1; id < cur.ID; id++ {
		p, _ := s.Game.Ledger.Phase(id)
		rec := models.PhaseFromEngine(p)
		if err := s.applyNow(ctx, Write{Kind: WriteCreatePhase, Phase: &rec}); err != nil {
			s.savePhaseFailed(id, err)
			return false
		}
		s.markSynced(rec)
	}
	rec := models.PhaseFromEngine(*cur)
	w := s.phaseWrite(rec)
	if err := s.applyNow(ctx, w); err != nil {
		s.savePhaseFailed(rec.PhaseID, err)
		return false
	}
	s.markSynced(rec)
	s.logAction("phase_saved", map[string]interface{}{"phaseId": rec.PhaseID})
	return true
}

// Assumes lock is held by caller.
func (s *Session) savePhaseFailed(id int, err error) {
	s.log.WithField("phase_id", id).WithError(err).Warn("phase save failed")
	s.fireEvent(GameEvent{
		Type:    EventPersistFailed,
		Round:   s.Game.Round,
		Payload: map[string]interface{}{"kind": "save_phase", "phaseId": id, "error": err.Error()},
	})
}

// AdjustFoul changes seat's fouls in the current phase by delta (+1, -1, or
// 0 to reset) and reconciles the result with the backend's copy of the
// phase: the server's delta plus the edits not yet written locally. If the
// read or the write fails, the local change is reverted.
// Assumes lock is held by caller.
func (s *Session) AdjustFoul(ctx context.Context, seat engine.Seat, delta int) (int, error) {
	cur := s.Game.Ledger.Current()
	if cur == nil || !s.Game.IsInProgress() {
		return 0, engine.ErrGameNotInProgress
	}
	phaseID := cur.ID
	before := cur.FoulDelta(seat)

	var (
		total int
		ok    bool
	)
	switch {
	case delta > 0:
		total, ok = s.Game.AddFoul(seat)
	case delta < 0:
		total, ok = s.Game.RemoveFoul(seat)
	default:
		total, ok = s.Game.ResetFouls(seat)
	}
	if !ok {
		return 0, fmt.Errorf("foul change for seat %d rejected", seat)
	}
	if s.backend == nil {
		return total, nil
	}

	entry := s.log.WithFields(logrus.Fields{"seat": int(seat), "phase_id": phaseID})
	synced := s.syncedFoulDelta(phaseID, seat)
	pending := s.currentFoulDelta(phaseID, seat) - synced

	state, err := s.backend.GetGameState(ctx, s.ID)
	if err != nil {
		s.revertFoul(entry, seat, phaseID, before)
		return 0, fmt.Errorf("read game %d state: %w", s.ID, err)
	}
	server, serverHas := 0, false
	for _, p := range state.Phases {
		if p.PhaseID == phaseID {
			server, serverHas = foulDeltaOf(p, seat), true
			break
		}
	}
	if serverHas && server != synced {
		entry.WithFields(logrus.Fields{"server": server, "local": synced}).Info("foul snapshot moved on server")
	}
	if reconciled := server + pending; reconciled != s.currentFoulDelta(phaseID, seat) {
		total, _ = s.Game.SetPhaseFouls(seat, reconciled)
	}

	p, _ := s.Game.Ledger.Phase(phaseID)
	rec := models.PhaseFromEngine(p)
	kind := WriteUpdatePhase
	if !serverHas {
		kind = WriteCreatePhase
	}
	if err := s.applyNow(ctx, Write{Kind: kind, Phase: &rec}); err != nil {
		s.revertFoul(entry, seat, phaseID, before)
		return 0, fmt.Errorf("write phase %d: %w", phaseID, err)
	}
	s.markSynced(rec)
	s.logAction("foul_reconciled", map[string]interface{}{
		"seat": int(seat), "phaseId": phaseID, "server": server, "pending": pending, "total": total,
	})
	return total, nil
}

// Assumes lock is held by caller.
func (s *Session) currentFoulDelta(phaseID int, seat engine.Seat) int {
	cur := s.Game.Ledger.Current()
	if cur == nil || cur.ID != phaseID {
		return 0
	}
	return cur.FoulDelta(seat)
}

// revertFoul puts seat's phase delta back to before. A foul that ended the
// game cannot be taken back.
// Assumes lock is held by caller.
func (s *Session) revertFoul(entry *logrus.Entry, seat engine.Seat, phaseID, before int) {
	if s.Game.PhaseID() != phaseID || !s.Game.IsInProgress() {
		entry.Warn("cannot revert foul, game moved on")
		return
	}
	s.Game.SetPhaseFouls(seat, before)
	entry.WithField("delta", before).Warn("foul change reverted")
}
