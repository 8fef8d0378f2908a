// internal/game/stager.go
package game

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/MafiaJoker/mafia-game-sub000/internal/models"
	"github.com/MafiaJoker/mafia-game-sub000/internal/outbox"
)

// WriteKind names a Backend call.
type WriteKind string

const (
	WriteCreatePhase   WriteKind = "create_phase"
	WriteUpdatePhase   WriteKind = "update_phase"
	WriteCreatePlayers WriteKind = "create_players"
	WriteAddPlayers    WriteKind = "add_players"
	WriteUpdateStatus  WriteKind = "update_status"
)

var errQueueFull = errors.New("stager queue full")

// Write is one staged Backend call. It round-trips through JSON so it can
// wait in the outbox.
type Write struct {
	GameID  int64                 `json:"game_id"`
	Kind    WriteKind             `json:"kind"`
	Phase   *models.PhaseRecord   `json:"phase,omitempty"`
	Players []models.PlayerRecord `json:"players,omitempty"`
	Status  string                `json:"status,omitempty"`
	Result  string                `json:"result,omitempty"`
}

func (w Write) apply(ctx context.Context, b Backend) error {
	switch w.Kind {
	case WriteCreatePhase, WriteUpdatePhase:
		if w.Phase == nil {
			return fmt.Errorf("%s without phase", w.Kind)
		}
		if w.Kind == WriteCreatePhase {
			return b.CreatePhase(ctx, w.GameID, *w.Phase)
		}
		return b.UpdatePhase(ctx, w.GameID, *w.Phase)
	case WriteCreatePlayers:
		return b.CreatePlayers(ctx, w.GameID, w.Players)
	case WriteAddPlayers:
		return b.AddPlayers(ctx, w.GameID, w.Players)
	case WriteUpdateStatus:
		return b.UpdateGameStatus(ctx, w.GameID, w.Status, w.Result)
	}
	return fmt.Errorf("unknown write kind %q", w.Kind)
}

// FailFunc is told about a write that was parked in the outbox.
type FailFunc func(w Write, err error)

type staged struct {
	w      Write
	onFail FailFunc
}

// StagerConfig tunes delivery.
type StagerConfig struct {
	Attempts  int           // tries per write before it is parked
	Timeout   time.Duration // per attempt
	Backoff   time.Duration // pause between attempts
	QueueSize int
}

// DefaultStagerConfig returns the settings used when none are given.
func DefaultStagerConfig() StagerConfig {
	return StagerConfig{Attempts: 3, Timeout: 5 * time.Second, Backoff: 200 * time.Millisecond, QueueSize: 256}
}

// Stager delivers Backend writes in order on a single worker. Local game
// state is never rolled back: a write that keeps failing is parked in the
// outbox and reported through its FailFunc. Once a game has parked writes,
// its later writes queue behind them until Replay drains the outbox.
type Stager struct {
	backend Backend
	outbox  Outbox
	cfg     StagerConfig
	log     *logrus.Entry
	queue   chan staged

	mu     sync.Mutex
	parked map[int64]bool
}

// NewStager returns a stager for backend. ob may be nil, in which case
// failed writes are only logged and reported.
func NewStager(backend Backend, ob Outbox, cfg StagerConfig, log *logrus.Entry) *Stager {
	def := DefaultStagerConfig()
	if cfg.Attempts < 1 {
		cfg.Attempts = def.Attempts
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.QueueSize < 1 {
		cfg.QueueSize = def.QueueSize
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Stager{
		backend: backend,
		outbox:  ob,
		cfg:     cfg,
		log:     log.WithField("component", "stager"),
		queue:   make(chan staged, cfg.QueueSize),
		parked:  make(map[int64]bool),
	}
}

// Stage queues w without blocking. A full queue parks the write at once.
func (s *Stager) Stage(w Write, onFail FailFunc) {
	select {
	case s.queue <- staged{w: w, onFail: onFail}:
	default:
		s.park(w, errQueueFull, onFail)
	}
}

// Run delivers queued writes until ctx is done. Writes still queued at
// shutdown are parked so nothing is lost.
func (s *Stager) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			s.drain()
			return nil
		case st := <-s.queue:
			s.deliver(ctx, st)
		}
	}
}

func (s *Stager) drain() {
	for {
		select {
		case st := <-s.queue:
			s.park(st.w, context.Canceled, st.onFail)
		default:
			return
		}
	}
}

func (s *Stager) isParked(gameID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.parked[gameID]
}

func (s *Stager) deliver(ctx context.Context, st staged) {
	if s.outbox != nil && s.isParked(st.w.GameID) {
		s.park(st.w, nil, nil)
		return
	}
	if err := s.Apply(ctx, st.w); err != nil {
		s.park(st.w, err, st.onFail)
	}
}

// Apply runs w against the backend with the configured attempts, timeout
// and backoff.
func (s *Stager) Apply(ctx context.Context, w Write) error {
	var err error
	for attempt := 1; attempt <= s.cfg.Attempts; attempt++ {
		actx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
		err = w.apply(actx, s.backend)
		cancel()
		if err == nil {
			return nil
		}
		s.log.WithFields(logrus.Fields{
			"game_id": w.GameID,
			"kind":    w.Kind,
			"attempt": attempt,
		}).WithError(err).Debug("write attempt failed")
		if ctx.Err() != nil {
			break
		}
		if attempt < s.cfg.Attempts && s.cfg.Backoff > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(s.cfg.Backoff):
			}
		}
	}
	return fmt.Errorf("%s for game %d: %w", w.Kind, w.GameID, err)
}

// park moves w to the outbox. A nil cause marks a write that is only
// queued behind earlier parked writes; nobody is notified for those.
func (s *Stager) park(w Write, cause error, onFail FailFunc) {
	entry := s.log.WithFields(logrus.Fields{"game_id": w.GameID, "kind": w.Kind})
	if cause != nil {
		entry.WithError(cause).Warn("remote write failed, parking in outbox")
	}
	if s.outbox != nil {
		payload, err := json.Marshal(w)
		if err != nil {
			entry.WithError(err).Error("cannot encode write for outbox")
		} else {
			msg := ""
			if cause != nil {
				msg = cause.Error()
			}
			ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Timeout)
			s.mu.Lock()
			_, err = s.outbox.Put(ctx, outbox.Entry{GameID: w.GameID, Kind: string(w.Kind), Payload: payload, LastError: msg})
			if err == nil {
				s.parked[w.GameID] = true
			}
			s.mu.Unlock()
			cancel()
			if err != nil {
				entry.WithError(err).Error("outbox write failed, write dropped")
			}
		}
	}
	if onFail != nil && cause != nil {
		onFail(w, cause)
	}
}

// Replay re-attempts parked writes in order and stops at the first failure
// so later writes never overtake earlier ones. It returns how many were
// delivered.
func (s *Stager) Replay(ctx context.Context) (int, error) {
	if s.outbox == nil {
		return 0, nil
	}
	delivered := 0
	for {
		entries, err := s.outbox.Pending(ctx, 100)
		if err != nil {
			return delivered, err
		}
		if len(entries) == 0 {
			break
		}
		for _, e := range entries {
			var w Write
			if err := json.Unmarshal(e.Payload, &w); err != nil {
				s.log.WithField("entry", e.ID).WithError(err).Error("dropping undecodable outbox entry")
				if err := s.outbox.Delete(ctx, e.ID); err != nil {
					return delivered, err
				}
				continue
			}
			if err := s.Apply(ctx, w); err != nil {
				if merr := s.outbox.MarkFailed(ctx, e.ID, err.Error()); merr != nil {
					s.log.WithField("entry", e.ID).WithError(merr).Error("cannot mark outbox entry")
				}
				return delivered, err
			}
			if err := s.outbox.Delete(ctx, e.ID); err != nil {
				return delivered, err
			}
			delivered++
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rest, err := s.outbox.Pending(ctx, 1)
	if err != nil {
		return delivered, err
	}
	if len(rest) == 0 {
		s.parked = make(map[int64]bool)
	}
	return delivered, nil
}

// RunReplay calls Replay every interval until ctx is done.
func (s *Stager) RunReplay(ctx context.Context, interval time.Duration) error {
	if s.outbox == nil || interval <= 0 {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := s.Replay(ctx)
			if n > 0 {
				s.log.WithField("delivered", n).Info("replayed parked writes")
			}
			if err != nil && ctx.Err() == nil {
				s.log.WithError(err).Warn("outbox replay stopped")
			}
		}
	}
}
