// internal/server/server.go
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/MafiaJoker/mafia-game-sub000/internal/cache"
	"github.com/MafiaJoker/mafia-game-sub000/internal/database"
	"github.com/MafiaJoker/mafia-game-sub000/internal/game"
	"github.com/MafiaJoker/mafia-game-sub000/internal/models"
)

// JudgeHeader names the judge issuing an action over HTTP.
const JudgeHeader = "X-Judge"

const defaultHistoryLimit = 100

// HistoryReader returns the logged actions of a game. cache.Historian
// implements it.
type HistoryReader interface {
	History(ctx context.Context, gameID int64, limit int) ([]cache.GameActionRecord, error)
}

// Server is the HTTP and websocket edge for judge consoles and table
// displays.
type Server struct {
	registry *game.Registry
	hub      *Hub
	history  HistoryReader
	log      *logrus.Entry
	router   *mux.Router
}

// New wires the routes. history may be nil.
func New(registry *game.Registry, hub *Hub, history HistoryReader, log *logrus.Entry) *Server {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	s := &Server{
		registry: registry,
		hub:      hub,
		history:  history,
		log:      log.WithField("component", "server"),
		router:   mux.NewRouter(),
	}
	r := s.router
	r.HandleFunc("/health", s.handleHealth).Methods("GET")
	r.HandleFunc("/games", s.handleListGames).Methods("GET")
	r.HandleFunc("/games/{id:[0-9]+}", s.handleDropGame).Methods("DELETE")
	r.HandleFunc("/games/{id:[0-9]+}/state", s.handleState).Methods("GET")
	r.HandleFunc("/games/{id:[0-9]+}/actions", s.handleAction).Methods("POST")
	r.HandleFunc("/games/{id:[0-9]+}/load", s.handleLoad).Methods("POST")
	r.HandleFunc("/games/{id:[0-9]+}/history", s.handleHistory).Methods("GET")
	r.HandleFunc("/games/{id:[0-9]+}/ws", s.handleWS).Methods("GET")
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func gameID(r *http.Request) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
}

// open resolves the session for id, restoring it from the backend when it
// is not cached. On failure it writes the error response.
func (s *Server) open(w http.ResponseWriter, r *http.Request, id int64) (*game.Session, bool) {
	sess, err := s.registry.Open(r.Context(), id)
	if err != nil {
		s.log.WithField("game_id", id).WithError(err).Warn("open session failed")
		writeError(w, http.StatusBadGateway, "game unavailable")
		return nil, false
	}
	return sess, true
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "ok", "sessions": s.registry.Len()})
}

func (s *Server) handleListGames(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"games": s.registry.IDs()})
}

func (s *Server) handleDropGame(w http.ResponseWriter, r *http.Request) {
	id, err := gameID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid game id")
		return
	}
	if !s.registry.Remove(id) {
		writeError(w, http.StatusNotFound, "game not cached")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	id, err := gameID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid game id")
		return
	}
	sess, ok := s.open(w, r, id)
	if !ok {
		return
	}
	switch view := r.URL.Query().Get("view"); view {
	case "", "table":
		writeJSON(w, http.StatusOK, sess.TableView())
	case "judge":
		writeJSON(w, http.StatusOK, sess.JudgeView())
	default:
		writeError(w, http.StatusBadRequest, "unknown view "+strconv.Quote(view))
	}
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	id, err := gameID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid game id")
		return
	}
	var action models.GameAction
	if err := json.NewDecoder(r.Body).Decode(&action); err != nil {
		writeError(w, http.StatusBadRequest, "invalid action body")
		return
	}
	sess, ok := s.open(w, r, id)
	if !ok {
		return
	}
	res := sess.HandleJudgeAction(r.Context(), r.Header.Get(JudgeHeader), action)
	status := http.StatusOK
	if !res.OK {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, res)
}

func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	id, err := gameID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid game id")
		return
	}
	sess, err := s.registry.Load(r.Context(), id)
	switch {
	case errors.Is(err, game.ErrNoBackend):
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	case errors.Is(err, database.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
		return
	case err != nil:
		s.log.WithField("game_id", id).WithError(err).Warn("load failed")
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sess.TableView())
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	id, err := gameID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid game id")
		return
	}
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, "history not configured")
		return
	}
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil || limit <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
	}
	records, err := s.history.History(r.Context(), id, limit)
	if err != nil {
		s.log.WithField("game_id", id).WithError(err).Warn("history read failed")
		writeError(w, http.StatusBadGateway, "history unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"game_id": id, "actions": records})
}

// handleWS subscribes a display to a game. The judge console may also send
// actions over the socket; each gets an ActionResult frame back.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	id, err := gameID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid game id")
		return
	}
	sess, ok := s.open(w, r, id)
	if !ok {
		return
	}
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		s.log.WithError(err).Debug("websocket accept failed")
		return
	}
	judge := r.URL.Query().Get("role") == "judge"
	actor := r.URL.Query().Get("judge")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	p := newPeer(id, conn)
	entry := s.log.WithFields(logrus.Fields{"game_id": id, "peer": p.id, "judge": judge})
	s.hub.join(p)
	defer s.hub.leave(p)
	go p.writeLoop(ctx, entry)
	entry.Info("subscriber joined")

	state := sess.TableView()
	s.hub.sendTo(p, game.GameEvent{Type: game.EventSyncState, GameID: id, Round: state.Round, State: &state})

	for {
		var action models.GameAction
		if err := wsjson.Read(ctx, conn, &action); err != nil {
			if websocket.CloseStatus(err) == -1 && ctx.Err() == nil {
				entry.WithError(err).Debug("websocket read ended")
			}
			break
		}
		if !judge {
			s.hub.sendTo(p, models.ActionResult{OK: false, Message: "read-only subscriber"})
			continue
		}
		// the session may have been evicted since the socket opened
		if sess, err = s.registry.Open(ctx, id); err != nil {
			entry.WithError(err).Warn("session unavailable")
			s.hub.sendTo(p, models.ActionResult{OK: false, Message: "game unavailable"})
			continue
		}
		s.hub.sendTo(p, sess.HandleJudgeAction(ctx, actor, action))
	}
	entry.Info("subscriber left")
	conn.Close(websocket.StatusNormalClosure, "")
}
