// internal/server/hub.go
package server

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/MafiaJoker/mafia-game-sub000/internal/game"
)

const (
	peerBuffer   = 64
	writeTimeout = 5 * time.Second
)

// peer is one websocket subscriber. Frames are queued and written by the
// peer's own goroutine so a slow display never blocks a game.
type peer struct {
	id     uuid.UUID
	gameID int64
	conn   *websocket.Conn
	send   chan []byte

	mu     sync.Mutex
	closed bool
}

func newPeer(gameID int64, conn *websocket.Conn) *peer {
	return &peer{id: uuid.New(), gameID: gameID, conn: conn, send: make(chan []byte, peerBuffer)}
}

// writeLoop drains the send queue until it is closed or a write fails.
func (p *peer) writeLoop(ctx context.Context, log *logrus.Entry) {
	for msg := range p.send {
		wctx, cancel := context.WithTimeout(ctx, writeTimeout)
		err := p.conn.Write(wctx, websocket.MessageText, msg)
		cancel()
		if err != nil {
			log.WithField("peer", p.id).WithError(err).Debug("websocket write failed")
			p.conn.Close(websocket.StatusInternalError, "write failed")
			return
		}
	}
}

// enqueue queues msg without blocking. It reports false when the peer is
// closed or its queue is full.
func (p *peer) enqueue(msg []byte) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}
	select {
	case p.send <- msg:
		return true
	default:
		return false
	}
}

func (p *peer) close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.send)
	}
}

// table is the set of subscribers of one game.
type table struct {
	mu          sync.Mutex
	subscribers map[*peer]struct{}
}

// Hub fans game events out to the websocket subscribers of each game.
type Hub struct {
	mu     sync.Mutex
	tables map[int64]*table
	log    *logrus.Entry
}

// NewHub returns an empty hub.
func NewHub(log *logrus.Entry) *Hub {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Hub{tables: make(map[int64]*table), log: log.WithField("component", "hub")}
}

func (h *Hub) table(gameID int64) *table {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.tables[gameID]
}

func (h *Hub) join(p *peer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	t, ok := h.tables[p.gameID]
	if !ok {
		t = &table{subscribers: make(map[*peer]struct{})}
		h.tables[p.gameID] = t
	}
	t.mu.Lock()
	t.subscribers[p] = struct{}{}
	t.mu.Unlock()
}

func (h *Hub) leave(p *peer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	t, ok := h.tables[p.gameID]
	if !ok {
		return
	}
	t.mu.Lock()
	delete(t.subscribers, p)
	empty := len(t.subscribers) == 0
	t.mu.Unlock()
	if empty {
		delete(h.tables, p.gameID)
	}
	p.close()
}

// Subscribers returns how many peers watch gameID.
func (h *Hub) Subscribers(gameID int64) int {
	t := h.table(gameID)
	if t == nil {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subscribers)
}

// Broadcast queues ev for every subscriber of gameID. Peers whose queue is
// full are dropped.
func (h *Hub) Broadcast(gameID int64, ev game.GameEvent) {
	t := h.table(gameID)
	if t == nil {
		return
	}
	msg, err := json.Marshal(ev)
	if err != nil {
		h.log.WithField("event", ev.Type).WithError(err).Error("cannot encode event")
		return
	}
	t.mu.Lock()
	var slow []*peer
	for p := range t.subscribers {
		if !p.enqueue(msg) {
			slow = append(slow, p)
		}
	}
	t.mu.Unlock()
	for _, p := range slow {
		h.log.WithFields(logrus.Fields{"game_id": gameID, "peer": p.id}).Warn("dropping slow subscriber")
		h.leave(p)
	}
}

// sendTo queues ev for a single peer.
func (h *Hub) sendTo(p *peer, v interface{}) {
	msg, err := json.Marshal(v)
	if err != nil {
		h.log.WithError(err).Error("cannot encode frame")
		return
	}
	if !p.enqueue(msg) {
		h.leave(p)
	}
}
