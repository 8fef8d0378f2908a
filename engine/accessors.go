package engine

// Player returns a copy of the seat's player. Unknown seats report false.
func (g *Game) Player(seat Seat) (Player, bool) {
	p := g.player(seat)
	if p == nil {
		return Player{}, false
	}
	return *p, true
}

// AlivePlayers returns the players still in the game, in seat order.
func (g *Game) AlivePlayers() []Player {
	out := make([]Player, 0, NumSeats)
	for i := range g.Players {
		if g.Players[i].InGame() {
			out = append(out, g.Players[i])
		}
	}
	return out
}

// AliveSeats returns the in-game seats as a set.
func (g *Game) AliveSeats() SeatSet {
	var s SeatSet
	for i := range g.Players {
		if g.Players[i].InGame() {
			s = s.Add(g.Players[i].Seat)
		}
	}
	return s
}

// AliveCount returns the number of players still in the game.
func (g *Game) AliveCount() int { return g.AliveSeats().Len() }

// IsCriticalRound reports whether the alive count makes the next vote
// decisive for the game.
func (g *Game) IsCriticalRound() bool {
	n := g.AliveCount()
	return n >= g.Rules.CriticalAliveMin && n <= g.Rules.CriticalAliveMax
}

// IsInProgress reports whether the game is running.
func (g *Game) IsInProgress() bool { return g.Status == StatusInProgress }

// PhaseID returns the current phase ordinal, or 0 before the game starts.
func (g *Game) PhaseID() int {
	if p := g.Ledger.Current(); p != nil {
		return p.ID
	}
	return 0
}

// Votes returns the tally entries in seat order. Seats without votes are
// absent.
func (g *Game) Votes() []SeatCount {
	var out []SeatCount
	for i, n := range g.Tally {
		if n > 0 {
			out = append(out, SeatCount{Seat: Seat(i + 1), Count: n})
		}
	}
	return out
}
