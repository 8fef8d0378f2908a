package engine

// AddFoul issues a foul to seat. At FoulsToSilence the player loses the next
// speech; at FoulsToRemove the player leaves the game.
func (g *Game) AddFoul(seat Seat) (int, bool) {
	p := g.player(seat)
	if !g.active() || p == nil || !p.InGame() {
		return 0, false
	}
	g.Ledger.RecordFoulDelta(seat, 1)
	return g.applyFouls(p), true
}

// RemoveFoul takes back one foul. It compensates an earlier AddFoul: silence
// is lifted and a foul-out from the current phase is undone once the total
// drops below the thresholds again.
func (g *Game) RemoveFoul(seat Seat) (int, bool) {
	p := g.player(seat)
	if !g.active() || p == nil || g.Ledger.TotalFouls(seat) == 0 {
		return 0, false
	}
	if !p.InGame() && !g.fouledOutNow(seat) {
		return 0, false
	}
	g.Ledger.RecordFoulDelta(seat, -1)
	return g.applyFouls(p), true
}

// ResetFouls clears the fouls issued to seat during the current phase.
func (g *Game) ResetFouls(seat Seat) (int, bool) {
	p := g.player(seat)
	if !g.active() || p == nil {
		return 0, false
	}
	if !p.InGame() && !g.fouledOutNow(seat) {
		return 0, false
	}
	g.Ledger.ResetFoulDelta(seat)
	return g.applyFouls(p), true
}

// SetPhaseFouls overwrites the current phase's foul delta for seat with an
// authoritative value and re-applies the thresholds.
func (g *Game) SetPhaseFouls(seat Seat, delta int) (int, bool) {
	p := g.player(seat)
	if !g.active() || p == nil {
		return 0, false
	}
	if !p.InGame() && !g.fouledOutNow(seat) {
		return 0, false
	}
	g.Ledger.setFoulDelta(seat, delta)
	return g.applyFouls(p), true
}

// fouledOutNow reports whether seat was removed for fouls during the
// current phase.
func (g *Game) fouledOutNow(seat Seat) bool {
	cur := g.Ledger.Current()
	return cur != nil && cur.Removed.Has(seat) && g.fouledOut.Has(seat)
}

// applyFouls refreshes the cached total and applies silence, removal and
// their reversal. It returns the new total.
func (g *Game) applyFouls(p *Player) int {
	total := g.Ledger.TotalFouls(p.Seat)
	p.Fouls = total
	g.emit(Event{Kind: EventFoulChanged, Seat: p.Seat, Count: total})

	switch {
	case total >= g.Rules.FoulsToRemove && p.InGame():
		g.eliminate(p.Seat)
		g.fouledOut = g.fouledOut.Add(p.Seat)
		g.emit(Event{Kind: EventPlayerRemoved, Seat: p.Seat, Count: total})
		if !g.checkVictory() && g.Substatus != SubstatusVoting && g.Substatus != SubstatusNight {
			g.Substatus = g.daySubstatus()
		}
		return total
	case total < g.Rules.FoulsToRemove && !p.InGame() && g.fouledOutNow(p.Seat):
		g.restore(p)
	}
	if total >= g.Rules.FoulsToSilence {
		if !p.Silent {
			p.SilentNextRound = true
		}
	} else {
		p.Silent = false
		p.SilentNextRound = false
	}
	return total
}

// restore brings back a player removed for fouls in the current phase.
func (g *Game) restore(p *Player) {
	g.Ledger.unrecordRemoved(p.Seat)
	g.fouledOut = g.fouledOut.Remove(p.Seat)
	p.Alive = true
	p.Eliminated = false
	for i := len(g.Eliminated) - 1; i >= 0; i-- {
		if g.Eliminated[i] == p.Seat {
			g.Eliminated = append(g.Eliminated[:i], g.Eliminated[i+1:]...)
			break
		}
	}
	g.emit(Event{Kind: EventPlayerRestored, Seat: p.Seat})
}

// Forfeit removes a player for a disciplinary violation (PPK).
func (g *Game) Forfeit(seat Seat) bool {
	p := g.player(seat)
	if !g.active() || p == nil || !p.InGame() {
		return false
	}
	g.Ledger.RecordForfeit(seat)
	g.eliminate(seat)
	g.emit(Event{Kind: EventPlayerRemoved, Seat: seat})
	if !g.checkVictory() && g.Substatus != SubstatusVoting && g.Substatus != SubstatusNight {
		g.Substatus = g.daySubstatus()
	}
	return true
}
