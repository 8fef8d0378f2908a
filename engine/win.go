package engine

// Evaluate decides whether the game is over. Counts use original roles of
// players still in the game. The checks run in a fixed priority order:
//
//  1. no mafia left            → city wins (also covers zero mafia dealt)
//  2. mafia ≥ city             → mafia wins
//  3. stalemate ≥ limit        → draw
//
// A non-positive limit disables the stalemate draw.
func Evaluate(players []Player, stalemate, limit int) Outcome {
	mafia, city := 0, 0
	for i := range players {
		p := &players[i]
		if !p.InGame() {
			continue
		}
		if p.OriginalRole.Team() == TeamMafia {
			mafia++
		} else {
			city++
		}
	}
	switch {
	case mafia == 0:
		return Outcome{Winner: WinnerCity, Reason: ReasonAllMafiaEliminated}
	case mafia >= city:
		return Outcome{Winner: WinnerMafia, Reason: ReasonMafiaMajority}
	case limit > 0 && stalemate >= limit:
		return Outcome{Winner: WinnerDraw, Reason: ReasonNoCandidates}
	}
	return Outcome{}
}
