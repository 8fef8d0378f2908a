package engine

import "fmt"

// roleCycle is the order CycleRole walks through.
var roleCycle = [...]Role{RoleCivilian, RoleMafia, RoleDon, RoleSheriff}

// AssignRole sets a seat's role unconditionally. Composition validity is the
// caller's concern. Once the game has started the original role stays
// frozen, so later assignments cannot change scoring or win checks.
func (g *Game) AssignRole(seat Seat, role Role) bool {
	p := g.player(seat)
	if p == nil || role > RoleSheriff {
		return false
	}
	p.Role = role
	if !g.Status.Started() {
		p.OriginalRole = role
	}
	return true
}

// roleCounts returns how many seats hold each role, ignoring skip.
func (g *Game) roleCounts(skip Seat) [4]int {
	var counts [4]int
	for i := range g.Players {
		if g.Players[i].Seat == skip {
			continue
		}
		counts[g.Players[i].Role]++
	}
	return counts
}

// CycleRole advances the seat's role civilian → mafia → don → sheriff →
// civilian, skipping every role whose quota is already filled by other
// seats. It is a no-op outside role distribution.
func (g *Game) CycleRole(seat Seat) (Role, bool) {
	p := g.player(seat)
	if p == nil || g.Status != StatusRoleDistribution {
		return RoleCivilian, false
	}
	others := g.roleCounts(seat)
	cur := 0
	for i, r := range roleCycle {
		if r == p.Role {
			cur = i
		}
	}
	for step := 1; step <= len(roleCycle); step++ {
		next := roleCycle[(cur+step)%len(roleCycle)]
		if next == RoleCivilian || others[next] < g.Rules.quota(next) {
			p.Role = next
			p.OriginalRole = next
			return next, true
		}
	}
	return p.Role, true
}

// ShuffleRoles deals an exact deck (six civilians, two mafia, one don, one
// sheriff with default rules) in seat order after an unbiased Fisher-Yates
// shuffle, and sets every original role to the dealt role.
func (g *Game) ShuffleRoles() bool {
	if g.Status.Started() || g.Status.Finished() {
		return false
	}
	deck := make([]Role, 0, NumSeats)
	for _, r := range []Role{RoleMafia, RoleDon, RoleSheriff} {
		for i := 0; i < g.Rules.quota(r); i++ {
			deck = append(deck, r)
		}
	}
	for len(deck) < NumSeats {
		deck = append(deck, RoleCivilian)
	}
	for i := len(deck) - 1; i > 0; i-- {
		j := g.rng.IntN(i + 1)
		deck[i], deck[j] = deck[j], deck[i]
	}
	for i := range g.Players {
		g.Players[i].Role = deck[i]
		g.Players[i].OriginalRole = deck[i]
	}
	g.emit(Event{Kind: EventRolesDealt})
	return true
}

// CanStartGame reports whether the assigned roles total exactly the
// configured mafia, don and sheriff counts.
func (g *Game) CanStartGame() bool { return g.RoleCompositionError() == nil }

// RoleCompositionError describes what is wrong with the current roles, or
// returns nil when the game can start.
func (g *Game) RoleCompositionError() error {
	counts := g.roleCounts(NoSeat)
	if counts[RoleMafia] == int(g.Rules.MafiaCount) &&
		counts[RoleDon] == int(g.Rules.DonCount) &&
		counts[RoleSheriff] == int(g.Rules.SheriffCount) {
		return nil
	}
	return fmt.Errorf("%w: have mafia=%d don=%d sheriff=%d, want mafia=%d don=%d sheriff=%d",
		ErrRoleComposition,
		counts[RoleMafia], counts[RoleDon], counts[RoleSheriff],
		g.Rules.MafiaCount, g.Rules.DonCount, g.Rules.SheriffCount)
}
