package engine

// Rules holds the tournament rule settings a judge may tune per event.
type Rules struct {
	MafiaCount       uint8   // plain mafia cards in the deck
	DonCount         uint8   // don cards in the deck
	SheriffCount     uint8   // sheriff cards in the deck
	FoulsToSilence   int     // total fouls that cost the next speech
	FoulsToRemove    int     // total fouls that remove the player
	StalemateLimit   int     // rounds without a clear verdict before a draw
	BestMoveMax      int     // guesses allowed in a best move
	BonusMin         float64 // lowest judge bonus
	BonusMax         float64 // highest judge bonus
	CriticalAliveMin int     // alive count range that makes a round critical
	CriticalAliveMax int
	Seed             uint64 // 0 = seed from the clock
}

// DefaultRules returns the standard tournament rules.
func DefaultRules() Rules {
	return Rules{
		MafiaCount:       2,
		DonCount:         1,
		SheriffCount:     1,
		FoulsToSilence:   3,
		FoulsToRemove:    4,
		StalemateLimit:   3,
		BestMoveMax:      3,
		BonusMin:         -3,
		BonusMax:         3,
		CriticalAliveMin: 3,
		CriticalAliveMax: 4,
	}
}

// quota returns how many seats may hold role r.
func (r *Rules) quota(role Role) int {
	switch role {
	case RoleMafia:
		return int(r.MafiaCount)
	case RoleDon:
		return int(r.DonCount)
	case RoleSheriff:
		return int(r.SheriffCount)
	default:
		return NumSeats - int(r.MafiaCount) - int(r.DonCount) - int(r.SheriffCount)
	}
}
