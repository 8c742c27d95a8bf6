package combatants

// Fight resolves a contest between two combatants. The higher effective
// fitness wins; ties go to the attacker. The loser is marked Dead and the
// winner's kill counter is incremented.
func Fight(attacker, defender *Combatant) (winner, loser *Combatant) {
	winner, loser = attacker, defender
	if defender.EffectiveFitness() > attacker.EffectiveFitness() {
		winner, loser = defender, attacker
	}
	loser.State = StateDead
	winner.Kills++
	return winner, loser
}

// MateRules controls who may mate.
type MateRules struct {
	YounglingAge          uint64
	RequireOppositeGender bool
}

// Youngling reports whether c is too young to fight or mate.
func (r MateRules) Youngling(c *Combatant) bool {
	return c.Tick <= r.YounglingAge
}

// Eligible reports whether c can start a pregnancy this tick.
func (r MateRules) Eligible(c *Combatant) bool {
	return c.State == StateAlive && c.Spawn == nil && !r.Youngling(c)
}

// CanMate reports whether a and b may pair up. Terrain suitability is the
// caller's concern since it needs the grid.
func (r MateRules) CanMate(a, b *Combatant) bool {
	if a == nil || b == nil || a.ID == b.ID {
		return false
	}
	if a.Species != b.Species {
		return false
	}
	if !r.Eligible(a) || !r.Eligible(b) {
		return false
	}
	if r.RequireOppositeGender && a.Gender == b.Gender {
		return false
	}
	return true
}
