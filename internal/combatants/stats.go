package combatants

import "github.com/talgya/arena/internal/world"

// AveragePosition is the mean column/row of the live population.
type AveragePosition struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Stats holds population-wide aggregates recomputed every tick.
// Births and Deaths are cumulative across the run.
type Stats struct {
	MinFitness      int             `json:"min_fitness"`
	MaxFitness      int             `json:"max_fitness"`
	AverageFitness  float64         `json:"average_fitness"`
	AveragePosition AveragePosition `json:"average_position"`
	NumCombatants   int             `json:"num_combatants"`
	Births          int             `json:"births"`
	Deaths          int             `json:"deaths"`
	WeakBar         float64         `json:"weak_bar"`
	AverageBar      float64         `json:"average_bar"`
}

// ComputeStats aggregates the live set. Births and deaths are carried over
// from the caller's running totals.
func ComputeStats(live []*Combatant, g *world.Grid, births, deaths int) Stats {
	st := Stats{Births: births, Deaths: deaths}
	if len(live) == 0 {
		return st
	}

	st.MinFitness = live[0].Fitness
	st.MaxFitness = live[0].Fitness
	total := 0
	sumX, sumY := 0, 0
	for _, c := range live {
		if c.Fitness < st.MinFitness {
			st.MinFitness = c.Fitness
		}
		if c.Fitness > st.MaxFitness {
			st.MaxFitness = c.Fitness
		}
		total += c.Fitness
		x, y := g.XY(c.Position)
		sumX += x
		sumY += y
	}

	n := float64(len(live))
	st.NumCombatants = len(live)
	st.AverageFitness = float64(total) / n
	st.AveragePosition = AveragePosition{X: float64(sumX) / n, Y: float64(sumY) / n}
	st.WeakBar = (st.AverageFitness + float64(st.MinFitness)) / 2
	st.AverageBar = (st.AverageFitness + float64(st.MaxFitness)) / 2
	return st
}

// StrengthOf places c into a tier using the population bars.
func (s Stats) StrengthOf(c *Combatant) Strength {
	switch {
	case c.Immortal:
		return StrengthImmortal
	case float64(c.Fitness) < s.WeakBar:
		return StrengthWeak
	case float64(c.Fitness) < s.AverageBar:
		return StrengthAverage
	default:
		return StrengthStrong
	}
}
