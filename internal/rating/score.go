package rating

// SolveStats aggregates player outcomes for one puzzle.
type SolveStats struct {
	Attempts          int64
	Solves            int64
	TotalSolveSeconds int64
	HintsUsed         int64
}

// referenceSolveSeconds is the average solve time that maps to the top of
// the time component. Anything slower saturates it.
const referenceSolveSeconds = 1800.0

// Score maps solve statistics onto the 1-100 difficulty scale. Low solve
// rates weigh heaviest, then long solve times, then hint usage. A puzzle
// nobody has attempted lands on the midpoint.
func Score(s SolveStats) float64 {
	if s.Attempts <= 0 {
		return 50
	}

	solveRate := float64(s.Solves) / float64(s.Attempts)
	hintRate := clamp01(float64(s.HintsUsed) / float64(s.Attempts))

	avgSeconds := 0.0
	if s.Solves > 0 {
		avgSeconds = float64(s.TotalSolveSeconds) / float64(s.Solves)
	}
	timeFactor := clamp01(avgSeconds / referenceSolveSeconds)

	raw := 100 * (0.5*(1-solveRate) + 0.3*timeFactor + 0.2*hintRate)
	if raw < 1 {
		return 1
	}
	if raw > 100 {
		return 100
	}
	return raw
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
