package game

import (
	"math"
	"time"
)

// Scoring holds the bounds for a single question's points.
type Scoring struct {
	MinScore int
	MaxScore int
}

var DefaultScoring = Scoring{MinScore: 0, MaxScore: 100}

// Compute maps an answer to points. Correct answers on timed questions decay
// linearly from MaxScore at zero elapsed time to MinScore at the limit.
// Late answers are clamped rather than rejected. Bounds below zero are
// treated as zero so that scores never decrease.
func (s Scoring) Compute(isCorrect bool, responseTime, timeLimit time.Duration, timed bool) int {
	lo, hi := s.bounds()
	if !isCorrect {
		return lo
	}
	if !timed || timeLimit <= 0 {
		return hi
	}

	fraction := responseTime.Seconds() / timeLimit.Seconds()
	score := int(math.Round(float64(hi) * (1 - fraction)))
	if score < lo {
		return lo
	}
	if score > hi {
		return hi
	}
	return score
}

func (s Scoring) bounds() (lo, hi int) {
	lo, hi = s.MinScore, s.MaxScore
	if lo < 0 {
		lo = 0
	}
	if hi < lo {
		hi = lo
	}
	return lo, hi
}

// ComputeScore scores a timed answer with DefaultScoring.
func ComputeScore(isCorrect bool, responseTime, timeLimit time.Duration) int {
	return DefaultScoring.Compute(isCorrect, responseTime, timeLimit, true)
}
