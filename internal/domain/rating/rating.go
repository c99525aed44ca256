// Package rating computes composite interaction ratings from per-answer
// signals.
//
// Three independently scaled signals are blended with fixed weights:
// answer performance (speed and correctness), rank/difficulty fit, and
// topical affinity between the player's major and the question's
// category. The weights are a tunable policy constant favoring topical
// match; they are not derived from data.
package rating

import (
	"fmt"
	"math"
)

// Blend weights for the composite rating.
const (
	WeightPerformance    = 0.2
	WeightRankDifficulty = 0.3
	WeightMajorCategory  = 0.5
)

// Scale bounds for player rank and question difficulty.
const (
	MinRank       = 1.0
	MaxRank       = 10.0
	MinDifficulty = 1.0
	MaxDifficulty = 5.0
)

// Inputs holds the parallel per-interaction columns consumed by Scores.
// All slices must have equal length.
type Inputs struct {
	Time       []float64
	Difficulty []float64
	Outcome    []float64
	Rank       []float64
	// MajorVecs and CategoryVecs are the encoded player-major and
	// question-category vectors, one per interaction, in the same space.
	MajorVecs    [][]float64
	CategoryVecs [][]float64
}

// Performance scores answer speed gated by correctness:
// (1 - time/(60+30*difficulty)) * outcome. A very slow wrong answer can
// go negative; the value is deliberately not clamped.
func Performance(timeSpent, difficulty, outcome []float64) ([]float64, error) {
	if len(timeSpent) != len(difficulty) || len(timeSpent) != len(outcome) {
		return nil, fmt.Errorf("%w: time=%d difficulty=%d outcome=%d",
			ErrLengthMismatch, len(timeSpent), len(difficulty), len(outcome))
	}
	out := make([]float64, len(timeSpent))
	for i := range timeSpent {
		maxTime := 60 + 30*difficulty[i]
		out[i] = (1 - timeSpent[i]/maxTime) * outcome[i]
	}
	return out, nil
}

// SimRankDifficulty measures how well a question's difficulty matches a
// player's rank after normalizing both to [0,1]: 1 - |rankNorm - diffNorm|.
func SimRankDifficulty(rank, difficulty []float64) ([]float64, error) {
	if len(rank) != len(difficulty) {
		return nil, fmt.Errorf("%w: rank=%d difficulty=%d",
			ErrLengthMismatch, len(rank), len(difficulty))
	}
	out := make([]float64, len(rank))
	for i := range rank {
		rankNorm := (rank[i] - MinRank) / (MaxRank - MinRank)
		diffNorm := (difficulty[i] - MinDifficulty) / (MaxDifficulty - MinDifficulty)
		out[i] = 1 - math.Abs(rankNorm-diffNorm)
	}
	return out, nil
}

// SimMajorCategory computes the row-wise cosine similarity of two vector
// sets. When either row has zero norm the result is NaN; bad categorical
// data must stay detectable downstream, so the NaN propagates instead of
// being coerced to zero.
func SimMajorCategory(a, b [][]float64) ([]float64, error) {
	if len(a) != len(b) {
		return nil, fmt.Errorf("%w: a=%d b=%d", ErrLengthMismatch, len(a), len(b))
	}
	out := make([]float64, len(a))
	for i := range a {
		out[i] = cosine(a[i], b[i])
	}
	return out, nil
}

func cosine(a, b []float64) float64 {
	var dot, normA, normB float64
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Scores computes the composite rating for each interaction:
//
//	0.2*performance + 0.3*simRankDifficulty + 0.5*simMajorCategory
func Scores(in Inputs) ([]float64, error) {
	perf, err := Performance(in.Time, in.Difficulty, in.Outcome)
	if err != nil {
		return nil, err
	}
	rankSim, err := SimRankDifficulty(in.Rank, in.Difficulty)
	if err != nil {
		return nil, err
	}
	if len(in.Rank) != len(in.Time) {
		return nil, fmt.Errorf("%w: rank=%d time=%d", ErrLengthMismatch, len(in.Rank), len(in.Time))
	}
	catSim, err := SimMajorCategory(in.MajorVecs, in.CategoryVecs)
	if err != nil {
		return nil, err
	}
	if len(catSim) != len(perf) {
		return nil, fmt.Errorf("%w: vectors=%d scalars=%d", ErrLengthMismatch, len(catSim), len(perf))
	}

	out := make([]float64, len(perf))
	for i := range out {
		out[i] = WeightPerformance*perf[i] +
			WeightRankDifficulty*rankSim[i] +
			WeightMajorCategory*catSim[i]
	}
	return out, nil
}
