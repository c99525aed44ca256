// Package engine defines the collaborative-filtering engine contract the
// orchestrator depends on, plus the in-process ALS implementation.
package engine

import (
	"context"

	"github.com/okian/quizrec/internal/domain/matrix"
)

// Engine is the matrix-factorization contract. Callers pass the current
// interaction matrix; implementations read only the rows or columns they
// need. All methods honor ctx for cancellation and deadline.
type Engine interface {
	// Fit trains the model from scratch on the full matrix.
	Fit(ctx context.Context, m *matrix.CSR) error

	// PartialFitUsers refits the factor vectors of the given player
	// indices against the current item factors, growing internal state
	// for newly appeared players.
	PartialFitUsers(ctx context.Context, userIxs []int, m *matrix.CSR) error

	// PartialFitItems refits the factor vectors of the given question
	// indices against the current user factors.
	PartialFitItems(ctx context.Context, itemIxs []int, m *matrix.CSR) error

	// Recommend returns the topN ranked question indices and scores per
	// requested player index. With excludeSeen, questions the player has
	// already interacted with (per the matrix row) are filtered out.
	Recommend(ctx context.Context, userIxs []int, m *matrix.CSR, topN int, excludeSeen bool) ([][]int, [][]float64, error)

	// Save and Load persist the model state as one opaque unit.
	Save(path string) error
	Load(path string) error
}
