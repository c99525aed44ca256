// Package source defines the upstream data source contract for bulk
// dataset builds, plus the document-store and in-memory implementations.
//
// The contract is a well-typed flattened feed: implementations own any
// store-specific query or unwind logic and hand the core plain rows.
package source

import (
	"context"

	"github.com/okian/quizrec/internal/domain/model"
)

// Source supplies the three upstream feeds consumed by a bulk build.
type Source interface {
	// Players returns player attribute rows.
	Players(ctx context.Context) ([]model.Player, error)

	// Questions returns question attribute rows.
	Questions(ctx context.Context) ([]model.Question, error)

	// Interactions returns answer events already flattened to one row
	// per (player, question, time, outcome) tuple.
	Interactions(ctx context.Context) ([]model.Interaction, error)
}
