package source

import (
	"context"

	"github.com/okian/quizrec/internal/domain/model"
)

// MemorySource serves fixed feeds from memory, for tests and local runs.
type MemorySource struct {
	players      []model.Player
	questions    []model.Question
	interactions []model.Interaction
}

// NewMemorySource creates a source over the given rows.
func NewMemorySource(players []model.Player, questions []model.Question, interactions []model.Interaction) *MemorySource {
	return &MemorySource{
		players:      players,
		questions:    questions,
		interactions: interactions,
	}
}

// Players returns the fixed player rows.
func (s *MemorySource) Players(_ context.Context) ([]model.Player, error) {
	return s.players, nil
}

// Questions returns the fixed question rows.
func (s *MemorySource) Questions(_ context.Context) ([]model.Question, error) {
	return s.questions, nil
}

// Interactions returns the fixed interaction rows.
func (s *MemorySource) Interactions(_ context.Context) ([]model.Interaction, error) {
	return s.interactions, nil
}
