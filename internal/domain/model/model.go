// Package model contains domain models passed between layers.
package model

import (
	"errors"

	json "github.com/goccy/go-json"
)

// ErrInvalidLabels reports a labels field that is neither a single string
// nor a list of strings.
var ErrInvalidLabels = errors.New("labels must be a string or a list of strings")

// Labels holds one or more category labels. On the wire a labels field may
// arrive as a bare string ("Math") or as a list (["Math", "Physics"]); both
// decode into the same slice so downstream code never inspects the shape.
type Labels []string

// UnmarshalJSON accepts either a JSON string or a JSON array of strings.
func (l *Labels) UnmarshalJSON(b []byte) error {
	var single string
	if err := json.Unmarshal(b, &single); err == nil {
		*l = Labels{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(b, &many); err == nil {
		*l = Labels(many)
		return nil
	}
	return ErrInvalidLabels
}

// Player mirrors a row of the upstream players collection.
type Player struct {
	ID    string `json:"id"`
	Major Labels `json:"major"`
	// Rank is the player's skill rank on the 1..10 scale.
	Rank float64 `json:"rank"`
}

// Question mirrors a row of the upstream questions collection.
type Question struct {
	ID       string `json:"id"`
	Category Labels `json:"category"`
	// Difficulty is on the 1..5 scale.
	Difficulty float64 `json:"difficulty"`
}

// Interaction is one flattened answer row from the upstream store:
// one (player, question, time, outcome) tuple. Attribute fields live on
// Player/Question and are joined in by the bulk build.
type Interaction struct {
	PlayerID   string  `json:"player_id"`
	QuestionID string  `json:"question_id"`
	Time       float64 `json:"time"`
	Outcome    float64 `json:"outcome"`
}

// InteractionPayload is a self-contained interaction used by incremental
// ingest. It carries the player's major/rank and the question's
// category/difficulty inline so no attribute join is needed.
type InteractionPayload struct {
	PlayerID   string  `json:"player_id"`
	QuestionID string  `json:"question_id"`
	Major      Labels  `json:"major"`
	Category   Labels  `json:"category"`
	Rank       float64 `json:"rank"`
	Difficulty float64 `json:"difficulty"`
	Time       float64 `json:"time"`
	Outcome    float64 `json:"outcome"`
}
