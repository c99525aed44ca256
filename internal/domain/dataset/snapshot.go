package dataset

import (
	"fmt"
	"os"

	json "github.com/goccy/go-json"

	"github.com/okian/quizrec/internal/domain/index"
	"github.com/okian/quizrec/internal/domain/vectorize"
)

// snapshot is the serialized form of the whole aggregate: both
// registries (as index-ordered id lists), the fitted vectorizer, and the
// event log. One opaque unit, written after bulk builds and loaded at
// process start.
type snapshot struct {
	PlayerIDs      []string        `json:"player_ids"`
	QuestionIDs    []string        `json:"question_ids"`
	Vectorizer     vectorize.State `json:"vectorizer"`
	EventPlayers   []int           `json:"event_players"`
	EventQuestions []int           `json:"event_questions"`
	Ratings        []float64       `json:"ratings"`
	DroppedRows    int             `json:"dropped_rows"`
}

// Save writes the aggregate state to path.
func (d *Dataset) Save(path string) error {
	vecState, err := d.vec.Snapshot()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSnapshotCodec, err)
	}
	s := snapshot{
		PlayerIDs:      d.players.IDs(),
		QuestionIDs:    d.questions.IDs(),
		Vectorizer:     vecState,
		EventPlayers:   d.eventPlayers,
		EventQuestions: d.eventQuestions,
		Ratings:        d.ratings,
		DroppedRows:    d.droppedRows,
	}
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSnapshotCodec, err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("%w: %w", ErrSnapshotIO, err)
	}
	return nil
}

// Load restores an aggregate from a snapshot written by Save.
func Load(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSnapshotIO, err)
	}
	var s snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSnapshotCodec, err)
	}
	if len(s.EventPlayers) != len(s.EventQuestions) || len(s.EventPlayers) != len(s.Ratings) {
		return nil, fmt.Errorf("%w: uneven event arrays", ErrSnapshotCodec)
	}
	vec, err := vectorize.Restore(s.Vectorizer)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSnapshotCodec, err)
	}
	return &Dataset{
		players:        index.RestoreRegistry(s.PlayerIDs),
		questions:      index.RestoreRegistry(s.QuestionIDs),
		vec:            vec,
		eventPlayers:   s.EventPlayers,
		eventQuestions: s.EventQuestions,
		ratings:        s.Ratings,
		droppedRows:    s.DroppedRows,
	}, nil
}
