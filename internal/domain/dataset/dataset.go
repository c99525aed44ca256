// Package dataset owns the identity registries, the fitted vectorizer,
// and the append-only interaction event log, and is the single source of
// truth for what interactions exist.
package dataset

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/okian/quizrec/internal/adapters/source"
	"github.com/okian/quizrec/internal/domain/index"
	"github.com/okian/quizrec/internal/domain/matrix"
	"github.com/okian/quizrec/internal/domain/model"
	"github.com/okian/quizrec/internal/domain/rating"
	"github.com/okian/quizrec/internal/domain/vectorize"
)

// Dataset aggregates the numeric representation of the interaction
// history. The three parallel event slices are the authoritative log; the
// sparse matrix is a projection rebuilt from them on demand.
//
// Dataset is not safe for concurrent use. The orchestrator serializes
// writers and excludes them from readers.
type Dataset struct {
	players   *index.Registry
	questions *index.Registry
	vec       *vectorize.Vectorizer

	eventPlayers   []int
	eventQuestions []int
	ratings        []float64

	// droppedRows counts bulk interactions discarded by the attribute
	// join, so dataset size changes stay observable.
	droppedRows int
}

// Option applies a configuration option to a Dataset under construction.
type Option func(*Dataset)

// WithVectorizer replaces the default vectorizer, e.g. to narrow the
// vocabulary in tests.
func WithVectorizer(v *vectorize.Vectorizer) Option {
	return func(d *Dataset) {
		if v != nil {
			d.vec = v
		}
	}
}

func newDataset(opts ...Option) *Dataset {
	d := &Dataset{
		players:   index.NewRegistry(),
		questions: index.NewRegistry(),
		vec:       vectorize.New(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Build runs the bulk construction path: fetch the three upstream feeds,
// register all ids fresh, fit the vectorizer on the player-major corpus,
// encode question categories with the same fitted weights, join
// interactions against the attribute rows, and populate the event log.
// Interactions whose player or question has no attribute row are dropped
// by the join.
func Build(ctx context.Context, src source.Source, opts ...Option) (*Dataset, error) {
	var (
		players      []model.Player
		questions    []model.Question
		interactions []model.Interaction
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		players, err = src.Players(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		questions, err = src.Questions(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		interactions, err = src.Interactions(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuild, err)
	}

	d := newDataset(opts...)

	// Indices follow first appearance in the interaction feed.
	for _, it := range interactions {
		d.players.Register(it.PlayerID)
		d.questions.Register(it.QuestionID)
	}

	// Fit on majors, transform categories with the identical weights.
	majors := make([]model.Labels, len(players))
	for i, p := range players {
		majors[i] = p.Major
	}
	majorVecs := d.vec.FitTransform(majors)

	categories := make([]model.Labels, len(questions))
	for i, q := range questions {
		categories[i] = q.Category
	}
	categoryVecs, err := d.vec.Transform(categories)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuild, err)
	}

	type playerAttrs struct {
		rank  float64
		major []float64
	}
	type questionAttrs struct {
		difficulty float64
		category   []float64
	}
	playerByID := make(map[string]playerAttrs, len(players))
	for i, p := range players {
		playerByID[p.ID] = playerAttrs{rank: p.Rank, major: majorVecs[i]}
	}
	questionByID := make(map[string]questionAttrs, len(questions))
	for i, q := range questions {
		questionByID[q.ID] = questionAttrs{difficulty: q.Difficulty, category: categoryVecs[i]}
	}

	// Inner join: only interactions with both attribute rows survive.
	in := rating.Inputs{}
	var playerIxs, questionIxs []int
	for _, it := range interactions {
		p, okP := playerByID[it.PlayerID]
		q, okQ := questionByID[it.QuestionID]
		if !okP || !okQ {
			d.droppedRows++
			continue
		}
		pix, err := d.players.Index(it.PlayerID)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBuild, err)
		}
		qix, err := d.questions.Index(it.QuestionID)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBuild, err)
		}
		playerIxs = append(playerIxs, pix)
		questionIxs = append(questionIxs, qix)
		in.Time = append(in.Time, it.Time)
		in.Outcome = append(in.Outcome, it.Outcome)
		in.Rank = append(in.Rank, p.rank)
		in.Difficulty = append(in.Difficulty, q.difficulty)
		in.MajorVecs = append(in.MajorVecs, p.major)
		in.CategoryVecs = append(in.CategoryVecs, q.category)
	}

	scores, err := rating.Scores(in)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuild, err)
	}
	d.eventPlayers = playerIxs
	d.eventQuestions = questionIxs
	d.ratings = scores
	return d, nil
}

// AddInteractions runs the incremental ingest path over self-contained
// payload rows: extend both registries idempotently, encode categories
// with the already-fitted vectorizer, score, and append to the event log.
// It returns the player and question indices touched by this batch — the
// minimal frontier the caller needs for an incremental model refit.
func (d *Dataset) AddInteractions(batch []model.InteractionPayload) (playerIxs, questionIxs []int, err error) {
	if len(batch) == 0 {
		return nil, nil, ErrEmptyBatch
	}

	for _, row := range batch {
		d.players.Register(row.PlayerID)
		d.questions.Register(row.QuestionID)
	}

	in := rating.Inputs{
		Time:       make([]float64, len(batch)),
		Difficulty: make([]float64, len(batch)),
		Outcome:    make([]float64, len(batch)),
		Rank:       make([]float64, len(batch)),
	}
	majors := make([]model.Labels, len(batch))
	categories := make([]model.Labels, len(batch))
	for i, row := range batch {
		in.Time[i] = row.Time
		in.Difficulty[i] = row.Difficulty
		in.Outcome[i] = row.Outcome
		in.Rank[i] = row.Rank
		majors[i] = row.Major
		categories[i] = row.Category
	}
	in.MajorVecs, err = d.vec.Transform(majors)
	if err != nil {
		return nil, nil, err
	}
	in.CategoryVecs, err = d.vec.Transform(categories)
	if err != nil {
		return nil, nil, err
	}
	scores, err := rating.Scores(in)
	if err != nil {
		return nil, nil, err
	}

	seenPlayers := make(map[int]struct{}, len(batch))
	seenQuestions := make(map[int]struct{}, len(batch))
	for i, row := range batch {
		pix, err := d.players.Index(row.PlayerID)
		if err != nil {
			return nil, nil, err
		}
		qix, err := d.questions.Index(row.QuestionID)
		if err != nil {
			return nil, nil, err
		}
		d.eventPlayers = append(d.eventPlayers, pix)
		d.eventQuestions = append(d.eventQuestions, qix)
		d.ratings = append(d.ratings, scores[i])

		if _, ok := seenPlayers[pix]; !ok {
			seenPlayers[pix] = struct{}{}
			playerIxs = append(playerIxs, pix)
		}
		if _, ok := seenQuestions[qix]; !ok {
			seenQuestions[qix] = struct{}{}
			questionIxs = append(questionIxs, qix)
		}
	}
	return playerIxs, questionIxs, nil
}

// Matrix rebuilds the sparse interaction matrix from the full event log.
// Rebuilding from scratch keeps partial updates and the log trivially
// consistent at the dataset sizes this service targets.
func (d *Dataset) Matrix() (*matrix.CSR, error) {
	return matrix.NewCSR(d.players.Len(), d.questions.Len(), d.eventPlayers, d.eventQuestions, d.ratings)
}

// PlayerIndex resolves an external player id.
func (d *Dataset) PlayerIndex(id string) (int, error) {
	return d.players.Index(id)
}

// PlayerID resolves a player index back to its external id.
func (d *Dataset) PlayerID(ix int) (string, error) {
	return d.players.ID(ix)
}

// QuestionIndex resolves an external question id.
func (d *Dataset) QuestionIndex(id string) (int, error) {
	return d.questions.Index(id)
}

// QuestionID resolves a question index back to its external id.
func (d *Dataset) QuestionID(ix int) (string, error) {
	return d.questions.ID(ix)
}

// NumPlayers returns the number of registered players.
func (d *Dataset) NumPlayers() int {
	return d.players.Len()
}

// NumQuestions returns the number of registered questions.
func (d *Dataset) NumQuestions() int {
	return d.questions.Len()
}

// NumObservations returns the length of the event log.
func (d *Dataset) NumObservations() int {
	return len(d.ratings)
}

// DroppedInteractions returns how many bulk rows the attribute join
// discarded.
func (d *Dataset) DroppedInteractions() int {
	return d.droppedRows
}
