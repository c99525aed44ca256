// Package vectorize encodes categorical labels as weighted indicator
// vectors over a fixed vocabulary.
//
// Player majors and question categories share one fitted vocabulary and
// one set of idf weights, so the two vector spaces are identical and
// directly comparable under cosine similarity.
package vectorize

import (
	"math"

	"github.com/okian/quizrec/internal/domain/model"
)

// Categories is the closed, ordered vocabulary of quiz category labels.
// It is an enumerated set known in advance, not learned from data.
var Categories = []string{
	"Biology",
	"Chemistry",
	"Geography",
	"History",
	"Literature",
	"Math",
	"Physics",
	"Science",
}

// Vectorizer is a fixed-vocabulary tf-idf encoder. Term frequency is the
// raw label count within a row, idf uses smoothed document frequencies
// from the fit corpus (ln((1+n)/(1+df)) + 1), and each non-zero row is
// L2-normalized. Labels outside the vocabulary contribute nothing; a row
// with no in-vocabulary label encodes to the zero vector.
type Vectorizer struct {
	vocab  []string
	lookup map[string]int
	idf    []float64
	fitted bool
}

// Option applies a configuration option to the Vectorizer.
type Option func(*Vectorizer)

// WithVocabulary overrides the default Categories vocabulary.
func WithVocabulary(vocab []string) Option {
	return func(v *Vectorizer) {
		if len(vocab) > 0 {
			v.vocab = vocab
		}
	}
}

// New creates an unfitted vectorizer over the default vocabulary.
func New(opts ...Option) *Vectorizer {
	v := &Vectorizer{vocab: Categories}
	for _, opt := range opts {
		opt(v)
	}
	v.lookup = make(map[string]int, len(v.vocab))
	for i, term := range v.vocab {
		v.lookup[term] = i
	}
	return v
}

// Dim returns the vector length, i.e. the vocabulary size.
func (v *Vectorizer) Dim() int {
	return len(v.vocab)
}

// Fitted reports whether idf weights have been computed.
func (v *Vectorizer) Fitted() bool {
	return v.fitted
}

// FitTransform computes idf weights over rows and returns their encoded
// vectors. The fitted weights are retained so a second domain can be
// encoded with Transform using identical scaling.
func (v *Vectorizer) FitTransform(rows []model.Labels) [][]float64 {
	df := make([]float64, len(v.vocab))
	for _, row := range rows {
		seen := make(map[int]struct{}, len(row))
		for _, label := range row {
			ix, ok := v.lookup[label]
			if !ok {
				continue
			}
			if _, dup := seen[ix]; dup {
				continue
			}
			seen[ix] = struct{}{}
			df[ix]++
		}
	}

	n := float64(len(rows))
	v.idf = make([]float64, len(v.vocab))
	for i := range v.idf {
		v.idf[i] = math.Log((1+n)/(1+df[i])) + 1
	}
	v.fitted = true

	out, _ := v.Transform(rows)
	return out
}

// Transform encodes rows with the already-fitted idf weights.
func (v *Vectorizer) Transform(rows []model.Labels) ([][]float64, error) {
	if !v.fitted {
		return nil, ErrNotFitted
	}
	out := make([][]float64, len(rows))
	for i, row := range rows {
		out[i] = v.encode(row)
	}
	return out, nil
}

// encode produces one L2-normalized tf-idf vector. Unknown labels are
// silently ignored.
func (v *Vectorizer) encode(row model.Labels) []float64 {
	vec := make([]float64, len(v.vocab))
	for _, label := range row {
		if ix, ok := v.lookup[label]; ok {
			vec[ix] += v.idf[ix]
		}
	}
	var norm float64
	for _, x := range vec {
		norm += x * x
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec
}

// State is the serializable form of a fitted vectorizer.
type State struct {
	Vocabulary []string  `json:"vocabulary"`
	IDF        []float64 `json:"idf"`
}

// Snapshot exports the fitted state.
func (v *Vectorizer) Snapshot() (State, error) {
	if !v.fitted {
		return State{}, ErrNotFitted
	}
	s := State{
		Vocabulary: make([]string, len(v.vocab)),
		IDF:        make([]float64, len(v.idf)),
	}
	copy(s.Vocabulary, v.vocab)
	copy(s.IDF, v.idf)
	return s, nil
}

// Restore rebuilds a fitted vectorizer from a snapshot.
func Restore(s State) (*Vectorizer, error) {
	if len(s.Vocabulary) == 0 || len(s.Vocabulary) != len(s.IDF) {
		return nil, ErrInvalidState
	}
	v := New(WithVocabulary(s.Vocabulary))
	v.idf = make([]float64, len(s.IDF))
	copy(v.idf, s.IDF)
	v.fitted = true
	return v, nil
}
