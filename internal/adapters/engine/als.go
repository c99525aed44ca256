package engine

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"os"
	"sort"
	"sync"

	json "github.com/goccy/go-json"

	"github.com/okian/quizrec/internal/domain/matrix"
)

// Default ALS configuration constants. Factors, iterations, and
// regularization follow the offline training setup this service replaces.
const (
	defaultFactors        = 50
	defaultIterations     = 50
	defaultRegularization = 0.01
	defaultAlpha          = 40.0
	defaultWorkers        = 4
	defaultSeed           = 42
	initScale             = 0.01
)

// ALS factorizes the implicit-feedback interaction matrix by alternating
// confidence-weighted least squares solves (Hu, Koren, Volinsky 2008).
// Confidence is c = 1 + alpha*r for a recorded rating r. User and item
// factors are indexed directly by the dense registry indices, so matrix
// row i is player index i.
type ALS struct {
	mu sync.RWMutex

	factors        int
	iterations     int
	regularization float64
	alpha          float64
	workers        int
	rng            *rand.Rand

	userFactors [][]float64
	itemFactors [][]float64
	fitted      bool
}

// ALSOption applies a configuration option to the ALS engine.
type ALSOption func(*ALS)

// WithFactors sets the latent factor dimension.
func WithFactors(n int) ALSOption {
	return func(a *ALS) {
		if n > 0 {
			a.factors = n
		}
	}
}

// WithIterations sets the number of alternating sweeps per full fit.
func WithIterations(n int) ALSOption {
	return func(a *ALS) {
		if n > 0 {
			a.iterations = n
		}
	}
}

// WithRegularization sets the L2 regularization term.
func WithRegularization(lambda float64) ALSOption {
	return func(a *ALS) {
		if lambda > 0 {
			a.regularization = lambda
		}
	}
}

// WithAlpha sets the implicit-feedback confidence scale.
func WithAlpha(alpha float64) ALSOption {
	return func(a *ALS) {
		if alpha > 0 {
			a.alpha = alpha
		}
	}
}

// WithWorkers sets the number of goroutines used per factor sweep.
func WithWorkers(n int) ALSOption {
	return func(a *ALS) {
		if n > 0 {
			a.workers = n
		}
	}
}

// WithSeed sets the factor initialization seed for reproducible fits.
func WithSeed(seed int64) ALSOption {
	return func(a *ALS) {
		a.rng = rand.New(rand.NewSource(seed)) //nolint:gosec // deterministic init, not cryptography
	}
}

// NewALS creates an ALS engine with configuration options.
func NewALS(opts ...ALSOption) *ALS {
	a := &ALS{
		factors:        defaultFactors,
		iterations:     defaultIterations,
		regularization: defaultRegularization,
		alpha:          defaultAlpha,
		workers:        defaultWorkers,
		rng:            rand.New(rand.NewSource(defaultSeed)), //nolint:gosec // deterministic init, not cryptography
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Fit trains the model from scratch on the full matrix.
func (a *ALS) Fit(ctx context.Context, m *matrix.CSR) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	nUsers, nItems := m.Dims()

	userItems := make([]map[int]float64, nUsers)
	itemUsers := make([]map[int]float64, nItems)
	for u := 0; u < nUsers; u++ {
		cols, values := m.Row(u)
		for k, i := range cols {
			conf, ok := a.confidence(values[k])
			if !ok {
				continue
			}
			if userItems[u] == nil {
				userItems[u] = make(map[int]float64)
			}
			userItems[u][i] = conf
			if itemUsers[i] == nil {
				itemUsers[i] = make(map[int]float64)
			}
			itemUsers[i][u] = conf
		}
	}

	a.userFactors = a.initFactors(nUsers)
	a.itemFactors = a.initFactors(nItems)

	for iter := 0; iter < a.iterations; iter++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		a.sweep(a.userFactors, a.itemFactors, func(u int) map[int]float64 { return userItems[u] })
		if err := ctx.Err(); err != nil {
			return err
		}
		a.sweep(a.itemFactors, a.userFactors, func(i int) map[int]float64 { return itemUsers[i] })
	}

	a.fitted = true
	return nil
}

// PartialFitUsers refits factor vectors for the given player indices
// holding item factors fixed. State grows to cover indices beyond the
// previous fit.
func (a *ALS) PartialFitUsers(ctx context.Context, userIxs []int, m *matrix.CSR) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.fitted {
		return ErrNotFitted
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	nUsers, nItems := m.Dims()
	a.grow(&a.userFactors, nUsers)
	a.grow(&a.itemFactors, nItems)

	gram := a.gramMatrix(a.itemFactors)
	for _, u := range userIxs {
		if u < 0 || u >= nUsers {
			return fmt.Errorf("%w: %d", ErrUnknownUser, u)
		}
		a.userFactors[u] = a.solveVector(a.rowConfidence(m, u), a.itemFactors, gram)
	}
	return nil
}

// PartialFitItems refits factor vectors for the given question indices
// holding user factors fixed.
func (a *ALS) PartialFitItems(ctx context.Context, itemIxs []int, m *matrix.CSR) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.fitted {
		return ErrNotFitted
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	nUsers, nItems := m.Dims()
	a.grow(&a.userFactors, nUsers)
	a.grow(&a.itemFactors, nItems)

	columns := m.ColumnsMap(itemIxs)
	gram := a.gramMatrix(a.userFactors)
	for _, i := range itemIxs {
		if i < 0 || i >= nItems {
			return fmt.Errorf("%w: %d", ErrUnknownItem, i)
		}
		users := make(map[int]float64, len(columns[i]))
		for u, r := range columns[i] {
			if conf, ok := a.confidence(r); ok {
				users[u] = conf
			}
		}
		a.itemFactors[i] = a.solveVector(users, a.userFactors, gram)
	}
	return nil
}

// Recommend scores every question for each requested player and returns
// the topN indices per player, highest score first.
func (a *ALS) Recommend(ctx context.Context, userIxs []int, m *matrix.CSR, topN int, excludeSeen bool) ([][]int, [][]float64, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if !a.fitted {
		return nil, nil, ErrNotFitted
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	ids := make([][]int, len(userIxs))
	scores := make([][]float64, len(userIxs))
	for n, u := range userIxs {
		if u < 0 || u >= len(a.userFactors) {
			return nil, nil, fmt.Errorf("%w: %d", ErrUnknownUser, u)
		}

		var seen map[int]struct{}
		if excludeSeen {
			cols, _ := m.Row(u)
			seen = make(map[int]struct{}, len(cols))
			for _, j := range cols {
				seen[j] = struct{}{}
			}
		}

		type candidate struct {
			item  int
			score float64
		}
		candidates := make([]candidate, 0, len(a.itemFactors))
		for i := range a.itemFactors {
			if _, skip := seen[i]; skip {
				continue
			}
			candidates = append(candidates, candidate{item: i, score: dot(a.userFactors[u], a.itemFactors[i])})
		}
		sort.Slice(candidates, func(x, y int) bool {
			if candidates[x].score != candidates[y].score {
				return candidates[x].score > candidates[y].score
			}
			return candidates[x].item < candidates[y].item
		})
		if len(candidates) > topN {
			candidates = candidates[:topN]
		}

		ids[n] = make([]int, len(candidates))
		scores[n] = make([]float64, len(candidates))
		for k, c := range candidates {
			ids[n][k] = c.item
			scores[n][k] = c.score
		}
	}
	return ids, scores, nil
}

// modelState is the serialized form of a fitted model.
type modelState struct {
	Factors        int         `json:"factors"`
	Regularization float64     `json:"regularization"`
	Alpha          float64     `json:"alpha"`
	UserFactors    [][]float64 `json:"user_factors"`
	ItemFactors    [][]float64 `json:"item_factors"`
}

// Save persists the fitted factors to path.
func (a *ALS) Save(path string) error {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if !a.fitted {
		return ErrNotFitted
	}
	data, err := json.Marshal(modelState{
		Factors:        a.factors,
		Regularization: a.regularization,
		Alpha:          a.alpha,
		UserFactors:    a.userFactors,
		ItemFactors:    a.itemFactors,
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrModelCodec, err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("%w: %w", ErrModelIO, err)
	}
	return nil
}

// Load restores fitted factors written by Save.
func (a *ALS) Load(path string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrModelIO, err)
	}
	var s modelState
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %w", ErrModelCodec, err)
	}
	if s.Factors <= 0 {
		return fmt.Errorf("%w: non-positive factor dimension", ErrModelCodec)
	}
	a.factors = s.Factors
	a.regularization = s.Regularization
	a.alpha = s.Alpha
	a.userFactors = s.UserFactors
	a.itemFactors = s.ItemFactors
	a.fitted = true
	return nil
}

// confidence maps a rating to its confidence weight. Non-finite ratings
// mark bad categorical data upstream; they are excluded here so one bad
// row cannot poison every factor it touches.
func (a *ALS) confidence(r float64) (float64, bool) {
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0, false
	}
	return 1 + a.alpha*r, true
}

// rowConfidence returns the confidence-weighted row u of m.
func (a *ALS) rowConfidence(m *matrix.CSR, u int) map[int]float64 {
	cols, values := m.Row(u)
	out := make(map[int]float64, len(cols))
	for k, i := range cols {
		if conf, ok := a.confidence(values[k]); ok {
			out[i] = conf
		}
	}
	return out
}

func (a *ALS) initFactors(n int) [][]float64 {
	out := make([][]float64, n)
	for i := range out {
		out[i] = a.newVector()
	}
	return out
}

func (a *ALS) newVector() []float64 {
	v := make([]float64, a.factors)
	for f := range v {
		v[f] = initScale * (a.rng.Float64() - 0.5)
	}
	return v
}

// grow extends a factor matrix with fresh vectors for newly registered
// indices. Existing vectors are never reassigned.
func (a *ALS) grow(factors *[][]float64, n int) {
	for len(*factors) < n {
		*factors = append(*factors, a.newVector())
	}
}

// sweep re-solves every vector on one side against the fixed other side,
// chunked across workers.
func (a *ALS) sweep(target, fixed [][]float64, interactions func(int) map[int]float64) {
	gram := a.gramMatrix(fixed)

	var wg sync.WaitGroup
	n := len(target)
	chunk := (n + a.workers - 1) / a.workers
	for w := 0; w < a.workers; w++ {
		start := w * chunk
		end := start + chunk
		if end > n {
			end = n
		}
		if start >= end {
			break
		}
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			for ix := lo; ix < hi; ix++ {
				target[ix] = a.solveVector(interactions(ix), fixed, gram)
			}
		}(start, end)
	}
	wg.Wait()
}

// gramMatrix precomputes F'F for the fixed factor side.
func (a *ALS) gramMatrix(factors [][]float64) [][]float64 {
	gram := make([][]float64, a.factors)
	for f := range gram {
		gram[f] = make([]float64, a.factors)
	}
	for _, v := range factors {
		for f1 := 0; f1 < a.factors; f1++ {
			for f2 := f1; f2 < a.factors; f2++ {
				gram[f1][f2] += v[f1] * v[f2]
				if f1 != f2 {
					gram[f2][f1] = gram[f1][f2]
				}
			}
		}
	}
	return gram
}

// solveVector solves one ridge system
//
//	(F'C F + lambda*I) x = F'C p
//
// where C holds the confidence weights and p is 1 for every observed
// interaction.
func (a *ALS) solveVector(confidences map[int]float64, fixed [][]float64, gram [][]float64) []float64 {
	system := make([][]float64, a.factors)
	for f := range system {
		system[f] = make([]float64, a.factors)
		copy(system[f], gram[f])
		system[f][f] += a.regularization
	}

	rhs := make([]float64, a.factors)
	for ix, conf := range confidences {
		v := fixed[ix]
		cMinus1 := conf - 1
		for f1 := 0; f1 < a.factors; f1++ {
			for f2 := f1; f2 < a.factors; f2++ {
				delta := cMinus1 * v[f1] * v[f2]
				system[f1][f2] += delta
				if f1 != f2 {
					system[f2][f1] += delta
				}
			}
			rhs[f1] += conf * v[f1]
		}
	}
	return choleskySolve(system, rhs)
}

// choleskySolve solves system*x = rhs via Cholesky decomposition with
// forward and back substitution.
func choleskySolve(system [][]float64, rhs []float64) []float64 {
	n := len(rhs)
	lower := make([][]float64, n)
	for i := range lower {
		lower[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := 0; j <= i; j++ {
			sum := system[i][j]
			for k := 0; k < j; k++ {
				sum -= lower[i][k] * lower[j][k]
			}
			if i == j {
				if sum <= 0 {
					// Numerical floor when the system is not positive definite.
					sum = 1e-10
				}
				lower[i][j] = math.Sqrt(sum)
			} else if lower[j][j] != 0 {
				lower[i][j] = sum / lower[j][j]
			}
		}
	}

	z := make([]float64, n)
	for i := 0; i < n; i++ {
		sum := rhs[i]
		for j := 0; j < i; j++ {
			sum -= lower[i][j] * z[j]
		}
		if lower[i][i] != 0 {
			z[i] = sum / lower[i][i]
		}
	}

	x := make([]float64, n)
	for i := n - 1; i >= 0; i-- {
		sum := z[i]
		for j := i + 1; j < n; j++ {
			sum -= lower[j][i] * x[j]
		}
		if lower[i][i] != 0 {
			x[i] = sum / lower[i][i]
		}
	}
	return x
}

func dot(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// Ensure interface compliance.
var _ Engine = (*ALS)(nil)
