// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/okian/quizrec/internal/adapters/engine"
	"github.com/okian/quizrec/internal/adapters/source"
	"github.com/okian/quizrec/internal/domain/dataset"
	"github.com/okian/quizrec/internal/domain/index"
	"github.com/okian/quizrec/internal/domain/matrix"
	"github.com/okian/quizrec/internal/domain/model"
	"github.com/okian/quizrec/pkg/logger"
	"github.com/okian/quizrec/pkg/metrics"
)

// Service orchestrates the dataset, the interaction matrix, and the
// factorization engine behind the HTTP API. All state mutations run under
// the write lock; queries share the read lock.
type Service struct {
	mu sync.RWMutex

	// Core components
	data   *dataset.Dataset
	matrix *matrix.CSR
	eng    engine.Engine
	src    source.Source

	// Configuration
	topN          int
	maxBatchSize  int
	engineTimeout time.Duration
	snapshotPath  string
	modelPath     string

	// State
	started bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithSource sets the bulk data source used for the initial build.
func WithSource(src source.Source) Option {
	return func(s *Service) {
		s.src = src
	}
}

// WithEngine sets the factorization engine.
func WithEngine(eng engine.Engine) Option {
	return func(s *Service) {
		if eng != nil {
			s.eng = eng
		}
	}
}

// WithTopN sets the recommendation list length.
func WithTopN(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.topN = n
		}
	}
}

// WithMaxBatchSize caps interactions accepted per ingest call.
func WithMaxBatchSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxBatchSize = n
		}
	}
}

// WithEngineTimeout caps any single engine call.
func WithEngineTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.engineTimeout = d
		}
	}
}

// WithSnapshotPath sets where the dataset snapshot is persisted.
// Empty disables persistence.
func WithSnapshotPath(path string) Option {
	return func(s *Service) {
		s.snapshotPath = path
	}
}

// WithModelPath sets where the model state is persisted.
func WithModelPath(path string) Option {
	return func(s *Service) {
		s.modelPath = path
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		topN:          10,
		maxBatchSize:  10_000,
		engineTimeout: 30 * time.Second,
		eng:           engine.NewALS(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start brings the service to a ready state: restore the dataset and model
// from disk when both are present, otherwise build from the configured
// source and fit from scratch.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting recommendation service...")

	if restored := s.restore(ctx); !restored {
		if s.src == nil {
			return ErrNoData
		}
		if err := s.bootstrap(ctx); err != nil {
			return err
		}
	}

	s.started = true
	s.publishSizes()
	s.logger.Info(ctx, "recommendation service started",
		logger.Int("players", s.data.NumPlayers()),
		logger.Int("questions", s.data.NumQuestions()),
		logger.Int("observations", s.data.NumObservations()),
	)
	return nil
}

// restore loads the dataset snapshot and model state from disk. Both must
// load for the restore to count; a partial restore is discarded.
func (s *Service) restore(ctx context.Context) bool {
	if s.snapshotPath == "" || s.modelPath == "" {
		return false
	}
	if _, err := os.Stat(s.snapshotPath); err != nil {
		return false
	}

	data, err := dataset.Load(s.snapshotPath)
	if err != nil {
		s.logger.Warn(ctx, "snapshot load failed, rebuilding", logger.Error(err))
		return false
	}
	if err := s.eng.Load(s.modelPath); err != nil {
		s.logger.Warn(ctx, "model load failed, rebuilding", logger.Error(err))
		return false
	}
	m, err := data.Matrix()
	if err != nil {
		s.logger.Warn(ctx, "matrix rebuild from snapshot failed", logger.Error(err))
		return false
	}

	s.data = data
	s.matrix = m
	s.logger.Info(ctx, "restored dataset and model from disk",
		logger.String("snapshot", s.snapshotPath),
		logger.String("model", s.modelPath),
	)
	return true
}

// bootstrap performs the initial bulk build and full fit.
func (s *Service) bootstrap(ctx context.Context) error {
	data, err := dataset.Build(ctx, s.src)
	if err != nil {
		return err
	}

	start := time.Now()
	m, err := data.Matrix()
	if err != nil {
		return err
	}
	metrics.RecordMatrixRebuildDuration(msSince(start))

	start = time.Now()
	if err := s.engineCall(ctx, func(ctx context.Context) error {
		return s.eng.Fit(ctx, m)
	}); err != nil {
		return err
	}
	metrics.RecordEngineFitDuration(msSince(start))

	s.data = data
	s.matrix = m
	if data.DroppedInteractions() > 0 {
		s.logger.Warn(ctx, "interactions dropped during build",
			logger.Int("dropped", data.DroppedInteractions()),
		)
	}
	s.persist(ctx)
	return nil
}

// Stop persists state and marks the service stopped.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping recommendation service...")
	s.persist(ctx)
	s.started = false
	s.logger.Info(ctx, "recommendation service stopped")
}

// RecommendOne returns the top question ids for a single player.
func (s *Service) RecommendOne(ctx context.Context, playerID string) ([]string, error) {
	out, err := s.Recommend(ctx, []string{playerID})
	if err != nil {
		return nil, err
	}
	return out[playerID], nil
}

// Recommend returns the top question ids per requested player. Every id
// must be registered; one unknown id fails the whole call.
func (s *Service) Recommend(ctx context.Context, playerIDs []string) (map[string][]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return nil, ErrNotStarted
	}
	return s.recommendLocked(ctx, playerIDs)
}

// recommendLocked requires at least the read lock.
func (s *Service) recommendLocked(ctx context.Context, playerIDs []string) (map[string][]string, error) {
	userIxs := make([]int, len(playerIDs))
	for i, id := range playerIDs {
		ix, err := s.data.PlayerIndex(id)
		if err != nil {
			if errors.Is(err, index.ErrUnknownID) {
				metrics.RecordNotFound()
				return nil, fmt.Errorf("%w: player %q", ErrNotFound, id)
			}
			return nil, err
		}
		userIxs[i] = ix
	}

	start := time.Now()
	var itemIxs [][]int
	err := s.engineCall(ctx, func(ctx context.Context) error {
		var callErr error
		itemIxs, _, callErr = s.eng.Recommend(ctx, userIxs, s.matrix, s.topN, true)
		return callErr
	})
	if err != nil {
		return nil, err
	}
	metrics.RecordEngineRecommendDuration(msSince(start))

	out := make(map[string][]string, len(playerIDs))
	for i, id := range playerIDs {
		ids := make([]string, 0, len(itemIxs[i]))
		for _, ix := range itemIxs[i] {
			qid, err := s.data.QuestionID(ix)
			if err != nil {
				return nil, err
			}
			ids = append(ids, qid)
		}
		out[id] = ids
	}
	return out, nil
}

// Ingest appends a batch of interactions, refits the touched slice of the
// model, persists, and returns fresh recommendations for the batch players.
func (s *Service) Ingest(ctx context.Context, batch []model.InteractionPayload) (map[string][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil, ErrNotStarted
	}
	if len(batch) > s.maxBatchSize {
		return nil, fmt.Errorf("%w: %d > %d", ErrBatchTooLarge, len(batch), s.maxBatchSize)
	}

	playerIxs, questionIxs, err := s.data.AddInteractions(batch)
	if err != nil {
		return nil, err
	}
	metrics.RecordIngestBatch(len(batch))

	start := time.Now()
	m, err := s.data.Matrix()
	if err != nil {
		return nil, err
	}
	s.matrix = m
	metrics.RecordMatrixRebuildDuration(msSince(start))

	start = time.Now()
	if err := s.engineCall(ctx, func(ctx context.Context) error {
		if err := s.eng.PartialFitUsers(ctx, playerIxs, m); err != nil {
			return err
		}
		return s.eng.PartialFitItems(ctx, questionIxs, m)
	}); err != nil {
		return nil, err
	}
	metrics.RecordEnginePartialFitDuration(msSince(start))

	s.publishSizes()
	s.persist(ctx)

	ids := make([]string, len(playerIxs))
	for i, ix := range playerIxs {
		id, err := s.data.PlayerID(ix)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return s.recommendLocked(ctx, ids)
}

// Stats returns service statistics for monitoring.
func (s *Service) Stats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started": s.started,
		"topN":    s.topN,
	}
	if s.started {
		stats["players"] = s.data.NumPlayers()
		stats["questions"] = s.data.NumQuestions()
		stats["observations"] = s.data.NumObservations()
		stats["droppedInteractions"] = s.data.DroppedInteractions()
		s.publishSizes()
	}
	return stats
}

// engineCall runs fn under the engine timeout and maps any failure,
// including deadline expiry, to ErrUnavailable.
func (s *Service) engineCall(ctx context.Context, fn func(context.Context) error) error {
	callCtx, cancel := context.WithTimeout(ctx, s.engineTimeout)
	defer cancel()

	if err := fn(callCtx); err != nil {
		metrics.RecordEngineError()
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return nil
}

// persist writes the snapshot and model to disk. Failures are logged, not
// fatal: the in-memory state stays authoritative.
func (s *Service) persist(ctx context.Context) {
	if s.snapshotPath != "" {
		if err := s.data.Save(s.snapshotPath); err != nil {
			s.logger.Warn(ctx, "snapshot save failed", logger.Error(err))
		}
	}
	if s.modelPath != "" {
		if err := s.eng.Save(s.modelPath); err != nil {
			s.logger.Warn(ctx, "model save failed", logger.Error(err))
		}
	}
}

func (s *Service) publishSizes() {
	metrics.UpdateDatasetSizes(s.data.NumPlayers(), s.data.NumQuestions(), s.data.NumObservations())
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000.0
}
