package service_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/okian/quizrec/internal/adapters/engine"
	"github.com/okian/quizrec/internal/adapters/source"
	service "github.com/okian/quizrec/internal/app"
	"github.com/okian/quizrec/internal/domain/matrix"
	"github.com/okian/quizrec/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func testSource() *source.MemorySource {
	players := []model.Player{
		{ID: "alice", Major: model.Labels{"Math"}, Rank: 5},
		{ID: "bob", Major: model.Labels{"History"}, Rank: 2},
	}
	questions := []model.Question{
		{ID: "q1", Category: model.Labels{"Math"}, Difficulty: 3},
		{ID: "q2", Category: model.Labels{"History"}, Difficulty: 1},
		{ID: "q3", Category: model.Labels{"Math"}, Difficulty: 2},
		{ID: "q4", Category: model.Labels{"History"}, Difficulty: 4},
	}
	interactions := []model.Interaction{
		{PlayerID: "alice", QuestionID: "q1", Time: 20, Outcome: 1},
		{PlayerID: "alice", QuestionID: "q3", Time: 35, Outcome: 1},
		{PlayerID: "bob", QuestionID: "q2", Time: 40, Outcome: 1},
		{PlayerID: "bob", QuestionID: "q4", Time: 90, Outcome: 0},
	}
	return source.NewMemorySource(players, questions, interactions)
}

func testEngine() *engine.ALS {
	return engine.NewALS(
		engine.WithFactors(8),
		engine.WithIterations(10),
		engine.WithWorkers(2),
		engine.WithSeed(1),
	)
}

func newStartedService(t *testing.T, opts ...service.Option) *service.Service {
	t.Helper()
	base := []service.Option{
		service.WithSource(testSource()),
		service.WithEngine(testEngine()),
		service.WithTopN(2),
	}
	svc := service.New(append(base, opts...)...)
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("start service: %v", err)
	}
	return svc
}

func TestServiceLifecycle(t *testing.T) {
	convey.Convey("Given service construction options", t, func() {
		ctx := context.Background()

		convey.Convey("When starting with neither source nor snapshot", func() {
			svc := service.New(service.WithEngine(testEngine()))
			err := svc.Start(ctx)

			convey.Convey("Then it should fail with ErrNoData", func() {
				convey.So(errors.Is(err, service.ErrNoData), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When querying before start", func() {
			svc := service.New(service.WithEngine(testEngine()))
			_, err := svc.RecommendOne(ctx, "alice")

			convey.Convey("Then it should fail with ErrNotStarted", func() {
				convey.So(errors.Is(err, service.ErrNotStarted), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When starting with persistence and restarting from disk", func() {
			dir := t.TempDir()
			snapshotPath := filepath.Join(dir, "dataset.json")
			modelPath := filepath.Join(dir, "model.json")

			first := newStartedService(t,
				service.WithSnapshotPath(snapshotPath),
				service.WithModelPath(modelPath),
			)
			want, err := first.RecommendOne(ctx, "alice")
			convey.So(err, convey.ShouldBeNil)
			first.Stop()

			// Second instance has no source; it must restore from disk.
			second := service.New(
				service.WithEngine(testEngine()),
				service.WithTopN(2),
				service.WithSnapshotPath(snapshotPath),
				service.WithModelPath(modelPath),
			)
			convey.So(second.Start(ctx), convey.ShouldBeNil)

			convey.Convey("Then the restored instance serves identical recommendations", func() {
				got, err := second.RecommendOne(ctx, "alice")
				convey.So(err, convey.ShouldBeNil)
				convey.So(got, convey.ShouldResemble, want)
			})
		})
	})
}

func TestServiceRecommend(t *testing.T) {
	convey.Convey("Given a started service", t, func() {
		ctx := context.Background()
		svc := newStartedService(t)

		convey.Convey("When recommending for a known player", func() {
			out, err := svc.RecommendOne(ctx, "alice")

			convey.Convey("Then answered questions are excluded", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(len(out), convey.ShouldBeGreaterThan, 0)
				convey.So(out, convey.ShouldNotContain, "q1")
				convey.So(out, convey.ShouldNotContain, "q3")
			})
		})

		convey.Convey("When recommending for several players at once", func() {
			out, err := svc.Recommend(ctx, []string{"alice", "bob"})

			convey.Convey("Then each player gets an entry", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(len(out), convey.ShouldEqual, 2)
				convey.So(out["alice"], convey.ShouldNotBeNil)
				convey.So(out["bob"], convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When recommending for a never-seen player", func() {
			_, err := svc.Recommend(ctx, []string{"alice", "stranger"})

			convey.Convey("Then the whole call fails with ErrNotFound", func() {
				convey.So(errors.Is(err, service.ErrNotFound), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the engine fails", func() {
			broken := service.New(
				service.WithSource(testSource()),
				service.WithEngine(&failingEngine{}),
			)
			err := broken.Start(ctx)

			convey.Convey("Then the failure surfaces as ErrUnavailable", func() {
				convey.So(errors.Is(err, service.ErrUnavailable), convey.ShouldBeTrue)
			})
		})
	})
}

func TestServiceIngest(t *testing.T) {
	convey.Convey("Given a started service", t, func() {
		ctx := context.Background()
		svc := newStartedService(t)

		convey.Convey("When ingesting interactions for a brand new player", func() {
			batch := []model.InteractionPayload{
				{
					PlayerID: "carol", QuestionID: "q1",
					Major: model.Labels{"Math"}, Category: model.Labels{"Math"},
					Rank: 6, Difficulty: 3, Time: 15, Outcome: 1,
				},
				{
					PlayerID: "carol", QuestionID: "q2",
					Major: model.Labels{"Math"}, Category: model.Labels{"History"},
					Rank: 6, Difficulty: 1, Time: 50, Outcome: 0,
				},
			}
			out, err := svc.Ingest(ctx, batch)

			convey.Convey("Then the response carries recommendations for the batch players", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(len(out), convey.ShouldEqual, 1)
				convey.So(out["carol"], convey.ShouldNotBeNil)
				convey.So(out["carol"], convey.ShouldNotContain, "q1")
				convey.So(out["carol"], convey.ShouldNotContain, "q2")
			})

			convey.Convey("Then the player is queryable afterwards", func() {
				convey.So(err, convey.ShouldBeNil)
				recs, err := svc.RecommendOne(ctx, "carol")
				convey.So(err, convey.ShouldBeNil)
				convey.So(len(recs), convey.ShouldBeGreaterThan, 0)
			})

			convey.Convey("Then stats reflect the growth", func() {
				convey.So(err, convey.ShouldBeNil)
				stats := svc.Stats()
				convey.So(stats["players"], convey.ShouldEqual, 3)
				convey.So(stats["observations"], convey.ShouldEqual, 6)
			})
		})

		convey.Convey("When ingesting an oversized batch", func() {
			small := newStartedService(t, service.WithMaxBatchSize(1))
			batch := []model.InteractionPayload{
				{PlayerID: "a", QuestionID: "b", Major: model.Labels{"Math"}, Category: model.Labels{"Math"}, Rank: 1, Difficulty: 1, Time: 1, Outcome: 1},
				{PlayerID: "c", QuestionID: "d", Major: model.Labels{"Math"}, Category: model.Labels{"Math"}, Rank: 1, Difficulty: 1, Time: 1, Outcome: 1},
			}
			_, err := small.Ingest(ctx, batch)

			convey.Convey("Then it should fail with ErrBatchTooLarge", func() {
				convey.So(errors.Is(err, service.ErrBatchTooLarge), convey.ShouldBeTrue)
			})
		})
	})
}

// failingEngine satisfies engine.Engine and fails every training call.
type failingEngine struct{}

var errBoom = errors.New("boom")

func (f *failingEngine) Fit(context.Context, *matrix.CSR) error { return errBoom }
func (f *failingEngine) PartialFitUsers(context.Context, []int, *matrix.CSR) error {
	return errBoom
}
func (f *failingEngine) PartialFitItems(context.Context, []int, *matrix.CSR) error {
	return errBoom
}
func (f *failingEngine) Recommend(context.Context, []int, *matrix.CSR, int, bool) ([][]int, [][]float64, error) {
	return nil, nil, errBoom
}
func (f *failingEngine) Save(string) error { return nil }
func (f *failingEngine) Load(string) error { return errBoom }
