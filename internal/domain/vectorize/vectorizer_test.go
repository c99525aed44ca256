package vectorize_test

import (
	"errors"
	"math"
	"testing"

	"github.com/okian/quizrec/internal/domain/model"
	"github.com/okian/quizrec/internal/domain/vectorize"
	"github.com/smartystreets/goconvey/convey"
)

const tolerance = 1e-9

func TestVectorizer(t *testing.T) {
	convey.Convey("Given a vectorizer over the default vocabulary", t, func() {
		v := vectorize.New()

		convey.Convey("When transforming before fitting", func() {
			_, err := v.Transform([]model.Labels{{"Math"}})

			convey.Convey("Then it should fail with ErrNotFitted", func() {
				convey.So(errors.Is(err, vectorize.ErrNotFitted), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When fitting on a small major corpus", func() {
			rows := []model.Labels{
				{"Math"},
				{"Physics"},
				{"Math", "Physics"},
			}
			vecs := v.FitTransform(rows)

			convey.Convey("Then single-label rows normalize to unit vectors", func() {
				convey.So(len(vecs), convey.ShouldEqual, 3)
				convey.So(len(vecs[0]), convey.ShouldEqual, v.Dim())

				var norm float64
				for _, x := range vecs[0] {
					norm += x * x
				}
				convey.So(math.Sqrt(norm), convey.ShouldAlmostEqual, 1.0, tolerance)
			})

			convey.Convey("Then idf weighting follows the smoothed formula", func() {
				// Math appears in 2 of 3 rows, Physics in 2 of 3. Both
				// coordinates of the combined row carry equal weight.
				convey.So(vecs[2][5], convey.ShouldAlmostEqual, vecs[2][6], tolerance) // Math, Physics slots
				convey.So(vecs[2][5], convey.ShouldAlmostEqual, 1/math.Sqrt2, tolerance)
			})

			convey.Convey("And transforming categories with the fitted weights", func() {
				catVecs, err := v.Transform([]model.Labels{{"Math"}})

				convey.Convey("Then identical single labels produce identical vectors", func() {
					convey.So(err, convey.ShouldBeNil)
					for i := range catVecs[0] {
						convey.So(catVecs[0][i], convey.ShouldAlmostEqual, vecs[0][i], tolerance)
					}
				})
			})

			convey.Convey("And transforming an out-of-vocabulary label", func() {
				out, err := v.Transform([]model.Labels{{"Astrology"}})

				convey.Convey("Then the row encodes to the zero vector", func() {
					convey.So(err, convey.ShouldBeNil)
					for _, x := range out[0] {
						convey.So(x, convey.ShouldEqual, 0)
					}
				})
			})

			convey.Convey("And snapshotting then restoring", func() {
				state, err := v.Snapshot()
				convey.So(err, convey.ShouldBeNil)

				restored, err := vectorize.Restore(state)
				convey.So(err, convey.ShouldBeNil)

				convey.Convey("Then the restored vectorizer encodes identically", func() {
					a, err := v.Transform([]model.Labels{{"Math", "History"}})
					convey.So(err, convey.ShouldBeNil)
					b, err := restored.Transform([]model.Labels{{"Math", "History"}})
					convey.So(err, convey.ShouldBeNil)
					for i := range a[0] {
						convey.So(b[0][i], convey.ShouldAlmostEqual, a[0][i], tolerance)
					}
				})
			})
		})

		convey.Convey("When snapshotting before fitting", func() {
			_, err := v.Snapshot()

			convey.Convey("Then it should fail with ErrNotFitted", func() {
				convey.So(errors.Is(err, vectorize.ErrNotFitted), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When restoring from inconsistent state", func() {
			_, err := vectorize.Restore(vectorize.State{
				Vocabulary: []string{"Math"},
				IDF:        []float64{1.0, 2.0},
			})

			convey.Convey("Then it should fail with ErrInvalidState", func() {
				convey.So(errors.Is(err, vectorize.ErrInvalidState), convey.ShouldBeTrue)
			})
		})
	})
}
