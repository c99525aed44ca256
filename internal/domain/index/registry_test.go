package index_test

import (
	"errors"
	"testing"

	"github.com/okian/quizrec/internal/domain/index"
	"github.com/smartystreets/goconvey/convey"
)

func TestRegistry(t *testing.T) {
	convey.Convey("Given an empty registry", t, func() {
		r := index.NewRegistry()

		convey.Convey("When registering ids in order", func() {
			r.Register("p1", "p2", "p3")

			convey.Convey("Then indices follow first-seen order", func() {
				ix, err := r.Index("p1")
				convey.So(err, convey.ShouldBeNil)
				convey.So(ix, convey.ShouldEqual, 0)

				ix, err = r.Index("p2")
				convey.So(err, convey.ShouldBeNil)
				convey.So(ix, convey.ShouldEqual, 1)

				ix, err = r.Index("p3")
				convey.So(err, convey.ShouldBeNil)
				convey.So(ix, convey.ShouldEqual, 2)

				convey.So(r.Len(), convey.ShouldEqual, 3)
			})

			convey.Convey("Then the mapping is a bijection", func() {
				for i, id := range []string{"p1", "p2", "p3"} {
					got, err := r.ID(i)
					convey.So(err, convey.ShouldBeNil)
					convey.So(got, convey.ShouldEqual, id)
				}
			})
		})

		convey.Convey("When registering the same id twice", func() {
			r.Register("p1")
			r.Register("p1", "p2")

			convey.Convey("Then the first assignment wins and no index is reused", func() {
				ix, err := r.Index("p1")
				convey.So(err, convey.ShouldBeNil)
				convey.So(ix, convey.ShouldEqual, 0)

				ix, err = r.Index("p2")
				convey.So(err, convey.ShouldBeNil)
				convey.So(ix, convey.ShouldEqual, 1)

				convey.So(r.Len(), convey.ShouldEqual, 2)
			})
		})

		convey.Convey("When registering duplicates within one call", func() {
			r.Register("q1", "q1", "q2")

			convey.Convey("Then the first occurrence wins", func() {
				ix, err := r.Index("q1")
				convey.So(err, convey.ShouldBeNil)
				convey.So(ix, convey.ShouldEqual, 0)

				ix, err = r.Index("q2")
				convey.So(err, convey.ShouldBeNil)
				convey.So(ix, convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When looking up unknown ids and indices", func() {
			r.Register("p1")

			convey.Convey("Then lookups fail with the sentinel kinds", func() {
				_, err := r.Index("missing")
				convey.So(errors.Is(err, index.ErrUnknownID), convey.ShouldBeTrue)

				_, err = r.ID(5)
				convey.So(errors.Is(err, index.ErrUnknownIndex), convey.ShouldBeTrue)

				_, err = r.ID(-1)
				convey.So(errors.Is(err, index.ErrUnknownIndex), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When restoring from an id list", func() {
			r.Register("a", "b", "c")
			restored := index.RestoreRegistry(r.IDs())

			convey.Convey("Then the restored registry assigns identical indices", func() {
				convey.So(restored.Len(), convey.ShouldEqual, 3)
				for _, id := range []string{"a", "b", "c"} {
					want, err := r.Index(id)
					convey.So(err, convey.ShouldBeNil)
					got, err := restored.Index(id)
					convey.So(err, convey.ShouldBeNil)
					convey.So(got, convey.ShouldEqual, want)
				}
			})
		})
	})
}
