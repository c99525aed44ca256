package loadgen

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/smartystreets/goconvey/convey"
)

func TestLoadPlayerIDs(t *testing.T) {
	convey.Convey("Given an id file with blanks and comments", t, func() {
		path := filepath.Join(t.TempDir(), "ids.txt")
		content := "alice\n\n# a comment\nbob\n  carol  \n"
		convey.So(os.WriteFile(path, []byte(content), 0o600), convey.ShouldBeNil)

		convey.Convey("When loading it", func() {
			ids, err := loadPlayerIDs(path)

			convey.Convey("Then only trimmed ids survive", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(ids, convey.ShouldResemble, []string{"alice", "bob", "carol"})
			})
		})
	})

	convey.Convey("Given a missing file", t, func() {
		_, err := loadPlayerIDs("/nonexistent/ids.txt")

		convey.Convey("Then loading fails", func() {
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}

func TestMakeBatches(t *testing.T) {
	convey.Convey("Given a small id pool", t, func() {
		ids := []string{"a", "b", "c"}

		convey.Convey("When slicing more requests than the pool covers", func() {
			batches := makeBatches(ids, 4, 2)

			convey.Convey("Then every batch is full, cycling through the pool", func() {
				convey.So(len(batches), convey.ShouldEqual, 4)
				for _, b := range batches {
					convey.So(len(b), convey.ShouldEqual, 2)
					for _, id := range b {
						convey.So(ids, convey.ShouldContain, id)
					}
				}
			})
		})
	})
}
