package metrics_test

import (
	"testing"

	"github.com/okian/quizrec/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/smartystreets/goconvey/convey"
)

func TestManager(t *testing.T) {
	convey.Convey("Given a metrics manager", t, func() {
		convey.Convey("When creating one with defaults", func() {
			m := metrics.NewManager()

			convey.Convey("Then it owns a registry with registered collectors", func() {
				convey.So(m, convey.ShouldNotBeNil)
				convey.So(m.Registry(), convey.ShouldNotBeNil)

				families, err := m.Registry().Gather()
				convey.So(err, convey.ShouldBeNil)
				// Gauges register eagerly; counters and histograms appear
				// after first use.
				convey.So(len(families), convey.ShouldBeGreaterThan, 0)
			})
		})

		convey.Convey("When creating one with a custom namespace and registry", func() {
			reg := prometheus.NewRegistry()
			m := metrics.NewManager(
				metrics.WithNamespace("custom"),
				metrics.WithRegistry(reg),
			)

			convey.Convey("Then collectors land in the provided registry", func() {
				convey.So(m.Registry(), convey.ShouldEqual, reg)
			})
		})
	})
}

func TestPackageHelpers(t *testing.T) {
	convey.Convey("Given the default manager", t, func() {
		convey.Convey("When recording through the package helpers", func() {
			metrics.RecordHTTPRequest("recommend", "POST", "200")
			metrics.RecordHTTPRequestDuration("recommend", "POST", 12.5)
			metrics.RecordIngestBatch(3)
			metrics.UpdateDatasetSizes(10, 20, 30)
			metrics.RecordMatrixRebuildDuration(1.5)
			metrics.RecordEngineFitDuration(100)
			metrics.RecordEnginePartialFitDuration(10)
			metrics.RecordEngineRecommendDuration(5)
			metrics.RecordEngineError()
			metrics.RecordNotFound()

			convey.Convey("Then the registry gathers without errors", func() {
				families, err := metrics.GetRegistry().Gather()
				convey.So(err, convey.ShouldBeNil)

				names := make(map[string]struct{}, len(families))
				for _, f := range families {
					names[f.GetName()] = struct{}{}
				}
				convey.So(names, convey.ShouldContainKey, "quizrec_http_requests_total")
				convey.So(names, convey.ShouldContainKey, "quizrec_dataset_players")
				convey.So(names, convey.ShouldContainKey, "quizrec_ingest_batches_total")
				convey.So(names, convey.ShouldContainKey, "quizrec_engine_fit_duration_ms")
			})
		})
	})
}
