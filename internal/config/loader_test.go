package config_test

import (
	"os"
	"testing"

	"github.com/okian/quizrec/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		convey.Convey("When loading config with defaults only", func() {
			clearConfigEnvVars()

			cfg, err := config.Load()

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.EngineFactors, convey.ShouldEqual, 50)
				convey.So(cfg.EngineIterations, convey.ShouldEqual, 50)
				convey.So(cfg.EngineRegularization, convey.ShouldEqual, 0.01)
				convey.So(cfg.EngineAlpha, convey.ShouldEqual, 40.0)
				convey.So(cfg.TopN, convey.ShouldEqual, 10)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("QUIZREC_ADDR", ":8080")
			_ = os.Setenv("QUIZREC_TOP_N", "25")
			_ = os.Setenv("QUIZREC_ENGINE_FACTORS", "32")
			_ = os.Setenv("QUIZREC_MONGO_URI", "mongodb://localhost:27017")
			defer clearConfigEnvVars()

			cfg, err := config.Load()

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.TopN, convey.ShouldEqual, 25)
				convey.So(cfg.EngineFactors, convey.ShouldEqual, 32)
				convey.So(cfg.MongoURI, convey.ShouldEqual, "mongodb://localhost:27017")
				convey.So(cfg.EngineIterations, convey.ShouldEqual, 50) // from defaults
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			yamlContent := `
addr: ":9090"
top_n: 5
engine_alpha: 20.0
mongo_database: "staging"
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("QUIZREC_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load()

			convey.Convey("Then it should load from YAML file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.TopN, convey.ShouldEqual, 5)
				convey.So(cfg.EngineAlpha, convey.ShouldEqual, 20.0)
				convey.So(cfg.MongoDatabase, convey.ShouldEqual, "staging")
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			yamlContent := `
addr: ":9090"
top_n: 5
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("QUIZREC_CONFIG", tmpFile)
			_ = os.Setenv("QUIZREC_ADDR", ":8080")
			defer clearConfigEnvVars()

			cfg, err := config.Load()

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080") // overridden by env
				convey.So(cfg.TopN, convey.ShouldEqual, 5)       // from file
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("QUIZREC_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load()

			convey.Convey("Then it should return a load error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with empty addr", func() {
			_ = os.Setenv("QUIZREC_ADDR", "")
			defer clearConfigEnvVars()

			cfg, err := config.Load()

			convey.Convey("Then it should return a validation error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid engine settings", func() {
			_ = os.Setenv("QUIZREC_ENGINE_FACTORS", "0")
			defer clearConfigEnvVars()

			cfg, err := config.Load()

			convey.Convey("Then it should reject non-positive factors", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "engine_factors")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	envVars := []string{
		"QUIZREC_CONFIG",
		"QUIZREC_ADDR",
		"QUIZREC_TOP_N",
		"QUIZREC_ENGINE_FACTORS",
		"QUIZREC_ENGINE_ALPHA",
		"QUIZREC_MONGO_URI",
		"QUIZREC_MONGO_DATABASE",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "quizrec-config-*.yaml")
	if err != nil {
		panic(err)
	}

	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}

	if err := tmpFile.Close(); err != nil {
		panic(err)
	}

	return tmpFile.Name()
}
