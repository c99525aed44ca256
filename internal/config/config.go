// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Defaults live in New; Load layers file and env on top.
// - External errors must be wrapped via this package's error kinds.
package config

import (
	"runtime"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// MongoURI points at the source database. Empty disables the Mongo
	// source; the service then starts from a snapshot.
	MongoURI string `koanf:"mongo_uri"`

	// MongoDatabase names the database holding players, questions, and
	// answered_questions.
	MongoDatabase string `koanf:"mongo_database"`

	// SnapshotPath is where the dataset snapshot is persisted. Empty
	// disables persistence.
	SnapshotPath string `koanf:"snapshot_path"`

	// ModelPath is where the factorization model is persisted.
	ModelPath string `koanf:"model_path"`

	// EngineFactors is the latent dimensionality of the model.
	EngineFactors int `koanf:"engine_factors"`

	// EngineIterations is the number of alternating sweeps per full fit.
	EngineIterations int `koanf:"engine_iterations"`

	// EngineRegularization is the ridge term of the least-squares solves.
	EngineRegularization float64 `koanf:"engine_regularization"`

	// EngineAlpha scales ratings into confidence weights.
	EngineAlpha float64 `koanf:"engine_alpha"`

	// EngineWorkers bounds solver parallelism.
	EngineWorkers int `koanf:"engine_workers"`

	// EngineTimeoutMS caps any single engine call.
	EngineTimeoutMS int `koanf:"engine_timeout_ms"`

	// TopN is the recommendation list length per player.
	TopN int `koanf:"top_n"`

	// MaxBatchSize caps interactions accepted per ingest request.
	MaxBatchSize int `koanf:"max_batch_size"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:             "info",
		Addr:                 ":9080",
		MongoURI:             "",
		MongoDatabase:        "quizdb",
		SnapshotPath:         "data/dataset.json",
		ModelPath:            "data/model.json",
		EngineFactors:        50,
		EngineIterations:     50,
		EngineRegularization: 0.01,
		EngineAlpha:          40.0,
		EngineWorkers:        runtime.NumCPU(),
		EngineTimeoutMS:      30_000,
		TopN:                 10,
		MaxBatchSize:         10_000,
	}
}
