// Package loadgen drives a running service with recommendation traffic
// and reports latency statistics.
package loadgen

import "time"

// Config controls a load run.
type Config struct {
	BaseURL   string
	IDFile    string
	Requests  int
	BatchSize int
	Workers   int
	Timeout   time.Duration
	Verbose   bool
}

// Stats accumulates results across workers.
type Stats struct {
	Sent      int
	Succeeded int
	Failed    int
	NotFound  int

	TotalLatency time.Duration
	MaxLatency   time.Duration
}

// recommendRequest mirrors the POST /recommend schema.
type recommendRequest struct {
	PlayerIDs []string `json:"player_ids"`
}

type recommendResponse struct {
	Recommendations map[string][]string `json:"recommendations"`
}
