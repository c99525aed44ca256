package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/quizrec/internal/loadgen"
)

// Default configuration constants.
const (
	defaultRequests  = 1000
	defaultBatchSize = 10
	defaultTimeout   = 30 * time.Second
	defaultRunLimit  = 10 * time.Minute
)

func main() {
	var (
		baseURL   = flag.String("url", "http://localhost:9080", "Base URL of the service")
		idFile    = flag.String("ids", "player_ids.txt", "File with one player id per line")
		requests  = flag.Int("requests", defaultRequests, "Number of batched requests to send")
		batchSize = flag.Int("batch", defaultBatchSize, "Players per request")
		workers   = flag.Int("workers", runtime.NumCPU(), "Number of concurrent workers")
		timeout   = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		verbose   = flag.Bool("verbose", false, "Log every request")
	)
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunLimit)
	defer cancel()

	cfg := &loadgen.Config{
		BaseURL:   *baseURL,
		IDFile:    *idFile,
		Requests:  *requests,
		BatchSize: *batchSize,
		Workers:   *workers,
		Timeout:   *timeout,
		Verbose:   *verbose,
	}

	stats, err := loadgen.Run(ctx, cfg)
	if err != nil {
		os.Stderr.WriteString("load run failed: " + err.Error() + "\n")
		if stats != nil {
			stats.Report()
		}
		os.Exit(1)
	}
	stats.Report()
}
