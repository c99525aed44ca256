package loadgen

import (
	"bufio"
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Run executes a load run: read player ids, shuffle them, and fire batched
// recommendation requests from concurrent workers. Each run carries a
// unique id, sent as the request id, so overlapping runs stay
// distinguishable on the server side.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	runID := uuid.NewString()
	fmt.Printf("load run %s against %s\n", runID, cfg.BaseURL)

	client := newHTTPClient(cfg.Timeout, runID)

	if err := checkServiceHealth(ctx, client, cfg.BaseURL); err != nil {
		return nil, err
	}

	ids, err := loadPlayerIDs(cfg.IDFile)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("no player ids in %s", cfg.IDFile)
	}

	batches := makeBatches(ids, cfg.Requests, cfg.BatchSize)

	var (
		mu    sync.Mutex
		stats Stats
	)

	work := make(chan []string)
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < cfg.Workers; w++ {
		g.Go(func() error {
			for batch := range work {
				start := time.Now()
				var resp recommendResponse
				status, err := client.postJSON(gctx, cfg.BaseURL+"/recommend", recommendRequest{PlayerIDs: batch}, &resp)
				elapsed := time.Since(start)

				mu.Lock()
				stats.Sent++
				stats.TotalLatency += elapsed
				if elapsed > stats.MaxLatency {
					stats.MaxLatency = elapsed
				}
				switch {
				case err != nil, status >= http.StatusInternalServerError:
					stats.Failed++
				case status == http.StatusNotFound:
					stats.NotFound++
				case status == http.StatusOK:
					stats.Succeeded++
				default:
					stats.Failed++
				}
				mu.Unlock()

				if cfg.Verbose {
					fmt.Printf("batch of %d -> %d in %s\n", len(batch), status, elapsed)
				}
			}
			return nil
		})
	}

	for _, batch := range batches {
		select {
		case <-gctx.Done():
		case work <- batch:
		}
	}
	close(work)

	if err := g.Wait(); err != nil {
		return &stats, err
	}
	return &stats, nil
}

// Report prints a human-readable summary.
func (s *Stats) Report() {
	fmt.Printf("requests sent:      %d\n", s.Sent)
	fmt.Printf("succeeded:          %d\n", s.Succeeded)
	fmt.Printf("not found:          %d\n", s.NotFound)
	fmt.Printf("failed:             %d\n", s.Failed)
	if s.Sent > 0 {
		fmt.Printf("avg latency:        %s\n", s.TotalLatency/time.Duration(s.Sent))
	}
	fmt.Printf("max latency:        %s\n", s.MaxLatency)
}

func checkServiceHealth(ctx context.Context, client *httpClient, baseURL string) error {
	resp, err := client.get(ctx, baseURL+"/healthz")
	if err != nil {
		return fmt.Errorf("service not reachable: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("service unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

// loadPlayerIDs reads one id per line, skipping blanks and comments.
func loadPlayerIDs(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open id file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var ids []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ids = append(ids, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read id file: %w", err)
	}
	return ids, nil
}

// makeBatches shuffles ids and slices them into n batches of the given
// size, cycling through the id pool as needed.
func makeBatches(ids []string, n, size int) [][]string {
	rand.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })

	batches := make([][]string, 0, n)
	pos := 0
	for b := 0; b < n; b++ {
		batch := make([]string, 0, size)
		for len(batch) < size {
			batch = append(batch, ids[pos])
			pos++
			if pos == len(ids) {
				pos = 0
				rand.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
			}
		}
		batches = append(batches, batch)
	}
	return batches
}
