// Package simulate drives trial execution: seed management, chunked
// parallel execution across worker goroutines, and deterministic in-order
// aggregation. Each worker owns its chunk's result buffer and shares no
// mutable state with any other worker.
package simulate

import (
	"context"
	"hash/fnv"
	"math/rand"
	"runtime"
	"sync"

	"github.com/rs/zerolog"

	"github.com/wealthpath/goalengine/internal/models"
	"github.com/wealthpath/goalengine/internal/projection"
)

// Options configures one Simulate call.
type Options struct {
	IncludeTrajectories bool
	// ChunkSize overrides auto-tuning; 0 means auto.
	ChunkSize int
	// MaxWorkers overrides the default of runtime.NumCPU(); 0 means default.
	MaxWorkers int
}

// Driver orchestrates trial execution.
type Driver struct {
	log zerolog.Logger
}

// New builds a Driver that logs diagnostics (degenerate-trial warnings)
// through log.
func New(log zerolog.Logger) *Driver {
	return &Driver{log: log}
}

// deriveSubSeed splits the root seed into a per-trial sub-seed by hashing
// (root_seed, trial_index): the same (inputs, root_seed) always yields the
// same sub-seed for trial k regardless of how trials are chunked across
// workers.
func deriveSubSeed(rootSeed int64, trialIndex int) int64 {
	h := fnv.New64a()
	var buf [16]byte
	putInt64(buf[0:8], rootSeed)
	putInt64(buf[8:16], int64(trialIndex))
	h.Write(buf[:])
	return int64(h.Sum64())
}

func putInt64(b []byte, v int64) {
	u := uint64(v)
	for i := 0; i < 8; i++ {
		b[i] = byte(u >> (8 * uint(i)))
	}
}

type chunkJob struct {
	start, end int // [start, end) trial indices
}

type chunkResult struct {
	start    int
	outcomes []models.TrialOutcome
}

// Simulate produces a TrialArray of inputs.TrialCount terminal values (and
// trajectories if requested), respecting ctx's deadline/cancellation. On
// cancellation, in-flight chunks are abandoned and ErrDeadlineExceeded is
// returned; partial results are discarded.
func (d *Driver) Simulate(ctx context.Context, inputs models.SimulationInputs, opts Options) (models.TrialArray, error) {
	if err := inputs.Validate(1, 0); err != nil {
		// The driver only validates structural shape here; trial-count
		// floor/ceiling enforcement against configured limits happens one
		// layer up in internal/engine, which knows the configured minimum.
		if err != models.ErrInsufficientTrials && err != models.ErrTrialCountExceedsLimit {
			return models.TrialArray{}, err
		}
	}

	n := inputs.TrialCount
	outcomes := make([]models.TrialOutcome, n)

	chunkSize := opts.ChunkSize
	if chunkSize <= 0 {
		chunkSize = autoChunkSize(n)
	}
	numWorkers := opts.MaxWorkers
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}

	jobs := make(chan chunkJob, (n/chunkSize)+1)
	results := make(chan chunkResult, (n/chunkSize)+1)

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				select {
				case <-ctx.Done():
					return
				default:
				}
				out := make([]models.TrialOutcome, job.end-job.start)
				for k := job.start; k < job.end; k++ {
					subSeed := deriveSubSeed(inputs.RootSeed, k)
					out[k-job.start] = projection.RunTrial(inputs, rand.NewSource(subSeed), opts.IncludeTrajectories)
				}
				select {
				case results <- chunkResult{start: job.start, outcomes: out}:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	for start := 0; start < n; start += chunkSize {
		end := start + chunkSize
		if end > n {
			end = n
		}
		jobs <- chunkJob{start: start, end: end}
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	degenerate := 0
	received := 0
	totalChunks := (n + chunkSize - 1) / chunkSize

collect:
	for received < totalChunks {
		select {
		case r, ok := <-results:
			if !ok {
				break collect
			}
			for i, o := range r.outcomes {
				outcomes[r.start+i] = o
				if o.Degenerate {
					degenerate++
				}
			}
			received++
		case <-ctx.Done():
			return models.TrialArray{}, models.ErrDeadlineExceeded
		}
	}
	// Workers only stop before finishing every chunk when ctx is done.
	if received < totalChunks {
		return models.TrialArray{}, models.ErrDeadlineExceeded
	}

	if degenerate > 0 {
		d.log.Warn().Int("degenerate_trials", degenerate).Int("trial_count", n).Msg("kernel reported degenerate trials")
	}

	return models.TrialArray{Outcomes: outcomes, DegenerateTrialCount: degenerate}, nil
}

func autoChunkSize(n int) int {
	workers := runtime.NumCPU()
	if workers < 1 {
		workers = 1
	}
	size := n / (workers * 4)
	if size < 1 {
		size = 1
	}
	return size
}
