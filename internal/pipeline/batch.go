package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultProgressEvery is the number of cases between progress lines.
const DefaultProgressEvery = 10

// BatchOptions configures a Batch. Zero values select the defaults.
type BatchOptions struct {
	// KnownTotal is the denominator of the progress percentage. Zero uses the
	// number of cases passed to Run.
	KnownTotal int

	// ProgressEvery controls how often a progress line is printed.
	ProgressEvery int

	// Workers is the number of cases processed concurrently. Values below 2
	// process cases sequentially in input order.
	Workers int

	// Progress receives progress lines and the final tally. Nil selects stdout.
	Progress io.Writer

	// RunID identifies the run in log lines and sinks. Empty generates a UUID.
	RunID string

	// Sinks receive the ledger after the CSV table has been written.
	Sinks []ResultSink

	// Metrics, when set, observes every result.
	Metrics *Metrics

	// MetricsFile, when set together with Metrics, receives a textfile export.
	MetricsFile string

	// Logger is the base logger; the run id is added as a prefix.
	Logger *log.Logger
}

// Summary describes a finished batch run.
type Summary struct {
	RunID     string        `json:"run_id"`
	Total     int           `json:"total"`
	Processed int           `json:"processed"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Canceled  bool          `json:"canceled"`
	Areas     AreaStats     `json:"areas"`
	Elapsed   time.Duration `json:"elapsed_ns"`

	LedgerPath string   `json:"ledger_path"`
	LogPath    string   `json:"log_path"`
	Results    []Result `json:"-"`
}

// Batch drives an Aggregator over a list of cases.
type Batch struct {
	agg  *Aggregator
	opts BatchOptions
}

// NewBatch creates a Batch.
func NewBatch(agg *Aggregator, opts BatchOptions) *Batch {
	if opts.ProgressEvery <= 0 {
		opts.ProgressEvery = DefaultProgressEvery
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Progress == nil {
		opts.Progress = os.Stdout
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Batch{agg: agg, opts: opts}
}

// runState is the shared mutable state of one run.
type runState struct {
	mu       sync.Mutex
	done     int
	total    int
	every    int
	progress io.Writer
	ledger   *Ledger
	logFile  *LogFile
	metrics  *Metrics
	logger   *log.Logger
}

func (s *runState) record(r Result) {
	s.ledger.Append(r)
	if err := s.logFile.Append(r); err != nil {
		s.logger.Printf("Warning: %v", err)
	}
	if s.metrics != nil {
		s.metrics.Observe(r)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.done++
	if s.total > 0 && s.done%s.every == 0 {
		pct := float64(s.done) / float64(s.total) * 100
		fmt.Fprintf(s.progress, "Processed %.2f%% images.\n", pct)
	}
}

// RunSource loads the cases from src and runs them.
func (b *Batch) RunSource(ctx context.Context, src CaseSource) (*Summary, error) {
	cases, err := src.Cases(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading cases: %w", err)
	}
	return b.Run(ctx, cases)
}

// Run processes every case, then writes the ledger and prints the tally.
//
// A failing case is recorded and the run continues. Cancelling ctx stops the
// run before the next case starts; the ledger of completed cases is still
// written. The returned error reports ledger or sink failures only.
func (b *Batch) Run(ctx context.Context, cases []CaseRecord) (*Summary, error) {
	start := time.Now()
	outputDir := b.agg.OutputDir()
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	runID := b.opts.RunID
	if runID == "" {
		runID = uuid.New().String()
	}
	base := b.opts.Logger
	logger := log.New(base.Writer(), fmt.Sprintf("[%s] ", runID), base.Flags()|log.Lmsgprefix)
	agg := b.agg.WithLogger(logger)

	total := b.opts.KnownTotal
	if total <= 0 {
		total = len(cases)
	}

	state := &runState{
		total:    total,
		every:    b.opts.ProgressEvery,
		progress: b.opts.Progress,
		ledger:   NewLedger(),
		logFile:  NewLogFile(filepath.Join(outputDir, LogFileName)),
		metrics:  b.opts.Metrics,
		logger:   logger,
	}

	logger.Printf("Starting batch: %d cases, %d workers, min area %g", len(cases), b.opts.Workers, agg.MinArea())

	var canceled bool
	if b.opts.Workers == 1 {
		canceled = runSequential(ctx, agg, cases, state)
	} else {
		canceled = runParallel(ctx, agg, cases, state, b.opts.Workers)
	}
	if canceled {
		logger.Printf("Batch canceled after %d of %d cases", state.ledger.Len(), len(cases))
	}

	results := state.ledger.Results()
	succeeded, failed := state.ledger.Counts()
	summary := &Summary{
		RunID:      runID,
		Total:      total,
		Processed:  len(results),
		Succeeded:  succeeded,
		Failed:     failed,
		Canceled:   canceled,
		Areas:      SummarizeAreas(results),
		LedgerPath: filepath.Join(outputDir, LedgerFileName),
		LogPath:    state.logFile.Path(),
		Results:    results,
	}

	// Sinks still run after cancellation.
	sinkCtx := context.WithoutCancel(ctx)
	if err := (CSVSink{Path: summary.LedgerPath}).Write(sinkCtx, runID, results); err != nil {
		return summary, fmt.Errorf("writing ledger: %w", err)
	}

	var sinkErrs []error
	for _, sink := range b.opts.Sinks {
		if err := sink.Write(sinkCtx, runID, results); err != nil {
			logger.Printf("Warning: %s sink: %v", sink.Name(), err)
			sinkErrs = append(sinkErrs, fmt.Errorf("%s sink: %w", sink.Name(), err))
		}
	}
	if b.opts.Metrics != nil && b.opts.MetricsFile != "" {
		if err := b.opts.Metrics.WriteTextfile(b.opts.MetricsFile); err != nil {
			logger.Printf("Warning: metrics textfile: %v", err)
			sinkErrs = append(sinkErrs, fmt.Errorf("metrics textfile: %w", err))
		}
	}

	summary.Elapsed = time.Since(start)
	printTally(b.opts.Progress, summary, outputDir)

	return summary, errors.Join(sinkErrs...)
}

func runSequential(ctx context.Context, agg *Aggregator, cases []CaseRecord, state *runState) bool {
	for _, rec := range cases {
		if ctx.Err() != nil {
			return true
		}
		state.record(agg.ProcessCase(ctx, rec))
	}
	return false
}

func runParallel(ctx context.Context, agg *Aggregator, cases []CaseRecord, state *runState, workers int) bool {
	jobs := make(chan CaseRecord)
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for rec := range jobs {
				state.record(agg.ProcessCase(ctx, rec))
			}
		}()
	}

	canceled := false
feed:
	for _, rec := range cases {
		if ctx.Err() != nil {
			canceled = true
			break
		}
		select {
		case jobs <- rec:
		case <-ctx.Done():
			canceled = true
			break feed
		}
	}
	close(jobs)
	wg.Wait()
	return canceled
}

func printTally(w io.Writer, s *Summary, outputDir string) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Processing complete!")
	fmt.Fprintf(w, "Successfully processed: %d/%d images\n", s.Succeeded, s.Processed)
	fmt.Fprintf(w, "Failed: %d/%d images\n", s.Failed, s.Processed)
	fmt.Fprintf(w, "\nCheck %s for detailed processing log\n", s.LogPath)
	fmt.Fprintf(w, "Output images saved in: %s\n", outputDir)
}
